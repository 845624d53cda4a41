package ir

import "fmt"

// Bounds shared by the rule compiler, the resolver and the accessors.
const (
	// MaxFlowvars is the number of flowvar ids a single rule may use.
	MaxFlowvars = 15

	// MaxFlowints is the number of flowint ids a single rule may use.
	MaxFlowints = 15

	// MaxStringLen is the largest flowvar value in bytes.
	MaxStringLen = 0xffff
)

// StorageIndex is the engine-wide index of a flow variable slot.
// Index 0 never refers to a slot.
type StorageIndex uint16

// Unbound is the sentinel index of an id that was never bound at compile time.
const Unbound StorageIndex = 0

// IsBound reports whether idx refers to a real slot.
func (idx StorageIndex) IsBound() bool {
	return idx != Unbound
}

// Namespace selects one of the two independent id spaces.
type Namespace uint8

const (
	// NamespaceFlowvar holds string variables.
	NamespaceFlowvar Namespace = iota + 1
	// NamespaceFlowint holds unsigned 32-bit integer variables.
	NamespaceFlowint
)

// String returns the script-facing name of the namespace.
func (ns Namespace) String() string {
	switch ns {
	case NamespaceFlowvar:
		return "flowvar"
	case NamespaceFlowint:
		return "flowint"
	default:
		return fmt.Sprintf("namespace(%d)", uint8(ns))
	}
}

// Capacity returns the id bound of the namespace, or 0 for an unknown one.
func (ns Namespace) Capacity() int {
	switch ns {
	case NamespaceFlowvar:
		return MaxFlowvars
	case NamespaceFlowint:
		return MaxFlowints
	default:
		return 0
	}
}
