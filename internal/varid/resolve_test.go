package varid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/flowlua/internal/ir"
)

func TestResolveBound(t *testing.T) {
	table, err := NewTable(
		[]ir.StorageIndex{3, 0, 9},
		[]ir.StorageIndex{0, 12},
	)
	require.NoError(t, err)

	idx, err := Resolve(table, ir.NamespaceFlowvar, 0)
	require.NoError(t, err)
	assert.Equal(t, ir.StorageIndex(3), idx)

	idx, err = Resolve(table, ir.NamespaceFlowvar, 2)
	require.NoError(t, err)
	assert.Equal(t, ir.StorageIndex(9), idx)

	idx, err = Resolve(table, ir.NamespaceFlowint, 1)
	require.NoError(t, err)
	assert.Equal(t, ir.StorageIndex(12), idx)
}

func TestResolveUnbound(t *testing.T) {
	table, err := NewTable([]ir.StorageIndex{3, 0}, nil)
	require.NoError(t, err)

	_, err = Resolve(table, ir.NamespaceFlowvar, 1)
	assert.ErrorIs(t, err, ErrUnbound)

	// Ids past the declared list but inside capacity are unbound, not out of range.
	_, err = Resolve(table, ir.NamespaceFlowvar, ir.MaxFlowvars-1)
	assert.ErrorIs(t, err, ErrUnbound)

	_, err = Resolve(table, ir.NamespaceFlowint, 0)
	assert.ErrorIs(t, err, ErrUnbound)
}

func TestResolveOutOfRange(t *testing.T) {
	table := &Table{}
	for _, ns := range []ir.Namespace{ir.NamespaceFlowvar, ir.NamespaceFlowint} {
		for _, id := range []int{-1, -1000, ns.Capacity(), ns.Capacity() + 1, 1 << 30} {
			_, err := Resolve(table, ns, id)
			assert.ErrorIs(t, err, ErrOutOfRange, "%s id %d", ns, id)
		}
	}
}

func TestResolveNamespacesIndependent(t *testing.T) {
	table, err := NewTable([]ir.StorageIndex{5}, []ir.StorageIndex{0})
	require.NoError(t, err)

	_, err = Resolve(table, ir.NamespaceFlowvar, 0)
	require.NoError(t, err)

	_, err = Resolve(table, ir.NamespaceFlowint, 0)
	assert.ErrorIs(t, err, ErrUnbound)
}

func TestResolveNilTable(t *testing.T) {
	_, err := Resolve(nil, ir.NamespaceFlowvar, 0)
	assert.ErrorIs(t, err, ErrNoTable)
}

func TestResolveUnknownNamespace(t *testing.T) {
	_, err := Resolve(&Table{}, ir.Namespace(0), 0)
	assert.ErrorIs(t, err, ErrUnknownNamespace)
}

func TestNewTableTooLarge(t *testing.T) {
	_, err := NewTable(make([]ir.StorageIndex, ir.MaxFlowvars+1), nil)
	assert.Error(t, err)

	_, err = NewTable(nil, make([]ir.StorageIndex, ir.MaxFlowints+1))
	assert.Error(t, err)

	_, err = NewTable(make([]ir.StorageIndex, ir.MaxFlowvars), make([]ir.StorageIndex, ir.MaxFlowints))
	assert.NoError(t, err)
}

func TestBindAndIndices(t *testing.T) {
	table := &Table{}
	require.NoError(t, table.Bind(ir.NamespaceFlowint, 2, 40))
	assert.Equal(t, []ir.StorageIndex{0, 0, 40}, table.Indices(ir.NamespaceFlowint))
	assert.Empty(t, table.Indices(ir.NamespaceFlowvar))

	require.NoError(t, table.Bind(ir.NamespaceFlowint, 2, ir.Unbound))
	assert.Empty(t, table.Indices(ir.NamespaceFlowint))

	assert.ErrorIs(t, table.Bind(ir.NamespaceFlowvar, ir.MaxFlowvars, 1), ErrOutOfRange)
	assert.ErrorIs(t, table.Bind(ir.Namespace(7), 0, 1), ErrUnknownNamespace)
}
