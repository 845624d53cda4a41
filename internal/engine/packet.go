package engine

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Packet is one unit of the replayed stream.
type Packet struct {
	// Seq is assigned by the dispatcher.
	Seq int64 `yaml:"-" json:"seq"`

	// FlowToken names the packet's flow. Empty creates a fresh flow.
	FlowToken string `yaml:"flow" json:"flow"`

	// Payload is handed to match as packet.payload.
	Payload string `yaml:"payload" json:"payload"`

	// Locked evaluates all rules with the flow lock held by the engine.
	Locked bool `yaml:"locked,omitempty" json:"locked,omitempty"`

	// Teardown evaluates the packet as the flow's last and then releases
	// the flow.
	Teardown bool `yaml:"teardown,omitempty" json:"teardown,omitempty"`
}

// packetFile is the top-level layout of a packet stream file.
type packetFile struct {
	Packets []Packet `yaml:"packets"`
}

// DecodePackets reads a YAML packet stream. Unknown fields are rejected.
func DecodePackets(r io.Reader) ([]Packet, error) {
	var pf packetFile
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(&pf); err != nil {
		if errors.Is(err, io.EOF) {
			return []Packet{}, nil
		}
		return nil, fmt.Errorf("parse packets: %w", err)
	}
	if pf.Packets == nil {
		pf.Packets = []Packet{}
	}
	return pf.Packets, nil
}

// LoadPackets reads a YAML packet stream file.
func LoadPackets(path string) ([]Packet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open packets: %w", err)
	}
	defer f.Close()

	packets, err := DecodePackets(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return packets, nil
}
