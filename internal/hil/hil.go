// Package hil resolves a Hardware-In-the-Loop worker's fixed (plane,
// ordinal) identity from its node ID, as supplied by the HZN_NODE_ID
// environment variable at startup.
package hil

import (
	"fmt"
	"os"

	"github.com/skyline-labs/constellation-sim/internal/argload"
)

// NodeIDEnvVar is the environment variable a HIL worker reads to discover
// its own identity among the configured HIL entries.
const NodeIDEnvVar = "HZN_NODE_ID"

// Identity is the fixed (plane, ordinal) a HIL worker simulates.
type Identity struct {
	Plane   int
	Ordinal int
}

// Table maps HIL node IDs to their fixed identity.
type Table map[string]Identity

// NewTable builds a Table from parsed HIL flag entries.
func NewTable(entries []argload.HILEntry) Table {
	t := make(Table, len(entries))
	for _, e := range entries {
		t[e.NodeID] = Identity{Plane: e.Plane, Ordinal: e.Ordinal}
	}
	return t
}

// Resolve looks up the identity for the node named by HZN_NODE_ID. A
// missing environment variable or an unmapped node ID is treated as fatal
// by the caller, matching the HIL worker's original behavior of printing
// an error and exiting immediately rather than running with an undefined
// identity.
func (t Table) Resolve() (Identity, error) {
	nodeID := os.Getenv(NodeIDEnvVar)
	if nodeID == "" {
		return Identity{}, fmt.Errorf("bad or missing %s environment variable", NodeIDEnvVar)
	}
	id, ok := t[nodeID]
	if !ok {
		return Identity{}, fmt.Errorf("no HIL entry for %s=%q", NodeIDEnvVar, nodeID)
	}
	return id, nil
}
