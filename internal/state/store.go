// Package state persists the provisioned topology between invocations, so a
// session ended with "exit" can be torn down later with "dwctl down".
package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dwctl-io/dwctl/internal/topology"
)

// DefaultPath is where the topology document lives relative to the working
// directory.
const DefaultPath = ".dwctl/topology.json"

// Manager handles reading and writing of the persisted topology.
type Manager struct {
	path string
}

// NewManager returns a manager for the given topology file path.
func NewManager(path string) *Manager {
	return &Manager{path: path}
}

// Read loads the persisted topology. A missing file yields an empty
// topology, not an error.
func (m *Manager) Read() (*topology.Topology, error) {
	raw, err := os.ReadFile(m.path)
	if err != nil {
		if os.IsNotExist(err) {
			return topology.New(), nil
		}
		return nil, fmt.Errorf("failed to read topology file %s: %w", m.path, err)
	}

	var topo topology.Topology
	if err := json.Unmarshal(raw, &topo); err != nil {
		return nil, fmt.Errorf("failed to parse topology file %s: %w", m.path, err)
	}
	return &topo, nil
}

// Write saves the topology. Permissions are restrictive; the document names
// live cloud resources.
func (m *Manager) Write(topo *topology.Topology) error {
	if err := os.MkdirAll(filepath.Dir(m.path), 0755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	content, err := json.MarshalIndent(topo, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize topology: %w", err)
	}
	if err := os.WriteFile(m.path, append(content, '\n'), 0600); err != nil {
		return fmt.Errorf("failed to write topology file %s: %w", m.path, err)
	}
	return nil
}

// Clear removes the topology file after a completed teardown.
func (m *Manager) Clear() error {
	if err := os.Remove(m.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove topology file %s: %w", m.path, err)
	}
	return nil
}
