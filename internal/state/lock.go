package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// lockStaleAfter is how old a lock may get before it is presumed abandoned.
// Provisioning legitimately holds the lock for many minutes while the DB
// instance comes up, so the window is generous.
const lockStaleAfter = 30 * time.Minute

type lockInfo struct {
	PID      int       `json:"pid"`
	Acquired time.Time `json:"acquired"`
}

// Lock guards the topology against a second dwctl process mutating the same
// cloud resources. A lock past the staleness window is broken and re-taken.
func (m *Manager) Lock() error {
	lockPath := m.lockPath()
	if err := os.MkdirAll(filepath.Dir(lockPath), 0755); err != nil {
		return fmt.Errorf("failed to create lock directory: %w", err)
	}

	if raw, err := os.ReadFile(lockPath); err == nil {
		var held lockInfo
		// Unparseable content leaves Acquired zero, which counts as stale.
		_ = json.Unmarshal(raw, &held)
		if time.Since(held.Acquired) <= lockStaleAfter {
			return fmt.Errorf("topology %s is locked by pid %d since %s; "+
				"remove %s if that process is gone",
				m.path, held.PID, held.Acquired.Format(time.RFC3339), lockPath)
		}
		os.Remove(lockPath)
	}

	content, err := json.Marshal(lockInfo{PID: os.Getpid(), Acquired: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("failed to serialize lock: %w", err)
	}
	if err := os.WriteFile(lockPath, content, 0644); err != nil {
		return fmt.Errorf("failed to create lock file: %w", err)
	}
	return nil
}

// Unlock releases the topology lock.
func (m *Manager) Unlock() error {
	if err := os.Remove(m.lockPath()); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove lock file: %w", err)
	}
	return nil
}

func (m *Manager) lockPath() string {
	return m.path + ".lock"
}
