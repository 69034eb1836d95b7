package state

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dwctl-io/dwctl/internal/topology"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	return NewManager(filepath.Join(t.TempDir(), ".dwctl", "topology.json"))
}

func TestReadMissingFileYieldsEmptyTopology(t *testing.T) {
	m := newTestManager(t)

	topo, err := m.Read()
	require.NoError(t, err)
	assert.True(t, topo.Empty())
}

func TestWriteReadRoundTrip(t *testing.T) {
	m := newTestManager(t)

	topo := topology.New()
	topo.Append(&topology.Descriptor{Kind: topology.KindNetwork, Name: "vpc", ID: "vpc-123"})
	d := &topology.Descriptor{Kind: topology.KindDBInstance, Name: "db", Endpoint: "db.internal"}
	d.SetAttr("port", "5432")
	topo.Append(d)

	require.NoError(t, m.Write(topo))

	restored, err := m.Read()
	require.NoError(t, err)
	require.Equal(t, 2, restored.Len())
	assert.Equal(t, "vpc-123", restored.Find(topology.KindNetwork, "vpc").ID)
	assert.Equal(t, "5432", restored.Find(topology.KindDBInstance, "db").Attr("port"))
}

func TestClear(t *testing.T) {
	m := newTestManager(t)
	topo := topology.New()
	topo.Append(&topology.Descriptor{Kind: topology.KindBucket, Name: "raw"})
	require.NoError(t, m.Write(topo))

	require.NoError(t, m.Clear())

	restored, err := m.Read()
	require.NoError(t, err)
	assert.True(t, restored.Empty())

	// Clearing an already-cleared state is fine.
	require.NoError(t, m.Clear())
}

func TestLockConflict(t *testing.T) {
	m := newTestManager(t)

	require.NoError(t, m.Lock())
	err := m.Lock()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "is locked by pid")

	require.NoError(t, m.Unlock())
	require.NoError(t, m.Lock())
	require.NoError(t, m.Unlock())
}

func TestLockStaleIsBroken(t *testing.T) {
	m := newTestManager(t)

	stale := fmt.Sprintf(`{"pid":99999,"acquired":%q}`,
		time.Now().Add(-time.Hour).UTC().Format(time.RFC3339))
	require.NoError(t, os.MkdirAll(filepath.Dir(m.lockPath()), 0755))
	require.NoError(t, os.WriteFile(m.lockPath(), []byte(stale), 0644))

	require.NoError(t, m.Lock())
	require.NoError(t, m.Unlock())
}

func TestLockGarbageContentIsStale(t *testing.T) {
	m := newTestManager(t)

	require.NoError(t, os.MkdirAll(filepath.Dir(m.lockPath()), 0755))
	require.NoError(t, os.WriteFile(m.lockPath(), []byte("pid=123"), 0644))

	require.NoError(t, m.Lock())
	require.NoError(t, m.Unlock())
}
