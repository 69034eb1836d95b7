package cli

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dwctl-io/dwctl/internal/orchestrator"
	"github.com/dwctl-io/dwctl/internal/state"
	"github.com/dwctl-io/dwctl/internal/topology"
)

func TestSplitCommand(t *testing.T) {
	cases := []struct {
		line string
		cmd  string
		arg  string
	}{
		{"", "", ""},
		{"   ", "", ""},
		{"exit", "exit", ""},
		{"UPLOAD", "upload", ""},
		{"upload data.csv", "upload", "data.csv"},
		{"  upload   my data.csv ", "upload", "my data.csv"},
	}
	for _, c := range cases {
		cmd, arg := splitCommand(c.line)
		assert.Equal(t, c.cmd, cmd, c.line)
		assert.Equal(t, c.arg, arg, c.line)
	}
}

// stubStep is deletion-only; the session tests restore from a persisted
// topology and never provision.
type stubStep struct {
	kind topology.Kind
	name string
	log  *[]string
}

func (s *stubStep) Kind() topology.Kind { return s.kind }
func (s *stubStep) Name() string        { return s.name }

func (s *stubStep) Create(ctx context.Context) (*topology.Descriptor, error) {
	return &topology.Descriptor{Kind: s.kind, Name: s.name}, nil
}

func (s *stubStep) Delete(ctx context.Context, d *topology.Descriptor) error {
	*s.log = append(*s.log, d.Addr())
	return nil
}

func restoredSession(t *testing.T) (*orchestrator.Orchestrator, *state.Manager, *[]string) {
	t.Helper()
	var log []string
	topo := topology.New()
	topo.Append(&topology.Descriptor{Kind: topology.KindBucket, Name: "raw"})
	steps := []orchestrator.Step{&stubStep{kind: topology.KindBucket, name: "raw", log: &log}}
	mgr := state.NewManager(filepath.Join(t.TempDir(), "topology.json"))
	require.NoError(t, mgr.Write(topo))
	return orchestrator.Restore(steps, topo), mgr, &log
}

func TestRunSession_ExitPersistsTopology(t *testing.T) {
	orch, mgr, log := restoredSession(t)

	err := runSession(context.Background(), orch, mgr, strings.NewReader("status\nexit\n"))
	require.NoError(t, err)

	saved, err := mgr.Read()
	require.NoError(t, err)
	assert.Equal(t, 1, saved.Len())
	assert.Empty(t, *log)
}

func TestRunSession_EOFBehavesLikeExit(t *testing.T) {
	orch, mgr, log := restoredSession(t)

	err := runSession(context.Background(), orch, mgr, strings.NewReader(""))
	require.NoError(t, err)

	saved, err := mgr.Read()
	require.NoError(t, err)
	assert.Equal(t, 1, saved.Len())
	assert.Empty(t, *log)
}

func TestRunSession_DeleteTearsDownAndClearsState(t *testing.T) {
	orch, mgr, log := restoredSession(t)

	err := runSession(context.Background(), orch, mgr, strings.NewReader("delete\n"))
	require.NoError(t, err)

	assert.Equal(t, []string{"s3-bucket.raw"}, *log)
	saved, err := mgr.Read()
	require.NoError(t, err)
	assert.True(t, saved.Empty())
}

func TestRunSession_UnknownCommandKeepsSessionAlive(t *testing.T) {
	orch, mgr, log := restoredSession(t)

	err := runSession(context.Background(), orch, mgr, strings.NewReader("frobnicate\nexit\n"))
	require.NoError(t, err)
	assert.Empty(t, *log)
}
