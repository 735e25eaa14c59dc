package cli

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aonawunmi/New-MinRisk-sub016/internal/config"
	"github.com/aonawunmi/New-MinRisk-sub016/internal/infrastructure/database/postgres"
	"github.com/aonawunmi/New-MinRisk-sub016/internal/infrastructure/monitoring/logging"
	"github.com/aonawunmi/New-MinRisk-sub016/pkg/types/common"
)

type fakeMigrator struct {
	state  postgres.MigrationState
	calls  []string
	closed bool
}

func (m *fakeMigrator) Up() error {
	m.calls = append(m.calls, "up")
	m.state.Version = 3
	return nil
}

func (m *fakeMigrator) Down(steps int) error {
	m.calls = append(m.calls, "down")
	m.state.Version -= uint(steps)
	return nil
}

func (m *fakeMigrator) Status() (postgres.MigrationState, error) { return m.state, nil }

func (m *fakeMigrator) Force(v int) error {
	m.calls = append(m.calls, "force")
	m.state = postgres.MigrationState{Version: uint(v)}
	return nil
}

func (m *fakeMigrator) Close() error {
	m.closed = true
	return nil
}

func stubMigrator(t *testing.T, m *fakeMigrator) {
	t.Helper()
	orig := openMigrator
	openMigrator = func(*config.Config, logging.Logger) (schemaMigrator, error) { return m, nil }
	t.Cleanup(func() { openMigrator = orig })
}

type fakeTopics struct {
	ensured  []common.TopicConfig
	existing []string
}

func (f *fakeTopics) EnsureTopics(_ context.Context, topics []common.TopicConfig) error {
	f.ensured = append(f.ensured, topics...)
	return nil
}

func (f *fakeTopics) ListTopics(context.Context) ([]string, error) { return f.existing, nil }

func (f *fakeTopics) Close() error { return nil }

func stubTopics(t *testing.T, f *fakeTopics) {
	t.Helper()
	orig := openTopicAdmin
	openTopicAdmin = func(*config.Config, logging.Logger) (topicAdmin, error) { return f, nil }
	t.Cleanup(func() { openTopicAdmin = orig })
}

func TestMigrateUpAndStatus(t *testing.T) {
	m := &fakeMigrator{}
	stubMigrator(t, m)

	out, _, err := runCLI(t, "migrate", "up")
	require.NoError(t, err)
	assert.Contains(t, out, "schema version 3")
	assert.True(t, m.closed)

	out, _, err = runCLI(t, "migrate", "status", "-o", "json")
	require.NoError(t, err)
	var state postgres.MigrationState
	require.NoError(t, json.Unmarshal([]byte(out), &state))
	assert.Equal(t, uint(3), state.Version)
}

func TestMigrateDown_RequiresConfirmation(t *testing.T) {
	m := &fakeMigrator{state: postgres.MigrationState{Version: 3}}
	stubMigrator(t, m)

	cmd := NewRootCommand()
	cmd.SetArgs([]string{"migrate", "down", "--steps", "2"})
	cmd.SetIn(strings.NewReader("n\n"))
	cmd.SetOut(&strings.Builder{})
	cmd.SetErr(&strings.Builder{})
	err := cmd.Execute()
	require.Error(t, err)
	assert.Empty(t, m.calls)

	cmd = NewRootCommand()
	cmd.SetArgs([]string{"migrate", "down", "--steps", "2"})
	cmd.SetIn(strings.NewReader("yes\n"))
	var out strings.Builder
	cmd.SetOut(&out)
	cmd.SetErr(&strings.Builder{})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "schema version 1")

	_, _, err = runCLI(t, "migrate", "down", "--steps", "0", "--yes")
	assert.Error(t, err)
}

func TestMigrateForce(t *testing.T) {
	m := &fakeMigrator{state: postgres.MigrationState{Version: 4, Dirty: true}}
	stubMigrator(t, m)

	out, _, err := runCLI(t, "migrate", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "dirty")

	out, _, err = runCLI(t, "migrate", "force", "3")
	require.NoError(t, err)
	assert.Contains(t, out, "schema version 3")
	assert.NotContains(t, out, "dirty")

	_, _, err = runCLI(t, "migrate", "force", "latest")
	assert.Error(t, err)
}

func TestTopicsEnsureAndList(t *testing.T) {
	f := &fakeTopics{existing: []string{"minrisk.periods.committed", "minrisk.events.ingested"}}
	stubTopics(t, f)

	out, _, err := runCLI(t, "topics", "ensure", "--replication-factor", "3")
	require.NoError(t, err)
	assert.Contains(t, out, "6 topics ensured")
	require.Len(t, f.ensured, 6)
	for _, tc := range f.ensured {
		assert.Equal(t, 3, tc.ReplicationFactor)
	}

	out, _, err = runCLI(t, "topics", "list")
	require.NoError(t, err)
	assert.Equal(t, "minrisk.events.ingested\nminrisk.periods.committed\n", out)

	_, _, err = runCLI(t, "topics", "ensure", "--replication-factor", "0")
	assert.Error(t, err)
}

//Personal.AI order the ending
