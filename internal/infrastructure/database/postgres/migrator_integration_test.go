//go:build integration

package postgres_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/aonawunmi/New-MinRisk-sub016/internal/infrastructure/database/postgres"
	"github.com/aonawunmi/New-MinRisk-sub016/internal/infrastructure/monitoring/logging"
)

const migrationsSource = "file://../../../../migrations"

func startPostgres(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "test",
				"POSTGRES_PASSWORD": "test",
				"POSTGRES_DB":       "minrisk_test",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)
	return fmt.Sprintf("postgres://test:test@%s:%s/minrisk_test?sslmode=disable", host, port.Port())
}

func TestMigrator_UpDownStatus(t *testing.T) {
	dbURL := startPostgres(t)
	log := logging.NewNopLogger()

	mg, err := postgres.NewMigrator(migrationsSource, dbURL, log)
	require.NoError(t, err)
	defer mg.Close()

	state, err := mg.Status()
	require.NoError(t, err)
	assert.Zero(t, state.Version)

	require.NoError(t, mg.Up())
	state, err = mg.Status()
	require.NoError(t, err)
	assert.EqualValues(t, 4, state.Version)
	assert.False(t, state.Dirty)

	// Up again is a no-op.
	require.NoError(t, mg.Up())

	require.NoError(t, mg.Down(1))
	state, err = mg.Status()
	require.NoError(t, err)
	assert.EqualValues(t, 3, state.Version)
}

//Personal.AI order the ending
