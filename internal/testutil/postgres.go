// Package testutil provides test helpers including container management.
package testutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/finalsentence/server/internal/config"
	"github.com/finalsentence/server/internal/storage/postgres"
)

// Schema mirrors migrations/0001_init.up.sql with IF NOT EXISTS guards so
// tests can apply it repeatedly without the migrate tool.
const Schema = `
	CREATE TABLE IF NOT EXISTS players (
		id            UUID         PRIMARY KEY,
		name          TEXT         NOT NULL UNIQUE,
		avatar        TEXT         NOT NULL DEFAULT '',
		password_hash TEXT         NOT NULL,
		created_at    TIMESTAMPTZ  NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS rooms (
		id          UUID         PRIMARY KEY,
		code        TEXT         NOT NULL UNIQUE,
		kind        TEXT         NOT NULL,
		status      TEXT         NOT NULL,
		host_id     UUID         NOT NULL,
		max_players INT          NOT NULL,
		round       INT          NOT NULL DEFAULT 0,
		players     JSONB        NOT NULL DEFAULT '[]',
		created_at  TIMESTAMPTZ  NOT NULL DEFAULT NOW(),
		updated_at  TIMESTAMPTZ  NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS matches (
		id               UUID              PRIMARY KEY,
		room_id          UUID              NOT NULL,
		winner_id        UUID,
		stats            JSONB             NOT NULL,
		phrases          JSONB             NOT NULL DEFAULT '[]',
		duration_seconds DOUBLE PRECISION  NOT NULL,
		finished_at      TIMESTAMPTZ       NOT NULL DEFAULT NOW()
	);
	CREATE INDEX IF NOT EXISTS idx_matches_room ON matches (room_id, finished_at);
	CREATE INDEX IF NOT EXISTS idx_matches_stats ON matches USING GIN (stats jsonb_path_ops);

	CREATE TABLE IF NOT EXISTS phrases (
		id         TEXT         PRIMARY KEY,
		text       TEXT         NOT NULL UNIQUE,
		difficulty TEXT         NOT NULL DEFAULT 'media',
		category   TEXT         NOT NULL DEFAULT 'general',
		created_at TIMESTAMPTZ  NOT NULL DEFAULT NOW()
	);
`

// PostgresContainer wraps a testcontainers PostgreSQL instance.
type PostgresContainer struct {
	container testcontainers.Container
	Store     *postgres.Store
	RawPool   *pgxpool.Pool
	Config    config.DatabaseConfig
}

// NewPostgresContainer starts a PostgreSQL test container and returns
// a connected Store.
//
// Precondition: Docker must be available.
// Postcondition: Returns a running container with a connected store,
// or fails the test.
func NewPostgresContainer(t *testing.T) *PostgresContainer {
	t.Helper()
	ctx := context.Background()
	start := time.Now()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "test",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(30 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("starting postgres container: %v [%s]", err, time.Since(start))
	}

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("getting container host: %v", err)
	}

	mappedPort, err := container.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("getting mapped port: %v", err)
	}

	dbCfg := config.DatabaseConfig{
		Host:            host,
		Port:            mappedPort.Int(),
		User:            "test",
		Password:        "test",
		Name:            "test",
		SSLMode:         "disable",
		MaxConns:        5,
		MinConns:        1,
		MaxConnLifetime: 5 * time.Minute,
	}

	store, err := postgres.NewStore(ctx, dbCfg)
	if err != nil {
		t.Fatalf("connecting to test postgres: %v [%s]", err, time.Since(start))
	}

	t.Logf("postgres container started [%s]", time.Since(start))

	pc := &PostgresContainer{
		container: container,
		Store:     store,
		RawPool:   store.DB(),
		Config:    dbCfg,
	}

	t.Cleanup(func() {
		store.Close()
		_ = container.Terminate(ctx)
	})

	return pc
}

// ApplyMigrations runs the schema creation SQL directly for tests.
// This avoids requiring the migrate tool in the test environment.
//
// Precondition: Store must be connected.
// Postcondition: All game tables exist in the test database.
func (pc *PostgresContainer) ApplyMigrations(t *testing.T) {
	t.Helper()
	start := time.Now()

	if _, err := pc.RawPool.Exec(context.Background(), Schema); err != nil {
		t.Fatalf("applying migrations: %v", err)
	}
	t.Logf("migrations applied [%s]", time.Since(start))
}

// DSN returns the connection string for the test database.
func (pc *PostgresContainer) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		pc.Config.User, pc.Config.Password,
		pc.Config.Host, pc.Config.Port,
		pc.Config.Name, pc.Config.SSLMode,
	)
}
