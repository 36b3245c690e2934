// Package common provides shared test infrastructure
package common

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// RequireIntegration skips the test unless container-backed tests are enabled.
func RequireIntegration(t *testing.T) {
	t.Helper()
	if os.Getenv("NAVBOARD_INTEGRATION") != "1" {
		t.Skip("Integration tests disabled (set NAVBOARD_INTEGRATION=1 to enable)")
	}
}

// container is a started testcontainer with its mapped address.
type container struct {
	c    testcontainers.Container
	host string
	port string
}

// Cleanup terminates the container. Call from TestMain if needed.
func (c *container) Cleanup() {
	if c != nil && c.c != nil {
		c.c.Terminate(context.Background())
	}
}

// shared starts a container once per process and hands the same instance
// to every caller.
type shared struct {
	once sync.Once
	ctr  *container
	err  error
}

func (s *shared) start(t *testing.T, name string, req testcontainers.ContainerRequest) *container {
	t.Helper()

	s.once.Do(func() {
		ctx := context.Background()
		port := nat.Port(req.ExposedPorts[0])

		c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
			ContainerRequest: req,
			Started:          true,
		})
		if err != nil {
			s.err = fmt.Errorf("start %s container: %w", name, err)
			return
		}

		host, err := c.Host(ctx)
		if err != nil {
			c.Terminate(ctx)
			s.err = fmt.Errorf("get %s host: %w", name, err)
			return
		}

		mapped, err := c.MappedPort(ctx, port)
		if err != nil {
			c.Terminate(ctx)
			s.err = fmt.Errorf("get %s port: %w", name, err)
			return
		}

		s.ctr = &container{c: c, host: host, port: mapped.Port()}
	})

	if s.err != nil {
		t.Fatalf("%s container failed: %v", name, s.err)
	}
	return s.ctr
}

var (
	postgres shared
	surreal  shared
)

// PostgresContainer wraps a testcontainers PostgreSQL instance.
type PostgresContainer struct {
	*container
}

// StartPostgres starts a shared PostgreSQL container for the test run.
// Callers should gate on RequireIntegration first.
func StartPostgres(t *testing.T) *PostgresContainer {
	t.Helper()
	c := postgres.start(t, "PostgreSQL", testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "navboard",
			"POSTGRES_PASSWORD": "navboard",
			"POSTGRES_DB":       "navboard",
		},
		WaitingFor: wait.ForAll(
			wait.ForListeningPort("5432/tcp"),
			wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
		).WithDeadline(60 * time.Second),
	})
	return &PostgresContainer{c}
}

// DSN returns a connection URL for the pgx driver.
func (c *PostgresContainer) DSN() string {
	return fmt.Sprintf("postgres://navboard:navboard@%s:%s/navboard?sslmode=disable", c.host, c.port)
}

// SurrealDBContainer wraps a testcontainers SurrealDB instance.
type SurrealDBContainer struct {
	*container
}

// StartSurrealDB starts a shared SurrealDB container for the test run.
// Callers should gate on RequireIntegration first.
func StartSurrealDB(t *testing.T) *SurrealDBContainer {
	t.Helper()
	c := surreal.start(t, "SurrealDB", testcontainers.ContainerRequest{
		Image:        "surrealdb/surrealdb:v3.0.0",
		ExposedPorts: []string{"8000/tcp"},
		Cmd:          []string{"start", "--user", "root", "--pass", "root"},
		WaitingFor: wait.ForAll(
			wait.ForListeningPort("8000/tcp"),
			wait.ForLog("Started web server"),
		).WithDeadline(60 * time.Second),
	})
	return &SurrealDBContainer{c}
}

// Address returns the WebSocket RPC address for SurrealDB.
func (c *SurrealDBContainer) Address() string {
	return fmt.Sprintf("ws://%s:%s/rpc", c.host, c.port)
}
