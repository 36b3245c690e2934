package surrealdb

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/bobmcallan/navboard/internal/common"
	tcommon "github.com/bobmcallan/navboard/tests/common"
)

// testConfig starts the shared SurrealDB container and returns a config
// pointing at a unique database per test to ensure isolation.
func testConfig(t *testing.T) *common.Config {
	t.Helper()
	tcommon.RequireIntegration(t)
	sc := tcommon.StartSurrealDB(t)

	// SurrealDB rejects "/" in database names, which subtests produce.
	sanitized := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())

	cfg := common.NewDefaultConfig()
	cfg.Environment = "test"
	cfg.Storage.Backend = "surrealdb"
	cfg.Storage.Address = sc.Address()
	cfg.Storage.Namespace = "navboard_test"
	cfg.Storage.Database = fmt.Sprintf("t_%s_%d", sanitized, time.Now().UnixNano()%100000)
	cfg.Storage.Username = "root"
	cfg.Storage.Password = "root"
	return cfg
}

func testManager(t *testing.T) *Manager {
	t.Helper()
	mgr, err := NewManager(context.Background(), testLogger(), testConfig(t))
	if err != nil {
		t.Fatalf("create manager: %v", err)
	}
	t.Cleanup(func() { mgr.Close() })
	return mgr
}

// testLogger returns a silent logger for tests.
func testLogger() *common.Logger {
	return common.NewSilentLogger()
}
