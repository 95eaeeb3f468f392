package test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/hrygo/studyhub/internal/profile"
	"github.com/hrygo/studyhub/store"
	"github.com/hrygo/studyhub/store/db"
)

// NewTestingStore opens a migrated store. SQLite in a temp dir is the
// default; TEST_DRIVER=postgres switches to PostgreSQL.
func NewTestingStore(ctx context.Context, t *testing.T) *store.Store {
	t.Helper()
	return NewTestingStoreWithDriver(ctx, t, nil)
}

// NewTestingStoreWithDriver is NewTestingStore with the driver passed through
// wrap, for tests that intercept driver calls.
func NewTestingStoreWithDriver(ctx context.Context, t *testing.T, wrap func(store.Driver) store.Driver) *store.Store {
	t.Helper()
	p := getTestingProfile(t)
	driver, err := db.NewDBDriver(p)
	if err != nil {
		t.Fatalf("failed to create db driver: %v", err)
	}
	if wrap != nil {
		driver = wrap(driver)
	}

	s := store.New(driver, p)
	if err := s.Migrate(ctx); err != nil {
		t.Fatalf("failed to migrate db: %v", err)
	}
	t.Cleanup(func() {
		s.Close()
	})
	return s
}

func getTestingProfile(t *testing.T) *profile.Profile {
	dir := t.TempDir()
	mode := "prod"
	p := &profile.Profile{
		Mode:   mode,
		Data:   dir,
		Driver: getDriverFromEnv(),
		Secret: "test-secret",
	}
	switch p.Driver {
	case "postgres":
		p.DSN = GetPostgresDSN(t)
	default:
		p.Driver = "sqlite"
		p.DSN = filepath.Join(dir, fmt.Sprintf("studyhub_%s.db", mode))
	}
	return p
}

func getDriverFromEnv() string {
	return os.Getenv("TEST_DRIVER")
}
