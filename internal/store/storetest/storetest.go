// Package storetest opens throwaway in-memory stores for package tests.
package storetest

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/SlpAus/imagynex-season-backend/internal/platform/metadata"
	"github.com/SlpAus/imagynex-season-backend/internal/store"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// OpenDB returns a migrated in-memory sqlite database private to t. The
// pool is capped at one connection so that shared-cache table locks never
// surface as test flakes.
func OpenDB(t testing.TB) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := store.Migrate(db); err != nil {
		t.Fatalf("failed to migrate store: %v", err)
	}
	if err := metadata.Migrate(db); err != nil {
		t.Fatalf("failed to migrate metadata: %v", err)
	}
	return db
}

// New returns a GormStore over OpenDB with a generous timeout.
func New(t testing.TB) *store.GormStore {
	t.Helper()
	return store.NewGormStore(OpenDB(t), 5*time.Second)
}

// SeedProfile creates a profile with the given counters.
func SeedProfile(t testing.TB, s *store.GormStore, p store.Profile) {
	t.Helper()
	if p.LikedArtifactIDs == nil {
		p.LikedArtifactIDs = []string{}
	}
	if p.DisplayName == "" {
		p.DisplayName = store.DefaultDisplayName(p.ID)
	}
	if err := s.DB().Create(&p).Error; err != nil {
		t.Fatalf("failed to seed profile %s: %v", p.ID, err)
	}
}

// SeedArtifact inserts an artifact without touching the creator's counters.
func SeedArtifact(t testing.TB, s *store.GormStore, a store.Artifact) {
	t.Helper()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}
	if err := s.DB().Create(&a).Error; err != nil {
		t.Fatalf("failed to seed artifact %s: %v", a.ID, err)
	}
}

// MustProfile reads a profile or fails the test.
func MustProfile(t testing.TB, s store.CounterStore, id string) *store.Profile {
	t.Helper()
	p, err := s.GetProfile(t.Context(), id)
	if err != nil {
		t.Fatalf("failed to read profile %s: %v", id, err)
	}
	return p
}
