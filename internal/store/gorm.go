package store

import (
	"context"
	"time"

	"gorm.io/gorm"
)

// GormStore implements CounterStore and ArtifactStore on top of sqlite or
// postgres.
type GormStore struct {
	db      *gorm.DB
	timeout time.Duration
	now     Clock
}

var (
	_ CounterStore  = (*GormStore)(nil)
	_ ArtifactStore = (*GormStore)(nil)
)

// NewGormStore bounds every operation by timeout. A zero timeout means the
// caller's context alone decides.
func NewGormStore(db *gorm.DB, timeout time.Duration) *GormStore {
	return &GormStore{db: db, timeout: timeout, now: time.Now}
}

// WithClock overrides the clock used for defaults of new profiles.
func (s *GormStore) WithClock(now Clock) *GormStore {
	s.now = now
	return s
}

// DB exposes the handle for the metadata table.
func (s *GormStore) DB() *gorm.DB {
	return s.db
}

// Migrate creates or updates the profile and artifact tables.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&Profile{}, &Artifact{})
}

func (s *GormStore) op(ctx context.Context) (*gorm.DB, context.CancelFunc) {
	if s.timeout <= 0 {
		return s.db.WithContext(ctx), func() {}
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	return s.db.WithContext(ctx), cancel
}
