// Package reset zeroes the periodic like counter at season boundaries,
// either lazily for one profile on read or in bulk from the scheduler.
package reset

import (
	"context"
	"fmt"
	"time"

	"github.com/SlpAus/imagynex-season-backend/internal/platform/logger"
	"github.com/SlpAus/imagynex-season-backend/internal/season"
	"github.com/SlpAus/imagynex-season-backend/internal/store"
	"gorm.io/gorm"
)

// RankIndex is the part of the rank index a reset touches.
type RankIndex interface {
	ResetPeriodic(ctx context.Context, profileID string)
	Rebuild(ctx context.Context) error
}

type nopIndex struct{}

func (nopIndex) ResetPeriodic(context.Context, string) {}
func (nopIndex) Rebuild(context.Context) error         { return nil }

// Executor runs both reset paths against the same store and policy.
type Executor struct {
	store     store.CounterStore
	policy    season.Policy
	index     RankIndex
	db        *gorm.DB
	batchSize int
	log       *logger.Logger
}

// NewExecutor wires an executor. index may be nil; db is only used for the
// bulk reset checkpoint and may be nil as well.
func NewExecutor(st store.CounterStore, policy season.Policy, index RankIndex, db *gorm.DB, batchSize int, log *logger.Logger) *Executor {
	if index == nil {
		index = nopIndex{}
	}
	if batchSize <= 0 {
		batchSize = 400
	}
	return &Executor{
		store:     st,
		policy:    policy,
		index:     index,
		db:        db,
		batchSize: batchSize,
		log:       log,
	}
}

func (e *Executor) Policy() season.Policy { return e.policy }

// LazyReset zeroes p's periodic counter when its season is over and
// updates p in place. A second call in the same season is a no-op because
// lastResetAt then reads as current.
func (e *Executor) LazyReset(ctx context.Context, p *store.Profile, now time.Time) (bool, error) {
	if !e.policy.IsSeasonOver(now, p.LastResetAt) {
		return false, nil
	}

	zero := int64(0)
	err := e.store.UpsertProfile(ctx, p.ID, store.ProfileFields{
		PeriodicLikes: &zero,
		LastResetAt:   &now,
	})
	if err != nil {
		return false, fmt.Errorf("lazy reset of %s: %w", p.ID, err)
	}
	p.PeriodicLikes = 0
	p.LastResetAt = now

	e.index.ResetPeriodic(ctx, p.ID)
	e.log.Debug("lazy season reset", "profileID", p.ID, "season", e.policy.SeasonKey(now))
	return true, nil
}
