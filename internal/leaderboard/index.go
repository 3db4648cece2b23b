// Package leaderboard keeps a Redis sorted-set copy of the like counters so
// rank counts do not scan the profile table. The store stays the source of
// truth: every read falls back to it while the index is not healthy.
package leaderboard

import (
	"context"
	"fmt"
	"strconv"

	"github.com/SlpAus/imagynex-season-backend/internal/platform/database"
	"github.com/SlpAus/imagynex-season-backend/internal/platform/logger"
	"github.com/SlpAus/imagynex-season-backend/internal/store"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	TotalKey    = "season:rank:total"
	PeriodicKey = "season:rank:periodic"

	rebuildSuffix   = ":rebuild:"
	rebuildPageSize = 500
)

func keyFor(field store.Field) (string, error) {
	switch field {
	case store.FieldTotalLikes:
		return TotalKey, nil
	case store.FieldPeriodicLikes:
		return PeriodicKey, nil
	}
	return "", fmt.Errorf("%w: %s has no rank index", store.ErrUnknownField, field)
}

// Index is the rank index. A nil Redis client disables it and every call
// goes to the store.
type Index struct {
	rdb    *redis.Client
	status *database.RedisStatus
	store  store.CounterStore
	log    *logger.Logger
}

func NewIndex(rdb *redis.Client, status *database.RedisStatus, st store.CounterStore, log *logger.Logger) *Index {
	return &Index{rdb: rdb, status: status, store: st, log: log}
}

func (i *Index) enabled() bool { return i.rdb != nil }

func (i *Index) healthy() bool {
	return i.enabled() && i.status.IsRedisHealthy()
}

// CountGreaterThan uses ZCOUNT with an exclusive lower bound.
func (i *Index) CountGreaterThan(ctx context.Context, field store.Field, value int64) (int64, error) {
	if i.healthy() {
		key, err := keyFor(field)
		if err != nil {
			return 0, err
		}
		n, err := i.rdb.ZCount(ctx, key, "("+strconv.FormatInt(value, 10), "+inf").Result()
		if err == nil {
			return n, nil
		}
		i.log.Warn("rank index count failed, falling back to store", "field", field, "error", err)
	}
	return i.store.CountWhereGreaterThan(ctx, store.CollectionUsers, field, value)
}

// Track copies the stored counters of profileID into the index. Failures
// only mark the index for rebuild.
func (i *Index) Track(ctx context.Context, profileID string) {
	if !i.enabled() {
		return
	}
	p, err := i.store.GetProfile(ctx, profileID)
	if err != nil {
		i.log.Warn("rank index track: profile read failed", "profileID", profileID, "error", err)
		i.status.RequestRebuild()
		return
	}
	i.Set(ctx, p)
}

// Set writes both scores of p.
func (i *Index) Set(ctx context.Context, p *store.Profile) {
	if !i.enabled() {
		return
	}
	_, err := i.rdb.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZAdd(ctx, TotalKey, redis.Z{Score: float64(p.TotalLikes), Member: p.ID})
		pipe.ZAdd(ctx, PeriodicKey, redis.Z{Score: float64(p.PeriodicLikes), Member: p.ID})
		return nil
	})
	if err != nil {
		i.log.Warn("rank index update failed", "profileID", p.ID, "error", err)
		i.status.RequestRebuild()
	}
}

// ResetPeriodic zeroes one periodic score after a lazy reset.
func (i *Index) ResetPeriodic(ctx context.Context, profileID string) {
	if !i.enabled() {
		return
	}
	if err := i.rdb.ZAdd(ctx, PeriodicKey, redis.Z{Score: 0, Member: profileID}).Err(); err != nil {
		i.log.Warn("rank index reset failed", "profileID", profileID, "error", err)
		i.status.RequestRebuild()
	}
}

// Rebuild reloads both sorted sets from the store into scratch keys owned by
// this run and swaps them in with one MULTI, so concurrent rebuilds never
// share partial sets. Counters written while the rebuild runs are
// picked up by the next Track of that profile. On failure the index stays
// marked for rebuild and readers keep using the store.
func (i *Index) Rebuild(ctx context.Context) error {
	if !i.enabled() {
		return nil
	}
	if err := i.rebuild(ctx); err != nil {
		i.status.RequestRebuild()
		return err
	}
	return nil
}

func (i *Index) rebuild(ctx context.Context) error {
	run := uuid.NewString()
	tmpTotal, tmpPeriodic := TotalKey+rebuildSuffix+run, PeriodicKey+rebuildSuffix+run
	swapped := false
	defer func() {
		if !swapped {
			_ = i.rdb.Del(context.WithoutCancel(ctx), tmpTotal, tmpPeriodic).Err()
		}
	}()

	count := 0
	for offset := 0; ; offset += rebuildPageSize {
		page, err := i.store.QueryTopNByField(ctx, store.FieldTotalLikes, rebuildPageSize, offset)
		if err != nil {
			return fmt.Errorf("failed to read profiles at offset %d: %w", offset, err)
		}
		if len(page) == 0 {
			break
		}
		totals := make([]redis.Z, 0, len(page))
		periodics := make([]redis.Z, 0, len(page))
		for _, p := range page {
			totals = append(totals, redis.Z{Score: float64(p.TotalLikes), Member: p.ID})
			periodics = append(periodics, redis.Z{Score: float64(p.PeriodicLikes), Member: p.ID})
		}
		_, err = i.rdb.Pipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.ZAdd(ctx, tmpTotal, totals...)
			pipe.ZAdd(ctx, tmpPeriodic, periodics...)
			return nil
		})
		if err != nil {
			return fmt.Errorf("failed to load rank index page: %w", err)
		}
		count += len(page)
		if len(page) < rebuildPageSize {
			break
		}
	}

	_, err := i.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, TotalKey, PeriodicKey)
		if count > 0 {
			pipe.Rename(ctx, tmpTotal, TotalKey)
			pipe.Rename(ctx, tmpPeriodic, PeriodicKey)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to swap rank index: %w", err)
	}
	swapped = true
	i.log.Info("rank index rebuilt", "profiles", count)
	return nil
}
