package reset

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/SlpAus/imagynex-season-backend/internal/platform/metadata"
	"github.com/SlpAus/imagynex-season-backend/internal/season"
	"github.com/SlpAus/imagynex-season-backend/internal/store"
)

// winnerSlots is the size of the pre-reset snapshot.
const winnerSlots = 2

// PartialBatchError reports a bulk reset where some batches committed and
// others did not. Committed batches are not rolled back; profiles in failed
// batches are zeroed by their next lazy reset but lose any winner flag.
type PartialBatchError struct {
	Committed int
	Failed    int
	Err       error
}

func (e *PartialBatchError) Error() string {
	return fmt.Sprintf("bulk reset partially applied: %d profiles committed, %d failed: %v", e.Committed, e.Failed, e.Err)
}

func (e *PartialBatchError) Unwrap() error { return e.Err }

// Report summarises one bulk reset.
type Report struct {
	At        time.Time
	SeasonKey string
	Profiles  int
	Batches   int
	Committed int
	Failed    int
	Winner    string
	RunnerUp  string
}

// BulkReset snapshots the top of the periodic leaderboard, then zeroes every
// profile and freezes the winner flags in the same per-profile update.
// Places are only awarded for a pre-reset periodic count above zero. Ties
// follow store order (periodic desc, id asc).
func (e *Executor) BulkReset(ctx context.Context, now time.Time) (Report, error) {
	report := Report{At: now, SeasonKey: e.policy.SeasonKey(now)}

	top, err := e.store.QueryTopNByField(ctx, store.FieldPeriodicLikes, winnerSlots, 0)
	if err != nil {
		return report, fmt.Errorf("failed to snapshot leaderboard: %w", err)
	}
	places := make(map[string]season.Place, winnerSlots)
	for i, p := range top {
		if p.PeriodicLikes <= 0 {
			continue
		}
		place := season.PlaceFirst
		if i == 1 {
			place = season.PlaceSecond
		}
		places[p.ID] = place
		if place == season.PlaceFirst {
			report.Winner = p.ID
		} else {
			report.RunnerUp = p.ID
		}
	}

	var batchErrs []error
	after := ""
	for {
		ids, err := e.store.ListProfileIDs(ctx, after, e.batchSize)
		if err != nil {
			batchErrs = append(batchErrs, fmt.Errorf("failed to list profiles after %q: %w", after, err))
			break
		}
		if len(ids) == 0 {
			break
		}
		after = ids[len(ids)-1]
		report.Profiles += len(ids)
		report.Batches++

		updates := make([]store.ProfileUpdate, 0, len(ids))
		for _, id := range ids {
			updates = append(updates, resetUpdate(id, now, places[id]))
		}
		if err := e.store.BatchUpdate(ctx, updates); err != nil {
			report.Failed += len(ids)
			batchErrs = append(batchErrs, fmt.Errorf("batch %d: %w", report.Batches, err))
			e.log.Error("bulk reset batch failed",
				"batch", report.Batches, "size", len(ids), "firstID", ids[0], "error", err)
			if ctx.Err() != nil {
				break
			}
			continue
		}
		report.Committed += len(ids)

		if len(ids) < e.batchSize {
			break
		}
	}

	if report.Committed > 0 {
		if err := e.index.Rebuild(ctx); err != nil {
			e.log.Warn("rank index rebuild after bulk reset failed", "error", err)
		}
	}

	if len(batchErrs) > 0 {
		return report, &PartialBatchError{
			Committed: report.Committed,
			Failed:    report.Failed,
			Err:       errors.Join(batchErrs...),
		}
	}

	if e.db != nil {
		cp := metadata.BulkReset{At: now, SeasonKey: report.SeasonKey}
		if err := metadata.SetLastBulkReset(ctx, e.db, cp); err != nil {
			return report, fmt.Errorf("bulk reset committed but checkpoint failed: %w", err)
		}
	}

	e.log.Info("bulk season reset complete",
		"season", report.SeasonKey,
		"profiles", report.Profiles,
		"batches", report.Batches,
		"winner", report.Winner,
		"runnerUp", report.RunnerUp)
	return report, nil
}

func resetUpdate(id string, now time.Time, place season.Place) store.ProfileUpdate {
	zero := int64(0)
	at := now
	winner := place == season.PlaceFirst
	second := place == season.PlaceSecond
	return store.ProfileUpdate{
		ID: id,
		Fields: store.ProfileFields{
			PeriodicLikes:  &zero,
			LastResetAt:    &at,
			IsSeasonWinner: &winner,
			IsSecondPlace:  &second,
		},
	}
}

// AlreadyReset reports whether the season starting at now was already
// opened by a committed bulk reset. A second run in the same season would
// snapshot zeroed counters and clear the frozen winner flags.
func (e *Executor) AlreadyReset(ctx context.Context, now time.Time) (bool, error) {
	if e.db == nil {
		return false, nil
	}
	last, err := metadata.GetLastBulkReset(ctx, e.db)
	if err != nil {
		return false, err
	}
	return last.SeasonKey != "" && last.SeasonKey == e.policy.SeasonKey(now), nil
}
