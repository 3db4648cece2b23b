package leaderboard

import (
	"context"

	"github.com/SlpAus/imagynex-season-backend/internal/rank"
	"github.com/SlpAus/imagynex-season-backend/internal/store"
)

const (
	DefaultLimit = 10
	MaxLimit     = 100
)

// Entry is one leaderboard row. Position follows store order, so equal
// counters are listed by profile ID.
type Entry struct {
	Position       rank.Rank `json:"position"`
	ID             string    `json:"id"`
	DisplayName    string    `json:"displayName"`
	TotalLikes     int64     `json:"totalLikes"`
	PeriodicLikes  int64     `json:"periodicLikes"`
	TotalCreations int64     `json:"totalCreations"`
	IsSeasonWinner bool      `json:"isSeasonWinner"`
	IsSecondPlace  bool      `json:"isSecondPlace"`
}

// Board serves paged top-N reads.
type Board struct {
	store store.CounterStore
}

func NewBoard(st store.CounterStore) *Board {
	return &Board{store: st}
}

// Top returns one page ordered by field descending.
func (b *Board) Top(ctx context.Context, field store.Field, limit, offset int) ([]Entry, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	if offset < 0 {
		offset = 0
	}

	profiles, err := b.store.QueryTopNByField(ctx, field, limit, offset)
	if err != nil {
		return nil, err
	}
	out := make([]Entry, 0, len(profiles))
	for i, p := range profiles {
		out = append(out, Entry{
			Position:       rank.Of(int64(offset + i + 1)),
			ID:             p.ID,
			DisplayName:    p.DisplayName,
			TotalLikes:     p.TotalLikes,
			PeriodicLikes:  p.PeriodicLikes,
			TotalCreations: p.TotalCreations,
			IsSeasonWinner: p.IsSeasonWinner,
			IsSecondPlace:  p.IsSecondPlace,
		})
	}
	return out, nil
}
