// Package rank turns a counter value into a 1-based position.
package rank

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/SlpAus/imagynex-season-backend/internal/store"
	"golang.org/x/sync/errgroup"
)

// Rank is a 1-based position, or Unknown when it could not be computed.
// Unknown is never rendered as a number.
type Rank struct {
	Known bool
	Value int64
}

// Unknown is the pending/failed rank.
var Unknown = Rank{}

func Of(v int64) Rank { return Rank{Known: true, Value: v} }

func (r Rank) String() string {
	if !r.Known {
		return "..."
	}
	return strconv.FormatInt(r.Value, 10)
}

func (r Rank) MarshalJSON() ([]byte, error) {
	if !r.Known {
		return []byte("null"), nil
	}
	return json.Marshal(r.Value)
}

// Counter answers "how many profiles have field > value".
type Counter interface {
	CountGreaterThan(ctx context.Context, field store.Field, value int64) (int64, error)
}

// StoreCounter counts against the store directly.
type StoreCounter struct {
	Store store.CounterStore
}

func (c StoreCounter) CountGreaterThan(ctx context.Context, field store.Field, value int64) (int64, error) {
	return c.Store.CountWhereGreaterThan(ctx, store.CollectionUsers, field, value)
}

// Calculator computes ranks. Equal values share a rank and the sequence
// may skip numbers.
type Calculator struct {
	counter Counter
}

func NewCalculator(counter Counter) *Calculator {
	return &Calculator{counter: counter}
}

// Rank is the count of strictly greater values plus one.
func (c *Calculator) Rank(ctx context.Context, field store.Field, value int64) (Rank, error) {
	n, err := c.counter.CountGreaterThan(ctx, field, value)
	if err != nil {
		return Unknown, err
	}
	return Of(n + 1), nil
}

// Ranks holds both positions of one profile.
type Ranks struct {
	Season Rank `json:"season"`
	Global Rank `json:"global"`
}

// Ranks queries both metrics concurrently. Each rank degrades to Unknown on
// its own; the first error is returned alongside.
func (c *Calculator) Ranks(ctx context.Context, p *store.Profile) (Ranks, error) {
	var out Ranks
	var g errgroup.Group
	g.Go(func() error {
		r, err := c.Rank(ctx, store.FieldPeriodicLikes, p.PeriodicLikes)
		out.Season = r
		return err
	})
	g.Go(func() error {
		r, err := c.Rank(ctx, store.FieldTotalLikes, p.TotalLikes)
		out.Global = r
		return err
	})
	err := g.Wait()
	return out, err
}
