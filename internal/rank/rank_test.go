package rank_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/SlpAus/imagynex-season-backend/internal/rank"
	"github.com/SlpAus/imagynex-season-backend/internal/store"
	"github.com/SlpAus/imagynex-season-backend/internal/store/storetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRankCountsStrictlyGreater(t *testing.T) {
	s := storetest.New(t)
	storetest.SeedProfile(t, s, store.Profile{ID: "me", TotalLikes: 10, PeriodicLikes: 3})
	storetest.SeedProfile(t, s, store.Profile{ID: "b", PeriodicLikes: 5})
	storetest.SeedProfile(t, s, store.Profile{ID: "c", PeriodicLikes: 1})

	calc := rank.NewCalculator(rank.StoreCounter{Store: s})
	r, err := calc.Rank(t.Context(), store.FieldPeriodicLikes, 3)
	require.NoError(t, err)
	assert.Equal(t, rank.Of(2), r)

	ranks, err := calc.Ranks(t.Context(), storetest.MustProfile(t, s, "me"))
	require.NoError(t, err)
	assert.Equal(t, rank.Of(2), ranks.Season)
	assert.Equal(t, rank.Of(1), ranks.Global)
}

func TestRankTiesShareAPosition(t *testing.T) {
	s := storetest.New(t)
	for id, v := range map[string]int64{"a": 9, "b": 4, "c": 4, "d": 1} {
		storetest.SeedProfile(t, s, store.Profile{ID: id, TotalLikes: v})
	}
	calc := rank.NewCalculator(rank.StoreCounter{Store: s})

	r, err := calc.Rank(t.Context(), store.FieldTotalLikes, 4)
	require.NoError(t, err)
	assert.Equal(t, rank.Of(2), r)

	r, err = calc.Rank(t.Context(), store.FieldTotalLikes, 1)
	require.NoError(t, err)
	assert.Equal(t, rank.Of(4), r, "positions skip after a tie")
}

func TestRankIsMonotonic(t *testing.T) {
	s := storetest.New(t)
	rng := rand.New(rand.NewPCG(7, 11))
	values := make([]int64, 40)
	for i := range values {
		values[i] = rng.Int64N(20)
		storetest.SeedProfile(t, s, store.Profile{ID: fmt.Sprintf("u%02d", i), PeriodicLikes: values[i]})
	}
	calc := rank.NewCalculator(rank.StoreCounter{Store: s})

	ranks := make([]rank.Rank, len(values))
	for i, v := range values {
		r, err := calc.Rank(t.Context(), store.FieldPeriodicLikes, v)
		require.NoError(t, err)
		ranks[i] = r
	}
	for i := range values {
		for j := range values {
			if values[i] > values[j] {
				assert.LessOrEqual(t, ranks[i].Value, ranks[j].Value)
			}
		}
	}
}

type failingCounter struct {
	failField store.Field
}

func (f failingCounter) CountGreaterThan(_ context.Context, field store.Field, _ int64) (int64, error) {
	if field == f.failField {
		return 0, store.ErrTransient
	}
	return 0, nil
}

func TestRankUnknownOnFailure(t *testing.T) {
	calc := rank.NewCalculator(failingCounter{failField: store.FieldPeriodicLikes})

	ranks, err := calc.Ranks(t.Context(), &store.Profile{ID: "u"})
	require.True(t, errors.Is(err, store.ErrTransient))
	assert.Equal(t, rank.Unknown, ranks.Season)
	assert.Equal(t, rank.Of(1), ranks.Global, "the other metric is unaffected")

	assert.Equal(t, "...", ranks.Season.String())
	raw, err := json.Marshal(ranks)
	require.NoError(t, err)
	assert.JSONEq(t, `{"season":null,"global":1}`, string(raw))
}
