package like

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/SlpAus/imagynex-season-backend/internal/platform/logger"
	"github.com/SlpAus/imagynex-season-backend/internal/store"
	"github.com/SlpAus/imagynex-season-backend/internal/store/storetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) (*store.GormStore, *Toggler) {
	t.Helper()
	st := storetest.New(t)
	storetest.SeedProfile(t, st, store.Profile{ID: "creator", TotalLikes: 4, PeriodicLikes: 2})
	storetest.SeedProfile(t, st, store.Profile{ID: "liker"})
	storetest.SeedArtifact(t, st, store.Artifact{ID: "art", CreatorID: "creator", ImageURL: "x", LikesCount: 4})
	return st, NewToggler(st, st, nil, logger.Nop())
}

type snapshot struct {
	likes         int64
	ownerTotal    int64
	ownerPeriodic int64
	likerHas      bool
}

func take(t *testing.T, st *store.GormStore, likerID string) snapshot {
	t.Helper()
	a, err := st.GetArtifact(t.Context(), "art")
	require.NoError(t, err)
	owner := storetest.MustProfile(t, st, "creator")
	liker := storetest.MustProfile(t, st, likerID)
	return snapshot{
		likes:         a.LikesCount,
		ownerTotal:    owner.TotalLikes,
		ownerPeriodic: owner.PeriodicLikes,
		likerHas:      liker.Likes("art"),
	}
}

func TestLikeUpdatesAllCounters(t *testing.T) {
	st, toggler := setup(t)

	res, err := toggler.Toggle(t.Context(), "liker", "art")
	require.NoError(t, err)
	assert.True(t, res.Liked)
	assert.EqualValues(t, 5, res.LikesCount)

	assert.Equal(t, snapshot{likes: 5, ownerTotal: 5, ownerPeriodic: 3, likerHas: true}, take(t, st, "liker"))
}

func TestToggleTwiceRestoresCounters(t *testing.T) {
	for _, likerID := range []string{"liker", "creator"} {
		t.Run(likerID, func(t *testing.T) {
			st, toggler := setup(t)
			before := take(t, st, likerID)

			_, err := toggler.Toggle(t.Context(), likerID, "art")
			require.NoError(t, err)
			res, err := toggler.Toggle(t.Context(), likerID, "art")
			require.NoError(t, err)
			assert.False(t, res.Liked)

			assert.Equal(t, before, take(t, st, likerID))
		})
	}
}

// countingStore counts every write addressed to one profile document.
type countingStore struct {
	store.CounterStore
	target string
	mu     sync.Mutex
	writes int
}

func (c *countingStore) hit(id string) {
	if id == c.target {
		c.mu.Lock()
		c.writes++
		c.mu.Unlock()
	}
}

func (c *countingStore) UpsertProfile(ctx context.Context, id string, f store.ProfileFields) error {
	c.hit(id)
	return c.CounterStore.UpsertProfile(ctx, id, f)
}

func (c *countingStore) IncrementCounter(ctx context.Context, col store.Collection, id string, f store.Field, d int64) error {
	if col == store.CollectionUsers {
		c.hit(id)
	}
	return c.CounterStore.IncrementCounter(ctx, col, id, f, d)
}

func (c *countingStore) ToggleLikedArtifact(ctx context.Context, profileID, artifactID string, coalesce bool) (bool, error) {
	c.hit(profileID)
	return c.CounterStore.ToggleLikedArtifact(ctx, profileID, artifactID, coalesce)
}

func (c *countingStore) BatchUpdate(ctx context.Context, updates []store.ProfileUpdate) error {
	for _, u := range updates {
		c.hit(u.ID)
	}
	return c.CounterStore.BatchUpdate(ctx, updates)
}

func TestSelfLikeIsOneProfileWrite(t *testing.T) {
	st, _ := setup(t)
	counting := &countingStore{CounterStore: st, target: "creator"}
	toggler := NewToggler(counting, st, nil, logger.Nop())

	_, err := toggler.Toggle(t.Context(), "creator", "art")
	require.NoError(t, err)
	assert.Equal(t, 1, counting.writes)
	owner := storetest.MustProfile(t, st, "creator")
	assert.EqualValues(t, 5, owner.TotalLikes)
	assert.EqualValues(t, 3, owner.PeriodicLikes)

	_, err = toggler.Toggle(t.Context(), "creator", "art")
	require.NoError(t, err)
	assert.Equal(t, 2, counting.writes)
	assert.EqualValues(t, 4, storetest.MustProfile(t, st, "creator").TotalLikes)
}

type failingArtifactIncrement struct {
	store.CounterStore
}

func (f failingArtifactIncrement) IncrementCounter(ctx context.Context, col store.Collection, id string, fld store.Field, d int64) error {
	if col == store.CollectionGallery {
		return fmt.Errorf("%w: timeout", store.ErrTransient)
	}
	return f.CounterStore.IncrementCounter(ctx, col, id, fld, d)
}

func TestPartialToggleIsSurfaced(t *testing.T) {
	st, _ := setup(t)
	toggler := NewToggler(failingArtifactIncrement{CounterStore: st}, st, nil, logger.Nop())

	res, err := toggler.Toggle(t.Context(), "liker", "art")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrPartialToggle))
	assert.True(t, store.IsTransient(err))
	var partial *PartialError
	require.True(t, errors.As(err, &partial))
	assert.Equal(t, StepArtifact, partial.Step)
	assert.True(t, res.Liked)

	// membership is the ground truth: the retry unlikes
	res, err = NewToggler(st, st, nil, logger.Nop()).Toggle(t.Context(), "liker", "art")
	require.NoError(t, err)
	assert.False(t, res.Liked)
}

func TestToggleProvisionsUnknownLiker(t *testing.T) {
	st, toggler := setup(t)

	res, err := toggler.Toggle(t.Context(), "newcomer", "art")
	require.NoError(t, err)
	assert.True(t, res.Liked)
	assert.True(t, storetest.MustProfile(t, st, "newcomer").Likes("art"))
}

func TestToggleUnknownArtifact(t *testing.T) {
	_, toggler := setup(t)
	_, err := toggler.Toggle(t.Context(), "liker", "missing")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestConcurrentLikersAllCount(t *testing.T) {
	st, toggler := setup(t)
	const n = 12
	for i := 0; i < n; i++ {
		storetest.SeedProfile(t, st, store.Profile{ID: fmt.Sprintf("fan%02d", i)})
	}

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := toggler.Toggle(t.Context(), fmt.Sprintf("fan%02d", i), "art")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	a, err := st.GetArtifact(t.Context(), "art")
	require.NoError(t, err)
	assert.EqualValues(t, 4+n, a.LikesCount)
	assert.EqualValues(t, 4+n, storetest.MustProfile(t, st, "creator").TotalLikes)
}
