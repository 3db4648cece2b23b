// Package like applies one like unit across the liker's liked set, the
// artifact's count and the owner's counters.
package like

import (
	"context"
	"errors"
	"fmt"

	"github.com/SlpAus/imagynex-season-backend/internal/platform/logger"
	"github.com/SlpAus/imagynex-season-backend/internal/store"
)

// ErrPartialToggle means the liker's membership flipped but a later counter
// write failed. The counters are off by one unit until the next toggle.
var ErrPartialToggle = errors.New("like toggle partially applied")

// Step names the write that failed.
type Step string

const (
	StepArtifact Step = "artifact"
	StepOwner    Step = "owner"
)

// PartialError matches both ErrPartialToggle and its cause with errors.Is.
type PartialError struct {
	Step  Step
	Liked bool
	Err   error
}

func (e *PartialError) Error() string {
	return fmt.Sprintf("%v: %s step failed: %v", ErrPartialToggle, e.Step, e.Err)
}

func (e *PartialError) Unwrap() []error { return []error{ErrPartialToggle, e.Err} }

// ArtifactReader loads the artifact being liked.
type ArtifactReader interface {
	GetArtifact(ctx context.Context, id string) (*store.Artifact, error)
}

// RankIndex is refreshed for the owner after their counters move.
type RankIndex interface {
	Track(ctx context.Context, profileID string)
}

type nopIndex struct{}

func (nopIndex) Track(context.Context, string) {}

// Result is the state after a toggle.
type Result struct {
	Liked      bool  `json:"liked"`
	LikesCount int64 `json:"likesCount"`
}

type Toggler struct {
	store     store.CounterStore
	artifacts ArtifactReader
	index     RankIndex
	log       *logger.Logger
}

func NewToggler(st store.CounterStore, artifacts ArtifactReader, index RankIndex, log *logger.Logger) *Toggler {
	if index == nil {
		index = nopIndex{}
	}
	return &Toggler{store: st, artifacts: artifacts, index: index, log: log}
}

// Toggle likes or unlikes artifactID for likerID. Whether this is a like or
// an unlike is decided by the stored liked set, never by the caller.
//
// A self-like is one write to the profile (membership and counters
// together) plus the artifact increment. Otherwise the liker, the artifact
// and the owner are written in that order, each atomic on its own.
func (t *Toggler) Toggle(ctx context.Context, likerID, artifactID string) (Result, error) {
	a, err := t.artifacts.GetArtifact(ctx, artifactID)
	if err != nil {
		return Result{}, err
	}
	self := likerID == a.CreatorID

	liked, err := t.toggleMembership(ctx, likerID, a.ID, self)
	if err != nil {
		return Result{}, err
	}
	delta := int64(1)
	if !liked {
		delta = -1
	}

	if err := t.store.IncrementCounter(ctx, store.CollectionGallery, a.ID, store.FieldLikesCount, delta); err != nil {
		return t.partial(StepArtifact, liked, likerID, a, err)
	}

	if !self {
		if err := t.bumpOwner(ctx, a.CreatorID, delta); err != nil {
			return t.partial(StepOwner, liked, likerID, a, err)
		}
	}

	t.index.Track(ctx, a.CreatorID)
	return Result{Liked: liked, LikesCount: a.LikesCount + delta}, nil
}

// toggleMembership provisions the liker on first use.
func (t *Toggler) toggleMembership(ctx context.Context, likerID, artifactID string, self bool) (bool, error) {
	liked, err := t.store.ToggleLikedArtifact(ctx, likerID, artifactID, self)
	if !errors.Is(err, store.ErrNotFound) {
		return liked, err
	}
	if err := t.store.UpsertProfile(ctx, likerID, store.ProfileFields{}); err != nil {
		return false, err
	}
	return t.store.ToggleLikedArtifact(ctx, likerID, artifactID, self)
}

func (t *Toggler) bumpOwner(ctx context.Context, ownerID string, delta int64) error {
	err := t.store.IncrementCounter(ctx, store.CollectionUsers, ownerID, store.FieldTotalLikes, delta)
	if errors.Is(err, store.ErrNotFound) {
		if err := t.store.UpsertProfile(ctx, ownerID, store.ProfileFields{}); err != nil {
			return err
		}
		err = t.store.IncrementCounter(ctx, store.CollectionUsers, ownerID, store.FieldTotalLikes, delta)
	}
	if err != nil {
		return err
	}
	return t.store.IncrementCounter(ctx, store.CollectionUsers, ownerID, store.FieldPeriodicLikes, delta)
}

func (t *Toggler) partial(step Step, liked bool, likerID string, a *store.Artifact, err error) (Result, error) {
	t.log.Error("like toggle left counters inconsistent",
		"step", step, "likerID", likerID, "artifactID", a.ID, "ownerID", a.CreatorID, "liked", liked, "error", err)
	return Result{Liked: liked}, &PartialError{Step: step, Liked: liked, Err: err}
}
