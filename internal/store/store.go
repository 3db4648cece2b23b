package store

import (
	"context"
	"fmt"
	"time"
)

// Collection names a document collection.
type Collection string

const (
	CollectionUsers   Collection = "users"
	CollectionGallery Collection = "gallery"
)

// Field names an integer counter.
type Field string

const (
	FieldTotalLikes     Field = "totalLikes"
	FieldPeriodicLikes  Field = "periodicLikes"
	FieldTotalCreations Field = "totalCreations"
	FieldLikesCount     Field = "likesCount"
)

var counterColumns = map[Collection]map[Field]string{
	CollectionUsers: {
		FieldTotalLikes:     "total_likes",
		FieldPeriodicLikes:  "periodic_likes",
		FieldTotalCreations: "total_creations",
	},
	CollectionGallery: {
		FieldLikesCount: "likes_count",
	},
}

func counterColumn(collection Collection, field Field) (string, error) {
	col, ok := counterColumns[collection][field]
	if !ok {
		return "", fmt.Errorf("%w: %s.%s", ErrUnknownField, collection, field)
	}
	return col, nil
}

// ParseProfileField accepts the API names of the two ranked metrics.
func ParseProfileField(name string) (Field, bool) {
	switch name {
	case "periodic", string(FieldPeriodicLikes), "weeklyLikes", "monthlyLikes":
		return FieldPeriodicLikes, true
	case "total", string(FieldTotalLikes):
		return FieldTotalLikes, true
	}
	return "", false
}

// CounterStore is the document store boundary of the ranking core. Every
// method is atomic at the single-document level only.
type CounterStore interface {
	GetProfile(ctx context.Context, id string) (*Profile, error)

	// UpsertProfile creates the profile with defaults when absent and then
	// merges the non-nil fields.
	UpsertProfile(ctx context.Context, id string, fields ProfileFields) error

	IncrementCounter(ctx context.Context, collection Collection, docID string, field Field, delta int64) error

	// CountWhereGreaterThan is a server-side aggregate count.
	CountWhereGreaterThan(ctx context.Context, collection Collection, field Field, value int64) (int64, error)

	// QueryTopNByField returns profiles ordered by field descending, ties by ID.
	QueryTopNByField(ctx context.Context, field Field, n, offset int) ([]Profile, error)

	// BatchUpdate commits all updates or none.
	BatchUpdate(ctx context.Context, updates []ProfileUpdate) error

	// ToggleLikedArtifact flips artifactID in the profile's liked set based
	// on the stored state and returns the new membership. With
	// coalesceOwnerCounters the same write also moves totalLikes and
	// periodicLikes by the same unit, for a user liking their own artifact.
	ToggleLikedArtifact(ctx context.Context, profileID, artifactID string, coalesceOwnerCounters bool) (bool, error)

	// ListProfileIDs pages through every profile ID in ascending order.
	ListProfileIDs(ctx context.Context, afterID string, limit int) ([]string, error)
}

// ArtifactSort orders gallery listings.
type ArtifactSort string

const (
	SortLatest   ArtifactSort = "latest"
	SortTrending ArtifactSort = "trending"
)

// ArtifactQuery filters gallery listings. Private artifacts are only
// returned to their creator (ViewerID).
type ArtifactQuery struct {
	Sort      ArtifactSort
	CreatorID string
	Style     string
	ViewerID  string
	ExcludeID string
	Limit     int
	Offset    int
}

// ArtifactStore holds generated images.
type ArtifactStore interface {
	// CreateArtifact stores a and bumps the creator's totalCreations.
	CreateArtifact(ctx context.Context, a *Artifact) error
	GetArtifact(ctx context.Context, id string) (*Artifact, error)
	ListArtifacts(ctx context.Context, q ArtifactQuery) ([]Artifact, error)
	SetArtifactPrivacy(ctx context.Context, id string, private bool) error
	// DeleteArtifact removes the artifact and decrements the creator's
	// totalCreations.
	DeleteArtifact(ctx context.Context, id string) error
	// RenameProfile changes the display name and cascades it to the
	// creatorName snapshot of the user's artifacts.
	RenameProfile(ctx context.Context, id, name string) error
}

// Clock is injectable for tests.
type Clock func() time.Time
