package store

import (
	"slices"
	"time"

	"gorm.io/datatypes"
)

// ProfileSchemaVersion is written on every new profile. Rows created by older
// iterations read with the zero value and get the struct defaults below.
const ProfileSchemaVersion = 2

// Profile is one end user, keyed by the anonymous client ID.
type Profile struct {
	ID            string `gorm:"primaryKey;type:varchar(64)" json:"id"`
	SchemaVersion int    `gorm:"not null;default:1" json:"-"`
	DisplayName   string `gorm:"type:varchar(128)" json:"displayName"`

	// TotalLikes is cumulative; only unlikes decrement it.
	TotalLikes int64 `gorm:"not null;default:0;index" json:"totalLikes"`
	// PeriodicLikes is zeroed at every season boundary.
	PeriodicLikes  int64 `gorm:"not null;default:0;index" json:"periodicLikes"`
	TotalCreations int64 `gorm:"not null;default:0" json:"totalCreations"`

	// LikedArtifactIDs holds the artifacts this user currently likes. Each
	// member accounts for exactly one like unit on the artifact and its owner.
	LikedArtifactIDs datatypes.JSONSlice[string] `json:"likedArtifactIds"`

	LastResetAt    time.Time `json:"lastResetAt"`
	IsSeasonWinner bool      `gorm:"not null;default:false" json:"isSeasonWinner"`
	IsSecondPlace  bool      `gorm:"not null;default:false" json:"isSecondPlace"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (Profile) TableName() string { return string(CollectionUsers) }

// Likes reports whether artifactID is in the liked set.
func (p *Profile) Likes(artifactID string) bool {
	return slices.Contains(p.LikedArtifactIDs, artifactID)
}

// Artifact is one generated image.
type Artifact struct {
	ID          string `gorm:"primaryKey;type:varchar(64)" json:"id"`
	ImageURL    string `gorm:"not null" json:"imageUrl"`
	Prompt      string `json:"prompt"`
	Style       string `gorm:"type:varchar(64);index" json:"style,omitempty"`
	CreatorID   string `gorm:"type:varchar(64);not null;index" json:"creatorId"`
	CreatorName string `gorm:"type:varchar(128)" json:"creatorName"`
	LikesCount  int64  `gorm:"not null;default:0;index" json:"likesCount"`
	// IsPrivate defaults to false; absent means public.
	IsPrivate bool      `gorm:"not null;default:false" json:"isPrivate"`
	CreatedAt time.Time `gorm:"index" json:"createdAt"`
}

func (Artifact) TableName() string { return string(CollectionGallery) }

// ProfileFields is a partial profile for merge writes. Nil fields are left
// untouched.
type ProfileFields struct {
	DisplayName    *string
	PeriodicLikes  *int64
	LastResetAt    *time.Time
	IsSeasonWinner *bool
	IsSecondPlace  *bool
}

// IsEmpty reports whether no field is set.
func (f ProfileFields) IsEmpty() bool {
	return f.DisplayName == nil && f.PeriodicLikes == nil && f.LastResetAt == nil &&
		f.IsSeasonWinner == nil && f.IsSecondPlace == nil
}

func (f ProfileFields) columns() map[string]interface{} {
	cols := make(map[string]interface{})
	if f.DisplayName != nil {
		cols["display_name"] = *f.DisplayName
	}
	if f.PeriodicLikes != nil {
		cols["periodic_likes"] = *f.PeriodicLikes
	}
	if f.LastResetAt != nil {
		cols["last_reset_at"] = *f.LastResetAt
	}
	if f.IsSeasonWinner != nil {
		cols["is_season_winner"] = *f.IsSeasonWinner
	}
	if f.IsSecondPlace != nil {
		cols["is_second_place"] = *f.IsSecondPlace
	}
	return cols
}

func (f ProfileFields) applyTo(p *Profile) {
	if f.DisplayName != nil {
		p.DisplayName = *f.DisplayName
	}
	if f.PeriodicLikes != nil {
		p.PeriodicLikes = *f.PeriodicLikes
	}
	if f.LastResetAt != nil {
		p.LastResetAt = *f.LastResetAt
	}
	if f.IsSeasonWinner != nil {
		p.IsSeasonWinner = *f.IsSeasonWinner
	}
	if f.IsSecondPlace != nil {
		p.IsSecondPlace = *f.IsSecondPlace
	}
}

// ProfileUpdate is one entry of a BatchUpdate.
type ProfileUpdate struct {
	ID     string
	Fields ProfileFields
}

// DefaultDisplayName is the name given to auto-provisioned profiles.
func DefaultDisplayName(id string) string {
	suffix := id
	if len(suffix) > 4 {
		suffix = suffix[len(suffix)-4:]
	}
	return "Creator_" + suffix
}

// NewProfile returns a fresh profile with every counter at zero and the
// season clock started at now.
func NewProfile(id string, now time.Time) Profile {
	return Profile{
		ID:               id,
		SchemaVersion:    ProfileSchemaVersion,
		DisplayName:      DefaultDisplayName(id),
		LikedArtifactIDs: datatypes.JSONSlice[string]{},
		LastResetAt:      now,
	}
}
