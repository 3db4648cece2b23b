// Package profile owns the current user's view: provisioning, the lazy
// season reset on load, ranks and renames.
package profile

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/SlpAus/imagynex-season-backend/internal/platform/logger"
	"github.com/SlpAus/imagynex-season-backend/internal/rank"
	"github.com/SlpAus/imagynex-season-backend/internal/reset"
	"github.com/SlpAus/imagynex-season-backend/internal/season"
	"github.com/SlpAus/imagynex-season-backend/internal/store"
)

const MaxDisplayNameLength = 40

var ErrInvalidName = errors.New("display name must be 1-40 characters")

// Store is what the profile service needs from the store.
type Store interface {
	GetProfile(ctx context.Context, id string) (*store.Profile, error)
	UpsertProfile(ctx context.Context, id string, fields store.ProfileFields) error
	RenameProfile(ctx context.Context, id, name string) error
}

// Tracker registers new profiles with the rank index.
type Tracker interface {
	Track(ctx context.Context, profileID string)
}

// View is the own-profile page.
type View struct {
	Profile   *store.Profile   `json:"profile"`
	Ranks     rank.Ranks       `json:"ranks"`
	Countdown season.Countdown `json:"countdown"`
	Place     string           `json:"place"`
	// PerksActive is true while the frozen place still suppresses the
	// watermark on the user's own downloads.
	PerksActive bool `json:"perksActive"`
}

type Service struct {
	store   Store
	resets  *reset.Executor
	ranks   *rank.Calculator
	tracker Tracker
	log     *logger.Logger
	now     func() time.Time
}

func NewService(st Store, resets *reset.Executor, ranks *rank.Calculator, tracker Tracker, log *logger.Logger) *Service {
	return &Service{store: st, resets: resets, ranks: ranks, tracker: tracker, log: log, now: time.Now}
}

// Ensure returns the profile, creating it with defaults on first sight.
func (s *Service) Ensure(ctx context.Context, id string) (*store.Profile, error) {
	p, err := s.store.GetProfile(ctx, id)
	if !errors.Is(err, store.ErrNotFound) {
		return p, err
	}
	if err := s.store.UpsertProfile(ctx, id, store.ProfileFields{}); err != nil {
		return nil, fmt.Errorf("failed to provision profile %s: %w", id, err)
	}
	if s.tracker != nil {
		s.tracker.Track(ctx, id)
	}
	s.log.Info("provisioned profile", "profileID", id)
	return s.store.GetProfile(ctx, id)
}

// Load provisions the profile, applies a due lazy reset and computes ranks.
// A failed reset or rank query degrades the view instead of failing it.
func (s *Service) Load(ctx context.Context, id string) (*View, error) {
	p, err := s.Ensure(ctx, id)
	if err != nil {
		return nil, err
	}

	now := s.now()
	policy := s.resets.Policy()
	if _, err := s.resets.LazyReset(ctx, p, now); err != nil {
		s.log.Warn("lazy reset failed, serving stale season counter", "profileID", id, "error", err)
	}

	ranks, err := s.ranks.Ranks(ctx, p)
	if err != nil {
		s.log.Warn("rank query failed", "profileID", id, "error", err)
	}

	place := season.PlaceOf(p.IsSeasonWinner, p.IsSecondPlace)
	return &View{
		Profile:     p,
		Ranks:       ranks,
		Countdown:   season.NewCountdown(policy, now, p.LastResetAt),
		Place:       place.String(),
		PerksActive: place != season.PlaceNone && policy.WinnerPrivilegeActive(now, place),
	}, nil
}

// Rename changes the display name and the creator name on every artifact
// of the user.
func (s *Service) Rename(ctx context.Context, id, name string) (*store.Profile, error) {
	name = strings.TrimSpace(name)
	if name == "" || utf8.RuneCountInString(name) > MaxDisplayNameLength {
		return nil, ErrInvalidName
	}
	if _, err := s.Ensure(ctx, id); err != nil {
		return nil, err
	}
	if err := s.store.RenameProfile(ctx, id, name); err != nil {
		return nil, err
	}
	return s.store.GetProfile(ctx, id)
}
