// Package gallery stores generated images and serves them, applying
// privacy and the winner watermark perk.
package gallery

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/SlpAus/imagynex-season-backend/internal/platform/logger"
	"github.com/SlpAus/imagynex-season-backend/internal/season"
	"github.com/SlpAus/imagynex-season-backend/internal/store"
	"github.com/google/uuid"
)

var (
	// ErrPrivate is returned to anyone but the owner of a private artifact.
	ErrPrivate = errors.New("artifact is private")
	// ErrForbidden is returned when a non-owner tries to modify an artifact.
	ErrForbidden = errors.New("only the creator can modify this artifact")
	// ErrInvalid wraps input validation failures.
	ErrInvalid = errors.New("invalid artifact")
	// ErrUpstream wraps failures fetching the stored image.
	ErrUpstream = errors.New("image host unavailable")
)

const (
	RelatedCount    = 4
	MaxPromptLength = 2000
)

// Profiles provisions the acting user.
type Profiles interface {
	Ensure(ctx context.Context, id string) (*store.Profile, error)
}

type Service struct {
	store     store.ArtifactStore
	profiles  Profiles
	policy    season.Policy
	watermark *Watermarker
	log       *logger.Logger
	now       func() time.Time
}

func NewService(st store.ArtifactStore, profiles Profiles, policy season.Policy, watermark *Watermarker, log *logger.Logger) *Service {
	return &Service{
		store:     st,
		profiles:  profiles,
		policy:    policy,
		watermark: watermark,
		log:       log,
		now:       time.Now,
	}
}

// CreateInput is a finished generation reported by the client.
type CreateInput struct {
	ImageURL  string `json:"imageUrl" binding:"required"`
	Prompt    string `json:"prompt" binding:"required"`
	Style     string `json:"style"`
	IsPrivate bool   `json:"isPrivate"`
}

func (in CreateInput) validate(w *Watermarker) error {
	if err := w.CheckURL(in.ImageURL); err != nil {
		return err
	}
	prompt := strings.TrimSpace(in.Prompt)
	if prompt == "" || utf8.RuneCountInString(prompt) > MaxPromptLength {
		return fmt.Errorf("%w: prompt must be 1-%d characters", ErrInvalid, MaxPromptLength)
	}
	return nil
}

// Create records an artifact for creatorID and bumps their creation count.
func (s *Service) Create(ctx context.Context, creatorID string, in CreateInput) (*store.Artifact, error) {
	if err := in.validate(s.watermark); err != nil {
		return nil, err
	}
	creator, err := s.profiles.Ensure(ctx, creatorID)
	if err != nil {
		return nil, err
	}
	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate artifact id: %w", err)
	}

	a := &store.Artifact{
		ID:          id.String(),
		ImageURL:    in.ImageURL,
		Prompt:      strings.TrimSpace(in.Prompt),
		Style:       strings.TrimSpace(in.Style),
		CreatorID:   creator.ID,
		CreatorName: creator.DisplayName,
		IsPrivate:   in.IsPrivate,
		CreatedAt:   s.now(),
	}
	if err := s.store.CreateArtifact(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// List returns one page. Private artifacts are only included for their
// creator.
func (s *Service) List(ctx context.Context, viewerID string, q store.ArtifactQuery) ([]store.Artifact, error) {
	q.ViewerID = viewerID
	if q.Limit <= 0 || q.Limit > store.DefaultPageSize {
		q.Limit = store.DefaultPageSize
	}
	return s.store.ListArtifacts(ctx, q)
}

// Detail is one artifact with a few public neighbours.
type Detail struct {
	Artifact *store.Artifact  `json:"artifact"`
	Related  []store.Artifact `json:"related"`
	IsOwner  bool             `json:"isOwner"`
}

func (s *Service) visible(ctx context.Context, viewerID, id string) (*store.Artifact, error) {
	a, err := s.store.GetArtifact(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.IsPrivate && a.CreatorID != viewerID {
		return nil, ErrPrivate
	}
	return a, nil
}

func (s *Service) Get(ctx context.Context, viewerID, id string) (*Detail, error) {
	a, err := s.visible(ctx, viewerID, id)
	if err != nil {
		return nil, err
	}
	related, err := s.store.ListArtifacts(ctx, store.ArtifactQuery{
		Sort:      store.SortLatest,
		ExcludeID: a.ID,
		Limit:     RelatedCount,
	})
	if err != nil {
		s.log.Warn("related artifacts query failed", "artifactID", a.ID, "error", err)
		related = []store.Artifact{}
	}
	return &Detail{Artifact: a, Related: related, IsOwner: a.CreatorID == viewerID}, nil
}

func (s *Service) owned(ctx context.Context, viewerID, id string) (*store.Artifact, error) {
	a, err := s.store.GetArtifact(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.CreatorID != viewerID {
		return nil, ErrForbidden
	}
	return a, nil
}

func (s *Service) SetPrivacy(ctx context.Context, viewerID, id string, private bool) error {
	if _, err := s.owned(ctx, viewerID, id); err != nil {
		return err
	}
	return s.store.SetArtifactPrivacy(ctx, id, private)
}

func (s *Service) Delete(ctx context.Context, viewerID, id string) error {
	if _, err := s.owned(ctx, viewerID, id); err != nil {
		return err
	}
	return s.store.DeleteArtifact(ctx, id)
}

// Download renders the artifact for viewerID. The watermark is skipped only
// for the creator's own artifacts while their winner perks are active.
func (s *Service) Download(ctx context.Context, viewerID, id string) ([]byte, bool, error) {
	a, err := s.visible(ctx, viewerID, id)
	if err != nil {
		return nil, false, err
	}
	viewer, err := s.profiles.Ensure(ctx, viewerID)
	if err != nil {
		return nil, false, err
	}
	plain := SuppressWatermark(s.policy, s.now(), viewer, a)

	img, err := s.watermark.Fetch(ctx, a.ImageURL)
	if err != nil {
		return nil, plain, err
	}
	out, err := s.watermark.Render(img, plain)
	if err != nil {
		return nil, plain, err
	}
	return out, plain, nil
}
