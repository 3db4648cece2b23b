package gallery

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/SlpAus/imagynex-season-backend/internal/platform/logger"
	"github.com/SlpAus/imagynex-season-backend/internal/season"
	"github.com/SlpAus/imagynex-season-backend/internal/store"
	"github.com/SlpAus/imagynex-season-backend/internal/store/storetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type storeProfiles struct {
	st store.CounterStore
}

func (p storeProfiles) Ensure(ctx context.Context, id string) (*store.Profile, error) {
	if err := p.st.UpsertProfile(ctx, id, store.ProfileFields{}); err != nil {
		return nil, err
	}
	return p.st.GetProfile(ctx, id)
}

var blue = color.RGBA{R: 10, G: 40, B: 200, A: 255}

func pngServer(t *testing.T) *httptest.Server {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 96, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 96; x++ {
			img.Set(x, y, blue)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/text" {
			_, _ = w.Write([]byte("definitely not an image"))
			return
		}
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(buf.Bytes())
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newGallery(t *testing.T, now time.Time) (*Service, *store.GormStore) {
	t.Helper()
	st := storetest.New(t)
	wm, err := NewWatermarker("Imagynex.AI", "", 5*time.Second, []string{"127.0.0.1", "img.example"})
	require.NoError(t, err)
	svc := NewService(st, storeProfiles{st: st}, season.Weekly{Loc: time.UTC}, wm, logger.Nop())
	svc.now = func() time.Time { return now }
	return svc, st
}

func changedPixels(t *testing.T, raw []byte) int {
	t.Helper()
	img, err := png.Decode(bytes.NewReader(raw))
	require.NoError(t, err)
	n := 0
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := img.At(x, y).RGBA()
			if uint8(r>>8) != blue.R || uint8(g>>8) != blue.G || uint8(bl>>8) != blue.B {
				n++
			}
		}
	}
	return n
}

func TestCreateListAndOwnership(t *testing.T) {
	svc, st := newGallery(t, time.Now())
	ctx := t.Context()

	pub, err := svc.Create(ctx, "alice", CreateInput{ImageURL: "https://img.example/1.png", Prompt: "a red fox", Style: "anime"})
	require.NoError(t, err)
	priv, err := svc.Create(ctx, "alice", CreateInput{ImageURL: "https://img.example/2.png", Prompt: "secret", IsPrivate: true})
	require.NoError(t, err)
	assert.EqualValues(t, 2, storetest.MustProfile(t, st, "alice").TotalCreations)
	assert.Equal(t, store.DefaultDisplayName("alice"), pub.CreatorName)

	_, err = svc.Create(ctx, "alice", CreateInput{ImageURL: "ftp://nope", Prompt: "x"})
	require.ErrorIs(t, err, ErrInvalid)

	bobView, err := svc.List(ctx, "bob", store.ArtifactQuery{})
	require.NoError(t, err)
	require.Len(t, bobView, 1)
	assert.Equal(t, pub.ID, bobView[0].ID)

	aliceView, err := svc.List(ctx, "alice", store.ArtifactQuery{CreatorID: "alice"})
	require.NoError(t, err)
	assert.Len(t, aliceView, 2)

	_, err = svc.Get(ctx, "bob", priv.ID)
	require.ErrorIs(t, err, ErrPrivate)
	detail, err := svc.Get(ctx, "alice", priv.ID)
	require.NoError(t, err)
	assert.True(t, detail.IsOwner)
	require.Len(t, detail.Related, 1)
	assert.Equal(t, pub.ID, detail.Related[0].ID)

	require.ErrorIs(t, svc.SetPrivacy(ctx, "bob", pub.ID, true), ErrForbidden)
	require.NoError(t, svc.SetPrivacy(ctx, "alice", pub.ID, true))
	_, err = svc.Get(ctx, "bob", pub.ID)
	require.ErrorIs(t, err, ErrPrivate)

	require.ErrorIs(t, svc.Delete(ctx, "bob", pub.ID), ErrForbidden)
	require.NoError(t, svc.Delete(ctx, "alice", pub.ID))
	assert.EqualValues(t, 1, storetest.MustProfile(t, st, "alice").TotalCreations)
}

func TestDownloadAppliesWatermarkGate(t *testing.T) {
	srv := pngServer(t)
	tuesday := time.Date(2024, time.January, 9, 12, 0, 0, 0, time.UTC)
	svc, st := newGallery(t, tuesday)
	storetest.SeedProfile(t, st, store.Profile{ID: "champ", IsSeasonWinner: true})
	storetest.SeedArtifact(t, st, store.Artifact{ID: "art", CreatorID: "champ", ImageURL: srv.URL + "/img.png"})

	out, plain, err := svc.Download(t.Context(), "champ", "art")
	require.NoError(t, err)
	assert.True(t, plain)
	assert.Zero(t, changedPixels(t, out))

	out, plain, err = svc.Download(t.Context(), "someone-else", "art")
	require.NoError(t, err)
	assert.False(t, plain)
	assert.Positive(t, changedPixels(t, out))

	svc.now = func() time.Time { return tuesday.AddDate(0, 0, 1) }
	_, plain, err = svc.Download(t.Context(), "champ", "art")
	require.NoError(t, err)
	assert.False(t, plain, "perk expired on Wednesday")
}

func TestDownloadRejectsNonImages(t *testing.T) {
	srv := pngServer(t)
	svc, st := newGallery(t, time.Now())
	storetest.SeedArtifact(t, st, store.Artifact{ID: "art", CreatorID: "u", ImageURL: srv.URL + "/text"})

	_, _, err := svc.Download(t.Context(), "u", "art")
	require.ErrorIs(t, err, ErrUpstream)
}

func TestRenderScalesLargeImages(t *testing.T) {
	wm, err := NewWatermarker("Imagynex.AI", "", time.Second, nil)
	require.NoError(t, err)

	out, err := wm.Render(image.NewRGBA(image.Rect(0, 0, 4096, 1024)), true)
	require.NoError(t, err)
	cfg, err := png.DecodeConfig(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, 2048, cfg.Width)
	assert.Equal(t, 512, cfg.Height)
}
