package gallery

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/SlpAus/imagynex-season-backend/internal/platform/logger"
	"github.com/SlpAus/imagynex-season-backend/internal/season"
	"github.com/SlpAus/imagynex-season-backend/internal/store"
	"github.com/SlpAus/imagynex-season-backend/internal/store/storetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pngHeader is a PNG that stops after IHDR: enough for DecodeConfig.
func pngHeader(width, height uint32) []byte {
	var buf bytes.Buffer
	buf.WriteString("\x89PNG\r\n\x1a\n")

	ihdr := make([]byte, 13)
	binary.BigEndian.PutUint32(ihdr[0:], width)
	binary.BigEndian.PutUint32(ihdr[4:], height)
	ihdr[8] = 8 // bit depth, gray
	chunk := append([]byte("IHDR"), ihdr...)

	_ = binary.Write(&buf, binary.BigEndian, uint32(len(ihdr)))
	buf.Write(chunk)
	_ = binary.Write(&buf, binary.BigEndian, crc32.ChecksumIEEE(chunk))
	return buf.Bytes()
}

func TestFetchRejectsHugeDimensions(t *testing.T) {
	body := pngHeader(16000, 16000)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(body)
	}))
	t.Cleanup(srv.Close)

	wm, err := NewWatermarker("Imagynex.AI", "", time.Second, []string{"127.0.0.1"})
	require.NoError(t, err)

	_, err = wm.Fetch(t.Context(), srv.URL+"/huge.png")
	require.ErrorIs(t, err, ErrUpstream)
	assert.ErrorContains(t, err, "16000x16000")
}

func TestCheckURLWithoutAllowList(t *testing.T) {
	wm, err := NewWatermarker("Imagynex.AI", "", time.Second, nil)
	require.NoError(t, err)

	for _, raw := range []string{
		"http://127.0.0.1:6379/",
		"http://169.254.169.254/latest/meta-data",
		"http://10.0.0.5/a.png",
		"http://[::1]/a.png",
		"http://localhost:8080/a.png",
		"file:///etc/passwd",
	} {
		assert.ErrorIs(t, wm.CheckURL(raw), ErrInvalid, raw)
	}
	assert.NoError(t, wm.CheckURL("https://img.example/a.png"))
	assert.NoError(t, wm.CheckURL("https://93.184.216.34/a.png"))
}

func TestCheckURLWithAllowList(t *testing.T) {
	wm, err := NewWatermarker("Imagynex.AI", "", time.Second, []string{" IMG.example "})
	require.NoError(t, err)

	assert.NoError(t, wm.CheckURL("https://img.example/a.png"))
	assert.NoError(t, wm.CheckURL("https://cdn.img.example/a.png"))
	assert.ErrorIs(t, wm.CheckURL("https://notimg.example/a.png"), ErrInvalid)
	assert.ErrorIs(t, wm.CheckURL("https://evil.example/a.png"), ErrInvalid)
}

func TestRefusePrivateDials(t *testing.T) {
	require.ErrorIs(t, refusePrivate("tcp", "127.0.0.1:80", nil), errBlockedAddress)
	require.ErrorIs(t, refusePrivate("tcp", "[fe80::1]:80", nil), errBlockedAddress)
	require.ErrorIs(t, refusePrivate("tcp", "192.168.1.20:443", nil), errBlockedAddress)
	require.NoError(t, refusePrivate("tcp", "93.184.216.34:443", nil))
}

func TestLoopbackImagesNeverFetched(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	t.Cleanup(srv.Close)

	st := storetest.New(t)
	wm, err := NewWatermarker("Imagynex.AI", "", time.Second, nil)
	require.NoError(t, err)
	svc := NewService(st, storeProfiles{st: st}, season.Weekly{Loc: time.UTC}, wm, logger.Nop())

	_, err = svc.Create(t.Context(), "alice", CreateInput{ImageURL: srv.URL + "/a.png", Prompt: "a fox"})
	require.ErrorIs(t, err, ErrInvalid)

	storetest.SeedArtifact(t, st, store.Artifact{ID: "art", CreatorID: "alice", ImageURL: srv.URL + "/a.png"})
	_, _, err = svc.Download(t.Context(), "alice", "art")
	require.ErrorIs(t, err, ErrUpstream)
	assert.Zero(t, hits.Load())
}
