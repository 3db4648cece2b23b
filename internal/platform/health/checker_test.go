package health

import (
	"context"
	"errors"
	"testing"

	"github.com/SlpAus/imagynex-season-backend/internal/platform/database"
	"github.com/SlpAus/imagynex-season-backend/internal/platform/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeIndex struct {
	rebuilds  int
	err       error
	onRebuild func()
}

func (f *fakeIndex) Rebuild(context.Context) error {
	f.rebuilds++
	if f.onRebuild != nil {
		f.onRebuild()
	}
	return f.err
}

type fakeRedis struct {
	runID string
	down  bool
}

func (f *fakeRedis) probe(context.Context) (string, error) {
	if f.down {
		return "", errors.New("connection refused")
	}
	return f.runID, nil
}

func newTestChecker(idx *fakeIndex, r *fakeRedis) (*Checker, *database.RedisStatus) {
	status := database.NewRedisStatus()
	c := NewChecker(nil, status, idx, 0, logger.Nop())
	c.probe = r.probe
	return c, status
}

func TestCheckWarmsIndexOnStartup(t *testing.T) {
	idx, r := &fakeIndex{}, &fakeRedis{runID: "aaa"}
	c, status := newTestChecker(idx, r)

	c.Check(t.Context())
	assert.Equal(t, 1, idx.rebuilds)
	assert.True(t, status.IsRedisHealthy())

	c.Check(t.Context())
	assert.Equal(t, 1, idx.rebuilds, "no rebuild while nothing changed")
}

func TestCheckRebuildsAfterOutageAndRestart(t *testing.T) {
	idx, r := &fakeIndex{}, &fakeRedis{runID: "aaa"}
	c, status := newTestChecker(idx, r)
	c.Check(t.Context())

	r.down = true
	c.Check(t.Context())
	assert.Equal(t, database.RedisDegraded, status.State())

	r.down = false
	r.runID = "bbb"
	c.Check(t.Context())
	assert.Equal(t, 2, idx.rebuilds)
	assert.True(t, status.IsRedisHealthy())
}

func TestRestartDuringRebuildIsRetried(t *testing.T) {
	r := &fakeRedis{runID: "aaa"}
	idx := &fakeIndex{onRebuild: func() { r.runID = "bbb" }}
	c, status := newTestChecker(idx, r)

	c.Check(t.Context())
	assert.Equal(t, database.RedisRebuilding, status.State())

	idx.onRebuild = nil
	c.Check(t.Context())
	assert.True(t, status.IsRedisHealthy())
	assert.Equal(t, 2, idx.rebuilds)
}

func TestFailedRebuildKeepsFallback(t *testing.T) {
	idx, r := &fakeIndex{err: errors.New("store down")}, &fakeRedis{runID: "aaa"}
	c, status := newTestChecker(idx, r)

	c.Check(t.Context())
	assert.False(t, status.IsRedisHealthy())

	idx.err = nil
	c.Check(t.Context())
	assert.True(t, status.IsRedisHealthy())
}

func TestParseRunID(t *testing.T) {
	id, err := parseRunID("# Server\r\nredis_version:7.2.4\r\nrun_id:4f1e2d3c4b5a69788796a5b4c3d2e1f0a9b8c7d6\r\ntcp_port:6379\r\n")
	require.NoError(t, err)
	assert.Equal(t, "4f1e2d3c4b5a69788796a5b4c3d2e1f0a9b8c7d6", id)

	_, err = parseRunID("# Server\r\nredis_version:7.2.4\r\n")
	require.Error(t, err)
}
