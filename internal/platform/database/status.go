package database

import (
	"sync"
)

// RedisState is the health of the Redis rank index.
type RedisState int

const (
	RedisHealthy RedisState = iota
	RedisDegraded
	RedisRebuilding
)

func (s RedisState) String() string {
	switch s {
	case RedisHealthy:
		return "healthy"
	case RedisDegraded:
		return "degraded"
	case RedisRebuilding:
		return "rebuilding"
	}
	return "unknown"
}

// RedisStatus tracks whether the Redis rank index can be trusted. Readers
// fall back to the database whenever the state is not RedisHealthy.
type RedisStatus struct {
	mu             sync.RWMutex
	state          RedisState
	lastKnownRunID string
}

// NewRedisStatus starts in the rebuilding state so the first health check
// warms the index before anyone reads from it.
func NewRedisStatus() *RedisStatus {
	return &RedisStatus{state: RedisRebuilding}
}

func (s *RedisStatus) State() RedisState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// IsRedisHealthy reports whether index reads are allowed.
func (s *RedisStatus) IsRedisHealthy() bool {
	return s.State() == RedisHealthy
}

// Assess folds one probe result into the state machine and reports whether
// the index has to be rebuilt.
func (s *RedisStatus) Assess(connected bool, runID string) (needsRebuild bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case RedisHealthy:
		if !connected {
			s.state = RedisDegraded
		} else if s.lastKnownRunID != "" && s.lastKnownRunID != runID {
			// restarted, the sorted sets are gone
			s.state = RedisRebuilding
			needsRebuild = true
		}
	case RedisDegraded:
		if connected {
			// writes may have been dropped while degraded
			s.state = RedisRebuilding
			needsRebuild = true
		}
	case RedisRebuilding:
		if !connected {
			s.state = RedisDegraded
		} else {
			needsRebuild = true
		}
	}

	if connected {
		s.lastKnownRunID = runID
	}
	return needsRebuild
}

// MarkRebuildComplete ends a rebuild. A run_id change during the rebuild
// keeps the state at rebuilding so the next check retries.
func (s *RedisStatus) MarkRebuildComplete(success bool, runIDAfterRebuild string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != RedisRebuilding {
		return
	}
	if success && s.lastKnownRunID != runIDAfterRebuild {
		s.lastKnownRunID = runIDAfterRebuild
		return
	}
	if success {
		s.state = RedisHealthy
	}
}

// RequestRebuild is called by writers whose index update failed.
func (s *RedisStatus) RequestRebuild() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == RedisHealthy {
		s.state = RedisRebuilding
	}
}
