package services

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// sourceState tracks consecutive failures for a single GMP source
type sourceState struct {
	consecutiveFailures int
	openUntil           time.Time
}

// SourceHealthTracker skips GMP sources that keep failing so one broken
// provider cannot slow down every poll cycle
type SourceHealthTracker struct {
	mutex         sync.Mutex
	sources       map[string]*sourceState
	maxFailures   int
	cooldownDelay time.Duration
	logger        *logrus.Logger
}

// NewSourceHealthTracker creates a tracker that opens after maxFailures
// consecutive failures and allows a retry once cooldownDelay has elapsed
func NewSourceHealthTracker(maxFailures int, cooldownDelay time.Duration, logger *logrus.Logger) *SourceHealthTracker {
	if maxFailures <= 0 {
		maxFailures = 3
	}
	if cooldownDelay <= 0 {
		cooldownDelay = 10 * time.Minute
	}

	return &SourceHealthTracker{
		sources:       make(map[string]*sourceState),
		maxFailures:   maxFailures,
		cooldownDelay: cooldownDelay,
		logger:        logger,
	}
}

// Allow reports whether the named source should be fetched this cycle.
// A source in cool-down is skipped until the cool-down expires; the next
// call after expiry allows a single retry attempt.
func (t *SourceHealthTracker) Allow(sourceName string) bool {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	state, exists := t.sources[sourceName]
	if !exists {
		return true
	}

	if state.consecutiveFailures < t.maxFailures {
		return true
	}

	if time.Now().Before(state.openUntil) {
		return false
	}

	// Cool-down elapsed, let one attempt through to probe the source
	return true
}

// RecordSuccess resets the failure streak for the named source
func (t *SourceHealthTracker) RecordSuccess(sourceName string) {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	state, exists := t.sources[sourceName]
	if !exists {
		return
	}

	if state.consecutiveFailures >= t.maxFailures {
		t.logger.WithFields(logrus.Fields{
			"component": "SourceHealthTracker",
			"source":    sourceName,
		}).Info("GMP source recovered, resuming fetches")
	}

	delete(t.sources, sourceName)
}

// RecordFailure increments the failure streak and opens the cool-down
// window once the streak reaches the configured maximum
func (t *SourceHealthTracker) RecordFailure(sourceName string) {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	state, exists := t.sources[sourceName]
	if !exists {
		state = &sourceState{}
		t.sources[sourceName] = state
	}

	state.consecutiveFailures++

	if state.consecutiveFailures >= t.maxFailures {
		state.openUntil = time.Now().Add(t.cooldownDelay)

		t.logger.WithFields(logrus.Fields{
			"component":            "SourceHealthTracker",
			"source":               sourceName,
			"consecutive_failures": state.consecutiveFailures,
			"cooldown":             t.cooldownDelay.String(),
		}).Warn("GMP source failing repeatedly, pausing fetches")
	}
}

// FailureCount returns the current consecutive failure streak for a source
func (t *SourceHealthTracker) FailureCount(sourceName string) int {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	if state, exists := t.sources[sourceName]; exists {
		return state.consecutiveFailures
	}
	return 0
}
