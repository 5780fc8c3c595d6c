package shared

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// AgentMetrics tracks cycle, source, and delivery outcomes for the running
// agent. All methods are safe for concurrent use; the status endpoint reads
// snapshots while the poll loop records.
type AgentMetrics struct {
	mutex sync.RWMutex

	StartedAt time.Time `json:"started_at"`

	CyclesCompleted   int64         `json:"cycles_completed"`
	CyclesFailed      int64         `json:"cycles_failed"`
	LastCycleAt       time.Time     `json:"last_cycle_at"`
	LastCycleDuration time.Duration `json:"last_cycle_duration"`
	TotalCycleTime    time.Duration `json:"total_cycle_time"`

	RecordsFetched int64            `json:"records_fetched"`
	EventsEmitted  map[string]int64 `json:"events_emitted"`

	SourceSuccesses map[string]int64 `json:"source_successes"`
	SourceFailures  map[string]int64 `json:"source_failures"`

	MessagesSent   int64 `json:"messages_sent"`
	MessagesFailed int64 `json:"messages_failed"`
}

// NewAgentMetrics creates a new metrics tracker for the agent process
func NewAgentMetrics() *AgentMetrics {
	return &AgentMetrics{
		StartedAt:       time.Now(),
		EventsEmitted:   make(map[string]int64),
		SourceSuccesses: make(map[string]int64),
		SourceFailures:  make(map[string]int64),
	}
}

// RecordCycle records the outcome of one completed polling cycle
func (m *AgentMetrics) RecordCycle(success bool, duration time.Duration, recordsFetched int) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if success {
		m.CyclesCompleted++
	} else {
		m.CyclesFailed++
	}

	m.LastCycleAt = time.Now()
	m.LastCycleDuration = duration
	m.TotalCycleTime += duration
	m.RecordsFetched += int64(recordsFetched)
}

// RecordEvent counts one emitted alert event by type
func (m *AgentMetrics) RecordEvent(eventType string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.EventsEmitted[eventType]++
}

// RecordSourceFetch records the outcome of one GMP source snapshot
func (m *AgentMetrics) RecordSourceFetch(source string, success bool) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if success {
		m.SourceSuccesses[source]++
	} else {
		m.SourceFailures[source]++
	}
}

// RecordNotification records the outcome of one message delivery attempt
func (m *AgentMetrics) RecordNotification(success bool) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if success {
		m.MessagesSent++
	} else {
		m.MessagesFailed++
	}
}

// AverageCycleDuration returns the mean duration over all recorded cycles
func (m *AgentMetrics) AverageCycleDuration() time.Duration {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	totalCycles := m.CyclesCompleted + m.CyclesFailed
	if totalCycles == 0 {
		return 0
	}

	return time.Duration(int64(m.TotalCycleTime) / totalCycles)
}

// GetSnapshot returns a thread-safe snapshot of current metrics
func (m *AgentMetrics) GetSnapshot() AgentMetrics {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	eventsCopy := make(map[string]int64, len(m.EventsEmitted))
	for k, v := range m.EventsEmitted {
		eventsCopy[k] = v
	}
	successCopy := make(map[string]int64, len(m.SourceSuccesses))
	for k, v := range m.SourceSuccesses {
		successCopy[k] = v
	}
	failureCopy := make(map[string]int64, len(m.SourceFailures))
	for k, v := range m.SourceFailures {
		failureCopy[k] = v
	}

	return AgentMetrics{
		StartedAt:         m.StartedAt,
		CyclesCompleted:   m.CyclesCompleted,
		CyclesFailed:      m.CyclesFailed,
		LastCycleAt:       m.LastCycleAt,
		LastCycleDuration: m.LastCycleDuration,
		TotalCycleTime:    m.TotalCycleTime,
		RecordsFetched:    m.RecordsFetched,
		EventsEmitted:     eventsCopy,
		SourceSuccesses:   successCopy,
		SourceFailures:    failureCopy,
		MessagesSent:      m.MessagesSent,
		MessagesFailed:    m.MessagesFailed,
	}
}

// LogSummary logs a comprehensive metrics summary
func (m *AgentMetrics) LogSummary() {
	snapshot := m.GetSnapshot()

	logrus.WithFields(logrus.Fields{
		"started_at":          snapshot.StartedAt,
		"cycles_completed":    snapshot.CyclesCompleted,
		"cycles_failed":       snapshot.CyclesFailed,
		"last_cycle_at":       snapshot.LastCycleAt,
		"last_cycle_duration": snapshot.LastCycleDuration,
		"avg_cycle_duration":  m.AverageCycleDuration(),
		"records_fetched":     snapshot.RecordsFetched,
		"events_emitted":      snapshot.EventsEmitted,
		"source_successes":    snapshot.SourceSuccesses,
		"source_failures":     snapshot.SourceFailures,
		"messages_sent":       snapshot.MessagesSent,
		"messages_failed":     snapshot.MessagesFailed,
	}).Info("Agent metrics summary")
}
