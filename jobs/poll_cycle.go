package jobs

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/fenilmodi00/ipo-agent/models"
	"github.com/fenilmodi00/ipo-agent/notify"
	"github.com/fenilmodi00/ipo-agent/services"
	"github.com/fenilmodi00/ipo-agent/shared"
)

// IPOFetcher supplies the cycle's normalized IPO records plus whatever
// fundamentals rode along with the payload.
type IPOFetcher interface {
	FetchOpenIPOs(ctx context.Context) ([]*models.IPORecord, []*models.Fundamentals, error)
}

// GMPSource supplies one provider's readings keyed by IPO key.
type GMPSource interface {
	Name() string
	FetchReadings(ctx context.Context) (map[string]models.GMPReading, error)
}

// Notifier delivers one formatted message batch.
type Notifier interface {
	Send(ctx context.Context, message string) error
}

// sourceSnapshot holds one provider's readings for the current cycle so
// every IPO is matched against the same fetch.
type sourceSnapshot struct {
	name     string
	readings map[string]models.GMPReading
}

// PollCycleJob drives the agent's fetch, reconcile, decide, notify sequence.
type PollCycleJob struct {
	fetcher        IPOFetcher
	sources        []GMPSource
	repository     *services.StateRepository
	reconciler     *services.StateReconciler
	aggregator     *services.GMPAggregator
	alertEngine    *services.AlertEngine
	healthTracker  *services.SourceHealthTracker
	notifier       Notifier
	batcher        *notify.MessageBatcher
	utilityService *services.UtilityService
	metrics        *shared.AgentMetrics
	logger         *logrus.Logger
}

func NewPollCycleJob(
	fetcher IPOFetcher,
	sources []GMPSource,
	repository *services.StateRepository,
	gmpThreshold float64,
	notifier Notifier,
	batcher *notify.MessageBatcher,
	healthTracker *services.SourceHealthTracker,
	metrics *shared.AgentMetrics,
	logger *logrus.Logger,
) *PollCycleJob {
	return &PollCycleJob{
		fetcher:        fetcher,
		sources:        sources,
		repository:     repository,
		reconciler:     services.NewStateReconciler(repository, logger),
		aggregator:     services.NewGMPAggregator(),
		alertEngine:    services.NewAlertEngine(repository, gmpThreshold, logger),
		healthTracker:  healthTracker,
		notifier:       notifier,
		batcher:        batcher,
		utilityService: services.NewUtilityService(),
		metrics:        metrics,
		logger:         logger,
	}
}

// Start runs one cycle immediately, then keeps running on the configured
// interval until the context is cancelled. Cancellation stops the loop
// between cycles, never mid-cycle.
func (j *PollCycleJob) Start(ctx context.Context, interval time.Duration) {
	j.logger.WithFields(logrus.Fields{
		"component": "PollCycleJob",
		"interval":  interval.String(),
	}).Info("Poll loop starting")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	j.RunOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			j.logger.WithField("component", "PollCycleJob").Info("Poll loop stopping")
			return
		case <-ticker.C:
			j.RunOnce(ctx)
		}
	}
}

// RunOnce executes a single polling cycle. A panic inside the cycle is
// logged and counted as a failed cycle so the loop survives it.
func (j *PollCycleJob) RunOnce(ctx context.Context) {
	startTime := time.Now()
	logger := j.logger.WithFields(logrus.Fields{
		"component": "PollCycleJob",
		"method":    "RunOnce",
	})

	defer func() {
		if r := recover(); r != nil {
			logger.WithField("panic", r).Error("Poll cycle panicked")
			j.metrics.RecordCycle(false, time.Since(startTime), 0)
		}
	}()

	records, fundamentals, fetchError := j.fetcher.FetchOpenIPOs(ctx)
	if fetchError != nil {
		logger.WithError(fetchError).Warn("IPO fetch failed, skipping cycle")
		j.metrics.RecordCycle(false, time.Since(startTime), 0)
		return
	}
	if len(records) == 0 {
		logger.Info("No IPOs returned by IPOAlerts this cycle")
		j.metrics.RecordCycle(true, time.Since(startTime), 0)
		return
	}

	snapshots := j.snapshotSources(ctx)

	changes := j.reconciler.Reconcile(ctx, records)

	events := make([]models.AlertEvent, 0)
	for _, change := range changes {
		aggregate := j.aggregator.Aggregate(j.readingsFor(change.Record, snapshots))
		events = append(events, j.alertEngine.Decide(ctx, change, aggregate)...)
	}

	j.deliver(ctx, events)

	for _, entry := range fundamentals {
		j.repository.UpsertFundamentals(entry)
	}
	j.repository.FlushFundamentals(ctx)

	duration := time.Since(startTime)
	j.metrics.RecordCycle(true, duration, len(records))
	for _, event := range events {
		j.metrics.RecordEvent(string(event.Type))
	}

	logger.WithFields(logrus.Fields{
		"records":       len(records),
		"gmp_snapshots": len(snapshots),
		"events":        len(events),
		"duration":      duration.String(),
	}).Info("Poll cycle completed")
}

// snapshotSources fetches every healthy GMP source exactly once for the
// cycle. A failing source is recorded against its health streak and simply
// contributes no readings.
func (j *PollCycleJob) snapshotSources(ctx context.Context) []sourceSnapshot {
	snapshots := make([]sourceSnapshot, 0, len(j.sources))

	for _, source := range j.sources {
		if !j.healthTracker.Allow(source.Name()) {
			j.logger.WithFields(logrus.Fields{
				"component": "PollCycleJob",
				"source":    source.Name(),
			}).Debug("GMP source in cool-down, skipping")
			continue
		}

		readings, fetchError := source.FetchReadings(ctx)
		if fetchError != nil {
			j.logger.WithFields(logrus.Fields{
				"component": "PollCycleJob",
				"source":    source.Name(),
			}).WithError(fetchError).Warn("GMP source fetch failed")
			j.healthTracker.RecordFailure(source.Name())
			j.metrics.RecordSourceFetch(source.Name(), false)
			continue
		}

		j.healthTracker.RecordSuccess(source.Name())
		j.metrics.RecordSourceFetch(source.Name(), true)
		snapshots = append(snapshots, sourceSnapshot{name: source.Name(), readings: readings})
	}

	return snapshots
}

// readingsFor collects at most one reading per source for the record,
// trying each identity candidate against the source's key space.
func (j *PollCycleJob) readingsFor(record *models.IPORecord, snapshots []sourceSnapshot) []models.GMPReading {
	candidates := j.matchCandidates(record)

	var readings []models.GMPReading
	for _, snapshot := range snapshots {
		for _, candidate := range candidates {
			if reading, found := snapshot.readings[candidate]; found {
				readings = append(readings, reading)
				break
			}
		}
	}
	return readings
}

// matchCandidates lists the keys a GMP source might have used for this IPO.
// Scrape targets key rows by company name, so the name-derived forms cover
// sources that never see the calendar's key.
func (j *PollCycleJob) matchCandidates(record *models.IPORecord) []string {
	candidates := []string{record.Key}

	if record.CompanyName != "" {
		nameKey := j.utilityService.KeyFromText(record.CompanyName)
		companyCode := j.utilityService.GenerateCompanyCode(record.CompanyName)

		for _, candidate := range []string{nameKey, companyCode} {
			if candidate == "" {
				continue
			}
			duplicate := false
			for _, existing := range candidates {
				if existing == candidate {
					duplicate = true
					break
				}
			}
			if !duplicate {
				candidates = append(candidates, candidate)
			}
		}
	}

	return candidates
}

// deliver formats the cycle's events, batches them under the transport
// budget, and sends each batch. Send failures are logged and counted but
// never undo the decisions already written to state.
func (j *PollCycleJob) deliver(ctx context.Context, events []models.AlertEvent) {
	if len(events) == 0 {
		j.logger.WithField("component", "PollCycleJob").Info("No notifications this cycle")
		return
	}

	blocks := make([]string, 0, len(events))
	for _, event := range events {
		if block := notify.FormatEvent(event); block != "" {
			blocks = append(blocks, block)
		}
	}

	batches := j.batcher.BuildBatches(notify.Header(time.Now()), blocks)
	for _, batch := range batches {
		if sendError := j.notifier.Send(ctx, batch); sendError != nil {
			j.logger.WithFields(logrus.Fields{
				"component": "PollCycleJob",
			}).WithError(sendError).Warn("Notification send failed")
			j.metrics.RecordNotification(false)
			continue
		}
		j.metrics.RecordNotification(true)
	}
}
