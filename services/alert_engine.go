package services

import (
	"context"
	"math"

	"github.com/sirupsen/logrus"

	"github.com/fenilmodi00/ipo-agent/models"
)

// largeMoveRatio is the relative change against the last notified GMP
// beyond which a fresh alert fires even without a threshold crossing.
const largeMoveRatio = 0.5

// AlertEngine turns reconciliation results and GMP consensus into alert
// events. GMP alerts are hysteresis gated: a crossing fires only when
// the previous notified value sat below the threshold, and repeat alerts
// need a large relative move. The gate value is written through with the
// record, so restarts do not re-fire old alerts.
type AlertEngine struct {
	repository *StateRepository
	threshold  float64
	logger     *logrus.Logger
}

func NewAlertEngine(repository *StateRepository, threshold float64, logger *logrus.Logger) *AlertEngine {
	return &AlertEngine{
		repository: repository,
		threshold:  threshold,
		logger:     logger,
	}
}

// Decide evaluates one reconciled IPO and returns its alert events in
// presentation order: lifecycle events first, then any GMP alert.
// The aggregate may be nil when no source produced a reading.
func (e *AlertEngine) Decide(ctx context.Context, change ChangeResult, aggregate *models.GMPAggregate) []models.AlertEvent {
	var events []models.AlertEvent

	switch change.Kind {
	case ChangeNew:
		events = append(events, models.AlertEvent{
			Type:   models.EventNewIPO,
			Key:    change.Record.Key,
			Record: change.Record,
		})
	case ChangeStatusChanged:
		events = append(events, models.AlertEvent{
			Type:      models.EventStatusChanged,
			Key:       change.Record.Key,
			Record:    change.Record,
			OldStatus: change.OldStatus,
			NewStatus: change.NewStatus,
		})
	}

	if aggregate == nil {
		return events
	}

	record := change.Record
	previous := record.LastNotifiedGMP
	median := aggregate.Median

	crossedUp := median >= e.threshold && (previous == nil || *previous < e.threshold)
	largeMove := previous != nil &&
		math.Abs(*previous-median)/(math.Abs(*previous)+1e-9) > largeMoveRatio

	if !crossedUp && !largeMove {
		return events
	}

	notified := record.Clone()
	notified.LastNotifiedGMP = &median
	e.repository.UpsertRecord(ctx, notified)

	e.logger.WithFields(logrus.Fields{
		"key":        notified.Key,
		"median":     median,
		"confidence": aggregate.Confidence,
		"sources":    len(aggregate.Sources),
		"crossed_up": crossedUp,
		"large_move": largeMove,
	}).Info("GMP alert triggered")

	events = append(events, models.AlertEvent{
		Type:      models.EventGMPAlert,
		Key:       notified.Key,
		Record:    notified,
		Aggregate: aggregate,
	})

	return events
}
