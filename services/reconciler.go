package services

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/fenilmodi00/ipo-agent/models"
)

// ChangeKind classifies what reconciliation observed for one IPO.
type ChangeKind string

const (
	ChangeNew           ChangeKind = "new"
	ChangeStatusChanged ChangeKind = "status_changed"
	ChangeUnchanged     ChangeKind = "unchanged"
)

// ChangeResult pairs a fetched IPO with its reconciliation outcome. The
// Record field holds the tracked state after reconciliation, so later
// stages always see stored fields like LastNotifiedGMP and SeenAt.
type ChangeResult struct {
	Kind      ChangeKind
	Record    *models.IPORecord
	OldStatus models.Status
	NewStatus models.Status
}

// StateReconciler compares fetched IPOs against tracked state. New IPOs
// are adopted with a seen timestamp; status transitions merge the
// incoming fields over the stored record. Records are never deleted:
// IPOs that stop appearing in fetches simply stop being touched.
type StateReconciler struct {
	repository *StateRepository
	logger     *logrus.Logger
}

func NewStateReconciler(repository *StateRepository, logger *logrus.Logger) *StateReconciler {
	return &StateReconciler{
		repository: repository,
		logger:     logger,
	}
}

// Reconcile processes fetched records in fetch order and returns one
// result per record. Each mutation is written through before the next
// record is considered.
func (r *StateReconciler) Reconcile(ctx context.Context, incoming []*models.IPORecord) []ChangeResult {
	now := time.Now().UTC()
	results := make([]ChangeResult, 0, len(incoming))

	for _, fetched := range incoming {
		previous, tracked := r.repository.Record(fetched.Key)

		if !tracked {
			record := fetched.Clone()
			record.SeenAt = now
			r.repository.UpsertRecord(ctx, record)

			r.logger.WithFields(logrus.Fields{
				"key":     record.Key,
				"company": record.CompanyName,
				"status":  string(record.Status),
			}).Info("New IPO tracked")

			results = append(results, ChangeResult{
				Kind:   ChangeNew,
				Record: record,
			})
			continue
		}

		if previous.Status != fetched.Status {
			oldStatus := previous.Status
			merged := mergeRecords(previous, fetched)
			merged.UpdatedAt = &now
			r.repository.UpsertRecord(ctx, merged)

			r.logger.WithFields(logrus.Fields{
				"key":        merged.Key,
				"old_status": string(oldStatus),
				"new_status": string(merged.Status),
			}).Info("IPO status changed")

			results = append(results, ChangeResult{
				Kind:      ChangeStatusChanged,
				Record:    merged,
				OldStatus: oldStatus,
				NewStatus: merged.Status,
			})
			continue
		}

		results = append(results, ChangeResult{
			Kind:   ChangeUnchanged,
			Record: previous,
		})
	}

	return results
}

// mergeRecords overlays the fetched record on the stored one. Fetched
// fields win wholesale; only the agent-owned fields (SeenAt and
// LastNotifiedGMP) survive from the stored record.
func mergeRecords(stored, fetched *models.IPORecord) *models.IPORecord {
	merged := fetched.Clone()
	merged.SeenAt = stored.SeenAt
	if stored.LastNotifiedGMP != nil {
		value := *stored.LastNotifiedGMP
		merged.LastNotifiedGMP = &value
	}
	return merged
}
