package services

import (
	"context"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/fenilmodi00/ipo-agent/models"
	"github.com/fenilmodi00/ipo-agent/store"
)

// maxFetchRuns bounds the retained provenance history so the document
// does not grow without limit across long deployments.
const maxFetchRuns = 200

// StateRepository owns the agent's persistent state: the tracked IPO
// records, per-IPO fundamentals, and the fetch provenance log. Records
// and fundamentals are written through to the store on every mutation;
// reads hand out clones so callers never share memory with the live
// state. Safe for concurrent use.
type StateRepository struct {
	store  store.DocumentStore
	logger *logrus.Logger

	mutex        sync.RWMutex
	records      map[string]*models.IPORecord
	fundamentals map[string]*models.Fundamentals
	fetchLog     models.FetchLog
}

func NewStateRepository(documentStore store.DocumentStore, logger *logrus.Logger) *StateRepository {
	return &StateRepository{
		store:        documentStore,
		logger:       logger,
		records:      make(map[string]*models.IPORecord),
		fundamentals: make(map[string]*models.Fundamentals),
	}
}

// LoadAll hydrates state from the store. Absent or corrupt documents
// leave the corresponding state empty.
func (r *StateRepository) LoadAll(ctx context.Context) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if err := r.store.Load(ctx, store.KindIPOs, &r.records); err != nil {
		return err
	}
	if r.records == nil {
		r.records = make(map[string]*models.IPORecord)
	}

	if err := r.store.Load(ctx, store.KindFundamentals, &r.fundamentals); err != nil {
		return err
	}
	if r.fundamentals == nil {
		r.fundamentals = make(map[string]*models.Fundamentals)
	}

	if err := r.store.Load(ctx, store.KindFetchRuns, &r.fetchLog); err != nil {
		return err
	}

	r.logger.WithFields(logrus.Fields{
		"tracked_ipos":      len(r.records),
		"fundamentals":      len(r.fundamentals),
		"fetch_runs_logged": len(r.fetchLog.Runs),
	}).Info("State loaded")

	return nil
}

// FlushAll writes every document once. Called at startup so the backing
// store always holds valid documents, even before the first mutation.
func (r *StateRepository) FlushAll(ctx context.Context) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	r.flushRecordsLocked(ctx)
	r.flushFundamentalsLocked(ctx)
	r.flushFetchLogLocked(ctx)
}

// Record returns a clone of the tracked record for key, or false when
// the IPO has not been seen before.
func (r *StateRepository) Record(key string) (*models.IPORecord, bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	record, ok := r.records[key]
	if !ok {
		return nil, false
	}
	return record.Clone(), true
}

// AllRecords returns clones of every tracked record, sorted by key.
func (r *StateRepository) AllRecords() []*models.IPORecord {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	records := make([]*models.IPORecord, 0, len(r.records))
	for _, record := range r.records {
		records = append(records, record.Clone())
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].Key < records[j].Key
	})
	return records
}

// RecordCount returns the number of tracked IPOs.
func (r *StateRepository) RecordCount() int {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return len(r.records)
}

// UpsertRecord stores the record and writes the IPO document through to
// the store immediately.
func (r *StateRepository) UpsertRecord(ctx context.Context, record *models.IPORecord) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.records[record.Key] = record.Clone()
	r.flushRecordsLocked(ctx)
}

// UpsertFundamentals stores fundamentals in memory. The fundamentals
// document is flushed once per cycle via FlushFundamentals.
func (r *StateRepository) UpsertFundamentals(fundamentals *models.Fundamentals) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	copied := *fundamentals
	r.fundamentals[fundamentals.Key] = &copied
}

// FlushFundamentals writes the fundamentals document to the store.
func (r *StateRepository) FlushFundamentals(ctx context.Context) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	r.flushFundamentalsLocked(ctx)
}

// AppendFetchRun records one fetch run in the provenance log, trims the
// log to its retention bound, and writes it through.
func (r *StateRepository) AppendFetchRun(ctx context.Context, run models.FetchRun) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.fetchLog.Runs = append(r.fetchLog.Runs, run)
	if len(r.fetchLog.Runs) > maxFetchRuns {
		r.fetchLog.Runs = r.fetchLog.Runs[len(r.fetchLog.Runs)-maxFetchRuns:]
	}
	r.flushFetchLogLocked(ctx)
}

// FetchRuns returns a copy of the provenance log, newest last.
func (r *StateRepository) FetchRuns() []models.FetchRun {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	runs := make([]models.FetchRun, len(r.fetchLog.Runs))
	copy(runs, r.fetchLog.Runs)
	return runs
}

func (r *StateRepository) flushRecordsLocked(ctx context.Context) {
	if err := r.store.Save(ctx, store.KindIPOs, r.records); err != nil {
		r.logger.WithFields(logrus.Fields{
			"kind":  string(store.KindIPOs),
			"error": err.Error(),
		}).Error("Failed to persist IPO records")
	}
}

func (r *StateRepository) flushFundamentalsLocked(ctx context.Context) {
	if err := r.store.Save(ctx, store.KindFundamentals, r.fundamentals); err != nil {
		r.logger.WithFields(logrus.Fields{
			"kind":  string(store.KindFundamentals),
			"error": err.Error(),
		}).Error("Failed to persist fundamentals")
	}
}

func (r *StateRepository) flushFetchLogLocked(ctx context.Context) {
	if err := r.store.Save(ctx, store.KindFetchRuns, r.fetchLog); err != nil {
		r.logger.WithFields(logrus.Fields{
			"kind":  string(store.KindFetchRuns),
			"error": err.Error(),
		}).Warn("Failed to persist fetch provenance")
	}
}
