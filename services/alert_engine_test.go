package services

import (
	"context"
	"testing"
	"time"

	"github.com/fenilmodi00/ipo-agent/models"
)

func trackedChange(t *testing.T, repository *StateRepository, key string, lastNotified *float64) ChangeResult {
	t.Helper()

	record := &models.IPORecord{
		Key:             key,
		CompanyName:     "Acme Industries",
		Status:          models.Status("open"),
		PriceBandLow:    floatPointer(100),
		PriceBandHigh:   floatPointer(110),
		LastNotifiedGMP: lastNotified,
		SeenAt:          time.Now().UTC(),
	}
	repository.UpsertRecord(context.Background(), record)

	stored, _ := repository.Record(key)
	return ChangeResult{Kind: ChangeUnchanged, Record: stored}
}

func aggregateWithMedian(median float64) *models.GMPAggregate {
	return &models.GMPAggregate{
		Median:     median,
		Confidence: 1,
		Sources:    []models.GMPReading{{Source: "https://gmp.example.com", Value: median}},
	}
}

func TestAlertEngineCrossingUpFiresOnce(t *testing.T) {
	ctx := context.Background()
	repository, _ := newTestRepository(t)
	engine := NewAlertEngine(repository, 50, quietLogger())

	change := trackedChange(t, repository, "acme", nil)

	events := engine.Decide(ctx, change, aggregateWithMedian(60))
	if len(events) != 1 || events[0].Type != models.EventGMPAlert {
		t.Fatalf("events = %+v, want one GMP alert", events)
	}

	stored, _ := repository.Record("acme")
	if stored.LastNotifiedGMP == nil || *stored.LastNotifiedGMP != 60 {
		t.Fatalf("last_notified_gmp = %v, want 60", stored.LastNotifiedGMP)
	}

	// Next cycle: still above threshold but no re-crossing and only an
	// 8% move, so the engine stays silent.
	change = ChangeResult{Kind: ChangeUnchanged, Record: stored}
	events = engine.Decide(ctx, change, aggregateWithMedian(55))
	if len(events) != 0 {
		t.Errorf("repeat cycle above threshold emitted %d events, want 0", len(events))
	}
	after, _ := repository.Record("acme")
	if *after.LastNotifiedGMP != 60 {
		t.Errorf("silent cycle mutated last_notified_gmp to %v", *after.LastNotifiedGMP)
	}
}

func TestAlertEngineCrossingAtExactThreshold(t *testing.T) {
	ctx := context.Background()
	repository, _ := newTestRepository(t)
	engine := NewAlertEngine(repository, 50, quietLogger())

	change := trackedChange(t, repository, "acme", nil)
	events := engine.Decide(ctx, change, aggregateWithMedian(50))
	if len(events) != 1 {
		t.Errorf("median equal to threshold emitted %d events, want 1", len(events))
	}
}

func TestAlertEngineLargeMoveDown(t *testing.T) {
	ctx := context.Background()
	repository, _ := newTestRepository(t)
	engine := NewAlertEngine(repository, 50, quietLogger())

	// |60-20|/60 ≈ 0.67 > 0.5 fires even though 20 is below threshold.
	change := trackedChange(t, repository, "acme", floatPointer(60))
	events := engine.Decide(ctx, change, aggregateWithMedian(20))
	if len(events) != 1 || events[0].Type != models.EventGMPAlert {
		t.Fatalf("events = %+v, want one GMP alert for the reversal", events)
	}

	stored, _ := repository.Record("acme")
	if *stored.LastNotifiedGMP != 20 {
		t.Errorf("last_notified_gmp = %v, want 20", *stored.LastNotifiedGMP)
	}
}

func TestAlertEngineLargeMoveUpWhileAboveThreshold(t *testing.T) {
	ctx := context.Background()
	repository, _ := newTestRepository(t)
	engine := NewAlertEngine(repository, 50, quietLogger())

	// No re-crossing happens, but |60-95|/60 ≈ 0.58 > 0.5.
	change := trackedChange(t, repository, "acme", floatPointer(60))
	events := engine.Decide(ctx, change, aggregateWithMedian(95))
	if len(events) != 1 {
		t.Errorf("large move above threshold emitted %d events, want 1", len(events))
	}
}

func TestAlertEngineZeroPreviousIsARealValue(t *testing.T) {
	ctx := context.Background()
	repository, _ := newTestRepository(t)
	engine := NewAlertEngine(repository, 50, quietLogger())

	// A previous notified value of exactly zero is a real gate value, not
	// absence: any move away from it is relatively huge and fires.
	change := trackedChange(t, repository, "acme", floatPointer(0))
	events := engine.Decide(ctx, change, aggregateWithMedian(0.4))
	if len(events) != 1 {
		t.Errorf("move away from zero emitted %d events, want 1", len(events))
	}
}

func TestAlertEngineNoAggregateNoAlertNoMutation(t *testing.T) {
	ctx := context.Background()
	repository, _ := newTestRepository(t)
	engine := NewAlertEngine(repository, 50, quietLogger())

	change := trackedChange(t, repository, "acme", nil)
	events := engine.Decide(ctx, change, nil)
	if len(events) != 0 {
		t.Errorf("nil aggregate emitted %d events, want 0", len(events))
	}

	stored, _ := repository.Record("acme")
	if stored.LastNotifiedGMP != nil {
		t.Errorf("nil aggregate mutated last_notified_gmp to %v", *stored.LastNotifiedGMP)
	}
}

func TestAlertEngineLifecycleEventsIndependentOfGMP(t *testing.T) {
	ctx := context.Background()
	repository, _ := newTestRepository(t)
	engine := NewAlertEngine(repository, 50, quietLogger())

	change := trackedChange(t, repository, "acme", nil)

	change.Kind = ChangeNew
	events := engine.Decide(ctx, change, nil)
	if len(events) != 1 || events[0].Type != models.EventNewIPO {
		t.Fatalf("events = %+v, want one new-IPO event with no aggregate", events)
	}

	change.Kind = ChangeStatusChanged
	change.OldStatus = models.Status("upcoming")
	change.NewStatus = models.Status("open")
	events = engine.Decide(ctx, change, aggregateWithMedian(8))
	if len(events) != 1 || events[0].Type != models.EventStatusChanged {
		t.Fatalf("events = %+v, want only the status change below threshold", events)
	}
	if events[0].OldStatus != "upcoming" || events[0].NewStatus != "open" {
		t.Errorf("status event transition = %s → %s", events[0].OldStatus, events[0].NewStatus)
	}
}

func TestAlertEngineLifecycleAndGMPEventOrder(t *testing.T) {
	ctx := context.Background()
	repository, _ := newTestRepository(t)
	engine := NewAlertEngine(repository, 50, quietLogger())

	change := trackedChange(t, repository, "acme", nil)
	change.Kind = ChangeNew

	events := engine.Decide(ctx, change, aggregateWithMedian(72))
	if len(events) != 2 {
		t.Fatalf("got %d events, want lifecycle event followed by GMP alert", len(events))
	}
	if events[0].Type != models.EventNewIPO || events[1].Type != models.EventGMPAlert {
		t.Errorf("event order = %s, %s", events[0].Type, events[1].Type)
	}
	if events[1].Aggregate == nil || events[1].Aggregate.Median != 72 {
		t.Error("GMP event does not carry its aggregate")
	}
	if events[1].Record.LastNotifiedGMP == nil || *events[1].Record.LastNotifiedGMP != 72 {
		t.Error("GMP event record snapshot does not carry the new gate value")
	}
}
