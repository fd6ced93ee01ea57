package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/paulb-elastic/synthetics"
	"github.com/paulb-elastic/synthetics/id"
	"github.com/paulb-elastic/synthetics/store"
)

func newRun(startedAt time.Time) *store.Run {
	return &store.Run{
		ID:          id.NewRunID(),
		Environment: "development",
		Status:      store.RunStatusRunning,
		NumJourneys: 1,
		StartedAt:   startedAt,
	}
}

func TestRunLifecycle(t *testing.T) {
	s := New()
	ctx := context.Background()

	r := newRun(time.Now().UTC())
	if err := s.CreateRun(ctx, r); err != nil {
		t.Fatalf("CreateRun: %v", err)
	}

	got, err := s.GetRun(ctx, r.ID)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if got.Status != store.RunStatusRunning {
		t.Fatalf("status = %q, want running", got.Status)
	}

	done := time.Now().UTC()
	r.Status = store.RunStatusSucceeded
	r.CompletedAt = &done
	if err := s.UpdateRun(ctx, r); err != nil {
		t.Fatalf("UpdateRun: %v", err)
	}

	got, err = s.GetRun(ctx, r.ID)
	if err != nil {
		t.Fatalf("GetRun after update: %v", err)
	}
	if got.Status != store.RunStatusSucceeded || got.CompletedAt == nil {
		t.Fatalf("run not updated: %+v", got)
	}
}

func TestGetRunNotFound(t *testing.T) {
	s := New()
	if _, err := s.GetRun(context.Background(), id.NewRunID()); !errors.Is(err, synthetics.ErrRunNotFound) {
		t.Fatalf("got %v, want ErrRunNotFound", err)
	}
}

func TestUpdateRunNotFound(t *testing.T) {
	s := New()
	err := s.UpdateRun(context.Background(), newRun(time.Now()))
	if !errors.Is(err, synthetics.ErrRunNotFound) {
		t.Fatalf("got %v, want ErrRunNotFound", err)
	}
}

func TestListRunsNewestFirst(t *testing.T) {
	s := New()
	ctx := context.Background()

	base := time.Now().UTC()
	old := newRun(base.Add(-time.Hour))
	mid := newRun(base.Add(-time.Minute))
	recent := newRun(base)
	for _, r := range []*store.Run{old, mid, recent} {
		if err := s.CreateRun(ctx, r); err != nil {
			t.Fatalf("CreateRun: %v", err)
		}
	}

	runs, err := s.ListRuns(ctx, 0)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 3 {
		t.Fatalf("got %d runs, want 3", len(runs))
	}
	if runs[0].ID != recent.ID || runs[2].ID != old.ID {
		t.Fatalf("not ordered newest first: %v %v %v", runs[0].ID, runs[1].ID, runs[2].ID)
	}

	limited, err := s.ListRuns(ctx, 2)
	if err != nil {
		t.Fatalf("ListRuns limited: %v", err)
	}
	if len(limited) != 2 {
		t.Fatalf("got %d runs, want 2", len(limited))
	}
}

func TestJourneyAndStepRecords(t *testing.T) {
	s := New()
	ctx := context.Background()

	r := newRun(time.Now().UTC())
	if err := s.CreateRun(ctx, r); err != nil {
		t.Fatalf("CreateRun: %v", err)
	}

	jrec := &store.JourneyRecord{
		ID:        id.NewJourneyID(),
		RunID:     r.ID,
		Name:      "checkout",
		Status:    "succeeded",
		StartedAt: time.Now().UTC(),
	}
	if err := s.SaveJourney(ctx, jrec); err != nil {
		t.Fatalf("SaveJourney: %v", err)
	}

	// Save out of index order; listing must sort.
	for _, idx := range []int{1, 0} {
		rec := &store.StepRecord{
			ID:        id.NewStepID(),
			RunID:     r.ID,
			JourneyID: jrec.ID,
			Name:      "step",
			Index:     idx,
			Status:    "succeeded",
			Metrics:   map[string]float64{"fcp": 120},
		}
		if err := s.SaveStep(ctx, rec); err != nil {
			t.Fatalf("SaveStep: %v", err)
		}
	}

	journeys, err := s.ListJourneys(ctx, r.ID)
	if err != nil {
		t.Fatalf("ListJourneys: %v", err)
	}
	if len(journeys) != 1 || journeys[0].Name != "checkout" {
		t.Fatalf("journeys = %+v", journeys)
	}

	steps, err := s.ListSteps(ctx, jrec.ID)
	if err != nil {
		t.Fatalf("ListSteps: %v", err)
	}
	if len(steps) != 2 || steps[0].Index != 0 || steps[1].Index != 1 {
		t.Fatalf("steps not ordered by index: %+v", steps)
	}
	if steps[0].Metrics["fcp"] != 120 {
		t.Fatalf("metrics not preserved: %+v", steps[0].Metrics)
	}
}

func TestStoreIsolation(t *testing.T) {
	s := New()
	ctx := context.Background()

	r := newRun(time.Now().UTC())
	if err := s.CreateRun(ctx, r); err != nil {
		t.Fatalf("CreateRun: %v", err)
	}

	// Mutating the caller's struct must not affect the stored copy.
	r.Status = store.RunStatusFailed

	got, err := s.GetRun(ctx, r.ID)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if got.Status != store.RunStatusRunning {
		t.Fatalf("stored run aliased caller memory: %q", got.Status)
	}
}

func TestClosedStore(t *testing.T) {
	s := New()
	ctx := context.Background()

	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := s.Ping(ctx); !errors.Is(err, synthetics.ErrStoreClosed) {
		t.Fatalf("Ping: got %v, want ErrStoreClosed", err)
	}
	if err := s.CreateRun(ctx, newRun(time.Now())); !errors.Is(err, synthetics.ErrStoreClosed) {
		t.Fatalf("CreateRun: got %v, want ErrStoreClosed", err)
	}
	if _, err := s.ListRuns(ctx, 0); !errors.Is(err, synthetics.ErrStoreClosed) {
		t.Fatalf("ListRuns: got %v, want ErrStoreClosed", err)
	}
}
