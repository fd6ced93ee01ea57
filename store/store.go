// Package store defines the run-history persistence interface.
//
// A backend records each run, the journeys it executed, and their step
// results, so monitor history can be queried after the fact.
//
// # Available Backends
//
//   - store/memory — in-memory store for development and testing
//   - store/bun — Bun ORM backend using PostgreSQL dialect
//
// # Migrations
//
// Call Migrate once at startup to create or update the schema:
//
//	if err := s.Migrate(ctx); err != nil {
//	    log.Fatal(err)
//	}
package store

import (
	"context"
	"time"

	"github.com/paulb-elastic/synthetics/driver"
	"github.com/paulb-elastic/synthetics/id"
)

// Run status values.
const (
	RunStatusRunning   = "running"
	RunStatusSucceeded = "succeeded"
	RunStatusFailed    = "failed"
)

// Run is one execution of the suite.
type Run struct {
	ID          id.ID
	Environment string
	Status      string
	NumJourneys int
	Error       string
	StartedAt   time.Time
	CompletedAt *time.Time
}

// JourneyRecord is the persisted outcome of one journey in a run.
type JourneyRecord struct {
	ID          id.ID
	RunID       id.ID
	Name        string
	Status      string
	Error       string
	StartedAt   time.Time
	CompletedAt *time.Time
}

// StepRecord is the persisted outcome of one step in a journey.
type StepRecord struct {
	ID        id.ID
	RunID     id.ID
	JourneyID id.ID
	Name      string
	Index     int
	Status    string
	URL       string
	Error     string
	Metrics   driver.Metrics
	Duration  time.Duration
	CreatedAt time.Time
}

// Store is the run-history persistence contract.
type Store interface {
	// CreateRun persists a new run in running state.
	CreateRun(ctx context.Context, r *Run) error

	// UpdateRun persists changes to an existing run. Returns
	// ErrRunNotFound when the run does not exist.
	UpdateRun(ctx context.Context, r *Run) error

	// GetRun retrieves a run by ID. Returns ErrRunNotFound when the
	// run does not exist.
	GetRun(ctx context.Context, runID id.ID) (*Run, error)

	// ListRuns returns up to limit runs, newest first. A limit of
	// zero or less means no limit.
	ListRuns(ctx context.Context, limit int) ([]*Run, error)

	// SaveJourney persists one journey outcome.
	SaveJourney(ctx context.Context, rec *JourneyRecord) error

	// ListJourneys returns a run's journey records in insertion
	// order.
	ListJourneys(ctx context.Context, runID id.ID) ([]*JourneyRecord, error)

	// SaveStep persists one step outcome.
	SaveStep(ctx context.Context, rec *StepRecord) error

	// ListSteps returns a journey's step records ordered by index.
	ListSteps(ctx context.Context, journeyID id.ID) ([]*StepRecord, error)

	// Migrate runs all schema migrations.
	Migrate(ctx context.Context) error

	// Ping checks backend connectivity.
	Ping(ctx context.Context) error

	// Close closes the store connection.
	Close() error
}
