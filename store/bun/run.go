package bunstore

import (
	"context"
	"fmt"

	"github.com/paulb-elastic/synthetics"
	"github.com/paulb-elastic/synthetics/id"
	"github.com/paulb-elastic/synthetics/store"
)

// CreateRun persists a new run.
func (s *Store) CreateRun(ctx context.Context, r *store.Run) error {
	m := toRunModel(r)
	_, err := s.db.NewInsert().Model(m).Exec(ctx)
	if err != nil {
		if isDuplicateKey(err) {
			return fmt.Errorf("synthetics/bun: run %s already exists", r.ID)
		}
		return fmt.Errorf("synthetics/bun: create run: %w", err)
	}
	return nil
}

// UpdateRun persists changes to an existing run.
func (s *Store) UpdateRun(ctx context.Context, r *store.Run) error {
	m := toRunModel(r)
	res, err := s.db.NewUpdate().Model(m).WherePK().Exec(ctx)
	if err != nil {
		return fmt.Errorf("synthetics/bun: update run: %w", err)
	}
	rows, _ := res.RowsAffected() //nolint:errcheck // driver always returns nil
	if rows == 0 {
		return synthetics.ErrRunNotFound
	}
	return nil
}

// GetRun retrieves a run by ID.
func (s *Store) GetRun(ctx context.Context, runID id.ID) (*store.Run, error) {
	m := new(runModel)
	err := s.db.NewSelect().Model(m).
		Where("id = ?", runID.String()).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, synthetics.ErrRunNotFound
		}
		return nil, fmt.Errorf("synthetics/bun: get run: %w", err)
	}
	return fromRunModel(m)
}

// ListRuns returns up to limit runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]*store.Run, error) {
	var models []runModel
	q := s.db.NewSelect().Model(&models).
		Order("started_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("synthetics/bun: list runs: %w", err)
	}

	runs := make([]*store.Run, 0, len(models))
	for i := range models {
		r, convErr := fromRunModel(&models[i])
		if convErr != nil {
			return nil, convErr
		}
		runs = append(runs, r)
	}
	return runs, nil
}

// SaveJourney persists one journey outcome.
func (s *Store) SaveJourney(ctx context.Context, rec *store.JourneyRecord) error {
	m := toJourneyModel(rec)
	_, err := s.db.NewInsert().Model(m).Exec(ctx)
	if err != nil {
		return fmt.Errorf("synthetics/bun: save journey: %w", err)
	}
	return nil
}

// ListJourneys returns a run's journey records in insertion order.
func (s *Store) ListJourneys(ctx context.Context, runID id.ID) ([]*store.JourneyRecord, error) {
	var models []journeyModel
	err := s.db.NewSelect().Model(&models).
		Where("run_id = ?", runID.String()).
		Order("seq ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("synthetics/bun: list journeys: %w", err)
	}

	recs := make([]*store.JourneyRecord, 0, len(models))
	for i := range models {
		rec, convErr := fromJourneyModel(&models[i])
		if convErr != nil {
			return nil, convErr
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

// SaveStep persists one step outcome.
func (s *Store) SaveStep(ctx context.Context, rec *store.StepRecord) error {
	m := toStepModel(rec)
	_, err := s.db.NewInsert().Model(m).Exec(ctx)
	if err != nil {
		return fmt.Errorf("synthetics/bun: save step: %w", err)
	}
	return nil
}

// ListSteps returns a journey's step records ordered by index.
func (s *Store) ListSteps(ctx context.Context, journeyID id.ID) ([]*store.StepRecord, error) {
	var models []stepModel
	err := s.db.NewSelect().Model(&models).
		Where("journey_id = ?", journeyID.String()).
		Order("step_index ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("synthetics/bun: list steps: %w", err)
	}

	recs := make([]*store.StepRecord, 0, len(models))
	for i := range models {
		rec, convErr := fromStepModel(&models[i])
		if convErr != nil {
			return nil, convErr
		}
		recs = append(recs, rec)
	}
	return recs, nil
}
