package bunstore

import (
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"github.com/paulb-elastic/synthetics/id"
	"github.com/paulb-elastic/synthetics/store"
)

// ── Run model ─────────────────────────────────────────────────────

type runModel struct {
	bun.BaseModel `bun:"table:synthetics_runs"`

	ID          string     `bun:"id,pk"`
	Environment string     `bun:"environment,notnull,default:'development'"`
	Status      string     `bun:"status,notnull,default:'running'"`
	NumJourneys int        `bun:"num_journeys,notnull,default:0"`
	Error       string     `bun:"error"`
	StartedAt   time.Time  `bun:"started_at,notnull,default:current_timestamp"`
	CompletedAt *time.Time `bun:"completed_at"`
}

func toRunModel(r *store.Run) *runModel {
	return &runModel{
		ID:          r.ID.String(),
		Environment: r.Environment,
		Status:      r.Status,
		NumJourneys: r.NumJourneys,
		Error:       r.Error,
		StartedAt:   r.StartedAt,
		CompletedAt: r.CompletedAt,
	}
}

func fromRunModel(m *runModel) (*store.Run, error) {
	parsedID, err := id.ParseRunID(m.ID)
	if err != nil {
		return nil, fmt.Errorf("synthetics/bun: parse run id %q: %w", m.ID, err)
	}
	return &store.Run{
		ID:          parsedID,
		Environment: m.Environment,
		Status:      m.Status,
		NumJourneys: m.NumJourneys,
		Error:       m.Error,
		StartedAt:   m.StartedAt,
		CompletedAt: m.CompletedAt,
	}, nil
}

// ── Journey model ─────────────────────────────────────────────────

type journeyModel struct {
	bun.BaseModel `bun:"table:synthetics_journeys"`

	ID          string     `bun:"id,pk"`
	RunID       string     `bun:"run_id,notnull"`
	Name        string     `bun:"name,notnull"`
	Status      string     `bun:"status,notnull"`
	Error       string     `bun:"error"`
	StartedAt   time.Time  `bun:"started_at,notnull,default:current_timestamp"`
	CompletedAt *time.Time `bun:"completed_at"`
	Seq         int64      `bun:"seq,scanonly"`
}

func toJourneyModel(rec *store.JourneyRecord) *journeyModel {
	return &journeyModel{
		ID:          rec.ID.String(),
		RunID:       rec.RunID.String(),
		Name:        rec.Name,
		Status:      rec.Status,
		Error:       rec.Error,
		StartedAt:   rec.StartedAt,
		CompletedAt: rec.CompletedAt,
	}
}

func fromJourneyModel(m *journeyModel) (*store.JourneyRecord, error) {
	parsedID, err := id.ParseJourneyID(m.ID)
	if err != nil {
		return nil, fmt.Errorf("synthetics/bun: parse journey id %q: %w", m.ID, err)
	}
	runID, err := id.ParseRunID(m.RunID)
	if err != nil {
		return nil, fmt.Errorf("synthetics/bun: parse run id %q: %w", m.RunID, err)
	}
	return &store.JourneyRecord{
		ID:          parsedID,
		RunID:       runID,
		Name:        m.Name,
		Status:      m.Status,
		Error:       m.Error,
		StartedAt:   m.StartedAt,
		CompletedAt: m.CompletedAt,
	}, nil
}

// ── Step model ────────────────────────────────────────────────────

type stepModel struct {
	bun.BaseModel `bun:"table:synthetics_steps"`

	ID        string             `bun:"id,pk"`
	RunID     string             `bun:"run_id,notnull"`
	JourneyID string             `bun:"journey_id,notnull"`
	Name      string             `bun:"name,notnull"`
	Index     int                `bun:"step_index,notnull,default:0"`
	Status    string             `bun:"status,notnull"`
	URL       string             `bun:"url"`
	Error     string             `bun:"error"`
	Metrics   map[string]float64 `bun:"metrics,type:jsonb"`
	Duration  int64              `bun:"duration,notnull,default:0"`
	CreatedAt time.Time          `bun:"created_at,notnull,default:current_timestamp"`
}

func toStepModel(rec *store.StepRecord) *stepModel {
	return &stepModel{
		ID:        rec.ID.String(),
		RunID:     rec.RunID.String(),
		JourneyID: rec.JourneyID.String(),
		Name:      rec.Name,
		Index:     rec.Index,
		Status:    rec.Status,
		URL:       rec.URL,
		Error:     rec.Error,
		Metrics:   rec.Metrics,
		Duration:  rec.Duration.Nanoseconds(),
		CreatedAt: rec.CreatedAt,
	}
}

func fromStepModel(m *stepModel) (*store.StepRecord, error) {
	parsedID, err := id.ParseStepID(m.ID)
	if err != nil {
		return nil, fmt.Errorf("synthetics/bun: parse step id %q: %w", m.ID, err)
	}
	runID, err := id.ParseRunID(m.RunID)
	if err != nil {
		return nil, fmt.Errorf("synthetics/bun: parse run id %q: %w", m.RunID, err)
	}
	journeyID, err := id.ParseJourneyID(m.JourneyID)
	if err != nil {
		return nil, fmt.Errorf("synthetics/bun: parse journey id %q: %w", m.JourneyID, err)
	}
	return &store.StepRecord{
		ID:        parsedID,
		RunID:     runID,
		JourneyID: journeyID,
		Name:      m.Name,
		Index:     m.Index,
		Status:    m.Status,
		URL:       m.URL,
		Error:     m.Error,
		Metrics:   m.Metrics,
		Duration:  time.Duration(m.Duration),
		CreatedAt: m.CreatedAt,
	}, nil
}
