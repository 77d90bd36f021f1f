package store

import (
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"freettes/model"
)

// schema.sql creates the runs table and one row per macro step.
//
//go:embed schema.sql
var schemaSQL string

// History records runs and their step outputs in sqlite.
type History struct {
	*sql.DB
}

// Run is one row of the runs table.
type Run struct {
	ID         string
	StartedAt  time.Time
	FinishedAt *time.Time
	Status     string
	Config     string
	Scenario   string
}

func OpenHistory(path string) (*History, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history %s: %w", path, err)
	}
	// one writer; sqlite serialises anyway
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create history schema: %w", err)
	}
	log.WithField("path", path).Debug("history opened")
	return &History{db}, nil
}

// StartRun stores the configuration and scenario as JSON and returns the new
// run id.
func (h *History) StartRun(cfg, scenario any) (string, error) {
	c, err := json.Marshal(cfg)
	if err != nil {
		return "", fmt.Errorf("failed to encode config: %w", err)
	}
	s, err := json.Marshal(scenario)
	if err != nil {
		return "", fmt.Errorf("failed to encode scenario: %w", err)
	}
	id := uuid.New().String()
	_, err = h.Exec(`INSERT INTO runs (id, started_at, config, scenario) VALUES (?, ?, ?, ?)`,
		id, time.Now().UnixMilli(), string(c), string(s))
	if err != nil {
		return "", fmt.Errorf("failed to start run: %w", err)
	}
	return id, nil
}

// FinishRun sets the final status, e.g. "done", "stopped" or "failed".
func (h *History) FinishRun(id, status string) error {
	res, err := h.Exec(`UPDATE runs SET finished_at = ?, status = ? WHERE id = ?`,
		time.Now().UnixMilli(), status, id)
	if err != nil {
		return fmt.Errorf("failed to finish run %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("run %s not found", id)
	}
	return nil
}

func (h *History) RecordStep(r model.StepReport) error {
	_, err := h.Exec(`
		INSERT INTO steps (run_id, t, phase, outlet_temp, usable_mass, usable_energy, max_usable_mass,
			total_mass, total_energy, bottom_diffuser_temp, top_diffuser_temp, loss_total,
			time_to_empty, level, bottom_pressure)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RunID, r.T, r.Phase, r.OutletTemp, r.UsableMass, r.UsableEnergy, r.MaxUsableMass,
		r.TotalMass, r.TotalEnergy, r.BottomDiffuserTemp, r.TopDiffuserTemp, r.LossTotal,
		r.TimeToEmpty, r.Level, r.BottomPressure)
	if err != nil {
		return fmt.Errorf("failed to record step t = %v h of run %s: %w", r.T, r.RunID, err)
	}
	return nil
}

func (h *History) Run(id string) (Run, error) {
	var (
		r        Run
		started  int64
		finished sql.NullInt64
	)
	err := h.QueryRow(`SELECT id, started_at, finished_at, status, config, scenario FROM runs WHERE id = ?`, id).
		Scan(&r.ID, &started, &finished, &r.Status, &r.Config, &r.Scenario)
	if err != nil {
		return r, fmt.Errorf("failed to get run %s: %w", id, err)
	}
	r.StartedAt = time.UnixMilli(started)
	if finished.Valid {
		t := time.UnixMilli(finished.Int64)
		r.FinishedAt = &t
	}
	return r, nil
}

// Steps returns the recorded steps of a run ordered by time.
func (h *History) Steps(id string) ([]model.StepReport, error) {
	rows, err := h.Query(`
		SELECT t, phase, outlet_temp, usable_mass, usable_energy, max_usable_mass, total_mass,
			total_energy, bottom_diffuser_temp, top_diffuser_temp, loss_total, time_to_empty,
			level, bottom_pressure
		FROM steps WHERE run_id = ? ORDER BY t`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query steps of run %s: %w", id, err)
	}
	defer rows.Close()

	var out []model.StepReport
	for rows.Next() {
		r := model.StepReport{RunID: id}
		if err := rows.Scan(&r.T, &r.Phase, &r.OutletTemp, &r.UsableMass, &r.UsableEnergy,
			&r.MaxUsableMass, &r.TotalMass, &r.TotalEnergy, &r.BottomDiffuserTemp,
			&r.TopDiffuserTemp, &r.LossTotal, &r.TimeToEmpty, &r.Level, &r.BottomPressure); err != nil {
			return nil, fmt.Errorf("failed to scan step of run %s: %w", id, err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
