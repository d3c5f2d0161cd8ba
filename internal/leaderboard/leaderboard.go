// Package leaderboard persists evaluation results to a single CSV file
// (spec.md §6 "Leaderboard file"). encoding/csv is the stdlib: no
// third-party CSV library appears anywhere in the retrieved pack, so this
// is the one ambient concern left on the standard library (see DESIGN.md).
package leaderboard

import (
	"crypto/rand"
	"encoding/csv"
	"encoding/hex"
	"fmt"
	"os"
)

var header = []string{
	"run_id", "timestamp", "agent_name", "scenario_id", "composite_score",
	"sla_quality", "energy_efficiency", "carbon", "thermal_safety", "cost",
	"infra_health", "failure_response", "duration_ticks", "total_sim_time_s",
}

// Row is one leaderboard entry.
type Row struct {
	RunID            string  `json:"run_id"`
	Timestamp        string  `json:"timestamp"`
	AgentName        string  `json:"agent_name"`
	ScenarioID       string  `json:"scenario_id"`
	CompositeScore   float64 `json:"composite_score"`
	SLAQuality       float64 `json:"sla_quality"`
	EnergyEfficiency float64 `json:"energy_efficiency"`
	Carbon           float64 `json:"carbon"`
	ThermalSafety    float64 `json:"thermal_safety"`
	Cost             float64 `json:"cost"`
	InfraHealth      float64 `json:"infra_health"`
	FailureResponse  float64 `json:"failure_response"`
	DurationTicks    int64   `json:"duration_ticks"`
	TotalSimTimeS    float64 `json:"total_sim_time_s"`
}

// Store is a single CSV file at a fixed path.
type Store struct {
	path string
}

// New creates a Store for the given CSV path. The file is created with the
// header on first Record if it does not already exist.
func New(path string) *Store {
	return &Store{path: path}
}

// Path returns the CSV file path this Store writes to.
func (s *Store) Path() string { return s.path }

// NewRunID generates an 8-char hex run id.
func NewRunID() (string, error) {
	b := make([]byte, 4)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func round2(v float64) string {
	return fmt.Sprintf("%.2f", v)
}

// Record appends one row, creating the file with its header if absent.
func (s *Store) Record(r Row) error {
	exists := true
	if _, err := os.Stat(s.path); os.IsNotExist(err) {
		exists = false
	}

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if !exists {
		if err := w.Write(header); err != nil {
			return err
		}
	}

	row := []string{
		r.RunID, r.Timestamp, r.AgentName, r.ScenarioID,
		round2(r.CompositeScore), round2(r.SLAQuality), round2(r.EnergyEfficiency),
		round2(r.Carbon), round2(r.ThermalSafety), round2(r.Cost),
		round2(r.InfraHealth), round2(r.FailureResponse),
		fmt.Sprintf("%d", r.DurationTicks), fmt.Sprintf("%.1f", r.TotalSimTimeS),
	}
	return w.Write(row)
}

// Load reads every row back from the CSV file. A missing file returns an
// empty slice, not an error.
func Load(path string) ([]Row, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) <= 1 {
		return nil, nil
	}

	rows := make([]Row, 0, len(records)-1)
	for _, rec := range records[1:] {
		if len(rec) != len(header) {
			continue
		}
		var row Row
		row.RunID = rec[0]
		row.Timestamp = rec[1]
		row.AgentName = rec[2]
		row.ScenarioID = rec[3]
		fmt.Sscanf(rec[4], "%f", &row.CompositeScore)
		fmt.Sscanf(rec[5], "%f", &row.SLAQuality)
		fmt.Sscanf(rec[6], "%f", &row.EnergyEfficiency)
		fmt.Sscanf(rec[7], "%f", &row.Carbon)
		fmt.Sscanf(rec[8], "%f", &row.ThermalSafety)
		fmt.Sscanf(rec[9], "%f", &row.Cost)
		fmt.Sscanf(rec[10], "%f", &row.InfraHealth)
		fmt.Sscanf(rec[11], "%f", &row.FailureResponse)
		fmt.Sscanf(rec[12], "%d", &row.DurationTicks)
		fmt.Sscanf(rec[13], "%f", &row.TotalSimTimeS)
		rows = append(rows, row)
	}
	return rows, nil
}
