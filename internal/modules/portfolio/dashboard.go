// Package portfolio builds the dashboard snapshot served at /portfolio-data.
// Allocations come from a small YAML document; every figure derived from
// them (metrics, projections, crisis impacts) is computed by the allocation
// engine against the reference table in effect.
package portfolio

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"os"

	"github.com/opto-ai/opto/internal/modules/allocation"
	"gopkg.in/yaml.v3"
)

//go:embed data/dashboard.yaml
var defaultDashboard []byte

// YearValue is one point of a time series
type YearValue struct {
	Year  int     `json:"year" yaml:"year"`
	Value float64 `json:"value" yaml:"value"`
}

// PeriodValue is a labelled figure for a historical period
type PeriodValue struct {
	Period string  `json:"period" yaml:"period"`
	Value  float64 `json:"value" yaml:"value"`
}

// Projection controls the compounding series
type Projection struct {
	StartYear  int     `yaml:"start_year"`
	EndYear    int     `yaml:"end_year"`
	StepYears  int     `yaml:"step_years"`
	StartValue float64 `yaml:"start_value"`
}

// Historical holds the static history plus the scenarios replayed against
// the current allocation
type Historical struct {
	AllTime                    PeriodValue `yaml:"all_time"`
	FinancialCrisisScenario    string      `yaml:"financial_crisis_scenario"`
	EuropeanDebtCrisisScenario string      `yaml:"european_debt_crisis_scenario"`
	Inflation                  []YearValue `yaml:"inflation"`
}

// Dashboard is the demo portfolio document
type Dashboard struct {
	PortfolioType string                `yaml:"portfolio_type"`
	Baseline      allocation.Allocation `yaml:"baseline"`
	Current       allocation.Allocation `yaml:"current"`
	Target        allocation.Allocation `yaml:"target"`
	Projection    Projection            `yaml:"projection"`
	Historical    Historical            `yaml:"historical"`
}

// DefaultDashboard returns the dashboard embedded in the binary
func DefaultDashboard() (*Dashboard, error) {
	return ParseDashboard(defaultDashboard)
}

// LoadDashboard reads a dashboard document from disk
func LoadDashboard(path string) (*Dashboard, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read dashboard: %w", err)
	}
	return ParseDashboard(data)
}

// ParseDashboard decodes a dashboard document. Allocations are checked
// against the reference table later, when a snapshot is built.
func ParseDashboard(data []byte) (*Dashboard, error) {
	var d Dashboard
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&d); err != nil {
		return nil, fmt.Errorf("failed to decode dashboard: %w", err)
	}

	if d.PortfolioType == "" {
		return nil, errors.New("dashboard: portfolio_type is required")
	}
	if len(d.Current) == 0 {
		return nil, errors.New("dashboard: current allocation is required")
	}
	if len(d.Baseline) == 0 {
		d.Baseline = d.Current.Clone()
	}
	if len(d.Target) == 0 {
		d.Target = d.Current.Clone()
	}

	p := d.Projection
	if p.StepYears <= 0 || p.EndYear < p.StartYear || p.StartValue < 0 {
		return nil, fmt.Errorf("dashboard: invalid projection %d-%d step %d", p.StartYear, p.EndYear, p.StepYears)
	}

	return &d, nil
}
