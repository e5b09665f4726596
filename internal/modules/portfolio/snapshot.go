package portfolio

import (
	"fmt"
	"math"

	"github.com/opto-ai/opto/internal/modules/allocation"
	"github.com/opto-ai/opto/internal/modules/reference"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// ProjectedValue compares the current and target allocations over time
type ProjectedValue struct {
	Current []YearValue `json:"current"`
	Target  []YearValue `json:"target"`
}

// HistoricalAnalysis is the dashboard's history panel
type HistoricalAnalysis struct {
	AllTime            PeriodValue `json:"allTime"`
	FinancialCrisis    PeriodValue `json:"financialCrisis"`
	EuropeanDebtCrisis PeriodValue `json:"europeanDebtCrisis"`
	InflationData      []YearValue `json:"inflationData"`
}

// Snapshot is the /portfolio-data payload
type Snapshot struct {
	PortfolioType      string                       `json:"portfolioType"`
	ReferenceVersion   string                       `json:"referenceVersion"`
	Metrics            allocation.MetricChanges     `json:"metrics"`
	AssetAllocation    allocation.DisplayAllocation `json:"assetAllocation"`
	ProjectedValue     ProjectedValue               `json:"projectedValue"`
	HistoricalAnalysis HistoricalAnalysis           `json:"historicalAnalysis"`
}

// Service builds snapshots from the dashboard document and the current
// reference table
type Service struct {
	dashboard *Dashboard
	store     *reference.Store
	log       zerolog.Logger
}

// NewService creates a new dashboard service
func NewService(dashboard *Dashboard, store *reference.Store, log zerolog.Logger) *Service {
	return &Service{
		dashboard: dashboard,
		store:     store,
		log:       log.With().Str("service", "portfolio").Logger(),
	}
}

// Snapshot computes the dashboard against the reference table in effect
func (s *Service) Snapshot() (*Snapshot, error) {
	return BuildSnapshot(s.store.Current(), s.dashboard)
}

// CurrentState returns the dashboard's current allocation with its metrics
func (s *Service) CurrentState() (allocation.State, error) {
	table := s.store.Current()
	metrics, err := allocation.ComputeMetrics(table, s.dashboard.Current)
	if err != nil {
		return allocation.State{}, err
	}
	return allocation.State{Allocation: s.dashboard.Current.Clone(), Metrics: metrics}, nil
}

// BuildSnapshot derives every dashboard figure for d from table
func BuildSnapshot(table *reference.Table, d *Dashboard) (*Snapshot, error) {
	for name, a := range map[string]allocation.Allocation{
		"baseline": d.Baseline,
		"current":  d.Current,
		"target":   d.Target,
	} {
		if err := allocation.Validate(table, a); err != nil {
			return nil, fmt.Errorf("dashboard %s allocation: %w", name, err)
		}
	}

	baseline, err := allocation.ComputeMetrics(table, d.Baseline)
	if err != nil {
		return nil, err
	}
	current, err := allocation.ComputeMetrics(table, d.Current)
	if err != nil {
		return nil, err
	}
	target, err := allocation.ComputeMetrics(table, d.Target)
	if err != nil {
		return nil, err
	}

	financial, err := crisisImpact(table, d.Current, d.Historical.FinancialCrisisScenario)
	if err != nil {
		return nil, err
	}
	european, err := crisisImpact(table, d.Current, d.Historical.EuropeanDebtCrisisScenario)
	if err != nil {
		return nil, err
	}

	inflation := make([]YearValue, len(d.Historical.Inflation))
	copy(inflation, d.Historical.Inflation)

	return &Snapshot{
		PortfolioType:    d.PortfolioType,
		ReferenceVersion: table.Version(),
		Metrics:          allocation.TrackMetrics(current, baseline),
		AssetAllocation:  allocation.BuildDisplay(table, d.Baseline, d.Current),
		ProjectedValue: ProjectedValue{
			Current: project(d.Projection, current.ReturnPct),
			Target:  project(d.Projection, target.ReturnPct),
		},
		HistoricalAnalysis: HistoricalAnalysis{
			AllTime:            d.Historical.AllTime,
			FinancialCrisis:    financial,
			EuropeanDebtCrisis: european,
			InflationData:      inflation,
		},
	}, nil
}

// crisisImpact replays a named scenario. An empty name yields a zero value.
func crisisImpact(table *reference.Table, current allocation.Allocation, scenario string) (PeriodValue, error) {
	if scenario == "" {
		return PeriodValue{}, nil
	}
	impact, err := allocation.AnalyzeScenario(table, current, scenario)
	if err != nil {
		return PeriodValue{}, fmt.Errorf("dashboard crisis scenario: %w", err)
	}
	return PeriodValue{Period: impact.Period, Value: impact.TotalImpact}, nil
}

// project compounds the start value at returnPct a year
func project(p Projection, returnPct float64) []YearValue {
	growth := 1 + returnPct/100
	var out []YearValue
	for year := p.StartYear; year <= p.EndYear; year += p.StepYears {
		value := p.StartValue * math.Pow(growth, float64(year-p.StartYear))
		out = append(out, YearValue{
			Year:  year,
			Value: decimal.NewFromFloat(value).Round(1).InexactFloat64(),
		})
	}
	return out
}
