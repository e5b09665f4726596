package testing

import (
	"github.com/opto-ai/opto/internal/modules/allocation"
	"github.com/opto-ai/opto/internal/modules/reference"
)

// NewAllocationFixture returns the demo client's current allocation:
// 2.5% in each private class, 54% bonds, 36% equities
func NewAllocationFixture() allocation.Allocation {
	return allocation.Allocation{
		reference.VentureCapital:  2.5,
		reference.PrivateEquity:   2.5,
		reference.RealEstateValue: 2.5,
		reference.RealEstateCore:  2.5,
		reference.PublicBonds:     54.0,
		reference.PublicEquities:  36.0,
	}
}

// NewStateFixture returns the allocation fixture with metrics computed
// against the embedded reference table
func NewStateFixture() allocation.State {
	current := NewAllocationFixture()
	metrics, err := allocation.ComputeMetrics(reference.Default(), current)
	if err != nil {
		panic(err)
	}
	return allocation.State{Allocation: current, Metrics: metrics}
}

// NewPortfolioDataFixture returns the fixture as the chat client sends it:
// canonical keys and rounded metrics
func NewPortfolioDataFixture() map[string]interface{} {
	state := NewStateFixture()

	allocations := make(map[string]float64, len(state.Allocation))
	for key, weight := range state.Allocation {
		allocations[string(key)] = weight
	}

	return map[string]interface{}{
		"allocations": allocations,
		"metrics": map[string]float64{
			"return":     state.Metrics.ReturnPct,
			"yield":      state.Metrics.YieldPct,
			"volatility": state.Metrics.VolatilityPct,
		},
	}
}
