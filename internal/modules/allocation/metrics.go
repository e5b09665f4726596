package allocation

import (
	"fmt"

	"github.com/opto-ai/opto/internal/modules/reference"
	"gonum.org/v1/gonum/floats"
)

// ComputeMetrics derives portfolio return, yield and volatility as
// weight-averaged asset characteristics. Summation always follows the
// table's key order, so identical inputs give bit-identical outputs.
func ComputeMetrics(table *reference.Table, current Allocation) (PortfolioMetrics, error) {
	for key := range current {
		if !table.Has(key) {
			return PortfolioMetrics{}, unknownAsset(key)
		}
	}

	keys := table.Keys()
	weights := make([]float64, len(keys))
	returns := make([]float64, len(keys))
	yields := make([]float64, len(keys))
	vols := make([]float64, len(keys))

	for i, key := range keys {
		chars, err := table.Characteristics(key)
		if err != nil {
			return PortfolioMetrics{}, err
		}
		weights[i] = current[key] / 100
		returns[i] = chars.ReturnPct
		yields[i] = chars.YieldPct
		vols[i] = chars.VolatilityPct
	}

	return PortfolioMetrics{
		ReturnPct:     floats.Dot(weights, returns),
		YieldPct:      floats.Dot(weights, yields),
		VolatilityPct: floats.Dot(weights, vols),
	}, nil
}

// TrackMetrics rounds next for display and records its change against
// prior, both to one decimal.
func TrackMetrics(next, prior PortfolioMetrics) MetricChanges {
	return MetricChanges{
		Return:     MetricValue{Value: round1(next.ReturnPct), Change: round1(next.ReturnPct - prior.ReturnPct)},
		Yield:      MetricValue{Value: round1(next.YieldPct), Change: round1(next.YieldPct - prior.YieldPct)},
		Volatility: MetricValue{Value: round1(next.VolatilityPct), Change: round1(next.VolatilityPct - prior.VolatilityPct)},
	}
}

// unchangedMetrics echoes caller metrics with zero change
func unchangedMetrics(prior PortfolioMetrics) MetricChanges {
	return MetricChanges{
		Return:     MetricValue{Value: prior.ReturnPct},
		Yield:      MetricValue{Value: prior.YieldPct},
		Volatility: MetricValue{Value: prior.VolatilityPct},
	}
}

func unknownAsset(key reference.AssetKey) error {
	return fmt.Errorf("%w: %q", reference.ErrUnknownAsset, key)
}
