// Package allocation implements the allocation engine: proportional
// rebalancing, metric recomputation, stress-scenario impact and the
// fixed shift heuristic used by optimize. Every function is pure; inputs
// are copied before any mutation.
package allocation

import (
	"errors"
	"fmt"
	"math"

	"github.com/opto-ai/opto/internal/modules/reference"
)

// Engine errors
var (
	// ErrInvalidAllocation reports negative, non-finite or badly scaled weights
	ErrInvalidAllocation = errors.New("invalid allocation")
	// ErrInvalidTarget reports a rebalance target outside [0, 100]
	ErrInvalidTarget = errors.New("invalid target percentage")
)

// TotalTolerance is how far an allocation may sum away from 100 and still
// be accepted. Client-side rounding of display values drifts by a few
// tenths at most.
const TotalTolerance = 1.0

// Allocation maps asset classes to weights in percent (0-100)
type Allocation map[reference.AssetKey]float64

// Clone returns an independent copy
func (a Allocation) Clone() Allocation {
	out := make(Allocation, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// Total sums every weight
func (a Allocation) Total() float64 {
	var sum float64
	for _, v := range a {
		sum += v
	}
	return sum
}

// PortfolioMetrics are the portfolio-level figures derived from an
// allocation. JSON names follow the dashboard payload.
type PortfolioMetrics struct {
	ReturnPct     float64 `json:"return"`
	YieldPct      float64 `json:"yield"`
	VolatilityPct float64 `json:"volatility"`
}

// MetricValue is a metric with its change against the prior value
type MetricValue struct {
	Value  float64 `json:"value"`
	Change float64 `json:"change"`
}

// MetricChanges is PortfolioMetrics with change tracking
type MetricChanges struct {
	Return     MetricValue `json:"return"`
	Yield      MetricValue `json:"yield"`
	Volatility MetricValue `json:"volatility"`
}

// Values strips the change fields
func (m MetricChanges) Values() PortfolioMetrics {
	return PortfolioMetrics{
		ReturnPct:     m.Return.Value,
		YieldPct:      m.Yield.Value,
		VolatilityPct: m.Volatility.Value,
	}
}

// DisplayCategory is one asset class row in the dashboard
type DisplayCategory struct {
	Key    reference.AssetKey `json:"key"`
	Name   string             `json:"name"`
	Value  float64            `json:"value"`
	Change float64            `json:"change"`
}

// DisplayGroup is a bucket of categories with its own total and change
type DisplayGroup struct {
	Total      float64           `json:"total"`
	Change     float64           `json:"change"`
	Categories []DisplayCategory `json:"categories"`
}

// DisplayAllocation is the nested, UI-facing shape of an allocation
type DisplayAllocation struct {
	Private DisplayGroup `json:"private"`
	Public  DisplayGroup `json:"public"`
}

// Validate checks that current only names known assets and holds finite,
// non-negative weights summing to 100 within TotalTolerance
func Validate(table *reference.Table, current Allocation) error {
	_, err := normalizeAllocation(table, current)
	return err
}

// normalizeAllocation checks an allocation against the table and returns a
// private copy holding every table key (missing keys read as zero).
func normalizeAllocation(table *reference.Table, current Allocation) (Allocation, error) {
	out := make(Allocation, len(table.Keys()))
	for _, key := range table.Keys() {
		out[key] = 0
	}
	for key, weight := range current {
		if !table.Has(key) {
			return nil, unknownAsset(key)
		}
		if math.IsNaN(weight) || math.IsInf(weight, 0) {
			return nil, fmt.Errorf("%w: weight for %q is not finite", ErrInvalidAllocation, key)
		}
		if weight < 0 {
			return nil, fmt.Errorf("%w: weight for %q is negative (%.2f)", ErrInvalidAllocation, key, weight)
		}
		out[key] = weight
	}
	if total := out.Total(); math.Abs(total-100) > TotalTolerance {
		return nil, fmt.Errorf("%w: weights sum to %.2f, expected 100", ErrInvalidAllocation, total)
	}
	return out, nil
}
