package allocation

import (
	"math"

	"github.com/opto-ai/opto/internal/modules/reference"
)

// MaxShift caps how many percentage points one optimize call moves
const MaxShift = 5.0

// ShiftDescription says what optimize moved, for narration
type ShiftDescription struct {
	From   reference.AssetKey `json:"from"`
	To     reference.AssetKey `json:"to"`
	Amount float64            `json:"amount"`
}

// OptimizeResult is the outcome of the shift heuristic
type OptimizeResult struct {
	Shift      ShiftDescription  `json:"shift"`
	Allocation Allocation        `json:"allocation"`
	Metrics    MetricChanges     `json:"metrics"`
	Display    DisplayAllocation `json:"asset_allocation"`
}

// Optimize moves up to MaxShift points from the asset class with the lowest
// reference return to the one with the highest. It is a fixed heuristic,
// not a solver. Ties go to the first key in table order. The transfer is
// zero-sum and never exceeds what the source holds.
func Optimize(table *reference.Table, current Allocation, prior PortfolioMetrics) (*OptimizeResult, error) {
	before, err := normalizeAllocation(table, current)
	if err != nil {
		return nil, err
	}

	lowest, highest, err := returnExtremes(table)
	if err != nil {
		return nil, err
	}

	after := before.Clone()
	amount := math.Min(before[lowest], MaxShift)
	if lowest == highest {
		amount = 0
	}
	after[lowest] -= amount
	after[highest] += amount

	metrics, err := ComputeMetrics(table, after)
	if err != nil {
		return nil, err
	}

	return &OptimizeResult{
		Shift:      ShiftDescription{From: lowest, To: highest, Amount: amount},
		Allocation: after,
		Metrics:    TrackMetrics(metrics, prior),
		Display:    BuildDisplay(table, before, after),
	}, nil
}

// returnExtremes finds the lowest- and highest-return keys, first in table
// order winning ties.
func returnExtremes(table *reference.Table) (lowest, highest reference.AssetKey, err error) {
	var lo, hi float64
	for i, key := range table.Keys() {
		chars, err := table.Characteristics(key)
		if err != nil {
			return "", "", err
		}
		if i == 0 || chars.ReturnPct < lo {
			lowest, lo = key, chars.ReturnPct
		}
		if i == 0 || chars.ReturnPct > hi {
			highest, hi = key, chars.ReturnPct
		}
	}
	return lowest, highest, nil
}
