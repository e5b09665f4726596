package allocation

import (
	"fmt"
	"math"
	"sort"

	"github.com/opto-ai/opto/internal/modules/reference"
)

// RebalanceResult is the outcome of a single-asset weight change
type RebalanceResult struct {
	// Resolved is false when the target could not be matched to an asset;
	// everything else then echoes the input unchanged.
	Resolved      bool               `json:"resolved"`
	Target        reference.AssetKey `json:"target,omitempty"`
	Requested     string             `json:"requested"`
	PreviousValue float64            `json:"previous_value"`
	NewValue      float64            `json:"new_value"`
	Delta         float64            `json:"delta"`
	// Redistributed is false when the other weights were all zero and the
	// delta could not be spread.
	Redistributed bool              `json:"redistributed"`
	Allocation    Allocation        `json:"allocation"`
	Metrics       MetricChanges     `json:"metrics"`
	Display       DisplayAllocation `json:"asset_allocation"`
}

// Rebalance sets one asset class to value and spreads the difference over
// every other class in proportion to its current share of their combined
// weight. Other weights are rounded to one decimal place and rounding drift
// is absorbed by the largest of them, so the total is preserved.
//
// target may be a canonical key or a display name; an unresolvable target
// is not an error and yields the input unchanged with Resolved=false.
// prior is the caller's current metrics, used only for change tracking.
func Rebalance(
	table *reference.Table,
	current Allocation,
	prior PortfolioMetrics,
	target string,
	value float64,
) (*RebalanceResult, error) {
	before, err := normalizeAllocation(table, current)
	if err != nil {
		return nil, err
	}
	if math.IsNaN(value) || math.IsInf(value, 0) || value < 0 || value > 100 {
		return nil, fmt.Errorf("%w: %v is outside 0-100", ErrInvalidTarget, value)
	}

	key, ok := table.ResolveAsset(target)
	if !ok {
		return &RebalanceResult{
			Requested:  target,
			NewValue:   value,
			Allocation: before,
			Metrics:    unchangedMetrics(prior),
			Display:    BuildDisplay(table, before, before),
		}, nil
	}

	after, redistributed := redistribute(table, before, key, value)

	metrics, err := ComputeMetrics(table, after)
	if err != nil {
		return nil, err
	}

	return &RebalanceResult{
		Resolved:      true,
		Target:        key,
		Requested:     target,
		PreviousValue: before[key],
		NewValue:      value,
		Delta:         round1(value - before[key]),
		Redistributed: redistributed,
		Allocation:    after,
		Metrics:       TrackMetrics(metrics, prior),
		Display:       BuildDisplay(table, before, after),
	}, nil
}

// redistribute returns a new allocation with key set to value. The second
// result reports whether the delta was spread over other keys.
func redistribute(table *reference.Table, before Allocation, key reference.AssetKey, value float64) (Allocation, bool) {
	after := before.Clone()
	delta := value - before[key]
	after[key] = value
	if delta == 0 {
		return after, false
	}

	others := make([]reference.AssetKey, 0, len(after)-1)
	var othersTotal float64
	for _, k := range table.Keys() {
		if k == key {
			continue
		}
		others = append(others, k)
		othersTotal += before[k]
	}
	if othersTotal <= 0 {
		// Nothing to take from or scale up; other weights stay at zero.
		return after, false
	}

	// delta <= othersTotal whenever value <= 100 and the input sums to 100,
	// so shrinking never goes below zero before rounding; the clamp only
	// catches -0.0 style noise.
	for _, k := range others {
		share := before[k] / othersTotal
		after[k] = math.Max(0, round1(before[k]-delta*share))
	}

	absorbDrift(after, others, before.Total())
	return after, true
}

// absorbDrift moves the rounding residual between the expected total and
// the actual total onto the largest of the given keys.
func absorbDrift(a Allocation, keys []reference.AssetKey, expected float64) {
	residual := round1(expected - a.Total())
	if residual == 0 || len(keys) == 0 {
		return
	}

	sorted := make([]reference.AssetKey, len(keys))
	copy(sorted, keys)
	// Stable so equal weights keep table order.
	sort.SliceStable(sorted, func(i, j int) bool {
		return a[sorted[i]] > a[sorted[j]]
	})

	for _, k := range sorted {
		if adjusted := round1(a[k] + residual); adjusted >= 0 {
			a[k] = adjusted
			return
		}
	}
}
