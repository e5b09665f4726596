package allocation

import (
	"math"
	"testing"

	"github.com/opto-ai/opto/internal/modules/reference"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func balancedAllocation() Allocation {
	return Allocation{
		reference.VentureCapital:  2.5,
		reference.PrivateEquity:   2.5,
		reference.RealEstateValue: 2.5,
		reference.RealEstateCore:  2.5,
		reference.PublicBonds:     54.0,
		reference.PublicEquities:  36.0,
	}
}

func mustMetrics(t *testing.T, table *reference.Table, a Allocation) PortfolioMetrics {
	t.Helper()
	m, err := ComputeMetrics(table, a)
	require.NoError(t, err)
	return m
}

func TestRebalance_ConcreteScenario(t *testing.T) {
	table := reference.Default()
	current := balancedAllocation()

	res, err := Rebalance(table, current, mustMetrics(t, table, current), "public_bonds", 60.0)
	require.NoError(t, err)

	require.True(t, res.Resolved)
	assert.Equal(t, reference.PublicBonds, res.Target)
	assert.Equal(t, 54.0, res.PreviousValue)
	assert.Equal(t, 6.0, res.Delta)
	assert.True(t, res.Redistributed)
	assert.Equal(t, 60.0, res.Allocation[reference.PublicBonds])

	var othersTotal float64
	for key, weight := range res.Allocation {
		if key == reference.PublicBonds {
			continue
		}
		othersTotal += weight
		// Each shrinks in proportion to its share of the 46 held by others.
		expected := current[key] - 6.0*current[key]/46.0
		assert.InDelta(t, expected, weight, 0.15, "asset %s", key)
		assert.Less(t, weight, current[key], "asset %s should shrink", key)
	}
	assert.InDelta(t, 40.0, othersTotal, 1e-9)
	assert.InDelta(t, 100.0, res.Allocation.Total(), 1e-9)
}

func TestRebalance_DoesNotMutateInput(t *testing.T) {
	table := reference.Default()
	current := balancedAllocation()
	snapshot := current.Clone()

	_, err := Rebalance(table, current, PortfolioMetrics{}, "public_equities", 10)
	require.NoError(t, err)

	assert.Equal(t, snapshot, current)
}

func TestRebalance_Conservation(t *testing.T) {
	table := reference.Default()
	allocations := []Allocation{
		balancedAllocation(),
		{
			reference.VentureCapital: 10, reference.PrivateEquity: 15, reference.RealEstateValue: 7.3,
			reference.RealEstateCore: 12.7, reference.PublicBonds: 25, reference.PublicEquities: 30,
		},
		{
			reference.VentureCapital: 0, reference.PrivateEquity: 0, reference.RealEstateValue: 0.1,
			reference.RealEstateCore: 0, reference.PublicBonds: 99.9, reference.PublicEquities: 0,
		},
		{
			reference.VentureCapital: 16.6, reference.PrivateEquity: 16.7, reference.RealEstateValue: 16.7,
			reference.RealEstateCore: 16.7, reference.PublicBonds: 16.6, reference.PublicEquities: 16.7,
		},
	}
	targets := []float64{0, 0.1, 1, 3.3, 17.77, 33.3, 50, 66.6, 99.9, 100}

	for _, current := range allocations {
		for _, key := range table.Keys() {
			for _, value := range targets {
				res, err := Rebalance(table, current, PortfolioMetrics{}, string(key), value)
				require.NoError(t, err)

				if !res.Redistributed && res.Delta != 0 {
					continue // all other weights were zero
				}
				assert.InDelta(t, 100.0, res.Allocation.Total(), 0.1,
					"rebalance %s to %v from %v", key, value, current)
				for k, w := range res.Allocation {
					assert.GreaterOrEqual(t, w, 0.0, "weight of %s went negative", k)
				}
			}
		}
	}
}

func TestRebalance_NoNegativeWeightsOnLargeDelta(t *testing.T) {
	table := reference.Default()
	current := balancedAllocation()

	res, err := Rebalance(table, current, PortfolioMetrics{}, "venture_capital", 100)
	require.NoError(t, err)

	assert.Equal(t, 100.0, res.Allocation[reference.VentureCapital])
	for key, weight := range res.Allocation {
		if key != reference.VentureCapital {
			assert.Equal(t, 0.0, weight, "asset %s", key)
		}
	}
}

func TestRebalance_Identity(t *testing.T) {
	table := reference.Default()
	current := balancedAllocation()
	prior := mustMetrics(t, table, current)

	res, err := Rebalance(table, current, prior, "public_bonds", 54.0)
	require.NoError(t, err)

	assert.Equal(t, current, res.Allocation)
	assert.Equal(t, 0.0, res.Delta)
	assert.False(t, res.Redistributed)
	assert.Equal(t, 0.0, res.Metrics.Return.Change)
	assert.Equal(t, 0.0, res.Metrics.Yield.Change)
	assert.Equal(t, 0.0, res.Metrics.Volatility.Change)
	for _, group := range []DisplayGroup{res.Display.Private, res.Display.Public} {
		assert.Equal(t, 0.0, group.Change)
		for _, c := range group.Categories {
			assert.Equal(t, 0.0, c.Change, "category %s", c.Name)
		}
	}
}

func TestRebalance_ShrinkingTargetGrowsOthers(t *testing.T) {
	table := reference.Default()
	current := balancedAllocation()

	res, err := Rebalance(table, current, PortfolioMetrics{}, "Public bonds", 44.0)
	require.NoError(t, err)

	assert.Equal(t, -10.0, res.Delta)
	assert.Equal(t, 44.0, res.Allocation[reference.PublicBonds])
	// 36 + 10*36/46 = 43.83, plus the rounding residual as the largest other
	assert.InDelta(t, 43.83, res.Allocation[reference.PublicEquities], 0.25)
	assert.Greater(t, res.Allocation[reference.VentureCapital], 2.5)
	assert.InDelta(t, 100.0, res.Allocation.Total(), 1e-9)
}

func TestRebalance_AllOthersZero(t *testing.T) {
	table := reference.Default()
	current := Allocation{reference.PublicBonds: 100}

	res, err := Rebalance(table, current, PortfolioMetrics{}, "public_bonds", 80)
	require.NoError(t, err)

	assert.True(t, res.Resolved)
	assert.False(t, res.Redistributed)
	assert.Equal(t, 80.0, res.Allocation[reference.PublicBonds])
	for _, key := range table.Keys() {
		if key != reference.PublicBonds {
			assert.Equal(t, 0.0, res.Allocation[key])
		}
	}
}

func TestRebalance_UnresolvedTargetIsNoOp(t *testing.T) {
	table := reference.Default()
	current := balancedAllocation()
	prior := PortfolioMetrics{ReturnPct: 13.7, YieldPct: 0.4, VolatilityPct: 10.8}

	res, err := Rebalance(table, current, prior, "real estate", 20)
	require.NoError(t, err)

	assert.False(t, res.Resolved)
	assert.Empty(t, res.Target)
	assert.Equal(t, current, res.Allocation)
	assert.Equal(t, prior, res.Metrics.Values())
	assert.Equal(t, 0.0, res.Metrics.Return.Change)
	assert.Equal(t, 10.0, res.Display.Private.Total)
	assert.Equal(t, 90.0, res.Display.Public.Total)
}

func TestRebalance_MetricChangesAgainstPrior(t *testing.T) {
	table := reference.Default()
	current := balancedAllocation()
	prior := mustMetrics(t, table, current)

	res, err := Rebalance(table, current, prior, "public_equities", 46)
	require.NoError(t, err)

	next := mustMetrics(t, table, res.Allocation)
	assert.Equal(t, round1(next.ReturnPct), res.Metrics.Return.Value)
	assert.Equal(t, round1(next.ReturnPct-prior.ReturnPct), res.Metrics.Return.Change)
	assert.Greater(t, res.Metrics.Return.Change, 0.0, "more equities than bonds raises return")
}

func TestRebalance_Errors(t *testing.T) {
	table := reference.Default()

	tests := []struct {
		name    string
		current Allocation
		value   float64
		wantErr error
	}{
		{"target above 100", balancedAllocation(), 100.5, ErrInvalidTarget},
		{"negative target", balancedAllocation(), -1, ErrInvalidTarget},
		{"NaN target", balancedAllocation(), math.NaN(), ErrInvalidTarget},
		{"unknown asset in allocation", Allocation{"crypto": 100}, 10, reference.ErrUnknownAsset},
		{"negative weight", Allocation{reference.PublicBonds: 110, reference.PublicEquities: -10}, 10, ErrInvalidAllocation},
		{"does not sum to 100", Allocation{reference.PublicBonds: 50}, 10, ErrInvalidAllocation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Rebalance(table, tt.current, PortfolioMetrics{}, "public_bonds", tt.value)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestComputeMetrics_WeightedSums(t *testing.T) {
	table := reference.Default()

	m, err := ComputeMetrics(table, Allocation{reference.PublicBonds: 50, reference.PublicEquities: 50})
	require.NoError(t, err)

	bonds, _ := table.Characteristics(reference.PublicBonds)
	equities, _ := table.Characteristics(reference.PublicEquities)
	assert.InDelta(t, (bonds.ReturnPct+equities.ReturnPct)/2, m.ReturnPct, 1e-12)
	assert.InDelta(t, (bonds.YieldPct+equities.YieldPct)/2, m.YieldPct, 1e-12)
	assert.InDelta(t, (bonds.VolatilityPct+equities.VolatilityPct)/2, m.VolatilityPct, 1e-12)
}

func TestComputeMetrics_Deterministic(t *testing.T) {
	table := reference.Default()
	current := Allocation{
		reference.VentureCapital: 3.3, reference.PrivateEquity: 7.1, reference.RealEstateValue: 11.9,
		reference.RealEstateCore: 13.7, reference.PublicBonds: 41.3, reference.PublicEquities: 22.7,
	}

	first := mustMetrics(t, table, current)
	for i := 0; i < 50; i++ {
		again := mustMetrics(t, table, current.Clone())
		assert.Equal(t, math.Float64bits(first.ReturnPct), math.Float64bits(again.ReturnPct))
		assert.Equal(t, math.Float64bits(first.YieldPct), math.Float64bits(again.YieldPct))
		assert.Equal(t, math.Float64bits(first.VolatilityPct), math.Float64bits(again.VolatilityPct))
	}
}

func TestComputeMetrics_UnknownAsset(t *testing.T) {
	_, err := ComputeMetrics(reference.Default(), Allocation{"gold": 100})
	assert.ErrorIs(t, err, reference.ErrUnknownAsset)
}

func TestAnalyzeScenario(t *testing.T) {
	table := reference.Default()
	current := balancedAllocation()

	res, err := AnalyzeScenario(table, current, "financial_crisis")
	require.NoError(t, err)

	assert.Equal(t, "financial_crisis", res.Scenario)
	assert.Equal(t, "2007-2009", res.Period)
	require.Len(t, res.Impacts, 6)

	stress, _ := table.ScenarioImpact("financial_crisis")
	var sum float64
	for _, impact := range res.Impacts {
		expected := round2(current[impact.Key] * stress[impact.Key] / 100)
		assert.Equal(t, expected, impact.Impact, "asset %s", impact.Key)
		sum += current[impact.Key] * stress[impact.Key] / 100
	}
	assert.Equal(t, round2(sum), res.TotalImpact)
	// 54% bonds at +6 and 36% equities at -51 dominate
	assert.Less(t, res.TotalImpact, 0.0)
}

func TestAnalyzeScenario_ZeroWeightHasZeroImpact(t *testing.T) {
	table := reference.Default()

	for _, name := range table.ScenarioNames() {
		res, err := AnalyzeScenario(table, Allocation{reference.PublicBonds: 100, reference.VentureCapital: 0}, name)
		require.NoError(t, err)

		for _, impact := range res.Impacts {
			if impact.Key == reference.VentureCapital {
				assert.Equal(t, 0.0, impact.Impact, "scenario %s", name)
			}
		}
	}
}

func TestAnalyzeScenario_OnlyAssetsPresent(t *testing.T) {
	table := reference.Default()

	res, err := AnalyzeScenario(table, Allocation{reference.PublicBonds: 60, reference.PublicEquities: 40}, "european_debt_crisis")
	require.NoError(t, err)

	require.Len(t, res.Impacts, 2)
	assert.Equal(t, reference.PublicBonds, res.Impacts[0].Key)
	assert.Equal(t, reference.PublicEquities, res.Impacts[1].Key)
}

func TestAnalyzeScenario_MissingStressDefaultsToZero(t *testing.T) {
	doc := `
version: t
groups:
  - name: private
    assets:
      - {key: pe, name: PE, return_pct: 10, yield_pct: 0, volatility_pct: 20}
  - name: public
    assets:
      - {key: bonds, name: Bonds, return_pct: 4, yield_pct: 3, volatility_pct: 5}
scenarios:
  - name: bond_rout
    stress: {bonds: -10}
`
	table, err := reference.Parse([]byte(doc))
	require.NoError(t, err)

	res, err := AnalyzeScenario(table, Allocation{"pe": 40, "bonds": 60}, "bond_rout")
	require.NoError(t, err)

	assert.Equal(t, 0.0, res.Impacts[0].Impact)
	assert.Equal(t, -6.0, res.Impacts[1].Impact)
	assert.Equal(t, -6.0, res.TotalImpact)
}

func TestAnalyzeScenario_UnknownScenario(t *testing.T) {
	_, err := AnalyzeScenario(reference.Default(), balancedAllocation(), "tulip_mania")
	assert.ErrorIs(t, err, reference.ErrUnknownScenario)
}

func TestOptimize_ShiftsFromLowestToHighestReturn(t *testing.T) {
	table := reference.Default()
	current := balancedAllocation()

	res, err := Optimize(table, current, mustMetrics(t, table, current))
	require.NoError(t, err)

	assert.Equal(t, reference.PublicBonds, res.Shift.From)
	assert.Equal(t, reference.VentureCapital, res.Shift.To)
	assert.Equal(t, MaxShift, res.Shift.Amount)
	assert.Equal(t, 49.0, res.Allocation[reference.PublicBonds])
	assert.Equal(t, 7.5, res.Allocation[reference.VentureCapital])
	assert.Greater(t, res.Metrics.Return.Change, 0.0)
	assert.Equal(t, 15.0, res.Display.Private.Total)
	assert.Equal(t, 5.0, res.Display.Private.Change)
	assert.Equal(t, -5.0, res.Display.Public.Change)
}

func TestOptimize_ZeroSum(t *testing.T) {
	table := reference.Default()
	allocations := []Allocation{
		balancedAllocation(),
		{reference.PublicBonds: 3.2, reference.PublicEquities: 96.8},
		{reference.PublicBonds: 0, reference.PublicEquities: 100},
		{reference.VentureCapital: 100},
	}

	for _, current := range allocations {
		res, err := Optimize(table, current, PortfolioMetrics{})
		require.NoError(t, err)

		before, err := normalizeAllocation(table, current)
		require.NoError(t, err)

		changed := 0
		for _, key := range table.Keys() {
			if res.Allocation[key] != before[key] {
				changed++
			}
		}
		if res.Shift.Amount > 0 {
			assert.Equal(t, 2, changed)
		} else {
			assert.Equal(t, 0, changed)
		}

		assert.LessOrEqual(t, res.Shift.Amount, MaxShift)
		assert.LessOrEqual(t, res.Shift.Amount, before[res.Shift.From])
		assert.InDelta(t, -res.Shift.Amount, res.Allocation[res.Shift.From]-before[res.Shift.From], 1e-9)
		assert.InDelta(t, res.Shift.Amount, res.Allocation[res.Shift.To]-before[res.Shift.To], 1e-9)
		assert.InDelta(t, before.Total(), res.Allocation.Total(), 1e-9)
	}
}

func TestOptimize_TiesUseTableOrder(t *testing.T) {
	doc := `
version: t
groups:
  - name: private
    assets:
      - {key: a, name: A, return_pct: 5, yield_pct: 0, volatility_pct: 1}
      - {key: b, name: B, return_pct: 9, yield_pct: 0, volatility_pct: 1}
  - name: public
    assets:
      - {key: c, name: C, return_pct: 5, yield_pct: 0, volatility_pct: 1}
      - {key: d, name: D, return_pct: 9, yield_pct: 0, volatility_pct: 1}
`
	table, err := reference.Parse([]byte(doc))
	require.NoError(t, err)

	res, err := Optimize(table, Allocation{"a": 25, "b": 25, "c": 25, "d": 25}, PortfolioMetrics{})
	require.NoError(t, err)

	assert.Equal(t, reference.AssetKey("a"), res.Shift.From)
	assert.Equal(t, reference.AssetKey("b"), res.Shift.To)
}

func TestExecute_Dispatch(t *testing.T) {
	table := reference.Default()
	state := State{Allocation: balancedAllocation(), Metrics: mustMetrics(t, table, balancedAllocation())}

	out, err := Execute(table, state, Request{Operation: OperationRebalance, AssetClass: "bonds", NewPercentage: 60})
	require.NoError(t, err)
	require.NotNil(t, out.Rebalance)
	assert.Same(t, out.Rebalance, out.Result())

	out, err = Execute(table, state, Request{Operation: OperationAnalyzeScenario, Scenario: "covid_crash"})
	require.NoError(t, err)
	require.NotNil(t, out.Scenario)

	out, err = Execute(table, state, Request{Operation: OperationOptimize})
	require.NoError(t, err)
	require.NotNil(t, out.Optimize)

	_, err = Execute(table, state, Request{Operation: "hedge"})
	assert.ErrorIs(t, err, ErrUnknownOperation)
}

func TestBuildDisplay_FlattenRoundTrip(t *testing.T) {
	table := reference.Default()
	current := balancedAllocation()

	display := BuildDisplay(table, current, current)
	assert.Equal(t, current, display.Flatten())
	assert.Equal(t, "Venture capital - early stage", display.Private.Categories[0].Name)
	assert.Len(t, display.Public.Categories, 2)
}

func TestRound(t *testing.T) {
	assert.Equal(t, 2.68, round2(2.675))
	assert.Equal(t, 0.3, round1(0.25))
	assert.Equal(t, -0.3, round1(-0.25))
	assert.Equal(t, 0.0, round1(-0.04))
}
