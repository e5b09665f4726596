package allocation

import "github.com/opto-ai/opto/internal/modules/reference"

// AssetImpact is the stress outcome for one asset class
type AssetImpact struct {
	Key       reference.AssetKey `json:"key"`
	Name      string             `json:"name"`
	Weight    float64            `json:"weight"`
	StressPct float64            `json:"stress_pct"`
	Impact    float64            `json:"impact"`
}

// ScenarioImpact is the result of replaying a historical stress period
// against an allocation. Impacts are in percentage points of the portfolio.
type ScenarioImpact struct {
	Scenario    string        `json:"scenario"`
	Label       string        `json:"label"`
	Period      string        `json:"period"`
	Impacts     []AssetImpact `json:"impacts"`
	TotalImpact float64       `json:"total_impact"`
}

// AnalyzeScenario applies a named scenario's per-asset stress to current.
// Each impact is weight*stress/100 rounded to two decimals; assets without
// stress data contribute zero. The total is the rounded sum of the
// unrounded impacts.
func AnalyzeScenario(table *reference.Table, current Allocation, scenario string) (*ScenarioImpact, error) {
	sc, err := table.Scenario(scenario)
	if err != nil {
		return nil, err
	}
	weights, err := normalizeAllocation(table, current)
	if err != nil {
		return nil, err
	}

	result := &ScenarioImpact{
		Scenario: sc.Name,
		Label:    sc.Label,
		Period:   sc.Period,
		Impacts:  make([]AssetImpact, 0, len(weights)),
	}

	var total float64
	for _, key := range table.Keys() {
		if _, present := current[key]; !present {
			continue
		}
		info, _ := table.DisplayInfo(key)
		weight := weights[key]
		stress := sc.Stress[key]
		impact := weight * stress / 100
		total += impact

		result.Impacts = append(result.Impacts, AssetImpact{
			Key:       key,
			Name:      info.Name,
			Weight:    weight,
			StressPct: stress,
			Impact:    round2(impact),
		})
	}
	result.TotalImpact = round2(total)

	return result, nil
}
