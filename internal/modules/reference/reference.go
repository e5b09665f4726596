// Package reference holds the read-only asset and stress-scenario reference
// table the allocation engine computes against.
package reference

import (
	"errors"
	"fmt"
)

// Errors returned by table lookups
var (
	ErrUnknownAsset    = errors.New("unknown asset")
	ErrUnknownScenario = errors.New("unknown scenario")
)

// AssetKey identifies an asset class
type AssetKey string

// Canonical asset classes
const (
	VentureCapital  AssetKey = "venture_capital"
	PrivateEquity   AssetKey = "private_equity"
	RealEstateValue AssetKey = "real_estate_value"
	RealEstateCore  AssetKey = "real_estate_core"
	PublicBonds     AssetKey = "public_bonds"
	PublicEquities  AssetKey = "public_equities"
)

// Group buckets asset classes for display
type Group string

// Display groups
const (
	GroupPrivate Group = "private"
	GroupPublic  Group = "public"
)

// AssetCharacteristics are the static per-asset figures, all in percent
type AssetCharacteristics struct {
	ReturnPct     float64 `json:"return_pct"`
	YieldPct      float64 `json:"yield_pct"`
	VolatilityPct float64 `json:"volatility_pct"`
}

// DisplayInfo is the UI metadata for an asset class
type DisplayInfo struct {
	Name  string `json:"name"`
	Group Group  `json:"group"`
}

// Asset combines an asset class with its characteristics and display info
type Asset struct {
	Key AssetKey `json:"key"`
	DisplayInfo
	AssetCharacteristics
}

// Scenario is a named historical stress period
type Scenario struct {
	Name   string               `json:"name"`
	Label  string               `json:"label"`
	Period string               `json:"period"`
	Stress map[AssetKey]float64 `json:"stress"`
}

// Table is an immutable reference table. All methods are safe for
// concurrent use.
type Table struct {
	version       string
	keys          []AssetKey
	assets        map[AssetKey]Asset
	scenarios     map[string]Scenario
	scenarioOrder []string
}

// Version returns the table's configured version label
func (t *Table) Version() string {
	return t.version
}

// Keys returns asset keys in display order: private group first, then
// public, each in file order. Engine tie-breaks rely on this order.
func (t *Table) Keys() []AssetKey {
	out := make([]AssetKey, len(t.keys))
	copy(out, t.keys)
	return out
}

// Has reports whether key belongs to the table
func (t *Table) Has(key AssetKey) bool {
	_, ok := t.assets[key]
	return ok
}

// Characteristics returns the return/yield/volatility figures for key
func (t *Table) Characteristics(key AssetKey) (AssetCharacteristics, error) {
	asset, ok := t.assets[key]
	if !ok {
		return AssetCharacteristics{}, fmt.Errorf("%w: %q", ErrUnknownAsset, key)
	}
	return asset.AssetCharacteristics, nil
}

// DisplayInfo returns the display name and group for key
func (t *Table) DisplayInfo(key AssetKey) (DisplayInfo, error) {
	asset, ok := t.assets[key]
	if !ok {
		return DisplayInfo{}, fmt.Errorf("%w: %q", ErrUnknownAsset, key)
	}
	return asset.DisplayInfo, nil
}

// Assets returns every asset in key order
func (t *Table) Assets() []Asset {
	out := make([]Asset, 0, len(t.keys))
	for _, key := range t.keys {
		out = append(out, t.assets[key])
	}
	return out
}

// Groups returns the display groups in display order
func (t *Table) Groups() []Group {
	return []Group{GroupPrivate, GroupPublic}
}

// GroupKeys returns the keys in group, in key order
func (t *Table) GroupKeys(group Group) []AssetKey {
	var out []AssetKey
	for _, key := range t.keys {
		if t.assets[key].Group == group {
			out = append(out, key)
		}
	}
	return out
}

// Scenario returns the named scenario with a private copy of its stresses
func (t *Table) Scenario(name string) (Scenario, error) {
	sc, ok := t.scenarios[name]
	if !ok {
		return Scenario{}, fmt.Errorf("%w: %q", ErrUnknownScenario, name)
	}
	stress := make(map[AssetKey]float64, len(sc.Stress))
	for k, v := range sc.Stress {
		stress[k] = v
	}
	sc.Stress = stress
	return sc, nil
}

// ScenarioImpact returns the per-asset stress percentages for a scenario
func (t *Table) ScenarioImpact(name string) (map[AssetKey]float64, error) {
	sc, err := t.Scenario(name)
	if err != nil {
		return nil, err
	}
	return sc.Stress, nil
}

// ScenarioNames returns scenario names in file order
func (t *Table) ScenarioNames() []string {
	out := make([]string, len(t.scenarioOrder))
	copy(out, t.scenarioOrder)
	return out
}

// Scenarios returns every scenario in file order
func (t *Table) Scenarios() []Scenario {
	out := make([]Scenario, 0, len(t.scenarioOrder))
	for _, name := range t.scenarioOrder {
		sc, _ := t.Scenario(name)
		out = append(out, sc)
	}
	return out
}
