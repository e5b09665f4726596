package reference

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed data/reference.yaml
var defaultDocument []byte

type document struct {
	Version   string        `yaml:"version"`
	Groups    []groupDoc    `yaml:"groups"`
	Scenarios []scenarioDoc `yaml:"scenarios"`
}

type groupDoc struct {
	Name   Group      `yaml:"name"`
	Assets []assetDoc `yaml:"assets"`
}

type assetDoc struct {
	Key           AssetKey `yaml:"key"`
	Name          string   `yaml:"name"`
	ReturnPct     float64  `yaml:"return_pct"`
	YieldPct      float64  `yaml:"yield_pct"`
	VolatilityPct float64  `yaml:"volatility_pct"`
}

type scenarioDoc struct {
	Name   string               `yaml:"name"`
	Label  string               `yaml:"label"`
	Period string               `yaml:"period"`
	Stress map[AssetKey]float64 `yaml:"stress"`
}

// Default returns the table embedded in the binary
func Default() *Table {
	t, err := Parse(defaultDocument)
	if err != nil {
		panic(fmt.Sprintf("embedded reference table is invalid: %v", err))
	}
	return t
}

// LoadFile reads and validates a reference table from a YAML file
func LoadFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open reference data: %w", err)
	}
	defer f.Close()

	t, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// Parse decodes a YAML document held in memory
func Parse(data []byte) (*Table, error) {
	return Decode(bytes.NewReader(data))
}

// Decode reads a YAML reference document and validates it
func Decode(r io.Reader) (*Table, error) {
	var doc document
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode reference data: %w", err)
	}
	return build(doc)
}

func build(doc document) (*Table, error) {
	if doc.Version == "" {
		return nil, fmt.Errorf("reference data has no version")
	}

	t := &Table{
		version:   doc.Version,
		assets:    make(map[AssetKey]Asset),
		scenarios: make(map[string]Scenario),
	}

	seenGroups := make(map[Group]bool)
	// Private first so key order matches the dashboard regardless of file order.
	for _, want := range []Group{GroupPrivate, GroupPublic} {
		for _, g := range doc.Groups {
			if g.Name != want {
				continue
			}
			if seenGroups[g.Name] {
				return nil, fmt.Errorf("group %q declared twice", g.Name)
			}
			seenGroups[g.Name] = true
			if len(g.Assets) == 0 {
				return nil, fmt.Errorf("group %q has no assets", g.Name)
			}
			for _, a := range g.Assets {
				if err := addAsset(t, g.Name, a); err != nil {
					return nil, err
				}
			}
		}
	}
	for _, g := range doc.Groups {
		if g.Name != GroupPrivate && g.Name != GroupPublic {
			return nil, fmt.Errorf("unsupported group %q", g.Name)
		}
	}
	if !seenGroups[GroupPrivate] || !seenGroups[GroupPublic] {
		return nil, fmt.Errorf("reference data must declare both %q and %q groups", GroupPrivate, GroupPublic)
	}

	for _, s := range doc.Scenarios {
		if s.Name == "" {
			return nil, fmt.Errorf("scenario without a name")
		}
		if _, dup := t.scenarios[s.Name]; dup {
			return nil, fmt.Errorf("scenario %q declared twice", s.Name)
		}
		stress := make(map[AssetKey]float64, len(s.Stress))
		for key, pct := range s.Stress {
			if !t.Has(key) {
				return nil, fmt.Errorf("scenario %q: %w: %q", s.Name, ErrUnknownAsset, key)
			}
			if !finite(pct) {
				return nil, fmt.Errorf("scenario %q: stress for %q is not finite", s.Name, key)
			}
			stress[key] = pct
		}
		label := s.Label
		if label == "" {
			label = s.Name
		}
		t.scenarios[s.Name] = Scenario{Name: s.Name, Label: label, Period: s.Period, Stress: stress}
		t.scenarioOrder = append(t.scenarioOrder, s.Name)
	}

	return t, nil
}

func addAsset(t *Table, group Group, a assetDoc) error {
	if a.Key == "" {
		return fmt.Errorf("asset without a key in group %q", group)
	}
	if _, dup := t.assets[a.Key]; dup {
		return fmt.Errorf("asset %q declared twice", a.Key)
	}
	if a.Name == "" {
		return fmt.Errorf("asset %q has no display name", a.Key)
	}
	if !finite(a.ReturnPct) || !finite(a.YieldPct) || !finite(a.VolatilityPct) {
		return fmt.Errorf("asset %q has non-finite characteristics", a.Key)
	}
	if a.VolatilityPct < 0 {
		return fmt.Errorf("asset %q has negative volatility", a.Key)
	}

	t.assets[a.Key] = Asset{
		Key:         a.Key,
		DisplayInfo: DisplayInfo{Name: a.Name, Group: group},
		AssetCharacteristics: AssetCharacteristics{
			ReturnPct:     a.ReturnPct,
			YieldPct:      a.YieldPct,
			VolatilityPct: a.VolatilityPct,
		},
	}
	t.keys = append(t.keys, a.Key)
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
