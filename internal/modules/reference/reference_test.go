package reference

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_LoadsEmbeddedTable(t *testing.T) {
	table := Default()

	assert.NotEmpty(t, table.Version())
	assert.Equal(t, []AssetKey{
		VentureCapital, PrivateEquity, RealEstateValue, RealEstateCore,
		PublicBonds, PublicEquities,
	}, table.Keys())
	assert.Equal(t, []AssetKey{PublicBonds, PublicEquities}, table.GroupKeys(GroupPublic))
	assert.Len(t, table.GroupKeys(GroupPrivate), 4)
	assert.Contains(t, table.ScenarioNames(), "financial_crisis")
	assert.Contains(t, table.ScenarioNames(), "european_debt_crisis")
}

func TestCharacteristics(t *testing.T) {
	table := Default()

	chars, err := table.Characteristics(PublicBonds)
	require.NoError(t, err)
	assert.Equal(t, 4.5, chars.ReturnPct)

	_, err = table.Characteristics("crypto")
	assert.True(t, errors.Is(err, ErrUnknownAsset))
}

func TestDisplayInfo(t *testing.T) {
	table := Default()

	info, err := table.DisplayInfo(RealEstateCore)
	require.NoError(t, err)
	assert.Equal(t, "Real estate - core", info.Name)
	assert.Equal(t, GroupPrivate, info.Group)

	_, err = table.DisplayInfo("hedge_funds")
	assert.ErrorIs(t, err, ErrUnknownAsset)
}

func TestScenarioImpact(t *testing.T) {
	table := Default()

	stress, err := table.ScenarioImpact("financial_crisis")
	require.NoError(t, err)
	assert.Equal(t, -51.0, stress[PublicEquities])

	// Returned maps are copies
	stress[PublicEquities] = 0
	again, err := table.ScenarioImpact("financial_crisis")
	require.NoError(t, err)
	assert.Equal(t, -51.0, again[PublicEquities])

	_, err = table.ScenarioImpact("dotcom_bust")
	assert.ErrorIs(t, err, ErrUnknownScenario)
}

func TestKeys_ReturnsCopy(t *testing.T) {
	table := Default()
	keys := table.Keys()
	keys[0] = "mutated"
	assert.Equal(t, VentureCapital, table.Keys()[0])
}

func TestParse_Validation(t *testing.T) {
	base := func(body string) string {
		return "version: test\n" + body
	}
	groups := `
groups:
  - name: private
    assets:
      - {key: a, name: Asset A, return_pct: 1, yield_pct: 1, volatility_pct: 1}
  - name: public
    assets:
      - {key: b, name: Asset B, return_pct: 2, yield_pct: 2, volatility_pct: 2}
`

	tests := []struct {
		name    string
		doc     string
		wantErr string
	}{
		{
			name: "valid",
			doc:  base(groups),
		},
		{
			name:    "missing version",
			doc:     groups,
			wantErr: "no version",
		},
		{
			name: "missing public group",
			doc: base(`
groups:
  - name: private
    assets:
      - {key: a, name: A, return_pct: 1, yield_pct: 1, volatility_pct: 1}
`),
			wantErr: "both",
		},
		{
			name: "duplicate asset",
			doc: base(`
groups:
  - name: private
    assets:
      - {key: a, name: A, return_pct: 1, yield_pct: 1, volatility_pct: 1}
  - name: public
    assets:
      - {key: a, name: A again, return_pct: 1, yield_pct: 1, volatility_pct: 1}
`),
			wantErr: "declared twice",
		},
		{
			name: "unsupported group",
			doc: base(groups + `
  - name: hedge
    assets:
      - {key: c, name: C, return_pct: 1, yield_pct: 1, volatility_pct: 1}
`),
			wantErr: "unsupported group",
		},
		{
			name: "scenario with unknown asset",
			doc: base(groups + `
scenarios:
  - name: crash
    stress: {z: -10}
`),
			wantErr: "unknown asset",
		},
		{
			name:    "unknown field",
			doc:     base(groups + "colour: blue\n"),
			wantErr: "decode",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table, err := Parse([]byte(tt.doc))
			if tt.wantErr == "" {
				require.NoError(t, err)
				assert.Equal(t, []AssetKey{"a", "b"}, table.Keys())
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestParse_OrdersPrivateBeforePublic(t *testing.T) {
	doc := `
version: v1
groups:
  - name: public
    assets:
      - {key: bonds, name: Bonds, return_pct: 1, yield_pct: 1, volatility_pct: 1}
  - name: private
    assets:
      - {key: pe, name: PE, return_pct: 1, yield_pct: 1, volatility_pct: 1}
scenarios:
  - name: shock
    stress: {bonds: -1}
`
	table, err := Parse([]byte(doc))
	require.NoError(t, err)
	assert.Equal(t, []AssetKey{"pe", "bonds"}, table.Keys())

	sc, err := table.Scenario("shock")
	require.NoError(t, err)
	assert.Equal(t, "shock", sc.Label, "label defaults to name")
}

func TestDecode_RejectsGarbage(t *testing.T) {
	_, err := Decode(strings.NewReader("::not yaml"))
	assert.Error(t, err)
}
