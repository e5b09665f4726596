package advisor

import (
	"testing"

	"github.com/opto-ai/opto/internal/modules/allocation"
	"github.com/opto-ai/opto/internal/modules/reference"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTools_Declarations(t *testing.T) {
	table := reference.Default()
	tools := Tools(table)
	require.Len(t, tools, 3)

	byName := map[ToolName]ToolDefinition{}
	for _, tool := range tools {
		byName[tool.Name] = tool
	}

	simulate := byName[ToolSimulateAllocationChange]
	assert.Equal(t, []string{"asset_class", "new_percentage"}, simulate.Parameters["required"])

	scenario := byName[ToolAnalyzeHistoricalScenario]
	props := scenario.Parameters["properties"].(map[string]interface{})
	enum := props["scenario"].(map[string]interface{})["enum"]
	assert.Equal(t, table.ScenarioNames(), enum)

	optimize := byName[ToolOptimizeAllocation]
	assert.Empty(t, optimize.Parameters["properties"])
	assert.NotContains(t, optimize.Parameters, "required")
}

func TestToolCall_Request(t *testing.T) {
	tests := []struct {
		name    string
		call    ToolCall
		want    allocation.Request
		wantErr error
	}{
		{
			name: "simulate",
			call: ToolCall{Name: "simulate_allocation_change", Arguments: `{"asset_class":"Public bonds","new_percentage":60}`},
			want: allocation.Request{Operation: allocation.OperationRebalance, AssetClass: "Public bonds", NewPercentage: 60},
		},
		{
			name: "simulate to zero",
			call: ToolCall{Name: "simulate_allocation_change", Arguments: `{"asset_class":"venture_capital","new_percentage":0}`},
			want: allocation.Request{Operation: allocation.OperationRebalance, AssetClass: "venture_capital"},
		},
		{
			name:    "simulate missing percentage",
			call:    ToolCall{Name: "simulate_allocation_change", Arguments: `{"asset_class":"bonds"}`},
			wantErr: ErrBadToolArguments,
		},
		{
			name:    "simulate wrong type",
			call:    ToolCall{Name: "simulate_allocation_change", Arguments: `{"asset_class":"bonds","new_percentage":"sixty"}`},
			wantErr: ErrBadToolArguments,
		},
		{
			name: "scenario",
			call: ToolCall{Name: "analyze_historical_scenario", Arguments: `{"scenario":" covid_crash "}`},
			want: allocation.Request{Operation: allocation.OperationAnalyzeScenario, Scenario: "covid_crash"},
		},
		{
			name:    "scenario empty",
			call:    ToolCall{Name: "analyze_historical_scenario", Arguments: ``},
			wantErr: ErrBadToolArguments,
		},
		{
			name: "optimize without arguments",
			call: ToolCall{Name: "optimize_allocation"},
			want: allocation.Request{Operation: allocation.OperationOptimize},
		},
		{
			name:    "unknown",
			call:    ToolCall{Name: "rebalance_everything", Arguments: `{}`},
			wantErr: ErrUnknownTool,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.call.Request()
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDescribeOutcome_AllOthersZero(t *testing.T) {
	table := reference.Default()
	outcome, err := allocation.Execute(table,
		allocation.State{Allocation: allocation.Allocation{reference.PublicBonds: 100}},
		allocation.Request{Operation: allocation.OperationRebalance, AssetClass: "public_bonds", NewPercentage: 80},
	)
	require.NoError(t, err)

	assert.Contains(t, describeOutcome(table, outcome), "nothing was redistributed")
}

func TestDescribeOutcome_NoShift(t *testing.T) {
	table := reference.Default()
	outcome, err := allocation.Execute(table,
		allocation.State{Allocation: allocation.Allocation{reference.PublicEquities: 100}},
		allocation.Request{Operation: allocation.OperationOptimize},
	)
	require.NoError(t, err)

	assert.Contains(t, describeOutcome(table, outcome), "No shift was possible: Public bonds holds no weight")
}
