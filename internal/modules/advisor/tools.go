package advisor

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/opto-ai/opto/internal/modules/allocation"
	"github.com/opto-ai/opto/internal/modules/reference"
)

// ToolName is a function the model may call
type ToolName string

// Declared tools
const (
	ToolSimulateAllocationChange  ToolName = "simulate_allocation_change"
	ToolAnalyzeHistoricalScenario ToolName = "analyze_historical_scenario"
	ToolOptimizeAllocation        ToolName = "optimize_allocation"
)

// ToolDefinition is a provider-neutral function declaration. Parameters is
// a JSON schema object.
type ToolDefinition struct {
	Name        ToolName
	Description string
	Parameters  map[string]interface{}
}

// ToolCall is a function call requested by the model. Arguments is the raw
// JSON object the model produced.
type ToolCall struct {
	ID        string
	Name      string
	Arguments string
}

// Tools declares the three engine operations. The scenario enum and the
// asset class hint come from table so they track the reference data.
func Tools(table *reference.Table) []ToolDefinition {
	assetNames := make([]string, 0, len(table.Keys()))
	for _, key := range table.Keys() {
		info, _ := table.DisplayInfo(key)
		assetNames = append(assetNames, fmt.Sprintf("%s (%s)", key, info.Name))
	}

	return []ToolDefinition{
		{
			Name:        ToolSimulateAllocationChange,
			Description: "Simulate a change to portfolio allocation and calculate new metrics",
			Parameters: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"asset_class": map[string]interface{}{
						"type":        "string",
						"description": "The asset class to modify. One of: " + strings.Join(assetNames, ", "),
					},
					"new_percentage": map[string]interface{}{
						"type":        "number",
						"description": "The new allocation percentage, 0-100",
						"minimum":     0,
						"maximum":     100,
					},
				},
				"required": []string{"asset_class", "new_percentage"},
			},
		},
		{
			Name:        ToolAnalyzeHistoricalScenario,
			Description: "Estimate how the current allocation would have fared in a historical stress period",
			Parameters: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"scenario": map[string]interface{}{
						"type":        "string",
						"description": "The historical scenario to replay",
						"enum":        table.ScenarioNames(),
					},
				},
				"required": []string{"scenario"},
			},
		},
		{
			Name:        ToolOptimizeAllocation,
			Description: "Shift up to 5 percentage points from the lowest-return asset class to the highest-return one",
			Parameters: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
		},
	}
}

// Request converts the call into an engine request
func (c ToolCall) Request() (allocation.Request, error) {
	switch ToolName(c.Name) {
	case ToolSimulateAllocationChange:
		var args struct {
			AssetClass    string   `json:"asset_class"`
			NewPercentage *float64 `json:"new_percentage"`
		}
		if err := decodeArguments(c.Arguments, &args); err != nil {
			return allocation.Request{}, err
		}
		if strings.TrimSpace(args.AssetClass) == "" || args.NewPercentage == nil {
			return allocation.Request{}, fmt.Errorf("%w: %s needs asset_class and new_percentage", ErrBadToolArguments, c.Name)
		}
		return allocation.Request{
			Operation:     allocation.OperationRebalance,
			AssetClass:    args.AssetClass,
			NewPercentage: *args.NewPercentage,
		}, nil

	case ToolAnalyzeHistoricalScenario:
		var args struct {
			Scenario string `json:"scenario"`
		}
		if err := decodeArguments(c.Arguments, &args); err != nil {
			return allocation.Request{}, err
		}
		if strings.TrimSpace(args.Scenario) == "" {
			return allocation.Request{}, fmt.Errorf("%w: %s needs scenario", ErrBadToolArguments, c.Name)
		}
		return allocation.Request{
			Operation: allocation.OperationAnalyzeScenario,
			Scenario:  strings.TrimSpace(args.Scenario),
		}, nil

	case ToolOptimizeAllocation:
		// Arguments are ignored; models sometimes invent constraint fields.
		return allocation.Request{Operation: allocation.OperationOptimize}, nil
	}

	return allocation.Request{}, fmt.Errorf("%w: %q", ErrUnknownTool, c.Name)
}

func decodeArguments(raw string, dest interface{}) error {
	if strings.TrimSpace(raw) == "" {
		raw = "{}"
	}
	if err := json.Unmarshal([]byte(raw), dest); err != nil {
		return fmt.Errorf("%w: %v", ErrBadToolArguments, err)
	}
	return nil
}
