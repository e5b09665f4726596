package allocation

import (
	"errors"
	"fmt"

	"github.com/opto-ai/opto/internal/modules/reference"
)

// ErrUnknownOperation reports a request for an operation the engine lacks
var ErrUnknownOperation = errors.New("unknown operation")

// Operation names one engine entry point
type Operation string

// Supported operations
const (
	OperationRebalance       Operation = "rebalance"
	OperationAnalyzeScenario Operation = "analyze_scenario"
	OperationOptimize        Operation = "optimize"
)

// State is the caller-held portfolio an operation runs against
type State struct {
	Allocation Allocation       `json:"allocations"`
	Metrics    PortfolioMetrics `json:"metrics"`
}

// Request is one resolved operation with its parameters
type Request struct {
	Operation     Operation `json:"operation"`
	AssetClass    string    `json:"asset_class,omitempty"`
	NewPercentage float64   `json:"new_percentage,omitempty"`
	Scenario      string    `json:"scenario,omitempty"`
}

// Outcome holds the result of exactly one operation
type Outcome struct {
	Operation Operation        `json:"operation"`
	Rebalance *RebalanceResult `json:"rebalance,omitempty"`
	Scenario  *ScenarioImpact  `json:"scenario,omitempty"`
	Optimize  *OptimizeResult  `json:"optimize,omitempty"`
}

// Result returns whichever operation result is set
func (o *Outcome) Result() interface{} {
	switch {
	case o.Rebalance != nil:
		return o.Rebalance
	case o.Scenario != nil:
		return o.Scenario
	case o.Optimize != nil:
		return o.Optimize
	}
	return nil
}

// Execute runs a single operation against state. Operations are never
// chained.
func Execute(table *reference.Table, state State, req Request) (*Outcome, error) {
	out := &Outcome{Operation: req.Operation}

	switch req.Operation {
	case OperationRebalance:
		res, err := Rebalance(table, state.Allocation, state.Metrics, req.AssetClass, req.NewPercentage)
		if err != nil {
			return nil, err
		}
		out.Rebalance = res
	case OperationAnalyzeScenario:
		res, err := AnalyzeScenario(table, state.Allocation, req.Scenario)
		if err != nil {
			return nil, err
		}
		out.Scenario = res
	case OperationOptimize:
		res, err := Optimize(table, state.Allocation, state.Metrics)
		if err != nil {
			return nil, err
		}
		out.Optimize = res
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownOperation, req.Operation)
	}

	return out, nil
}
