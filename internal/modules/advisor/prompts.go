package advisor

import (
	"fmt"
	"strings"

	"github.com/opto-ai/opto/internal/modules/allocation"
	"github.com/opto-ai/opto/internal/modules/reference"
)

const intentInstructions = `You are Opto, an assistant for wealth advisors reviewing client portfolios that mix private and public market assets.

You can call tools to simulate an allocation change, replay a historical stress scenario, or nudge the allocation towards higher return. Call at most one tool, and only when the advisor asks for one of those things. Otherwise answer briefly and factually from the portfolio below. Never invent figures that are not shown.`

const narrationInstructions = `You are Opto, an assistant for wealth advisors. A calculation has just been run on the client's portfolio. Explain the result to the advisor in two to four short sentences: what changed, the effect on return, yield and volatility, and any trade-off worth noting. Use only the figures provided. Do not recommend specific securities.`

// intentPrompt is the system prompt for ClassifyIntent
func intentPrompt(table *reference.Table, state allocation.State) string {
	var b strings.Builder
	b.WriteString(intentInstructions)
	b.WriteString("\n\n")
	writePortfolio(&b, table, state)
	return b.String()
}

// narrationPrompt is the system prompt for Narrate
func narrationPrompt(table *reference.Table, state allocation.State) string {
	var b strings.Builder
	b.WriteString(narrationInstructions)
	b.WriteString("\n\nPortfolio before the calculation:\n")
	writePortfolio(&b, table, state)
	return b.String()
}

func writePortfolio(b *strings.Builder, table *reference.Table, state allocation.State) {
	b.WriteString("Current allocation:\n")
	for _, group := range table.Groups() {
		fmt.Fprintf(b, "%s markets:\n", titleCase(string(group)))
		for _, key := range table.GroupKeys(group) {
			info, _ := table.DisplayInfo(key)
			fmt.Fprintf(b, "- %s [%s]: %.1f%%\n", info.Name, key, state.Allocation[key])
		}
	}
	fmt.Fprintf(b, "Expected return %.1f%%, yield %.1f%%, volatility %.1f%%.\n",
		state.Metrics.ReturnPct, state.Metrics.YieldPct, state.Metrics.VolatilityPct)
}

// describeOutcome renders an engine outcome as plain text for narration
func describeOutcome(table *reference.Table, outcome *allocation.Outcome) string {
	var b strings.Builder

	switch {
	case outcome.Rebalance != nil:
		res := outcome.Rebalance
		if !res.Resolved {
			fmt.Fprintf(&b, "The asset class %q was not recognised, so the allocation was left unchanged.\n", res.Requested)
			fmt.Fprintf(&b, "Known asset classes: %s.\n", strings.Join(assetNames(table), ", "))
			return b.String()
		}
		fmt.Fprintf(&b, "%s moved from %.1f%% to %.1f%% (%+.1f points).\n",
			assetName(table, res.Target), res.PreviousValue, res.NewValue, res.Delta)
		if !res.Redistributed && res.Delta != 0 {
			b.WriteString("All other asset classes were at zero, so nothing was redistributed.\n")
		}
		writeDisplay(&b, res.Display)
		writeMetrics(&b, res.Metrics)

	case outcome.Scenario != nil:
		res := outcome.Scenario
		fmt.Fprintf(&b, "Scenario: %s (%s).\n", res.Label, res.Period)
		for _, impact := range res.Impacts {
			fmt.Fprintf(&b, "- %s: %.1f%% weight, %+.1f%% stress, %+.2f points\n",
				impact.Name, impact.Weight, impact.StressPct, impact.Impact)
		}
		fmt.Fprintf(&b, "Estimated total portfolio impact: %+.2f%%.\n", res.TotalImpact)

	case outcome.Optimize != nil:
		res := outcome.Optimize
		if res.Shift.Amount == 0 {
			fmt.Fprintf(&b, "No shift was possible: %s holds no weight.\n", assetName(table, res.Shift.From))
		} else {
			fmt.Fprintf(&b, "Shifted %.1f points from %s (lowest expected return) to %s (highest expected return).\n",
				res.Shift.Amount, assetName(table, res.Shift.From), assetName(table, res.Shift.To))
		}
		writeDisplay(&b, res.Display)
		writeMetrics(&b, res.Metrics)
	}

	return b.String()
}

// fallbackNarration is used when the model fails after the engine succeeded
func fallbackNarration(table *reference.Table, outcome *allocation.Outcome) string {
	return "Here are the results of the calculation.\n" + describeOutcome(table, outcome)
}

func writeDisplay(b *strings.Builder, d allocation.DisplayAllocation) {
	fmt.Fprintf(b, "Private markets total %.1f%% (%+.1f), public markets total %.1f%% (%+.1f).\n",
		d.Private.Total, d.Private.Change, d.Public.Total, d.Public.Change)
	for _, group := range []allocation.DisplayGroup{d.Private, d.Public} {
		for _, c := range group.Categories {
			if c.Change == 0 {
				continue
			}
			fmt.Fprintf(b, "- %s: %.1f%% (%+.1f)\n", c.Name, c.Value, c.Change)
		}
	}
}

func writeMetrics(b *strings.Builder, m allocation.MetricChanges) {
	fmt.Fprintf(b, "Expected return %.1f%% (%+.1f), yield %.1f%% (%+.1f), volatility %.1f%% (%+.1f).\n",
		m.Return.Value, m.Return.Change,
		m.Yield.Value, m.Yield.Change,
		m.Volatility.Value, m.Volatility.Change)
}

func assetName(table *reference.Table, key reference.AssetKey) string {
	if info, err := table.DisplayInfo(key); err == nil {
		return info.Name
	}
	return string(key)
}

func assetNames(table *reference.Table) []string {
	out := make([]string, 0, len(table.Keys()))
	for _, key := range table.Keys() {
		out = append(out, assetName(table, key))
	}
	return out
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
