package agent

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ModelPricing holds per-model token prices in USD per million tokens.
type ModelPricing struct {
	InputPerMTok  decimal.Decimal
	OutputPerMTok decimal.Decimal
}

var million = decimal.NewFromInt(1_000_000)

// Cost computes the USD cost of one request from its token usage.
func (p ModelPricing) Cost(promptTokens, completionTokens int) decimal.Decimal {
	cost := decimal.NewFromInt(int64(promptTokens)).Mul(p.InputPerMTok).Div(million)
	return cost.Add(decimal.NewFromInt(int64(completionTokens)).Mul(p.OutputPerMTok).Div(million))
}

// PriceTable maps a model name prefix to its pricing.
type PriceTable map[string]ModelPricing

// Cost looks up pricing for model and computes the request cost from usage.
// Unknown models cost zero; the figure is best-effort, not billing-grade.
func (t PriceTable) Cost(model string, usage map[string]int) decimal.Decimal {
	pricing, ok := t[model]
	if !ok {
		// Longest matching prefix wins so a dated gpt-4o-mini variant
		// prices as gpt-4o-mini, not gpt-4o.
		best := -1
		for prefix, p := range t {
			if strings.HasPrefix(model, prefix) && len(prefix) > best {
				pricing = p
				best = len(prefix)
				ok = true
			}
		}
	}
	if !ok {
		return decimal.Zero
	}
	return pricing.Cost(usage["prompt_tokens"], usage["completion_tokens"])
}

// DefaultPricing contains built-in prices (USD per million tokens) for the
// models this service is commonly run against.
var DefaultPricing = PriceTable{
	"claude-opus-4":   {InputPerMTok: decimal.NewFromFloat(15), OutputPerMTok: decimal.NewFromFloat(75)},
	"claude-sonnet-4": {InputPerMTok: decimal.NewFromFloat(3), OutputPerMTok: decimal.NewFromFloat(15)},
	"claude-haiku-4":  {InputPerMTok: decimal.NewFromFloat(1), OutputPerMTok: decimal.NewFromFloat(5)},
	"gpt-4o":          {InputPerMTok: decimal.NewFromFloat(2.5), OutputPerMTok: decimal.NewFromFloat(10)},
	"gpt-4o-mini":     {InputPerMTok: decimal.NewFromFloat(0.15), OutputPerMTok: decimal.NewFromFloat(0.6)},
}
