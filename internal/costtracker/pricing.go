package costtracker

// ModelPricing is the USD cost per 1M tokens for a given model id.
type ModelPricing struct {
	InputPer1M  float64
	OutputPer1M float64
}

// PricingTable maps model id to its pricing. Lookups miss silently — an
// unknown model id yields a zero ModelPricing rather than an error, per
// unknown models yield cost 0 but still accumulate tokens.
type PricingTable map[string]ModelPricing

// CostUSD computes the USD cost of promptTokens/completionTokens against the
// pricing entry for model, defaulting to zero cost for unknown models.
func (t PricingTable) CostUSD(model string, promptTokens, completionTokens int) float64 {
	p, ok := t[model]
	if !ok {
		return 0
	}
	return float64(promptTokens)*p.InputPer1M/1e6 + float64(completionTokens)*p.OutputPer1M/1e6
}

// DefaultPricingTable returns the built-in pricing for the models the
// bundled provider adapters (anthropic, openai, google) target out of the
// box. Callers may extend or replace it by passing their own table to New.
func DefaultPricingTable() PricingTable {
	return PricingTable{
		"claude-sonnet-4-5-latest": {InputPer1M: 3.00, OutputPer1M: 15.00},
		"claude-sonnet-4-5":        {InputPer1M: 3.00, OutputPer1M: 15.00},
		"claude-opus-4-5":          {InputPer1M: 5.00, OutputPer1M: 25.00},
		"claude-haiku-4-5":         {InputPer1M: 1.00, OutputPer1M: 5.00},
		"claude-sonnet-4":          {InputPer1M: 3.00, OutputPer1M: 15.00},
		"claude-opus-4":            {InputPer1M: 15.00, OutputPer1M: 75.00},

		"gpt-4o":      {InputPer1M: 2.50, OutputPer1M: 10.00},
		"gpt-4o-mini": {InputPer1M: 0.15, OutputPer1M: 0.60},
		"gpt-4.1":     {InputPer1M: 2.00, OutputPer1M: 8.00},
		"gpt-4.1-mini": {InputPer1M: 0.40, OutputPer1M: 1.60},
		"o1":          {InputPer1M: 15.00, OutputPer1M: 60.00},
		"o3-mini":     {InputPer1M: 1.10, OutputPer1M: 4.40},

		"gemini-2.5-pro":   {InputPer1M: 1.25, OutputPer1M: 10.00},
		"gemini-2.5-flash": {InputPer1M: 0.30, OutputPer1M: 2.50},
	}
}
