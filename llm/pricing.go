package llm

// ModelPrice 每千 token 的美元单价。
type ModelPrice struct {
	Input      float64
	Completion float64
}

// PriceTable 按模型名查价。上游 API 不回传费用，
// 费用由本地价表估算；未收录的模型退回 FallbackPerToken。
type PriceTable struct {
	Models           map[string]ModelPrice
	FallbackPerToken float64
}

// DefaultPriceTable 返回内置价表。
func DefaultPriceTable() PriceTable {
	return PriceTable{
		Models: map[string]ModelPrice{
			"openrouter/sherlock-think-alpha": {Input: 0.0002, Completion: 0.0008},
			"openai/gpt-4o-mini":              {Input: 0.00015, Completion: 0.0006},
			"openai/gpt-4o":                   {Input: 0.0025, Completion: 0.01},
			"anthropic/claude-sonnet-4.5":     {Input: 0.003, Completion: 0.015},
			"deepseek/deepseek-chat":          {Input: 0.00014, Completion: 0.00028},
		},
	}
}

// Cost 根据用量与模型名估算费用（USD）。
func (t PriceTable) Cost(model string, usage ChatUsage) float64 {
	if p, ok := t.Models[model]; ok {
		return float64(usage.PromptTokens)/1000*p.Input +
			float64(usage.CompletionTokens)/1000*p.Completion
	}
	if t.FallbackPerToken > 0 {
		billed := usage.TotalTokens
		if billed == 0 {
			billed = usage.PromptTokens + usage.CompletionTokens
		}
		return float64(billed) * t.FallbackPerToken
	}
	return 0
}

// WithFallback 返回带兜底单价的价表副本。
func (t PriceTable) WithFallback(perToken float64) PriceTable {
	t.FallbackPerToken = perToken
	return t
}
