package llm

// pricePerMillion is USD per 1M tokens, input and output counted together.
// Models missing from the table price at 0.
var pricePerMillion = map[string]float64{
	"mistral/mistral-small-latest": 0.25,
	"mistral/mistral-large-latest": 2.00,
	"openai/gpt-oss-120b":          0.59,
	"groq/llama-3.1-8b-instant":    0.05,
	"groq/llama-3.3-70b-versatile": 0.59,
	"gemini/gemini-2.5-flash":      0.30,
}

// Cost returns the USD cost of a call given its total token usage.
func Cost(model string, tokens int) float64 {
	price, ok := pricePerMillion[model]
	if !ok {
		return 0
	}
	return float64(tokens) * price / 1_000_000
}
