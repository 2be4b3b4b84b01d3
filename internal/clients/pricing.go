package clients

import "math"

// ModelRate is the approximate price in USD per 1K tokens.
type ModelRate struct {
	InputPer1K  float64
	OutputPer1K float64
}

// PriceTable maps model names to rates for one vendor.
type PriceTable map[string]ModelRate

var claudePrices = PriceTable{
	"claude-3-5-sonnet-20241022": {InputPer1K: 0.003, OutputPer1K: 0.015},
	"claude-3-5-haiku-20241022":  {InputPer1K: 0.0008, OutputPer1K: 0.004},
	"claude-3-opus-20240229":     {InputPer1K: 0.015, OutputPer1K: 0.075},
	"claude-3-haiku-20240307":    {InputPer1K: 0.00025, OutputPer1K: 0.00125},
}

var openAIPrices = PriceTable{
	"gpt-4o":        {InputPer1K: 0.0025, OutputPer1K: 0.01},
	"gpt-4o-mini":   {InputPer1K: 0.00015, OutputPer1K: 0.0006},
	"gpt-4-turbo":   {InputPer1K: 0.01, OutputPer1K: 0.03},
	"gpt-3.5-turbo": {InputPer1K: 0.0005, OutputPer1K: 0.0015},
}

var googlePrices = PriceTable{
	"gemini-1.5-pro":   {InputPer1K: 0.00125, OutputPer1K: 0.005},
	"gemini-1.5-flash": {InputPer1K: 0.000075, OutputPer1K: 0.0003},
	"gemini-2.0-flash": {InputPer1K: 0.0001, OutputPer1K: 0.0004},
}

// Rate returns the rate for model, or the cheapest known rate when the model
// is not in the table.
func (t PriceTable) Rate(model string) ModelRate {
	if rate, ok := t[model]; ok {
		return rate
	}
	return t.cheapest()
}

func (t PriceTable) cheapest() ModelRate {
	best := ModelRate{}
	bestTotal := math.Inf(1)
	for _, rate := range t {
		if total := rate.InputPer1K + rate.OutputPer1K; total < bestTotal {
			best, bestTotal = rate, total
		}
	}
	return best
}

// Cost estimates the price of a call in USD.
func (t PriceTable) Cost(model string, promptTokens, completionTokens int) float64 {
	rate := t.Rate(model)
	return float64(promptTokens)/1000*rate.InputPer1K + float64(completionTokens)/1000*rate.OutputPer1K
}
