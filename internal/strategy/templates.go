// Package strategy manages the strategy registry and its template catalog.
package strategy

import "github.com/yourusername/greedi-fi/internal/backtest"

// Template describes a strategy template available for registration
type Template struct {
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Parameters  map[string]string `json:"parameters"`
}

// AvailableTemplates is the catalog of registrable strategy templates
var AvailableTemplates = map[string]Template{
	backtest.TemplateMovingAverageCrossover: {
		Name:        "Moving Average Crossover",
		Description: "Strategy that trades based on the crossover of two moving averages",
		Parameters: map[string]string{
			"short_period": "Short moving average period",
			"long_period":  "Long moving average period",
		},
	},
	backtest.TemplateRSI: {
		Name:        "Relative Strength Index",
		Description: "Strategy that trades based on RSI overbought/oversold levels",
		Parameters: map[string]string{
			"period":     "RSI calculation period",
			"oversold":   "Oversold threshold (usually 30)",
			"overbought": "Overbought threshold (usually 70)",
		},
	},
}

// IsKnownTemplate reports whether name is a registrable template
func IsKnownTemplate(name string) bool {
	_, ok := AvailableTemplates[name]
	return ok
}
