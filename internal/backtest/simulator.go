package backtest

import (
	"hash/fnv"
	"math/rand"
	"strconv"

	"github.com/yourusername/greedi-fi/internal/models"
)

// Strategy template identifiers
const (
	TemplateMovingAverageCrossover = "moving_average_crossover"
	TemplateRSI                    = "rsi"
	TemplateCustom                 = "custom"
)

// Simulate replays the price series through the template's behaviour profile
// and returns the cumulative PnL trajectory plus a sampled trade list.
//
// The profiles reproduce the characteristic shape of each strategy family
// rather than real trading logic. Randomness is seeded from strategyID, so
// repeated simulation of the same strategy against the same series is fully
// reproducible.
func Simulate(template string, params map[string]string, series []models.PricePoint, initialCapital float64, strategyID string) ([]float64, []models.Trade, error) {
	if len(series) == 0 {
		return nil, nil, nil
	}

	rng := rand.New(rand.NewSource(strategySeed(strategyID)))

	var (
		pnl []float64
		err error
	)
	switch template {
	case TemplateMovingAverageCrossover:
		pnl, err = simulateCrossover(rng, params, len(series), initialCapital)
	case TemplateRSI:
		pnl, err = simulateRSI(rng, params, len(series), initialCapital)
	default:
		pnl = simulateGeneric(rng, len(series), initialCapital)
	}
	if err != nil {
		return nil, nil, err
	}

	trades := sampleTrades(rng, series, pnl, initialCapital)
	return pnl, trades, nil
}

// simulateCrossover models a moving-average crossover profile. Shorter
// lookbacks react faster and carry more volatility. Every (short_period/2)-th
// day receives a larger perturbation standing in for a crossover event.
func simulateCrossover(rng *rand.Rand, params map[string]string, days int, capital float64) ([]float64, error) {
	shortPeriod, err := positiveIntParam(params, "short_period", 10)
	if err != nil {
		return nil, err
	}
	// long_period is validated but does not shape the profile yet
	if _, err := positiveIntParam(params, "long_period", 30); err != nil {
		return nil, err
	}

	volatility := 1 / (float64(shortPeriod) / 10)
	crossoverStep := shortPeriod / 2

	pnl := make([]float64, 1, days)
	for i := 1; i < days; i++ {
		var change float64
		if crossoverStep == 0 || i%crossoverStep == 0 {
			change = 0.005 + 0.02*volatility*rng.NormFloat64()
		} else {
			change = 0.001 + 0.01*volatility*rng.NormFloat64()
		}
		pnl = append(pnl, pnl[i-1]+change*capital)
	}
	return pnl, nil
}

// simulateRSI models a mean-reversion profile: it bleeds while the market
// trends and earns while it ranges, with the regime flipping every 20 days.
func simulateRSI(rng *rand.Rand, params map[string]string, days int, capital float64) ([]float64, error) {
	period, err := positiveIntParam(params, "period", 14)
	if err != nil {
		return nil, err
	}

	volatility := 1 / (float64(period) / 14)

	trending := rng.Float64() < 0.5

	pnl := make([]float64, 1, days)
	for i := 1; i < days; i++ {
		if i%20 == 0 {
			trending = !trending
		}

		var change float64
		if trending {
			change = -0.002 + 0.015*volatility*rng.NormFloat64()
		} else {
			change = 0.004 + 0.015*volatility*rng.NormFloat64()
		}
		pnl = append(pnl, pnl[i-1]+change*capital)
	}
	return pnl, nil
}

// simulateGeneric is the fallback profile for custom/unknown templates
func simulateGeneric(rng *rand.Rand, days int, capital float64) []float64 {
	pnl := make([]float64, 1, days)
	for i := 1; i < days; i++ {
		change := 0.001 + 0.015*rng.NormFloat64()
		pnl = append(pnl, pnl[i-1]+change*capital)
	}
	return pnl
}

// sampleTrades emits one trade per sampled index, starting at index 5 and
// stepping by len/10 (minimum 1). Each trade's PnL is the exact pnl delta at
// its index; the trade list is a sample, not a full fill log.
func sampleTrades(rng *rand.Rand, series []models.PricePoint, pnl []float64, capital float64) []models.Trade {
	days := len(series)
	step := days / 10
	if step < 1 {
		step = 1
	}

	var trades []models.Trade
	for i := 5; i < days; i += step {
		side := models.TradeSideBuy
		if rng.Float64() > 0.5 {
			side = models.TradeSideSell
		}

		price := series[i].Price
		size := (0.1 + 0.9*rng.Float64()) * capital / price

		trades = append(trades, models.Trade{
			Timestamp:  series[i].Date.Format("2006-01-02"),
			Instrument: series[i].Instrument,
			Side:       side,
			Price:      price,
			Size:       size,
			PnL:        pnl[i] - pnl[i-1],
		})
	}
	return trades
}

// positiveIntParam parses a positive integer parameter, falling back to def
// when the key is absent. A present but unparsable or non-positive value is a
// validation failure, never a silent default.
func positiveIntParam(params map[string]string, key string, def int) (int, error) {
	raw, ok := params[key]
	if !ok || raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, models.NewValidationError(key, "must be an integer, got %q", raw)
	}
	if v <= 0 {
		return 0, models.NewValidationError(key, "must be a positive integer, got %d", v)
	}
	return v, nil
}

// strategySeed derives a deterministic RNG seed from a strategy identifier
func strategySeed(strategyID string) int64 {
	h := fnv.New64a()
	h.Write([]byte(strategyID))
	return int64(h.Sum64() % 10000)
}
