package gbm

// SymbolParams are the per-symbol statistical parameters feeding the
// generator. Drift and Volatility are annualized.
type SymbolParams struct {
	Drift      float64
	Volatility float64
	BasePrice  float64
}

// DefaultParams applies to symbols not present in the static table.
var DefaultParams = SymbolParams{Drift: 0.10, Volatility: 0.30, BasePrice: 100}

// paramsTable is keyed by uppercase symbol.
var paramsTable = map[string]SymbolParams{
	"AAPL":  {Drift: 0.12, Volatility: 0.28, BasePrice: 180},
	"MSFT":  {Drift: 0.11, Volatility: 0.26, BasePrice: 420},
	"GOOGL": {Drift: 0.10, Volatility: 0.30, BasePrice: 165},
	"AMZN":  {Drift: 0.12, Volatility: 0.34, BasePrice: 185},
	"NVDA":  {Drift: 0.18, Volatility: 0.48, BasePrice: 130},
	"META":  {Drift: 0.13, Volatility: 0.38, BasePrice: 560},
	"TSLA":  {Drift: 0.15, Volatility: 0.55, BasePrice: 250},
	"JPM":   {Drift: 0.08, Volatility: 0.24, BasePrice: 230},
	"V":     {Drift: 0.09, Volatility: 0.22, BasePrice: 290},
	"SPY":   {Drift: 0.08, Volatility: 0.16, BasePrice: 560},
}

// Params looks up the statistical parameters for a symbol, falling back
// to DefaultParams for unknown symbols. The table is keyed by uppercase
// symbol; lookups do not re-normalize.
func Params(symbol string) SymbolParams {
	if p, ok := paramsTable[symbol]; ok {
		return p
	}
	return DefaultParams
}
