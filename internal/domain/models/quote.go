package models

import (
	"fmt"
	"math"
	"strings"
	"time"
	"unicode"
)

// DataSource identifies where a quote came from.
type DataSource string

const (
	SourceFinnhub      DataSource = "finnhub"
	SourceAlphaVantage DataSource = "alphavantage"
	SourceSimulated    DataSource = "simulated"
)

// MaxBatchSymbols bounds a single multi-quote request.
const MaxBatchSymbols = 50

// Quote is a single point-in-time price observation for a symbol.
// Immutable once produced; Change and ChangePercent are derived from
// Price and PreviousClose via FillDerived.
type Quote struct {
	Symbol        string     `json:"symbol"`
	Price         float64    `json:"price"`
	Change        float64    `json:"change"`
	ChangePercent float64    `json:"changePercent"`
	High          float64    `json:"high"`
	Low           float64    `json:"low"`
	Open          float64    `json:"open"`
	PreviousClose float64    `json:"previousClose"`
	Volume        int64      `json:"volume"`
	Timestamp     time.Time  `json:"timestamp"`
	DataSource    DataSource `json:"dataSource"`
	IsRealTime    bool       `json:"isRealTime"`
}

// FillDerived computes Change and ChangePercent from Price and
// PreviousClose. ChangePercent stays zero when PreviousClose is zero.
func (q *Quote) FillDerived() {
	q.Change = q.Price - q.PreviousClose
	if q.PreviousClose != 0 {
		q.ChangePercent = q.Change / q.PreviousClose * 100
	}
}

// Valid reports whether all numeric fields are finite and the price is
// positive. Providers returning all-zero OHLC fields fail this check.
func (q *Quote) Valid() bool {
	for _, v := range []float64{q.Price, q.Change, q.ChangePercent, q.High, q.Low, q.Open, q.PreviousClose} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return q.Price > 0
}

// Instrument carries metadata discovered about a tradable symbol.
type Instrument struct {
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Exchange string `json:"exchange"`
	Sector   string `json:"sector"`
}

// SearchResult is one advisory hit from instrument search.
type SearchResult struct {
	Symbol      string `json:"symbol"`
	Description string `json:"description"`
}

// Identity is the authenticated principal attached to a connection.
type Identity struct {
	Subject string `json:"subject"`
}

const maxSymbolLen = 12

// NormalizeSymbol trims and uppercases a client-supplied symbol and
// rejects anything that cannot be a ticker.
func NormalizeSymbol(s string) (string, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return "", fmt.Errorf("symbol is empty")
	}
	if len(s) > maxSymbolLen {
		return "", fmt.Errorf("symbol too long: %q", s)
	}
	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '.' && r != '-' {
			return "", fmt.Errorf("symbol has invalid character: %q", s)
		}
	}
	return s, nil
}
