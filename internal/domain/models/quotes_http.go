package models

// QuoteRequest binds GET /api/quote/:symbol.
type QuoteRequest struct {
	Symbol string `param:"symbol" validate:"required,min=1,max=12"`
}

// QuotesRequest binds GET /api/quotes?symbols=AAPL,MSFT.
type QuotesRequest struct {
	Symbols string `query:"symbols" validate:"required"`
}

// SearchRequest binds GET /api/search?q=apple.
type SearchRequest struct {
	Query string `query:"q" validate:"required,min=1,max=64"`
	Limit int    `query:"limit" default:"10" validate:"gte=1,lte=10"`
}
