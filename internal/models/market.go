package models

// OrderBook is a snapshot of bid/ask levels for a symbol. Levels are
// [price, amount] pairs, matching the upstream feed encoding.
type OrderBook struct {
	Symbol    string       `json:"symbol"`
	Timestamp int64        `json:"timestamp"`
	Bids      [][2]float64 `json:"bids"`
	Asks      [][2]float64 `json:"asks"`
}

// MarketTrade is a single executed trade reported by the upstream feed
type MarketTrade struct {
	Symbol    string  `json:"symbol"`
	Timestamp int64   `json:"timestamp"`
	Price     float64 `json:"price"`
	Amount    float64 `json:"amount"`
	Side      string  `json:"side"`
}
