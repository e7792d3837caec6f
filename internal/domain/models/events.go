package models

import "time"

// PriceEvent is the live "current price" update for one instrument. Trend and
// ScenarioCounter let clients keep local candle aggregation visually
// consistent with the server-side regime without re-deriving it.
type PriceEvent struct {
	CoinName        string    `json:"coinName"`
	Price           float64   `json:"price"`
	Trend           TrendMode `json:"trend"`
	ScenarioCounter int       `json:"scenarioCounter"`
	TS              time.Time `json:"ts"`
}

// CandleEvent is the live update for the most recently completed candle.
type CandleEvent struct {
	CoinName string   `json:"coinName"`
	Interval Interval `json:"interval"`
	Candle   Candle   `json:"candle"`
}
