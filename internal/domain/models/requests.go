package models

// AddCoinRequest onboards a new generated instrument. Only the name is
// mandatory; the rest fall back to sensible defaults.
type AddCoinRequest struct {
	CoinName         string  `json:"coinName" validate:"required,min=1,max=32"`
	Kind             string  `json:"kind" validate:"omitempty,oneof=otc forex" default:"otc"`
	BasePrice        float64 `json:"basePrice" validate:"gt=0" default:"100"`
	PayoutPercentage float64 `json:"payoutPercentage" validate:"gte=0,lte=100" default:"80"`
	Interval         string  `json:"interval" validate:"omitempty,oneof=30s 1m 5m 15m 1h" default:"30s"`
}

// UpdateDurationRequest switches an instrument's candle interval.
type UpdateDurationRequest struct {
	CoinName string `json:"coinName" validate:"required,min=1,max=32"`
	Duration string `json:"duration" validate:"required,oneof=30s 1m 5m 15m 1h"`
}

// SetTrendRequest switches the global trend regime.
type SetTrendRequest struct {
	Trend string `json:"trend" validate:"required,oneof=up down normal scenario1 scenario2 scenario3 scenario4 scenario5"`
}

// ChartRequest queries candle history for one instrument. From/To accept
// RFC3339 or unix seconds.
type ChartRequest struct {
	Interval string `query:"interval" validate:"omitempty,oneof=30s 1m 5m 15m 1h"`
	Limit    int    `query:"limit" validate:"omitempty,gte=1,lte=500"`
	From     string `query:"from"`
	To       string `query:"to"`
}
