package market

// MonthRecord 单个自然月的价格摘要（UTC 口径）。
// Source 仅作来源标记（seed / binance / binance-live / blockchain-info），
// 不参与覆盖优先级：同月后写入者胜出。
type MonthRecord struct {
	MonthKey string  `json:"monthKey"` // YYYY-MM
	Open     float64 `json:"open"`
	Close    float64 `json:"close"`
	Source   string  `json:"source,omitempty"`
	IsClosed bool    `json:"isClosed,omitempty"`
}

const (
	SourceSeed           = "seed"
	SourceBinance        = "binance"
	SourceBinanceLive    = "binance-live"
	SourceBlockchainInfo = "blockchain-info"
)
