package market

// PairData is one trading pair as reported by DexScreener
type PairData struct {
	ChainID     string       `json:"chainId"`
	DexID       string       `json:"dexId"`
	PairAddress string       `json:"pairAddress"`
	BaseToken   TokenRef     `json:"baseToken"`
	QuoteToken  TokenRef     `json:"quoteToken"`
	PriceUsd    string       `json:"priceUsd,omitempty"`
	PriceChange *PriceChange `json:"priceChange,omitempty"`
	Liquidity   *Liquidity   `json:"liquidity,omitempty"`
	Info        *PairInfo    `json:"info,omitempty"`
}

// TokenRef identifies one side of a pair
type TokenRef struct {
	Address string `json:"address"`
	Name    string `json:"name"`
	Symbol  string `json:"symbol"`
}

// PriceChange holds percentage changes over fixed windows
type PriceChange struct {
	H1  *float64 `json:"h1,omitempty"`
	H24 *float64 `json:"h24,omitempty"`
}

// Liquidity holds the pooled value of a pair
type Liquidity struct {
	Usd float64 `json:"usd"`
}

// PairInfo holds display assets of the base token
type PairInfo struct {
	ImageURL string `json:"imageUrl,omitempty"`
}

// pairsEnvelope is the wrapped response shape of the older search endpoints
type pairsEnvelope struct {
	Pairs []PairData `json:"pairs"`
}

func (p *PairData) liquidityUSD() float64 {
	if p.Liquidity == nil {
		return 0
	}
	return p.Liquidity.Usd
}
