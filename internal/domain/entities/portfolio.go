package entities

import (
	"fmt"
	"math"
	"time"
)

// valueTolerance is the relative tolerance used when checking value == amount * price
const valueTolerance = 1e-9

// TokenHolding represents a single fungible token held by an address
type TokenHolding struct {
	Symbol         string   `json:"symbol"`
	MintOrAddress  string   `json:"mint_or_address"`
	Amount         float64  `json:"amount"`
	Decimals       uint8    `json:"decimals"`
	PriceUSD       float64  `json:"price_usd"`
	ValueUSD       float64  `json:"value_usd"`
	Name           *string  `json:"name,omitempty"`
	LogoURI        *string  `json:"logo_uri,omitempty"`
	PriceChange24h *float64 `json:"price_change_24h,omitempty"`
}

// NewTokenHolding creates a holding with its value derived from amount and price
func NewTokenHolding(symbol, mintOrAddress string, amount float64, decimals uint8, priceUSD float64) TokenHolding {
	return TokenHolding{
		Symbol:        symbol,
		MintOrAddress: mintOrAddress,
		Amount:        amount,
		Decimals:      decimals,
		PriceUSD:      priceUSD,
		ValueUSD:      amount * priceUSD,
	}
}

// WithMetadata attaches the optional display fields of a metadata record
func (h TokenHolding) WithMetadata(meta *TokenMetadata) TokenHolding {
	if meta == nil {
		return h
	}
	h.Name = meta.Name
	h.LogoURI = meta.LogoURI
	return h
}

// WithQuote applies a price quote, recomputing the value
func (h TokenHolding) WithQuote(quote *PriceQuote) TokenHolding {
	if quote == nil {
		return h
	}
	h.PriceUSD = quote.PriceUSD
	h.ValueUSD = h.Amount * quote.PriceUSD
	h.PriceChange24h = quote.Change24h
	return h
}

// PortfolioSnapshot is one address's holdings on one chain at fetch time
type PortfolioSnapshot struct {
	Chain            Chain          `json:"chain"`
	Address          string         `json:"address"`
	NativeBalance    float64        `json:"native_balance"`
	NativePriceUSD   float64        `json:"native_price_usd"`
	NativeValueUSD   float64        `json:"native_value_usd"`
	Tokens           []TokenHolding `json:"tokens"`
	TotalTokensCount int            `json:"total_tokens_count"`
	LastUpdated      time.Time      `json:"last_updated"`
}

// NewPortfolioSnapshot assembles a snapshot so that its invariants hold by
// construction: holdings with a non-positive amount are dropped, the native
// value is derived and the asset count includes the native balance when positive.
func NewPortfolioSnapshot(
	chain Chain,
	address string,
	nativeBalance float64,
	nativePriceUSD float64,
	holdings []TokenHolding,
	fetchedAt time.Time,
) *PortfolioSnapshot {
	tokens := make([]TokenHolding, 0, len(holdings))
	for _, h := range holdings {
		if h.Amount <= 0 {
			continue
		}
		tokens = append(tokens, h)
	}

	count := len(tokens)
	if nativeBalance > 0 {
		count++
	}

	return &PortfolioSnapshot{
		Chain:            chain,
		Address:          address,
		NativeBalance:    nativeBalance,
		NativePriceUSD:   nativePriceUSD,
		NativeValueUSD:   nativeBalance * nativePriceUSD,
		Tokens:           tokens,
		TotalTokensCount: count,
		LastUpdated:      fetchedAt.UTC(),
	}
}

// Validate checks the snapshot invariants
func (p *PortfolioSnapshot) Validate() error {
	if p.NativeBalance < 0 || p.NativePriceUSD < 0 {
		return fmt.Errorf("negative native balance or price")
	}
	if !approxEqual(p.NativeValueUSD, p.NativeBalance*p.NativePriceUSD) {
		return fmt.Errorf("native value %v != %v * %v", p.NativeValueUSD, p.NativeBalance, p.NativePriceUSD)
	}

	for _, h := range p.Tokens {
		if h.Amount <= 0 {
			return fmt.Errorf("holding %s has non-positive amount %v", h.MintOrAddress, h.Amount)
		}
		if !approxEqual(h.ValueUSD, h.Amount*h.PriceUSD) {
			return fmt.Errorf("holding %s value %v != %v * %v", h.MintOrAddress, h.ValueUSD, h.Amount, h.PriceUSD)
		}
	}

	expected := len(p.Tokens)
	if p.NativeBalance > 0 {
		expected++
	}
	if p.TotalTokensCount != expected {
		return fmt.Errorf("total_tokens_count %d, expected %d", p.TotalTokensCount, expected)
	}

	return nil
}

// TotalValueUSD sums the native value and every holding value
func (p *PortfolioSnapshot) TotalValueUSD() float64 {
	total := p.NativeValueUSD
	for _, h := range p.Tokens {
		total += h.ValueUSD
	}
	return total
}

func approxEqual(a, b float64) bool {
	if a == b {
		return true
	}
	diff := math.Abs(a - b)
	scale := math.Max(math.Abs(a), math.Abs(b))
	return diff <= valueTolerance*scale
}
