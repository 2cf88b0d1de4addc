package entities

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// PriceQuote is a unit price in USD with an optional 24h change percentage
type PriceQuote struct {
	PriceUSD  float64  `json:"price_usd"`
	Change24h *float64 `json:"price_change_24h,omitempty"`
}

// TokenMetadata holds the optional display fields of a token
type TokenMetadata struct {
	Name    *string `json:"name,omitempty"`
	LogoURI *string `json:"logo_uri,omitempty"`
}

// HasName reports whether the record carries a non-empty name
func (m *TokenMetadata) HasName() bool {
	return m != nil && m.Name != nil && *m.Name != ""
}

// ScaleAmount divides a raw integer balance by 10^decimals.
// The division is exact, only the final conversion to float64 rounds.
func ScaleAmount(raw *big.Int, decimals uint8) float64 {
	if raw == nil || raw.Sign() == 0 {
		return 0
	}
	f, _ := decimal.NewFromBigInt(raw, -int32(decimals)).Float64()
	return f
}

// ScaleUint64 is ScaleAmount for raw amounts that fit in a uint64
func ScaleUint64(raw uint64, decimals uint8) float64 {
	return ScaleAmount(new(big.Int).SetUint64(raw), decimals)
}

// StringPtr returns a pointer to s, or nil when s is empty
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
