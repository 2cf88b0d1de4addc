package entities

import (
	"fmt"
	"strings"
)

// Chain identifies one of the supported ledgers
type Chain string

const (
	// ChainEthereum is the account-model chain queried through contract calls
	ChainEthereum Chain = "ethereum"
	// ChainSolana is the token-account chain queried through program accounts
	ChainSolana Chain = "solana"
)

// SupportedChains lists every chain a backend can be registered for
var SupportedChains = []Chain{ChainEthereum, ChainSolana}

// ParseChain parses a chain selector, case-insensitively
func ParseChain(s string) (Chain, error) {
	switch Chain(strings.ToLower(strings.TrimSpace(s))) {
	case ChainEthereum:
		return ChainEthereum, nil
	case ChainSolana:
		return ChainSolana, nil
	default:
		return "", fmt.Errorf("unsupported chain %q", s)
	}
}

// NativeSymbol returns the ticker of the chain's base currency
func (c Chain) NativeSymbol() string {
	switch c {
	case ChainEthereum:
		return "ETH"
	case ChainSolana:
		return "SOL"
	default:
		return ""
	}
}

// NormalizeAddress returns the canonical cache-key form of an address.
// Ethereum addresses are hex and compared case-insensitively, Solana
// addresses are base58 and case-sensitive.
func (c Chain) NormalizeAddress(address string) string {
	address = strings.TrimSpace(address)
	if c == ChainEthereum {
		return strings.ToLower(address)
	}
	return address
}

func (c Chain) String() string {
	return string(c)
}
