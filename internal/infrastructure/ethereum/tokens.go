package ethereum

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// AllowlistedToken is a contract checked for a balance on every portfolio fetch
type AllowlistedToken struct {
	Address  common.Address
	Symbol   string
	Decimals uint8
}

// ID returns the lowercase hex address used as the token id
func (t AllowlistedToken) ID() string {
	return strings.ToLower(t.Address.Hex())
}

// DefaultAllowlist holds the popular mainnet ERC-20 tokens.
// Symbols and decimals are hints; decimals are always re-read on chain.
var DefaultAllowlist = []AllowlistedToken{
	{common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"), "USDC", 6},
	{common.HexToAddress("0xdAC17F958D2ee523a2206206994597C13D831ec7"), "USDT", 6},
	{common.HexToAddress("0x6B175474E89094C44Da98b954EedeAC495271d0F"), "DAI", 18},
	{common.HexToAddress("0x2260FAC5E5542a773Aa44fBCfeDf7C193bc2C599"), "WBTC", 8},
	{common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2"), "WETH", 18},
	{common.HexToAddress("0x1f9840a85d5aF5bf1D1762F925BDADdC4201F984"), "UNI", 18},
	{common.HexToAddress("0x514910771AF9Ca656af840dff83E8264EcF986CA"), "LINK", 18},
	{common.HexToAddress("0x7Fc66500c84A76Ad7e9c93437bFc5Ac33E2DDaE9"), "AAVE", 18},
}

// ResolveAllowlist builds the allow-list from configured addresses.
// Known addresses keep their hints, unknown ones get symbol "" and 18 decimals.
// Invalid entries are skipped. An empty override yields the default list.
func ResolveAllowlist(override []string) []AllowlistedToken {
	if len(override) == 0 {
		return DefaultAllowlist
	}

	known := make(map[common.Address]AllowlistedToken, len(DefaultAllowlist))
	for _, t := range DefaultAllowlist {
		known[t.Address] = t
	}

	seen := make(map[common.Address]struct{}, len(override))
	tokens := make([]AllowlistedToken, 0, len(override))
	for _, raw := range override {
		raw = strings.TrimSpace(raw)
		if !common.IsHexAddress(raw) {
			continue
		}
		addr := common.HexToAddress(raw)
		if _, dup := seen[addr]; dup {
			continue
		}
		seen[addr] = struct{}{}

		if t, ok := known[addr]; ok {
			tokens = append(tokens, t)
			continue
		}
		tokens = append(tokens, AllowlistedToken{Address: addr, Decimals: 18})
	}

	return tokens
}
