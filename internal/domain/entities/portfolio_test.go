package entities

import (
	"encoding/json"
	"math/big"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestNewPortfolioSnapshot(t *testing.T) {
	fetchedAt := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)

	t.Run("derives values and count", func(t *testing.T) {
		holdings := []TokenHolding{
			NewTokenHolding("USDC", "0xa0b8", 100, 6, 1.0),
			NewTokenHolding("LINK", "0x5149", 2.5, 18, 14.2),
		}

		snapshot := NewPortfolioSnapshot(ChainEthereum, "0xabc", 1.5, 2000, holdings, fetchedAt)

		if snapshot.NativeValueUSD != 3000 {
			t.Errorf("expected native value 3000, got %v", snapshot.NativeValueUSD)
		}
		if snapshot.TotalTokensCount != 3 {
			t.Errorf("expected count 3, got %d", snapshot.TotalTokensCount)
		}
		if err := snapshot.Validate(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("drops zero and negative holdings", func(t *testing.T) {
		holdings := []TokenHolding{
			NewTokenHolding("USDC", "0xa0b8", 0, 6, 1.0),
			NewTokenHolding("DAI", "0x6b17", -1, 18, 1.0),
			NewTokenHolding("UNI", "0x1f98", 3, 18, 7.5),
		}

		snapshot := NewPortfolioSnapshot(ChainEthereum, "0xabc", 0, 2000, holdings, fetchedAt)

		if len(snapshot.Tokens) != 1 {
			t.Fatalf("expected 1 holding, got %d", len(snapshot.Tokens))
		}
		if snapshot.Tokens[0].Symbol != "UNI" {
			t.Errorf("expected UNI, got %s", snapshot.Tokens[0].Symbol)
		}
		if snapshot.TotalTokensCount != 1 {
			t.Errorf("expected count 1 with zero native balance, got %d", snapshot.TotalTokensCount)
		}
	})

	t.Run("empty wallet has an empty token list", func(t *testing.T) {
		snapshot := NewPortfolioSnapshot(ChainSolana, "addr", 0, 0, nil, fetchedAt)

		if snapshot.Tokens == nil {
			t.Error("expected non-nil token slice")
		}
		if snapshot.TotalTokensCount != 0 {
			t.Errorf("expected count 0, got %d", snapshot.TotalTokensCount)
		}
	})

	t.Run("optional fields are omitted from JSON", func(t *testing.T) {
		snapshot := NewPortfolioSnapshot(ChainEthereum, "0xabc", 1, 1, []TokenHolding{
			NewTokenHolding("USDC", "0xa0b8", 1, 6, 1.0),
		}, fetchedAt)

		data, err := json.Marshal(snapshot)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var decoded map[string]interface{}
		if err := json.Unmarshal(data, &decoded); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		token := decoded["tokens"].([]interface{})[0].(map[string]interface{})
		for _, key := range []string{"name", "logo_uri", "price_change_24h"} {
			if _, ok := token[key]; ok {
				t.Errorf("expected %s to be omitted", key)
			}
		}
	})
}

func TestSnapshotTotalValueUSD(t *testing.T) {
	holdings := []TokenHolding{
		NewTokenHolding("USDC", "0xa0b8", 100, 6, 1.0),
		NewTokenHolding("UNI", "0x1f98", 4, 18, 7.5),
	}
	snapshot := NewPortfolioSnapshot(ChainEthereum, "0xabc", 2, 1000, holdings, time.Now())

	if got := snapshot.TotalValueUSD(); got != 2130 {
		t.Errorf("expected total 2130, got %v", got)
	}

	empty := NewPortfolioSnapshot(ChainSolana, "addr", 0, 150, nil, time.Now())
	if got := empty.TotalValueUSD(); got != 0 {
		t.Errorf("expected zero total for empty wallet, got %v", got)
	}
}

func TestTokenHolding_WithQuote(t *testing.T) {
	change := -2.5
	h := NewTokenHolding("WETH", "0xc02a", 2, 18, 0).WithQuote(&PriceQuote{PriceUSD: 3000, Change24h: &change})

	if h.ValueUSD != 6000 {
		t.Errorf("expected value 6000, got %v", h.ValueUSD)
	}
	if h.PriceChange24h == nil || *h.PriceChange24h != -2.5 {
		t.Errorf("expected change -2.5, got %v", h.PriceChange24h)
	}

	unchanged := h.WithQuote(nil)
	if unchanged.PriceUSD != 3000 {
		t.Errorf("expected nil quote to keep price, got %v", unchanged.PriceUSD)
	}
}

func TestSnapshotValidate_Rejects(t *testing.T) {
	fetchedAt := time.Now()

	tests := []struct {
		name   string
		mutate func(*PortfolioSnapshot)
	}{
		{"wrong native value", func(p *PortfolioSnapshot) { p.NativeValueUSD = 1 }},
		{"wrong count", func(p *PortfolioSnapshot) { p.TotalTokensCount = 7 }},
		{"zero holding", func(p *PortfolioSnapshot) { p.Tokens[0].Amount = 0 }},
		{"wrong holding value", func(p *PortfolioSnapshot) { p.Tokens[0].ValueUSD = 99 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snapshot := NewPortfolioSnapshot(ChainEthereum, "0xabc", 2, 10, []TokenHolding{
				NewTokenHolding("USDC", "0xa0b8", 5, 6, 1.0),
			}, fetchedAt)
			tt.mutate(snapshot)

			if err := snapshot.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestScaleAmount(t *testing.T) {
	tests := []struct {
		name     string
		raw      *big.Int
		decimals uint8
		expected float64
	}{
		{"one ether", new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil), 18, 1},
		{"usdc", big.NewInt(1_500_000), 6, 1.5},
		{"zero", big.NewInt(0), 18, 0},
		{"nil", nil, 18, 0},
		{"no decimals", big.NewInt(42), 0, 42},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ScaleAmount(tt.raw, tt.decimals); got != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, got)
			}
		})
	}

	if got := ScaleUint64(1_000_000_000, 9); got != 1 {
		t.Errorf("expected 1 SOL, got %v", got)
	}
}

func TestSnapshotInvariants_Properties(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("snapshot invariants hold for any holdings", prop.ForAll(
		func(amounts []float64, price float64, native float64, nativePrice float64) bool {
			holdings := make([]TokenHolding, len(amounts))
			for i, amount := range amounts {
				holdings[i] = NewTokenHolding("TKN", "id", amount, 18, price)
			}

			snapshot := NewPortfolioSnapshot(ChainSolana, "addr", native, nativePrice, holdings, time.Now())
			return snapshot.Validate() == nil
		},
		gen.SliceOf(gen.Float64Range(-1000, 1e9)),
		gen.Float64Range(0, 1e5),
		gen.Float64Range(0, 1e6),
		gen.Float64Range(0, 1e5),
	))

	properties.Property("no holding with amount <= 0 survives", prop.ForAll(
		func(amounts []float64) bool {
			holdings := make([]TokenHolding, len(amounts))
			positive := 0
			for i, amount := range amounts {
				holdings[i] = NewTokenHolding("TKN", "id", amount, 9, 1)
				if amount > 0 {
					positive++
				}
			}

			snapshot := NewPortfolioSnapshot(ChainSolana, "addr", 0, 0, holdings, time.Now())
			for _, h := range snapshot.Tokens {
				if h.Amount <= 0 {
					return false
				}
			}
			return len(snapshot.Tokens) == positive && snapshot.TotalTokensCount == positive
		},
		gen.SliceOf(gen.Float64Range(-5, 5)),
	))

	properties.TestingRun(t)
}
