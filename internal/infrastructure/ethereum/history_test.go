package ethereum

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/bimakw/chain-portfolio/internal/domain/entities"
)

func TestTransferEventSignature(t *testing.T) {
	// keccak256("Transfer(address,address,uint256)")
	expected := common.HexToHash("0xddf252ad1be2c89b69c2b068fc378daa952ba7f163c4a11628f55a4df523b3ef")
	if TransferEventSignature != expected {
		t.Errorf("TransferEventSignature mismatch: expected %s, got %s", expected.Hex(), TransferEventSignature.Hex())
	}
}

func transferLog(token, from, to common.Address, value *big.Int, block uint64, index uint, tx string) types.Log {
	return types.Log{
		Address: token,
		Topics: []common.Hash{
			TransferEventSignature,
			common.BytesToHash(from.Bytes()),
			common.BytesToHash(to.Bytes()),
		},
		Data:        common.LeftPadBytes(value.Bytes(), 32),
		BlockNumber: block,
		TxHash:      common.HexToHash(tx),
		Index:       index,
	}
}

func TestParseTransferEvent_Success(t *testing.T) {
	from := common.HexToAddress("0x1234567890123456789012345678901234567890")
	to := common.HexToAddress("0xabcdefabcdefabcdefabcdefabcdefabcdefabcd")
	token := common.HexToAddress("0xdAC17F958D2ee523a2206206994597C13D831ec7")

	log := transferLog(token, from, to, big.NewInt(1_000_000), 12345678, 5, "0x1111")

	event, err := ParseTransferEvent(log)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if event.TxHash != log.TxHash {
		t.Errorf("TxHash mismatch: got %s", event.TxHash.Hex())
	}
	if event.LogIndex != 5 || event.BlockNumber != 12345678 {
		t.Errorf("position mismatch: block %d index %d", event.BlockNumber, event.LogIndex)
	}
	if event.Token != token || event.From != from || event.To != to {
		t.Errorf("address mismatch: %+v", event)
	}
	if event.Value.Int64() != 1_000_000 {
		t.Errorf("Value mismatch: got %s", event.Value)
	}
}

func TestParseTransferEvent_LargeValue(t *testing.T) {
	largeValue, _ := new(big.Int).SetString("1000000000000000000000000000", 10)

	log := transferLog(
		common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"),
		common.HexToAddress("0x1111111111111111111111111111111111111111"),
		common.HexToAddress("0x2222222222222222222222222222222222222222"),
		largeValue, 1, 0, "0x0",
	)

	event, err := ParseTransferEvent(log)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if event.Value.Cmp(largeValue) != 0 {
		t.Errorf("Large value mismatch: expected %s, got %s", largeValue, event.Value)
	}
}

func TestParseTransferEvent_Invalid(t *testing.T) {
	approvalSig := common.HexToHash("0x8c5be1e5ebec7d5bd14f71427d1e84f3dd0314c0f7b2291e5b200ac8c7c3b925")
	addrTopic := common.BytesToHash(common.HexToAddress("0x1111111111111111111111111111111111111111").Bytes())

	tests := []struct {
		name       string
		topics     []common.Hash
		dataLen    int
		errContain string
	}{
		{"no topics", nil, 32, "invalid number of topics"},
		{"two topics", []common.Hash{TransferEventSignature, addrTopic}, 32, "invalid number of topics"},
		{"four topics", []common.Hash{TransferEventSignature, addrTopic, addrTopic, addrTopic}, 32, "invalid number of topics"},
		{"approval event", []common.Hash{approvalSig, addrTopic, addrTopic}, 32, "not a Transfer event"},
		{"empty data", []common.Hash{TransferEventSignature, addrTopic, addrTopic}, 0, "invalid data length"},
		{"long data", []common.Hash{TransferEventSignature, addrTopic, addrTopic}, 64, "invalid data length"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log := types.Log{
				Address:     common.HexToAddress("0xdAC17F958D2ee523a2206206994597C13D831ec7"),
				Topics:      tt.topics,
				Data:        make([]byte, tt.dataLen),
				BlockNumber: 1,
			}

			_, err := ParseTransferEvent(log)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.errContain) {
				t.Errorf("expected error containing %q, got %v", tt.errContain, err)
			}
			if IsTransferEvent(log) && tt.errContain != "invalid data length" {
				t.Error("IsTransferEvent should reject this log")
			}
		})
	}
}

func TestBackend_FetchTransactions(t *testing.T) {
	owner := common.HexToAddress(testOwner)
	other := common.HexToAddress("0x2222222222222222222222222222222222222222")
	usdc := common.HexToAddress(usdcID)
	dai := common.HexToAddress(daiID)

	selfTransfer := transferLog(dai, owner, owner, wei(1, 0), 4995, 0, "0xaaaa")
	sent := transferLog(usdc, owner, other, big.NewInt(5_000_000), 4990, 1, "0xbbbb")
	received := transferLog(usdc, other, owner, big.NewInt(1_000_000), 4500, 3, "0xcccc")
	malformed := types.Log{Address: usdc, Topics: []common.Hash{TransferEventSignature}, BlockNumber: 4999}

	ownerTopic := common.BytesToHash(owner.Bytes())

	newRPC := func() *mockRPC {
		return &mockRPC{
			LatestBlockNumberFunc: func(ctx context.Context) (uint64, error) {
				return 5000, nil
			},
			FilterLogsFunc: func(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
				if q.FromBlock.Uint64() != 4000 || q.ToBlock.Uint64() != 5000 {
					return nil, errors.New("unexpected block range")
				}
				if len(q.Addresses) != len(DefaultAllowlist) {
					return nil, errors.New("expected every allow-listed contract")
				}
				if len(q.Topics[1]) == 1 && q.Topics[1][0] == ownerTopic {
					return []types.Log{selfTransfer, sent, malformed}, nil
				}
				if len(q.Topics) == 3 && q.Topics[2][0] == ownerTopic {
					return []types.Log{received, selfTransfer}, nil
				}
				return nil, errors.New("unexpected topics")
			},
			BlockTimestampFunc: func(ctx context.Context, n uint64) (time.Time, error) {
				return time.Unix(int64(n)*12, 0).UTC(), nil
			},
		}
	}

	t.Run("merged newest first", func(t *testing.T) {
		records, err := newTestBackend(newRPC(), stablePrices(), nil).FetchTransactions(context.Background(), testOwner, 10)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(records) != 3 {
			t.Fatalf("expected 3 records, got %d", len(records))
		}

		expected := []struct {
			hash   string
			txType string
			amount float64
			symbol string
		}{
			{selfTransfer.TxHash.Hex(), entities.TxTypeSend, 1, "DAI"},
			{sent.TxHash.Hex(), entities.TxTypeSend, 5, "USDC"},
			{received.TxHash.Hex(), entities.TxTypeReceive, 1, "USDC"},
		}
		for i, want := range expected {
			got := records[i]
			if got.Hash != want.hash || got.Type != want.txType || got.Amount != want.amount || got.TokenSymbol != want.symbol {
				t.Errorf("record %d: got %+v, want %+v", i, got, want)
			}
			if got.Status != entities.TxStatusSuccess || got.Chain != entities.ChainEthereum {
				t.Errorf("record %d: unexpected status/chain %s/%s", i, got.Status, got.Chain)
			}
			if got.From == nil || got.To == nil {
				t.Errorf("record %d: expected from/to", i)
			}
		}

		if !records[2].Timestamp.Equal(time.Unix(4500*12, 0)) {
			t.Errorf("unexpected timestamp %v", records[2].Timestamp)
		}
		if *records[2].To != strings.ToLower(testOwner) {
			t.Errorf("expected lowercase recipient, got %s", *records[2].To)
		}
	})

	t.Run("truncated to limit", func(t *testing.T) {
		records, err := newTestBackend(newRPC(), stablePrices(), nil).FetchTransactions(context.Background(), testOwner, 2)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(records) != 2 {
			t.Fatalf("expected 2 records, got %d", len(records))
		}
		if records[0].BlockNumber != 4995 || records[1].BlockNumber != 4990 {
			t.Errorf("expected the two newest, got blocks %d and %d", records[0].BlockNumber, records[1].BlockNumber)
		}
	})

	t.Run("log query failure", func(t *testing.T) {
		rpc := newRPC()
		rpc.FilterLogsFunc = func(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
			return nil, errors.New("query returned more than 10000 results")
		}

		if _, err := newTestBackend(rpc, stablePrices(), nil).FetchTransactions(context.Background(), testOwner, 10); err == nil {
			t.Error("expected error")
		}
	})

	t.Run("timestamp failure", func(t *testing.T) {
		rpc := newRPC()
		rpc.BlockTimestampFunc = func(ctx context.Context, n uint64) (time.Time, error) {
			return time.Time{}, errors.New("header not found")
		}

		if _, err := newTestBackend(rpc, stablePrices(), nil).FetchTransactions(context.Background(), testOwner, 10); err == nil {
			t.Error("expected error")
		}
	})
}

func TestBackend_FetchTransactions_LookbackDisabled(t *testing.T) {
	var calls atomic.Int32
	rpc := &mockRPC{
		LatestBlockNumberFunc: func(ctx context.Context) (uint64, error) {
			calls.Add(1)
			return 5000, nil
		},
	}

	backend := newTestBackend(rpc, stablePrices(), nil)
	backend.config.TxLookbackBlocks = 0

	records, err := backend.FetchTransactions(context.Background(), testOwner, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if records == nil || len(records) != 0 {
		t.Errorf("expected an empty, non-nil list, got %v", records)
	}
	if calls.Load() != 0 {
		t.Error("expected no RPC calls")
	}
}

func TestBackend_FetchTransactions_ShortChain(t *testing.T) {
	rpc := &mockRPC{
		LatestBlockNumberFunc: func(ctx context.Context) (uint64, error) {
			return 10, nil
		},
		FilterLogsFunc: func(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
			if q.FromBlock.Uint64() != 0 {
				return nil, errors.New("lookback should clamp at genesis")
			}
			return nil, nil
		},
	}

	records, err := newTestBackend(rpc, stablePrices(), nil).FetchTransactions(context.Background(), testOwner, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("expected no records, got %d", len(records))
	}
}

func TestMetadataReader_MetadataOf(t *testing.T) {
	rpc := &mockRPC{
		CallContractFunc: func(ctx context.Context, to common.Address, data []byte) ([]byte, error) {
			if strings.ToLower(to.Hex()) == usdcID {
				return abiString("USD Coin"), nil
			}
			return abiString(""), nil
		},
	}
	reader := NewMetadataReader(rpc)

	meta, err := reader.MetadataOf(context.Background(), usdcID, entities.ChainEthereum)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !meta.HasName() || *meta.Name != "USD Coin" {
		t.Errorf("expected USD Coin, got %v", meta.Name)
	}

	if _, err := reader.MetadataOf(context.Background(), daiID, entities.ChainEthereum); !errors.Is(err, ErrNoName) {
		t.Errorf("expected ErrNoName, got %v", err)
	}
	if _, err := reader.MetadataOf(context.Background(), usdcID, entities.ChainSolana); err == nil {
		t.Error("expected error for foreign chain")
	}
	if _, err := reader.MetadataOf(context.Background(), "nope", entities.ChainEthereum); err == nil {
		t.Error("expected error for invalid address")
	}
}
