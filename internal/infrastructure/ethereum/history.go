package ethereum

import (
	"context"
	"fmt"
	"math/big"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/samber/lo"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/bimakw/chain-portfolio/internal/domain/entities"
)

// TransferEventSignature is the keccak256 hash of Transfer(address,address,uint256)
var TransferEventSignature = common.HexToHash("0xddf252ad1be2c89b69c2b068fc378daa952ba7f163c4a11628f55a4df523b3ef")

// TransferEvent is a decoded ERC-20 Transfer log
type TransferEvent struct {
	TxHash      common.Hash
	LogIndex    uint
	BlockNumber uint64
	Token       common.Address
	From        common.Address
	To          common.Address
	Value       *big.Int
}

// ParseTransferEvent decodes a raw log into a TransferEvent
func ParseTransferEvent(log types.Log) (*TransferEvent, error) {
	if len(log.Topics) != 3 {
		return nil, fmt.Errorf("invalid number of topics: expected 3, got %d", len(log.Topics))
	}

	if log.Topics[0] != TransferEventSignature {
		return nil, fmt.Errorf("not a Transfer event")
	}

	// Indexed from/to are left-padded to 32 bytes
	from := common.BytesToAddress(log.Topics[1].Bytes())
	to := common.BytesToAddress(log.Topics[2].Bytes())

	if len(log.Data) != 32 {
		return nil, fmt.Errorf("invalid data length: expected 32, got %d", len(log.Data))
	}

	return &TransferEvent{
		TxHash:      log.TxHash,
		LogIndex:    log.Index,
		BlockNumber: log.BlockNumber,
		Token:       log.Address,
		From:        from,
		To:          to,
		Value:       new(big.Int).SetBytes(log.Data),
	}, nil
}

// IsTransferEvent checks if a log is a Transfer event
func IsTransferEvent(log types.Log) bool {
	return len(log.Topics) == 3 && log.Topics[0] == TransferEventSignature
}

// FetchTransactions returns the address's most recent allow-listed token
// transfers within the configured block lookback, newest first.
func (b *Backend) FetchTransactions(ctx context.Context, address string, limit int) ([]entities.TransactionRecord, error) {
	if b.config.TxLookbackBlocks == 0 || limit <= 0 || len(b.tokens) == 0 {
		return []entities.TransactionRecord{}, nil
	}

	owner := common.HexToAddress(address)

	latest, err := b.rpc.LatestBlockNumber(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get latest block: %w", err)
	}

	var fromBlock uint64
	if latest > b.config.TxLookbackBlocks {
		fromBlock = latest - b.config.TxLookbackBlocks
	}

	logs, err := b.fetchOwnerTransferLogs(ctx, owner, fromBlock, latest)
	if err != nil {
		return nil, err
	}

	events := make([]TransferEvent, 0, len(logs))
	for _, log := range logs {
		event, err := ParseTransferEvent(log)
		if err != nil {
			b.logger.Debug("Skipping malformed transfer log",
				zap.String("tx_hash", log.TxHash.Hex()),
				zap.Error(err),
			)
			continue
		}
		events = append(events, *event)
	}

	sort.Slice(events, func(i, j int) bool {
		if events[i].BlockNumber != events[j].BlockNumber {
			return events[i].BlockNumber > events[j].BlockNumber
		}
		return events[i].LogIndex > events[j].LogIndex
	})
	if len(events) > limit {
		events = events[:limit]
	}

	blockNumbers := lo.Uniq(lo.Map(events, func(e TransferEvent, _ int) uint64 { return e.BlockNumber }))
	timestamps, err := b.fetchBlockTimestamps(ctx, blockNumbers)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch block timestamps: %w", err)
	}

	tokens := lo.KeyBy(b.tokens, func(t AllowlistedToken) common.Address { return t.Address })

	records := make([]entities.TransactionRecord, 0, len(events))
	for _, event := range events {
		records = append(records, b.toRecord(event, owner, tokens[event.Token], timestamps[event.BlockNumber]))
	}

	b.logger.Debug("Fetched transfer history",
		zap.String("address", address),
		zap.Uint64("from_block", fromBlock),
		zap.Uint64("to_block", latest),
		zap.Int("count", len(records)),
	)

	return records, nil
}

// fetchOwnerTransferLogs runs the sender and recipient queries concurrently
// and merges them, dropping the duplicate a self-transfer produces.
func (b *Backend) fetchOwnerTransferLogs(ctx context.Context, owner common.Address, fromBlock, toBlock uint64) ([]types.Log, error) {
	contracts := lo.Map(b.tokens, func(t AllowlistedToken, _ int) common.Address { return t.Address })
	ownerTopic := common.BytesToHash(owner.Bytes())

	queries := []ethereum.FilterQuery{
		{
			FromBlock: new(big.Int).SetUint64(fromBlock),
			ToBlock:   new(big.Int).SetUint64(toBlock),
			Addresses: contracts,
			Topics:    [][]common.Hash{{TransferEventSignature}, {ownerTopic}},
		},
		{
			FromBlock: new(big.Int).SetUint64(fromBlock),
			ToBlock:   new(big.Int).SetUint64(toBlock),
			Addresses: contracts,
			Topics:    [][]common.Hash{{TransferEventSignature}, nil, {ownerTopic}},
		},
	}

	results := make([][]types.Log, len(queries))
	g, gctx := errgroup.WithContext(ctx)
	for i, query := range queries {
		g.Go(func() error {
			logs, err := b.rpc.FilterLogs(gctx, query)
			if err != nil {
				return fmt.Errorf("failed to fetch transfer logs: %w", err)
			}
			results[i] = logs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	type logKey struct {
		tx    common.Hash
		index uint
	}
	return lo.UniqBy(lo.Flatten(results), func(l types.Log) logKey {
		return logKey{tx: l.TxHash, index: l.Index}
	}), nil
}

// fetchBlockTimestamps fetches timestamps for multiple blocks concurrently
func (b *Backend) fetchBlockTimestamps(ctx context.Context, blockNumbers []uint64) (map[uint64]time.Time, error) {
	timestamps := make(map[uint64]time.Time, len(blockNumbers))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, b.config.MaxConcurrency))

	for _, blockNum := range blockNumbers {
		g.Go(func() error {
			timestamp, err := b.rpc.BlockTimestamp(gctx, blockNum)
			if err != nil {
				return fmt.Errorf("failed to get timestamp for block %d: %w", blockNum, err)
			}

			mu.Lock()
			timestamps[blockNum] = timestamp
			mu.Unlock()

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return timestamps, nil
}

func (b *Backend) toRecord(event TransferEvent, owner common.Address, token AllowlistedToken, timestamp time.Time) entities.TransactionRecord {
	txType := entities.TxTypeReceive
	if event.From == owner {
		txType = entities.TxTypeSend
	}

	decimals := token.Decimals
	symbol := token.Symbol
	if token.Address == (common.Address{}) {
		decimals = nativeDecimals
	}
	if symbol == "" {
		symbol = unknownSymbol
	}

	from := strings.ToLower(event.From.Hex())
	to := strings.ToLower(event.To.Hex())

	return entities.TransactionRecord{
		Hash:        event.TxHash.Hex(),
		Timestamp:   timestamp,
		Type:        txType,
		Amount:      entities.ScaleAmount(event.Value, decimals),
		TokenSymbol: symbol,
		Chain:       entities.ChainEthereum,
		Status:      entities.TxStatusSuccess,
		From:        &from,
		To:          &to,
		BlockNumber: event.BlockNumber,
		LogIndex:    event.LogIndex,
	}
}
