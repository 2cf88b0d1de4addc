package entities

import (
	"time"
)

// Transaction types
const (
	TxTypeTransfer = "transfer"
	TxTypeSend     = "send"
	TxTypeReceive  = "receive"
)

// Transaction statuses
const (
	TxStatusSuccess = "success"
	TxStatusFailed  = "failed"
)

// TransactionRecord is one entry in an address's recent history
type TransactionRecord struct {
	Hash        string    `json:"hash"`
	Timestamp   time.Time `json:"timestamp"`
	Type        string    `json:"type"`
	Amount      float64   `json:"amount"`
	TokenSymbol string    `json:"token_symbol"`
	Chain       Chain     `json:"chain"`
	Status      string    `json:"status"`
	From        *string   `json:"from,omitempty"`
	To          *string   `json:"to,omitempty"`

	// Ordering keys, not serialized
	BlockNumber uint64 `json:"-"`
	LogIndex    uint   `json:"-"`
}

// Default and maximum transaction page sizes
const (
	DefaultTransactionLimit = 10
	MaxTransactionLimit     = 100
)

// ClampTransactionLimit bounds a requested page size to [1, MaxTransactionLimit]
func ClampTransactionLimit(limit int) int {
	if limit <= 0 {
		return DefaultTransactionLimit
	}
	if limit > MaxTransactionLimit {
		return MaxTransactionLimit
	}
	return limit
}
