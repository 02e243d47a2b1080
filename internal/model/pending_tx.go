package model

import "github.com/ethereum/go-ethereum/common"

// PendingTransaction is the one payment tracked by the lifecycle controller.
type PendingTransaction struct {
	Hash      common.Hash `json:"hash"`
	AmountETH string      `json:"amount_eth"`
	Numbers   int64       `json:"numbers"`
	Submitter string      `json:"submitter,omitempty"`
	Status    TxStatus    `json:"status"`
}

// HasHash reports whether the transaction was broadcast.
func (p PendingTransaction) HasHash() bool {
	return p.Hash != (common.Hash{})
}
