package model

import "math/big"

// PoolStatus is a read-only snapshot of the contract's getPoolStatus accessor.
type PoolStatus struct {
	PoolID            uint64   `json:"pool_id"`
	TotalNumbers      uint64   `json:"total_numbers"`
	CurrentBalanceWei *big.Int `json:"current_balance_wei"`
	ThresholdWei      *big.Int `json:"threshold_wei"`
}

// ParticipantNumbers are the numbers held by one address in the current round.
type ParticipantNumbers struct {
	Address string   `json:"address"`
	Numbers []uint64 `json:"numbers"`
}
