package model

// TxAttempt is the history record of one finished payment attempt.
type TxAttempt struct {
	ID          string `json:"id"`
	ChainID     uint64 `json:"chain_id"`
	Contract    string `json:"contract"`
	Submitter   string `json:"submitter"`
	TxHash      string `json:"tx_hash,omitempty"`
	AmountETH   string `json:"amount_eth"`
	Numbers     int64  `json:"numbers"`
	Status      string `json:"status"`
	Error       string `json:"error,omitempty"`
	BlockNumber uint64 `json:"block_number,omitempty"`
	StartedAt   string `json:"started_at"`
	FinishedAt  string `json:"finished_at"`
}
