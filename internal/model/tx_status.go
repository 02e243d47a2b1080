package model

// TxStatus is a state of the transaction lifecycle.
type TxStatus string

const (
	TxStatusIdle          TxStatus = "idle"
	TxStatusChainCheck    TxStatus = "chain_check"
	TxStatusSubmitting    TxStatus = "submitting"
	TxStatusPending       TxStatus = "pending"
	TxStatusConfirmed     TxStatus = "confirmed"
	TxStatusFailedLocal   TxStatus = "failed_local"
	TxStatusFailedOnChain TxStatus = "failed_onchain"
)

// InFlight reports whether a submission is between intent and receipt.
func (s TxStatus) InFlight() bool {
	switch s {
	case TxStatusChainCheck, TxStatusSubmitting, TxStatusPending:
		return true
	}
	return false
}

// Failed reports whether s is one of the failure states.
func (s TxStatus) Failed() bool {
	return s == TxStatusFailedLocal || s == TxStatusFailedOnChain
}
