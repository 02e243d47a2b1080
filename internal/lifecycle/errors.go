package lifecycle

import "errors"

var (
	// ErrWalletRequired means no account is connected.
	ErrWalletRequired = errors.New("wallet required")
	// ErrNetworkMismatch means the wallet is on the wrong chain and could not switch.
	ErrNetworkMismatch = errors.New("network mismatch")
	// ErrSubmissionRejected means signing or broadcasting failed.
	ErrSubmissionRejected = errors.New("submission rejected")
	// ErrTransactionReverted means the transaction was mined with a failed status.
	ErrTransactionReverted = errors.New("transaction reverted")
	// ErrNotificationFailed is logged and never returned to callers.
	ErrNotificationFailed = errors.New("notification failed")
	// ErrBusy means another submission is still in flight.
	ErrBusy = errors.New("transaction already in progress")
	// ErrInvalidAmount means the amount does not buy a positive whole number of tickets.
	ErrInvalidAmount = errors.New("invalid amount")
	// ErrDetached means the receipt watcher stopped before a receipt arrived.
	// The broadcast transaction is unaffected and may still be mined.
	ErrDetached = errors.New("stopped watching transaction")
)

// UserMessage maps a controller error to the fixed text shown to users.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrWalletRequired):
		return "Please connect your wallet to participate in the pool."
	case errors.Is(err, ErrNetworkMismatch):
		return "Please switch your wallet to Base to participate in the pool."
	case errors.Is(err, ErrBusy):
		return "A transaction is already in progress."
	case errors.Is(err, ErrInvalidAmount):
		return "Smart Contract will only receive multiples of the ticket price."
	case errors.Is(err, ErrDetached):
		return "Stopped watching. The transaction may still be confirmed on chain."
	default:
		return "Please try again. If the problem persists, check your wallet settings."
	}
}
