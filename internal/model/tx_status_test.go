package model

import "testing"

func TestTxStatusClasses(t *testing.T) {
	cases := []struct {
		status   TxStatus
		inFlight bool
		failed   bool
	}{
		{TxStatusIdle, false, false},
		{TxStatusChainCheck, true, false},
		{TxStatusSubmitting, true, false},
		{TxStatusPending, true, false},
		{TxStatusConfirmed, false, false},
		{TxStatusFailedLocal, false, true},
		{TxStatusFailedOnChain, false, true},
	}

	for _, tc := range cases {
		if got := tc.status.InFlight(); got != tc.inFlight {
			t.Fatalf("%s in flight: got %v want %v", tc.status, got, tc.inFlight)
		}
		if got := tc.status.Failed(); got != tc.failed {
			t.Fatalf("%s failed: got %v want %v", tc.status, got, tc.failed)
		}
	}
}

func TestPendingTransactionHasHash(t *testing.T) {
	var p PendingTransaction
	if p.HasHash() {
		t.Fatalf("zero transaction should have no hash")
	}
	p.Hash[31] = 1
	if !p.HasHash() {
		t.Fatalf("expected hash to be set")
	}
}
