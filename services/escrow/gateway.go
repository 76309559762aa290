package escrow

import (
	"context"
	"fmt"
)

// HoldRequest describes the funds to place on hold for one booking.
type HoldRequest struct {
	Amount      int64
	Currency    string
	BookingID   string
	UserID      string
	Description string
}

// Gateway is the narrow payment-gateway contract the ledger depends on.
// Every method either completes on the gateway side or fails with no funds
// moved; the ledger persists nothing until the gateway confirms.
type Gateway interface {
	// HoldFunds authorizes the amount without capturing it and returns the
	// gateway's hold identifier.
	HoldFunds(ctx context.Context, req HoldRequest) (string, error)
	// Capture settles part or all of a held amount. The gateway releases
	// whatever remains uncaptured.
	Capture(ctx context.Context, holdID string, amount int64) error
	// CancelHold releases the full held amount back to the payer.
	CancelHold(ctx context.Context, holdID string) error
}

// GatewayError wraps a payment-gateway failure. It is always retryable: the
// local ledger state was left untouched.
type GatewayError struct {
	Op  string
	Err error
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("payment gateway %s failed (retryable): %v", e.Op, e.Err)
}

func (e *GatewayError) Unwrap() error { return e.Err }

// Retryable marks the error safe to retry without reconciliation.
func (e *GatewayError) Retryable() bool { return true }
