package escrow

import (
	"context"
	"fmt"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/paymentintent"
)

// StripeGateway holds funds with manual-capture PaymentIntents: authorization
// at hold time, capture at resolution, cancellation to release. The uncaptured
// remainder of a partial capture is released by Stripe automatically. Relies
// on the package-level stripe.Key being set at startup.
type StripeGateway struct{}

func NewStripeGateway() *StripeGateway { return &StripeGateway{} }

func (g *StripeGateway) HoldFunds(ctx context.Context, req HoldRequest) (string, error) {
	params := &stripe.PaymentIntentParams{
		Params:        stripe.Params{Context: ctx},
		Amount:        stripe.Int64(req.Amount),
		Currency:      stripe.String(req.Currency),
		CaptureMethod: stripe.String(string(stripe.PaymentIntentCaptureMethodManual)),
		Description:   stripe.String(req.Description),
	}
	params.AddMetadata("booking_id", req.BookingID)
	params.AddMetadata("user_id", req.UserID)

	pi, err := paymentintent.New(params)
	if err != nil {
		return "", &GatewayError{Op: "hold", Err: err}
	}
	return pi.ID, nil
}

func (g *StripeGateway) Capture(ctx context.Context, holdID string, amount int64) error {
	params := &stripe.PaymentIntentCaptureParams{
		Params:          stripe.Params{Context: ctx},
		AmountToCapture: stripe.Int64(amount),
	}
	if _, err := paymentintent.Capture(holdID, params); err != nil {
		return &GatewayError{Op: "capture", Err: fmt.Errorf("intent %s: %w", holdID, err)}
	}
	return nil
}

func (g *StripeGateway) CancelHold(ctx context.Context, holdID string) error {
	params := &stripe.PaymentIntentCancelParams{
		Params: stripe.Params{Context: ctx},
	}
	if _, err := paymentintent.Cancel(holdID, params); err != nil {
		return &GatewayError{Op: "cancel", Err: fmt.Errorf("intent %s: %w", holdID, err)}
	}
	return nil
}
