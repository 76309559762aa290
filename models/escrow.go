package models

import "time"

// Escrow payment statuses.
const (
	EscrowHeld              = "held"
	EscrowCaptured          = "captured"
	EscrowRefunded          = "refunded"
	EscrowPartiallyRefunded = "partially_refunded"
)

// Dispute statuses.
const (
	DisputePending       = "pending"
	DisputeInvestigating = "investigating"
	DisputeResolved      = "resolved"
	DisputeEscalated     = "escalated"
)

// Dispute resolutions.
const (
	ResolutionFullRefund        = "full_refund"
	ResolutionPartialRefund     = "partial_refund"
	ResolutionPhotographerFavor = "photographer_favor"
	ResolutionMediation         = "mediation"
)

// EscrowPayment tracks the funds held for one booking from hold through
// capture, refund, or partial refund. CapturedAmount + RefundedAmount never
// exceeds HeldAmount.
type EscrowPayment struct {
	ID             string    `bson:"id" json:"id"`
	BookingID      string    `bson:"booking_id" json:"booking_id"`
	HoldID         string    `bson:"hold_id" json:"hold_id"` // payment-gateway hold identifier
	HeldAmount     int64     `bson:"held_amount" json:"held_amount"`
	CapturedAmount int64     `bson:"captured_amount" json:"captured_amount"`
	RefundedAmount int64     `bson:"refunded_amount" json:"refunded_amount"`
	Currency       string    `bson:"currency" json:"currency"`
	Status         string    `bson:"status" json:"status"`
	CreatedAt      time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt      time.Time `bson:"updated_at" json:"updated_at"`
}

// DisputeCase is opened by a guest against a booking's escrowed payment.
// It resolves exactly once; escalation is the only path back to active
// handling after resolution.
type DisputeCase struct {
	ID               string     `bson:"id" json:"id"`
	BookingID        string     `bson:"booking_id" json:"booking_id"`
	EscrowID         string     `bson:"escrow_id" json:"escrow_id"`
	OpenedBy         string     `bson:"opened_by" json:"opened_by"`
	Reason           string     `bson:"reason" json:"reason"`
	Status           string     `bson:"status" json:"status"`
	Resolution       string     `bson:"resolution,omitempty" json:"resolution,omitempty"`
	ResolutionAmount int64      `bson:"resolution_amount,omitempty" json:"resolution_amount,omitempty"`
	ResolvedBy       string     `bson:"resolved_by,omitempty" json:"resolved_by,omitempty"`
	CreatedAt        time.Time  `bson:"created_at" json:"created_at"`
	ResolvedAt       *time.Time `bson:"resolved_at,omitempty" json:"resolved_at,omitempty"`
}
