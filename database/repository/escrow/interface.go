package escrowRepo

import "shutterhub/models"

// EscrowRepository defines data access for escrow payments and dispute cases.
type EscrowRepository interface {
	// CreateEscrow inserts a new escrow payment record.
	CreateEscrow(payment *models.EscrowPayment) error
	// GetEscrowByID retrieves an escrow payment by its unique ID.
	GetEscrowByID(id string) (*models.EscrowPayment, error)
	// GetEscrowByBookingID retrieves the escrow payment for a booking.
	GetEscrowByBookingID(bookingID string) (*models.EscrowPayment, error)
	// UpdateEscrow persists the amounts and status of an escrow payment.
	UpdateEscrow(payment *models.EscrowPayment) error

	// CreateDispute inserts a new dispute case.
	CreateDispute(dispute *models.DisputeCase) error
	// GetDisputeByID retrieves a dispute case by its unique ID.
	GetDisputeByID(id string) (*models.DisputeCase, error)
	// UpdateDispute persists the state of a dispute case.
	UpdateDispute(dispute *models.DisputeCase) error
	// ListOpenDisputes retrieves disputes still pending or under investigation.
	ListOpenDisputes() ([]models.DisputeCase, error)
}
