package escrow

import (
	"context"
	"errors"
	"fmt"
	"time"

	escrowRepo "shutterhub/database/repository/escrow"
	"shutterhub/models"
	"shutterhub/services/notification"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Expected dispute and ledger outcomes.
var (
	ErrAlreadyResolved         = errors.New("dispute has already been resolved")
	ErrEscrowNotHeld           = errors.New("escrow payment is no longer in held state")
	ErrEscrowSettled           = errors.New("escrowed funds have already been settled")
	ErrInvalidResolutionAmount = errors.New("resolution amount is invalid for the held funds")
	ErrUnknownResolution       = errors.New("unknown resolution type")
)

// Ledger owns every movement of escrowed funds: the hold placed at booking
// time, the release on cancellation, and the dispute lifecycle that decides
// where held money ends up. Money only moves through Resolve or ReleaseHold,
// and each escrow record settles exactly once.
type Ledger struct {
	Repo     escrowRepo.EscrowRepository
	Gateway  Gateway
	Notifier notification.NotificationService
	Logger   *zap.Logger

	// Now is the clock source; overridable in tests.
	Now func() time.Time
}

func (l *Ledger) now() time.Time {
	if l.Now != nil {
		return l.Now()
	}
	return time.Now()
}

// Hold authorizes the booking amount on the gateway and records the escrow.
// Called by the allocation engine right after a paid booking is confirmed;
// a gateway failure here rolls the booking back, so nothing is persisted
// until the gateway confirms the hold.
func (l *Ledger) Hold(ctx context.Context, booking *models.Booking) (*models.EscrowPayment, error) {
	holdID, err := l.Gateway.HoldFunds(ctx, HoldRequest{
		Amount:      booking.Amount,
		Currency:    booking.Currency,
		BookingID:   booking.ID,
		UserID:      booking.UserID,
		Description: fmt.Sprintf("session booking %s", booking.ID),
	})
	if err != nil {
		return nil, err
	}

	now := l.now()
	payment := &models.EscrowPayment{
		ID:         uuid.New().String(),
		BookingID:  booking.ID,
		HoldID:     holdID,
		HeldAmount: booking.Amount,
		Currency:   booking.Currency,
		Status:     models.EscrowHeld,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := l.Repo.CreateEscrow(payment); err != nil {
		// The gateway hold exists but we lost the record; cancel it so no
		// funds stay authorized for a booking we cannot track.
		if cancelErr := l.Gateway.CancelHold(ctx, holdID); cancelErr != nil {
			l.Logger.Error("orphaned gateway hold after escrow record failure",
				zap.String("hold", holdID), zap.String("booking", booking.ID), zap.Error(cancelErr))
		}
		return nil, fmt.Errorf("failed to record escrow hold: %w", err)
	}

	l.Logger.Info("escrow hold placed",
		zap.String("booking", booking.ID),
		zap.String("hold", holdID),
		zap.Int64("amount", booking.Amount))
	return payment, nil
}

// ReleaseHold returns the full held amount to the guest, used when a booking
// is cancelled outside any dispute. No-op if the escrow already settled.
func (l *Ledger) ReleaseHold(ctx context.Context, bookingID string) error {
	payment, err := l.Repo.GetEscrowByBookingID(bookingID)
	if err != nil {
		return err
	}
	if payment.Status != models.EscrowHeld {
		return nil
	}

	if err := l.Gateway.CancelHold(ctx, payment.HoldID); err != nil {
		return err
	}

	payment.RefundedAmount = payment.HeldAmount
	payment.Status = models.EscrowRefunded
	if err := l.Repo.UpdateEscrow(payment); err != nil {
		return fmt.Errorf("failed to record escrow release: %w", err)
	}

	l.Logger.Info("escrow hold released",
		zap.String("booking", bookingID), zap.Int64("amount", payment.HeldAmount))
	return nil
}

// OpenDispute freezes a booking's held funds pending an admin decision.
func (l *Ledger) OpenDispute(ctx context.Context, bookingID, openedBy, reason string) (*models.DisputeCase, error) {
	payment, err := l.Repo.GetEscrowByBookingID(bookingID)
	if err != nil {
		return nil, err
	}
	if payment.Status != models.EscrowHeld {
		return nil, ErrEscrowNotHeld
	}

	dispute := &models.DisputeCase{
		ID:        uuid.New().String(),
		BookingID: bookingID,
		EscrowID:  payment.ID,
		OpenedBy:  openedBy,
		Reason:    reason,
		Status:    models.DisputePending,
		CreatedAt: l.now(),
	}
	if err := l.Repo.CreateDispute(dispute); err != nil {
		return nil, fmt.Errorf("failed to open dispute: %w", err)
	}

	l.Logger.Info("dispute opened",
		zap.String("dispute", dispute.ID),
		zap.String("booking", bookingID),
		zap.String("openedBy", openedBy))
	return dispute, nil
}

// StartInvestigation moves a pending dispute under active admin review.
func (l *Ledger) StartInvestigation(ctx context.Context, disputeID string) error {
	dispute, err := l.Repo.GetDisputeByID(disputeID)
	if err != nil {
		return err
	}
	if dispute.Status == models.DisputeResolved {
		return ErrAlreadyResolved
	}
	dispute.Status = models.DisputeInvestigating
	return l.Repo.UpdateDispute(dispute)
}

// Escalate reopens a resolved dispute, or flags an open one for senior
// review. Escalation is the only path that allows a second resolution, and a
// second resolution can only redirect funds that are still held.
func (l *Ledger) Escalate(ctx context.Context, disputeID string) error {
	dispute, err := l.Repo.GetDisputeByID(disputeID)
	if err != nil {
		return err
	}
	dispute.Status = models.DisputeEscalated
	if err := l.Repo.UpdateDispute(dispute); err != nil {
		return err
	}
	l.Logger.Warn("dispute escalated", zap.String("dispute", disputeID))
	return nil
}

// Resolve settles a dispute and moves the held funds accordingly:
//
//	full_refund        — cancel the hold, everything back to the guest
//	partial_refund     — capture held−amount for the photographer, refund the rest
//	photographer_favor — capture the full held amount
//	mediation          — no funds move; the dispute goes back to investigation
//
// The gateway is called before any local state changes, so a gateway failure
// leaves the escrow held and the dispute open for a retry.
func (l *Ledger) Resolve(ctx context.Context, disputeID, resolution string, amount int64, resolvedBy string) (*models.EscrowPayment, error) {
	dispute, err := l.Repo.GetDisputeByID(disputeID)
	if err != nil {
		return nil, err
	}
	if dispute.Status == models.DisputeResolved {
		return nil, ErrAlreadyResolved
	}

	payment, err := l.Repo.GetEscrowByID(dispute.EscrowID)
	if err != nil {
		return nil, err
	}
	if payment.Status != models.EscrowHeld {
		// An escalated dispute can be resolved again, but once the funds
		// moved there is nothing left to redirect.
		return nil, ErrEscrowSettled
	}

	switch resolution {
	case models.ResolutionFullRefund:
		if amount != 0 && amount != payment.HeldAmount {
			return nil, ErrInvalidResolutionAmount
		}
		if err := l.Gateway.CancelHold(ctx, payment.HoldID); err != nil {
			return nil, err
		}
		payment.RefundedAmount = payment.HeldAmount
		payment.Status = models.EscrowRefunded
		amount = payment.HeldAmount

	case models.ResolutionPartialRefund:
		if amount <= 0 || amount >= payment.HeldAmount {
			return nil, ErrInvalidResolutionAmount
		}
		// Capturing the photographer's share releases the refunded
		// remainder on the gateway side.
		if err := l.Gateway.Capture(ctx, payment.HoldID, payment.HeldAmount-amount); err != nil {
			return nil, err
		}
		payment.CapturedAmount = payment.HeldAmount - amount
		payment.RefundedAmount = amount
		payment.Status = models.EscrowPartiallyRefunded

	case models.ResolutionPhotographerFavor:
		if err := l.Gateway.Capture(ctx, payment.HoldID, payment.HeldAmount); err != nil {
			return nil, err
		}
		payment.CapturedAmount = payment.HeldAmount
		payment.Status = models.EscrowCaptured
		amount = 0

	case models.ResolutionMediation:
		// Funds stay held; the dispute returns to active handling.
		dispute.Status = models.DisputeInvestigating
		if err := l.Repo.UpdateDispute(dispute); err != nil {
			return nil, err
		}
		return payment, nil

	default:
		return nil, ErrUnknownResolution
	}

	if err := l.Repo.UpdateEscrow(payment); err != nil {
		return nil, fmt.Errorf("failed to record escrow settlement: %w", err)
	}

	now := l.now()
	dispute.Status = models.DisputeResolved
	dispute.Resolution = resolution
	dispute.ResolutionAmount = amount
	dispute.ResolvedBy = resolvedBy
	dispute.ResolvedAt = &now
	if err := l.Repo.UpdateDispute(dispute); err != nil {
		return nil, fmt.Errorf("failed to record dispute resolution: %w", err)
	}

	l.Logger.Info("dispute resolved",
		zap.String("dispute", disputeID),
		zap.String("resolution", resolution),
		zap.Int64("refunded", payment.RefundedAmount),
		zap.Int64("captured", payment.CapturedAmount))

	l.notify(dispute.OpenedBy, models.NotifyDisputeResolved, "Dispute resolved",
		fmt.Sprintf("Your dispute for booking %s was resolved (%s).", dispute.BookingID, resolution),
		map[string]string{"disputeId": dispute.ID, "bookingId": dispute.BookingID})
	return payment, nil
}

// ListOpenDisputes returns disputes awaiting an admin decision.
func (l *Ledger) ListOpenDisputes() ([]models.DisputeCase, error) {
	return l.Repo.ListOpenDisputes()
}

func (l *Ledger) notify(userID, eventType, title, body string, data map[string]string) {
	if l.Notifier == nil {
		return
	}
	if data == nil {
		data = map[string]string{}
	}
	data["type"] = eventType
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := l.Notifier.SendUserPushNotification(ctx, userID, title, body, data); err != nil {
			l.Logger.Warn("push notification failed",
				zap.String("user", userID), zap.String("type", eventType), zap.Error(err))
		}
	}()
}
