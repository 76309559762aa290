package allocation

import (
	"context"
	"errors"
	"fmt"
	"time"

	bookingRepo "shutterhub/database/repository/booking"
	lotteryRepo "shutterhub/database/repository/lottery"
	sessionRepo "shutterhub/database/repository/session"
	userRepo "shutterhub/database/repository/user"
	"shutterhub/models"
	"shutterhub/services/notification"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PaymentHolder is the narrow escrow contract the engine depends on. A nil
// holder means the session is free of charge or payments are handled out of
// band.
type PaymentHolder interface {
	// Hold places the booking amount in escrow. Failure must leave no funds moved.
	Hold(ctx context.Context, booking *models.Booking) (*models.EscrowPayment, error)
	// ReleaseHold refunds the full escrowed amount of a cancelled booking.
	ReleaseHold(ctx context.Context, bookingID string) error
}

// WaitlistPromoter promotes the next queued entrant after a seat frees up.
// PromoteNextLocked must be called while holding the unit's capacity lock so
// the release and the promotion happen as one step.
type WaitlistPromoter interface {
	PromoteNextLocked(ctx context.Context, sessionID string) error
}

// BookingOutcome is the result of a booking request.
type BookingOutcome struct {
	Booking *models.Booking
	// WaitlistAvailable is set when the request failed with ErrFull and the
	// session accepts waitlist entries.
	WaitlistAvailable bool
}

// DrawResult reports a completed lottery draw.
type DrawResult struct {
	SessionID string
	WinnerIDs []string // entry IDs marked won
	LoserIDs  []string // entry IDs marked lost
	Bookings  []*models.Booking
}

// Engine orchestrates first-come, lottery, admin-curated lottery, and
// priority booking against the capacity tracker and window resolver.
type Engine struct {
	Sessions sessionRepo.SessionRepository
	Bookings bookingRepo.BookingRepository
	Entries  lotteryRepo.LotteryRepository
	Users    userRepo.UserRepository
	Capacity *CapacityTracker
	Payments PaymentHolder
	Waitlist WaitlistPromoter
	Notifier notification.NotificationService
	Logger   *zap.Logger

	// Now is the clock source; overridable in tests.
	Now func() time.Time
}

func (e *Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

// RequestBooking runs one booking attempt for the user against the session.
// Expected rejections come back as typed errors inside the outcome, never as
// panics: the caller distinguishes "full, join the waitlist?" from hard
// failures by inspecting the error.
func (e *Engine) RequestBooking(ctx context.Context, userID, sessionID string) (*BookingOutcome, error) {
	session, err := e.Sessions.GetByID(sessionID)
	if err != nil {
		return nil, err
	}
	if !session.Published {
		return nil, ErrNotPublished
	}

	now := e.now()

	var channel string
	var ticket *models.PriorityTicket

	switch session.BookingMode {
	case models.ModeFirstCome:
		if now.Before(session.OpensAt) {
			return nil, &NotYetOpenError{AvailableFrom: session.OpensAt}
		}
		if now.After(session.ClosesAt) {
			return nil, ErrBookingClosed
		}
		channel = models.ChannelFirstCome

	case models.ModePriority:
		user, err := e.Users.GetByID(userID)
		if err != nil {
			return nil, err
		}
		ticket, err = e.Users.FindUsableTicket(userID, sessionID, now)
		if err != nil {
			return nil, err
		}
		el := ResolveEligibility(session, user, ticket, now)
		if !el.CanBook {
			if el.AvailableFrom != nil {
				return nil, &NotYetOpenError{AvailableFrom: *el.AvailableFrom}
			}
			return nil, ErrNoEligibility
		}
		channel = el.Channel
		if channel != models.ChannelTicketPriority {
			ticket = nil
		}

	case models.ModeLottery, models.ModeAdminLottery:
		return nil, ErrLotteryMode

	default:
		return nil, &ConfigurationError{Field: "booking_mode", Message: "unknown booking mode " + session.BookingMode}
	}

	// The membership check, the seat, the ticket, and the insert form one
	// critical section per unit: no concurrent request from the same user can
	// slip between the duplicate check and the insert.
	var booking *models.Booking
	ticketConsumed := false
	err = e.Capacity.WithUnitLock(sessionID, func() error {
		if !session.AllowMultiple {
			active, err := e.Bookings.FindActive(sessionID, userID)
			if err != nil {
				return err
			}
			if active != nil {
				return ErrDuplicateBooking
			}
		}

		if err := e.Capacity.ReserveLocked(ctx, sessionID); err != nil {
			return err
		}

		// The ticket is consumed only once a seat is secured; a booking
		// attempt that produces no booking must leave the grant usable.
		if ticket != nil {
			ok, err := e.Users.ConsumeTicket(ctx, ticket.ID, now)
			if err != nil {
				e.rollbackSeatLocked(ctx, sessionID)
				return err
			}
			if !ok {
				e.rollbackSeatLocked(ctx, sessionID)
				return ErrTicketExpiredOrConsumed
			}
			ticketConsumed = true
		}

		booking = &models.Booking{
			ID:        uuid.New().String(),
			SessionID: sessionID,
			UserID:    userID,
			Status:    models.BookingConfirmed,
			Channel:   channel,
			Amount:    session.Fee,
			Currency:  session.Currency,
			CreatedAt: now,
		}
		if err := e.Bookings.Create(booking); err != nil {
			if ticketConsumed {
				e.restoreTicket(ctx, ticket)
				ticketConsumed = false
			}
			e.rollbackSeatLocked(ctx, sessionID)
			return fmt.Errorf("failed to create booking: %w", err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrCapacityExceeded) {
			return &BookingOutcome{WaitlistAvailable: session.WaitlistEnabled}, ErrFull
		}
		return nil, err
	}

	// Escrow hold for paid sessions. A gateway failure rolls the booking, the
	// seat, and the ticket back; nothing is assumed to have succeeded.
	if session.Fee > 0 && e.Payments != nil {
		if _, err := e.Payments.Hold(ctx, booking); err != nil {
			if _, cErr := e.Bookings.Cancel(booking.ID, e.now()); cErr != nil {
				e.Logger.Error("failed to cancel booking after hold failure",
					zap.String("booking", booking.ID), zap.Error(cErr))
			}
			if ticketConsumed {
				e.restoreTicket(ctx, ticket)
			}
			if lockErr := e.Capacity.WithUnitLock(sessionID, func() error {
				return e.rollbackSeatLocked(ctx, sessionID)
			}); lockErr != nil {
				e.Logger.Error("failed to release seat after hold failure",
					zap.String("session", sessionID), zap.Error(lockErr))
			}
			return nil, fmt.Errorf("payment hold failed: %w", err)
		}
	}

	e.notify(booking.UserID, models.NotifyBookingConfirmed, "Booking confirmed",
		fmt.Sprintf("Your spot for %q is confirmed.", session.Title),
		map[string]string{"bookingId": booking.ID, "sessionId": sessionID})

	return &BookingOutcome{Booking: booking}, nil
}

// EnterLottery records an application to a lottery-mode session during its
// entry window.
func (e *Engine) EnterLottery(ctx context.Context, userID, sessionID, message string) (*models.LotteryEntry, error) {
	session, err := e.Sessions.GetByID(sessionID)
	if err != nil {
		return nil, err
	}
	if !session.Published {
		return nil, ErrNotPublished
	}
	if session.BookingMode != models.ModeLottery && session.BookingMode != models.ModeAdminLottery {
		return nil, &ConfigurationError{Field: "booking_mode", Message: "session does not accept lottery entries"}
	}
	lc := session.Lottery
	if lc == nil {
		return nil, &ConfigurationError{Field: "lottery", Message: "lottery configuration missing"}
	}

	now := e.now()
	if now.Before(lc.EntryStart) {
		return nil, &NotYetOpenError{AvailableFrom: lc.EntryStart}
	}
	if !now.Before(lc.EntryEnd) {
		return nil, ErrEntryWindowClosed
	}
	if lc.Drawn {
		return nil, ErrAlreadyDrawn
	}

	existing, err := e.Entries.FindBySessionAndUser(sessionID, userID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrAlreadyEntered
	}

	status := models.EntryEntered
	if session.BookingMode == models.ModeAdminLottery {
		status = models.EntryApplied
	}

	entry := &models.LotteryEntry{
		ID:        uuid.New().String(),
		SessionID: sessionID,
		UserID:    userID,
		Status:    status,
		Message:   message,
		CreatedAt: now,
	}
	if err := e.Entries.Create(entry); err != nil {
		return nil, fmt.Errorf("failed to create lottery entry: %w", err)
	}
	return entry, nil
}

// ConductDraw resolves a lottery session: min(winners_count, entries) entries
// win uniformly at random and each winner deterministically receives a
// booking. The drawn flag flips first with a conditional update, so the draw
// runs at most once even if triggered concurrently.
func (e *Engine) ConductDraw(ctx context.Context, sessionID, seed string) (*DrawResult, error) {
	session, err := e.Sessions.GetByID(sessionID)
	if err != nil {
		return nil, err
	}
	if session.BookingMode != models.ModeLottery {
		return nil, &ConfigurationError{Field: "booking_mode", Message: "session is not lottery-mode"}
	}
	lc := session.Lottery
	if lc == nil {
		return nil, &ConfigurationError{Field: "lottery", Message: "lottery configuration missing"}
	}

	now := e.now()
	if now.Before(lc.EntryEnd) {
		return nil, ErrDrawNotDue
	}

	ok, err := e.Sessions.MarkDrawn(ctx, sessionID, seed, now)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrAlreadyDrawn
	}

	entries, err := e.Entries.ListBySession(sessionID, models.EntryEntered)
	if err != nil {
		return nil, err
	}

	entryIDs := make([]string, 0, len(entries))
	entryByID := make(map[string]models.LotteryEntry, len(entries))
	for _, entry := range entries {
		entryIDs = append(entryIDs, entry.ID)
		entryByID[entry.ID] = entry
	}

	winnerIDs := drawWinners(entryIDs, lc.WinnersCount, seed)
	won := make(map[string]bool, len(winnerIDs))
	for _, id := range winnerIDs {
		won[id] = true
	}

	winners := make(map[string]*models.Booking, len(winnerIDs))
	bookings := make([]*models.Booking, 0, len(winnerIDs))
	var loserIDs []string
	for _, id := range entryIDs {
		if !won[id] {
			loserIDs = append(loserIDs, id)
			continue
		}
		entry := entryByID[id]
		booking := &models.Booking{
			ID:        uuid.New().String(),
			SessionID: sessionID,
			UserID:    entry.UserID,
			Status:    models.BookingConfirmed,
			Channel:   models.ChannelLottery,
			Amount:    session.Fee,
			Currency:  session.Currency,
			CreatedAt: now,
		}
		winners[id] = booking
		bookings = append(bookings, booking)
	}

	if err := e.Entries.ResolveDraw(ctx, sessionID, winners, loserIDs, now); err != nil {
		return nil, err
	}

	for _, id := range winnerIDs {
		entry := entryByID[id]
		e.notify(entry.UserID, models.NotifyLotteryResult, "Lottery result",
			fmt.Sprintf("You won a spot in %q.", session.Title),
			map[string]string{"sessionId": sessionID, "result": models.EntryWon})
	}
	for _, id := range loserIDs {
		entry := entryByID[id]
		e.notify(entry.UserID, models.NotifyLotteryResult, "Lottery result",
			fmt.Sprintf("You were not selected for %q.", session.Title),
			map[string]string{"sessionId": sessionID, "result": models.EntryLost})
	}

	e.Logger.Info("lottery drawn",
		zap.String("session", sessionID),
		zap.Int("entries", len(entries)),
		zap.Int("winners", len(winnerIDs)))

	return &DrawResult{
		SessionID: sessionID,
		WinnerIDs: winnerIDs,
		LoserIDs:  loserIDs,
		Bookings:  bookings,
	}, nil
}

// SelectAdminWinners confirms an explicit admin selection on an
// admin_lottery session. Unselected entries stay applied; rejection is a
// separate explicit action.
func (e *Engine) SelectAdminWinners(ctx context.Context, sessionID string, entryIDs []string) ([]*models.Booking, error) {
	session, err := e.Sessions.GetByID(sessionID)
	if err != nil {
		return nil, err
	}
	if session.BookingMode != models.ModeAdminLottery {
		return nil, &ConfigurationError{Field: "booking_mode", Message: "session is not admin-lottery mode"}
	}
	lc := session.Lottery
	if lc == nil {
		return nil, &ConfigurationError{Field: "lottery", Message: "lottery configuration missing"}
	}

	selected, err := e.Entries.ListBySession(sessionID, models.EntrySelected)
	if err != nil {
		return nil, err
	}
	if len(selected)+len(entryIDs) > lc.WinnersCount {
		return nil, &ConfigurationError{
			Field:   "lottery.winners_count",
			Message: fmt.Sprintf("selection of %d exceeds winners_count %d (%d already selected)", len(entryIDs), lc.WinnersCount, len(selected)),
		}
	}

	now := e.now()
	var bookings []*models.Booking
	for _, entryID := range entryIDs {
		entry, err := e.Entries.GetByID(entryID)
		if err != nil {
			return bookings, err
		}
		if entry.SessionID != sessionID || entry.Status != models.EntryApplied {
			return bookings, fmt.Errorf("entry %s is not an open application for this session", entryID)
		}

		if err := e.Capacity.Reserve(ctx, sessionID); err != nil {
			return bookings, err
		}
		booking := &models.Booking{
			ID:        uuid.New().String(),
			SessionID: sessionID,
			UserID:    entry.UserID,
			Status:    models.BookingConfirmed,
			Channel:   models.ChannelAdminLottery,
			Amount:    session.Fee,
			Currency:  session.Currency,
			CreatedAt: now,
		}
		if err := e.Bookings.Create(booking); err != nil {
			if relErr := e.Capacity.Release(ctx, sessionID); relErr != nil {
				e.Logger.Error("failed to release seat after admin selection failure",
					zap.String("session", sessionID), zap.Error(relErr))
			}
			return bookings, err
		}
		if err := e.Entries.SetStatus(entryID, models.EntrySelected, booking.ID, now); err != nil {
			return bookings, err
		}
		bookings = append(bookings, booking)

		e.notify(entry.UserID, models.NotifyLotteryResult, "Application accepted",
			fmt.Sprintf("You were selected for %q.", session.Title),
			map[string]string{"sessionId": sessionID, "bookingId": booking.ID})
	}
	return bookings, nil
}

// RejectAdminEntry explicitly rejects one admin-lottery application.
func (e *Engine) RejectAdminEntry(ctx context.Context, entryID string) error {
	entry, err := e.Entries.GetByID(entryID)
	if err != nil {
		return err
	}
	if entry.Status != models.EntryApplied {
		return fmt.Errorf("entry %s is not an open application", entryID)
	}
	return e.Entries.SetStatus(entryID, models.EntryRejected, "", e.now())
}

// CancelBooking cancels an active booking, frees its seat, and promotes the
// next waitlisted entrant under the same unit lock so the freed seat cannot
// be claimed twice. Escrowed funds, when present, are refunded in full.
func (e *Engine) CancelBooking(ctx context.Context, bookingID, userID string) error {
	booking, err := e.Bookings.GetByID(bookingID)
	if err != nil {
		return err
	}
	if userID != "" && booking.UserID != userID {
		return fmt.Errorf("booking %s does not belong to the requesting user", bookingID)
	}

	ok, err := e.Bookings.Cancel(bookingID, e.now())
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("booking %s is not active", bookingID)
	}

	err = e.Capacity.WithUnitLock(booking.SessionID, func() error {
		if err := e.Capacity.ReleaseLocked(ctx, booking.SessionID); err != nil {
			return err
		}
		if e.Waitlist != nil {
			return e.Waitlist.PromoteNextLocked(ctx, booking.SessionID)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if e.Payments != nil && booking.Amount > 0 {
		if err := e.Payments.ReleaseHold(ctx, bookingID); err != nil {
			// The cancellation stands; the refund is retried out of band.
			e.Logger.Error("failed to release escrow hold for cancelled booking",
				zap.String("booking", bookingID), zap.Error(err))
		}
	}
	return nil
}

// rollbackSeatLocked returns a just-claimed seat and hands it straight to the
// waitlist, like any other release. Callers must hold the unit lock.
func (e *Engine) rollbackSeatLocked(ctx context.Context, sessionID string) error {
	if err := e.Capacity.ReleaseLocked(ctx, sessionID); err != nil {
		e.Logger.Error("failed to release seat during booking rollback",
			zap.String("session", sessionID), zap.Error(err))
		return err
	}
	if e.Waitlist != nil {
		if err := e.Waitlist.PromoteNextLocked(ctx, sessionID); err != nil {
			e.Logger.Error("failed to promote waitlist entry after booking rollback",
				zap.String("session", sessionID), zap.Error(err))
			return err
		}
	}
	return nil
}

// restoreTicket reinstates a ticket consumed by an attempt that produced no
// booking.
func (e *Engine) restoreTicket(ctx context.Context, ticket *models.PriorityTicket) {
	if err := e.Users.RestoreTicket(ctx, ticket.ID); err != nil {
		e.Logger.Error("failed to restore priority ticket",
			zap.String("ticket", ticket.ID), zap.Error(err))
	}
}

func (e *Engine) notify(userID, eventType, title, body string, data map[string]string) {
	if e.Notifier == nil {
		return
	}
	if data == nil {
		data = map[string]string{}
	}
	data["type"] = eventType
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := e.Notifier.SendUserPushNotification(ctx, userID, title, body, data); err != nil {
			e.Logger.Warn("push notification failed",
				zap.String("user", userID), zap.String("type", eventType), zap.Error(err))
		}
	}()
}
