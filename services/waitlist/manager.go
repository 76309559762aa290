package waitlist

import (
	"context"
	"errors"
	"fmt"
	"time"

	bookingRepo "shutterhub/database/repository/booking"
	sessionRepo "shutterhub/database/repository/session"
	waitlistRepo "shutterhub/database/repository/waitlist"
	"shutterhub/models"
	"shutterhub/services/allocation"
	"shutterhub/services/notification"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Expected waitlist outcomes.
var (
	ErrSessionNotFull          = errors.New("session still has open capacity; book it directly")
	ErrWaitlistDisabled        = errors.New("session does not accept waitlist entries")
	ErrAlreadyQueued           = errors.New("user already holds an active booking or waitlist entry")
	ErrNotPromoted             = errors.New("waitlist entry is not in promoted state")
	ErrNotWaiting              = errors.New("waitlist entry is not in waiting state")
	ErrPromotionDeadlinePassed = errors.New("promotion confirmation deadline has passed")
	ErrEntryOwnershipMismatch  = errors.New("waitlist entry does not belong to the requesting user")
)

// Manager maintains the ordered queue per session: joins, promotions on freed
// seats, deadline-bound confirmations, and the expiry sweep that cascades a
// missed promotion to the next entrant.
type Manager struct {
	Entries  waitlistRepo.WaitlistRepository
	Sessions sessionRepo.SessionRepository
	Bookings bookingRepo.BookingRepository
	Capacity *allocation.CapacityTracker
	Notifier notification.NotificationService
	Logger   *zap.Logger

	// GracePeriod is how long a promoted entrant has to confirm.
	GracePeriod time.Duration

	// Now is the clock source; overridable in tests.
	Now func() time.Time
}

func (m *Manager) now() time.Time {
	if m.Now != nil {
		return m.Now()
	}
	return time.Now()
}

// Join queues a user for a full session. Joining a session with open
// capacity is rejected; the user should simply book.
func (m *Manager) Join(ctx context.Context, sessionID, userID, message string) (*models.WaitlistEntry, error) {
	session, err := m.Sessions.GetByID(sessionID)
	if err != nil {
		return nil, err
	}
	if !session.WaitlistEnabled {
		return nil, ErrWaitlistDisabled
	}
	if !session.IsFull() {
		return nil, ErrSessionNotFull
	}

	// Membership check, position assignment, and insert run under the unit
	// lock: concurrent joins can neither double-queue a user nor share a
	// queue position.
	var entry *models.WaitlistEntry
	err = m.Capacity.WithUnitLock(sessionID, func() error {
		active, err := m.Bookings.FindActive(sessionID, userID)
		if err != nil {
			return err
		}
		if active != nil {
			return ErrAlreadyQueued
		}
		queued, err := m.Entries.FindActiveBySessionAndUser(sessionID, userID)
		if err != nil {
			return err
		}
		if queued != nil {
			return ErrAlreadyQueued
		}

		maxPos, err := m.Entries.MaxPosition(sessionID)
		if err != nil {
			return err
		}

		entry = &models.WaitlistEntry{
			ID:            uuid.New().String(),
			SessionID:     sessionID,
			UserID:        userID,
			QueuePosition: maxPos + 1,
			Status:        models.WaitlistWaiting,
			Message:       message,
			CreatedAt:     m.now(),
		}
		if err := m.Entries.Create(entry); err != nil {
			return fmt.Errorf("failed to create waitlist entry: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// PromoteNextLocked promotes the lowest-position waiting entry. The caller
// must hold the session's capacity lock: it is invoked in the same critical
// section as the release that freed the seat. The seat itself stays
// unreserved until the entrant confirms.
func (m *Manager) PromoteNextLocked(ctx context.Context, sessionID string) error {
	promoted, err := m.Entries.HasPromoted(sessionID)
	if err != nil {
		return err
	}
	if promoted {
		// One outstanding promotion per session; the next entrant's turn
		// comes when this one confirms or expires.
		return nil
	}

	next, err := m.Entries.NextWaiting(sessionID)
	if err != nil {
		return err
	}
	if next == nil {
		return nil
	}

	now := m.now()
	deadline := now.Add(m.GracePeriod)
	ok, err := m.Entries.MarkPromoted(next.ID, deadline, now)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("waitlist entry %s left waiting state during promotion", next.ID)
	}

	m.Logger.Info("waitlist entry promoted",
		zap.String("session", sessionID),
		zap.String("entry", next.ID),
		zap.Int("position", next.QueuePosition))

	m.notify(next.UserID, models.NotifyWaitlistPromoted, "A spot opened up",
		fmt.Sprintf("Confirm your spot before %s.", deadline.Format(time.RFC1123)),
		map[string]string{"entryId": next.ID, "sessionId": sessionID})
	return nil
}

// ConfirmPromotion turns a promotion into a booking. Only valid while the
// entry is promoted and the deadline has not passed; the seat is reserved
// here, not at promotion time.
func (m *Manager) ConfirmPromotion(ctx context.Context, entryID, userID string) (*models.Booking, error) {
	entry, err := m.Entries.GetByID(entryID)
	if err != nil {
		return nil, err
	}
	if userID != "" && entry.UserID != userID {
		return nil, ErrEntryOwnershipMismatch
	}
	if entry.Status != models.WaitlistPromoted {
		return nil, ErrNotPromoted
	}

	now := m.now()
	if entry.PromotionDeadline != nil && !now.Before(*entry.PromotionDeadline) {
		// Missed the deadline: expire and cascade instead of confirming.
		if err := m.expireAndCascade(ctx, entry); err != nil {
			m.Logger.Error("failed to cascade expired promotion",
				zap.String("entry", entry.ID), zap.Error(err))
		}
		return nil, ErrPromotionDeadlinePassed
	}

	session, err := m.Sessions.GetByID(entry.SessionID)
	if err != nil {
		return nil, err
	}

	var booking *models.Booking
	err = m.Capacity.WithUnitLock(entry.SessionID, func() error {
		if err := m.Capacity.ReserveLocked(ctx, entry.SessionID); err != nil {
			return err
		}
		booking = &models.Booking{
			ID:        uuid.New().String(),
			SessionID: entry.SessionID,
			UserID:    entry.UserID,
			Status:    models.BookingConfirmed,
			Channel:   models.ChannelWaitlistPromotion,
			Amount:    session.Fee,
			Currency:  session.Currency,
			CreatedAt: now,
		}
		if err := m.Bookings.Create(booking); err != nil {
			if relErr := m.Capacity.ReleaseLocked(ctx, entry.SessionID); relErr != nil {
				m.Logger.Error("failed to release seat after confirmation failure",
					zap.String("session", entry.SessionID), zap.Error(relErr))
			}
			return err
		}
		ok, err := m.Entries.MarkConfirmed(entry.ID, booking.ID)
		if err != nil {
			return err
		}
		if !ok {
			return ErrNotPromoted
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	m.notify(entry.UserID, models.NotifyBookingConfirmed, "Booking confirmed",
		fmt.Sprintf("Your waitlist spot for %q is now a confirmed booking.", session.Title),
		map[string]string{"bookingId": booking.ID, "sessionId": entry.SessionID})
	return booking, nil
}

// Cancel withdraws a waiting entry. Promoted entries cannot be withdrawn;
// they either confirm or expire.
func (m *Manager) Cancel(ctx context.Context, entryID, userID string) error {
	entry, err := m.Entries.GetByID(entryID)
	if err != nil {
		return err
	}
	if userID != "" && entry.UserID != userID {
		return ErrEntryOwnershipMismatch
	}
	ok, err := m.Entries.MarkCancelled(entryID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotWaiting
	}
	return nil
}

// ExpireStalePromotions sweeps promoted entries past their deadline, expiring
// each and promoting its successor. Run periodically by the background worker.
func (m *Manager) ExpireStalePromotions(ctx context.Context, now time.Time) (int, error) {
	stale, err := m.Entries.ListStalePromotions(now)
	if err != nil {
		return 0, err
	}

	expired := 0
	for i := range stale {
		entry := &stale[i]
		if err := m.expireAndCascade(ctx, entry); err != nil {
			m.Logger.Error("failed to expire stale promotion",
				zap.String("entry", entry.ID), zap.Error(err))
			continue
		}
		expired++
	}
	return expired, nil
}

// expireAndCascade marks one promotion expired and hands the still-free seat
// to the next waiting entry, under the session's capacity lock.
func (m *Manager) expireAndCascade(ctx context.Context, entry *models.WaitlistEntry) error {
	ok, err := m.Entries.MarkExpired(entry.ID)
	if err != nil {
		return err
	}
	if !ok {
		// Someone confirmed or expired it concurrently; nothing to cascade.
		return nil
	}

	m.notify(entry.UserID, models.NotifyWaitlistExpired, "Promotion expired",
		"Your waitlist promotion expired before you confirmed.",
		map[string]string{"entryId": entry.ID, "sessionId": entry.SessionID})

	return m.Capacity.WithUnitLock(entry.SessionID, func() error {
		return m.PromoteNextLocked(ctx, entry.SessionID)
	})
}

// ListBySession returns the queue in position order.
func (m *Manager) ListBySession(sessionID string) ([]models.WaitlistEntry, error) {
	return m.Entries.ListBySession(sessionID)
}

func (m *Manager) notify(userID, eventType, title, body string, data map[string]string) {
	if m.Notifier == nil {
		return
	}
	if data == nil {
		data = map[string]string{}
	}
	data["type"] = eventType
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := m.Notifier.SendUserPushNotification(ctx, userID, title, body, data); err != nil {
			m.Logger.Warn("push notification failed",
				zap.String("user", userID), zap.String("type", eventType), zap.Error(err))
		}
	}()
}
