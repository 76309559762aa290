package allocation

import (
	"errors"
	"fmt"
	"time"
)

// Expected allocation outcomes. These are returned, never panicked: a full
// session or a closed window is a normal result of the booking flow.
var (
	ErrCapacityExceeded        = errors.New("capacity exceeded")
	ErrDoubleRelease           = errors.New("release without matching reservation")
	ErrFull                    = errors.New("session is full")
	ErrDuplicateBooking        = errors.New("user already holds an active booking for this session")
	ErrNoEligibility           = errors.New("user qualifies for no booking window on this session")
	ErrTicketExpiredOrConsumed = errors.New("priority ticket expired or already consumed")
	ErrNotPublished            = errors.New("session is not published")
	ErrBookingClosed           = errors.New("session booking period has closed")
	ErrLotteryMode             = errors.New("session is lottery-mode; enter the lottery instead of booking directly")
	ErrEntryWindowClosed       = errors.New("lottery entry window is not open")
	ErrAlreadyEntered          = errors.New("user already entered this lottery")
	ErrAlreadyDrawn            = errors.New("lottery has already been drawn")
	ErrDrawNotDue              = errors.New("lottery entry window has not closed yet")
)

// NotYetOpenError reports a booking attempt ahead of every window the user
// qualifies for, carrying the earliest admission time so callers can render
// "come back at X".
type NotYetOpenError struct {
	AvailableFrom time.Time
}

func (e *NotYetOpenError) Error() string {
	return fmt.Sprintf("booking not yet open; available from %s", e.AvailableFrom.Format(time.RFC3339))
}

// ConfigurationError reports an invalid session setup. Detected at publish
// time so misconfigured sessions never reach the booking path.
type ConfigurationError struct {
	Field   string
	Message string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid session configuration (%s): %s", e.Field, e.Message)
}
