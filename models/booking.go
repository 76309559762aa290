package models

import "time"

// Booking statuses.
const (
	BookingPending   = "pending"
	BookingConfirmed = "confirmed"
	BookingCancelled = "cancelled"
)

// Channels through which a booking can be obtained.
const (
	ChannelFirstCome         = "first_come"
	ChannelLottery           = "lottery"
	ChannelAdminLottery      = "admin_lottery"
	ChannelTicketPriority    = "ticket_priority"
	ChannelRankPriority      = "rank_priority"
	ChannelGeneral           = "general"
	ChannelWaitlistPromotion = "waitlist_promotion"
)

// Booking is a confirmed relationship between one user and one photo session.
// At most one active (pending or confirmed) booking may exist per
// (user, session) pair unless the session allows multiple bookings.
type Booking struct {
	ID          string     `bson:"id" json:"id"`
	SessionID   string     `bson:"session_id" json:"session_id"`
	UserID      string     `bson:"user_id" json:"user_id"`
	Status      string     `bson:"status" json:"status"`
	Channel     string     `bson:"channel" json:"channel"`
	Amount      int64      `bson:"amount" json:"amount"`
	Currency    string     `bson:"currency" json:"currency"`
	CreatedAt   time.Time  `bson:"created_at" json:"created_at"`
	CancelledAt *time.Time `bson:"cancelled_at,omitempty" json:"cancelled_at,omitempty"`
}

// Active reports whether the booking still holds its seat.
func (b *Booking) Active() bool {
	return b.Status == BookingPending || b.Status == BookingConfirmed
}
