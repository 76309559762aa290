package models

import "time"

// Waitlist entry statuses.
const (
	WaitlistWaiting   = "waiting"
	WaitlistPromoted  = "promoted"
	WaitlistExpired   = "expired"
	WaitlistCancelled = "cancelled"
	WaitlistConfirmed = "confirmed"
)

// WaitlistEntry is an ordered queue member for a full session. Positions are
// unique per session and strictly increase by join order. At most one entry
// per session may be promoted at a time; a promotion not confirmed before its
// deadline expires and cascades to the next waiting entry.
type WaitlistEntry struct {
	ID                string     `bson:"id" json:"id"`
	SessionID         string     `bson:"session_id" json:"session_id"`
	UserID            string     `bson:"user_id" json:"user_id"`
	QueuePosition     int        `bson:"queue_position" json:"queue_position"`
	Status            string     `bson:"status" json:"status"`
	Message           string     `bson:"message,omitempty" json:"message,omitempty"`
	PromotionDeadline *time.Time `bson:"promotion_deadline,omitempty" json:"promotion_deadline,omitempty"`
	PromotedAt        *time.Time `bson:"promoted_at,omitempty" json:"promoted_at,omitempty"`
	BookingID         string     `bson:"booking_id,omitempty" json:"booking_id,omitempty"`
	CreatedAt         time.Time  `bson:"created_at" json:"created_at"`
}
