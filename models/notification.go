package models

import "time"

// Notification event types emitted by the engine. Delivery is fire-and-forget:
// a failed send never rolls back the state change that produced it.
const (
	NotifyBookingConfirmed  = "booking_confirmed"
	NotifyWaitlistPromoted  = "waitlist_promoted"
	NotifyWaitlistExpired   = "waitlist_expired"
	NotifyLotteryResult     = "lottery_result"
	NotifyDisputeResolved   = "dispute_resolved"
	NotifyInstantMatchFound = "instant_match_found"
)

// Notification is a push payload addressed to one user.
type Notification struct {
	ID        string            `bson:"id" json:"id"`
	UserID    string            `bson:"user_id" json:"user_id"`
	Type      string            `bson:"type" json:"type"`
	Title     string            `bson:"title" json:"title"`
	Body      string            `bson:"body" json:"body"`
	Data      map[string]string `bson:"data,omitempty" json:"data,omitempty"`
	CreatedAt time.Time         `bson:"created_at" json:"created_at"`
}
