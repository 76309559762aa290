package models

import "time"

// Lottery entry statuses. The entered/won/lost set belongs to random draws;
// applied/selected/rejected belongs to admin-curated lotteries, where
// unselected entries stay applied unless an admin explicitly rejects them.
const (
	EntryEntered  = "entered"
	EntryWon      = "won"
	EntryLost     = "lost"
	EntryApplied  = "applied"
	EntrySelected = "selected"
	EntryRejected = "rejected"
)

// LotteryEntry is a user's application to a lottery-mode session during its
// entry window. Resolved exactly once by a draw or by admin selection.
type LotteryEntry struct {
	ID         string     `bson:"id" json:"id"`
	SessionID  string     `bson:"session_id" json:"session_id"`
	UserID     string     `bson:"user_id" json:"user_id"`
	Status     string     `bson:"status" json:"status"`
	Message    string     `bson:"message,omitempty" json:"message,omitempty"`
	BookingID  string     `bson:"booking_id,omitempty" json:"booking_id,omitempty"`
	CreatedAt  time.Time  `bson:"created_at" json:"created_at"`
	ResolvedAt *time.Time `bson:"resolved_at,omitempty" json:"resolved_at,omitempty"`
}
