package models

import "time"

// Booking modes supported by a photo session.
const (
	ModeFirstCome    = "first_come"
	ModeLottery      = "lottery"
	ModeAdminLottery = "admin_lottery"
	ModePriority     = "priority"
)

// Priority window tiers, ordered vip > platinum > gold > silver > general.
// Ticket windows sit outside the rank order and always win the tie-break.
const (
	TierTicket   = "ticket"
	TierVIP      = "vip"
	TierPlatinum = "platinum"
	TierGold     = "gold"
	TierSilver   = "silver"
	TierGeneral  = "general"
)

// PriorityWindow is a named eligibility interval attached to a session.
type PriorityWindow struct {
	Tier    string    `bson:"tier" json:"tier"`
	StartAt time.Time `bson:"start_at" json:"start_at"`
	EndAt   time.Time `bson:"end_at" json:"end_at"`
}

// LotteryConfig holds the draw settings for lottery and admin_lottery sessions.
type LotteryConfig struct {
	EntryStart   time.Time `bson:"entry_start" json:"entry_start"`
	EntryEnd     time.Time `bson:"entry_end" json:"entry_end"`
	LotteryDate  time.Time `bson:"lottery_date" json:"lottery_date"`
	WinnersCount int       `bson:"winners_count" json:"winners_count"`
	Drawn        bool      `bson:"drawn" json:"drawn"`
	DrawSeed     string    `bson:"draw_seed,omitempty" json:"draw_seed,omitempty"` // recorded for audit when a seed was supplied
	DrawnAt      time.Time `bson:"drawn_at,omitempty" json:"drawn_at,omitempty"`
}

// PhotoSession is the bookable unit of the marketplace: a scheduled shoot
// (or a time-boxed sub-slot of one) published by an organizer or photographer.
type PhotoSession struct {
	ID              string           `bson:"id" json:"id"`
	OrganizerID     string           `bson:"organizer_id" json:"organizer_id"`
	PhotographerID  string           `bson:"photographer_id,omitempty" json:"photographer_id,omitempty"`
	Title           string           `bson:"title" json:"title"`
	BookingMode     string           `bson:"booking_mode" json:"booking_mode"`
	Capacity        int              `bson:"capacity" json:"capacity"`
	CurrentCount    int              `bson:"current_count" json:"current_count"`
	OpensAt         time.Time        `bson:"opens_at" json:"opens_at"`
	ClosesAt        time.Time        `bson:"closes_at" json:"closes_at"`
	AllowMultiple   bool             `bson:"allow_multiple" json:"allow_multiple"`
	WaitlistEnabled bool             `bson:"waitlist_enabled" json:"waitlist_enabled"`
	Published       bool             `bson:"published" json:"published"`
	Fee             int64            `bson:"fee" json:"fee"` // session fee in the smallest currency unit
	Currency        string           `bson:"currency" json:"currency"`
	PriorityWindows []PriorityWindow `bson:"priority_windows,omitempty" json:"priority_windows,omitempty"`
	Lottery         *LotteryConfig   `bson:"lottery,omitempty" json:"lottery,omitempty"`
	LocationGeo     GeoPoint         `bson:"location_geo,omitempty" json:"location_geo,omitempty"`
	CreatedAt       time.Time        `bson:"created_at" json:"created_at"`
	UpdatedAt       time.Time        `bson:"updated_at" json:"updated_at"`
}

// Remaining reports the uncommitted capacity of the session.
func (s *PhotoSession) Remaining() int {
	return s.Capacity - s.CurrentCount
}

// IsFull reports whether every seat is committed.
func (s *PhotoSession) IsFull() bool {
	return s.CurrentCount >= s.Capacity
}
