package models

import "time"

// Roles recognised by the auth middleware.
const (
	RoleUser       = "user"
	RoleAdmin      = "admin"
	RoleSuperAdmin = "super_admin"
)

// User ranks, recalculated periodically from participation history.
const (
	RankBronze   = "bronze"
	RankSilver   = "silver"
	RankGold     = "gold"
	RankPlatinum = "platinum"
	RankVIP      = "vip"
)

// RankChange is an append-only audit record of a rank transition.
type RankChange struct {
	From      string    `bson:"from" json:"from"`
	To        string    `bson:"to" json:"to"`
	Manual    bool      `bson:"manual" json:"manual"`
	Reason    string    `bson:"reason,omitempty" json:"reason,omitempty"`
	ChangedBy string    `bson:"changed_by,omitempty" json:"changed_by,omitempty"`
	ChangedAt time.Time `bson:"changed_at" json:"changed_at"`
}

// User is a marketplace account: guest, model, organizer, or photographer.
// Photographer-specific fields are populated only when IsPhotographer is set.
type User struct {
	ID           string       `bson:"id" json:"id"`
	Email        string       `bson:"email" json:"email"`
	PasswordHash string       `bson:"password_hash" json:"-"`
	Name         string       `bson:"name" json:"name"`
	Role         string       `bson:"role" json:"role"`
	Rank         string       `bson:"rank" json:"rank"`
	RankManual   bool         `bson:"rank_manual" json:"rank_manual"`
	RankReason   string       `bson:"rank_reason,omitempty" json:"rank_reason,omitempty"`
	RankHistory  []RankChange `bson:"rank_history,omitempty" json:"-"`

	// Participation counters feeding rank recalculation.
	CompletedBookings int `bson:"completed_bookings" json:"completed_bookings"`
	NoShows           int `bson:"no_shows" json:"no_shows"`

	// Photographer profile.
	IsPhotographer  bool     `bson:"is_photographer" json:"is_photographer"`
	Verified        bool     `bson:"verified" json:"verified"`
	Rating          float64  `bson:"rating" json:"rating"`
	CompletedShoots int      `bson:"completed_shoots" json:"completed_shoots"`
	Available       bool     `bson:"available" json:"available"`
	LocationGeo     GeoPoint `bson:"location_geo,omitempty" json:"location_geo,omitempty"`

	FCMToken  string    `bson:"fcm_token,omitempty" json:"-"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// PriorityTicket is a single-use grant issued by an organizer that admits the
// holder through a session's ticket window. Consumed exactly once.
type PriorityTicket struct {
	ID         string     `bson:"id" json:"id"`
	UserID     string     `bson:"user_id" json:"user_id"`
	SessionID  string     `bson:"session_id" json:"session_id"`
	IssuedBy   string     `bson:"issued_by" json:"issued_by"`
	ExpiresAt  time.Time  `bson:"expires_at" json:"expires_at"`
	ConsumedAt *time.Time `bson:"consumed_at,omitempty" json:"consumed_at,omitempty"`
	CreatedAt  time.Time  `bson:"created_at" json:"created_at"`
}

// Usable reports whether the ticket can still admit its holder at the given time.
func (t *PriorityTicket) Usable(now time.Time) bool {
	return t.ConsumedAt == nil && now.Before(t.ExpiresAt)
}
