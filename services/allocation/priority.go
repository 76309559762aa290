package allocation

import (
	"time"

	"shutterhub/models"
)

// rankValue fixes the rank order vip > platinum > gold > silver > bronze.
var rankValue = map[string]int{
	models.RankVIP:      5,
	models.RankPlatinum: 4,
	models.RankGold:     3,
	models.RankSilver:   2,
	models.RankBronze:   1,
}

// tierValue maps a rank-window tier to the minimum rank that qualifies.
var tierValue = map[string]int{
	models.TierVIP:      5,
	models.TierPlatinum: 4,
	models.TierGold:     3,
	models.TierSilver:   2,
}

// Eligibility is the outcome of resolving a user against a session's windows.
type Eligibility struct {
	CanBook       bool
	Channel       string
	Reason        string
	AvailableFrom *time.Time
	Ticket        *models.PriorityTicket // set when the ticket channel admitted the user
}

// channel precedence when several windows are open at once: ticket beats rank
// beats general, regardless of which window opened first.
func channelPrecedence(channel string) int {
	switch channel {
	case models.ChannelTicketPriority:
		return 3
	case models.ChannelRankPriority:
		return 2
	default:
		return 1
	}
}

func windowChannel(tier string) string {
	switch tier {
	case models.TierTicket:
		return models.ChannelTicketPriority
	case models.TierGeneral:
		return models.ChannelGeneral
	default:
		return models.ChannelRankPriority
	}
}

// ResolveEligibility determines whether the user may book the session now and
// through which channel. ticket is the user's usable priority ticket for this
// session, or nil. Pure over its inputs so the decision is directly testable.
func ResolveEligibility(session *models.PhotoSession, user *models.User, ticket *models.PriorityTicket, now time.Time) Eligibility {
	type candidate struct {
		window  models.PriorityWindow
		channel string
	}

	var qualifying []candidate
	for _, w := range session.PriorityWindows {
		switch w.Tier {
		case models.TierTicket:
			if ticket == nil || !ticket.Usable(now) {
				continue
			}
		case models.TierGeneral:
			// open to everyone
		default:
			need, ok := tierValue[w.Tier]
			if !ok || rankValue[user.Rank] < need {
				continue
			}
		}
		qualifying = append(qualifying, candidate{window: w, channel: windowChannel(w.Tier)})
	}

	if len(qualifying) == 0 {
		return Eligibility{
			CanBook: false,
			Reason:  "no ticket, insufficient rank, and no general window configured",
		}
	}

	// Pick the best currently-open window by channel precedence.
	var best *candidate
	for i := range qualifying {
		c := &qualifying[i]
		if now.Before(c.window.StartAt) || !now.Before(c.window.EndAt) {
			continue
		}
		if best == nil || channelPrecedence(c.channel) > channelPrecedence(best.channel) {
			best = c
		}
	}
	if best != nil {
		el := Eligibility{CanBook: true, Channel: best.channel}
		if best.channel == models.ChannelTicketPriority {
			el.Ticket = ticket
		}
		return el
	}

	// Nothing open: report the earliest future admission across qualifying windows.
	var earliest *time.Time
	for i := range qualifying {
		start := qualifying[i].window.StartAt
		if !start.After(now) {
			continue // window already closed
		}
		if earliest == nil || start.Before(*earliest) {
			earliest = &start
		}
	}
	if earliest == nil {
		return Eligibility{CanBook: false, Reason: "all qualifying windows have closed"}
	}
	return Eligibility{
		CanBook:       false,
		Reason:        "booking not yet open for this user",
		AvailableFrom: earliest,
	}
}
