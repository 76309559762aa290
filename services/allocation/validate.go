package allocation

import (
	"shutterhub/models"
)

// ValidateSessionConfig checks a session's setup before it is published.
// Misconfigurations are rejected here so the booking path never has to
// resolve them: in particular, a priority session without a reachable general
// window, or a general window opening ahead of a higher tier.
func ValidateSessionConfig(session *models.PhotoSession) error {
	switch session.BookingMode {
	case models.ModeFirstCome, models.ModeLottery, models.ModeAdminLottery, models.ModePriority:
	default:
		return &ConfigurationError{Field: "booking_mode", Message: "unknown booking mode " + session.BookingMode}
	}

	if session.Capacity <= 0 {
		return &ConfigurationError{Field: "capacity", Message: "capacity must be positive"}
	}
	if !session.ClosesAt.After(session.OpensAt) {
		return &ConfigurationError{Field: "closes_at", Message: "closes_at must be after opens_at"}
	}

	switch session.BookingMode {
	case models.ModeLottery, models.ModeAdminLottery:
		lc := session.Lottery
		if lc == nil {
			return &ConfigurationError{Field: "lottery", Message: "lottery configuration is required"}
		}
		if lc.WinnersCount <= 0 {
			return &ConfigurationError{Field: "lottery.winners_count", Message: "winners_count must be positive"}
		}
		if lc.WinnersCount > session.Capacity {
			return &ConfigurationError{Field: "lottery.winners_count", Message: "winners_count exceeds capacity"}
		}
		if !lc.EntryEnd.After(lc.EntryStart) {
			return &ConfigurationError{Field: "lottery.entry_end", Message: "entry window must have positive length"}
		}
		if session.BookingMode == models.ModeLottery && lc.LotteryDate.Before(lc.EntryEnd) {
			return &ConfigurationError{Field: "lottery.lottery_date", Message: "draw must not precede entry window close"}
		}

	case models.ModePriority:
		var general *models.PriorityWindow
		for i := range session.PriorityWindows {
			w := &session.PriorityWindows[i]
			if !w.EndAt.After(w.StartAt) {
				return &ConfigurationError{Field: "priority_windows", Message: "window for tier " + w.Tier + " has non-positive length"}
			}
			if w.Tier == models.TierGeneral {
				general = w
			}
		}
		if general == nil {
			// Without a general window, general-tier users could never book;
			// surface that at setup rather than as a silent "never".
			return &ConfigurationError{Field: "priority_windows", Message: "priority sessions require a general window"}
		}
		for i := range session.PriorityWindows {
			w := &session.PriorityWindows[i]
			if w.Tier != models.TierGeneral && general.StartAt.Before(w.StartAt) {
				return &ConfigurationError{
					Field:   "priority_windows",
					Message: "general window must not open before the " + w.Tier + " window",
				}
			}
		}
	}

	return nil
}
