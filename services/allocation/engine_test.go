package allocation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"shutterhub/models"
)

func firstComeSession(capacity int) *models.PhotoSession {
	return &models.PhotoSession{
		ID:          "s1",
		BookingMode: models.ModeFirstCome,
		Capacity:    capacity,
		OpensAt:     baseTime.Add(-time.Hour),
		ClosesAt:    baseTime.Add(24 * time.Hour),
		Published:   true,
	}
}

func TestFirstComeBooking(t *testing.T) {
	engine, sessions, _, _, _ := testEngine()
	engine.Now = func() time.Time { return baseTime }
	sessions.Create(firstComeSession(2))
	ctx := context.Background()

	outcome, err := engine.RequestBooking(ctx, "u1", "s1")
	if err != nil {
		t.Fatalf("booking failed: %v", err)
	}
	if outcome.Booking == nil || outcome.Booking.Channel != models.ChannelFirstCome {
		t.Fatalf("expected first_come booking, got %+v", outcome.Booking)
	}
	if outcome.Booking.Status != models.BookingConfirmed {
		t.Fatalf("expected confirmed status, got %s", outcome.Booking.Status)
	}

	s, _ := sessions.GetByID("s1")
	if s.CurrentCount != 1 {
		t.Fatalf("expected one committed seat, got %d", s.CurrentCount)
	}
}

func TestDuplicateBookingRejected(t *testing.T) {
	engine, sessions, _, _, _ := testEngine()
	engine.Now = func() time.Time { return baseTime }
	sessions.Create(firstComeSession(5))
	ctx := context.Background()

	if _, err := engine.RequestBooking(ctx, "u1", "s1"); err != nil {
		t.Fatalf("first booking failed: %v", err)
	}
	if _, err := engine.RequestBooking(ctx, "u1", "s1"); !errors.Is(err, ErrDuplicateBooking) {
		t.Fatalf("expected ErrDuplicateBooking, got %v", err)
	}
}

func TestAllowMultipleBypassesDuplicateCheck(t *testing.T) {
	engine, sessions, _, _, _ := testEngine()
	engine.Now = func() time.Time { return baseTime }
	session := firstComeSession(5)
	session.AllowMultiple = true
	sessions.Create(session)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := engine.RequestBooking(ctx, "u1", "s1"); err != nil {
			t.Fatalf("booking %d failed: %v", i, err)
		}
	}
}

func TestBookingBeforeOpenCarriesAvailableFrom(t *testing.T) {
	engine, sessions, _, _, _ := testEngine()
	engine.Now = func() time.Time { return baseTime }
	session := firstComeSession(5)
	session.OpensAt = baseTime.Add(2 * time.Hour)
	sessions.Create(session)

	_, err := engine.RequestBooking(context.Background(), "u1", "s1")
	var notYet *NotYetOpenError
	if !errors.As(err, &notYet) {
		t.Fatalf("expected NotYetOpenError, got %v", err)
	}
	if !notYet.AvailableFrom.Equal(session.OpensAt) {
		t.Fatalf("expected available_from %v, got %v", session.OpensAt, notYet.AvailableFrom)
	}
}

func TestBookingAfterClose(t *testing.T) {
	engine, sessions, _, _, _ := testEngine()
	engine.Now = func() time.Time { return baseTime.Add(48 * time.Hour) }
	sessions.Create(firstComeSession(5))

	if _, err := engine.RequestBooking(context.Background(), "u1", "s1"); !errors.Is(err, ErrBookingClosed) {
		t.Fatalf("expected ErrBookingClosed, got %v", err)
	}
}

func TestUnpublishedSessionRejected(t *testing.T) {
	engine, sessions, _, _, _ := testEngine()
	engine.Now = func() time.Time { return baseTime }
	session := firstComeSession(5)
	session.Published = false
	sessions.Create(session)

	if _, err := engine.RequestBooking(context.Background(), "u1", "s1"); !errors.Is(err, ErrNotPublished) {
		t.Fatalf("expected ErrNotPublished, got %v", err)
	}
}

func TestFullSessionOffersWaitlist(t *testing.T) {
	engine, sessions, _, _, _ := testEngine()
	engine.Now = func() time.Time { return baseTime }
	session := firstComeSession(1)
	session.WaitlistEnabled = true
	sessions.Create(session)
	ctx := context.Background()

	if _, err := engine.RequestBooking(ctx, "u1", "s1"); err != nil {
		t.Fatalf("first booking failed: %v", err)
	}
	outcome, err := engine.RequestBooking(ctx, "u2", "s1")
	if !errors.Is(err, ErrFull) {
		t.Fatalf("expected ErrFull, got %v", err)
	}
	if outcome == nil || !outcome.WaitlistAvailable {
		t.Fatal("expected the waitlist to be offered on a full session")
	}
}

func TestConcurrentLastSeat(t *testing.T) {
	engine, sessions, bookings, _, _ := testEngine()
	engine.Now = func() time.Time { return baseTime }
	sessions.Create(firstComeSession(1))
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make([]error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = engine.RequestBooking(ctx, string(rune('a'+i)), "s1")
		}(i)
	}
	wg.Wait()

	won := 0
	for _, err := range errs {
		if err == nil {
			won++
		} else if !errors.Is(err, ErrFull) {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if won != 1 {
		t.Fatalf("expected exactly one winner for the last seat, got %d", won)
	}

	all, _ := bookings.ListBySession("s1")
	active := 0
	for _, b := range all {
		if b.Active() {
			active++
		}
	}
	if active != 1 {
		t.Fatalf("expected one active booking, got %d", active)
	}
}

func TestPriorityTicketChannelConsumesTicket(t *testing.T) {
	engine, sessions, _, _, users := testEngine()
	engine.Now = func() time.Time { return baseTime }
	sessions.Create(&models.PhotoSession{
		ID: "s1", BookingMode: models.ModePriority, Capacity: 5, Published: true,
		OpensAt: baseTime.Add(-time.Hour), ClosesAt: baseTime.Add(24 * time.Hour),
		PriorityWindows: []models.PriorityWindow{
			window(models.TierTicket, -time.Hour, 4*time.Hour),
			window(models.TierGeneral, 2*time.Hour, 8*time.Hour),
		},
	})
	users.Create(&models.User{ID: "u1", Rank: models.RankBronze})
	users.CreateTicket(&models.PriorityTicket{
		ID: "t1", UserID: "u1", SessionID: "s1", ExpiresAt: baseTime.Add(24 * time.Hour),
	})
	ctx := context.Background()

	outcome, err := engine.RequestBooking(ctx, "u1", "s1")
	if err != nil {
		t.Fatalf("ticket booking failed: %v", err)
	}
	if outcome.Booking.Channel != models.ChannelTicketPriority {
		t.Fatalf("expected ticket_priority channel, got %s", outcome.Booking.Channel)
	}

	if ticket, _ := users.FindUsableTicket("u1", "s1", baseTime); ticket != nil {
		t.Fatal("ticket should be consumed after admitting its holder")
	}
}

func TestPriorityGeneralUserWaits(t *testing.T) {
	engine, sessions, _, _, users := testEngine()
	engine.Now = func() time.Time { return baseTime }
	sessions.Create(&models.PhotoSession{
		ID: "s1", BookingMode: models.ModePriority, Capacity: 5, Published: true,
		OpensAt: baseTime.Add(-time.Hour), ClosesAt: baseTime.Add(24 * time.Hour),
		PriorityWindows: []models.PriorityWindow{
			window(models.TierVIP, -time.Hour, 4*time.Hour),
			window(models.TierGeneral, 2*time.Hour, 8*time.Hour),
		},
	})
	users.Create(&models.User{ID: "vip", Rank: models.RankVIP})
	users.Create(&models.User{ID: "pleb", Rank: models.RankBronze})
	ctx := context.Background()

	outcome, err := engine.RequestBooking(ctx, "vip", "s1")
	if err != nil {
		t.Fatalf("vip booking failed: %v", err)
	}
	if outcome.Booking.Channel != models.ChannelRankPriority {
		t.Fatalf("expected rank_priority channel, got %s", outcome.Booking.Channel)
	}

	_, err = engine.RequestBooking(ctx, "pleb", "s1")
	var notYet *NotYetOpenError
	if !errors.As(err, &notYet) {
		t.Fatalf("expected NotYetOpenError for general user, got %v", err)
	}
	if !notYet.AvailableFrom.Equal(baseTime.Add(2 * time.Hour)) {
		t.Fatalf("expected general window start, got %v", notYet.AvailableFrom)
	}
}

func lotterySession(winners int) *models.PhotoSession {
	return &models.PhotoSession{
		ID: "s1", BookingMode: models.ModeLottery, Capacity: winners, Published: true,
		OpensAt: baseTime.Add(-time.Hour), ClosesAt: baseTime.Add(48 * time.Hour),
		Lottery: &models.LotteryConfig{
			EntryStart:   baseTime.Add(-time.Hour),
			EntryEnd:     baseTime.Add(6 * time.Hour),
			LotteryDate:  baseTime.Add(7 * time.Hour),
			WinnersCount: winners,
		},
	}
}

func TestLotteryEntryAndDraw(t *testing.T) {
	engine, sessions, bookings, entries, _ := testEngine()
	now := baseTime
	engine.Now = func() time.Time { return now }
	sessions.Create(lotterySession(3))
	ctx := context.Background()

	// Direct booking on a lottery session is refused.
	if _, err := engine.RequestBooking(ctx, "u1", "s1"); !errors.Is(err, ErrLotteryMode) {
		t.Fatalf("expected ErrLotteryMode, got %v", err)
	}

	for _, uid := range []string{"u1", "u2", "u3", "u4", "u5"} {
		if _, err := engine.EnterLottery(ctx, uid, "s1", ""); err != nil {
			t.Fatalf("entry for %s failed: %v", uid, err)
		}
	}
	if _, err := engine.EnterLottery(ctx, "u1", "s1", ""); !errors.Is(err, ErrAlreadyEntered) {
		t.Fatalf("expected ErrAlreadyEntered, got %v", err)
	}

	// Draw before the entry window closes is refused.
	if _, err := engine.ConductDraw(ctx, "s1", "seed"); !errors.Is(err, ErrDrawNotDue) {
		t.Fatalf("expected ErrDrawNotDue, got %v", err)
	}

	now = baseTime.Add(8 * time.Hour)
	result, err := engine.ConductDraw(ctx, "s1", "seed")
	if err != nil {
		t.Fatalf("draw failed: %v", err)
	}
	if len(result.WinnerIDs) != 3 || len(result.LoserIDs) != 2 {
		t.Fatalf("expected 3 winners and 2 losers, got %d/%d", len(result.WinnerIDs), len(result.LoserIDs))
	}

	// Every winner has a booking; entry statuses are final.
	all, _ := entries.ListBySession("s1")
	won, lost := 0, 0
	for _, e := range all {
		switch e.Status {
		case models.EntryWon:
			won++
			if e.BookingID == "" {
				t.Fatalf("winner %s has no booking", e.ID)
			}
			if _, err := bookings.GetByID(e.BookingID); err != nil {
				t.Fatalf("winner booking missing: %v", err)
			}
		case models.EntryLost:
			lost++
		default:
			t.Fatalf("entry %s left in status %s", e.ID, e.Status)
		}
	}
	if won != 3 || lost != 2 {
		t.Fatalf("entry conservation violated: %d won, %d lost of 5", won, lost)
	}

	s, _ := sessions.GetByID("s1")
	if s.CurrentCount != 3 {
		t.Fatalf("expected 3 committed seats after draw, got %d", s.CurrentCount)
	}

	// A second draw is refused.
	if _, err := engine.ConductDraw(ctx, "s1", "seed"); !errors.Is(err, ErrAlreadyDrawn) {
		t.Fatalf("expected ErrAlreadyDrawn, got %v", err)
	}
}

func TestLotteryFewerEntriesThanWinners(t *testing.T) {
	engine, sessions, _, _, _ := testEngine()
	now := baseTime
	engine.Now = func() time.Time { return now }
	sessions.Create(lotterySession(10))
	ctx := context.Background()

	for _, uid := range []string{"u1", "u2"} {
		if _, err := engine.EnterLottery(ctx, uid, "s1", ""); err != nil {
			t.Fatalf("entry failed: %v", err)
		}
	}

	now = baseTime.Add(8 * time.Hour)
	result, err := engine.ConductDraw(ctx, "s1", "")
	if err != nil {
		t.Fatalf("draw failed: %v", err)
	}
	if len(result.WinnerIDs) != 2 || len(result.LoserIDs) != 0 {
		t.Fatalf("everyone should win an undersubscribed lottery, got %d winners %d losers",
			len(result.WinnerIDs), len(result.LoserIDs))
	}
}

func TestAdminLotterySelection(t *testing.T) {
	engine, sessions, _, entries, _ := testEngine()
	engine.Now = func() time.Time { return baseTime }
	session := lotterySession(2)
	session.BookingMode = models.ModeAdminLottery
	session.Capacity = 2
	sessions.Create(session)
	ctx := context.Background()

	var entryIDs []string
	for _, uid := range []string{"u1", "u2", "u3"} {
		entry, err := engine.EnterLottery(ctx, uid, "s1", "pick me")
		if err != nil {
			t.Fatalf("application failed: %v", err)
		}
		if entry.Status != models.EntryApplied {
			t.Fatalf("admin lottery entries start applied, got %s", entry.Status)
		}
		entryIDs = append(entryIDs, entry.ID)
	}

	// Selecting beyond winners_count is refused up front.
	if _, err := engine.SelectAdminWinners(ctx, "s1", entryIDs); err == nil {
		t.Fatal("expected selection of 3 to exceed winners_count 2")
	}

	bookings, err := engine.SelectAdminWinners(ctx, "s1", entryIDs[:2])
	if err != nil {
		t.Fatalf("selection failed: %v", err)
	}
	if len(bookings) != 2 {
		t.Fatalf("expected 2 bookings, got %d", len(bookings))
	}

	// The unselected entry stays applied until explicitly rejected.
	third, _ := entries.GetByID(entryIDs[2])
	if third.Status != models.EntryApplied {
		t.Fatalf("unselected entry should stay applied, got %s", third.Status)
	}
	if err := engine.RejectAdminEntry(ctx, entryIDs[2]); err != nil {
		t.Fatalf("rejection failed: %v", err)
	}
	third, _ = entries.GetByID(entryIDs[2])
	if third.Status != models.EntryRejected {
		t.Fatalf("expected rejected, got %s", third.Status)
	}
}

func TestCancelFreesSeat(t *testing.T) {
	engine, sessions, _, _, _ := testEngine()
	engine.Now = func() time.Time { return baseTime }
	sessions.Create(firstComeSession(1))
	ctx := context.Background()

	outcome, err := engine.RequestBooking(ctx, "u1", "s1")
	if err != nil {
		t.Fatalf("booking failed: %v", err)
	}
	if _, err := engine.RequestBooking(ctx, "u2", "s1"); !errors.Is(err, ErrFull) {
		t.Fatalf("expected ErrFull, got %v", err)
	}

	if err := engine.CancelBooking(ctx, outcome.Booking.ID, "u1"); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	if _, err := engine.RequestBooking(ctx, "u2", "s1"); err != nil {
		t.Fatalf("booking after cancel failed: %v", err)
	}
}

func TestCancelOwnershipEnforced(t *testing.T) {
	engine, sessions, _, _, _ := testEngine()
	engine.Now = func() time.Time { return baseTime }
	sessions.Create(firstComeSession(2))
	ctx := context.Background()

	outcome, err := engine.RequestBooking(ctx, "u1", "s1")
	if err != nil {
		t.Fatalf("booking failed: %v", err)
	}
	if err := engine.CancelBooking(ctx, outcome.Booking.ID, "intruder"); err == nil {
		t.Fatal("expected ownership rejection")
	}
}

type failingHolder struct{}

func (failingHolder) Hold(ctx context.Context, b *models.Booking) (*models.EscrowPayment, error) {
	return nil, errors.New("gateway unavailable")
}

func (failingHolder) ReleaseHold(ctx context.Context, bookingID string) error { return nil }

type recordingPromoter struct {
	mu    sync.Mutex
	calls []string
}

func (p *recordingPromoter) PromoteNextLocked(ctx context.Context, sessionID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, sessionID)
	return nil
}

func ticketSession(capacity int) *models.PhotoSession {
	return &models.PhotoSession{
		ID: "s1", BookingMode: models.ModePriority, Capacity: capacity, Published: true,
		OpensAt: baseTime.Add(-time.Hour), ClosesAt: baseTime.Add(24 * time.Hour),
		PriorityWindows: []models.PriorityWindow{
			window(models.TierTicket, -time.Hour, 4*time.Hour),
			window(models.TierGeneral, -time.Hour, 8*time.Hour),
		},
	}
}

func TestFullSessionLeavesTicketUsable(t *testing.T) {
	engine, sessions, _, _, users := testEngine()
	engine.Now = func() time.Time { return baseTime }
	sessions.Create(ticketSession(1))
	users.Create(&models.User{ID: "other", Rank: models.RankBronze})
	users.Create(&models.User{ID: "u1", Rank: models.RankBronze})
	users.CreateTicket(&models.PriorityTicket{
		ID: "t1", UserID: "u1", SessionID: "s1", ExpiresAt: baseTime.Add(24 * time.Hour),
	})
	ctx := context.Background()

	// Another user takes the only seat through the general window.
	if _, err := engine.RequestBooking(ctx, "other", "s1"); err != nil {
		t.Fatalf("general booking failed: %v", err)
	}

	if _, err := engine.RequestBooking(ctx, "u1", "s1"); !errors.Is(err, ErrFull) {
		t.Fatalf("expected ErrFull, got %v", err)
	}

	// The failed attempt produced no booking, so the grant is untouched.
	ticket, _ := users.FindUsableTicket("u1", "s1", baseTime)
	if ticket == nil {
		t.Fatal("ticket must remain usable after a booking attempt that hit a full session")
	}
}

func TestBookingCreateFailureRestoresTicket(t *testing.T) {
	engine, sessions, bookings, _, users := testEngine()
	engine.Now = func() time.Time { return baseTime }
	sessions.Create(ticketSession(5))
	users.Create(&models.User{ID: "u1", Rank: models.RankBronze})
	users.CreateTicket(&models.PriorityTicket{
		ID: "t1", UserID: "u1", SessionID: "s1", ExpiresAt: baseTime.Add(24 * time.Hour),
	})
	ctx := context.Background()

	bookings.failNext = true
	if _, err := engine.RequestBooking(ctx, "u1", "s1"); err == nil {
		t.Fatal("expected booking insert failure to surface")
	}

	if ticket, _ := users.FindUsableTicket("u1", "s1", baseTime); ticket == nil {
		t.Fatal("ticket must be restored when the booking insert fails")
	}
	s, _ := sessions.GetByID("s1")
	if s.CurrentCount != 0 {
		t.Fatalf("seat must be rolled back, got count %d", s.CurrentCount)
	}

	// Nothing was lost: the retry goes through on the same ticket.
	outcome, err := engine.RequestBooking(ctx, "u1", "s1")
	if err != nil {
		t.Fatalf("retry failed: %v", err)
	}
	if outcome.Booking.Channel != models.ChannelTicketPriority {
		t.Fatalf("expected ticket_priority channel on retry, got %s", outcome.Booking.Channel)
	}
}

func TestPaymentHoldFailureRollsBack(t *testing.T) {
	engine, sessions, bookings, _, users := testEngine()
	engine.Now = func() time.Time { return baseTime }
	engine.Payments = failingHolder{}
	promoter := &recordingPromoter{}
	engine.Waitlist = promoter

	session := ticketSession(5)
	session.Fee = 8000
	session.Currency = "jpy"
	sessions.Create(session)
	users.Create(&models.User{ID: "u1", Rank: models.RankBronze})
	users.CreateTicket(&models.PriorityTicket{
		ID: "t1", UserID: "u1", SessionID: "s1", ExpiresAt: baseTime.Add(24 * time.Hour),
	})
	ctx := context.Background()

	if _, err := engine.RequestBooking(ctx, "u1", "s1"); err == nil {
		t.Fatal("expected hold failure to surface")
	}

	if ticket, _ := users.FindUsableTicket("u1", "s1", baseTime); ticket == nil {
		t.Fatal("ticket must be restored when the payment hold fails")
	}
	s, _ := sessions.GetByID("s1")
	if s.CurrentCount != 0 {
		t.Fatalf("seat must be rolled back, got count %d", s.CurrentCount)
	}
	all, _ := bookings.ListBySession("s1")
	for _, b := range all {
		if b.Active() {
			t.Fatalf("booking %s left active after hold failure", b.ID)
		}
	}

	// The freed seat goes back through the same release-and-promote path as
	// any cancellation.
	promoter.mu.Lock()
	defer promoter.mu.Unlock()
	if len(promoter.calls) == 0 || promoter.calls[len(promoter.calls)-1] != "s1" {
		t.Fatalf("expected a waitlist promotion attempt after the rollback, got %v", promoter.calls)
	}
}

func TestConcurrentSameUserSingleBooking(t *testing.T) {
	engine, sessions, bookings, _, _ := testEngine()
	engine.Now = func() time.Time { return baseTime }
	sessions.Create(firstComeSession(10))
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make([]error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = engine.RequestBooking(ctx, "u1", "s1")
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else if !errors.Is(err, ErrDuplicateBooking) {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if succeeded != 1 {
		t.Fatalf("expected exactly one booking for the user, got %d", succeeded)
	}

	all, _ := bookings.ListBySession("s1")
	active := 0
	for _, b := range all {
		if b.Active() {
			active++
		}
	}
	if active != 1 {
		t.Fatalf("expected one active booking, got %d", active)
	}
	s, _ := sessions.GetByID("s1")
	if s.CurrentCount != 1 {
		t.Fatalf("expected one committed seat, got %d", s.CurrentCount)
	}
}
