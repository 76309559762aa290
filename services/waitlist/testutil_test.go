package waitlist

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"shutterhub/models"
	"shutterhub/services/allocation"

	"go.uber.org/zap"
)

// In-memory fakes backing the manager tests, mutex-guarded so the promotion
// tests exercise real interleavings.

type memSessionRepo struct {
	mu       sync.Mutex
	sessions map[string]*models.PhotoSession
}

func newMemSessionRepo() *memSessionRepo {
	return &memSessionRepo{sessions: make(map[string]*models.PhotoSession)}
}

func (r *memSessionRepo) GetByID(id string) (*models.PhotoSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, fmt.Errorf("session with id %s not found", id)
	}
	cp := *s
	return &cp, nil
}

func (r *memSessionRepo) ListPublished() ([]models.PhotoSession, error) { return nil, nil }

func (r *memSessionRepo) Create(s *models.PhotoSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *s
	r.sessions[s.ID] = &cp
	return nil
}

func (r *memSessionRepo) Update(s *models.PhotoSession) error { return r.Create(s) }

func (r *memSessionRepo) Delete(id string) error { return nil }

func (r *memSessionRepo) SetPublished(id string, published bool) error { return nil }

func (r *memSessionRepo) ReserveSeat(ctx context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok || s.CurrentCount >= s.Capacity {
		return false, nil
	}
	s.CurrentCount++
	return true, nil
}

func (r *memSessionRepo) ReleaseSeat(ctx context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok || s.CurrentCount <= 0 {
		return false, nil
	}
	s.CurrentCount--
	return true, nil
}

func (r *memSessionRepo) MarkDrawn(ctx context.Context, id, seed string, at time.Time) (bool, error) {
	return false, nil
}

func (r *memSessionRepo) ListDueLotteries(now time.Time) ([]models.PhotoSession, error) {
	return nil, nil
}

type memBookingRepo struct {
	mu       sync.Mutex
	bookings map[string]*models.Booking
}

func newMemBookingRepo() *memBookingRepo {
	return &memBookingRepo{bookings: make(map[string]*models.Booking)}
}

func (r *memBookingRepo) GetByID(id string) (*models.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[id]
	if !ok {
		return nil, fmt.Errorf("booking with id %s not found", id)
	}
	cp := *b
	return &cp, nil
}

func (r *memBookingRepo) Create(b *models.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *b
	r.bookings[b.ID] = &cp
	return nil
}

func (r *memBookingRepo) FindActive(sessionID, userID string) (*models.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, b := range r.bookings {
		if b.SessionID == sessionID && b.UserID == userID && b.Active() {
			cp := *b
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *memBookingRepo) ListByUser(userID string) ([]models.Booking, error) { return nil, nil }

func (r *memBookingRepo) ListBySession(sessionID string) ([]models.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Booking
	for _, b := range r.bookings {
		if b.SessionID == sessionID {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (r *memBookingRepo) Cancel(id string, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[id]
	if !ok || !b.Active() {
		return false, nil
	}
	b.Status = models.BookingCancelled
	b.CancelledAt = &at
	return true, nil
}

func (r *memBookingRepo) SetStatus(id, status string) error { return nil }

type memWaitlistRepo struct {
	mu      sync.Mutex
	entries map[string]*models.WaitlistEntry
}

func newMemWaitlistRepo() *memWaitlistRepo {
	return &memWaitlistRepo{entries: make(map[string]*models.WaitlistEntry)}
}

func (r *memWaitlistRepo) Create(e *models.WaitlistEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *e
	r.entries[e.ID] = &cp
	return nil
}

func (r *memWaitlistRepo) GetByID(id string) (*models.WaitlistEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok {
		return nil, fmt.Errorf("waitlist entry with id %s not found", id)
	}
	cp := *e
	return &cp, nil
}

func (r *memWaitlistRepo) MaxPosition(sessionID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	max := 0
	for _, e := range r.entries {
		if e.SessionID == sessionID && e.QueuePosition > max {
			max = e.QueuePosition
		}
	}
	return max, nil
}

func (r *memWaitlistRepo) FindActiveBySessionAndUser(sessionID, userID string) (*models.WaitlistEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.entries {
		if e.SessionID == sessionID && e.UserID == userID &&
			(e.Status == models.WaitlistWaiting || e.Status == models.WaitlistPromoted) {
			cp := *e
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *memWaitlistRepo) NextWaiting(sessionID string) (*models.WaitlistEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var next *models.WaitlistEntry
	for _, e := range r.entries {
		if e.SessionID != sessionID || e.Status != models.WaitlistWaiting {
			continue
		}
		if next == nil || e.QueuePosition < next.QueuePosition {
			next = e
		}
	}
	if next == nil {
		return nil, nil
	}
	cp := *next
	return &cp, nil
}

func (r *memWaitlistRepo) HasPromoted(sessionID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.entries {
		if e.SessionID == sessionID && e.Status == models.WaitlistPromoted {
			return true, nil
		}
	}
	return false, nil
}

func (r *memWaitlistRepo) MarkPromoted(id string, deadline time.Time, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok || e.Status != models.WaitlistWaiting {
		return false, nil
	}
	e.Status = models.WaitlistPromoted
	e.PromotionDeadline = &deadline
	e.PromotedAt = &at
	return true, nil
}

func (r *memWaitlistRepo) MarkConfirmed(id, bookingID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok || e.Status != models.WaitlistPromoted {
		return false, nil
	}
	e.Status = models.WaitlistConfirmed
	e.BookingID = bookingID
	return true, nil
}

func (r *memWaitlistRepo) MarkExpired(id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok || e.Status != models.WaitlistPromoted {
		return false, nil
	}
	e.Status = models.WaitlistExpired
	return true, nil
}

func (r *memWaitlistRepo) MarkCancelled(id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok || e.Status != models.WaitlistWaiting {
		return false, nil
	}
	e.Status = models.WaitlistCancelled
	return true, nil
}

func (r *memWaitlistRepo) ListStalePromotions(now time.Time) ([]models.WaitlistEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.WaitlistEntry
	for _, e := range r.entries {
		if e.Status == models.WaitlistPromoted && e.PromotionDeadline != nil && !now.Before(*e.PromotionDeadline) {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (r *memWaitlistRepo) ListBySession(sessionID string) ([]models.WaitlistEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.WaitlistEntry
	for _, e := range r.entries {
		if e.SessionID == sessionID {
			out = append(out, *e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].QueuePosition < out[j].QueuePosition })
	return out, nil
}

// testManager assembles a manager over fresh fakes with a 1h grace period.
func testManager() (*Manager, *memWaitlistRepo, *memSessionRepo, *memBookingRepo) {
	entries := newMemWaitlistRepo()
	sessions := newMemSessionRepo()
	bookings := newMemBookingRepo()
	manager := &Manager{
		Entries:     entries,
		Sessions:    sessions,
		Bookings:    bookings,
		Capacity:    allocation.NewCapacityTracker(sessions),
		Logger:      zap.NewNop(),
		GracePeriod: time.Hour,
	}
	return manager, entries, sessions, bookings
}
