package allocation

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"shutterhub/models"

	"go.uber.org/zap"
)

// In-memory repository fakes backing the engine tests. Each guards its state
// with a mutex so the concurrency tests exercise real interleavings.

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

func (r *memSessionRepo) ListPublished() ([]models.PhotoSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.PhotoSession
	for _, s := range r.sessions {
		if s.Published {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (r *memSessionRepo) Create(s *models.PhotoSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *s
	r.sessions[s.ID] = &cp
	return nil
}

func (r *memSessionRepo) Update(s *models.PhotoSession) error {
	return r.Create(s)
}

func (r *memSessionRepo) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
	return nil
}

func (r *memSessionRepo) SetPublished(id string, published bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return fmt.Errorf("session with id %s not found", id)
	}
	s.Published = published
	return nil
}

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
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok || s.Lottery == nil || s.Lottery.Drawn {
		return false, nil
	}
	s.Lottery.Drawn = true
	s.Lottery.DrawSeed = seed
	s.Lottery.DrawnAt = at
	return true, nil
}

func (r *memSessionRepo) ListDueLotteries(now time.Time) ([]models.PhotoSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.PhotoSession
	for _, s := range r.sessions {
		if s.Published && s.Lottery != nil && !s.Lottery.Drawn && !s.Lottery.LotteryDate.After(now) {
			out = append(out, *s)
		}
	}
	return out, nil
}

type memBookingRepo struct {
	mu       sync.Mutex
	bookings map[string]*models.Booking
	failNext bool
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
	if r.failNext {
		r.failNext = false
		return fmt.Errorf("insert failed")
	}
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

func (r *memBookingRepo) ListByUser(userID string) ([]models.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Booking
	for _, b := range r.bookings {
		if b.UserID == userID {
			out = append(out, *b)
		}
	}
	return out, nil
}

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

func (r *memBookingRepo) SetStatus(id, status string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[id]
	if !ok {
		return fmt.Errorf("booking with id %s not found", id)
	}
	b.Status = status
	return nil
}

type memLotteryRepo struct {
	mu       sync.Mutex
	entries  map[string]*models.LotteryEntry
	bookings *memBookingRepo
	sessions *memSessionRepo
}

func newMemLotteryRepo(bookings *memBookingRepo, sessions *memSessionRepo) *memLotteryRepo {
	return &memLotteryRepo{
		entries:  make(map[string]*models.LotteryEntry),
		bookings: bookings,
		sessions: sessions,
	}
}

func (r *memLotteryRepo) Create(e *models.LotteryEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *e
	r.entries[e.ID] = &cp
	return nil
}

func (r *memLotteryRepo) GetByID(id string) (*models.LotteryEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok {
		return nil, fmt.Errorf("lottery entry with id %s not found", id)
	}
	cp := *e
	return &cp, nil
}

func (r *memLotteryRepo) FindBySessionAndUser(sessionID, userID string) (*models.LotteryEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.entries {
		if e.SessionID == sessionID && e.UserID == userID {
			cp := *e
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *memLotteryRepo) ListBySession(sessionID string, statuses ...string) ([]models.LotteryEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	want := make(map[string]bool, len(statuses))
	for _, s := range statuses {
		want[s] = true
	}
	var out []models.LotteryEntry
	for _, e := range r.entries {
		if e.SessionID != sessionID {
			continue
		}
		if len(want) > 0 && !want[e.Status] {
			continue
		}
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memLotteryRepo) SetStatus(id, status, bookingID string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok {
		return fmt.Errorf("lottery entry with id %s not found", id)
	}
	e.Status = status
	e.BookingID = bookingID
	e.ResolvedAt = &at
	return nil
}

func (r *memLotteryRepo) ResolveDraw(ctx context.Context, sessionID string, winners map[string]*models.Booking, loserIDs []string, at time.Time) error {
	for entryID, booking := range winners {
		if err := r.bookings.Create(booking); err != nil {
			return err
		}
		if err := r.SetStatus(entryID, models.EntryWon, booking.ID, at); err != nil {
			return err
		}
		if ok, _ := r.sessions.ReserveSeat(ctx, sessionID); !ok {
			return fmt.Errorf("capacity overflow applying draw for session %s", sessionID)
		}
	}
	for _, entryID := range loserIDs {
		if err := r.SetStatus(entryID, models.EntryLost, "", at); err != nil {
			return err
		}
	}
	return nil
}

type memUserRepo struct {
	mu      sync.Mutex
	users   map[string]*models.User
	tickets map[string]*models.PriorityTicket
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{
		users:   make(map[string]*models.User),
		tickets: make(map[string]*models.PriorityTicket),
	}
}

func (r *memUserRepo) GetByID(id string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, fmt.Errorf("user with id %s not found", id)
	}
	cp := *u
	return &cp, nil
}

func (r *memUserRepo) GetByEmail(email string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("user with email %s not found", email)
}

func (r *memUserRepo) Create(u *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *u
	r.users[u.ID] = &cp
	return nil
}

func (r *memUserRepo) Update(u *models.User) error { return r.Create(u) }

func (r *memUserRepo) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.users, id)
	return nil
}

func (r *memUserRepo) CreateTicket(t *models.PriorityTicket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *t
	r.tickets[t.ID] = &cp
	return nil
}

func (r *memUserRepo) FindUsableTicket(userID, sessionID string, now time.Time) (*models.PriorityTicket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.tickets {
		if t.UserID == userID && t.SessionID == sessionID && t.Usable(now) {
			cp := *t
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *memUserRepo) ConsumeTicket(ctx context.Context, ticketID string, now time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tickets[ticketID]
	if !ok || !t.Usable(now) {
		return false, nil
	}
	t.ConsumedAt = &now
	return true, nil
}

func (r *memUserRepo) RestoreTicket(ctx context.Context, ticketID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tickets[ticketID]
	if !ok {
		return fmt.Errorf("ticket with id %s not found", ticketID)
	}
	if t.ConsumedAt == nil {
		return fmt.Errorf("ticket %s is not consumed", ticketID)
	}
	t.ConsumedAt = nil
	return nil
}

func (r *memUserRepo) ListTicketsByUser(userID string) ([]models.PriorityTicket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.PriorityTicket
	for _, t := range r.tickets {
		if t.UserID == userID {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (r *memUserRepo) SearchNearbyPhotographers(location models.GeoPoint, radiusKm float64) ([]models.User, error) {
	return nil, nil
}

// testEngine assembles an engine over fresh in-memory fakes.
func testEngine() (*Engine, *memSessionRepo, *memBookingRepo, *memLotteryRepo, *memUserRepo) {
	sessions := newMemSessionRepo()
	bookings := newMemBookingRepo()
	entries := newMemLotteryRepo(bookings, sessions)
	users := newMemUserRepo()
	engine := &Engine{
		Sessions: sessions,
		Bookings: bookings,
		Entries:  entries,
		Users:    users,
		Capacity: NewCapacityTracker(sessions),
		Logger:   zap.NewNop(),
	}
	return engine, sessions, bookings, entries, users
}
