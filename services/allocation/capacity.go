package allocation

import (
	"context"
	"hash/fnv"
	"sync"

	sessionRepo "shutterhub/database/repository/session"
)

const lockStripes = 64

// CapacityTracker enforces the no-overbooking invariant for photo sessions.
// The database conditional update is the authority; the striped per-unit
// mutex serializes reserve/release pairs within this process so a release
// and the promotion it triggers run as one unit.
type CapacityTracker struct {
	repo  sessionRepo.SessionRepository
	locks [lockStripes]sync.Mutex
}

// NewCapacityTracker creates a tracker over the given session repository.
func NewCapacityTracker(repo sessionRepo.SessionRepository) *CapacityTracker {
	return &CapacityTracker{repo: repo}
}

func (t *CapacityTracker) lockFor(unitID string) *sync.Mutex {
	h := fnv.New32a()
	h.Write([]byte(unitID))
	return &t.locks[h.Sum32()%lockStripes]
}

// WithUnitLock runs fn while holding the unit's lock. Callers that pair a
// release with a waitlist promotion go through here so no second request can
// slip between the two steps.
func (t *CapacityTracker) WithUnitLock(unitID string, fn func() error) error {
	mu := t.lockFor(unitID)
	mu.Lock()
	defer mu.Unlock()
	return fn()
}

// Reserve atomically claims one seat. Exactly one of two concurrent calls
// against the last seat succeeds; the other receives ErrCapacityExceeded.
func (t *CapacityTracker) Reserve(ctx context.Context, unitID string) error {
	mu := t.lockFor(unitID)
	mu.Lock()
	defer mu.Unlock()
	return t.reserveLocked(ctx, unitID)
}

// reserveLocked performs the guarded increment. Callers must hold the unit lock.
func (t *CapacityTracker) reserveLocked(ctx context.Context, unitID string) error {
	ok, err := t.repo.ReserveSeat(ctx, unitID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrCapacityExceeded
	}
	return nil
}

// ReserveLocked claims a seat for callers already inside WithUnitLock.
func (t *CapacityTracker) ReserveLocked(ctx context.Context, unitID string) error {
	return t.reserveLocked(ctx, unitID)
}

// Release frees one previously reserved seat. Releasing when nothing is
// reserved is an error, never a silent no-op.
func (t *CapacityTracker) Release(ctx context.Context, unitID string) error {
	mu := t.lockFor(unitID)
	mu.Lock()
	defer mu.Unlock()
	return t.releaseLocked(ctx, unitID)
}

// ReleaseLocked frees a seat for callers already inside WithUnitLock.
func (t *CapacityTracker) ReleaseLocked(ctx context.Context, unitID string) error {
	return t.releaseLocked(ctx, unitID)
}

func (t *CapacityTracker) releaseLocked(ctx context.Context, unitID string) error {
	ok, err := t.repo.ReleaseSeat(ctx, unitID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrDoubleRelease
	}
	return nil
}
