package escrow

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"shutterhub/models"

	"go.uber.org/zap"
)

// gatewayCall records one operation against the fake gateway.
type gatewayCall struct {
	op     string
	holdID string
	amount int64
}

type fakeGateway struct {
	mu    sync.Mutex
	calls []gatewayCall
	fail  bool
	seq   int
}

func (g *fakeGateway) HoldFunds(ctx context.Context, req HoldRequest) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.fail {
		return "", &GatewayError{Op: "hold", Err: errors.New("gateway unavailable")}
	}
	g.seq++
	holdID := fmt.Sprintf("pi_%03d", g.seq)
	g.calls = append(g.calls, gatewayCall{op: "hold", holdID: holdID, amount: req.Amount})
	return holdID, nil
}

func (g *fakeGateway) Capture(ctx context.Context, holdID string, amount int64) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.fail {
		return &GatewayError{Op: "capture", Err: errors.New("gateway unavailable")}
	}
	g.calls = append(g.calls, gatewayCall{op: "capture", holdID: holdID, amount: amount})
	return nil
}

func (g *fakeGateway) CancelHold(ctx context.Context, holdID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.fail {
		return &GatewayError{Op: "cancel", Err: errors.New("gateway unavailable")}
	}
	g.calls = append(g.calls, gatewayCall{op: "cancel", holdID: holdID})
	return nil
}

func (g *fakeGateway) lastCall() gatewayCall {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.calls) == 0 {
		return gatewayCall{}
	}
	return g.calls[len(g.calls)-1]
}

type memEscrowRepo struct {
	mu       sync.Mutex
	payments map[string]*models.EscrowPayment
	disputes map[string]*models.DisputeCase
	failNext bool
}

func newMemEscrowRepo() *memEscrowRepo {
	return &memEscrowRepo{
		payments: make(map[string]*models.EscrowPayment),
		disputes: make(map[string]*models.DisputeCase),
	}
}

func (r *memEscrowRepo) CreateEscrow(p *models.EscrowPayment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failNext {
		r.failNext = false
		return errors.New("write failed")
	}
	cp := *p
	r.payments[p.ID] = &cp
	return nil
}

func (r *memEscrowRepo) GetEscrowByID(id string) (*models.EscrowPayment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.payments[id]
	if !ok {
		return nil, fmt.Errorf("escrow payment with id %s not found", id)
	}
	cp := *p
	return &cp, nil
}

func (r *memEscrowRepo) GetEscrowByBookingID(bookingID string) (*models.EscrowPayment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.payments {
		if p.BookingID == bookingID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("escrow payment for booking %s not found", bookingID)
}

func (r *memEscrowRepo) UpdateEscrow(p *models.EscrowPayment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *p
	r.payments[p.ID] = &cp
	return nil
}

func (r *memEscrowRepo) CreateDispute(d *models.DisputeCase) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *d
	r.disputes[d.ID] = &cp
	return nil
}

func (r *memEscrowRepo) GetDisputeByID(id string) (*models.DisputeCase, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.disputes[id]
	if !ok {
		return nil, fmt.Errorf("dispute with id %s not found", id)
	}
	cp := *d
	return &cp, nil
}

func (r *memEscrowRepo) UpdateDispute(d *models.DisputeCase) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *d
	r.disputes[d.ID] = &cp
	return nil
}

func (r *memEscrowRepo) ListOpenDisputes() ([]models.DisputeCase, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.DisputeCase
	for _, d := range r.disputes {
		if d.Status == models.DisputePending || d.Status == models.DisputeInvestigating {
			out = append(out, *d)
		}
	}
	return out, nil
}

var baseTime = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func testLedger() (*Ledger, *memEscrowRepo, *fakeGateway) {
	repo := newMemEscrowRepo()
	gateway := &fakeGateway{}
	ledger := &Ledger{
		Repo:    repo,
		Gateway: gateway,
		Logger:  zap.NewNop(),
		Now:     func() time.Time { return baseTime },
	}
	return ledger, repo, gateway
}

func paidBooking() *models.Booking {
	return &models.Booking{
		ID:        "b1",
		SessionID: "s1",
		UserID:    "guest",
		Status:    models.BookingConfirmed,
		Amount:    10000,
		Currency:  "jpy",
	}
}

// openDispute places a hold and opens a dispute against it.
func openDispute(t *testing.T, ledger *Ledger) *models.DisputeCase {
	t.Helper()
	if _, err := ledger.Hold(context.Background(), paidBooking()); err != nil {
		t.Fatalf("hold failed: %v", err)
	}
	dispute, err := ledger.OpenDispute(context.Background(), "b1", "guest", "photos never delivered")
	if err != nil {
		t.Fatalf("open dispute failed: %v", err)
	}
	return dispute
}

func TestHoldRecordsEscrow(t *testing.T) {
	ledger, repo, gateway := testLedger()

	payment, err := ledger.Hold(context.Background(), paidBooking())
	if err != nil {
		t.Fatalf("hold failed: %v", err)
	}
	if payment.Status != models.EscrowHeld || payment.HeldAmount != 10000 {
		t.Fatalf("unexpected escrow record: %+v", payment)
	}
	if payment.HoldID == "" {
		t.Fatal("escrow record missing gateway hold id")
	}
	if call := gateway.lastCall(); call.op != "hold" || call.amount != 10000 {
		t.Fatalf("unexpected gateway call: %+v", call)
	}
	if _, err := repo.GetEscrowByBookingID("b1"); err != nil {
		t.Fatalf("escrow not persisted: %v", err)
	}
}

func TestHoldCancelsOrphanOnRecordFailure(t *testing.T) {
	ledger, repo, gateway := testLedger()
	repo.failNext = true

	if _, err := ledger.Hold(context.Background(), paidBooking()); err == nil {
		t.Fatal("expected hold to fail when the record cannot be written")
	}
	if call := gateway.lastCall(); call.op != "cancel" {
		t.Fatalf("expected the orphaned gateway hold cancelled, last call %+v", call)
	}
}

func TestHoldGatewayFailureWritesNothing(t *testing.T) {
	ledger, repo, gateway := testLedger()
	gateway.fail = true

	_, err := ledger.Hold(context.Background(), paidBooking())
	var gwErr *GatewayError
	if !errors.As(err, &gwErr) {
		t.Fatalf("expected GatewayError, got %v", err)
	}
	if !gwErr.Retryable() {
		t.Fatal("gateway errors must be retryable")
	}
	if _, err := repo.GetEscrowByBookingID("b1"); err == nil {
		t.Fatal("no escrow record should exist after a gateway failure")
	}
}

func TestReleaseHoldRefundsEverything(t *testing.T) {
	ledger, repo, gateway := testLedger()
	ledger.Hold(context.Background(), paidBooking())

	if err := ledger.ReleaseHold(context.Background(), "b1"); err != nil {
		t.Fatalf("release failed: %v", err)
	}
	payment, _ := repo.GetEscrowByBookingID("b1")
	if payment.Status != models.EscrowRefunded || payment.RefundedAmount != 10000 {
		t.Fatalf("unexpected state after release: %+v", payment)
	}
	if call := gateway.lastCall(); call.op != "cancel" {
		t.Fatalf("expected a gateway cancel, got %+v", call)
	}

	// Releasing a settled escrow is a silent no-op.
	calls := len(gateway.calls)
	if err := ledger.ReleaseHold(context.Background(), "b1"); err != nil {
		t.Fatalf("repeat release errored: %v", err)
	}
	if len(gateway.calls) != calls {
		t.Fatal("repeat release must not touch the gateway")
	}
}

func TestOpenDisputeRequiresHeldFunds(t *testing.T) {
	ledger, _, _ := testLedger()
	ledger.Hold(context.Background(), paidBooking())
	ledger.ReleaseHold(context.Background(), "b1")

	if _, err := ledger.OpenDispute(context.Background(), "b1", "guest", "late"); !errors.Is(err, ErrEscrowNotHeld) {
		t.Fatalf("expected ErrEscrowNotHeld, got %v", err)
	}
}

func TestResolveFullRefund(t *testing.T) {
	ledger, repo, _ := testLedger()
	dispute := openDispute(t, ledger)

	payment, err := ledger.Resolve(context.Background(), dispute.ID, models.ResolutionFullRefund, 0, "admin")
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if payment.Status != models.EscrowRefunded || payment.RefundedAmount != 10000 || payment.CapturedAmount != 0 {
		t.Fatalf("unexpected settlement: %+v", payment)
	}

	resolved, _ := repo.GetDisputeByID(dispute.ID)
	if resolved.Status != models.DisputeResolved || resolved.Resolution != models.ResolutionFullRefund {
		t.Fatalf("dispute not resolved: %+v", resolved)
	}
	if resolved.ResolutionAmount != 10000 || resolved.ResolvedBy != "admin" || resolved.ResolvedAt == nil {
		t.Fatalf("resolution audit incomplete: %+v", resolved)
	}
}

func TestResolveFullRefundRejectsPartialAmount(t *testing.T) {
	ledger, _, _ := testLedger()
	dispute := openDispute(t, ledger)

	_, err := ledger.Resolve(context.Background(), dispute.ID, models.ResolutionFullRefund, 4000, "admin")
	if !errors.Is(err, ErrInvalidResolutionAmount) {
		t.Fatalf("expected ErrInvalidResolutionAmount, got %v", err)
	}
}

func TestResolvePartialRefundConservesFunds(t *testing.T) {
	ledger, _, gateway := testLedger()
	dispute := openDispute(t, ledger)

	payment, err := ledger.Resolve(context.Background(), dispute.ID, models.ResolutionPartialRefund, 3000, "admin")
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if payment.CapturedAmount+payment.RefundedAmount != payment.HeldAmount {
		t.Fatalf("settlement does not conserve held funds: %+v", payment)
	}
	if payment.CapturedAmount != 7000 || payment.RefundedAmount != 3000 {
		t.Fatalf("unexpected split: %+v", payment)
	}
	if payment.Status != models.EscrowPartiallyRefunded {
		t.Fatalf("expected partially_refunded, got %s", payment.Status)
	}
	if call := gateway.lastCall(); call.op != "capture" || call.amount != 7000 {
		t.Fatalf("expected capture of the photographer share, got %+v", call)
	}
}

func TestResolvePartialRefundBounds(t *testing.T) {
	ledger, _, _ := testLedger()
	dispute := openDispute(t, ledger)

	for _, amount := range []int64{0, -1, 10000, 20000} {
		_, err := ledger.Resolve(context.Background(), dispute.ID, models.ResolutionPartialRefund, amount, "admin")
		if !errors.Is(err, ErrInvalidResolutionAmount) {
			t.Fatalf("amount %d: expected ErrInvalidResolutionAmount, got %v", amount, err)
		}
	}
}

func TestResolvePhotographerFavor(t *testing.T) {
	ledger, _, gateway := testLedger()
	dispute := openDispute(t, ledger)

	payment, err := ledger.Resolve(context.Background(), dispute.ID, models.ResolutionPhotographerFavor, 0, "admin")
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if payment.Status != models.EscrowCaptured || payment.CapturedAmount != 10000 || payment.RefundedAmount != 0 {
		t.Fatalf("unexpected settlement: %+v", payment)
	}
	if call := gateway.lastCall(); call.op != "capture" || call.amount != 10000 {
		t.Fatalf("expected full capture, got %+v", call)
	}
}

func TestResolveUnknownResolution(t *testing.T) {
	ledger, _, _ := testLedger()
	dispute := openDispute(t, ledger)

	if _, err := ledger.Resolve(context.Background(), dispute.ID, "split_the_difference", 0, "admin"); !errors.Is(err, ErrUnknownResolution) {
		t.Fatalf("expected ErrUnknownResolution, got %v", err)
	}
}

func TestResolveIsOneShot(t *testing.T) {
	ledger, _, _ := testLedger()
	dispute := openDispute(t, ledger)

	if _, err := ledger.Resolve(context.Background(), dispute.ID, models.ResolutionFullRefund, 0, "admin"); err != nil {
		t.Fatalf("first resolve failed: %v", err)
	}
	if _, err := ledger.Resolve(context.Background(), dispute.ID, models.ResolutionPhotographerFavor, 0, "admin"); !errors.Is(err, ErrAlreadyResolved) {
		t.Fatalf("expected ErrAlreadyResolved, got %v", err)
	}
}

func TestMediationKeepsFundsHeld(t *testing.T) {
	ledger, repo, gateway := testLedger()
	dispute := openDispute(t, ledger)
	calls := len(gateway.calls)

	payment, err := ledger.Resolve(context.Background(), dispute.ID, models.ResolutionMediation, 0, "admin")
	if err != nil {
		t.Fatalf("mediation failed: %v", err)
	}
	if payment.Status != models.EscrowHeld {
		t.Fatalf("mediation must leave funds held, got %s", payment.Status)
	}
	if len(gateway.calls) != calls {
		t.Fatal("mediation must not touch the gateway")
	}

	mediated, _ := repo.GetDisputeByID(dispute.ID)
	if mediated.Status != models.DisputeInvestigating {
		t.Fatalf("expected dispute back in investigation, got %s", mediated.Status)
	}

	// Mediation is not a resolution; the dispute can still settle later.
	if _, err := ledger.Resolve(context.Background(), dispute.ID, models.ResolutionFullRefund, 0, "admin"); err != nil {
		t.Fatalf("resolve after mediation failed: %v", err)
	}
}

func TestGatewayFailureLeavesDisputeOpen(t *testing.T) {
	ledger, repo, gateway := testLedger()
	dispute := openDispute(t, ledger)
	gateway.fail = true

	_, err := ledger.Resolve(context.Background(), dispute.ID, models.ResolutionPartialRefund, 3000, "admin")
	var gwErr *GatewayError
	if !errors.As(err, &gwErr) {
		t.Fatalf("expected GatewayError, got %v", err)
	}

	payment, _ := repo.GetEscrowByBookingID("b1")
	if payment.Status != models.EscrowHeld {
		t.Fatalf("gateway failure must leave the escrow held, got %s", payment.Status)
	}
	open, _ := repo.GetDisputeByID(dispute.ID)
	if open.Status == models.DisputeResolved {
		t.Fatal("gateway failure must leave the dispute unresolved")
	}

	// The retry succeeds once the gateway recovers.
	gateway.fail = false
	if _, err := ledger.Resolve(context.Background(), dispute.ID, models.ResolutionPartialRefund, 3000, "admin"); err != nil {
		t.Fatalf("retry after gateway recovery failed: %v", err)
	}
}

func TestEscalateReopensResolvedDispute(t *testing.T) {
	ledger, repo, _ := testLedger()
	dispute := openDispute(t, ledger)

	// Mediation keeps the funds held so the escalated dispute can still move
	// money.
	ledger.Resolve(context.Background(), dispute.ID, models.ResolutionMediation, 0, "admin")
	if err := ledger.Escalate(context.Background(), dispute.ID); err != nil {
		t.Fatalf("escalation failed: %v", err)
	}
	escalated, _ := repo.GetDisputeByID(dispute.ID)
	if escalated.Status != models.DisputeEscalated {
		t.Fatalf("expected escalated status, got %s", escalated.Status)
	}
	if _, err := ledger.Resolve(context.Background(), dispute.ID, models.ResolutionFullRefund, 0, "senior-admin"); err != nil {
		t.Fatalf("resolution of escalated dispute failed: %v", err)
	}
}

func TestInvestigationLifecycle(t *testing.T) {
	ledger, repo, _ := testLedger()
	dispute := openDispute(t, ledger)

	if err := ledger.StartInvestigation(context.Background(), dispute.ID); err != nil {
		t.Fatalf("investigation failed: %v", err)
	}
	investigating, _ := repo.GetDisputeByID(dispute.ID)
	if investigating.Status != models.DisputeInvestigating {
		t.Fatalf("expected investigating, got %s", investigating.Status)
	}

	open, err := ledger.ListOpenDisputes()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(open) != 1 || open[0].ID != dispute.ID {
		t.Fatalf("expected the dispute in the open list, got %+v", open)
	}

	ledger.Resolve(context.Background(), dispute.ID, models.ResolutionFullRefund, 0, "admin")
	if err := ledger.StartInvestigation(context.Background(), dispute.ID); !errors.Is(err, ErrAlreadyResolved) {
		t.Fatalf("expected ErrAlreadyResolved, got %v", err)
	}
}

func TestSettledFundsCannotBeRedirected(t *testing.T) {
	ledger, repo, _ := testLedger()
	dispute := openDispute(t, ledger)

	if _, err := ledger.Resolve(context.Background(), dispute.ID, models.ResolutionFullRefund, 0, "admin"); err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if err := ledger.Escalate(context.Background(), dispute.ID); err != nil {
		t.Fatalf("escalation failed: %v", err)
	}

	// Escalation reopens the dispute, but the refunded money cannot move again.
	_, err := ledger.Resolve(context.Background(), dispute.ID, models.ResolutionPhotographerFavor, 0, "senior-admin")
	if !errors.Is(err, ErrEscrowSettled) {
		t.Fatalf("expected ErrEscrowSettled, got %v", err)
	}

	payment, _ := repo.GetEscrowByBookingID("b1")
	if payment.Status != models.EscrowRefunded || payment.RefundedAmount != 10000 {
		t.Fatalf("settled escrow must be untouched: %+v", payment)
	}
}
