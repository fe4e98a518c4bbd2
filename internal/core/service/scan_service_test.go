package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/pvzlink/parcel-system/internal/core/domain"
	"github.com/pvzlink/parcel-system/internal/core/ports"
)

type stubLifecycle struct {
	mu          sync.Mutex
	transitions []ports.TransitionInput
	err         error
}

func (s *stubLifecycle) RequestTransition(_ context.Context, in ports.TransitionInput) (*domain.Package, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	s.transitions = append(s.transitions, in)
	return &domain.Package{TrackingNumber: in.TrackingNumber, Status: in.Target}, nil
}

func (s *stubLifecycle) Pay(context.Context, string, domain.Actor) (*domain.Package, error) {
	return nil, errors.New("not used")
}

func (s *stubLifecycle) RecoverPending(context.Context) error { return nil }

func (s *stubLifecycle) applied() []ports.TransitionInput {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ports.TransitionInput, len(s.transitions))
	copy(out, s.transitions)
	return out
}

type stubDedup struct {
	mu       sync.Mutex
	seen     map[string]bool
	checkErr error
}

func newStubDedup() *stubDedup {
	return &stubDedup{seen: make(map[string]bool)}
}

func (d *stubDedup) dedupKey(trackingNumber, status string, ts time.Time) string {
	return trackingNumber + "|" + status + "|" + ts.UTC().String()
}

func (d *stubDedup) IsDuplicate(_ context.Context, trackingNumber, status string, ts time.Time) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.checkErr != nil {
		return false, d.checkErr
	}
	return d.seen[d.dedupKey(trackingNumber, status, ts)], nil
}

func (d *stubDedup) Mark(_ context.Context, trackingNumber, status string, ts time.Time) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.seen[d.dedupKey(trackingNumber, status, ts)] = true
	return nil
}

func newScanFixture() (*stubLifecycle, *stubPackageRepo, *stubDedup, ports.ScanService) {
	lifecycle := &stubLifecycle{}
	repo := newStubPackageRepo()
	dedup := newStubDedup()
	svc := NewScanService(lifecycle, repo, dedup, discardLogger)
	return lifecycle, repo, dedup, svc
}

func scanEvent(trackingNumber, status string) ports.ScanEventInput {
	return ports.ScanEventInput{
		TrackingNumber: trackingNumber,
		Status:         status,
		Timestamp:      time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC),
		Actor:          courier,
	}
}

func TestScanService_Process_AppliesTransition(t *testing.T) {
	lifecycle, _, dedup, svc := newScanFixture()

	if err := svc.Process(context.Background(), scanEvent("PVZ-11111111", "shipped")); err != nil {
		t.Fatalf("process: %v", err)
	}

	applied := lifecycle.applied()
	if len(applied) != 1 {
		t.Fatalf("expected 1 transition, got %d", len(applied))
	}
	if applied[0].Target != domain.StatusShipped {
		t.Fatalf("wrong target %s", applied[0].Target)
	}
	if applied[0].Via != ports.ViaScan {
		t.Fatalf("wrong via %q", applied[0].Via)
	}
	if applied[0].Actor != courier {
		t.Fatalf("wrong actor %+v", applied[0].Actor)
	}

	dup, err := dedup.IsDuplicate(context.Background(), "PVZ-11111111", "shipped",
		time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC))
	if err != nil || !dup {
		t.Fatalf("scan not marked in dedup store (dup=%v err=%v)", dup, err)
	}
}

func TestScanService_Process_DuplicateSkipped(t *testing.T) {
	lifecycle, _, _, svc := newScanFixture()
	event := scanEvent("PVZ-11111111", "shipped")

	if err := svc.Process(context.Background(), event); err != nil {
		t.Fatalf("first process: %v", err)
	}
	if err := svc.Process(context.Background(), event); err != nil {
		t.Fatalf("duplicate process: %v", err)
	}

	if n := len(lifecycle.applied()); n != 1 {
		t.Fatalf("duplicate scan reached lifecycle, %d transitions", n)
	}
}

func TestScanService_Process_UnknownStatus(t *testing.T) {
	lifecycle, _, _, svc := newScanFixture()

	if err := svc.Process(context.Background(), scanEvent("PVZ-11111111", "teleported")); err == nil {
		t.Fatalf("expected error for unknown status")
	}
	if len(lifecycle.applied()) != 0 {
		t.Fatalf("unknown status reached lifecycle")
	}
}

func TestScanService_Process_DedupFailureProcessesAnyway(t *testing.T) {
	lifecycle, _, dedup, svc := newScanFixture()
	dedup.checkErr = errors.New("redis down")

	if err := svc.Process(context.Background(), scanEvent("PVZ-11111111", "delivered")); err != nil {
		t.Fatalf("process: %v", err)
	}
	if len(lifecycle.applied()) != 1 {
		t.Fatalf("scan dropped on dedup failure")
	}
}

func TestScanService_Process_TransitionErrorPropagates(t *testing.T) {
	lifecycle, _, _, svc := newScanFixture()
	lifecycle.err = domain.TransitionError(domain.StatusDelivered, domain.StatusShipped)

	err := svc.Process(context.Background(), scanEvent("PVZ-11111111", "shipped"))
	if !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected invalid transition error, got %v", err)
	}
}

func TestScanService_Process_UpdatesLocation(t *testing.T) {
	lifecycle, repo, _, svc := newScanFixture()
	seedPackage(repo, "p1", "PVZ-22222222", domain.StatusProcessing)

	event := scanEvent("PVZ-22222222", "shipped")
	event.Location = "line-haul truck 7"
	if err := svc.Process(context.Background(), event); err != nil {
		t.Fatalf("process: %v", err)
	}
	if len(lifecycle.applied()) != 1 {
		t.Fatalf("transition not applied")
	}

	pkg, err := repo.FindByTrackingNumber(context.Background(), "PVZ-22222222")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if pkg.CurrentLocation != "line-haul truck 7" {
		t.Fatalf("location not updated, got %q", pkg.CurrentLocation)
	}
}
