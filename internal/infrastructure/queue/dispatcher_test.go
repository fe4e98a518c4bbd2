package queue

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/pvzlink/parcel-system/internal/core/ports"
)

// recordingScanService remembers the order scans arrive in, per tracking number.
type recordingScanService struct {
	mu    sync.Mutex
	seen  map[string][]string
	total int
}

func newRecordingScanService() *recordingScanService {
	return &recordingScanService{seen: make(map[string][]string)}
}

func (s *recordingScanService) Process(_ context.Context, in ports.ScanEventInput) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seen[in.TrackingNumber] = append(s.seen[in.TrackingNumber], in.Status)
	s.total++
	return nil
}

func (s *recordingScanService) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.total
}

func waitForCount(t *testing.T, svc *recordingScanService, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if svc.count() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("processed %d events, want %d", svc.count(), want)
}

func TestDispatcher_ProcessesAllEvents(t *testing.T) {
	svc := newRecordingScanService()
	d := NewDispatcher(4, svc, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	d.Start(ctx)

	statuses := []string{"processing", "shipped", "delivered"}
	for _, st := range statuses {
		d.Enqueue(ports.ScanEventInput{TrackingNumber: "PKG001", Status: st})
	}

	waitForCount(t, svc, len(statuses))
}

func TestDispatcher_PreservesPerPackageOrdering(t *testing.T) {
	svc := newRecordingScanService()
	d := NewDispatcher(8, svc, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	d.Start(ctx)

	statuses := []string{"paid", "processing", "shipped", "delivered", "completed"}
	var batch []ports.ScanEventInput
	trackingNumbers := []string{"PKG-A", "PKG-B", "PKG-C"}
	for _, st := range statuses {
		for _, tn := range trackingNumbers {
			batch = append(batch, ports.ScanEventInput{TrackingNumber: tn, Status: st})
		}
	}
	d.EnqueueBatch(batch)

	waitForCount(t, svc, len(batch))

	svc.mu.Lock()
	defer svc.mu.Unlock()
	for _, tn := range trackingNumbers {
		got := svc.seen[tn]
		if len(got) != len(statuses) {
			t.Fatalf("%s: got %d events, want %d", tn, len(got), len(statuses))
		}
		for i, st := range statuses {
			if got[i] != st {
				t.Errorf("%s: event %d = %s, want %s (ordering broken)", tn, i, got[i], st)
			}
		}
	}
}

func TestDispatcher_DefaultWorkerCount(t *testing.T) {
	d := NewDispatcher(0, newRecordingScanService(), zerolog.Nop())
	if len(d.workers) != defaultWorkers {
		t.Fatalf("expected %d workers, got %d", defaultWorkers, len(d.workers))
	}
}

func TestDispatcher_StableSharding(t *testing.T) {
	d := NewDispatcher(4, newRecordingScanService(), zerolog.Nop())
	first := d.shardIndex("PKG001")
	for i := 0; i < 10; i++ {
		if d.shardIndex("PKG001") != first {
			t.Fatal("shard index must be deterministic for a tracking number")
		}
	}
}
