package scheduler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/onurcolak/sms-dispatch-service/internal/domain"
	"github.com/onurcolak/sms-dispatch-service/internal/lock"
)

// fakeSweeper is a simple test double for sweeper.
type fakeSweeper struct {
	mu       sync.Mutex
	reports  []domain.SweepReport
	err      error
	panicked bool
	calls    int
}

func (f *fakeSweeper) Sweep(ctx context.Context) (*domain.SweepReport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls++
	if f.panicked {
		panic("boom")
	}
	if len(f.reports) == 0 {
		return &domain.SweepReport{}, f.err
	}
	r := f.reports[0]
	if len(f.reports) > 1 {
		f.reports = f.reports[1:]
	}
	return &r, f.err
}

func (f *fakeSweeper) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestScheduler_RunNow_MixedResults(t *testing.T) {
	sweeper := &fakeSweeper{reports: []domain.SweepReport{{Promoted: 3, Sent: 2, Failed: 1}}}
	s := NewScheduler(sweeper, time.Minute).WithAlert("", 3)

	report, err := s.RunNow(context.Background())
	if err != nil {
		t.Fatalf("RunNow returned error: %v", err)
	}
	if report.Sent != 2 {
		t.Errorf("expected report.Sent=2, got %d", report.Sent)
	}

	status := s.GetStatus()
	if status.MessagesSent != 2 {
		t.Errorf("expected MessagesSent=2, got %d", status.MessagesSent)
	}
	if status.RunsCount != 1 {
		t.Errorf("expected RunsCount=1, got %d", status.RunsCount)
	}
	if status.ConsecutiveAllFailCount != 0 {
		t.Errorf("expected ConsecutiveAllFailCount=0, got %d", status.ConsecutiveAllFailCount)
	}
	if status.LastReport.Promoted != 3 {
		t.Errorf("expected LastReport.Promoted=3, got %d", status.LastReport.Promoted)
	}
}

func TestScheduler_AllFailIncrementsAndIdleKeepsCounter(t *testing.T) {
	sweeper := &fakeSweeper{reports: []domain.SweepReport{
		{Failed: 2},
		{},
		{Failed: 1},
		{Sent: 1},
	}}
	s := NewScheduler(sweeper, time.Minute).WithAlert("", 5)
	ctx := context.Background()

	want := []int{1, 1, 2, 0}
	for i, w := range want {
		if _, err := s.RunNow(ctx); err != nil {
			t.Fatalf("run %d: %v", i+1, err)
		}
		if got := s.GetStatus().ConsecutiveAllFailCount; got != w {
			t.Errorf("run %d: expected ConsecutiveAllFailCount=%d, got %d", i+1, w, got)
		}
	}
}

func TestScheduler_AlertAfterThreshold(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	sweeper := &fakeSweeper{reports: []domain.SweepReport{{Failed: 4}}}
	s := NewScheduler(sweeper, time.Minute).WithAlert(srv.URL, 2)
	ctx := context.Background()

	_, _ = s.RunNow(ctx)
	_, _ = s.RunNow(ctx)

	deadline := time.Now().Add(2 * time.Second)
	for s.GetStatus().LastAlertSentAt.IsZero() && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}

	if hits.Load() != 1 {
		t.Fatalf("expected exactly 1 alert, got %d", hits.Load())
	}
	if s.GetStatus().LastAlertSentAt.IsZero() {
		t.Errorf("expected LastAlertSentAt to be set")
	}
}

func TestScheduler_SweepErrorStillRecordsReport(t *testing.T) {
	sweeper := &fakeSweeper{
		reports: []domain.SweepReport{{Sent: 1}},
		err:     errors.New("settle failed"),
	}
	s := NewScheduler(sweeper, time.Minute)

	report, err := s.RunNow(context.Background())
	if err == nil {
		t.Fatalf("expected error from RunNow")
	}
	if report == nil || report.Sent != 1 {
		t.Fatalf("expected partial report, got %+v", report)
	}
	if s.GetStatus().MessagesSent != 1 {
		t.Errorf("expected MessagesSent=1, got %d", s.GetStatus().MessagesSent)
	}
}

func TestScheduler_SkipsWhenLockHeld(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	ctx := context.Background()
	other := lock.NewRedisLock(rdb, "sweep", time.Minute)
	release, err := other.Acquire(ctx)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}

	sweeper := &fakeSweeper{}
	s := NewScheduler(sweeper, time.Minute).WithLock(lock.NewRedisLock(rdb, "sweep", time.Minute))

	if _, err := s.RunNow(ctx); !errors.Is(err, lock.ErrNotAcquired) {
		t.Fatalf("expected ErrNotAcquired, got %v", err)
	}
	if sweeper.callCount() != 0 {
		t.Fatalf("expected no sweep while lock is held")
	}
	if s.GetStatus().SkippedRuns != 1 {
		t.Errorf("expected SkippedRuns=1, got %d", s.GetStatus().SkippedRuns)
	}

	release()

	if _, err := s.RunNow(ctx); err != nil {
		t.Fatalf("RunNow after release: %v", err)
	}
	if sweeper.callCount() != 1 {
		t.Errorf("expected 1 sweep after release, got %d", sweeper.callCount())
	}
}

func TestScheduler_PanicDoesNotStopLoop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sweeper := &fakeSweeper{panicked: true}
	s := NewScheduler(sweeper, 5*time.Millisecond)

	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for sweeper.callCount() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	if err := s.Stop(); err != nil {
		t.Fatalf("Stop returned error: %v", err)
	}
	if sweeper.callCount() < 2 {
		t.Fatalf("expected the loop to survive a panic, got %d calls", sweeper.callCount())
	}
}

func TestScheduler_StartAndStopToggleRunning(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := NewScheduler(&fakeSweeper{}, 10*time.Millisecond)

	if s.IsRunning() {
		t.Fatalf("expected scheduler to be not running initially")
	}

	if err := s.StartWithParams(ctx, 20*time.Millisecond, "", 0); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}

	if !s.IsRunning() {
		t.Fatalf("expected scheduler to be running after Start")
	}
	if s.GetStatus().Interval != "20ms" {
		t.Errorf("expected interval 20ms, got %s", s.GetStatus().Interval)
	}

	if err := s.Stop(); err != nil {
		t.Fatalf("Stop returned error: %v", err)
	}

	if s.IsRunning() {
		t.Fatalf("expected scheduler to be not running after Stop")
	}
}
