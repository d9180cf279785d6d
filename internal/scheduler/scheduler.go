package scheduler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/onurcolak/sms-dispatch-service/internal/domain"
	"github.com/onurcolak/sms-dispatch-service/internal/lock"
	"github.com/onurcolak/sms-dispatch-service/internal/metrics"
	"github.com/onurcolak/sms-dispatch-service/pkg/logger"
)

const DefaultInterval = time.Minute

// sweeper is a minimal internal interface for the scheduler. It matches
// DispatchService.Sweep and lets us unit test the scheduler with a fake.
type sweeper interface {
	Sweep(ctx context.Context) (*domain.SweepReport, error)
}

// locker guards a pass across instances. Acquire returns lock.ErrNotAcquired
// when another instance is already sweeping.
type locker interface {
	Acquire(ctx context.Context) (func(), error)
}

type Scheduler struct {
	service         sweeper
	lock            locker
	alertClient     *resty.Client
	interval        time.Duration
	alertWebhook    string
	alertThreshold  int // Number of consecutive all-fail iterations before alert
	lastAlertSentAt time.Time

	// Internal state
	running  bool
	stopChan chan struct{}
	doneChan chan struct{}
	mu       sync.RWMutex

	// Statistics
	lastRunAt    time.Time
	lastReport   domain.SweepReport
	messagesSent int64
	runsCount    int64
	skippedRuns  int64

	// Alert tracking
	consecutiveAllFailCount int // Count of consecutive iterations where every dispatched message failed
}

func NewScheduler(service sweeper, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Scheduler{
		service:     service,
		interval:    interval,
		alertClient: resty.New().SetTimeout(10 * time.Second),
	}
}

// WithLock makes every pass take l first. Passes that cannot get it are
// skipped.
func (s *Scheduler) WithLock(l locker) *Scheduler {
	s.lock = l
	return s
}

// WithAlert configures the consecutive all-fail webhook.
func (s *Scheduler) WithAlert(webhookURL string, threshold int) *Scheduler {
	s.alertWebhook = webhookURL
	s.alertThreshold = threshold
	return s
}

func (s *Scheduler) StartWithParams(
	ctx context.Context,
	interval time.Duration,
	alertWebhook string,
	alertThreshold int,
) error {
	if interval <= 0 {
		interval = DefaultInterval
	}

	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		logger.Warnf("Scheduler is already running")
		return nil
	}
	s.interval = interval
	s.alertWebhook = alertWebhook
	s.alertThreshold = alertThreshold
	s.consecutiveAllFailCount = 0
	s.mu.Unlock()

	return s.Start(ctx)
}

func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()

	if s.running {
		s.mu.Unlock()
		logger.Warnf("Scheduler is already running")
		return nil
	}

	s.running = true
	s.stopChan = make(chan struct{})
	s.doneChan = make(chan struct{})
	interval := s.interval
	stopChan, doneChan := s.stopChan, s.doneChan
	s.mu.Unlock()

	logger.Infof("Starting scheduler with interval: %v", interval)

	go s.run(ctx, interval, stopChan, doneChan)

	return nil
}

func (s *Scheduler) run(ctx context.Context, interval time.Duration, stopChan, doneChan chan struct{}) {
	defer close(doneChan)

	s.safeTick(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logger.Infof("Scheduler running. Next execution in %v", interval)

	for {
		select {
		case <-ticker.C:
			s.safeTick(ctx)
			logger.Debugf("Next execution in %v", interval)

		case <-stopChan:
			logger.Warnf("Scheduler received stop signal")
			return

		case <-ctx.Done():
			logger.Warnf("Scheduler context cancelled")
			s.mu.Lock()
			s.running = false
			s.mu.Unlock()
			return
		}
	}
}

// safeTick keeps the loop alive when a pass panics.
func (s *Scheduler) safeTick(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("Scheduler pass panicked: %v", r)
		}
	}()

	if _, err := s.RunNow(ctx); err != nil && !errors.Is(err, lock.ErrNotAcquired) {
		logger.Errorf("Scheduler pass failed: %v", err)
	}
}

// RunNow performs one pass synchronously, outside the ticker. It returns
// lock.ErrNotAcquired when another instance holds the sweep lock.
func (s *Scheduler) RunNow(ctx context.Context) (*domain.SweepReport, error) {
	if s.lock != nil {
		release, err := s.lock.Acquire(ctx)
		if err != nil {
			if errors.Is(err, lock.ErrNotAcquired) {
				s.mu.Lock()
				s.skippedRuns++
				s.mu.Unlock()
				logger.Debugf("Another instance holds the sweep lock, skipping this pass")
			}
			return nil, err
		}
		defer release()
	}

	s.mu.Lock()
	s.lastRunAt = time.Now()
	s.runsCount++
	runNumber := s.runsCount
	startedAt := s.lastRunAt
	s.mu.Unlock()

	metrics.SchedulerRuns.Inc()
	logger.Infof("[Run #%d] Starting sweep at %s", runNumber, startedAt.Format(time.RFC3339))

	report, err := s.service.Sweep(ctx)
	if err != nil {
		logger.Errorf("[Run #%d] Sweep finished with errors: %v", runNumber, err)
	}
	if report == nil {
		return nil, err
	}

	s.record(runNumber, *report)

	logger.Infof("[Run #%d] Promoted %d, requeued %d, expired %d, sent %d, failed %d, settled %d batches",
		runNumber, report.Promoted, report.Requeued, report.Expired, report.Sent, report.Failed, report.Settled)

	return report, err
}

func (s *Scheduler) record(runNumber int64, report domain.SweepReport) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastReport = report
	s.messagesSent += int64(report.Sent)

	dispatched := report.Dispatched()

	// Track consecutive all-fail iterations
	if dispatched > 0 && report.Sent == 0 {
		s.consecutiveAllFailCount++
		logger.Warnf("[Run #%d] All %d messages failed (consecutive count: %d/%d)",
			runNumber, dispatched, s.consecutiveAllFailCount, s.alertThreshold)

		if s.alertThreshold > 0 && s.consecutiveAllFailCount >= s.alertThreshold && s.alertWebhook != "" {
			go s.sendAlert(s.alertWebhook, runNumber, s.consecutiveAllFailCount, dispatched)
		}
		return
	}

	if dispatched > 0 {
		if s.consecutiveAllFailCount > 0 {
			logger.Debugf("[Run #%d] Resetting consecutive failure count (was: %d)",
				runNumber, s.consecutiveAllFailCount)
		}
		s.consecutiveAllFailCount = 0
	}
}

func (s *Scheduler) Stop() error {
	s.mu.Lock()

	if !s.running {
		s.mu.Unlock()
		logger.Warnf("Scheduler is not running")
		return nil
	}

	s.running = false
	stopChan := s.stopChan
	doneChan := s.doneChan
	s.mu.Unlock()

	// Send stop signal
	close(stopChan)

	// Wait for goroutine to finish
	<-doneChan

	logger.Infof("Scheduler stopped")
	return nil
}

func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

func (s *Scheduler) GetStatus() SchedulerStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	status := SchedulerStatus{
		Running:                 s.running,
		LastRunAt:               s.lastRunAt,
		LastReport:              s.lastReport,
		MessagesSent:            s.messagesSent,
		RunsCount:               s.runsCount,
		SkippedRuns:             s.skippedRuns,
		Interval:                s.interval.String(),
		ConsecutiveAllFailCount: s.consecutiveAllFailCount,
		LastAlertSentAt:         s.lastAlertSentAt,
	}

	if s.running && !s.lastRunAt.IsZero() {
		status.NextRunAt = s.lastRunAt.Add(s.interval)
	}

	return status
}

func (s *Scheduler) sendAlert(webhookURL string, runNumber int64, consecutiveFailures int, messagesInRun int) {
	alertPayload := map[string]any{
		"alert":               "consecutive_all_fail",
		"runNumber":           runNumber,
		"consecutiveFailures": consecutiveFailures,
		"messagesInRun":       messagesInRun,
		"timestamp":           time.Now().Format(time.RFC3339),
		"message": fmt.Sprintf(
			"All %d dispatched messages failed for %d consecutive iterations",
			messagesInRun,
			consecutiveFailures,
		),
	}

	resp, err := s.alertClient.R().
		SetHeader("Content-Type", "application/json").
		SetBody(alertPayload).
		Post(webhookURL)
	if err != nil {
		logger.Errorf("Failed to send alert to webhook: %v", err)
		return
	}

	if resp.StatusCode() == http.StatusOK || resp.StatusCode() == http.StatusNoContent {
		s.mu.Lock()
		s.lastAlertSentAt = time.Now()
		s.mu.Unlock()
		logger.Infof("Alert sent successfully to %s (consecutive failures: %d)", webhookURL, consecutiveFailures)
	} else {
		logger.Warnf("Alert webhook returned status %d", resp.StatusCode())
	}
}

type SchedulerStatus struct {
	Running                 bool               `json:"running"`
	LastRunAt               time.Time          `json:"lastRunAt,omitempty"`
	NextRunAt               time.Time          `json:"nextRunAt,omitempty"`
	LastReport              domain.SweepReport `json:"lastReport"`
	MessagesSent            int64              `json:"messagesSent"`
	RunsCount               int64              `json:"runsCount"`
	SkippedRuns             int64              `json:"skippedRuns"`
	Interval                string             `json:"interval"`
	ConsecutiveAllFailCount int                `json:"consecutiveAllFailCount"`
	LastAlertSentAt         time.Time          `json:"lastAlertSentAt,omitempty"`
}
