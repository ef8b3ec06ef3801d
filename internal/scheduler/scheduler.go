package scheduler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/edupulse/campus-messaging/internal/automation"
	"github.com/edupulse/campus-messaging/internal/domain"
	"github.com/edupulse/campus-messaging/internal/service"
	"github.com/edupulse/campus-messaging/pkg/logger"
)

// Minimal internal interfaces so the loop is testable with small fakes.
type dispatcher interface {
	DispatchDue(ctx context.Context, now time.Time) ([]service.DispatchOutcome, error)
}

type ruleEvaluator interface {
	Tick(ctx context.Context, now time.Time, events []domain.Event) ([]automation.Firing, error)
}

type eventSource interface {
	Drain() []domain.Event
}

// Scheduler is the single cooperative evaluation loop: each tick drains the
// event queue, lets the evaluator enqueue sends, then dispatches everything
// due. Concurrency only happens inside one dispatch batch, never across
// ticks.
type Scheduler struct {
	dispatcher     dispatcher
	evaluator      ruleEvaluator
	events         eventSource
	interval       time.Duration
	alertWebhook   string
	alertThreshold int // consecutive all-fail ticks before alerting

	// Internal state
	running  bool
	stopChan chan struct{}
	doneChan chan struct{}
	mu       sync.RWMutex

	// Statistics
	lastRunAt       time.Time
	lastAlertSentAt time.Time
	sendsDispatched int64
	rulesFired      int64
	runsCount       int64

	consecutiveAllFailCount int
}

func NewScheduler(
	dispatcherSvc dispatcher,
	evaluatorSvc ruleEvaluator,
	events eventSource,
	interval time.Duration,
) *Scheduler {
	return &Scheduler{
		dispatcher: dispatcherSvc,
		evaluator:  evaluatorSvc,
		events:     events,
		interval:   interval,
		running:    false,
	}
}

func (s *Scheduler) StartWithParams(
	ctx context.Context,
	intervalSeconds int,
	alertWebhook string,
	alertThreshold int,
) error {
	if intervalSeconds <= 0 {
		intervalSeconds = 60
	}

	s.mu.Lock()
	s.interval = time.Duration(intervalSeconds) * time.Second
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
	s.mu.Unlock()

	logger.Infof("Starting scheduler with interval: %v", s.interval)

	go s.run(ctx)

	return nil
}

func (s *Scheduler) run(ctx context.Context) {
	defer close(s.doneChan)

	s.tick(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	logger.Infof("Scheduler running. Next execution in %v", s.interval)

	for {
		select {
		case <-ticker.C:
			s.tick(ctx)
			logger.Debugf("Next execution in %v", s.interval)

		case <-s.stopChan:
			logger.Warnf("Scheduler received stop signal")
			return

		case <-ctx.Done():
			logger.Warnf("Scheduler context cancelled")
			return
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	s.mu.Lock()
	s.lastRunAt = time.Now()
	s.runsCount++
	runNumber := s.runsCount
	alertWebhook := s.alertWebhook
	alertThreshold := s.alertThreshold
	s.mu.Unlock()

	now := time.Now()

	logger.Infof("[Run #%d] Starting evaluation at %s", runNumber, now.Format(time.RFC3339))

	events := s.events.Drain()

	firings, err := s.evaluator.Tick(ctx, now, events)
	if err != nil {
		logger.Errorf("[Run #%d] Error evaluating rules: %v", runNumber, err)
	}

	outcomes, err := s.dispatcher.DispatchDue(ctx, now)
	if err != nil {
		logger.Errorf("[Run #%d] Error dispatching sends: %v", runNumber, err)
		return
	}

	if len(firings) > 0 {
		s.mu.Lock()
		s.rulesFired += int64(len(firings))
		s.mu.Unlock()
	}

	if outcomes == nil {
		logger.Debugf("[Run #%d] No sends due", runNumber)
		return
	}

	// A tick "all failed" when every dispatched send delivered nothing.
	dispatched := 0
	allFailed := true
	for _, o := range outcomes {
		if o.Delivered > 0 {
			allFailed = false
		}
		dispatched += o.Delivered
	}

	s.mu.Lock()
	s.sendsDispatched += int64(len(outcomes))

	if allFailed && len(outcomes) > 0 {
		s.consecutiveAllFailCount++
		logger.Warnf("[Run #%d] All %d sends failed (consecutive count: %d/%d)",
			runNumber, len(outcomes), s.consecutiveAllFailCount, alertThreshold)

		if s.consecutiveAllFailCount >= alertThreshold && alertThreshold > 0 && alertWebhook != "" {
			go s.sendAlert(alertWebhook, runNumber, s.consecutiveAllFailCount, len(outcomes))
		}
	} else {
		if s.consecutiveAllFailCount > 0 {
			logger.Debugf(
				"[Run #%d] Resetting consecutive failure count (was: %d)",
				runNumber,
				s.consecutiveAllFailCount,
			)
		}
		s.consecutiveAllFailCount = 0
	}
	s.mu.Unlock()

	logger.Infof("[Run #%d] %d rules fired, %d sends dispatched, %d messages delivered",
		runNumber, len(firings), len(outcomes), dispatched)
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
		SendsDispatched:         s.sendsDispatched,
		RulesFired:              s.rulesFired,
		RunsCount:               s.runsCount,
		Interval:                s.interval,
		ConsecutiveAllFailCount: s.consecutiveAllFailCount,
		LastAlertSentAt:         s.lastAlertSentAt,
	}

	if s.running && !s.lastRunAt.IsZero() {
		status.NextRunAt = s.lastRunAt.Add(s.interval)
	}

	return status
}

func (s *Scheduler) sendAlert(webhookURL string, runNumber int64, consecutiveFailures int, sendsInTick int) {
	alertPayload := map[string]any{
		"alert":               "consecutive_all_fail",
		"runNumber":           runNumber,
		"consecutiveFailures": consecutiveFailures,
		"sendsInTick":         sendsInTick,
		"timestamp":           time.Now().Format(time.RFC3339),
		"message": fmt.Sprintf(
			"All %d sends failed for %d consecutive ticks",
			sendsInTick,
			consecutiveFailures,
		),
	}

	jsonData, err := json.Marshal(alertPayload)
	if err != nil {
		logger.Errorf("Failed to marshal alert payload: %v", err)
		return
	}

	resp, err := http.Post(webhookURL, "application/json", bytes.NewBuffer(jsonData))
	if err != nil {
		logger.Errorf("Failed to send alert to webhook: %v", err)
		return
	}

	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.Warnf("Failed to close alert webhook response body: %v", err)
		}
	}()

	if resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusNoContent {
		s.mu.Lock()
		s.lastAlertSentAt = time.Now()
		s.mu.Unlock()
		logger.Infof("Alert sent successfully to %s (consecutive failures: %d)", webhookURL, consecutiveFailures)
	} else {
		logger.Warnf("Alert webhook returned status %d", resp.StatusCode)
	}
}

type SchedulerStatus struct {
	Running                 bool          `json:"running"`
	LastRunAt               time.Time     `json:"lastRunAt,omitempty"`
	NextRunAt               time.Time     `json:"nextRunAt,omitempty"`
	SendsDispatched         int64         `json:"sendsDispatched"`
	RulesFired              int64         `json:"rulesFired"`
	RunsCount               int64         `json:"runsCount"`
	Interval                time.Duration `json:"interval"`
	ConsecutiveAllFailCount int           `json:"consecutiveAllFailCount"`
	LastAlertSentAt         time.Time     `json:"lastAlertSentAt,omitempty"`
}
