package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/edupulse/campus-messaging/environments"
	"github.com/edupulse/campus-messaging/internal/domain"
	"github.com/edupulse/campus-messaging/pkg/gateway"
	"github.com/edupulse/campus-messaging/pkg/logger"
)

type sendRepository interface {
	Create(ctx context.Context, send *domain.ScheduledSend) error
	GetDue(ctx context.Context, now time.Time, limit int) ([]domain.ScheduledSend, error)
	GetByID(ctx context.Context, id string) (*domain.ScheduledSend, error)
	List(ctx context.Context, status *domain.SendStatus, page, pageSize int) ([]domain.ScheduledSend, int64, error)
	ClaimRecipient(ctx context.Context, recipientRowID string) (bool, error)
	FinishRecipient(ctx context.Context, recipientRowID string, delivered bool, messageID, lastError *string) error
	UpdateStatus(ctx context.Context, id string, version int64, status domain.SendStatus, attemptCount int, lastError *string) error
	Cancel(ctx context.Context, id string) error
	Retry(ctx context.Context, id string) error
	GetStats(ctx context.Context) (map[domain.SendStatus]int64, error)
}

type gatewayClient interface {
	Send(ctx context.Context, phone, body string) (*gateway.SendResponse, error)
}

type receiptCache interface {
	CacheReceipt(ctx context.Context, sendRecipientID, messageID string, deliveredAt time.Time) error
	GetAllReceipts(ctx context.Context) (map[string]*domain.DeliveryReceipt, error)
}

// DispatchService enqueues scheduled sends and drives due ones through the
// gateway with a bounded per-recipient fan-out.
type DispatchService struct {
	sends    sendRepository
	gateway  gatewayClient
	receipts receiptCache // nil when the cache is unavailable
	config   environments.DispatchConfig
}

func NewDispatchService(
	sends sendRepository,
	gatewayClient gatewayClient,
	receipts receiptCache,
	config environments.DispatchConfig,
) *DispatchService {
	return &DispatchService{
		sends:    sends,
		gateway:  gatewayClient,
		receipts: receipts,
		config:   config,
	}
}

// DispatchOutcome summarizes one dispatched send for the scheduler loop.
type DispatchOutcome struct {
	SendID    string            `json:"sendId"`
	Status    domain.SendStatus `json:"status"`
	Delivered int               `json:"delivered"`
	Failed    int               `json:"failed"`
	Skipped   int               `json:"skipped"`
	Attempt   int               `json:"attempt"`
}

// Enqueue creates a scheduled send with snapshot semantics: the recipient
// set is resolved now and never re-resolved at dispatch time.
func (s *DispatchService) Enqueue(
	ctx context.Context,
	ruleID *string,
	body string,
	scheduledAt time.Time,
	recipients []domain.Recipient,
) (*domain.ScheduledSend, error) {
	if body == "" {
		return nil, fmt.Errorf("message body must not be empty")
	}
	if len(body) > s.config.MaxBodyLength {
		return nil, fmt.Errorf("message body exceeds maximum length of %d characters", s.config.MaxBodyLength)
	}

	snapshot := make([]domain.SendRecipient, 0, len(recipients))
	for _, r := range recipients {
		if !r.HasValidPhone() {
			continue
		}
		snapshot = append(snapshot, domain.SendRecipient{
			ID:          uuid.NewString(),
			RecipientID: r.ID,
			Name:        r.Name,
			Phone:       r.Phone,
			Outcome:     domain.OutcomePending,
		})
	}

	if len(snapshot) == 0 {
		return nil, fmt.Errorf("audience contains no recipient with a valid phone number")
	}

	send := &domain.ScheduledSend{
		ID:          uuid.NewString(),
		RuleID:      ruleID,
		Body:        body,
		ScheduledAt: scheduledAt,
		Status:      domain.SendPending,
		Version:     1,
		Recipients:  snapshot,
	}

	if err := s.sends.Create(ctx, send); err != nil {
		return nil, err
	}

	logger.Infof("Enqueued send %s for %d recipients at %s", send.ID, len(snapshot), scheduledAt.Format(time.RFC3339))

	return send, nil
}

// DispatchDue dispatches every pending send whose scheduled time has passed,
// in ascending scheduled-time order (ties broken by creation order). Failed
// sends with attempts remaining are first moved back to pending, so a full
// failure stays visible as failed between ticks and is retried on the next
// one.
func (s *DispatchService) DispatchDue(ctx context.Context, now time.Time) ([]DispatchOutcome, error) {
	if err := s.requeueRetryable(ctx); err != nil {
		logger.Errorf("Failed to requeue retryable sends: %v", err)
	}

	due, err := s.sends.GetDue(ctx, now, s.config.BatchSize)
	if err != nil {
		return nil, fmt.Errorf("failed to get due sends: %w", err)
	}

	if len(due) == 0 {
		return nil, nil
	}

	logger.Infof("Dispatching %d due sends", len(due))

	outcomes := make([]DispatchOutcome, 0, len(due))
	for i := range due {
		outcomes = append(outcomes, s.dispatchOne(ctx, &due[i]))
	}

	return outcomes, nil
}

// requeueRetryable applies the automatic failed -> pending transition to
// fully failed sends that still have attempts left. Manual retry goes
// through the same store transition.
func (s *DispatchService) requeueRetryable(ctx context.Context) error {
	failed := domain.SendFailed
	sends, _, err := s.sends.List(ctx, &failed, 1, s.config.BatchSize)
	if err != nil {
		return fmt.Errorf("failed to list failed sends: %w", err)
	}

	for i := range sends {
		if sends[i].AttemptCount >= s.config.MaxAttempts {
			continue
		}
		if err := s.sends.Retry(ctx, sends[i].ID); err != nil {
			logger.Warnf("Failed to requeue send %s: %v", sends[i].ID, err)
		}
	}

	return nil
}

// dispatchOne fans out one send's recipients through the gateway with a
// bounded number of concurrent attempts, waits for all of them (barrier),
// and only then applies the aggregate status transition.
func (s *DispatchService) dispatchOne(ctx context.Context, send *domain.ScheduledSend) DispatchOutcome {
	concurrency := s.config.SendConcurrency
	if concurrency <= 0 {
		concurrency = 1
	}

	var (
		mu        sync.Mutex
		delivered int
		failed    int
		skipped   int
		firstErr  string
	)

	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup

	for i := range send.Recipients {
		rec := send.Recipients[i]
		if rec.Outcome != domain.OutcomePending {
			continue
		}

		wg.Add(1)
		sem <- struct{}{}

		go func() {
			defer wg.Done()
			defer func() { <-sem }()

			ok, failMsg := s.attemptRecipient(ctx, send, rec)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case failMsg == "" && !ok:
				skipped++
			case ok:
				delivered++
			default:
				failed++
				if firstErr == "" {
					firstErr = failMsg
				}
			}
		}()
	}

	wg.Wait()

	attempt := send.AttemptCount + 1

	outcome := DispatchOutcome{
		SendID:    send.ID,
		Delivered: delivered,
		Failed:    failed,
		Skipped:   skipped,
		Attempt:   attempt,
	}

	var lastError *string
	if firstErr != "" {
		lastError = &firstErr
	}

	switch {
	case delivered > 0 && failed == 0:
		outcome.Status = domain.SendSent
	case delivered > 0 && failed > 0:
		outcome.Status = domain.SendPartial
	case failed > 0:
		// Full failure lands in failed even with attempts remaining; the
		// retry transition moves it back to pending.
		outcome.Status = domain.SendFailed
	default:
		// Everything was skipped: a cancellation won the race. The record
		// already carries its terminal status.
		outcome.Status = domain.SendCancelled
		return outcome
	}

	if err := s.sends.UpdateStatus(ctx, send.ID, send.Version, outcome.Status, attempt, lastError); err != nil {
		if errors.Is(err, domain.ErrVersionConflict) {
			logger.Warnf("Send %s changed concurrently, leaving status untouched", send.ID)
		} else {
			logger.Errorf("Failed to update status of send %s: %v", send.ID, err)
		}
	}

	logger.Infof("Send %s attempt %d: %d delivered, %d failed, %d skipped -> %s",
		send.ID, attempt, delivered, failed, skipped, outcome.Status)

	return outcome
}

// attemptRecipient claims, sends and records one recipient. The claim makes
// dispatch-then-cancel atomic per recipient: a recipient either was claimed
// before cancellation (and its attempt runs to completion) or the claim
// fails and it is skipped. Returns (delivered, failureMessage); both false
// and "" means the claim was lost.
func (s *DispatchService) attemptRecipient(
	ctx context.Context,
	send *domain.ScheduledSend,
	rec domain.SendRecipient,
) (bool, string) {
	claimed, err := s.sends.ClaimRecipient(ctx, rec.ID)
	if err != nil {
		logger.Errorf("Failed to claim recipient %s of send %s: %v", rec.ID, send.ID, err)
		return false, err.Error()
	}
	if !claimed {
		return false, ""
	}

	body := domain.RenderTemplate(send.Body, rec)

	resp, err := s.gateway.Send(ctx, rec.Phone, body)
	if err != nil {
		msg := err.Error()
		if finishErr := s.sends.FinishRecipient(ctx, rec.ID, false, nil, &msg); finishErr != nil {
			logger.Errorf("Failed to record failure for recipient %s: %v", rec.ID, finishErr)
		}
		return false, msg
	}

	if err := s.sends.FinishRecipient(ctx, rec.ID, true, &resp.MessageID, nil); err != nil {
		logger.Errorf("Failed to record delivery for recipient %s: %v", rec.ID, err)
	}

	if s.receipts != nil {
		if err := s.receipts.CacheReceipt(ctx, rec.ID, resp.MessageID, time.Now()); err != nil {
			logger.Warnf("Failed to cache receipt for recipient %s: %v", rec.ID, err)
		}
	}

	return true, ""
}

// Cancel aborts a send while it is still pending. Cancelling a send in any
// other state is rejected.
func (s *DispatchService) Cancel(ctx context.Context, id string) error {
	return s.sends.Cancel(ctx, id)
}

// Retry moves a failed send back to pending, bounded by the maximum attempt
// count.
func (s *DispatchService) Retry(ctx context.Context, id string) error {
	send, err := s.sends.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if send.Status != domain.SendFailed {
		return fmt.Errorf("only failed sends can be retried (status is %s)", send.Status)
	}
	if send.AttemptCount >= s.config.MaxAttempts {
		return fmt.Errorf("send %s exhausted its %d attempts", id, s.config.MaxAttempts)
	}

	return s.sends.Retry(ctx, id)
}

func (s *DispatchService) Get(ctx context.Context, id string) (*domain.ScheduledSend, error) {
	return s.sends.GetByID(ctx, id)
}

func (s *DispatchService) List(
	ctx context.Context,
	status *domain.SendStatus,
	page, pageSize int,
) ([]domain.ScheduledSend, int64, error) {
	return s.sends.List(ctx, status, page, pageSize)
}

func (s *DispatchService) GetStats(ctx context.Context) (map[domain.SendStatus]int64, error) {
	return s.sends.GetStats(ctx)
}

func (s *DispatchService) GetReceipts(ctx context.Context) (map[string]*domain.DeliveryReceipt, error) {
	if s.receipts == nil {
		return nil, fmt.Errorf("receipt cache not configured")
	}
	return s.receipts.GetAllReceipts(ctx)
}
