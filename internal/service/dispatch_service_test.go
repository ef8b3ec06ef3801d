package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/edupulse/campus-messaging/environments"
	"github.com/edupulse/campus-messaging/internal/domain"
	"github.com/edupulse/campus-messaging/pkg/gateway"
)

type fakeSendRepository struct {
	mu    sync.Mutex
	sends map[string]*domain.ScheduledSend

	// deniedClaims simulates another dispatcher winning the per-recipient
	// claim race for the listed snapshot row ids.
	deniedClaims map[string]bool

	cancelCalls int
	retryCalls  int
}

func newFakeSendRepository() *fakeSendRepository {
	return &fakeSendRepository{
		sends:        make(map[string]*domain.ScheduledSend),
		deniedClaims: make(map[string]bool),
	}
}

// copySend detaches the recipient slice so callers never share backing
// arrays with the stored record.
func copySend(s *domain.ScheduledSend) domain.ScheduledSend {
	copied := *s
	copied.Recipients = make([]domain.SendRecipient, len(s.Recipients))
	copy(copied.Recipients, s.Recipients)
	return copied
}

func (f *fakeSendRepository) Create(ctx context.Context, send *domain.ScheduledSend) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := copySend(send)
	f.sends[send.ID] = &copied
	return nil
}

func (f *fakeSendRepository) GetDue(ctx context.Context, now time.Time, limit int) ([]domain.ScheduledSend, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.ScheduledSend, 0)
	for _, s := range f.sends {
		if s.Status == domain.SendPending && !s.ScheduledAt.After(now) {
			out = append(out, copySend(s))
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakeSendRepository) GetByID(ctx context.Context, id string) (*domain.ScheduledSend, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sends[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := copySend(s)
	return &copied, nil
}

func (f *fakeSendRepository) List(ctx context.Context, status *domain.SendStatus, page, pageSize int) ([]domain.ScheduledSend, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.ScheduledSend, 0)
	for _, s := range f.sends {
		if status == nil || s.Status == *status {
			out = append(out, copySend(s))
		}
	}
	return out, int64(len(out)), nil
}

func (f *fakeSendRepository) findRecipient(rowID string) *domain.SendRecipient {
	for _, s := range f.sends {
		for i := range s.Recipients {
			if s.Recipients[i].ID == rowID {
				return &s.Recipients[i]
			}
		}
	}
	return nil
}

func (f *fakeSendRepository) ClaimRecipient(ctx context.Context, recipientRowID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deniedClaims[recipientRowID] {
		return false, nil
	}
	rec := f.findRecipient(recipientRowID)
	if rec == nil {
		return false, domain.ErrNotFound
	}
	if rec.Outcome != domain.OutcomePending {
		return false, nil
	}
	rec.Outcome = domain.OutcomeSending
	return true, nil
}

func (f *fakeSendRepository) FinishRecipient(ctx context.Context, recipientRowID string, delivered bool, messageID, lastError *string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec := f.findRecipient(recipientRowID)
	if rec == nil {
		return domain.ErrNotFound
	}
	if delivered {
		rec.Outcome = domain.OutcomeDelivered
	} else {
		rec.Outcome = domain.OutcomeFailed
	}
	rec.MessageID = messageID
	rec.LastError = lastError
	return nil
}

func (f *fakeSendRepository) UpdateStatus(ctx context.Context, id string, version int64, status domain.SendStatus, attemptCount int, lastError *string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sends[id]
	if !ok {
		return domain.ErrNotFound
	}
	if s.Version != version {
		return domain.ErrVersionConflict
	}
	s.Status = status
	s.AttemptCount = attemptCount
	s.LastError = lastError
	s.Version++
	return nil
}

func (f *fakeSendRepository) Cancel(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelCalls++
	s, ok := f.sends[id]
	if !ok {
		return domain.ErrNotFound
	}
	if s.Status != domain.SendPending {
		return fmt.Errorf("only pending sends can be cancelled")
	}
	s.Status = domain.SendCancelled
	for i := range s.Recipients {
		if s.Recipients[i].Outcome == domain.OutcomePending {
			s.Recipients[i].Outcome = domain.OutcomeSkipped
		}
	}
	return nil
}

func (f *fakeSendRepository) Retry(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.retryCalls++
	s, ok := f.sends[id]
	if !ok {
		return domain.ErrNotFound
	}
	if s.Status != domain.SendFailed {
		return fmt.Errorf("no failed send found with id %s", id)
	}
	s.Status = domain.SendPending
	s.LastError = nil
	s.Version++
	for i := range s.Recipients {
		if s.Recipients[i].Outcome == domain.OutcomeFailed {
			s.Recipients[i].Outcome = domain.OutcomePending
		}
	}
	return nil
}

func (f *fakeSendRepository) GetStats(ctx context.Context) (map[domain.SendStatus]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stats := make(map[domain.SendStatus]int64)
	for _, s := range f.sends {
		stats[s.Status]++
	}
	return stats, nil
}

// fakeGateway fails the phones listed in failPhones and tracks the maximum
// number of concurrent Send calls.
type fakeGateway struct {
	mu            sync.Mutex
	failPhones    map[string]bool
	calls         int
	inFlight      int
	maxInFlight   int
	bodiesByPhone map[string]string
}

func newFakeGateway(failPhones ...string) *fakeGateway {
	fails := make(map[string]bool, len(failPhones))
	for _, p := range failPhones {
		fails[p] = true
	}
	return &fakeGateway{failPhones: fails, bodiesByPhone: make(map[string]string)}
}

func (f *fakeGateway) Send(ctx context.Context, phone, body string) (*gateway.SendResponse, error) {
	f.mu.Lock()
	f.calls++
	f.inFlight++
	if f.inFlight > f.maxInFlight {
		f.maxInFlight = f.inFlight
	}
	f.bodiesByPhone[phone] = body
	f.mu.Unlock()

	time.Sleep(time.Millisecond)

	f.mu.Lock()
	f.inFlight--
	fail := f.failPhones[phone]
	f.mu.Unlock()

	if fail {
		return nil, &domain.DeliveryError{Kind: "transport", Err: errors.New("gateway timeout")}
	}
	return &gateway.SendResponse{MessageID: "msg-" + phone}, nil
}

type fakeReceiptCache struct {
	mu       sync.Mutex
	receipts map[string]*domain.DeliveryReceipt
}

func newFakeReceiptCache() *fakeReceiptCache {
	return &fakeReceiptCache{receipts: make(map[string]*domain.DeliveryReceipt)}
}

func (f *fakeReceiptCache) CacheReceipt(ctx context.Context, sendRecipientID, messageID string, deliveredAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.receipts[sendRecipientID] = &domain.DeliveryReceipt{MessageID: messageID, DeliveredAt: deliveredAt}
	return nil
}

func (f *fakeReceiptCache) GetAllReceipts(ctx context.Context) (map[string]*domain.DeliveryReceipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.receipts, nil
}

func testDispatchConfig() environments.DispatchConfig {
	return environments.DispatchConfig{
		BatchSize:       50,
		SendConcurrency: 5,
		MaxAttempts:     3,
		MaxBodyLength:   1000,
	}
}

func testRecipients(n int) []domain.Recipient {
	out := make([]domain.Recipient, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, domain.Recipient{
			ID:    int64(i),
			Name:  fmt.Sprintf("Recipient %d", i),
			Phone: fmt.Sprintf("551199999%04d", i),
		})
	}
	return out
}

func TestEnqueue_SnapshotsValidPhonesOnly(t *testing.T) {
	repo := newFakeSendRepository()
	svc := NewDispatchService(repo, newFakeGateway(), nil, testDispatchConfig())

	recipients := append(testRecipients(2), domain.Recipient{ID: 3, Name: "Sem telefone", Phone: ""})

	send, err := svc.Enqueue(context.Background(), nil, "Olá {{name}}", time.Now(), recipients)
	if err != nil {
		t.Fatalf("Enqueue returned error: %v", err)
	}

	if len(send.Recipients) != 2 {
		t.Errorf("expected 2 snapshot rows, got %d", len(send.Recipients))
	}
	if send.Status != domain.SendPending {
		t.Errorf("expected pending status, got %s", send.Status)
	}
}

func TestEnqueue_RejectsBadBodies(t *testing.T) {
	repo := newFakeSendRepository()
	svc := NewDispatchService(repo, newFakeGateway(), nil, testDispatchConfig())

	if _, err := svc.Enqueue(context.Background(), nil, "", time.Now(), testRecipients(1)); err == nil {
		t.Errorf("expected error for empty body")
	}

	long := strings.Repeat("a", 1001)
	if _, err := svc.Enqueue(context.Background(), nil, long, time.Now(), testRecipients(1)); err == nil {
		t.Errorf("expected error for oversized body")
	}

	if _, err := svc.Enqueue(context.Background(), nil, "ok", time.Now(), nil); err == nil {
		t.Errorf("expected error for empty audience")
	}
}

func TestDispatchDue_AllDeliveredBecomesSent(t *testing.T) {
	repo := newFakeSendRepository()
	gw := newFakeGateway()
	cache := newFakeReceiptCache()
	svc := NewDispatchService(repo, gw, cache, testDispatchConfig())

	send, err := svc.Enqueue(context.Background(), nil, "Olá {{name}}", time.Now().Add(-time.Minute), testRecipients(3))
	if err != nil {
		t.Fatalf("Enqueue returned error: %v", err)
	}

	outcomes, err := svc.DispatchDue(context.Background(), time.Now())
	if err != nil {
		t.Fatalf("DispatchDue returned error: %v", err)
	}
	if len(outcomes) != 1 {
		t.Fatalf("expected 1 outcome, got %d", len(outcomes))
	}

	out := outcomes[0]
	if out.Status != domain.SendSent || out.Delivered != 3 || out.Failed != 0 {
		t.Errorf("unexpected outcome: %+v", out)
	}

	stored, _ := repo.GetByID(context.Background(), send.ID)
	if stored.Status != domain.SendSent {
		t.Errorf("expected stored status sent, got %s", stored.Status)
	}
	if stored.AttemptCount != 1 {
		t.Errorf("expected attempt count 1, got %d", stored.AttemptCount)
	}

	// Bodies are rendered per recipient before hitting the gateway.
	if body := gw.bodiesByPhone["5511999990001"]; body != "Olá Recipient 1" {
		t.Errorf("expected rendered body, got %q", body)
	}

	receipts, _ := cache.GetAllReceipts(context.Background())
	if len(receipts) != 3 {
		t.Errorf("expected 3 cached receipts, got %d", len(receipts))
	}
}

func TestDispatchDue_PartialFailureIsVisible(t *testing.T) {
	repo := newFakeSendRepository()
	// Recipient 2 fails, 1 and 3 deliver.
	gw := newFakeGateway("5511999990002")
	svc := NewDispatchService(repo, gw, nil, testDispatchConfig())

	send, err := svc.Enqueue(context.Background(), nil, "Aviso", time.Now().Add(-time.Minute), testRecipients(3))
	if err != nil {
		t.Fatalf("Enqueue returned error: %v", err)
	}

	outcomes, err := svc.DispatchDue(context.Background(), time.Now())
	if err != nil {
		t.Fatalf("DispatchDue returned error: %v", err)
	}

	out := outcomes[0]
	if out.Status != domain.SendPartial {
		t.Fatalf("expected partial status, got %s", out.Status)
	}
	if out.Delivered != 2 || out.Failed != 1 {
		t.Errorf("expected 2 delivered 1 failed, got %+v", out)
	}

	stored, _ := repo.GetByID(context.Background(), send.ID)
	if stored.Status != domain.SendPartial {
		t.Errorf("expected stored status partial, got %s", stored.Status)
	}

	// Per-recipient outcomes expose exactly which recipient failed.
	var failedPhones []string
	for _, rec := range stored.Recipients {
		if rec.Outcome == domain.OutcomeFailed {
			failedPhones = append(failedPhones, rec.Phone)
		}
	}
	if len(failedPhones) != 1 || failedPhones[0] != "5511999990002" {
		t.Errorf("expected recipient 2 marked failed, got %v", failedPhones)
	}
}

func TestDispatchDue_FullFailureRetriesUntilExhausted(t *testing.T) {
	repo := newFakeSendRepository()
	gw := newFakeGateway("5511999990001", "5511999990002")
	svc := NewDispatchService(repo, gw, nil, testDispatchConfig())

	send, err := svc.Enqueue(context.Background(), nil, "Aviso", time.Now().Add(-time.Minute), testRecipients(2))
	if err != nil {
		t.Fatalf("Enqueue returned error: %v", err)
	}

	// Each full failure lands in failed and is requeued on the next tick,
	// until the attempt budget is gone.
	for attempt := 1; attempt <= 3; attempt++ {
		outcomes, err := svc.DispatchDue(context.Background(), time.Now())
		if err != nil {
			t.Fatalf("attempt %d: DispatchDue returned error: %v", attempt, err)
		}
		if len(outcomes) != 1 {
			t.Fatalf("attempt %d: expected 1 outcome, got %d", attempt, len(outcomes))
		}
		if outcomes[0].Status != domain.SendFailed {
			t.Fatalf("attempt %d: expected failed, got %s", attempt, outcomes[0].Status)
		}

		stored, _ := repo.GetByID(context.Background(), send.ID)
		if stored.Status != domain.SendFailed || stored.AttemptCount != attempt {
			t.Errorf("attempt %d: expected failed with attempt count %d, got %s with %d",
				attempt, attempt, stored.Status, stored.AttemptCount)
		}
	}

	if repo.retryCalls != 2 {
		t.Errorf("expected two automatic requeues, got %d", repo.retryCalls)
	}

	// The budget is exhausted: nothing is requeued or dispatched any more.
	outcomes, err := svc.DispatchDue(context.Background(), time.Now())
	if err != nil {
		t.Fatalf("after exhaustion: DispatchDue returned error: %v", err)
	}
	if len(outcomes) != 0 {
		t.Errorf("expected no outcomes after exhaustion, got %d", len(outcomes))
	}

	stored, _ := repo.GetByID(context.Background(), send.ID)
	if stored.Status != domain.SendFailed || stored.AttemptCount != 3 {
		t.Errorf("expected failed after 3 attempts, got %s after %d", stored.Status, stored.AttemptCount)
	}
	if stored.LastError == nil || *stored.LastError == "" {
		t.Errorf("expected last error recorded")
	}
}

func TestRetry_RequeuesFailureProducedByDispatch(t *testing.T) {
	repo := newFakeSendRepository()
	gw := newFakeGateway("5511999990001")
	svc := NewDispatchService(repo, gw, nil, testDispatchConfig())

	send, err := svc.Enqueue(context.Background(), nil, "Aviso", time.Now().Add(-time.Minute), testRecipients(1))
	if err != nil {
		t.Fatalf("Enqueue returned error: %v", err)
	}

	outcomes, err := svc.DispatchDue(context.Background(), time.Now())
	if err != nil {
		t.Fatalf("DispatchDue returned error: %v", err)
	}
	if outcomes[0].Status != domain.SendFailed {
		t.Fatalf("expected failed after full failure, got %s", outcomes[0].Status)
	}

	// The gateway recovers and the operator retries before the next tick.
	gw.mu.Lock()
	delete(gw.failPhones, "5511999990001")
	gw.mu.Unlock()

	if err := svc.Retry(context.Background(), send.ID); err != nil {
		t.Fatalf("Retry returned error: %v", err)
	}

	stored, _ := repo.GetByID(context.Background(), send.ID)
	if stored.Status != domain.SendPending {
		t.Fatalf("expected pending after retry, got %s", stored.Status)
	}
	if stored.Recipients[0].Outcome != domain.OutcomePending {
		t.Fatalf("expected failed recipient reset, got %s", stored.Recipients[0].Outcome)
	}

	outcomes, err = svc.DispatchDue(context.Background(), time.Now())
	if err != nil {
		t.Fatalf("DispatchDue after retry returned error: %v", err)
	}
	if len(outcomes) != 1 || outcomes[0].Status != domain.SendSent {
		t.Fatalf("expected the retried send to deliver, got %+v", outcomes)
	}

	stored, _ = repo.GetByID(context.Background(), send.ID)
	if stored.Status != domain.SendSent || stored.AttemptCount != 2 {
		t.Errorf("expected sent on attempt 2, got %s after %d", stored.Status, stored.AttemptCount)
	}
}

func TestDispatchDue_BoundsGatewayConcurrency(t *testing.T) {
	repo := newFakeSendRepository()
	gw := newFakeGateway()
	cfg := testDispatchConfig()
	cfg.SendConcurrency = 2
	svc := NewDispatchService(repo, gw, nil, cfg)

	if _, err := svc.Enqueue(context.Background(), nil, "Aviso", time.Now().Add(-time.Minute), testRecipients(20)); err != nil {
		t.Fatalf("Enqueue returned error: %v", err)
	}

	if _, err := svc.DispatchDue(context.Background(), time.Now()); err != nil {
		t.Fatalf("DispatchDue returned error: %v", err)
	}

	if gw.maxInFlight > 2 {
		t.Errorf("expected at most 2 concurrent sends, observed %d", gw.maxInFlight)
	}
	if gw.calls != 20 {
		t.Errorf("expected 20 gateway calls, got %d", gw.calls)
	}
}

func TestCancel_SkipsUnattemptedRecipients(t *testing.T) {
	repo := newFakeSendRepository()
	svc := NewDispatchService(repo, newFakeGateway(), nil, testDispatchConfig())

	send, err := svc.Enqueue(context.Background(), nil, "Aviso", time.Now().Add(time.Hour), testRecipients(2))
	if err != nil {
		t.Fatalf("Enqueue returned error: %v", err)
	}

	if err := svc.Cancel(context.Background(), send.ID); err != nil {
		t.Fatalf("Cancel returned error: %v", err)
	}

	stored, _ := repo.GetByID(context.Background(), send.ID)
	if stored.Status != domain.SendCancelled {
		t.Errorf("expected cancelled, got %s", stored.Status)
	}
	for _, rec := range stored.Recipients {
		if rec.Outcome != domain.OutcomeSkipped {
			t.Errorf("expected skipped outcome, got %s", rec.Outcome)
		}
	}

	// A cancelled send is no longer due: nothing to dispatch.
	outcomes, err := svc.DispatchDue(context.Background(), time.Now().Add(2*time.Hour))
	if err != nil {
		t.Fatalf("DispatchDue returned error: %v", err)
	}
	if len(outcomes) != 0 {
		t.Errorf("expected no outcomes after cancel, got %d", len(outcomes))
	}

	// Cancelling again is rejected.
	if err := svc.Cancel(context.Background(), send.ID); err == nil {
		t.Errorf("expected error cancelling a cancelled send")
	}
}

func TestDispatchOne_SkipsRecipientsClaimedElsewhere(t *testing.T) {
	repo := newFakeSendRepository()
	gw := newFakeGateway()
	svc := NewDispatchService(repo, gw, nil, testDispatchConfig())

	send, err := svc.Enqueue(context.Background(), nil, "Aviso", time.Now().Add(-time.Minute), testRecipients(2))
	if err != nil {
		t.Fatalf("Enqueue returned error: %v", err)
	}

	// Another dispatcher wins the claim race for recipient 1.
	repo.mu.Lock()
	repo.deniedClaims[send.Recipients[0].ID] = true
	repo.mu.Unlock()

	outcomes, err := svc.DispatchDue(context.Background(), time.Now())
	if err != nil {
		t.Fatalf("DispatchDue returned error: %v", err)
	}

	out := outcomes[0]
	if out.Delivered != 1 || out.Skipped != 1 {
		t.Errorf("expected 1 delivered 1 skipped, got %+v", out)
	}
	if gw.calls != 1 {
		t.Errorf("expected a single gateway call, got %d", gw.calls)
	}
}

func TestRetry_OnlyFailedSendsWithinAttemptBudget(t *testing.T) {
	repo := newFakeSendRepository()
	svc := NewDispatchService(repo, newFakeGateway(), nil, testDispatchConfig())

	send, err := svc.Enqueue(context.Background(), nil, "Aviso", time.Now().Add(time.Hour), testRecipients(1))
	if err != nil {
		t.Fatalf("Enqueue returned error: %v", err)
	}

	// Pending sends cannot be retried.
	if err := svc.Retry(context.Background(), send.ID); err == nil {
		t.Errorf("expected error retrying a pending send")
	}

	// A failed send with budget left goes back to pending.
	repo.mu.Lock()
	repo.sends[send.ID].Status = domain.SendFailed
	repo.sends[send.ID].AttemptCount = 2
	repo.sends[send.ID].Recipients[0].Outcome = domain.OutcomeFailed
	repo.mu.Unlock()

	if err := svc.Retry(context.Background(), send.ID); err != nil {
		t.Fatalf("Retry returned error: %v", err)
	}
	stored, _ := repo.GetByID(context.Background(), send.ID)
	if stored.Status != domain.SendPending {
		t.Errorf("expected pending after retry, got %s", stored.Status)
	}
	if stored.Recipients[0].Outcome != domain.OutcomePending {
		t.Errorf("expected failed recipient reset, got %s", stored.Recipients[0].Outcome)
	}

	// An exhausted send stays failed.
	repo.mu.Lock()
	repo.sends[send.ID].Status = domain.SendFailed
	repo.sends[send.ID].AttemptCount = 3
	repo.mu.Unlock()

	if err := svc.Retry(context.Background(), send.ID); err == nil {
		t.Errorf("expected error retrying an exhausted send")
	}

	if err := svc.Retry(context.Background(), "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown send, got %v", err)
	}
}

func TestGetReceipts_WithoutCacheFails(t *testing.T) {
	svc := NewDispatchService(newFakeSendRepository(), newFakeGateway(), nil, testDispatchConfig())

	if _, err := svc.GetReceipts(context.Background()); err == nil {
		t.Errorf("expected error when the cache is not configured")
	}
}
