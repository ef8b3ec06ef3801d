package automation

import (
	"context"
	"testing"
	"time"

	"github.com/edupulse/campus-messaging/internal/domain"
)

type fakeRuleSource struct {
	rules []domain.AutomationRule

	markFiredCalls []string
}

func (f *fakeRuleSource) ListActive(ctx context.Context) ([]domain.AutomationRule, error) {
	active := make([]domain.AutomationRule, 0, len(f.rules))
	for _, r := range f.rules {
		if r.Active {
			active = append(active, r)
		}
	}
	return active, nil
}

// MarkFired mimics the store-level claim: it succeeds only when the
// occurrence is newer than the recorded last firing.
func (f *fakeRuleSource) MarkFired(ctx context.Context, id string, occurrence time.Time) (bool, error) {
	f.markFiredCalls = append(f.markFiredCalls, id)
	for i := range f.rules {
		if f.rules[i].ID != id {
			continue
		}
		if f.rules[i].LastFiredAt != nil && !f.rules[i].LastFiredAt.Before(occurrence) {
			return false, nil
		}
		fired := occurrence
		f.rules[i].LastFiredAt = &fired
		return true, nil
	}
	return false, domain.ErrNotFound
}

type fakePopulationSource struct {
	population []domain.Recipient
	calls      int
}

func (f *fakePopulationSource) GetPopulation(ctx context.Context) ([]domain.Recipient, error) {
	f.calls++
	return f.population, nil
}

type enqueuedSend struct {
	ruleID      string
	body        string
	scheduledAt time.Time
	recipients  int
}

type fakeSendEnqueuer struct {
	enqueued []enqueuedSend
}

func (f *fakeSendEnqueuer) Enqueue(
	ctx context.Context,
	ruleID *string,
	body string,
	scheduledAt time.Time,
	recipients []domain.Recipient,
) (*domain.ScheduledSend, error) {
	id := ""
	if ruleID != nil {
		id = *ruleID
	}
	f.enqueued = append(f.enqueued, enqueuedSend{
		ruleID:      id,
		body:        body,
		scheduledAt: scheduledAt,
		recipients:  len(recipients),
	})
	return &domain.ScheduledSend{ID: "send-" + id, Status: domain.SendPending}, nil
}

func clock(s string) time.Time {
	t, err := time.Parse("2006-01-02 15:04", s)
	if err != nil {
		panic(err)
	}
	return t
}

func population() []domain.Recipient {
	return []domain.Recipient{
		{ID: 1, Name: "Ana", Phone: "5511999990001", EnrolledAt: clock("2026-01-10 09:00")},
		{ID: 2, Name: "Bruno", Phone: "5511999990002", EnrolledAt: clock("2026-01-11 09:00")},
	}
}

func scheduledRule(id string, spec string, createdAt time.Time) domain.AutomationRule {
	return domain.AutomationRule{
		ID:        id,
		Name:      "regra " + id,
		Trigger:   domain.TriggerScheduledTime,
		Schedule:  spec,
		Template:  "Olá {{name}}",
		Active:    true,
		CreatedAt: createdAt,
	}
}

func TestTick_FiresDueScheduledRuleOnce(t *testing.T) {
	rules := &fakeRuleSource{rules: []domain.AutomationRule{
		scheduledRule("r1", "0 9 * * *", clock("2026-03-01 00:00")),
	}}
	pop := &fakePopulationSource{population: population()}
	sends := &fakeSendEnqueuer{}
	ev := NewEvaluator(rules, pop, sends)

	firings, err := ev.Tick(context.Background(), clock("2026-03-01 09:05"), nil)
	if err != nil {
		t.Fatalf("Tick returned error: %v", err)
	}

	if len(firings) != 1 {
		t.Fatalf("expected 1 firing, got %d", len(firings))
	}
	if firings[0].RuleID != "r1" || firings[0].Recipients != 2 {
		t.Errorf("unexpected firing: %+v", firings[0])
	}
	if !firings[0].Occurrence.Equal(clock("2026-03-01 09:00")) {
		t.Errorf("expected occurrence 09:00, got %v", firings[0].Occurrence)
	}

	// A second tick in the same occurrence window fires nothing.
	firings, err = ev.Tick(context.Background(), clock("2026-03-01 09:30"), nil)
	if err != nil {
		t.Fatalf("second Tick returned error: %v", err)
	}
	if len(firings) != 0 {
		t.Errorf("expected no firing on repeat tick, got %d", len(firings))
	}
	if len(sends.enqueued) != 1 {
		t.Errorf("expected exactly 1 enqueued send, got %d", len(sends.enqueued))
	}
}

func TestTick_NotDueBeforeOccurrence(t *testing.T) {
	rules := &fakeRuleSource{rules: []domain.AutomationRule{
		scheduledRule("r1", "0 9 * * *", clock("2026-03-01 00:00")),
	}}
	pop := &fakePopulationSource{population: population()}
	sends := &fakeSendEnqueuer{}
	ev := NewEvaluator(rules, pop, sends)

	firings, err := ev.Tick(context.Background(), clock("2026-03-01 08:59"), nil)
	if err != nil {
		t.Fatalf("Tick returned error: %v", err)
	}
	if len(firings) != 0 {
		t.Errorf("expected no firing before the occurrence, got %d", len(firings))
	}
	if pop.calls != 0 {
		t.Errorf("population must not be loaded when nothing fires, got %d loads", pop.calls)
	}
}

func TestTick_MissedOccurrencesCollapseToOne(t *testing.T) {
	rules := &fakeRuleSource{rules: []domain.AutomationRule{
		scheduledRule("r1", "0 9 * * *", clock("2026-03-01 00:00")),
	}}
	pop := &fakePopulationSource{population: population()}
	sends := &fakeSendEnqueuer{}
	ev := NewEvaluator(rules, pop, sends)

	// The service was down for three days; only the newest occurrence fires.
	firings, err := ev.Tick(context.Background(), clock("2026-03-04 10:00"), nil)
	if err != nil {
		t.Fatalf("Tick returned error: %v", err)
	}
	if len(firings) != 1 {
		t.Fatalf("expected 1 firing for the missed window, got %d", len(firings))
	}
	if !firings[0].Occurrence.Equal(clock("2026-03-04 09:00")) {
		t.Errorf("expected newest occurrence, got %v", firings[0].Occurrence)
	}
	if len(sends.enqueued) != 1 {
		t.Errorf("expected 1 send, got %d", len(sends.enqueued))
	}
}

func TestTick_EventRulesFireOnMatchingEvents(t *testing.T) {
	rules := &fakeRuleSource{rules: []domain.AutomationRule{
		{
			ID: "r1", Name: "boas-vindas", Trigger: domain.TriggerEvent,
			EventName: domain.EventEnrollment, Template: "Bem-vindo!",
			Active: true, CreatedAt: clock("2026-03-01 00:00"),
		},
		{
			ID: "r2", Name: "cobrança", Trigger: domain.TriggerEvent,
			EventName: domain.EventPaymentOverdue, Template: "Fatura em atraso.",
			Active: true, CreatedAt: clock("2026-03-01 00:00"),
		},
	}}
	pop := &fakePopulationSource{population: population()}
	sends := &fakeSendEnqueuer{}
	ev := NewEvaluator(rules, pop, sends)

	now := clock("2026-03-02 10:00")
	events := []domain.Event{
		{Name: domain.EventEnrollment, ObservedAt: now},
		{Name: "unrelated", ObservedAt: now},
	}

	firings, err := ev.Tick(context.Background(), now, events)
	if err != nil {
		t.Fatalf("Tick returned error: %v", err)
	}

	if len(firings) != 1 {
		t.Fatalf("expected 1 firing, got %d", len(firings))
	}
	if firings[0].RuleID != "r1" {
		t.Errorf("expected enrollment rule to fire, got %s", firings[0].RuleID)
	}

	// Event sends are scheduled for dispatch immediately.
	if !sends.enqueued[0].scheduledAt.Equal(now) {
		t.Errorf("expected immediate scheduling, got %v", sends.enqueued[0].scheduledAt)
	}
}

func TestTick_InactiveRulesAreIgnored(t *testing.T) {
	rule := scheduledRule("r1", "0 9 * * *", clock("2026-03-01 00:00"))
	rule.Active = false

	rules := &fakeRuleSource{rules: []domain.AutomationRule{rule}}
	pop := &fakePopulationSource{population: population()}
	sends := &fakeSendEnqueuer{}
	ev := NewEvaluator(rules, pop, sends)

	firings, err := ev.Tick(context.Background(), clock("2026-03-01 10:00"), nil)
	if err != nil {
		t.Fatalf("Tick returned error: %v", err)
	}
	if len(firings) != 0 {
		t.Errorf("expected no firing for inactive rule, got %d", len(firings))
	}
}

func TestTick_EmptyAudienceFiresIntoNothing(t *testing.T) {
	rule := scheduledRule("r1", "0 9 * * *", clock("2026-03-01 00:00"))
	rule.Audience = domain.FilterCriteria{Classroom: "turma-inexistente"}

	rules := &fakeRuleSource{rules: []domain.AutomationRule{rule}}
	pop := &fakePopulationSource{population: population()}
	sends := &fakeSendEnqueuer{}
	ev := NewEvaluator(rules, pop, sends)

	firings, err := ev.Tick(context.Background(), clock("2026-03-01 09:05"), nil)
	if err != nil {
		t.Fatalf("Tick returned error: %v", err)
	}

	if len(firings) != 0 {
		t.Errorf("expected no firing record, got %d", len(firings))
	}
	if len(sends.enqueued) != 0 {
		t.Errorf("expected no send for an empty audience, got %d", len(sends.enqueued))
	}

	// The occurrence is still claimed so the rule does not refire later.
	if len(rules.markFiredCalls) != 1 {
		t.Errorf("expected the occurrence to be claimed, got %v", rules.markFiredCalls)
	}
}

func TestEventQueue_DrainEmptiesTheQueue(t *testing.T) {
	q := NewEventQueue()

	q.Push(domain.Event{Name: domain.EventEnrollment})
	q.Push(domain.Event{Name: domain.EventPaymentOverdue})

	if q.Len() != 2 {
		t.Fatalf("expected 2 buffered events, got %d", q.Len())
	}

	drained := q.Drain()
	if len(drained) != 2 {
		t.Fatalf("expected 2 drained events, got %d", len(drained))
	}
	if q.Len() != 0 {
		t.Errorf("expected empty queue after drain, got %d", q.Len())
	}
	if got := q.Drain(); len(got) != 0 {
		t.Errorf("expected second drain to be empty, got %d", len(got))
	}
}
