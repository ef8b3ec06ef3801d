// Package automation decides which rules fire for a time tick or an
// observed domain event.
package automation

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/edupulse/campus-messaging/internal/audience"
	"github.com/edupulse/campus-messaging/internal/domain"
	"github.com/edupulse/campus-messaging/pkg/logger"
)

type ruleSource interface {
	ListActive(ctx context.Context) ([]domain.AutomationRule, error)
	MarkFired(ctx context.Context, id string, occurrence time.Time) (bool, error)
}

type populationSource interface {
	GetPopulation(ctx context.Context) ([]domain.Recipient, error)
}

type sendEnqueuer interface {
	Enqueue(ctx context.Context, ruleID *string, body string, scheduledAt time.Time, recipients []domain.Recipient) (*domain.ScheduledSend, error)
}

// Evaluator walks the active rules on every tick and fires the ones whose
// trigger matches. Occurrence tracking lives in the rule store (last_fired_at
// claim), so a rule fires at most once per occurrence even across repeated
// ticks or multiple evaluator instances.
type Evaluator struct {
	rules      ruleSource
	population populationSource
	sends      sendEnqueuer
}

func NewEvaluator(rules ruleSource, population populationSource, sends sendEnqueuer) *Evaluator {
	return &Evaluator{
		rules:      rules,
		population: population,
		sends:      sends,
	}
}

// Firing reports one rule that fired during a tick.
type Firing struct {
	RuleID     string    `json:"ruleId"`
	SendID     string    `json:"sendId"`
	Occurrence time.Time `json:"occurrence"`
	Recipients int       `json:"recipients"`
}

// Tick evaluates every active rule against the current time and the events
// observed since the previous tick. Keyword-triggered rules are not handled
// here; the responder consumes the inbound feed directly.
func (e *Evaluator) Tick(ctx context.Context, now time.Time, events []domain.Event) ([]Firing, error) {
	rules, err := e.rules.ListActive(ctx)
	if err != nil {
		return nil, err
	}

	if len(rules) == 0 {
		return nil, nil
	}

	var population []domain.Recipient
	populationLoaded := false

	var firings []Firing

	for i := range rules {
		rule := &rules[i]

		switch rule.Trigger {
		case domain.TriggerScheduledTime:
			occurrence, due := dueOccurrence(rule, now)
			if !due {
				continue
			}

			claimed, err := e.rules.MarkFired(ctx, rule.ID, occurrence)
			if err != nil {
				logger.Errorf("Failed to claim occurrence for rule %s: %v", rule.ID, err)
				continue
			}
			if !claimed {
				continue
			}

			if !populationLoaded {
				if population, err = e.population.GetPopulation(ctx); err != nil {
					return firings, err
				}
				populationLoaded = true
			}

			firing, err := e.fire(ctx, rule, occurrence, population, now)
			if err != nil {
				logger.Errorf("Failed to fire rule %s: %v", rule.ID, err)
				continue
			}
			if firing != nil {
				firings = append(firings, *firing)
			}

		case domain.TriggerEvent:
			for _, event := range events {
				if event.Name != rule.EventName {
					continue
				}

				if !populationLoaded {
					if population, err = e.population.GetPopulation(ctx); err != nil {
						return firings, err
					}
					populationLoaded = true
				}

				// Event sends dispatch immediately.
				firing, err := e.fire(ctx, rule, now, population, now)
				if err != nil {
					logger.Errorf("Failed to fire rule %s for event %s: %v", rule.ID, event.Name, err)
					continue
				}
				if firing != nil {
					firings = append(firings, *firing)
				}

				if _, err := e.rules.MarkFired(ctx, rule.ID, now); err != nil {
					logger.Warnf("Failed to record firing of rule %s: %v", rule.ID, err)
				}
			}
		}
	}

	return firings, nil
}

// fire resolves the rule's audience from the population snapshot and
// enqueues one send for it. Rules whose audience is currently empty fire
// into nothing; that is not an error.
func (e *Evaluator) fire(
	ctx context.Context,
	rule *domain.AutomationRule,
	scheduledAt time.Time,
	population []domain.Recipient,
	now time.Time,
) (*Firing, error) {
	target := audience.Compute(population, rule.Audience, now)
	if len(target) == 0 {
		logger.Debugf("Rule %s fired with an empty audience", rule.ID)
		return nil, nil
	}

	send, err := e.sends.Enqueue(ctx, &rule.ID, rule.Template, scheduledAt, target)
	if err != nil {
		return nil, err
	}

	logger.Infof("Rule %s fired: send %s queued for %d recipients", rule.ID, send.ID, len(target))

	return &Firing{
		RuleID:     rule.ID,
		SendID:     send.ID,
		Occurrence: scheduledAt,
		Recipients: len(target),
	}, nil
}

// dueOccurrence returns the most recent schedule occurrence that is due and
// not yet claimed. The walk starts from last_fired_at (or the rule's
// creation) and keeps the last occurrence at or before now, so a rule that
// missed several occurrences while the service was down fires once, not
// once per missed slot.
func dueOccurrence(rule *domain.AutomationRule, now time.Time) (time.Time, bool) {
	schedule, err := cron.ParseStandard(rule.Schedule)
	if err != nil {
		logger.Errorf("Rule %s has an unparseable schedule %q: %v", rule.ID, rule.Schedule, err)
		return time.Time{}, false
	}

	from := rule.CreatedAt
	if rule.LastFiredAt != nil {
		from = *rule.LastFiredAt
	}

	var due time.Time
	found := false
	for t := schedule.Next(from); !t.IsZero() && !t.After(now); t = schedule.Next(t) {
		due = t
		found = true
	}

	return due, found
}
