package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/edupulse/campus-messaging/internal/domain"
)

// Small consumer-side interfaces so the service is testable without a real
// database.
type ruleRepository interface {
	List(ctx context.Context) ([]domain.AutomationRule, error)
	GetByID(ctx context.Context, id string) (*domain.AutomationRule, error)
	Insert(ctx context.Context, rule *domain.AutomationRule) error
	Update(ctx context.Context, rule *domain.AutomationRule) error
	Delete(ctx context.Context, id string) error
	ToggleActive(ctx context.Context, id string) error

	ListKeywordRules(ctx context.Context) ([]domain.KeywordRule, error)
	InsertKeywordRule(ctx context.Context, rule *domain.KeywordRule) error
	UpdateKeywordRule(ctx context.Context, rule *domain.KeywordRule) error
	DeleteKeywordRule(ctx context.Context, id string) error
}

type credentialStore interface {
	Get(ctx context.Context) (string, error)
}

// AutomationService owns automation- and keyword-rule CRUD, including the
// trigger validation and the channel-credential precondition.
type AutomationService struct {
	rules       ruleRepository
	credentials credentialStore
}

func NewAutomationService(rules ruleRepository, credentials credentialStore) *AutomationService {
	return &AutomationService{
		rules:       rules,
		credentials: credentials,
	}
}

// RuleInput carries the operator-supplied fields of an automation rule.
// Version matters only on updates, where it must match the stored record.
type RuleInput struct {
	Name      string
	Trigger   domain.TriggerKind
	Schedule  string
	EventName string
	Keyword   string
	Template  string
	Audience  domain.FilterCriteria
	Active    bool
	CreatedBy string
	Version   int64
}

func (s *AutomationService) List(ctx context.Context) ([]domain.AutomationRule, error) {
	return s.rules.List(ctx)
}

func (s *AutomationService) Get(ctx context.Context, id string) (*domain.AutomationRule, error) {
	return s.rules.GetByID(ctx, id)
}

// Save validates the rule and persists it. Event- and keyword-triggered
// rules depend on the external channel, so their save fails fast with
// domain.ErrMissingChannelCredential when no credential is configured —
// nothing is written in that case.
func (s *AutomationService) Save(ctx context.Context, input RuleInput, existingID *string) (*domain.AutomationRule, error) {
	if err := validateRuleInput(input); err != nil {
		return nil, err
	}

	if input.Trigger == domain.TriggerEvent || input.Trigger == domain.TriggerKeyword {
		credential, err := s.credentials.Get(ctx)
		if err != nil {
			return nil, err
		}
		if credential == "" {
			return nil, domain.ErrMissingChannelCredential
		}
	}

	if existingID == nil {
		rule := &domain.AutomationRule{
			ID:        uuid.NewString(),
			Name:      input.Name,
			Trigger:   input.Trigger,
			Schedule:  input.Schedule,
			EventName: input.EventName,
			Keyword:   input.Keyword,
			Template:  input.Template,
			Audience:  input.Audience,
			Active:    input.Active,
			Version:   1,
			CreatedBy: input.CreatedBy,
			CreatedAt: time.Now(),
			UpdatedAt: time.Now(),
		}

		if err := s.rules.Insert(ctx, rule); err != nil {
			return nil, err
		}

		return rule, nil
	}

	rule, err := s.rules.GetByID(ctx, *existingID)
	if err != nil {
		return nil, err
	}

	rule.Name = input.Name
	rule.Trigger = input.Trigger
	rule.Schedule = input.Schedule
	rule.EventName = input.EventName
	rule.Keyword = input.Keyword
	rule.Template = input.Template
	rule.Audience = input.Audience
	rule.Active = input.Active
	rule.Version = input.Version

	if err := s.rules.Update(ctx, rule); err != nil {
		return nil, err
	}

	rule.Version++
	return rule, nil
}

func (s *AutomationService) Delete(ctx context.Context, id string) error {
	return s.rules.Delete(ctx, id)
}

// ToggleActive flips the active flag without altering any other field.
func (s *AutomationService) ToggleActive(ctx context.Context, id string) error {
	return s.rules.ToggleActive(ctx, id)
}

func validateRuleInput(input RuleInput) error {
	if input.Name == "" {
		return fmt.Errorf("rule name must not be empty")
	}
	if input.Template == "" {
		return fmt.Errorf("message template must not be empty")
	}

	switch input.Trigger {
	case domain.TriggerScheduledTime:
		if _, err := cron.ParseStandard(input.Schedule); err != nil {
			return fmt.Errorf("invalid schedule spec %q: %v", input.Schedule, err)
		}
	case domain.TriggerEvent:
		if input.EventName == "" {
			return fmt.Errorf("event rules require an event name")
		}
	case domain.TriggerKeyword:
		if input.Keyword == "" {
			return fmt.Errorf("keyword rules require a non-empty keyword")
		}
	default:
		return fmt.Errorf("unknown trigger kind %q", input.Trigger)
	}

	return nil
}

//
// Keyword rules
//

type KeywordRuleInput struct {
	Keyword  string
	Response string
	Active   bool
}

func (s *AutomationService) ListKeywordRules(ctx context.Context) ([]domain.KeywordRule, error) {
	return s.rules.ListKeywordRules(ctx)
}

func (s *AutomationService) SaveKeywordRule(
	ctx context.Context,
	input KeywordRuleInput,
	existingID *string,
) (*domain.KeywordRule, error) {
	if input.Keyword == "" {
		return nil, fmt.Errorf("keyword must not be empty")
	}
	if input.Response == "" {
		return nil, fmt.Errorf("response text must not be empty")
	}

	// Keyword rules answer through the external channel as well.
	credential, err := s.credentials.Get(ctx)
	if err != nil {
		return nil, err
	}
	if credential == "" {
		return nil, domain.ErrMissingChannelCredential
	}

	if existingID == nil {
		rule := &domain.KeywordRule{
			ID:        uuid.NewString(),
			Keyword:   input.Keyword,
			Response:  input.Response,
			Active:    input.Active,
			CreatedAt: time.Now(),
			UpdatedAt: time.Now(),
		}

		if err := s.rules.InsertKeywordRule(ctx, rule); err != nil {
			return nil, err
		}

		return rule, nil
	}

	rule := &domain.KeywordRule{
		ID:       *existingID,
		Keyword:  input.Keyword,
		Response: input.Response,
		Active:   input.Active,
	}

	if err := s.rules.UpdateKeywordRule(ctx, rule); err != nil {
		return nil, err
	}

	return rule, nil
}

func (s *AutomationService) DeleteKeywordRule(ctx context.Context, id string) error {
	return s.rules.DeleteKeywordRule(ctx, id)
}
