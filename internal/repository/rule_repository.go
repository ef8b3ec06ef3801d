package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/edupulse/campus-messaging/internal/domain"
)

// RuleRepository persists automation rules and keyword rules. Automation
// rule updates are guarded with an optimistic version check so an operator
// edit and a concurrent evaluation cannot silently overwrite each other.
type RuleRepository struct {
	db *sqlx.DB
}

func NewRuleRepository(db *sqlx.DB) *RuleRepository {
	return &RuleRepository{db: db}
}

const ruleColumns = `id, name, trigger_kind, schedule_spec, event_name, keyword,
	template, audience, active, version, created_by, last_fired_at, created_at, updated_at`

func (r *RuleRepository) List(ctx context.Context) ([]domain.AutomationRule, error) {
	query := `
		SELECT ` + ruleColumns + `
		FROM automation_rules
		ORDER BY created_at ASC, id ASC
	`

	var rules []domain.AutomationRule
	if err := r.db.SelectContext(ctx, &rules, query); err != nil {
		return nil, fmt.Errorf("failed to list automation rules: %w", err)
	}

	return rules, nil
}

func (r *RuleRepository) ListActive(ctx context.Context) ([]domain.AutomationRule, error) {
	query := `
		SELECT ` + ruleColumns + `
		FROM automation_rules
		WHERE active = TRUE
		ORDER BY created_at ASC, id ASC
	`

	var rules []domain.AutomationRule
	if err := r.db.SelectContext(ctx, &rules, query); err != nil {
		return nil, fmt.Errorf("failed to list active automation rules: %w", err)
	}

	return rules, nil
}

func (r *RuleRepository) GetByID(ctx context.Context, id string) (*domain.AutomationRule, error) {
	query := `
		SELECT ` + ruleColumns + `
		FROM automation_rules
		WHERE id = ?
	`

	var rule domain.AutomationRule
	if err := r.db.GetContext(ctx, &rule, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get automation rule: %w", err)
	}

	return &rule, nil
}

func (r *RuleRepository) Insert(ctx context.Context, rule *domain.AutomationRule) error {
	query := `
		INSERT INTO automation_rules
			(id, name, trigger_kind, schedule_spec, event_name, keyword, template,
			 audience, active, version, created_by, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 1, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
	`

	_, err := r.db.ExecContext(ctx, query,
		rule.ID, rule.Name, rule.Trigger, rule.Schedule, rule.EventName,
		rule.Keyword, rule.Template, rule.Audience, rule.Active, rule.CreatedBy,
	)
	if err != nil {
		return fmt.Errorf("failed to insert automation rule: %w", err)
	}

	return nil
}

// Update writes the rule only if the stored version still matches
// rule.Version. On a stale version it returns domain.ErrVersionConflict and
// writes nothing.
func (r *RuleRepository) Update(ctx context.Context, rule *domain.AutomationRule) error {
	query := `
		UPDATE automation_rules
		SET name = ?, trigger_kind = ?, schedule_spec = ?, event_name = ?,
		    keyword = ?, template = ?, audience = ?, active = ?,
		    version = version + 1, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND version = ?
	`

	result, err := r.db.ExecContext(ctx, query,
		rule.Name, rule.Trigger, rule.Schedule, rule.EventName,
		rule.Keyword, rule.Template, rule.Audience, rule.Active,
		rule.ID, rule.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to update automation rule: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}

	if rows == 0 {
		return domain.ErrVersionConflict
	}

	return nil
}

// Delete removes the rule immediately; there is no soft-delete here.
func (r *RuleRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM automation_rules WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete automation rule: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}

	if rows == 0 {
		return domain.ErrNotFound
	}

	return nil
}

// ToggleActive flips the active flag without touching any other field.
func (r *RuleRepository) ToggleActive(ctx context.Context, id string) error {
	query := `
		UPDATE automation_rules
		SET active = NOT active, version = version + 1, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to toggle automation rule: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}

	if rows == 0 {
		return domain.ErrNotFound
	}

	return nil
}

// MarkFired records that the rule fired for the given occurrence. The guard
// on last_fired_at makes the claim atomic: a repeated tick inside the same
// occurrence window affects zero rows and reports fired=false.
func (r *RuleRepository) MarkFired(ctx context.Context, id string, occurrence time.Time) (bool, error) {
	query := `
		UPDATE automation_rules
		SET last_fired_at = ?
		WHERE id = ? AND (last_fired_at IS NULL OR last_fired_at < ?)
	`

	result, err := r.db.ExecContext(ctx, query, occurrence, id, occurrence)
	if err != nil {
		return false, fmt.Errorf("failed to mark rule as fired: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}

	return rows > 0, nil
}

//
// Keyword rules
//

// ListKeywordRules returns keyword rules in creation order; the responder
// relies on this order for first-match-wins.
func (r *RuleRepository) ListKeywordRules(ctx context.Context) ([]domain.KeywordRule, error) {
	query := `
		SELECT id, keyword, response, active, created_at, updated_at
		FROM keyword_rules
		ORDER BY created_at ASC, id ASC
	`

	var rules []domain.KeywordRule
	if err := r.db.SelectContext(ctx, &rules, query); err != nil {
		return nil, fmt.Errorf("failed to list keyword rules: %w", err)
	}

	return rules, nil
}

func (r *RuleRepository) InsertKeywordRule(ctx context.Context, rule *domain.KeywordRule) error {
	query := `
		INSERT INTO keyword_rules (id, keyword, response, active, created_at, updated_at)
		VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
	`

	_, err := r.db.ExecContext(ctx, query, rule.ID, rule.Keyword, rule.Response, rule.Active)
	if err != nil {
		return fmt.Errorf("failed to insert keyword rule: %w", err)
	}

	return nil
}

func (r *RuleRepository) UpdateKeywordRule(ctx context.Context, rule *domain.KeywordRule) error {
	query := `
		UPDATE keyword_rules
		SET keyword = ?, response = ?, active = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`

	result, err := r.db.ExecContext(ctx, query, rule.Keyword, rule.Response, rule.Active, rule.ID)
	if err != nil {
		return fmt.Errorf("failed to update keyword rule: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}

	if rows == 0 {
		return domain.ErrNotFound
	}

	return nil
}

func (r *RuleRepository) DeleteKeywordRule(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM keyword_rules WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete keyword rule: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}

	if rows == 0 {
		return domain.ErrNotFound
	}

	return nil
}
