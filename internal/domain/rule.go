package domain

import "time"

type TriggerKind string

const (
	TriggerScheduledTime TriggerKind = "scheduled-time"
	TriggerEvent         TriggerKind = "event"
	TriggerKeyword       TriggerKind = "keyword"
)

// Well-known event names observed from the platform.
const (
	EventEnrollment     = "enrollment"
	EventPaymentOverdue = "payment-overdue"
)

// AutomationRule maps a trigger to a message template and an audience.
// Only active rules are evaluated. Version is bumped on every write and
// checked on update so an operator edit cannot silently overwrite a
// concurrent change (and vice versa).
type AutomationRule struct {
	ID          string         `db:"id" json:"id"`
	Name        string         `db:"name" json:"name"`
	Trigger     TriggerKind    `db:"trigger_kind" json:"trigger"`
	Schedule    string         `db:"schedule_spec" json:"schedule,omitempty"` // cron, scheduled-time rules only
	EventName   string         `db:"event_name" json:"eventName,omitempty"`
	Keyword     string         `db:"keyword" json:"keyword,omitempty"`
	Template    string         `db:"template" json:"template"`
	Audience    FilterCriteria `db:"audience" json:"audience"`
	Active      bool           `db:"active" json:"active"`
	Version     int64          `db:"version" json:"version"`
	CreatedBy   string         `db:"created_by" json:"createdBy"`
	LastFiredAt *time.Time     `db:"last_fired_at" json:"lastFiredAt,omitempty"`
	CreatedAt   time.Time      `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time      `db:"updated_at" json:"updatedAt"`
}

// KeywordRule answers inbound messages that contain its keyword.
// Matching is case-sensitive substring containment; the first matching
// active rule in creation order wins.
type KeywordRule struct {
	ID        string    `db:"id" json:"id"`
	Keyword   string    `db:"keyword" json:"keyword"`
	Response  string    `db:"response" json:"response"`
	Active    bool      `db:"active" json:"active"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// Event is a domain occurrence observed from the platform (an enrollment,
// an invoice going overdue, ...) that event-triggered rules react to.
type Event struct {
	Name       string    `json:"name"`
	ObservedAt time.Time `json:"observedAt"`
}
