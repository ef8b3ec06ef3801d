package domain

import (
	"strings"
	"time"
)

type SendStatus string

const (
	SendPending   SendStatus = "pending"
	SendSent      SendStatus = "sent"
	SendPartial   SendStatus = "partial"
	SendFailed    SendStatus = "failed"
	SendCancelled SendStatus = "cancelled"
)

// Terminal reports whether the status permits no further transitions.
// A failed send is only terminal once its attempts are exhausted; that
// bound is enforced where the retry happens, not here.
func (s SendStatus) Terminal() bool {
	return s == SendSent || s == SendPartial || s == SendCancelled
}

// ScheduledSend is one queued dispatch of a message body to a recipient
// snapshot. The snapshot is resolved when the send is created and never
// re-resolved at dispatch time.
type ScheduledSend struct {
	ID           string          `db:"id" json:"id"`
	RuleID       *string         `db:"rule_id" json:"ruleId,omitempty"`
	Body         string          `db:"body" json:"body"`
	ScheduledAt  time.Time       `db:"scheduled_at" json:"scheduledAt"`
	Status       SendStatus      `db:"status" json:"status"`
	AttemptCount int             `db:"attempt_count" json:"attemptCount"`
	LastError    *string         `db:"last_error" json:"lastError,omitempty"`
	Version      int64           `db:"version" json:"version"`
	CreatedAt    time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time       `db:"updated_at" json:"updatedAt"`
	Recipients   []SendRecipient `db:"-" json:"recipients,omitempty"`
}

type RecipientOutcome string

const (
	OutcomePending   RecipientOutcome = "pending"
	OutcomeSending   RecipientOutcome = "sending"
	OutcomeDelivered RecipientOutcome = "delivered"
	OutcomeFailed    RecipientOutcome = "failed"
	OutcomeSkipped   RecipientOutcome = "skipped"
)

// SendRecipient is one recipient within a scheduled send's snapshot,
// carrying its individual delivery outcome.
type SendRecipient struct {
	ID          string           `db:"id" json:"id"`
	SendID      string           `db:"send_id" json:"sendId"`
	RecipientID int64            `db:"recipient_id" json:"recipientId"`
	Name        string           `db:"name" json:"name"`
	Phone       string           `db:"phone" json:"phone"`
	Outcome     RecipientOutcome `db:"outcome" json:"outcome"`
	MessageID   *string          `db:"message_id" json:"messageId,omitempty"`
	LastError   *string          `db:"last_error" json:"lastError,omitempty"`
	AttemptedAt *time.Time       `db:"attempted_at" json:"attemptedAt,omitempty"`
}

// RenderTemplate substitutes recipient placeholders into a message body.
// Supported placeholders: {{name}} and {{phone}}.
func RenderTemplate(body string, r SendRecipient) string {
	body = strings.ReplaceAll(body, "{{name}}", r.Name)
	body = strings.ReplaceAll(body, "{{phone}}", r.Phone)
	return body
}

// DeliveryReceipt is the cached record of one successful per-recipient
// delivery, kept in the cache layer with a TTL.
type DeliveryReceipt struct {
	MessageID   string    `json:"messageId"`
	DeliveredAt time.Time `json:"deliveredAt"`
}
