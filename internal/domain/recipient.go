package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Recipient is a person eligible to receive automated messages (a student).
// Records are sourced read-only from the platform store on every audience
// computation and never mutated by this service.
type Recipient struct {
	ID          int64     `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Phone       string    `db:"phone" json:"phone"` // normalized, digits only
	EnrolledAt  time.Time `db:"enrolled_at" json:"enrolledAt"`
	StaffID     *int64    `db:"staff_id" json:"staffId,omitempty"`
	ClassroomID string    `db:"classroom_id" json:"classroomId"`
	Invoices    []Invoice `db:"-" json:"invoices,omitempty"`
}

// HasValidPhone reports whether the normalized phone number is non-empty and
// digits-only. Recipients failing this check are excluded from every audience.
func (r Recipient) HasValidPhone() bool {
	if r.Phone == "" {
		return false
	}
	for _, c := range r.Phone {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

type InvoiceStatus string

const (
	InvoicePending InvoiceStatus = "pending"
	InvoicePaid    InvoiceStatus = "paid"
	InvoiceOverdue InvoiceStatus = "overdue"
)

type Invoice struct {
	ID          int64         `db:"id" json:"id"`
	RecipientID int64         `db:"recipient_id" json:"recipientId"`
	Status      InvoiceStatus `db:"status" json:"status"`
	DueDate     time.Time     `db:"due_date" json:"dueDate"`
}

// PaymentStatus is derived from a recipient's invoice set; it is never stored.
type PaymentStatus string

const (
	PaymentPaid    PaymentStatus = "paid"
	PaymentPending PaymentStatus = "pending"
	PaymentOverdue PaymentStatus = "overdue"
)

// PaymentStatusAt derives the payment status from an invoice set at the given
// evaluation time: overdue if any invoice is marked overdue or is pending past
// its due date, pending if any invoice is still pending, paid otherwise.
// Pure function of (invoices, now); recomputed on every audience pull.
func PaymentStatusAt(invoices []Invoice, now time.Time) PaymentStatus {
	hasPending := false
	for _, inv := range invoices {
		switch inv.Status {
		case InvoiceOverdue:
			return PaymentOverdue
		case InvoicePending:
			if inv.DueDate.Before(now) {
				return PaymentOverdue
			}
			hasPending = true
		}
	}
	if hasPending {
		return PaymentPending
	}
	return PaymentPaid
}

// FilterCriteria selects an audience from the recipient population.
// Categories compose with logical AND; within StaffIDs the semantics are OR.
// Zero values ("", "all", nil, empty slice) impose no restriction.
type FilterCriteria struct {
	Classroom     string     `json:"classroom,omitempty"`
	PaymentStatus string     `json:"paymentStatus,omitempty"`
	EnrolledFrom  *time.Time `json:"enrolledFrom,omitempty"`
	EnrolledTo    *time.Time `json:"enrolledTo,omitempty"`
	Search        string     `json:"search,omitempty"`
	StaffIDs      []int64    `json:"staffIds,omitempty"`
}

// Value implements driver.Valuer so criteria snapshots can be stored as a
// JSON column alongside automation rules.
func (c FilterCriteria) Value() (driver.Value, error) {
	return json.Marshal(c)
}

// Scan implements sql.Scanner for the JSON criteria column.
func (c *FilterCriteria) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*c = FilterCriteria{}
		return nil
	case []byte:
		return json.Unmarshal(v, c)
	case string:
		return json.Unmarshal([]byte(v), c)
	default:
		return fmt.Errorf("cannot scan %T into FilterCriteria", src)
	}
}
