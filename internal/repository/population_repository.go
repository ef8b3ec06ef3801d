package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/edupulse/campus-messaging/internal/domain"
)

// PopulationRepository reads the recipient population joined with invoices.
// This service never writes through it; the platform CRUD layer owns the
// underlying tables.
type PopulationRepository struct {
	db *sqlx.DB
}

func NewPopulationRepository(db *sqlx.DB) *PopulationRepository {
	return &PopulationRepository{db: db}
}

// GetPopulation returns every recipient with its invoice set attached.
// Filtering (including the invalid-phone drop) happens in the audience
// engine, not here, so the engine stays a pure function of its inputs.
func (r *PopulationRepository) GetPopulation(ctx context.Context) ([]domain.Recipient, error) {
	query := `
		SELECT id, name, phone, enrolled_at, staff_id, classroom_id
		FROM recipients
		ORDER BY id ASC
	`

	var recipients []domain.Recipient
	if err := r.db.SelectContext(ctx, &recipients, query); err != nil {
		return nil, fmt.Errorf("failed to get recipients: %w", err)
	}

	if len(recipients) == 0 {
		return recipients, nil
	}

	invoiceQuery := `
		SELECT id, recipient_id, status, due_date
		FROM invoices
		ORDER BY recipient_id ASC, due_date ASC
	`

	var invoices []domain.Invoice
	if err := r.db.SelectContext(ctx, &invoices, invoiceQuery); err != nil {
		return nil, fmt.Errorf("failed to get invoices: %w", err)
	}

	byRecipient := make(map[int64][]domain.Invoice, len(recipients))
	for _, inv := range invoices {
		byRecipient[inv.RecipientID] = append(byRecipient[inv.RecipientID], inv)
	}

	for i := range recipients {
		recipients[i].Invoices = byRecipient[recipients[i].ID]
	}

	return recipients, nil
}
