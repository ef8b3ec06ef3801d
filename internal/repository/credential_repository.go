package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// CredentialRepository reads the opaque channel credential. The content is
// never inspected here; callers only check for presence.
type CredentialRepository struct {
	db *sqlx.DB
}

func NewCredentialRepository(db *sqlx.DB) *CredentialRepository {
	return &CredentialRepository{db: db}
}

// Get returns the newest stored credential, or "" when none is configured.
func (r *CredentialRepository) Get(ctx context.Context) (string, error) {
	query := `
		SELECT credential
		FROM channel_credentials
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`

	var credential string
	if err := r.db.GetContext(ctx, &credential, query); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("failed to get channel credential: %w", err)
	}

	return credential, nil
}
