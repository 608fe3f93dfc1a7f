package cockroach

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// UserRepository resolves user directory details needed by the email bridge
type UserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository creates a new user repository
func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

// GetEmailAddresses resolves email addresses for a set of users. Users
// without a stored address are omitted from the result.
func (r *UserRepository) GetEmailAddresses(ctx context.Context, userIDs []uuid.UUID) (map[uuid.UUID]string, error) {
	if len(userIDs) == 0 {
		return map[uuid.UUID]string{}, nil
	}

	query := `
		SELECT user_id, email
		FROM users
		WHERE user_id = ANY($1)
		  AND email != ''
	`

	rows, err := r.pool.Query(ctx, query, userIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to get email addresses: %w", err)
	}
	defer rows.Close()

	emails := make(map[uuid.UUID]string, len(userIDs))
	for rows.Next() {
		var userID uuid.UUID
		var email string
		if err := rows.Scan(&userID, &email); err != nil {
			return nil, fmt.Errorf("failed to scan email address: %w", err)
		}
		emails[userID] = email
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate email addresses: %w", err)
	}

	return emails, nil
}

// GetFullName resolves one user's display name
func (r *UserRepository) GetFullName(ctx context.Context, userID uuid.UUID) (string, error) {
	var fullName string
	err := r.pool.QueryRow(ctx,
		`SELECT full_name FROM users WHERE user_id = $1`, userID,
	).Scan(&fullName)
	if err != nil {
		return "", fmt.Errorf("failed to get full name: %w", err)
	}
	return fullName, nil
}
