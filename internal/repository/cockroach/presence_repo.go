package cockroach

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"fchat-backend/internal/domain"
)

// PresenceRepository maintains one presence row per user
type PresenceRepository struct {
	pool *pgxpool.Pool
}

// NewPresenceRepository creates a new presence repository
func NewPresenceRepository(pool *pgxpool.Pool) *PresenceRepository {
	return &PresenceRepository{pool: pool}
}

// Upsert writes the full presence record. Last writer wins.
func (r *PresenceRepository) Upsert(ctx context.Context, record *domain.PresenceRecord) error {
	query := `
		INSERT INTO user_presence (
			user_id, full_name, status, is_online, last_seen,
			last_activity, active_room, typing_in_room
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (user_id) DO UPDATE
		SET full_name = EXCLUDED.full_name,
		    status = EXCLUDED.status,
		    is_online = EXCLUDED.is_online,
		    last_seen = EXCLUDED.last_seen,
		    last_activity = EXCLUDED.last_activity,
		    active_room = EXCLUDED.active_room,
		    typing_in_room = EXCLUDED.typing_in_room
	`

	_, err := r.pool.Exec(ctx, query,
		record.UserID,
		record.FullName,
		record.Status,
		record.IsOnline,
		record.LastSeen,
		record.LastActivity,
		record.ActiveRoom,
		record.TypingInRoom,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert presence: %w", err)
	}

	return nil
}

// Get retrieves one user's presence record, or nil when none exists
func (r *PresenceRepository) Get(ctx context.Context, userID uuid.UUID) (*domain.PresenceRecord, error) {
	query := `
		SELECT user_id, full_name, status, is_online, last_seen,
		       last_activity, active_room, typing_in_room
		FROM user_presence
		WHERE user_id = $1
	`

	record := &domain.PresenceRecord{}
	err := r.pool.QueryRow(ctx, query, userID).Scan(
		&record.UserID,
		&record.FullName,
		&record.Status,
		&record.IsOnline,
		&record.LastSeen,
		&record.LastActivity,
		&record.ActiveRoom,
		&record.TypingInRoom,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get presence: %w", err)
	}

	return record, nil
}

// Touch refreshes a user's last_activity timestamp without changing status
func (r *PresenceRepository) Touch(ctx context.Context, userID uuid.UUID, now time.Time) error {
	query := `
		UPDATE user_presence
		SET last_activity = $2
		WHERE user_id = $1
	`

	_, err := r.pool.Exec(ctx, query, userID, now)
	if err != nil {
		return fmt.Errorf("failed to touch presence: %w", err)
	}

	return nil
}

// SetTyping records the room a user is typing in, or clears it when nil
func (r *PresenceRepository) SetTyping(ctx context.Context, userID uuid.UUID, roomID *uuid.UUID, now time.Time) error {
	query := `
		UPDATE user_presence
		SET typing_in_room = $2,
		    last_activity = $3
		WHERE user_id = $1
	`

	_, err := r.pool.Exec(ctx, query, userID, roomID, now)
	if err != nil {
		return fmt.Errorf("failed to set typing room: %w", err)
	}

	return nil
}

// SetActiveRoom records which room a user currently has open
func (r *PresenceRepository) SetActiveRoom(ctx context.Context, userID uuid.UUID, roomID *uuid.UUID, now time.Time) error {
	query := `
		UPDATE user_presence
		SET active_room = $2,
		    last_activity = $3
		WHERE user_id = $1
	`

	_, err := r.pool.Exec(ctx, query, userID, roomID, now)
	if err != nil {
		return fmt.Errorf("failed to set active room: %w", err)
	}

	return nil
}

// ListOnline returns every user whose status is not offline
func (r *PresenceRepository) ListOnline(ctx context.Context) ([]*domain.PresenceRecord, error) {
	query := `
		SELECT user_id, full_name, status, is_online, last_seen,
		       last_activity, active_room, typing_in_room
		FROM user_presence
		WHERE status != 'offline'
		ORDER BY full_name
	`

	return r.list(ctx, query)
}

// ListTypingIn returns users currently typing in a room
func (r *PresenceRepository) ListTypingIn(ctx context.Context, roomID uuid.UUID) ([]*domain.PresenceRecord, error) {
	query := `
		SELECT user_id, full_name, status, is_online, last_seen,
		       last_activity, active_room, typing_in_room
		FROM user_presence
		WHERE typing_in_room = $1
	`

	return r.list(ctx, query, roomID)
}

// ListActiveIn returns users whose active room is the given room
func (r *PresenceRepository) ListActiveIn(ctx context.Context, roomID uuid.UUID) ([]*domain.PresenceRecord, error) {
	query := `
		SELECT user_id, full_name, status, is_online, last_seen,
		       last_activity, active_room, typing_in_room
		FROM user_presence
		WHERE active_room = $1
	`

	return r.list(ctx, query, roomID)
}

// SweepStale demotes every non-offline user idle past the threshold and
// clears their room pointers. Returns the number of rows demoted.
func (r *PresenceRepository) SweepStale(ctx context.Context, now time.Time, threshold time.Duration) (int64, error) {
	query := `
		UPDATE user_presence
		SET status = 'offline',
		    is_online = false,
		    active_room = NULL,
		    typing_in_room = NULL
		WHERE status != 'offline'
		  AND last_activity < $1
	`

	tag, err := r.pool.Exec(ctx, query, now.Add(-threshold))
	if err != nil {
		return 0, fmt.Errorf("failed to sweep stale presence: %w", err)
	}

	return tag.RowsAffected(), nil
}

// DemoteIdleOnline moves online users idle past the threshold to away.
// Returns the number of rows demoted.
func (r *PresenceRepository) DemoteIdleOnline(ctx context.Context, now time.Time, threshold time.Duration) (int64, error) {
	query := `
		UPDATE user_presence
		SET status = 'away',
		    is_online = false
		WHERE status = 'online'
		  AND last_activity < $1
	`

	tag, err := r.pool.Exec(ctx, query, now.Add(-threshold))
	if err != nil {
		return 0, fmt.Errorf("failed to demote idle users: %w", err)
	}

	return tag.RowsAffected(), nil
}

func (r *PresenceRepository) list(ctx context.Context, query string, args ...any) ([]*domain.PresenceRecord, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list presence: %w", err)
	}
	defer rows.Close()

	var records []*domain.PresenceRecord
	for rows.Next() {
		record := &domain.PresenceRecord{}
		err := rows.Scan(
			&record.UserID,
			&record.FullName,
			&record.Status,
			&record.IsOnline,
			&record.LastSeen,
			&record.LastActivity,
			&record.ActiveRoom,
			&record.TypingInRoom,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan presence: %w", err)
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate presence: %w", err)
	}

	return records, nil
}
