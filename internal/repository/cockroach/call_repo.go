package cockroach

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"fchat-backend/internal/domain"
)

// CallRepository handles call session data operations.
// A partial unique index on call_sessions (room_id) WHERE call_status IN
// ('Initiated','Ringing','Connected') enforces the single-active-call rule
// at the storage layer.
type CallRepository struct {
	pool *pgxpool.Pool
}

// NewCallRepository creates a new call repository
func NewCallRepository(pool *pgxpool.Pool) *CallRepository {
	return &CallRepository{pool: pool}
}

// Create inserts a new call session together with its initial participants
func (r *CallRepository) Create(ctx context.Context, session *domain.CallSession) error {
	iceServers, err := json.Marshal(session.ICEServers)
	if err != nil {
		return fmt.Errorf("failed to marshal ice servers: %w", err)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO call_sessions (
			call_session_id, room_id, call_type, call_status,
			initiated_by, session_token, ice_servers, start_time
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err = tx.Exec(ctx, query,
		session.SessionID,
		session.RoomID,
		session.CallType,
		session.Status,
		session.InitiatedBy,
		session.SessionToken,
		iceServers,
		session.StartTime,
	)
	if err != nil {
		return fmt.Errorf("failed to create call session: %w", err)
	}

	for _, p := range session.Participants {
		if err := upsertParticipantTx(ctx, tx, p); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit call session: %w", err)
	}

	return nil
}

// GetByID retrieves a call session with its participants
func (r *CallRepository) GetByID(ctx context.Context, sessionID uuid.UUID) (*domain.CallSession, error) {
	query := `
		SELECT call_session_id, room_id, call_type, call_status, initiated_by,
		       session_token, ice_servers, start_time, end_time, total_duration
		FROM call_sessions
		WHERE call_session_id = $1
	`

	session, err := scanSession(r.pool.QueryRow(ctx, query, sessionID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get call session: %w", err)
	}

	if err := r.loadParticipants(ctx, session); err != nil {
		return nil, err
	}

	return session, nil
}

// GetActiveByRoom returns the room's active session, or nil when none exists
func (r *CallRepository) GetActiveByRoom(ctx context.Context, roomID uuid.UUID) (*domain.CallSession, error) {
	query := `
		SELECT call_session_id, room_id, call_type, call_status, initiated_by,
		       session_token, ice_servers, start_time, end_time, total_duration
		FROM call_sessions
		WHERE room_id = $1
		  AND call_status IN ('Initiated', 'Ringing', 'Connected')
		ORDER BY start_time DESC
		LIMIT 1
	`

	session, err := scanSession(r.pool.QueryRow(ctx, query, roomID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get active call session: %w", err)
	}

	if err := r.loadParticipants(ctx, session); err != nil {
		return nil, err
	}

	return session, nil
}

// UpdateStatus moves a session to a new status
func (r *CallRepository) UpdateStatus(ctx context.Context, sessionID uuid.UUID, status domain.CallStatus) error {
	query := `
		UPDATE call_sessions
		SET call_status = $2
		WHERE call_session_id = $1
	`

	_, err := r.pool.Exec(ctx, query, sessionID, status)
	if err != nil {
		return fmt.Errorf("failed to update call status: %w", err)
	}

	return nil
}

// EndSession marks a session terminal and records its total duration
func (r *CallRepository) EndSession(ctx context.Context, sessionID uuid.UUID, status domain.CallStatus, endTime time.Time, totalDuration int) error {
	query := `
		UPDATE call_sessions
		SET call_status = $2,
		    end_time = $3,
		    total_duration = $4
		WHERE call_session_id = $1
	`

	_, err := r.pool.Exec(ctx, query, sessionID, status, endTime, totalDuration)
	if err != nil {
		return fmt.Errorf("failed to end call session: %w", err)
	}

	return nil
}

// UpsertParticipant inserts or updates one participant entry
func (r *CallRepository) UpsertParticipant(ctx context.Context, p *domain.CallParticipant) error {
	return upsertParticipantTx(ctx, r.pool, p)
}

// GetHistory retrieves past sessions the user was a participant of, newest
// first. A nil roomID spans all rooms.
func (r *CallRepository) GetHistory(ctx context.Context, userID uuid.UUID, roomID *uuid.UUID, limit, offset int) ([]*domain.CallSession, error) {
	query := `
		SELECT s.call_session_id, s.room_id, s.call_type, s.call_status, s.initiated_by,
		       s.session_token, s.ice_servers, s.start_time, s.end_time, s.total_duration
		FROM call_sessions s
		JOIN call_participants p ON p.call_session_id = s.call_session_id
		WHERE p.user_id = $1
		  AND ($2::UUID IS NULL OR s.room_id = $2)
		ORDER BY s.start_time DESC
		LIMIT $3 OFFSET $4
	`

	rows, err := r.pool.Query(ctx, query, userID, roomID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to get call history: %w", err)
	}
	defer rows.Close()

	var sessions []*domain.CallSession
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan call session: %w", err)
		}
		sessions = append(sessions, session)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate call history: %w", err)
	}

	for _, session := range sessions {
		if err := r.loadParticipants(ctx, session); err != nil {
			return nil, err
		}
	}

	return sessions, nil
}

// CountHistory returns the total number of sessions the user participated in
func (r *CallRepository) CountHistory(ctx context.Context, userID uuid.UUID, roomID *uuid.UUID) (int64, error) {
	query := `
		SELECT COUNT(*)
		FROM call_sessions s
		JOIN call_participants p ON p.call_session_id = s.call_session_id
		WHERE p.user_id = $1
		  AND ($2::UUID IS NULL OR s.room_id = $2)
	`

	var count int64
	err := r.pool.QueryRow(ctx, query, userID, roomID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count call history: %w", err)
	}
	return count, nil
}

func (r *CallRepository) loadParticipants(ctx context.Context, session *domain.CallSession) error {
	query := `
		SELECT call_session_id, user_id, status, joined_time, left_time, duration
		FROM call_participants
		WHERE call_session_id = $1
	`

	rows, err := r.pool.Query(ctx, query, session.SessionID)
	if err != nil {
		return fmt.Errorf("failed to get call participants: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		p := &domain.CallParticipant{}
		err := rows.Scan(
			&p.SessionID,
			&p.UserID,
			&p.Status,
			&p.JoinedTime,
			&p.LeftTime,
			&p.Duration,
		)
		if err != nil {
			return fmt.Errorf("failed to scan call participant: %w", err)
		}
		session.Participants = append(session.Participants, p)
	}

	return rows.Err()
}

// execer covers both *pgxpool.Pool and pgx.Tx
type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func upsertParticipantTx(ctx context.Context, db execer, p *domain.CallParticipant) error {
	query := `
		INSERT INTO call_participants (
			call_session_id, user_id, status, joined_time, left_time, duration
		) VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (call_session_id, user_id) DO UPDATE
		SET status = EXCLUDED.status,
		    joined_time = EXCLUDED.joined_time,
		    left_time = EXCLUDED.left_time,
		    duration = EXCLUDED.duration
	`

	_, err := db.Exec(ctx, query,
		p.SessionID,
		p.UserID,
		p.Status,
		p.JoinedTime,
		p.LeftTime,
		p.Duration,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert call participant: %w", err)
	}

	return nil
}

func scanSession(row pgx.Row) (*domain.CallSession, error) {
	session := &domain.CallSession{}
	var iceServers []byte

	err := row.Scan(
		&session.SessionID,
		&session.RoomID,
		&session.CallType,
		&session.Status,
		&session.InitiatedBy,
		&session.SessionToken,
		&iceServers,
		&session.StartTime,
		&session.EndTime,
		&session.TotalDuration,
	)
	if err != nil {
		return nil, err
	}

	if len(iceServers) > 0 {
		if err := json.Unmarshal(iceServers, &session.ICEServers); err != nil {
			return nil, fmt.Errorf("failed to unmarshal ice servers: %w", err)
		}
	}

	return session, nil
}
