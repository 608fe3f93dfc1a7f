package cockroach

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"fchat-backend/internal/domain"
)

// RoomRepository handles chat room and membership data
type RoomRepository struct {
	pool *pgxpool.Pool
}

// NewRoomRepository creates a new room repository
func NewRoomRepository(pool *pgxpool.Pool) *RoomRepository {
	return &RoomRepository{pool: pool}
}

// Create inserts a new room and adds the creator as an admin member
func (r *RoomRepository) Create(ctx context.Context, room *domain.Room) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO chat_rooms (room_id, room_name, room_type, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err = tx.Exec(ctx, query,
		room.RoomID,
		room.Name,
		room.Type,
		room.CreatedBy,
		room.CreatedAt,
		room.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create room: %w", err)
	}

	memberQuery := `
		INSERT INTO room_members (room_id, user_id, role, is_muted, joined_at)
		VALUES ($1, $2, 'admin', false, $3)
	`

	_, err = tx.Exec(ctx, memberQuery, room.RoomID, room.CreatedBy, room.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to add room creator: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit room: %w", err)
	}

	return nil
}

// GetByID retrieves a room, or nil when it does not exist
func (r *RoomRepository) GetByID(ctx context.Context, roomID uuid.UUID) (*domain.Room, error) {
	query := `
		SELECT room_id, room_name, room_type, created_by, created_at, updated_at
		FROM chat_rooms
		WHERE room_id = $1
	`

	room := &domain.Room{}
	err := r.pool.QueryRow(ctx, query, roomID).Scan(
		&room.RoomID,
		&room.Name,
		&room.Type,
		&room.CreatedBy,
		&room.CreatedAt,
		&room.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get room: %w", err)
	}

	return room, nil
}

// GetMembers retrieves a room's membership list
func (r *RoomRepository) GetMembers(ctx context.Context, roomID uuid.UUID) ([]*domain.RoomMember, error) {
	query := `
		SELECT room_id, user_id, role, is_muted, joined_at
		FROM room_members
		WHERE room_id = $1
		ORDER BY joined_at
	`

	rows, err := r.pool.Query(ctx, query, roomID)
	if err != nil {
		return nil, fmt.Errorf("failed to get room members: %w", err)
	}
	defer rows.Close()

	var members []*domain.RoomMember
	for rows.Next() {
		member := &domain.RoomMember{}
		err := rows.Scan(
			&member.RoomID,
			&member.UserID,
			&member.Role,
			&member.IsMuted,
			&member.JoinedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan room member: %w", err)
		}
		members = append(members, member)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate room members: %w", err)
	}

	return members, nil
}

// GetMemberPermissions resolves one user's standing in a room
func (r *RoomRepository) GetMemberPermissions(ctx context.Context, roomID, userID uuid.UUID) (*domain.MemberPermissions, error) {
	query := `
		SELECT role, is_muted
		FROM room_members
		WHERE room_id = $1 AND user_id = $2
	`

	perms := &domain.MemberPermissions{}
	err := r.pool.QueryRow(ctx, query, roomID, userID).Scan(&perms.Role, &perms.IsMuted)
	if err != nil {
		if err == pgx.ErrNoRows {
			return &domain.MemberPermissions{IsMember: false}, nil
		}
		return nil, fmt.Errorf("failed to get member permissions: %w", err)
	}

	perms.IsMember = true
	return perms, nil
}

// AddMember adds a user to a room; re-adding is a no-op
func (r *RoomRepository) AddMember(ctx context.Context, member *domain.RoomMember) error {
	query := `
		INSERT INTO room_members (room_id, user_id, role, is_muted, joined_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (room_id, user_id) DO NOTHING
	`

	_, err := r.pool.Exec(ctx, query,
		member.RoomID,
		member.UserID,
		member.Role,
		member.IsMuted,
		member.JoinedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to add room member: %w", err)
	}

	return nil
}

// RemoveMember removes a user from a room
func (r *RoomRepository) RemoveMember(ctx context.Context, roomID, userID uuid.UUID) error {
	query := `
		DELETE FROM room_members
		WHERE room_id = $1 AND user_id = $2
	`

	_, err := r.pool.Exec(ctx, query, roomID, userID)
	if err != nil {
		return fmt.Errorf("failed to remove room member: %w", err)
	}

	return nil
}

// ListUserRooms retrieves every room a user belongs to
func (r *RoomRepository) ListUserRooms(ctx context.Context, userID uuid.UUID) ([]*domain.Room, error) {
	query := `
		SELECT cr.room_id, cr.room_name, cr.room_type, cr.created_by, cr.created_at, cr.updated_at
		FROM chat_rooms cr
		JOIN room_members rm ON cr.room_id = rm.room_id
		WHERE rm.user_id = $1
		ORDER BY cr.updated_at DESC
	`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list user rooms: %w", err)
	}
	defer rows.Close()

	var rooms []*domain.Room
	for rows.Next() {
		room := &domain.Room{}
		err := rows.Scan(
			&room.RoomID,
			&room.Name,
			&room.Type,
			&room.CreatedBy,
			&room.CreatedAt,
			&room.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan room: %w", err)
		}
		rooms = append(rooms, room)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rooms: %w", err)
	}

	return rooms, nil
}
