package room

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"fchat-backend/internal/domain"
	"fchat-backend/pkg/errors"
)

// Room types
const (
	TypeDirect  = "direct"
	TypeGroup   = "group"
	TypeChannel = "channel"
)

// RoomRepository defines room and membership storage operations
type RoomRepository interface {
	Create(ctx context.Context, room *domain.Room) error
	GetByID(ctx context.Context, roomID uuid.UUID) (*domain.Room, error)
	GetMembers(ctx context.Context, roomID uuid.UUID) ([]*domain.RoomMember, error)
	GetMemberPermissions(ctx context.Context, roomID, userID uuid.UUID) (*domain.MemberPermissions, error)
	AddMember(ctx context.Context, member *domain.RoomMember) error
	RemoveMember(ctx context.Context, roomID, userID uuid.UUID) error
	ListUserRooms(ctx context.Context, userID uuid.UUID) ([]*domain.Room, error)
}

// Service manages rooms and their membership
type Service struct {
	roomRepo RoomRepository
}

// NewService creates a new room service
func NewService(roomRepo RoomRepository) *Service {
	return &Service{roomRepo: roomRepo}
}

// Create creates a room with the creator as its admin member
func (s *Service) Create(ctx context.Context, creatorID uuid.UUID, name, roomType string) (*domain.Room, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.ValidationError("room name is required")
	}

	switch roomType {
	case TypeDirect, TypeGroup, TypeChannel:
	case "":
		roomType = TypeGroup
	default:
		return nil, errors.ValidationError(fmt.Sprintf("invalid room type: %s", roomType))
	}

	now := time.Now().UTC()
	room := &domain.Room{
		RoomID:    uuid.New(),
		Name:      name,
		Type:      roomType,
		CreatedBy: creatorID,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.roomRepo.Create(ctx, room); err != nil {
		return nil, err
	}

	return room, nil
}

// ListRooms returns every room the user belongs to
func (s *Service) ListRooms(ctx context.Context, userID uuid.UUID) ([]*domain.Room, error) {
	return s.roomRepo.ListUserRooms(ctx, userID)
}

// Members returns a room's membership list. Members only.
func (s *Service) Members(ctx context.Context, roomID, userID uuid.UUID) ([]*domain.RoomMember, error) {
	perms, err := s.roomRepo.GetMemberPermissions(ctx, roomID, userID)
	if err != nil {
		return nil, err
	}
	if !perms.IsMember {
		return nil, errors.PermissionDenied("you are not a member of this room")
	}

	return s.roomRepo.GetMembers(ctx, roomID)
}

// AddMember adds a user to a room. Admins only; re-adding is a no-op.
func (s *Service) AddMember(ctx context.Context, roomID, actorID, userID uuid.UUID, role string) error {
	if role == "" {
		role = "member"
	}
	if role != "member" && role != "admin" {
		return errors.ValidationError(fmt.Sprintf("invalid role: %s", role))
	}

	if err := s.requireAdmin(ctx, roomID, actorID); err != nil {
		return err
	}

	room, err := s.roomRepo.GetByID(ctx, roomID)
	if err != nil {
		return err
	}
	if room == nil {
		return errors.NotFound("room")
	}

	return s.roomRepo.AddMember(ctx, &domain.RoomMember{
		RoomID:   roomID,
		UserID:   userID,
		Role:     role,
		JoinedAt: time.Now().UTC(),
	})
}

// RemoveMember removes a user from a room. Users may remove themselves;
// removing anyone else requires admin.
func (s *Service) RemoveMember(ctx context.Context, roomID, actorID, userID uuid.UUID) error {
	if actorID != userID {
		if err := s.requireAdmin(ctx, roomID, actorID); err != nil {
			return err
		}
	}

	perms, err := s.roomRepo.GetMemberPermissions(ctx, roomID, userID)
	if err != nil {
		return err
	}
	if !perms.IsMember {
		return errors.NotFound("room member")
	}

	return s.roomRepo.RemoveMember(ctx, roomID, userID)
}

func (s *Service) requireAdmin(ctx context.Context, roomID, userID uuid.UUID) error {
	perms, err := s.roomRepo.GetMemberPermissions(ctx, roomID, userID)
	if err != nil {
		return err
	}
	if !perms.IsMember {
		return errors.PermissionDenied("you are not a member of this room")
	}
	if perms.Role != "admin" {
		return errors.PermissionDenied("admin role required")
	}
	return nil
}
