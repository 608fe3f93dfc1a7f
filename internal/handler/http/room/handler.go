package room

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"fchat-backend/internal/service/room"
	"fchat-backend/pkg/response"
)

// Handler handles room management HTTP requests
type Handler struct {
	roomService *room.Service
}

// NewHandler creates a new room handler
func NewHandler(roomService *room.Service) *Handler {
	return &Handler{roomService: roomService}
}

// CreateRequest represents a room creation request
type CreateRequest struct {
	Name string `json:"room_name" binding:"required"`
	Type string `json:"type" binding:"omitempty,oneof=direct group channel"`
}

// AddMemberRequest represents a membership addition request
type AddMemberRequest struct {
	UserID string `json:"user_id" binding:"required,uuid"`
	Role   string `json:"role" binding:"omitempty,oneof=member admin"`
}

// Create creates a room with the caller as admin
// POST /v1/rooms
func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, err.Error())
		return
	}

	userID, ok := currentUser(c)
	if !ok {
		return
	}

	created, err := h.roomService.Create(c.Request.Context(), userID, req.Name, req.Type)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, created)
}

// List returns the caller's rooms
// GET /v1/rooms
func (h *Handler) List(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	rooms, err := h.roomService.ListRooms(c.Request.Context(), userID)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"rooms": rooms})
}

// Members returns a room's membership list
// GET /v1/rooms/:id/members
func (h *Handler) Members(c *gin.Context) {
	roomID, userID, ok := roomAndUser(c)
	if !ok {
		return
	}

	members, err := h.roomService.Members(c.Request.Context(), roomID, userID)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"members": members})
}

// AddMember adds a user to a room
// POST /v1/rooms/:id/members
func (h *Handler) AddMember(c *gin.Context) {
	roomID, actorID, ok := roomAndUser(c)
	if !ok {
		return
	}

	var req AddMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, err.Error())
		return
	}

	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		response.ValidationError(c, "Invalid user ID")
		return
	}

	if err := h.roomService.AddMember(c.Request.Context(), roomID, actorID, userID, req.Role); err != nil {
		response.FromError(c, err)
		return
	}

	response.SuccessWithMessage(c, http.StatusOK, "Member added", gin.H{
		"room_id": roomID,
		"user_id": userID,
	})
}

// RemoveMember removes a user from a room
// DELETE /v1/rooms/:id/members/:user_id
func (h *Handler) RemoveMember(c *gin.Context) {
	roomID, actorID, ok := roomAndUser(c)
	if !ok {
		return
	}

	userID, err := uuid.Parse(c.Param("user_id"))
	if err != nil {
		response.ValidationError(c, "Invalid user ID")
		return
	}

	if err := h.roomService.RemoveMember(c.Request.Context(), roomID, actorID, userID); err != nil {
		response.FromError(c, err)
		return
	}

	response.SuccessWithMessage(c, http.StatusOK, "Member removed", gin.H{
		"room_id": roomID,
		"user_id": userID,
	})
}

func currentUser(c *gin.Context) (uuid.UUID, bool) {
	val, exists := c.Get("user_id")
	if !exists {
		response.Unauthorized(c, "Not authenticated")
		return uuid.Nil, false
	}
	userID, ok := val.(uuid.UUID)
	if !ok {
		response.InternalError(c, "Invalid user ID")
		return uuid.Nil, false
	}
	return userID, true
}

func roomAndUser(c *gin.Context) (uuid.UUID, uuid.UUID, bool) {
	roomID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.ValidationError(c, "Invalid room ID")
		return uuid.Nil, uuid.Nil, false
	}
	userID, ok := currentUser(c)
	if !ok {
		return uuid.Nil, uuid.Nil, false
	}
	return roomID, userID, true
}
