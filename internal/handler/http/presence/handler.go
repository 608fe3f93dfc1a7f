package presence

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"fchat-backend/internal/domain"
	"fchat-backend/internal/service/presence"
	"fchat-backend/pkg/response"
)

// Handler handles presence HTTP requests
type Handler struct {
	presenceService *presence.Service
}

// NewHandler creates a new presence handler
func NewHandler(presenceService *presence.Service) *Handler {
	return &Handler{presenceService: presenceService}
}

// SetStatusRequest represents a status update request
type SetStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=online away busy offline"`
}

// TypingRequest represents a typing indicator update
type TypingRequest struct {
	RoomID   string `json:"room_id" binding:"required,uuid"`
	IsTyping *bool  `json:"is_typing" binding:"required"`
}

// SetStatus updates the caller's presence status
// POST /v1/presence/status
func (h *Handler) SetStatus(c *gin.Context) {
	var req SetStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, err.Error())
		return
	}

	userID, ok := currentUser(c)
	if !ok {
		return
	}

	record, err := h.presenceService.SetStatus(c.Request.Context(), userID, fullName(c), domain.PresenceStatus(req.Status))
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, record)
}

// GetStatus returns the caller's presence record, creating it if absent
// GET /v1/presence/status
func (h *Handler) GetStatus(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	record, err := h.presenceService.GetOrCreate(c.Request.Context(), userID, fullName(c))
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, record)
}

// Heartbeat refreshes the caller's activity timestamp. Always succeeds
// from the caller's point of view.
// POST /v1/presence/heartbeat
func (h *Handler) Heartbeat(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	h.presenceService.Heartbeat(c.Request.Context(), userID)

	response.Success(c, http.StatusOK, gin.H{"ok": true})
}

// SetTyping sets or clears the caller's typing indicator for a room
// POST /v1/presence/typing
func (h *Handler) SetTyping(c *gin.Context) {
	var req TypingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, err.Error())
		return
	}

	userID, ok := currentUser(c)
	if !ok {
		return
	}

	roomID, err := uuid.Parse(req.RoomID)
	if err != nil {
		response.ValidationError(c, "Invalid room ID")
		return
	}

	if err := h.presenceService.SetTyping(c.Request.Context(), userID, roomID, *req.IsTyping); err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"ok": true})
}

// JoinRoom marks a room as the caller's active room
// POST /v1/rooms/:id/join
func (h *Handler) JoinRoom(c *gin.Context) {
	roomID, userID, ok := roomAndUser(c)
	if !ok {
		return
	}

	if err := h.presenceService.JoinRoom(c.Request.Context(), userID, roomID); err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"room_id": roomID})
}

// LeaveRoom clears the caller's active room
// POST /v1/rooms/:id/leave
func (h *Handler) LeaveRoom(c *gin.Context) {
	roomID, userID, ok := roomAndUser(c)
	if !ok {
		return
	}

	if err := h.presenceService.LeaveRoom(c.Request.Context(), userID, roomID); err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"room_id": roomID})
}

// ListOnline returns every user currently not offline
// GET /v1/presence/online
func (h *Handler) ListOnline(c *gin.Context) {
	records, err := h.presenceService.ListOnline(c.Request.Context())
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"users": records,
		"count": len(records),
	})
}

// ListTyping returns users currently typing in a room
// GET /v1/rooms/:id/typing
func (h *Handler) ListTyping(c *gin.Context) {
	roomID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.ValidationError(c, "Invalid room ID")
		return
	}

	records, err := h.presenceService.ListTypingIn(c.Request.Context(), roomID)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"users": records})
}

// ListActive returns users whose active room is this room
// GET /v1/rooms/:id/active
func (h *Handler) ListActive(c *gin.Context) {
	roomID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.ValidationError(c, "Invalid room ID")
		return
	}

	records, err := h.presenceService.ListActiveIn(c.Request.Context(), roomID)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"users": records})
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

func fullName(c *gin.Context) string {
	if val, exists := c.Get("full_name"); exists {
		if name, ok := val.(string); ok {
			return name
		}
	}
	return ""
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
