package call

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"fchat-backend/internal/domain"
	"fchat-backend/internal/service/call"
	"fchat-backend/pkg/pagination"
	"fchat-backend/pkg/response"
)

// Handler handles call session HTTP requests
type Handler struct {
	callService *call.Service
}

// NewHandler creates a new call handler
func NewHandler(callService *call.Service) *Handler {
	return &Handler{callService: callService}
}

// InitiateRequest represents a call initiation request
type InitiateRequest struct {
	RoomID       string   `json:"room_id" binding:"required,uuid"`
	CallType     string   `json:"call_type" binding:"required,oneof=Audio Video"`
	Participants []string `json:"participants"`
}

// SignalRequest represents a WebRTC signal relay request
type SignalRequest struct {
	SignalType string          `json:"signal_type" binding:"required"`
	Payload    json.RawMessage `json:"payload" binding:"required"`
	TargetUser string          `json:"target_user"`
}

// Initiate starts a new call in a room
// POST /v1/calls/initiate
func (h *Handler) Initiate(c *gin.Context) {
	var req InitiateRequest
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

	participants := make([]uuid.UUID, 0, len(req.Participants))
	for _, idStr := range req.Participants {
		id, err := uuid.Parse(idStr)
		if err != nil {
			response.ValidationError(c, "Invalid participant ID: "+idStr)
			return
		}
		participants = append(participants, id)
	}

	session, err := h.callService.Initiate(c.Request.Context(), roomID, userID, domain.CallType(req.CallType), participants)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, session)
}

// Join adds the caller to a call session
// POST /v1/calls/:id/join
func (h *Handler) Join(c *gin.Context) {
	sessionID, userID, ok := sessionAndUser(c)
	if !ok {
		return
	}

	session, err := h.callService.Join(c.Request.Context(), sessionID, userID)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, session)
}

// Leave removes the caller from a call session
// POST /v1/calls/:id/leave
func (h *Handler) Leave(c *gin.Context) {
	sessionID, userID, ok := sessionAndUser(c)
	if !ok {
		return
	}

	session, err := h.callService.Leave(c.Request.Context(), sessionID, userID)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"call_session_id": sessionID,
		"call_status":     session.Status,
		"call_ended":      session.Status == domain.CallStatusEnded,
	})
}

// Reject marks the caller's invitation as rejected
// POST /v1/calls/:id/reject
func (h *Handler) Reject(c *gin.Context) {
	sessionID, userID, ok := sessionAndUser(c)
	if !ok {
		return
	}

	if err := h.callService.Reject(c.Request.Context(), sessionID, userID); err != nil {
		response.FromError(c, err)
		return
	}

	response.SuccessWithMessage(c, http.StatusOK, "Call rejected", gin.H{
		"call_session_id": sessionID,
	})
}

// Signal relays a WebRTC signaling message to the session's room
// POST /v1/calls/:id/signal
func (h *Handler) Signal(c *gin.Context) {
	sessionID, userID, ok := sessionAndUser(c)
	if !ok {
		return
	}

	var req SignalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, err.Error())
		return
	}

	var target *uuid.UUID
	if req.TargetUser != "" {
		id, err := uuid.Parse(req.TargetUser)
		if err != nil {
			response.ValidationError(c, "Invalid target user ID")
			return
		}
		target = &id
	}

	if err := h.callService.RelaySignal(c.Request.Context(), sessionID, userID, req.SignalType, req.Payload, target); err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"relayed": true})
}

// Fail marks a session as failed on an external failure signal
// POST /v1/calls/:id/fail
func (h *Handler) Fail(c *gin.Context) {
	sessionID, _, ok := sessionAndUser(c)
	if !ok {
		return
	}

	if err := h.callService.MarkFailed(c.Request.Context(), sessionID); err != nil {
		response.FromError(c, err)
		return
	}

	response.SuccessWithMessage(c, http.StatusOK, "Call marked failed", gin.H{
		"call_session_id": sessionID,
	})
}

// ActiveSession returns a room's active call, if any
// GET /v1/rooms/:id/call
func (h *Handler) ActiveSession(c *gin.Context) {
	roomID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.ValidationError(c, "Invalid room ID")
		return
	}

	userID, ok := currentUser(c)
	if !ok {
		return
	}

	session, err := h.callService.ActiveSession(c.Request.Context(), roomID, userID)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"has_active_call": session != nil,
		"call_session":    session,
	})
}

// History returns the caller's past calls, newest first. An omitted room_id
// spans all of the caller's rooms.
// GET /v1/calls/history?room_id=...&page=...&page_size=...
func (h *Handler) History(c *gin.Context) {
	var roomID *uuid.UUID
	if q := c.Query("room_id"); q != "" {
		id, err := uuid.Parse(q)
		if err != nil {
			response.ValidationError(c, "Invalid room ID")
			return
		}
		roomID = &id
	}

	userID, ok := currentUser(c)
	if !ok {
		return
	}

	params, err := pagination.Parse(c.Query("page"), c.Query("page_size"))
	if err != nil {
		response.ValidationError(c, err.Error())
		return
	}

	sessions, paged, err := h.callService.History(c.Request.Context(), userID, roomID, params)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"sessions":   sessions,
		"pagination": paged,
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

func sessionAndUser(c *gin.Context) (uuid.UUID, uuid.UUID, bool) {
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.ValidationError(c, "Invalid call session ID")
		return uuid.Nil, uuid.Nil, false
	}
	userID, ok := currentUser(c)
	if !ok {
		return uuid.Nil, uuid.Nil, false
	}
	return sessionID, userID, true
}
