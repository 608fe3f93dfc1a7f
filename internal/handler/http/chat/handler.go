package chat

import (
	"encoding/base64"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"fchat-backend/internal/domain"
	"fchat-backend/internal/service/chat"
	"fchat-backend/internal/service/email"
	"fchat-backend/pkg/response"
)

// Handler handles messaging HTTP requests
type Handler struct {
	chatService  *chat.Service
	emailService *email.Service
}

// NewHandler creates a new chat handler
func NewHandler(chatService *chat.Service, emailService *email.Service) *Handler {
	return &Handler{
		chatService:  chatService,
		emailService: emailService,
	}
}

// SendMessageRequest represents a message send request
type SendMessageRequest struct {
	RoomID      string               `json:"room_id" binding:"required,uuid"`
	Content     string               `json:"content"`
	Attachments []*domain.Attachment `json:"attachments"`
}

// BroadcastRequest represents a multi-room broadcast request
type BroadcastRequest struct {
	RoomIDs     []string             `json:"room_ids" binding:"required,min=1"`
	Content     string               `json:"content"`
	Attachments []*domain.Attachment `json:"attachments"`
}

// EmailMessageRequest represents an email bridge request
type EmailMessageRequest struct {
	RoomID     string   `json:"room_id" binding:"required,uuid"`
	Bucket     int      `json:"bucket"`
	Recipients []string `json:"recipients"`
	Subject    string   `json:"subject"`
	Note       string   `json:"note"`
}

// SendMessage persists and fans out a message
// POST /v1/messages
func (h *Handler) SendMessage(c *gin.Context) {
	var req SendMessageRequest
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

	message, err := h.chatService.SendMessage(c.Request.Context(), roomID, userID, req.Content, req.Attachments)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, message)
}

// GetMessages returns a page of room messages, newest first
// GET /v1/messages?room_id=...&bucket=...&limit=...&cursor=...
func (h *Handler) GetMessages(c *gin.Context) {
	roomID, err := uuid.Parse(c.Query("room_id"))
	if err != nil {
		response.ValidationError(c, "Invalid room ID")
		return
	}

	userID, ok := currentUser(c)
	if !ok {
		return
	}

	bucket, _ := strconv.Atoi(c.Query("bucket"))
	limit, _ := strconv.Atoi(c.Query("limit"))

	var cursor []byte
	if cursorStr := c.Query("cursor"); cursorStr != "" {
		cursor, err = base64.URLEncoding.DecodeString(cursorStr)
		if err != nil {
			response.ValidationError(c, "Invalid cursor")
			return
		}
	}

	messages, nextCursor, err := h.chatService.GetMessages(c.Request.Context(), roomID, userID, bucket, limit, cursor)
	if err != nil {
		response.FromError(c, err)
		return
	}

	data := gin.H{"messages": messages}
	if len(nextCursor) > 0 {
		data["next_cursor"] = base64.URLEncoding.EncodeToString(nextCursor)
	}

	response.Success(c, http.StatusOK, data)
}

// GetMessage returns one message by id
// GET /v1/messages/:id?room_id=...&bucket=...
func (h *Handler) GetMessage(c *gin.Context) {
	messageID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.ValidationError(c, "Invalid message ID")
		return
	}

	roomID, err := uuid.Parse(c.Query("room_id"))
	if err != nil {
		response.ValidationError(c, "Invalid room ID")
		return
	}

	userID, ok := currentUser(c)
	if !ok {
		return
	}

	bucket, _ := strconv.Atoi(c.Query("bucket"))

	message, err := h.chatService.GetMessage(c.Request.Context(), roomID, userID, messageID, bucket)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, message)
}

// Broadcast sends one message to many rooms
// POST /v1/broadcast
func (h *Handler) Broadcast(c *gin.Context) {
	var req BroadcastRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, err.Error())
		return
	}

	userID, ok := currentUser(c)
	if !ok {
		return
	}

	roomIDs := make([]uuid.UUID, 0, len(req.RoomIDs))
	for _, idStr := range req.RoomIDs {
		id, err := uuid.Parse(idStr)
		if err != nil {
			response.ValidationError(c, "Invalid room ID: "+idStr)
			return
		}
		roomIDs = append(roomIDs, id)
	}

	result, err := h.chatService.Broadcast(c.Request.Context(), userID, roomIDs, req.Content, req.Attachments)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, result)
}

// EmailMessage bridges one message to email
// POST /v1/messages/:id/email
func (h *Handler) EmailMessage(c *gin.Context) {
	messageID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.ValidationError(c, "Invalid message ID")
		return
	}

	var req EmailMessageRequest
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

	err = h.emailService.SendMessageViaEmail(c.Request.Context(), roomID, messageID, userID, req.Bucket, req.Recipients, req.Subject, req.Note)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.SuccessWithMessage(c, http.StatusOK, "Message sent via email", gin.H{
		"message_id": messageID,
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
