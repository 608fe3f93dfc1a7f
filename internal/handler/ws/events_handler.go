package ws

import (
	"context"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"fchat-backend/internal/domain"
	"fchat-backend/internal/realtime"
	"fchat-backend/pkg/constants"
	"fchat-backend/pkg/logger"
	"fchat-backend/pkg/metrics"
)

// RoomMembershipChecker verifies a user may subscribe to a room's events
type RoomMembershipChecker interface {
	GetMemberPermissions(ctx context.Context, roomID, userID uuid.UUID) (*domain.MemberPermissions, error)
}

// EventsHub fans realtime events out to WebSocket subscribers. Each room has
// one Redis subscription shared by all its connected clients; global events
// reach every client.
type EventsHub struct {
	rooms               map[uuid.UUID]map[*EventsClient]bool
	subscriptionCancels map[uuid.UUID]context.CancelFunc

	redisClient *redis.Client
	roomRepo    RoomMembershipChecker
	metrics     *metrics.Metrics

	mu sync.RWMutex

	register   chan *EventsClient
	unregister chan *EventsClient
	clients    int
}

// EventsClient is one connected WebSocket subscriber
type EventsClient struct {
	hub    *EventsHub
	conn   *websocket.Conn
	send   chan []byte
	userID uuid.UUID
	roomID uuid.UUID
}

var eventsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return false
		}
		if origin == "http://localhost:3000" || origin == "http://localhost:8080" {
			return true
		}
		for _, allowed := range strings.Split(os.Getenv("CORS_ALLOWED_ORIGINS"), ",") {
			if origin == strings.TrimSpace(allowed) {
				return true
			}
		}
		return false
	},
}

// NewEventsHub creates a new events hub and starts its dispatch loop
func NewEventsHub(redisClient *redis.Client, roomRepo RoomMembershipChecker, m *metrics.Metrics) *EventsHub {
	hub := &EventsHub{
		rooms:               make(map[uuid.UUID]map[*EventsClient]bool),
		subscriptionCancels: make(map[uuid.UUID]context.CancelFunc),
		redisClient:         redisClient,
		roomRepo:            roomRepo,
		metrics:             m,
	}
	hub.register = make(chan *EventsClient)
	hub.unregister = make(chan *EventsClient)

	go hub.run()

	return hub
}

func (h *EventsHub) run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if h.rooms[client.roomID] == nil {
				h.rooms[client.roomID] = make(map[*EventsClient]bool)

				ctx, cancel := context.WithCancel(context.Background())
				h.subscriptionCancels[client.roomID] = cancel
				go h.subscribeToRoom(ctx, client.roomID)
			}
			h.rooms[client.roomID][client] = true
			h.clients++
			h.metrics.SetWebSocketConnections(h.clients)
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if clients, ok := h.rooms[client.roomID]; ok {
				if _, exists := clients[client]; exists {
					delete(clients, client)
					close(client.send)
					h.clients--
					h.metrics.SetWebSocketConnections(h.clients)

					if len(clients) == 0 {
						if cancel, ok := h.subscriptionCancels[client.roomID]; ok {
							cancel()
							delete(h.subscriptionCancels, client.roomID)
						}
						delete(h.rooms, client.roomID)
					}
				}
			}
			h.mu.Unlock()
		}
	}
}

// subscribeToRoom relays the room topic and the global topic to the room's
// connected clients
func (h *EventsHub) subscribeToRoom(ctx context.Context, roomID uuid.UUID) {
	pubsub := h.redisClient.Subscribe(ctx, realtime.RoomTopic(roomID), constants.GlobalTopic)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		logger.Error("Failed to subscribe to room topic",
			zap.String("room_id", roomID.String()),
			zap.Error(err))
		return
	}

	ch := pubsub.Channel()

	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-ch:
			if msg == nil {
				continue
			}
			h.fanOut(roomID, []byte(msg.Payload))
		}
	}
}

func (h *EventsHub) fanOut(roomID uuid.UUID, payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.rooms[roomID] {
		select {
		case client.send <- payload:
		default:
			// slow consumer, drop the connection
			go func(c *EventsClient) { h.unregister <- c }(client)
		}
	}
}

// ServeWS upgrades the connection and subscribes the caller to a room's
// event stream
// GET /v1/ws/events?room_id=...
func (h *EventsHub) ServeWS(c *gin.Context) {
	roomID, err := uuid.Parse(c.Query("room_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid room_id"})
		return
	}

	userIDVal, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	userID, ok := userIDVal.(uuid.UUID)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "invalid user_id"})
		return
	}

	perms, err := h.roomRepo.GetMemberPermissions(c.Request.Context(), roomID, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "membership check failed"})
		return
	}
	if !perms.IsMember {
		c.JSON(http.StatusForbidden, gin.H{"error": "not a room member"})
		return
	}

	conn, err := eventsUpgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Warn("WebSocket upgrade failed",
			zap.String("room_id", roomID.String()),
			zap.Error(err))
		return
	}

	client := &EventsClient{
		hub:    h,
		conn:   conn,
		send:   make(chan []byte, 256),
		userID: userID,
		roomID: roomID,
	}

	h.register <- client

	go client.writePump()
	go client.readPump()
}

// readPump drains client frames. The event stream is server to client only,
// reads exist to detect closure and answer pings.
func (c *EventsClient) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(1024)
	c.conn.SetReadDeadline(time.Now().Add(constants.WebSocketPingInterval * 2))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(constants.WebSocketPingInterval * 2))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *EventsClient) writePump() {
	ticker := time.NewTicker(constants.WebSocketPingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
