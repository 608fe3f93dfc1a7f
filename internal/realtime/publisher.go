package realtime

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"fchat-backend/pkg/constants"
	"fchat-backend/pkg/logger"
	"fchat-backend/pkg/metrics"
)

// Event names carried on room and global topics
const (
	EventChatMessage           = "chat_message"
	EventCallInitiated         = "call_initiated"
	EventCallParticipantJoined = "call_participant_joined"
	EventCallParticipantLeft   = "call_participant_left"
	EventCallRejected          = "call_rejected"
	EventWebRTCSignal          = "webrtc_signal"
	EventUserStatusChanged     = "user_status_changed"
	EventUserTyping            = "user_typing"
	EventUserJoinedRoom        = "user_joined_room"
	EventUserLeftRoom          = "user_left_room"
)

// Event is the envelope published to subscribers
type Event struct {
	Event     string      `json:"event"`
	Payload   interface{} `json:"payload"`
	Timestamp time.Time   `json:"timestamp"`
}

// Publisher delivers events to topic subscribers. Delivery is best effort,
// at most once: a publish failure is logged and counted, never propagated
// to the caller.
type Publisher interface {
	PublishToRoom(ctx context.Context, roomID uuid.UUID, event string, payload interface{})
	PublishGlobal(ctx context.Context, event string, payload interface{})
}

// RoomTopic returns the pub/sub topic for a single room
func RoomTopic(roomID uuid.UUID) string {
	return constants.RoomTopicPrefix + roomID.String()
}

// RedisPublisher publishes events over Redis pub/sub
type RedisPublisher struct {
	client  *redis.Client
	metrics *metrics.Metrics
}

// NewRedisPublisher creates a new Redis-backed publisher
func NewRedisPublisher(client *redis.Client, m *metrics.Metrics) *RedisPublisher {
	return &RedisPublisher{client: client, metrics: m}
}

// PublishToRoom publishes an event to one room's topic
func (p *RedisPublisher) PublishToRoom(ctx context.Context, roomID uuid.UUID, event string, payload interface{}) {
	p.publish(ctx, RoomTopic(roomID), event, payload)
}

// PublishGlobal publishes an event to the global topic
func (p *RedisPublisher) PublishGlobal(ctx context.Context, event string, payload interface{}) {
	p.publish(ctx, constants.GlobalTopic, event, payload)
}

func (p *RedisPublisher) publish(ctx context.Context, topic, event string, payload interface{}) {
	data, err := json.Marshal(&Event{
		Event:     event,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		logger.Error("Failed to marshal realtime event",
			zap.String("event", event),
			zap.String("topic", topic),
			zap.Error(err))
		p.metrics.RecordRealtimePublish(event, err)
		return
	}

	if err := p.client.Publish(ctx, topic, data).Err(); err != nil {
		logger.Error("Failed to publish realtime event",
			zap.String("event", event),
			zap.String("topic", topic),
			zap.Error(err))
		p.metrics.RecordRealtimePublish(event, err)
		return
	}

	p.metrics.RecordRealtimePublish(event, nil)
}
