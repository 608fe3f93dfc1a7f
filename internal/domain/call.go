package domain

import (
	"time"

	"github.com/google/uuid"
)

// CallStatus represents the lifecycle state of a call session
type CallStatus string

const (
	CallStatusInitiated CallStatus = "Initiated"
	CallStatusRinging   CallStatus = "Ringing"
	CallStatusConnected CallStatus = "Connected"
	CallStatusEnded     CallStatus = "Ended"
	CallStatusFailed    CallStatus = "Failed"
	CallStatusRejected  CallStatus = "Rejected"
)

// ParticipantStatus represents a participant's state within a call
type ParticipantStatus string

const (
	ParticipantInvited  ParticipantStatus = "Invited"
	ParticipantJoined   ParticipantStatus = "Joined"
	ParticipantLeft     ParticipantStatus = "Left"
	ParticipantRejected ParticipantStatus = "Rejected"
)

// CallType represents the media type of a call
type CallType string

const (
	CallTypeAudio CallType = "Audio"
	CallTypeVideo CallType = "Video"
)

// CallSession represents one call in a chat room.
// At most one session per room may be in an active status at a time.
type CallSession struct {
	SessionID     uuid.UUID          `json:"call_session_id"`
	RoomID        uuid.UUID          `json:"room_id"`
	CallType      CallType           `json:"call_type"`
	Status        CallStatus         `json:"call_status"`
	InitiatedBy   uuid.UUID          `json:"initiated_by"`
	SessionToken  string             `json:"session_token"` // opaque id for client-side signal correlation
	ICEServers    []ICEServer        `json:"ice_servers"`
	StartTime     time.Time          `json:"start_time"`
	EndTime       *time.Time         `json:"end_time,omitempty"`
	TotalDuration *int               `json:"total_duration,omitempty"` // seconds, set once on terminal transition
	Participants  []*CallParticipant `json:"participants,omitempty"`
}

// CallParticipant represents one user's membership in a call session
type CallParticipant struct {
	SessionID  uuid.UUID         `json:"call_session_id"`
	UserID     uuid.UUID         `json:"user_id"`
	Status     ParticipantStatus `json:"status"`
	JoinedTime *time.Time        `json:"joined_time,omitempty"`
	LeftTime   *time.Time        `json:"left_time,omitempty"`
	Duration   *int              `json:"duration,omitempty"` // seconds
}

// ICEServer is a connectivity endpoint handed to call participants.
// Opaque to this service: stored at initiation, relayed as-is.
type ICEServer struct {
	URLs string `json:"urls"`
}

// DefaultICEServers is the snapshot taken when a session is created
// unless overridden by configuration.
var DefaultICEServers = []ICEServer{
	{URLs: "stun:stun.l.google.com:19302"},
	{URLs: "stun:stun1.l.google.com:19302"},
}

// callTransitions is the allowed predecessor set per target status.
// Any transition not listed here is rejected.
var callTransitions = map[CallStatus][]CallStatus{
	CallStatusRinging:   {CallStatusInitiated},
	CallStatusConnected: {CallStatusInitiated, CallStatusRinging},
	CallStatusEnded:     {CallStatusInitiated, CallStatusRinging, CallStatusConnected},
	CallStatusFailed:    {CallStatusInitiated, CallStatusRinging, CallStatusConnected},
	CallStatusRejected:  {CallStatusRinging},
}

// CanTransition reports whether a session may move from one status to another
func CanTransition(from, to CallStatus) bool {
	for _, allowed := range callTransitions[to] {
		if from == allowed {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition is permitted from the status
func (s CallStatus) IsTerminal() bool {
	return s == CallStatusEnded || s == CallStatusFailed || s == CallStatusRejected
}

// IsActive reports whether the status counts as an ongoing call
func (s CallStatus) IsActive() bool {
	return s == CallStatusInitiated || s == CallStatusRinging || s == CallStatusConnected
}

// Participant returns the entry for a user, or nil if the user has none
func (c *CallSession) Participant(userID uuid.UUID) *CallParticipant {
	for _, p := range c.Participants {
		if p.UserID == userID {
			return p
		}
	}
	return nil
}

// JoinedCount returns the number of participants currently in the Joined state
func (c *CallSession) JoinedCount() int {
	count := 0
	for _, p := range c.Participants {
		if p.Status == ParticipantJoined {
			count++
		}
	}
	return count
}

// ActiveParticipants returns the user IDs of participants in the Joined state
func (c *CallSession) ActiveParticipants() []uuid.UUID {
	var active []uuid.UUID
	for _, p := range c.Participants {
		if p.Status == ParticipantJoined {
			active = append(active, p.UserID)
		}
	}
	return active
}
