package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

// TestCanTransition verifies the call status transition table
func TestCanTransition(t *testing.T) {
	// Normal lifecycle
	assert.True(t, CanTransition(CallStatusInitiated, CallStatusRinging))
	assert.True(t, CanTransition(CallStatusInitiated, CallStatusConnected))
	assert.True(t, CanTransition(CallStatusRinging, CallStatusConnected))
	assert.True(t, CanTransition(CallStatusConnected, CallStatusEnded))
	assert.True(t, CanTransition(CallStatusRinging, CallStatusEnded))

	// Failure exits
	assert.True(t, CanTransition(CallStatusInitiated, CallStatusFailed))
	assert.True(t, CanTransition(CallStatusRinging, CallStatusFailed))
	assert.True(t, CanTransition(CallStatusConnected, CallStatusFailed))
	assert.True(t, CanTransition(CallStatusRinging, CallStatusRejected))

	// Terminal states never resurrect
	assert.False(t, CanTransition(CallStatusEnded, CallStatusConnected))
	assert.False(t, CanTransition(CallStatusEnded, CallStatusRinging))
	assert.False(t, CanTransition(CallStatusFailed, CallStatusConnected))
	assert.False(t, CanTransition(CallStatusRejected, CallStatusRinging))

	// No backwards transitions
	assert.False(t, CanTransition(CallStatusConnected, CallStatusRinging))
	assert.False(t, CanTransition(CallStatusRinging, CallStatusInitiated))
}

func TestCallStatusIsTerminal(t *testing.T) {
	assert.True(t, CallStatusEnded.IsTerminal())
	assert.True(t, CallStatusFailed.IsTerminal())
	assert.True(t, CallStatusRejected.IsTerminal())

	assert.False(t, CallStatusInitiated.IsTerminal())
	assert.False(t, CallStatusRinging.IsTerminal())
	assert.False(t, CallStatusConnected.IsTerminal())
}

func TestCallStatusIsActive(t *testing.T) {
	assert.True(t, CallStatusInitiated.IsActive())
	assert.True(t, CallStatusRinging.IsActive())
	assert.True(t, CallStatusConnected.IsActive())

	assert.False(t, CallStatusEnded.IsActive())
	assert.False(t, CallStatusFailed.IsActive())
	assert.False(t, CallStatusRejected.IsActive())
}

func TestJoinedCountAndActiveParticipants(t *testing.T) {
	userA := uuid.New()
	userB := uuid.New()
	userC := uuid.New()

	session := &CallSession{
		Participants: []*CallParticipant{
			{UserID: userA, Status: ParticipantJoined},
			{UserID: userB, Status: ParticipantInvited},
			{UserID: userC, Status: ParticipantLeft},
		},
	}

	assert.Equal(t, 1, session.JoinedCount())
	assert.Equal(t, []uuid.UUID{userA}, session.ActiveParticipants())

	assert.NotNil(t, session.Participant(userB))
	assert.Nil(t, session.Participant(uuid.New()))
}

func TestPresenceDeriveOnline(t *testing.T) {
	record := &PresenceRecord{Status: StatusOnline}
	record.DeriveOnline()
	assert.True(t, record.IsOnline)

	for _, status := range []PresenceStatus{StatusAway, StatusBusy, StatusOffline} {
		record.Status = status
		record.DeriveOnline()
		assert.False(t, record.IsOnline, "status %s must not be online", status)
	}
}
