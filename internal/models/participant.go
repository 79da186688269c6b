package models

import (
	"time"

	"github.com/google/uuid"
)

// Participant is a user's presence record within a session, keyed by
// (session_id, user_id). The row is reused across leave/rejoin; isActive
// distinguishes present from departed.
type Participant struct {
	SessionID   uuid.UUID `json:"session_id"`
	UserID      uuid.UUID `json:"user_id"`
	DisplayName string    `json:"display_name"`
	Role        Role      `json:"role"`

	IsActive bool       `json:"is_active"`
	JoinedAt time.Time  `json:"joined_at"`
	LeftAt   *time.Time `json:"left_at"`

	IsMuted      bool `json:"is_muted"`
	IsCameraOff  bool `json:"is_camera_off"`
	IsHandRaised bool `json:"is_hand_raised"`
	CanSpeak     bool `json:"can_speak"`
	CanShare     bool `json:"can_share"`
	IsHost       bool `json:"is_host"`
	IsCoHost     bool `json:"is_co_host"`
}

// ParticipantUpdate is a partial update of a participant's capability
// flags. Nil fields are left unchanged.
type ParticipantUpdate struct {
	IsMuted      *bool
	IsCameraOff  *bool
	IsHandRaised *bool
	CanSpeak     *bool
	CanShare     *bool
}
