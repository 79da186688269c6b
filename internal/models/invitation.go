package models

import (
	"time"

	"github.com/google/uuid"
)

type InvitationStatus string

const (
	InvitationPending  InvitationStatus = "PENDING"
	InvitationAccepted InvitationStatus = "ACCEPTED"
	InvitationDeclined InvitationStatus = "DECLINED"
)

// Invitation is a private-session access grant for a specific user.
// At most one row exists per (session_id, user_id).
type Invitation struct {
	SessionID   uuid.UUID        `json:"session_id"`
	UserID      uuid.UUID        `json:"user_id"`
	DisplayName string           `json:"display_name"`
	InvitedBy   uuid.UUID        `json:"invited_by"`
	Status      InvitationStatus `json:"status"`
	CreatedAt   time.Time        `json:"created_at"`
	RespondedAt *time.Time       `json:"responded_at"`
}

type InviteRequest struct {
	UserIDs []uuid.UUID `json:"user_ids"`
}

type InviteResult struct {
	Invited        int `json:"invited"`
	AlreadyInvited int `json:"already_invited"`
}
