package models

import (
	"time"

	"github.com/google/uuid"
)

type SessionStatus string

const (
	SessionScheduled SessionStatus = "SCHEDULED"
	SessionLive      SessionStatus = "LIVE"
	SessionEnded     SessionStatus = "ENDED"
	SessionCancelled SessionStatus = "CANCELLED"
)

// Terminal reports whether no further status transition is possible.
func (s SessionStatus) Terminal() bool {
	return s == SessionEnded || s == SessionCancelled
}

type SessionKind string

const (
	// KindClassroom is a teaching session open to students.
	KindClassroom SessionKind = "CLASSROOM"
	// KindStaffRoom is an instructor/admin-only meeting space.
	KindStaffRoom SessionKind = "STAFF_ROOM"
)

// AudienceRoles returns the roles admitted to a session of this kind
// before privacy is considered. The host and admins always bypass this.
func (k SessionKind) AudienceRoles() []Role {
	switch k {
	case KindStaffRoom:
		return []Role{RoleInstructor, RoleAdmin}
	default:
		return []Role{RoleStudent, RoleInstructor, RoleAdmin}
	}
}

type MediaType string

const (
	MediaVideo MediaType = "VIDEO"
	MediaVoice MediaType = "VOICE"
)

type Privacy string

const (
	PrivacyPublic  Privacy = "PUBLIC"
	PrivacyPrivate Privacy = "PRIVATE"
)

type Session struct {
	ID          uuid.UUID     `json:"id"`
	HostID      uuid.UUID     `json:"host_id"`
	Kind        SessionKind   `json:"kind"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	MediaType   MediaType     `json:"media_type"`
	Status      SessionStatus `json:"status"`

	ScheduledAt     *time.Time `json:"scheduled_at"`
	StartedAt       *time.Time `json:"started_at"`
	EndedAt         *time.Time `json:"ended_at"`
	DurationMinutes int        `json:"duration_minutes"`

	MaxParticipants int     `json:"max_participants"`
	Privacy         Privacy `json:"privacy"`
	RequireApproval bool    `json:"require_approval"`

	AllowChat              bool `json:"allow_chat"`
	AllowScreenShare       bool `json:"allow_screen_share"`
	AllowHandRaise         bool `json:"allow_hand_raise"`
	AllowParticipantMic    bool `json:"allow_participant_mic"`
	AllowParticipantCamera bool `json:"allow_participant_camera"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SessionSettingsUpdate carries the mutable settings of a session.
// Nil fields are left unchanged. HostID and Status are deliberately
// absent; they are owned by the lifecycle transitions.
type SessionSettingsUpdate struct {
	Title                  *string  `json:"title"`
	Description            *string  `json:"description"`
	MaxParticipants        *int     `json:"max_participants"`
	Privacy                *Privacy `json:"privacy"`
	RequireApproval        *bool    `json:"require_approval"`
	AllowChat              *bool    `json:"allow_chat"`
	AllowScreenShare       *bool    `json:"allow_screen_share"`
	AllowHandRaise         *bool    `json:"allow_hand_raise"`
	AllowParticipantMic    *bool    `json:"allow_participant_mic"`
	AllowParticipantCamera *bool    `json:"allow_participant_camera"`
}

type CreateSessionRequest struct {
	Kind                   SessionKind `json:"kind"`
	Title                  string      `json:"title"`
	Description            string      `json:"description"`
	MediaType              MediaType   `json:"media_type"`
	ScheduledAt            *time.Time  `json:"scheduled_at"`
	MaxParticipants        int         `json:"max_participants"`
	Privacy                Privacy     `json:"privacy"`
	RequireApproval        bool        `json:"require_approval"`
	AllowChat              *bool       `json:"allow_chat"`
	AllowScreenShare       *bool       `json:"allow_screen_share"`
	AllowHandRaise         *bool       `json:"allow_hand_raise"`
	AllowParticipantMic    *bool       `json:"allow_participant_mic"`
	AllowParticipantCamera *bool       `json:"allow_participant_camera"`
}
