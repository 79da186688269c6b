package models

import (
	"time"

	"github.com/google/uuid"
)

// NotificationJob is the unit of work placed on the notification queue.
type NotificationJob struct {
	ID        uuid.UUID   `json:"id"`
	Kind      string      `json:"kind"` // "invitation" | "session-live"
	SessionID uuid.UUID   `json:"session_id"`
	UserIDs   []uuid.UUID `json:"user_ids,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
}
