package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"aula-backend/internal/models"
)

type SessionFilter struct {
	Status *models.SessionStatus
	Kind   *models.SessionKind
	HostID *uuid.UUID
}

// Store is the durable record of sessions and their participant and
// invitation collections. Implementations must make the documented
// compound operations atomic: concurrent callers racing on the same
// session must never observe a partially-applied transition, and the
// capacity check in JoinSession must include the joining row itself.
//
// Expected failures are reported with the typed errors in this package
// (NotFoundError, InvalidStateError, CapacityError); infrastructure
// failures are wrapped in StorageError.
type Store interface {
	// CreateSession inserts the session and its host participant row in
	// one atomic step.
	CreateSession(ctx context.Context, s *models.Session, host *models.Participant) error
	GetSession(ctx context.Context, id uuid.UUID) (*models.Session, error)
	ListSessions(ctx context.Context, f SessionFilter) ([]*models.Session, error)

	// StartSession transitions SCHEDULED to LIVE and activates the host
	// participant row, conditioned on the status still being SCHEDULED.
	StartSession(ctx context.Context, id uuid.UUID, at time.Time) (*models.Session, error)

	// EndSession transitions LIVE to ENDED, computes the session duration
	// in whole minutes, and deactivates every participant. All of this is
	// one atomic unit; no participant may remain active afterwards.
	EndSession(ctx context.Context, id uuid.UUID, at time.Time) (*models.Session, error)

	// CancelSession transitions SCHEDULED to CANCELLED, deactivating any
	// active participant rows in the same step.
	CancelSession(ctx context.Context, id uuid.UUID, at time.Time) (*models.Session, error)

	// UpdateSessionSettings applies non-nil fields, rejecting terminal
	// sessions with InvalidStateError.
	UpdateSessionSettings(ctx context.Context, id uuid.UUID, upd models.SessionSettingsUpdate) (*models.Session, error)
	DeleteSession(ctx context.Context, id uuid.UUID) error

	// JoinSession inserts or reactivates the given participant row as one
	// atomic unit: it re-checks that the session is LIVE, verifies the
	// active-participant count (including this join) stays within
	// MaxParticipants, upserts the row, and accepts a matching PENDING
	// invitation if one exists.
	JoinSession(ctx context.Context, p *models.Participant) error

	GetParticipant(ctx context.Context, sessionID, userID uuid.UUID) (*models.Participant, error)
	ListParticipants(ctx context.Context, sessionID uuid.UUID, activeOnly bool) ([]models.Participant, error)
	CountActiveParticipants(ctx context.Context, sessionID uuid.UUID) (int, error)

	// UpdateParticipantFlags applies non-nil flag fields to an active
	// participant; inactive rows are rejected with InvalidStateError.
	UpdateParticipantFlags(ctx context.Context, sessionID, userID uuid.UUID, upd models.ParticipantUpdate) (*models.Participant, error)

	// DeactivateParticipant marks the row inactive with the given leave
	// time. Deactivating an already-inactive row is a no-op.
	DeactivateParticipant(ctx context.Context, sessionID, userID uuid.UUID, at time.Time) (*models.Participant, error)

	GetInvitation(ctx context.Context, sessionID, userID uuid.UUID) (*models.Invitation, error)
	ListInvitations(ctx context.Context, sessionID uuid.UUID) ([]models.Invitation, error)

	// PutInvitation creates the invitation, or resets an existing DECLINED
	// row back to PENDING. It reports created=false when a non-declined
	// row already exists.
	PutInvitation(ctx context.Context, inv *models.Invitation) (created bool, err error)

	// DeclineInvitation transitions PENDING to DECLINED. Declining an
	// already-declined invitation is a no-op; an ACCEPTED one is rejected
	// with InvalidStateError.
	DeclineInvitation(ctx context.Context, sessionID, userID uuid.UUID, at time.Time) (*models.Invitation, error)

	// DeleteInvitation removes the row if present; absent rows are not an
	// error.
	DeleteInvitation(ctx context.Context, sessionID, userID uuid.UUID) error
}
