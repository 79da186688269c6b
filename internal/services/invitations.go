package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"aula-backend/internal/models"
)

// UserDirectory resolves invitee identities. Implemented by the user
// repository; only lookup is needed here.
type UserDirectory interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	ListByIDs(ctx context.Context, ids []uuid.UUID) ([]models.User, error)
}

// InvitationService owns invitation rows for private-session access.
// Inviting an already-invited user is a no-op; a declined user may be
// re-invited by the host, which resets the row to PENDING.
type InvitationService struct {
	store  Store
	users  UserDirectory
	access *AccessController
	fanout NotificationFanout
}

func NewInvitationService(store Store, users UserDirectory, access *AccessController, fanout NotificationFanout) *InvitationService {
	return &InvitationService{store: store, users: users, access: access, fanout: fanout}
}

func (s *InvitationService) Invite(ctx context.Context, actor models.Identity, sessionID uuid.UUID, userIDs []uuid.UUID) (*models.InviteResult, error) {
	session, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !s.access.CanControl(session, actor) {
		return nil, &UnauthorizedError{Message: "Only the host or an admin may invite"}
	}
	if len(userIDs) == 0 {
		return nil, &ValidationError{Fields: map[string]string{"user_ids": "At least one user is required"}}
	}
	if session.Status.Terminal() {
		return nil, &InvalidStateError{Message: "Session has ended"}
	}

	targets := make([]uuid.UUID, 0, len(userIDs))
	seen := make(map[uuid.UUID]bool)
	for _, id := range userIDs {
		if id == session.HostID || seen[id] {
			continue
		}
		seen[id] = true
		targets = append(targets, id)
	}

	users, err := s.users.ListByIDs(ctx, targets)
	if err != nil {
		return nil, err
	}

	result := &models.InviteResult{}
	now := time.Now().UTC()
	newlyInvited := make([]uuid.UUID, 0, len(users))

	for i := range users {
		u := &users[i]
		created, err := s.store.PutInvitation(ctx, &models.Invitation{
			SessionID:   sessionID,
			UserID:      u.ID,
			DisplayName: u.FullName,
			InvitedBy:   actor.ID,
			Status:      models.InvitationPending,
			CreatedAt:   now,
		})
		if err != nil {
			return nil, err
		}
		if created {
			result.Invited++
			newlyInvited = append(newlyInvited, u.ID)
		} else {
			result.AlreadyInvited++
		}
	}

	if len(newlyInvited) > 0 && s.fanout != nil {
		snapshot := *session
		ids := newlyInvited
		fireAndForget("notify invited", func(ctx context.Context) error {
			return s.fanout.NotifyInvited(ctx, &snapshot, ids)
		})
	}

	return result, nil
}

// Remove deletes an invitation. Removing a missing invitation is not an
// error.
func (s *InvitationService) Remove(ctx context.Context, actor models.Identity, sessionID, userID uuid.UUID) error {
	session, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}
	if !s.access.CanControl(session, actor) {
		return &UnauthorizedError{Message: "Only the host or an admin may remove invitations"}
	}
	return s.store.DeleteInvitation(ctx, sessionID, userID)
}

// Decline marks the caller's own invitation DECLINED. A declined invitee
// loses any private-session join right until re-invited.
func (s *InvitationService) Decline(ctx context.Context, actor models.Identity, sessionID uuid.UUID) (*models.Invitation, error) {
	if _, err := s.store.GetSession(ctx, sessionID); err != nil {
		return nil, err
	}
	return s.store.DeclineInvitation(ctx, sessionID, actor.ID, time.Now().UTC())
}

func (s *InvitationService) List(ctx context.Context, actor models.Identity, sessionID uuid.UUID) ([]models.Invitation, error) {
	session, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !s.access.CanControl(session, actor) {
		return nil, &UnauthorizedError{Message: "Only the host or an admin may list invitations"}
	}
	return s.store.ListInvitations(ctx, sessionID)
}
