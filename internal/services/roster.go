package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"aula-backend/internal/models"
)

// RosterService owns participant presence: join, rejoin, leave.
// Rejoining reuses the existing row; a user never holds two rows in the
// same session.
type RosterService struct {
	store  Store
	access *AccessController
	fanout NotificationFanout
}

func NewRosterService(store Store, access *AccessController, fanout NotificationFanout) *RosterService {
	return &RosterService{store: store, access: access, fanout: fanout}
}

// Join admits the caller to a live session. The capacity check and the
// insert happen inside one atomic store operation, so concurrent joins
// cannot overbook the session. Participants always (re)join muted and
// with the camera off.
func (s *RosterService) Join(ctx context.Context, actor models.Identity, sessionID uuid.UUID) (*models.Participant, error) {
	session, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if session.Status != models.SessionLive {
		return nil, &InvalidStateError{Message: "Session is not live"}
	}

	var inv *models.Invitation
	if session.Privacy == models.PrivacyPrivate {
		inv, err = s.lookupInvitation(ctx, sessionID, actor.ID)
		if err != nil {
			return nil, err
		}
	}
	if !s.access.CanJoin(session, actor, inv) {
		return nil, &ForbiddenError{Message: "You do not have access to this session"}
	}

	now := time.Now().UTC()
	p := &models.Participant{
		SessionID:   sessionID,
		UserID:      actor.ID,
		DisplayName: actor.DisplayName,
		Role:        actor.Role,
		IsActive:    true,
		JoinedAt:    now,
		IsMuted:     true,
		IsCameraOff: true,
		CanSpeak:    session.AllowParticipantMic,
	}
	if actor.ID == session.HostID {
		p.IsHost = true
		p.CanSpeak = true
		p.CanShare = true
		p.IsMuted = false
		p.IsCameraOff = false
	}

	if err := s.store.JoinSession(ctx, p); err != nil {
		return nil, err
	}

	s.publishRoster(sessionID, "participant_joined", models.RosterEvent{
		SessionID:   sessionID,
		UserID:      actor.ID,
		DisplayName: actor.DisplayName,
	})
	return p, nil
}

// Leave deactivates the caller's own row. Leaving twice is harmless.
func (s *RosterService) Leave(ctx context.Context, actor models.Identity, sessionID uuid.UUID) error {
	p, err := s.store.DeactivateParticipant(ctx, sessionID, actor.ID, time.Now().UTC())
	if err != nil {
		return err
	}

	s.publishRoster(sessionID, "participant_left", models.RosterEvent{
		SessionID:   sessionID,
		UserID:      p.UserID,
		DisplayName: p.DisplayName,
	})
	return nil
}

func (s *RosterService) List(ctx context.Context, actor models.Identity, sessionID uuid.UUID, activeOnly bool) ([]models.Participant, error) {
	session, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	var inv *models.Invitation
	if session.Privacy == models.PrivacyPrivate {
		inv, err = s.lookupInvitation(ctx, sessionID, actor.ID)
		if err != nil {
			return nil, err
		}
	}
	if !s.access.CanView(session, actor, inv) {
		return nil, &ForbiddenError{Message: "You do not have access to this session"}
	}

	return s.store.ListParticipants(ctx, sessionID, activeOnly)
}

func (s *RosterService) lookupInvitation(ctx context.Context, sessionID, userID uuid.UUID) (*models.Invitation, error) {
	inv, err := s.store.GetInvitation(ctx, sessionID, userID)
	if err != nil {
		if _, ok := err.(*NotFoundError); ok {
			return nil, nil
		}
		return nil, err
	}
	return inv, nil
}

func (s *RosterService) publishRoster(sessionID uuid.UUID, eventType string, ev models.RosterEvent) {
	if s.fanout == nil {
		return
	}
	fireAndForget("publish "+eventType, func(ctx context.Context) error {
		return s.fanout.PublishEvent(ctx, sessionID, models.WSMessage{Type: eventType, Payload: ev})
	})
}
