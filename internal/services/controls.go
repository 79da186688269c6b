package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"aula-backend/internal/models"
)

type ControlAction string

const (
	ActionMute        ControlAction = "mute"
	ActionUnmute      ControlAction = "unmute"
	ActionCameraOff   ControlAction = "camera-off"
	ActionCameraOn    ControlAction = "camera-on"
	ActionAllowSpeak  ControlAction = "allow-speak"
	ActionRevokeSpeak ControlAction = "revoke-speak"
	ActionAllowShare  ControlAction = "allow-share"
	ActionRevokeShare ControlAction = "revoke-share"
	ActionRaiseHand   ControlAction = "raise-hand"
	ActionLowerHand   ControlAction = "lower-hand"
	ActionKick        ControlAction = "kick"
)

// hostActions declares, once per action, the flag update a host or admin
// applies to a target participant. Kick is handled separately because it
// changes presence, not flags.
var hostActions = map[ControlAction]func() models.ParticipantUpdate{
	ActionMute:      func() models.ParticipantUpdate { return models.ParticipantUpdate{IsMuted: boolPtr(true)} },
	ActionUnmute:    func() models.ParticipantUpdate { return models.ParticipantUpdate{IsMuted: boolPtr(false)} },
	ActionCameraOff: func() models.ParticipantUpdate { return models.ParticipantUpdate{IsCameraOff: boolPtr(true)} },
	ActionCameraOn:  func() models.ParticipantUpdate { return models.ParticipantUpdate{IsCameraOff: boolPtr(false)} },
	ActionAllowSpeak: func() models.ParticipantUpdate {
		return models.ParticipantUpdate{CanSpeak: boolPtr(true)}
	},
	// Revoking speech also forces the mic off.
	ActionRevokeSpeak: func() models.ParticipantUpdate {
		return models.ParticipantUpdate{CanSpeak: boolPtr(false), IsMuted: boolPtr(true)}
	},
	ActionAllowShare:  func() models.ParticipantUpdate { return models.ParticipantUpdate{CanShare: boolPtr(true)} },
	ActionRevokeShare: func() models.ParticipantUpdate { return models.ParticipantUpdate{CanShare: boolPtr(false)} },
	ActionLowerHand:   func() models.ParticipantUpdate { return models.ParticipantUpdate{IsHandRaised: boolPtr(false)} },
}

type selfRule struct {
	gate   func(s *models.Session, p *models.Participant) string // non-empty = forbidden reason
	update func() models.ParticipantUpdate
}

// selfActions declares the participant's own actions and the session
// setting or capability that gates each one.
var selfActions = map[ControlAction]selfRule{
	ActionRaiseHand: {
		gate: func(s *models.Session, p *models.Participant) string {
			if !s.AllowHandRaise {
				return "Hand raising is disabled for this session"
			}
			return ""
		},
		update: func() models.ParticipantUpdate { return models.ParticipantUpdate{IsHandRaised: boolPtr(true)} },
	},
	ActionLowerHand: {
		update: func() models.ParticipantUpdate { return models.ParticipantUpdate{IsHandRaised: boolPtr(false)} },
	},
	ActionMute: {
		update: func() models.ParticipantUpdate { return models.ParticipantUpdate{IsMuted: boolPtr(true)} },
	},
	ActionUnmute: {
		gate: func(s *models.Session, p *models.Participant) string {
			if !p.CanSpeak {
				return "You have not been granted the right to speak"
			}
			return ""
		},
		update: func() models.ParticipantUpdate { return models.ParticipantUpdate{IsMuted: boolPtr(false)} },
	},
	ActionCameraOn: {
		gate: func(s *models.Session, p *models.Participant) string {
			if !s.AllowParticipantCamera {
				return "Participant cameras are disabled for this session"
			}
			return ""
		},
		update: func() models.ParticipantUpdate { return models.ParticipantUpdate{IsCameraOff: boolPtr(false)} },
	},
	ActionCameraOff: {
		update: func() models.ParticipantUpdate { return models.ParticipantUpdate{IsCameraOff: boolPtr(true)} },
	},
}

// ControlService applies host-issued and self-service control actions to
// participant rows. Every action is a single-field update validated
// against the session settings and the participant's state.
type ControlService struct {
	store  Store
	access *AccessController
	fanout NotificationFanout
}

func NewControlService(store Store, access *AccessController, fanout NotificationFanout) *ControlService {
	return &ControlService{store: store, access: access, fanout: fanout}
}

// HostAction applies an action to a target participant on behalf of the
// host or an admin.
func (s *ControlService) HostAction(ctx context.Context, actor models.Identity, sessionID, targetUserID uuid.UUID, action ControlAction) (*models.Participant, error) {
	session, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !s.access.CanControl(session, actor) {
		return nil, &UnauthorizedError{Message: "Only the host or an admin may control participants"}
	}

	// The host row keeps full capabilities for the life of the session.
	if targetUserID == session.HostID && (action == ActionKick || action == ActionRevokeSpeak || action == ActionRevokeShare) {
		return nil, &ForbiddenError{Message: "The host's capabilities cannot be revoked"}
	}

	if action == ActionKick {
		return s.kick(ctx, session, targetUserID)
	}

	mk, ok := hostActions[action]
	if !ok {
		return nil, &ValidationError{Fields: map[string]string{"action": "Unknown host action"}}
	}
	if (action == ActionAllowShare) && !session.AllowScreenShare {
		return nil, &ForbiddenError{Message: "Screen sharing is disabled for this session"}
	}

	p, err := s.store.UpdateParticipantFlags(ctx, sessionID, targetUserID, mk())
	if err != nil {
		return nil, err
	}

	s.publish(sessionID, "participant_updated", p)
	return p, nil
}

// SelfAction applies one of the participant's own actions, validated
// against the session settings.
func (s *ControlService) SelfAction(ctx context.Context, actor models.Identity, sessionID uuid.UUID, action ControlAction) (*models.Participant, error) {
	session, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	rule, ok := selfActions[action]
	if !ok {
		return nil, &ValidationError{Fields: map[string]string{"action": "Unknown self action"}}
	}

	p, err := s.store.GetParticipant(ctx, sessionID, actor.ID)
	if err != nil {
		return nil, err
	}
	if !p.IsActive {
		return nil, &InvalidStateError{Message: "You are not in this session"}
	}

	if rule.gate != nil {
		if reason := rule.gate(session, p); reason != "" {
			return nil, &ForbiddenError{Message: reason}
		}
	}

	updated, err := s.store.UpdateParticipantFlags(ctx, sessionID, actor.ID, rule.update())
	if err != nil {
		return nil, err
	}

	s.publish(sessionID, "participant_updated", updated)
	return updated, nil
}

func (s *ControlService) kick(ctx context.Context, session *models.Session, targetUserID uuid.UUID) (*models.Participant, error) {
	p, err := s.store.GetParticipant(ctx, session.ID, targetUserID)
	if err != nil {
		return nil, err
	}
	if !p.IsActive {
		return nil, &InvalidStateError{Message: "Participant is not active"}
	}

	// The row stays (and so does any invitation); only presence changes.
	kicked, err := s.store.DeactivateParticipant(ctx, session.ID, targetUserID, time.Now().UTC())
	if err != nil {
		return nil, err
	}

	s.publish(session.ID, "participant_kicked", kicked)
	return kicked, nil
}

func (s *ControlService) publish(sessionID uuid.UUID, eventType string, p *models.Participant) {
	if s.fanout == nil {
		return
	}
	ev := models.RosterEvent{SessionID: sessionID, UserID: p.UserID, DisplayName: p.DisplayName}
	fireAndForget("publish "+eventType, func(ctx context.Context) error {
		return s.fanout.PublishEvent(ctx, sessionID, models.WSMessage{Type: eventType, Payload: ev})
	})
}

func boolPtr(v bool) *bool { return &v }
