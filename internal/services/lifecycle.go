package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"aula-backend/internal/models"
)

// SessionService owns the session status state machine. Every transition
// is delegated to the store as a compare-and-swap so that two racing
// callers can never both apply the same transition.
type SessionService struct {
	store  Store
	access *AccessController
	fanout NotificationFanout
}

func NewSessionService(store Store, access *AccessController, fanout NotificationFanout) *SessionService {
	return &SessionService{store: store, access: access, fanout: fanout}
}

func (s *SessionService) Create(ctx context.Context, actor models.Identity, req models.CreateSessionRequest) (*models.Session, error) {
	if actor.Role != models.RoleInstructor && actor.Role != models.RoleAdmin {
		return nil, &UnauthorizedError{Message: "Only instructors and admins may host sessions"}
	}

	fieldErrors := make(map[string]string)
	if req.Title == "" {
		fieldErrors["title"] = "Title is required"
	}
	if req.MaxParticipants < 2 {
		fieldErrors["max_participants"] = "Capacity must allow the host plus at least one participant"
	}
	if req.MediaType != models.MediaVideo && req.MediaType != models.MediaVoice {
		fieldErrors["media_type"] = "Media type must be VIDEO or VOICE"
	}
	now := time.Now().UTC()
	if req.ScheduledAt != nil && req.ScheduledAt.Before(now) {
		fieldErrors["scheduled_at"] = "Scheduled time must be in the future"
	}
	if len(fieldErrors) > 0 {
		return nil, &ValidationError{Fields: fieldErrors}
	}

	kind := req.Kind
	if kind == "" {
		kind = models.KindClassroom
	}
	privacy := req.Privacy
	if privacy == "" {
		privacy = models.PrivacyPublic
	}

	session := &models.Session{
		ID:              uuid.New(),
		HostID:          actor.ID,
		Kind:            kind,
		Title:           req.Title,
		Description:     req.Description,
		MediaType:       req.MediaType,
		ScheduledAt:     req.ScheduledAt,
		MaxParticipants: req.MaxParticipants,
		Privacy:         privacy,
		RequireApproval: req.RequireApproval,

		AllowChat:              boolOrDefault(req.AllowChat, true),
		AllowScreenShare:       boolOrDefault(req.AllowScreenShare, true),
		AllowHandRaise:         boolOrDefault(req.AllowHandRaise, true),
		AllowParticipantMic:    boolOrDefault(req.AllowParticipantMic, true),
		AllowParticipantCamera: boolOrDefault(req.AllowParticipantCamera, true),

		CreatedAt: now,
		UpdatedAt: now,
	}

	// No scheduled time means the session goes live immediately.
	if req.ScheduledAt == nil {
		session.Status = models.SessionLive
		session.StartedAt = &now
	} else {
		session.Status = models.SessionScheduled
	}

	host := &models.Participant{
		SessionID:   session.ID,
		UserID:      actor.ID,
		DisplayName: actor.DisplayName,
		Role:        actor.Role,
		IsActive:    session.Status == models.SessionLive,
		JoinedAt:    now,
		CanSpeak:    true,
		CanShare:    true,
		IsHost:      true,
	}

	if err := s.store.CreateSession(ctx, session, host); err != nil {
		return nil, err
	}

	if session.Status == models.SessionLive && session.Privacy == models.PrivacyPublic {
		s.notifyAudience(session)
	}

	return session, nil
}

func (s *SessionService) Get(ctx context.Context, actor models.Identity, id uuid.UUID) (*models.Session, error) {
	session, err := s.store.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}

	inv, err := s.invitationFor(ctx, session, actor)
	if err != nil {
		return nil, err
	}
	if !s.access.CanView(session, actor, inv) {
		return nil, &ForbiddenError{Message: "You do not have access to this session"}
	}
	return session, nil
}

func (s *SessionService) List(ctx context.Context, actor models.Identity, f SessionFilter) ([]*models.Session, error) {
	sessions, err := s.store.ListSessions(ctx, f)
	if err != nil {
		return nil, err
	}

	visible := make([]*models.Session, 0, len(sessions))
	for _, session := range sessions {
		inv, err := s.invitationFor(ctx, session, actor)
		if err != nil {
			return nil, err
		}
		if s.access.CanView(session, actor, inv) {
			visible = append(visible, session)
		}
	}
	return visible, nil
}

func (s *SessionService) Start(ctx context.Context, actor models.Identity, id uuid.UUID) (*models.Session, error) {
	session, err := s.authorizeControl(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	started, err := s.store.StartSession(ctx, session.ID, time.Now().UTC())
	if err != nil {
		return nil, err
	}

	if started.Privacy == models.PrivacyPublic {
		s.notifyAudience(started)
	}
	s.publish(started.ID, models.WSMessage{
		Type:    "session_started",
		Payload: models.SessionEvent{SessionID: started.ID, Status: started.Status, Title: started.Title},
	})
	return started, nil
}

func (s *SessionService) End(ctx context.Context, actor models.Identity, id uuid.UUID) (*models.Session, error) {
	session, err := s.authorizeControl(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	ended, err := s.store.EndSession(ctx, session.ID, time.Now().UTC())
	if err != nil {
		return nil, err
	}

	s.publish(ended.ID, models.WSMessage{
		Type:    "session_ended",
		Payload: models.SessionEvent{SessionID: ended.ID, Status: ended.Status},
	})
	return ended, nil
}

func (s *SessionService) Cancel(ctx context.Context, actor models.Identity, id uuid.UUID) (*models.Session, error) {
	session, err := s.authorizeControl(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	cancelled, err := s.store.CancelSession(ctx, session.ID, time.Now().UTC())
	if err != nil {
		return nil, err
	}

	s.publish(cancelled.ID, models.WSMessage{
		Type:    "session_cancelled",
		Payload: models.SessionEvent{SessionID: cancelled.ID, Status: cancelled.Status},
	})
	return cancelled, nil
}

func (s *SessionService) UpdateSettings(ctx context.Context, actor models.Identity, id uuid.UUID, upd models.SessionSettingsUpdate) (*models.Session, error) {
	if _, err := s.authorizeControl(ctx, actor, id); err != nil {
		return nil, err
	}

	if upd.MaxParticipants != nil && *upd.MaxParticipants < 2 {
		return nil, &ValidationError{Fields: map[string]string{
			"max_participants": "Capacity must allow the host plus at least one participant",
		}}
	}
	if upd.Privacy != nil && *upd.Privacy != models.PrivacyPublic && *upd.Privacy != models.PrivacyPrivate {
		return nil, &ValidationError{Fields: map[string]string{
			"privacy": "Privacy must be PUBLIC or PRIVATE",
		}}
	}

	return s.store.UpdateSessionSettings(ctx, id, upd)
}

func (s *SessionService) Delete(ctx context.Context, actor models.Identity, id uuid.UUID) error {
	session, err := s.authorizeControl(ctx, actor, id)
	if err != nil {
		return err
	}

	if session.Status == models.SessionLive {
		return &InvalidStateError{Message: "A live session must be ended before deletion"}
	}
	return s.store.DeleteSession(ctx, session.ID)
}

func (s *SessionService) authorizeControl(ctx context.Context, actor models.Identity, id uuid.UUID) (*models.Session, error) {
	session, err := s.store.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.access.CanControl(session, actor) {
		return nil, &UnauthorizedError{Message: "Only the host or an admin may manage this session"}
	}
	return session, nil
}

func (s *SessionService) invitationFor(ctx context.Context, session *models.Session, actor models.Identity) (*models.Invitation, error) {
	if session.Privacy != models.PrivacyPrivate || s.access.CanControl(session, actor) {
		return nil, nil
	}
	inv, err := s.store.GetInvitation(ctx, session.ID, actor.ID)
	if err != nil {
		if _, ok := err.(*NotFoundError); ok {
			return nil, nil
		}
		return nil, err
	}
	return inv, nil
}

func (s *SessionService) notifyAudience(session *models.Session) {
	if s.fanout == nil {
		return
	}
	snapshot := *session
	fireAndForget("notify audience", func(ctx context.Context) error {
		return s.fanout.NotifyAudience(ctx, &snapshot)
	})
}

func (s *SessionService) publish(sessionID uuid.UUID, msg models.WSMessage) {
	if s.fanout == nil {
		return
	}
	fireAndForget("publish "+msg.Type, func(ctx context.Context) error {
		return s.fanout.PublishEvent(ctx, sessionID, msg)
	})
}

func boolOrDefault(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}
