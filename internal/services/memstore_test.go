package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"aula-backend/internal/models"
)

// memStore is an in-memory Store used by the service tests. A single
// mutex serializes every operation, which satisfies the atomicity
// contract the services rely on.
type memStore struct {
	mu           sync.Mutex
	sessions     map[uuid.UUID]*models.Session
	participants map[uuid.UUID]map[uuid.UUID]*models.Participant
	invitations  map[uuid.UUID]map[uuid.UUID]*models.Invitation
}

func newMemStore() *memStore {
	return &memStore{
		sessions:     make(map[uuid.UUID]*models.Session),
		participants: make(map[uuid.UUID]map[uuid.UUID]*models.Participant),
		invitations:  make(map[uuid.UUID]map[uuid.UUID]*models.Invitation),
	}
}

func (m *memStore) CreateSession(ctx context.Context, s *models.Session, host *models.Participant) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *s
	m.sessions[s.ID] = &cp
	m.participants[s.ID] = map[uuid.UUID]*models.Participant{}
	m.invitations[s.ID] = map[uuid.UUID]*models.Invitation{}

	hp := *host
	m.participants[s.ID][host.UserID] = &hp
	return nil
}

func (m *memStore) GetSession(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.getSessionLocked(id)
}

func (m *memStore) getSessionLocked(id uuid.UUID) (*models.Session, error) {
	s, ok := m.sessions[id]
	if !ok {
		return nil, &NotFoundError{Message: "Session not found"}
	}
	cp := *s
	return &cp, nil
}

func (m *memStore) ListSessions(ctx context.Context, f SessionFilter) ([]*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*models.Session
	for _, s := range m.sessions {
		if f.Status != nil && s.Status != *f.Status {
			continue
		}
		if f.Kind != nil && s.Kind != *f.Kind {
			continue
		}
		if f.HostID != nil && s.HostID != *f.HostID {
			continue
		}
		cp := *s
		out = append(out, &cp)
	}
	return out, nil
}

func (m *memStore) StartSession(ctx context.Context, id uuid.UUID, at time.Time) (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, &NotFoundError{Message: "Session not found"}
	}
	if s.Status != models.SessionScheduled {
		return nil, &InvalidStateError{Message: "Session can only be started from SCHEDULED"}
	}

	s.Status = models.SessionLive
	s.StartedAt = &at
	s.UpdatedAt = at

	if host, ok := m.participants[id][s.HostID]; ok {
		host.IsActive = true
		host.JoinedAt = at
		host.LeftAt = nil
	}

	cp := *s
	return &cp, nil
}

func (m *memStore) EndSession(ctx context.Context, id uuid.UUID, at time.Time) (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, &NotFoundError{Message: "Session not found"}
	}
	if s.Status != models.SessionLive {
		return nil, &InvalidStateError{Message: "Session can only be ended while LIVE"}
	}

	s.Status = models.SessionEnded
	s.EndedAt = &at
	s.UpdatedAt = at
	if s.StartedAt != nil {
		mins := int(at.Sub(*s.StartedAt).Round(time.Minute) / time.Minute)
		if mins < 0 {
			mins = 0
		}
		s.DurationMinutes = mins
	}

	for _, p := range m.participants[id] {
		if p.IsActive {
			p.IsActive = false
			leftAt := at
			p.LeftAt = &leftAt
		}
	}

	cp := *s
	return &cp, nil
}

func (m *memStore) CancelSession(ctx context.Context, id uuid.UUID, at time.Time) (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, &NotFoundError{Message: "Session not found"}
	}
	if s.Status != models.SessionScheduled {
		return nil, &InvalidStateError{Message: "Only a scheduled session can be cancelled; end a live session instead"}
	}

	s.Status = models.SessionCancelled
	s.UpdatedAt = at

	for _, p := range m.participants[id] {
		if p.IsActive {
			p.IsActive = false
			leftAt := at
			p.LeftAt = &leftAt
		}
	}

	cp := *s
	return &cp, nil
}

func (m *memStore) UpdateSessionSettings(ctx context.Context, id uuid.UUID, upd models.SessionSettingsUpdate) (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, &NotFoundError{Message: "Session not found"}
	}
	if s.Status.Terminal() {
		return nil, &InvalidStateError{Message: "Settings cannot be changed after the session has ended"}
	}

	if upd.Title != nil {
		s.Title = *upd.Title
	}
	if upd.Description != nil {
		s.Description = *upd.Description
	}
	if upd.MaxParticipants != nil {
		s.MaxParticipants = *upd.MaxParticipants
	}
	if upd.Privacy != nil {
		s.Privacy = *upd.Privacy
	}
	if upd.RequireApproval != nil {
		s.RequireApproval = *upd.RequireApproval
	}
	if upd.AllowChat != nil {
		s.AllowChat = *upd.AllowChat
	}
	if upd.AllowScreenShare != nil {
		s.AllowScreenShare = *upd.AllowScreenShare
	}
	if upd.AllowHandRaise != nil {
		s.AllowHandRaise = *upd.AllowHandRaise
	}
	if upd.AllowParticipantMic != nil {
		s.AllowParticipantMic = *upd.AllowParticipantMic
	}
	if upd.AllowParticipantCamera != nil {
		s.AllowParticipantCamera = *upd.AllowParticipantCamera
	}
	s.UpdatedAt = time.Now().UTC()

	cp := *s
	return &cp, nil
}

func (m *memStore) DeleteSession(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return &NotFoundError{Message: "Session not found"}
	}
	if s.Status == models.SessionLive {
		return &InvalidStateError{Message: "A live session cannot be deleted"}
	}

	delete(m.sessions, id)
	delete(m.participants, id)
	delete(m.invitations, id)
	return nil
}

func (m *memStore) JoinSession(ctx context.Context, p *models.Participant) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[p.SessionID]
	if !ok {
		return &NotFoundError{Message: "Session not found"}
	}
	if s.Status != models.SessionLive {
		return &InvalidStateError{Message: "Session is not live"}
	}

	active := 0
	for _, existing := range m.participants[p.SessionID] {
		if existing.IsActive && existing.UserID != p.UserID {
			active++
		}
	}
	if active+1 > s.MaxParticipants {
		return &CapacityError{Message: "Session is full"}
	}

	cp := *p
	m.participants[p.SessionID][p.UserID] = &cp

	if inv, ok := m.invitations[p.SessionID][p.UserID]; ok && inv.Status == models.InvitationPending {
		inv.Status = models.InvitationAccepted
		respondedAt := p.JoinedAt
		inv.RespondedAt = &respondedAt
	}
	return nil
}

func (m *memStore) GetParticipant(ctx context.Context, sessionID, userID uuid.UUID) (*models.Participant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.participants[sessionID][userID]
	if !ok {
		return nil, &NotFoundError{Message: "Participant not found"}
	}
	cp := *p
	return &cp, nil
}

func (m *memStore) ListParticipants(ctx context.Context, sessionID uuid.UUID, activeOnly bool) ([]models.Participant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []models.Participant
	for _, p := range m.participants[sessionID] {
		if activeOnly && !p.IsActive {
			continue
		}
		out = append(out, *p)
	}
	return out, nil
}

func (m *memStore) CountActiveParticipants(ctx context.Context, sessionID uuid.UUID) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	count := 0
	for _, p := range m.participants[sessionID] {
		if p.IsActive {
			count++
		}
	}
	return count, nil
}

func (m *memStore) UpdateParticipantFlags(ctx context.Context, sessionID, userID uuid.UUID, upd models.ParticipantUpdate) (*models.Participant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.participants[sessionID][userID]
	if !ok {
		return nil, &NotFoundError{Message: "Participant not found"}
	}
	if !p.IsActive {
		return nil, &InvalidStateError{Message: "Participant is not active"}
	}

	if upd.IsMuted != nil {
		p.IsMuted = *upd.IsMuted
	}
	if upd.IsCameraOff != nil {
		p.IsCameraOff = *upd.IsCameraOff
	}
	if upd.IsHandRaised != nil {
		p.IsHandRaised = *upd.IsHandRaised
	}
	if upd.CanSpeak != nil {
		p.CanSpeak = *upd.CanSpeak
	}
	if upd.CanShare != nil {
		p.CanShare = *upd.CanShare
	}

	cp := *p
	return &cp, nil
}

func (m *memStore) DeactivateParticipant(ctx context.Context, sessionID, userID uuid.UUID, at time.Time) (*models.Participant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.participants[sessionID][userID]
	if !ok {
		return nil, &NotFoundError{Message: "Participant not found"}
	}
	if p.IsActive {
		p.IsActive = false
		leftAt := at
		p.LeftAt = &leftAt
	}

	cp := *p
	return &cp, nil
}

func (m *memStore) GetInvitation(ctx context.Context, sessionID, userID uuid.UUID) (*models.Invitation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	inv, ok := m.invitations[sessionID][userID]
	if !ok {
		return nil, &NotFoundError{Message: "Invitation not found"}
	}
	cp := *inv
	return &cp, nil
}

func (m *memStore) ListInvitations(ctx context.Context, sessionID uuid.UUID) ([]models.Invitation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []models.Invitation
	for _, inv := range m.invitations[sessionID] {
		out = append(out, *inv)
	}
	return out, nil
}

func (m *memStore) PutInvitation(ctx context.Context, inv *models.Invitation) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.invitations[inv.SessionID] == nil {
		m.invitations[inv.SessionID] = map[uuid.UUID]*models.Invitation{}
	}

	existing, ok := m.invitations[inv.SessionID][inv.UserID]
	if ok {
		if existing.Status != models.InvitationDeclined {
			return false, nil
		}
		existing.Status = models.InvitationPending
		existing.RespondedAt = nil
		existing.InvitedBy = inv.InvitedBy
		existing.CreatedAt = inv.CreatedAt
		return true, nil
	}

	cp := *inv
	m.invitations[inv.SessionID][inv.UserID] = &cp
	return true, nil
}

func (m *memStore) DeclineInvitation(ctx context.Context, sessionID, userID uuid.UUID, at time.Time) (*models.Invitation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	inv, ok := m.invitations[sessionID][userID]
	if !ok {
		return nil, &NotFoundError{Message: "Invitation not found"}
	}

	switch inv.Status {
	case models.InvitationPending:
		inv.Status = models.InvitationDeclined
		respondedAt := at
		inv.RespondedAt = &respondedAt
	case models.InvitationDeclined:
		// no-op
	default:
		return nil, &InvalidStateError{Message: "Invitation was already accepted"}
	}

	cp := *inv
	return &cp, nil
}

func (m *memStore) DeleteInvitation(ctx context.Context, sessionID, userID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.invitations[sessionID], userID)
	return nil
}
