package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"aula-backend/internal/models"
)

// fakeFanout records every fanout call so tests can assert on the
// fire-and-forget side effects.
type fakeFanout struct {
	mu       sync.Mutex
	invited  [][]uuid.UUID
	audience []uuid.UUID // session IDs
	events   []models.WSMessage
}

func (f *fakeFanout) NotifyInvited(ctx context.Context, session *models.Session, userIDs []uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.invited = append(f.invited, userIDs)
	return nil
}

func (f *fakeFanout) NotifyAudience(ctx context.Context, session *models.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.audience = append(f.audience, session.ID)
	return nil
}

func (f *fakeFanout) PublishEvent(ctx context.Context, sessionID uuid.UUID, msg models.WSMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, msg)
	return nil
}

func (f *fakeFanout) invitedBatches() [][]uuid.UUID {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([][]uuid.UUID, len(f.invited))
	copy(out, f.invited)
	return out
}

// waitForInvited polls until at least n batches were recorded. Fanout is
// asynchronous, so tests that assert on it have to wait briefly.
func (f *fakeFanout) waitForInvited(t *testing.T, n int) [][]uuid.UUID {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		batches := f.invitedBatches()
		if len(batches) >= n {
			return batches
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("expected %d invitation fanout batches, got %d", n, len(f.invitedBatches()))
	return nil
}

// fakeDirectory serves invitee lookups from a fixed user set.
type fakeDirectory struct {
	users map[uuid.UUID]models.User
}

func newFakeDirectory(users ...models.User) *fakeDirectory {
	d := &fakeDirectory{users: make(map[uuid.UUID]models.User)}
	for _, u := range users {
		d.users[u.ID] = u
	}
	return d
}

func (d *fakeDirectory) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	u, ok := d.users[id]
	if !ok {
		return nil, &NotFoundError{Message: "User not found"}
	}
	return &u, nil
}

func (d *fakeDirectory) ListByIDs(ctx context.Context, ids []uuid.UUID) ([]models.User, error) {
	var out []models.User
	for _, id := range ids {
		if u, ok := d.users[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

func newIdentity(role models.Role) models.Identity {
	return models.Identity{ID: uuid.New(), DisplayName: string(role) + " user", Role: role}
}

func newUser(role models.Role) models.User {
	id := uuid.New()
	return models.User{
		ID:       id,
		Email:    id.String()[:8] + "@example.com",
		FullName: string(role) + " user",
		Role:     role,
		IsActive: true,
	}
}

func createRequest() models.CreateSessionRequest {
	return models.CreateSessionRequest{
		Kind:            models.KindClassroom,
		Title:           "Intro to Distributed Systems",
		MediaType:       models.MediaVideo,
		MaxParticipants: 10,
		Privacy:         models.PrivacyPublic,
	}
}

func futureTime() *time.Time {
	t := time.Now().UTC().Add(time.Hour)
	return &t
}

// mustCreate builds a live (or scheduled) session through the real
// service so the store holds the same state production would.
func mustCreate(t *testing.T, svc *SessionService, host models.Identity, req models.CreateSessionRequest) *models.Session {
	t.Helper()
	session, err := svc.Create(context.Background(), host, req)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	return session
}

func mustJoin(t *testing.T, svc *RosterService, actor models.Identity, sessionID uuid.UUID) *models.Participant {
	t.Helper()
	p, err := svc.Join(context.Background(), actor, sessionID)
	if err != nil {
		t.Fatalf("join session: %v", err)
	}
	return p
}
