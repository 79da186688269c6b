package services

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"aula-backend/internal/models"
)

type inviteFixture struct {
	store    *memStore
	sessions *SessionService
	invites  *InvitationService
	roster   *RosterService
	fanout   *fakeFanout
	host     models.Identity
	users    []models.User
}

func newInviteFixture(t *testing.T, userCount int) *inviteFixture {
	t.Helper()
	store := newMemStore()
	access := NewAccessController()
	fanout := &fakeFanout{}

	users := make([]models.User, userCount)
	for i := range users {
		users[i] = newUser(models.RoleStudent)
	}
	dir := newFakeDirectory(users...)

	return &inviteFixture{
		store:    store,
		sessions: NewSessionService(store, access, nil),
		invites:  NewInvitationService(store, dir, access, fanout),
		roster:   NewRosterService(store, access, nil),
		fanout:   fanout,
		host:     newIdentity(models.RoleInstructor),
		users:    users,
	}
}

func (f *inviteFixture) privateSession(t *testing.T) *models.Session {
	req := createRequest()
	req.Privacy = models.PrivacyPrivate
	return mustCreate(t, f.sessions, f.host, req)
}

func (f *inviteFixture) userIDs() []uuid.UUID {
	ids := make([]uuid.UUID, len(f.users))
	for i, u := range f.users {
		ids[i] = u.ID
	}
	return ids
}

func TestInviteUsers(t *testing.T) {
	f := newInviteFixture(t, 3)
	session := f.privateSession(t)

	result, err := f.invites.Invite(context.Background(), f.host, session.ID, f.userIDs())
	if err != nil {
		t.Fatalf("invite: %v", err)
	}
	if result.Invited != 3 || result.AlreadyInvited != 0 {
		t.Errorf("expected 3 invited, got %+v", result)
	}

	list, err := f.invites.List(context.Background(), f.host, session.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("expected 3 invitations, got %d", len(list))
	}
	for _, inv := range list {
		if inv.Status != models.InvitationPending {
			t.Errorf("expected PENDING, got %s", inv.Status)
		}
		if inv.InvitedBy != f.host.ID {
			t.Errorf("invited_by should be the host")
		}
	}

	batches := f.fanout.waitForInvited(t, 1)
	if len(batches[0]) != 3 {
		t.Errorf("expected 3 users in the fanout batch, got %d", len(batches[0]))
	}
}

func TestInviteDeduplicates(t *testing.T) {
	f := newInviteFixture(t, 2)
	session := f.privateSession(t)

	// Duplicates in the request and the host itself are dropped up front.
	ids := append(f.userIDs(), f.userIDs()[0], f.host.ID)
	result, err := f.invites.Invite(context.Background(), f.host, session.ID, ids)
	if err != nil {
		t.Fatalf("invite: %v", err)
	}
	if result.Invited != 2 {
		t.Errorf("expected 2 invited, got %+v", result)
	}

	// A second round is a no-op.
	again, err := f.invites.Invite(context.Background(), f.host, session.ID, f.userIDs())
	if err != nil {
		t.Fatalf("second invite: %v", err)
	}
	if again.Invited != 0 || again.AlreadyInvited != 2 {
		t.Errorf("expected 0 invited / 2 already, got %+v", again)
	}
}

func TestInviteUnknownUsersAreSkipped(t *testing.T) {
	f := newInviteFixture(t, 1)
	session := f.privateSession(t)

	ids := append(f.userIDs(), uuid.New(), uuid.New())
	result, err := f.invites.Invite(context.Background(), f.host, session.ID, ids)
	if err != nil {
		t.Fatalf("invite: %v", err)
	}
	if result.Invited != 1 {
		t.Errorf("unknown users must be skipped, got %+v", result)
	}
}

func TestInviteRequiresHostOrAdmin(t *testing.T) {
	f := newInviteFixture(t, 1)
	session := f.privateSession(t)

	_, err := f.invites.Invite(context.Background(), newIdentity(models.RoleStudent), session.ID, f.userIDs())
	if _, ok := err.(*UnauthorizedError); !ok {
		t.Fatalf("expected UnauthorizedError, got %v", err)
	}

	if _, err := f.invites.Invite(context.Background(), newIdentity(models.RoleAdmin), session.ID, f.userIDs()); err != nil {
		t.Errorf("admin should be able to invite: %v", err)
	}
}

func TestInviteRejectedAfterSessionEnds(t *testing.T) {
	f := newInviteFixture(t, 1)
	session := f.privateSession(t)

	if _, err := f.sessions.End(context.Background(), f.host, session.ID); err != nil {
		t.Fatalf("end: %v", err)
	}

	_, err := f.invites.Invite(context.Background(), f.host, session.ID, f.userIDs())
	if _, ok := err.(*InvalidStateError); !ok {
		t.Fatalf("expected InvalidStateError, got %v", err)
	}
}

func TestInviteRequiresUsers(t *testing.T) {
	f := newInviteFixture(t, 0)
	session := f.privateSession(t)

	_, err := f.invites.Invite(context.Background(), f.host, session.ID, nil)
	if _, ok := err.(*ValidationError); !ok {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestDeclineThenReinvite(t *testing.T) {
	f := newInviteFixture(t, 1)
	session := f.privateSession(t)
	invitee := f.users[0]

	if _, err := f.invites.Invite(context.Background(), f.host, session.ID, f.userIDs()); err != nil {
		t.Fatalf("invite: %v", err)
	}

	inv, err := f.invites.Decline(context.Background(), invitee.Identity(), session.ID)
	if err != nil {
		t.Fatalf("decline: %v", err)
	}
	if inv.Status != models.InvitationDeclined || inv.RespondedAt == nil {
		t.Errorf("expected DECLINED with responded_at, got %+v", inv)
	}

	// Declining again is a no-op, not an error.
	if _, err := f.invites.Decline(context.Background(), invitee.Identity(), session.ID); err != nil {
		t.Errorf("repeated decline should be harmless: %v", err)
	}

	// A re-invite resets the row to PENDING and notifies again.
	result, err := f.invites.Invite(context.Background(), f.host, session.ID, f.userIDs())
	if err != nil {
		t.Fatalf("re-invite: %v", err)
	}
	if result.Invited != 1 {
		t.Errorf("re-inviting a declined user should count as invited, got %+v", result)
	}

	fresh, err := f.store.GetInvitation(context.Background(), session.ID, invitee.ID)
	if err != nil {
		t.Fatalf("get invitation: %v", err)
	}
	if fresh.Status != models.InvitationPending || fresh.RespondedAt != nil {
		t.Errorf("expected a reset PENDING invitation, got %+v", fresh)
	}

	f.fanout.waitForInvited(t, 2)
}

func TestDeclineAfterAcceptFails(t *testing.T) {
	f := newInviteFixture(t, 1)
	session := f.privateSession(t)
	invitee := f.users[0]

	if _, err := f.invites.Invite(context.Background(), f.host, session.ID, f.userIDs()); err != nil {
		t.Fatalf("invite: %v", err)
	}
	mustJoin(t, f.roster, invitee.Identity(), session.ID)

	_, err := f.invites.Decline(context.Background(), invitee.Identity(), session.ID)
	if _, ok := err.(*InvalidStateError); !ok {
		t.Fatalf("expected InvalidStateError after accept, got %v", err)
	}
}

func TestDeclineWithoutInvitation(t *testing.T) {
	f := newInviteFixture(t, 0)
	session := f.privateSession(t)

	_, err := f.invites.Decline(context.Background(), newIdentity(models.RoleStudent), session.ID)
	if _, ok := err.(*NotFoundError); !ok {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}

func TestRemoveInvitationIsIdempotent(t *testing.T) {
	f := newInviteFixture(t, 1)
	session := f.privateSession(t)
	invitee := f.users[0]

	if _, err := f.invites.Invite(context.Background(), f.host, session.ID, f.userIDs()); err != nil {
		t.Fatalf("invite: %v", err)
	}

	if err := f.invites.Remove(context.Background(), f.host, session.ID, invitee.ID); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := f.invites.Remove(context.Background(), f.host, session.ID, invitee.ID); err != nil {
		t.Errorf("removing a missing invitation should be harmless: %v", err)
	}

	// The removed invitee loses private-session access.
	_, err := f.roster.Join(context.Background(), invitee.Identity(), session.ID)
	if _, ok := err.(*ForbiddenError); !ok {
		t.Fatalf("expected ForbiddenError after removal, got %v", err)
	}
}

func TestListInvitationsRequiresHostOrAdmin(t *testing.T) {
	f := newInviteFixture(t, 1)
	session := f.privateSession(t)

	_, err := f.invites.List(context.Background(), newIdentity(models.RoleStudent), session.ID)
	if _, ok := err.(*UnauthorizedError); !ok {
		t.Fatalf("expected UnauthorizedError, got %v", err)
	}
}
