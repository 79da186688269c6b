package services

import (
	"context"
	"testing"

	"aula-backend/internal/models"
)

// TestStaffRoomCapacityFlow walks one session through create, a capacity
// rejection, a kick, and the freed seat being retaken.
func TestStaffRoomCapacityFlow(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	access := NewAccessController()
	sessions := NewSessionService(store, access, nil)
	roster := NewRosterService(store, access, nil)
	controls := NewControlService(store, access, nil)

	host := newIdentity(models.RoleInstructor)
	instructorA := newIdentity(models.RoleInstructor)
	instructorB := newIdentity(models.RoleInstructor)
	student := newIdentity(models.RoleStudent)

	req := createRequest()
	req.Kind = models.KindStaffRoom
	req.MaxParticipants = 2
	session := mustCreate(t, sessions, host, req)

	if session.Status != models.SessionLive {
		t.Fatalf("expected LIVE on create without schedule, got %s", session.Status)
	}
	active, err := store.CountActiveParticipants(ctx, session.ID)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if active != 1 {
		t.Fatalf("expected the host active, got %d", active)
	}

	// Students are outside a staff room's audience.
	if _, err := roster.Join(ctx, student, session.ID); err == nil {
		t.Fatal("student must not join a staff room")
	}

	mustJoin(t, roster, instructorA, session.ID)

	_, err = roster.Join(ctx, instructorB, session.ID)
	if _, ok := err.(*CapacityError); !ok {
		t.Fatalf("expected CapacityError at 2/2, got %v", err)
	}

	if _, err := controls.HostAction(ctx, host, session.ID, instructorA.ID, ActionKick); err != nil {
		t.Fatalf("kick: %v", err)
	}
	active, err = store.CountActiveParticipants(ctx, session.ID)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if active != 1 {
		t.Fatalf("expected 1 active after kick, got %d", active)
	}

	mustJoin(t, roster, instructorB, session.ID)

	active, err = store.CountActiveParticipants(ctx, session.ID)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if active != 2 {
		t.Fatalf("expected 2 active after the freed seat is retaken, got %d", active)
	}
}
