package repository

import (
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store combines the per-entity repositories into the session core's
// durable store.
type Store struct {
	*SessionRepo
	*ParticipantRepo
	*InvitationRepo
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{
		SessionRepo:     NewSessionRepo(pool),
		ParticipantRepo: NewParticipantRepo(pool),
		InvitationRepo:  NewInvitationRepo(pool),
	}
}
