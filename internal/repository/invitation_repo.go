package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"aula-backend/internal/models"
	"aula-backend/internal/services"
)

const invitationColumns = `session_id, user_id, display_name, invited_by, status, created_at, responded_at`

type InvitationRepo struct {
	pool *pgxpool.Pool
}

func NewInvitationRepo(pool *pgxpool.Pool) *InvitationRepo {
	return &InvitationRepo{pool: pool}
}

func (r *InvitationRepo) GetInvitation(ctx context.Context, sessionID, userID uuid.UUID) (*models.Invitation, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+invitationColumns+` FROM invitations
		WHERE session_id = $1 AND user_id = $2
	`, sessionID, userID)
	return scanInvitation(row)
}

func (r *InvitationRepo) ListInvitations(ctx context.Context, sessionID uuid.UUID) ([]models.Invitation, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+invitationColumns+` FROM invitations
		WHERE session_id = $1 ORDER BY created_at
	`, sessionID)
	if err != nil {
		return nil, storageErr(err)
	}
	defer rows.Close()

	var invitations []models.Invitation
	for rows.Next() {
		inv, err := scanInvitation(rows)
		if err != nil {
			return nil, err
		}
		invitations = append(invitations, *inv)
	}
	if rows.Err() != nil {
		return nil, storageErr(rows.Err())
	}
	return invitations, nil
}

func (r *InvitationRepo) PutInvitation(ctx context.Context, inv *models.Invitation) (bool, error) {
	existing, err := r.GetInvitation(ctx, inv.SessionID, inv.UserID)
	if err != nil {
		if _, ok := err.(*services.NotFoundError); !ok {
			return false, err
		}
	}

	if existing != nil {
		if existing.Status != models.InvitationDeclined {
			return false, nil
		}
		// Re-invite: the host grants access again.
		_, err = r.pool.Exec(ctx, `
			UPDATE invitations
			SET status = 'PENDING', responded_at = NULL, invited_by = $3, created_at = $4
			WHERE session_id = $1 AND user_id = $2
		`, inv.SessionID, inv.UserID, inv.InvitedBy, inv.CreatedAt)
		if err != nil {
			return false, storageErr(err)
		}
		return true, nil
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO invitations (session_id, user_id, display_name, invited_by, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (session_id, user_id) DO NOTHING
	`, inv.SessionID, inv.UserID, inv.DisplayName, inv.InvitedBy, inv.Status, inv.CreatedAt)
	if err != nil {
		return false, storageErr(err)
	}
	return true, nil
}

func (r *InvitationRepo) DeclineInvitation(ctx context.Context, sessionID, userID uuid.UUID, at time.Time) (*models.Invitation, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE invitations
		SET status = 'DECLINED', responded_at = $3
		WHERE session_id = $1 AND user_id = $2 AND status = 'PENDING'
		RETURNING `+invitationColumns,
		sessionID, userID, at)

	inv, err := scanInvitation(row)
	if err == nil {
		return inv, nil
	}
	if _, ok := err.(*services.NotFoundError); !ok {
		return nil, err
	}

	existing, getErr := r.GetInvitation(ctx, sessionID, userID)
	if getErr != nil {
		return nil, getErr
	}
	if existing.Status == models.InvitationDeclined {
		return existing, nil
	}
	return nil, &services.InvalidStateError{Message: "Invitation was already accepted"}
}

func (r *InvitationRepo) DeleteInvitation(ctx context.Context, sessionID, userID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		DELETE FROM invitations WHERE session_id = $1 AND user_id = $2
	`, sessionID, userID)
	if err != nil {
		return storageErr(err)
	}
	return nil
}

func scanInvitation(row pgx.Row) (*models.Invitation, error) {
	inv := &models.Invitation{}
	err := row.Scan(
		&inv.SessionID, &inv.UserID, &inv.DisplayName, &inv.InvitedBy,
		&inv.Status, &inv.CreatedAt, &inv.RespondedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &services.NotFoundError{Message: "Invitation not found"}
		}
		return nil, storageErr(err)
	}
	return inv, nil
}
