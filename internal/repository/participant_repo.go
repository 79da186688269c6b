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

const participantColumns = `session_id, user_id, display_name, role, is_active, joined_at, left_at,
		is_muted, is_camera_off, is_hand_raised, can_speak, can_share, is_host, is_co_host`

type ParticipantRepo struct {
	pool *pgxpool.Pool
}

func NewParticipantRepo(pool *pgxpool.Pool) *ParticipantRepo {
	return &ParticipantRepo{pool: pool}
}

// JoinSession holds a row lock on the session while it re-checks the
// status, counts active participants, and upserts the row. The lock
// serializes racing joins so the capacity limit cannot be overbooked,
// and a join that races with end sees the post-transition status.
func (r *ParticipantRepo) JoinSession(ctx context.Context, p *models.Participant) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return storageErr(err)
	}
	defer tx.Rollback(ctx)

	var status models.SessionStatus
	var maxParticipants int
	err = tx.QueryRow(ctx, `
		SELECT status, max_participants FROM sessions WHERE id = $1 FOR UPDATE
	`, p.SessionID).Scan(&status, &maxParticipants)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &services.NotFoundError{Message: "Session not found"}
		}
		return storageErr(err)
	}

	if status != models.SessionLive {
		return &services.InvalidStateError{Message: "Session is not live"}
	}

	// Count everyone else; the joining row itself is the +1.
	var active int
	err = tx.QueryRow(ctx, `
		SELECT COUNT(*) FROM participants
		WHERE session_id = $1 AND is_active = TRUE AND user_id <> $2
	`, p.SessionID, p.UserID).Scan(&active)
	if err != nil {
		return storageErr(err)
	}
	if active+1 > maxParticipants {
		return &services.CapacityError{Message: "Session is full"}
	}

	if err := insertParticipant(ctx, tx, p); err != nil {
		return err
	}

	// A pending invitation is consumed by the join.
	_, err = tx.Exec(ctx, `
		UPDATE invitations
		SET status = 'ACCEPTED', responded_at = $3
		WHERE session_id = $1 AND user_id = $2 AND status = 'PENDING'
	`, p.SessionID, p.UserID, p.JoinedAt)
	if err != nil {
		return storageErr(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return storageErr(err)
	}
	return nil
}

func (r *ParticipantRepo) GetParticipant(ctx context.Context, sessionID, userID uuid.UUID) (*models.Participant, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+participantColumns+` FROM participants
		WHERE session_id = $1 AND user_id = $2
	`, sessionID, userID)
	return scanParticipant(row)
}

func (r *ParticipantRepo) ListParticipants(ctx context.Context, sessionID uuid.UUID, activeOnly bool) ([]models.Participant, error) {
	query := `SELECT ` + participantColumns + ` FROM participants WHERE session_id = $1`
	if activeOnly {
		query += ` AND is_active = TRUE`
	}
	query += ` ORDER BY joined_at`

	rows, err := r.pool.Query(ctx, query, sessionID)
	if err != nil {
		return nil, storageErr(err)
	}
	defer rows.Close()

	var participants []models.Participant
	for rows.Next() {
		p, err := scanParticipant(rows)
		if err != nil {
			return nil, err
		}
		participants = append(participants, *p)
	}
	if rows.Err() != nil {
		return nil, storageErr(rows.Err())
	}
	return participants, nil
}

func (r *ParticipantRepo) CountActiveParticipants(ctx context.Context, sessionID uuid.UUID) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM participants WHERE session_id = $1 AND is_active = TRUE
	`, sessionID).Scan(&count)
	if err != nil {
		return 0, storageErr(err)
	}
	return count, nil
}

func (r *ParticipantRepo) UpdateParticipantFlags(ctx context.Context, sessionID, userID uuid.UUID, upd models.ParticipantUpdate) (*models.Participant, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE participants
		SET is_muted = COALESCE($3, is_muted),
			is_camera_off = COALESCE($4, is_camera_off),
			is_hand_raised = COALESCE($5, is_hand_raised),
			can_speak = COALESCE($6, can_speak),
			can_share = COALESCE($7, can_share)
		WHERE session_id = $1 AND user_id = $2 AND is_active = TRUE
		RETURNING `+participantColumns,
		sessionID, userID, upd.IsMuted, upd.IsCameraOff, upd.IsHandRaised, upd.CanSpeak, upd.CanShare)

	p, err := scanParticipant(row)
	if err != nil {
		if _, ok := err.(*services.NotFoundError); ok {
			// Row exists but inactive, or no row at all.
			if _, getErr := r.GetParticipant(ctx, sessionID, userID); getErr != nil {
				return nil, getErr
			}
			return nil, &services.InvalidStateError{Message: "Participant is not active"}
		}
		return nil, err
	}
	return p, nil
}

func (r *ParticipantRepo) DeactivateParticipant(ctx context.Context, sessionID, userID uuid.UUID, at time.Time) (*models.Participant, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE participants
		SET is_active = FALSE,
			left_at = CASE WHEN is_active THEN $3 ELSE left_at END
		WHERE session_id = $1 AND user_id = $2
		RETURNING `+participantColumns,
		sessionID, userID, at)

	p, err := scanParticipant(row)
	if err != nil {
		if _, ok := err.(*services.NotFoundError); ok {
			return nil, &services.NotFoundError{Message: "Participant not found"}
		}
		return nil, err
	}
	return p, nil
}

func insertParticipant(ctx context.Context, tx pgx.Tx, p *models.Participant) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO participants (session_id, user_id, display_name, role, is_active, joined_at, left_at,
			is_muted, is_camera_off, is_hand_raised, can_speak, can_share, is_host, is_co_host)
		VALUES ($1, $2, $3, $4, $5, $6, NULL, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (session_id, user_id) DO UPDATE
		SET display_name = EXCLUDED.display_name,
			role = EXCLUDED.role,
			is_active = EXCLUDED.is_active,
			joined_at = EXCLUDED.joined_at,
			left_at = NULL,
			is_muted = EXCLUDED.is_muted,
			is_camera_off = EXCLUDED.is_camera_off,
			is_hand_raised = EXCLUDED.is_hand_raised,
			can_speak = EXCLUDED.can_speak,
			can_share = EXCLUDED.can_share,
			is_host = EXCLUDED.is_host
	`, p.SessionID, p.UserID, p.DisplayName, p.Role, p.IsActive, p.JoinedAt,
		p.IsMuted, p.IsCameraOff, p.IsHandRaised, p.CanSpeak, p.CanShare, p.IsHost, p.IsCoHost)
	if err != nil {
		return storageErr(err)
	}
	return nil
}

func scanParticipant(row pgx.Row) (*models.Participant, error) {
	p := &models.Participant{}
	err := row.Scan(
		&p.SessionID, &p.UserID, &p.DisplayName, &p.Role, &p.IsActive, &p.JoinedAt, &p.LeftAt,
		&p.IsMuted, &p.IsCameraOff, &p.IsHandRaised, &p.CanSpeak, &p.CanShare, &p.IsHost, &p.IsCoHost,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &services.NotFoundError{Message: "Participant not found"}
		}
		return nil, storageErr(err)
	}
	return p, nil
}
