package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"aula-backend/internal/models"
	"aula-backend/internal/services"
)

const sessionColumns = `id, host_id, kind, title, description, media_type, status,
		scheduled_at, started_at, ended_at, duration_minutes,
		max_participants, privacy, require_approval,
		allow_chat, allow_screen_share, allow_hand_raise, allow_participant_mic, allow_participant_camera,
		created_at, updated_at`

type SessionRepo struct {
	pool *pgxpool.Pool
}

func NewSessionRepo(pool *pgxpool.Pool) *SessionRepo {
	return &SessionRepo{pool: pool}
}

func (r *SessionRepo) CreateSession(ctx context.Context, s *models.Session, host *models.Participant) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return storageErr(err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO sessions (id, host_id, kind, title, description, media_type, status,
			scheduled_at, started_at, max_participants, privacy, require_approval,
			allow_chat, allow_screen_share, allow_hand_raise, allow_participant_mic, allow_participant_camera,
			created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $18)
	`, s.ID, s.HostID, s.Kind, s.Title, s.Description, s.MediaType, s.Status,
		s.ScheduledAt, s.StartedAt, s.MaxParticipants, s.Privacy, s.RequireApproval,
		s.AllowChat, s.AllowScreenShare, s.AllowHandRaise, s.AllowParticipantMic, s.AllowParticipantCamera,
		s.CreatedAt)
	if err != nil {
		return storageErr(err)
	}

	if err := insertParticipant(ctx, tx, host); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return storageErr(err)
	}
	return nil
}

func (r *SessionRepo) GetSession(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id = $1`, id)
	return scanSession(row)
}

func (r *SessionRepo) ListSessions(ctx context.Context, f services.SessionFilter) ([]*models.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions`
	args := []interface{}{}
	where := ""

	appendCond := func(cond string, val interface{}) {
		args = append(args, val)
		if where == "" {
			where = " WHERE "
		} else {
			where += " AND "
		}
		where += fmt.Sprintf(cond, len(args))
	}

	if f.Status != nil {
		appendCond("status = $%d", *f.Status)
	}
	if f.Kind != nil {
		appendCond("kind = $%d", *f.Kind)
	}
	if f.HostID != nil {
		appendCond("host_id = $%d", *f.HostID)
	}

	rows, err := r.pool.Query(ctx, query+where+` ORDER BY created_at DESC`, args...)
	if err != nil {
		return nil, storageErr(err)
	}
	defer rows.Close()

	var sessions []*models.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	if rows.Err() != nil {
		return nil, storageErr(rows.Err())
	}
	return sessions, nil
}

func (r *SessionRepo) StartSession(ctx context.Context, id uuid.UUID, at time.Time) (*models.Session, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, storageErr(err)
	}
	defer tx.Rollback(ctx)

	// Conditional transition: only one of two racing starts can match.
	row := tx.QueryRow(ctx, `
		UPDATE sessions
		SET status = 'LIVE', started_at = $2, updated_at = $2
		WHERE id = $1 AND status = 'SCHEDULED'
		RETURNING `+sessionColumns, id, at)

	s, err := scanSession(row)
	if err != nil {
		if _, ok := err.(*services.NotFoundError); ok {
			return nil, r.transitionConflict(ctx, id, "Session can only be started from SCHEDULED")
		}
		return nil, err
	}

	_, err = tx.Exec(ctx, `
		UPDATE participants
		SET is_active = TRUE, joined_at = $3, left_at = NULL
		WHERE session_id = $1 AND user_id = $2
	`, id, s.HostID, at)
	if err != nil {
		return nil, storageErr(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, storageErr(err)
	}
	return s, nil
}

func (r *SessionRepo) EndSession(ctx context.Context, id uuid.UUID, at time.Time) (*models.Session, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, storageErr(err)
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx, `
		UPDATE sessions
		SET status = 'ENDED', ended_at = $2, updated_at = $2,
			duration_minutes = GREATEST(0, ROUND(EXTRACT(EPOCH FROM ($2::timestamptz - started_at)) / 60))::INT
		WHERE id = $1 AND status = 'LIVE'
		RETURNING `+sessionColumns, id, at)

	s, err := scanSession(row)
	if err != nil {
		if _, ok := err.(*services.NotFoundError); ok {
			return nil, r.transitionConflict(ctx, id, "Session can only be ended while LIVE")
		}
		return nil, err
	}

	// Every participant leaves with the session, in the same transaction.
	_, err = tx.Exec(ctx, `
		UPDATE participants
		SET is_active = FALSE, left_at = $2
		WHERE session_id = $1 AND is_active = TRUE
	`, id, at)
	if err != nil {
		return nil, storageErr(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, storageErr(err)
	}
	return s, nil
}

func (r *SessionRepo) CancelSession(ctx context.Context, id uuid.UUID, at time.Time) (*models.Session, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, storageErr(err)
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx, `
		UPDATE sessions
		SET status = 'CANCELLED', updated_at = $2
		WHERE id = $1 AND status = 'SCHEDULED'
		RETURNING `+sessionColumns, id, at)

	s, err := scanSession(row)
	if err != nil {
		if _, ok := err.(*services.NotFoundError); ok {
			return nil, r.transitionConflict(ctx, id, "Only a scheduled session can be cancelled; end a live session instead")
		}
		return nil, err
	}

	_, err = tx.Exec(ctx, `
		UPDATE participants
		SET is_active = FALSE, left_at = $2
		WHERE session_id = $1 AND is_active = TRUE
	`, id, at)
	if err != nil {
		return nil, storageErr(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, storageErr(err)
	}
	return s, nil
}

func (r *SessionRepo) UpdateSessionSettings(ctx context.Context, id uuid.UUID, upd models.SessionSettingsUpdate) (*models.Session, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE sessions
		SET title = COALESCE($2, title),
			description = COALESCE($3, description),
			max_participants = COALESCE($4, max_participants),
			privacy = COALESCE($5, privacy),
			require_approval = COALESCE($6, require_approval),
			allow_chat = COALESCE($7, allow_chat),
			allow_screen_share = COALESCE($8, allow_screen_share),
			allow_hand_raise = COALESCE($9, allow_hand_raise),
			allow_participant_mic = COALESCE($10, allow_participant_mic),
			allow_participant_camera = COALESCE($11, allow_participant_camera),
			updated_at = NOW()
		WHERE id = $1 AND status NOT IN ('ENDED', 'CANCELLED')
		RETURNING `+sessionColumns,
		id, upd.Title, upd.Description, upd.MaxParticipants, upd.Privacy, upd.RequireApproval,
		upd.AllowChat, upd.AllowScreenShare, upd.AllowHandRaise, upd.AllowParticipantMic, upd.AllowParticipantCamera)

	s, err := scanSession(row)
	if err != nil {
		if _, ok := err.(*services.NotFoundError); ok {
			return nil, r.transitionConflict(ctx, id, "Settings cannot be changed after the session has ended")
		}
		return nil, err
	}
	return s, nil
}

func (r *SessionRepo) DeleteSession(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE id = $1 AND status <> 'LIVE'`, id)
	if err != nil {
		return storageErr(err)
	}
	if tag.RowsAffected() == 0 {
		if _, getErr := r.GetSession(ctx, id); getErr != nil {
			return getErr
		}
		return &services.InvalidStateError{Message: "A live session cannot be deleted"}
	}
	return nil
}

// transitionConflict reports why a conditional update matched no row:
// either the session is gone, or its status disallowed the transition.
func (r *SessionRepo) transitionConflict(ctx context.Context, id uuid.UUID, msg string) error {
	if _, err := r.GetSession(ctx, id); err != nil {
		return err
	}
	return &services.InvalidStateError{Message: msg}
}

func scanSession(row pgx.Row) (*models.Session, error) {
	s := &models.Session{}
	err := row.Scan(
		&s.ID, &s.HostID, &s.Kind, &s.Title, &s.Description, &s.MediaType, &s.Status,
		&s.ScheduledAt, &s.StartedAt, &s.EndedAt, &s.DurationMinutes,
		&s.MaxParticipants, &s.Privacy, &s.RequireApproval,
		&s.AllowChat, &s.AllowScreenShare, &s.AllowHandRaise, &s.AllowParticipantMic, &s.AllowParticipantCamera,
		&s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &services.NotFoundError{Message: "Session not found"}
		}
		return nil, storageErr(err)
	}
	return s, nil
}

func storageErr(err error) error {
	return &services.StorageError{Err: err}
}
