package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"aula-backend/internal/models"
	"aula-backend/internal/services"
)

const userColumns = `id, email, full_name, role, avatar_url, is_active, created_at, last_seen_at`

type UserRepo struct {
	pool *pgxpool.Pool
}

func NewUserRepo(pool *pgxpool.Pool) *UserRepo {
	return &UserRepo{pool: pool}
}

func (r *UserRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

// ListByIDs resolves the users that exist among the given ids; unknown
// ids are silently skipped.
func (r *UserRepo) ListByIDs(ctx context.Context, ids []uuid.UUID) ([]models.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	rows, err := r.pool.Query(ctx, `
		SELECT `+userColumns+` FROM users WHERE id = ANY($1) AND is_active = TRUE
	`, ids)
	if err != nil {
		return nil, storageErr(err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	if rows.Err() != nil {
		return nil, storageErr(rows.Err())
	}
	return users, nil
}

// ListByRoles returns the active users holding any of the given roles.
// Used by the notification worker to resolve a session's audience.
func (r *UserRepo) ListByRoles(ctx context.Context, roles []models.Role) ([]models.User, error) {
	if len(roles) == 0 {
		return nil, nil
	}

	roleStrs := make([]string, len(roles))
	for i, role := range roles {
		roleStrs[i] = string(role)
	}

	rows, err := r.pool.Query(ctx, `
		SELECT `+userColumns+` FROM users WHERE role = ANY($1) AND is_active = TRUE
	`, roleStrs)
	if err != nil {
		return nil, storageErr(err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	if rows.Err() != nil {
		return nil, storageErr(rows.Err())
	}
	return users, nil
}

func (r *UserRepo) TouchLastSeen(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `UPDATE users SET last_seen_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return storageErr(err)
	}
	return nil
}

func scanUser(row pgx.Row) (*models.User, error) {
	u := &models.User{}
	err := row.Scan(&u.ID, &u.Email, &u.FullName, &u.Role, &u.AvatarURL, &u.IsActive, &u.CreatedAt, &u.LastSeenAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &services.NotFoundError{Message: "User not found"}
		}
		return nil, storageErr(err)
	}
	return u, nil
}
