package postgres

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oksasatya/auth-api/internal/domain/entity"
	"github.com/oksasatya/auth-api/internal/domain/repository"
)

const userColumns = `id, name, email, photo, role, password, password_changed_at,
	password_reset_token, password_reset_expires, active, created_at, updated_at`

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

// classify maps postgres faults onto repository sentinels
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return repository.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return repository.ErrDuplicateEmail
		case "22P02":
			return repository.ErrInvalidID
		}
	}
	return err
}

func scanUser(row pgx.Row, withPassword bool) (*entity.User, error) {
	u := &entity.User{}
	var role string
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Photo, &role, &u.Password, &u.PasswordChangedAt,
		&u.PasswordResetToken, &u.PasswordResetExpires, &u.Active, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, classify(err)
	}
	u.Role = entity.Role(role)
	if !withPassword {
		u.Password = ""
	}
	return u, nil
}

func (r *UserRepository) Create(ctx context.Context, u *entity.User) error {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	row := r.pool.QueryRow(ctx, `
		INSERT INTO users (name, email, photo, role, password, password_changed_at, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`, u.Name, u.Email, u.Photo, string(u.Role), u.Password, u.PasswordChangedAt, u.Active)

	return classify(row.Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt))
}

func (r *UserRepository) GetByID(ctx context.Context, id string, opts ...repository.FindOption) (*entity.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, repository.ErrInvalidID
	}
	o := repository.ApplyFindOptions(opts...)
	row := r.pool.QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE id = $1 AND (active OR $2)
	`, id, o.IncludeInactive)
	return scanUser(row, o.IncludePassword)
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string, opts ...repository.FindOption) (*entity.User, error) {
	o := repository.ApplyFindOptions(opts...)
	row := r.pool.QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE lower(email) = lower($1) AND (active OR $2)
	`, strings.TrimSpace(email), o.IncludeInactive)
	return scanUser(row, o.IncludePassword)
}

// exec runs a single-row update and reports ErrNotFound when nothing matched
func (r *UserRepository) exec(ctx context.Context, sql string, args ...any) error {
	res, err := r.pool.Exec(ctx, sql, args...)
	if err != nil {
		return classify(err)
	}
	if res.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *UserRepository) SetPasswordReset(ctx context.Context, id, hashedToken string, expires time.Time) error {
	return r.exec(ctx, `
		UPDATE users
		SET password_reset_token = $1, password_reset_expires = $2, updated_at = now()
		WHERE id = $3
	`, hashedToken, expires, id)
}

func (r *UserRepository) ClearPasswordReset(ctx context.Context, id string) error {
	return r.exec(ctx, `
		UPDATE users
		SET password_reset_token = NULL, password_reset_expires = NULL, updated_at = now()
		WHERE id = $1
	`, id)
}

func (r *UserRepository) FindByResetToken(ctx context.Context, hashedToken string, now time.Time) (*entity.User, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE password_reset_token = $1 AND password_reset_expires > $2 AND active
	`, hashedToken, now)
	return scanUser(row, false)
}

// ConsumePasswordReset matches and clears the ticket in one statement, so two
// concurrent callers cannot both succeed.
func (r *UserRepository) ConsumePasswordReset(ctx context.Context, hashedToken string, now time.Time, passwordHash string, changedAt time.Time) (*entity.User, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE users
		SET password = $3, password_changed_at = $4,
		    password_reset_token = NULL, password_reset_expires = NULL, updated_at = now()
		WHERE password_reset_token = $1 AND password_reset_expires > $2 AND active
		RETURNING `+userColumns, hashedToken, now, passwordHash, changedAt)
	return scanUser(row, false)
}

func (r *UserRepository) UpdatePassword(ctx context.Context, id, passwordHash string, changedAt time.Time) error {
	return r.exec(ctx, `
		UPDATE users
		SET password = $1, password_changed_at = $2, updated_at = now()
		WHERE id = $3 AND active
	`, passwordHash, changedAt, id)
}

func (r *UserRepository) UpdatePhoto(ctx context.Context, id, photo string) error {
	return r.exec(ctx, `
		UPDATE users SET photo = $1, updated_at = now()
		WHERE id = $2 AND active
	`, photo, id)
}

func (r *UserRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

var _ repository.UserRepository = (*UserRepository)(nil)
