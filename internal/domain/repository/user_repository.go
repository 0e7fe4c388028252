package repository

import (
	"context"
	"errors"
	"time"

	"github.com/oksasatya/auth-api/internal/domain/entity"
)

// Adapters translate driver faults into these before returning.
var (
	ErrNotFound       = errors.New("user not found")
	ErrDuplicateEmail = errors.New("email already registered")
	ErrInvalidID      = errors.New("malformed user id")
)

// FindOptions widen the default read path
type FindOptions struct {
	IncludePassword bool
	IncludeInactive bool
}

type FindOption func(*FindOptions)

// WithPassword loads the password hash, which default reads leave empty
func WithPassword() FindOption { return func(o *FindOptions) { o.IncludePassword = true } }

// IncludeInactive also matches soft-deleted users
func IncludeInactive() FindOption { return func(o *FindOptions) { o.IncludeInactive = true } }

func ApplyFindOptions(opts ...FindOption) FindOptions {
	var o FindOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// UserRepository defines the credential store operations.
// Default reads exclude inactive users and never load the password hash.
type UserRepository interface {
	// Create inserts u and fills ID/CreatedAt/UpdatedAt. Returns ErrDuplicateEmail.
	Create(ctx context.Context, u *entity.User) error
	GetByID(ctx context.Context, id string, opts ...FindOption) (*entity.User, error)
	GetByEmail(ctx context.Context, email string, opts ...FindOption) (*entity.User, error)

	// SetPasswordReset stores the digest and expiry of a reset ticket, nothing else.
	SetPasswordReset(ctx context.Context, id, hashedToken string, expires time.Time) error
	// ClearPasswordReset removes both reset fields.
	ClearPasswordReset(ctx context.Context, id string) error
	// FindByResetToken returns the active user whose digest matches and whose expiry is after now.
	FindByResetToken(ctx context.Context, hashedToken string, now time.Time) (*entity.User, error)
	// ConsumePasswordReset atomically matches digest+expiry, sets the new password hash and
	// changedAt, and clears the reset fields. Only one caller can win for a given digest.
	ConsumePasswordReset(ctx context.Context, hashedToken string, now time.Time, passwordHash string, changedAt time.Time) (*entity.User, error)

	UpdatePassword(ctx context.Context, id, passwordHash string, changedAt time.Time) error
	UpdatePhoto(ctx context.Context, id, photo string) error

	Ping(ctx context.Context) error
}
