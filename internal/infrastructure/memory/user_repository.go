package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/oksasatya/auth-api/internal/domain/entity"
	"github.com/oksasatya/auth-api/internal/domain/repository"
)

// UserRepository keeps users in process memory. Every operation runs under one
// mutex, which gives ConsumePasswordReset the same match-and-clear atomicity as
// the database adapters.
type UserRepository struct {
	mu      sync.RWMutex
	byID    map[string]*entity.User
	byEmail map[string]string
	now     func() time.Time
}

func NewUserRepository() *UserRepository {
	return &UserRepository{
		byID:    make(map[string]*entity.User),
		byEmail: make(map[string]string),
		now:     time.Now,
	}
}

// clone returns a detached copy, optionally without the password hash
func clone(u *entity.User, withPassword bool) *entity.User {
	cp := *u
	if !withPassword {
		cp.Password = ""
	}
	if u.PasswordChangedAt != nil {
		t := *u.PasswordChangedAt
		cp.PasswordChangedAt = &t
	}
	if u.PasswordResetToken != nil {
		s := *u.PasswordResetToken
		cp.PasswordResetToken = &s
	}
	if u.PasswordResetExpires != nil {
		t := *u.PasswordResetExpires
		cp.PasswordResetExpires = &t
	}
	return &cp
}

func (r *UserRepository) Create(_ context.Context, u *entity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	email := strings.ToLower(strings.TrimSpace(u.Email))
	if _, taken := r.byEmail[email]; taken {
		return repository.ErrDuplicateEmail
	}
	now := r.now()
	u.ID = uuid.NewString()
	u.Email = email
	u.CreatedAt = now
	u.UpdatedAt = now
	r.byID[u.ID] = clone(u, true)
	r.byEmail[email] = u.ID
	return nil
}

func (r *UserRepository) GetByID(_ context.Context, id string, opts ...repository.FindOption) (*entity.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, repository.ErrInvalidID
	}
	o := repository.ApplyFindOptions(opts...)
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.byID[id]
	if !ok || (!u.Active && !o.IncludeInactive) {
		return nil, repository.ErrNotFound
	}
	return clone(u, o.IncludePassword), nil
}

func (r *UserRepository) GetByEmail(_ context.Context, email string, opts ...repository.FindOption) (*entity.User, error) {
	o := repository.ApplyFindOptions(opts...)
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byEmail[strings.ToLower(strings.TrimSpace(email))]
	if !ok {
		return nil, repository.ErrNotFound
	}
	u := r.byID[id]
	if !u.Active && !o.IncludeInactive {
		return nil, repository.ErrNotFound
	}
	return clone(u, o.IncludePassword), nil
}

func (r *UserRepository) SetPasswordReset(_ context.Context, id, hashedToken string, expires time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.PasswordResetToken = &hashedToken
	u.PasswordResetExpires = &expires
	u.UpdatedAt = r.now()
	return nil
}

func (r *UserRepository) ClearPasswordReset(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.PasswordResetToken = nil
	u.PasswordResetExpires = nil
	u.UpdatedAt = r.now()
	return nil
}

// matchReset must be called with the lock held
func (r *UserRepository) matchReset(hashedToken string, now time.Time) *entity.User {
	for _, u := range r.byID {
		if !u.Active || u.PasswordResetToken == nil || u.PasswordResetExpires == nil {
			continue
		}
		if *u.PasswordResetToken == hashedToken && u.PasswordResetExpires.After(now) {
			return u
		}
	}
	return nil
}

func (r *UserRepository) FindByResetToken(_ context.Context, hashedToken string, now time.Time) (*entity.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u := r.matchReset(hashedToken, now)
	if u == nil {
		return nil, repository.ErrNotFound
	}
	return clone(u, false), nil
}

func (r *UserRepository) ConsumePasswordReset(_ context.Context, hashedToken string, now time.Time, passwordHash string, changedAt time.Time) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u := r.matchReset(hashedToken, now)
	if u == nil {
		return nil, repository.ErrNotFound
	}
	u.Password = passwordHash
	u.PasswordChangedAt = &changedAt
	u.PasswordResetToken = nil
	u.PasswordResetExpires = nil
	u.UpdatedAt = r.now()
	return clone(u, false), nil
}

func (r *UserRepository) UpdatePassword(_ context.Context, id, passwordHash string, changedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok || !u.Active {
		return repository.ErrNotFound
	}
	u.Password = passwordHash
	u.PasswordChangedAt = &changedAt
	u.UpdatedAt = r.now()
	return nil
}

func (r *UserRepository) UpdatePhoto(_ context.Context, id, photo string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok || !u.Active {
		return repository.ErrNotFound
	}
	u.Photo = photo
	u.UpdatedAt = r.now()
	return nil
}

// Deactivate soft-deletes a user
func (r *UserRepository) Deactivate(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.Active = false
	return nil
}

func (r *UserRepository) Ping(context.Context) error { return nil }

var _ repository.UserRepository = (*UserRepository)(nil)
