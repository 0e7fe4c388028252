package application

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/auth-api/internal/domain/entity"
	repo "github.com/oksasatya/auth-api/internal/domain/repository"
	"github.com/oksasatya/auth-api/pkg/apperr"
	"github.com/oksasatya/auth-api/pkg/helpers"
)

// Client-facing messages
const (
	MsgIncorrectCredentials = "Incorrect email or password"
	MsgMissingCredentials   = "Please provide email and password!"
	MsgNoUserWithEmail      = "There is no user with email address."
	MsgEmailDispatchFailed  = "There was an error sending the email. Try again later!"
	MsgTokenInvalidExpired  = "Token is invalid or has expired"
	MsgWrongCurrentPassword = "Your current password is wrong."
	MsgDuplicateEmail       = "Email already in use. Please use another email!"
	MsgNotLoggedIn          = "You are not logged in! Please log in to get access."
	MsgUserGone             = "The user belonging to this token does no longer exist."
	MsgPasswordChanged      = "User recently changed password! Please log in again."
	MsgNoDocument           = "No document found with that ID"
)

const MinPasswordLength = 8

var fieldValidator = validator.New()

// Notifier delivers account emails
type Notifier interface {
	SendPasswordReset(ctx context.Context, u *entity.User, resetURL string, expiresAt time.Time) error
	SendWelcome(ctx context.Context, u *entity.User) error
}

// UserIndex mirrors public user fields into a search backend
type UserIndex interface {
	IndexUser(ctx context.Context, u *entity.User) error
	SearchUsers(ctx context.Context, q string, size int) ([]*entity.User, error)
}

// Requester describes the client behind a request, for security notices in emails
type Requester struct {
	IP        string
	UserAgent string
}

type requesterKey struct{}

func WithRequester(ctx context.Context, r Requester) context.Context {
	return context.WithValue(ctx, requesterKey{}, r)
}

// RequesterFrom returns the Requester stored by WithRequester, if any
func RequesterFrom(ctx context.Context) (Requester, bool) {
	r, ok := ctx.Value(requesterKey{}).(Requester)
	return r, ok
}

type TokenPair struct {
	AccessToken        string
	AccessTokenExpiry  time.Time
	RefreshToken       string
	RefreshTokenExpiry time.Time
}

// AuthService owns the credential lifecycle. Index is optional.
type AuthService struct {
	Repo     repo.UserRepository
	JWT      *helpers.JWTManager
	Hasher   *helpers.PasswordHasher
	Notifier Notifier
	Index    UserIndex
	Logger   *logrus.Logger
	Now      func() time.Time
}

func NewAuthService(users repo.UserRepository, jwt *helpers.JWTManager, hasher *helpers.PasswordHasher, notifier Notifier, logger *logrus.Logger) *AuthService {
	return &AuthService{
		Repo:     users,
		JWT:      jwt,
		Hasher:   hasher,
		Notifier: notifier,
		Logger:   logger,
		Now:      time.Now,
	}
}

func (s *AuthService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *AuthService) log() *logrus.Logger {
	if s.Logger == nil {
		return helpers.NewDiscardLogger()
	}
	return s.Logger
}

type SignupInput struct {
	Name            string
	Email           string
	Password        string
	PasswordConfirm string
}

// NormalizeEmail trims and lower-cases an address
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateNewPassword checks length and confirmation of a password about to be stored.
func ValidateNewPassword(password, confirm string) error {
	details := map[string]string{}
	if len(password) < MinPasswordLength {
		details["password"] = "A password must have at least 8 characters"
	}
	if confirm == "" {
		details["passwordConfirm"] = "Please confirm your password"
	} else if password != confirm {
		details["passwordConfirm"] = "Passwords are not the same!"
	}
	if len(details) > 0 {
		return apperr.Validation(validationMessage(details), details)
	}
	return nil
}

func validateSignup(in SignupInput) error {
	details := map[string]string{}
	if strings.TrimSpace(in.Name) == "" {
		details["name"] = "Please tell us your name!"
	}
	if in.Email == "" {
		details["email"] = "Please provide your email"
	} else if err := fieldValidator.Var(in.Email, "email"); err != nil {
		details["email"] = "Please provide a valid email"
	}
	var pe *apperr.Error
	if err := ValidateNewPassword(in.Password, in.PasswordConfirm); errors.As(err, &pe) {
		for k, v := range pe.Details {
			details[k] = v
		}
	}
	if len(details) > 0 {
		return apperr.Validation(validationMessage(details), details)
	}
	return nil
}

// validationMessage joins the field messages in a stable order
func validationMessage(details map[string]string) string {
	parts := make([]string, 0, len(details))
	for _, k := range []string{"name", "email", "password", "passwordConfirm"} {
		if m, ok := details[k]; ok {
			parts = append(parts, m)
		}
	}
	return "Invalid input data. " + strings.Join(parts, ". ")
}

// storeError maps repository sentinels onto the public taxonomy
func storeError(err error, notFound string) error {
	switch {
	case errors.Is(err, repo.ErrNotFound), errors.Is(err, repo.ErrInvalidID):
		return apperr.Wrap(apperr.KindUserNotFound, notFound, err)
	case errors.Is(err, repo.ErrDuplicateEmail):
		return apperr.Wrap(apperr.KindDuplicateEmail, MsgDuplicateEmail, err)
	}
	return apperr.Internal(err)
}

// IssueTokens signs a fresh access/refresh pair for u.
func (s *AuthService) IssueTokens(u *entity.User) (TokenPair, error) {
	access, aexp, err := s.JWT.GenerateAccessToken(u.ID)
	if err != nil {
		s.log().WithError(err).WithField("user_id", u.ID).Error("generate access token failed")
		return TokenPair{}, apperr.Internal(err)
	}
	refresh, rexp, err := s.JWT.GenerateRefreshToken(u.ID)
	if err != nil {
		s.log().WithError(err).WithField("user_id", u.ID).Error("generate refresh token failed")
		return TokenPair{}, apperr.Internal(err)
	}
	return TokenPair{AccessToken: access, AccessTokenExpiry: aexp, RefreshToken: refresh, RefreshTokenExpiry: rexp}, nil
}

func (s *AuthService) withTokens(u *entity.User) (*entity.User, TokenPair, error) {
	pair, err := s.IssueTokens(u)
	if err != nil {
		return nil, TokenPair{}, err
	}
	return u, pair, nil
}

func (s *AuthService) Signup(ctx context.Context, in SignupInput) (*entity.User, TokenPair, error) {
	in.Email = NormalizeEmail(in.Email)
	if err := validateSignup(in); err != nil {
		return nil, TokenPair{}, err
	}

	hash, err := s.Hasher.Hash(ctx, in.Password)
	if err != nil {
		return nil, TokenPair{}, apperr.Internal(err)
	}
	u := &entity.User{
		Name:     strings.TrimSpace(in.Name),
		Email:    in.Email,
		Photo:    entity.DefaultPhoto,
		Role:     entity.RoleUser,
		Password: hash,
		Active:   true,
	}
	if err := s.Repo.Create(ctx, u); err != nil {
		return nil, TokenPair{}, storeError(err, MsgNoDocument)
	}
	u.Password = ""

	if s.Notifier != nil {
		if err := s.Notifier.SendWelcome(ctx, u); err != nil {
			s.log().WithError(err).WithField("user_id", u.ID).Warn("welcome email failed")
		}
	}
	s.index(ctx, u)

	return s.withTokens(u)
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*entity.User, TokenPair, error) {
	email = NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, TokenPair{}, apperr.Validation(MsgMissingCredentials, nil)
	}

	u, err := s.Repo.GetByEmail(ctx, email, repo.WithPassword())
	if err != nil && !errors.Is(err, repo.ErrNotFound) {
		return nil, TokenPair{}, apperr.Internal(err)
	}
	if u == nil || !s.Hasher.Compare(ctx, u.Password, password) {
		return nil, TokenPair{}, apperr.InvalidCredentials(MsgIncorrectCredentials)
	}
	u.Password = ""
	return s.withTokens(u)
}

// ForgotPassword stores a reset ticket digest and mails the plain secret to the
// user. If the mail cannot be sent the ticket is withdrawn again.
func (s *AuthService) ForgotPassword(ctx context.Context, email, resetBaseURL string) error {
	u, err := s.Repo.GetByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		return storeError(err, MsgNoUserWithEmail)
	}

	ticket, err := helpers.NewResetTicket(s.now())
	if err != nil {
		return apperr.Internal(err)
	}
	if err := s.Repo.SetPasswordReset(ctx, u.ID, ticket.Hashed, ticket.ExpiresAt); err != nil {
		return storeError(err, MsgNoUserWithEmail)
	}

	resetURL := strings.TrimRight(resetBaseURL, "/") + "/" + ticket.Plain
	if err := s.Notifier.SendPasswordReset(ctx, u, resetURL, ticket.ExpiresAt); err != nil {
		s.log().WithError(err).WithField("user_id", u.ID).Error("password reset email failed")
		if cErr := s.Repo.ClearPasswordReset(context.WithoutCancel(ctx), u.ID); cErr != nil {
			s.log().WithError(cErr).WithField("user_id", u.ID).Error("clear password reset failed")
		}
		return apperr.EmailDispatchFailed(MsgEmailDispatchFailed, err)
	}
	return nil
}

func (s *AuthService) ResetPassword(ctx context.Context, plainToken, password, confirm string) (*entity.User, TokenPair, error) {
	if err := ValidateNewPassword(password, confirm); err != nil {
		return nil, TokenPair{}, err
	}

	now := s.now()
	digest := helpers.HashResetToken(plainToken)
	if _, err := s.Repo.FindByResetToken(ctx, digest, now); err != nil {
		return nil, TokenPair{}, resetError(err)
	}

	hash, err := s.Hasher.Hash(ctx, password)
	if err != nil {
		return nil, TokenPair{}, apperr.Internal(err)
	}
	u, err := s.Repo.ConsumePasswordReset(ctx, digest, now, hash, entity.PasswordChangeTime(now))
	if err != nil {
		return nil, TokenPair{}, resetError(err)
	}
	return s.withTokens(u)
}

func resetError(err error) error {
	if errors.Is(err, repo.ErrNotFound) {
		return apperr.Wrap(apperr.KindTokenInvalidOrExpired, MsgTokenInvalidExpired, err)
	}
	return apperr.Internal(err)
}

func (s *AuthService) UpdatePassword(ctx context.Context, userID, current, password, confirm string) (*entity.User, TokenPair, error) {
	if err := ValidateNewPassword(password, confirm); err != nil {
		return nil, TokenPair{}, err
	}

	u, err := s.Repo.GetByID(ctx, userID, repo.WithPassword())
	if err != nil {
		return nil, TokenPair{}, storeError(err, MsgNoDocument)
	}
	if !s.Hasher.Compare(ctx, u.Password, current) {
		return nil, TokenPair{}, apperr.InvalidCredentials(MsgWrongCurrentPassword)
	}

	hash, err := s.Hasher.Hash(ctx, password)
	if err != nil {
		return nil, TokenPair{}, apperr.Internal(err)
	}
	changedAt := entity.PasswordChangeTime(s.now())
	if err := s.Repo.UpdatePassword(ctx, u.ID, hash, changedAt); err != nil {
		return nil, TokenPair{}, storeError(err, MsgNoDocument)
	}
	u.Password = ""
	u.PasswordChangedAt = &changedAt
	return s.withTokens(u)
}

// Refresh exchanges a valid refresh token for a new pair. Tokens minted before
// the latest password change are refused.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*entity.User, TokenPair, error) {
	if refreshToken == "" {
		return nil, TokenPair{}, apperr.Unauthenticated(MsgNotLoggedIn)
	}
	claims, err := s.JWT.ParseRefreshToken(refreshToken)
	if err != nil {
		return nil, TokenPair{}, apperr.Wrap(apperr.KindUnauthenticated, "Invalid refresh token. Please log in again!", err)
	}

	u, err := s.Repo.GetByID(ctx, claims.UserID)
	if err != nil {
		return nil, TokenPair{}, storeError(err, MsgUserGone)
	}
	if u.ChangedPasswordAfter(claims.IssuedAtTime()) {
		return nil, TokenPair{}, apperr.Unauthenticated(MsgPasswordChanged)
	}
	return s.withTokens(u)
}

// index is best effort; search is a convenience copy
func (s *AuthService) index(ctx context.Context, u *entity.User) {
	if s.Index == nil {
		return
	}
	if err := s.Index.IndexUser(ctx, u); err != nil {
		s.log().WithError(err).WithField("user_id", u.ID).Warn("es index failed")
	}
}
