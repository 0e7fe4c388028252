package application

import (
	"context"
	"errors"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/auth-api/internal/domain/entity"
	repo "github.com/oksasatya/auth-api/internal/domain/repository"
	"github.com/oksasatya/auth-api/pkg/apperr"
	"github.com/oksasatya/auth-api/pkg/helpers"
)

var ErrPhotoStorageDisabled = errors.New("photo storage not configured")

// PhotoStore is satisfied by helpers.GCSUploader
type PhotoStore interface {
	Upload(ctx context.Context, objectPath, contentType string, r io.Reader) (string, error)
}

var photoExt = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

// UserService serves profile reads and updates for authenticated users.
type UserService struct {
	Repo   repo.UserRepository
	Photos PhotoStore
	Index  UserIndex
	Logger *logrus.Logger
}

func NewUserService(users repo.UserRepository, photos PhotoStore, index UserIndex, logger *logrus.Logger) *UserService {
	return &UserService{Repo: users, Photos: photos, Index: index, Logger: logger}
}

func (s *UserService) log() *logrus.Logger {
	if s.Logger == nil {
		return helpers.NewDiscardLogger()
	}
	return s.Logger
}

func (s *UserService) GetMe(ctx context.Context, userID string) (*entity.User, error) {
	u, err := s.Repo.GetByID(ctx, userID)
	if err != nil {
		return nil, storeError(err, MsgNoDocument)
	}
	return u, nil
}

// UploadPhoto stores an image under photos/<user>/ and points the profile at it.
func (s *UserService) UploadPhoto(ctx context.Context, userID string, r io.Reader, contentType string) (*entity.User, error) {
	ct := strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0]))
	ext, ok := photoExt[ct]
	if !ok {
		return nil, apperr.Validation("Not an image! Please upload only images.", map[string]string{"photo": "unsupported content type"})
	}
	if s.Photos == nil {
		return nil, apperr.Internal(ErrPhotoStorageDisabled)
	}

	objectPath := path.Join("photos", userID, uuid.NewString()+ext)
	url, err := s.Photos.Upload(ctx, objectPath, ct, r)
	if err != nil {
		s.log().WithError(err).WithField("user_id", userID).Error("photo upload failed")
		return nil, apperr.Internal(err)
	}
	if err := s.Repo.UpdatePhoto(ctx, userID, url); err != nil {
		return nil, storeError(err, MsgNoDocument)
	}

	u, err := s.GetMe(ctx, userID)
	if err != nil {
		return nil, err
	}
	if s.Index != nil {
		if err := s.Index.IndexUser(ctx, u); err != nil {
			s.log().WithError(err).WithField("user_id", u.ID).Warn("es index failed")
		}
	}
	return u, nil
}

// SearchUsers returns an empty result when no index is configured.
func (s *UserService) SearchUsers(ctx context.Context, q string, size int) ([]*entity.User, error) {
	if s.Index == nil || strings.TrimSpace(q) == "" {
		return []*entity.User{}, nil
	}
	users, err := s.Index.SearchUsers(ctx, q, size)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return users, nil
}
