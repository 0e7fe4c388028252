package container

import (
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/auth-api/config"
	"github.com/oksasatya/auth-api/internal/application"
	"github.com/oksasatya/auth-api/internal/domain/repository"
	"github.com/oksasatya/auth-api/pkg/helpers"
)

// Process-wide singletons, set once by cmd/main.go before the router is built.
var (
	cfg         *config.Config
	logger      *logrus.Logger
	users       repository.UserRepository
	redisClient *redis.Client
	jwtManager  *helpers.JWTManager
	hasher      *helpers.PasswordHasher
	notifier    application.Notifier
	userIndex   application.UserIndex
	photos      application.PhotoStore
)

func SetConfig(c *config.Config)             { cfg = c }
func GetConfig() *config.Config              { return cfg }
func SetLogger(l *logrus.Logger)             { logger = l }
func SetUsers(r repository.UserRepository)   { users = r }
func GetUsers() repository.UserRepository    { return users }
func SetRedis(r *redis.Client)               { redisClient = r }
func GetRedis() *redis.Client                { return redisClient }
func SetJWT(m *helpers.JWTManager)           { jwtManager = m }
func GetJWT() *helpers.JWTManager            { return jwtManager }
func SetHasher(h *helpers.PasswordHasher)    { hasher = h }
func GetHasher() *helpers.PasswordHasher     { return hasher }
func SetNotifier(n application.Notifier)     { notifier = n }
func GetNotifier() application.Notifier      { return notifier }
func SetUserIndex(i application.UserIndex)   { userIndex = i }
func GetUserIndex() application.UserIndex    { return userIndex }
func SetPhotoStore(p application.PhotoStore) { photos = p }
func GetPhotoStore() application.PhotoStore  { return photos }

func GetLogger() *logrus.Logger {
	if logger == nil {
		return helpers.NewDiscardLogger()
	}
	return logger
}
