package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/auth-api/config"
	"github.com/oksasatya/auth-api/internal/application"
	"github.com/oksasatya/auth-api/internal/container"
	"github.com/oksasatya/auth-api/internal/infrastructure/notify"
	"github.com/oksasatya/auth-api/internal/infrastructure/search"
	"github.com/oksasatya/auth-api/internal/infrastructure/store"
	"github.com/oksasatya/auth-api/internal/router"
	"github.com/oksasatya/auth-api/pkg/helpers"
	mailtpl "github.com/oksasatya/auth-api/pkg/mailer/templates"
	"github.com/oksasatya/auth-api/pkg/validation"
)

func main() {
	_ = godotenv.Load() // load .env if present

	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName, cfg.Env)
	gin.SetMode(cfg.GinMode)
	validation.Init()

	ctx := context.Background()

	users, closeStore, err := store.Open(ctx, cfg, logger)
	if err != nil {
		logger.WithError(err).WithField("driver", cfg.StoreDriver).Fatal("failed to open user store")
	}
	defer closeStore()

	// Redis backs the rate limiters; without it they are disabled
	if cfg.RedisAddr != "" {
		rdb, err := helpers.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			logger.WithError(err).Fatal("failed to connect to redis")
		}
		defer func() { _ = rdb.Close() }()
		container.SetRedis(rdb)
	} else {
		logger.Warn("REDIS_ADDR not set; rate limiting disabled")
	}

	notifier, closeNotifier := newNotifier(cfg, logger)
	defer closeNotifier()

	if cfg.GCSBucket != "" {
		gcsClient, err := helpers.NewGCSClient(ctx, cfg.GCSCredentialsJSONPath)
		if err != nil {
			logger.WithError(err).Fatal("failed to init GCS client")
		}
		defer func() { _ = gcsClient.Close() }()
		container.SetPhotoStore(helpers.NewGCSUploader(gcsClient, cfg.GCSBucket))
	}

	if addrs := cfg.ESAddrs(); len(addrs) > 0 {
		es, err := helpers.NewESClient(addrs, cfg.ElasticsearchUser, cfg.ElasticsearchPass)
		if err != nil {
			logger.WithError(err).Fatal("failed to init elasticsearch client")
		}
		container.SetUserIndex(search.NewUserIndex(es, cfg.ESUsersIndex))
	}

	container.SetConfig(cfg)
	container.SetLogger(logger)
	container.SetUsers(users)
	container.SetJWT(helpers.NewJWTManager(cfg.JWTAccessSecret, cfg.JWTRefreshSecret, cfg.AccessTTL, cfg.RefreshTTL))
	container.SetHasher(helpers.NewPasswordHasher(cfg.BcryptCost, 0))
	container.SetNotifier(notifier)

	r := router.NewEngine(router.DepsFromContainer())

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: r, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		logger.Infof("server starting on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("listen: %s\n", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctxShutdown); err != nil {
		logger.Fatalf("server forced to shutdown: %v", err)
	}
	logger.Info("server exited properly")
}

func newNotifier(cfg *config.Config, logger *logrus.Logger) (application.Notifier, func()) {
	switch cfg.MailDriver {
	case config.MailQueue:
		pub, err := helpers.NewRabbitPublisher(cfg.RabbitMQURL, cfg.RabbitMQEmailQueue)
		if err != nil {
			logger.WithError(err).Fatal("failed to connect to rabbitmq")
		}
		return notify.NewQueueNotifier(pub, cfg), pub.Close
	case config.MailMailgun, config.MailPostmark:
		s, err := notify.NewSender(cfg, cfg.MailDriver)
		if err != nil {
			logger.WithError(err).Fatal("failed to init mail sender")
		}
		return notify.NewDirectNotifier(s, cfg, mailtpl.IPAPIResolver{}), func() {}
	default:
		logger.WithField("driver", cfg.MailDriver).Info("emails are written to the log")
		return notify.NewLogNotifier(logger, cfg.Env), func() {}
	}
}
