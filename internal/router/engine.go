package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/oksasatya/auth-api/internal/interface/middleware"
)

// NewEngine builds the gin engine with global middleware, every module under
// /api and the JSON 404 fallback.
func NewEngine(d Deps) *gin.Engine {
	cfg := d.Config

	r := gin.New()
	if !cfg.TrustProxy {
		_ = r.SetTrustedProxies(nil)
	}
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.RealIP(cfg.TrustProxy))
	r.Use(middleware.ErrorHandler(d.Logger, cfg.Env))
	r.Use(middleware.Recovery())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins(),
		AllowOriginFunc:  func(string) bool { return len(cfg.CORSOrigins()) == 0 && !cfg.IsProduction() },
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	if cfg.Env == "development" {
		r.Use(gin.Logger())
	}
	r.NoRoute(middleware.NotFound())

	var allow middleware.AllowFunc
	if !cfg.IsProduction() {
		allow = middleware.AllowPrivateIP()
	}

	reg := NewRegistry(r)
	reg.Use(middleware.RateLimit(d.Redis, cfg.RateLimitMax, cfg.RateLimitWindow, middleware.KeyByIP(), allow))
	InitModules(reg, d)
	reg.RegisterAll()
	return r
}
