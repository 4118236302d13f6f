// Package app wires stores, services, controllers and routes into a gin engine.
package app

import (
	"context"
	"time"

	"github.com/bellapacxx/guba-backend/cache"
	"github.com/bellapacxx/guba-backend/config"
	"github.com/bellapacxx/guba-backend/controllers"
	"github.com/bellapacxx/guba-backend/middleware"
	"github.com/bellapacxx/guba-backend/routes"
	"github.com/bellapacxx/guba-backend/services"
	"github.com/bellapacxx/guba-backend/store"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

type App struct {
	Router    *gin.Engine
	Auth      *services.AuthService
	Posts     *services.PostService
	Wallet    *services.WalletService
	Hub       *services.Hub
	Scheduler *services.Scheduler

	authLimit *middleware.RateLimiter
	stop      chan struct{}
}

func New(cfg *config.Config, st store.Store, c cache.Cache) *App {
	hub := services.NewHub()
	idem := services.NewIdempotency(c, cfg.IdempotencyTTL)
	tokens := services.NewTokenManager(cfg.JWTSecret, cfg.TokenTTL)

	authSvc := services.NewAuthService(st, tokens, c)
	userSvc := services.NewUserService(st, authSvc)
	postSvc := services.NewPostService(st, st, c, cfg.PostsCacheTTL, hub, idem)
	walletSvc := services.NewWalletService(st, hub, idem)
	supportSvc := services.NewSupportService(st, st)

	a := &App{
		Auth:      authSvc,
		Posts:     postSvc,
		Wallet:    walletSvc,
		Hub:       hub,
		Scheduler: services.NewScheduler(postSvc),
		authLimit: middleware.NewRateLimiter(cfg.AuthRateLimit, cfg.AuthRateBurst),
		stop:      make(chan struct{}),
	}
	a.Router = a.setupRouter(cfg, routes.Deps{
		Auth:      controllers.NewAuthController(authSvc),
		Users:     controllers.NewUserController(userSvc),
		Posts:     controllers.NewPostController(postSvc),
		Wallet:    controllers.NewWalletController(walletSvc),
		Support:   controllers.NewSupportController(supportSvc),
		WS:        controllers.NewWSController(authSvc, hub, cfg.CORSOrigins),
		Verifier:  authSvc,
		AuthLimit: a.authLimit,
	})
	return a
}

// setupRouter initializes Gin routes and middleware
func (a *App) setupRouter(cfg *config.Config, deps routes.Deps) *gin.Engine {
	r := gin.New()

	// Middleware
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.Metrics())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "Idempotency-Key"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	routes.SetupRoutes(r, deps)
	return r
}

// Start seeds the admin account and starts background jobs.
func (a *App) Start(ctx context.Context, cfg *config.Config) error {
	if err := a.Auth.EnsureAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword); err != nil {
		return err
	}
	a.authLimit.StartCleanup(10*time.Minute, a.stop)
	return a.Scheduler.Start(cfg.CloseDrawsSchedule)
}

// Shutdown stops background jobs and disconnects websocket clients.
func (a *App) Shutdown(ctx context.Context) {
	close(a.stop)
	a.Scheduler.Stop(ctx)
	a.Hub.Close()
}
