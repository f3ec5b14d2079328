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
	"github.com/rs/zerolog"

	"reviewhub/internal/auth"
	"reviewhub/internal/catalog"
	"reviewhub/internal/comments"
	"reviewhub/internal/feed"
	"reviewhub/internal/httpapi"
	"reviewhub/internal/mailer"
	"reviewhub/internal/reviews"
	"reviewhub/internal/users"
	"reviewhub/pkg/database"
	"reviewhub/pkg/utils"
)

func main() {
	log := zerolog.New(os.Stderr).With().Timestamp().Logger()

	cfg, err := utils.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	if level, err := zerolog.ParseLevel(cfg.Log.Level); err == nil {
		log = log.Level(level)
	}

	db, err := database.Open(database.Config{Path: cfg.Database.Path})
	if err != nil {
		log.Fatal().Err(err).Msg("open database")
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatal().Err(err).Msg("migrate database")
	}

	if err := httpapi.RegisterValidators(); err != nil {
		log.Fatal().Err(err).Msg("register validators")
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(httpapi.RequestLogger(log), gin.Recovery())
	_ = router.SetTrustedProxies([]string{"127.0.0.1"})

	hub := feed.NewHub()
	router.GET("/ws", feed.WSHandler(hub, log))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "db": cfg.Database.Path})
	})

	router.GET("/ready", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := db.PingContext(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":       "not_ready",
				"db_error":     err.Error(),
				"feed_clients": hub.Count(),
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":       "ready",
			"db":           "ok",
			"feed_clients": hub.Count(),
		})
	})

	tokenSvc := auth.TokenService{
		Secret:   []byte(cfg.JWT.Secret),
		Issuer:   cfg.JWT.Issuer,
		Duration: cfg.JWT.TTL,
	}
	authRepo := auth.NewRepo(db)
	mail := mailer.New(cfg.SMTP, log)

	authn := auth.RequireAuth(tokenSvc, authRepo)
	catalogAdmin := auth.Require(auth.CanManageCatalog)
	usersAdmin := auth.Require(auth.CanManageUsers)

	v1 := router.Group("/api/v1")

	authHandler := auth.NewHandler(authRepo, tokenSvc, mail, cfg.Signup.CodeTTL)
	authHandler.RegisterRoutes(v1.Group("/auth"))

	users.NewHandler(authRepo).RegisterRoutes(v1, authn, usersAdmin)
	catalog.NewHandler(catalog.NewRepo(db)).RegisterRoutes(v1, authn, catalogAdmin)
	reviews.NewHandler(reviews.NewRepo(db), hub).RegisterRoutes(v1, authn)
	comments.NewHandler(comments.NewRepo(db), hub).RegisterRoutes(v1, authn)

	httpSrv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.Server.Addr).Msg("HTTP API server listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("shutdown signal received")
	case err := <-errCh:
		log.Error().Err(err).Msg("server error")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown error")
	}
	log.Info().Msg("server stopped")
}
