package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/iliyamo/ubs-backend/internal/config"
	"github.com/iliyamo/ubs-backend/internal/database"
	"github.com/iliyamo/ubs-backend/internal/handler"
	"github.com/iliyamo/ubs-backend/internal/middleware"
	"github.com/iliyamo/ubs-backend/internal/queue"
	"github.com/iliyamo/ubs-backend/internal/repository"
	"github.com/iliyamo/ubs-backend/internal/router"
	"github.com/iliyamo/ubs-backend/internal/service"
)

const shutdownTimeout = 10 * time.Second

func runServer(cfg *config.Config, logger zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Database
	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		return err
	}
	defer db.Close()
	logger.Info().Str("db", cfg.DBName).Msg("connected to database")

	// Redis is optional: without it the cache is off and the in-process
	// limiter guards the auth routes.
	rdb := config.NewRedisClient(cfg.Redis)
	if rdb == nil {
		logger.Warn().Str("addr", cfg.Redis.Addr).Msg("redis unavailable, cache and distributed rate limit disabled")
	} else {
		defer rdb.Close()
	}

	// Events
	var events service.EventPublisher = queue.NopPublisher{}
	if cfg.EventsEnabled {
		events = queue.NewPublisher(cfg.RabbitURL, cfg.EventQueue, logger)
		if cfg.ConsumeEnabled {
			consumer := queue.NewConsumer(cfg.RabbitURL, cfg.EventQueue, cfg.EventLogPath, logger)
			go func() {
				if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
					logger.Error().Err(err).Msg("event consumer stopped")
				}
			}()
		}
	}

	// Repositories
	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	attempts := repository.NewLoginAttemptRepo(db)
	professionals := repository.NewProfessionalRepo(db)
	appointments := repository.NewAppointmentRepo(db)
	blocks := repository.NewBlockRepo(db)
	units := repository.NewUBSRepo(db)
	problems := repository.NewProblemRepo(db)
	teams := repository.NewTeamRepo(db)
	calendar := repository.NewCalendarRepo(db)

	// Services
	guard := service.NewLoginGuard(service.GuardConfig{
		MaxFailedAttempts: cfg.MaxFailedAttempts,
		LockoutDuration:   cfg.LockoutDuration,
	}, users, attempts, nil, logger)
	slots := service.NewSlotValidator(service.SlotConfig{Horizon: cfg.BookingHorizon}, appointments, blocks, nil)
	booking := service.NewAppointmentService(appointments, professionals, slots, events, nil, logger)
	blockSvc := service.NewBlockService(blocks, professionals)

	// Handlers
	authH := handler.NewAuthHandler(cfg, users, tokens, guard)
	apptH := handler.NewAppointmentHandler(booking, professionals, blockSvc)
	adminH := handler.NewAdminHandler(users, professionals, attempts, tokens)
	ubsH := handler.NewUBSHandler(units, problems)
	teamH := handler.NewTeamHandler(teams, users, units)
	calH := handler.NewCalendarHandler(calendar, units)

	var authLimit, cache echo.MiddlewareFunc
	if rdb != nil && cfg.RateLimit.Enabled {
		authLimit = middleware.NewTokenBucket(cfg.RateLimit, rdb, logger)
	} else {
		authLimit = middleware.NewLoginLimiter(cfg.LoginRatePerMin, cfg.LoginRateBurst).Middleware()
	}
	if rdb != nil && cfg.Cache.Enabled {
		cache = middleware.NewRedisCache(cfg.Cache, rdb, logger)
		adminH.DirectoryChanged = func(ctx context.Context) error {
			return middleware.PurgeCache(ctx, rdb, cfg.Cache)
		}
	}

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(echomw.BodyLimit("1M"))

	router.RegisterRoutes(e, db)
	router.RegisterAuth(e, authH, cfg.JWTSecret, authLimit)
	router.RegisterAppointments(e, apptH, cfg.JWTSecret, cache)
	router.RegisterAdmin(e, adminH, cfg.JWTSecret)
	router.RegisterUBS(e, ubsH, cfg.JWTSecret)
	router.RegisterTeams(e, teamH, cfg.JWTSecret)
	router.RegisterCalendar(e, calH, cfg.JWTSecret)

	errc := make(chan error, 1)
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}
