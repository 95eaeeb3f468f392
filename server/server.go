package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/hrygo/studyhub/internal/profile"
	"github.com/hrygo/studyhub/plugin/reminder"
	apiv1 "github.com/hrygo/studyhub/server/router/api/v1"
	analyticsrunner "github.com/hrygo/studyhub/server/runner/analytics"
	"github.com/hrygo/studyhub/server/service/study"
	"github.com/hrygo/studyhub/store"
)

// rateLimiterIdle is how long a client's limiter survives without requests.
const rateLimiterIdle = 10 * time.Minute

type Server struct {
	Profile *profile.Profile
	Store   *store.Store

	echoServer      *echo.Echo
	apiV1Service    *apiv1.APIV1Service
	reminderRunner  *reminder.Scheduler
	analyticsRunner *analyticsrunner.Runner

	runnerCancel context.CancelFunc
	runnerWG     sync.WaitGroup
}

// NewServer assembles the HTTP API and the background runners. redisClient
// may be nil, in which case reminders are only logged.
func NewServer(ctx context.Context, profile *profile.Profile, store *store.Store, redisClient *redis.Client) (*Server, error) {
	s := &Server{
		Profile: profile,
		Store:   store,
	}

	echoServer := echo.New()
	echoServer.Debug = profile.IsDev()
	echoServer.HideBanner = true
	echoServer.HidePort = true
	echoServer.Use(echomiddleware.Recover())
	echoServer.Use(echomiddleware.BodyLimit("1M"))
	s.echoServer = echoServer

	loc := profile.Location()
	studyService := study.NewService(store, study.WithLocation(loc))

	var notifier reminder.Notifier = reminder.NewLogNotifier(nil)
	if redisClient != nil {
		notifier = reminder.NewRedisNotifier(redisClient, profile.RedisChannel)
	}
	reminderService := reminder.NewService(store, notifier)
	s.reminderRunner = reminder.NewScheduler(reminderService, reminder.SchedulerConfig{
		Interval:  profile.ReminderInterval,
		BatchSize: reminder.DefaultSchedulerConfig().BatchSize,
	})

	var rebuilder apiv1.PlanRebuilder
	if profile.AnalyticsEnabled {
		s.analyticsRunner = analyticsrunner.NewRunner(store, loc, analyticsrunner.DefaultConfig())
		rebuilder = s.analyticsRunner
	}

	s.apiV1Service = apiv1.NewAPIV1Service(profile, studyService, reminderService, rebuilder)
	s.apiV1Service.Register(echoServer)

	return s, nil
}

// Start serves HTTP and launches the background runners. It returns once the
// listener is up.
func (s *Server) Start(ctx context.Context) error {
	address := net.JoinHostPort(s.Profile.Addr, fmt.Sprint(s.Profile.Port))
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return errors.Wrap(err, "failed to listen")
	}

	s.startBackgroundRunners(ctx)

	go func() {
		if err := s.echoServer.Server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("failed to start echo server", "error", err)
		}
	}()
	slog.Info("studyhub server started", "address", address, "version", s.Profile.Version)
	return nil
}

func (s *Server) Shutdown(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	slog.Info("server shutting down")

	if err := s.echoServer.Shutdown(ctx); err != nil {
		slog.Error("failed to shutdown server", slog.String("error", err.Error()))
	}

	if s.runnerCancel != nil {
		s.runnerCancel()
	}
	s.reminderRunner.Stop()
	s.runnerWG.Wait()
	s.apiV1Service.WaitForRebuilds()

	if err := s.Store.Close(); err != nil {
		slog.Error("failed to close database", slog.String("error", err.Error()))
	}

	slog.Info("studyhub stopped properly")
}

func (s *Server) startBackgroundRunners(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	s.runnerCancel = cancel

	if err := s.reminderRunner.Start(ctx); err != nil {
		slog.Error("failed to start reminder scheduler", "error", err)
	}

	if s.analyticsRunner != nil {
		s.runnerWG.Add(1)
		go func() {
			defer s.runnerWG.Done()
			if err := s.analyticsRunner.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				slog.Error("analytics runner stopped", "error", err)
			}
		}()
	}

	s.runnerWG.Add(1)
	go func() {
		defer s.runnerWG.Done()
		ticker := time.NewTicker(rateLimiterIdle)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if pruned := s.apiV1Service.RateLimiter().Prune(rateLimiterIdle); pruned > 0 {
					slog.Debug("pruned idle rate limiters", "count", pruned)
				}
			}
		}
	}()
}

// Handler exposes the HTTP handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.echoServer
}

// NewRedisClient connects to the configured Redis. It returns nil when
// Redis is not configured.
func NewRedisClient(ctx context.Context, profile *profile.Profile) (*redis.Client, error) {
	if profile.RedisAddr == "" {
		return nil, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:         profile.RedisAddr,
		Password:     profile.RedisPassword,
		DB:           profile.RedisDB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, "failed to connect to redis")
	}
	return client, nil
}
