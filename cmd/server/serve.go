package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	apiHandler "github.com/fastygo/leadboard/api/handler"
	"github.com/fastygo/leadboard/internal/infrastructure/journal"
	"github.com/fastygo/leadboard/internal/infrastructure/monitor"
	redisInfra "github.com/fastygo/leadboard/internal/infrastructure/redis"
	"github.com/fastygo/leadboard/internal/middleware"
	"github.com/fastygo/leadboard/internal/router"
	"github.com/fastygo/leadboard/internal/services"
	"github.com/fastygo/leadboard/internal/services/lifecycle"
	"github.com/fastygo/leadboard/pkg/httpcontext"
	"github.com/fastygo/leadboard/repository"
	redisRepo "github.com/fastygo/leadboard/repository/redis"
	"github.com/fastygo/leadboard/usecase"
	activityUC "github.com/fastygo/leadboard/usecase/activity"
	authUC "github.com/fastygo/leadboard/usecase/auth"
	leadUC "github.com/fastygo/leadboard/usecase/lead"
	taskUC "github.com/fastygo/leadboard/usecase/task"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd.Context())
	},
}

func serve(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	manager := lifecycle.New(cfg.Context.ShutdownTimeout, zapLogger)
	appCtx, stop := manager.Listen(parent)
	defer stop()

	st, err := openStores(appCtx, cfg, zapLogger)
	if err != nil {
		return err
	}
	manager.Register(cfg.Database.Driver, func(context.Context) error {
		st.close()
		return nil
	})

	redisClient, err := redisInfra.NewClient(appCtx, cfg.Redis, zapLogger)
	if err != nil {
		_ = manager.Shutdown(context.Background())
		return err
	}

	var (
		sessions repository.SessionRepository
		cache    repository.LeadPageCache
	)
	if redisClient != nil {
		manager.Register("redis", func(context.Context) error {
			return redisClient.Close()
		})
		sessions = redisRepo.NewSessionRepository(redisClient, cfg.JWT.TTL)
		cache = redisRepo.NewLeadPageCache(redisClient, cfg.Redis.CacheTTL)
	} else {
		zapLogger.Info("redis disabled: sessions are stateless and lead pages are not cached")
	}

	var (
		recorder    usecase.ActivityRecorder
		activityLog repository.ActivityLog
		pruner      services.JournalPruner
		sizer       monitor.Sizer
	)
	if cfg.Journal.Path != "" {
		store, err := journal.Open(cfg.Journal.Path)
		if err != nil {
			_ = manager.Shutdown(context.Background())
			return fmt.Errorf("open journal: %w", err)
		}
		manager.Register("journal", func(context.Context) error {
			return store.Close()
		})
		recorder, activityLog, pruner, sizer = store, store, store, store
	}

	activity := usecase.NewJournal(recorder, zapLogger)
	authUseCase := authUC.New(st.users, sessions, authUC.Config{
		Secret: cfg.JWT.Secret,
		Issuer: cfg.JWT.Issuer,
		TTL:    cfg.JWT.TTL,
	}, zapLogger)
	leadUseCase := leadUC.New(st.leads, cache, activity, zapLogger)
	taskUseCase := taskUC.New(st.tasks, st.leads, activity, zapLogger)
	activityUseCase := activityUC.New(activityLog, zapLogger)

	if cfg.Admin.Password != "" {
		if _, created, err := authUseCase.EnsureAdmin(appCtx, cfg.Admin.Username, cfg.Admin.Email, cfg.Admin.Password); err != nil {
			zapLogger.Error("ensure admin failed", zap.Error(err))
		} else if created {
			zapLogger.Info("admin user created", zap.String("username", cfg.Admin.Username))
		}
	}

	mon := monitor.New(st.db, cfg.Database.Driver, redisClient, sizer, cfg.Maintenance.MonitorInterval, zapLogger)
	mon.Start()
	manager.Register("monitor", func(context.Context) error {
		mon.Stop()
		return nil
	})

	maintenance, err := services.NewMaintenance(pruner, taskUseCase, zapLogger, services.MaintenanceConfig{
		RetentionSpec:  cfg.Maintenance.RetentionSpec,
		CompactionSpec: cfg.Maintenance.CompactionSpec,
		Retention:      cfg.Journal.Retention,
	})
	if err != nil {
		_ = manager.Shutdown(context.Background())
		return err
	}
	maintenance.Start()
	manager.Register("maintenance", maintenance.Stop)

	ctxAdapter := httpcontext.NewAdapter(cfg.Context.RequestTimeout)
	handlers := router.Handlers{
		Auth:     apiHandler.NewAuthHandler(authUseCase, ctxAdapter, zapLogger),
		Lead:     apiHandler.NewLeadHandler(leadUseCase, taskUseCase, ctxAdapter, zapLogger),
		Task:     apiHandler.NewTaskHandler(taskUseCase, ctxAdapter, zapLogger),
		Activity: apiHandler.NewActivityHandler(activityUseCase, ctxAdapter, zapLogger),
		Health:   apiHandler.NewHealthHandler(mon, ctxAdapter, zapLogger),
	}
	authMiddleware := middleware.JWTAuth(authUseCase, ctxAdapter, zapLogger)

	server := &fasthttp.Server{
		Handler:      router.New(handlers, authMiddleware, zapLogger),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
		Concurrency:  cfg.HTTP.MaxConn,
		Name:         cfg.AppName,
	}

	serveErr := make(chan error, 1)
	go func() {
		zapLogger.Info("server started",
			zap.String("address", cfg.Address()),
			zap.String("driver", cfg.Database.Driver),
			zap.Bool("redis", redisClient != nil),
			zap.Bool("journal", activityLog != nil),
		)
		serveErr <- server.ListenAndServe(cfg.Address())
	}()
	manager.Register("http_server", func(ctx context.Context) error {
		return server.ShutdownWithContext(ctx)
	})

	var runErr error
	select {
	case <-appCtx.Done():
	case err := <-serveErr:
		if err != nil {
			runErr = fmt.Errorf("server crashed: %w", err)
		}
	}

	if err := manager.Shutdown(context.Background()); err != nil {
		zapLogger.Error("graceful shutdown error", zap.Error(err))
	}
	return runErr
}
