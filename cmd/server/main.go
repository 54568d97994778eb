package main

import (
	"context"
	"log"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	goRedis "github.com/redis/go-redis/v9"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	apiHandler "github.com/fastygo/teamspace/api/handler"
	"github.com/fastygo/teamspace/domain"
	"github.com/fastygo/teamspace/internal/config"
	"github.com/fastygo/teamspace/internal/infrastructure/firebase"
	"github.com/fastygo/teamspace/internal/infrastructure/ledger"
	"github.com/fastygo/teamspace/internal/infrastructure/llm"
	"github.com/fastygo/teamspace/internal/infrastructure/mailer"
	"github.com/fastygo/teamspace/internal/infrastructure/monitor"
	pgInfra "github.com/fastygo/teamspace/internal/infrastructure/postgres"
	redisInfra "github.com/fastygo/teamspace/internal/infrastructure/redis"
	"github.com/fastygo/teamspace/internal/middleware"
	"github.com/fastygo/teamspace/internal/realtime"
	"github.com/fastygo/teamspace/internal/router"
	"github.com/fastygo/teamspace/internal/services"
	"github.com/fastygo/teamspace/internal/services/lifecycle"
	"github.com/fastygo/teamspace/pkg/httpcontext"
	"github.com/fastygo/teamspace/pkg/logger"
	"github.com/fastygo/teamspace/repository"
	"github.com/fastygo/teamspace/repository/gcs"
	"github.com/fastygo/teamspace/repository/memory"
	"github.com/fastygo/teamspace/repository/postgres"
	redisRepo "github.com/fastygo/teamspace/repository/redis"
	"github.com/fastygo/teamspace/usecase"
	assistantUC "github.com/fastygo/teamspace/usecase/assistant"
	authUC "github.com/fastygo/teamspace/usecase/auth"
	calendarUC "github.com/fastygo/teamspace/usecase/calendar"
	dashboardUC "github.com/fastygo/teamspace/usecase/dashboard"
	documentUC "github.com/fastygo/teamspace/usecase/document"
	notificationUC "github.com/fastygo/teamspace/usecase/notification"
	profileUC "github.com/fastygo/teamspace/usecase/profile"
	projectUC "github.com/fastygo/teamspace/usecase/project"
	taskUC "github.com/fastygo/teamspace/usecase/task"
	teamUC "github.com/fastygo/teamspace/usecase/team"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	zapLogger, err := logger.New(logger.Config{
		Level:       cfg.Logger.Level,
		Encoding:    cfg.Logger.Encoding,
		Service:     cfg.AppName,
		Environment: cfg.Environment,
	})
	if err != nil {
		log.Fatalf("logger error: %v", err)
	}
	defer zapLogger.Sync()

	appCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	manager := lifecycle.New(cfg.Context.ShutdownTimeout, zapLogger)
	manager.Listen(cancel)

	var (
		store       repository.Store
		feed        repository.ChangeFeed
		blobs       repository.BlobStore
		sessions    repository.SessionRepository
		resetTokens repository.ResetTokenRepository
		pool        *pgxpool.Pool
		redisClient *goRedis.Client
	)

	if cfg.UsesMemoryStore() {
		backend := memory.New()
		store, feed, blobs = backend.Store, backend.Feed, backend.Blobs
		sessions, resetTokens = memory.NewSessions(), memory.NewResetTokens()
		zapLogger.Warn("running on the in-memory store; data is lost on restart")
	} else {
		if cfg.Migrations.Enabled {
			if err := pgInfra.RunMigrations(cfg, zapLogger); err != nil {
				zapLogger.Fatal("migrations failed", zap.Error(err))
			}
		}

		pool, err = pgInfra.NewPool(appCtx, cfg.Database, pgInfra.PoolOptions{AppName: cfg.AppName, Listeners: 1}, zapLogger)
		if err != nil {
			zapLogger.Fatal("postgres connection failed", zap.Error(err))
		}
		manager.Register("postgres", func(ctx context.Context) error {
			pool.Close()
			return nil
		})

		redisClient, err = redisInfra.NewClient(appCtx, cfg.Redis, cfg.AppName, zapLogger)
		if err != nil {
			zapLogger.Fatal("redis connection failed", zap.Error(err))
		}
		manager.Register("redis", func(ctx context.Context) error {
			return redisClient.Close()
		})

		changeFeed := redisRepo.NewChangeFeed(redisClient, cfg.Realtime.ChannelPrefix, zapLogger)
		pgInfra.CheckChannel(cfg.Realtime.NotifyChannel, zapLogger)
		listener := postgres.NewListener(pool, cfg.Realtime.NotifyChannel, changeFeed, zapLogger)
		manager.Go(appCtx, "change_listener", listener.Run)

		store = postgres.NewStore(pool)
		feed = changeFeed
		sessions = redisRepo.NewSessionRepository(redisClient, cfg.Redis.KeyPrefix, cfg.Auth.SessionTTL)
		resetTokens = redisRepo.NewResetTokenRepository(redisClient, cfg.Redis.KeyPrefix)
	}

	if cfg.Storage.Driver == "gcs" {
		bucket, err := gcs.New(appCtx, gcs.Config{
			Bucket:          cfg.Storage.Bucket,
			CredentialsFile: cfg.Storage.CredentialsFile,
		}, zapLogger)
		if err != nil {
			zapLogger.Fatal("storage client failed", zap.Error(err))
		}
		manager.Register("storage", func(ctx context.Context) error {
			return bucket.Close()
		})
		blobs = bucket
	} else if blobs == nil {
		blobs = memory.NewBlobs()
	}

	ledgerStore, err := ledger.Open(cfg.Ledger.Path, "orphans")
	if err != nil {
		zapLogger.Fatal("failed to open orphan ledger", zap.Error(err))
	}
	manager.Register("ledger", func(ctx context.Context) error {
		return ledgerStore.Close()
	})

	janitor, err := services.NewLedgerJanitor(ledgerStore, blobs, services.JanitorConfig{
		Schedule:    cfg.Ledger.Schedule,
		Retention:   cfg.Ledger.Retention,
		ReportLimit: 50,
	}, zapLogger)
	if err != nil {
		zapLogger.Fatal("invalid ledger sweep schedule", zap.Error(err))
	}
	janitor.Start()
	manager.Register("ledger_janitor", func(ctx context.Context) error {
		janitor.Stop(ctx)
		return nil
	})

	hub := realtime.NewHub(feed, realtime.HubConfig{
		RefetchTimeout: cfg.Realtime.RefetchTimeout,
		Admit:          usecase.Membership(store.Members),
	}, zapLogger)

	mon := monitor.New(pool, redisClient, ledgerStore, monitor.Probes{Live: hub, Workers: manager}, 10*time.Second, zapLogger)
	mon.Refresh(appCtx)
	manager.Go(appCtx, "monitor", mon.Run)

	var verifier authUC.IdentityVerifier
	if cfg.Firebase.Enabled {
		v, err := firebase.NewVerifier(appCtx, cfg.Firebase.CredentialsFile, zapLogger)
		if err != nil {
			zapLogger.Fatal("firebase init failed", zap.Error(err))
		}
		verifier = v
	}

	var assistantClient llm.Client
	if cfg.LLM.APIKey != "" {
		assistantClient, err = llm.New(llm.Config{
			APIKey:      cfg.LLM.APIKey,
			BaseURL:     cfg.LLM.BaseURL,
			Model:       cfg.LLM.Model,
			Temperature: cfg.LLM.Temperature,
			MaxTokens:   cfg.LLM.MaxTokens,
		}, zapLogger)
		if err != nil {
			zapLogger.Fatal("llm client failed", zap.Error(err))
		}
	} else {
		zapLogger.Info("LLM_API_KEY not set; assistant disabled")
	}

	authUseCase := authUC.New(authUC.Deps{
		Store:       store,
		Sessions:    sessions,
		ResetTokens: resetTokens,
		Verifier:    verifier,
		Mailer:      mailer.NewLogMailer(zapLogger),
	}, authUC.Config{
		Secret:        cfg.JWT.Secret,
		Issuer:        cfg.JWT.Issuer,
		TokenTTL:      cfg.JWT.TokenTTL,
		SessionTTL:    cfg.Auth.SessionTTL,
		ResetTokenTTL: cfg.Auth.ResetTokenTTL,
		ResetURL:      cfg.Auth.ResetURL,
	}, zapLogger)
	stopObserving := authUseCase.Observe(func(ev domain.SessionEvent) {
		zapLogger.Info("session event",
			zap.String("kind", string(ev.Kind)),
			zap.String("member_id", ev.MemberID),
			zap.String("session_id", ev.SessionID),
		)
	})
	manager.Register("session_observer", func(ctx context.Context) error {
		stopObserving()
		return nil
	})

	activity := usecase.NewActivityLog(store.Activity, zapLogger)
	notificationUseCase := notificationUC.New(store, hub, zapLogger)
	teamUseCase := teamUC.New(store, hub, notificationUseCase, activity, zapLogger)
	profileUseCase := profileUC.New(store.Members, blobs, zapLogger)
	taskUseCase := taskUC.New(store, hub, notificationUseCase, activity, zapLogger)
	projectUseCase := projectUC.New(store, hub, notificationUseCase, activity, zapLogger)
	documentUseCase := documentUC.New(store, blobs, hub, ledgerStore, notificationUseCase, activity,
		documentUC.Config{MaxUploadBytes: int64(cfg.Storage.MaxUploadBytes)}, zapLogger)
	calendarUseCase := calendarUC.New(store, hub, activity, zapLogger)
	dashboardUseCase := dashboardUC.New(store, hub, zapLogger)
	assistantUseCase := assistantUC.New(store, blobs, assistantClient, zapLogger)

	ctxAdapter := httpcontext.NewAdapter(cfg.Context.RequestTimeout)

	live := apiHandler.NewLiveHandler(apiHandler.LiveSources{
		Tasks:         taskUseCase,
		Projects:      projectUseCase,
		Team:          teamUseCase,
		Documents:     documentUseCase,
		Notifications: notificationUseCase,
		Calendar:      calendarUseCase,
		Dashboard:     dashboardUseCase,
	}.Openers(), authUseCase, ctxAdapter, cfg.Realtime.Heartbeat, zapLogger)

	handlers := router.Handlers{
		Auth:         apiHandler.NewAuthHandler(authUseCase, ctxAdapter, zapLogger),
		Profile:      apiHandler.NewProfileHandler(profileUseCase, authUseCase, ctxAdapter, zapLogger),
		Team:         apiHandler.NewTeamHandler(teamUseCase, authUseCase, ctxAdapter, zapLogger),
		Task:         apiHandler.NewTaskHandler(taskUseCase, authUseCase, ctxAdapter, zapLogger),
		Project:      apiHandler.NewProjectHandler(projectUseCase, authUseCase, ctxAdapter, zapLogger),
		Document:     apiHandler.NewDocumentHandler(documentUseCase, authUseCase, ctxAdapter, zapLogger),
		Calendar:     apiHandler.NewCalendarHandler(calendarUseCase, authUseCase, ctxAdapter, zapLogger),
		Notification: apiHandler.NewNotificationHandler(notificationUseCase, authUseCase, ctxAdapter, zapLogger),
		Dashboard:    apiHandler.NewDashboardHandler(dashboardUseCase, authUseCase, ctxAdapter, zapLogger),
		Assistant:    apiHandler.NewAssistantHandler(assistantUseCase, authUseCase, ctxAdapter, zapLogger),
		Live:         live,
		Health:       apiHandler.NewHealthHandler(mon, ctxAdapter, zapLogger),
	}

	authMiddleware := middleware.JWTAuth(cfg.JWT.Secret, authUseCase, cfg.Context.RequestTimeout, zapLogger)
	r := router.New(handlers, authMiddleware)

	server := &fasthttp.Server{
		Handler:            r.Handler,
		ReadTimeout:        cfg.HTTP.ReadTimeout,
		WriteTimeout:       cfg.HTTP.WriteTimeout,
		IdleTimeout:        cfg.HTTP.IdleTimeout,
		Concurrency:        cfg.HTTP.MaxConn,
		MaxRequestBodySize: cfg.Storage.MaxUploadBytes + 1<<20,
		Name:               cfg.AppName,
	}

	manager.Go(appCtx, "http_listener", func(context.Context) {
		zapLogger.Info("server started", zap.String("address", cfg.Address()), zap.String("store", cfg.Store.Driver))
		if err := server.ListenAndServe(cfg.Address()); err != nil {
			zapLogger.Error("server stopped", zap.Error(err))
			cancel()
		}
	})

	manager.Register("http_server", func(ctx context.Context) error {
		return server.ShutdownWithContext(ctx)
	})
	// Hooks run in reverse: streams end before the server waits for idle connections.
	manager.Register("live_streams", func(ctx context.Context) error {
		live.Close()
		return nil
	})

	<-appCtx.Done()

	if err := manager.Shutdown(context.Background()); err != nil {
		zapLogger.Error("graceful shutdown error", zap.Error(err))
	}
}
