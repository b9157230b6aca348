package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/hirewire/backend/internal/auth"
	"github.com/hirewire/backend/internal/cache"
	"github.com/hirewire/backend/internal/config"
	"github.com/hirewire/backend/internal/database"
	"github.com/hirewire/backend/internal/email"
	"github.com/hirewire/backend/internal/handlers"
	"github.com/hirewire/backend/internal/logger"
	"github.com/hirewire/backend/internal/messaging"
	"github.com/hirewire/backend/internal/metrics"
	"github.com/hirewire/backend/internal/middleware"
	"github.com/hirewire/backend/internal/notifications"
	"github.com/hirewire/backend/internal/repository"
	"github.com/hirewire/backend/internal/repository/mongostore"
	"github.com/hirewire/backend/internal/search"
	"github.com/hirewire/backend/internal/storage"
	"github.com/hirewire/backend/internal/telemetry"
	"github.com/hirewire/backend/internal/validation"
	"github.com/hirewire/backend/internal/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const serviceName = "hirewire-api"

func main() {
	cfg, err := config.Load()
	if err != nil && cfg == nil {
		// The logger is not up yet.
		panic(err)
	}

	if logErr := logger.Initialize(cfg.LogLevel, cfg.LogFile); logErr != nil {
		panic(logErr)
	}
	defer func() { _ = logger.Close() }()
	if err != nil {
		logger.WarnWithFields("Ignoring unreadable .env file", err)
	}

	logger.Log.Info("=== HireWire server starting ===",
		zap.String("environment", cfg.Environment),
		zap.String("port", cfg.Port),
	)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		logger.ErrorWithFields("Server exited with error", err)
		_ = logger.Close()
		os.Exit(1)
	}
	logger.Log.Info("Server exited")
}

func run(ctx context.Context, cfg *config.Config) error {
	metrics.Initialize()

	tp, err := telemetry.InitTracer(ctx, telemetry.Config{
		ServiceName:  serviceName,
		Environment:  cfg.Environment,
		OTLPEndpoint: cfg.OTLPEndpoint,
		Enabled:      cfg.TracingEnabled,
		SamplingRate: cfg.TracingSampleRate,
	})
	if err != nil {
		logger.WarnWithFields("Tracing disabled", err)
	}
	if tp != nil {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = tp.Shutdown(shutdownCtx)
		}()
	}

	db, err := database.Initialize(cfg.DatabaseDriver, cfg.DatabaseURL, database.Options{
		Verbose: !cfg.IsProduction() && cfg.LogLevel == "debug",
		Tracing: cfg.TracingEnabled,
	})
	if err != nil {
		return err
	}
	defer func() { _ = database.Close() }()

	if err := database.Migrate(db); err != nil {
		return err
	}

	services := validation.NewServiceValidator(cfg.RequiredServices)
	services.Register("database", func(context.Context) error { return database.Health(db) })

	repos := repository.New(db)
	if cfg.MessageStore == config.MessageStoreMongo {
		store, err := mongostore.Connect(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return err
		}
		defer func() { _ = store.Close(context.Background()) }()
		if err := store.EnsureIndexes(ctx); err != nil {
			return err
		}
		repos.Messages = store.Messages()
		repos.Notifications = store.Notifications()
		services.Register("mongo", store.Ping)
		logger.Log.Info("Messages and notifications stored in MongoDB", zap.String("database", cfg.MongoDatabase))
	}

	var redisClient *cache.RedisClient
	if cfg.RedisEnabled() {
		redisClient, err = cache.NewRedisClient(cfg.RedisHost, cfg.RedisPort, cfg.RedisPassword)
		if err != nil {
			return err
		}
		defer func() { _ = redisClient.Close() }()
		services.Register("redis", redisClient.Ping)
	} else {
		logger.Log.Warn("REDIS_HOST not set: rate limiting and the cross-instance socket relay are disabled")
	}

	hub := websocket.NewHub()
	var emitter websocket.Emitter = hub
	var relay *websocket.RedisRelay
	if redisClient != nil {
		relay = websocket.NewRedisRelay(hub, redisClient.Client(), websocket.DefaultRelayChannel)
		hub.SetEmitter(relay)
		emitter = relay
	}

	var mailer email.Sender = email.LogSender{}
	if cfg.EmailDriver == config.EmailDriverSES {
		ses, err := email.NewSESSender(cfg.AWSRegion, cfg.EmailFrom, cfg.EmailFromName, cfg.AppBaseURL)
		if err != nil {
			return err
		}
		mailer = ses
	}

	var uploader storage.Uploader
	if cfg.S3Bucket != "" {
		s3Uploader, err := storage.NewS3Uploader(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.CDNBaseURL)
		if err != nil {
			return err
		}
		if err := s3Uploader.CheckBucketAccess(ctx); err != nil {
			logger.WarnWithFields("S3 bucket access check failed; uploads may fail", err)
		}
		uploader = s3Uploader
		services.Register("s3", s3Uploader.CheckBucketAccess)
	} else {
		logger.Log.Warn("AWS_BUCKET not set: upload endpoints answer 503")
	}

	var index search.Index
	if cfg.ElasticsearchURL != "" {
		client, err := search.NewClient(cfg.ElasticsearchURL)
		if err != nil {
			return err
		}
		if err := client.InitializeIndices(ctx); err != nil {
			logger.WarnWithFields("Elasticsearch unavailable; search falls back to the database", err)
		} else {
			index = client
			services.Register("search", client.Ping)
		}
	}
	searchService := search.NewService(index, repos)

	if err := services.ValidateServices(ctx); err != nil {
		return err
	}

	authService := auth.NewService(repos.Users, repos.VerificationCode, mailer, []byte(cfg.JWTSecret), cfg.TokenTTL)
	notificationService := notifications.NewService(repos.Notifications, emitter)
	messagingService := messaging.NewService(repos.Messages, repos.Users, emitter)

	h := handlers.NewHandlers(handlers.Dependencies{
		Repos:             repos,
		Auth:              authService,
		Messaging:         messagingService,
		Notifications:     notificationService,
		Search:            searchService,
		Uploader:          uploader,
		Realtime:          emitter,
		ProfileViewWindow: cfg.ProfileViewWindow,
		HealthChecks:      services.Checks(),
	})
	wsHandler := websocket.NewHandler(hub, authService, cfg.CORSOrigins)

	r := newRouter(cfg, redisClient, h, wsHandler, authService)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		hub.Run()
		return nil
	})
	if relay != nil {
		g.Go(func() error { return relay.Run(gctx) })
	}
	g.Go(func() error {
		return searchService.RunReconciler(gctx, cfg.SearchReconcileInterval)
	})
	g.Go(func() error {
		logger.Log.Info("HireWire API listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Log.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := hub.Shutdown(shutdownCtx); err != nil {
			logger.WarnWithFields("WebSocket shutdown warning", err)
		}
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		searchService.Wait()
		return nil
	})

	return g.Wait()
}

func newRouter(cfg *config.Config, redisClient *cache.RedisClient, h *handlers.Handlers, ws *websocket.Handler, authService *auth.Service) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.TracingMiddleware(serviceName))
	r.Use(middleware.GinLoggerMiddleware())
	r.Use(middleware.MetricsMiddleware())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.CORSOrigins
	if len(cfg.CORSOrigins) == 0 || (len(cfg.CORSOrigins) == 1 && cfg.CORSOrigins[0] == "*") {
		corsConfig.AllowOrigins = nil
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", middleware.RequestIDHeader}
	corsConfig.ExposeHeaders = []string{middleware.RequestIDHeader}
	r.Use(cors.New(corsConfig))

	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/api/v1/ws", "/metrics"})))

	r.GET("/health", h.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	requireAuth := authService.Middleware()

	api := r.Group("/api/v1")
	api.GET("/ws", ws.HandleWebSocket)
	api.POST("/ws/online", requireAuth, ws.HandleOnlineStatus)
	api.GET("/ws/stats", requireAuth, ws.HandleStats)

	limited := api.Group("")
	limited.Use(middleware.RedisRateLimitMiddleware(redisClient, cfg.RateLimitRequests, cfg.RateLimitWindow))
	h.RegisterRoutes(limited, requireAuth)

	return r
}
