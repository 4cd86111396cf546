package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"carbonchain/internal/auth"
	"carbonchain/internal/chain"
	"carbonchain/internal/config"
	"carbonchain/internal/credits"
	"carbonchain/internal/issuance"
	"carbonchain/internal/marketplace"
	"carbonchain/internal/monitoring"
	"carbonchain/internal/notifications"
	"carbonchain/internal/projects"
	"carbonchain/internal/wallet"
	"carbonchain/pkg/cache"
	"carbonchain/pkg/email"
	"carbonchain/pkg/storage"
)

func main() {
	// Initialize logger
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	// Load configuration
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.json"
	}
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}

	// Database
	db, err := gorm.Open(postgres.Open(cfg.Database.GetDatabaseURL()), &gorm.Config{})
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("Failed to access database pool", zap.Error(err))
	}
	sqlDB.SetMaxOpenConns(cfg.Database.MaxConnections)
	sqlDB.SetMaxIdleConns(cfg.Database.MaxIdleConns)

	if err := db.AutoMigrate(
		&auth.Profile{},
		&projects.Project{}, &projects.ProjectMedia{},
		&credits.CarbonCredit{},
		&marketplace.Transaction{},
		&issuance.IssuanceOutbox{},
	); err != nil {
		logger.Fatal("Failed to migrate database", zap.Error(err))
	}

	ctx := context.Background()

	// Chain client
	chainClient, err := chain.NewEVMClient(ctx, cfg.Chain, logger)
	if err != nil {
		logger.Fatal("Failed to connect to chain", zap.Error(err))
	}

	// Metadata store, falls back to memory when no bucket is configured
	var metadataStore storage.MetadataStore
	if cfg.Storage.Bucket != "" {
		s3Store, err := storage.NewS3Store(ctx, cfg.Storage.Bucket, cfg.Storage.Region, cfg.Storage.Prefix)
		if err != nil {
			logger.Fatal("Failed to initialize S3 store", zap.Error(err))
		}
		metadataStore = s3Store
	} else {
		logger.Warn("No storage bucket configured, using in-memory metadata store")
		metadataStore = storage.NewMemoryStore()
	}

	// Optional backends
	var searchIndex *projects.SearchIndex
	if len(cfg.Search.Addresses) > 0 {
		searchIndex, err = projects.NewSearchIndex(cfg.Search.Addresses, cfg.Search.Index)
		if err != nil {
			logger.Warn("Search index unavailable, falling back to database scans", zap.Error(err))
			searchIndex = nil
		}
	}

	var balanceCache *cache.Cache
	if cfg.Redis.Addr != "" {
		balanceCache, err = cache.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			logger.Warn("Redis unavailable, balance reads will hit the chain", zap.Error(err))
			balanceCache = nil
		}
	}

	var archive *monitoring.Archive
	if cfg.Mongo.URI != "" {
		archive, err = monitoring.NewArchive(ctx, cfg.Mongo.URI, cfg.Mongo.Database, cfg.Mongo.Collection)
		if err != nil {
			logger.Warn("Mongo unavailable, monitoring payloads will not be archived", zap.Error(err))
			archive = nil
		}
	}

	var mailer email.Notifier = email.NoopNotifier{}
	if cfg.Email.Sender != "" {
		sesNotifier, err := email.NewSESNotifier(ctx, cfg.Email.Region, cfg.Email.Sender, logger)
		if err != nil {
			logger.Warn("SES unavailable, review emails disabled", zap.Error(err))
		} else {
			mailer = sesNotifier
		}
	}

	// Notifications hub
	hub := notifications.NewHub(logger)

	// Repositories
	profileRepo := auth.NewRepository(db)
	projectRepo := projects.NewRepository(db)
	creditRepo := credits.NewRepository(db)
	transactionRepo := marketplace.NewRepository(db)
	outboxRepo := issuance.NewOutboxRepository(db)

	// Services
	authService := auth.NewService(profileRepo, cfg.Security.JWTSecret, cfg.Security.TokenTTL, logger)
	projectService := projects.NewService(projectRepo, searchIndex, cfg.Chain.CreditsPerHectare, logger)
	issuanceService := issuance.NewService(projectRepo, profileRepo, creditRepo, outboxRepo,
		chainClient, metadataStore, mailer, hub, logger)
	marketplaceService := marketplace.NewService(transactionRepo, projectRepo, chainClient, cfg.Chain, hub, logger)
	walletService := wallet.NewService(transactionRepo, chainClient, balanceCache, logger)
	creditService := credits.NewService(creditRepo, chainClient, hub,
		func(ctx context.Context, id uuid.UUID) (string, error) {
			project, err := projectRepo.GetByID(ctx, id)
			if err != nil {
				return "", err
			}
			return project.Title, nil
		}, logger)
	monitoringService := monitoring.NewService(monitoring.NewSimulatedProvider(), archive, hub, logger)

	// Reconciler
	reconciler := issuance.NewReconciler(issuanceService, outboxRepo,
		cfg.Reconciler.Schedule, cfg.Reconciler.MaxRetries, logger)
	if err := reconciler.Start(); err != nil {
		logger.Fatal("Failed to start reconciler", zap.Error(err))
	}
	defer reconciler.Stop()

	// Router
	router := gin.Default()
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Disposition"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	authHandler := auth.NewHandler(authService, logger)
	projectHandler := projects.NewHandler(projectService, logger)
	issuanceHandler := issuance.NewHandler(issuanceService, logger)
	marketplaceHandler := marketplace.NewHandler(marketplaceService, logger)
	walletHandler := wallet.NewHandler(walletService, logger)
	creditHandler := credits.NewHandler(creditService, logger)
	monitoringHandler := monitoring.NewHandler(monitoringService, logger)
	chainHandler := chain.NewHandler(chainClient, metadataStore, logger)

	api := router.Group("/api")
	{
		authHandler.RegisterRoutes(api)
	}

	protected := router.Group("/api")
	protected.Use(auth.Middleware(authService))
	{
		authHandler.RegisterProtectedRoutes(protected)
		projectHandler.RegisterRoutes(protected)
		marketplaceHandler.RegisterRoutes(protected)
		walletHandler.RegisterRoutes(protected)
		creditHandler.RegisterRoutes(protected)
		monitoringHandler.RegisterRoutes(protected)
		chainHandler.RegisterRoutes(protected)
	}

	admin := router.Group("/api")
	admin.Use(auth.Middleware(authService), auth.RequireRole(auth.RoleAdmin))
	{
		issuanceHandler.RegisterRoutes(admin)
	}

	router.GET("/ws", hub.ServeWS)
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"timestamp": time.Now(),
		})
	})

	// Start Server
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("listen failed", zap.Error(err))
		}
	}()

	logger.Info("Server started",
		zap.String("addr", srv.Addr),
		zap.Int64("chain_id", cfg.Chain.ChainID),
		zap.String("contract", cfg.Chain.ContractAddress))

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exiting")
}
