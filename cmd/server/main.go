package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fekuna/omnipos-boutique-service/config"
	"github.com/fekuna/omnipos-boutique-service/migrations"
	"github.com/fekuna/omnipos-boutique-service/pkg/broker"
	"github.com/fekuna/omnipos-boutique-service/pkg/cache"
	"github.com/fekuna/omnipos-boutique-service/pkg/logger"
	"github.com/fekuna/omnipos-boutique-service/pkg/postgres"
	"github.com/fekuna/omnipos-boutique-service/pkg/search"
	"github.com/fekuna/omnipos-boutique-service/pkg/telemetry"

	"github.com/fekuna/omnipos-boutique-service/internal/auth"
	authH "github.com/fekuna/omnipos-boutique-service/internal/auth/handler"
	authRepoPkg "github.com/fekuna/omnipos-boutique-service/internal/auth/repository"
	authUCPkg "github.com/fekuna/omnipos-boutique-service/internal/auth/usecase"

	shopH "github.com/fekuna/omnipos-boutique-service/internal/shop/handler"
	shopRepoPkg "github.com/fekuna/omnipos-boutique-service/internal/shop/repository"
	shopUCPkg "github.com/fekuna/omnipos-boutique-service/internal/shop/usecase"

	prodH "github.com/fekuna/omnipos-boutique-service/internal/product/handler"
	prodRepoPkg "github.com/fekuna/omnipos-boutique-service/internal/product/repository"
	prodUCPkg "github.com/fekuna/omnipos-boutique-service/internal/product/usecase"

	invH "github.com/fekuna/omnipos-boutique-service/internal/inventory/handler"
	invListenerPkg "github.com/fekuna/omnipos-boutique-service/internal/inventory/listener"
	invRepoPkg "github.com/fekuna/omnipos-boutique-service/internal/inventory/repository"
	invUCPkg "github.com/fekuna/omnipos-boutique-service/internal/inventory/usecase"

	saleH "github.com/fekuna/omnipos-boutique-service/internal/sale/handler"
	saleRepoPkg "github.com/fekuna/omnipos-boutique-service/internal/sale/repository"
	saleUCPkg "github.com/fekuna/omnipos-boutique-service/internal/sale/usecase"

	"github.com/fekuna/omnipos-boutique-service/internal/server"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

func main() {
	// 1. Load Configuration
	_ = godotenv.Load() // Load .env file if it exists
	cfg := config.LoadEnv()

	// 2. Initialize Logger
	logConfig := &logger.ZapLoggerConfig{
		IsDevelopment:     false,
		Encoding:          "json",
		Level:             "info",
		DisableCaller:     cfg.Logger.DisableCaller,
		DisableStacktrace: cfg.Logger.DisableStacktrace,
	}

	if cfg.Server.AppEnv == "development" || cfg.Server.AppEnv == "dev" {
		logConfig.IsDevelopment = true
		logConfig.Encoding = cfg.Logger.Encoding
		logConfig.Level = cfg.Logger.Level
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	appLogger := logger.NewZapLogger(logConfig)
	defer appLogger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 2.5 Initialize Tracing
	shutdownTracer, err := telemetry.InitTracer(ctx, &telemetry.Config{
		ServiceName:    cfg.Server.ServiceName,
		ServiceVersion: "1.0.0",
		Endpoint:       cfg.Telemetry.OTLPEndpoint,
	})
	if err != nil {
		appLogger.Fatal("Could not initialize tracer", zap.Error(err))
	}

	// 3. Connect to Database
	db, err := postgres.NewPostgres(&postgres.Config{
		Host:            cfg.Postgres.Host,
		Port:            cfg.Postgres.Port,
		User:            cfg.Postgres.User,
		Password:        cfg.Postgres.Password,
		DBName:          cfg.Postgres.DBName,
		SSLMode:         cfg.Postgres.SSLMode,
		MaxOpenConns:    cfg.Postgres.MaxOpenConns,
		MaxIdleConns:    cfg.Postgres.MaxIdleConns,
		ConnMaxLifetime: time.Duration(cfg.Postgres.ConnMaxLifetime) * time.Second,
		ConnMaxIdleTime: time.Duration(cfg.Postgres.ConnMaxIdleTime) * time.Second,
	})
	if err != nil {
		appLogger.Fatal("Could not connect to database", zap.Error(err))
	}
	defer db.Close()
	appLogger.Info("Connected to PostgreSQL database", zap.String("db_name", cfg.Postgres.DBName))

	if cfg.Postgres.AutoMigrate {
		if err := postgres.Migrate(ctx, db, migrations.FS); err != nil {
			appLogger.Fatal("Could not apply migrations", zap.Error(err))
		}
		appLogger.Info("Database schema up to date")
	}

	// 4. Initialize Repositories
	txManager := postgres.NewTxManager(db)
	userRepo := authRepoPkg.NewPGRepository(db)
	shopRepo := shopRepoPkg.NewPGRepository(db)
	prodRepo := prodRepoPkg.NewPGRepository(db)
	invRepo := invRepoPkg.NewPGRepository(db)
	saleRepo := saleRepoPkg.NewPGRepository(db)

	// 5. Initialize Redis
	redisClient, err := cache.NewRedisClient(&cache.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		appLogger.Fatal("Could not connect to Redis", zap.Error(err))
	}
	defer redisClient.Close()
	appLogger.Info("Connected to Redis", zap.String("addr", cfg.Redis.Addr))

	// 5.5 Initialize Kafka
	var publisher broker.Publisher = broker.NopPublisher{}
	var checkoutConsumer *broker.KafkaConsumer
	if cfg.Kafka.Enabled {
		producer := broker.NewProducer(&broker.Config{
			Brokers: cfg.Kafka.Brokers,
			Topic:   cfg.Kafka.EventsTopic,
		})
		defer producer.Close()
		publisher = producer

		checkoutConsumer = broker.NewConsumer(&broker.Config{
			Brokers: cfg.Kafka.Brokers,
			Topic:   cfg.Kafka.CheckoutTopic,
			GroupID: cfg.Kafka.CheckoutGroup,
		})
		defer checkoutConsumer.Close()
		appLogger.Info("Kafka enabled",
			zap.Strings("brokers", cfg.Kafka.Brokers),
			zap.String("events_topic", cfg.Kafka.EventsTopic),
			zap.String("checkout_topic", cfg.Kafka.CheckoutTopic),
		)
	}

	// 5.8 Initialize Elasticsearch
	var indexer prodUCPkg.Indexer
	if cfg.Elastic.Enabled {
		esClient, err := search.NewClient(&search.Config{
			Addresses: cfg.Elastic.Addresses,
			Username:  cfg.Elastic.Username,
			Password:  cfg.Elastic.Password,
		})
		if err != nil {
			appLogger.Warn("Could not connect to Elasticsearch, product search uses the database", zap.Error(err))
		} else {
			indexer = esClient
			appLogger.Info("Connected to Elasticsearch", zap.Strings("addresses", cfg.Elastic.Addresses))
		}
	}

	// 6. Initialize UseCases
	jwtManager := auth.NewJWTManager(auth.JWTConfig{
		SecretKey: cfg.JWT.SecretKey,
		TTL:       cfg.JWT.TTL,
		Issuer:    cfg.JWT.Issuer,
	})
	hasher := auth.NewPasswordHasher(bcrypt.DefaultCost)

	authUC := authUCPkg.NewAuthUseCase(userRepo, jwtManager, hasher, redisClient, appLogger)
	shopUC := shopUCPkg.NewShopUseCase(shopRepo, userRepo, hasher, txManager, appLogger)
	prodUC := prodUCPkg.NewProductUseCase(prodRepo, txManager, redisClient, indexer, appLogger)
	invUC := invUCPkg.NewInventoryUseCase(invRepo, saleRepo, txManager, publisher, prodUC, appLogger, invUCPkg.Options{
		StrictUnits:    cfg.Stock.StrictUnits,
		AlertThreshold: cfg.Stock.AlertThreshold,
	})
	saleUC := saleUCPkg.NewSaleUseCase(saleRepo, redisClient, appLogger)

	if err := authUC.EnsureAdmin(ctx, cfg.Admin.Username, cfg.Admin.Password); err != nil {
		appLogger.Fatal("Could not bootstrap admin user", zap.Error(err))
	}

	// 6.5 Initialize Listeners
	if checkoutConsumer != nil {
		checkoutListener := invListenerPkg.NewCheckoutListener(checkoutConsumer, invUC, appLogger)
		go checkoutListener.Start(ctx)
	}

	// 7. Initialize Handlers
	router := server.NewRouter(cfg.Server.ServiceName, &server.Handlers{
		Auth:      authH.NewAuthHandler(authUC, appLogger),
		Shop:      shopH.NewShopHandler(shopUC, appLogger),
		Product:   prodH.NewProductHandler(prodUC, appLogger),
		Inventory: invH.NewInventoryHandler(invUC, appLogger),
		Sale:      saleH.NewSaleHandler(saleUC, appLogger),
	}, authUC, appLogger)

	// 8. Start HTTP and gRPC health servers
	httpServer := &http.Server{
		Addr:              normalizePort(cfg.Server.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		appLogger.Info("Starting HTTP server", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Fatal("failed to serve http", zap.Error(err))
		}
	}()

	grpcPort := normalizePort(cfg.Server.GRPCPort)
	lis, err := net.Listen("tcp", grpcPort)
	if err != nil {
		log.Fatalf("failed to listen: %v", err)
	}
	grpcServer, healthServer := server.NewHealthServer(cfg.Server.ServiceName)
	go func() {
		appLogger.Info("Starting gRPC health server", zap.String("port", grpcPort))
		if err := grpcServer.Serve(lis); err != nil {
			appLogger.Fatal("failed to serve grpc", zap.Error(err))
		}
	}()

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")
	healthServer.Shutdown()
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("HTTP server shutdown failed", zap.Error(err))
	}
	grpcServer.GracefulStop()
	if err := shutdownTracer(shutdownCtx); err != nil {
		appLogger.Error("Tracer shutdown failed", zap.Error(err))
	}
	appLogger.Info("Server stopped")
}

func normalizePort(port string) string {
	if !strings.Contains(port, ":") {
		return ":" + port
	}
	return port
}
