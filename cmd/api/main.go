package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"crosspath/internal/adapter/storage"
	"crosspath/internal/config"
	"crosspath/internal/domain/engine"
	"crosspath/internal/domain/geo"
	"crosspath/internal/domain/post"
	"crosspath/internal/server"
	engineService "crosspath/internal/service/engine"
	geoService "crosspath/internal/service/geo"
	"crosspath/internal/service/generator"
)

func main() {
	// Load .env if present, then configuration from the environment
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := newLogger(cfg.Environment)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	// Setup context with cancellation for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Initialize dependencies
	db, err := initDatabase(ctx, cfg.Database)
	if err != nil {
		logger.Fatal("failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	natsConn, err := initNATS(cfg.NATS, logger)
	if err != nil {
		logger.Fatal("failed to connect to NATS", zap.Error(err))
	}
	defer natsConn.Close()

	// Initialize storage adapter
	engineStore := storage.NewEngineStore(db)

	// Initialize services
	geoSvc := geoService.NewGeoService(geoService.GeoConfig{
		ClusterCoarseMeters: cfg.Geo.ClusterCoarseMeters,
		ClusterMediumMeters: cfg.Geo.ClusterMediumMeters,
		ClusterFineMeters:   cfg.Geo.ClusterFineMeters,
		MediumZoom:          cfg.Geo.MediumZoom,
		FineZoom:            cfg.Geo.FineZoom,
	})

	candidateSource := generator.NewCandidateGenerator(generator.GeneratorConfig{
		BatchSize:    cfg.Generator.BatchSize,
		SpreadMeters: cfg.Generator.SpreadMeters,
		InboundLikes: cfg.Generator.InboundLikes,
	})

	openerSource := generator.NewOpenerGenerator()

	fallback := geo.Coordinate{
		Latitude:  cfg.Location.FallbackLatitude,
		Longitude: cfg.Location.FallbackLongitude,
	}
	locationSource := generator.NewFixedLocationSource(fallback)

	matchEngine := engineService.NewMatchEngine(
		engineStore,
		geoSvc,
		candidateSource,
		openerSource,
		natsConn,
		engineService.EngineConfig{
			Viewer: post.Author{
				Name:      cfg.Engine.ViewerName,
				AvatarURL: cfg.Engine.ViewerAvatarURL,
			},
			MatchRadiusMeters: cfg.Engine.MatchRadiusMeters,
			MaxOwnPosts:       cfg.Engine.MaxOwnPosts,
			ReplyDelay:        cfg.Engine.ReplyDelay,
			DefaultOpener:     cfg.Engine.DefaultOpener,
			DefaultReply:      cfg.Engine.DefaultReply,
			EventsTopic:       cfg.Engine.EventsTopic,
		},
		logger,
	)

	// Reload posts and candidate statuses; sessions recover lazily
	if err := matchEngine.Restore(ctx); err != nil {
		logger.Warn("failed to restore engine state", zap.Error(err))
	}

	matchEngine.RegisterMatchHandler(func(event engine.MatchEvent) {
		logger.Info("match formed",
			zap.String("post_id", event.PostID),
			zap.String("partner", event.PartnerName),
		)
	})

	// Initialize HTTP server
	httpServer := server.NewServer(
		cfg.Server,
		matchEngine,
		locationSource,
		fallback,
		natsConn,
		cfg.Engine.EventsTopic,
		logger,
	)

	go func() {
		logger.Info("starting HTTP server",
			zap.String("host", cfg.Server.Host),
			zap.Int("port", cfg.Server.Port),
		)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	// Wait for shutdown signal
	<-shutdown
	logger.Info("shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP server shutdown error", zap.Error(err))
	}

	if err := matchEngine.Stop(shutdownCtx); err != nil {
		logger.Warn("engine shutdown error", zap.Error(err))
	}

	logger.Info("shutdown complete")
}

// newLogger builds the zap logger for the environment
func newLogger(environment string) (*zap.Logger, error) {
	if environment == "development" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// Initialize database connection
func initDatabase(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	connString := fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Database, cfg.SSLMode,
	)

	poolConfig, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("unable to parse connection string: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxOpenConns)
	poolConfig.MinConns = int32(cfg.MaxIdleConns)
	poolConfig.MaxConnLifetime = cfg.MaxLifetime

	db, err := pgxpool.ConnectConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}

	if err := db.Ping(ctx); err != nil {
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	return db, nil
}

// Initialize NATS connection
func initNATS(cfg config.NATSConfig, logger *zap.Logger) (*nats.Conn, error) {
	options := []nats.Option{
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.Timeout(cfg.ConnectTimeout),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			logger.Warn("NATS disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("NATS reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			logger.Info("NATS connection closed")
		}),
	}

	nc, err := nats.Connect(cfg.URL, options...)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to NATS: %w", err)
	}

	return nc, nil
}
