package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"auction-node/internal/api/handlers"
	"auction-node/internal/config"
	"auction-node/internal/domain"
	"auction-node/internal/infrastructure/identity"
	"auction-node/internal/infrastructure/leveldb"
	"auction-node/internal/infrastructure/mysql"
	redisdir "auction-node/internal/infrastructure/redis"
	"auction-node/internal/services"
	"auction-node/internal/transport/ws"
	"auction-node/pkg/logger"

	redisClient "github.com/go-redis/redis/v8"
	_ "github.com/go-sql-driver/mysql"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

func main() {
	log := logger.New()
	log.Info("Starting auction node")

	cfg, err := config.Load()
	if err != nil {
		log.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	// Durable store
	store, err := leveldb.Open(cfg.Store.Path)
	if err != nil {
		log.Error("Failed to open store", "path", cfg.Store.Path, "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Error("Failed to close store", "error", err)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Node identity from persisted seed material
	ident, err := identity.Load(ctx, store, log)
	if err != nil {
		log.Error("Failed to load identity", "error", err)
		os.Exit(1)
	}
	log.Info("Node identity loaded", "public_id", ident.PublicID(), "dht_id", ident.DHTPublicID())

	instanceID := cfg.Node.InstanceID
	if instanceID == "" {
		instanceID = ident.DHTPublicID()[:8]
	}

	// Initialize Redis (peer directory)
	rdb := redisClient.NewClient(&redisClient.Options{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	log.Info("Connected to Redis", "address", cfg.Redis.Address)

	directory := redisdir.NewPeerDirectory(rdb, log)

	// Optional MySQL audit trail
	var audit domain.AuditRepository
	if cfg.MySQL.DSN != "" {
		db, err := sql.Open("mysql", cfg.MySQL.DSN)
		if err != nil {
			log.Error("Failed to connect to MySQL", "error", err)
			os.Exit(1)
		}
		defer func(db *sql.DB) {
			if err := db.Close(); err != nil {
				log.Error("Failed to close MySQL connection", "error", err)
			}
		}(db)

		db.SetMaxOpenConns(cfg.MySQL.MaxOpenConns)
		db.SetMaxIdleConns(cfg.MySQL.MaxIdleConns)
		db.SetConnMaxLifetime(cfg.MySQL.ConnMaxLifetime)

		if err := db.PingContext(ctx); err != nil {
			log.Error("Failed to ping MySQL", "error", err)
			os.Exit(1)
		}
		log.Info("Connected to MySQL, audit trail enabled")
		audit = mysql.NewMySQLAuditRepository(db)
	} else {
		log.Info("No MySQL DSN configured, audit trail disabled")
	}

	// Outbound path: supervisor wraps every peer call in the retry policy
	policy := services.RetryPolicy{
		MaxAttempts:  cfg.Retry.MaxAttempts,
		InitialDelay: cfg.Retry.InitialDelay,
		Factor:       cfg.Retry.Factor,
	}
	dialer := &ws.Dialer{Origin: ident.PublicID(), Log: log}
	supervisor := services.NewConnectionSupervisor(directory, dialer, policy, log)
	defer supervisor.Close()

	broadcaster := services.NewPeerBroadcaster(directory, supervisor, ident.PublicID(), log)

	// Core engine and service endpoint
	engine := services.NewAuctionEngine(store, log)
	rpcHandler := handlers.NewRPCHandler(engine, broadcaster, audit, log)
	httpHandler := handlers.NewHTTPHandler(rpcHandler, log)
	rpcServer := ws.NewServer(rpcHandler, log)

	// Initialize Echo
	e := echo.New()
	e.HideBanner = true

	e.Use(middleware.RequestID())
	e.Use(middleware.Recover())

	e.GET("/rpc", rpcServer.HandleConnection)
	httpHandler.Register(e.Group("/api/v1"))

	e.GET("/health", func(c echo.Context) error {
		delivered, failed := broadcaster.Stats()
		return c.JSON(http.StatusOK, map[string]interface{}{
			"status":               "ok",
			"service":              "auction-node",
			"instance_id":          instanceID,
			"public_id":            ident.PublicID(),
			"timestamp":            time.Now().Format(time.RFC3339),
			"broadcasts_delivered": delivered,
			"broadcasts_failed":    failed,
		})
	})

	// Presence announcements keep this node resolvable by its peers
	announcer := services.NewPresenceAnnouncer(directory, ident, cfg.Node.AdvertiseAddress,
		cfg.Node.AnnounceInterval, cfg.Node.PeerTTL, log)
	if err := announcer.Start(context.Background()); err != nil {
		log.Error("Failed to start presence announcer", "error", err)
		os.Exit(1)
	}

	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	log.Info("Starting auction node server", "address", serverAddr, "instance_id", instanceID)

	go func() {
		if err := e.Start(serverAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down auction node...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := announcer.Stop(); err != nil {
		log.Error("Failed to stop announcer", "error", err)
	}
	if err := broadcaster.Shutdown(shutdownCtx); err != nil {
		log.Error("Broadcast drain interrupted", "error", err)
	}
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
	}

	log.Info("Auction node stopped")
}
