package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	config "github.com/pocketmall/shopdata/configs"
	"github.com/pocketmall/shopdata/internal/application/remotecache"
	"github.com/pocketmall/shopdata/internal/application/services"
	"github.com/pocketmall/shopdata/internal/core/domain/cart"
	"github.com/pocketmall/shopdata/internal/core/ports"
	"github.com/pocketmall/shopdata/internal/infrastructure/devicestore"
	"github.com/pocketmall/shopdata/internal/infrastructure/eventbus"
	"github.com/pocketmall/shopdata/internal/infrastructure/gateway"
	"github.com/pocketmall/shopdata/internal/infrastructure/health"
	"github.com/pocketmall/shopdata/internal/infrastructure/httpserver"
	"github.com/pocketmall/shopdata/internal/infrastructure/notify"
	"github.com/sirupsen/logrus"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	// Setup logger
	logger := logrus.New()
	if cfg.Log.Format == "text" {
		logger.SetFormatter(&logrus.TextFormatter{})
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	level, err := logrus.ParseLevel(cfg.Log.Level)
	if err != nil {
		logger.SetLevel(logrus.InfoLevel)
	} else {
		logger.SetLevel(level)
	}

	logger.Info("Starting shopdata agent...")

	// Initialize the device store
	store, healthCheckers, closeStore, err := buildDeviceStore(cfg)
	if err != nil {
		logger.Fatal("Failed to open device store:", err)
	}
	defer closeStore()

	logger.WithFields(logrus.Fields{"driver": cfg.DeviceStore.Driver}).Info("Device store ready")

	// Remote gateway shared by the account endpoints and the inventory
	// authority
	remoteClient := gateway.NewClient(cfg.Remote.BaseURL, cfg.Remote.RequestTimeout, logger)
	accountGateway := gateway.NewAccountGateway(remoteClient)
	inventory := gateway.NewInventoryClient(remoteClient)

	// Event bus and its consumers
	bus := eventbus.New(logger)
	bus.Init()

	// Wire all services with their dependencies
	cartService := services.NewCartService(bus, inventory, logger)
	syncService := services.NewSyncService(store, inventory, cartService, cfg.Remote.UserID, cfg.Sync.ExpiryDays, logger)
	accountService := services.NewAccountService(accountGateway, store, services.AccountCacheConfig{
		UserID:     cfg.Remote.UserID,
		ProfileTTL: cfg.Remote.ProfileTTL,
		MetricsTTL: cfg.Remote.MetricsTTL,
		OrdersTTL:  cfg.Remote.OrdersTTL,
		Retry: remotecache.RetryPolicy{
			MaxAttempts: cfg.Remote.RetryMaxAttempts,
			BaseDelay:   cfg.Remote.RetryBaseDelay,
		},
	}, logger)
	maintenanceService := services.NewMaintenanceService(store, syncService, cartService, cfg.Maintenance.Interval, cfg.Sync.BackupRetention, logger)

	// Bridge mutations to persistence: a burst of cart events collapses into
	// one debounced snapshot write.
	debouncer := services.NewDebouncer(cfg.Sync.DebounceWindow)
	defer debouncer.Stop()
	flush := func(evt cart.Event) error {
		debouncer.Trigger("cart_sync", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if _, err := syncService.SyncToStorage(ctx); err != nil {
				logger.WithError(err).Error("debounced cart sync failed")
			}
		})
		return nil
	}
	for _, kind := range []cart.EventKind{
		cart.EventItemAdded,
		cart.EventItemRemoved,
		cart.EventItemUpdated,
		cart.EventSelectionChanged,
		cart.EventBatchCompleted,
		cart.EventCartCleared,
	} {
		bus.Subscribe(kind, flush)
	}
	notify.NewLogSink(logger).Subscribe(bus)

	// Repopulate the cart from the last persisted snapshot
	bootCtx, cancelBoot := context.WithTimeout(context.Background(), 30*time.Second)
	restored, err := syncService.SyncFromStorage(bootCtx)
	cancelBoot()
	if err != nil {
		logger.WithError(err).Warn("failed to restore cart from storage, starting empty")
	} else {
		cartService.Replace(restored.Items, restored.Selections)
		logger.WithFields(logrus.Fields{
			"items":   len(restored.Items),
			"expired": restored.IsExpired,
		}).Info("Cart restored from device store")
	}

	// Background maintenance loop
	maintCtx, cancelMaint := context.WithCancel(context.Background())
	defer cancelMaint()
	go maintenanceService.Start(maintCtx)

	serverConfig := &httpserver.ServerConfig{
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
	server := httpserver.NewServer(serverConfig, logger, httpserver.ServerDeps{
		CartService:        cartService,
		AccountService:     accountService,
		SyncService:        syncService,
		MaintenanceService: maintenanceService,
		HealthCheckers:     healthCheckers,
	})

	go func() {
		if err := server.Start(); err != nil {
			logger.Info("Server stopped:", err)
		}
	}()

	// Wait for interrupt signal to gracefully shut down
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down agent...")

	// Flush any pending debounced write before exiting
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	debouncer.Flush("cart_sync", func() {
		if _, err := syncService.SyncToStorage(shutdownCtx); err != nil {
			logger.WithError(err).Error("final cart sync failed")
		}
	})

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("Server forced to shutdown:", err)
	}

	logger.Info("Agent exited")
}

// buildDeviceStore opens the configured backend and returns the store, its
// health checkers and a close func.
func buildDeviceStore(cfg *config.Config) (ports.DeviceStore, []ports.HealthChecker, func(), error) {
	switch cfg.DeviceStore.Driver {
	case "redis":
		client, err := devicestore.NewRedisClient(&cfg.Redis)
		if err != nil {
			return nil, nil, nil, err
		}
		store := devicestore.NewRedisStore(client, cfg.DeviceStore.KeyPrefix)
		checkers := []ports.HealthChecker{
			health.NewRedisHealthChecker(client),
			health.NewDeviceStoreHealthChecker(store),
		}
		return store, checkers, func() { client.Close() }, nil
	case "memory":
		store := devicestore.NewMemoryStore()
		return store, []ports.HealthChecker{health.NewDeviceStoreHealthChecker(store)}, func() {}, nil
	default:
		store, err := devicestore.NewSQLiteStore(cfg.DeviceStore.SQLitePath)
		if err != nil {
			return nil, nil, nil, err
		}
		checkers := []ports.HealthChecker{health.NewDeviceStoreHealthChecker(store)}
		return store, checkers, func() { store.Close() }, nil
	}
}
