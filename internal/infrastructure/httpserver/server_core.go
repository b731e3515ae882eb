package httpserver

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pocketmall/shopdata/internal/core/ports"
	customMiddleware "github.com/pocketmall/shopdata/internal/infrastructure/httpserver/middleware"
	"github.com/sirupsen/logrus"
)

type ServerConfig struct {
	Host         string
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type ServerDeps struct {
	CartService        ports.CartService
	AccountService     ports.AccountService
	SyncService        ports.SyncService
	MaintenanceService ports.MaintenanceService
	HealthCheckers     []ports.HealthChecker
}

// Server is the local API the UI glue calls into. It owns no business logic;
// every route delegates to an injected service.
type Server struct {
	echo           *echo.Echo
	config         *ServerConfig
	logger         *logrus.Logger
	cartSvc        ports.CartService
	accountSvc     ports.AccountService
	syncSvc        ports.SyncService
	maintenanceSvc ports.MaintenanceService
	middleware     *customMiddleware.MiddlewareCollection
	healthCheckers []ports.HealthChecker
}

func NewServer(serverConfig *ServerConfig, logger *logrus.Logger, deps ServerDeps) *Server {
	e := echo.New()

	server := &Server{
		echo:           e,
		config:         serverConfig,
		logger:         logger,
		cartSvc:        deps.CartService,
		accountSvc:     deps.AccountService,
		syncSvc:        deps.SyncService,
		maintenanceSvc: deps.MaintenanceService,
		healthCheckers: deps.HealthCheckers,
		middleware: customMiddleware.NewMiddlewareCollection(
			logger,
			GetRequestsTotal(),
			GetRequestDuration(),
		),
	}

	server.setupMiddleware()
	server.setupRoutes()

	return server
}
