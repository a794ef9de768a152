package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"myinstanceserver/adapters/agones"
	"myinstanceserver/adapters/myredis"
	"myinstanceserver/adapters/recordhttp"
	"myinstanceserver/adapters/scene"
	"myinstanceserver/api"
	"myinstanceserver/domain"
	"myinstanceserver/handlers"
	"myinstanceserver/interfaces"
	"myinstanceserver/service"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/go-redis/redis/v8"
	"github.com/labstack/echo/v4"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

func main() {
	// Initialize logger
	logger := log.NewLogfmtLogger(log.NewSyncWriter(os.Stderr))
	logger = log.WithPrefix(logger, "ts", log.DefaultTimestampUTC)
	logger = log.WithPrefix(logger, "caller", log.DefaultCaller)

	level.Info(logger).Log("msg", "Starting MyInstanceServer service")

	// Load configuration
	config, err := LoadConfig()
	if err != nil {
		level.Error(logger).Log("msg", "Failed to load configuration", "err", err)
		os.Exit(1)
	}
	level.Info(logger).Log(
		"msg", "Configuration loaded",
		"service_port_http", config.HTTPPort,
		"service_port_grpc", config.GRPCPort,
		"redis_addr", config.Redis.Addr,
		"mode", config.Mode,
		"record_service_url", config.RecordServiceURL,
	)

	redisClient, err := myredis.Connect(context.Background(), config.Redis.Addr, 5*time.Second)
	if err != nil {
		level.Error(logger).Log("msg", "Failed to connect to Redis", "err", err)
		os.Exit(1)
	}
	level.Info(logger).Log("msg", "Connected to Redis")

	events := myredis.NewRecordEvents(redisClient, logger)
	httpClient := &http.Client{Timeout: 30 * time.Second}

	var records service.Records
	if config.RecordServiceURL != "" {
		records = newRESTRecords(recordhttp.NewClient(config.RecordServiceURL, httpClient))
	} else {
		records = newRedisRecords(redisClient, events)
	}

	// Orchestrator and the address provisioning registered this process under
	var (
		orchestrator interfaces.Orchestrator
		selfAddress  string
	)
	healthPingCtx, stopHealthPings := context.WithCancel(context.Background())
	defer stopHealthPings()
	if config.Mode == domain.DeploymentClustered {
		sdk := agones.NewSDKClient(config.AgonesSDKURL, httpClient, logger)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := sdk.Ready(ctx); err != nil {
			level.Error(logger).Log("msg", "Failed to mark game server ready", "err", err)
			os.Exit(1)
		}
		go sdk.RunHealthPings(healthPingCtx, agones.DefaultHealthInterval)

		gs, err := sdk.GetGameServer(ctx)
		if err != nil {
			level.Error(logger).Log("msg", "Failed to get game server", "err", err)
			os.Exit(1)
		}
		selfAddress, err = agones.SelfAddress(gs)
		if err != nil {
			level.Error(logger).Log("msg", "Game server has no address", "err", err)
			os.Exit(1)
		}
		orchestrator = sdk
	} else {
		selfAddress = agones.LocalAddress(config.InstanceServerPort)
		orchestrator = agones.NewLocalOrchestrator(agones.LocalServerIP(), config.InstanceServerPort)
	}
	level.Info(logger).Log("msg", "Instance server address resolved", "self_address", selfAddress)

	var (
		network   = service.NewServerNetwork(logger)
		state     = service.NewInstanceState()
		authority = service.NewNetworkObjectTable()
		healthSrv = health.NewServer()
		reporter  = service.NewHealthReporter(healthSrv)
	)
	stopReclaim := service.ReclaimOnPeerLeft(network, authority)

	var lifecycle *service.LifecycleManager
	{
		lifecycle = service.NewLifecycleManager(service.LifecycleConfig{
			Mode:             config.Mode,
			SelfAddress:      selfAddress,
			ShutdownDelay:    config.ShutdownDelay,
			SceneLoadTimeout: config.SceneLoadTimeout,
			ReadyWaitTimeout: config.ReadyWaitTimeout,
		}, service.LifecycleDeps{
			Records:      records,
			Orchestrator: orchestrator,
			Events:       events,
			SceneLoader:  scene.NewFetcher(&http.Client{}, logger),
			Restarter:    service.NewProcessRestarter(respawn, logger),
			Network:      network,
			State:        state,
			Health:       reporter,
			Authority:    authority,
			Logger:       logger,
		})
	}

	var gatekeeper *service.Gatekeeper
	{
		authenticator := service.NewTokenAuthenticator(
			config.JWTSecret,
			service.NewTimeProvider(time.Now),
			records.IdentityProviders,
		)
		gatekeeper = service.NewGatekeeper(lifecycle, authenticator, records, network, state, config.DisconnectInitWait, logger)
	}
	unsubscribe := gatekeeper.Subscribe(events)

	// Create HTTP server (Echo)
	var e *echo.Echo
	{
		e = echo.New()
		e.HideBanner = true
		service.RegisterErrorHandler(e, logger)

		validator, err := handlers.NewRequestValidator(api.OpenAPI)
		if err != nil {
			level.Error(logger).Log("msg", "Failed to load API document", "err", err)
			os.Exit(1)
		}
		e.Use(validator)
		handlers.RegisterHandlers(e, handlers.NewHTTPServer(lifecycle, network, authority, logger))
		handlers.NewWSHandler(gatekeeper, logger).Register(e)
	}

	var grpcServer *grpc.Server
	{
		errorCodeOption := grpc.ChainUnaryInterceptor(service.MyErrorToGRPCInterceptor(logger))
		grpcServer = grpc.NewServer(errorCodeOption)
		grpc_health_v1.RegisterHealthServer(grpcServer, healthSrv)
		reflection.Register(grpcServer)
	}

	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", config.GRPCPort))
	if err != nil {
		level.Error(logger).Log("msg", "Failed to listen", "err", err)
		os.Exit(1)
	}

	// Setup graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		level.Info(logger).Log("msg", "Starting gRPC server", "addr", lis.Addr())
		if err := grpcServer.Serve(lis); err != nil {
			level.Error(logger).Log("msg", "gRPC server error", "err", err)
		}
	}()

	go func() {
		addr := fmt.Sprintf(":%d", config.HTTPPort)
		level.Info(logger).Log("msg", "Starting HTTP server", "addr", addr)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			level.Error(logger).Log("msg", "HTTP server error", "err", err)
		}
	}()

	// Wait for interrupt signal
	<-quit
	level.Info(logger).Log("msg", "Shutting down server...")

	unsubscribe()
	stopReclaim()
	stopHealthPings()
	reporter.Shutdown()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		level.Error(logger).Log("msg", "Error during server shutdown", "err", err)
	}
	grpcServer.GracefulStop()
	if err := redisClient.Close(); err != nil {
		level.Error(logger).Log("msg", "Error closing Redis client", "err", err)
	}

	level.Info(logger).Log("msg", "Server stopped")
}

// respawn replaces the process with a fresh copy of itself for the next session.
func respawn() error {
	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("resolve executable: %w", err)
	}
	return syscall.Exec(exe, os.Args, os.Environ())
}

func newRedisRecords(client redis.UniversalClient, events interfaces.RecordEvents) service.Records {
	return service.Records{
		Instances:         myredis.NewRecordStore[domain.InstanceRecord](client, domain.RecordInstance, events),
		Locations:         myredis.NewRecordStore[domain.Location](client, domain.RecordLocation, events),
		Channels:          myredis.NewRecordStore[domain.Channel](client, domain.RecordChannel, events),
		Users:             myredis.NewRecordStore[domain.User](client, domain.RecordUser, events),
		IdentityProviders: myredis.NewRecordStore[domain.IdentityProvider](client, domain.RecordIdentityProvider, events),
		Attendance:        myredis.NewRecordStore[domain.InstanceAttendance](client, domain.RecordInstanceAttendance, events),
		AuthorizedUsers:   myredis.NewRecordStore[domain.InstanceAuthorizedUser](client, domain.RecordInstanceAuthorizedUser, events),
		LocationBans:      myredis.NewRecordStore[domain.LocationBan](client, domain.RecordLocationBan, events),
		StaticResources:   myredis.NewRecordStore[domain.StaticResource](client, domain.RecordStaticResource, events),
	}
}

func newRESTRecords(client *recordhttp.Client) service.Records {
	return service.Records{
		Instances:         recordhttp.NewRecordStore[domain.InstanceRecord](client, domain.RecordInstance),
		Locations:         recordhttp.NewRecordStore[domain.Location](client, domain.RecordLocation),
		Channels:          recordhttp.NewRecordStore[domain.Channel](client, domain.RecordChannel),
		Users:             recordhttp.NewRecordStore[domain.User](client, domain.RecordUser),
		IdentityProviders: recordhttp.NewRecordStore[domain.IdentityProvider](client, domain.RecordIdentityProvider),
		Attendance:        recordhttp.NewRecordStore[domain.InstanceAttendance](client, domain.RecordInstanceAttendance),
		AuthorizedUsers:   recordhttp.NewRecordStore[domain.InstanceAuthorizedUser](client, domain.RecordInstanceAuthorizedUser),
		LocationBans:      recordhttp.NewRecordStore[domain.LocationBan](client, domain.RecordLocationBan),
		StaticResources:   recordhttp.NewRecordStore[domain.StaticResource](client, domain.RecordStaticResource),
	}
}
