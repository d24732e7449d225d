package hotspotservice

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"fleet-track/internal/general/config"
	"fleet-track/internal/general/directions"
	"fleet-track/internal/general/jwt"
	"fleet-track/internal/general/logger"
	"fleet-track/internal/general/postgres"
	"fleet-track/internal/general/rabbitmq"
	"fleet-track/internal/general/redis"
	"fleet-track/internal/general/websocket"
	"fleet-track/internal/software/hotspot/handler"
	"fleet-track/internal/software/hotspot/service"

	"github.com/joho/godotenv"
)

// Run wires the hotspot service and blocks until ctx is cancelled.
func Run(ctx context.Context, maxConcurrent int) error {
	// set up a new logger and context for hotspot service with a static request ID for startup logs
	logger := logger.New("hotspot-service")
	ctx = logger.WithRequestID(ctx, "startup-001")

	// a missing .env is fine; env overrides remain optional
	_ = godotenv.Load()

	// load a config from file
	cfg, err := config.LoadFromFile("config/config.yaml")
	if err != nil {
		logger.Error(ctx, "config_load_failed", "Failed to load configuration", err, nil)
		return err
	}

	// set up a Postgres connection pool
	pool, err := postgres.NewPool(ctx, cfg, logger)
	if err != nil {
		logger.Error(ctx, "db_connection_failed", "Failed to initialize Postgres pool", err, nil)
		return err
	}
	defer pool.Close()

	// connect to RabbitMQ
	rmq, err := rabbitmq.ConnectRabbitMQ(ctx, cfg, logger)
	if err != nil {
		logger.Error(ctx, "rabbitmq_connection_failed", "Failed to connect to RabbitMQ", err, nil)
		return err
	}

	// set up the RabbitMQ publisher
	pub := &rabbitmq.MQPublisher{Client: rmq}

	// connect to Redis for the cool-down cache
	rdb, err := redis.Connect(ctx, cfg, logger)
	if err != nil {
		logger.Error(ctx, "redis_connection_failed", "Failed to connect to Redis", err, nil)
		return err
	}
	defer rdb.Close()

	// set up the route planner backed by the Google Directions API
	planner, err := directions.NewGoogleRoutePlanner(cfg)
	if err != nil {
		logger.Error(ctx, "directions_client_failed", "Failed to create Directions client", err, nil)
		return err
	}

	// set up the JWT manager
	jwtManager := jwt.NewManager(cfg.JWT.SecretKey, 2*time.Hour)

	// set up the necessary repos
	uow := postgres.NewUnitOfWork(pool)
	assignmentRepo := postgres.NewAssignmentRepo()
	candidateRepo := postgres.NewCandidateRepo()
	deviationRepo := postgres.NewDeviationLogRepo()
	cooldown := redis.NewCooldownStore(rdb)

	// set up the websocket handler for live tracking sessions
	ws := websocket.NewWebSocket(logger, jwtManager, pub, uow, assignmentRepo, deviationRepo, planner,
		cooldown, time.Duration(cfg.Hotspot.CoolDownMinutes)*time.Minute)

	// set up the hotspot service
	svc := service.NewHotspotService(logger, cfg.Hotspot, uow, assignmentRepo, candidateRepo, cooldown, planner, pub)

	// set up the HTTP handler and its routes
	mux := http.NewServeMux()
	httpHandler := handler.NewHotspotHTTPHandler(svc, logger, jwtManager, ws)
	httpHandler.RegisterRoutes(mux)

	// concurrency limiter (global) — blocks when capacity is full
	limitedHandler := withConcurrencyLimit(maxConcurrent, mux)

	// set up the server configurations
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Services.HotspotServicePort), // listen on the specified port
		Handler:           limitedHandler,                                      // apply the concurrency limiter to the HTTP handler
		ReadHeaderTimeout: 5 * time.Second,                                     // time to read headers
		ReadTimeout:       10 * time.Second,                                    // time to read full request body
		WriteTimeout:      15 * time.Second,                                    // full response write timeout
		IdleTimeout:       60 * time.Second,                                    // keep-alive window
		BaseContext:       func(net.Listener) context.Context { return ctx },   // pass base ctx to all handlers
	}

	// log service start
	logger.Info(ctx, "service_started",
		fmt.Sprintf("Hotspot Service started on port %d", cfg.Services.HotspotServicePort),
		map[string]any{"port": cfg.Services.HotspotServicePort, "max_concurrent": maxConcurrent},
	)

	// start the server in a background goroutine
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	// wait for context cancellation or server error
	select {
	case <-ctx.Done():
		// graceful HTTP shutdown on context cancel
		shCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		logger.Info(ctx, "shutdown_started", "Starting graceful shutdown", nil)
		if err := srv.Shutdown(shCtx); err != nil && err != http.ErrServerClosed {
			logger.Error(ctx, "http_shutdown_failed", "Failed to gracefully shut down HTTP server", err, nil)
		}
	case err := <-errCh:
		// server returned a terminal error at startup or during run
		if err != nil && err != http.ErrServerClosed {
			logger.Error(ctx, "http_server_error", "HTTP server terminated with error", err, map[string]any{"port": cfg.Services.HotspotServicePort})
			return err
		}
		return nil
	}

	return nil
}

// withConcurrencyLimit wraps an http.Handler with a semaphore-based limiter.
// It controls how many HTTP requests can be in-progress at the same time.
func withConcurrencyLimit(n int, next http.Handler) http.Handler {
	if n <= 0 {
		return next
	}
	sem := make(chan struct{}, n)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case sem <- struct{}{}: // acquire
			defer func() { <-sem }() // release
			next.ServeHTTP(w, r)
		case <-r.Context().Done():
			// client canceled or server is shutting down
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		}
	})
}
