package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"testcase-assistant/internal/chat"
	"testcase-assistant/internal/config"
	"testcase-assistant/internal/database"
	"testcase-assistant/internal/handlers"
	"testcase-assistant/internal/middleware"
	"testcase-assistant/internal/router"
	"testcase-assistant/internal/services"
	"testcase-assistant/internal/websocket"
	"testcase-assistant/pkg/log"
)

func main() {
	// ──── Step 1: Load Environment Variables ────
	cfg := config.Load()
	log.Init(cfg.LogLevel, cfg.LogFormat)
	defer log.Sync()

	log.Info("Starting Test Case Assistant backend...")

	// ──── Step 2: Initialize Redis Clients (optional) ────
	var redisClients *database.RedisClients
	guardStore := services.GuardStore(services.NewMemoryGuardStore())
	if cfg.RedisURL != "" {
		var err error
		redisClients, err = database.NewRedisClients(cfg.RedisURL)
		if err != nil {
			log.Fatal("Redis connection failed", err)
		}
		defer redisClients.Close()
		guardStore = services.NewRedisGuardStore(redisClients.State)
		log.Info("✓ Redis connected, request guard state is shared")
	} else {
		log.Info("Redis not configured, request guard state is in memory")
	}

	// ──── Step 3: Initialize Gemini Client ────
	var generator services.TextGenerator = services.MissingKeyGenerator{}
	if cfg.GeminiAPIKey != "" {
		geminiService, err := services.NewGeminiService(context.Background(), cfg.GeminiAPIKey, cfg.GeminiModel, cfg.GeminiTemperature)
		if err != nil {
			log.Fatal("Gemini client initialization failed", err)
		}
		defer geminiService.Close()
		generator = geminiService
		log.Infow("✓ Gemini client initialized", "model", cfg.GeminiModel)
	} else {
		log.Warnf("GOOGLE_GENERATIVE_AI_API_KEY is not set, Gemini requests will fail with 401")
	}

	// ──── Step 4: Initialize Services ────
	backend := services.NewBackendClient(cfg.BackendURL, cfg.SchedulerURL, cfg.UpstreamTimeout, cfg.ProjectsCacheTTL)
	guard := services.NewIntervalGuard(services.SystemClock, cfg.MinRequestInterval, guardStore)
	policy := services.NewRequestPolicy(cfg.RateLimitedModels...)
	proxy := services.NewProxyService(generator, backend, guard, policy, services.NewErrorClassifier())

	var metrics *middleware.Metrics
	if cfg.MetricsEnabled {
		metrics = middleware.NewMetrics()
		proxy.SetRecorder(metrics)
	}

	// ──── Step 5: Initialize Handlers ────
	generateHandler := handlers.NewGenerateHandler(proxy)
	uploadHandler := handlers.NewUploadHandler(backend)
	storyHandler := handlers.NewStoryHandler(backend)
	schedulerHandler := handlers.NewSchedulerHandler(backend)

	// ──── Step 6: Start WebSocket Hub ────
	var wsHub *websocket.Hub
	if redisClients != nil {
		wsHub = websocket.NewHub(proxy, redisClients.PubSub, chat.WithGreeting(chat.DefaultGreeting))
	} else {
		wsHub = websocket.NewHub(proxy, nil, chat.WithGreeting(chat.DefaultGreeting))
	}
	if metrics != nil {
		wsHub.SetTracker(metrics)
	}
	log.Info("✓ WebSocket hub started")

	// ──── Step 7: Start HTTP Server ────
	apiLimiter := middleware.NewRateLimiter(cfg.APIRateLimitRPM, 10*time.Minute)
	defer apiLimiter.Stop()
	r := router.New(
		generateHandler,
		uploadHandler,
		storyHandler,
		schedulerHandler,
		wsHub,
		apiLimiter,
		metrics,
		cfg.FrontendURL,
	)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.UpstreamTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Info("Shutting down...")
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		server.Shutdown(ctx)
	}()

	log.Infof("✓ Test Case Assistant ready on http://localhost:%s", cfg.Port)
	log.Infof("  Chat: POST http://localhost:%s/generate", cfg.Port)
	log.Infof("  WS:   ws://localhost:%s/api/ws/chat", cfg.Port)
	log.Infow("  Upstreams", "backend", cfg.BackendURL, "scheduler", cfg.SchedulerURL, "guarded_models", cfg.RateLimitedModels)

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatal("Server error", err)
	}
}
