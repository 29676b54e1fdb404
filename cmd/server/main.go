package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"portfolio-assistant/internal/config"
	"portfolio-assistant/internal/database"
	"portfolio-assistant/internal/handlers"
	"portfolio-assistant/internal/llm"
	"portfolio-assistant/internal/middleware"
	"portfolio-assistant/internal/prompt"
	"portfolio-assistant/internal/router"
	"portfolio-assistant/internal/services"
	"portfolio-assistant/internal/websocket"
)

func main() {
	log.Println("🚀 Starting portfolio assistant...")

	// ──── Step 1: Load Environment Variables ────
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("✗ Invalid configuration: %v", err)
	}
	log.Println("✓ Environment variables loaded")

	// ──── Step 2: Load System Prompt ────
	systemPrompt, err := prompt.Load(cfg.SystemPromptFile)
	if err != nil {
		log.Fatalf("✗ System prompt: %v", err)
	}
	log.Println("✓ System prompt loaded")

	// ──── Step 3: Initialize Upstream Client ────
	ctx := context.Background()
	completer, err := llm.New(ctx, cfg.Provider, cfg.APIKey, llm.Options{
		BaseURL:     cfg.BaseURL,
		Model:       cfg.Model,
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
	})
	switch {
	case errors.Is(err, llm.ErrMissingAPIKey):
		log.Printf("⚠ No API key for %s; /api/chat will answer 503 until one is configured", cfg.Provider)
		completer = nil
	case err != nil:
		log.Fatalf("✗ Upstream client initialization failed: %v", err)
	default:
		log.Printf("✓ %s client initialized (model %s)", cfg.Provider, cfg.Model)
	}
	if c, ok := completer.(io.Closer); ok {
		defer c.Close()
	}

	// ──── Step 4: Rate Limiter ────
	var limiter *middleware.RateLimiter
	if cfg.RateLimitPerMin > 0 {
		var store middleware.CounterStore
		if cfg.RedisURL != "" {
			redisClient, err := database.NewRedisClient(cfg.RedisURL)
			if err != nil {
				log.Fatalf("✗ Redis connection failed: %v", err)
			}
			defer redisClient.Close()
			store = middleware.NewRedisStore(redisClient)
			log.Println("✓ Redis connected (shared rate limiter)")
		} else {
			memStore := middleware.NewMemoryStore(time.Minute)
			defer memStore.Close()
			store = memStore
		}
		limiter = middleware.NewRateLimiter(store, cfg.RateLimitPerMin, time.Minute)
		log.Printf("✓ Rate limiter enabled (%d req/min per client)", cfg.RateLimitPerMin)
	}

	// ──── Step 5: Services & Handlers ────
	chatService := services.NewChatService(completer, systemPrompt, cfg.ChatTimeout, cfg.MaxMessageLength, cfg.MaxConcurrent)

	originPolicy, err := middleware.NewOriginPolicy(cfg.AllowedOrigins)
	if err != nil {
		log.Fatalf("✗ CORS allow-list: %v", err)
	}

	var jwtAuth *middleware.JWTAuth
	if cfg.JWTSecret != "" {
		jwtAuth = middleware.NewJWTAuth(cfg.JWTSecret)
		log.Println("✓ Bearer token auth enabled for chat routes")
	}

	chatHandler := handlers.NewChatHandler(chatService, cfg.IsDevelopment())
	healthHandler := handlers.NewHealthHandler(cfg.Env)
	wsRelay := websocket.NewRelay(chatService, originPolicy, limiter, cfg.MaxBodyBytes, cfg.IsDevelopment())

	// ──── Step 6: Start HTTP Server ────
	r := router.New(chatHandler, healthHandler, wsRelay, router.Options{
		OriginPolicy: originPolicy,
		MaxBodyBytes: cfg.MaxBodyBytes,
		RateLimiter:  limiter,
		JWTAuth:      jwtAuth,
		AccessLog:    true,
		TrustProxy:   cfg.TrustProxy,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.ChatTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ln, err := net.Listen("tcp", server.Addr)
	if err != nil {
		log.Fatalf("✗ Listen on %s: %v", server.Addr, err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	log.Printf("✓ Portfolio assistant ready on http://localhost:%s", cfg.Port)
	log.Printf("  Chat: POST http://localhost:%s/api/chat", cfg.Port)
	log.Printf("  WS:   ws://localhost:%s/api/chat/ws", cfg.Port)

	if err := serve(server, ln, sigChan, cfg.ChatTimeout+5*time.Second); err != nil {
		log.Fatalf("Server error: %v", err)
	}
	log.Println("✓ Server stopped")
}

// serve runs server on ln until stop fires, then returns only once in-flight
// requests have drained or drainTimeout has passed.
func serve(server *http.Server, ln net.Listener, stop <-chan os.Signal, drainTimeout time.Duration) error {
	drained := make(chan error, 1)
	go func() {
		<-stop
		log.Println("Shutting down...")
		ctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
		defer cancel()
		drained <- server.Shutdown(ctx)
	}()

	if err := server.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	if err := <-drained; err != nil {
		return fmt.Errorf("shutdown did not drain cleanly: %w", err)
	}
	return nil
}
