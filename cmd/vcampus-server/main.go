package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"vcampus/internal/config"
	"vcampus/internal/logging"
	"vcampus/internal/protocol/codec"
	"vcampus/internal/server"
	"vcampus/internal/store"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	// Setup structured logging
	logger, closeLog := logging.Setup(logging.Options{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		File:   cfg.LogFile,
	})
	defer closeLog()

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	wire, err := codec.New(cfg.Codec)
	if err != nil {
		log.Fatalf("Failed to select codec: %v", err)
	}

	ctx := context.Background()
	repos, closeStore, err := store.Open(ctx, store.Options{
		Backend:       cfg.StoreBackend,
		RedisURL:      cfg.RedisAddr(),
		RedisPassword: cfg.RedisPassword,
		DatabaseURL:   cfg.DatabaseURL,
		Logger:        logger,
	})
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer closeStore()

	if cfg.SeedData {
		if err := store.Seed(ctx, repos, time.Now()); err != nil {
			log.Fatalf("Failed to seed store: %v", err)
		}
	}

	router := server.NewRouter(logger)
	server.NewCampus(repos).Register(router)

	tcpServer := server.NewServer(server.Options{
		Addr:          cfg.TCPAddr(),
		Codec:         wire,
		MaxFrameSize:  cfg.MaxFrameSize,
		RateLimit:     cfg.RateLimit,
		RateBurst:     cfg.RateBurst,
		WriteTimeout:  cfg.SendTimeout,
		ShutdownGrace: cfg.ShutdownGrace,
		AdminSecret:   cfg.JWTSecret,
		Logger:        logger,
	}, router)

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           server.NewHTTPHandler(tcpServer),
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("starting_vcampus_server",
		"tcp_addr", cfg.TCPAddr(),
		"http_addr", cfg.HTTPAddr(),
		"codec", wire.Name(),
		"store", cfg.StoreBackend,
		"admin_auth", cfg.JWTSecret != "",
	)

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 2)
	go func() {
		if err := tcpServer.Start(); err != nil {
			errChan <- err
		}
	}()
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case <-sigChan:
		logger.Info("received_shutdown_signal")
	case err := <-errChan:
		logger.Error("server_error", "error", err.Error())
	}

	// stop the TCP side first so WebSocket clients get the notice too
	tcpServer.Stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http_shutdown_failed", "error", err.Error())
	}
	logger.Info("server_stopped_gracefully")
}
