package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"HotelGate/internal/config"
	"HotelGate/pkg/detector"
	"HotelGate/pkg/log"
	"HotelGate/pkg/redis"
	"github.com/joho/godotenv"
)

func main() {
	logger := log.NewLogger()
	if err := godotenv.Load(); err != nil {
		logger.Warnf("No .env file loaded, using process environment: %v", err)
	}

	fiberApp := config.NewFiber(logger)
	validator := config.NewValidator()
	gate := config.LoadGateConfig(logger)
	redisServer := redis.New()
	faceDetector := detector.Shared(logger)

	server, err := config.NewServer(
		config.WithFiber(fiberApp),
		config.WithLogger(logger),
		config.WithValidator(validator),
		config.WithGateConfig(gate),
		config.WithDatabase(),
		config.WithRedisServer(redisServer),
		config.WithBackend(),
		config.WithDetector(faceDetector),
		config.WithMiddleware(),
		config.WithUtils(),
	)
	if err != nil {
		logger.Fatal(err)
	}

	server.RegisterHandler()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := server.Run(); err != nil {
			logger.Fatalf("Error starting server: %v", err)
		}
	}()

	logger.Info("Server started successfully")

	<-sigChan
	logger.Info("Shutting down server...")

	if err := server.Shutdown(10 * time.Second); err != nil {
		logger.Errorf("Error during shutdown: %v", err)
	}
}
