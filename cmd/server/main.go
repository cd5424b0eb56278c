package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/bpaulsen/roomchat/internal/app"
	"github.com/bpaulsen/roomchat/internal/auth"
	"github.com/bpaulsen/roomchat/internal/message"
	"github.com/bpaulsen/roomchat/internal/server"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
)

func main() {
	// Load local .env (dev only).
	_ = godotenv.Load()

	cfg, err := app.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	rooms, err := cfg.RoomNames()
	if err != nil {
		log.Fatalf("Failed to load room list: %v", err)
	}

	opts := []server.Option{
		server.WithJWTSecret([]byte(cfg.JWTSecret)),
		server.WithMaxConns(cfg.MaxConns),
	}

	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Fatalf("Failed to connect to Redis at %s: %v", cfg.RedisAddr, err)
		}
		log.Printf("Connected to Redis at %s", cfg.RedisAddr)
		opts = append(opts, server.WithMessageStore(message.NewRedisStore(rdb, cfg.HistoryLimit)))
	}

	users, err := auth.OpenGormStore(cfg.SQLitePath)
	if err != nil {
		log.Fatalf("Failed to open user database: %v", err)
	}
	opts = append(opts, server.WithUserStore(users))

	srv := server.New(cfg.ListenAddr, rooms, opts...)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Printf("Starting roomchat server on %s (rooms: %d)", cfg.ListenAddr, len(rooms))
		if err := srv.Run(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-ctx.Done()
	log.Printf("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Shutdown error: %v", err)
	}
}
