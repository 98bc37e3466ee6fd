// Package main provides the typing game server binary: the REST API and the
// WebSocket game endpoint on one listener.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/finalsentence/server/internal/config"
	"github.com/finalsentence/server/internal/game/phrase"
	"github.com/finalsentence/server/internal/game/rng"
	"github.com/finalsentence/server/internal/gameserver"
	"github.com/finalsentence/server/internal/httpapi"
	"github.com/finalsentence/server/internal/leaderboard"
	"github.com/finalsentence/server/internal/observability"
	"github.com/finalsentence/server/internal/server"
	"github.com/finalsentence/server/internal/storage/postgres"
)

const (
	healthInterval = 30 * time.Second
	healthTimeout  = 5 * time.Second
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	flag.Parse()

	ctx := context.Background()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("starting server",
		zap.String("addr", cfg.Server.Addr()),
	)

	// Connect to PostgreSQL for player, room, and match persistence.
	dbStart := time.Now()
	store, err := postgres.NewStore(ctx, cfg.Database)
	if err != nil {
		logger.Fatal("connecting to database", zap.Error(err))
	}
	logger.Info("database connected",
		zap.String("host", cfg.Database.Host),
		zap.Duration("elapsed", time.Since(dbStart)),
	)

	// The leaderboard is optional; an empty redis URL disables it and every
	// call on the nil board is a no-op.
	var board *leaderboard.Leaderboard
	if cfg.Redis.URL != "" {
		board, err = leaderboard.New(ctx, cfg.Redis.URL)
		if err != nil {
			logger.Fatal("connecting to redis", zap.Error(err))
		}
		logger.Info("leaderboard connected")
	} else {
		logger.Info("leaderboard disabled")
	}

	// Load the phrase corpus. A store failure falls back to the built-in pack
	// rather than refusing to start.
	stored, err := store.GetPhrases(ctx, cfg.Game.PhraseLimit)
	if err != nil {
		logger.Warn("loading phrases from store, falling back to built-in pack", zap.Error(err))
		stored = nil
	}
	src := rng.NewCryptoSource()
	pool := phrase.NewPool(stored, src)
	logger.Info("phrase pool ready",
		zap.Int("stored", len(stored)),
		zap.Int("total", pool.Len()),
	)

	hub := gameserver.NewHub()
	registry := gameserver.NewRegistry(src)
	rooms := gameserver.NewRoomHandler(cfg.Game, logger, store, board, pool, hub, registry)

	api := httpapi.NewAPI(logger, store, board, rooms)
	router := api.Router()
	router.Handle("/ws/{roomID}/{playerID}", gameserver.NewWSServer(rooms, logger, cfg.Server.SendBuffer))

	httpServer := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Services stop in reverse order: the listener first so no new traffic
	// arrives, then room drain flushes its last writes, then the stores close.
	lifecycle := server.NewLifecycle(logger)

	if board != nil {
		lifecycle.AddPoll("redis", healthInterval, healthTimeout, board.Ping, func() {
			if err := board.Close(); err != nil {
				logger.Warn("closing redis", zap.Error(err))
			}
		})
	}

	lifecycle.AddPoll("postgres", healthInterval, healthTimeout, store.Ping, store.Close)

	roomsStopped := make(chan struct{})
	lifecycle.Add("rooms", &server.FuncService{
		StartFn: func() error {
			<-roomsStopped
			return nil
		},
		StopFn: func() {
			rooms.Shutdown()
			close(roomsStopped)
		},
	})

	lifecycle.Add("http", &server.FuncService{
		StartFn: func() error {
			logger.Info("http server listening", zap.String("addr", httpServer.Addr))
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
		StopFn: func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
			defer cancel()
			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				logger.Warn("http shutdown", zap.Error(err))
			}
		},
	})

	logger.Info("server initialized",
		zap.Duration("startup", time.Since(start)),
	)

	if err := lifecycle.Run(ctx); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}
