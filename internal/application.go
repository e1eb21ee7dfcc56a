package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	goredis "github.com/redis/go-redis/v9"

	"github.com/rocketscienceinc/turnarbiter/internal/config"
	"github.com/rocketscienceinc/turnarbiter/internal/entity"
	"github.com/rocketscienceinc/turnarbiter/internal/repository"
	"github.com/rocketscienceinc/turnarbiter/internal/repository/storage"
	"github.com/rocketscienceinc/turnarbiter/internal/transport/memory"
	"github.com/rocketscienceinc/turnarbiter/internal/transport/redis"
	"github.com/rocketscienceinc/turnarbiter/internal/usecase"
	"github.com/rocketscienceinc/turnarbiter/transport/rest"
)

var (
	ErrAddrNotFound     = errors.New("redis address string is empty")
	ErrUnknownTransport = errors.New("unknown transport")
)

// RunApp - plays the configured sessions and serves the leaderboard until interrupted.
func RunApp(logger *slog.Logger, conf *config.Config) error {
	log := logger.With("component", "app")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigs
		log.Info("Received signal, shutting down", "signal", sig)
		cancel()
	}()

	redisAddrString := conf.Redis.GetRedisAddr()
	if redisAddrString == "" {
		return ErrAddrNotFound
	}

	redisStorage, err := storage.New(ctx, redisAddrString)
	if err != nil {
		return fmt.Errorf("could not connect to redis storage: %w", err)
	}

	defer func() {
		if err = redisStorage.Close(); err != nil {
			log.Error("could not close redis storage", "error", err)
		}
	}()

	connect, err := newConnector(logger, conf.Transport, redisStorage)
	if err != nil {
		return err
	}

	leaderboard := repository.NewLeaderboardRepository(redisStorage, conf.Leaderboard.Name)
	manager := usecase.NewSessionManager(logger, connect, leaderboard, usecase.Settings{
		Game:        conf.Game,
		Judge:       conf.Session.Judge,
		TurnTimeout: conf.Session.TurnTimeout,
		MaxTurns:    conf.Session.MaxTurns,
		BlockCount:  conf.Spawner.BlockCount,
		SpawnTick:   conf.Spawner.Tick,
	})

	// run HTTP server
	httpErrCh := make(chan error, 1)
	go func() {
		log.Info("Starting HTTP server", "port", conf.HTTPPort)
		handlers := rest.NewHandlers(logger, leaderboard, conf.Leaderboard.Limit)
		if httpErr := rest.Start(ctx, conf.HTTPPort, handlers); httpErr != nil {
			log.Error("HTTP server error", "error", httpErr)
			httpErrCh <- httpErr
		}
	}()

	// play sessions
	playErrCh := make(chan error, 1)
	go func() {
		for round := 1; round <= conf.Session.Rounds; round++ {
			result, playErr := manager.Play(ctx, conf.Session.Players)
			if playErr != nil {
				playErrCh <- fmt.Errorf("round %d: %w", round, playErr)
				return
			}

			log.Info("Round finished", "round", round, "session", result.Session, "state", result.Outcome.State,
				"winner", result.Outcome.Winner, "turns", result.Turns)
		}

		log.Info("All rounds played, serving leaderboard")
	}()

	select {
	case err = <-httpErrCh:
		return fmt.Errorf("HTTP server error: %w", err)
	case err = <-playErrCh:
		if errors.Is(err, context.Canceled) {
			return nil
		}

		return fmt.Errorf("session error: %w", err)
	case <-ctx.Done():
		log.Info("Application context canceled, shutting down")
		return nil
	}
}

func newConnector(logger *slog.Logger, transport string, client *goredis.Client) (usecase.Connector, error) {
	switch transport {
	case config.TransportMemory, "":
		sessions := memory.NewSessions()

		return func(ctx context.Context, session string, participant entity.Participant, count int) (usecase.Endpoint, error) {
			endpoint, err := sessions.Connect(ctx, session, participant, count)
			if err != nil {
				return nil, err
			}

			return endpoint, nil
		}, nil
	case config.TransportRedis:
		return func(ctx context.Context, session string, participant entity.Participant, count int) (usecase.Endpoint, error) {
			endpoint, err := redis.New(ctx, logger, client, session, participant, count)
			if err != nil {
				return nil, err
			}

			return endpoint, nil
		}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownTransport, transport)
	}
}
