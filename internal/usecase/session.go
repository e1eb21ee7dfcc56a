package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rocketscienceinc/turnarbiter/internal/arbiter"
	"github.com/rocketscienceinc/turnarbiter/internal/codec"
	"github.com/rocketscienceinc/turnarbiter/internal/config"
	"github.com/rocketscienceinc/turnarbiter/internal/entity"
	"github.com/rocketscienceinc/turnarbiter/internal/judge"
	"github.com/rocketscienceinc/turnarbiter/internal/laserduel"
	"github.com/rocketscienceinc/turnarbiter/internal/role"
	"github.com/rocketscienceinc/turnarbiter/internal/spawner"
	"github.com/rocketscienceinc/turnarbiter/internal/tictactoe"
)

const (
	// winPoints is what a win is worth on the leaderboard.
	winPoints = 1

	defaultSpawnTick = 16 * time.Millisecond
)

type leaderboardRepo interface {
	IncrementBy(ctx context.Context, name string, points int64) (int64, error)
}

// Endpoint is one participant's connection to a session.
type Endpoint interface {
	arbiter.Transport
	Instantiate(ctx context.Context, payload string) error
	Close() error
}

// Connector opens an endpoint for participant in a session of count participants.
type Connector func(ctx context.Context, session string, participant entity.Participant, count int) (Endpoint, error)

type Settings struct {
	Game        string
	Judge       string
	TurnTimeout time.Duration
	MaxTurns    int
	BlockCount  int
	SpawnTick   time.Duration
}

type Result struct {
	Session string
	Outcome entity.Outcome
	Winner  *entity.Participant
	Turns   int
}

// seat is everything one participant runs locally.
type seat struct {
	participant entity.Participant
	endpoint    Endpoint
	arbiter     *arbiter.Arbiter
}

type SessionManager struct {
	logger      *slog.Logger
	connect     Connector
	leaderboard leaderboardRepo
	settings    Settings
}

// NewSessionManager - leaderboard may be nil, wins are then not recorded.
func NewSessionManager(logger *slog.Logger, connect Connector, leaderboard leaderboardRepo, settings Settings) *SessionManager {
	return &SessionManager{
		logger:      logger.With("component", "session-manager"),
		connect:     connect,
		leaderboard: leaderboard,
		settings:    settings,
	}
}

// Play - seats the named bots in one session and runs it until it is decided.
func (that *SessionManager) Play(ctx context.Context, names []string) (*Result, error) {
	participants, err := entity.NewParticipants(names)
	if err != nil {
		return nil, fmt.Errorf("failed to seat participants: %w", err)
	}

	session := uuid.NewString()
	log := that.logger.With("method", "Play", "session", session, "game", that.settings.Game)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	seats := make([]*seat, 0, len(participants))
	defer func() {
		for _, s := range seats {
			if err := s.endpoint.Close(); err != nil {
				log.Error("failed to close endpoint", "participant", s.participant.Name, "error", err)
			}
		}
	}()

	for _, participant := range participants {
		s, err := that.seat(ctx, session, participant, len(participants))
		if err != nil {
			return nil, err
		}

		seats = append(seats, s)
	}

	var wg sync.WaitGroup
	runErrs := make([]error, len(seats))

	for i, s := range seats {
		wg.Add(1)
		go func() {
			defer wg.Done()

			if err := s.arbiter.Run(ctx); err != nil {
				runErrs[i] = fmt.Errorf("%s stopped: %w", s.participant.Name, err)
				cancel()
			}
		}()
	}

	if err = that.start(ctx, seats[0]); err != nil {
		cancel()
		wg.Wait()

		return nil, err
	}

	wg.Wait()

	if err = errors.Join(runErrs...); err != nil {
		return nil, err
	}

	host := seats[0].arbiter
	result := &Result{Session: session, Outcome: host.Outcome(), Turns: host.Turn().Seq}

	if result.Outcome.State == entity.OutcomeWin {
		if winner, ok := entity.FindByMark(participants, result.Outcome.Winner); ok {
			result.Winner = &winner
			that.recordWin(ctx, log, winner)
		}
	}

	log.Info("session finished", "state", result.Outcome.State, "winner", result.Outcome.Winner, "turns", result.Turns)

	return result, nil
}

func (that *SessionManager) seat(ctx context.Context, session string, participant entity.Participant, count int) (*seat, error) {
	endpoint, err := that.connect(ctx, session, participant, count)
	if err != nil {
		return nil, fmt.Errorf("failed to connect %s: %w", participant.Name, err)
	}

	resolver, err := role.New(participant, count)
	if err != nil {
		_ = endpoint.Close()
		return nil, fmt.Errorf("failed to resolve role of %s: %w", participant.Name, err)
	}

	game, observer, err := that.newGame()
	if err != nil {
		_ = endpoint.Close()
		return nil, err
	}

	a, err := arbiter.New(that.logger, endpoint, game, resolver,
		arbiter.WithTimeout(that.settings.TurnTimeout),
		arbiter.WithMaxTurns(that.settings.MaxTurns),
		arbiter.WithObserver(observer),
	)
	if err != nil {
		_ = endpoint.Close()
		return nil, fmt.Errorf("failed to create arbiter for %s: %w", participant.Name, err)
	}

	return &seat{participant: participant, endpoint: endpoint, arbiter: a}, nil
}

func (that *SessionManager) newGame() (arbiter.Game, arbiter.Observer, error) {
	switch that.settings.Game {
	case config.GameTicTacToe, "":
		var j judge.Judge
		if that.settings.Judge == config.JudgeLegacy {
			j = judge.NewMiddleRow(tictactoe.Size)
		}

		game := tictactoe.New(j)

		return game, ticTacToeBot(that.logger, game), nil
	case config.GameLaserDuel:
		game := laserduel.New(that.settings.BlockCount)

		return game, laserDuelBot(that.logger, game), nil
	default:
		return nil, nil, fmt.Errorf("unknown game %q", that.settings.Game)
	}
}

// start - the host fills the scene, if the game has one, then begins the first turn.
func (that *SessionManager) start(ctx context.Context, host *seat) error {
	if that.settings.Game == config.GameLaserDuel {
		tick := that.settings.SpawnTick
		if tick <= 0 {
			tick = defaultSpawnTick
		}

		ticker := time.NewTicker(tick)
		defer ticker.Stop()

		spawn := func(ctx context.Context, block entity.Block) error {
			payload, err := codec.EncodeBlock(block)
			if err != nil {
				return err
			}

			return host.endpoint.Instantiate(ctx, payload)
		}

		if _, err := spawner.Run(ctx, ticker.C, that.settings.BlockCount, spawn); err != nil {
			return fmt.Errorf("failed to spawn blocks: %w", err)
		}
	}

	err := host.arbiter.Do(ctx, func(ctx context.Context, a *arbiter.Arbiter) error {
		return a.BeginTurn(ctx)
	})
	if err != nil {
		return fmt.Errorf("failed to begin first turn: %w", err)
	}

	return nil
}

func (that *SessionManager) recordWin(ctx context.Context, log *slog.Logger, winner entity.Participant) {
	if that.leaderboard == nil {
		return
	}

	total, err := that.leaderboard.IncrementBy(ctx, winner.Name, winPoints)
	if err != nil {
		log.Error("failed to record win", "winner", winner.Name, "error", err)
		return
	}

	log.Info("win recorded", "winner", winner.Name, "total", total)
}
