package usecase

import (
	"context"
	"log/slog"

	"github.com/rocketscienceinc/turnarbiter/internal/arbiter"
	"github.com/rocketscienceinc/turnarbiter/internal/laserduel"
	"github.com/rocketscienceinc/turnarbiter/internal/tictactoe"
)

// ticTacToeBot marks the first open cell, then ends its slot.
func ticTacToeBot(logger *slog.Logger, game *tictactoe.Game) arbiter.Observer {
	return func(ctx context.Context, a *arbiter.Arbiter, notice arbiter.Notice) {
		if notice.Kind != arbiter.NoticeActivated {
			return
		}

		log := logger.With("component", "bot", "participant", a.Local().Name, "seq", notice.Turn.Seq)

		if open := game.Open(); len(open) > 0 {
			if err := a.SendMove(ctx, open[0]); err != nil {
				log.Error("failed to send move", "cell", open[0], "error", err)
			}
		}

		if err := a.EndTurn(ctx); err != nil {
			log.Error("failed to end turn", "error", err)
		}
	}
}

// laserDuelBot fires at the oldest standing block.
func laserDuelBot(logger *slog.Logger, game *laserduel.Game) arbiter.Observer {
	return func(ctx context.Context, a *arbiter.Arbiter, notice arbiter.Notice) {
		if notice.Kind != arbiter.NoticeActivated {
			return
		}

		log := logger.With("component", "bot", "participant", a.Local().Name, "seq", notice.Turn.Seq)

		alive := game.Alive()
		if len(alive) == 0 {
			if err := a.EndTurn(ctx); err != nil {
				log.Error("failed to end turn", "error", err)
			}

			return
		}

		if err := a.EndTurnWith(ctx, alive[0].ID); err != nil {
			log.Error("failed to fire", "block", alive[0].ID, "error", err)
		}
	}
}
