package tictactoe

import (
	"fmt"

	"github.com/rocketscienceinc/turnarbiter/internal/board"
	"github.com/rocketscienceinc/turnarbiter/internal/entity"
	"github.com/rocketscienceinc/turnarbiter/internal/judge"
)

const Size = 3

type Game struct {
	board *board.Board
	judge judge.Judge
}

// New - builds an empty 3x3 game. A nil judge checks every line.
func New(j judge.Judge) *Game {
	if j == nil {
		j = judge.NewLines(Size)
	}

	return &Game{
		board: board.NewGrid(Size),
		judge: j,
	}
}

func (that *Game) Apply(move entity.Move) error {
	if err := that.board.Apply(move.Cell, move.Mark); err != nil {
		return fmt.Errorf("invalid move: %w", err)
	}

	return nil
}

func (that *Game) CommitPending() {
	that.board.CommitPending()
}

func (that *Game) DiscardPending() {
	that.board.DiscardPending()
}

func (that *Game) Evaluate() entity.Outcome {
	return that.judge.Evaluate(that.board.Cells())
}

// Open returns the cells that can still be played.
func (that *Game) Open() []string {
	return that.board.Open()
}

func (that *Game) Cells() []board.Cell {
	return that.board.Cells()
}
