// Package laserduel is the block shooting game: the host spawns blocks into a shared
// scene and participants take turns firing at one of them.
package laserduel

import (
	"fmt"

	"github.com/rocketscienceinc/turnarbiter/internal/apperror"
	"github.com/rocketscienceinc/turnarbiter/internal/board"
	"github.com/rocketscienceinc/turnarbiter/internal/codec"
	"github.com/rocketscienceinc/turnarbiter/internal/entity"
	"github.com/rocketscienceinc/turnarbiter/internal/judge"
)

type Game struct {
	scene    *board.Board
	judge    judge.Judge
	expected int
	blocks   []entity.Block
}

// New - builds an empty scene that is decided once expected blocks spawned and all of
// them are destroyed.
func New(expected int) *Game {
	return &Game{
		scene:    board.New(),
		judge:    judge.NewTally(),
		expected: expected,
	}
}

// Spawn - adds a block received through synchronized instantiation.
func (that *Game) Spawn(payload string) error {
	block, err := codec.DecodeBlock(payload)
	if err != nil {
		return fmt.Errorf("failed to decode block: %w", err)
	}

	if !that.scene.Add(block.ID) {
		return fmt.Errorf("%w: block %s spawned twice", apperror.ErrMalformedMove, block.ID)
	}

	that.blocks = append(that.blocks, block)

	return nil
}

// Apply - a hit marks the block with the shooter's mark until the slot ends.
func (that *Game) Apply(move entity.Move) error {
	if err := that.scene.Apply(move.Cell, move.Mark); err != nil {
		return fmt.Errorf("invalid shot: %w", err)
	}

	return nil
}

func (that *Game) CommitPending() {
	that.scene.CommitPending()
}

func (that *Game) DiscardPending() {
	that.scene.DiscardPending()
}

func (that *Game) Evaluate() entity.Outcome {
	if len(that.blocks) < that.expected {
		return entity.Ongoing()
	}

	return that.judge.Evaluate(that.scene.Cells())
}

// Alive returns the blocks still standing, in spawn order.
func (that *Game) Alive() []entity.Block {
	var alive []entity.Block

	for _, block := range that.blocks {
		if cell, ok := that.scene.Cell(block.ID); ok && !cell.Committed {
			alive = append(alive, block)
		}
	}

	return alive
}

// Kills counts the blocks destroyed by mark.
func (that *Game) Kills(mark string) int {
	var kills int

	for _, cell := range that.scene.Cells() {
		if cell.Committed && cell.Content == mark {
			kills++
		}
	}

	return kills
}

func (that *Game) Spawned() int {
	return len(that.blocks)
}
