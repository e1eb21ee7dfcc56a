// Package spawner drops blocks into a shared scene, one per tick.
package spawner

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"

	"github.com/rocketscienceinc/turnarbiter/internal/entity"
)

// Spawn bounds, half-open.
const (
	minX, maxX = -2, 2
	minY, maxY = 1, 20
	minZ, maxZ = -2, 2
)

type SpawnFunc func(ctx context.Context, block entity.Block) error

// Run - performs one spawn per tick until count blocks are spawned, the ticks stop or ctx ends.
// It returns the number of blocks spawned.
func Run(ctx context.Context, ticks <-chan time.Time, count int, spawn SpawnFunc) (int, error) {
	for spawned := 0; spawned < count; {
		select {
		case <-ctx.Done():
			return spawned, ctx.Err()
		case _, ok := <-ticks:
			if !ok {
				return spawned, nil
			}

			if err := spawn(ctx, NewBlock()); err != nil {
				return spawned, fmt.Errorf("failed to spawn block %d: %w", spawned+1, err)
			}

			spawned++
		}
	}

	return count, nil
}

// NewBlock - a block with a fresh id at a random position inside the spawn bounds.
func NewBlock() entity.Block {
	return entity.Block{
		ID: uuid.NewString(),
		X:  between(minX, maxX),
		Y:  between(minY, maxY),
		Z:  between(minZ, maxZ),
	}
}

func between(lo, hi int) int {
	return lo + rand.IntN(hi-lo)
}
