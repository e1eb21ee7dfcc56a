package repository

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/rocketscienceinc/turnarbiter/internal/entity"
)

type LeaderboardRepository interface {
	Save(ctx context.Context, entry entity.Entry) error
	IncrementBy(ctx context.Context, name string, points int64) (int64, error)
	Top(ctx context.Context, limit int) ([]entity.Entry, error)
	Qualifies(ctx context.Context, score int64, limit int) (bool, error)
}

type dbLeaderboard struct {
	client *redis.Client
	key    string
}

// NewLeaderboardRepository - a board stored in the sorted set leaderboard:<board>.
func NewLeaderboardRepository(client *redis.Client, board string) LeaderboardRepository {
	return &dbLeaderboard{
		client: client,
		key:    "leaderboard:" + board,
	}
}

// Save - records the entry unless the name already holds a better score.
func (that *dbLeaderboard) Save(ctx context.Context, entry entity.Entry) error {
	err := that.client.ZAddGT(ctx, that.key, redis.Z{
		Score:  float64(entry.Score),
		Member: entry.Name,
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to save score for %s: %w", entry.Name, err)
	}

	return nil
}

// IncrementBy - adds points to the name's score and returns the new total.
func (that *dbLeaderboard) IncrementBy(ctx context.Context, name string, points int64) (int64, error) {
	score, err := that.client.ZIncrBy(ctx, that.key, float64(points), name).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to increment score for %s: %w", name, err)
	}

	return int64(score), nil
}

// Top - the best limit entries by descending score.
func (that *dbLeaderboard) Top(ctx context.Context, limit int) ([]entity.Entry, error) {
	if limit <= 0 {
		return nil, nil
	}

	scores, err := that.client.ZRevRangeWithScores(ctx, that.key, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get top scores: %w", err)
	}

	entries := make([]entity.Entry, 0, len(scores))
	for _, z := range scores {
		name, ok := z.Member.(string)
		if !ok {
			continue
		}

		entries = append(entries, entity.Entry{Name: name, Score: int64(z.Score)})
	}

	return entries, nil
}

func (that *dbLeaderboard) Qualifies(ctx context.Context, score int64, limit int) (bool, error) {
	top, err := that.Top(ctx, limit)
	if err != nil {
		return false, err
	}

	return entity.Qualifies(top, score, limit), nil
}
