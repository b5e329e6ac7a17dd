package redis

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/gamehive/gamehive/internal/config"
	"github.com/gamehive/gamehive/internal/domain"
	"github.com/gamehive/gamehive/internal/service"
)

// Cache keeps one sorted set per game, member = score id, score = the
// submitted value. The service consults it on the leaderboard read path
// and falls back to the store whenever the cache misses or errors; the
// sync worker rebuilds it periodically.
type Cache struct {
	client *redis.Client
	logger *slog.Logger
}

var _ service.Cache = (*Cache)(nil)

// NewCache creates a new leaderboard cache
func NewCache(cfg *config.RedisConfig, logger *slog.Logger) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}

	return &Cache{
		client: client,
		logger: logger,
	}, nil
}

// Close closes the Redis connection
func (c *Cache) Close() error {
	return c.client.Close()
}

// gameKey returns the Redis key for a game's leaderboard sorted set
func (c *Cache) gameKey(gameID int) string {
	return fmt.Sprintf("game:%d:scores", gameID)
}

// AddScore records a newly created score in the game's sorted set
func (c *Cache) AddScore(ctx context.Context, gameID, scoreID, value int) error {
	key := c.gameKey(gameID)
	err := c.client.ZAdd(ctx, key, redis.Z{
		Score:  float64(value),
		Member: strconv.Itoa(scoreID),
	}).Err()
	if err != nil {
		return fmt.Errorf("adding score: %w", err)
	}
	return nil
}

// TopScoreIDs returns the ids of the top n scores for a game, best first
func (c *Cache) TopScoreIDs(ctx context.Context, gameID, n int) ([]int, error) {
	key := c.gameKey(gameID)
	members, err := c.client.ZRevRange(ctx, key, 0, int64(n-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("getting top score ids: %w", err)
	}

	ids := make([]int, 0, len(members))
	for _, member := range members {
		id, err := strconv.Atoi(member)
		if err != nil {
			return nil, fmt.Errorf("parsing score id %q: %w", member, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// ReplaceScores atomically rebuilds a game's sorted set from the given
// scores (the worker repair path)
func (c *Cache) ReplaceScores(ctx context.Context, gameID int, scores []domain.Score) error {
	key := c.gameKey(gameID)

	pipe := c.client.TxPipeline()
	pipe.Del(ctx, key)
	for _, s := range scores {
		pipe.ZAdd(ctx, key, redis.Z{
			Score:  float64(s.Score),
			Member: strconv.Itoa(s.ID),
		})
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("replacing scores: %w", err)
	}
	return nil
}

// ScoreCount returns the number of cached scores for a game
func (c *Cache) ScoreCount(ctx context.Context, gameID int) (int64, error) {
	key := c.gameKey(gameID)
	count, err := c.client.ZCard(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("getting score count: %w", err)
	}
	return count, nil
}
