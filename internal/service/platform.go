package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gamehive/gamehive/internal/config"
	"github.com/gamehive/gamehive/internal/domain"
	"github.com/gamehive/gamehive/internal/store"
)

// Cache is the leaderboard cache consulted on the top-scores read path.
// *redis.Cache implements it.
type Cache interface {
	TopScoreIDs(ctx context.Context, gameID, n int) ([]int, error)
	AddScore(ctx context.Context, gameID, scoreID, value int) error
}

// Service provides the platform business logic on top of a Store. It
// validates create payloads, clamps query limits, and consults the
// optional leaderboard cache on the top-scores read path.
type Service struct {
	store  store.Store
	cache  Cache
	config *config.LeaderboardConfig
	logger *slog.Logger
}

// New creates a new platform service. cache may be nil when the
// leaderboard cache is disabled.
func New(st store.Store, cache Cache, cfg *config.LeaderboardConfig, logger *slog.Logger) *Service {
	return &Service{
		store:  st,
		cache:  cache,
		config: cfg,
		logger: logger,
	}
}

// GetUser returns a user by id
func (s *Service) GetUser(ctx context.Context, id int) (*domain.User, error) {
	return s.store.GetUser(ctx, id)
}

// GetUserByExternalID returns a user by linked external account id
func (s *Service) GetUserByExternalID(ctx context.Context, externalID string) (*domain.User, error) {
	return s.store.GetUserByExternalID(ctx, externalID)
}

// CreateUser validates and stores a new user
func (s *Service) CreateUser(ctx context.Context, in domain.InsertUser) (*domain.User, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	return s.store.CreateUser(ctx, in)
}

// UpdateUser applies a partial update to an existing user
func (s *Service) UpdateUser(ctx context.Context, id int, in domain.UpdateUser) (*domain.User, error) {
	return s.store.UpdateUser(ctx, id, in)
}

// GetGame returns a game by id
func (s *Service) GetGame(ctx context.Context, id int) (*domain.Game, error) {
	return s.store.GetGame(ctx, id)
}

// GamesByAuthor returns all games created by the given author
func (s *Service) GamesByAuthor(ctx context.Context, authorID int) ([]domain.Game, error) {
	return s.store.GetGamesByAuthor(ctx, authorID)
}

// TrendingGames returns games ranked by play count descending
func (s *Service) TrendingGames(ctx context.Context, limit int) ([]domain.Game, error) {
	if limit <= 0 {
		limit = s.config.TrendingLimit
	}
	if limit > s.config.MaxLimit {
		limit = s.config.MaxLimit
	}
	return s.store.GetTrendingGames(ctx, limit)
}

// CreateGame validates and stores a new game
func (s *Service) CreateGame(ctx context.Context, in domain.InsertGame) (*domain.Game, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	return s.store.CreateGame(ctx, in)
}

// UpdateGame applies a partial update to an existing game
func (s *Service) UpdateGame(ctx context.Context, id int, in domain.UpdateGame) (*domain.Game, error) {
	return s.store.UpdateGame(ctx, id, in)
}

// IncrementPlays bumps a game's play counter and returns the new count
func (s *Service) IncrementPlays(ctx context.Context, id int) (int, error) {
	return s.store.IncrementPlays(ctx, id)
}

// TopScores returns the leaderboard for a game: up to limit scores
// ordered by score descending. When the cache is enabled it serves the
// ranking from Redis, falling back to the store on any miss or error.
func (s *Service) TopScores(ctx context.Context, gameID, limit int) ([]domain.Score, error) {
	if limit <= 0 {
		limit = s.config.DefaultLimit
	}
	if limit > s.config.MaxLimit {
		limit = s.config.MaxLimit
	}

	if s.cache != nil {
		scores, err := s.topScoresFromCache(ctx, gameID, limit)
		if err == nil {
			return scores, nil
		}
		s.logger.Warn("leaderboard cache miss, falling back to store",
			"game_id", gameID, "error", err)
	}

	return s.store.GetScores(ctx, gameID, limit)
}

func (s *Service) topScoresFromCache(ctx context.Context, gameID, limit int) ([]domain.Score, error) {
	ids, err := s.cache.TopScoreIDs(ctx, gameID, limit)
	if err != nil {
		return nil, err
	}
	// A set smaller than the requested limit may be partially warmed
	// (scores written while Redis was unreachable), so the store stays
	// authoritative until it can fill the whole request.
	if len(ids) < limit {
		return nil, fmt.Errorf("cache holds %d of %d requested scores for game %d", len(ids), limit, gameID)
	}

	scores := make([]domain.Score, 0, len(ids))
	for _, id := range ids {
		score, err := s.store.GetScore(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("resolving cached score %d: %w", id, err)
		}
		scores = append(scores, *score)
	}
	return scores, nil
}

// CreateScore validates and stores a new score, updating the leaderboard
// cache best-effort
func (s *Service) CreateScore(ctx context.Context, in domain.InsertScore) (*domain.Score, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	score, err := s.store.CreateScore(ctx, in)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.AddScore(ctx, score.GameID, score.ID, score.Score); err != nil {
			// Cache updates never fail the request
			s.logger.Warn("failed to update leaderboard cache",
				"game_id", score.GameID, "score_id", score.ID, "error", err)
		}
	}

	return score, nil
}

// Followers returns the users following userID
func (s *Service) Followers(ctx context.Context, userID int) ([]domain.User, error) {
	return s.store.GetFollowers(ctx, userID)
}

// Following returns the users userID follows
func (s *Service) Following(ctx context.Context, userID int) ([]domain.User, error) {
	return s.store.GetFollowing(ctx, userID)
}

// FollowUser records a follow; duplicate follows are no-ops
func (s *Service) FollowUser(ctx context.Context, followerID, followedID int) error {
	return s.store.FollowUser(ctx, followerID, followedID)
}

// UnfollowUser removes a follow if present
func (s *Service) UnfollowUser(ctx context.Context, followerID, followedID int) error {
	return s.store.UnfollowUser(ctx, followerID, followedID)
}
