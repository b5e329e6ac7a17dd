package store

import (
	"context"

	"github.com/gamehive/gamehive/internal/domain"
)

// Store is the repository contract for all four entity types. Identifiers
// are positive ints assigned sequentially per type and never reused within
// a process lifetime. Every method takes a context so that a networked
// backend can honor deadlines without changing callers.
type Store interface {
	// Users
	GetUser(ctx context.Context, id int) (*domain.User, error)
	GetUserByExternalID(ctx context.Context, externalID string) (*domain.User, error)
	CreateUser(ctx context.Context, in domain.InsertUser) (*domain.User, error)
	UpdateUser(ctx context.Context, id int, in domain.UpdateUser) (*domain.User, error)

	// Games
	GetGame(ctx context.Context, id int) (*domain.Game, error)
	ListGames(ctx context.Context) ([]domain.Game, error)
	GetGamesByAuthor(ctx context.Context, authorID int) ([]domain.Game, error)
	GetTrendingGames(ctx context.Context, limit int) ([]domain.Game, error)
	CreateGame(ctx context.Context, in domain.InsertGame) (*domain.Game, error)
	UpdateGame(ctx context.Context, id int, in domain.UpdateGame) (*domain.Game, error)
	IncrementPlays(ctx context.Context, id int) (int, error)

	// Scores. GetScores returns scores for a game ordered by score
	// descending (stable by insertion on ties); limit <= 0 returns all.
	GetScore(ctx context.Context, id int) (*domain.Score, error)
	GetScores(ctx context.Context, gameID, limit int) ([]domain.Score, error)
	CreateScore(ctx context.Context, in domain.InsertScore) (*domain.Score, error)

	// Follows
	GetFollowers(ctx context.Context, userID int) ([]domain.User, error)
	GetFollowing(ctx context.Context, userID int) ([]domain.User, error)
	FollowUser(ctx context.Context, followerID, followedID int) error
	UnfollowUser(ctx context.Context, followerID, followedID int) error

	Close()
}
