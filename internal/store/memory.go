package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/gamehive/gamehive/internal/domain"
)

// Memory is the in-memory Store implementation: one map per entity type
// keyed by id plus a monotonic counter per type. A single RWMutex guards
// all state so mutations (IncrementPlays in particular) are atomic under
// concurrent request handling. Entities live for the process lifetime.
type Memory struct {
	mu sync.RWMutex

	users   map[int]domain.User
	games   map[int]domain.Game
	scores  map[int]domain.Score
	follows map[int]domain.Follow

	nextUserID   int
	nextGameID   int
	nextScoreID  int
	nextFollowID int
}

var _ Store = (*Memory)(nil)

// NewMemory creates an empty in-memory store
func NewMemory() *Memory {
	return &Memory{
		users:        make(map[int]domain.User),
		games:        make(map[int]domain.Game),
		scores:       make(map[int]domain.Score),
		follows:      make(map[int]domain.Follow),
		nextUserID:   1,
		nextGameID:   1,
		nextScoreID:  1,
		nextFollowID: 1,
	}
}

// Close releases nothing; present to satisfy Store
func (m *Memory) Close() {}

// GetUser retrieves a user by id
func (m *Memory) GetUser(ctx context.Context, id int) (*domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return &u, nil
}

// GetUserByExternalID retrieves a user by linked external account id
func (m *Memory) GetUserByExternalID(ctx context.Context, externalID string) (*domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, u := range m.users {
		if u.ExternalAccountID != nil && *u.ExternalAccountID == externalID {
			user := u
			return &user, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

// CreateUser assigns the next user id and stores the user. Username and
// externalAccountId uniqueness is enforced here.
func (m *Memory) CreateUser(ctx context.Context, in domain.InsertUser) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.users {
		if u.Username == in.Username {
			return nil, domain.ErrUsernameTaken
		}
		if in.ExternalAccountID != nil && u.ExternalAccountID != nil &&
			*u.ExternalAccountID == *in.ExternalAccountID {
			return nil, domain.ErrExternalAccountTaken
		}
	}

	user := domain.User{
		ID:                m.nextUserID,
		Username:          in.Username,
		ExternalAccountID: in.ExternalAccountID,
		AvatarURL:         in.AvatarURL,
		Bio:               in.Bio,
		CreatedAt:         time.Now(),
	}
	m.nextUserID++
	m.users[user.ID] = user
	return &user, nil
}

// UpdateUser merges non-nil fields over an existing user. It never
// creates a new user.
func (m *Memory) UpdateUser(ctx context.Context, id int, in domain.UpdateUser) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	in.ApplyTo(&u)
	m.users[id] = u
	return &u, nil
}

// GetGame retrieves a game by id
func (m *Memory) GetGame(ctx context.Context, id int) (*domain.Game, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	g, ok := m.games[id]
	if !ok {
		return nil, domain.ErrGameNotFound
	}
	return &g, nil
}

// ListGames returns all games ordered by id
func (m *Memory) ListGames(ctx context.Context) ([]domain.Game, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	games := make([]domain.Game, 0, len(m.games))
	for _, g := range m.games {
		games = append(games, g)
	}
	sort.Slice(games, func(i, j int) bool { return games[i].ID < games[j].ID })
	return games, nil
}

// GetGamesByAuthor returns all games created by the given author
func (m *Memory) GetGamesByAuthor(ctx context.Context, authorID int) ([]domain.Game, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var games []domain.Game
	for _, g := range m.games {
		if g.AuthorID == authorID {
			games = append(games, g)
		}
	}
	sort.Slice(games, func(i, j int) bool { return games[i].ID < games[j].ID })
	return games, nil
}

// GetTrendingGames returns up to limit games ordered by plays descending.
// Ties break on id ascending for deterministic output.
func (m *Memory) GetTrendingGames(ctx context.Context, limit int) ([]domain.Game, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	games := make([]domain.Game, 0, len(m.games))
	for _, g := range m.games {
		games = append(games, g)
	}
	sort.Slice(games, func(i, j int) bool {
		if games[i].Plays != games[j].Plays {
			return games[i].Plays > games[j].Plays
		}
		return games[i].ID < games[j].ID
	})
	if limit > 0 && len(games) > limit {
		games = games[:limit]
	}
	return games, nil
}

// CreateGame assigns the next game id, fills defaults (plays=0, published
// false unless set) and stores the game.
func (m *Memory) CreateGame(ctx context.Context, in domain.InsertGame) (*domain.Game, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	published := false
	if in.Published != nil {
		published = *in.Published
	}

	game := domain.Game{
		ID:           m.nextGameID,
		Title:        in.Title,
		Description:  in.Description,
		AuthorID:     in.AuthorID,
		Version:      in.Version,
		GameURL:      in.GameURL,
		ThumbnailURL: in.ThumbnailURL,
		DonationURL:  in.DonationURL,
		AdScript:     in.AdScript,
		Plays:        0,
		Published:    published,
		CreatedAt:    time.Now(),
	}
	m.nextGameID++
	m.games[game.ID] = game
	return &game, nil
}

// UpdateGame merges non-nil fields over an existing game
func (m *Memory) UpdateGame(ctx context.Context, id int, in domain.UpdateGame) (*domain.Game, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	g, ok := m.games[id]
	if !ok {
		return nil, domain.ErrGameNotFound
	}
	in.ApplyTo(&g)
	m.games[id] = g
	return &g, nil
}

// IncrementPlays increments a game's play counter by exactly 1 and
// returns the new count
func (m *Memory) IncrementPlays(ctx context.Context, id int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	g, ok := m.games[id]
	if !ok {
		return 0, domain.ErrGameNotFound
	}
	g.Plays++
	m.games[id] = g
	return g.Plays, nil
}

// GetScore retrieves a score by id
func (m *Memory) GetScore(ctx context.Context, id int) (*domain.Score, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.scores[id]
	if !ok {
		return nil, domain.ErrScoreNotFound
	}
	return &s, nil
}

// GetScores returns scores for a game ordered by score descending, ties
// stable by insertion order. limit <= 0 returns all matching scores.
func (m *Memory) GetScores(ctx context.Context, gameID, limit int) ([]domain.Score, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var scores []domain.Score
	for _, s := range m.scores {
		if s.GameID == gameID {
			scores = append(scores, s)
		}
	}
	sort.Slice(scores, func(i, j int) bool {
		if scores[i].Score != scores[j].Score {
			return scores[i].Score > scores[j].Score
		}
		return scores[i].ID < scores[j].ID
	})
	if limit > 0 && len(scores) > limit {
		scores = scores[:limit]
	}
	return scores, nil
}

// CreateScore assigns the next score id and stores the score
func (m *Memory) CreateScore(ctx context.Context, in domain.InsertScore) (*domain.Score, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	value := 0
	if in.Score != nil {
		value = *in.Score
	}

	score := domain.Score{
		ID:        m.nextScoreID,
		GameID:    in.GameID,
		UserID:    in.UserID,
		Score:     value,
		Metadata:  in.Metadata,
		CreatedAt: time.Now(),
	}
	m.nextScoreID++
	m.scores[score.ID] = score
	return &score, nil
}

// GetFollowers returns the users following userID
func (m *Memory) GetFollowers(ctx context.Context, userID int) ([]domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var users []domain.User
	for _, f := range m.follows {
		if f.FollowedID == userID {
			if u, ok := m.users[f.FollowerID]; ok {
				users = append(users, u)
			}
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

// GetFollowing returns the users userID follows
func (m *Memory) GetFollowing(ctx context.Context, userID int) ([]domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var users []domain.User
	for _, f := range m.follows {
		if f.FollowerID == userID {
			if u, ok := m.users[f.FollowedID]; ok {
				users = append(users, u)
			}
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

// FollowUser records a follow relationship. Following an already-followed
// user is a no-op: the pair is unique.
func (m *Memory) FollowUser(ctx context.Context, followerID, followedID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, f := range m.follows {
		if f.FollowerID == followerID && f.FollowedID == followedID {
			return nil
		}
	}

	follow := domain.Follow{
		ID:         m.nextFollowID,
		FollowerID: followerID,
		FollowedID: followedID,
		CreatedAt:  time.Now(),
	}
	m.nextFollowID++
	m.follows[follow.ID] = follow
	return nil
}

// UnfollowUser removes the follow record for the pair if present,
// otherwise no-ops
func (m *Memory) UnfollowUser(ctx context.Context, followerID, followedID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, f := range m.follows {
		if f.FollowerID == followerID && f.FollowedID == followedID {
			delete(m.follows, id)
			return nil
		}
	}
	return nil
}
