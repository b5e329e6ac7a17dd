package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gamehive/gamehive/internal/config"
	"github.com/gamehive/gamehive/internal/domain"
	"github.com/gamehive/gamehive/internal/store"
)

// Repository is the PostgreSQL-backed Store implementation, selected with
// store.backend: postgres. It mirrors the in-memory store's semantics:
// sequential ids, partial-merge updates, unordered follows.
type Repository struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

var _ store.Store = (*Repository)(nil)

// NewRepository creates a new PostgreSQL repository
func NewRepository(cfg *config.PostgresConfig, logger *slog.Logger) (*Repository, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("parsing connection string: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxConnections)
	poolConfig.MinConns = int32(cfg.MinConnections)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	if err := pool.Ping(context.Background()); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	return &Repository{
		pool:   pool,
		logger: logger,
	}, nil
}

// Close closes the database connection pool
func (r *Repository) Close() {
	r.pool.Close()
}

// RunMigrations executes database migrations
func (r *Repository) RunMigrations(ctx context.Context) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id BIGSERIAL PRIMARY KEY,
			username TEXT NOT NULL UNIQUE,
			external_account_id TEXT UNIQUE,
			avatar_url TEXT,
			bio TEXT,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS games (
			id BIGSERIAL PRIMARY KEY,
			title TEXT NOT NULL,
			description TEXT,
			author_id BIGINT NOT NULL,
			version TEXT NOT NULL,
			game_url TEXT NOT NULL,
			thumbnail_url TEXT,
			donation_url TEXT,
			ad_script TEXT,
			plays INT NOT NULL DEFAULT 0,
			published BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS scores (
			id BIGSERIAL PRIMARY KEY,
			game_id BIGINT NOT NULL,
			user_id BIGINT NOT NULL,
			score BIGINT NOT NULL,
			metadata JSONB,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS follows (
			id BIGSERIAL PRIMARY KEY,
			follower_id BIGINT NOT NULL,
			followed_id BIGINT NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			UNIQUE(follower_id, followed_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_games_author ON games(author_id)`,
		`CREATE INDEX IF NOT EXISTS idx_games_plays ON games(plays DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_scores_game_score ON scores(game_id, score DESC, id ASC)`,
		`CREATE INDEX IF NOT EXISTS idx_follows_followed ON follows(followed_id)`,
	}

	for _, migration := range migrations {
		if _, err := r.pool.Exec(ctx, migration); err != nil {
			return fmt.Errorf("executing migration: %w", err)
		}
	}

	r.logger.Info("database migrations completed")
	return nil
}

const userColumns = `id, username, external_account_id, avatar_url, bio, created_at`

func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	err := row.Scan(&u.ID, &u.Username, &u.ExternalAccountID, &u.AvatarURL, &u.Bio, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetUser retrieves a user by id
func (r *Repository) GetUser(ctx context.Context, id int) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	u, err := scanUser(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("getting user: %w", err)
	}
	return u, nil
}

// GetUserByExternalID retrieves a user by linked external account id
func (r *Repository) GetUserByExternalID(ctx context.Context, externalID string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE external_account_id = $1`
	u, err := scanUser(r.pool.QueryRow(ctx, query, externalID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("getting user by external id: %w", err)
	}
	return u, nil
}

// CreateUser inserts a new user
func (r *Repository) CreateUser(ctx context.Context, in domain.InsertUser) (*domain.User, error) {
	var usernameTaken, externalTaken bool
	check := `
		SELECT
			EXISTS(SELECT 1 FROM users WHERE username = $1),
			EXISTS(SELECT 1 FROM users WHERE external_account_id = $2)`
	if err := r.pool.QueryRow(ctx, check, in.Username, in.ExternalAccountID).Scan(&usernameTaken, &externalTaken); err != nil {
		return nil, fmt.Errorf("checking uniqueness: %w", err)
	}
	if usernameTaken {
		return nil, domain.ErrUsernameTaken
	}
	if externalTaken {
		return nil, domain.ErrExternalAccountTaken
	}

	query := `
		INSERT INTO users (username, external_account_id, avatar_url, bio)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + userColumns
	u, err := scanUser(r.pool.QueryRow(ctx, query, in.Username, in.ExternalAccountID, in.AvatarURL, in.Bio))
	if err != nil {
		return nil, fmt.Errorf("creating user: %w", err)
	}
	return u, nil
}

const updateUserQuery = `
	UPDATE users
	SET username = COALESCE($2, username),
	    external_account_id = COALESCE($3, external_account_id),
	    avatar_url = COALESCE($4, avatar_url),
	    bio = COALESCE($5, bio)
	WHERE id = $1
	RETURNING ` + userColumns

// UpdateUser merges non-nil fields over an existing user. The merge
// happens inside the single UPDATE (nil pointers bind as NULL and
// COALESCE keeps the stored value), so concurrent partial updates on the
// same row cannot overwrite each other's fields.
func (r *Repository) UpdateUser(ctx context.Context, id int, in domain.UpdateUser) (*domain.User, error) {
	updated, err := scanUser(r.pool.QueryRow(ctx, updateUserQuery, id,
		in.Username, in.ExternalAccountID, in.AvatarURL, in.Bio))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("updating user: %w", err)
	}
	return updated, nil
}

const gameColumns = `id, title, description, author_id, version, game_url, thumbnail_url, donation_url, ad_script, plays, published, created_at`

func scanGame(row pgx.Row) (*domain.Game, error) {
	var g domain.Game
	err := row.Scan(
		&g.ID, &g.Title, &g.Description, &g.AuthorID, &g.Version, &g.GameURL,
		&g.ThumbnailURL, &g.DonationURL, &g.AdScript, &g.Plays, &g.Published, &g.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &g, nil
}

func collectGames(rows pgx.Rows) ([]domain.Game, error) {
	defer rows.Close()
	var games []domain.Game
	for rows.Next() {
		g, err := scanGame(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning game: %w", err)
		}
		games = append(games, *g)
	}
	return games, rows.Err()
}

// GetGame retrieves a game by id
func (r *Repository) GetGame(ctx context.Context, id int) (*domain.Game, error) {
	query := `SELECT ` + gameColumns + ` FROM games WHERE id = $1`
	g, err := scanGame(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrGameNotFound
		}
		return nil, fmt.Errorf("getting game: %w", err)
	}
	return g, nil
}

// ListGames returns all games ordered by id
func (r *Repository) ListGames(ctx context.Context) ([]domain.Game, error) {
	query := `SELECT ` + gameColumns + ` FROM games ORDER BY id`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing games: %w", err)
	}
	return collectGames(rows)
}

// GetGamesByAuthor returns all games created by the given author
func (r *Repository) GetGamesByAuthor(ctx context.Context, authorID int) ([]domain.Game, error) {
	query := `SELECT ` + gameColumns + ` FROM games WHERE author_id = $1 ORDER BY id`
	rows, err := r.pool.Query(ctx, query, authorID)
	if err != nil {
		return nil, fmt.Errorf("getting games by author: %w", err)
	}
	return collectGames(rows)
}

// GetTrendingGames returns up to limit games ordered by plays descending
func (r *Repository) GetTrendingGames(ctx context.Context, limit int) ([]domain.Game, error) {
	query := `SELECT ` + gameColumns + ` FROM games ORDER BY plays DESC, id ASC LIMIT $1`
	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("getting trending games: %w", err)
	}
	return collectGames(rows)
}

// CreateGame inserts a new game with plays=0
func (r *Repository) CreateGame(ctx context.Context, in domain.InsertGame) (*domain.Game, error) {
	published := false
	if in.Published != nil {
		published = *in.Published
	}

	query := `
		INSERT INTO games (title, description, author_id, version, game_url, thumbnail_url, donation_url, ad_script, published)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING ` + gameColumns
	g, err := scanGame(r.pool.QueryRow(ctx, query,
		in.Title, in.Description, in.AuthorID, in.Version, in.GameURL,
		in.ThumbnailURL, in.DonationURL, in.AdScript, published,
	))
	if err != nil {
		return nil, fmt.Errorf("creating game: %w", err)
	}
	return g, nil
}

const updateGameQuery = `
	UPDATE games
	SET title = COALESCE($2, title),
	    description = COALESCE($3, description),
	    version = COALESCE($4, version),
	    game_url = COALESCE($5, game_url),
	    thumbnail_url = COALESCE($6, thumbnail_url),
	    donation_url = COALESCE($7, donation_url),
	    ad_script = COALESCE($8, ad_script),
	    published = COALESCE($9, published)
	WHERE id = $1
	RETURNING ` + gameColumns

// UpdateGame merges non-nil fields over an existing game. Same
// single-statement merge as UpdateUser: concurrent partial updates on the
// same row each keep the other's fields.
func (r *Repository) UpdateGame(ctx context.Context, id int, in domain.UpdateGame) (*domain.Game, error) {
	updated, err := scanGame(r.pool.QueryRow(ctx, updateGameQuery, id,
		in.Title, in.Description, in.Version, in.GameURL,
		in.ThumbnailURL, in.DonationURL, in.AdScript, in.Published,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrGameNotFound
		}
		return nil, fmt.Errorf("updating game: %w", err)
	}
	return updated, nil
}

// IncrementPlays increments a game's play counter by exactly 1. The
// single UPDATE keeps concurrent increments from losing updates.
func (r *Repository) IncrementPlays(ctx context.Context, id int) (int, error) {
	query := `UPDATE games SET plays = plays + 1 WHERE id = $1 RETURNING plays`
	var plays int
	err := r.pool.QueryRow(ctx, query, id).Scan(&plays)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, domain.ErrGameNotFound
		}
		return 0, fmt.Errorf("incrementing plays: %w", err)
	}
	return plays, nil
}

const scoreColumns = `id, game_id, user_id, score, metadata, created_at`

func scanScore(row pgx.Row) (*domain.Score, error) {
	var s domain.Score
	var metadata []byte
	err := row.Scan(&s.ID, &s.GameID, &s.UserID, &s.Score, &metadata, &s.CreatedAt)
	if err != nil {
		return nil, err
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &s.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshaling score metadata: %w", err)
		}
	}
	return &s, nil
}

// GetScore retrieves a score by id
func (r *Repository) GetScore(ctx context.Context, id int) (*domain.Score, error) {
	query := `SELECT ` + scoreColumns + ` FROM scores WHERE id = $1`
	s, err := scanScore(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrScoreNotFound
		}
		return nil, fmt.Errorf("getting score: %w", err)
	}
	return s, nil
}

// GetScores returns scores for a game ordered by score descending, ties
// stable by insertion order. limit <= 0 returns all matching scores.
func (r *Repository) GetScores(ctx context.Context, gameID, limit int) ([]domain.Score, error) {
	query := `SELECT ` + scoreColumns + ` FROM scores WHERE game_id = $1 ORDER BY score DESC, id ASC`
	var (
		rows pgx.Rows
		err  error
	)
	if limit > 0 {
		rows, err = r.pool.Query(ctx, query+` LIMIT $2`, gameID, limit)
	} else {
		rows, err = r.pool.Query(ctx, query, gameID)
	}
	if err != nil {
		return nil, fmt.Errorf("getting scores: %w", err)
	}
	defer rows.Close()

	var scores []domain.Score
	for rows.Next() {
		s, err := scanScore(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning score: %w", err)
		}
		scores = append(scores, *s)
	}
	return scores, rows.Err()
}

// CreateScore inserts a new score
func (r *Repository) CreateScore(ctx context.Context, in domain.InsertScore) (*domain.Score, error) {
	var metadataJSON []byte
	var err error
	if in.Metadata != nil {
		metadataJSON, err = json.Marshal(in.Metadata)
		if err != nil {
			return nil, fmt.Errorf("marshaling metadata: %w", err)
		}
	}

	value := 0
	if in.Score != nil {
		value = *in.Score
	}

	query := `
		INSERT INTO scores (game_id, user_id, score, metadata)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + scoreColumns
	s, err := scanScore(r.pool.QueryRow(ctx, query, in.GameID, in.UserID, value, metadataJSON))
	if err != nil {
		return nil, fmt.Errorf("creating score: %w", err)
	}
	return s, nil
}

// GetFollowers returns the users following userID
func (r *Repository) GetFollowers(ctx context.Context, userID int) ([]domain.User, error) {
	query := `
		SELECT ` + userColumns + ` FROM users
		WHERE id IN (SELECT follower_id FROM follows WHERE followed_id = $1)
		ORDER BY id`
	return r.queryUsers(ctx, query, userID)
}

// GetFollowing returns the users userID follows
func (r *Repository) GetFollowing(ctx context.Context, userID int) ([]domain.User, error) {
	query := `
		SELECT ` + userColumns + ` FROM users
		WHERE id IN (SELECT followed_id FROM follows WHERE follower_id = $1)
		ORDER BY id`
	return r.queryUsers(ctx, query, userID)
}

func (r *Repository) queryUsers(ctx context.Context, query string, args ...interface{}) ([]domain.User, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying users: %w", err)
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning user: %w", err)
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

// FollowUser records a follow relationship; the pair is unique so a
// duplicate follow is a no-op
func (r *Repository) FollowUser(ctx context.Context, followerID, followedID int) error {
	query := `
		INSERT INTO follows (follower_id, followed_id)
		VALUES ($1, $2)
		ON CONFLICT (follower_id, followed_id) DO NOTHING`
	if _, err := r.pool.Exec(ctx, query, followerID, followedID); err != nil {
		return fmt.Errorf("following user: %w", err)
	}
	return nil
}

// UnfollowUser removes the follow record for the pair if present
func (r *Repository) UnfollowUser(ctx context.Context, followerID, followedID int) error {
	query := `DELETE FROM follows WHERE follower_id = $1 AND followed_id = $2`
	if _, err := r.pool.Exec(ctx, query, followerID, followedID); err != nil {
		return fmt.Errorf("unfollowing user: %w", err)
	}
	return nil
}
