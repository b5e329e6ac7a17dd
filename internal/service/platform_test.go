package service

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/gamehive/gamehive/internal/config"
	"github.com/gamehive/gamehive/internal/domain"
	"github.com/gamehive/gamehive/internal/store"
)

func newTestService() *Service {
	return newTestServiceWithCache(nil)
}

func newTestServiceWithCache(cache Cache) *Service {
	cfg := &config.LeaderboardConfig{
		DefaultLimit:  10,
		MaxLimit:      100,
		TrendingLimit: 10,
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(store.NewMemory(), cache, cfg, logger)
}

type fakeCache struct {
	ids      []int
	addCalls int
}

func (f *fakeCache) TopScoreIDs(ctx context.Context, gameID, n int) ([]int, error) {
	if len(f.ids) > n {
		return f.ids[:n], nil
	}
	return f.ids, nil
}

func (f *fakeCache) AddScore(ctx context.Context, gameID, scoreID, value int) error {
	f.addCalls++
	return nil
}

func intPtr(n int) *int { return &n }

func TestTopScoresAppliesDefaultLimit(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	for i := 0; i < 15; i++ {
		_, err := svc.CreateScore(ctx, domain.InsertScore{GameID: 1, UserID: 1, Score: intPtr(i)})
		if err != nil {
			t.Fatalf("CreateScore: %v", err)
		}
	}

	scores, err := svc.TopScores(ctx, 1, 0)
	if err != nil {
		t.Fatalf("TopScores: %v", err)
	}
	if len(scores) != 10 {
		t.Errorf("got %d scores, want default limit of 10", len(scores))
	}
	if scores[0].Score != 14 {
		t.Errorf("got top score %d, want 14", scores[0].Score)
	}
}

func TestTopScoresClampsToMaxLimit(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	for i := 0; i < 120; i++ {
		_, err := svc.CreateScore(ctx, domain.InsertScore{GameID: 1, UserID: 1, Score: intPtr(i)})
		if err != nil {
			t.Fatalf("CreateScore: %v", err)
		}
	}

	scores, err := svc.TopScores(ctx, 1, 500)
	if err != nil {
		t.Fatalf("TopScores: %v", err)
	}
	if len(scores) != 100 {
		t.Errorf("got %d scores, want max limit of 100", len(scores))
	}
}

func TestTopScoresServedFromFullCache(t *testing.T) {
	cache := &fakeCache{}
	svc := newTestServiceWithCache(cache)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		if _, err := svc.CreateScore(ctx, domain.InsertScore{GameID: 1, UserID: 1, Score: intPtr(i)}); err != nil {
			t.Fatalf("CreateScore: %v", err)
		}
	}
	if cache.addCalls != 10 {
		t.Errorf("got %d cache writes, want 10", cache.addCalls)
	}

	// The cache's ranking deliberately disagrees with the store's so a
	// cache-served response is distinguishable: id 1 holds the lowest
	// score, yet the cache ranks it first.
	cache.ids = []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}

	scores, err := svc.TopScores(ctx, 1, 0)
	if err != nil {
		t.Fatalf("TopScores: %v", err)
	}
	if len(scores) != 10 {
		t.Fatalf("got %d scores, want 10", len(scores))
	}
	if scores[0].ID != 1 {
		t.Errorf("got first score id %d, want cache order (id 1)", scores[0].ID)
	}
}

func TestTopScoresFallsBackOnPartialCache(t *testing.T) {
	cache := &fakeCache{ids: []int{3, 2, 1}}
	svc := newTestServiceWithCache(cache)
	ctx := context.Background()

	for i := 0; i < 12; i++ {
		if _, err := svc.CreateScore(ctx, domain.InsertScore{GameID: 1, UserID: 1, Score: intPtr(i)}); err != nil {
			t.Fatalf("CreateScore: %v", err)
		}
	}

	// Three cached entries cannot satisfy the default limit of ten, so
	// the store must serve the full board
	scores, err := svc.TopScores(ctx, 1, 0)
	if err != nil {
		t.Fatalf("TopScores: %v", err)
	}
	if len(scores) != 10 {
		t.Fatalf("got %d scores, want 10 from the store", len(scores))
	}
	if scores[0].Score != 11 {
		t.Errorf("got top score %d, want 11", scores[0].Score)
	}
}

func TestCreateScoreRejectsInvalidPayload(t *testing.T) {
	svc := newTestService()

	_, err := svc.CreateScore(context.Background(), domain.InsertScore{GameID: 1})
	if err == nil {
		t.Fatal("expected validation error")
	}
	ve, ok := domain.AsValidationError(err)
	if !ok {
		t.Fatalf("expected ValidationError, got %T", err)
	}
	fields := make(map[string]bool)
	for _, f := range ve.Fields {
		fields[f.Field] = true
	}
	if !fields["userId"] || !fields["score"] {
		t.Errorf("missing expected field errors: %+v", ve.Fields)
	}
}

func TestCreateGameRejectsInvalidPayload(t *testing.T) {
	svc := newTestService()

	_, err := svc.CreateGame(context.Background(), domain.InsertGame{Title: "no url"})
	if err == nil {
		t.Fatal("expected validation error")
	}
	if _, ok := domain.AsValidationError(err); !ok {
		t.Fatalf("expected ValidationError, got %T", err)
	}
}

func TestTrendingGamesAppliesDefaultLimit(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	for i := 0; i < 12; i++ {
		_, err := svc.CreateGame(ctx, domain.InsertGame{
			Title:    "game",
			AuthorID: 1,
			Version:  "1.0.0",
			GameURL:  "https://games.example.com/g",
		})
		if err != nil {
			t.Fatalf("CreateGame: %v", err)
		}
	}

	games, err := svc.TrendingGames(ctx, 0)
	if err != nil {
		t.Fatalf("TrendingGames: %v", err)
	}
	if len(games) != 10 {
		t.Errorf("got %d games, want default limit of 10", len(games))
	}
}
