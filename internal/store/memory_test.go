package store

import (
	"context"
	"sync"
	"testing"

	"github.com/gamehive/gamehive/internal/domain"
)

func strPtr(s string) *string { return &s }
func intPtr(n int) *int       { return &n }
func boolPtr(b bool) *bool    { return &b }

func newTestGame(title string) domain.InsertGame {
	return domain.InsertGame{
		Title:    title,
		AuthorID: 1,
		Version:  "1.0.0",
		GameURL:  "https://games.example.com/" + title,
	}
}

func TestCreateUserAssignsSequentialIDs(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		u, err := m.CreateUser(ctx, domain.InsertUser{Username: string(rune('a' + i))})
		if err != nil {
			t.Fatalf("CreateUser: %v", err)
		}
		if u.ID != i {
			t.Errorf("user %d: got id %d, want %d", i, u.ID, i)
		}
	}
}

func TestCreateUserRejectsDuplicateUsername(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	if _, err := m.CreateUser(ctx, domain.InsertUser{Username: "alice"}); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	_, err := m.CreateUser(ctx, domain.InsertUser{Username: "alice"})
	if err != domain.ErrUsernameTaken {
		t.Errorf("got %v, want ErrUsernameTaken", err)
	}
}

func TestCreateUserRejectsDuplicateExternalAccount(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	_, err := m.CreateUser(ctx, domain.InsertUser{Username: "alice", ExternalAccountID: strPtr("ext-1")})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	// A distinct username with the same linked account must name the
	// account as the conflict, not the username
	_, err = m.CreateUser(ctx, domain.InsertUser{Username: "bob", ExternalAccountID: strPtr("ext-1")})
	if err != domain.ErrExternalAccountTaken {
		t.Errorf("got %v, want ErrExternalAccountTaken", err)
	}
}

func TestGetUserByExternalID(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	created, err := m.CreateUser(ctx, domain.InsertUser{
		Username:          "alice",
		ExternalAccountID: strPtr("ext-123"),
	})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	u, err := m.GetUserByExternalID(ctx, "ext-123")
	if err != nil {
		t.Fatalf("GetUserByExternalID: %v", err)
	}
	if u.ID != created.ID {
		t.Errorf("got id %d, want %d", u.ID, created.ID)
	}

	if _, err := m.GetUserByExternalID(ctx, "missing"); !domain.IsNotFound(err) {
		t.Errorf("got %v, want not-found", err)
	}
}

func TestUpdateUserPartialMerge(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	created, err := m.CreateUser(ctx, domain.InsertUser{
		Username: "alice",
		Bio:      strPtr("original bio"),
	})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	// Empty update leaves everything untouched
	u, err := m.UpdateUser(ctx, created.ID, domain.UpdateUser{})
	if err != nil {
		t.Fatalf("UpdateUser: %v", err)
	}
	if u.Username != "alice" || u.Bio == nil || *u.Bio != "original bio" {
		t.Errorf("empty update changed user: %+v", u)
	}

	// Single-field update leaves the rest untouched
	u, err = m.UpdateUser(ctx, created.ID, domain.UpdateUser{AvatarURL: strPtr("https://cdn.example.com/a.png")})
	if err != nil {
		t.Fatalf("UpdateUser: %v", err)
	}
	if u.Bio == nil || *u.Bio != "original bio" {
		t.Errorf("update clobbered bio: %+v", u)
	}
	if u.AvatarURL == nil || *u.AvatarURL != "https://cdn.example.com/a.png" {
		t.Errorf("avatarUrl not applied: %+v", u)
	}
}

func TestUpdateUserNotFound(t *testing.T) {
	m := NewMemory()
	_, err := m.UpdateUser(context.Background(), 42, domain.UpdateUser{Username: strPtr("ghost")})
	if !domain.IsNotFound(err) {
		t.Errorf("got %v, want not-found", err)
	}
}

func TestCreateGameDefaults(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	g, err := m.CreateGame(ctx, newTestGame("asteroids"))
	if err != nil {
		t.Fatalf("CreateGame: %v", err)
	}
	if g.ID != 1 {
		t.Errorf("got id %d, want 1", g.ID)
	}
	if g.Plays != 0 {
		t.Errorf("got plays %d, want 0", g.Plays)
	}
	if g.Published {
		t.Error("new game should default to unpublished")
	}

	in := newTestGame("pong")
	in.Published = boolPtr(true)
	g2, err := m.CreateGame(ctx, in)
	if err != nil {
		t.Fatalf("CreateGame: %v", err)
	}
	if !g2.Published {
		t.Error("explicit published=true not honored")
	}
}

func TestIncrementPlays(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	g, err := m.CreateGame(ctx, newTestGame("asteroids"))
	if err != nil {
		t.Fatalf("CreateGame: %v", err)
	}

	for i := 1; i <= 5; i++ {
		n, err := m.IncrementPlays(ctx, g.ID)
		if err != nil {
			t.Fatalf("IncrementPlays: %v", err)
		}
		if n != i {
			t.Errorf("got plays %d, want %d", n, i)
		}
	}

	if _, err := m.IncrementPlays(ctx, 999); !domain.IsNotFound(err) {
		t.Errorf("got %v, want not-found", err)
	}
}

func TestIncrementPlaysConcurrent(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	g, err := m.CreateGame(ctx, newTestGame("asteroids"))
	if err != nil {
		t.Fatalf("CreateGame: %v", err)
	}

	const workers = 10
	const perWorker = 100

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				if _, err := m.IncrementPlays(ctx, g.ID); err != nil {
					t.Errorf("IncrementPlays: %v", err)
					return
				}
			}
		}()
	}
	wg.Wait()

	got, err := m.GetGame(ctx, g.ID)
	if err != nil {
		t.Fatalf("GetGame: %v", err)
	}
	if got.Plays != workers*perWorker {
		t.Errorf("got plays %d, want %d", got.Plays, workers*perWorker)
	}
}

func TestGetTrendingGamesOrderAndLimit(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	plays := []int{3, 7, 7, 1, 12}
	for i, p := range plays {
		g, err := m.CreateGame(ctx, newTestGame(string(rune('a'+i))))
		if err != nil {
			t.Fatalf("CreateGame: %v", err)
		}
		for j := 0; j < p; j++ {
			if _, err := m.IncrementPlays(ctx, g.ID); err != nil {
				t.Fatalf("IncrementPlays: %v", err)
			}
		}
	}

	games, err := m.GetTrendingGames(ctx, 3)
	if err != nil {
		t.Fatalf("GetTrendingGames: %v", err)
	}
	if len(games) != 3 {
		t.Fatalf("got %d games, want 3", len(games))
	}
	// 12 plays first, then the two 7s tie-broken by id
	wantIDs := []int{5, 2, 3}
	for i, g := range games {
		if g.ID != wantIDs[i] {
			t.Errorf("position %d: got game %d (plays %d), want game %d", i, g.ID, g.Plays, wantIDs[i])
		}
	}
}

func TestGetScoresOrderedDescending(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	values := []int{50, 200, 125, 200, 10}
	for _, v := range values {
		if _, err := m.CreateScore(ctx, domain.InsertScore{GameID: 1, UserID: 1, Score: intPtr(v)}); err != nil {
			t.Fatalf("CreateScore: %v", err)
		}
	}
	// A score for another game must not leak in
	if _, err := m.CreateScore(ctx, domain.InsertScore{GameID: 2, UserID: 1, Score: intPtr(9999)}); err != nil {
		t.Fatalf("CreateScore: %v", err)
	}

	scores, err := m.GetScores(ctx, 1, 10)
	if err != nil {
		t.Fatalf("GetScores: %v", err)
	}
	if len(scores) != 5 {
		t.Fatalf("got %d scores, want 5", len(scores))
	}
	wantValues := []int{200, 200, 125, 50, 10}
	for i, s := range scores {
		if s.Score != wantValues[i] {
			t.Errorf("position %d: got score %d, want %d", i, s.Score, wantValues[i])
		}
	}
	// Equal scores keep submission order
	if scores[0].ID != 2 || scores[1].ID != 4 {
		t.Errorf("tie order wrong: got ids %d, %d, want 2, 4", scores[0].ID, scores[1].ID)
	}
}

func TestGetScoresNewHighestFirst(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	if _, err := m.CreateScore(ctx, domain.InsertScore{GameID: 1, UserID: 1, Score: intPtr(100)}); err != nil {
		t.Fatalf("CreateScore: %v", err)
	}
	top, err := m.CreateScore(ctx, domain.InsertScore{GameID: 1, UserID: 2, Score: intPtr(500)})
	if err != nil {
		t.Fatalf("CreateScore: %v", err)
	}

	scores, err := m.GetScores(ctx, 1, 10)
	if err != nil {
		t.Fatalf("GetScores: %v", err)
	}
	if scores[0].ID != top.ID {
		t.Errorf("got top score id %d, want %d", scores[0].ID, top.ID)
	}
}

func TestGetScoresLimit(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	for i := 0; i < 15; i++ {
		if _, err := m.CreateScore(ctx, domain.InsertScore{GameID: 1, UserID: 1, Score: intPtr(i)}); err != nil {
			t.Fatalf("CreateScore: %v", err)
		}
	}

	scores, err := m.GetScores(ctx, 1, 10)
	if err != nil {
		t.Fatalf("GetScores: %v", err)
	}
	if len(scores) != 10 {
		t.Errorf("got %d scores, want 10", len(scores))
	}

	// limit <= 0 returns everything
	all, err := m.GetScores(ctx, 1, 0)
	if err != nil {
		t.Fatalf("GetScores: %v", err)
	}
	if len(all) != 15 {
		t.Errorf("got %d scores, want 15", len(all))
	}
}

func TestFollowUserIdempotent(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	alice, _ := m.CreateUser(ctx, domain.InsertUser{Username: "alice"})
	bob, _ := m.CreateUser(ctx, domain.InsertUser{Username: "bob"})

	if err := m.FollowUser(ctx, alice.ID, bob.ID); err != nil {
		t.Fatalf("FollowUser: %v", err)
	}
	if err := m.FollowUser(ctx, alice.ID, bob.ID); err != nil {
		t.Fatalf("FollowUser (repeat): %v", err)
	}

	followers, err := m.GetFollowers(ctx, bob.ID)
	if err != nil {
		t.Fatalf("GetFollowers: %v", err)
	}
	if len(followers) != 1 {
		t.Fatalf("got %d followers, want 1", len(followers))
	}
	if followers[0].ID != alice.ID {
		t.Errorf("got follower %d, want %d", followers[0].ID, alice.ID)
	}

	// One unfollow removes the single record
	if err := m.UnfollowUser(ctx, alice.ID, bob.ID); err != nil {
		t.Fatalf("UnfollowUser: %v", err)
	}
	followers, _ = m.GetFollowers(ctx, bob.ID)
	if len(followers) != 0 {
		t.Errorf("got %d followers after unfollow, want 0", len(followers))
	}

	// Unfollowing again is a no-op
	if err := m.UnfollowUser(ctx, alice.ID, bob.ID); err != nil {
		t.Errorf("UnfollowUser (repeat): %v", err)
	}
}

func TestFollowersAndFollowingAreDistinct(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	alice, _ := m.CreateUser(ctx, domain.InsertUser{Username: "alice"})
	bob, _ := m.CreateUser(ctx, domain.InsertUser{Username: "bob"})
	carol, _ := m.CreateUser(ctx, domain.InsertUser{Username: "carol"})

	// alice and carol follow bob; bob follows carol
	m.FollowUser(ctx, alice.ID, bob.ID)
	m.FollowUser(ctx, carol.ID, bob.ID)
	m.FollowUser(ctx, bob.ID, carol.ID)

	followers, _ := m.GetFollowers(ctx, bob.ID)
	if len(followers) != 2 {
		t.Errorf("got %d followers of bob, want 2", len(followers))
	}

	following, _ := m.GetFollowing(ctx, bob.ID)
	if len(following) != 1 || following[0].ID != carol.ID {
		t.Errorf("bob's following wrong: %+v", following)
	}
}

func TestGamesByAuthor(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	in := newTestGame("a")
	in.AuthorID = 1
	m.CreateGame(ctx, in)

	in = newTestGame("b")
	in.AuthorID = 2
	m.CreateGame(ctx, in)

	in = newTestGame("c")
	in.AuthorID = 1
	m.CreateGame(ctx, in)

	games, err := m.GetGamesByAuthor(ctx, 1)
	if err != nil {
		t.Fatalf("GetGamesByAuthor: %v", err)
	}
	if len(games) != 2 {
		t.Fatalf("got %d games, want 2", len(games))
	}
	if games[0].ID != 1 || games[1].ID != 3 {
		t.Errorf("got ids %d, %d, want 1, 3", games[0].ID, games[1].ID)
	}
}

func TestUpdateGamePartialMerge(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	in := newTestGame("asteroids")
	in.Description = strPtr("a space game")
	g, err := m.CreateGame(ctx, in)
	if err != nil {
		t.Fatalf("CreateGame: %v", err)
	}

	updated, err := m.UpdateGame(ctx, g.ID, domain.UpdateGame{Title: strPtr("Asteroids Deluxe")})
	if err != nil {
		t.Fatalf("UpdateGame: %v", err)
	}
	if updated.Title != "Asteroids Deluxe" {
		t.Errorf("title not applied: %q", updated.Title)
	}
	if updated.Description == nil || *updated.Description != "a space game" {
		t.Errorf("description clobbered: %+v", updated.Description)
	}
	if updated.Version != "1.0.0" {
		t.Errorf("version clobbered: %q", updated.Version)
	}
}
