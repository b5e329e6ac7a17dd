package websocket

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/gamehive/gamehive/internal/domain"
)

type fakeScores struct {
	scores map[int][]domain.Score
}

func (f *fakeScores) TopScores(ctx context.Context, gameID, limit int) ([]domain.Score, error) {
	return f.scores[gameID], nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestHub(scores map[int][]domain.Score) *Hub {
	hub := NewHub(&fakeScores{scores: scores}, 10, testLogger())
	go hub.Run()
	return hub
}

func newFakeClient(buf int) *Client {
	return &Client{
		id:     "test-client",
		send:   make(chan []byte, buf),
		logger: testLogger(),
	}
}

// waitFor polls cond until it holds or the deadline passes
func waitFor(t *testing.T, cond func() bool, what string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

// recvMessage reads one frame from a client's send channel
func recvMessage(t *testing.T, c *Client) *Message {
	t.Helper()
	select {
	case data := <-c.send:
		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Fatalf("unmarshal frame: %v", err)
		}
		return &msg
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message")
		return nil
	}
}

func assertNoMessage(t *testing.T, c *Client) {
	t.Helper()
	select {
	case data := <-c.send:
		t.Fatalf("unexpected message: %s", data)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestNotifyBroadcastsToAllSubscribers(t *testing.T) {
	scores := []domain.Score{
		{ID: 2, GameID: 7, UserID: 1, Score: 500},
		{ID: 1, GameID: 7, UserID: 2, Score: 100},
	}
	hub := newTestHub(map[int][]domain.Score{7: scores})
	defer hub.Stop()

	sender := newFakeClient(16)
	watcher := newFakeClient(16)
	hub.Register(sender)
	hub.Register(watcher)
	hub.Subscribe(sender, 7)
	hub.Subscribe(watcher, 7)
	waitFor(t, func() bool { return hub.SubscriberCount(7) == 2 }, "both subscriptions")

	hub.Notify(sender)

	for _, c := range []*Client{sender, watcher} {
		msg := recvMessage(t, c)
		if msg.Type != MessageTypeScoresUpdate {
			t.Errorf("got type %q, want %q", msg.Type, MessageTypeScoresUpdate)
		}
		if msg.GameID != 7 {
			t.Errorf("got gameId %d, want 7", msg.GameID)
		}
		if len(msg.Scores) != 2 || msg.Scores[0].Score != 500 {
			t.Errorf("unexpected scores: %+v", msg.Scores)
		}
		if msg.Timestamp.IsZero() {
			t.Error("timestamp not set")
		}
	}

	// Exactly one broadcast each
	assertNoMessage(t, sender)
	assertNoMessage(t, watcher)
}

func TestNotifyFromUnsubscribedClientIsDropped(t *testing.T) {
	hub := newTestHub(map[int][]domain.Score{7: {{ID: 1, GameID: 7, Score: 10}}})
	defer hub.Stop()

	client := newFakeClient(16)
	hub.Register(client)
	waitFor(t, func() bool { return hub.TotalConnections() == 1 }, "registration")

	hub.Notify(client)
	assertNoMessage(t, client)
}

func TestResubscribeReplacesPriorSubscription(t *testing.T) {
	hub := newTestHub(map[int][]domain.Score{
		1: {{ID: 1, GameID: 1, Score: 10}},
		2: {{ID: 2, GameID: 2, Score: 20}},
	})
	defer hub.Stop()

	client := newFakeClient(16)
	other := newFakeClient(16)
	hub.Register(client)
	hub.Register(other)
	hub.Subscribe(client, 1)
	hub.Subscribe(other, 1)
	waitFor(t, func() bool { return hub.SubscriberCount(1) == 2 }, "initial subscriptions")

	// Moving to game 2 must drop the game 1 subscription
	hub.Subscribe(client, 2)
	waitFor(t, func() bool {
		return hub.SubscriberCount(1) == 1 && hub.SubscriberCount(2) == 1
	}, "resubscription")

	hub.Notify(other)

	msg := recvMessage(t, other)
	if msg.GameID != 1 {
		t.Errorf("got gameId %d, want 1", msg.GameID)
	}
	assertNoMessage(t, client)

	// The client now receives game 2 updates instead
	hub.Notify(client)
	msg = recvMessage(t, client)
	if msg.GameID != 2 {
		t.Errorf("got gameId %d, want 2", msg.GameID)
	}
}

func TestUnregisterRemovesSubscription(t *testing.T) {
	hub := newTestHub(map[int][]domain.Score{7: {}})
	defer hub.Stop()

	client := newFakeClient(16)
	hub.Register(client)
	hub.Subscribe(client, 7)
	waitFor(t, func() bool { return hub.SubscriberCount(7) == 1 }, "subscription")

	hub.Unregister(client)
	waitFor(t, func() bool {
		return hub.SubscriberCount(7) == 0 && hub.TotalConnections() == 0
	}, "unregistration")

	// The hub closes the send channel on unregister
	select {
	case _, ok := <-client.send:
		if ok {
			t.Error("expected closed send channel")
		}
	case <-time.After(time.Second):
		t.Error("send channel not closed")
	}
}

func TestBroadcastScoresReachesSubscribers(t *testing.T) {
	hub := newTestHub(map[int][]domain.Score{})
	defer hub.Stop()

	client := newFakeClient(16)
	hub.Register(client)
	hub.Subscribe(client, 3)
	waitFor(t, func() bool { return hub.SubscriberCount(3) == 1 }, "subscription")

	hub.BroadcastScores(3, []domain.Score{{ID: 9, GameID: 3, Score: 42}})

	msg := recvMessage(t, client)
	if msg.Type != MessageTypeScoresUpdate || msg.GameID != 3 {
		t.Errorf("unexpected message: %+v", msg)
	}
	if len(msg.Scores) != 1 || msg.Scores[0].Score != 42 {
		t.Errorf("unexpected scores: %+v", msg.Scores)
	}
}

func TestBroadcastScoresNormalizesNilSlice(t *testing.T) {
	hub := newTestHub(map[int][]domain.Score{})
	defer hub.Stop()

	client := newFakeClient(16)
	hub.Register(client)
	hub.Subscribe(client, 3)
	waitFor(t, func() bool { return hub.SubscriberCount(3) == 1 }, "subscription")

	hub.BroadcastScores(3, nil)

	select {
	case data := <-client.send:
		var raw map[string]json.RawMessage
		if err := json.Unmarshal(data, &raw); err != nil {
			t.Fatalf("unmarshal frame: %v", err)
		}
		if string(raw["scores"]) != "[]" {
			t.Errorf("got scores %s, want []", raw["scores"])
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message")
	}
}

func TestSlowClientIsSkippedNotBlocked(t *testing.T) {
	hub := newTestHub(map[int][]domain.Score{})
	defer hub.Stop()

	// Zero-capacity buffer with no reader: every broadcast must skip it
	slow := newFakeClient(0)
	healthy := newFakeClient(16)
	hub.Register(slow)
	hub.Register(healthy)
	hub.Subscribe(slow, 5)
	hub.Subscribe(healthy, 5)
	waitFor(t, func() bool { return hub.SubscriberCount(5) == 2 }, "subscriptions")

	hub.BroadcastScores(5, []domain.Score{{ID: 1, GameID: 5, Score: 1}})

	// If the hub blocked on the slow client this receive would time out
	msg := recvMessage(t, healthy)
	if msg.GameID != 5 {
		t.Errorf("got gameId %d, want 5", msg.GameID)
	}
}
