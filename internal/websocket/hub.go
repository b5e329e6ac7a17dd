package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gamehive/gamehive/internal/domain"
)

// Message types
const (
	MessageTypeSubscribeGame = "subscribe_game"
	MessageTypeNewScore      = "new_score"
	MessageTypeScoresUpdate  = "scores_update"
)

// Message represents a WebSocket frame in either direction
type Message struct {
	Type      string         `json:"type"`
	GameID    int            `json:"gameId,omitempty"`
	Scores    []domain.Score `json:"scores"`
	Timestamp time.Time      `json:"timestamp"`
}

// ScoreSource supplies the current leaderboard for a game at broadcast
// time. The hub never writes scores; persistence happens over HTTP.
type ScoreSource interface {
	TopScores(ctx context.Context, gameID, limit int) ([]domain.Score, error)
}

// Hub maintains the set of active clients and their game subscriptions.
// Each client subscribes to at most one game; resubscribing overwrites
// the prior subscription. There is no unsubscribe primitive.
type Hub struct {
	scores ScoreSource

	// Limit applied when fetching a leaderboard for broadcast
	limit int

	// Clients subscribed to each game
	subscribers map[int]map[*Client]bool

	// Current subscription per client
	games map[*Client]int

	// All connected clients
	clients map[*Client]bool

	// register/unregister/subscribe/notify are unbuffered so events from
	// a single connection are applied in the order they arrived
	register   chan *Client
	unregister chan *Client
	subscribe  chan *subscriptionRequest
	notify     chan *Client

	// Out-of-band broadcasts (Kafka ingestion)
	broadcast chan *Message

	mu sync.RWMutex

	logger *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
}

type subscriptionRequest struct {
	client *Client
	gameID int
}

// NewHub creates a new Hub
func NewHub(scores ScoreSource, limit int, logger *slog.Logger) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		scores:      scores,
		limit:       limit,
		subscribers: make(map[int]map[*Client]bool),
		games:       make(map[*Client]int),
		clients:     make(map[*Client]bool),
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		subscribe:   make(chan *subscriptionRequest),
		notify:      make(chan *Client),
		broadcast:   make(chan *Message, 256),
		logger:      logger,
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Run starts the hub's main loop
func (h *Hub) Run() {
	h.logger.Info("websocket hub started")
	for {
		select {
		case <-h.ctx.Done():
			h.logger.Info("websocket hub stopping")
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			h.logger.Debug("client registered", "client_id", client.id)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				h.removeSubscription(client)
				close(client.send)
			}
			h.mu.Unlock()
			h.logger.Debug("client unregistered", "client_id", client.id)

		case req := <-h.subscribe:
			h.mu.Lock()
			h.removeSubscription(req.client)
			if _, ok := h.subscribers[req.gameID]; !ok {
				h.subscribers[req.gameID] = make(map[*Client]bool)
			}
			h.subscribers[req.gameID][req.client] = true
			h.games[req.client] = req.gameID
			h.mu.Unlock()
			h.logger.Debug("client subscribed", "client_id", req.client.id, "game_id", req.gameID)

		case client := <-h.notify:
			h.handleNewScore(client)

		case message := <-h.broadcast:
			h.broadcastMessage(message)
		}
	}
}

// Stop stops the hub
func (h *Hub) Stop() {
	h.cancel()
}

// removeSubscription detaches a client from its current game, if any.
// Caller must hold h.mu.
func (h *Hub) removeSubscription(client *Client) {
	gameID, ok := h.games[client]
	if !ok {
		return
	}
	delete(h.games, client)
	if clients, ok := h.subscribers[gameID]; ok {
		delete(clients, client)
		if len(clients) == 0 {
			delete(h.subscribers, gameID)
		}
	}
}

// handleNewScore relays a score notification from a subscribed client:
// it fetches the game's current leaderboard and broadcasts it to every
// subscriber, the sender included. Notifications from unsubscribed
// clients are dropped.
func (h *Hub) handleNewScore(client *Client) {
	h.mu.RLock()
	gameID, ok := h.games[client]
	h.mu.RUnlock()

	if !ok {
		h.logger.Debug("score notification from unsubscribed client, dropping",
			"client_id", client.id)
		return
	}

	scores, err := h.scores.TopScores(h.ctx, gameID, h.limit)
	if err != nil {
		h.logger.Error("failed to fetch scores for broadcast",
			"game_id", gameID, "error", err)
		return
	}

	h.broadcastMessage(scoresUpdate(gameID, scores))
}

// broadcastMessage sends a message to all clients subscribed to its game.
// Clients whose send buffer is full are silently skipped.
func (h *Hub) broadcastMessage(message *Message) {
	data, err := json.Marshal(message)
	if err != nil {
		h.logger.Error("failed to marshal message", "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	clients, ok := h.subscribers[message.GameID]
	if !ok {
		return
	}
	for client := range clients {
		select {
		case client.send <- data:
		default:
			h.logger.Warn("client buffer full, skipping", "client_id", client.id)
		}
	}
}

func scoresUpdate(gameID int, scores []domain.Score) *Message {
	if scores == nil {
		scores = []domain.Score{}
	}
	return &Message{
		Type:      MessageTypeScoresUpdate,
		GameID:    gameID,
		Scores:    scores,
		Timestamp: time.Now(),
	}
}

// BroadcastScores pushes a scores_update for a game to all its
// subscribers. Used by ingestion paths outside the hub loop.
func (h *Hub) BroadcastScores(gameID int, scores []domain.Score) {
	select {
	case h.broadcast <- scoresUpdate(gameID, scores):
	default:
		h.logger.Warn("broadcast channel full, dropping message", "game_id", gameID)
	}
}

// Register adds a client to the hub
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// Unregister removes a client from the hub
func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// Subscribe sets a client's game subscription, replacing any prior one
func (h *Hub) Subscribe(client *Client, gameID int) {
	h.subscribe <- &subscriptionRequest{client: client, gameID: gameID}
}

// Notify reports that a client submitted a new score for its game
func (h *Hub) Notify(client *Client) {
	h.notify <- client
}

// SubscriberCount returns the number of clients subscribed to a game
func (h *Hub) SubscriberCount(gameID int) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers[gameID])
}

// TotalConnections returns the total number of connected clients
func (h *Hub) TotalConnections() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
