package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/gamehive/gamehive/internal/domain"
	"github.com/gamehive/gamehive/internal/service"
	"github.com/gamehive/gamehive/internal/websocket"
)

// Handler provides the HTTP API for the platform
type Handler struct {
	service *service.Service
	hub     *websocket.Hub
	logger  *slog.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(svc *service.Service, hub *websocket.Hub, logger *slog.Logger) *Handler {
	return &Handler{
		service: svc,
		hub:     hub,
		logger:  logger,
	}
}

// errorResponse is the body of every failure response
type errorResponse struct {
	Message string              `json:"message"`
	Errors  []domain.FieldError `json:"errors,omitempty"`
}

// Router creates and configures the HTTP router
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	r.Use(corsMiddleware)

	// Health check
	r.Get("/health", h.HealthCheck)

	// WebSocket endpoint for real-time score updates
	r.Get("/ws", h.HandleWebSocket)

	r.Route("/api", func(r chi.Router) {
		r.Route("/games", func(r chi.Router) {
			r.Get("/trending", h.GetTrendingGames)
			r.Post("/", h.CreateGame)

			r.Route("/{gameID}", func(r chi.Router) {
				r.Get("/", h.GetGame)
				r.Patch("/", h.UpdateGame)
				r.Post("/plays", h.IncrementPlays)
				r.Get("/scores", h.GetScores)
			})
		})

		r.Post("/scores", h.CreateScore)

		r.Route("/users", func(r chi.Router) {
			r.Post("/", h.CreateUser)
			r.Get("/external/{externalID}", h.GetUserByExternalAccount)

			r.Route("/{userID}", func(r chi.Router) {
				r.Get("/", h.GetUser)
				r.Patch("/", h.UpdateUser)
				r.Get("/games", h.GetUserGames)
				r.Get("/followers", h.GetFollowers)
				r.Get("/following", h.GetFollowing)
				r.Post("/follow", h.FollowUser)
				r.Delete("/follow", h.UnfollowUser)
			})
		})
	})

	return r
}

// corsMiddleware adds CORS headers
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Accept, Authorization, Content-Type, X-Request-ID")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeMessage writes a {"message": ...} response
func (h *Handler) writeMessage(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, errorResponse{Message: message})
}

// writeError maps a service error to a status code. Validation failures
// carry the field list; anything unexpected is logged and surfaces as a
// generic 500.
func (h *Handler) writeError(w http.ResponseWriter, err error, op string) {
	if ve, ok := domain.AsValidationError(err); ok {
		h.writeJSON(w, http.StatusBadRequest, errorResponse{
			Message: "invalid request data",
			Errors:  ve.Fields,
		})
		return
	}
	if domain.IsNotFound(err) {
		h.writeMessage(w, http.StatusNotFound, err.Error())
		return
	}
	switch err {
	case domain.ErrUsernameTaken, domain.ErrExternalAccountTaken:
		h.writeMessage(w, http.StatusConflict, err.Error())
	case domain.ErrInvalidRequest:
		h.writeMessage(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error("request failed", "op", op, "error", err)
		h.writeMessage(w, http.StatusInternalServerError, domain.ErrInternalError.Error())
	}
}

// pathID parses a positive integer path parameter
func pathID(r *http.Request, name string) (int, error) {
	id, err := strconv.Atoi(chi.URLParam(r, name))
	if err != nil || id <= 0 {
		return 0, domain.ErrInvalidRequest
	}
	return id, nil
}

// HealthCheck returns service health status
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":      "healthy",
		"connections": h.hub.TotalConnections(),
	})
}

// HandleWebSocket handles WebSocket upgrade requests
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	websocket.ServeWs(h.hub, h.logger, w, r)
}

// GetTrendingGames returns the games ranked by play count
func (h *Handler) GetTrendingGames(w http.ResponseWriter, r *http.Request) {
	games, err := h.service.TrendingGames(r.Context(), 0)
	if err != nil {
		h.writeError(w, err, "trending games")
		return
	}
	if games == nil {
		games = []domain.Game{}
	}
	h.writeJSON(w, http.StatusOK, games)
}

// GetGame returns a game by id
func (h *Handler) GetGame(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "gameID")
	if err != nil {
		h.writeError(w, err, "get game")
		return
	}

	game, err := h.service.GetGame(r.Context(), id)
	if err != nil {
		h.writeError(w, err, "get game")
		return
	}
	h.writeJSON(w, http.StatusOK, game)
}

// CreateGame creates a new game
func (h *Handler) CreateGame(w http.ResponseWriter, r *http.Request) {
	var in domain.InsertGame
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		h.writeError(w, domain.ErrInvalidRequest, "create game")
		return
	}

	game, err := h.service.CreateGame(r.Context(), in)
	if err != nil {
		h.writeError(w, err, "create game")
		return
	}
	h.writeJSON(w, http.StatusCreated, game)
}

// UpdateGame applies a partial update to a game
func (h *Handler) UpdateGame(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "gameID")
	if err != nil {
		h.writeError(w, err, "update game")
		return
	}

	var in domain.UpdateGame
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		h.writeError(w, domain.ErrInvalidRequest, "update game")
		return
	}

	game, err := h.service.UpdateGame(r.Context(), id, in)
	if err != nil {
		h.writeError(w, err, "update game")
		return
	}
	h.writeJSON(w, http.StatusOK, game)
}

// IncrementPlays bumps a game's play counter
func (h *Handler) IncrementPlays(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "gameID")
	if err != nil {
		h.writeError(w, err, "increment plays")
		return
	}

	plays, err := h.service.IncrementPlays(r.Context(), id)
	if err != nil {
		h.writeError(w, err, "increment plays")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]int{"plays": plays})
}

// GetScores returns the leaderboard for a game
func (h *Handler) GetScores(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "gameID")
	if err != nil {
		h.writeError(w, err, "get scores")
		return
	}

	limit := 0
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			limit = l
		}
	}

	scores, err := h.service.TopScores(r.Context(), id, limit)
	if err != nil {
		h.writeError(w, err, "get scores")
		return
	}
	if scores == nil {
		scores = []domain.Score{}
	}
	h.writeJSON(w, http.StatusOK, scores)
}

// CreateScore records a new score
func (h *Handler) CreateScore(w http.ResponseWriter, r *http.Request) {
	var in domain.InsertScore
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		h.writeError(w, domain.ErrInvalidRequest, "create score")
		return
	}

	score, err := h.service.CreateScore(r.Context(), in)
	if err != nil {
		h.writeError(w, err, "create score")
		return
	}
	h.writeJSON(w, http.StatusCreated, score)
}

// CreateUser creates a new user
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var in domain.InsertUser
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		h.writeError(w, domain.ErrInvalidRequest, "create user")
		return
	}

	user, err := h.service.CreateUser(r.Context(), in)
	if err != nil {
		h.writeError(w, err, "create user")
		return
	}
	h.writeJSON(w, http.StatusCreated, user)
}

// GetUser returns a user by id
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "userID")
	if err != nil {
		h.writeError(w, err, "get user")
		return
	}

	user, err := h.service.GetUser(r.Context(), id)
	if err != nil {
		h.writeError(w, err, "get user")
		return
	}
	h.writeJSON(w, http.StatusOK, user)
}

// GetUserByExternalAccount returns the user linked to an external account id
func (h *Handler) GetUserByExternalAccount(w http.ResponseWriter, r *http.Request) {
	externalID := chi.URLParam(r, "externalID")
	if externalID == "" {
		h.writeError(w, domain.ErrInvalidRequest, "get user by external account")
		return
	}

	user, err := h.service.GetUserByExternalID(r.Context(), externalID)
	if err != nil {
		h.writeError(w, err, "get user by external account")
		return
	}
	h.writeJSON(w, http.StatusOK, user)
}

// UpdateUser applies a partial update to a user
func (h *Handler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "userID")
	if err != nil {
		h.writeError(w, err, "update user")
		return
	}

	var in domain.UpdateUser
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		h.writeError(w, domain.ErrInvalidRequest, "update user")
		return
	}

	user, err := h.service.UpdateUser(r.Context(), id, in)
	if err != nil {
		h.writeError(w, err, "update user")
		return
	}
	h.writeJSON(w, http.StatusOK, user)
}

// GetUserGames returns the games created by a user
func (h *Handler) GetUserGames(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "userID")
	if err != nil {
		h.writeError(w, err, "get user games")
		return
	}

	games, err := h.service.GamesByAuthor(r.Context(), id)
	if err != nil {
		h.writeError(w, err, "get user games")
		return
	}
	if games == nil {
		games = []domain.Game{}
	}
	h.writeJSON(w, http.StatusOK, games)
}

// GetFollowers returns the users following a user
func (h *Handler) GetFollowers(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "userID")
	if err != nil {
		h.writeError(w, err, "get followers")
		return
	}

	users, err := h.service.Followers(r.Context(), id)
	if err != nil {
		h.writeError(w, err, "get followers")
		return
	}
	if users == nil {
		users = []domain.User{}
	}
	h.writeJSON(w, http.StatusOK, users)
}

// GetFollowing returns the users a user follows
func (h *Handler) GetFollowing(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "userID")
	if err != nil {
		h.writeError(w, err, "get following")
		return
	}

	users, err := h.service.Following(r.Context(), id)
	if err != nil {
		h.writeError(w, err, "get following")
		return
	}
	if users == nil {
		users = []domain.User{}
	}
	h.writeJSON(w, http.StatusOK, users)
}

// FollowUser records a follow relationship
func (h *Handler) FollowUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "userID")
	if err != nil {
		h.writeError(w, err, "follow user")
		return
	}

	var req domain.FollowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.FollowerID <= 0 {
		h.writeError(w, domain.ErrInvalidRequest, "follow user")
		return
	}

	if err := h.service.FollowUser(r.Context(), req.FollowerID, id); err != nil {
		h.writeError(w, err, "follow user")
		return
	}
	h.writeMessage(w, http.StatusCreated, "successfully followed user")
}

// UnfollowUser removes a follow relationship
func (h *Handler) UnfollowUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "userID")
	if err != nil {
		h.writeError(w, err, "unfollow user")
		return
	}

	var req domain.FollowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.FollowerID <= 0 {
		h.writeError(w, domain.ErrInvalidRequest, "unfollow user")
		return
	}

	if err := h.service.UnfollowUser(r.Context(), req.FollowerID, id); err != nil {
		h.writeError(w, err, "unfollow user")
		return
	}
	h.writeMessage(w, http.StatusOK, "successfully unfollowed user")
}
