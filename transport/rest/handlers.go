package rest

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/rocketscienceinc/turnarbiter/internal/entity"
)

type Handlers interface {
	PingHandler(w http.ResponseWriter, _ *http.Request)
	LeaderboardHandler(w http.ResponseWriter, r *http.Request)
}

type leaderboardRepo interface {
	Top(ctx context.Context, limit int) ([]entity.Entry, error)
}

type handlers struct {
	logger      *slog.Logger
	leaderboard leaderboardRepo
	limit       int
}

// NewHandlers - limit caps how many entries /leaderboard returns.
func NewHandlers(logger *slog.Logger, leaderboard leaderboardRepo, limit int) Handlers {
	return &handlers{
		logger:      logger.With("component", "rest"),
		leaderboard: leaderboard,
		limit:       limit,
	}
}

func (that *handlers) PingHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("pong")); err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
}

// LeaderboardHandler - GET /leaderboard?limit=N, best scores first.
func (that *handlers) LeaderboardHandler(w http.ResponseWriter, r *http.Request) {
	log := that.logger.With("method", "LeaderboardHandler")

	limit := that.limit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}

		limit = min(n, that.limit)
	}

	top, err := that.leaderboard.Top(r.Context(), limit)
	if err != nil {
		log.Error("failed to get leaderboard", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)

		return
	}

	if top == nil {
		top = []entity.Entry{}
	}

	w.Header().Set("Content-Type", "application/json")
	if err = json.NewEncoder(w).Encode(top); err != nil {
		log.Error("failed to write leaderboard", "error", err)
	}
}
