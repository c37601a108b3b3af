package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/andersCTO/monstrens-natt/internal/middleware"
	"github.com/andersCTO/monstrens-natt/internal/services/session"
)

// RouterConfig holds configuration for the HTTP router
type RouterConfig struct {
	Logger            *slog.Logger
	SessionController session.ControllerInterface
	WebsocketHandler  http.Handler
}

// NewRouter creates the HTTP router. Gameplay runs over the websocket at
// /ws; the REST surface is a small read-only view for health checks and
// session discovery.
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()

	loggingMiddleware := middleware.Logging(cfg.Logger)
	recoveryMiddleware := middleware.Recovery(cfg.Logger)

	r.Handle("/ws", recoveryMiddleware(cfg.WebsocketHandler))

	api := r.PathPrefix("/api").Subrouter()
	api.Use(recoveryMiddleware)
	api.Use(loggingMiddleware)
	api.HandleFunc("/games", listGamesHandler(cfg)).Methods(http.MethodGet)

	r.HandleFunc("/healthz", healthHandler).Methods(http.MethodGet)

	return r
}

func listGamesHandler(cfg RouterConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		summaries, err := cfg.SessionController.ListSummaries(r.Context())
		if err != nil {
			cfg.Logger.Error("failed to list sessions", slog.Any("error", err))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"error":"internal server error"}`))
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]any{"games": summaries})
	}
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
