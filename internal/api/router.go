package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/wordbattles/internal/api/apierr"
	"github.com/mcoot/wordbattles/internal/api/handler"
	"github.com/mcoot/wordbattles/internal/api/middleware"
	"github.com/mcoot/wordbattles/internal/api/response"
	"github.com/mcoot/wordbattles/internal/api/sse"
	sharedmw "github.com/mcoot/wordbattles/internal/middleware"
	"github.com/mcoot/wordbattles/internal/services/auth"
	"github.com/mcoot/wordbattles/internal/services/game"
	"github.com/mcoot/wordbattles/internal/storage"
)

// RouterConfig holds configuration for the API router
type RouterConfig struct {
	Logger      *slog.Logger
	AuthService *auth.Service
	GameManager *game.Manager
	Storage     storage.Storage
	HubManager  *sse.HubManager
}

// NewRouter creates a new API router with all routes configured
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()

	playerHandler := handler.NewPlayerHandler(cfg.AuthService, cfg.Storage)
	gameHandler := handler.NewGameHandler(cfg.GameManager, cfg.HubManager, cfg.Logger)
	leaderboardHandler := handler.NewLeaderboardHandler(cfg.Storage)

	authMiddleware := middleware.Auth(cfg.AuthService)

	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(sharedmw.RequestID)
	api.Use(sharedmw.Recovery(cfg.Logger, writeInternalError))
	api.Use(sharedmw.Logging(cfg.Logger))

	api.HandleFunc("/health", healthHandler).Methods(http.MethodGet)
	api.HandleFunc("/leaderboard", leaderboardHandler.Get).Methods(http.MethodGet)

	// Player routes (no auth required for creating players/logging in)
	api.HandleFunc("/players/guest", playerHandler.CreateGuest).Methods(http.MethodPost)
	api.HandleFunc("/players/register", playerHandler.Register).Methods(http.MethodPost)
	api.HandleFunc("/players/login", playerHandler.Login).Methods(http.MethodPost)

	players := api.PathPrefix("/players").Subrouter()
	players.Use(authMiddleware)
	players.HandleFunc("/me", playerHandler.GetMe).Methods(http.MethodGet)
	players.HandleFunc("/me/sessions", playerHandler.Sessions).Methods(http.MethodGet)
	players.HandleFunc("/logout", playerHandler.Logout).Methods(http.MethodPost)

	// Game routes (all require auth and ownership)
	games := api.PathPrefix("/games").Subrouter()
	games.Use(authMiddleware)
	games.HandleFunc("", gameHandler.Create).Methods(http.MethodPost)
	games.HandleFunc("/{id}", gameHandler.Get).Methods(http.MethodGet)
	games.HandleFunc("/{id}", gameHandler.Delete).Methods(http.MethodDelete)
	games.HandleFunc("/{id}/start", gameHandler.Start).Methods(http.MethodPost)
	games.HandleFunc("/{id}/submit", gameHandler.Submit).Methods(http.MethodPost)
	games.HandleFunc("/{id}/input", gameHandler.Input).Methods(http.MethodPost)
	games.HandleFunc("/{id}/shuffle", gameHandler.Shuffle).Methods(http.MethodPost)
	games.HandleFunc("/{id}/end", gameHandler.End).Methods(http.MethodPost)
	games.HandleFunc("/{id}/play-again", gameHandler.PlayAgain).Methods(http.MethodPost)
	games.HandleFunc("/{id}/events", gameHandler.Events).Methods(http.MethodGet)

	return r
}

func writeInternalError(w http.ResponseWriter, _ *http.Request, _ any) {
	apierr.WriteError(w, apierr.NewInternalError())
}

func healthHandler(w http.ResponseWriter, _ *http.Request) {
	response.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
