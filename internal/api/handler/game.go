package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"unicode/utf8"

	"github.com/gorilla/mux"

	"github.com/mcoot/wordbattles/internal/api/middleware"
	"github.com/mcoot/wordbattles/internal/api/request"
	"github.com/mcoot/wordbattles/internal/api/response"
	"github.com/mcoot/wordbattles/internal/api/sse"
	"github.com/mcoot/wordbattles/internal/model"
	"github.com/mcoot/wordbattles/internal/services/game"
)

// GameHandler handles game-related endpoints
type GameHandler struct {
	manager    *game.Manager
	hubManager *sse.HubManager
	logger     *slog.Logger
}

// NewGameHandler creates a new game handler
func NewGameHandler(manager *game.Manager, hubManager *sse.HubManager, logger *slog.Logger) *GameHandler {
	return &GameHandler{
		manager:    manager,
		hubManager: hubManager,
		logger:     logger,
	}
}

func gameResponse(e *game.Engine, s model.GameSession) response.Game {
	return response.Game{
		ID:      string(e.ID()),
		OwnerID: string(e.PlayerID()),
		Session: response.SessionFromModel(s),
	}
}

// ownedEngine resolves {id} to an engine the caller owns, writing the error if not
func (h *GameHandler) ownedEngine(w http.ResponseWriter, r *http.Request) (*game.Engine, bool) {
	player := middleware.MustGetPlayer(r.Context())
	id := model.GameID(mux.Vars(r)["id"])

	engine, err := h.manager.GetOwned(id, player.ID)
	if err != nil {
		WriteError(w, err)
		return nil, false
	}
	return engine, true
}

// Create handles POST /api/v1/games
func (h *GameHandler) Create(w http.ResponseWriter, r *http.Request) {
	player := middleware.MustGetPlayer(r.Context())

	var req request.CreateGameRequest
	if err := decodeBody(r, &req, true); err != nil {
		WriteError(w, err)
		return
	}

	engine, err := h.manager.Create(r.Context(), player.ID, model.GameOptions{
		DurationSeconds: req.Duration,
		RackSize:        req.RackSize,
		MinLength:       req.MinLength,
		AIEnabled:       req.AIEnabled,
	})
	if err != nil {
		WriteError(w, err)
		return
	}

	response.Created(w, gameResponse(engine, engine.Snapshot()))
}

// Get handles GET /api/v1/games/{id}
func (h *GameHandler) Get(w http.ResponseWriter, r *http.Request) {
	engine, ok := h.ownedEngine(w, r)
	if !ok {
		return
	}
	response.JSON(w, http.StatusOK, gameResponse(engine, engine.Snapshot()))
}

// Delete handles DELETE /api/v1/games/{id}
func (h *GameHandler) Delete(w http.ResponseWriter, r *http.Request) {
	engine, ok := h.ownedEngine(w, r)
	if !ok {
		return
	}
	if err := h.manager.Remove(engine.ID()); err != nil {
		WriteError(w, err)
		return
	}
	response.NoContent(w)
}

// Start handles POST /api/v1/games/{id}/start
func (h *GameHandler) Start(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, (*game.Engine).Start)
}

// Shuffle handles POST /api/v1/games/{id}/shuffle
func (h *GameHandler) Shuffle(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, (*game.Engine).Shuffle)
}

// End handles POST /api/v1/games/{id}/end
func (h *GameHandler) End(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, (*game.Engine).End)
}

// PlayAgain handles POST /api/v1/games/{id}/play-again
func (h *GameHandler) PlayAgain(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, (*game.Engine).PlayAgain)
}

func (h *GameHandler) transition(w http.ResponseWriter, r *http.Request, fn func(*game.Engine) (model.GameSession, error)) {
	engine, ok := h.ownedEngine(w, r)
	if !ok {
		return
	}
	session, err := fn(engine)
	if err != nil {
		WriteError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, gameResponse(engine, session))
}

// Submit handles POST /api/v1/games/{id}/submit. Rejected words are a
// normal outcome, not an error.
func (h *GameHandler) Submit(w http.ResponseWriter, r *http.Request) {
	engine, ok := h.ownedEngine(w, r)
	if !ok {
		return
	}

	var req request.SubmitRequest
	if err := decodeBody(r, &req, true); err != nil {
		WriteError(w, err)
		return
	}

	var (
		outcome model.Outcome
		session model.GameSession
	)
	if req.Word == "" {
		outcome, session = engine.SubmitPending()
	} else {
		outcome, session = engine.Submit(req.Word)
	}

	response.JSON(w, http.StatusOK, response.SubmitResponse{
		Outcome: response.OutcomeFromModel(outcome),
		Session: response.SessionFromModel(session),
	})
}

// Input handles POST /api/v1/games/{id}/input
func (h *GameHandler) Input(w http.ResponseWriter, r *http.Request) {
	engine, ok := h.ownedEngine(w, r)
	if !ok {
		return
	}

	var req request.InputRequest
	if err := decodeBody(r, &req, false); err != nil {
		WriteError(w, err)
		return
	}

	var (
		session model.GameSession
		err     error
	)
	switch req.Action {
	case request.InputAdd:
		if utf8.RuneCountInString(req.Letter) != 1 {
			WriteError(w, NewInvalidRequestError("letter must be a single character"))
			return
		}
		letter, _ := utf8.DecodeRuneInString(req.Letter)
		session, err = engine.AddLetter(letter)
	case request.InputBackspace:
		session, err = engine.Backspace()
	case request.InputClear:
		session, err = engine.ClearInput()
	default:
		WriteError(w, NewInvalidRequestError("action must be add, backspace or clear"))
		return
	}
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, gameResponse(engine, session))
}

// Events handles GET /api/v1/games/{id}/events as a server-sent event stream
func (h *GameHandler) Events(w http.ResponseWriter, r *http.Request) {
	engine, ok := h.ownedEngine(w, r)
	if !ok {
		return
	}
	player := middleware.MustGetPlayer(r.Context())

	hub := h.hubManager.Attach(engine)
	initial, err := json.Marshal(gameResponse(engine, engine.Snapshot()))
	if err != nil {
		h.logger.Error("failed to encode snapshot", slog.String("error", err.Error()))
		initial = nil
	}

	sse.ServeSSE(w, r, hub, player.ID, initial)
}
