package api_test

import (
	"bufio"
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/wordbattles/internal/api"
	"github.com/mcoot/wordbattles/internal/api/apierr"
	"github.com/mcoot/wordbattles/internal/api/response"
	"github.com/mcoot/wordbattles/internal/factory"
	"github.com/mcoot/wordbattles/internal/model"
	"github.com/mcoot/wordbattles/internal/testutil"
)

// testServer wires the router to a TestApp with mocked clock and randomness
type testServer struct {
	handler http.Handler
	app     *factory.TestApp
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	app := factory.NewTestApp()
	require.NoError(t, app.LoadTestDictionary())
	t.Cleanup(func() { _ = app.Close() })

	router := api.NewRouter(api.RouterConfig{
		Logger:      testutil.NopLogger(),
		AuthService: app.AuthService,
		GameManager: app.GameManager,
		Storage:     app.Storage,
		HubManager:  app.HubManager,
	})

	return &testServer{handler: router, app: app}
}

func (ts *testServer) request(method, path string, body any, token string) *httptest.ResponseRecorder {
	var reqBody *bytes.Buffer
	if body != nil {
		b, _ := json.Marshal(body)
		reqBody = bytes.NewBuffer(b)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rr := httptest.NewRecorder()
	ts.handler.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
	return v
}

func errorCode(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	return decode[apierr.ErrorResponse](t, rr).Error.Code
}

func createGuestPlayer(t *testing.T, ts *testServer, name string) string {
	t.Helper()
	rr := ts.request(http.MethodPost, "/api/v1/players/guest", map[string]string{"display_name": name}, "")
	require.Equal(t, http.StatusCreated, rr.Code)
	return decode[response.AuthResponse](t, rr).SessionToken
}

// createGame creates a game whose first rack is "catdogs"
func createGame(t *testing.T, ts *testServer, token string, body any) response.Game {
	t.Helper()
	ts.app.QueueRack("catdogs")
	rr := ts.request(http.MethodPost, "/api/v1/games", body, token)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	return decode[response.Game](t, rr)
}

func TestHealthCheck(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodGet, "/api/v1/health", nil, "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "ok")
	assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))
}

func TestRequestIDIsEchoed(t *testing.T) {
	ts := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	req.Header.Set("X-Request-ID", "req-123")
	rr := httptest.NewRecorder()
	ts.handler.ServeHTTP(rr, req)

	assert.Equal(t, "req-123", rr.Header().Get("X-Request-ID"))
}

func TestCreateGuestPlayer(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodPost, "/api/v1/players/guest", map[string]string{"display_name": "Alice"}, "")
	assert.Equal(t, http.StatusCreated, rr.Code)

	resp := decode[response.AuthResponse](t, rr)
	assert.Equal(t, "Alice", resp.Player.DisplayName)
	assert.True(t, resp.Player.IsGuest)
	assert.NotEmpty(t, resp.SessionToken)
}

func TestCreateGuestWithoutBody(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodPost, "/api/v1/players/guest", nil, "")
	require.Equal(t, http.StatusCreated, rr.Code)
	assert.Equal(t, "Guest", decode[response.AuthResponse](t, rr).Player.DisplayName)
}

func TestRegisterAndLogin(t *testing.T) {
	ts := newTestServer(t)

	registerBody := map[string]string{
		"username":     "alice",
		"password":     "secret123",
		"display_name": "Alice",
	}
	rr := ts.request(http.MethodPost, "/api/v1/players/register", registerBody, "")
	require.Equal(t, http.StatusCreated, rr.Code)
	registered := decode[response.AuthResponse](t, rr)
	assert.False(t, registered.Player.IsGuest)

	rr = ts.request(http.MethodPost, "/api/v1/players/register", registerBody, "")
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, apierr.CodeUsernameExists, errorCode(t, rr))

	rr = ts.request(http.MethodPost, "/api/v1/players/login", map[string]string{"username": "alice", "password": "secret123"}, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, registered.Player.ID, decode[response.AuthResponse](t, rr).Player.ID)

	rr = ts.request(http.MethodPost, "/api/v1/players/login", map[string]string{"username": "alice", "password": "wrong-password"}, "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, apierr.CodeInvalidCredentials, errorCode(t, rr))
}

func TestRegisterValidation(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodPost, "/api/v1/players/register", map[string]string{"username": "alice", "password": "short"}, "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, apierr.CodeWeakPassword, errorCode(t, rr))

	rr = ts.request(http.MethodPost, "/api/v1/players/register", map[string]string{"username": "a b", "password": "password123"}, "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, apierr.CodeInvalidUsername, errorCode(t, rr))

	rr = ts.request(http.MethodPost, "/api/v1/players/register", map[string]string{"password": "password123"}, "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, apierr.CodeInvalidRequest, errorCode(t, rr))
}

func TestGetMeAndLogout(t *testing.T) {
	ts := newTestServer(t)
	token := createGuestPlayer(t, ts, "Bob")

	rr := ts.request(http.MethodGet, "/api/v1/players/me", nil, token)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "Bob", decode[response.Player](t, rr).DisplayName)

	rr = ts.request(http.MethodPost, "/api/v1/players/logout", nil, token)
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = ts.request(http.MethodGet, "/api/v1/players/me", nil, token)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestUnauthorizedWithoutToken(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodGet, "/api/v1/players/me", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = ts.request(http.MethodPost, "/api/v1/games", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = ts.request(http.MethodPost, "/api/v1/games", nil, "sess_bogus")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestCreateGame(t *testing.T) {
	ts := newTestServer(t)
	token := createGuestPlayer(t, ts, "Alice")

	g := createGame(t, ts, token, nil)

	assert.NotEmpty(t, g.ID)
	assert.Equal(t, "idle", g.Session.Status)
	assert.Equal(t, []string{"c", "a", "t", "d", "o", "g", "s"}, g.Session.Rack)
	assert.Equal(t, 60, g.Session.TimeLeft)
	assert.Equal(t, response.Options{Duration: 60, RackSize: 7, MinLength: 3}, g.Session.Options)
	assert.Nil(t, g.Session.Opponent)
	assert.Empty(t, g.Session.Words)
	assert.Nil(t, g.Session.StartedAt)
}

func TestCreateGameWithOptions(t *testing.T) {
	ts := newTestServer(t)
	token := createGuestPlayer(t, ts, "Alice")

	g := createGame(t, ts, token, map[string]any{"duration": 30, "min_length": 4, "ai_enabled": true})
	assert.Equal(t, 30, g.Session.TimeLeft)
	assert.Equal(t, 4, g.Session.Options.MinLength)
	require.NotNil(t, g.Session.Opponent)
	assert.Zero(t, g.Session.Opponent.Score)

	rr := ts.request(http.MethodPost, "/api/v1/games", map[string]any{"rack_size": 40}, token)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, apierr.CodeInvalidOptions, errorCode(t, rr))

	rr = ts.request(http.MethodPost, "/api/v1/games", map[string]any{"duration": -5}, token)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestGameOwnership(t *testing.T) {
	ts := newTestServer(t)
	alice := createGuestPlayer(t, ts, "Alice")
	bob := createGuestPlayer(t, ts, "Bob")
	g := createGame(t, ts, alice, nil)

	rr := ts.request(http.MethodGet, "/api/v1/games/"+g.ID, nil, bob)
	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Equal(t, apierr.CodeNotGameOwner, errorCode(t, rr))

	rr = ts.request(http.MethodPost, "/api/v1/games/"+g.ID+"/start", nil, bob)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = ts.request(http.MethodGet, "/api/v1/games/NOPE", nil, alice)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, apierr.CodeGameNotFound, errorCode(t, rr))
}

func TestSubmitBeforeStartIsRejectedOutcome(t *testing.T) {
	ts := newTestServer(t)
	token := createGuestPlayer(t, ts, "Alice")
	g := createGame(t, ts, token, nil)

	rr := ts.request(http.MethodPost, "/api/v1/games/"+g.ID+"/submit", map[string]string{"word": "cat"}, token)
	require.Equal(t, http.StatusOK, rr.Code)

	resp := decode[response.SubmitResponse](t, rr)
	assert.False(t, resp.Outcome.Accepted)
	assert.Equal(t, string(model.RejectNotRunning), resp.Outcome.Reason)
	assert.Zero(t, resp.Session.Score)
}

func TestPlayingASession(t *testing.T) {
	ts := newTestServer(t)
	token := createGuestPlayer(t, ts, "Alice")
	g := createGame(t, ts, token, nil)
	base := "/api/v1/games/" + g.ID

	rr := ts.request(http.MethodPost, base+"/start", nil, token)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "running", decode[response.Game](t, rr).Session.Status)

	rr = ts.request(http.MethodPost, base+"/start", nil, token)
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, apierr.CodeAlreadyRunning, errorCode(t, rr))

	rr = ts.request(http.MethodPost, base+"/submit", map[string]string{"word": "CAT"}, token)
	require.Equal(t, http.StatusOK, rr.Code)
	resp := decode[response.SubmitResponse](t, rr)
	assert.True(t, resp.Outcome.Accepted)
	assert.Equal(t, "cat", resp.Outcome.Word)
	assert.Equal(t, 5, resp.Outcome.Points)
	assert.Equal(t, "+5 for CAT", resp.Outcome.Message)
	assert.Equal(t, 5, resp.Session.Score)

	rr = ts.request(http.MethodPost, base+"/submit", map[string]string{"word": "cat"}, token)
	resp = decode[response.SubmitResponse](t, rr)
	assert.Equal(t, string(model.RejectAlreadyUsed), resp.Outcome.Reason)

	rr = ts.request(http.MethodPost, base+"/submit", map[string]string{"word": "cog"}, token)
	resp = decode[response.SubmitResponse](t, rr)
	assert.True(t, resp.Outcome.Accepted)

	rr = ts.request(http.MethodPost, base+"/submit", map[string]string{"word": "xyz"}, token)
	resp = decode[response.SubmitResponse](t, rr)
	assert.Equal(t, string(model.RejectNotFormable), resp.Outcome.Reason)
	assert.Equal(t, 5+resp.Session.Words[0].Points, resp.Session.Score)
	assert.Equal(t, "cog", resp.Session.Words[0].Text)
}

func TestEditingPendingInput(t *testing.T) {
	ts := newTestServer(t)
	token := createGuestPlayer(t, ts, "Alice")
	g := createGame(t, ts, token, nil)
	base := "/api/v1/games/" + g.ID

	require.Equal(t, http.StatusOK, ts.request(http.MethodPost, base+"/start", nil, token).Code)

	for _, l := range []string{"d", "O", "g", "x"} {
		rr := ts.request(http.MethodPost, base+"/input", map[string]string{"action": "add", "letter": l}, token)
		require.Equal(t, http.StatusOK, rr.Code)
	}
	rr := ts.request(http.MethodPost, base+"/input", map[string]string{"action": "backspace"}, token)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "dog", decode[response.Game](t, rr).Session.PendingInput)

	rr = ts.request(http.MethodPost, base+"/input", map[string]string{"action": "add", "letter": "7"}, token)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, apierr.CodeInvalidLetter, errorCode(t, rr))

	rr = ts.request(http.MethodPost, base+"/input", map[string]string{"action": "add", "letter": "ab"}, token)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = ts.request(http.MethodPost, base+"/input", map[string]string{"action": "jump"}, token)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	// An empty submit sends the pending input
	rr = ts.request(http.MethodPost, base+"/submit", nil, token)
	require.Equal(t, http.StatusOK, rr.Code)
	resp := decode[response.SubmitResponse](t, rr)
	assert.True(t, resp.Outcome.Accepted)
	assert.Equal(t, "dog", resp.Outcome.Word)
	assert.Empty(t, resp.Session.PendingInput)

	rr = ts.request(http.MethodPost, base+"/input", map[string]string{"action": "add", "letter": "c"}, token)
	require.Equal(t, http.StatusOK, rr.Code)
	rr = ts.request(http.MethodPost, base+"/input", map[string]string{"action": "clear"}, token)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, decode[response.Game](t, rr).Session.PendingInput)
}

func TestShuffleRequiresRunningSession(t *testing.T) {
	ts := newTestServer(t)
	token := createGuestPlayer(t, ts, "Alice")
	g := createGame(t, ts, token, nil)
	base := "/api/v1/games/" + g.ID

	rr := ts.request(http.MethodPost, base+"/shuffle", nil, token)
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, apierr.CodeNotRunning, errorCode(t, rr))

	require.Equal(t, http.StatusOK, ts.request(http.MethodPost, base+"/start", nil, token).Code)
	ts.app.QueueRack("goatsed")
	rr = ts.request(http.MethodPost, base+"/shuffle", nil, token)
	require.Equal(t, http.StatusOK, rr.Code)

	session := decode[response.Game](t, rr).Session
	assert.Equal(t, []string{"g", "o", "a", "t", "s", "e", "d"}, session.Rack)
	assert.Equal(t, "New letters!", session.Message)
}

func TestEndRecordsSessionAndLeaderboard(t *testing.T) {
	ts := newTestServer(t)
	token := createGuestPlayer(t, ts, "Alice")
	g := createGame(t, ts, token, nil)
	base := "/api/v1/games/" + g.ID

	require.Equal(t, http.StatusOK, ts.request(http.MethodPost, base+"/start", nil, token).Code)
	ts.request(http.MethodPost, base+"/submit", map[string]string{"word": "cats"}, token)

	rr := ts.request(http.MethodPost, base+"/end", nil, token)
	require.Equal(t, http.StatusOK, rr.Code)
	session := decode[response.Game](t, rr).Session
	assert.Equal(t, "ended", session.Status)
	assert.Equal(t, "manual", session.EndReason)
	assert.Equal(t, "Game over", session.Message)

	rr = ts.request(http.MethodPost, base+"/end", nil, token)
	assert.Equal(t, http.StatusConflict, rr.Code)

	require.Eventually(t, func() bool {
		rr := ts.request(http.MethodGet, "/api/v1/leaderboard", nil, "")
		board := decode[response.Leaderboard](t, rr)
		return len(board.Entries) == 1 && board.Entries[0].TotalScore == 6
	}, time.Second, 5*time.Millisecond)

	rr = ts.request(http.MethodGet, "/api/v1/leaderboard?limit=5", nil, "")
	entry := decode[response.Leaderboard](t, rr).Entries[0]
	assert.Equal(t, 1, entry.Rank)
	assert.Equal(t, "Alice", entry.DisplayName)
	assert.Equal(t, 1, entry.GamesPlayed)

	rr = ts.request(http.MethodGet, "/api/v1/players/me/sessions", nil, token)
	require.Equal(t, http.StatusOK, rr.Code)
	history := decode[response.SessionHistory](t, rr)
	require.Len(t, history.Sessions, 1)
	assert.Equal(t, 6, history.Sessions[0].Score)
	assert.Equal(t, "catdogs", history.Sessions[0].Rack)
	assert.Equal(t, model.EndReasonManual, history.Sessions[0].EndReason)
}

func TestTimerEndsSession(t *testing.T) {
	ts := newTestServer(t)
	token := createGuestPlayer(t, ts, "Alice")
	g := createGame(t, ts, token, map[string]int{"duration": 2})
	base := "/api/v1/games/" + g.ID

	require.Equal(t, http.StatusOK, ts.request(http.MethodPost, base+"/start", nil, token).Code)
	require.True(t, ts.app.FireTick())
	require.True(t, ts.app.FireTick())

	require.Eventually(t, func() bool {
		rr := ts.request(http.MethodGet, base, nil, token)
		return decode[response.Game](t, rr).Session.Status == "ended"
	}, time.Second, 5*time.Millisecond)

	rr := ts.request(http.MethodGet, base, nil, token)
	session := decode[response.Game](t, rr).Session
	assert.Zero(t, session.TimeLeft)
	assert.Equal(t, "timeout", session.EndReason)
	assert.Equal(t, "Time's up!", session.Message)
}

func TestPlayAgain(t *testing.T) {
	ts := newTestServer(t)
	token := createGuestPlayer(t, ts, "Alice")
	g := createGame(t, ts, token, nil)
	base := "/api/v1/games/" + g.ID

	require.Equal(t, http.StatusOK, ts.request(http.MethodPost, base+"/start", nil, token).Code)
	rr := ts.request(http.MethodPost, base+"/play-again", nil, token)
	assert.Equal(t, http.StatusConflict, rr.Code)

	ts.request(http.MethodPost, base+"/submit", map[string]string{"word": "cat"}, token)
	require.Equal(t, http.StatusOK, ts.request(http.MethodPost, base+"/end", nil, token).Code)

	ts.app.QueueRack("catdogs")
	rr = ts.request(http.MethodPost, base+"/play-again", nil, token)
	require.Equal(t, http.StatusOK, rr.Code)
	session := decode[response.Game](t, rr).Session
	assert.Equal(t, "running", session.Status)
	assert.Zero(t, session.Score)
	assert.Empty(t, session.Words)
	assert.NotEqual(t, g.Session.ID, session.ID)
}

func TestDeleteGame(t *testing.T) {
	ts := newTestServer(t)
	token := createGuestPlayer(t, ts, "Alice")
	g := createGame(t, ts, token, nil)

	rr := ts.request(http.MethodDelete, "/api/v1/games/"+g.ID, nil, token)
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = ts.request(http.MethodGet, "/api/v1/games/"+g.ID, nil, token)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Zero(t, ts.app.GameManager.Count())
}

func TestLeaderboardLimitValidation(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodGet, "/api/v1/leaderboard?limit=abc", nil, "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = ts.request(http.MethodGet, "/api/v1/leaderboard", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, decode[response.Leaderboard](t, rr).Entries)
}

func TestEventStream(t *testing.T) {
	ts := newTestServer(t)
	token := createGuestPlayer(t, ts, "Alice")
	g := createGame(t, ts, token, nil)

	srv := httptest.NewServer(ts.handler)
	defer srv.Close()

	// EventSource clients pass the token as a query parameter
	resp, err := http.Get(srv.URL + "/api/v1/games/" + g.ID + "/events?token=" + token)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	next := func() (string, string) {
		var name, data string
		for {
			line, err := reader.ReadString('\n')
			require.NoError(t, err)
			line = strings.TrimRight(line, "\n")
			switch {
			case strings.HasPrefix(line, "event: "):
				name = strings.TrimPrefix(line, "event: ")
			case strings.HasPrefix(line, "data: "):
				data = strings.TrimPrefix(line, "data: ")
			case line == "" && name != "":
				return name, data
			}
		}
	}

	name, _ := next()
	assert.Equal(t, "connected", name)
	name, data := next()
	assert.Equal(t, "snapshot", name)
	assert.Contains(t, data, `"status":"idle"`)

	require.Equal(t, http.StatusOK, ts.request(http.MethodPost, "/api/v1/games/"+g.ID+"/start", nil, token).Code)
	name, data = next()
	assert.Equal(t, string(model.EventSessionStarted), name)

	var ev response.Event
	require.NoError(t, json.Unmarshal([]byte(data), &ev))
	assert.Equal(t, "running", ev.Session.Status)

	ts.request(http.MethodPost, "/api/v1/games/"+g.ID+"/submit", map[string]string{"word": "dog"}, token)
	name, data = next()
	assert.Equal(t, string(model.EventWordAccepted), name)
	assert.Contains(t, data, `"word":"dog"`)

	// Tearing the game down closes the stream
	require.Equal(t, http.StatusNoContent, ts.request(http.MethodDelete, "/api/v1/games/"+g.ID, nil, token).Code)
	require.Eventually(t, func() bool { return ts.app.HubManager.Count() == 0 }, time.Second, 5*time.Millisecond)
}
