package cli

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/wordbattles/internal/api"
	"github.com/mcoot/wordbattles/internal/api/response"
	"github.com/mcoot/wordbattles/internal/factory"
	"github.com/mcoot/wordbattles/internal/model"
	"github.com/mcoot/wordbattles/internal/testutil"
)

// cliEnv runs commands against a real HTTP server backed by a TestApp
type cliEnv struct {
	app       *factory.TestApp
	server    *httptest.Server
	tokenFile string
}

func newCLIEnv(t *testing.T) *cliEnv {
	t.Helper()
	t.Setenv("WBGAME_TOKEN", "")

	app := factory.NewTestApp()
	require.NoError(t, app.LoadTestDictionary())

	router := api.NewRouter(api.RouterConfig{
		Logger:      testutil.NopLogger(),
		AuthService: app.AuthService,
		GameManager: app.GameManager,
		Storage:     app.Storage,
		HubManager:  app.HubManager,
	})
	server := httptest.NewServer(router)
	t.Cleanup(func() {
		_ = app.Close()
		server.Close()
	})

	return &cliEnv{
		app:       app,
		server:    server,
		tokenFile: filepath.Join(t.TempDir(), "token"),
	}
}

func (e *cliEnv) run(args ...string) (string, error) {
	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(append([]string{"--server", e.server.URL, "--token-file", e.tokenFile}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func (e *cliEnv) mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := e.run(args...)
	require.NoError(t, err, out)
	return out
}

func (e *cliEnv) createGame(t *testing.T) string {
	t.Helper()
	e.app.QueueRack("catdogs")
	var g response.Game
	require.NoError(t, json.Unmarshal([]byte(e.mustRun(t, "-o", "json", "game", "create")), &g))
	return g.ID
}

func TestHealth(t *testing.T) {
	env := newCLIEnv(t)

	out := env.mustRun(t, "health")

	assert.True(t, strings.HasPrefix(out, "Status: ok ("), out)
}

func TestUnknownOutputFormat(t *testing.T) {
	env := newCLIEnv(t)

	_, err := env.run("-o", "xml", "health")

	assert.ErrorContains(t, err, "unknown output format")
}

func TestInvalidServerURL(t *testing.T) {
	env := newCLIEnv(t)

	_, err := env.run("--server", "localhost:8080", "health")

	assert.ErrorContains(t, err, "server URL")
}

func TestGuestSavesToken(t *testing.T) {
	env := newCLIEnv(t)

	out := env.mustRun(t, "player", "guest", "--name", "Ann")
	assert.Contains(t, out, "Player: Ann")
	assert.Contains(t, out, "Guest: yes")

	token, err := os.ReadFile(env.tokenFile)
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	out = env.mustRun(t, "player", "me")
	assert.Contains(t, out, "Player: Ann")
}

func TestGuestJSONOutput(t *testing.T) {
	env := newCLIEnv(t)

	out := env.mustRun(t, "-o", "json", "player", "guest")

	var result response.AuthResponse
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, "Guest", result.Player.DisplayName)
	assert.True(t, result.Player.IsGuest)
	assert.NotEmpty(t, result.SessionToken)
}

func TestYAMLOutputUsesAPIFieldNames(t *testing.T) {
	env := newCLIEnv(t)
	env.mustRun(t, "player", "guest", "--name", "Ann")

	out := env.mustRun(t, "-o", "yaml", "player", "me")

	assert.Contains(t, out, "display_name: Ann")
	assert.Contains(t, out, "is_guest: true")
	assert.NotContains(t, out, "{")
}

func TestRegisterAndLogin(t *testing.T) {
	env := newCLIEnv(t)

	out := env.mustRun(t, "player", "register", "--user", "alice", "--pass", "password123")
	assert.Contains(t, out, "Player: alice")
	assert.Contains(t, out, "Guest: no")

	env.mustRun(t, "player", "logout")
	_, err := os.Stat(env.tokenFile)
	assert.True(t, os.IsNotExist(err))

	out = env.mustRun(t, "player", "login", "--user", "alice", "--pass", "password123")
	assert.Contains(t, out, "Player: alice")
}

func TestAPIErrorsSurface(t *testing.T) {
	env := newCLIEnv(t)
	env.mustRun(t, "player", "guest")

	_, err := env.run("game", "get", "missing")

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
	assert.Equal(t, "GAME_NOT_FOUND", apiErr.Code)
}

func TestUnauthenticated(t *testing.T) {
	env := newCLIEnv(t)

	_, err := env.run("player", "me")

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
}

func TestGameFlow(t *testing.T) {
	env := newCLIEnv(t)
	env.mustRun(t, "player", "guest", "--name", "Ann")
	id := env.createGame(t)

	out := env.mustRun(t, "game", "get", id)
	assert.Contains(t, out, "Status: idle")
	assert.Contains(t, out, "Rack: C A T D O G S")

	out = env.mustRun(t, "game", "start", id)
	assert.Contains(t, out, "Status: running")

	out = env.mustRun(t, "game", "submit", id, "cat")
	assert.Contains(t, out, "Accepted: +5 for CAT")
	assert.Contains(t, out, "Score: 5")

	out = env.mustRun(t, "game", "submit", id, "cat")
	assert.Contains(t, out, "Rejected: Word already used")

	env.mustRun(t, "game", "input", id, "d")
	env.mustRun(t, "game", "input", id, "o")
	out = env.mustRun(t, "game", "input", id, "g")
	assert.Contains(t, out, "Input: DOG")

	out = env.mustRun(t, "game", "submit", id)
	assert.Contains(t, out, "Accepted:")

	out = env.mustRun(t, "game", "end", id)
	assert.Contains(t, out, "Status: ended")

	assert.Eventually(t, func() bool {
		out, err := env.run("leaderboard")
		return err == nil && strings.Contains(out, "Ann")
	}, time.Second, 10*time.Millisecond)

	out = env.mustRun(t, "player", "sessions")
	assert.Contains(t, out, "CATDOGS")
	assert.Contains(t, out, "2 words")

	out = env.mustRun(t, "game", "play-again", id)
	assert.Contains(t, out, "Status: running")
	assert.Contains(t, out, "Score: 0\n")
	assert.NotContains(t, out, "Words (")

	out = env.mustRun(t, "game", "delete", id)
	assert.Equal(t, "Game deleted\n", out)
}

func TestInputValidation(t *testing.T) {
	env := newCLIEnv(t)
	env.mustRun(t, "player", "guest")
	id := env.createGame(t)

	_, err := env.run("game", "input", id, "ab")

	assert.ErrorContains(t, err, "single letter")
}

func TestEventsStream(t *testing.T) {
	env := newCLIEnv(t)
	env.mustRun(t, "player", "guest")
	id := env.createGame(t)

	out := env.mustRun(t, "events", id, "--json", "--max", "2")

	var events []SSEEvent
	scanner := bufio.NewScanner(strings.NewReader(out))
	for scanner.Scan() {
		var ev SSEEvent
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &ev))
		events = append(events, ev)
	}
	require.Len(t, events, 2)
	assert.Equal(t, "connected", events[0].Event)
	assert.Equal(t, "snapshot", events[1].Event)
	assert.Contains(t, events[1].Data, id)
}

func TestPrintEmptyCollections(t *testing.T) {
	var buf bytes.Buffer
	out := NewOutput(FormatText, &buf)

	out.Print(response.Leaderboard{})
	out.Print(response.SessionHistory{})

	assert.Equal(t, "No scores yet\nNo sessions recorded\n", buf.String())
}

func TestPrintMessageFormats(t *testing.T) {
	var jsonBuf, yamlBuf bytes.Buffer

	NewOutput(FormatJSON, &jsonBuf).PrintMessage("done")
	NewOutput(FormatYAML, &yamlBuf).PrintMessage("done")

	assert.JSONEq(t, `{"message":"done"}`, jsonBuf.String())
	assert.Equal(t, "message: done\n", yamlBuf.String())
}

// scriptedReader feeds fixed lines to the play loop, then reports EOF
type scriptedReader struct {
	mu      sync.Mutex
	lines   []string
	prompts []string
}

func (r *scriptedReader) Readline() (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.lines) == 0 {
		return "", io.EOF
	}
	line := r.lines[0]
	r.lines = r.lines[1:]
	return line, nil
}

func (r *scriptedReader) SetPrompt(prompt string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.prompts = append(r.prompts, prompt)
}

func (r *scriptedReader) Refresh() {}

// syncBuffer guards a buffer that the play loop and its event watcher share
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func newTestLocalGame(t *testing.T, lines ...string) (*localGame, *scriptedReader, *syncBuffer) {
	t.Helper()

	app := factory.NewTestApp()
	require.NoError(t, app.LoadTestDictionary())
	t.Cleanup(func() { _ = app.Close() })

	app.QueueRack("catdogs")
	engine, err := app.GameManager.Create(context.Background(), "", model.GameOptions{})
	require.NoError(t, err)

	in := &scriptedReader{lines: lines}
	out := &syncBuffer{}
	return newLocalGame(engine, app.Letters, in, out), in, out
}

func TestLocalGameSession(t *testing.T) {
	g, in, out := newTestLocalGame(t, "", "cat", "xyz", ":end", ":quit")

	require.NoError(t, g.run())

	text := out.String()
	assert.Contains(t, text, "Letters: C(")
	assert.Contains(t, text, "+5 for CAT")
	assert.Contains(t, text, "XYZ: Word can't be made from your letters")
	assert.Contains(t, text, "Final score: 5 with 1 words")
	assert.Contains(t, in.prompts, "[60s   5 pts] > ")
	assert.Equal(t, model.SessionEnded, g.engine.Snapshot().Status)
}

func TestLocalGameQuitScoresRunningSession(t *testing.T) {
	g, _, out := newTestLocalGame(t, "", "dog")

	require.NoError(t, g.run())

	assert.Equal(t, model.SessionEnded, g.engine.Snapshot().Status)
	assert.Contains(t, out.String(), "DOG")
	assert.Contains(t, out.String(), "Final score:")
}

func TestLocalGameCommandsOutsideRunningSession(t *testing.T) {
	g, _, out := newTestLocalGame(t, ":shuffle", ":end", "", "", ":quit")

	require.NoError(t, g.run())

	text := out.String()
	assert.Equal(t, 2, strings.Count(text, "The session is not running"))
	assert.Contains(t, text, "Final score: 0 with 0 words")
	assert.Equal(t, model.SessionEnded, g.engine.Snapshot().Status)
}

func TestLocalGameWatchAnnouncesTimeout(t *testing.T) {
	g, in, out := newTestLocalGame(t)

	events := make(chan model.Event, 2)
	events <- model.Event{
		Type:    model.EventTick,
		Session: model.GameSession{Status: model.SessionRunning, TimeLeftSeconds: 3, Score: 7},
	}
	events <- model.Event{
		Type:    model.EventSessionEnded,
		Session: model.GameSession{Status: model.SessionEnded},
		Payload: model.SessionEndedPayload{Summary: model.SessionSummary{
			Score:     7,
			Words:     []model.AcceptedWord{{Text: "goat", Points: 7}},
			EndReason: model.EndReasonTimeout,
		}},
	}
	close(events)

	g.watch(events)

	text := out.String()
	assert.Contains(t, text, "3s left")
	assert.Contains(t, text, "Time's up!")
	assert.Contains(t, text, "Final score: 7 with 1 words")
	assert.Contains(t, in.prompts, "[ 3s   7 pts] > ")
	assert.Contains(t, in.prompts, "[ended] > ")
}
