package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/mcoot/wordbattles/internal/config"
	"github.com/mcoot/wordbattles/internal/factory"
	"github.com/mcoot/wordbattles/internal/letters"
	"github.com/mcoot/wordbattles/internal/model"
	"github.com/mcoot/wordbattles/internal/services/game"
)

func newPlayCmd() *cobra.Command {
	var (
		opts     model.GameOptions
		ai       bool
		dictPath string
		dbPath   string
		name     string
	)

	cmd := &cobra.Command{
		Use:   "play",
		Short: "Play a game locally in the terminal",
		Long: `Run a game in-process without a server.

Type words and press Enter to submit them. Commands:
  (empty line)  start the session, or play again once it has ended
  :shuffle      deal fresh letters
  :end          end the session early
  :help         show this help
  :quit         leave (a running session is ended and scored first)

With --db the finished sessions and leaderboard are kept in a SQLite file.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if cmd.Flags().Changed("ai") {
				opts.AIEnabled = &ai
			}

			appCfg := config.Default()
			appCfg.Dictionary.Path = dictPath
			if dbPath != "" {
				appCfg.Storage.Type = config.StorageSQLite
				appCfg.Storage.SQLite.Path = dbPath
			}

			logger := slog.New(slog.NewTextHandler(io.Discard, nil))
			if cfg.Verbose {
				logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
			}

			app, err := factory.New(ctx, appCfg, logger)
			if err != nil {
				return err
			}
			defer func() { _ = app.Close() }()

			session, err := app.AuthService.CreateGuestPlayer(ctx, name)
			if err != nil {
				return err
			}
			engine, err := app.GameManager.Create(ctx, session.Player.ID, opts)
			if err != nil {
				return err
			}

			rl, err := readline.NewEx(&readline.Config{
				Prompt:          "> ",
				InterruptPrompt: "^C",
				EOFPrompt:       ":quit",
			})
			if err != nil {
				return err
			}
			defer func() { _ = rl.Close() }()

			return newLocalGame(engine, app.Letters, rl, rl.Stdout()).run()
		},
	}

	cmd.Flags().IntVar(&opts.DurationSeconds, "duration", 0, "Session length in seconds")
	cmd.Flags().IntVar(&opts.RackSize, "rack-size", 0, "Number of letters dealt")
	cmd.Flags().IntVar(&opts.MinLength, "min-length", 0, "Minimum word length")
	cmd.Flags().BoolVar(&ai, "ai", false, "Show the AI opponent panel")
	cmd.Flags().StringVar(&dictPath, "dict", "", "Word list file, one word per line (built-in list when empty)")
	cmd.Flags().StringVar(&dbPath, "db", "", "SQLite file to record sessions in")
	cmd.Flags().StringVar(&name, "name", "", "Display name")

	return cmd
}

// lineReader is the part of *readline.Instance the play loop uses
type lineReader interface {
	Readline() (string, error)
	SetPrompt(prompt string)
	Refresh()
}

// localGame drives one engine from a terminal
type localGame struct {
	engine *game.Engine
	table  *letters.Table
	in     lineReader

	mu  sync.Mutex
	out io.Writer
}

func newLocalGame(engine *game.Engine, table *letters.Table, in lineReader, out io.Writer) *localGame {
	return &localGame{engine: engine, table: table, in: in, out: out}
}

func (g *localGame) printf(format string, args ...any) {
	g.mu.Lock()
	defer g.mu.Unlock()
	fmt.Fprintf(g.out, format, args...)
}

func (g *localGame) run() error {
	events, unsubscribe := g.engine.Subscribe()
	done := make(chan struct{})
	go func() {
		defer close(done)
		g.watch(events)
	}()
	defer func() {
		unsubscribe()
		<-done
	}()

	g.printf("Make as many words as you can from your letters. Press Enter to start.\n")
	g.show(g.engine.Snapshot())

	for {
		line, err := g.in.Readline()
		if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) {
			g.quit()
			return nil
		}
		if err != nil {
			return err
		}

		if !g.handle(strings.TrimSpace(line)) {
			return nil
		}
	}
}

// handle applies one input line, returning false when the player quits
func (g *localGame) handle(line string) bool {
	var (
		session model.GameSession
		err     error
	)

	switch strings.ToLower(line) {
	case ":quit", ":q":
		g.quit()
		return false
	case ":help", ":h":
		g.printf("Enter: start or play again   :shuffle   :end   :quit\n")
		return true
	case ":shuffle":
		session, err = g.engine.Shuffle()
	case ":end":
		session, err = g.engine.End()
	case "":
		switch g.engine.Snapshot().Status {
		case model.SessionIdle:
			session, err = g.engine.Start()
		case model.SessionEnded:
			session, err = g.engine.PlayAgain()
		default:
			return true
		}
	default:
		var outcome model.Outcome
		outcome, session = g.engine.Submit(line)
		if outcome.Accepted {
			g.printf("  %s\n", outcome.Message)
		} else {
			g.printf("  %s: %s\n", strings.ToUpper(line), outcome.Message)
		}
		g.prompt(session)
		return true
	}

	if err != nil {
		g.printf("  %s\n", describeError(err))
		return true
	}
	if session.Status != model.SessionEnded {
		g.show(session)
	}
	return true
}

// quit ends a running session so it is scored before the engine is torn down
func (g *localGame) quit() {
	if g.engine.Snapshot().Status == model.SessionRunning {
		_, _ = g.engine.End()
	}
}

func (g *localGame) watch(events <-chan model.Event) {
	for ev := range events {
		switch ev.Type {
		case model.EventTick:
			if left := ev.Session.TimeLeftSeconds; left > 0 && (left <= 5 || left%15 == 0) {
				g.printf("  %ds left\n", left)
			}
			g.prompt(ev.Session)
		case model.EventSessionEnded:
			if payload, ok := ev.Payload.(model.SessionEndedPayload); ok {
				g.summarize(payload.Summary)
			}
			g.prompt(ev.Session)
		}
	}
}

func (g *localGame) show(s model.GameSession) {
	g.printf("Letters: %s\n", g.formatRack(s.Rack))
	if s.Message != "" && s.Status == model.SessionRunning {
		g.printf("  %s\n", s.Message)
	}
	g.prompt(s)
}

func (g *localGame) summarize(s model.SessionSummary) {
	if s.EndReason == model.EndReasonTimeout {
		g.printf("Time's up!\n")
	}
	g.printf("Final score: %d with %d words\n", s.Score, len(s.Words))
	for _, w := range s.Words {
		g.printf("  %-12s %3d\n", strings.ToUpper(w.Text), w.Points)
	}
	g.printf("Press Enter to play again, or :quit\n")
}

func (g *localGame) prompt(s model.GameSession) {
	switch s.Status {
	case model.SessionRunning:
		g.in.SetPrompt(fmt.Sprintf("[%2ds %3d pts] > ", s.TimeLeftSeconds, s.Score))
	default:
		g.in.SetPrompt(fmt.Sprintf("[%s] > ", s.Status))
	}
	g.in.Refresh()
}

func (g *localGame) formatRack(r model.Rack) string {
	parts := make([]string, len(r.Letters))
	for i, l := range r.Letters {
		parts[i] = fmt.Sprintf("%s(%d)", strings.ToUpper(l.String()), g.table.Points(l))
	}
	return strings.Join(parts, " ")
}

func describeError(err error) string {
	switch {
	case errors.Is(err, model.ErrSessionNotRunning):
		return "The session is not running"
	case errors.Is(err, model.ErrSessionAlreadyRunning):
		return "The session is already running"
	default:
		return err.Error()
	}
}
