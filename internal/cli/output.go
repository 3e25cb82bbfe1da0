package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/mcoot/wordbattles/internal/api/response"
)

// Output formats
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// Output handles formatting output based on the configured format
type Output struct {
	format string
	w      io.Writer
}

// NewOutput creates a new Output formatter writing to w
func NewOutput(format string, w io.Writer) *Output {
	return &Output{format: format, w: w}
}

// Print outputs data in the configured format
func (o *Output) Print(data any) {
	switch o.format {
	case FormatJSON:
		o.printJSON(data)
	case FormatYAML:
		o.printYAML(data)
	default:
		o.printText(data)
	}
}

// PrintMessage outputs a simple message
func (o *Output) PrintMessage(msg string) {
	switch o.format {
	case FormatJSON:
		o.printJSON(map[string]string{"message": msg})
	case FormatYAML:
		o.printYAML(map[string]string{"message": msg})
	default:
		fmt.Fprintln(o.w, msg)
	}
}

func (o *Output) printJSON(data any) {
	enc := json.NewEncoder(o.w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

// printYAML goes through JSON so the API's json field names are kept
func (o *Output) printYAML(data any) {
	raw, err := json.Marshal(data)
	if err != nil {
		fmt.Fprintf(o.w, "error: %s\n", err)
		return
	}
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		fmt.Fprintf(o.w, "error: %s\n", err)
		return
	}

	enc := yaml.NewEncoder(o.w)
	enc.SetIndent(2)
	_ = enc.Encode(generic)
	_ = enc.Close()
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case response.Player:
		o.printPlayer(v)
	case response.AuthResponse:
		o.printAuthResult(v)
	case response.Game:
		o.printGame(v)
	case response.SubmitResponse:
		o.printSubmit(v)
	case response.Leaderboard:
		o.printLeaderboard(v)
	case response.SessionHistory:
		o.printHistory(v)
	case HealthResult:
		fmt.Fprintf(o.w, "Status: %s (%s)\n", v.Status, v.Latency)
	default:
		// Fallback to JSON for unknown types
		o.printJSON(data)
	}
}

func (o *Output) printPlayer(p response.Player) {
	guestStr := "no"
	if p.IsGuest {
		guestStr = "yes"
	}
	fmt.Fprintf(o.w, "Player: %s (%s)\n", p.DisplayName, p.ID)
	fmt.Fprintf(o.w, "Guest: %s\n", guestStr)
}

func (o *Output) printAuthResult(a response.AuthResponse) {
	o.printPlayer(a.Player)
	fmt.Fprintf(o.w, "Token: %s\n", a.SessionToken)
}

func (o *Output) printGame(g response.Game) {
	fmt.Fprintf(o.w, "Game: %s\n", g.ID)
	o.printSession(g.Session)
}

func (o *Output) printSession(s response.Session) {
	fmt.Fprintf(o.w, "Status: %s\n", s.Status)
	fmt.Fprintf(o.w, "Time left: %ds\n", s.TimeLeft)
	fmt.Fprintf(o.w, "Rack: %s\n", strings.ToUpper(strings.Join(s.Rack, " ")))
	if s.PendingInput != "" {
		fmt.Fprintf(o.w, "Input: %s\n", strings.ToUpper(s.PendingInput))
	}
	fmt.Fprintf(o.w, "Score: %d\n", s.Score)
	if s.Opponent != nil {
		fmt.Fprintf(o.w, "Opponent: %d\n", s.Opponent.Score)
	}
	if s.Message != "" {
		fmt.Fprintf(o.w, "Message: %s\n", s.Message)
	}
	if len(s.Words) > 0 {
		fmt.Fprintf(o.w, "Words (%d):\n", len(s.Words))
		for _, w := range s.Words {
			fmt.Fprintf(o.w, "  - %s (%d pts)\n", strings.ToUpper(w.Text), w.Points)
		}
	}
}

func (o *Output) printSubmit(r response.SubmitResponse) {
	if r.Outcome.Accepted {
		fmt.Fprintf(o.w, "Accepted: %s\n", r.Outcome.Message)
	} else {
		fmt.Fprintf(o.w, "Rejected: %s\n", r.Outcome.Message)
	}
	fmt.Fprintf(o.w, "Score: %d\n", r.Session.Score)
}

func (o *Output) printLeaderboard(l response.Leaderboard) {
	if len(l.Entries) == 0 {
		fmt.Fprintln(o.w, "No scores yet")
		return
	}
	for _, e := range l.Entries {
		fmt.Fprintf(o.w, "%3d. %-20s %6d  (%d games, best %d)\n",
			e.Rank, e.DisplayName, e.TotalScore, e.GamesPlayed, e.BestScore)
	}
}

func (o *Output) printHistory(h response.SessionHistory) {
	if len(h.Sessions) == 0 {
		fmt.Fprintln(o.w, "No sessions recorded")
		return
	}
	for _, s := range h.Sessions {
		fmt.Fprintf(o.w, "%s  %-7s %4d pts  %2d words  (%s)\n",
			s.EndedAt.Format("2006-01-02 15:04"), strings.ToUpper(s.Rack), s.Score, len(s.Words), s.EndReason)
	}
}
