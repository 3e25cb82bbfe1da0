package response

import (
	"time"

	"github.com/samber/lo"

	"github.com/mcoot/wordbattles/internal/model"
	"github.com/mcoot/wordbattles/internal/services/auth"
)

// Player represents a player in API responses
type Player struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	IsGuest     bool   `json:"is_guest"`
}

// PlayerFromModel converts a model.Player to a response Player
func PlayerFromModel(p *model.Player) Player {
	return Player{
		ID:          string(p.ID),
		DisplayName: p.DisplayName,
		IsGuest:     p.IsGuest,
	}
}

// AuthResponse is the response for authentication endpoints
type AuthResponse struct {
	Player       Player `json:"player"`
	SessionToken string `json:"session_token"`
}

// AuthResponseFromSession creates an AuthResponse from a session
func AuthResponseFromSession(s *auth.Session) AuthResponse {
	return AuthResponse{
		Player:       PlayerFromModel(&s.Player),
		SessionToken: s.Token,
	}
}

// Word is an accepted word with its points
type Word struct {
	Text       string    `json:"text"`
	Points     int       `json:"points"`
	AcceptedAt time.Time `json:"accepted_at"`
}

func wordsFromModel(words []model.AcceptedWord) []Word {
	return lo.Map(words, func(w model.AcceptedWord, _ int) Word {
		return Word{Text: w.Text, Points: w.Points, AcceptedAt: w.AcceptedAt}
	})
}

// Opponent is the AI opponent's score panel
type Opponent struct {
	Score int    `json:"score"`
	Words []Word `json:"words"`
}

// Options are the rules a game was created with
type Options struct {
	Duration  int  `json:"duration"`
	RackSize  int  `json:"rack_size"`
	MinLength int  `json:"min_length"`
	AIEnabled bool `json:"ai_enabled"`
}

// OptionsFromModel converts model.GameOptions
func OptionsFromModel(o model.GameOptions) Options {
	return Options{
		Duration:  o.DurationSeconds,
		RackSize:  o.RackSize,
		MinLength: o.MinLength,
		AIEnabled: o.AI(),
	}
}

// Session is the client view of a game session
type Session struct {
	ID           string     `json:"id"`
	GameID       string     `json:"game_id"`
	Status       string     `json:"status"`
	TimeLeft     int        `json:"time_left"`
	Rack         []string   `json:"rack"`
	PendingInput string     `json:"pending_input"`
	Score        int        `json:"score"`
	Words        []Word     `json:"words"`
	Message      string     `json:"message,omitempty"`
	Opponent     *Opponent  `json:"opponent,omitempty"`
	Options      Options    `json:"options"`
	CreatedAt    time.Time  `json:"created_at"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	EndedAt      *time.Time `json:"ended_at,omitempty"`
	EndReason    string     `json:"end_reason,omitempty"`
}

// SessionFromModel converts a session snapshot
func SessionFromModel(s model.GameSession) Session {
	resp := Session{
		ID:           string(s.ID),
		GameID:       string(s.GameID),
		Status:       string(s.Status),
		TimeLeft:     s.TimeLeftSeconds,
		Rack:         s.Rack.Strings(),
		PendingInput: s.PendingInput,
		Score:        s.Score,
		Words:        wordsFromModel(s.AcceptedWords),
		Message:      s.Message,
		Options:      OptionsFromModel(s.Options),
		CreatedAt:    s.CreatedAt,
		StartedAt:    optionalTime(s.StartedAt),
		EndedAt:      optionalTime(s.EndedAt),
		EndReason:    string(s.EndReason),
	}
	if s.Opponent != nil && s.Opponent.Enabled {
		resp.Opponent = &Opponent{
			Score: s.Opponent.Score,
			Words: wordsFromModel(s.Opponent.Words),
		}
	}
	return resp
}

func optionalTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

// Game is a hosted game instance with its current session
type Game struct {
	ID      string  `json:"id"`
	OwnerID string  `json:"owner_id"`
	Session Session `json:"session"`
}

// Outcome is the result of a word submission
type Outcome struct {
	Accepted bool   `json:"accepted"`
	Word     string `json:"word"`
	Points   int    `json:"points"`
	Reason   string `json:"reason,omitempty"`
	Message  string `json:"message"`
}

// OutcomeFromModel converts model.Outcome
func OutcomeFromModel(o model.Outcome) Outcome {
	return Outcome{
		Accepted: o.Accepted,
		Word:     o.Word,
		Points:   o.Points,
		Reason:   string(o.Reason),
		Message:  o.Message,
	}
}

// SubmitResponse is the response for word submission
type SubmitResponse struct {
	Outcome Outcome `json:"outcome"`
	Session Session `json:"session"`
}

// LeaderboardEntry is one ranked row of the leaderboard
type LeaderboardEntry struct {
	Rank        int       `json:"rank"`
	PlayerID    string    `json:"player_id"`
	DisplayName string    `json:"display_name"`
	TotalScore  int       `json:"total_score"`
	GamesPlayed int       `json:"games_played"`
	BestScore   int       `json:"best_score"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Leaderboard is the response for the leaderboard endpoint
type Leaderboard struct {
	Entries []LeaderboardEntry `json:"entries"`
}

// LeaderboardFromModel ranks entries in the order given, starting at 1
func LeaderboardFromModel(entries []*model.LeaderboardEntry) Leaderboard {
	return Leaderboard{
		Entries: lo.Map(entries, func(e *model.LeaderboardEntry, i int) LeaderboardEntry {
			return LeaderboardEntry{
				Rank:        i + 1,
				PlayerID:    string(e.PlayerID),
				DisplayName: e.DisplayName,
				TotalScore:  e.TotalScore,
				GamesPlayed: e.GamesPlayed,
				BestScore:   e.BestScore,
				UpdatedAt:   e.UpdatedAt,
			}
		}),
	}
}

// SessionHistory lists a player's recorded sessions, most recent first
type SessionHistory struct {
	Sessions []model.SessionSummary `json:"sessions"`
}

// SessionHistoryFromModel converts stored summaries
func SessionHistoryFromModel(summaries []*model.SessionSummary) SessionHistory {
	return SessionHistory{
		Sessions: lo.Map(summaries, func(s *model.SessionSummary, _ int) model.SessionSummary {
			return *s
		}),
	}
}

// Event is a game event as streamed over SSE
type Event struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	GameID    string    `json:"game_id"`
	Session   Session   `json:"session"`
	Payload   any       `json:"payload,omitempty"`
}

// WordPayload accompanies word_accepted and word_rejected events
type WordPayload struct {
	Word   string `json:"word"`
	Points int    `json:"points,omitempty"`
	Reason string `json:"reason,omitempty"`
}

// EventFromModel converts an engine event
func EventFromModel(ev model.Event) Event {
	resp := Event{
		Type:      string(ev.Type),
		Timestamp: ev.Timestamp,
		GameID:    string(ev.GameID),
		Session:   SessionFromModel(ev.Session),
	}
	switch p := ev.Payload.(type) {
	case model.WordAcceptedPayload:
		resp.Payload = WordPayload{Word: p.Word, Points: p.Points}
	case model.WordRejectedPayload:
		resp.Payload = WordPayload{Word: p.Word, Reason: string(p.Reason)}
	case model.SessionEndedPayload:
		resp.Payload = p.Summary
	}
	return resp
}
