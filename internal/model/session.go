package model

import "time"

// GameID identifies a hosted game instance (one engine)
type GameID string

// SessionID identifies one timed round within a game instance
type SessionID string

// SessionStatus represents the current phase of a session
type SessionStatus string

const (
	SessionIdle    SessionStatus = "idle"    // Dealt, waiting for start
	SessionRunning SessionStatus = "running" // Timer counting down, words accepted
	SessionEnded   SessionStatus = "ended"   // Terminal for this session
)

// EndReason records why a session ended
type EndReason string

const (
	EndReasonTimeout EndReason = "timeout"
	EndReasonManual  EndReason = "manual"
)

// Option defaults
const (
	DefaultDurationSeconds = 60
	DefaultMinWordLength   = 3
)

// GameOptions holds the tunable rules for a game instance
type GameOptions struct {
	DurationSeconds int  `json:"duration"`
	RackSize        int  `json:"rack_size"`
	MinLength       int  `json:"min_length"`
	// AIEnabled is nil until defaults are applied
	AIEnabled *bool `json:"ai_enabled,omitempty"`
}

// DefaultGameOptions returns the default rules
func DefaultGameOptions() GameOptions {
	return GameOptions{
		DurationSeconds: DefaultDurationSeconds,
		RackSize:        DefaultRackSize,
		MinLength:       DefaultMinWordLength,
		AIEnabled:       new(bool),
	}
}

// WithDefaults fills zero-valued fields from DefaultGameOptions
func (o GameOptions) WithDefaults() GameOptions {
	return o.WithDefaultsFrom(DefaultGameOptions())
}

// WithDefaultsFrom fills zero-valued numeric fields and an unset AI flag from def
func (o GameOptions) WithDefaultsFrom(def GameOptions) GameOptions {
	if o.DurationSeconds == 0 {
		o.DurationSeconds = def.DurationSeconds
	}
	if o.RackSize == 0 {
		o.RackSize = def.RackSize
	}
	if o.MinLength == 0 {
		o.MinLength = def.MinLength
	}
	if o.AIEnabled == nil {
		o.AIEnabled = def.AIEnabled
	}
	return o
}

// AI reports whether the opponent panel is enabled
func (o GameOptions) AI() bool {
	return o.AIEnabled != nil && *o.AIEnabled
}

// Validate checks the options are playable
func (o GameOptions) Validate() error {
	if o.DurationSeconds <= 0 {
		return ErrInvalidOptions
	}
	if o.RackSize <= 0 || o.RackSize > AlphabetSize {
		return ErrInvalidOptions
	}
	if o.MinLength <= 0 {
		return ErrInvalidOptions
	}
	return nil
}

// AcceptedWord is a word the player scored in a session
type AcceptedWord struct {
	Text       string    `json:"text"`
	Points     int       `json:"points"`
	AcceptedAt time.Time `json:"accepted_at"`
}

// Opponent mirrors the player's score panel for an AI opponent.
// Nothing advances it; it is displayed when enabled.
type Opponent struct {
	Enabled bool
	Score   int
	Words   []AcceptedWord
}

// GameSession is the aggregate root for one timed round
type GameSession struct {
	ID              SessionID
	GameID          GameID
	PlayerID        PlayerID // Empty when no identity is attached
	Status          SessionStatus
	TimeLeftSeconds int
	Rack            Rack
	PendingInput    string
	Score           int
	AcceptedWords   []AcceptedWord // Most recent first
	Message         string
	Opponent        *Opponent // nil unless AI is enabled
	Options         GameOptions

	CreatedAt time.Time
	StartedAt time.Time
	EndedAt   time.Time
	EndReason EndReason
}

// HasWord reports whether word was already accepted this session
func (s *GameSession) HasWord(word string) bool {
	for _, w := range s.AcceptedWords {
		if w.Text == word {
			return true
		}
	}
	return false
}

// Clone returns a deep copy suitable for handing to other goroutines
func (s *GameSession) Clone() GameSession {
	cp := *s
	cp.Rack = s.Rack.Clone()
	cp.AcceptedWords = append([]AcceptedWord(nil), s.AcceptedWords...)
	if s.Opponent != nil {
		opp := *s.Opponent
		opp.Words = append([]AcceptedWord(nil), s.Opponent.Words...)
		cp.Opponent = &opp
	}
	return cp
}

// Summary builds the record handed to persistence when the session ends
func (s *GameSession) Summary() SessionSummary {
	words := make([]AcceptedWord, len(s.AcceptedWords))
	copy(words, s.AcceptedWords)

	summary := SessionSummary{
		SessionID:       s.ID,
		GameID:          s.GameID,
		PlayerID:        s.PlayerID,
		Score:           s.Score,
		Words:           words,
		Rack:            s.Rack.String(),
		DurationSeconds: s.Options.DurationSeconds,
		StartedAt:       s.StartedAt,
		EndedAt:         s.EndedAt,
		EndReason:       s.EndReason,
	}
	if s.Opponent != nil && s.Opponent.Enabled {
		score := s.Opponent.Score
		summary.OpponentScore = &score
	}
	return summary
}

// SessionSummary is the finalized record of an ended session
type SessionSummary struct {
	SessionID       SessionID      `json:"session_id"`
	GameID          GameID         `json:"game_id"`
	PlayerID        PlayerID       `json:"player_id"`
	Score           int            `json:"score"`
	Words           []AcceptedWord `json:"words"`
	Rack            string         `json:"rack"`
	OpponentScore   *int           `json:"opponent_score,omitempty"`
	DurationSeconds int            `json:"duration"`
	StartedAt       time.Time      `json:"started_at"`
	EndedAt         time.Time      `json:"ended_at"`
	EndReason       EndReason      `json:"end_reason"`
}
