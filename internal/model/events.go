package model

import "time"

// EventType identifies the type of event
type EventType string

const (
	EventSessionCreated EventType = "session_created"
	EventSessionStarted EventType = "session_started"
	EventTick           EventType = "tick"
	EventInputChanged   EventType = "input_changed"
	EventWordAccepted   EventType = "word_accepted"
	EventWordRejected   EventType = "word_rejected"
	EventRackShuffled   EventType = "rack_shuffled"
	EventSessionEnded   EventType = "session_ended"
)

// Event is emitted by a game engine after every state transition.
// Session is a snapshot taken after the transition was applied.
type Event struct {
	Type      EventType
	Timestamp time.Time
	GameID    GameID
	Session   GameSession
	Payload   any // Type-specific data, may be nil
}

// WordAcceptedPayload contains data for word accepted events
type WordAcceptedPayload struct {
	Word   string
	Points int
}

// WordRejectedPayload contains data for word rejected events
type WordRejectedPayload struct {
	Word   string
	Reason RejectReason
}

// SessionEndedPayload contains data for session ended events
type SessionEndedPayload struct {
	Summary SessionSummary
}
