package request

// CreateGuestRequest is the request body for creating a guest player
type CreateGuestRequest struct {
	DisplayName string `json:"display_name"`
}

// RegisterRequest is the request body for registering a player
type RegisterRequest struct {
	Username    string `json:"username"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
}

// LoginRequest is the request body for logging in
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// CreateGameRequest is the optional request body for creating a game.
// Omitted fields take the server defaults.
type CreateGameRequest struct {
	Duration  int  `json:"duration,omitempty"`
	RackSize  int  `json:"rack_size,omitempty"`
	MinLength int  `json:"min_length,omitempty"`
	AIEnabled *bool `json:"ai_enabled,omitempty"`
}

// SubmitRequest is the request body for submitting a word.
// An empty word submits the pending input.
type SubmitRequest struct {
	Word string `json:"word"`
}

// Input actions
const (
	InputAdd       = "add"
	InputBackspace = "backspace"
	InputClear     = "clear"
)

// InputRequest is the request body for editing the pending input
type InputRequest struct {
	Action string `json:"action"`
	Letter string `json:"letter,omitempty"`
}
