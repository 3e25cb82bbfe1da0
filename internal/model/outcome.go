package model

// RejectReason explains why a submitted word was not accepted
type RejectReason string

const (
	RejectNone            RejectReason = ""
	RejectNotRunning      RejectReason = "not_running"
	RejectTooShort        RejectReason = "too_short"
	RejectNotFormable     RejectReason = "not_formable"
	RejectNotInDictionary RejectReason = "not_in_dictionary"
	RejectAlreadyUsed     RejectReason = "already_used"
)

// Message returns the user-facing text for the reason
func (r RejectReason) Message() string {
	switch r {
	case RejectNotRunning:
		return "Game is not running"
	case RejectTooShort:
		return "Word is too short"
	case RejectNotFormable:
		return "Word can't be made from your letters"
	case RejectNotInDictionary:
		return "Not a valid word"
	case RejectAlreadyUsed:
		return "Word already used"
	default:
		return ""
	}
}

// Err returns the sentinel error matching the reason, or nil
func (r RejectReason) Err() error {
	switch r {
	case RejectNotRunning:
		return ErrSessionNotRunning
	case RejectTooShort:
		return ErrWordTooShort
	case RejectNotFormable:
		return ErrWordNotFormable
	case RejectNotInDictionary:
		return ErrWordNotInDictionary
	case RejectAlreadyUsed:
		return ErrWordAlreadyUsed
	default:
		return nil
	}
}

// Outcome is the result of submitting a word
type Outcome struct {
	Accepted bool
	Word     string // Normalized form of the input
	Points   int    // Zero unless accepted
	Reason   RejectReason
	Message  string
}
