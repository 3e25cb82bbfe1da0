package model

import "errors"

// Common errors used across the application
var (
	// Player errors
	ErrPlayerNotFound = errors.New("player not found")

	// Game instance errors
	ErrGameNotFound   = errors.New("game not found")
	ErrNotGameOwner   = errors.New("player does not own this game")
	ErrInvalidOptions = errors.New("invalid game options")
	ErrEngineClosed   = errors.New("game has been torn down")

	// Session state errors
	ErrSessionNotRunning     = errors.New("session is not running")
	ErrSessionAlreadyRunning = errors.New("session is already running")
	ErrSessionNotFound       = errors.New("session not found")

	// Word rejections
	ErrWordTooShort        = errors.New("word is too short")
	ErrWordNotFormable     = errors.New("word cannot be formed from rack")
	ErrWordNotInDictionary = errors.New("word is not in dictionary")
	ErrWordAlreadyUsed     = errors.New("word already used")

	// Input errors
	ErrInvalidLetter = errors.New("invalid letter")

	// Dictionary errors
	ErrDictionaryNotLoaded = errors.New("dictionary not loaded")
)
