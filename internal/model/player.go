package model

import "time"

// PlayerID uniquely identifies a player across the system
type PlayerID string

// Player is a person whose finished sessions count towards the leaderboard
type Player struct {
	ID          PlayerID
	DisplayName string
	IsGuest     bool // true for players without a login
	CreatedAt   time.Time
}

// RegisteredPlayer holds login credentials for a non-guest player.
// Kept apart from Player so password hashes never travel with a session.
type RegisteredPlayer struct {
	PlayerID     PlayerID
	Username     string // immutable login name
	PasswordHash string // bcrypt
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
