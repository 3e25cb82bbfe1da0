package redis

import (
	"fmt"

	"github.com/mcoot/wordbattles/internal/model"
)

// Key prefix for all game-related data
const keyPrefix = "wbgame"

// playerKey returns the Redis key for a Player
func playerKey(id model.PlayerID) string {
	return fmt.Sprintf("%s:player:%s", keyPrefix, id)
}

// registeredPlayerKey returns the Redis key for a RegisteredPlayer
func registeredPlayerKey(playerID model.PlayerID) string {
	return fmt.Sprintf("%s:registered_player:%s", keyPrefix, playerID)
}

// usernameIndexKey returns the Redis key for the username -> player_id index
func usernameIndexKey(username string) string {
	return fmt.Sprintf("%s:idx:username:%s", keyPrefix, username)
}

// sessionKey returns the Redis key for a SessionSummary
func sessionKey(id model.SessionID) string {
	return fmt.Sprintf("%s:session:%s", keyPrefix, id)
}

// playerSessionsKey returns the ZSET of a player's session IDs scored by end time
func playerSessionsKey(playerID model.PlayerID) string {
	return fmt.Sprintf("%s:idx:player_sessions:%s", keyPrefix, playerID)
}

// leaderboardEntryKey returns the Redis key for one player's LeaderboardEntry
func leaderboardEntryKey(playerID model.PlayerID) string {
	return fmt.Sprintf("%s:leaderboard:entry:%s", keyPrefix, playerID)
}

// leaderboardRankKey returns the ZSET ranking player IDs by total score
func leaderboardRankKey() string {
	return fmt.Sprintf("%s:leaderboard:rank", keyPrefix)
}

// dictionaryKey returns the Redis key for the dictionary word set
func dictionaryKey() string {
	return fmt.Sprintf("%s:dictionary", keyPrefix)
}
