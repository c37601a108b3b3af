package redis

import (
	"fmt"

	"github.com/andersCTO/monstrens-natt/internal/model"
)

// Key prefix for all session data
const keyPrefix = "monstrens"

// sessionKey returns the Redis key for a Session
func sessionKey(code model.SessionCode) string {
	return fmt.Sprintf("%s:session:%s", keyPrefix, code)
}

// sessionIndexKey returns the Redis key for the SET of live session codes
func sessionIndexKey() string {
	return fmt.Sprintf("%s:idx:sessions", keyPrefix)
}
