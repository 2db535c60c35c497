package content

import (
	"encoding/json"
	"errors"
)

const (
	ActionLike   = "like"
	ActionUnlike = "unlike"
)

var ErrInvalidAction = errors.New("invalid like action")

// ToggleLike applies a like/unlike action to a like set and returns the new
// set. Liking is idempotent; unliking removes every occurrence of the user id
// and is a no-op for absent members.
func ToggleLike(likes []string, userID, action string) ([]string, error) {
	switch action {
	case ActionLike:
		for _, id := range likes {
			if id == userID {
				return likes, nil
			}
		}
		return append(likes, userID), nil
	case ActionUnlike:
		out := make([]string, 0, len(likes))
		for _, id := range likes {
			if id != userID {
				out = append(out, id)
			}
		}
		return out, nil
	default:
		return nil, ErrInvalidAction
	}
}

// DecodeLikes parses a stored likes column into a like set. Legacy rows hold
// a bare integer count instead of an array; those normalize to an empty set,
// discarding the historical count. Unparsable values also decode empty rather
// than failing the request.
func DecodeLikes(raw string) []string {
	if raw == "" {
		return []string{}
	}
	var likes []string
	if err := json.Unmarshal([]byte(raw), &likes); err != nil {
		return []string{}
	}
	if likes == nil {
		likes = []string{}
	}
	return likes
}

// EncodeLikes serializes a like set for storage. A nil set encodes as [].
func EncodeLikes(likes []string) (string, error) {
	if likes == nil {
		likes = []string{}
	}
	b, err := json.Marshal(likes)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Contains reports membership of a user id in a like set.
func Contains(likes []string, userID string) bool {
	for _, id := range likes {
		if id == userID {
			return true
		}
	}
	return false
}
