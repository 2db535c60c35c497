package content

import "strings"

const (
	maxTagLength = 10
	maxTagCount  = 5
)

// SanitizeTags cleans a post's tag list: each tag is stripped to letters,
// digits, '-' and '_', truncated to 10 runes, and dropped when empty after
// cleanup. Tags that collide case-insensitively keep the first casing seen.
// At most 5 tags survive; excess tags are silently dropped.
func SanitizeTags(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	out := []string{}
	for _, tag := range tags {
		cleaned := sanitizeTag(tag)
		if cleaned == "" {
			continue
		}
		key := strings.ToLower(cleaned)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, cleaned)
		if len(out) == maxTagCount {
			break
		}
	}
	return out
}

func sanitizeTag(tag string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(tag) {
		if isTagRune(r) {
			b.WriteRune(r)
		}
		if b.Len() == maxTagLength {
			break
		}
	}
	return b.String()
}

func isTagRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case r == '-' || r == '_':
		return true
	}
	return false
}
