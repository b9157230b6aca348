package util

import (
	"regexp"
	"strings"
)

var mentionPattern = regexp.MustCompile(`(?:^|[^\w@])@([A-Za-z0-9_.]{3,30})`)

// ExtractMentions returns the distinct lowercase usernames mentioned as @name in content,
// in order of first appearance.
func ExtractMentions(content string) []string {
	var mentions []string
	seen := make(map[string]struct{})
	for _, match := range mentionPattern.FindAllStringSubmatch(content, -1) {
		username := strings.ToLower(strings.TrimRight(match[1], "."))
		if len(username) < 3 {
			continue
		}
		if _, ok := seen[username]; ok {
			continue
		}
		seen[username] = struct{}{}
		mentions = append(mentions, username)
	}
	return mentions
}

// Truncate shortens s to at most n runes, appending an ellipsis when cut.
func Truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	if n <= 3 {
		return string(runes[:n])
	}
	return string(runes[:n-3]) + "..."
}
