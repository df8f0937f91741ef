package resolver

import (
	"errors"
	"regexp"
	"strings"
)

// ErrEmptyName is returned for records whose display name is blank.
var ErrEmptyName = errors.New("person record has an empty name")

// SplitName breaks a display name into (first, last). First name is never
// empty for a valid name; last name may be.
func SplitName(full string) (string, string, error) {
	full = strings.TrimSpace(full)
	if full == "" {
		return "", "", ErrEmptyName
	}
	parts := strings.SplitN(full, " ", 2)
	if len(parts) == 1 {
		return parts[0], "", nil
	}
	return parts[0], strings.TrimSpace(parts[1]), nil
}

// NameExtractor pulls candidate person names out of free text. Its false
// positives and negatives are accepted noise the similarity threshold has
// to absorb downstream.
type NameExtractor interface {
	Extract(title, description string) []string
}

// RegexExtractor finds guest mentions via introduction phrases
// ("featuring X", "joined by Y and Z", ...).
type RegexExtractor struct {
	patterns []*regexp.Regexp
}

var (
	nameListSplit = regexp.MustCompile(`\s*(?:,|\sand\s|&)\s*`)
	nonNameStart  = regexp.MustCompile(`(?i)^(this|the|our|we|you|their|podcast|show|episode)\b`)
)

func NewRegexExtractor() *RegexExtractor {
	return &RegexExtractor{
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)(?:special guest|guest|featuring|feat\.|ft\.)[:\s]+([^.!?\n]+)`),
			regexp.MustCompile(`(?i)(?:interview with|in conversation with)[:\s]+([^.!?\n]+)`),
			regexp.MustCompile(`(?i)(?:joined by|welcomes)[:\s]+([^.!?\n]+)`),
		},
	}
}

func (e *RegexExtractor) Extract(title, description string) []string {
	text := title + "\n" + description
	seen := make(map[string]bool)
	var names []string
	for _, pattern := range e.patterns {
		for _, match := range pattern.FindAllStringSubmatch(text, -1) {
			for _, name := range nameListSplit.Split(match[1], -1) {
				name = strings.TrimSpace(name)
				if name == "" || len(strings.Fields(name)) < 2 || nonNameStart.MatchString(name) {
					continue
				}
				if !seen[name] {
					seen[name] = true
					names = append(names, name)
				}
			}
		}
	}
	return names
}
