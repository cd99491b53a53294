package problem

import (
	"regexp"
	"strings"
)

// urlPattern accepts https://leetcode.com/problems/<slug>/ with an optional
// description/ segment and optional trailing slash.
var urlPattern = regexp.MustCompile(`^https://(?:www\.)?leetcode\.com/problems/([A-Za-z0-9_-]+)(?:/description)?/?$`)

// Details is the result of the external fetch step.
type Details struct {
	Description string `json:"description"`
	Found       bool   `json:"found"`
}

// NotFound is the degraded result used whenever fetching fails.
func NotFound() Details {
	return Details{Description: "", Found: false}
}

// Reference ties a problem URL to its display name and fetched text.
type Reference struct {
	URL         string `json:"url"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Found       bool   `json:"found"`
}

// ExtractName turns a problem URL into its title, e.g. two-sum -> "Two Sum".
// It returns "" when the URL does not point at a problem.
func ExtractName(url string) string {
	match := urlPattern.FindStringSubmatch(strings.TrimSpace(url))
	if match == nil {
		return ""
	}
	return TitleFromSlug(match[1])
}

// Valid reports whether url identifies a problem.
func Valid(url string) bool {
	return ExtractName(url) != ""
}

// TitleFromSlug capitalizes the first letter of every hyphen separated word.
func TitleFromSlug(slug string) string {
	words := strings.Split(slug, "-")
	for i, word := range words {
		if word == "" {
			continue
		}
		words[i] = strings.ToUpper(word[:1]) + word[1:]
	}
	return strings.Join(words, " ")
}
