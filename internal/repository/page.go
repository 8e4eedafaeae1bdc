package repository

import "strings"

// Page is a LIMIT/OFFSET window over an ordered result set.
type Page struct {
	Limit  int
	Offset int
}

// NewPage converts a 1-based page number and page size into a window.
// Out-of-range values are clamped: page to 1, size to [1, maxSize].
func NewPage(page, size, maxSize int) Page {
	if page < 1 {
		page = 1
	}
	if maxSize < 1 {
		maxSize = 100
	}
	if size < 1 {
		size = 1
	}
	if size > maxSize {
		size = maxSize
	}
	return Page{Limit: size, Offset: (page - 1) * size}
}

// likeEscape must follow every LIKE that takes a containsPattern argument.
const likeEscape = "ESCAPE '!'"

var likeReplacer = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

// containsPattern builds a lower-case substring LIKE pattern with the
// wildcards in s matched literally.
func containsPattern(s string) string {
	return "%" + likeReplacer.Replace(strings.ToLower(s)) + "%"
}
