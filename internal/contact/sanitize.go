package contact

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// strict policy: all HTML/script content in user input gets stripped
var sanitizePolicy = bluemonday.StrictPolicy()

func sanitizeText(s string) string {
	return sanitizePolicy.Sanitize(strings.TrimSpace(s))
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
