package utils

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

var controlChars = regexp.MustCompile(`[\x00-\x1f\x7f]`)

// ValidateURL validates an evidence url: absolute http(s) with a host
func ValidateURL(raw string) error {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return fmt.Errorf("url is empty")
	}

	u, err := url.Parse(trimmed)
	if err != nil {
		return fmt.Errorf("invalid url %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("url must use http or https: %s", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("url has no host: %s", raw)
	}

	return nil
}

// ValidateIDs validates a list of assessment ids
func ValidateIDs(ids []int64) error {
	if len(ids) == 0 {
		return fmt.Errorf("at least one id is required")
	}

	seen := make(map[int64]bool, len(ids))
	for _, id := range ids {
		if id <= 0 {
			return fmt.Errorf("id must be positive: %d", id)
		}
		if seen[id] {
			return fmt.Errorf("duplicate id: %d", id)
		}
		seen[id] = true
	}

	return nil
}

// SanitizeString removes control characters
func SanitizeString(s string) string {
	return controlChars.ReplaceAllString(s, "")
}
