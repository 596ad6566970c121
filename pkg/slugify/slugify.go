// Package slugify derives URL-safe slugs from display names and resolves
// collisions by appending a numeric suffix.
package slugify

import (
	"context"
	"fmt"
	"strings"
	"unicode"
)

// maxLen matches the slug column size on resources, categories and tags.
const maxLen = 100

// Slugify lowercases the name, replaces runs of non-alphanumeric characters
// with single hyphens and trims the result to the column limit.
func Slugify(name string) string {
	var b strings.Builder
	lastHyphen := true // suppress a leading hyphen
	for _, r := range strings.ToLower(name) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	slug := strings.Trim(b.String(), "-")
	return truncate(slug, maxLen)
}

// truncate cuts the slug to at most limit characters. Slugs may contain
// non-ASCII letters, so the cut lands on a rune boundary, never inside
// one.
func truncate(slug string, limit int) string {
	runes := []rune(slug)
	if len(runes) <= limit {
		return slug
	}
	return strings.Trim(string(runes[:limit]), "-")
}

// ExistsFunc reports whether a slug is already taken in the target table.
type ExistsFunc func(ctx context.Context, slug string) (bool, error)

// Unique returns a slug for name that exists reports as free, appending
// -2, -3, ... until one is. Collisions are resolved silently; they are
// never an error for the caller.
func Unique(ctx context.Context, name string, exists ExistsFunc) (string, error) {
	base := Slugify(name)
	if base == "" {
		base = "untitled"
	}

	taken, err := exists(ctx, base)
	if err != nil {
		return "", err
	}
	if !taken {
		return base, nil
	}

	for i := 2; ; i++ {
		suffix := fmt.Sprintf("-%d", i)
		candidate := truncate(base, maxLen-len(suffix)) + suffix

		taken, err := exists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
	}
}
