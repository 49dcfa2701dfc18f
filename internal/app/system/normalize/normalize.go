// Package normalize holds the canonical string normalizations applied to
// user input before storage, lookup or comparison.
package normalize

import "strings"

// Email trims whitespace and lowercases. Emails are stored and matched in
// this form, so lookups are case-insensitive.
func Email(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Name trims whitespace.
func Name(s string) string {
	return strings.TrimSpace(s)
}

// Status trims whitespace and lowercases an account status.
func Status(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Zone trims whitespace and the optional POSIX ":" prefix from a zone
// identifier ("  :Asia/Tokyo" -> "Asia/Tokyo"). Case is preserved since
// IANA identifiers are case-sensitive.
func Zone(s string) string {
	return strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(s), ":"))
}
