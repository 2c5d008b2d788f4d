// Package auth gates the admin area behind a Google sign-in session and a
// static allow-list of admin emails.
package auth

import "strings"

// AllowList is the set of emails permitted into the admin area.
type AllowList struct {
	emails map[string]struct{}
}

// NewAllowList builds an AllowList from emails, ignoring blanks and case.
func NewAllowList(emails []string) AllowList {
	set := make(map[string]struct{}, len(emails))
	for _, e := range emails {
		if n := normalizeEmail(e); n != "" {
			set[n] = struct{}{}
		}
	}
	return AllowList{emails: set}
}

// Allowed reports whether email is on the list. An empty list allows
// nobody.
func (a AllowList) Allowed(email string) bool {
	n := normalizeEmail(email)
	if n == "" {
		return false
	}
	_, ok := a.emails[n]
	return ok
}

// Len returns the number of distinct emails.
func (a AllowList) Len() int { return len(a.emails) }

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
