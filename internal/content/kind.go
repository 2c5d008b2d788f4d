// Package content resolves and persists site content. Every content type is
// one JSON array under one store key, with a directory of markdown files as
// the fallback source.
package content

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrNotFound is returned when no record has the requested key.
	ErrNotFound = errors.New("record not found")

	// ErrInvalid wraps every validation failure.
	ErrInvalid = errors.New("invalid record")

	// ErrNoContent is returned by a Source that has nothing to offer, so the
	// resolver moves on without logging.
	ErrNoContent = errors.New("no content")
)

var keyPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// Kind describes one content type: where it lives and how its records are
// keyed, completed and validated.
type Kind[T any] struct {
	// Name is the store key, the markdown directory name and the admin
	// route segment, e.g. "programs".
	Name string
	// IDField is the JSON name of the key field: "slug" or "id".
	IDField string
	// KeyOf returns the record's key.
	KeyOf func(T) string
	// WithKey returns the record with its key set.
	WithKey func(T, string) T
	// Label returns the title or name used to derive a key.
	Label func(T) string
	// TimestampKeys appends "-<unix millis>" to generated keys.
	TimestampKeys bool
	// FromMarkdown completes a record parsed from front-matter. key is
	// the filename-derived identifier and body the markdown body.
	FromMarkdown func(meta T, key, body string) T
	// Check validates type-specific fields. Key and label are checked
	// by Validate before Check runs.
	Check func(T) error
}

// Validate checks rec's key and label, then the type-specific rules.
func (k Kind[T]) Validate(rec T) error {
	key := k.KeyOf(rec)
	if key == "" {
		return fmt.Errorf("%w: %s is required", ErrInvalid, k.IDField)
	}
	if !keyPattern.MatchString(key) {
		return fmt.Errorf("%w: %s %q must contain only letters, digits, '.', '_' or '-'", ErrInvalid, k.IDField, key)
	}
	if strings.TrimSpace(k.Label(rec)) == "" {
		return fmt.Errorf("%w: %s %q has no title", ErrInvalid, k.IDField, key)
	}
	if k.Check != nil {
		if err := k.Check(rec); err != nil {
			return fmt.Errorf("%w: %s %q: %v", ErrInvalid, k.IDField, key, err)
		}
	}
	return nil
}

// EnsureKey fills a missing key the same way the admin forms do: a slug of
// the label, plus a millisecond timestamp for types that need one.
func (k Kind[T]) EnsureKey(rec T, now time.Time) (T, error) {
	if k.KeyOf(rec) != "" {
		return rec, nil
	}
	slug := Slugify(k.Label(rec))
	if slug == "" {
		return rec, fmt.Errorf("%w: %s is required and cannot be derived from an empty title", ErrInvalid, k.IDField)
	}
	if k.TimestampKeys {
		slug += "-" + strconv.FormatInt(now.UnixMilli(), 10)
	}
	return k.WithKey(rec, slug), nil
}

// Slugify lowercases s and collapses every run of non-alphanumerics into a
// single hyphen.
func Slugify(s string) string {
	var b strings.Builder
	pendingDash := false
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pendingDash && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingDash = false
			b.WriteRune(r)
			continue
		}
		pendingDash = true
	}
	return b.String()
}
