package content

import "fmt"

// Find returns the record whose key is id.
func Find[T any](k Kind[T], recs []T, id string) (T, bool) {
	for _, rec := range recs {
		if k.KeyOf(rec) == id {
			return rec, true
		}
	}
	var zero T
	return zero, false
}

// Upsert replaces the record with rec's key in place, or appends rec. The
// input slice is not modified.
func Upsert[T any](k Kind[T], recs []T, rec T) ([]T, bool) {
	key := k.KeyOf(rec)
	out := make([]T, len(recs), len(recs)+1)
	copy(out, recs)
	for i := range out {
		if k.KeyOf(out[i]) == key {
			out[i] = rec
			return out, false
		}
	}
	return append(out, rec), true
}

// Remove drops every record whose key is in ids. It returns the remaining
// records and the ids that actually matched, in request order without
// duplicates.
func Remove[T any](k Kind[T], recs []T, ids []string) ([]T, []string) {
	present := make(map[string]bool, len(recs))
	for _, rec := range recs {
		present[k.KeyOf(rec)] = true
	}

	drop := make(map[string]bool, len(ids))
	removed := make([]string, 0, len(ids))
	for _, id := range ids {
		if present[id] && !drop[id] {
			drop[id] = true
			removed = append(removed, id)
		}
	}
	if len(removed) == 0 {
		return recs, removed
	}

	kept := make([]T, 0, len(recs)-len(removed))
	for _, rec := range recs {
		if !drop[k.KeyOf(rec)] {
			kept = append(kept, rec)
		}
	}
	return kept, removed
}

// CheckUnique returns ErrInvalid when two records share a key.
func CheckUnique[T any](k Kind[T], recs []T) error {
	seen := make(map[string]int, len(recs))
	for i, rec := range recs {
		key := k.KeyOf(rec)
		if prev, ok := seen[key]; ok {
			return fmt.Errorf("%w: records %d and %d share %s %q", ErrInvalid, prev, i, k.IDField, key)
		}
		seen[key] = i
	}
	return nil
}
