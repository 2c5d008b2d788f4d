// Package events publishes content-change notifications so that caches and
// downstream consumers (static rebuilds, search indexers) can react to admin
// writes.
package events

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Change operations.
const (
	OpReplaced = "replaced"
	OpUpserted = "upserted"
	OpDeleted  = "deleted"
	OpMigrated = "migrated"
)

const (
	subjectPrefix       = "tcc.content"
	eventSource         = "tcc-site"
	JSONDataContentType = "application/json"
)

var (
	readEventRandom = rand.Read
	marshalEvent    = json.Marshal
)

// Change describes one admin write against a content type.
type Change struct {
	// Type is the content type's store key, e.g. "programs".
	Type string
	// Op is one of the Op* constants.
	Op string
	// IDs lists the affected record keys. Empty for bulk replace.
	IDs []string
	// Count is the number of records written or removed.
	Count int
	// At is when the write completed.
	At time.Time
}

// Event is the envelope put on the wire.
type Event struct {
	ID              string          `json:"id"`
	Source          string          `json:"source"`
	Type            string          `json:"type"`
	Subject         string          `json:"subject"`
	Time            time.Time       `json:"time"`
	DataContentType string          `json:"datacontenttype"`
	Data            json.RawMessage `json:"data"`
}

type changeData struct {
	Type  string    `json:"type"`
	Op    string    `json:"op"`
	IDs   []string  `json:"ids"`
	Count int       `json:"count"`
	At    time.Time `json:"at"`
}

// Publisher delivers change notifications. Publish failures never undo the
// write that caused them.
type Publisher interface {
	Publish(ctx context.Context, change Change) error
}

// Noop discards every change. Used when no broker is configured.
type Noop struct{}

func (Noop) Publish(context.Context, Change) error { return nil }

// Subject returns the NATS subject for change.
func Subject(change Change) string {
	return subjectPrefix + "." + change.Type + "." + change.Op
}

// NewChangeEvent builds the wire envelope for change.
func NewChangeEvent(change Change) (Event, error) {
	contentType := strings.TrimSpace(change.Type)
	if contentType == "" {
		return Event{}, fmt.Errorf("content type is required")
	}
	op := strings.TrimSpace(change.Op)
	if op == "" {
		return Event{}, fmt.Errorf("operation is required")
	}

	eventID, err := newEventID()
	if err != nil {
		return Event{}, err
	}

	at := change.At
	if at.IsZero() {
		at = time.Now()
	}
	ids := change.IDs
	if ids == nil {
		ids = []string{}
	}

	data, err := marshalEvent(changeData{
		Type:  contentType,
		Op:    op,
		IDs:   ids,
		Count: change.Count,
		At:    at.UTC(),
	})
	if err != nil {
		return Event{}, fmt.Errorf("marshaling change payload: %w", err)
	}

	return Event{
		ID:              eventID,
		Source:          eventSource,
		Type:            Subject(Change{Type: contentType, Op: op}),
		Subject:         contentType,
		Time:            at.UTC(),
		DataContentType: JSONDataContentType,
		Data:            data,
	}, nil
}

func newEventID() (string, error) {
	var id [16]byte
	if _, err := readEventRandom(id[:]); err != nil {
		return "", fmt.Errorf("generating event id: %w", err)
	}
	return "evt-" + hex.EncodeToString(id[:]), nil
}
