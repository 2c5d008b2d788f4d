// Package audit provides structured audit logging for admin content writes.
package audit

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// maxLoggedIDs caps the id list carried by one entry.
const maxLoggedIDs = 50

var (
	bearerTokenPattern = regexp.MustCompile(`(?i)\bBearer\s+[A-Za-z0-9\-._~+/]+=*`)
	keyValuePattern    = regexp.MustCompile(`(?i)\b(token|secret|password|authorization)\s*[:=]\s*([^\s,;]+)`)
)

// Write captures one finished admin write.
type Write struct {
	RequestID   string
	Actor       string
	Type        string
	Op          string
	IDs         []string
	Count       int
	Status      int
	ErrorDetail string
	Duration    time.Duration
}

// Logger emits structured audit entries.
type Logger struct {
	logger zerolog.Logger
}

// NewLogger creates an audit logger.
func NewLogger(logger zerolog.Logger) *Logger {
	return &Logger{
		logger: logger.With().Str("component", "audit").Logger(),
	}
}

// Record writes a single entry for one admin write. A nil Logger is a
// no-op.
func (l *Logger) Record(w Write) {
	if l == nil {
		return
	}

	result := "success"
	if w.Status >= 400 || w.Status == 0 {
		result = "error"
	}

	op := strings.TrimSpace(w.Op)
	if op == "" {
		op = "unknown"
	}
	actor := strings.TrimSpace(strings.ToLower(w.Actor))
	if actor == "" {
		actor = "anonymous"
	}

	duration := w.Duration
	if duration < 0 {
		duration = 0
	}

	ids := uniqueStrings(w.IDs)
	truncated := len(ids) > maxLoggedIDs
	if truncated {
		ids = ids[:maxLoggedIDs]
	}

	entry := l.logger.Info().
		Str("event", "admin.write.completed").
		Str("request_id", strings.TrimSpace(w.RequestID)).
		Str("actor", actor).
		Str("type", strings.TrimSpace(w.Type)).
		Str("op", op).
		Str("result", result).
		Int("count", w.Count).
		Int64("duration_ms", duration.Milliseconds()).
		Strs("ids", ids)

	if truncated {
		entry = entry.Bool("ids_truncated", true)
	}
	if w.Status > 0 {
		entry = entry.Int("status", w.Status)
	}
	if redactedError := RedactSensitiveText(w.ErrorDetail); redactedError != "" {
		entry = entry.Str("error_detail", redactedError)
	}

	entry.Msg("admin write completed")
}

// RedactSensitiveText removes obvious secrets from free-text error details.
func RedactSensitiveText(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}

	redacted := bearerTokenPattern.ReplaceAllString(trimmed, "Bearer [REDACTED]")
	redacted = keyValuePattern.ReplaceAllStringFunc(redacted, func(match string) string {
		parts := strings.SplitN(match, ":", 2)
		if len(parts) == 2 {
			return fmt.Sprintf("%s: [REDACTED]", strings.TrimSpace(parts[0]))
		}
		parts = strings.SplitN(match, "=", 2)
		if len(parts) == 2 {
			return fmt.Sprintf("%s=[REDACTED]", strings.TrimSpace(parts[0]))
		}
		return "[REDACTED]"
	})
	return redacted
}

func uniqueStrings(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	unique := make([]string, 0, len(values))
	for _, value := range values {
		trimmed := strings.TrimSpace(value)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}
		unique = append(unique, trimmed)
	}
	slices.Sort(unique)
	return unique
}
