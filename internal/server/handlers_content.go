package server

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/AmoghRisbud/TCC-frontend-sub000/internal/content"
	"github.com/AmoghRisbud/TCC-frontend-sub000/internal/httputil"
	"github.com/AmoghRisbud/TCC-frontend-sub000/internal/kvstore"
	"github.com/AmoghRisbud/TCC-frontend-sub000/pkg/types"
)

// idsParam is the generic bulk-delete parameter accepted by every type.
const idsParam = "ids"

// collectionHandlers serves the admin CRUD routes of one content type.
type collectionHandlers[T any] struct {
	s *Server
	c *content.Collection[T]
}

// mountCollection registers GET/POST/PUT/DELETE on /<type>.
func mountCollection[T any](s *Server, r chi.Router, c *content.Collection[T]) {
	h := collectionHandlers[T]{s: s, c: c}
	r.Route("/"+c.Name(), func(r chi.Router) {
		r.Get("/", h.handleGet)
		r.Post("/", h.handleReplace)
		r.Put("/", h.handleUpsert)
		r.Delete("/", h.handleDelete)
	})
}

func (h collectionHandlers[T]) logger(r *http.Request, handler string) zerolog.Logger {
	return log.Ctx(r.Context()).With().Str("handler", handler).Str("type", h.c.Name()).Logger()
}

// handleGet returns the stored array, or one record when ?<idField>= is
// given.
//
// Response: 200 with the array or the record, or 304 if the ETag matches.
// Errors:  404 if the record does not exist, 503 if the store is down.
func (h collectionHandlers[T]) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.logger(r, "Get")

	if id := strings.TrimSpace(r.URL.Query().Get(h.c.Kind.IDField)); id != "" {
		rec, err := h.c.Repo.Get(ctx, id)
		if err != nil {
			respondError(w, r, logger, err)
			return
		}
		respondCacheable(w, r, rec)
		return
	}

	recs, err := h.c.Repo.List(ctx)
	if err != nil {
		respondError(w, r, logger, err)
		return
	}
	respondCacheable(w, r, recs)
}

// handleReplace overwrites the whole array with the request body.
//
// Response: 200 with the stored count.
// Errors:  400 if the body is not an array of valid, uniquely keyed
// records; 503 if the store is down.
func (h collectionHandlers[T]) handleReplace(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger := h.logger(r, "Replace")

	var recs []T
	if err := decodeShaped(r, '[', "a JSON array of records", &recs); err != nil {
		httputil.RespondProblem(w, r, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.c.Repo.ReplaceAll(r.Context(), recs); err != nil {
		status := respondError(w, r, logger, err)
		h.s.recordWrite(r, h.c.Name(), "replaced", nil, 0, status, err, start)
		return
	}

	ids := make([]string, 0, len(recs))
	for _, rec := range recs {
		ids = append(ids, h.c.Kind.KeyOf(rec))
	}
	logger.Info().Int("count", len(recs)).Msg("content replaced")
	h.s.recordWrite(r, h.c.Name(), "replaced", ids, len(recs), http.StatusOK, nil, start)
	httputil.RespondJSON(w, http.StatusOK, types.ReplaceResult{Count: len(recs)})
}

// handleUpsert creates or replaces one record. A record without a key gets
// one derived from its title.
//
// Response: 201 when created, 200 when replaced.
// Errors:  400 on an invalid record, 503 if the store is down.
func (h collectionHandlers[T]) handleUpsert(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger := h.logger(r, "Upsert")

	var rec T
	if err := decodeShaped(r, '{', "a JSON object", &rec); err != nil {
		httputil.RespondProblem(w, r, http.StatusBadRequest, err.Error())
		return
	}

	stored, created, err := h.c.Repo.Upsert(r.Context(), rec)
	if err != nil {
		status := respondError(w, r, logger, err)
		h.s.recordWrite(r, h.c.Name(), "upserted", nil, 0, status, err, start)
		return
	}

	id := h.c.Kind.KeyOf(stored)
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	logger.Info().Str("id", id).Bool("created", created).Msg("content upserted")
	h.s.recordWrite(r, h.c.Name(), "upserted", []string{id}, 1, status, nil, start)
	httputil.RespondJSON(w, status, types.UpsertResult[T]{Created: created, Record: stored})
}

// handleDelete removes the records named by ?<idField>=a,b or ?ids=a,b.
//
// Response: 200 with deletedCount and deletedIds; unknown ids are ignored.
// Errors:  400 if no id is given, 503 if the store is down.
func (h collectionHandlers[T]) handleDelete(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger := h.logger(r, "Delete")

	ids := deleteIDs(r, h.c.Kind.IDField)
	if len(ids) == 0 {
		httputil.RespondProblemf(w, r, http.StatusBadRequest,
			"no ids given; pass ?%s=a,b or ?%s=a,b", h.c.Kind.IDField, idsParam)
		return
	}

	removed, err := h.c.Repo.Delete(r.Context(), ids)
	if err != nil {
		status := respondError(w, r, logger, err)
		h.s.recordWrite(r, h.c.Name(), "deleted", ids, 0, status, err, start)
		return
	}
	if removed == nil {
		removed = []string{}
	}

	logger.Info().Int("requested", len(ids)).Int("deleted", len(removed)).Msg("content deleted")
	h.s.recordWrite(r, h.c.Name(), "deleted", removed, len(removed), http.StatusOK, nil, start)
	httputil.RespondJSON(w, http.StatusOK, types.DeleteResult{DeletedCount: len(removed), DeletedIDs: removed})
}

// deleteIDs collects comma-separated ids from both accepted parameters,
// keeping request order.
func deleteIDs(r *http.Request, idField string) []string {
	q := r.URL.Query()
	var ids []string
	for _, key := range []string{idField, idsParam} {
		for _, v := range q[key] {
			for _, id := range strings.Split(v, ",") {
				if id = strings.TrimSpace(id); id != "" {
					ids = append(ids, id)
				}
			}
		}
	}
	return ids
}

// decodeShaped decodes a JSON body whose top-level value must open with
// want ('[' or '{').
func decodeShaped(r *http.Request, want byte, shape string, dst any) error {
	var raw json.RawMessage
	if err := httputil.DecodeJSON(r, &raw); err != nil {
		return errors.New("invalid request body: " + err.Error())
	}
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != want {
		return errors.New("request body must be " + shape)
	}
	if err := json.Unmarshal(trimmed, dst); err != nil {
		return errors.New("invalid request body: " + err.Error())
	}
	return nil
}

// respondError maps library errors to a problem response and returns the
// status it wrote.
func respondError(w http.ResponseWriter, r *http.Request, logger zerolog.Logger, err error) int {
	switch {
	case errors.Is(err, content.ErrInvalid):
		httputil.RespondProblem(w, r, http.StatusBadRequest, err.Error())
		return http.StatusBadRequest
	case errors.Is(err, content.ErrNotFound):
		httputil.RespondProblem(w, r, http.StatusNotFound, err.Error())
		return http.StatusNotFound
	case errors.Is(err, kvstore.ErrUnavailable), errors.Is(err, kvstore.ErrUnsupportedScheme):
		logger.Error().Err(err).Msg("content store unavailable")
		httputil.RespondProblem(w, r, http.StatusServiceUnavailable, "content store is unavailable; try again later")
		return http.StatusServiceUnavailable
	default:
		logger.Error().Err(err).Msg("unexpected error")
		httputil.RespondProblem(w, r, http.StatusInternalServerError, "an unexpected error occurred")
		return http.StatusInternalServerError
	}
}

// respondCacheable writes v as JSON with a weak ETag and honours
// If-None-Match.
func respondCacheable(w http.ResponseWriter, r *http.Request, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Ctx(r.Context()).Error().Err(err).Msg("failed to encode response body")
		httputil.RespondProblem(w, r, http.StatusInternalServerError, "an unexpected error occurred")
		return
	}

	etag := computeETag(body)
	w.Header().Set("ETag", etag)
	if etagMatches(r.Header.Values("If-None-Match"), etag) {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(append(body, '\n'))
}

// etagMatches applies the weak comparison of RFC 9110 §13.1.2 to every
// listed If-None-Match value, including "*".
func etagMatches(headers []string, etag string) bool {
	want := strings.TrimPrefix(etag, "W/")
	for _, header := range headers {
		for _, candidate := range strings.Split(header, ",") {
			candidate = strings.TrimSpace(candidate)
			if candidate == "*" || strings.TrimPrefix(candidate, "W/") == want {
				return true
			}
		}
	}
	return false
}

func computeETag(body []byte) string {
	sum := sha256.Sum256(body)
	return `W/"` + hex.EncodeToString(sum[:8]) + `"`
}
