package server

import (
	"errors"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/AmoghRisbud/TCC-frontend-sub000/internal/audit"
	"github.com/AmoghRisbud/TCC-frontend-sub000/internal/auth"
	"github.com/AmoghRisbud/TCC-frontend-sub000/internal/httputil"
	"github.com/AmoghRisbud/TCC-frontend-sub000/internal/upload"
	"github.com/AmoghRisbud/TCC-frontend-sub000/pkg/types"
)

const (
	fileField     = "file"
	categoryField = "category"

	// uploadMemory is how much of a multipart body is kept in memory before
	// spilling to temp files.
	uploadMemory = 8 << 20
)

// handleUploadImage stores a multipart "file" under the optional
// "category".
//
// Response: 201 with the public URL.
// Errors:  400 on a missing file, wrong type or oversized file.
func (s *Server) handleUploadImage(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger := log.Ctx(r.Context()).With().Str("handler", "UploadImage").Logger()

	file, header, err := formFile(r)
	if err != nil {
		httputil.RespondProblem(w, r, http.StatusBadRequest, err.Error())
		return
	}
	defer file.Close()

	url, err := s.uploads.SaveImage(file, header.Header.Get("Content-Type"), r.FormValue(categoryField))
	if err != nil {
		status := uploadStatus(err)
		if status == http.StatusInternalServerError {
			logger.Error().Err(err).Msg("failed to store image")
			httputil.RespondProblem(w, r, status, "failed to store the uploaded file")
		} else {
			httputil.RespondProblem(w, r, status, err.Error())
		}
		s.recordWrite(r, "uploads", "image", nil, 0, status, err, start)
		return
	}

	logger.Info().Str("url", url).Int64("size", header.Size).Msg("image uploaded")
	s.recordWrite(r, "uploads", "image", []string{url}, 1, http.StatusCreated, nil, start)
	httputil.RespondJSON(w, http.StatusCreated, types.UploadResult{URL: url})
}

// handleUploadPDF stores a multipart "file" that must be a PDF.
//
// Response: 201 with the public URL.
// Errors:  400 on a missing file, non-PDF or oversized file.
func (s *Server) handleUploadPDF(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger := log.Ctx(r.Context()).With().Str("handler", "UploadPDF").Logger()

	file, header, err := formFile(r)
	if err != nil {
		httputil.RespondProblem(w, r, http.StatusBadRequest, err.Error())
		return
	}
	defer file.Close()

	url, err := s.uploads.SavePDF(file, header.Header.Get("Content-Type"), header.Filename)
	if err != nil {
		status := uploadStatus(err)
		if status == http.StatusInternalServerError {
			logger.Error().Err(err).Msg("failed to store PDF")
			httputil.RespondProblem(w, r, status, "failed to store the uploaded file")
		} else {
			httputil.RespondProblem(w, r, status, err.Error())
		}
		s.recordWrite(r, "uploads", "pdf", nil, 0, status, err, start)
		return
	}

	logger.Info().Str("url", url).Int64("size", header.Size).Msg("pdf uploaded")
	s.recordWrite(r, "uploads", "pdf", []string{url}, 1, http.StatusCreated, nil, start)
	httputil.RespondJSON(w, http.StatusCreated, types.UploadResult{URL: url})
}

// handlePDFInfo probes a remote PDF link on an allow-listed host.
//
// Response: 200 with the probe result.
// Errors:  400 on a malformed or disallowed link, 502 if the host cannot
// be fetched.
func (s *Server) handlePDFInfo(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context()).With().Str("handler", "PDFInfo").Logger()

	var req types.PDFInfoRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.RespondProblemf(w, r, http.StatusBadRequest, "invalid request body: %v", err)
		return
	}

	info, err := s.prober.Probe(r.Context(), req.URL)
	if err != nil {
		switch {
		case errors.Is(err, upload.ErrInvalidURL), errors.Is(err, upload.ErrHostNotAllowed):
			httputil.RespondProblem(w, r, http.StatusBadRequest, err.Error())
		case errors.Is(err, upload.ErrUpstream):
			logger.Warn().Err(err).Str("url", req.URL).Msg("pdf probe failed")
			httputil.RespondProblem(w, r, http.StatusBadGateway, upload.ErrUpstream.Error())
		default:
			logger.Error().Err(err).Msg("unexpected probe error")
			httputil.RespondProblem(w, r, http.StatusInternalServerError, "an unexpected error occurred")
		}
		return
	}

	httputil.RespondJSON(w, http.StatusOK, info)
}

// handleMigrate copies every markdown directory into the store.
//
// Response: 200 with per-type counts.
// Errors:  503 if the store is down.
func (s *Server) handleMigrate(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger := log.Ctx(r.Context()).With().Str("handler", "Migrate").Logger()

	counts, err := s.catalog.Migrate(r.Context())
	if err != nil {
		status := respondError(w, r, logger, err)
		s.recordWrite(r, "all", "migrated", nil, 0, status, err, start)
		return
	}

	total := 0
	for _, n := range counts {
		total += n
	}
	s.recordWrite(r, "all", "migrated", nil, total, http.StatusOK, nil, start)
	httputil.RespondJSON(w, http.StatusOK, types.MigrateResult{Counts: counts})
}

// formFile returns the "file" part, translating an oversized body into an
// upload error.
func formFile(r *http.Request) (multipart.File, *multipart.FileHeader, error) {
	if err := r.ParseMultipartForm(uploadMemory); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, nil, upload.ErrTooLarge
		}
		return nil, nil, errors.New("request must be multipart/form-data with a \"file\" field")
	}
	file, header, err := r.FormFile(fileField)
	if err != nil {
		return nil, nil, errors.New("missing \"file\" field")
	}
	return file, header, nil
}

func uploadStatus(err error) int {
	switch {
	case errors.Is(err, upload.ErrUnsupportedType), errors.Is(err, upload.ErrTooLarge), errors.Is(err, upload.ErrEmpty):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// recordWrite writes one audit entry for an admin write.
func (s *Server) recordWrite(r *http.Request, typ, op string, ids []string, count, status int, err error, start time.Time) {
	w := audit.Write{
		RequestID: httputil.RequestIDFromContext(r.Context()),
		Type:      typ,
		Op:        op,
		IDs:       ids,
		Count:     count,
		Status:    status,
		Duration:  time.Since(start),
	}
	if sess, ok := auth.FromContext(r.Context()); ok {
		w.Actor = sess.Email
	}
	if err != nil {
		w.ErrorDetail = err.Error()
	}
	s.audit.Record(w)
}
