package server

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AmoghRisbud/TCC-frontend-sub000/internal/kvstore"
	"github.com/AmoghRisbud/TCC-frontend-sub000/internal/upload"
	"github.com/AmoghRisbud/TCC-frontend-sub000/pkg/types"
)

var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

// multipartUpload builds a multipart body with one "file" part.
func multipartUpload(t *testing.T, filename, contentType string, data []byte, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="`+filename+`"`)
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &body, mw.FormDataContentType()
}

func (e testEnv) upload(t *testing.T, path string, body *bytes.Buffer, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	e.srv.Router().ServeHTTP(rec, req)
	return rec
}

func uploadedFiles(t *testing.T, env testEnv) []string {
	t.Helper()
	var files []string
	root := filepath.Join(env.cfg.PublicDir, "uploads")
	_ = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err == nil && !d.IsDir() {
			rel, _ := filepath.Rel(root, path)
			files = append(files, filepath.ToSlash(rel))
		}
		return nil
	})
	return files
}

func TestHandleUploadImage(t *testing.T) {
	env := testServer(t, kvstore.NewMemoryStore())
	body, ct := multipartUpload(t, "photo.png", "image/png", pngBytes, map[string]string{"category": "Gallery"})

	rec := env.upload(t, "/api/admin/upload/image", body, ct)
	require.Equal(t, http.StatusCreated, rec.Code)
	result := decodeInto[types.UploadResult](t, rec)
	assert.Regexp(t, `^/uploads/gallery/\d+-[0-9a-f]{8}\.png$`, result.URL)

	served := env.do(t, http.MethodGet, result.URL, "")
	require.Equal(t, http.StatusOK, served.Code)
	assert.Equal(t, pngBytes, served.Body.Bytes())
}

func TestHandleUploadImage_Rejects(t *testing.T) {
	tests := []struct {
		name        string
		filename    string
		contentType string
		data        []byte
		detail      string
	}{
		{name: "svg", filename: "logo.svg", contentType: "image/svg+xml", data: []byte("<svg/>"), detail: "unsupported file type"},
		{name: "pdf", filename: "doc.pdf", contentType: "application/pdf", data: []byte("%PDF-1.7"), detail: "unsupported file type"},
		{name: "over 5MB", filename: "big.png", contentType: "image/png", data: bytes.Repeat([]byte{1}, int(upload.MaxImageSize)+1), detail: "file too large"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			env := testServer(t, kvstore.NewMemoryStore())
			body, ct := multipartUpload(t, tc.filename, tc.contentType, tc.data, nil)

			rec := env.upload(t, "/api/admin/upload/image", body, ct)
			require.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, decodeProblem(t, rec).Detail, tc.detail)
			assert.Empty(t, uploadedFiles(t, env))
		})
	}
}

func TestHandleUploadImage_MissingFile(t *testing.T) {
	env := testServer(t, kvstore.NewMemoryStore())

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("category", "gallery"))
	require.NoError(t, mw.Close())

	rec := env.upload(t, "/api/admin/upload/image", &body, mw.FormDataContentType())
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeProblem(t, rec).Detail, `"file"`)

	notMultipart := env.do(t, http.MethodPost, "/api/admin/upload/image", `{"file":"x"}`)
	assert.Equal(t, http.StatusBadRequest, notMultipart.Code)
}

func TestHandleUploadPDF(t *testing.T) {
	env := testServer(t, kvstore.NewMemoryStore())
	body, ct := multipartUpload(t, "Annual Report.pdf", "application/pdf", []byte("%PDF-1.7\n"), nil)

	rec := env.upload(t, "/api/admin/upload/pdf", body, ct)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Regexp(t, `^/uploads/pdfs/\d+-Annual_Report\.pdf$`, decodeInto[types.UploadResult](t, rec).URL)
	assert.Len(t, uploadedFiles(t, env), 1)
}

func TestHandleUploadPDF_Rejects(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		data        []byte
	}{
		{name: "image", contentType: "image/png", data: pngBytes},
		{name: "over 10MB", contentType: "application/pdf", data: bytes.Repeat([]byte("%"), int(upload.MaxPDFSize)+1)},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			env := testServer(t, kvstore.NewMemoryStore())
			body, ct := multipartUpload(t, "file.pdf", tc.contentType, tc.data, nil)

			rec := env.upload(t, "/api/admin/upload/pdf", body, ct)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Empty(t, uploadedFiles(t, env))
		})
	}
}

func TestHandleUpload_BodyOverLimit(t *testing.T) {
	env := testServer(t, kvstore.NewMemoryStore())
	body, ct := multipartUpload(t, "huge.pdf", "application/pdf", bytes.Repeat([]byte("%"), int(maxUploadBody)+1), nil)

	rec := env.upload(t, "/api/admin/upload/pdf", body, ct)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeProblem(t, rec).Detail, "file too large")
	assert.Empty(t, uploadedFiles(t, env))
}

func TestHandlePDFInfo(t *testing.T) {
	remote := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/report.pdf":
			w.Header().Set("Content-Type", "application/pdf")
			w.Header().Set("Content-Range", "bytes 0-1023/2048")
			w.WriteHeader(http.StatusPartialContent)
			_, _ = w.Write([]byte("%PDF-1.5"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer remote.Close()

	env := testServer(t, kvstore.NewMemoryStore())

	ok := env.do(t, http.MethodPost, "/api/admin/pdf-info", `{"url":"`+remote.URL+`/report.pdf"}`)
	require.Equal(t, http.StatusOK, ok.Code)
	info := decodeInto[types.PDFInfo](t, ok)
	assert.True(t, info.IsPDF)
	assert.Equal(t, int64(2048), info.ContentLength)

	missing := env.do(t, http.MethodPost, "/api/admin/pdf-info", `{"url":"`+remote.URL+`/gone.pdf"}`)
	assert.Equal(t, http.StatusBadGateway, missing.Code)
	assert.Contains(t, decodeProblem(t, missing).Detail, "upload the file instead")

	elsewhere := env.do(t, http.MethodPost, "/api/admin/pdf-info", `{"url":"https://example.org/a.pdf"}`)
	assert.Equal(t, http.StatusBadRequest, elsewhere.Code)

	relative := env.do(t, http.MethodPost, "/api/admin/pdf-info", `{"url":"/uploads/pdfs/a.pdf"}`)
	assert.Equal(t, http.StatusBadRequest, relative.Code)

	noBody := env.do(t, http.MethodPost, "/api/admin/pdf-info", "")
	assert.Equal(t, http.StatusBadRequest, noBody.Code)
}

func TestHandleMigrate(t *testing.T) {
	st := kvstore.NewMemoryStore()
	env := testServer(t, st)

	rec := env.do(t, http.MethodPost, "/api/admin/migrate", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, types.MigrateResult{Counts: map[string]int{
		"programs":     2,
		"research":     1,
		"testimonials": 1,
		"gallery":      1,
		"careers":      2,
		"team":         0,
	}}, decodeInto[types.MigrateResult](t, rec))

	list := decodeInto[[]types.Job](t, env.do(t, http.MethodGet, "/api/admin/careers", ""))
	slugs := make([]string, 0, len(list))
	for _, j := range list {
		slugs = append(slugs, j.Slug)
	}
	assert.ElementsMatch(t, []string{"legal-research-intern", "office-coordinator"}, slugs)

	entries := env.auditEntries(t)
	require.Len(t, entries, 1)
	assert.Equal(t, "migrated", entries[0]["op"])
	assert.EqualValues(t, 7, entries[0]["count"])
}

func TestHandleUploadImage_AuditsFailure(t *testing.T) {
	env := testServer(t, kvstore.NewMemoryStore())
	body, ct := multipartUpload(t, "x.txt", "text/plain", []byte("hello"), nil)

	require.Equal(t, http.StatusBadRequest, env.upload(t, "/api/admin/upload/image", body, ct).Code)

	entries := env.auditEntries(t)
	require.Len(t, entries, 1)
	assert.Equal(t, "uploads", entries[0]["type"])
	assert.Equal(t, "image", entries[0]["op"])
	assert.Equal(t, "error", entries[0]["result"])
	assert.True(t, strings.Contains(entries[0]["error_detail"].(string), "unsupported"))
}
