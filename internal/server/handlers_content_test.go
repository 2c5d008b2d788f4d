package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AmoghRisbud/TCC-frontend-sub000/internal/kvstore"
	"github.com/AmoghRisbud/TCC-frontend-sub000/pkg/types"
)

const twoPrograms = `[
	{"slug":"arbitration-law","title":"Arbitration Law","status":"upcoming","featured":true},
	{"slug":"moot-court","title":"Moot Court Training","status":"completed"}
]`

func decodeInto[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v))
	return v
}

// ---------------------------------------------------------------------------
// GET /api/admin/<type>
// ---------------------------------------------------------------------------

func TestHandleGet_EmptyStoreIsEmptyArray(t *testing.T) {
	env := testServer(t, kvstore.NewMemoryStore())

	rec := env.do(t, http.MethodGet, "/api/admin/research", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestHandleGet_OneRecord(t *testing.T) {
	env := testServer(t, kvstore.NewMemoryStore())
	require.Equal(t, http.StatusOK, env.do(t, http.MethodPost, "/api/admin/programs", twoPrograms).Code)

	rec := env.do(t, http.MethodGet, "/api/admin/programs?slug=moot-court", "")
	require.Equal(t, http.StatusOK, rec.Code)
	got := decodeInto[types.Program](t, rec)
	assert.Equal(t, "Moot Court Training", got.Title)

	missing := env.do(t, http.MethodGet, "/api/admin/programs?slug=nonexistent", "")
	assert.Equal(t, http.StatusNotFound, missing.Code)
	assert.Contains(t, decodeProblem(t, missing).Detail, "nonexistent")
}

func TestHandleGet_ETag(t *testing.T) {
	env := testServer(t, kvstore.NewMemoryStore())
	require.Equal(t, http.StatusOK, env.do(t, http.MethodPost, "/api/admin/programs", twoPrograms).Code)

	first := env.do(t, http.MethodGet, "/api/admin/programs", "")
	etag := first.Header().Get("ETag")
	require.NotEmpty(t, etag)

	req := httptest.NewRequest(http.MethodGet, "/api/admin/programs", nil)
	req.Header.Set("If-None-Match", etag)
	rec := httptest.NewRecorder()
	env.srv.Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotModified, rec.Code)
	assert.Empty(t, rec.Body.String())
}

func TestHandleGet_IfNoneMatchForms(t *testing.T) {
	env := testServer(t, kvstore.NewMemoryStore())
	require.Equal(t, http.StatusOK, env.do(t, http.MethodPost, "/api/admin/programs", twoPrograms).Code)

	etag := env.do(t, http.MethodGet, "/api/admin/programs", "").Header().Get("ETag")
	require.True(t, strings.HasPrefix(etag, `W/"`))
	strong := strings.TrimPrefix(etag, "W/")

	tests := []struct {
		name   string
		header []string
		want   int
	}{
		{name: "list containing the tag", header: []string{`W/"other", ` + etag}, want: http.StatusNotModified},
		{name: "wildcard", header: []string{"*"}, want: http.StatusNotModified},
		{name: "strong form of the tag", header: []string{strong}, want: http.StatusNotModified},
		{name: "repeated header", header: []string{`W/"other"`, etag}, want: http.StatusNotModified},
		{name: "stale tags only", header: []string{`W/"a", W/"b"`}, want: http.StatusOK},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/admin/programs", nil)
			for _, h := range tc.header {
				req.Header.Add("If-None-Match", h)
			}
			rec := httptest.NewRecorder()
			env.srv.Router().ServeHTTP(rec, req)
			assert.Equal(t, tc.want, rec.Code)
		})
	}
}

// ---------------------------------------------------------------------------
// POST /api/admin/<type>
// ---------------------------------------------------------------------------

func TestHandleReplace(t *testing.T) {
	env := testServer(t, kvstore.NewMemoryStore())

	rec := env.do(t, http.MethodPost, "/api/admin/programs", twoPrograms)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, types.ReplaceResult{Count: 2}, decodeInto[types.ReplaceResult](t, rec))

	list := decodeInto[[]types.Program](t, env.do(t, http.MethodGet, "/api/admin/programs", ""))
	require.Len(t, list, 2)
	assert.Equal(t, "arbitration-law", list[0].Slug)
}

func TestHandleReplace_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		body   string
		detail string
	}{
		{name: "object instead of array", path: "/api/admin/programs", body: `{"slug":"a","title":"A"}`, detail: "JSON array"},
		{name: "null", path: "/api/admin/programs", body: `null`, detail: "JSON array"},
		{name: "malformed json", path: "/api/admin/programs", body: `[{"slug":`, detail: "invalid request body"},
		{name: "bad slug", path: "/api/admin/programs", body: `[{"slug":"bad slug!","title":"A"}]`, detail: "slug"},
		{name: "missing title", path: "/api/admin/programs", body: `[{"slug":"a"}]`, detail: "title"},
		{name: "duplicate keys", path: "/api/admin/programs", body: `[{"slug":"a","title":"A"},{"slug":"a","title":"B"}]`, detail: "a"},
		{name: "rating out of range", path: "/api/admin/testimonials", body: `[{"id":"t1","name":"N","quote":"Q","rating":6}]`, detail: "rating"},
		{name: "gallery without images", path: "/api/admin/gallery", body: `[{"id":"g1","title":"G","images":[]}]`, detail: "image"},
		{name: "bad job category", path: "/api/admin/careers", body: `[{"slug":"j","title":"J","category":"volunteer","status":"open"}]`, detail: "category"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			env := testServer(t, kvstore.NewMemoryStore())

			rec := env.do(t, http.MethodPost, tc.path, tc.body)
			require.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, decodeProblem(t, rec).Detail, tc.detail)

			list := env.do(t, http.MethodGet, tc.path, "")
			assert.JSONEq(t, `[]`, list.Body.String(), "nothing is written")
		})
	}
}

// ---------------------------------------------------------------------------
// PUT /api/admin/<type>
// ---------------------------------------------------------------------------

func TestHandleUpsert_AppendsNewProgram(t *testing.T) {
	env := testServer(t, kvstore.NewMemoryStore())
	require.Equal(t, http.StatusOK, env.do(t, http.MethodPost, "/api/admin/programs", twoPrograms).Code)
	before := decodeInto[[]types.Program](t, env.do(t, http.MethodGet, "/api/admin/programs", ""))

	rec := env.do(t, http.MethodPut, "/api/admin/programs", `{"slug":"constitutional-law","title":"Constitutional Law","status":"ongoing"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	result := decodeInto[types.UpsertResult[types.Program]](t, rec)
	assert.True(t, result.Created)
	assert.Equal(t, "constitutional-law", result.Record.Slug)

	after := decodeInto[[]types.Program](t, env.do(t, http.MethodGet, "/api/admin/programs", ""))
	require.Len(t, after, 3)
	assert.Equal(t, before, after[:2], "existing programs are untouched")
	assert.Equal(t, "Constitutional Law", after[2].Title)
}

func TestHandleUpsert_ReplacesInPlace(t *testing.T) {
	env := testServer(t, kvstore.NewMemoryStore())
	require.Equal(t, http.StatusOK, env.do(t, http.MethodPost, "/api/admin/programs", twoPrograms).Code)

	rec := env.do(t, http.MethodPut, "/api/admin/programs", `{"slug":"arbitration-law","title":"Arbitration Law II","status":"ongoing"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decodeInto[types.UpsertResult[types.Program]](t, rec).Created)

	got := decodeInto[types.Program](t, env.do(t, http.MethodGet, "/api/admin/programs?slug=arbitration-law", ""))
	assert.Equal(t, "Arbitration Law II", got.Title)

	list := decodeInto[[]types.Program](t, env.do(t, http.MethodGet, "/api/admin/programs", ""))
	require.Len(t, list, 2)
	assert.Equal(t, "arbitration-law", list[0].Slug)
}

func TestHandleUpsert_GeneratesKey(t *testing.T) {
	env := testServer(t, kvstore.NewMemoryStore())

	rec := env.do(t, http.MethodPut, "/api/admin/team", `{"name":"Meera Iyer","role":"Director"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "meera-iyer", decodeInto[types.UpsertResult[types.TeamMember]](t, rec).Record.Slug)

	rec = env.do(t, http.MethodPut, "/api/admin/testimonials", `{"name":"Priya Menon","quote":"Great.","rating":5}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Regexp(t, `^priya-menon-\d+$`, decodeInto[types.UpsertResult[types.Testimonial]](t, rec).Record.ID)
}

func TestHandleUpsert_Rejects(t *testing.T) {
	env := testServer(t, kvstore.NewMemoryStore())

	array := env.do(t, http.MethodPut, "/api/admin/programs", `[{"slug":"a","title":"A"}]`)
	assert.Equal(t, http.StatusBadRequest, array.Code)
	assert.Contains(t, decodeProblem(t, array).Detail, "JSON object")

	noTitle := env.do(t, http.MethodPut, "/api/admin/programs", `{"status":"upcoming"}`)
	assert.Equal(t, http.StatusBadRequest, noTitle.Code)

	badStatus := env.do(t, http.MethodPut, "/api/admin/careers", `{"slug":"j","title":"J","category":"job","status":"archived"}`)
	assert.Equal(t, http.StatusBadRequest, badStatus.Code)
}

// ---------------------------------------------------------------------------
// DELETE /api/admin/<type>
// ---------------------------------------------------------------------------

func TestHandleDelete_Single(t *testing.T) {
	env := testServer(t, kvstore.NewMemoryStore())
	require.Equal(t, http.StatusOK, env.do(t, http.MethodPost, "/api/admin/programs", twoPrograms).Code)

	rec := env.do(t, http.MethodDelete, "/api/admin/programs?slug=moot-court", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, types.DeleteResult{DeletedCount: 1, DeletedIDs: []string{"moot-court"}}, decodeInto[types.DeleteResult](t, rec))

	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodGet, "/api/admin/programs?slug=moot-court", "").Code)

	again := env.do(t, http.MethodDelete, "/api/admin/programs?slug=moot-court", "")
	require.Equal(t, http.StatusOK, again.Code)
	assert.JSONEq(t, `{"deletedCount":0,"deletedIds":[]}`, again.Body.String())
}

func TestHandleDelete_BulkReportsOnlyExisting(t *testing.T) {
	env := testServer(t, kvstore.NewMemoryStore())
	seed := `[
		{"id":"a","name":"A","quote":"qa","rating":5},
		{"id":"c","name":"C","quote":"qc","rating":4},
		{"id":"d","name":"D","quote":"qd","rating":3}
	]`
	require.Equal(t, http.StatusOK, env.do(t, http.MethodPost, "/api/admin/testimonials", seed).Code)

	rec := env.do(t, http.MethodDelete, "/api/admin/testimonials?ids=a,b,c", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"deletedCount":2,"deletedIds":["a","c"]}`, rec.Body.String())

	left := decodeInto[[]types.Testimonial](t, env.do(t, http.MethodGet, "/api/admin/testimonials", ""))
	require.Len(t, left, 1)
	assert.Equal(t, "d", left[0].ID)
}

func TestHandleDelete_KeyFieldParam(t *testing.T) {
	env := testServer(t, kvstore.NewMemoryStore())
	require.Equal(t, http.StatusOK, env.do(t, http.MethodPost, "/api/admin/programs", twoPrograms).Code)

	rec := env.do(t, http.MethodDelete, "/api/admin/programs?slug=moot-court,%20arbitration-law", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"deletedCount":2,"deletedIds":["moot-court","arbitration-law"]}`, rec.Body.String())
}

func TestHandleDelete_NoIDs(t *testing.T) {
	env := testServer(t, kvstore.NewMemoryStore())

	rec := env.do(t, http.MethodDelete, "/api/admin/gallery?ids=,,", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeProblem(t, rec).Detail, "?id=a,b")
}

// ---------------------------------------------------------------------------
// Store failures and audit
// ---------------------------------------------------------------------------

func TestHandlers_StoreDown(t *testing.T) {
	env := testServer(t, downStore{})

	tests := []struct {
		method string
		target string
		body   string
	}{
		{method: http.MethodGet, target: "/api/admin/programs"},
		{method: http.MethodPost, target: "/api/admin/programs", body: twoPrograms},
		{method: http.MethodPut, target: "/api/admin/programs", body: `{"slug":"a","title":"A"}`},
		{method: http.MethodDelete, target: "/api/admin/programs?slug=a"},
		{method: http.MethodPost, target: "/api/admin/migrate"},
	}
	for _, tc := range tests {
		t.Run(tc.method+" "+tc.target, func(t *testing.T) {
			rec := env.do(t, tc.method, tc.target, tc.body)
			assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
			assert.Equal(t, http.StatusServiceUnavailable, decodeProblem(t, rec).Status)
		})
	}

	// Public pages still render from markdown.
	page := env.do(t, http.MethodGet, "/programs", "")
	assert.Equal(t, http.StatusOK, page.Code)
	assert.Contains(t, page.Body.String(), "Moot Court Training")
}

func TestHandlers_AuditWrites(t *testing.T) {
	env := testServer(t, kvstore.NewMemoryStore())

	require.Equal(t, http.StatusCreated, env.do(t, http.MethodPut, "/api/admin/programs", `{"slug":"a","title":"A"}`).Code)
	require.Equal(t, http.StatusBadRequest, env.do(t, http.MethodPut, "/api/admin/programs", `{"slug":"b"}`).Code)
	env.do(t, http.MethodGet, "/api/admin/programs", "")

	entries := env.auditEntries(t)
	require.Len(t, entries, 2, "reads are not audited")

	assert.Equal(t, "dev@localhost", entries[0]["actor"])
	assert.Equal(t, "programs", entries[0]["type"])
	assert.Equal(t, "upserted", entries[0]["op"])
	assert.Equal(t, "success", entries[0]["result"])
	assert.Equal(t, []any{"a"}, entries[0]["ids"])
	assert.NotEmpty(t, entries[0]["request_id"])

	assert.Equal(t, "error", entries[1]["result"])
	assert.EqualValues(t, http.StatusBadRequest, entries[1]["status"])
}
