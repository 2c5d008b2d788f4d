// Package client is a typed HTTP client for the site's admin API. It is
// used by the tcc CLI to drive a running server.
//
// Conventions:
//   - Every method accepts context.Context for cancellation and timeouts.
//   - Errors are parsed as RFC 9457 Problem Details when the server
//     returns a 4xx or 5xx status.
//   - A redirect from the admin gate is reported as ErrNotSignedIn or
//     ErrAccessDenied instead of being followed.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/AmoghRisbud/TCC-frontend-sub000/pkg/types"
)

const (
	apiPrefix = "/api/admin"

	// sessionCookieName matches the cookie the server issues after sign-in.
	sessionCookieName = "tcc_session"

	deniedPath = "/auth/denied"

	defaultTimeout = 30 * time.Second
	retryBackoff   = 200 * time.Millisecond
)

var (
	// ErrNotSignedIn is returned when the gate redirects to sign-in.
	ErrNotSignedIn = errors.New("client: not signed in")

	// ErrAccessDenied is returned when the signed-in account is not an
	// administrator.
	ErrAccessDenied = errors.New("client: access denied")
)

// Config holds the client configuration.
type Config struct {
	// BaseURL is the site origin, e.g. "https://tcc.example.org".
	BaseURL string

	// SessionCookie is the value of a signed-in admin's session cookie.
	// Servers running in dev mode accept requests without one.
	SessionCookie string

	// Timeout is the per-request timeout. Defaults to 30 seconds.
	Timeout time.Duration

	// MaxRetries is how many times a read is retried after a 502, 503,
	// 504 or transport error. Writes are never retried.
	MaxRetries int

	// HTTPClient is an optional custom http.Client. Its redirect policy
	// is replaced.
	HTTPClient *http.Client
}

// Problem is an RFC 9457 error body.
type Problem struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`
}

// APIError is returned for any 4xx or 5xx answer.
type APIError struct {
	StatusCode int
	Problem    Problem
}

func (e *APIError) Error() string {
	if e.Problem.Detail != "" {
		return fmt.Sprintf("%d %s: %s", e.StatusCode, http.StatusText(e.StatusCode), e.Problem.Detail)
	}
	return fmt.Sprintf("%d %s", e.StatusCode, http.StatusText(e.StatusCode))
}

// IsNotFound reports whether err is a 404 from the server.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// Client talks to one site.
type Client struct {
	cfg  Config
	base *url.URL
	http *http.Client
}

// New creates a Client with the given configuration.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("client: BaseURL is required")
	}
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("client: invalid BaseURL %q", cfg.BaseURL)
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}

	httpClient := &http.Client{}
	if cfg.HTTPClient != nil {
		copied := *cfg.HTTPClient
		httpClient = &copied
	}
	httpClient.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}

	return &Client{cfg: cfg, base: base, http: httpClient}, nil
}

// Health checks the server's liveness probe.
func (c *Client) Health(ctx context.Context) error {
	if err := c.do(ctx, http.MethodGet, "/health", nil, "", nil); err != nil {
		return fmt.Errorf("checking health: %w", err)
	}
	return nil
}

// Migrate copies the server's markdown content into its store.
func (c *Client) Migrate(ctx context.Context) (types.MigrateResult, error) {
	var result types.MigrateResult
	if err := c.do(ctx, http.MethodPost, apiPrefix+"/migrate", nil, "", &result); err != nil {
		return types.MigrateResult{}, fmt.Errorf("migrating content: %w", err)
	}
	return result, nil
}

// PDFInfo asks the server to probe a remote PDF link.
func (c *Client) PDFInfo(ctx context.Context, link string) (types.PDFInfo, error) {
	body, err := json.Marshal(types.PDFInfoRequest{URL: link})
	if err != nil {
		return types.PDFInfo{}, err
	}
	var info types.PDFInfo
	if err := c.do(ctx, http.MethodPost, apiPrefix+"/pdf-info", body, "application/json", &info); err != nil {
		return types.PDFInfo{}, fmt.Errorf("probing %s: %w", link, err)
	}
	return info, nil
}

// UploadImage uploads an image into category and returns its public URL.
func (c *Client) UploadImage(ctx context.Context, filename string, r io.Reader, category string) (types.UploadResult, error) {
	fields := map[string]string{}
	if category != "" {
		fields["category"] = category
	}
	return c.upload(ctx, "/upload/image", filename, r, fields)
}

// UploadPDF uploads a PDF and returns its public URL.
func (c *Client) UploadPDF(ctx context.Context, filename string, r io.Reader) (types.UploadResult, error) {
	return c.upload(ctx, "/upload/pdf", filename, r, nil)
}

func (c *Client) upload(ctx context.Context, path, filename string, r io.Reader, fields map[string]string) (types.UploadResult, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			return types.UploadResult{}, err
		}
	}

	contentType := mime.TypeByExtension(strings.ToLower(filepath.Ext(filename)))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filepath.Base(filename)))
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	if err != nil {
		return types.UploadResult{}, err
	}
	if _, err := io.Copy(part, r); err != nil {
		return types.UploadResult{}, fmt.Errorf("reading %s: %w", filename, err)
	}
	if err := mw.Close(); err != nil {
		return types.UploadResult{}, err
	}

	var result types.UploadResult
	if err := c.do(ctx, http.MethodPost, apiPrefix+path, buf.Bytes(), mw.FormDataContentType(), &result); err != nil {
		return types.UploadResult{}, fmt.Errorf("uploading %s: %w", filename, err)
	}
	return result, nil
}

// do sends one request and decodes a JSON answer into out when non-nil.
func (c *Client) do(ctx context.Context, method, path string, body []byte, contentType string, out any) error {
	attempts := 1
	if method == http.MethodGet {
		attempts += c.cfg.MaxRetries
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(retryBackoff << (attempt - 1)):
			}
		}

		retry, err := c.attempt(ctx, method, path, body, contentType, out)
		if err == nil || !retry {
			return err
		}
		lastErr = err
	}
	return lastErr
}

func (c *Client) attempt(ctx context.Context, method, path string, body []byte, contentType string, out any) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base.String()+path, reader)
	if err != nil {
		return false, err
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.cfg.SessionCookie != "" {
		req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: c.cfg.SessionCookie})
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return true, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 300 && resp.StatusCode < 400:
		if strings.HasPrefix(resp.Header.Get("Location"), deniedPath) {
			return false, ErrAccessDenied
		}
		return false, ErrNotSignedIn
	case resp.StatusCode >= 400:
		return retryable(resp.StatusCode), decodeProblem(resp)
	}

	if out == nil {
		return false, nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return false, fmt.Errorf("decoding response: %w", err)
	}
	return false, nil
}

func retryable(status int) bool {
	return status == http.StatusBadGateway || status == http.StatusServiceUnavailable || status == http.StatusGatewayTimeout
}

func decodeProblem(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err := json.Unmarshal(data, &apiErr.Problem); err != nil {
		apiErr.Problem = Problem{Status: resp.StatusCode, Detail: strings.TrimSpace(string(data))}
	}
	return apiErr
}
