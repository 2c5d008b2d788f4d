package upload

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/AmoghRisbud/TCC-frontend-sub000/pkg/types"
)

const (
	probeBytes     = 1024
	maxRedirects   = 5
	probeUserAgent = "tcc-site-pdf-probe/1.0"
)

var (
	// ErrInvalidURL is returned for a link that is not absolute http(s).
	ErrInvalidURL = errors.New("invalid url")

	// ErrHostNotAllowed is returned when the link's host is not on the
	// allow-list.
	ErrHostNotAllowed = errors.New("host not allowed")

	// ErrUpstream wraps every failure talking to the remote host.
	ErrUpstream = errors.New("could not fetch the PDF link; upload the file instead")
)

var pdfSignature = []byte("%PDF")

// Prober checks what a remote PDF link actually serves by fetching its
// first bytes.
type Prober struct {
	client  *http.Client
	allowed []string
}

// NewProber returns a Prober limited to allowedHosts (exact host or any
// subdomain of one).
func NewProber(allowedHosts []string, timeout time.Duration) *Prober {
	p := &Prober{allowed: normalizeHosts(allowedHosts)}
	p.client = &http.Client{
		Timeout: timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return fmt.Errorf("stopped after %d redirects", maxRedirects)
			}
			if !p.HostAllowed(req.URL.Hostname()) {
				return fmt.Errorf("%w: redirect to %s", ErrHostNotAllowed, req.URL.Hostname())
			}
			return nil
		},
	}
	return p
}

// HostAllowed reports whether host is on the allow-list.
func (p *Prober) HostAllowed(host string) bool {
	host = strings.ToLower(strings.TrimSuffix(host, "."))
	for _, allowed := range p.allowed {
		if host == allowed || strings.HasSuffix(host, "."+allowed) {
			return true
		}
	}
	return false
}

// Probe fetches the first bytes of rawURL with a Range request.
func (p *Prober) Probe(ctx context.Context, rawURL string) (types.PDFInfo, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return types.PDFInfo{}, fmt.Errorf("%w: %q must be an absolute http(s) link", ErrInvalidURL, rawURL)
	}
	if !p.HostAllowed(u.Hostname()) {
		return types.PDFInfo{}, fmt.Errorf("%w: %s", ErrHostNotAllowed, u.Hostname())
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return types.PDFInfo{}, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	req.Header.Set("Range", "bytes=0-"+strconv.Itoa(probeBytes-1))
	req.Header.Set("User-Agent", probeUserAgent)

	resp, err := p.client.Do(req)
	if err != nil {
		if errors.Is(err, ErrHostNotAllowed) {
			return types.PDFInfo{}, err
		}
		return types.PDFInfo{}, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusPartialContent {
		return types.PDFInfo{}, fmt.Errorf("%w: remote answered %s", ErrUpstream, resp.Status)
	}

	head, err := io.ReadAll(io.LimitReader(resp.Body, probeBytes))
	if err != nil {
		return types.PDFInfo{}, fmt.Errorf("%w: reading body: %v", ErrUpstream, err)
	}

	return types.PDFInfo{
		URL:           u.String(),
		ContentType:   resp.Header.Get("Content-Type"),
		ContentLength: totalLength(resp),
		IsPDF:         bytes.HasPrefix(bytes.TrimLeft(head, " \t\r\n"), pdfSignature),
	}, nil
}

// totalLength prefers the full size from Content-Range over the length of
// the partial body.
func totalLength(resp *http.Response) int64 {
	if cr := resp.Header.Get("Content-Range"); cr != "" {
		if i := strings.LastIndexByte(cr, '/'); i >= 0 {
			if n, err := strconv.ParseInt(cr[i+1:], 10, 64); err == nil {
				return n
			}
		}
	}
	return resp.ContentLength
}

func normalizeHosts(hosts []string) []string {
	out := make([]string, 0, len(hosts))
	for _, h := range hosts {
		h = strings.ToLower(strings.TrimSpace(h))
		if h != "" {
			out = append(out, h)
		}
	}
	return out
}
