// Package upload stores admin-uploaded images and PDFs under the public
// directory and probes remote PDF links.
package upload

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Size ceilings.
const (
	MaxImageSize int64 = 5 << 20
	MaxPDFSize   int64 = 10 << 20
)

const (
	// URLPrefix is where PublicDir/uploads is served.
	URLPrefix = "/uploads"

	defaultCategory = "general"
	pdfCategory     = "pdfs"
	maxNameLength   = 100
	tempFilePrefix  = ".upload-"
)

var (
	// ErrUnsupportedType is returned for a MIME type outside the allow-list.
	ErrUnsupportedType = errors.New("unsupported file type")

	// ErrTooLarge is returned when a file exceeds its size ceiling.
	ErrTooLarge = errors.New("file too large")

	// ErrEmpty is returned for a zero-byte upload.
	ErrEmpty = errors.New("file is empty")
)

var imageExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

const pdfMIME = "application/pdf"

// Store writes uploads below <publicDir>/uploads.
type Store struct {
	root    string
	now     func() time.Time
	newName func() string
}

// NewStore returns a Store rooted at publicDir.
func NewStore(publicDir string) *Store {
	return &Store{
		root: filepath.Join(publicDir, "uploads"),
		now:  time.Now,
		newName: func() string {
			return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
		},
	}
}

// Root returns the directory uploads are written to.
func (s *Store) Root() string { return s.root }

// SaveImage validates and stores an image, returning its public URL.
// contentType is the type declared by the client; when it is missing or
// generic the content is sniffed instead.
func (s *Store) SaveImage(r io.Reader, contentType, category string) (string, error) {
	data, err := readLimited(r, MaxImageSize)
	if err != nil {
		return "", err
	}

	mediaType := resolveType(contentType, data)
	ext, ok := imageExtensions[mediaType]
	if !ok {
		return "", fmt.Errorf("%w: %q (allowed: jpeg, png, gif, webp)", ErrUnsupportedType, mediaType)
	}

	category = SanitizeCategory(category)
	name := strconv.FormatInt(s.now().UnixMilli(), 10) + "-" + s.newName() + ext
	if err := s.write(category, name, data); err != nil {
		return "", err
	}
	return URLPrefix + "/" + category + "/" + name, nil
}

// SavePDF validates and stores a PDF, returning its public URL. The file
// name keeps a sanitized form of originalName.
func (s *Store) SavePDF(r io.Reader, contentType, originalName string) (string, error) {
	data, err := readLimited(r, MaxPDFSize)
	if err != nil {
		return "", err
	}

	if mediaType := resolveType(contentType, data); mediaType != pdfMIME {
		return "", fmt.Errorf("%w: %q (only PDF files are allowed)", ErrUnsupportedType, mediaType)
	}

	name := strconv.FormatInt(s.now().UnixMilli(), 10) + "-" + sanitizeFileName(originalName) + ".pdf"
	if err := s.write(pdfCategory, name, data); err != nil {
		return "", err
	}
	return URLPrefix + "/" + pdfCategory + "/" + name, nil
}

func (s *Store) write(category, name string, data []byte) error {
	dir := filepath.Join(s.root, category)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating upload directory: %w", err)
	}
	return writeFileAtomic(filepath.Join(dir, name), data, 0o644)
}

// readLimited reads at most limit bytes and fails with ErrTooLarge when
// the input is longer.
func readLimited(r io.Reader, limit int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, fmt.Errorf("reading upload: %w", err)
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%w: maximum is %d MB", ErrTooLarge, limit>>20)
	}
	if len(data) == 0 {
		return nil, ErrEmpty
	}
	return data, nil
}

func resolveType(declared string, data []byte) string {
	if declared != "" {
		if mediaType, _, err := mime.ParseMediaType(declared); err == nil && mediaType != "application/octet-stream" {
			return strings.ToLower(mediaType)
		}
	}
	sniffed, _, _ := mime.ParseMediaType(http.DetectContentType(data))
	return sniffed
}

// SanitizeCategory keeps [a-z0-9-], turning anything else into '-'. An
// empty result becomes "general".
func SanitizeCategory(category string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(category)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case b.Len() > 0 && !strings.HasSuffix(b.String(), "-"):
			b.WriteByte('-')
		}
	}
	out := strings.Trim(b.String(), "-")
	if out == "" {
		return defaultCategory
	}
	return out
}

func sanitizeFileName(name string) string {
	base := filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	base = strings.TrimSuffix(base, filepath.Ext(base))

	out := []byte(base)
	for i, c := range out {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-', c == '_':
		default:
			out[i] = '_'
		}
	}
	cleaned := strings.Trim(string(out), "_")
	if len(cleaned) > maxNameLength {
		cleaned = cleaned[:maxNameLength]
	}
	if cleaned == "" {
		return "document"
	}
	return cleaned
}

// writeFileAtomic writes data to a temp file in the target directory and
// renames it into place, so readers never see a partial file.
func writeFileAtomic(filename string, data []byte, perm os.FileMode) error {
	tmpFile, err := os.CreateTemp(filepath.Dir(filename), tempFilePrefix+"*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmpFile.Name())

	if _, err := io.Copy(tmpFile, bytes.NewReader(data)); err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to write to temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tmpFile.Name(), perm); err != nil {
		return fmt.Errorf("failed to chmod temp file: %w", err)
	}
	if err := os.Rename(tmpFile.Name(), filename); err != nil {
		return fmt.Errorf("failed to rename temp file to %s: %w", filename, err)
	}
	return nil
}
