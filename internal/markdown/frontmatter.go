// Package markdown reads content records from markdown files with a YAML
// front-matter block, renders markdown bodies to HTML and watches content
// directories for changes.
package markdown

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/adrg/frontmatter"
	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

// Extension is the file suffix of content files.
const Extension = ".md"

var yamlFormat = frontmatter.NewFormat("---", "---", yaml.Unmarshal)

// File is one parsed content file.
type File[T any] struct {
	// Key is the filename without its extension.
	Key string
	// Path is the file's location on disk.
	Path string
	// Meta is the decoded front-matter.
	Meta T
	// Body is the markdown after the front-matter block, trimmed.
	Body string
}

// Parse decodes the front-matter of r into a T and returns the remaining
// body. A file without front-matter yields a zero T and the whole input as
// body.
func Parse[T any](r io.Reader) (T, string, error) {
	var meta T
	body, err := frontmatter.Parse(r, &meta, yamlFormat)
	if err != nil {
		return meta, "", fmt.Errorf("parsing front-matter: %w", err)
	}
	return meta, strings.TrimSpace(string(body)), nil
}

// ParseFile reads and parses the file at path.
func ParseFile[T any](path string) (File[T], error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return File[T]{}, fmt.Errorf("reading %s: %w", path, err)
	}

	meta, body, err := Parse[T](bytes.NewReader(raw))
	if err != nil {
		return File[T]{}, fmt.Errorf("%s: %w", path, err)
	}

	return File[T]{
		Key:  KeyFromPath(path),
		Path: path,
		Meta: meta,
		Body: body,
	}, nil
}

// LoadDir parses every *.md file directly inside dir, sorted by filename.
// A missing directory yields no files and no error.
func LoadDir[T any](dir string) ([]File[T], error) {
	info, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading content directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("content path %s is not a directory", dir)
	}

	matches, err := doublestar.Glob(os.DirFS(dir), "*"+Extension)
	if err != nil {
		return nil, fmt.Errorf("globbing %s: %w", dir, err)
	}
	sort.Strings(matches)

	files := make([]File[T], 0, len(matches))
	for _, name := range matches {
		path := filepath.Join(dir, filepath.FromSlash(name))
		if st, err := os.Stat(path); err != nil || st.IsDir() {
			continue
		}
		f, err := ParseFile[T](path)
		if err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return files, nil
}

// KeyFromPath derives a record key from a content file name.
func KeyFromPath(path string) string {
	return strings.TrimSuffix(filepath.Base(path), Extension)
}

// TitleFromKey turns a filename key such as "moot-court_2024" into a
// display title ("Moot Court 2024").
func TitleFromKey(key string) string {
	spaced := strings.NewReplacer("-", " ", "_", " ").Replace(key)
	return cases.Title(language.English).String(strings.TrimSpace(spaced))
}

// IsContentFile reports whether name looks like a content file, ignoring
// hidden and editor swap files.
func IsContentFile(name string) bool {
	base := filepath.Base(name)
	if strings.HasPrefix(base, ".") {
		return false
	}
	ok, _ := doublestar.Match("*"+Extension, base)
	return ok
}
