package content

import (
	"errors"
	"fmt"
	"strings"

	"github.com/AmoghRisbud/TCC-frontend-sub000/internal/markdown"
	"github.com/AmoghRisbud/TCC-frontend-sub000/pkg/types"
)

// Store keys, which double as markdown directory names.
const (
	KeyPrograms     = "programs"
	KeyResearch     = "research"
	KeyTestimonials = "testimonials"
	KeyGallery      = "gallery"
	KeyCareers      = "careers"
	KeyTeam         = "team"
)

// titleOr falls back to a title derived from the filename key.
func titleOr(title, key string) string {
	if strings.TrimSpace(title) != "" {
		return title
	}
	return markdown.TitleFromKey(key)
}

func bodyOr(field, body string) string {
	if strings.TrimSpace(field) != "" {
		return field
	}
	return body
}

var Programs = Kind[types.Program]{
	Name:    KeyPrograms,
	IDField: "slug",
	KeyOf:   func(p types.Program) string { return p.Slug },
	WithKey: func(p types.Program, key string) types.Program { p.Slug = key; return p },
	Label:   func(p types.Program) string { return p.Title },
	FromMarkdown: func(p types.Program, key, body string) types.Program {
		p.Slug = key
		p.Title = titleOr(p.Title, key)
		p.LongDescription = bodyOr(p.LongDescription, body)
		return p
	},
}

var Research = Kind[types.Research]{
	Name:    KeyResearch,
	IDField: "slug",
	KeyOf:   func(r types.Research) string { return r.Slug },
	WithKey: func(r types.Research, key string) types.Research { r.Slug = key; return r },
	Label:   func(r types.Research) string { return r.Title },
	FromMarkdown: func(r types.Research, key, body string) types.Research {
		r.Slug = key
		r.Title = titleOr(r.Title, key)
		r.Content = bodyOr(r.Content, body)
		return r
	},
	Check: func(r types.Research) error {
		for i, m := range r.Metrics {
			if strings.TrimSpace(m.Label) == "" {
				return fmt.Errorf("metric %d has no label", i)
			}
		}
		return nil
	},
}

var Testimonials = Kind[types.Testimonial]{
	Name:          KeyTestimonials,
	IDField:       "id",
	KeyOf:         func(t types.Testimonial) string { return t.ID },
	WithKey:       func(t types.Testimonial, key string) types.Testimonial { t.ID = key; return t },
	Label:         func(t types.Testimonial) string { return t.Name },
	TimestampKeys: true,
	FromMarkdown: func(t types.Testimonial, key, body string) types.Testimonial {
		t.ID = key
		t.Name = titleOr(t.Name, key)
		t.Quote = bodyOr(t.Quote, body)
		return t
	},
	Check: func(t types.Testimonial) error {
		if t.Rating < 1 || t.Rating > 5 {
			return fmt.Errorf("rating %d is outside 1..5", t.Rating)
		}
		return nil
	},
}

var Gallery = Kind[types.GalleryItem]{
	Name:          KeyGallery,
	IDField:       "id",
	KeyOf:         func(g types.GalleryItem) string { return g.ID },
	WithKey:       func(g types.GalleryItem, key string) types.GalleryItem { g.ID = key; return g },
	Label:         func(g types.GalleryItem) string { return g.Title },
	TimestampKeys: true,
	FromMarkdown: func(g types.GalleryItem, key, body string) types.GalleryItem {
		g.ID = key
		g.Title = titleOr(g.Title, key)
		g.Description = bodyOr(g.Description, body)
		return g
	},
	Check: func(g types.GalleryItem) error {
		if len(g.Images) == 0 {
			return errors.New("at least one image is required")
		}
		for i, img := range g.Images {
			if strings.TrimSpace(img) == "" {
				return fmt.Errorf("image %d is empty", i)
			}
		}
		return nil
	},
}

var Jobs = Kind[types.Job]{
	Name:    KeyCareers,
	IDField: "slug",
	KeyOf:   func(j types.Job) string { return j.Slug },
	WithKey: func(j types.Job, key string) types.Job { j.Slug = key; return j },
	Label:   func(j types.Job) string { return j.Title },
	FromMarkdown: func(j types.Job, key, body string) types.Job {
		j.Slug = key
		j.Title = titleOr(j.Title, key)
		j.Description = bodyOr(j.Description, body)
		return j
	},
	Check: func(j types.Job) error {
		switch j.Category {
		case types.JobCategoryJob, types.JobCategoryInternship:
		default:
			return fmt.Errorf("category %q must be %q or %q", j.Category, types.JobCategoryJob, types.JobCategoryInternship)
		}
		switch j.Status {
		case types.JobOpen, types.JobClosed, types.JobDraft:
		default:
			return fmt.Errorf("status %q must be one of open, closed, draft", j.Status)
		}
		return nil
	},
}

var Team = Kind[types.TeamMember]{
	Name:    KeyTeam,
	IDField: "slug",
	KeyOf:   func(m types.TeamMember) string { return m.Slug },
	WithKey: func(m types.TeamMember, key string) types.TeamMember { m.Slug = key; return m },
	Label:   func(m types.TeamMember) string { return m.Name },
	FromMarkdown: func(m types.TeamMember, key, body string) types.TeamMember {
		m.Slug = key
		m.Name = titleOr(m.Name, key)
		m.Bio = bodyOr(m.Bio, body)
		return m
	},
}

// SplitLines turns line-delimited job text into trimmed, non-empty lines,
// dropping leading list markers.
func SplitLines(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimSpace(strings.TrimLeft(line, "-*•"))
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}
