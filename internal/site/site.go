// Package site renders the public pages and the admin dashboard from the
// content catalog.
package site

import (
	"bytes"
	"cmp"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"slices"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/AmoghRisbud/TCC-frontend-sub000/internal/auth"
	"github.com/AmoghRisbud/TCC-frontend-sub000/internal/content"
	"github.com/AmoghRisbud/TCC-frontend-sub000/internal/httputil"
	"github.com/AmoghRisbud/TCC-frontend-sub000/internal/markdown"
	"github.com/AmoghRisbud/TCC-frontend-sub000/pkg/types"
)

var (
	//go:embed templates/*.html
	templateFS embed.FS

	//go:embed static
	staticFS embed.FS
)

const (
	layoutTemplate = "templates/layout.html"
	homeFeatured   = 3
)

// Page template names.
const (
	pageHome          = "home.html"
	pagePrograms      = "programs.html"
	pageProgram       = "program.html"
	pageResearchList  = "research_list.html"
	pageResearch      = "research.html"
	pageTestimonials  = "testimonials.html"
	pageGallery       = "gallery.html"
	pageCareers       = "careers.html"
	pageJob           = "job.html"
	pageAbout         = "about.html"
	pageAnnouncements = "announcements.html"
	pageDashboard     = "dashboard.html"
	pageDenied        = "denied.html"
	pageNotFound      = "notfound.html"
	pageError         = "error.html"
)

var pageNames = []string{
	pageHome, pagePrograms, pageProgram, pageResearchList, pageResearch,
	pageTestimonials, pageGallery, pageCareers, pageJob, pageAbout,
	pageAnnouncements, pageDashboard, pageDenied, pageNotFound, pageError,
}

// Site renders HTML pages.
type Site struct {
	catalog *content.Catalog
	md      *markdown.Renderer
	pages   map[string]*template.Template
	logger  zerolog.Logger
}

// view is what every page template receives.
type view struct {
	Title   string
	Nav     string
	Session *auth.Session
	Data    any
}

// New parses the embedded templates.
func New(catalog *content.Catalog, logger zerolog.Logger) (*Site, error) {
	s := &Site{
		catalog: catalog,
		md:      markdown.NewRenderer(),
		pages:   make(map[string]*template.Template, len(pageNames)),
		logger:  logger.With().Str("component", "site").Logger(),
	}

	funcs := template.FuncMap{
		"markdown": s.renderMarkdown,
		"lines":    content.SplitLines,
		"join":     strings.Join,
		"stars":    stars,
	}
	for _, name := range pageNames {
		tmpl, err := template.New(name).Funcs(funcs).ParseFS(templateFS, layoutTemplate, "templates/"+name)
		if err != nil {
			return nil, fmt.Errorf("parsing template %s: %w", name, err)
		}
		s.pages[name] = tmpl
	}
	return s, nil
}

// Mount registers the public pages on r.
func (s *Site) Mount(r chi.Router) {
	r.Get("/", s.home)
	r.Get("/programs", s.programs)
	r.Get("/programs/{slug}", s.program)
	r.Get("/research", s.researchList)
	r.Get("/research/{slug}", s.research)
	r.Get("/testimonials", s.testimonials)
	r.Get("/gallery", s.gallery)
	r.Get("/careers", s.careers)
	r.Get("/careers/{slug}", s.job)
	r.Get("/about", s.about)
	r.Get("/announcements", s.announcements)
	r.Get(auth.DeniedPath, s.Denied)
	r.Handle("/static/*", http.FileServerFS(staticFS))
}

// NotFound renders the 404 page.
func (s *Site) NotFound(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusNotFound, pageNotFound, view{Title: "Page not found"})
}

// Denied tells a signed-in user that their account is not an admin.
func (s *Site) Denied(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusForbidden, pageDenied, view{Title: "Access denied"})
}

type dashboardRow struct {
	Name        string
	Count       int
	Unavailable bool
}

// Dashboard shows per-type record counts to a signed-in admin.
func (s *Site) Dashboard(w http.ResponseWriter, r *http.Request) {
	counts := s.catalog.Counts(r.Context())
	rows := make([]dashboardRow, 0, len(counts))
	for _, c := range counts {
		rows = append(rows, dashboardRow{Name: c.Name, Count: c.Count, Unavailable: c.Err != nil})
	}

	v := view{Title: "Admin", Nav: "admin", Data: rows}
	if sess, ok := auth.FromContext(r.Context()); ok {
		v.Session = &sess
	}
	w.Header().Set("Cache-Control", "no-store")
	s.render(w, r, http.StatusOK, pageDashboard, v)
}

type homeData struct {
	Featured     []types.Program
	Upcoming     []types.Program
	Testimonials []types.Testimonial
}

func (s *Site) home(w http.ResponseWriter, r *http.Request) {
	programs, ok := resolve(s, w, r, s.catalog.Programs)
	if !ok {
		return
	}
	testimonials, ok := resolve(s, w, r, s.catalog.Testimonials)
	if !ok {
		return
	}

	s.render(w, r, http.StatusOK, pageHome, view{Title: "Home", Nav: "home", Data: homeData{
		Featured:     FeaturedPrograms(programs, homeFeatured),
		Upcoming:     Announcements(programs),
		Testimonials: FeaturedTestimonials(testimonials),
	}})
}

func (s *Site) programs(w http.ResponseWriter, r *http.Request) {
	programs, ok := resolve(s, w, r, s.catalog.Programs)
	if !ok {
		return
	}
	s.render(w, r, http.StatusOK, pagePrograms, view{Title: "Programs", Nav: "programs", Data: programs})
}

func (s *Site) program(w http.ResponseWriter, r *http.Request) {
	p, ok := resolveOne(s, w, r, s.catalog.Programs)
	if !ok {
		return
	}
	s.render(w, r, http.StatusOK, pageProgram, view{Title: p.Title, Nav: "programs", Data: p})
}

func (s *Site) researchList(w http.ResponseWriter, r *http.Request) {
	papers, ok := resolve(s, w, r, s.catalog.Research)
	if !ok {
		return
	}
	s.render(w, r, http.StatusOK, pageResearchList, view{Title: "Research", Nav: "research", Data: papers})
}

func (s *Site) research(w http.ResponseWriter, r *http.Request) {
	paper, ok := resolveOne(s, w, r, s.catalog.Research)
	if !ok {
		return
	}
	s.render(w, r, http.StatusOK, pageResearch, view{Title: paper.Title, Nav: "research", Data: paper})
}

func (s *Site) testimonials(w http.ResponseWriter, r *http.Request) {
	items, ok := resolve(s, w, r, s.catalog.Testimonials)
	if !ok {
		return
	}
	s.render(w, r, http.StatusOK, pageTestimonials, view{Title: "Testimonials", Nav: "testimonials", Data: items})
}

func (s *Site) gallery(w http.ResponseWriter, r *http.Request) {
	items, ok := resolve(s, w, r, s.catalog.Gallery)
	if !ok {
		return
	}
	s.render(w, r, http.StatusOK, pageGallery, view{Title: "Gallery", Nav: "gallery", Data: items})
}

type careersData struct {
	Jobs        []types.Job
	Internships []types.Job
}

func (s *Site) careers(w http.ResponseWriter, r *http.Request) {
	jobs, ok := resolve(s, w, r, s.catalog.Jobs)
	if !ok {
		return
	}
	var data careersData
	for _, j := range PublishedJobs(jobs) {
		if j.Category == types.JobCategoryInternship {
			data.Internships = append(data.Internships, j)
		} else {
			data.Jobs = append(data.Jobs, j)
		}
	}
	s.render(w, r, http.StatusOK, pageCareers, view{Title: "Careers", Nav: "careers", Data: data})
}

func (s *Site) job(w http.ResponseWriter, r *http.Request) {
	j, ok := resolveOne(s, w, r, s.catalog.Jobs)
	if !ok {
		return
	}
	if j.Status == types.JobDraft {
		s.NotFound(w, r)
		return
	}
	s.render(w, r, http.StatusOK, pageJob, view{Title: j.Title, Nav: "careers", Data: j})
}

func (s *Site) about(w http.ResponseWriter, r *http.Request) {
	team, ok := resolve(s, w, r, s.catalog.Team)
	if !ok {
		return
	}
	s.render(w, r, http.StatusOK, pageAbout, view{Title: "About", Nav: "about", Data: SortTeam(team)})
}

func (s *Site) announcements(w http.ResponseWriter, r *http.Request) {
	programs, ok := resolve(s, w, r, s.catalog.Programs)
	if !ok {
		return
	}
	s.render(w, r, http.StatusOK, pageAnnouncements, view{Title: "Announcements", Nav: "announcements", Data: Announcements(programs)})
}

func resolve[T any](s *Site, w http.ResponseWriter, r *http.Request, c *content.Collection[T]) ([]T, bool) {
	recs, err := c.Resolve(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return nil, false
	}
	return recs, true
}

func resolveOne[T any](s *Site, w http.ResponseWriter, r *http.Request, c *content.Collection[T]) (T, bool) {
	var zero T
	recs, ok := resolve(s, w, r, c)
	if !ok {
		return zero, false
	}
	rec, found := content.Find(c.Kind, recs, chi.URLParam(r, "slug"))
	if !found {
		s.NotFound(w, r)
		return zero, false
	}
	return rec, true
}

func (s *Site) fail(w http.ResponseWriter, r *http.Request, err error) {
	s.logger.Error().Err(err).
		Str("request_id", httputil.RequestIDFromContext(r.Context())).
		Str("path", r.URL.Path).
		Msg("content unavailable")
	s.render(w, r, http.StatusInternalServerError, pageError, view{Title: "Something went wrong"})
}

// render executes a page into a buffer first so a template failure can
// still produce a clean 500.
func (s *Site) render(w http.ResponseWriter, r *http.Request, status int, name string, v view) {
	var buf bytes.Buffer
	tmpl, ok := s.pages[name]
	if !ok {
		s.logger.Error().Str("page", name).Msg("unknown page template")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	if err := tmpl.ExecuteTemplate(&buf, "layout", v); err != nil {
		s.logger.Error().Err(err).Str("page", name).Str("path", r.URL.Path).Msg("rendering page failed")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (s *Site) renderMarkdown(src string) template.HTML {
	out, err := s.md.Render(src)
	if err != nil {
		s.logger.Warn().Err(err).Msg("markdown render failed; showing source")
		return template.HTML("<p>" + template.HTMLEscapeString(src) + "</p>")
	}
	return template.HTML(out)
}

func stars(n int) string {
	n = max(0, min(5, n))
	return strings.Repeat("★", n) + strings.Repeat("☆", 5-n)
}

// FeaturedPrograms returns up to limit featured programs, or the first
// limit programs when none is featured.
func FeaturedPrograms(programs []types.Program, limit int) []types.Program {
	var out []types.Program
	for _, p := range programs {
		if p.Featured {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		out = programs
	}
	return out[:min(limit, len(out))]
}

// Announcements returns the upcoming programs.
func Announcements(programs []types.Program) []types.Program {
	var out []types.Program
	for _, p := range programs {
		if p.Status == types.ProgramUpcoming {
			out = append(out, p)
		}
	}
	return out
}

// FeaturedTestimonials returns the featured testimonials.
func FeaturedTestimonials(items []types.Testimonial) []types.Testimonial {
	var out []types.Testimonial
	for _, t := range items {
		if t.Featured {
			out = append(out, t)
		}
	}
	return out
}

// PublishedJobs drops draft listings.
func PublishedJobs(jobs []types.Job) []types.Job {
	var out []types.Job
	for _, j := range jobs {
		if j.Status != types.JobDraft {
			out = append(out, j)
		}
	}
	return out
}

// SortTeam orders members by Order, then name. Members without an order
// go last.
func SortTeam(team []types.TeamMember) []types.TeamMember {
	out := slices.Clone(team)
	slices.SortStableFunc(out, func(a, b types.TeamMember) int {
		ao, bo := a.Order, b.Order
		if ao <= 0 {
			ao = int(^uint(0) >> 1)
		}
		if bo <= 0 {
			bo = int(^uint(0) >> 1)
		}
		return cmp.Or(cmp.Compare(ao, bo), strings.Compare(a.Name, b.Name))
	})
	return out
}
