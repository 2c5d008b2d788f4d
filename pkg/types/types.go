// Package types defines the content records and admin API payloads of the
// TCC site. The same structs are decoded from the key-value store (JSON) and
// from markdown front-matter (YAML), so every field carries both tags with
// the same camelCase name.
//
// Validation is NOT performed in this package; see internal/content.
package types

// ===========================================================================
// Content records
// ===========================================================================

// Program is a course or event run by the organization. Keyed by Slug.
type Program struct {
	Slug             string   `json:"slug" yaml:"slug"`
	Title            string   `json:"title" yaml:"title"`
	ShortDescription string   `json:"shortDescription,omitempty" yaml:"shortDescription,omitempty"`
	LongDescription  string   `json:"longDescription,omitempty" yaml:"longDescription,omitempty"`
	StartDate        string   `json:"startDate,omitempty" yaml:"startDate,omitempty"`
	EndDate          string   `json:"endDate,omitempty" yaml:"endDate,omitempty"`
	Duration         string   `json:"duration,omitempty" yaml:"duration,omitempty"`
	Location         string   `json:"location,omitempty" yaml:"location,omitempty"`
	Mode             string   `json:"mode,omitempty" yaml:"mode,omitempty"`
	Logo             string   `json:"logo,omitempty" yaml:"logo,omitempty"`
	Tags             []string `json:"tags,omitempty" yaml:"tags,omitempty"`
	Featured         bool     `json:"featured,omitempty" yaml:"featured,omitempty"`
	Status           string   `json:"status,omitempty" yaml:"status,omitempty"`
	RegistrationLink string   `json:"registrationLink,omitempty" yaml:"registrationLink,omitempty"`
}

// Program statuses.
const (
	ProgramUpcoming  = "upcoming"
	ProgramOngoing   = "ongoing"
	ProgramCompleted = "completed"
)

// Metric is one headline figure shown on a research card.
type Metric struct {
	Label string `json:"label" yaml:"label"`
	Value string `json:"value" yaml:"value"`
}

// Research is a published paper or report. Keyed by Slug.
type Research struct {
	Slug          string   `json:"slug" yaml:"slug"`
	Title         string   `json:"title" yaml:"title"`
	Summary       string   `json:"summary,omitempty" yaml:"summary,omitempty"`
	PDFURL        string   `json:"pdfUrl,omitempty" yaml:"pdfUrl,omitempty"`
	Image         string   `json:"image,omitempty" yaml:"image,omitempty"`
	Tags          []string `json:"tags,omitempty" yaml:"tags,omitempty"`
	Authors       []string `json:"authors,omitempty" yaml:"authors,omitempty"`
	PublishedDate string   `json:"publishedDate,omitempty" yaml:"publishedDate,omitempty"`
	Metrics       []Metric `json:"metrics,omitempty" yaml:"metrics,omitempty"`
	Content       string   `json:"content,omitempty" yaml:"content,omitempty"`
}

// Testimonial is a quote from a participant. Keyed by ID.
type Testimonial struct {
	ID         string `json:"id" yaml:"id"`
	Name       string `json:"name" yaml:"name"`
	Role       string `json:"role,omitempty" yaml:"role,omitempty"`
	Quote      string `json:"quote" yaml:"quote"`
	Rating     int    `json:"rating" yaml:"rating"`
	ProgramRef string `json:"programRef,omitempty" yaml:"programRef,omitempty"`
	Image      string `json:"image,omitempty" yaml:"image,omitempty"`
	Featured   bool   `json:"featured,omitempty" yaml:"featured,omitempty"`
}

// GalleryItem is an album of one or more images. Keyed by ID.
type GalleryItem struct {
	ID          string   `json:"id" yaml:"id"`
	Title       string   `json:"title" yaml:"title"`
	Images      []string `json:"images" yaml:"images"`
	Category    string   `json:"category,omitempty" yaml:"category,omitempty"`
	Date        string   `json:"date,omitempty" yaml:"date,omitempty"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
}

// Job is a careers listing. Keyed by Slug. Requirements and
// Responsibilities are line-delimited text.
type Job struct {
	Slug             string `json:"slug" yaml:"slug"`
	Title            string `json:"title" yaml:"title"`
	Category         string `json:"category" yaml:"category"`
	Status           string `json:"status" yaml:"status"`
	Location         string `json:"location,omitempty" yaml:"location,omitempty"`
	EmploymentType   string `json:"employmentType,omitempty" yaml:"employmentType,omitempty"`
	Description      string `json:"description,omitempty" yaml:"description,omitempty"`
	Requirements     string `json:"requirements,omitempty" yaml:"requirements,omitempty"`
	Responsibilities string `json:"responsibilities,omitempty" yaml:"responsibilities,omitempty"`
	ApplyLink        string `json:"applyLink,omitempty" yaml:"applyLink,omitempty"`
	PostedDate       string `json:"postedDate,omitempty" yaml:"postedDate,omitempty"`
}

// Job categories and statuses.
const (
	JobCategoryJob        = "job"
	JobCategoryInternship = "internship"

	JobOpen   = "open"
	JobClosed = "closed"
	JobDraft  = "draft"
)

// TeamMember is a person shown on the about page. Keyed by Slug.
type TeamMember struct {
	Slug     string `json:"slug" yaml:"slug"`
	Name     string `json:"name" yaml:"name"`
	Role     string `json:"role,omitempty" yaml:"role,omitempty"`
	Bio      string `json:"bio,omitempty" yaml:"bio,omitempty"`
	Image    string `json:"image,omitempty" yaml:"image,omitempty"`
	LinkedIn string `json:"linkedin,omitempty" yaml:"linkedin,omitempty"`
	Order    int    `json:"order,omitempty" yaml:"order,omitempty"`
}

// ===========================================================================
// Admin API payloads
// ===========================================================================

// ReplaceResult answers a bulk replace.
type ReplaceResult struct {
	Count int `json:"count"`
}

// UpsertResult answers a single-record upsert.
type UpsertResult[T any] struct {
	Created bool `json:"created"`
	Record  T    `json:"record"`
}

// DeleteResult answers a single or bulk delete. DeletedIDs holds only
// identifiers that existed, in request order.
type DeleteResult struct {
	DeletedCount int      `json:"deletedCount"`
	DeletedIDs   []string `json:"deletedIds"`
}

// MigrateResult reports how many markdown records were written per type.
type MigrateResult struct {
	Counts map[string]int `json:"counts"`
}

// UploadResult answers a successful image or PDF upload.
type UploadResult struct {
	URL string `json:"url"`
}

// PDFInfoRequest is the body of a PDF link probe.
type PDFInfoRequest struct {
	URL string `json:"url"`
}

// PDFInfo describes what a remote PDF link actually serves.
type PDFInfo struct {
	URL           string `json:"url"`
	ContentType   string `json:"contentType"`
	ContentLength int64  `json:"contentLength"`
	IsPDF         bool   `json:"isPdf"`
}
