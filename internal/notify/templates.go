package notify

import (
	"bytes"
	"embed"
	"fmt"
	htmltemplate "html/template"
	texttemplate "text/template"

	"github.com/garnizeh/hirehub/pkg/models"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// Template names. Each defines "<name>.subject", "<name>.text" and
// "<name>.inapp" in text.tmpl and "<name>.html" in html.tmpl.
const (
	TemplateOTP                  = "otp"
	TemplateApplicationSubmitted = "application_submitted"
	TemplateStatusShortlisted    = "status_shortlisted"
	TemplateStatusAccepted       = "status_accepted"
	TemplateStatusRejected       = "status_rejected"
	TemplateStatusOther          = "status_other"
	TemplateWithdrawn            = "application_withdrawn"
)

// StatusTemplate picks the email template for a status change. Every status
// an application can move into has its own template; status_other only covers
// values outside the transition table, such as a status added to the schema
// before its email is written.
func StatusTemplate(s models.ApplicationStatus) string {
	switch s {
	case models.StatusShortlisted:
		return TemplateStatusShortlisted
	case models.StatusAccepted:
		return TemplateStatusAccepted
	case models.StatusRejected:
		return TemplateStatusRejected
	default:
		return TemplateStatusOther
	}
}

type OTPData struct {
	Code       string
	Purpose    string
	TTLMinutes int
}

type ApplicationData struct {
	ApplicantName string
	JobTitle      string
	JobID         int64
	CompanyName   string
	Status        models.ApplicationStatus
}

// Rendered is a template expanded for one recipient.
type Rendered struct {
	Subject string
	Text    string
	HTML    string
	InApp   string
}

type Renderer struct {
	text *texttemplate.Template
	html *htmltemplate.Template
}

func NewRenderer() (*Renderer, error) {
	text, err := texttemplate.ParseFS(templateFS, "templates/text.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse text templates: %w", err)
	}
	html, err := htmltemplate.ParseFS(templateFS, "templates/html.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse html templates: %w", err)
	}
	return &Renderer{text: text, html: html}, nil
}

// MustRenderer panics if the embedded templates fail to parse.
func MustRenderer() *Renderer {
	r, err := NewRenderer()
	if err != nil {
		panic(err)
	}
	return r
}

func (r *Renderer) Render(name string, data any) (Rendered, error) {
	var out Rendered
	var err error
	if out.Subject, err = r.execText(name+".subject", data); err != nil {
		return Rendered{}, err
	}
	if out.Text, err = r.execText(name+".text", data); err != nil {
		return Rendered{}, err
	}
	if r.text.Lookup(name+".inapp") != nil {
		if out.InApp, err = r.execText(name+".inapp", data); err != nil {
			return Rendered{}, err
		}
	}
	if r.html.Lookup(name+".html") != nil {
		var buf bytes.Buffer
		if err := r.html.ExecuteTemplate(&buf, name+".html", data); err != nil {
			return Rendered{}, fmt.Errorf("render %s.html: %w", name, err)
		}
		out.HTML = buf.String()
	}
	return out, nil
}

func (r *Renderer) execText(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := r.text.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}
