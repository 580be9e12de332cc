// Package documents renders registrar documents as plain text. Each document
// type maps to a renderer in a Registry; there is no lookup by name.
package documents

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/template"
	"time"

	"github.com/example/campus-portal/internal/docrequest"
)

// ErrUnknownDocumentType is returned when no renderer is registered for a type.
var ErrUnknownDocumentType = errors.New("documents: unknown document type")

// Data is what a renderer sees.
type Data struct {
	Request     docrequest.Request
	Institution string
	Registrar   string
	IssuedAt    time.Time
}

// Renderer writes one document.
type Renderer func(w io.Writer, data Data) error

// Registry maps document types to renderers.
type Registry struct {
	renderers   map[docrequest.DocumentType]Renderer
	institution string
	registrar   string
	location    *time.Location
}

// NewRegistry returns a registry with a renderer for every docrequest.DocumentTypes entry.
func NewRegistry(institution, registrar string, loc *time.Location) *Registry {
	if loc == nil {
		loc = time.UTC
	}
	r := &Registry{
		renderers:   make(map[docrequest.DocumentType]Renderer, len(bodies)),
		institution: institution,
		registrar:   registrar,
		location:    loc,
	}
	for docType, body := range bodies {
		r.Register(docType, templateRenderer(titles[docType], body))
	}
	return r
}

// Register installs or replaces the renderer for docType.
func (r *Registry) Register(docType docrequest.DocumentType, render Renderer) {
	r.renderers[docType] = render
}

// Supports reports whether docType has a renderer.
func (r *Registry) Supports(docType docrequest.DocumentType) bool {
	_, ok := r.renderers[docType]
	return ok
}

// Render produces the document for req issued at issuedAt.
func (r *Registry) Render(req docrequest.Request, issuedAt time.Time) ([]byte, error) {
	render, ok := r.renderers[req.DocumentType]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDocumentType, string(req.DocumentType))
	}
	var buf bytes.Buffer
	err := render(&buf, Data{
		Request:     req,
		Institution: r.institution,
		Registrar:   r.registrar,
		IssuedAt:    issuedAt.In(r.location),
	})
	if err != nil {
		return nil, fmt.Errorf("render %s: %w", req.DocumentType, err)
	}
	return buf.Bytes(), nil
}

var funcs = template.FuncMap{
	"date":  func(t time.Time) string { return t.Format("January 2, 2006") },
	"upper": strings.ToUpper,
}

const layout = `{{upper .Institution}}
Office of the University Registrar

{{upper .Title}}
Control No. {{.Data.Request.RequestNumber}}

{{.Body}}
Issued on {{date .Data.IssuedAt}} upon the request of the above-named for the purpose of: {{if .Data.Request.Purpose}}{{.Data.Request.Purpose}}{{else}}whatever legal purpose it may serve{{end}}.

{{.Data.Registrar}}
University Registrar
`

var titles = map[docrequest.DocumentType]string{
	docrequest.DocumentTranscript:              "Transcript of Records",
	docrequest.DocumentCertificateOfEnrollment: "Certificate of Enrollment",
	docrequest.DocumentCertificateOfGrades:     "Certificate of Grades",
	docrequest.DocumentGoodMoral:               "Certificate of Good Moral Character",
	docrequest.DocumentHonorableDismissal:      "Honorable Dismissal",
	docrequest.DocumentDiplomaCopy:             "Certified True Copy of Diploma",
}

var bodies = map[docrequest.DocumentType]string{
	docrequest.DocumentTranscript: `This is the official transcript of records of {{.Request.RequesterName}} (Student No. {{.Request.RequesterID}}).
The scholastic record is released in {{.Request.Quantity}} certified cop{{if eq .Request.Quantity 1}}y{{else}}ies{{end}}.
`,
	docrequest.DocumentCertificateOfEnrollment: `This is to certify that {{.Request.RequesterName}} (Student No. {{.Request.RequesterID}}) is officially enrolled in this University for the current academic term.
`,
	docrequest.DocumentCertificateOfGrades: `This is to certify that {{.Request.RequesterName}} (Student No. {{.Request.RequesterID}}) obtained the grades recorded in the attached grade sheet.
`,
	docrequest.DocumentGoodMoral: `This is to certify that {{.Request.RequesterName}} (Student No. {{.Request.RequesterID}}) has not been subjected to any disciplinary action while enrolled in this University.
`,
	docrequest.DocumentHonorableDismissal: `This is to certify that {{.Request.RequesterName}} (Student No. {{.Request.RequesterID}}) is granted honorable dismissal and may transfer to any institution of their choice.
`,
	docrequest.DocumentDiplomaCopy: `This is a certified true copy of the diploma conferred upon {{.Request.RequesterName}} (Student No. {{.Request.RequesterID}}), as it appears in the records of this Office.
`,
}

var page = template.Must(template.New("page").Funcs(funcs).Parse(layout))

func templateRenderer(title, body string) Renderer {
	tmpl := template.Must(template.New(title).Funcs(funcs).Parse(body))
	return func(w io.Writer, data Data) error {
		var rendered bytes.Buffer
		if err := tmpl.Execute(&rendered, data); err != nil {
			return err
		}
		return page.Execute(w, struct {
			Title       string
			Body        string
			Institution string
			Data        Data
		}{
			Title:       title,
			Body:        rendered.String(),
			Institution: data.Institution,
			Data:        data,
		})
	}
}
