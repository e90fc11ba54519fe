package page

import "errors"

var (
	// ErrEmptyPagination is returned when a session is started against a
	// store that holds no pages.
	ErrEmptyPagination = errors.New("no pages have been added")

	// ErrOutOfRange is returned when a page index or page number does not
	// exist in the store.
	ErrOutOfRange = errors.New("page index out of range")

	// ErrRowsNotConfigured is returned by AppendRow when the store was not
	// created with a rows-per-page count.
	ErrRowsNotConfigured = errors.New("rows per page has not been configured")

	// ErrBadDirectorStyle is returned when a director style does not contain
	// exactly one "$" and exactly one "&".
	ErrBadDirectorStyle = errors.New(`director style needs exactly one "$" (current page) and one "&" (total pages)`)
)

// Field is a titled value inside a structured document.
type Field struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Document is structured page content, roughly an embed: a title,
// a free-form description, optional fields and a footer line.
type Document struct {
	Title       string  `json:"title,omitempty"`
	Description string  `json:"description,omitempty"`
	Fields      []Field `json:"fields,omitempty"`
	Footer      string  `json:"footer,omitempty"`
}

// Page is one immutable content unit in a pagination sequence. Any
// combination of plain text, a structured document and attachments is
// allowed; a Page is identified only by its position in the sequence.
type Page struct {
	Text        string    `json:"text,omitempty"`
	Document    *Document `json:"document,omitempty"`
	Attachments []string  `json:"attachments,omitempty"`
}

// Text returns a page holding only plain text.
func Text(s string) Page {
	return Page{Text: s}
}

// IsZero reports whether the page carries no content at all.
func (p Page) IsZero() bool {
	return p.Text == "" && p.Document == nil && len(p.Attachments) == 0
}

// clone returns a deep copy so render-time decoration never touches the
// stored page.
func (p Page) clone() Page {
	out := p
	if p.Document != nil {
		doc := *p.Document
		doc.Fields = append([]Field(nil), p.Document.Fields...)
		out.Document = &doc
	}
	out.Attachments = append([]string(nil), p.Attachments...)
	return out
}
