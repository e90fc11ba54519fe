package page

import (
	"strings"
	"sync"
)

// Store holds the ordered page sequence for one menu session.
//
// A store is built up before the session starts, either statically via
// AppendPage/AppendPages or dynamically via AppendRow plus Finalize.
// After the session starts the only permitted mutation is ReplaceAll.
type Store struct {
	mu    sync.RWMutex
	pages []Page

	// dynamic mode
	rowsPerPage int
	rows        []string
	headPages   []Page
	tailPages   []Page
	wrapOpen    string
	wrapClose   string
	template    *Page
}

// NewStore creates a store for statically assembled pages.
func NewStore() *Store {
	return &Store{}
}

// DynamicOption configures a dynamic store.
type DynamicOption func(*Store)

// WrapRows wraps each materialized row page in the given literal
// delimiter pair, e.g. code block markers.
func WrapRows(open, close string) DynamicOption {
	return func(s *Store) {
		s.wrapOpen = open
		s.wrapClose = close
	}
}

// Template injects each materialized row batch into the description of a
// copy of the given page instead of a bare text page.
func Template(p Page) DynamicOption {
	return func(s *Store) {
		s.template = &p
	}
}

// NewDynamicStore creates a store that batches appended rows into pages
// of rowsPerPage rows each. rowsPerPage values below one are coerced to
// one.
func NewDynamicStore(rowsPerPage int, opts ...DynamicOption) *Store {
	if rowsPerPage < 1 {
		rowsPerPage = 1
	}
	s := &Store{rowsPerPage: rowsPerPage}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AppendPage adds a page to the end of the sequence.
func (s *Store) AppendPage(p Page) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pages = append(s.pages, p)
}

// AppendPages adds pages to the end of the sequence in order.
func (s *Store) AppendPages(pages []Page) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pages = append(s.pages, pages...)
}

// RemovePage removes the page at the given zero-based index.
func (s *Store) RemovePage(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if index < 0 || index >= len(s.pages) {
		return ErrOutOfRange
	}
	s.pages = append(s.pages[:index], s.pages[index+1:]...)
	return nil
}

// Clear removes every page and any buffered rows.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pages = nil
	s.rows = nil
	s.headPages = nil
	s.tailPages = nil
}

// Len returns the number of materialized pages.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.pages)
}

// Pages returns a copy of the materialized page sequence.
func (s *Store) Pages() []Page {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Page(nil), s.pages...)
}

// Page returns the page at the given zero-based index.
func (s *Store) Page(index int) (Page, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if index < 0 || index >= len(s.pages) {
		return Page{}, ErrOutOfRange
	}
	return s.pages[index], nil
}

// ReplaceAll swaps the entire page sequence. This is the only mutation
// allowed while a session is running; the session funnels it through its
// dispatcher to keep per-session state serialized.
func (s *Store) ReplaceAll(pages []Page) error {
	if len(pages) == 0 {
		return ErrEmptyPagination
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.pages = append([]Page(nil), pages...)
	return nil
}

// AppendRow buffers one row of dynamic data. Rows are materialized into
// pages by Finalize.
func (s *Store) AppendRow(text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.rowsPerPage == 0 {
		return ErrRowsNotConfigured
	}
	s.rows = append(s.rows, text)
	return nil
}

// SetHeadPages replaces the fixed pages spliced before the row-derived
// pages. Each call replaces the previous set; call order relative to
// SetTailPages does not matter.
func (s *Store) SetHeadPages(pages ...Page) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.headPages = append([]Page(nil), pages...)
}

// SetTailPages replaces the fixed pages spliced after the row-derived
// pages.
func (s *Store) SetTailPages(pages ...Page) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tailPages = append([]Page(nil), pages...)
}

// Finalize materializes buffered rows into the page sequence:
// head pages first, then one page per rowsPerPage rows, then tail pages.
// Finalize is idempotent; calling it again after more rows were appended
// re-derives the whole sequence without disturbing head or tail pages.
func (s *Store) Finalize() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.rowsPerPage == 0 {
		return ErrRowsNotConfigured
	}

	pages := append([]Page(nil), s.headPages...)
	for _, chunk := range chunkRows(s.rows, s.rowsPerPage) {
		pages = append(pages, s.rowPage(chunk))
	}
	pages = append(pages, s.tailPages...)

	if len(pages) == 0 {
		return ErrEmptyPagination
	}
	s.pages = pages
	return nil
}

func (s *Store) rowPage(rows []string) Page {
	body := strings.Join(rows, "\n")
	if s.wrapOpen != "" || s.wrapClose != "" {
		body = s.wrapOpen + body + s.wrapClose
	}

	if s.template != nil {
		p := s.template.clone()
		if p.Document == nil {
			p.Document = &Document{}
		}
		p.Document.Description = body
		return p
	}
	return Page{Text: body}
}

// chunkRows yields successive n-sized chunks of rows. Core component of
// a dynamic store.
func chunkRows(rows []string, n int) [][]string {
	var chunks [][]string
	for i := 0; i < len(rows); i += n {
		end := i + n
		if end > len(rows) {
			end = len(rows)
		}
		chunks = append(chunks, rows[i:end])
	}
	return chunks
}
