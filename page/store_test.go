package page

import (
	"errors"
	"testing"
)

func TestStoreStaticPages(t *testing.T) {
	store := NewStore()
	store.AppendPage(Text("one"))
	store.AppendPages([]Page{Text("two"), Text("three")})

	if got := store.Len(); got != 3 {
		t.Fatalf("expected 3 pages, got %d", got)
	}

	p, err := store.Page(1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Text != "two" {
		t.Errorf("expected %q, got %q", "two", p.Text)
	}

	if _, err := store.Page(3); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("expected ErrOutOfRange, got %v", err)
	}
	if _, err := store.Page(-1); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("expected ErrOutOfRange for negative index, got %v", err)
	}

	if err := store.RemovePage(0); err != nil {
		t.Fatalf("remove failed: %v", err)
	}
	p, _ = store.Page(0)
	if p.Text != "two" {
		t.Errorf("expected %q after removal, got %q", "two", p.Text)
	}
	if err := store.RemovePage(5); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("expected ErrOutOfRange, got %v", err)
	}
}

func TestStoreReplaceAll(t *testing.T) {
	store := NewStore()
	store.AppendPage(Text("old"))

	if err := store.ReplaceAll(nil); !errors.Is(err, ErrEmptyPagination) {
		t.Errorf("expected ErrEmptyPagination, got %v", err)
	}
	if got := store.Len(); got != 1 {
		t.Errorf("rejected replace must not modify the store, len %d", got)
	}

	if err := store.ReplaceAll([]Page{Text("a"), Text("b")}); err != nil {
		t.Fatalf("replace failed: %v", err)
	}
	if got := store.Len(); got != 2 {
		t.Errorf("expected 2 pages, got %d", got)
	}
}

func TestDynamicStoreChunking(t *testing.T) {
	store := NewDynamicStore(2)
	for _, row := range []string{"r1", "r2", "r3", "r4", "r5"} {
		if err := store.AppendRow(row); err != nil {
			t.Fatalf("append row failed: %v", err)
		}
	}
	if err := store.Finalize(); err != nil {
		t.Fatalf("finalize failed: %v", err)
	}

	if got := store.Len(); got != 3 {
		t.Fatalf("expected 3 pages from 5 rows at 2 per page, got %d", got)
	}
	want := []string{"r1\nr2", "r3\nr4", "r5"}
	for i, text := range want {
		p, err := store.Page(i)
		if err != nil {
			t.Fatalf("page %d: %v", i, err)
		}
		if p.Text != text {
			t.Errorf("page %d: expected %q, got %q", i, text, p.Text)
		}
	}
}

func TestDynamicStoreHeadTailSplice(t *testing.T) {
	store := NewDynamicStore(2)
	// Splice order must not depend on call order.
	store.SetTailPages(Text("tail"))
	store.SetHeadPages(Text("head"))
	for _, row := range []string{"r1", "r2", "r3"} {
		if err := store.AppendRow(row); err != nil {
			t.Fatalf("append row failed: %v", err)
		}
	}
	if err := store.Finalize(); err != nil {
		t.Fatalf("finalize failed: %v", err)
	}

	want := []string{"head", "r1\nr2", "r3", "tail"}
	if got := store.Len(); got != len(want) {
		t.Fatalf("expected %d pages, got %d", len(want), got)
	}
	for i, text := range want {
		p, _ := store.Page(i)
		if p.Text != text {
			t.Errorf("page %d: expected %q, got %q", i, text, p.Text)
		}
	}

	// Finalize again with more rows re-derives without duplicating
	// head or tail.
	if err := store.AppendRow("r4"); err != nil {
		t.Fatalf("append row failed: %v", err)
	}
	if err := store.Finalize(); err != nil {
		t.Fatalf("second finalize failed: %v", err)
	}
	want = []string{"head", "r1\nr2", "r3\nr4", "tail"}
	if got := store.Len(); got != len(want) {
		t.Fatalf("expected %d pages after refinalize, got %d", len(want), got)
	}
	for i, text := range want {
		p, _ := store.Page(i)
		if p.Text != text {
			t.Errorf("page %d: expected %q, got %q", i, text, p.Text)
		}
	}
}

func TestDynamicStoreWrapAndTemplate(t *testing.T) {
	wrapped := NewDynamicStore(2, WrapRows("```\n", "\n```"))
	wrapped.AppendRow("a")
	wrapped.AppendRow("b")
	if err := wrapped.Finalize(); err != nil {
		t.Fatalf("finalize failed: %v", err)
	}
	p, _ := wrapped.Page(0)
	if p.Text != "```\na\nb\n```" {
		t.Errorf("unexpected wrapped page: %q", p.Text)
	}

	templated := NewDynamicStore(1, Template(Page{Document: &Document{Title: "Report"}}))
	templated.AppendRow("row one")
	if err := templated.Finalize(); err != nil {
		t.Fatalf("finalize failed: %v", err)
	}
	p, _ = templated.Page(0)
	if p.Document == nil {
		t.Fatal("expected a document page")
	}
	if p.Document.Title != "Report" || p.Document.Description != "row one" {
		t.Errorf("unexpected templated page: %+v", p.Document)
	}

	// The template itself must stay pristine across pages.
	templated.AppendRow("row two")
	if err := templated.Finalize(); err != nil {
		t.Fatalf("refinalize failed: %v", err)
	}
	first, _ := templated.Page(0)
	second, _ := templated.Page(1)
	if first.Document.Description != "row one" || second.Document.Description != "row two" {
		t.Errorf("template pages share state: %q / %q", first.Document.Description, second.Document.Description)
	}
}

func TestDynamicStoreErrors(t *testing.T) {
	static := NewStore()
	if err := static.AppendRow("row"); !errors.Is(err, ErrRowsNotConfigured) {
		t.Errorf("expected ErrRowsNotConfigured, got %v", err)
	}
	if err := static.Finalize(); !errors.Is(err, ErrRowsNotConfigured) {
		t.Errorf("expected ErrRowsNotConfigured, got %v", err)
	}

	empty := NewDynamicStore(3)
	if err := empty.Finalize(); !errors.Is(err, ErrEmptyPagination) {
		t.Errorf("expected ErrEmptyPagination, got %v", err)
	}

	coerced := NewDynamicStore(0)
	coerced.AppendRow("a")
	coerced.AppendRow("b")
	if err := coerced.Finalize(); err != nil {
		t.Fatalf("finalize failed: %v", err)
	}
	if got := coerced.Len(); got != 2 {
		t.Errorf("rows per page below one coerces to one, expected 2 pages, got %d", got)
	}
}

func TestDirectorValidate(t *testing.T) {
	tests := []struct {
		name    string
		style   string
		wantErr bool
	}{
		{"empty falls back to default", "", false},
		{"default", DefaultDirectorStyle, false},
		{"custom", "On $ out of &!", false},
		{"missing total", "Page $", true},
		{"missing number", "of &", true},
		{"doubled number", "$ $ &", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Director{Show: true, Style: tt.style}.Validate()
			if tt.wantErr && !errors.Is(err, ErrBadDirectorStyle) {
				t.Errorf("expected ErrBadDirectorStyle, got %v", err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestDirectorDecorate(t *testing.T) {
	d := Director{Show: true}

	text := d.Decorate(Text("hello"), 2, 5)
	if text.Text != "hello\n\nPage 2/5" {
		t.Errorf("unexpected text page: %q", text.Text)
	}

	blank := d.Decorate(Page{}, 1, 1)
	if blank.Text != "Page 1/1" {
		t.Errorf("empty text page gets just the line, got %q", blank.Text)
	}

	doc := Page{Document: &Document{Title: "T", Description: "D"}}
	decorated := d.Decorate(doc, 3, 4)
	if decorated.Document.Footer != "Page 3/4" {
		t.Errorf("expected footer %q, got %q", "Page 3/4", decorated.Document.Footer)
	}
	if doc.Document.Footer != "" {
		t.Error("decorate must not mutate the stored page")
	}

	hidden := Director{Show: false}.Decorate(Text("hello"), 1, 2)
	if hidden.Text != "hello" {
		t.Errorf("hidden director must not decorate, got %q", hidden.Text)
	}
}
