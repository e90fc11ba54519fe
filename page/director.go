package page

import (
	"strconv"
	"strings"
)

// DefaultDirectorStyle is used when no custom style is configured.
// "$" is replaced with the current page number, "&" with the total.
const DefaultDirectorStyle = "Page $/&"

// Director renders a "page x of y" line onto outgoing pages.
type Director struct {
	Show  bool
	Style string
}

// Validate checks the director style format. An empty style is valid and
// falls back to DefaultDirectorStyle.
func (d Director) Validate() error {
	if d.Style == "" {
		return nil
	}
	if strings.Count(d.Style, "$") != 1 || strings.Count(d.Style, "&") != 1 {
		return ErrBadDirectorStyle
	}
	return nil
}

// Line formats the director line for the given one-based page number.
func (d Director) Line(number, total int) string {
	style := d.Style
	if style == "" {
		style = DefaultDirectorStyle
	}
	line := strings.Replace(style, "$", strconv.Itoa(number), 1)
	return strings.Replace(line, "&", strconv.Itoa(total), 1)
}

// Decorate returns a copy of p carrying the director line for the given
// one-based page number. Document pages get it as the footer, text pages
// as a trailing line. The stored page is never modified.
func (d Director) Decorate(p Page, number, total int) Page {
	if !d.Show {
		return p
	}

	out := p.clone()
	line := d.Line(number, total)
	if out.Document != nil {
		out.Document.Footer = line
	} else if out.Text == "" {
		out.Text = line
	} else {
		out.Text = out.Text + "\n\n" + line
	}
	return out
}
