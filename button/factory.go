package button

// Factory helpers for the base navigation buttons.

// Back returns a Previous-page button labeled "Back".
func Back() *Button {
	return &Button{Type: Previous, Label: "Back"}
}

// Forward returns a Next-page button labeled "Next".
func Forward() *Button {
	return &Button{Type: Next, Label: "Next"}
}

// GoToFirst returns a First-page button labeled "First Page".
func GoToFirst() *Button {
	return &Button{Type: First, Label: "First Page"}
}

// GoToLast returns a Last-page button labeled "Last Page".
func GoToLast() *Button {
	return &Button{Type: Last, Label: "Last Page"}
}

// PageSelect returns a GoToPage button labeled "Page Selection".
func PageSelect() *Button {
	return &Button{Type: GoToPage, Label: "Page Selection"}
}

// Close returns an EndSession button labeled "Close".
func Close() *Button {
	return &Button{Type: EndSession, Label: "Close"}
}

// AllNav returns the full base navigation set, in render order.
func AllNav() []*Button {
	return []*Button{GoToFirst(), Back(), Forward(), GoToLast(), PageSelect(), Close()}
}
