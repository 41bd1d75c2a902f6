// Package templates holds the templ components of the local UI.
//
//go:generate templ generate
package templates

import (
	"strconv"
	"time"
)

// Page describes the document around a component.
type Page struct {
	Title string
	User  string // Shown with a logout button when set

	// RefreshURL, when set, sends the browser there after RefreshAfter.
	RefreshURL   string
	RefreshAfter time.Duration
}

func (p Page) refreshContent() string {
	secs := int(p.RefreshAfter.Round(time.Second) / time.Second)
	return strconv.Itoa(secs) + ";url=" + p.RefreshURL
}

// Login is the sign-in form. Error is shown above the form when set.
type Login struct {
	Email  string
	Error  string
	Action string
	Code   string
}

// Column is one table header.
type Column struct {
	Label     string
	SortHref  string // Empty for non-sortable columns
	Indicator string // "▲", "▼" or empty
}

// Row is one table row.
type Row struct {
	Cells    []string
	Href     string
	Selected bool
}

// Item is a labelled value, used for stats and the detail panel.
type Item struct {
	Label string
	Value string
}

// Alert is a user-facing error.
type Alert struct {
	Message string
	Action  string
	Code    string
}

// Dashboard is everything the data view shows.
type Dashboard struct {
	Search     string
	SortField  string
	Ascending  bool
	Columns    []Column
	Rows       []Row
	Stats      []Item
	Detail     []Item
	Loading    bool
	UpdatedAt  string
	Error      *Alert
	PolicyHint string
	Exports    []Item // Label and href
}

func (d Dashboard) direction() string {
	if d.Ascending {
		return "asc"
	}
	return "desc"
}
