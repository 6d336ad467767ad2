// Package endpoint holds the AI service address that can be changed while
// the server runs.
package endpoint

import (
	"strings"
	"sync/atomic"
)

// Cell is safe for concurrent use. Readers take one snapshot per request.
type Cell struct {
	url atomic.Pointer[string]
}

func NewCell(initial string) *Cell {
	c := &Cell{}
	c.Set(initial)
	return c
}

// Get returns the current URL, or "" when none is configured.
func (c *Cell) Get() string {
	if p := c.url.Load(); p != nil {
		return *p
	}
	return ""
}

// Set replaces the URL. Surrounding whitespace and trailing slashes are dropped.
func (c *Cell) Set(url string) string {
	url = strings.TrimRight(strings.TrimSpace(url), "/")
	c.url.Store(&url)
	return url
}

func (c *Cell) Configured() bool {
	return c.Get() != ""
}
