package paging

import (
	"errors"
	"net/url"
	"strconv"
)

// ErrExhausted is returned by Cursor.Next once the server reported the last page.
var ErrExhausted = errors.New("paging: no more pages")

// Request is what the cursor hands to a fetch: 0-based page, size, optional sort.
type Request struct {
	Page int
	Size int
	Sort string
}

// Values encodes the request as query parameters.
func (r Request) Values() url.Values {
	v := url.Values{}
	v.Set("page", strconv.Itoa(r.Page))
	if r.Size > 0 {
		v.Set("size", strconv.Itoa(r.Size))
	}
	if r.Sort != "" {
		v.Set("sort", r.Sort)
	}
	return v
}

// Cursor tracks the next page index and the end-of-data flag of one collection.
// It is a value type; the owning collection guards it.
type Cursor struct {
	page    int
	size    int
	sort    string
	hasMore bool
}

// NewCursor starts at page 0 with more data assumed.
func NewCursor(size int, sort string) Cursor {
	return Cursor{size: size, sort: sort, hasMore: true}
}

// Next returns the parameters of the next request.
func (c Cursor) Next() (Request, error) {
	if !c.hasMore {
		return Request{}, ErrExhausted
	}
	return Request{Page: c.page, Size: c.size, Sort: c.sort}, nil
}

// Advance moves past a successfully fetched window.
func (c *Cursor) Advance(w interface{ HasMore() bool }) {
	c.page++
	c.hasMore = w.HasMore()
}

func (c Cursor) Page() int     { return c.page }
func (c Cursor) HasMore() bool { return c.hasMore }
