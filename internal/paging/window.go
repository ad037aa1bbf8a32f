package paging

// Window is the one thing the synchronizer needs from a fetched batch: its items
// and whether the server has more after it.
type Window[T any] interface {
	Items() []T
	HasMore() bool
}

// Sort mirrors the Spring `sort` block inside Pageable.
type Sort struct {
	Empty    bool `json:"empty"`
	Sorted   bool `json:"sorted"`
	Unsorted bool `json:"unsorted"`
}

// Pageable is the optional request echo inside a Page.
type Pageable struct {
	Sort       Sort  `json:"sort"`
	Offset     int64 `json:"offset"`
	PageNumber int   `json:"pageNumber"`
	PageSize   int   `json:"pageSize"`
	Unpaged    bool  `json:"unpaged"`
	Paged      bool  `json:"paged"`
}

// Page is the page-number style response; `last` ends the collection.
type Page[T any] struct {
	Content       []T       `json:"content"`
	Pageable      *Pageable `json:"pageable,omitempty"`
	Number        int       `json:"number"`
	Size          int       `json:"size"`
	TotalElements int64     `json:"totalElements"`
	TotalPages    int       `json:"totalPages"`
	Last          bool      `json:"last"`
	First         bool      `json:"first,omitempty"`
	Empty         bool      `json:"empty,omitempty"`
}

func (p *Page[T]) Items() []T {
	if p == nil {
		return nil
	}
	return p.Content
}

// HasMore is false for a nil page so a null result cannot loop forever.
func (p *Page[T]) HasMore() bool { return p != nil && !p.Last }

// PageNumber prefers the pageable echo and falls back to `number`.
func (p *Page[T]) PageNumber() int {
	if p.Pageable != nil {
		return p.Pageable.PageNumber
	}
	return p.Number
}

// Slice is the slice style response; `hasNext` drives continuation.
type Slice[T any] struct {
	Content     []T  `json:"content"`
	Size        int  `json:"size"`
	Number      int  `json:"number"`
	HasNext     bool `json:"hasNext"`
	HasPrevious bool `json:"hasPrevious"`
}

func (s *Slice[T]) Items() []T {
	if s == nil {
		return nil
	}
	return s.Content
}

func (s *Slice[T]) HasMore() bool { return s != nil && s.HasNext }

// Mapped adapts a window whose items need reshaping, e.g. chat history groups
// flattened into messages. The continuation flag is carried over unchanged.
type Mapped[T any] struct {
	items   []T
	hasMore bool
}

// Map builds a Mapped window from src using fn for every source item.
func Map[S, T any](src Window[S], fn func(S) []T) *Mapped[T] {
	var out []T
	for _, s := range src.Items() {
		out = append(out, fn(s)...)
	}
	return &Mapped[T]{items: out, hasMore: src.HasMore()}
}

func (m *Mapped[T]) Items() []T    { return m.items }
func (m *Mapped[T]) HasMore() bool { return m.hasMore }
