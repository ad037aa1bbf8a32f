package service

import (
	"context"
	"strings"
	"sync"

	"github.com/d60-Lab/feedsync/internal/model"
	"github.com/d60-Lab/feedsync/internal/paging"
)

// Search keeps one result collection per query; a new query replaces it.
type Search struct {
	deps Deps

	mu    sync.Mutex
	query string
	users *paging.Collection[string, model.UserInfo]
}

func NewSearch(d Deps) *Search { return &Search{deps: d} }

// Query starts a new search. The same query again just loads the next page;
// a blank query clears the results.
func (s *Search) Query(ctx context.Context, q string) (int, error) {
	q = strings.TrimSpace(q)

	s.mu.Lock()
	if q == s.query && s.users != nil {
		users := s.users
		s.mu.Unlock()
		return users.LoadMore(ctx)
	}
	if s.users != nil {
		s.users.Close()
		s.users = nil
	}
	s.query = q
	if q == "" {
		s.mu.Unlock()
		return 0, nil
	}
	fetch := func(ctx context.Context, req paging.Request) (paging.Window[model.UserInfo], error) {
		return s.deps.API.SearchUsers(ctx, q, req)
	}
	users := paging.New(model.UserInfoKey, fetch, paging.Options{
		Name:    "search",
		Size:    s.deps.Paging.SearchSize,
		Metrics: s.deps.recorder(),
	})
	s.users = users
	s.mu.Unlock()

	return users.LoadMore(ctx)
}

func (s *Search) LoadMore(ctx context.Context) (int, error) {
	s.mu.Lock()
	users := s.users
	s.mu.Unlock()
	if users == nil {
		return 0, nil
	}
	return users.LoadMore(ctx)
}

func (s *Search) Users() []model.UserInfo {
	s.mu.Lock()
	users := s.users
	s.mu.Unlock()
	if users == nil {
		return nil
	}
	return users.Items()
}

func (s *Search) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.users != nil {
		s.users.Close()
		s.users = nil
	}
	s.query = ""
}
