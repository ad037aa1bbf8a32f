package service

import "github.com/d60-Lab/feedsync/internal/paging"

// 与客户端约定的 LocalDateTime 格式
const timeLayout = "2006-01-02T15:04:05"

// PageRequest 0 起始页号
type PageRequest struct {
	Page int
	Size int
}

func (r PageRequest) normalize(defaultSize int) PageRequest {
	if r.Page < 0 {
		r.Page = 0
	}
	if r.Size <= 0 {
		r.Size = defaultSize
	}
	if r.Size > 100 {
		r.Size = 100
	}
	return r
}

func (r PageRequest) Offset() int { return r.Page * r.Size }

func newPage[T any](content []T, req PageRequest, total int64) *paging.Page[T] {
	if content == nil {
		content = []T{}
	}
	pages := int((total + int64(req.Size) - 1) / int64(req.Size))
	return &paging.Page[T]{
		Content: content,
		Pageable: &paging.Pageable{
			Sort:       paging.Sort{Empty: true, Unsorted: true},
			Offset:     int64(req.Offset()),
			PageNumber: req.Page,
			PageSize:   req.Size,
			Paged:      true,
		},
		Number:        req.Page,
		Size:          req.Size,
		TotalElements: total,
		TotalPages:    pages,
		Last:          req.Page+1 >= pages,
		First:         req.Page == 0,
		Empty:         len(content) == 0,
	}
}

// newSlice content 为多取一条后的结果，超出 size 即 hasNext
func newSlice[T any](content []T, req PageRequest) *paging.Slice[T] {
	hasNext := len(content) > req.Size
	if hasNext {
		content = content[:req.Size]
	}
	if content == nil {
		content = []T{}
	}
	return &paging.Slice[T]{
		Content:     content,
		Size:        req.Size,
		Number:      req.Page,
		HasNext:     hasNext,
		HasPrevious: req.Page > 0,
	}
}
