package domain

import "iter"

// DefaultSearchLimit is the page size used when a search does not set one.
const DefaultSearchLimit = 25

// ResultSet is a single page of search results. Size, Count and Limit are
// taken from the response as reported; they are never recomputed.
type ResultSet[T any] struct {
	Size  int
	Count int
	Limit int
	items []T
}

func NewResultSet[T any](items []T, size, count, limit int) *ResultSet[T] {
	return &ResultSet[T]{Size: size, Count: count, Limit: limit, items: items}
}

// Complete reports whether the page holds every match known to the server.
func (r *ResultSet[T]) Complete() bool {
	return r.Size == r.Count
}

func (r *ResultSet[T]) Len() int {
	return len(r.items)
}

func (r *ResultSet[T]) At(i int) T {
	return r.items[i]
}

// Items returns a copy of the materialised page.
func (r *ResultSet[T]) Items() []T {
	out := make([]T, len(r.items))
	copy(out, r.items)
	return out
}

// All replays the materialised page. It never fetches.
func (r *ResultSet[T]) All() iter.Seq2[int, T] {
	return func(yield func(int, T) bool) {
		for i, item := range r.items {
			if !yield(i, item) {
				return
			}
		}
	}
}
