// Package searchindex provides a reusable substring-match index with
// wraparound navigation. It knows nothing about the elements it indexes:
// callers supply a collector that yields candidates in a deterministic
// order and a predicate deciding whether an element matches a query.
package searchindex

import "strings"

// Index tracks the matches for the current query and a 1-based cursor over
// them. A cursor of 0 means no active match.
type Index[T any] struct {
	collect func(yield func(T))
	matches func(item T, query string) bool

	query string
	found []T
	index int
}

// New builds an index. collect must yield candidates in the order matches
// should be navigated; matches is called with the lower-cased query.
func New[T any](collect func(yield func(T)), matches func(item T, query string) bool) *Index[T] {
	return &Index[T]{
		collect: collect,
		matches: matches,
	}
}

// SetQuery recomputes the match list wholesale. An empty query yields no
// matches. When the match list turns non-empty the first match becomes
// active; otherwise the cursor is clamped into the new list.
func (x *Index[T]) SetQuery(query string) {
	x.query = strings.ToLower(query)
	x.found = x.found[:0]
	if x.query == "" {
		x.index = 0
		return
	}

	x.collect(func(item T) {
		if x.matches(item, x.query) {
			x.found = append(x.found, item)
		}
	})

	switch {
	case len(x.found) == 0:
		x.index = 0
	case x.index == 0:
		x.index = 1
	case x.index > len(x.found):
		x.index = len(x.found)
	}
}

func (x *Index[T]) Query() string {
	return x.query
}

func (x *Index[T]) Matches() []T {
	return x.found
}

// MatchIndex is 1-based; 0 means no active match.
func (x *Index[T]) MatchIndex() int {
	return x.index
}

// NextMatch advances the cursor, wrapping past the last match to the first.
// No-op on an empty match list.
func (x *Index[T]) NextMatch() (T, bool) {
	if len(x.found) == 0 {
		var zero T
		return zero, false
	}
	x.index++
	if x.index > len(x.found) {
		x.index = 1
	}
	return x.found[x.index-1], true
}

// PreviousMatch retreats the cursor, wrapping before the first match to the
// last. No-op on an empty match list.
func (x *Index[T]) PreviousMatch() (T, bool) {
	if len(x.found) == 0 {
		var zero T
		return zero, false
	}
	x.index--
	if x.index < 1 {
		x.index = len(x.found)
	}
	return x.found[x.index-1], true
}

// ActiveMatch reports the element under the cursor, if any.
func (x *Index[T]) ActiveMatch() (T, bool) {
	if x.index == 0 {
		var zero T
		return zero, false
	}
	return x.found[x.index-1], true
}

// Reset clears the query, matches and cursor.
func (x *Index[T]) Reset() {
	x.query = ""
	x.found = nil
	x.index = 0
}
