// Package middleware implements the request middleware onion described
// in spec.md §4.4: a priority-ordered chain of continuation-style
// handlers built once at refresh time, with short-circuit semantics and
// a stable tie-break on registration order.
//
// It generalizes
// _examples/mwantia-fabric/pkg/container/middleware.go's
// MiddlewareService.Process idea — "intercept a resolved instance,
// return a (possibly different) instance or an error" — from a
// DI-resolution hook into a request-continuation hook: instead of
// wrapping a constructed value, a Middleware wraps the call to the next
// handler in the chain.
package middleware

import (
	"context"
	"sort"

	"github.com/loomkit/loom/pkg/reqcontext"
	"github.com/loomkit/loom/pkg/response"
)

// Next invokes the remainder of the chain (the next middleware, or
// ultimately the route handler).
type Next func(ctx context.Context, rc *reqcontext.Context) (*response.Response, error)

// Middleware wraps a Next continuation. Returning without calling next
// short-circuits the chain — every layer further in (including the
// handler) never runs.
type Middleware func(ctx context.Context, rc *reqcontext.Context, next Next) (*response.Response, error)

// Entry pairs a Middleware with the priority spec.md §4.4 orders the
// onion by (lower numbers run first, i.e. outermost). Ties between equal
// priorities are broken by the entry's position in the slice passed to
// NewChain (registration order).
type Entry struct {
	Name     string
	Priority int
	Handler  Middleware
}

// Chain is the frozen, priority-sorted onion built from a set of
// Entries. Construction happens once at refresh time; Build is cheap to
// call per-request because it only closes over the already-sorted slice.
type Chain struct {
	entries []Entry
}

// NewChain sorts entries by ascending Priority, breaking ties by their
// original registration order (Go's sort.SliceStable preserves the input
// order for equal keys, which here is already registration order).
func NewChain(entries []Entry) *Chain {
	sorted := append([]Entry{}, entries...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Priority < sorted[j].Priority
	})
	return &Chain{entries: sorted}
}

// NewChainPreSorted builds a Chain from entries already in final onion
// order, skipping the sort NewChain performs. Used to concatenate two
// independently-sorted groups (e.g. global entries before route
// entries) without an overall re-sort intermixing them by Priority.
func NewChainPreSorted(entries []Entry) *Chain {
	return &Chain{entries: append([]Entry{}, entries...)}
}

// Entries returns the Chain's entries in onion (outermost-first) order.
func (c *Chain) Entries() []Entry {
	return append([]Entry{}, c.entries...)
}

// Build constructs the final Next that runs the whole chain, inside-out:
// the first entry's Middleware is the outermost wrapper, and terminal is
// called only if every layer calls its next.
func (c *Chain) Build(terminal Next) Next {
	next := terminal
	for i := len(c.entries) - 1; i >= 0; i-- {
		mw := c.entries[i].Handler
		captured := next
		next = func(ctx context.Context, rc *reqcontext.Context) (*response.Response, error) {
			return mw(ctx, rc, captured)
		}
	}
	return next
}

// Names returns the entries' names in onion (outermost-first) order, for
// diagnostics and tests.
func (c *Chain) Names() []string {
	out := make([]string, len(c.entries))
	for i, e := range c.entries {
		out[i] = e.Name
	}
	return out
}
