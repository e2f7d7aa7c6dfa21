package dispatch

import (
	"sort"
	"strings"

	"github.com/loomkit/loom/pkg/diagnostics"
)

// segmentKind distinguishes the three kinds of path segment a Router
// node can hold, in the static > dynamic > wildcard priority order
// spec.md §4.6 mandates.
type segmentKind int

const (
	segStatic segmentKind = iota
	segDynamic
	segWildcard
)

type node struct {
	static    map[string]*node
	dynamic   *node
	dynParam  string
	wildcard  *node
	wildParam string
	methods   map[string]*HandlerDescriptor
}

func newNode() *node {
	return &node{static: make(map[string]*node), methods: make(map[string]*HandlerDescriptor)}
}

// Router is the prefix tree matching an incoming (method, path) to a
// HandlerDescriptor. It is built up via Register calls while open and
// becomes immutable once Freeze succeeds, mirroring pkg/container's
// open→frozen discipline.
type Router struct {
	root          *node
	frozen        bool
	trailingSlash string // "ignore" | "redirect" | "strict", per spec.md §6
	caseSensitive bool
}

// Option configures a Router at construction time.
type Option func(*Router)

// WithTrailingSlashMode sets how the Router reconciles a path's
// trailing slash against the registered pattern. Defaults to "ignore".
func WithTrailingSlashMode(mode string) Option {
	return func(r *Router) { r.trailingSlash = mode }
}

// WithCaseSensitive sets whether static path segments are matched
// case-sensitively. Defaults to true.
func WithCaseSensitive(sensitive bool) Option {
	return func(r *Router) { r.caseSensitive = sensitive }
}

// NewRouter builds an empty, mutable Router.
func NewRouter(opts ...Option) *Router {
	r := &Router{root: newNode(), trailingSlash: "ignore", caseSensitive: true}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func splitPath(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

// staticKey returns the key a static segment is stored/looked-up under,
// folding case when the Router is configured case-insensitive.
func (r *Router) staticKey(segment string) string {
	if r.caseSensitive {
		return segment
	}
	return strings.ToLower(segment)
}

func parseSegment(raw string) (segmentKind, string) {
	switch {
	case strings.HasPrefix(raw, "*"):
		return segWildcard, strings.TrimPrefix(raw, "*")
	case strings.HasPrefix(raw, ":"):
		return segDynamic, strings.TrimPrefix(raw, ":")
	default:
		return segStatic, raw
	}
}

// Register inserts a route into the tree. Two routes that would occupy
// the same tree position with a different dynamic parameter name, or
// the identical (method, path) pattern twice, raise AmbiguousRoute.
func (r *Router) Register(d *HandlerDescriptor) error {
	if r.frozen {
		return diagnostics.NewAmbiguousRoute(d.Method, d.Pattern)
	}

	segments := splitPath(d.Pattern)
	if r.trailingSlash == "strict" && len(d.Pattern) > 1 && strings.HasSuffix(d.Pattern, "/") {
		// Under "strict" a trailing slash is its own route: keep it as a
		// final empty segment, the shape Match looks up in strict mode.
		segments = append(segments, "")
	}
	cur := r.root
	for _, raw := range segments {
		kind, name := parseSegment(raw)
		switch kind {
		case segStatic:
			key := r.staticKey(name)
			child, ok := cur.static[key]
			if !ok {
				child = newNode()
				cur.static[key] = child
			}
			cur = child
		case segDynamic:
			if cur.dynamic == nil {
				cur.dynamic = newNode()
				cur.dynParam = name
			} else if cur.dynParam != name {
				return diagnostics.NewAmbiguousRoute(d.Method, d.Pattern)
			}
			cur = cur.dynamic
		case segWildcard:
			if cur.wildcard == nil {
				cur.wildcard = newNode()
				cur.wildParam = name
			} else if cur.wildParam != name {
				return diagnostics.NewAmbiguousRoute(d.Method, d.Pattern)
			}
			cur = cur.wildcard
		}
	}

	if _, exists := cur.methods[d.Method]; exists {
		return diagnostics.NewAmbiguousRoute(d.Method, d.Pattern)
	}
	cur.methods[d.Method] = d
	return nil
}

// Freeze finalizes the tree against future registration, matching
// pkg/container's Refresh semantics (the router becomes read-only once
// the Dispatcher starts serving).
func (r *Router) Freeze() {
	r.frozen = true
}

// Match finds the HandlerDescriptor for a method and path, applying
// spec.md §4.6's static-before-dynamic, longest-path, lexicographic
// priority rules, and binds any path parameters matched along the way.
// MethodNotAllowed is returned (with the set of methods that do match
// the path) when the path matches some other method's route.
func (r *Router) Match(method, path string) (*HandlerDescriptor, map[string]string, error) {
	hasTrailingSlash := len(path) > 1 && strings.HasSuffix(path, "/")

	if hasTrailingSlash && r.trailingSlash == "strict" {
		// A trailing slash is a distinct route under "strict": only match
		// if the registered pattern itself ends in an (empty) segment.
		segments := append(splitPath(path), "")
		return r.matchSegments(method, path, segments)
	}

	segments := splitPath(path)
	leaf, bound, err := r.matchSegments(method, path, segments)
	if err != nil {
		return nil, nil, err
	}

	if hasTrailingSlash && r.trailingSlash == "redirect" {
		canonical := strings.TrimSuffix(path, "/")
		return nil, nil, diagnostics.NewRouteRedirect(method, path, canonical)
	}
	return leaf, bound, nil
}

func (r *Router) matchSegments(method, path string, segments []string) (*HandlerDescriptor, map[string]string, error) {
	bound := make(map[string]string)
	leaf, allowedMethods := r.walk(r.root, segments, 0, bound, method)
	if leaf == nil {
		if len(allowedMethods) > 0 {
			sort.Strings(allowedMethods)
			return nil, nil, diagnostics.NewMethodNotAllowed(method, path, allowedMethods)
		}
		return nil, nil, diagnostics.NewRouteNotFound(method, path)
	}
	return leaf, bound, nil
}

// walk recursively matches segments[i:] starting at n, preferring a
// static child, then the dynamic child, then the wildcard child — the
// longest/most-specific match wins because a static branch is always
// tried to full depth before a dynamic branch is considered, and
// backtracks to a shallower alternative only when the deeper branch
// dead-ends. allowed accumulates method names found on a path match that
// simply lacks the requested method, to render MethodNotAllowed.
func (r *Router) walk(n *node, segments []string, i int, bound map[string]string, method string) (*HandlerDescriptor, []string) {
	if i == len(segments) {
		if len(n.methods) == 0 {
			return nil, nil
		}
		if d, ok := n.methods[method]; ok {
			return d, nil
		}
		names := make([]string, 0, len(n.methods))
		for m := range n.methods {
			names = append(names, m)
		}
		return nil, names
	}

	seg := segments[i]
	var allowed []string

	if child, ok := n.static[r.staticKey(seg)]; ok {
		if d, a := r.walk(child, segments, i+1, bound, method); d != nil {
			return d, nil
		} else {
			allowed = append(allowed, a...)
		}
	}

	if n.dynamic != nil {
		saved, had := bound[n.dynParam]
		bound[n.dynParam] = seg
		if d, a := r.walk(n.dynamic, segments, i+1, bound, method); d != nil {
			return d, nil
		} else {
			allowed = append(allowed, a...)
			if had {
				bound[n.dynParam] = saved
			} else {
				delete(bound, n.dynParam)
			}
		}
	}

	if n.wildcard != nil {
		bound[n.wildParam] = strings.Join(segments[i:], "/")
		if d, ok := n.wildcard.methods[method]; ok {
			return d, nil
		}
		if len(n.wildcard.methods) > 0 {
			for m := range n.wildcard.methods {
				allowed = append(allowed, m)
			}
		} else {
			delete(bound, n.wildParam)
		}
	}

	return nil, allowed
}
