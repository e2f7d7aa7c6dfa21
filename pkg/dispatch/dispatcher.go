package dispatch

import (
	"context"

	"github.com/loomkit/loom/pkg/logging"
	"github.com/loomkit/loom/pkg/middleware"
	"github.com/loomkit/loom/pkg/params"
	"github.com/loomkit/loom/pkg/reqcontext"
	"github.com/loomkit/loom/pkg/response"
)

// Dispatcher runs the full per-request pipeline of spec.md §4.6: match
// the route, build a Request Context, run the global middleware chain
// wrapping per-route middleware wrapping parameter resolution wrapping
// the handler, and normalize whatever comes out (a *response.Response,
// or an error) into a single Response to hand back to the transport.
type Dispatcher struct {
	router   *Router
	resolver *params.Resolver
	global   []middleware.Entry
	log      logging.Logger
}

// NewDispatcher builds a Dispatcher over a frozen Router.
func NewDispatcher(router *Router, resolver *params.Resolver, global []middleware.Entry, log logging.Logger) *Dispatcher {
	if log == nil {
		log = logging.NoOp()
	}
	if resolver == nil {
		resolver = params.NewResolver(nil)
	}
	return &Dispatcher{router: router, resolver: resolver, global: global, log: log}
}

// Dispatch matches method+path against the router and runs the pipeline.
// It never returns an error itself — every failure, including an
// unmatched route, is normalized into a Response via response.Error, so
// a transport adapter only ever has one Response to write onto the wire.
func (d *Dispatcher) Dispatch(ctx context.Context, method, path string, src params.RequestSource, log logging.Logger) *response.Response {
	descriptor, pathParams, err := d.router.Match(method, path)
	if err != nil {
		return response.Error(err)
	}

	rc := reqcontext.New(log)
	defer rc.RunCleanups()
	ctx = reqcontext.WithContext(ctx, rc)

	chain := NewChain(d.global, descriptor.Middleware)

	terminal := func(ctx context.Context, rc *reqcontext.Context) (*response.Response, error) {
		bound, err := d.resolver.Resolve(pathAwareSource{RequestSource: src, path: pathParams}, descriptor.Declarations)
		if err != nil {
			return nil, err
		}
		return descriptor.Handler(ctx, rc, bound)
	}

	resp, err := chain.Build(terminal)(ctx, rc)
	if err != nil {
		return response.Error(err)
	}
	if resp == nil {
		return response.NoContent()
	}
	return resp
}

// NewChain exposes middleware.NewChain under the global-then-route
// ordering Dispatch needs: every global entry precedes every route
// entry, and within each group entries keep their own declared
// Priority (lower runs first), ties broken by registration order, per
// spec.md §4.4. Declared Priority is never overwritten — only the
// group (global vs. route) constrains relative placement.
func NewChain(global []middleware.Entry, route []middleware.Entry) *middleware.Chain {
	entries := make([]middleware.Entry, 0, len(global)+len(route))
	entries = append(entries, middleware.NewChain(global).Entries()...)
	entries = append(entries, middleware.NewChain(route).Entries()...)
	return middleware.NewChainPreSorted(entries)
}

// pathAwareSource adapts a transport's RequestSource with the path
// parameters the Router bound during matching, since the trie match and
// the parameter resolution happen as two separate steps.
type pathAwareSource struct {
	params.RequestSource
	path map[string]string
}

func (p pathAwareSource) PathParam(name string) (string, bool) {
	v, ok := p.path[name]
	return v, ok
}
