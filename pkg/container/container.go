// Package container implements the IoC/DI container described in
// spec.md §3–§4.1: a definition registry, a factory-backed resolver, a
// scope manager (singleton/prototype/request), cycle detection, and the
// open→frozen→draining→closed state machine.
//
// It is generalized from _examples/mwantia-fabric/pkg/container, which
// registers and resolves by reflect.Type using Go generics. This package
// keeps that file's locking discipline (RWMutex guarding the maps,
// factories invoked outside the lock, double-checked construction) but
// re-keys everything by the spec's string Definition.Name, and adds the
// scope/eager/topology concerns the teacher never had.
package container

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"sync"

	"github.com/loomkit/loom/pkg/definition"
	"github.com/loomkit/loom/pkg/diagnostics"
	"github.com/loomkit/loom/pkg/logging"
	"github.com/loomkit/loom/pkg/reqcontext"
	"github.com/loomkit/loom/pkg/scope"
)

// Container is the definitive registry of Definitions and the sole
// authority for constructing and caching instances.
type Container struct {
	mu    sync.RWMutex
	state containerState

	definitions map[string]*definition.Definition
	order       []string // registration order, for deterministic iteration

	singletons     map[string]any
	singletonGates map[string]*sync.Once
	singletonErrs  map[string]error

	typeIndex map[reflect.Type][]string // built at refresh

	log logging.Logger
}

// New creates an open Container ready to accept registrations.
func New(log logging.Logger) *Container {
	if log == nil {
		log = logging.NoOp()
	}
	return &Container{
		state:          stateOpen,
		definitions:    make(map[string]*definition.Definition),
		singletons:     make(map[string]any),
		singletonGates: make(map[string]*sync.Once),
		singletonErrs:  make(map[string]error),
		typeIndex:      make(map[reflect.Type][]string),
		log:            log,
	}
}

// Register accepts a Definition only while the container is open.
func (c *Container) Register(d *definition.Definition) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != stateOpen {
		if c.state == stateClosed || c.state == stateDraining {
			return diagnostics.NewContainerClosed(d.Name)
		}
		return diagnostics.NewRegistryFrozen(d.Name)
	}
	if _, exists := c.definitions[d.Name]; exists {
		return diagnostics.NewAlreadyRegistered(d.Name)
	}

	c.definitions[d.Name] = d
	c.order = append(c.order, d.Name)
	c.singletonGates[d.Name] = &sync.Once{}
	return nil
}

// Reset clears the registry back to an open, empty state. It exists
// solely so re-registration can be explicitly opted into, per spec.md
// §3's Definition invariant ("Re-registration is rejected unless the
// registry was explicitly reset").
func (c *Container) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = stateOpen
	c.definitions = make(map[string]*definition.Definition)
	c.order = nil
	c.singletons = make(map[string]any)
	c.singletonGates = make(map[string]*sync.Once)
	c.singletonErrs = make(map[string]error)
	c.typeIndex = make(map[reflect.Type][]string)
}

// Has reports whether name is a registered Definition, regardless of
// container state.
func (c *Container) Has(name string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.definitions[name]
	return ok
}

// Refresh transitions open→frozen. It validates that every declared
// dependency name exists, builds the type→name index for type-based
// injection, detects static cycles among eager singletons, and
// constructs eager singletons in a topologically valid order.
func (c *Container) Refresh(ctx context.Context) error {
	c.mu.Lock()
	if c.state != stateOpen {
		c.mu.Unlock()
		return diagnostics.NewRegistryFrozen("")
	}

	for name, d := range c.definitions {
		for _, dep := range d.DeclaredDependencies {
			if _, ok := c.definitions[dep]; !ok {
				c.mu.Unlock()
				return diagnostics.NewDependencyNotFound(dep, name, "")
			}
		}
		if d.Type != nil {
			c.typeIndex[d.Type] = append(c.typeIndex[d.Type], name)
		}
	}

	eagerOrder, err := c.topoSortEager()
	if err != nil {
		c.mu.Unlock()
		return err
	}

	c.state = stateFrozen
	c.mu.Unlock()

	for _, name := range eagerOrder {
		if _, err := c.Get(ctx, name); err != nil {
			return err
		}
	}
	return nil
}

// topoSortEager performs a static cycle check and produces a
// dependency-respecting construction order for every eager singleton.
// Must be called with c.mu held.
func (c *Container) topoSortEager() ([]string, error) {
	var eager []string
	for _, name := range c.order {
		d := c.definitions[name]
		if d.Scope == scope.Singleton && d.Eager {
			eager = append(eager, name)
		}
	}
	sort.Strings(eager) // deterministic base order before topo adjustment

	visited := make(map[string]int) // 0=unvisited 1=in-progress 2=done
	var order []string
	var path []string

	var visit func(name string) error
	visit = func(name string) error {
		switch visited[name] {
		case 2:
			return nil
		case 1:
			cycle := append(append([]string{}, path...), name)
			return diagnostics.NewCircularDependency(cycle)
		}
		visited[name] = 1
		path = append(path, name)

		d, ok := c.definitions[name]
		if ok {
			for _, dep := range d.DeclaredDependencies {
				if err := visit(dep); err != nil {
					return err
				}
			}
		}

		path = path[:len(path)-1]
		visited[name] = 2
		order = append(order, name)
		return nil
	}

	for _, name := range eager {
		if err := visit(name); err != nil {
			return nil, err
		}
	}
	return order, nil
}

// Get resolves a named component. Legal only when frozen or draining.
func (c *Container) Get(ctx context.Context, name string) (any, error) {
	c.mu.RLock()
	state := c.state
	c.mu.RUnlock()

	if state == stateOpen {
		return nil, diagnostics.NewContainerClosed(name)
	}
	if state == stateClosed {
		return nil, diagnostics.NewContainerClosed(name)
	}

	ctx, err := pushStack(ctx, name)
	if err != nil {
		return nil, err
	}

	c.mu.RLock()
	d, ok := c.definitions[name]
	c.mu.RUnlock()
	if !ok {
		return nil, diagnostics.NewDependencyNotFound(name, "", "")
	}

	switch d.Scope {
	case scope.Singleton:
		return c.getSingleton(ctx, d)
	case scope.Prototype:
		return c.construct(ctx, d)
	case scope.Request:
		return c.getRequestScoped(ctx, d)
	default:
		return nil, fmt.Errorf("unknown scope for %q", name)
	}
}

// TryGet behaves like Get but reports failure as (nil, false) instead of
// an error. An unknown name gives (nil, false), and so does every other
// resolution error (a cycle, a missing request scope, a factory error);
// none of them is propagated.
func (c *Container) TryGet(ctx context.Context, name string) (any, bool) {
	v, err := c.Get(ctx, name)
	if err != nil {
		if diagnostics.IsNotFound(err) {
			return nil, false
		}
		return nil, false
	}
	return v, true
}

func (c *Container) getSingleton(ctx context.Context, d *definition.Definition) (any, error) {
	c.mu.RLock()
	if v, ok := c.singletons[d.Name]; ok {
		c.mu.RUnlock()
		return v, nil
	}
	gate := c.singletonGates[d.Name]
	c.mu.RUnlock()

	// The gate guard is not held across factory execution's own recursive
	// Get calls beyond this Once.Do body; concurrent first-time callers
	// for *different* names never block on each other, only callers of
	// the *same* name do, matching spec.md §4.1's "guard must not be
	// held across factory execution to avoid priority inversion" for the
	// container's own maps (the per-name Once serializes only same-name
	// construction, which the spec requires: "no two factories for the
	// same N run concurrently").
	gate.Do(func() {
		v, err := c.construct(ctx, d)
		if err != nil {
			c.mu.Lock()
			c.singletonErrs[d.Name] = err
			c.mu.Unlock()
			return
		}
		c.mu.Lock()
		c.singletons[d.Name] = v
		c.mu.Unlock()
	})

	c.mu.RLock()
	defer c.mu.RUnlock()
	if err, ok := c.singletonErrs[d.Name]; ok {
		return nil, err
	}
	return c.singletons[d.Name], nil
}

func (c *Container) getRequestScoped(ctx context.Context, d *definition.Definition) (any, error) {
	rc, ok := reqcontext.FromContext(ctx)
	if !ok {
		return nil, diagnostics.NewNoActiveRequestScope(d.Name)
	}

	rc.Lock()
	if v, ok := rc.SlotLocked(d.Name); ok {
		rc.Unlock()
		return v, nil
	}
	// Hold the request context's own lock across construction: contention
	// here is scoped to one request, never across requests, so there is
	// no cross-request priority inversion risk (spec.md §4.1: "Request-
	// scoped construction is guarded by a lock on the active Request
	// Context only").
	defer rc.Unlock()
	if v, ok := rc.SlotLocked(d.Name); ok {
		return v, nil
	}
	v, err := c.construct(ctx, d)
	if err != nil {
		return nil, err
	}
	rc.StoreSlotLocked(d.Name, v)
	return v, nil
}

// construct calls the Definition's factory and applies injection
// bindings to the resulting instance.
func (c *Container) construct(ctx context.Context, d *definition.Definition) (any, error) {
	bound := &boundContainer{c: c, ctx: ctx}
	v, err := d.Factory(bound)
	if err != nil {
		return nil, err
	}
	if err := c.applyInjection(ctx, v, d); err != nil {
		return nil, err
	}
	return v, nil
}

// boundContainer adapts Container to definition.Container, closing over
// the resolution context (including the cycle-detection stack and any
// active Request Context) so a factory's nested c.Get(name) calls thread
// the same context through recursively.
type boundContainer struct {
	c   *Container
	ctx context.Context
}

func (b *boundContainer) Get(name string) (any, error) {
	return b.c.Get(b.ctx, name)
}

// Shutdown transitions frozen→draining; Close completes draining→closed.
// Callers drive the Lifecycle Manager's shutdown phases (pkg/lifecycle)
// between the two calls; Container itself only owns the state machine and
// the final rejection of further Get calls once closed.
func (c *Container) Shutdown() error {
	c.mu.Lock()
	if c.state == stateClosed {
		c.mu.Unlock()
		return nil // idempotent after first completion
	}
	if c.state != stateFrozen && c.state != stateDraining {
		c.mu.Unlock()
		return diagnostics.NewRegistryFrozen("")
	}
	c.state = stateDraining
	c.mu.Unlock()
	return nil
}

// Close finalizes the draining→closed transition. Split from Shutdown so
// pkg/lifecycle can run pre_destroy/destroy while the container is still
// in draining (allowing in-flight Get calls to complete) and only close
// once every component has had its shutdown attempt.
func (c *Container) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = stateClosed
}

// Definitions returns the registered Definitions in registration order,
// used by pkg/lifecycle to build its dependency graph.
func (c *Container) Definitions() []*definition.Definition {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*definition.Definition, 0, len(c.order))
	for _, name := range c.order {
		out = append(out, c.definitions[name])
	}
	return out
}
