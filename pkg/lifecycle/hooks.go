// Package lifecycle drives the phased startup/shutdown of every component
// registered with pkg/container, per spec.md §4.2: a topological ordering
// over declared dependencies, four hook phases each with a sync and an
// async variant (async preferred when a component implements both), a
// three-valued failure policy, and a strictly-forward per-component state
// machine.
//
// It generalizes the single Init/Cleanup pair in
// _examples/mwantia-fabric/pkg/container/lifecycle.go (LifecycleService)
// into four independent phases, and borrows the phase-list/per-phase
// logging shape from
// _examples/other_examples/24ce767e_kochabx-kit__ioc-lifecycle.go.go.
package lifecycle

import "context"

// PostConstructor runs immediately after a component is constructed and
// injected, before it is handed to any consumer.
type PostConstructor interface {
	PostConstruct(ctx context.Context) error
}

// AsyncPostConstructor is the async variant of PostConstructor, preferred
// over the sync form when a component implements both.
type AsyncPostConstructor interface {
	PostConstructAsync(ctx context.Context) error
}

// Starter runs once, after every component has completed post_construct,
// in dependency order.
type Starter interface {
	Startup(ctx context.Context) error
}

// AsyncStarter is the async variant of Starter.
type AsyncStarter interface {
	StartupAsync(ctx context.Context) error
}

// PreDestroyer runs during shutdown, before Destroyer, in reverse actual
// startup order.
type PreDestroyer interface {
	PreDestroy(ctx context.Context) error
}

// AsyncPreDestroyer is the async variant of PreDestroyer.
type AsyncPreDestroyer interface {
	PreDestroyAsync(ctx context.Context) error
}

// Destroyer runs last during shutdown, in reverse actual startup order.
type Destroyer interface {
	Destroy(ctx context.Context) error
}

// AsyncDestroyer is the async variant of Destroyer.
type AsyncDestroyer interface {
	DestroyAsync(ctx context.Context) error
}

// phase identifies one of the four hook phases for logging and error
// reporting.
type phase string

const (
	phasePostConstruct phase = "post_construct"
	phaseStartup       phase = "startup"
	phasePreDestroy    phase = "pre_destroy"
	phaseDestroy       phase = "destroy"
)

// runHook invokes whichever variant of a phase's hook the component
// implements, preferring async per spec.md §4.2.
func runHook(ctx context.Context, p phase, v any) error {
	switch p {
	case phasePostConstruct:
		if a, ok := v.(AsyncPostConstructor); ok {
			return a.PostConstructAsync(ctx)
		}
		if s, ok := v.(PostConstructor); ok {
			return s.PostConstruct(ctx)
		}
	case phaseStartup:
		if a, ok := v.(AsyncStarter); ok {
			return a.StartupAsync(ctx)
		}
		if s, ok := v.(Starter); ok {
			return s.Startup(ctx)
		}
	case phasePreDestroy:
		if a, ok := v.(AsyncPreDestroyer); ok {
			return a.PreDestroyAsync(ctx)
		}
		if s, ok := v.(PreDestroyer); ok {
			return s.PreDestroy(ctx)
		}
	case phaseDestroy:
		if a, ok := v.(AsyncDestroyer); ok {
			return a.DestroyAsync(ctx)
		}
		if s, ok := v.(Destroyer); ok {
			return s.Destroy(ctx)
		}
	}
	return nil // component does not implement this phase; not an error
}
