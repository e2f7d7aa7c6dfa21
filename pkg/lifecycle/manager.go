package lifecycle

import (
	"context"
	"sync"
	"time"

	"go.uber.org/multierr"

	"github.com/loomkit/loom/pkg/diagnostics"
	"github.com/loomkit/loom/pkg/logging"
)

// Component pairs a registered name with its constructed instance, the
// unit the Manager runs hooks against.
type Component struct {
	Name         string
	Instance     any
	Dependencies []string
}

// Manager runs the four hook phases over a set of Components in
// dependency order, tracking each Component's diagnostics.ComponentState
// and applying the configured FailureMode when a hook errs.
type Manager struct {
	mode              FailureMode
	shutdownDeadline  time.Duration
	log               logging.Logger

	mu           sync.Mutex
	states       map[string]diagnostics.ComponentState
	startedOrder []string // actual order startup succeeded in; shutdown reverses this
}

// Option configures a Manager at construction time.
type Option func(*Manager)

func WithShutdownDeadline(d time.Duration) Option {
	return func(m *Manager) { m.shutdownDeadline = d }
}

// NewManager builds a Manager with the given failure policy for the
// post_construct/startup phases.
func NewManager(mode FailureMode, log logging.Logger, opts ...Option) *Manager {
	if log == nil {
		log = logging.NoOp()
	}
	m := &Manager{
		mode:             mode,
		shutdownDeadline: 5 * time.Second,
		log:              log,
		states:           make(map[string]diagnostics.ComponentState),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// SetShutdownDeadline updates the per-component shutdown deadline at
// runtime, the hot-swappable half of pkg/config's mutable overlay.
func (m *Manager) SetShutdownDeadline(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shutdownDeadline = d
}

// State returns the current state of a component, or Created if it has
// never been observed.
func (m *Manager) State(name string) diagnostics.ComponentState {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.states[name]
	if !ok {
		return diagnostics.Created
	}
	return s
}

func (m *Manager) transition(name string, next diagnostics.ComponentState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.states[name]
	if !ok {
		cur = diagnostics.Created
	}
	if !cur.CanTransitionTo(next) {
		// A rejected transition is a programming error in the Manager
		// itself (phases must be run in order); record it as Failed
		// rather than silently dropping the state change.
		m.states[name] = diagnostics.Failed
		return
	}
	m.states[name] = next
}

// Start runs post_construct then startup over components, in
// dependency-sorted order, per spec.md §4.2.
func (m *Manager) Start(ctx context.Context, components []Component) error {
	nodes := make([]node, len(components))
	byName := make(map[string]Component, len(components))
	for i, c := range components {
		nodes[i] = node{name: c.Name, deps: c.Dependencies}
		byName[c.Name] = c
	}

	order, err := topoSort(nodes)
	if err != nil {
		return err
	}

	for _, name := range order {
		c := byName[name]
		m.transition(name, diagnostics.Initializing)
		if err := m.runPhase(ctx, phasePostConstruct, c); err != nil {
			if handled := m.handleFailure(name, phasePostConstruct, err); handled != nil {
				return handled
			}
			continue
		}
		m.transition(name, diagnostics.Initialized)
	}

	for _, name := range order {
		c := byName[name]
		if m.State(name) == diagnostics.Failed {
			continue // skip startup for a component that failed post_construct
		}
		if err := m.runPhase(ctx, phaseStartup, c); err != nil {
			if handled := m.handleFailure(name, phaseStartup, err); handled != nil {
				return handled
			}
			continue
		}
		m.transition(name, diagnostics.Running)
		m.mu.Lock()
		m.startedOrder = append(m.startedOrder, name)
		m.mu.Unlock()
	}

	return nil
}

func (m *Manager) runPhase(ctx context.Context, p phase, c Component) error {
	return runHook(ctx, p, c.Instance)
}

// handleFailure applies the FailureMode to a hook error. It returns a
// non-nil error only under Strict: Start returns that error at once,
// while Shutdown collects it and still runs the remaining components.
func (m *Manager) handleFailure(name string, p phase, err error) error {
	m.transition(name, diagnostics.Failed)
	lerr := diagnostics.NewLifecycleError(name, string(p), err, diagnostics.Failed)

	switch m.mode {
	case Strict:
		m.log.Error("component failed, aborting", "component", name, "phase", string(p), "error", err)
		return lerr
	case Warn:
		m.log.Warn("component failed, continuing", "component", name, "phase", string(p), "error", err)
		return nil
	default: // Ignore
		m.log.Debug("component failed, ignoring", "component", name, "phase", string(p), "error", err)
		return nil
	}
}

// Shutdown runs pre_destroy then destroy over every component that
// reached Running, in the reverse of their actual startup order (not the
// declared dependency order), per spec.md §4.2. Each component's phases
// are bounded by the configured shutdown deadline; a timeout is treated
// as a hook failure under the same FailureMode.
func (m *Manager) Shutdown(ctx context.Context, components []Component) error {
	byName := make(map[string]Component, len(components))
	for _, c := range components {
		byName[c.Name] = c
	}

	m.mu.Lock()
	reverseOrder := make([]string, len(m.startedOrder))
	for i, name := range m.startedOrder {
		reverseOrder[len(m.startedOrder)-1-i] = name
	}
	m.mu.Unlock()

	var errs error
	for _, name := range reverseOrder {
		c, ok := byName[name]
		if !ok {
			continue
		}
		m.transition(name, diagnostics.Stopping)
		if err := m.runBounded(ctx, phasePreDestroy, c); err != nil {
			errs = multierr.Append(errs, m.handleFailure(name, phasePreDestroy, err))
			continue
		}
		if err := m.runBounded(ctx, phaseDestroy, c); err != nil {
			errs = multierr.Append(errs, m.handleFailure(name, phaseDestroy, err))
			continue
		}
		m.transition(name, diagnostics.Stopped)
	}
	return errs
}

func (m *Manager) runBounded(ctx context.Context, p phase, c Component) error {
	m.mu.Lock()
	deadline := m.shutdownDeadline
	m.mu.Unlock()

	if deadline <= 0 {
		return runHook(ctx, p, c.Instance)
	}
	bounded, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- runHook(bounded, p, c.Instance) }()

	select {
	case err := <-done:
		return err
	case <-bounded.Done():
		return bounded.Err()
	}
}
