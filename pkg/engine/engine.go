// Package engine wires the Container, the Lifecycle Manager, and the
// Dispatcher into one entry point, generalizing
// _examples/mwantia-fabric/examples/web-app/main.go's inline
// register-then-resolve-then-serve sequence into a reusable type instead
// of ad hoc main() code.
package engine

import (
	"context"
	"fmt"

	"github.com/loomkit/loom/pkg/config"
	"github.com/loomkit/loom/pkg/container"
	"github.com/loomkit/loom/pkg/definition"
	"github.com/loomkit/loom/pkg/dispatch"
	"github.com/loomkit/loom/pkg/lifecycle"
	"github.com/loomkit/loom/pkg/logging"
	"github.com/loomkit/loom/pkg/middleware"
	"github.com/loomkit/loom/pkg/params"
	"github.com/loomkit/loom/pkg/response"
	"github.com/loomkit/loom/pkg/telemetry"
)

// Exit codes per spec.md §6.
const (
	ExitClean          = 0
	ExitStartupFailure = 1
	ExitFatal          = 2
)

// Engine is the single object an entry point (cmd/loomctl, a custom
// main, a test) needs to run a loom application: register components
// and routes, refresh, dispatch requests, and shut down cleanly.
type Engine struct {
	Config     *config.Config
	Container  *container.Container
	Lifecycle  *lifecycle.Manager
	Router     *dispatch.Router
	Dispatcher *dispatch.Dispatcher
	Telemetry  *telemetry.Metrics
	Tracer     *telemetry.Tracer
	Log        logging.Logger

	global    []middleware.Entry
	resolver  *params.Resolver
	watcher   *config.Watcher
	refreshed bool
}

// New builds an Engine from a loaded Config. The Container starts open;
// call Register for every Definition and dispatch.HandlerDescriptor
// before calling Refresh.
func New(cfg *config.Config, log logging.Logger) *Engine {
	if log == nil {
		log = logging.NoOp()
	}
	codecs := params.NewRegistry()
	if len(cfg.CodecPriorities) > 0 {
		codecs.WithPriority(cfg.CodecPriorities...)
	}

	mode, _ := lifecycle.ParseFailureMode(cfg.StartupFailureMode)

	router := dispatch.NewRouter(
		dispatch.WithTrailingSlashMode(cfg.RouteTrailingSlash),
		dispatch.WithCaseSensitive(cfg.RouteCaseSensitive),
	)

	return &Engine{
		Config:    cfg,
		Container: container.New(log),
		Lifecycle: lifecycle.NewManager(mode, log, lifecycle.WithShutdownDeadline(cfg.ShutdownComponentDeadline)),
		Router:    router,
		resolver:  params.NewResolver(codecs),
		Log:       log,
	}
}

// RegisterComponent adds a Definition to the Container.
func (e *Engine) RegisterComponent(d *definition.Definition) error {
	return e.Container.Register(d)
}

// RegisterRoute adds a route to the Router. Must be called before Refresh.
func (e *Engine) RegisterRoute(d *dispatch.HandlerDescriptor) error {
	return e.Router.Register(d)
}

// UseGlobal adds a middleware entry that runs ahead of every route's own
// middleware, per spec.md §4.4.
func (e *Engine) UseGlobal(entry middleware.Entry) {
	e.global = append(e.global, entry)
}

// EnableTelemetry stores a Prometheus metrics set and an otel tracer in
// the Engine's Telemetry and Tracer fields. Refresh, Dispatch and Shutdown
// do not record to them; nothing in the Engine itself is instrumented.
func (e *Engine) EnableTelemetry(metrics *telemetry.Metrics, tracer *telemetry.Tracer) {
	e.Telemetry = metrics
	e.Tracer = tracer
}

// Refresh freezes the Router, freezes and validates the Container, and
// starts every component through the Lifecycle Manager's post_construct
// and startup phases in dependency order. Returns a non-nil error on any
// startup failure under "strict" mode; the caller should exit with
// ExitStartupFailure.
func (e *Engine) Refresh(ctx context.Context) error {
	e.Router.Freeze()

	if err := e.Container.Refresh(ctx); err != nil {
		return fmt.Errorf("engine: container refresh: %w", err)
	}

	components := make([]lifecycle.Component, 0, len(e.Container.Definitions()))
	for _, d := range e.Container.Definitions() {
		instance, err := e.Container.Get(ctx, d.Name)
		if err != nil {
			return fmt.Errorf("engine: resolve %s for lifecycle: %w", d.Name, err)
		}
		components = append(components, lifecycle.Component{
			Name:         d.Name,
			Instance:     instance,
			Dependencies: d.DeclaredDependencies,
		})
	}

	if err := e.Lifecycle.Start(ctx, components); err != nil {
		return fmt.Errorf("engine: lifecycle start: %w", err)
	}

	e.Dispatcher = dispatch.NewDispatcher(e.Router, e.resolver, e.global, e.Log)
	e.refreshed = true
	return nil
}

// WatchConfig starts a fsnotify-backed Watcher over path, applying
// mutable-field changes (debug_responses, shutdown_component_deadline)
// onto the live Config as they occur.
func (e *Engine) WatchConfig(path string) error {
	w, err := config.NewWatcher(path, e.Config, e.Log, func(*config.Config) {
		e.Lifecycle.SetShutdownDeadline(e.Config.ShutdownComponentDeadline)
	})
	if err != nil {
		return err
	}
	e.watcher = w
	return nil
}

// Dispatch runs one request through the pipeline. Refresh must have
// completed first.
func (e *Engine) Dispatch(ctx context.Context, method, path string, src params.RequestSource) *response.Response {
	return e.Dispatcher.Dispatch(ctx, method, path, src, e.Log)
}

// Shutdown runs pre_destroy and destroy over every started component in
// reverse startup order, closes the Container, and stops the config
// watcher if one is running.
func (e *Engine) Shutdown(ctx context.Context) error {
	if e.watcher != nil {
		e.watcher.Close()
	}

	components := make([]lifecycle.Component, 0, len(e.Container.Definitions()))
	for _, d := range e.Container.Definitions() {
		instance, ok := e.Container.TryGet(ctx, d.Name)
		if !ok {
			continue
		}
		components = append(components, lifecycle.Component{Name: d.Name, Instance: instance, Dependencies: d.DeclaredDependencies})
	}

	err := e.Lifecycle.Shutdown(ctx, components)
	e.Container.Close()
	return err
}

// Run is a convenience entry point matching spec.md §6's exit-code
// contract: it refreshes, invokes serve (expected to block until the
// process should stop), then shuts down, translating failures into the
// right exit code. serve receives ctx unchanged; Run does not cancel it,
// so serve decides itself when to return.
func Run(ctx context.Context, e *Engine, serve func(context.Context) error) int {
	if err := e.Refresh(ctx); err != nil {
		e.Log.Error("startup failed", "error", err)
		return ExitStartupFailure
	}

	serveErr := serve(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), e.Config.ShutdownComponentDeadline*2)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		e.Log.Error("shutdown error", "error", err)
	}

	if serveErr != nil {
		e.Log.Error("fatal error during serving", "error", serveErr)
		return ExitFatal
	}
	return ExitClean
}
