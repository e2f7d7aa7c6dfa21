package container

import (
	"context"

	"github.com/loomkit/loom/pkg/diagnostics"
)

// stackKey carries the in-flight resolution stack on the context, used to
// detect dynamic cycles that the static eager-singleton check in
// topoSortEager cannot see (lazy singletons, prototypes, request-scoped
// dependencies resolved only at request time).
type stackKey struct{}

func resolutionStack(ctx context.Context) []string {
	if s, ok := ctx.Value(stackKey{}).([]string); ok {
		return s
	}
	return nil
}

// pushStack appends name to the resolution stack carried on ctx, failing
// with CircularDependency if name is already present.
func pushStack(ctx context.Context, name string) (context.Context, error) {
	stack := resolutionStack(ctx)
	for _, s := range stack {
		if s == name {
			return ctx, diagnostics.NewCircularDependency(append(append([]string{}, stack...), name))
		}
	}
	next := append(append([]string{}, stack...), name)
	return context.WithValue(ctx, stackKey{}, next), nil
}
