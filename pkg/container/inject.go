package container

import (
	"context"
	"reflect"

	"github.com/loomkit/loom/pkg/definition"
	"github.com/loomkit/loom/pkg/diagnostics"
)

// applyInjection binds each of d's InjectionPoints onto the freshly
// constructed instance v, generalizing the struct-tag injection in
// _examples/mwantia-fabric/pkg/container/tags.go (fabric:"inject") from
// type-only resolution to the spec's by-name/by-type/auto resolution
// order, with ambiguity detection across the container's type index.
func (c *Container) applyInjection(ctx context.Context, v any, d *definition.Definition) error {
	if len(d.InjectionPoints) == 0 {
		return nil
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Ptr {
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		// A non-struct factory result has no fields to bind; its injection
		// points are skipped without error.
		return nil
	}

	for _, point := range d.InjectionPoints {
		fieldVal := rv.FieldByName(point.AttributeName)
		if !fieldVal.IsValid() || !fieldVal.CanSet() {
			continue
		}

		resolved, found, err := c.resolveInjectionPoint(ctx, d.Name, point)
		if err != nil {
			return err
		}
		if !found {
			if point.Required {
				return diagnostics.NewDependencyNotFound(point.ResolveKey, d.Name, point.AttributeName)
			}
			continue
		}
		fieldVal.Set(reflect.ValueOf(resolved))
	}
	return nil
}

func (c *Container) resolveInjectionPoint(ctx context.Context, consumer string, point definition.InjectionPoint) (any, bool, error) {
	switch point.KeyKind {
	case definition.ByName:
		v, err := c.Get(ctx, point.ResolveKey)
		if err != nil {
			if diagnostics.IsNotFound(err) {
				return nil, false, nil
			}
			return nil, false, err
		}
		return v, true, nil

	case definition.ByType:
		return c.resolveByType(ctx, consumer, point)

	default: // ByAuto: name first, then type
		if point.ResolveKey != "" {
			if c.Has(point.ResolveKey) {
				v, err := c.Get(ctx, point.ResolveKey)
				if err != nil {
					return nil, false, err
				}
				return v, true, nil
			}
		}
		return c.resolveByType(ctx, consumer, point)
	}
}

// resolveByType looks up the single registered name for point.Type. A
// named attribute matching one of several candidates wins over raising
// AmbiguousDependency; more than one candidate with no name match is
// ambiguous.
func (c *Container) resolveByType(ctx context.Context, consumer string, point definition.InjectionPoint) (any, bool, error) {
	c.mu.RLock()
	candidates := append([]string{}, c.typeIndex[point.Type]...)
	c.mu.RUnlock()

	if len(candidates) == 0 {
		return nil, false, nil
	}
	if len(candidates) == 1 {
		v, err := c.Get(ctx, candidates[0])
		if err != nil {
			return nil, false, err
		}
		return v, true, nil
	}

	for _, name := range candidates {
		if name == point.AttributeName {
			v, err := c.Get(ctx, name)
			if err != nil {
				return nil, false, err
			}
			return v, true, nil
		}
	}

	return nil, false, diagnostics.NewAmbiguousDependency(point.ResolveKey, consumer, point.AttributeName)
}
