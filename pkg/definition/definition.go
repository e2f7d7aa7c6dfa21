// Package definition holds the immutable description of a resolvable
// component, per spec.md §3, and the injection points consumers declare
// on it.
package definition

import (
	"reflect"

	"github.com/loomkit/loom/pkg/scope"
)

// Container is the narrow view of the container a Factory needs. It is
// defined here, not in pkg/container, to avoid an import cycle between
// the data model and the registry that stores it.
type Container interface {
	Get(name string) (any, error)
}

// Factory builds one instance of a component, given access to the
// container for resolving its own dependencies.
type Factory func(c Container) (any, error)

// Definition is the immutable description of one resolvable component.
// Once registered and the owning container is frozen, a Definition is
// never mutated.
type Definition struct {
	Name                string
	Factory             Factory
	DeclaredDependencies []string
	Scope               scope.Scope
	Eager               bool // only meaningful for singletons
	SourceTag           string
	Type                reflect.Type // declared type, used for type-based resolution
	InjectionPoints     []InjectionPoint
}

// ResolveKeyKind distinguishes how an InjectionPoint's dependency should
// be looked up.
type ResolveKeyKind int

const (
	// ByAuto tries name first (attribute name in the registered naming
	// convention), then falls back to type.
	ByAuto ResolveKeyKind = iota
	ByName
	ByType
)

// InjectionPoint is a declaration on a consumer that it needs a
// dependency bound onto one of its attributes.
type InjectionPoint struct {
	AttributeName string
	ResolveKey    string // the name to look up: used by ByName, tried first by ByAuto, ignored by ByType
	KeyKind       ResolveKeyKind
	Type          reflect.Type // used when KeyKind is ByType or as the ByAuto fallback
	Required      bool
}

// New builds a Definition with default scope (Singleton, non-eager).
// Options mutate the returned value before it is handed to a registry.
func New(name string, factory Factory, opts ...Option) *Definition {
	d := &Definition{
		Name:    name,
		Factory: factory,
		Scope:   scope.Singleton,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Option configures a Definition at construction time.
type Option func(*Definition)

func WithScope(s scope.Scope) Option {
	return func(d *Definition) { d.Scope = s }
}

func WithEager(eager bool) Option {
	return func(d *Definition) { d.Eager = eager }
}

func WithDependencies(names ...string) Option {
	return func(d *Definition) { d.DeclaredDependencies = append(d.DeclaredDependencies, names...) }
}

func WithSourceTag(tag string) Option {
	return func(d *Definition) { d.SourceTag = tag }
}

func WithType(t reflect.Type) Option {
	return func(d *Definition) { d.Type = t }
}

func WithInjectionPoints(points ...InjectionPoint) Option {
	return func(d *Definition) { d.InjectionPoints = append(d.InjectionPoints, points...) }
}
