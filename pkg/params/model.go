package params

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
)

// ModelHandler is a registrable strategy for binding a raw decoded body
// value (the shapes encoding/json produces: map[string]any, []any,
// string, float64, bool, nil) onto a concrete Go type and back, per
// spec.md §4.5's model-binding extensibility point:
// can_handle(type)/resolve(type, data)/to_dict(instance).
type ModelHandler interface {
	// CanHandle reports whether this handler can bind data onto target.
	CanHandle(target reflect.Type) bool
	// Resolve binds data onto a new value of type target.
	Resolve(target reflect.Type, data any) (any, error)
	// ToDict renders instance back into a plain map, the inverse of
	// Resolve, for handlers that need to re-serialize a bound model.
	ToDict(instance any) (map[string]any, error)
}

type modelHandlerEntry struct {
	handler  ModelHandler
	priority int
}

// ModelHandlerRegistry holds the ModelHandlers tried, in descending
// priority, to bind a SourceBody/SourceDynamicBody value onto a
// Declaration's TargetType.
type ModelHandlerRegistry struct {
	entries []modelHandlerEntry
}

// NewModelHandlerRegistry builds a registry seeded with the built-in
// JSON round-trip handler, the only binder every Declaration used
// before custom handlers could be registered.
func NewModelHandlerRegistry() *ModelHandlerRegistry {
	r := &ModelHandlerRegistry{}
	r.Register(jsonModelHandler{}, 0)
	return r
}

// Register adds h at priority (higher runs first); ties keep
// registration order, the same stable tie-break pkg/middleware's Chain
// uses for equal-priority entries.
func (r *ModelHandlerRegistry) Register(h ModelHandler, priority int) {
	r.entries = append(r.entries, modelHandlerEntry{handler: h, priority: priority})
	sort.SliceStable(r.entries, func(i, j int) bool {
		return r.entries[i].priority > r.entries[j].priority
	})
}

// Resolve finds the highest-priority handler that can handle target and
// asks it to bind data onto it.
func (r *ModelHandlerRegistry) Resolve(target reflect.Type, data any) (any, error) {
	for _, e := range r.entries {
		if e.handler.CanHandle(target) {
			return e.handler.Resolve(target, data)
		}
	}
	return nil, fmt.Errorf("no model handler registered for %s", target)
}

// jsonModelHandler is the built-in default: a JSON marshal/unmarshal
// round trip, correct for any struct/slice/map/scalar shape
// encoding/json already produces from a decoded body. It handles every
// target type, so it must stay registered last (lowest priority) or
// custom handlers registered ahead of it would never be reached.
type jsonModelHandler struct{}

func (jsonModelHandler) CanHandle(reflect.Type) bool { return true }

func (jsonModelHandler) Resolve(target reflect.Type, data any) (any, error) {
	encoded, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	ptr := reflect.New(target)
	if err := json.Unmarshal(encoded, ptr.Interface()); err != nil {
		return nil, fmt.Errorf("invalid value for %s: %w", target, err)
	}
	return ptr.Elem().Interface(), nil
}

func (jsonModelHandler) ToDict(instance any) (map[string]any, error) {
	encoded, err := json.Marshal(instance)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(encoded, &out); err != nil {
		return nil, err
	}
	return out, nil
}
