package definition

import (
	"reflect"
	"strings"
)

// InjectionPointsFromTags scans a struct type for `loom:"inject"` /
// `loom:"inject:name"` field tags and builds the matching InjectionPoint
// list, generalizing the `fabric:"inject"` tag convention in
// _examples/mwantia-fabric/pkg/container/tags.go from type-only
// resolution to the by-name/by-type/auto resolution order InjectionPoint
// already models. T must be a struct or a pointer to one.
//
// A bare `loom:"inject"` produces a ByAuto point (name-then-type); a
// named form `loom:"inject:name"` produces a ByName point pinned to that
// name; `loom:"inject,required"` (either form, comma-suffixed) marks the
// point Required so injection fails loudly instead of leaving the field
// zero.
func InjectionPointsFromTags(t reflect.Type) []InjectionPoint {
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil
	}

	var points []InjectionPoint
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tag, ok := field.Tag.Lookup("loom")
		if !ok {
			continue
		}
		parts := strings.Split(tag, ",")
		directive := parts[0]
		required := false
		for _, p := range parts[1:] {
			if p == "required" {
				required = true
			}
		}

		if directive == "" || directive == "inject" {
			points = append(points, InjectionPoint{
				AttributeName: field.Name,
				ResolveKey:    lowerFirst(field.Name),
				KeyKind:       ByAuto,
				Type:          field.Type,
				Required:      required,
			})
			continue
		}

		const prefix = "inject:"
		if strings.HasPrefix(directive, prefix) {
			points = append(points, InjectionPoint{
				AttributeName: field.Name,
				ResolveKey:    strings.TrimPrefix(directive, prefix),
				KeyKind:       ByName,
				Type:          field.Type,
				Required:      required,
			})
		}
	}
	return points
}

// lowerFirst converts a field's PascalCase Go name into the lowerCamel
// registered-name convention every component in this repo is registered
// under (e.g. "logger", "userService"), so a bare `loom:"inject"` tries
// that name before falling back to type-based resolution.
func lowerFirst(name string) string {
	if name == "" {
		return name
	}
	r := []rune(name)
	if r[0] >= 'A' && r[0] <= 'Z' {
		r[0] += 'a' - 'A'
	}
	return string(r)
}
