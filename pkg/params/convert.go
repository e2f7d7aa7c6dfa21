package params

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
)

// convertString converts a raw string value according to decl.TargetType,
// auto-inferring int → float → bool → JSON object → string when
// TargetType is nil (the empty interface), per spec.md §4.5. It mirrors
// the per-kind switch in
// _examples/xraph-go-utils/http/binder.go's setFieldValue, generalized
// to return a value instead of setting a reflect.Value field directly
// (the Resolver here builds a map, not a bound struct).
func convertString(raw string, target reflect.Type) (any, error) {
	if target == nil {
		return autoInfer(raw), nil
	}

	switch target.Kind() {
	case reflect.String:
		return raw, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid integer value %q", raw)
		}
		return reflect.ValueOf(v).Convert(target).Interface(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		v, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid unsigned integer value %q", raw)
		}
		return reflect.ValueOf(v).Convert(target).Interface(), nil
	case reflect.Float32, reflect.Float64:
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid float value %q", raw)
		}
		return reflect.ValueOf(v).Convert(target).Interface(), nil
	case reflect.Bool:
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid boolean value %q", raw)
		}
		return v, nil
	case reflect.Slice, reflect.Map, reflect.Struct, reflect.Ptr, reflect.Interface:
		ptr := reflect.New(target)
		if err := json.Unmarshal([]byte(raw), ptr.Interface()); err != nil {
			return nil, fmt.Errorf("invalid JSON value for %s: %w", target, err)
		}
		return ptr.Elem().Interface(), nil
	default:
		return nil, fmt.Errorf("unsupported target type %s", target)
	}
}

// autoInfer applies spec.md §4.5's auto-inference order when a
// Declaration carries no TargetType: int, then float, then bool, then a
// JSON object/array, then falling back to the raw string.
func autoInfer(raw string) any {
	if v, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return v
	}
	if v, err := strconv.ParseFloat(raw, 64); err == nil {
		return v
	}
	if v, err := strconv.ParseBool(raw); err == nil {
		return v
	}
	var obj any
	if err := json.Unmarshal([]byte(raw), &obj); err == nil {
		switch obj.(type) {
		case map[string]any, []any:
			return obj
		}
	}
	return raw
}
