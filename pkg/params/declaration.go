// Package params implements the Parameter Resolver described in
// spec.md §4.5: declarative parameter descriptions bound from path,
// query, body, header, file, raw_body, or dynamic_body sources, typed
// conversion with auto-inference, and ordered constraint validation.
//
// It generalizes the struct-tag binder in
// _examples/xraph-go-utils/http/binder.go from a fixed path/query/
// header/json tag vocabulary into the spec's declarative
// ParameterDeclaration records, so the same model also covers file,
// raw_body, and dynamic_body sources binder.go has no notion of.
package params

import "reflect"

// Source identifies where a parameter's raw value comes from.
type Source int

const (
	SourcePath Source = iota
	SourceQuery
	SourceBody
	SourceHeader
	SourceFile
	SourceRawBody
	SourceDynamicBody
)

func (s Source) String() string {
	switch s {
	case SourcePath:
		return "path"
	case SourceQuery:
		return "query"
	case SourceBody:
		return "body"
	case SourceHeader:
		return "header"
	case SourceFile:
		return "file"
	case SourceRawBody:
		return "raw_body"
	case SourceDynamicBody:
		return "dynamic_body"
	default:
		return "unknown"
	}
}

// Declaration is one parameter a handler expects, per spec.md §4.5.
// TargetType nil (or the empty interface) means "auto-infer", applying
// the int → float → bool → JSON object → string order.
type Declaration struct {
	Name        string
	Alias       string // the wire name, if different from Name
	Source      Source
	TargetType  reflect.Type
	Required    bool
	Default     string
	Constraints []Constraint
	// Multiple marks a query or file Declaration as binding every value
	// under WireName() instead of just the first, per spec.md §4.5's
	// "query: multiple values bind only if target is a sequence" and
	// §6's file multi-upload list. Ignored for every other Source.
	Multiple bool
}

// WireName returns the name to look the parameter up by on the wire.
func (d Declaration) WireName() string {
	if d.Alias != "" {
		return d.Alias
	}
	return d.Name
}

// Constraint is one ordered validation rule from spec.md §4.5's fixed
// evaluation order: ge, le, gt, lt, min_length, max_length, regex,
// allowed_values.
type Constraint struct {
	Kind  ConstraintKind
	Value string // the constraint's operand, e.g. "0" for ge=0
}

type ConstraintKind int

const (
	ConstraintGE ConstraintKind = iota
	ConstraintLE
	ConstraintGT
	ConstraintLT
	ConstraintMinLength
	ConstraintMaxLength
	ConstraintRegex
	ConstraintAllowedValues
)

// evaluationOrder is the fixed order spec.md §4.5 mandates constraints
// be checked in, regardless of declaration order.
var evaluationOrder = []ConstraintKind{
	ConstraintGE, ConstraintLE, ConstraintGT, ConstraintLT,
	ConstraintMinLength, ConstraintMaxLength,
	ConstraintRegex, ConstraintAllowedValues,
}

func (k ConstraintKind) String() string {
	switch k {
	case ConstraintGE:
		return "ge"
	case ConstraintLE:
		return "le"
	case ConstraintGT:
		return "gt"
	case ConstraintLT:
		return "lt"
	case ConstraintMinLength:
		return "min_length"
	case ConstraintMaxLength:
		return "max_length"
	case ConstraintRegex:
		return "regex"
	case ConstraintAllowedValues:
		return "allowed_values"
	default:
		return "unknown"
	}
}
