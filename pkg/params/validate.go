package params

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/loomkit/loom/pkg/diagnostics"
)

var validate = validator.New()

// checkConstraints evaluates decl's constraints in spec.md §4.5's fixed
// order (ge, le, gt, lt, min_length, max_length, regex, allowed_values),
// building a validator.v10 tag per constraint and running it against the
// single converted value via validate.Var, the same singleton-validator
// pattern as _examples/2lar-b2/backend2/pkg/utils/validation.go.
func checkConstraints(decl Declaration, value any) []diagnostics.FieldFailure {
	byKind := make(map[ConstraintKind]Constraint, len(decl.Constraints))
	for _, c := range decl.Constraints {
		byKind[c.Kind] = c
	}

	var failures []diagnostics.FieldFailure
	for _, kind := range evaluationOrder {
		c, ok := byKind[kind]
		if !ok {
			continue
		}
		tag := constraintTag(c)
		if tag == "" {
			continue
		}
		if err := validate.Var(value, tag); err != nil {
			failures = append(failures, diagnostics.FieldFailure{
				Parameter:  decl.WireName(),
				Constraint: kind.String(),
				Value:      truncate(fmt.Sprintf("%v", value), 200),
				Reason:     err.Error(),
			})
			// spec.md §4.5: stop at the first failing constraint for a
			// given parameter, do not pile on redundant failures.
			break
		}
	}
	return failures
}

func constraintTag(c Constraint) string {
	switch c.Kind {
	case ConstraintGE:
		return "gte=" + c.Value
	case ConstraintLE:
		return "lte=" + c.Value
	case ConstraintGT:
		return "gt=" + c.Value
	case ConstraintLT:
		return "lt=" + c.Value
	case ConstraintMinLength:
		return "min=" + c.Value
	case ConstraintMaxLength:
		return "max=" + c.Value
	case ConstraintRegex:
		return "regexp=" + escapeRegexTag(c.Value)
	case ConstraintAllowedValues:
		return "oneof=" + c.Value
	default:
		return ""
	}
}

// escapeRegexTag backslash-escapes '|' in a user-supplied pattern so the
// validator tag does not read it as its own or-separator; commas are left
// as they are.
func escapeRegexTag(pattern string) string {
	return strings.ReplaceAll(pattern, "|", "\\|")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
