package params

import (
	"fmt"
	"mime/multipart"
	"reflect"

	"github.com/loomkit/loom/pkg/diagnostics"
)

// RequestSource is the narrow view of an inbound request the Resolver
// needs; pkg/transport/httpadapter implements it over *http.Request.
// QueryParams/Files answer a Declaration with Multiple set; QueryParam/
// File remain the single-value accessors used by every other
// Declaration.
type RequestSource interface {
	PathParam(name string) (string, bool)
	QueryParam(name string) (string, bool)
	QueryParams(name string) ([]string, bool)
	Header(name string) (string, bool)
	Body() []byte
	ContentType() string
	File(name string) (*multipart.FileHeader, bool)
	Files(name string) ([]*multipart.FileHeader, bool)
}

// Resolver binds a set of Declarations against a RequestSource, per
// spec.md §4.5's resolution algorithm.
type Resolver struct {
	codecs *Registry
	models *ModelHandlerRegistry
}

// NewResolver builds a Resolver with the default JSON/form codec set and
// the default (JSON round-trip) model handler.
func NewResolver(codecs *Registry) *Resolver {
	if codecs == nil {
		codecs = NewRegistry()
	}
	return &Resolver{codecs: codecs, models: NewModelHandlerRegistry()}
}

// RegisterModelHandler adds a custom ModelHandler at priority (higher
// runs first), per spec.md §4.5's model-binding extensibility point.
func (r *Resolver) RegisterModelHandler(h ModelHandler, priority int) {
	r.models.Register(h, priority)
}

// Resolve binds every declaration in decls, returning a map keyed by
// Declaration.Name. All failures across all declarations are aggregated
// into a single *diagnostics.InputError, per spec.md §4.5's aggregation
// rule, rather than failing fast on the first bad parameter.
func (r *Resolver) Resolve(src RequestSource, decls []Declaration) (map[string]any, error) {
	out := make(map[string]any, len(decls))
	var failures []diagnostics.FieldFailure

	var bodyFields map[string]any
	var bodyErr error
	bodyDecoded := false

	for _, decl := range decls {
		switch decl.Source {
		case SourcePath:
			raw, ok := src.PathParam(decl.WireName())
			if !ok || raw == "" {
				if decl.Required {
					failures = append(failures, missing(decl))
				}
				continue
			}
			v, err := r.bindScalar(decl, raw, &failures)
			if err == nil && v != nil {
				out[decl.Name] = v
			}

		case SourceQuery:
			if decl.Multiple {
				raws, ok := src.QueryParams(decl.WireName())
				if !ok || len(raws) == 0 {
					if decl.Required {
						failures = append(failures, missing(decl))
					}
					continue
				}
				v, err := r.bindMultiScalar(decl, raws, &failures)
				if err == nil && v != nil {
					out[decl.Name] = v
				}
				continue
			}
			raw, ok := src.QueryParam(decl.WireName())
			if !ok || raw == "" {
				raw = decl.Default
			}
			if raw == "" {
				if decl.Required {
					failures = append(failures, missing(decl))
				}
				continue
			}
			v, err := r.bindScalar(decl, raw, &failures)
			if err == nil && v != nil {
				out[decl.Name] = v
			}

		case SourceHeader:
			raw, ok := src.Header(decl.WireName())
			if !ok || raw == "" {
				raw = decl.Default
			}
			if raw == "" {
				if decl.Required {
					failures = append(failures, missing(decl))
				}
				continue
			}
			v, err := r.bindScalar(decl, raw, &failures)
			if err == nil && v != nil {
				out[decl.Name] = v
			}

		case SourceRawBody:
			out[decl.Name] = src.Body()

		case SourceFile:
			if decl.Multiple {
				fhs, ok := src.Files(decl.WireName())
				if !ok || len(fhs) == 0 {
					if decl.Required {
						failures = append(failures, missing(decl))
					}
					continue
				}
				out[decl.Name] = fhs
				continue
			}
			fh, ok := src.File(decl.WireName())
			if !ok {
				if decl.Required {
					failures = append(failures, missing(decl))
				}
				continue
			}
			out[decl.Name] = fh

		case SourceBody, SourceDynamicBody:
			if !bodyDecoded {
				bodyFields, bodyErr = r.decodeBody(src)
				bodyDecoded = true
			}
			if bodyErr != nil {
				failures = append(failures, diagnostics.FieldFailure{
					Parameter: decl.WireName(), Reason: bodyErr.Error(),
				})
				continue
			}
			raw, present := bodyFields[decl.WireName()]
			if !present {
				if decl.Required {
					failures = append(failures, missing(decl))
				}
				continue
			}
			if decl.Source == SourceDynamicBody {
				out[decl.Name] = raw
				continue
			}
			v := r.bindTyped(decl, raw, &failures)
			if v != nil {
				out[decl.Name] = v
			}
		}
	}

	if len(failures) > 0 {
		return nil, diagnostics.NewResolveError(failures)
	}
	return out, nil
}

func missing(decl Declaration) diagnostics.FieldFailure {
	return diagnostics.FieldFailure{
		Parameter: decl.WireName(), Constraint: "required", Reason: fmt.Sprintf("%s is required", decl.Source),
	}
}

func (r *Resolver) bindScalar(decl Declaration, raw string, failures *[]diagnostics.FieldFailure) (any, error) {
	v, err := convertString(raw, decl.TargetType)
	if err != nil {
		*failures = append(*failures, diagnostics.FieldFailure{
			Parameter: decl.WireName(), Reason: err.Error(), Value: truncate(raw, 200),
		})
		return nil, err
	}
	if cf := checkConstraints(decl, v); len(cf) > 0 {
		*failures = append(*failures, cf...)
		return nil, fmt.Errorf("constraint failure")
	}
	return v, nil
}

// bindTyped binds an already-JSON-decoded body value (any) onto
// decl.TargetType when one is declared, trying the Resolver's
// ModelHandlers in descending priority (spec.md §4.5's model-binding
// extensibility point; the built-in default is a JSON round trip).
func (r *Resolver) bindTyped(decl Declaration, raw any, failures *[]diagnostics.FieldFailure) any {
	if decl.TargetType == nil {
		if cf := checkConstraints(decl, raw); len(cf) > 0 {
			*failures = append(*failures, cf...)
			return nil
		}
		return raw
	}
	v, err := r.models.Resolve(decl.TargetType, raw)
	if err != nil {
		*failures = append(*failures, diagnostics.FieldFailure{
			Parameter: decl.WireName(), Reason: err.Error(),
		})
		return nil
	}
	if cf := checkConstraints(decl, v); len(cf) > 0 {
		*failures = append(*failures, cf...)
		return nil
	}
	return v
}

// bindMultiScalar binds every raw query value against decl's element
// type — decl.TargetType's Elem() when TargetType is a slice, otherwise
// auto-inferred per value — returning a []any, per spec.md §4.5's
// "query: multiple values bind only if target is a sequence" rule.
func (r *Resolver) bindMultiScalar(decl Declaration, raws []string, failures *[]diagnostics.FieldFailure) (any, error) {
	elemType := decl.TargetType
	if elemType != nil && elemType.Kind() == reflect.Slice {
		elemType = elemType.Elem()
	}
	out := make([]any, 0, len(raws))
	for _, raw := range raws {
		v, err := convertString(raw, elemType)
		if err != nil {
			*failures = append(*failures, diagnostics.FieldFailure{
				Parameter: decl.WireName(), Reason: err.Error(), Value: truncate(raw, 200),
			})
			return nil, err
		}
		if cf := checkConstraints(decl, v); len(cf) > 0 {
			*failures = append(*failures, cf...)
			return nil, fmt.Errorf("constraint failure")
		}
		out = append(out, v)
	}
	return out, nil
}

func (r *Resolver) decodeBody(src RequestSource) (map[string]any, error) {
	body := src.Body()
	if len(body) == 0 {
		return map[string]any{}, nil
	}
	codec, ok := r.codecs.ForContentType(src.ContentType())
	if !ok {
		return nil, &DecodeError{ContentType: src.ContentType(), Err: fmt.Errorf("no codec registered")}
	}
	fields, err := codec.Decode(body)
	if err != nil {
		return nil, &DecodeError{ContentType: src.ContentType(), Err: err}
	}
	return fields, nil
}
