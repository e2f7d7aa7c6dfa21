// Package diagnostics is the shared error taxonomy, resolution-path
// renderer, and lifecycle-state enumeration consumed by every other
// package in the module. It has no dependencies on the rest of loom.
package diagnostics

import (
	"fmt"
	"strings"
)

// Code is a short, stable identifier attached to every diagnostic
// surfaced to a caller or a client response.
type Code string

const (
	CodeAlreadyRegistered    Code = "ALREADY_REGISTERED"
	CodeRegistryFrozen       Code = "REGISTRY_FROZEN"
	CodeContainerClosed      Code = "CONTAINER_CLOSED"
	CodeDependencyNotFound   Code = "DEPENDENCY_NOT_FOUND"
	CodeCircularDependency   Code = "CIRCULAR_DEPENDENCY"
	CodeAmbiguousDependency  Code = "AMBIGUOUS_DEPENDENCY"
	CodeNoActiveRequestScope Code = "NO_ACTIVE_REQUEST_SCOPE"
	CodeLifecycleError       Code = "LIFECYCLE_ERROR"
	CodeRouteNotFound        Code = "ROUTE_NOT_FOUND"
	CodeMethodNotAllowed     Code = "METHOD_NOT_ALLOWED"
	CodeAmbiguousRoute       Code = "AMBIGUOUS_ROUTE"
	CodeRouteRedirect        Code = "ROUTE_REDIRECT"
	CodeDecodeError          Code = "DECODE_ERROR"
	CodeValidationError      Code = "VALIDATION_ERROR"
	CodeResolveError         Code = "RESOLVE_ERROR"
	CodeInternal             Code = "INTERNAL_ERROR"
)

// RegistryError covers AlreadyRegistered, RegistryFrozen, ContainerClosed.
type RegistryError struct {
	Code Code
	Name string
}

func (e *RegistryError) Error() string {
	if e.Name == "" {
		return string(e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Name)
}

func NewAlreadyRegistered(name string) error {
	return &RegistryError{Code: CodeAlreadyRegistered, Name: name}
}

func NewRegistryFrozen(name string) error {
	return &RegistryError{Code: CodeRegistryFrozen, Name: name}
}

func NewContainerClosed(name string) error {
	return &RegistryError{Code: CodeContainerClosed, Name: name}
}

// ResolutionError covers DependencyNotFound, CircularDependency,
// AmbiguousDependency, NoActiveRequestScope.
type ResolutionError struct {
	Code       Code
	Name       string
	Consumer   string
	Attribute  string
	Path       []string // resolution stack at the time of a dynamic cycle
	DiagnosticID string
}

func (e *ResolutionError) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Code))
	if e.Name != "" {
		fmt.Fprintf(&b, " name=%s", e.Name)
	}
	if e.Consumer != "" {
		fmt.Fprintf(&b, " consumer=%s attribute=%s", e.Consumer, e.Attribute)
	}
	if len(e.Path) > 0 {
		fmt.Fprintf(&b, " path=%s", RenderPath(e.Path))
	}
	return b.String()
}

func NewDependencyNotFound(name, consumer, attribute string) *ResolutionError {
	return &ResolutionError{
		Code: CodeDependencyNotFound, Name: name, Consumer: consumer, Attribute: attribute,
		DiagnosticID: NewDiagnosticID(),
	}
}

func NewCircularDependency(path []string) *ResolutionError {
	return &ResolutionError{Code: CodeCircularDependency, Path: path, DiagnosticID: NewDiagnosticID()}
}

func NewAmbiguousDependency(name, consumer, attribute string) *ResolutionError {
	return &ResolutionError{
		Code: CodeAmbiguousDependency, Name: name, Consumer: consumer, Attribute: attribute,
		DiagnosticID: NewDiagnosticID(),
	}
}

func NewNoActiveRequestScope(name string) *ResolutionError {
	return &ResolutionError{Code: CodeNoActiveRequestScope, Name: name, DiagnosticID: NewDiagnosticID()}
}

// RenderPath renders a resolution stack/cycle path as "a -> b -> c -> a".
func RenderPath(path []string) string {
	return strings.Join(path, " -> ")
}

// LifecycleErr carries the component, the phase it failed in, the
// underlying cause, and the state the component ended up in.
type LifecycleErr struct {
	Component    string
	Phase        string
	Cause        error
	StateAfter   ComponentState
	DiagnosticID string
}

func (e *LifecycleErr) Error() string {
	return fmt.Sprintf("%s: component=%s phase=%s state=%s: %v", CodeLifecycleError, e.Component, e.Phase, e.StateAfter, e.Cause)
}

func (e *LifecycleErr) Unwrap() error { return e.Cause }

func NewLifecycleError(component, phase string, cause error, stateAfter ComponentState) *LifecycleErr {
	return &LifecycleErr{Component: component, Phase: phase, Cause: cause, StateAfter: stateAfter, DiagnosticID: NewDiagnosticID()}
}

// DispatchError covers RouteNotFound, MethodNotAllowed, AmbiguousRoute,
// and RouteRedirect.
type DispatchError struct {
	Code     Code
	Method   string
	Path     string
	Allowed  []string
	Location string // set for CodeRouteRedirect: the canonical path to redirect to
}

func (e *DispatchError) Error() string {
	switch e.Code {
	case CodeMethodNotAllowed:
		return fmt.Sprintf("%s: %s %s (allowed: %s)", e.Code, e.Method, e.Path, strings.Join(e.Allowed, ","))
	case CodeRouteRedirect:
		return fmt.Sprintf("%s: %s %s -> %s", e.Code, e.Method, e.Path, e.Location)
	default:
		return fmt.Sprintf("%s: %s %s", e.Code, e.Method, e.Path)
	}
}

func NewRouteNotFound(method, path string) *DispatchError {
	return &DispatchError{Code: CodeRouteNotFound, Method: method, Path: path}
}

func NewMethodNotAllowed(method, path string, allowed []string) *DispatchError {
	return &DispatchError{Code: CodeMethodNotAllowed, Method: method, Path: path, Allowed: allowed}
}

func NewAmbiguousRoute(method, path string) *DispatchError {
	return &DispatchError{Code: CodeAmbiguousRoute, Method: method, Path: path}
}

// NewRouteRedirect signals that path matched a route only after
// trailing-slash normalization, and the canonical location the client
// should be redirected to under "redirect" trailing-slash mode.
func NewRouteRedirect(method, path, location string) *DispatchError {
	return &DispatchError{Code: CodeRouteRedirect, Method: method, Path: path, Location: location}
}

// FieldFailure is one entry in an aggregated input-error response.
type FieldFailure struct {
	Parameter string
	Constraint string
	Value     string // truncated for logging/echo
	Reason    string
}

// InputError covers DecodeError, ValidationError, ResolveError.
type InputError struct {
	Code         Code
	ContentType  string
	Reason       string
	Failures     []FieldFailure
	DiagnosticID string
}

func (e *InputError) Error() string {
	if len(e.Failures) > 0 {
		return fmt.Sprintf("%s: %d failure(s)", e.Code, len(e.Failures))
	}
	if e.ContentType != "" {
		return fmt.Sprintf("%s: content-type=%s: %s", e.Code, e.ContentType, e.Reason)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Reason)
}

func NewDecodeError(contentType, reason string) *InputError {
	return &InputError{Code: CodeDecodeError, ContentType: contentType, Reason: reason, DiagnosticID: NewDiagnosticID()}
}

func NewValidationError(f FieldFailure) *InputError {
	return &InputError{Code: CodeValidationError, Failures: []FieldFailure{f}, DiagnosticID: NewDiagnosticID()}
}

// NewResolveError aggregates one or more field failures into the single
// error the Parameter Resolver raises, per spec.md §4.5's Aggregation rule.
func NewResolveError(failures []FieldFailure) *InputError {
	return &InputError{Code: CodeResolveError, Failures: failures, DiagnosticID: NewDiagnosticID()}
}

// IsNotFound reports whether err is a DependencyNotFound resolution error,
// used by the container's by-name injection to treat a missing dependency
// as unresolved instead of propagating the error.
func IsNotFound(err error) bool {
	re, ok := err.(*ResolutionError)
	return ok && re.Code == CodeDependencyNotFound
}
