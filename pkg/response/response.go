// Package response is the transport-agnostic result of a dispatched
// request, per spec.md §4.4: a status code, case-insensitive headers
// that preserve their original casing on emission, and a body, with
// factory constructors for the common shapes a handler returns.
package response

import (
	"encoding/json"
	"net/http"

	"github.com/loomkit/loom/pkg/diagnostics"
)

// Response is what every handler and every middleware layer ultimately
// produces or passes through; transports (pkg/transport/httpadapter,
// pkg/transport/wsadapter) translate it onto the wire.
type Response struct {
	Status  int
	header  header
	Body    []byte
}

// header stores values keyed by the lower-cased header name but
// remembers the first casing it was set with, so Error
// and JSON both round-trip header names the way they were written.
type header struct {
	values map[string]string
	casing map[string]string
}

func newHeader() header {
	return header{values: make(map[string]string), casing: make(map[string]string)}
}

func (h *header) Set(key, value string) {
	lower := lowerASCII(key)
	if _, ok := h.casing[lower]; !ok {
		h.casing[lower] = key
	}
	h.values[lower] = value
}

func (h *header) Get(key string) (string, bool) {
	v, ok := h.values[lowerASCII(key)]
	return v, ok
}

// Entries returns header entries in their originally-set casing, for a
// transport to write onto the wire.
func (h *header) Entries() map[string]string {
	out := make(map[string]string, len(h.values))
	for lower, v := range h.values {
		out[h.casing[lower]] = v
	}
	return out
}

func lowerASCII(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}

// SetHeader sets a response header, preserving the casing of the first
// call for a given header name.
func (r *Response) SetHeader(key, value string) {
	r.header.Set(key, value)
}

// Header reads a previously set header, case-insensitively.
func (r *Response) Header(key string) (string, bool) {
	return r.header.Get(key)
}

// Headers returns every header in its originally-set casing.
func (r *Response) Headers() map[string]string {
	return r.header.Entries()
}

func newResponse(status int) *Response {
	return &Response{Status: status, header: newHeader()}
}

// JSON builds a response with the given status whose body is the JSON
// encoding of v, with an application/json content type.
func JSON(status int, v any) (*Response, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	r := newResponse(status)
	r.SetHeader("Content-Type", "application/json")
	r.Body = body
	return r, nil
}

// Text builds a response with a text/plain content type.
func Text(status int, s string) *Response {
	r := newResponse(status)
	r.SetHeader("Content-Type", "text/plain; charset=utf-8")
	r.Body = []byte(s)
	return r
}

// Bytes builds a response carrying an arbitrary byte body under the
// given content type.
func Bytes(status int, contentType string, b []byte) *Response {
	r := newResponse(status)
	if contentType != "" {
		r.SetHeader("Content-Type", contentType)
	}
	r.Body = b
	return r
}

// NoContent builds a response with no body, forcing status 204
// regardless of the caller's intent, per spec.md §4.4.
func NoContent() *Response {
	return newResponse(http.StatusNoContent)
}

// errorBody is the JSON shape every structured diagnostics error is
// rendered as.
type errorBody struct {
	Code         string                     `json:"code"`
	Message      string                     `json:"message"`
	DiagnosticID string                     `json:"diagnostic_id,omitempty"`
	Failures     []diagnostics.FieldFailure `json:"failures,omitempty"`
}

// Error builds a response from an arbitrary error, mapping the
// diagnostics error taxonomy onto HTTP status codes per spec.md §4.6 and
// falling back to a generic 500 for anything else.
func Error(err error) *Response {
	if de, ok := err.(*diagnostics.DispatchError); ok && de.Code == diagnostics.CodeRouteRedirect {
		r := newResponse(http.StatusPermanentRedirect)
		r.SetHeader("Location", de.Location)
		return r
	}

	status, body := errorStatusAndBody(err)
	r := newResponse(status)
	r.SetHeader("Content-Type", "application/json")
	encoded, marshalErr := json.Marshal(body)
	if marshalErr != nil {
		r.Body = []byte(`{"code":"INTERNAL_ERROR","message":"failed to encode error body"}`)
		return r
	}
	r.Body = encoded
	return r
}

func errorStatusAndBody(err error) (int, errorBody) {
	switch e := err.(type) {
	case *diagnostics.RegistryError:
		return http.StatusInternalServerError, errorBody{Code: string(e.Code), Message: e.Error()}
	case *diagnostics.ResolutionError:
		status := http.StatusInternalServerError
		if e.Code == diagnostics.CodeNoActiveRequestScope {
			status = http.StatusInternalServerError
		}
		return status, errorBody{Code: string(e.Code), Message: e.Error(), DiagnosticID: e.DiagnosticID}
	case *diagnostics.LifecycleErr:
		return http.StatusInternalServerError, errorBody{Code: string(diagnostics.CodeLifecycleError), Message: e.Error(), DiagnosticID: e.DiagnosticID}
	case *diagnostics.DispatchError:
		status := http.StatusInternalServerError
		switch e.Code {
		case diagnostics.CodeRouteNotFound:
			status = http.StatusNotFound
		case diagnostics.CodeMethodNotAllowed:
			status = http.StatusMethodNotAllowed
		case diagnostics.CodeAmbiguousRoute:
			status = http.StatusInternalServerError
		}
		return status, errorBody{Code: string(e.Code), Message: e.Error()}
	case *diagnostics.InputError:
		// spec.md §4.6/§7: DecodeError, ValidationError, and ResolveError
		// are all client input problems and all surface as 400.
		return http.StatusBadRequest, errorBody{Code: string(e.Code), Message: e.Error(), DiagnosticID: e.DiagnosticID, Failures: e.Failures}
	default:
		return http.StatusInternalServerError, errorBody{Code: string(diagnostics.CodeInternal), Message: err.Error()}
	}
}
