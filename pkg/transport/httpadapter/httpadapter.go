// Package httpadapter translates net/http's request/response model onto
// loom's transport-agnostic pipeline (pkg/dispatch, pkg/params,
// pkg/response), in the thread-per-request style
// _examples/mwantia-fabric/examples/web-app/main.go's http.Server/
// http.ServeMux wiring uses — one goroutine per request, blocking I/O,
// no adapter-owned state across requests.
package httpadapter

import (
	"io"
	"mime/multipart"
	"net/http"

	"github.com/loomkit/loom/pkg/engine"
)

const maxMultipartMemory = 32 << 20 // 32MiB, matching net/http's own default

// requestSource adapts *http.Request to params.RequestSource. Path
// parameters are supplied separately by the Router during Dispatch, so
// this type only ever answers query/header/body/file lookups; path
// lookups are overlaid by pkg/dispatch's own pathAwareSource.
type requestSource struct {
	r    *http.Request
	body []byte
}

func newRequestSource(r *http.Request) (*requestSource, error) {
	var body []byte
	if r.Body != nil {
		b, err := io.ReadAll(r.Body)
		if err != nil {
			return nil, err
		}
		body = b
	}
	return &requestSource{r: r, body: body}, nil
}

func (s *requestSource) PathParam(string) (string, bool) { return "", false }

func (s *requestSource) QueryParam(name string) (string, bool) {
	values := s.r.URL.Query()
	if v, ok := values[name]; ok && len(v) > 0 {
		return v[0], true
	}
	return "", false
}

func (s *requestSource) QueryParams(name string) ([]string, bool) {
	v, ok := s.r.URL.Query()[name]
	if !ok || len(v) == 0 {
		return nil, false
	}
	return v, true
}

func (s *requestSource) Header(name string) (string, bool) {
	v := s.r.Header.Get(name)
	if v == "" {
		return "", false
	}
	return v, true
}

func (s *requestSource) Body() []byte { return s.body }

func (s *requestSource) ContentType() string { return s.r.Header.Get("Content-Type") }

func (s *requestSource) File(name string) (*multipart.FileHeader, bool) {
	if err := s.r.ParseMultipartForm(maxMultipartMemory); err != nil || s.r.MultipartForm == nil {
		return nil, false
	}
	files := s.r.MultipartForm.File[name]
	if len(files) == 0 {
		return nil, false
	}
	return files[0], true
}

func (s *requestSource) Files(name string) ([]*multipart.FileHeader, bool) {
	if err := s.r.ParseMultipartForm(maxMultipartMemory); err != nil || s.r.MultipartForm == nil {
		return nil, false
	}
	files := s.r.MultipartForm.File[name]
	if len(files) == 0 {
		return nil, false
	}
	return files, true
}

// Handler builds an http.Handler backed by an *engine.Engine: every
// inbound request is converted to a params.RequestSource, dispatched
// through the full pipeline, and the resulting Response written back
// onto the wire.
func Handler(e *engine.Engine) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		src, err := newRequestSource(r)
		if err != nil {
			http.Error(w, "failed to read request body", http.StatusBadRequest)
			return
		}

		resp := e.Dispatch(r.Context(), r.Method, r.URL.Path, src)

		for key, value := range resp.Headers() {
			w.Header().Set(key, value)
		}
		w.WriteHeader(resp.Status)
		if len(resp.Body) > 0 {
			w.Write(resp.Body)
		}
	})
}
