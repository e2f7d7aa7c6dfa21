package httpadapter

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loomkit/loom/pkg/config"
	"github.com/loomkit/loom/pkg/dispatch"
	"github.com/loomkit/loom/pkg/engine"
	"github.com/loomkit/loom/pkg/params"
	"github.com/loomkit/loom/pkg/reqcontext"
	"github.com/loomkit/loom/pkg/response"
)

func newTestEngine(t *testing.T) *engine.Engine {
	t.Helper()
	e := engine.New(config.Default(), nil)
	require.NoError(t, e.RegisterRoute(&dispatch.HandlerDescriptor{
		Method:  "GET",
		Pattern: "/greet/:name",
		Declarations: []params.Declaration{
			{Name: "name", Source: params.SourcePath},
		},
		Handler: func(ctx context.Context, rc *reqcontext.Context, bound map[string]any) (*response.Response, error) {
			name, _ := bound["name"].(string)
			return response.Text(http.StatusOK, "hello "+name), nil
		},
	}))
	require.NoError(t, e.RegisterRoute(&dispatch.HandlerDescriptor{
		Method:  "POST",
		Pattern: "/echo",
		Declarations: []params.Declaration{
			{Name: "message", Source: params.SourceBody},
		},
		Handler: func(ctx context.Context, rc *reqcontext.Context, bound map[string]any) (*response.Response, error) {
			msg, _ := bound["message"].(string)
			return response.Text(http.StatusOK, msg), nil
		},
	}))
	require.NoError(t, e.Refresh(context.Background()))
	return e
}

func TestHandler_DispatchesPathParamRoute(t *testing.T) {
	e := newTestEngine(t)
	srv := httptest.NewServer(Handler(e))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/greet/ada")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestHandler_DecodesJSONBody(t *testing.T) {
	e := newTestEngine(t)
	srv := httptest.NewServer(Handler(e))
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/echo", "application/json", strings.NewReader(`{"message":"hi"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestHandler_UnmatchedRouteReturns404(t *testing.T) {
	e := newTestEngine(t)
	srv := httptest.NewServer(Handler(e))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/nope")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
