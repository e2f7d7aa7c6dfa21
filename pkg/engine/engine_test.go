package engine

import (
	"context"
	"mime/multipart"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loomkit/loom/pkg/config"
	"github.com/loomkit/loom/pkg/definition"
	"github.com/loomkit/loom/pkg/dispatch"
	"github.com/loomkit/loom/pkg/reqcontext"
	"github.com/loomkit/loom/pkg/response"
	"github.com/loomkit/loom/pkg/scope"
)

type greeter struct {
	startCalls int
}

func (g *greeter) Startup(ctx context.Context) error {
	g.startCalls++
	return nil
}

type emptySource struct{}

func (emptySource) PathParam(string) (string, bool)  { return "", false }
func (emptySource) QueryParam(string) (string, bool) { return "", false }
func (emptySource) Header(string) (string, bool)     { return "", false }
func (emptySource) Body() []byte                      { return nil }
func (emptySource) ContentType() string               { return "" }
func (emptySource) File(string) (*multipart.FileHeader, bool) { return nil, false }
func (emptySource) QueryParams(string) ([]string, bool)       { return nil, false }
func (emptySource) Files(string) ([]*multipart.FileHeader, bool) { return nil, false }

func TestEngine_RefreshStartsComponentsAndDispatchesRoutes(t *testing.T) {
	e := New(config.Default(), nil)

	require.NoError(t, e.RegisterComponent(definition.New("greeter", func(definition.Container) (any, error) {
		return &greeter{}, nil
	}, definition.WithScope(scope.Singleton), definition.WithEager(true))))

	require.NoError(t, e.RegisterRoute(&dispatch.HandlerDescriptor{
		Method:  "GET",
		Pattern: "/hello",
		Handler: func(ctx context.Context, rc *reqcontext.Context, bound map[string]any) (*response.Response, error) {
			return response.Text(http.StatusOK, "hi"), nil
		},
	}))

	require.NoError(t, e.Refresh(context.Background()))

	instance, err := e.Container.Get(context.Background(), "greeter")
	require.NoError(t, err)
	assert.Equal(t, 1, instance.(*greeter).startCalls)

	resp := e.Dispatch(context.Background(), "GET", "/hello", emptySource{})
	assert.Equal(t, http.StatusOK, resp.Status)
	assert.Equal(t, []byte("hi"), resp.Body)

	require.NoError(t, e.Shutdown(context.Background()))
}

func TestEngine_RefreshFailsClosedOnStartupError(t *testing.T) {
	cfg := config.Default()
	cfg.StartupFailureMode = "strict"
	e := New(cfg, nil)

	require.NoError(t, e.RegisterComponent(definition.New("broken", func(definition.Container) (any, error) {
		return &brokenStarter{}, nil
	}, definition.WithScope(scope.Singleton), definition.WithEager(true))))

	err := e.Refresh(context.Background())
	assert.Error(t, err)
}

type brokenStarter struct{}

func (b *brokenStarter) Startup(ctx context.Context) error { return assert.AnError }
