package dispatch

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loomkit/loom/pkg/diagnostics"
)

func TestRouter_TrailingSlashIgnoredByDefault(t *testing.T) {
	r := NewRouter()
	require.NoError(t, r.Register(&HandlerDescriptor{Method: "GET", Pattern: "/widgets", Handler: noopHandler}))
	r.Freeze()

	_, _, err := r.Match("GET", "/widgets/")
	assert.NoError(t, err)
}

func TestRouter_TrailingSlashRedirectMode(t *testing.T) {
	r := NewRouter(WithTrailingSlashMode("redirect"))
	require.NoError(t, r.Register(&HandlerDescriptor{Method: "GET", Pattern: "/widgets", Handler: noopHandler}))
	r.Freeze()

	_, _, err := r.Match("GET", "/widgets/")
	require.Error(t, err)
	de, ok := err.(*diagnostics.DispatchError)
	require.True(t, ok)
	assert.Equal(t, diagnostics.CodeRouteRedirect, de.Code)
	assert.Equal(t, "/widgets", de.Location)
}

func TestRouter_TrailingSlashStrictModeTreatsAsDistinct(t *testing.T) {
	r := NewRouter(WithTrailingSlashMode("strict"))
	require.NoError(t, r.Register(&HandlerDescriptor{Method: "GET", Pattern: "/widgets", Handler: noopHandler}))
	r.Freeze()

	_, _, err := r.Match("GET", "/widgets/")
	assert.Error(t, err)
}

func TestRouter_CaseInsensitiveMatchesFoldedStaticSegment(t *testing.T) {
	r := NewRouter(WithCaseSensitive(false))
	require.NoError(t, r.Register(&HandlerDescriptor{Method: "GET", Pattern: "/Widgets", Handler: noopHandler}))
	r.Freeze()

	_, _, err := r.Match("GET", "/widgets")
	assert.NoError(t, err)
}

func TestRouter_CaseSensitiveByDefaultRejectsMismatch(t *testing.T) {
	r := NewRouter()
	require.NoError(t, r.Register(&HandlerDescriptor{Method: "GET", Pattern: "/Widgets", Handler: noopHandler}))
	r.Freeze()

	_, _, err := r.Match("GET", "/widgets")
	assert.Error(t, err)
}

func TestDispatcher_RedirectProducesPermanentRedirectResponse(t *testing.T) {
	r := NewRouter(WithTrailingSlashMode("redirect"))
	require.NoError(t, r.Register(&HandlerDescriptor{Method: "GET", Pattern: "/widgets", Handler: noopHandler}))
	r.Freeze()

	d := NewDispatcher(r, nil, nil, nil)
	resp := d.Dispatch(context.Background(), "GET", "/widgets/", emptySource{}, nil)
	assert.Equal(t, http.StatusPermanentRedirect, resp.Status)
	loc, ok := resp.Header("Location")
	assert.True(t, ok)
	assert.Equal(t, "/widgets", loc)
}
