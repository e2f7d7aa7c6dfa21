package middleware

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loomkit/loom/pkg/reqcontext"
	"github.com/loomkit/loom/pkg/response"
)

func recordingMiddleware(name string, priority int, trace *[]string) Entry {
	return Entry{
		Name:     name,
		Priority: priority,
		Handler: func(ctx context.Context, rc *reqcontext.Context, next Next) (*response.Response, error) {
			*trace = append(*trace, name+":enter")
			r, err := next(ctx, rc)
			*trace = append(*trace, name+":exit")
			return r, err
		},
	}
}

func TestChain_RunsInPriorityOrderOutsideIn(t *testing.T) {
	var trace []string
	chain := NewChain([]Entry{
		recordingMiddleware("outer", 0, &trace),
		recordingMiddleware("inner", 10, &trace),
	})

	terminal := func(ctx context.Context, rc *reqcontext.Context) (*response.Response, error) {
		trace = append(trace, "handler")
		return response.Text(http.StatusOK, "ok"), nil
	}

	_, err := chain.Build(terminal)(context.Background(), reqcontext.New(nil))
	require.NoError(t, err)
	assert.Equal(t, []string{"outer:enter", "inner:enter", "handler", "inner:exit", "outer:exit"}, trace)
}

func TestChain_ShortCircuitSkipsInnerLayersAndHandler(t *testing.T) {
	var trace []string
	shortCircuit := Entry{
		Name:     "gate",
		Priority: 0,
		Handler: func(ctx context.Context, rc *reqcontext.Context, next Next) (*response.Response, error) {
			trace = append(trace, "gate:enter")
			return response.Text(http.StatusForbidden, "nope"), nil
		},
	}
	chain := NewChain([]Entry{shortCircuit, recordingMiddleware("inner", 10, &trace)})

	terminal := func(ctx context.Context, rc *reqcontext.Context) (*response.Response, error) {
		trace = append(trace, "handler")
		return response.Text(http.StatusOK, "ok"), nil
	}

	r, err := chain.Build(terminal)(context.Background(), reqcontext.New(nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, r.Status)
	assert.Equal(t, []string{"gate:enter"}, trace)
}

func TestChain_StableTieBreakOnRegistrationOrder(t *testing.T) {
	var trace []string
	chain := NewChain([]Entry{
		recordingMiddleware("first", 5, &trace),
		recordingMiddleware("second", 5, &trace),
	})
	assert.Equal(t, []string{"first", "second"}, chain.Names())
}
