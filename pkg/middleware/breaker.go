package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/sony/gobreaker"

	"github.com/loomkit/loom/pkg/reqcontext"
	"github.com/loomkit/loom/pkg/response"
)

// BreakerMiddleware wraps the remainder of the chain in a
// sony/gobreaker circuit breaker, per the dependency the broader example
// pack wires for downstream-call protection. An open breaker
// short-circuits with a 503 response without ever invoking next.
func BreakerMiddleware(name string, settings gobreaker.Settings) Middleware {
	settings.Name = name
	cb := gobreaker.NewCircuitBreaker(settings)

	return func(ctx context.Context, rc *reqcontext.Context, next Next) (*response.Response, error) {
		out, err := cb.Execute(func() (interface{}, error) {
			return next(ctx, rc)
		})
		if errors.Is(err, gobreaker.ErrOpenState) {
			return response.Text(http.StatusServiceUnavailable, err.Error()), nil
		}
		resp, _ := out.(*response.Response)
		return resp, err
	}
}
