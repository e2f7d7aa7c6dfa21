package middleware

import (
	"context"
	"errors"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/loomkit/loom/pkg/reqcontext"
	"github.com/loomkit/loom/pkg/response"
)

// AuthMiddleware verifies a bearer JWT from the Authorization header and
// stores its claims on the Request Context's metadata under "claims",
// grounded on the HS256 verification shape used across the example
// pack's auth packages (2lar-b2's pkg/auth) adapted to loom's
// continuation-style Middleware instead of a net/http handler wrapper.
func AuthMiddleware(secret []byte, headerValue func(ctx context.Context, rc *reqcontext.Context) string) Middleware {
	return func(ctx context.Context, rc *reqcontext.Context, next Next) (*response.Response, error) {
		header := headerValue(ctx, rc)
		if !strings.HasPrefix(header, "Bearer ") {
			return response.Error(errors.New("missing bearer token")), nil
		}
		token := strings.TrimPrefix(header, "Bearer ")

		claims := jwt.MapClaims{}
		parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, errors.New("unexpected signing method")
			}
			return secret, nil
		})
		if err != nil || !parsed.Valid {
			return response.Error(errors.New("invalid bearer token")), nil
		}

		rc.SetMetadata("claims", claims)
		return next(ctx, rc)
	}
}
