package middleware

import (
	"context"

	"flowgate/backend/app/services"
)

// GetCaller returns the caller resolved by WithCaller, or the zero
// (unauthenticated) caller when the middleware did not run.
func GetCaller(ctx context.Context) services.Caller {
	if v := ctx.Value(callerKey); v != nil {
		if c, ok := v.(services.Caller); ok {
			return c
		}
	}
	return services.Caller{}
}
