package middleware

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	jwtutil "flowgate/backend/app/jwt"
	"flowgate/backend/app/services"
)

type ctxKey int

const callerKey ctxKey = 1

// Auth resolves request credentials into a services.Caller. Two credential
// kinds exist: the pre-shared X-API-Key header (gateway agents and trusted
// server-to-server callers) and a session JWT from the dashboard login.
type Auth struct {
	Signer *jwtutil.Signer
	APIKey string
}

func (a *Auth) resolve(r *http.Request) services.Caller {
	if key := r.Header.Get("X-API-Key"); key != "" && a.APIKey != "" {
		if subtle.ConstantTimeCompare([]byte(key), []byte(a.APIKey)) == 1 {
			return services.Caller{Authenticated: true, TrustedKey: true, Name: "api-key"}
		}
	}
	authz := r.Header.Get("Authorization")
	if strings.HasPrefix(authz, "Bearer ") {
		claims, err := a.Signer.Parse(strings.TrimPrefix(authz, "Bearer "))
		if err == nil {
			return services.Caller{
				Authenticated: true,
				Name:          claims.Username,
				Role:          claims.Role,
				Superadmin:    claims.Superadmin,
			}
		}
	}
	return services.Caller{}
}

// WithCaller attaches the resolved caller to the request context. It never
// rejects; services own the authorization decision so that unauthenticated
// and forbidden stay distinguishable at the boundary.
func (a *Auth) WithCaller(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), callerKey, a.resolve(r))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAgent admits only the pre-shared key. Claim and result endpoints are
// agent-only; operator sessions never reach them.
func (a *Auth) RequireAgent(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		caller := a.resolve(r)
		if !caller.TrustedKey {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"Unauthorized","message":"Invalid API key"}`))
			return
		}
		ctx := context.WithValue(r.Context(), callerKey, caller)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
