package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	greenauth "github.com/verdantio/greenauth"
)

type identityContextKey struct{}

// IdentityFromContext returns the identity stored by [Authenticate].
func IdentityFromContext(ctx context.Context) (*greenauth.Identity, bool) {
	id, ok := ctx.Value(identityContextKey{}).(*greenauth.Identity)
	return id, ok
}

// Authenticate validates the bearer access token, resolves the caller's
// permissions, and stores the resulting identity on the request context.
// The identity is populated exactly once here; downstream gates only read it.
func Authenticate(engine *greenauth.Engine) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				writeError(w, greenauth.ErrUnauthorized)
				return
			}

			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				writeError(w, greenauth.ErrUnauthorized)
				return
			}

			identity, err := engine.Authenticate(r.Context(), token)
			if err != nil {
				writeError(w, err)
				return
			}

			ctx := context.WithValue(r.Context(), identityContextKey{}, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequirePermission gates a route on one permission key. Routes needing
// several keys stack the wrapper (logical AND).
func RequirePermission(engine *greenauth.Engine, key string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := IdentityFromContext(r.Context())
			if !ok {
				writeError(w, greenauth.ErrUnauthorized)
				return
			}

			if err := engine.Authorize(identity, key); err != nil {
				writeError(w, err)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}

	token := value[len(bearer):]
	if token == "" {
		return "", false
	}

	return token, true
}

func writeError(w http.ResponseWriter, err error) {
	envelope := greenauth.EnvelopeOf(err)
	if envelope == nil {
		envelope = &greenauth.Error{
			Kind:        greenauth.KindInternal,
			Message:     "Unknown error",
			Description: "An unexpected error occurred",
		}
	}

	status := envelope.Kind.HTTPStatus()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"code": status,
		"error": map[string]string{
			"message":     envelope.Message,
			"description": envelope.Description,
		},
	})
}
