package http

import (
	"context"
	"net/http"
	"strings"

	"github.com/seonho/rest-security-jwt/internal/auth/domain"
	"github.com/seonho/rest-security-jwt/internal/auth/service"
	commonhttp "github.com/seonho/rest-security-jwt/internal/common/http"
	"github.com/seonho/rest-security-jwt/internal/common/logger"
)

type contextKey string

const (
	principalContextKey   contextKey = "auth_principal"
	authFailureContextKey contextKey = "auth_failure"
)

// AccessVerifier resolves a bearer token to its principal.
type AccessVerifier interface {
	VerifyAccess(ctx context.Context, tokenString string) (domain.Principal, error)
}

// PrincipalFromContext returns the authenticated principal, if the filter
// established one for this request.
func PrincipalFromContext(ctx context.Context) (domain.Principal, bool) {
	principal, ok := ctx.Value(principalContextKey).(domain.Principal)
	return principal, ok
}

func authFailureFromContext(ctx context.Context) error {
	err, _ := ctx.Value(authFailureContextKey).(error)
	return err
}

// AuthenticationFilter resolves the Authorization header once per request.
// A valid bearer token puts the principal into the request context; a missing
// or bad one lets the request continue unauthenticated with the failure
// recorded, so public endpoints stay reachable and protected ones can report
// why access was denied.
func AuthenticationFilter(verifier AccessVerifier, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString := bearerToken(r)
			if tokenString == "" {
				next.ServeHTTP(w, r)
				return
			}

			principal, err := verifier.VerifyAccess(r.Context(), tokenString)
			if err != nil {
				log.WithFields(r.Context(), logger.Fields{
					"path":   r.URL.Path,
					"action": "authentication_failed",
				}).Debugf("cannot authenticate request: %v", err)
				ctx := context.WithValue(r.Context(), authFailureContextKey, err)
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			ctx := context.WithValue(r.Context(), principalContextKey, principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimPrefix(header, "Bearer ")
}

// RequireAuth guards a handler. Requests without an established principal are
// rejected with the recorded failure, or the generic unauthenticated error
// when no token was presented at all.
func RequireAuth(translator *commonhttp.Translator, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := PrincipalFromContext(r.Context()); !ok {
			err := authFailureFromContext(r.Context())
			if err == nil {
				err = service.ErrUnauthenticated
			}
			translator.Translate(w, r, err)
			return
		}
		next(w, r)
	}
}
