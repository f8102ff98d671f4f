package common

import (
	"context"
	"net/http"
	"strconv"

	"github.com/docuvault/docuvault-server/internal/model"
)

// Identity headers set by the authenticating reverse proxy. Requests without
// a user id are treated as anonymous.
const (
	HeaderUserID    = "X-User-Id"
	HeaderSuperuser = "X-User-Superuser"
	HeaderStaff     = "X-User-Staff"
)

type principalKey struct{}

// PrincipalMiddleware resolves the acting principal from the forwarded
// identity headers and stores it on the request context.
func PrincipalMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal := model.AnonymousPrincipal()
		if id := r.Header.Get(HeaderUserID); id != "" {
			principal = model.Principal{
				ID:        model.UserID(id),
				Superuser: headerBool(r, HeaderSuperuser),
				Staff:     headerBool(r, HeaderStaff),
			}
		}
		ctx := context.WithValue(r.Context(), principalKey{}, principal)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// PrincipalFromContext returns the principal resolved by the middleware,
// falling back to anonymous when none was attached.
func PrincipalFromContext(ctx context.Context) model.Principal {
	if p, ok := ctx.Value(principalKey{}).(model.Principal); ok {
		return p
	}
	return model.AnonymousPrincipal()
}

func headerBool(r *http.Request, name string) bool {
	v, err := strconv.ParseBool(r.Header.Get(name))
	return err == nil && v
}
