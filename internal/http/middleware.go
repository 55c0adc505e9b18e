package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"brandhub-core/internal/service"
	"brandhub-core/internal/tenantdb"
	"brandhub-core/internal/token"
)

type contextKey string

const authContextKey contextKey = "authContext"

// AuthFromRequest returns the verified identity attached by RequireAuth.
func AuthFromRequest(r *http.Request) *service.AuthContext {
	ac, _ := r.Context().Value(authContextKey).(*service.AuthContext)
	return ac
}

// RequireAuth validates the bearer token and, when kind is non-empty,
// enforces the token context. Missing/bad token is 401; a valid token of
// the wrong context is 403.
func RequireAuth(auth service.AuthService, kind token.ContextKind, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw := bearerToken(r)
		if raw == "" {
			writeFail(w, http.StatusUnauthorized, "missing bearer token")
			return
		}

		ac, err := auth.Validate(r.Context(), raw)
		if err != nil {
			writeFail(w, http.StatusUnauthorized, "invalid token")
			return
		}
		if kind != "" {
			if err := ac.Require(kind); err != nil {
				writeFail(w, http.StatusForbidden, "wrong token context")
				return
			}
		}

		ctx := context.WithValue(r.Context(), authContextKey, ac)
		next(w, r.WithContext(ctx))
	}
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if h == "" {
		return ""
	}
	parts := strings.SplitN(h, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// writeServiceError maps service sentinels onto HTTP statuses.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		writeFail(w, http.StatusUnauthorized, "invalid credentials")
	case errors.Is(err, service.ErrUnauthorized):
		writeFail(w, http.StatusUnauthorized, "unauthorized")
	case errors.Is(err, service.ErrForbidden):
		writeFail(w, http.StatusForbidden, "forbidden")
	case errors.Is(err, service.ErrBrandExists):
		writeFail(w, http.StatusConflict, "brand name already registered")
	case errors.Is(err, service.ErrNotFound), errors.Is(err, tenantdb.ErrNotFound):
		writeFail(w, http.StatusNotFound, "not found")
	case errors.Is(err, tenantdb.ErrPartitionUnavailable):
		writeFail(w, http.StatusServiceUnavailable, "partition unavailable")
	default:
		writeFail(w, http.StatusInternalServerError, "internal error")
	}
}
