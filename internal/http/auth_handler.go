package httpapi

import (
	"encoding/json"
	"net"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"brandhub-core/internal/service"
)

// AuthHandler 认证入口
type AuthHandler struct {
	auth   service.AuthService
	logger *zap.Logger
}

func NewAuthHandler(auth service.AuthService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{auth: auth, logger: logger}
}

// SignIn POST /api/v1/auth/signin
// Body: {"brand_name"?, "identifier", "password"}
// brand_name absent -> PRINCIPAL flow, present -> TENANT flow.
func (h *AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req service.SignInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.RequestIP = clientIP(r)

	resp, err := h.auth.SignIn(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeOK(w, resp)
}

// clientIP resolves the address recorded in the audit trail. X-Forwarded-For
// may carry a comma-joined proxy chain; only the first element names the
// client, and anything that does not parse as an IP is discarded rather than
// written into the trail.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		first = strings.TrimSpace(first)
		if net.ParseIP(first) != nil {
			return first
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
