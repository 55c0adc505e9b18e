package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"brandhub-core/internal/domain"
	"brandhub-core/internal/service"
)

// OutletHandler 门店管理（仅 TENANT 上下文可达；分区取自令牌）。
// Mutations require the Owner role; reads are open to any brand user.
type OutletHandler struct {
	outlets service.OutletService
	logger  *zap.Logger
}

func NewOutletHandler(outlets service.OutletService, logger *zap.Logger) *OutletHandler {
	return &OutletHandler{outlets: outlets, logger: logger}
}

// CreateOutlet POST /api/v1/outlets
func (h *OutletHandler) CreateOutlet(w http.ResponseWriter, r *http.Request) {
	ac := AuthFromRequest(r)
	if !ac.HasRole(domain.RoleOwner) {
		writeFail(w, http.StatusForbidden, "forbidden")
		return
	}

	var req struct {
		Code    string `json:"outlet_code"`
		Name    string `json:"outlet_name"`
		Address string `json:"address,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Code == "" || req.Name == "" {
		writeFail(w, http.StatusBadRequest, "outlet_code and outlet_name are required")
		return
	}

	o, err := h.outlets.CreateOutlet(r.Context(), ac.Schema, req.Code, req.Name, req.Address)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, Ok(outletJSON(*o)))
}

// ListOutlets GET /api/v1/outlets
func (h *OutletHandler) ListOutlets(w http.ResponseWriter, r *http.Request) {
	ac := AuthFromRequest(r)

	outlets, err := h.outlets.ListOutlets(r.Context(), ac.Schema)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeOK(w, outletListJSON(outlets))
}

// ListAccessible GET /api/v1/outlets/accessible
// Lists the outlets granted to the calling brand user.
func (h *OutletHandler) ListAccessible(w http.ResponseWriter, r *http.Request) {
	ac := AuthFromRequest(r)

	outlets, err := h.outlets.ListAccessible(r.Context(), ac.Schema, ac.Subject)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeOK(w, outletListJSON(outlets))
}

// OutletByID dispatches /api/v1/outlets/{id} and /api/v1/outlets/{id}/grants.
func (h *OutletHandler) OutletByID(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/v1/outlets/")
	if rest == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	parts := strings.Split(rest, "/")
	outletID := parts[0]

	switch {
	case len(parts) == 1:
		if r.Method != http.MethodDelete {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.deleteOutlet(w, r, outletID)
	case len(parts) == 2 && parts[1] == "grants":
		h.grants(w, r, outletID)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *OutletHandler) deleteOutlet(w http.ResponseWriter, r *http.Request, outletID string) {
	ac := AuthFromRequest(r)
	if !ac.HasRole(domain.RoleOwner) {
		writeFail(w, http.StatusForbidden, "forbidden")
		return
	}

	if err := h.outlets.DeleteOutlet(r.Context(), ac.Schema, outletID); err != nil {
		writeServiceError(w, err)
		return
	}
	writeOK(w, map[string]string{"outlet_id": outletID, "status": "deleted"})
}

// grants POST|DELETE /api/v1/outlets/{id}/grants
// Body: {"brand_user_id"}. POST grants, DELETE revokes; both idempotent.
func (h *OutletHandler) grants(w http.ResponseWriter, r *http.Request, outletID string) {
	ac := AuthFromRequest(r)
	if !ac.HasRole(domain.RoleOwner) {
		writeFail(w, http.StatusForbidden, "forbidden")
		return
	}

	var req struct {
		BrandUserID string `json:"brand_user_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.BrandUserID == "" {
		writeFail(w, http.StatusBadRequest, "brand_user_id is required")
		return
	}

	var err error
	switch r.Method {
	case http.MethodPost:
		err = h.outlets.Grant(r.Context(), ac.Schema, req.BrandUserID, outletID)
	case http.MethodDelete:
		err = h.outlets.Revoke(r.Context(), ac.Schema, req.BrandUserID, outletID)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeOK(w, map[string]string{"outlet_id": outletID, "brand_user_id": req.BrandUserID})
}

func outletJSON(o domain.Outlet) map[string]any {
	m := map[string]any{
		"outlet_id":   o.OutletID,
		"outlet_code": o.Code,
		"outlet_name": o.Name,
		"status":      o.Status,
	}
	if o.Address.Valid {
		m["address"] = o.Address.String
	}
	return m
}

func outletListJSON(outlets []domain.Outlet) []map[string]any {
	out := make([]map[string]any, 0, len(outlets))
	for _, o := range outlets {
		out = append(out, outletJSON(o))
	}
	return out
}
