package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"brandhub-core/internal/service"
)

// BrandHandler 租户生命周期（仅 PRINCIPAL 上下文可达）。
type BrandHandler struct {
	brands      service.BrandService
	credentials service.CredentialService
	logger      *zap.Logger
}

func NewBrandHandler(brands service.BrandService, credentials service.CredentialService, logger *zap.Logger) *BrandHandler {
	return &BrandHandler{brands: brands, credentials: credentials, logger: logger}
}

// CreateBrand POST /api/v1/brands
// The owner is always the calling principal; the response carries the only
// plaintext copy of the first machine credential.
func (h *BrandHandler) CreateBrand(w http.ResponseWriter, r *http.Request) {
	ac := AuthFromRequest(r)

	var req service.CreateBrandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.OwnerPrincipalID = ac.Subject

	resp, err := h.brands.CreateBrand(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, Ok(resp))
}

// ListBrands GET /api/v1/brands
func (h *BrandHandler) ListBrands(w http.ResponseWriter, r *http.Request) {
	ac := AuthFromRequest(r)

	brands, err := h.brands.ListBrands(r.Context(), ac.Subject)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeOK(w, brands)
}

// BrandByID dispatches /api/v1/brands/{id} and
// /api/v1/brands/{id}/credential-reset.
func (h *BrandHandler) BrandByID(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/v1/brands/")
	if rest == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	parts := strings.Split(rest, "/")
	brandID := parts[0]

	switch {
	case len(parts) == 1:
		switch r.Method {
		case http.MethodGet:
			h.getBrand(w, r, brandID)
		case http.MethodDelete:
			h.destroyBrand(w, r, brandID)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	case len(parts) == 2 && parts[1] == "credential-reset":
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.resetCredential(w, r, brandID)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *BrandHandler) getBrand(w http.ResponseWriter, r *http.Request, brandID string) {
	ac := AuthFromRequest(r)

	brand, err := h.brands.GetBrand(r.Context(), brandID, ac.Subject)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeOK(w, brand)
}

func (h *BrandHandler) destroyBrand(w http.ResponseWriter, r *http.Request, brandID string) {
	ac := AuthFromRequest(r)

	if err := h.brands.DestroyBrand(r.Context(), brandID, ac.Subject); err != nil {
		writeServiceError(w, err)
		return
	}
	writeOK(w, map[string]string{"brand_id": brandID, "status": "destroyed"})
}

// resetCredential POST /api/v1/brands/{id}/credential-reset
// Body: {"brand_user_id"}. Returns a fresh plaintext password once.
func (h *BrandHandler) resetCredential(w http.ResponseWriter, r *http.Request, brandID string) {
	ac := AuthFromRequest(r)

	var req struct {
		BrandUserID string `json:"brand_user_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.BrandUserID == "" {
		writeFail(w, http.StatusBadRequest, "brand_user_id is required")
		return
	}

	// Ownership gate runs through GetBrand
	brand, err := h.brands.GetBrand(r.Context(), brandID, ac.Subject)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	cred, err := h.credentials.Reset(r.Context(), brand.SchemaName, req.BrandUserID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeOK(w, cred)
}
