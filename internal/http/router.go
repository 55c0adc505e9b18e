package httpapi

import (
	"net/http"

	"go.uber.org/zap"

	"brandhub-core/internal/service"
	"brandhub-core/internal/token"
)

// Router 使用标准库 http.ServeMux（避免引入第三方路由依赖）
type Router struct {
	mux    *http.ServeMux
	logger *zap.Logger
}

func NewRouter(logger *zap.Logger) *Router {
	return &Router{
		mux:    http.NewServeMux(),
		logger: logger,
	}
}

func (r *Router) Handle(pattern string, h http.HandlerFunc) {
	r.mux.HandleFunc(pattern, h)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// RegisterAuthRoutes 注册认证路由（无需令牌）。
func (r *Router) RegisterAuthRoutes(h *AuthHandler) {
	r.Handle("/api/v1/auth/signin", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.SignIn(w, req)
	})
}

// RegisterBrandRoutes 注册租户生命周期路由（PRINCIPAL 上下文）。
func (r *Router) RegisterBrandRoutes(auth service.AuthService, h *BrandHandler) {
	r.Handle("/api/v1/brands", RequireAuth(auth, token.ContextPrincipal, func(w http.ResponseWriter, req *http.Request) {
		switch req.Method {
		case http.MethodPost:
			h.CreateBrand(w, req)
		case http.MethodGet:
			h.ListBrands(w, req)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	}))

	r.Handle("/api/v1/brands/", RequireAuth(auth, token.ContextPrincipal, func(w http.ResponseWriter, req *http.Request) {
		h.BrandByID(w, req)
	}))
}

// RegisterOutletRoutes 注册门店路由（TENANT 上下文）。
func (r *Router) RegisterOutletRoutes(auth service.AuthService, h *OutletHandler) {
	r.Handle("/api/v1/outlets", RequireAuth(auth, token.ContextTenant, func(w http.ResponseWriter, req *http.Request) {
		switch req.Method {
		case http.MethodPost:
			h.CreateOutlet(w, req)
		case http.MethodGet:
			h.ListOutlets(w, req)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	}))

	r.Handle("/api/v1/outlets/accessible", RequireAuth(auth, token.ContextTenant, func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.ListAccessible(w, req)
	}))

	r.Handle("/api/v1/outlets/export", RequireAuth(auth, token.ContextTenant, func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.ExportOutlets(w, req)
	}))

	r.Handle("/api/v1/outlets/import", RequireAuth(auth, token.ContextTenant, func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.ImportOutlets(w, req)
	}))

	r.Handle("/api/v1/outlets/", RequireAuth(auth, token.ContextTenant, func(w http.ResponseWriter, req *http.Request) {
		h.OutletByID(w, req)
	}))
}

// RegisterHealthRoutes 健康检查。
func (r *Router) RegisterHealthRoutes() {
	r.Handle("/healthz", func(w http.ResponseWriter, req *http.Request) {
		writeOK(w, map[string]string{"status": "ok"})
	})
}
