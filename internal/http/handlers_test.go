package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"brandhub-core/internal/domain"
	"brandhub-core/internal/provision"
	"brandhub-core/internal/repository"
	"brandhub-core/internal/secrets"
	"brandhub-core/internal/service"
	"brandhub-core/internal/token"
)

// testPartitions implements service.PartitionAccess over memory repos.
type testPartitions struct {
	mu      sync.Mutex
	users   map[string]*repository.MemoryBrandUsersRepository
	outlets map[string]*repository.MemoryOutletsRepository
}

func newTestPartitions() *testPartitions {
	return &testPartitions{
		users:   map[string]*repository.MemoryBrandUsersRepository{},
		outlets: map[string]*repository.MemoryOutletsRepository{},
	}
}

func (p *testPartitions) Users(_ context.Context, schema string) (repository.BrandUsersRepository, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.users[schema] == nil {
		p.users[schema] = repository.NewMemoryBrandUsersRepository()
	}
	return p.users[schema], nil
}

func (p *testPartitions) Outlets(_ context.Context, schema string) (repository.OutletsRepository, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.outlets[schema] == nil {
		p.outlets[schema] = repository.NewMemoryOutletsRepository()
	}
	return p.outlets[schema], nil
}

type noopPartitioner struct{}

func (noopPartitioner) Provision(context.Context, provision.Plan) error { return nil }
func (noopPartitioner) Destroy(context.Context, string, string) error   { return nil }

type noopEvictor struct{}

func (noopEvictor) Evict(context.Context, string) {}

type apiFixture struct {
	server     *httptest.Server
	principals *repository.MemoryPrincipalsRepository
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	logger := zap.NewNop()

	key, err := token.GenerateEphemeralKey()
	require.NoError(t, err)
	gen := token.NewGenerator(key, "brandhub-core", "brandhub", "test", time.Hour)
	ver := token.NewVerifier(&key.PublicKey, "brandhub-core", "brandhub")

	masterKey, err := secrets.GenerateMasterKey()
	require.NoError(t, err)
	box, err := secrets.NewBox(masterKey)
	require.NoError(t, err)

	principals := repository.NewMemoryPrincipalsRepository()
	brands := repository.NewMemoryBrandsRepository()
	partitions := newTestPartitions()

	credentials := service.NewCredentialService(partitions, logger)
	authSvc := service.NewAuthService(principals, brands, partitions, gen, ver, nil, logger)
	brandSvc := service.NewBrandService(brands, principals, noopPartitioner{}, noopEvictor{}, credentials, box, nil, nil, logger)
	outletSvc := service.NewOutletService(partitions, nil, logger)

	router := NewRouter(logger)
	router.RegisterHealthRoutes()
	router.RegisterAuthRoutes(NewAuthHandler(authSvc, logger))
	router.RegisterBrandRoutes(authSvc, NewBrandHandler(brandSvc, credentials, logger))
	router.RegisterOutletRoutes(authSvc, NewOutletHandler(outletSvc, logger))

	f := &apiFixture{server: httptest.NewServer(router), principals: principals}
	t.Cleanup(f.server.Close)
	return f
}

func (f *apiFixture) seedPrincipal(t *testing.T, email, password string) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	require.NoError(t, f.principals.CreatePrincipal(context.Background(),
		&domain.Principal{Email: email, PasswordHash: string(hash)}))
}

func (f *apiFixture) do(t *testing.T, method, path, bearer string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, f.server.URL+path, &buf)
	require.NoError(t, err)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)

	var envelope map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&envelope)
	resp.Body.Close()
	return resp, envelope
}

func result(t *testing.T, envelope map[string]any) map[string]any {
	t.Helper()
	m, ok := envelope["result"].(map[string]any)
	require.True(t, ok, "expected object result, got %v", envelope)
	return m
}

// Full walk through the happy path and the context gates.
func TestBrandLifecycleEndToEnd(t *testing.T) {
	f := newAPIFixture(t)
	f.seedPrincipal(t, "founder@example.com", "str0ng pass")

	// Principal sign-in
	resp, env := f.do(t, http.MethodPost, "/api/v1/auth/signin", "", map[string]string{
		"identifier": "founder@example.com", "password": "str0ng pass",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	principalToken := result(t, env)["token"].(string)
	require.NotEmpty(t, principalToken)

	// Create the brand; capture the one-time credential
	resp, env = f.do(t, http.MethodPost, "/api/v1/brands", principalToken, map[string]string{
		"brand_name": "Bensu Kitchen",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := result(t, env)
	brand := created["brand"].(map[string]any)
	credential := created["credential"].(map[string]any)
	brandID := brand["BrandID"].(string)
	machineSecret := credential["secret"].(string)
	machinePassword := credential["password"].(string)
	require.NotEmpty(t, machineSecret)
	require.NotEmpty(t, machinePassword)

	// Tenant sign-in with the issued credential
	resp, env = f.do(t, http.MethodPost, "/api/v1/auth/signin", "", map[string]string{
		"brand_name": "Bensu Kitchen", "identifier": machineSecret, "password": machinePassword,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	tenantToken := result(t, env)["token"].(string)

	// Context gates: tenant token cannot touch brands, principal token
	// cannot touch outlets, anonymous gets 401.
	resp, _ = f.do(t, http.MethodGet, "/api/v1/brands", tenantToken, nil)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp, _ = f.do(t, http.MethodGet, "/api/v1/outlets", principalToken, nil)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp, _ = f.do(t, http.MethodGet, "/api/v1/brands", "", nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// Outlet lifecycle in the tenant context
	resp, env = f.do(t, http.MethodPost, "/api/v1/outlets", tenantToken, map[string]string{
		"outlet_code": "BK-01", "outlet_name": "Bensu Downtown",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	outletID := result(t, env)["outlet_id"].(string)

	resp, env = f.do(t, http.MethodGet, "/api/v1/outlets/accessible", tenantToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Empty(t, env["result"], "no grants yet")

	ownerUserID := credential["brand_user_id"].(string)
	resp, _ = f.do(t, http.MethodPost, "/api/v1/outlets/"+outletID+"/grants", tenantToken, map[string]string{
		"brand_user_id": ownerUserID,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, env = f.do(t, http.MethodGet, "/api/v1/outlets/accessible", tenantToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	accessible := env["result"].([]any)
	require.Len(t, accessible, 1)

	// Credential reset: old password dies, new one works
	resp, env = f.do(t, http.MethodPost, "/api/v1/brands/"+brandID+"/credential-reset", principalToken, map[string]string{
		"brand_user_id": ownerUserID,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	newPassword := result(t, env)["password"].(string)

	resp, _ = f.do(t, http.MethodPost, "/api/v1/auth/signin", "", map[string]string{
		"brand_name": "Bensu Kitchen", "identifier": machineSecret, "password": machinePassword,
	})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp, _ = f.do(t, http.MethodPost, "/api/v1/auth/signin", "", map[string]string{
		"brand_name": "Bensu Kitchen", "identifier": machineSecret, "password": newPassword,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// Destroy the brand; tenant sign-in stops working
	resp, _ = f.do(t, http.MethodDelete, "/api/v1/brands/"+brandID, principalToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = f.do(t, http.MethodPost, "/api/v1/auth/signin", "", map[string]string{
		"brand_name": "Bensu Kitchen", "identifier": machineSecret, "password": newPassword,
	})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestDuplicateBrandNameConflict(t *testing.T) {
	f := newAPIFixture(t)
	f.seedPrincipal(t, "founder@example.com", "str0ng pass")

	_, env := f.do(t, http.MethodPost, "/api/v1/auth/signin", "", map[string]string{
		"identifier": "founder@example.com", "password": "str0ng pass",
	})
	principalToken := result(t, env)["token"].(string)

	resp, _ := f.do(t, http.MethodPost, "/api/v1/brands", principalToken, map[string]string{"brand_name": "Twice"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp, _ = f.do(t, http.MethodPost, "/api/v1/brands", principalToken, map[string]string{"brand_name": "Twice"})
	require.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestSignInFailureIsGeneric(t *testing.T) {
	f := newAPIFixture(t)
	f.seedPrincipal(t, "founder@example.com", "str0ng pass")

	for name, body := range map[string]map[string]string{
		"unknown email":  {"identifier": "nobody@example.com", "password": "x"},
		"wrong password": {"identifier": "founder@example.com", "password": "wrong"},
	} {
		resp, env := f.do(t, http.MethodPost, "/api/v1/auth/signin", "", body)
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode, name)
		require.Equal(t, "invalid credentials", env["message"], name)
	}
}

func TestMalformedBearerHeader(t *testing.T) {
	f := newAPIFixture(t)

	req, err := http.NewRequest(http.MethodGet, f.server.URL+"/api/v1/brands", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Token abc")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestHealthz(t *testing.T) {
	f := newAPIFixture(t)

	resp, env := f.do(t, http.MethodGet, "/healthz", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, float64(ResultSuccess), env["code"])
}
