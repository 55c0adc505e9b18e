package service

import (
	"context"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"brandhub-core/internal/audit"
	"brandhub-core/internal/repository"
	"brandhub-core/internal/token"
)

// dummyHash keeps the bcrypt cost constant when the presented identity does
// not exist, so response timing does not reveal which part was wrong.
// Hash of an unguessable throwaway string.
const dummyHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

// SignInRequest is the single sign-in entry point for both contexts.
// BrandName empty selects the PRINCIPAL flow with Identifier as email;
// BrandName set selects the TENANT flow with Identifier as machine secret.
type SignInRequest struct {
	BrandName  string `json:"brand_name,omitempty"`
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
	RequestIP  string `json:"-"`
}

type SignInResponse struct {
	Token   string            `json:"token"`
	Context token.ContextKind `json:"context"`
	Subject string            `json:"subject"`
	BrandID string            `json:"brand_id,omitempty"`
	Roles   []string          `json:"roles,omitempty"`
}

// AuthContext is the verified identity attached to a request.
type AuthContext struct {
	Kind    token.ContextKind
	Subject string
	BrandID string
	Schema  string
	Roles   []string
}

// Require returns ErrForbidden unless the context matches the wanted kind.
// A valid token of the wrong kind is an authorization failure, not an
// authentication one.
func (a *AuthContext) Require(kind token.ContextKind) error {
	if a.Kind != kind {
		return ErrForbidden
	}
	return nil
}

func (a *AuthContext) HasRole(role string) bool {
	for _, r := range a.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// AuthService 双上下文认证服务
type AuthService interface {
	SignIn(ctx context.Context, req SignInRequest) (*SignInResponse, error)
	Validate(ctx context.Context, tokenString string) (*AuthContext, error)
}

type authService struct {
	principals repository.PrincipalsRepository
	brands     repository.BrandsRepository
	partitions PartitionAccess
	tokens     *token.Generator
	verifier   *token.Verifier
	audit      *audit.Recorder
	logger     *zap.Logger
}

func NewAuthService(
	principals repository.PrincipalsRepository,
	brands repository.BrandsRepository,
	partitions PartitionAccess,
	tokens *token.Generator,
	verifier *token.Verifier,
	auditRec *audit.Recorder,
	logger *zap.Logger,
) AuthService {
	return &authService{
		principals: principals,
		brands:     brands,
		partitions: partitions,
		tokens:     tokens,
		verifier:   verifier,
		audit:      auditRec,
		logger:     logger,
	}
}

// SignIn dispatches on the brand selector. Every failure, whatever the
// cause, surfaces as ErrInvalidCredentials; the audit trail records what
// actually happened.
func (s *authService) SignIn(ctx context.Context, req SignInRequest) (*SignInResponse, error) {
	req.Identifier = strings.TrimSpace(req.Identifier)
	req.BrandName = strings.TrimSpace(req.BrandName)
	if req.Identifier == "" || req.Password == "" {
		s.deny(ctx, req, "missing_credentials")
		return nil, ErrInvalidCredentials
	}

	if req.BrandName == "" {
		return s.signInPrincipal(ctx, req)
	}
	return s.signInBrandUser(ctx, req)
}

func (s *authService) signInPrincipal(ctx context.Context, req SignInRequest) (*SignInResponse, error) {
	principal, err := s.principals.GetPrincipalByEmail(ctx, req.Identifier)
	if err != nil {
		bcrypt.CompareHashAndPassword([]byte(dummyHash), []byte(req.Password))
		s.deny(ctx, req, "principal_not_found")
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(principal.PasswordHash), []byte(req.Password)); err != nil {
		s.deny(ctx, req, "wrong_password")
		return nil, ErrInvalidCredentials
	}
	if !principal.IsActive() {
		s.deny(ctx, req, "principal_disabled")
		return nil, ErrInvalidCredentials
	}

	signed, err := s.tokens.Principal(principal.PrincipalID, principal.Roles)
	if err != nil {
		s.logger.Error("Failed to sign principal token", zap.Error(err))
		return nil, ErrInvalidCredentials
	}

	s.audit.Record(ctx, audit.Event{
		Action: "signin", Outcome: audit.OutcomeOK,
		Subject: principal.PrincipalID, RequestIP: req.RequestIP,
	})
	return &SignInResponse{
		Token:   signed,
		Context: token.ContextPrincipal,
		Subject: principal.PrincipalID,
		Roles:   principal.Roles,
	}, nil
}

func (s *authService) signInBrandUser(ctx context.Context, req SignInRequest) (*SignInResponse, error) {
	brand, err := s.brands.GetBrandByName(ctx, req.BrandName)
	if err != nil {
		bcrypt.CompareHashAndPassword([]byte(dummyHash), []byte(req.Password))
		s.deny(ctx, req, "brand_not_found")
		return nil, ErrInvalidCredentials
	}
	if !brand.IsActive() {
		bcrypt.CompareHashAndPassword([]byte(dummyHash), []byte(req.Password))
		s.deny(ctx, req, "brand_suspended")
		return nil, ErrInvalidCredentials
	}

	users, err := s.partitions.Users(ctx, brand.SchemaName)
	if err != nil {
		s.deny(ctx, req, "partition_unavailable")
		return nil, ErrInvalidCredentials
	}

	// The lookup runs inside the selected brand's partition only: the
	// same machine secret under another brand is a different identity.
	user, err := users.GetBrandUserBySecret(ctx, req.Identifier)
	if err != nil {
		bcrypt.CompareHashAndPassword([]byte(dummyHash), []byte(req.Password))
		s.deny(ctx, req, "brand_user_not_found")
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		s.deny(ctx, req, "wrong_password")
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive() {
		s.deny(ctx, req, "brand_user_disabled")
		return nil, ErrInvalidCredentials
	}

	signed, err := s.tokens.Tenant(user.BrandUserID, brand.BrandID, brand.SchemaName, user.Roles)
	if err != nil {
		s.logger.Error("Failed to sign tenant token", zap.Error(err))
		return nil, ErrInvalidCredentials
	}

	if err := users.TouchLastUsed(ctx, user.BrandUserID); err != nil {
		s.logger.Warn("Failed to record last_used_at",
			zap.String("brand_user_id", user.BrandUserID), zap.Error(err))
	}

	s.audit.Record(ctx, audit.Event{
		Action: "signin", Outcome: audit.OutcomeOK,
		Subject: user.BrandUserID, BrandID: brand.BrandID, RequestIP: req.RequestIP,
	})
	return &SignInResponse{
		Token:   signed,
		Context: token.ContextTenant,
		Subject: user.BrandUserID,
		BrandID: brand.BrandID,
		Roles:   user.Roles,
	}, nil
}

// Validate verifies a bearer token and returns the request identity.
// PRINCIPAL tokens are re-checked against the live control-plane record on
// every call: a deleted or disabled principal loses access immediately, and
// role changes take effect without re-authentication. TENANT identities
// live inside their partition; their role snapshot is bounded by the token
// lifetime instead.
func (s *authService) Validate(ctx context.Context, tokenString string) (*AuthContext, error) {
	claims, err := s.verifier.ParseAndValidate(tokenString)
	if err != nil {
		return nil, ErrUnauthorized
	}

	ac := &AuthContext{
		Kind:    claims.Context,
		Subject: claims.Subject,
		BrandID: claims.BrandID,
		Schema:  claims.Schema,
		Roles:   claims.Roles,
	}

	if claims.Context == token.ContextPrincipal {
		principal, err := s.principals.GetPrincipal(ctx, claims.Subject)
		if err != nil || !principal.IsActive() {
			return nil, ErrUnauthorized
		}
		ac.Roles = principal.Roles
	}
	return ac, nil
}

func (s *authService) deny(ctx context.Context, req SignInRequest, reason string) {
	s.audit.Record(ctx, audit.Event{
		Action:    "signin",
		Outcome:   audit.OutcomeDenied,
		Subject:   req.Identifier,
		Detail:    reason,
		RequestIP: req.RequestIP,
	})
}
