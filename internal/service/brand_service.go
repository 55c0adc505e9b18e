package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"brandhub-core/internal/audit"
	"brandhub-core/internal/domain"
	"brandhub-core/internal/notify"
	"brandhub-core/internal/provision"
	"brandhub-core/internal/repository"
	"brandhub-core/internal/secrets"
)

type CreateBrandRequest struct {
	BrandName        string `json:"brand_name"`
	OwnerPrincipalID string `json:"-"`
	OwnerDisplayName string `json:"owner_display_name,omitempty"`
}

// CreateBrandResponse includes the first machine credential in plaintext.
// This response is the only place it ever appears.
type CreateBrandResponse struct {
	Brand      *domain.Brand     `json:"brand"`
	Credential *IssuedCredential `json:"credential"`
}

// BrandService 租户生命周期编排
type BrandService interface {
	CreateBrand(ctx context.Context, req CreateBrandRequest) (*CreateBrandResponse, error)
	DestroyBrand(ctx context.Context, brandID, callerPrincipalID string) error
	ListBrands(ctx context.Context, ownerPrincipalID string) ([]domain.Brand, error)
	GetBrand(ctx context.Context, brandID, callerPrincipalID string) (*domain.Brand, error)
	DeletePrincipal(ctx context.Context, principalID string) error
}

type brandService struct {
	brands      repository.BrandsRepository
	principals  repository.PrincipalsRepository
	partitioner Partitioner
	evictor     PoolEvictor
	credentials CredentialService
	box         *secrets.Box
	notifier    *notify.Notifier
	audit       *audit.Recorder
	logger      *zap.Logger
}

func NewBrandService(
	brands repository.BrandsRepository,
	principals repository.PrincipalsRepository,
	partitioner Partitioner,
	evictor PoolEvictor,
	credentials CredentialService,
	box *secrets.Box,
	notifier *notify.Notifier,
	auditRec *audit.Recorder,
	logger *zap.Logger,
) BrandService {
	return &brandService{
		brands:      brands,
		principals:  principals,
		partitioner: partitioner,
		evictor:     evictor,
		credentials: credentials,
		box:         box,
		notifier:    notifier,
		audit:       auditRec,
		logger:      logger,
	}
}

// CreateBrand provisions the partition first and commits the registration
// row only once the partition is fully usable, so a registered brand is
// always a routable brand. Order:
//  1. name pre-check
//  2. derive schema/role identifiers
//  3. provision schema + restricted role
//  4. commit control-plane row (unique constraints settle races)
//  5. issue the owner machine credential through the normal router path
// Failure after step 3 unwinds the partition; failure after step 4 also
// removes the row.
func (s *brandService) CreateBrand(ctx context.Context, req CreateBrandRequest) (*CreateBrandResponse, error) {
	req.BrandName = strings.TrimSpace(req.BrandName)
	if req.BrandName == "" {
		return nil, fmt.Errorf("brand_name is required")
	}
	if req.OwnerPrincipalID == "" {
		return nil, ErrUnauthorized
	}

	if _, err := s.brands.GetBrandByName(ctx, req.BrandName); err == nil {
		return nil, ErrBrandExists
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	owner, err := s.principals.GetPrincipal(ctx, req.OwnerPrincipalID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUnauthorized
		}
		return nil, err
	}

	schemaName, dbRole, err := provision.DeriveIdentifiers(req.BrandName)
	if err != nil {
		return nil, err
	}
	roleSecret, err := secrets.NewRoleSecret()
	if err != nil {
		return nil, fmt.Errorf("failed to generate role secret: %w", err)
	}

	plan := provision.Plan{SchemaName: schemaName, DBRole: dbRole, DBRoleSecret: roleSecret}
	if err := s.partitioner.Provision(ctx, plan); err != nil {
		return nil, err
	}

	encryptedSecret, err := s.box.Encrypt(roleSecret)
	if err != nil {
		s.unwind(ctx, schemaName, dbRole, "")
		return nil, fmt.Errorf("failed to encrypt role secret: %w", err)
	}

	brand := &domain.Brand{
		BrandName:        req.BrandName,
		OwnerPrincipalID: owner.PrincipalID,
		SchemaName:       schemaName,
		DBRole:           dbRole,
		DBRoleSecret:     encryptedSecret,
		Status:           domain.BrandStatusActive,
	}
	if err := s.brands.CreateBrand(ctx, brand); err != nil {
		s.unwind(ctx, schemaName, dbRole, "")
		if errors.Is(err, repository.ErrConflict) {
			return nil, ErrBrandExists
		}
		return nil, err
	}

	displayName := req.OwnerDisplayName
	if displayName == "" {
		displayName = req.BrandName + " owner"
	}
	credential, err := s.credentials.IssueInitial(ctx, schemaName, displayName, []string{domain.RoleOwner})
	if err != nil {
		s.unwind(ctx, schemaName, dbRole, brand.BrandID)
		return nil, fmt.Errorf("failed to issue initial credential: %w", err)
	}

	s.logger.Info("Brand created",
		zap.String("brand_id", brand.BrandID),
		zap.String("brand_name", brand.BrandName),
		zap.String("schema_name", schemaName),
	)
	s.audit.Record(ctx, audit.Event{
		Action: "brand.create", Outcome: audit.OutcomeOK,
		Subject: owner.PrincipalID, BrandID: brand.BrandID,
	})
	s.notifier.BrandCreated(ctx, brand.BrandID, brand.BrandName)

	return &CreateBrandResponse{Brand: brand, Credential: credential}, nil
}

// DestroyBrand tears down the partition and removes the registration row.
// Destroying an already-absent brand succeeds: destroy is idempotent so a
// half-failed earlier attempt can simply be repeated.
func (s *brandService) DestroyBrand(ctx context.Context, brandID, callerPrincipalID string) error {
	brand, err := s.brands.GetBrand(ctx, brandID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return err
	}
	if brand.OwnerPrincipalID != callerPrincipalID {
		return ErrForbidden
	}

	s.evictor.Evict(ctx, brand.SchemaName)
	if err := s.partitioner.Destroy(ctx, brand.SchemaName, brand.DBRole); err != nil {
		return err
	}
	if err := s.brands.DeleteBrand(ctx, brand.BrandID); err != nil && !errors.Is(err, repository.ErrNotFound) {
		return err
	}

	s.logger.Info("Brand destroyed",
		zap.String("brand_id", brand.BrandID),
		zap.String("schema_name", brand.SchemaName),
	)
	s.audit.Record(ctx, audit.Event{
		Action: "brand.destroy", Outcome: audit.OutcomeOK,
		Subject: callerPrincipalID, BrandID: brand.BrandID,
	})
	s.notifier.BrandDestroyed(ctx, brand.BrandID, brand.BrandName)
	return nil
}

func (s *brandService) ListBrands(ctx context.Context, ownerPrincipalID string) ([]domain.Brand, error) {
	brands, err := s.brands.ListBrandsByOwner(ctx, ownerPrincipalID)
	if err != nil {
		return nil, err
	}
	// The encrypted role secret never leaves the service layer.
	for i := range brands {
		brands[i].DBRoleSecret = ""
	}
	return brands, nil
}

func (s *brandService) GetBrand(ctx context.Context, brandID, callerPrincipalID string) (*domain.Brand, error) {
	brand, err := s.brands.GetBrand(ctx, brandID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if brand.OwnerPrincipalID != callerPrincipalID {
		return nil, ErrForbidden
	}
	brand.DBRoleSecret = ""
	return brand, nil
}

// DeletePrincipal destroys every brand the principal owns, then the
// principal itself.
func (s *brandService) DeletePrincipal(ctx context.Context, principalID string) error {
	owned, err := s.brands.ListBrandsByOwner(ctx, principalID)
	if err != nil {
		return err
	}
	for _, brand := range owned {
		if err := s.DestroyBrand(ctx, brand.BrandID, principalID); err != nil {
			return fmt.Errorf("failed to destroy brand %s: %w", brand.BrandID, err)
		}
	}

	if err := s.principals.DeletePrincipal(ctx, principalID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return err
	}

	s.audit.Record(ctx, audit.Event{
		Action: "principal.delete", Outcome: audit.OutcomeOK, Subject: principalID,
	})
	return nil
}

// unwind removes partial state after a failed create. Best-effort: the
// partition and row may already be gone.
func (s *brandService) unwind(ctx context.Context, schemaName, dbRole, brandID string) {
	s.evictor.Evict(ctx, schemaName)
	if err := s.partitioner.Destroy(ctx, schemaName, dbRole); err != nil {
		s.logger.Warn("Failed to unwind partition after create failure",
			zap.String("schema_name", schemaName), zap.Error(err))
	}
	if brandID != "" {
		if err := s.brands.DeleteBrand(ctx, brandID); err != nil && !errors.Is(err, repository.ErrNotFound) {
			s.logger.Warn("Failed to remove brand row after create failure",
				zap.String("brand_id", brandID), zap.Error(err))
		}
	}
}
