package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"brandhub-core/internal/domain"
	"brandhub-core/internal/repository"
	"brandhub-core/internal/secrets"
)

// secretRetries bounds regeneration when a random machine secret collides
// with an existing one inside the partition.
const secretRetries = 3

// IssuedCredential carries the only plaintext copy of a machine credential
// that will ever exist. It is returned to the caller once and never stored.
type IssuedCredential struct {
	BrandUserID string `json:"brand_user_id"`
	Secret      string `json:"secret"`
	Password    string `json:"password"`
}

// CredentialService 机器凭证签发与重置
type CredentialService interface {
	IssueInitial(ctx context.Context, schemaName, displayName string, roles []string) (*IssuedCredential, error)
	Reset(ctx context.Context, schemaName, brandUserID string) (*IssuedCredential, error)
}

type credentialService struct {
	partitions PartitionAccess
	logger     *zap.Logger
}

func NewCredentialService(partitions PartitionAccess, logger *zap.Logger) CredentialService {
	return &credentialService{partitions: partitions, logger: logger}
}

// IssueInitial creates a brand user with a fresh machine secret and random
// password. Only the bcrypt hash is persisted.
func (s *credentialService) IssueInitial(ctx context.Context, schemaName, displayName string, roles []string) (*IssuedCredential, error) {
	users, err := s.partitions.Users(ctx, schemaName)
	if err != nil {
		return nil, err
	}

	password, err := secrets.NewPassword()
	if err != nil {
		return nil, fmt.Errorf("failed to generate password: %w", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	var user *domain.BrandUser
	for attempt := 0; attempt < secretRetries; attempt++ {
		secret, err := secrets.NewMachineSecret()
		if err != nil {
			return nil, fmt.Errorf("failed to generate machine secret: %w", err)
		}
		candidate := &domain.BrandUser{
			Secret:       secret,
			PasswordHash: string(hash),
			DisplayName:  displayName,
			Roles:        roles,
		}
		err = users.CreateBrandUser(ctx, candidate)
		if err == nil {
			user = candidate
			break
		}
		if !errors.Is(err, repository.ErrConflict) {
			return nil, err
		}
		// Secret collision inside the partition; roll a new one.
	}
	if user == nil {
		return nil, fmt.Errorf("failed to generate a unique machine secret")
	}

	s.logger.Info("Machine credential issued",
		zap.String("schema_name", schemaName),
		zap.String("brand_user_id", user.BrandUserID),
	)
	return &IssuedCredential{
		BrandUserID: user.BrandUserID,
		Secret:      user.Secret,
		Password:    password,
	}, nil
}

// Reset replaces the password of an existing brand user. The machine secret
// is stable; the old password stops working the moment the new hash lands.
func (s *credentialService) Reset(ctx context.Context, schemaName, brandUserID string) (*IssuedCredential, error) {
	users, err := s.partitions.Users(ctx, schemaName)
	if err != nil {
		return nil, err
	}

	user, err := users.GetBrandUser(ctx, brandUserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	password, err := secrets.NewPassword()
	if err != nil {
		return nil, fmt.Errorf("failed to generate password: %w", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	if err := users.UpdatePasswordHash(ctx, user.BrandUserID, string(hash)); err != nil {
		return nil, err
	}

	s.logger.Info("Machine credential reset",
		zap.String("schema_name", schemaName),
		zap.String("brand_user_id", user.BrandUserID),
	)
	return &IssuedCredential{
		BrandUserID: user.BrandUserID,
		Secret:      user.Secret,
		Password:    password,
	}, nil
}
