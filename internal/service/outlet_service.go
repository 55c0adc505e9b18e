package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"go.uber.org/zap"

	"brandhub-core/internal/audit"
	"brandhub-core/internal/domain"
	"brandhub-core/internal/repository"
)

// OutletService 门店管理与访问授权（分区内操作）。
type OutletService interface {
	CreateOutlet(ctx context.Context, schemaName, code, name, address string) (*domain.Outlet, error)
	ListOutlets(ctx context.Context, schemaName string) ([]domain.Outlet, error)
	DeleteOutlet(ctx context.Context, schemaName, outletID string) error

	Grant(ctx context.Context, schemaName, brandUserID, outletID string) error
	Revoke(ctx context.Context, schemaName, brandUserID, outletID string) error
	ListAccessible(ctx context.Context, schemaName, brandUserID string) ([]domain.Outlet, error)
	CheckAccess(ctx context.Context, schemaName, brandUserID, outletID string) (bool, error)
}

type outletService struct {
	partitions PartitionAccess
	audit      *audit.Recorder
	logger     *zap.Logger
}

func NewOutletService(partitions PartitionAccess, auditRec *audit.Recorder, logger *zap.Logger) OutletService {
	return &outletService{partitions: partitions, audit: auditRec, logger: logger}
}

func (s *outletService) CreateOutlet(ctx context.Context, schemaName, code, name, address string) (*domain.Outlet, error) {
	outlets, err := s.partitions.Outlets(ctx, schemaName)
	if err != nil {
		return nil, err
	}

	o := &domain.Outlet{
		Code:   strings.TrimSpace(code),
		Name:   strings.TrimSpace(name),
		Status: domain.OutletStatusActive,
	}
	if address = strings.TrimSpace(address); address != "" {
		o.Address = sql.NullString{String: address, Valid: true}
	}
	if err := outlets.CreateOutlet(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

func (s *outletService) ListOutlets(ctx context.Context, schemaName string) ([]domain.Outlet, error) {
	outlets, err := s.partitions.Outlets(ctx, schemaName)
	if err != nil {
		return nil, err
	}
	return outlets.ListOutlets(ctx)
}

func (s *outletService) DeleteOutlet(ctx context.Context, schemaName, outletID string) error {
	outlets, err := s.partitions.Outlets(ctx, schemaName)
	if err != nil {
		return err
	}
	if err := outlets.DeleteOutlet(ctx, outletID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

// Grant allows a brand user into an outlet. The target user must exist in
// the same partition; idempotent on repeat.
func (s *outletService) Grant(ctx context.Context, schemaName, brandUserID, outletID string) error {
	users, err := s.partitions.Users(ctx, schemaName)
	if err != nil {
		return err
	}
	if _, err := users.GetBrandUser(ctx, brandUserID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}

	outlets, err := s.partitions.Outlets(ctx, schemaName)
	if err != nil {
		return err
	}
	if _, err := outlets.GetOutlet(ctx, outletID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}

	if err := outlets.GrantOutlet(ctx, brandUserID, outletID); err != nil {
		return err
	}
	s.audit.Record(ctx, audit.Event{
		Action: "outlet.grant", Outcome: audit.OutcomeOK,
		Subject: brandUserID, Detail: outletID,
	})
	return nil
}

// Revoke removes a grant; revoking an absent grant is a no-op success.
func (s *outletService) Revoke(ctx context.Context, schemaName, brandUserID, outletID string) error {
	outlets, err := s.partitions.Outlets(ctx, schemaName)
	if err != nil {
		return err
	}
	if err := outlets.RevokeOutlet(ctx, brandUserID, outletID); err != nil {
		return err
	}
	s.audit.Record(ctx, audit.Event{
		Action: "outlet.revoke", Outcome: audit.OutcomeOK,
		Subject: brandUserID, Detail: outletID,
	})
	return nil
}

func (s *outletService) ListAccessible(ctx context.Context, schemaName, brandUserID string) ([]domain.Outlet, error) {
	outlets, err := s.partitions.Outlets(ctx, schemaName)
	if err != nil {
		return nil, err
	}
	return outlets.ListAccessibleOutlets(ctx, brandUserID)
}

func (s *outletService) CheckAccess(ctx context.Context, schemaName, brandUserID, outletID string) (bool, error) {
	outlets, err := s.partitions.Outlets(ctx, schemaName)
	if err != nil {
		return false, err
	}
	return outlets.HasOutletAccess(ctx, brandUserID, outletID)
}
