package service

import "errors"

// Service-level sentinels. Handlers map these to HTTP statuses; services
// map repository/tenantdb causes onto them so callers never see storage
// details.
var (
	// ErrInvalidCredentials is the single answer for every sign-in
	// failure: unknown identity, wrong password, disabled account,
	// suspended brand. The true cause goes to the audit trail only.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrUnauthorized: missing or unverifiable token.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden: valid token, wrong context or insufficient access.
	ErrForbidden = errors.New("forbidden")

	ErrBrandExists = errors.New("brand name already registered")
	ErrNotFound    = errors.New("not found")
)
