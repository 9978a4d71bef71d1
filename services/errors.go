package services

import "errors"

// Errors shared by every service and the HTTP error mapping. Contest rule
// violations are not listed here; they surface as *contest.Error.
var (
	ErrNotFound         = errors.New("requested resource not found")
	ErrContestNotFound  = errors.New("contest not found")
	ErrRegistryNotFound = errors.New("registry not found")
	ErrAccountNotFound  = errors.New("account not found")
	ErrPresetNotFound   = errors.New("contest preset not found")

	ErrValidationFailed = errors.New("validation failed")

	ErrRegistryNotDeployed     = errors.New("no registry is deployed on this network")
	ErrRegistryAlreadyDeployed = errors.New("a registry is already deployed on this network")
	ErrAccountExists           = errors.New("account already exists")
	ErrReservedAddress         = errors.New("address belongs to a deployed contest or registry")

	ErrAuthenticationFailed = errors.New("authentication failed")
	ErrInvalidCredentials   = errors.New("invalid account or api key")
)
