package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Dosada05/run-contest/models"
	"github.com/Dosada05/run-contest/repositories"
	"github.com/google/uuid"
)

// newAddress mints a fresh 0x-prefixed handle for a deployed instance.
func newAddress() models.Address {
	id := uuid.New()
	return models.Address("0x" + strings.ReplaceAll(id.String(), "-", ""))
}

// handleRepositoryError translates repository sentinels into service errors
// and passes everything else through.
func handleRepositoryError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repositories.ErrContestNotFound):
		return ErrContestNotFound
	case errors.Is(err, repositories.ErrRegistryNotFound):
		return ErrRegistryNotFound
	case errors.Is(err, repositories.ErrAccountNotFound):
		return ErrAccountNotFound
	case errors.Is(err, repositories.ErrAccountConflict):
		return ErrAccountExists
	case errors.Is(err, repositories.ErrDeploymentNotFound):
		return ErrNotFound
	}
	return err
}

// checkNotReserved fails with ErrReservedAddress when address is the handle of
// a deployed contest or registry. A nil registries skips the registry lookup.
func checkNotReserved(ctx context.Context, contests repositories.ContestRepository, registries repositories.RegistryRepository, address models.Address) error {
	_, err := contests.GetByAddress(ctx, nil, address)
	switch {
	case err == nil:
		return fmt.Errorf("%w: %s is a contest escrow", ErrReservedAddress, address)
	case !errors.Is(err, repositories.ErrContestNotFound):
		return err
	}
	if registries == nil {
		return nil
	}
	_, err = registries.GetByAddress(ctx, nil, address)
	switch {
	case err == nil:
		return fmt.Errorf("%w: %s is a registry", ErrReservedAddress, address)
	case !errors.Is(err, repositories.ErrRegistryNotFound):
		return err
	}
	return nil
}
