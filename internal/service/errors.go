package service

import (
	"errors"

	domainerrors "github.com/habitleague/habitleague-server/internal/errors"
	"github.com/habitleague/habitleague-server/internal/store"
)

// mapStoreError converts store sentinels into domain errors for callers.
// Errors that are already domain errors, and context errors, pass through.
func mapStoreError(err error) error {
	if err == nil {
		return nil
	}

	var domainErr *domainerrors.Error
	if errors.As(err, &domainErr) {
		return err
	}

	var storeErr *store.Error
	if !errors.As(err, &storeErr) {
		return err
	}

	switch {
	case errors.Is(err, store.ErrNotFound):
		return domainerrors.NotFound(storeErr.Message).WithCause(err)
	case errors.Is(err, store.ErrAlreadyExists), errors.Is(err, store.ErrInvalidTransition):
		return domainerrors.Conflict(storeErr.Message).WithCause(err)
	case errors.Is(err, store.ErrInvalidInput):
		return domainerrors.Validation(storeErr.Message).WithCause(err)
	case errors.Is(err, store.ErrUnavailable):
		return domainerrors.StoreUnavailable(err)
	default:
		return domainerrors.Internal(storeErr.Message).WithCause(err)
	}
}
