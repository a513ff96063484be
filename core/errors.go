package core

import (
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	StoreErrorBadInput = "AGENT_STORE_INVALID_INPUT"
	StoreErrorNotFound = "AGENT_STORE_NOT_FOUND"
	StoreErrorConflict = "AGENT_STORE_CONFLICT"
	StoreErrorFault    = "AGENT_STORE_FAULT"
	StoreErrorInternal = "AGENT_INTERNAL_ERROR"
)

// NewNotFoundError covers every flavor of absence: never stored, already
// consumed, or filtered out by expiry. Callers get no finer distinction.
func NewNotFoundError(message string) *goerrors.Error {
	return newStoreError(message, goerrors.CategoryNotFound, StoreErrorNotFound)
}

// NewConflictError reports a uniqueness violation surfaced by the engine.
func NewConflictError(message string) *goerrors.Error {
	return newStoreError(message, goerrors.CategoryConflict, StoreErrorConflict)
}

// NewStorageFaultError wraps an engine failure (connectivity, malformed
// statement, non-unique constraint violations) so callers can tell
// infrastructure trouble apart from absence.
func NewStorageFaultError(message string, cause error) *goerrors.Error {
	if cause == nil {
		return newStoreError(message, goerrors.CategoryExternal, StoreErrorFault)
	}
	return ensureStoreErrorEnvelope(
		goerrors.Wrap(cause, goerrors.CategoryExternal, message).
			WithTextCode(StoreErrorFault),
	)
}

func NewBadInputError(message string) *goerrors.Error {
	return newStoreError(message, goerrors.CategoryBadInput, StoreErrorBadInput)
}

func IsNotFound(err error) bool {
	return errorHasCategory(err, goerrors.CategoryNotFound)
}

func IsConflict(err error) bool {
	return errorHasCategory(err, goerrors.CategoryConflict)
}

func IsStorageFault(err error) bool {
	return errorHasCategory(err, goerrors.CategoryExternal)
}

func IsBadInput(err error) bool {
	return errorHasCategory(err, goerrors.CategoryBadInput) ||
		errorHasCategory(err, goerrors.CategoryValidation)
}

func errorHasCategory(err error, category goerrors.Category) bool {
	if err == nil {
		return false
	}
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		return false
	}
	return richErr.Category == category
}

func storeErrorMapper(err error) *goerrors.Error {
	if err == nil {
		return nil
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return ensureStoreErrorEnvelope(richErr)
	}

	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	switch {
	case strings.Contains(msg, "not found"), strings.Contains(msg, "no rows"):
		return newStoreError(err.Error(), goerrors.CategoryNotFound, StoreErrorNotFound)
	case strings.Contains(msg, "unique"), strings.Contains(msg, "duplicate"):
		return newStoreError(err.Error(), goerrors.CategoryConflict, StoreErrorConflict)
	case strings.Contains(msg, "required"), strings.Contains(msg, "invalid"), strings.Contains(msg, "empty"):
		return newStoreError(err.Error(), goerrors.CategoryBadInput, StoreErrorBadInput)
	case strings.Contains(msg, "not configured"):
		return newStoreError(err.Error(), goerrors.CategoryInternal, StoreErrorInternal)
	}

	mapped := goerrors.MapToError(err, goerrors.DefaultErrorMappers())
	return ensureStoreErrorEnvelope(mapped)
}

func newStoreError(message string, category goerrors.Category, textCode string) *goerrors.Error {
	return ensureStoreErrorEnvelope(
		goerrors.New(message, category).
			WithTextCode(textCode),
	)
}

func ensureStoreErrorEnvelope(err *goerrors.Error) *goerrors.Error {
	if err == nil {
		return nil
	}
	if err.Code == 0 {
		err.Code = storeHTTPStatus(err.Category)
	}
	if strings.TrimSpace(err.TextCode) == "" {
		err.TextCode = defaultStoreTextCode(err.Category)
	}
	if err.Category == goerrors.CategoryInternal && strings.TrimSpace(err.Message) == "" {
		err.Message = "An unexpected error occurred"
	}
	return err
}

func defaultStoreTextCode(category goerrors.Category) string {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return StoreErrorBadInput
	case goerrors.CategoryNotFound:
		return StoreErrorNotFound
	case goerrors.CategoryConflict:
		return StoreErrorConflict
	case goerrors.CategoryExternal:
		return StoreErrorFault
	default:
		return StoreErrorInternal
	}
}

func storeHTTPStatus(category goerrors.Category) int {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return http.StatusBadRequest
	case goerrors.CategoryNotFound:
		return http.StatusNotFound
	case goerrors.CategoryConflict:
		return http.StatusConflict
	case goerrors.CategoryExternal:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
