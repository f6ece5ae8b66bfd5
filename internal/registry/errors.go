package registry

import "errors"

// Ошибки registry.
var (
	// ErrTagNotFound — тег не существует.
	ErrTagNotFound = errors.New("tag not found")

	// ErrUnknownRef — content-ref не соответствует ни одному содержимому.
	ErrUnknownRef = errors.New("unknown content ref")

	// ErrTagImmutable — попытка перенацелить неизменяемый тег.
	ErrTagImmutable = errors.New("tag is immutable")
)
