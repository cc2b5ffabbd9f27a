// Package errs содержит доменные ошибки, общие для сервиса и HTTP-слоя.
package errs

import "errors"

var (
	ErrTicketNotFound      = errors.New("ticket not found")
	ErrInvalidStatus       = errors.New("invalid status: use open, in_progress, resolved or closed")
	ErrInvalidPriority     = errors.New("invalid priority: use low, medium, high or urgent")
	ErrDatabaseUnavailable = errors.New("database is not connected")
)
