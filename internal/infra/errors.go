package infra

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// ClaseError groups storage failures by what a caller could do about them.
type ClaseError string

const (
	ErrorSerializacion ClaseError = "serializacion" // 40001: retryable
	ErrorDeadlock      ClaseError = "deadlock"      // 40P01: retryable
	ErrorUnico         ClaseError = "unico"         // 23505
	ErrorCheck         ClaseError = "check"         // 23514
	ErrorTimeout       ClaseError = "timeout"
	ErrorDesconocido   ClaseError = "desconocido"
)

// ClasificarError inspects a storage error and returns its class and, for
// PostgreSQL errors, the SQLSTATE code. Used for logging only; callers never
// expose either value to clients.
func ClasificarError(err error) (ClaseError, string) {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return ErrorTimeout, ""
	}
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		// sqlite reports constraint failures only through the message
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return ErrorUnico, ""
		}
		return ErrorDesconocido, ""
	}
	switch pgErr.Code {
	case "40001":
		return ErrorSerializacion, pgErr.Code
	case "40P01":
		return ErrorDeadlock, pgErr.Code
	case "23505":
		return ErrorUnico, pgErr.Code
	case "23514":
		return ErrorCheck, pgErr.Code
	}
	return ErrorDesconocido, pgErr.Code
}

// Reintentable reports whether the failed transaction may succeed if run again.
func (c ClaseError) Reintentable() bool {
	return c == ErrorSerializacion || c == ErrorDeadlock
}
