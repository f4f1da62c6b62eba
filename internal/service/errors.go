package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"despensa/internal/infra"
	"despensa/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// Domain errors. Handlers map them to HTTP status codes; everything else a
// service returns is surfaced as ErrTransaccionFallida.
var (
	ErrProductoNoEncontrado       = errors.New("producto no encontrado")
	ErrStockInsuficiente          = repository.ErrStockInsuficiente
	ErrCantidadDevolucionInvalida = errors.New("cantidad de devolución inválida")
	ErrTransicionInvalida         = errors.New("transición de estado inválida")
	ErrTransaccionFallida         = errors.New("la operación no pudo completarse")
	ErrVentaNoEncontrada          = errors.New("venta no encontrada")
	ErrVentaNoEditable            = errors.New("la venta no admite modificaciones en su estado actual")
	ErrProductoNoEnVenta          = errors.New("el producto no pertenece a la venta")
	ErrDescuentoInvalido          = errors.New("el descuento supera el importe de la línea")
	ErrPromocionNoEncontrada      = errors.New("promoción no encontrada")
	ErrPromocionInvalida          = errors.New("promoción inválida")
	ErrCredencialesInvalidas      = errors.New("credenciales invalidas")
	ErrCodigoDuplicado            = errors.New("ya existe un producto activo con ese código")
)

var erroresDominio = []error{
	ErrProductoNoEncontrado,
	ErrStockInsuficiente,
	ErrCantidadDevolucionInvalida,
	ErrTransicionInvalida,
	ErrVentaNoEncontrada,
	ErrVentaNoEditable,
	ErrProductoNoEnVenta,
	ErrDescuentoInvalido,
	ErrPromocionNoEncontrada,
	ErrPromocionInvalida,
	ErrCredencialesInvalidas,
	ErrCodigoDuplicado,
}

// DomainError wraps a sentinel with the line or product that caused it.
// Linea is 1-based; 0 means the error is not tied to a request line.
type DomainError struct {
	Err        error
	Detalle    string
	ProductoID *uuid.UUID
	Linea      int
}

func (e *DomainError) Error() string {
	var b strings.Builder
	b.WriteString(e.Err.Error())
	if e.Linea > 0 {
		fmt.Fprintf(&b, " (línea %d)", e.Linea)
	}
	if e.ProductoID != nil {
		fmt.Fprintf(&b, " [producto %s]", e.ProductoID)
	}
	if e.Detalle != "" {
		b.WriteString(": ")
		b.WriteString(e.Detalle)
	}
	return b.String()
}

func (e *DomainError) Unwrap() error { return e.Err }

func errLinea(sentinel error, linea int, productoID uuid.UUID, detalle string) *DomainError {
	pid := productoID
	return &DomainError{Err: sentinel, Linea: linea, ProductoID: &pid, Detalle: detalle}
}

// EsErrorDominio reports whether err carries one of the domain sentinels.
func EsErrorDominio(err error) bool {
	for _, s := range erroresDominio {
		if errors.Is(err, s) {
			return true
		}
	}
	return false
}

// fallaTx passes domain errors through unchanged. Anything else is logged
// with its storage classification and replaced by ErrTransaccionFallida, so
// no driver detail reaches the caller.
func fallaTx(ctx context.Context, op string, err error) error {
	if err == nil {
		return nil
	}
	if EsErrorDominio(err) {
		return err
	}
	clase, sqlstate := infra.ClasificarError(err)
	if ctx.Err() != nil {
		clase = infra.ErrorTimeout
	}
	log.Error().
		Err(err).
		Str("operacion", op).
		Str("clase", string(clase)).
		Str("sqlstate", sqlstate).
		Bool("reintentable", clase.Reintentable()).
		Msg("transacción revertida")
	return ErrTransaccionFallida
}

// runTx executes fn inside a GORM transaction bound to ctx. gorm rolls back
// on any returned error or panic.
func runTx(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) error {
	return db.WithContext(ctx).Transaction(fn)
}

func noEncontrado(err error) bool { return errors.Is(err, gorm.ErrRecordNotFound) }
