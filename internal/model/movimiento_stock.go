package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	MovimientoEntrada = "entrada"
	MovimientoSalida  = "salida"
)

// Kinds of document a movement points back to.
const (
	ReferenciaVenta  = "venta"
	ReferenciaCompra = "compra"
	ReferenciaAjuste = "ajuste"
)

// MovimientoStock is one immutable ledger row. Rows are only ever inserted.
// Cantidad is always positive; Tipo carries the direction.
type MovimientoStock struct {
	ID             uuid.UUID  `gorm:"type:uuid;primaryKey"`
	ProductoID     uuid.UUID  `gorm:"type:uuid;not null;index"`
	SucursalID     *uuid.UUID `gorm:"type:uuid;index"`
	Tipo           string     `gorm:"type:varchar(10);not null"`
	Cantidad       int        `gorm:"not null"`
	StockAnterior  int        `gorm:"not null"`
	StockNuevo     int        `gorm:"not null"`
	Motivo         string     `gorm:"not null"`
	ReferenciaID   *uuid.UUID `gorm:"type:uuid;index"`
	ReferenciaTipo string     `gorm:"type:varchar(20)"`
	UsuarioID      *uuid.UUID `gorm:"type:uuid"`
	CreatedAt      time.Time

	Producto *Producto `gorm:"foreignKey:ProductoID"`
}

// TableName overrides GORM's default pluralization (movimiento_stocks → movimientos_stock).
func (MovimientoStock) TableName() string { return "movimientos_stock" }

func (m *MovimientoStock) BeforeCreate(_ *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// Delta returns the signed quantity change this movement represents.
func (m MovimientoStock) Delta() int {
	if m.Tipo == MovimientoSalida {
		return -m.Cantidad
	}
	return m.Cantidad
}
