package model

import (
	"time"

	"despensa/internal/promocion"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Estados de una venta.
const (
	EstadoPendiente  = "pendiente"
	EstadoCompletada = "completada"
	EstadoCancelada  = "cancelada"
	EstadoDevuelta   = "devuelta"
)

var transiciones = map[string][]string{
	EstadoPendiente:  {EstadoCompletada, EstadoCancelada},
	EstadoCompletada: {EstadoDevuelta},
}

// TransicionPermitida reports whether desde → hacia is part of the lifecycle.
// Terminal states have no outgoing transitions.
func TransicionPermitida(desde, hacia string) bool {
	for _, e := range transiciones[desde] {
		if e == hacia {
			return true
		}
	}
	return false
}

// EstadoValido reports whether e is one of the four known states.
func EstadoValido(e string) bool {
	switch e {
	case EstadoPendiente, EstadoCompletada, EstadoCancelada, EstadoDevuelta:
		return true
	}
	return false
}

// RetieneStock is true for states in which the sold units are out of stock.
func RetieneStock(estado string) bool {
	return estado == EstadoPendiente || estado == EstadoCompletada
}

// Editable is true for states in which lines may be removed or replaced.
func Editable(estado string) bool { return RetieneStock(estado) }

// Venta is the sale aggregate: header, ordered items and append-only notes.
// It is never hard-deleted.
type Venta struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey"`
	Numero        string          `gorm:"uniqueIndex;not null"`
	ClienteID     *uuid.UUID      `gorm:"type:uuid;index"`
	UsuarioID     uuid.UUID       `gorm:"type:uuid;not null;index"`
	SucursalID    *uuid.UUID      `gorm:"type:uuid;index"`
	Subtotal      decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Descuento     decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	TasaImpuesto  decimal.Decimal `gorm:"type:decimal(5,2);not null;default:0"`
	Impuestos     decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	Total         decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	MetodoPago    string          `gorm:"type:varchar(20);not null"`
	MontoPagado   decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	PagoPendiente decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	Estado        string          `gorm:"type:varchar(20);not null;index"`
	CreatedAt     time.Time       `gorm:"index"`
	UpdatedAt     time.Time

	Items []VentaItem `gorm:"foreignKey:VentaID"`
	Notas []VentaNota `gorm:"foreignKey:VentaID"`
}

func (v *Venta) BeforeCreate(_ *gorm.DB) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	return nil
}

var cien = decimal.NewFromInt(100)

// RecalcularTotales derives the header amounts from the current items:
// subtotal is the gross amount, descuento the sum of line discounts, and
// impuestos apply on the discounted base.
func (v *Venta) RecalcularTotales() {
	bruto := decimal.Zero
	descuento := decimal.Zero
	for i := range v.Items {
		it := &v.Items[i]
		it.RecalcularSubtotal()
		bruto = bruto.Add(it.Bruto())
		descuento = descuento.Add(it.Descuento)
	}
	v.Subtotal = bruto
	v.Descuento = descuento
	v.Impuestos = bruto.Sub(descuento).Mul(v.TasaImpuesto).Div(cien).Round(2)
	v.Total = bruto.Sub(descuento).Add(v.Impuestos)
	v.PagoPendiente = decimal.Max(v.Total.Sub(v.MontoPagado), decimal.Zero)
}

// ItemsDe returns every line that sells productoID, in line order. A product
// may appear on several lines of the same sale.
func (v *Venta) ItemsDe(productoID uuid.UUID) []*VentaItem {
	var out []*VentaItem
	for i := range v.Items {
		if v.Items[i].ProductoID == productoID {
			out = append(out, &v.Items[i])
		}
	}
	return out
}

// VentaItem is one line of a sale. CantidadStock is the quantity that left
// physical stock and may exceed Cantidad when a promotion hands out free units.
type VentaItem struct {
	ID               uuid.UUID       `gorm:"type:uuid;primaryKey"`
	VentaID          uuid.UUID       `gorm:"type:uuid;not null;index"`
	Orden            int             `gorm:"not null;default:0"`
	ProductoID       uuid.UUID       `gorm:"type:uuid;not null;index"`
	SucursalID       *uuid.UUID      `gorm:"type:uuid"`
	Cantidad         int             `gorm:"not null"`
	CantidadStock    int             `gorm:"not null"`
	CantidadDevuelta int             `gorm:"not null;default:0"`
	Devuelto         bool            `gorm:"not null;default:false"`
	PrecioUnitario   decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Descuento        decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	Subtotal         decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	TienePromocion   bool            `gorm:"not null;default:false"`

	PromocionesAplicadas []promocion.Aplicada `gorm:"type:text;serializer:json"`

	Producto *Producto `gorm:"foreignKey:ProductoID"`
}

func (it *VentaItem) BeforeCreate(_ *gorm.DB) error {
	if it.ID == uuid.Nil {
		it.ID = uuid.New()
	}
	return nil
}

// Bruto is precio × cantidad before discounts.
func (it VentaItem) Bruto() decimal.Decimal {
	return it.PrecioUnitario.Mul(decimal.NewFromInt(int64(it.Cantidad)))
}

func (it *VentaItem) RecalcularSubtotal() {
	it.Subtotal = it.Bruto().Sub(it.Descuento)
}

// EnStock is the quantity still out of stock on behalf of this line.
func (it VentaItem) EnStock() int { return it.CantidadStock - it.CantidadDevuelta }

// VentaNota is one append-only audit entry of a sale.
type VentaNota struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey"`
	VentaID   uuid.UUID  `gorm:"type:uuid;not null;index"`
	UsuarioID *uuid.UUID `gorm:"type:uuid"`
	Mensaje   string     `gorm:"type:text;not null"`
	CreatedAt time.Time
}

func (n *VentaNota) BeforeCreate(_ *gorm.DB) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return nil
}
