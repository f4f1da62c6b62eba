package dto

import (
	"encoding/json"
	"time"

	"despensa/internal/promocion"

	"github.com/shopspring/decimal"
)

// CondicionesRequest is the typed form of the stored condiciones JSON.
type CondicionesRequest struct {
	MinCantidad *int             `json:"min_cantidad,omitempty" validate:"omitempty,min=1"`
	MinMonto    *decimal.Decimal `json:"min_monto,omitempty"`
	N           *int             `json:"n,omitempty" validate:"omitempty,min=2"`
	X           *int             `json:"x,omitempty" validate:"omitempty,min=1"`
	Y           *int             `json:"y,omitempty" validate:"omitempty,min=1"`
}

type CrearPromocionRequest struct {
	Nombre      string              `json:"nombre"       validate:"required,min=2,max=120"`
	Tipo        string              `json:"tipo"         validate:"required,oneof=porcentaje monto_fijo 2x1 nx1 nxm"`
	Valor       decimal.Decimal     `json:"valor"        validate:"min=0"`
	FechaInicio time.Time           `json:"fecha_inicio" validate:"required"`
	FechaFin    time.Time           `json:"fecha_fin"    validate:"required,gtfield=FechaInicio"`
	Prioridad   int                 `json:"prioridad"`
	Condiciones *CondicionesRequest `json:"condiciones"`
	ProductoIDs []string            `json:"producto_ids" validate:"omitempty,dive,uuid"`
}

type CambiarActivoRequest struct {
	Activo *bool `json:"activo" validate:"required"`
}

type PromocionResponse struct {
	ID          string          `json:"id"`
	Nombre      string          `json:"nombre"`
	Tipo        string          `json:"tipo"`
	Valor       decimal.Decimal `json:"valor"`
	FechaInicio time.Time       `json:"fecha_inicio"`
	FechaFin    time.Time       `json:"fecha_fin"`
	Activo      bool            `json:"activo"`
	Prioridad   int             `json:"prioridad"`
	Condiciones json.RawMessage `json:"condiciones"`
	ProductoIDs []string        `json:"producto_ids"`
}

// ─── Evaluación de carrito (vista previa) ───────────────────────────────────

type LineaCarritoRequest struct {
	ProductoID     string           `json:"producto_id" validate:"required,uuid"`
	Cantidad       int              `json:"cantidad"    validate:"required,min=1"`
	PrecioUnitario *decimal.Decimal `json:"precio_unitario"`
}

type EvaluarCarritoRequest struct {
	Lineas []LineaCarritoRequest `json:"lineas" validate:"required,min=1,dive"`
}

type LineaEvaluadaResponse struct {
	ProductoID     string               `json:"producto_id"`
	Cantidad       int                  `json:"cantidad"`
	CantidadStock  int                  `json:"cantidad_stock"`
	PrecioUnitario decimal.Decimal      `json:"precio_unitario"`
	Descuento      decimal.Decimal      `json:"descuento"`
	Subtotal       decimal.Decimal      `json:"subtotal"`
	TienePromocion bool                 `json:"tiene_promocion"`
	Promociones    []promocion.Aplicada `json:"promociones"`
}

type EvaluarCarritoResponse struct {
	Politica  string                  `json:"politica"`
	Lineas    []LineaEvaluadaResponse `json:"lineas"`
	Subtotal  decimal.Decimal         `json:"subtotal"`
	Descuento decimal.Decimal         `json:"descuento"`
	Total     decimal.Decimal         `json:"total"`
}
