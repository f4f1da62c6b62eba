package dto

import (
	"despensa/internal/promocion"

	"github.com/shopspring/decimal"
)

// ─── Filter / List ──────────────────────────────────────────────────────────

// VentaFilter is bound from query string of GET /v1/ventas.
type VentaFilter struct {
	Fecha      string `form:"fecha"  validate:"omitempty,datetime=2006-01-02"` // empty = any day
	Estado     string `form:"estado" validate:"omitempty,oneof=pendiente completada cancelada devuelta all"`
	SucursalID string `form:"sucursal_id" validate:"omitempty,uuid"`
	Page       int    `form:"page,default=1"   validate:"min=1"`
	Limit      int    `form:"limit,default=50" validate:"min=1,max=200"`
}

type VentaListResponse struct {
	Data  []VentaResponse `json:"data"`
	Total int64           `json:"total"`
	Page  int             `json:"page"`
	Limit int             `json:"limit"`
}

// ─── Request DTOs ────────────────────────────────────────────────────────────

type LineaVentaRequest struct {
	ProductoID string `json:"producto_id" validate:"required,uuid"`
	Cantidad   int    `json:"cantidad"    validate:"required,min=1"`
	// PrecioUnitario defaults to the product's current sale price.
	PrecioUnitario *decimal.Decimal `json:"precio_unitario"`
	Descuento      decimal.Decimal  `json:"descuento"   validate:"min=0"`
	SucursalID     *string          `json:"sucursal_id" validate:"omitempty,uuid"`
}

type CabeceraVentaRequest struct {
	ClienteID  *string `json:"cliente_id"  validate:"omitempty,uuid"`
	SucursalID *string `json:"sucursal_id" validate:"omitempty,uuid"`
	MetodoPago string  `json:"metodo_pago" validate:"required,oneof=efectivo debito credito transferencia cuenta_corriente"`
	// MontoPagado nil means the sale is paid in full.
	MontoPagado  *decimal.Decimal `json:"monto_pagado"`
	TasaImpuesto *decimal.Decimal `json:"tasa_impuesto"`
	Estado       string           `json:"estado" validate:"omitempty,oneof=pendiente completada"`
}

type RegistrarVentaRequest struct {
	Venta  CabeceraVentaRequest `json:"venta"`
	Lineas []LineaVentaRequest  `json:"lineas" validate:"required,min=1,dive"`
}

// ActualizarVentaRequest replaces every line of an editable sale.
type ActualizarVentaRequest = RegistrarVentaRequest

type CambiarEstadoRequest struct {
	Estado string `json:"estado" validate:"required,oneof=pendiente completada cancelada devuelta"`
	Motivo string `json:"motivo" validate:"max=500"`
}

type LineaDevolucionRequest struct {
	ProductoID string `json:"producto_id" validate:"required,uuid"`
	Cantidad   int    `json:"cantidad"    validate:"required,min=1"`
}

type DevolucionRequest struct {
	Lineas []LineaDevolucionRequest `json:"lineas" validate:"required,min=1,dive"`
	Motivo string                   `json:"motivo" validate:"max=500"`
}

type LineaQuitarRequest struct {
	ProductoID string  `json:"producto_id" validate:"required,uuid"`
	Cantidad   int     `json:"cantidad"    validate:"required,min=1"`
	SucursalID *string `json:"sucursal_id" validate:"omitempty,uuid"`
}

type QuitarProductosRequest struct {
	Lineas []LineaQuitarRequest `json:"lineas" validate:"required,min=1,dive"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type ItemVentaResponse struct {
	ID               string               `json:"id"`
	ProductoID       string               `json:"producto_id"`
	Producto         string               `json:"producto"`
	SucursalID       *string              `json:"sucursal_id"`
	Cantidad         int                  `json:"cantidad"`
	CantidadStock    int                  `json:"cantidad_stock"`
	CantidadDevuelta int                  `json:"cantidad_devuelta"`
	Devuelto         bool                 `json:"devuelto"`
	PrecioUnitario   decimal.Decimal      `json:"precio_unitario"`
	Descuento        decimal.Decimal      `json:"descuento"`
	Subtotal         decimal.Decimal      `json:"subtotal"`
	TienePromocion   bool                 `json:"tiene_promocion"`
	Promociones      []promocion.Aplicada `json:"promociones"`
}

type NotaVentaResponse struct {
	Fecha     string  `json:"fecha"`
	UsuarioID *string `json:"usuario_id"`
	Mensaje   string  `json:"mensaje"`
}

type VentaResponse struct {
	ID            string              `json:"id"`
	Numero        string              `json:"numero"`
	ClienteID     *string             `json:"cliente_id"`
	UsuarioID     string              `json:"usuario_id"`
	SucursalID    *string             `json:"sucursal_id"`
	Subtotal      decimal.Decimal     `json:"subtotal"`
	Descuento     decimal.Decimal     `json:"descuento"`
	TasaImpuesto  decimal.Decimal     `json:"tasa_impuesto"`
	Impuestos     decimal.Decimal     `json:"impuestos"`
	Total         decimal.Decimal     `json:"total"`
	MetodoPago    string              `json:"metodo_pago"`
	MontoPagado   decimal.Decimal     `json:"monto_pagado"`
	PagoPendiente decimal.Decimal     `json:"pago_pendiente"`
	Estado        string              `json:"estado"`
	Items         []ItemVentaResponse `json:"items"`
	Notas         []NotaVentaResponse `json:"notas"`
	CreatedAt     string              `json:"created_at"`
}

type QuitarProductosResponse struct {
	ValorQuitado   decimal.Decimal `json:"valor_quitado"`
	NuevoTotal     decimal.Decimal `json:"nuevo_total"`
	LineasQuitadas int             `json:"lineas_quitadas"`
}

type ActualizarVentaResponse struct {
	NuevoTotal         decimal.Decimal `json:"nuevo_total"`
	LineasActualizadas int             `json:"lineas_actualizadas"`
}
