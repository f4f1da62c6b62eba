package dto

import "github.com/shopspring/decimal"

// ─── Request DTOs ────────────────────────────────────────────────────────────

type CrearProductoRequest struct {
	Codigo      string          `json:"codigo"       validate:"required,min=1,max=40"`
	Nombre      string          `json:"nombre"       validate:"required,min=2,max=120"`
	PrecioCosto decimal.Decimal `json:"precio_costo" validate:"min=0"`
	PrecioVenta decimal.Decimal `json:"precio_venta" validate:"gt=0"`
	CategoriaID *string         `json:"categoria_id" validate:"omitempty,uuid"`
	ProveedorID *string         `json:"proveedor_id" validate:"omitempty,uuid"`
	// StockInicial is loaded through the ledger as an "entrada" movement.
	StockInicial int     `json:"stock_inicial" validate:"min=0"`
	StockMinimo  int     `json:"stock_minimo"  validate:"min=0"`
	SucursalID   *string `json:"sucursal_id"   validate:"omitempty,uuid"`
}

// ─── Filter / Pagination ─────────────────────────────────────────────────────

type ProductoFilter struct {
	Nombre string `form:"nombre"`
	Codigo string `form:"codigo"`
	Activo string `form:"activo"` // true (default) | false | all
	Page   int    `form:"page,default=1"  validate:"min=1"`
	Limit  int    `form:"limit,default=20" validate:"min=1,max=100"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type ProductoResponse struct {
	ID          string          `json:"id"`
	Codigo      string          `json:"codigo"`
	Nombre      string          `json:"nombre"`
	PrecioCosto decimal.Decimal `json:"precio_costo"`
	PrecioVenta decimal.Decimal `json:"precio_venta"`
	CategoriaID *string         `json:"categoria_id"`
	ProveedorID *string         `json:"proveedor_id"`
	Activo      bool            `json:"activo"`
}

type ProductoListResponse struct {
	Data       []ProductoResponse `json:"data"`
	Total      int64              `json:"total"`
	Page       int                `json:"page"`
	Limit      int                `json:"limit"`
	TotalPages int                `json:"total_pages"`
}
