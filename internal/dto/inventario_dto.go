package dto

type AjusteStockRequest struct {
	ProductoID string  `json:"producto_id" validate:"required,uuid"`
	SucursalID *string `json:"sucursal_id" validate:"omitempty,uuid"`
	Tipo       string  `json:"tipo"        validate:"required,oneof=entrada salida"`
	Cantidad   int     `json:"cantidad"    validate:"required,min=1"`
	Motivo     string  `json:"motivo"      validate:"required,min=3,max=255"`
	// ReferenciaTipo: compra | ajuste (default ajuste)
	ReferenciaTipo string  `json:"referencia_tipo" validate:"omitempty,oneof=compra ajuste"`
	ReferenciaID   *string `json:"referencia_id"   validate:"omitempty,uuid"`
	CantidadMinima *int    `json:"cantidad_minima" validate:"omitempty,min=0"`
}

// StockQuery is bound from the query string of the ledger read endpoints.
type StockQuery struct {
	ProductoID string `form:"producto_id" validate:"required,uuid"`
	SucursalID string `form:"sucursal_id" validate:"omitempty,uuid"`
}

type MovimientoFilter struct {
	ProductoID   string `form:"producto_id"   validate:"omitempty,uuid"`
	SucursalID   string `form:"sucursal_id"   validate:"omitempty,uuid"`
	ReferenciaID string `form:"referencia_id" validate:"omitempty,uuid"`
	Tipo         string `form:"tipo"          validate:"omitempty,oneof=entrada salida"`
	Page         int    `form:"page,default=1"    validate:"min=1"`
	Limit        int    `form:"limit,default=100" validate:"min=1,max=500"`
}

type StockResponse struct {
	ProductoID     string  `json:"producto_id"`
	SucursalID     *string `json:"sucursal_id"`
	Cantidad       int     `json:"cantidad"`
	CantidadMinima int     `json:"cantidad_minima"`
}

type MovimientoStockResponse struct {
	ID             string  `json:"id"`
	ProductoID     string  `json:"producto_id"`
	Producto       string  `json:"producto"`
	SucursalID     *string `json:"sucursal_id"`
	Tipo           string  `json:"tipo"`
	Cantidad       int     `json:"cantidad"`
	StockAnterior  int     `json:"stock_anterior"`
	StockNuevo     int     `json:"stock_nuevo"`
	Motivo         string  `json:"motivo"`
	ReferenciaID   *string `json:"referencia_id"`
	ReferenciaTipo string  `json:"referencia_tipo"`
	UsuarioID      *string `json:"usuario_id"`
	CreatedAt      string  `json:"created_at"`
}

type MovimientoListResponse struct {
	Data  []MovimientoStockResponse `json:"data"`
	Total int64                     `json:"total"`
	Page  int                       `json:"page"`
	Limit int                       `json:"limit"`
}

type AlertaStockResponse struct {
	ProductoID     string  `json:"producto_id"`
	Nombre         string  `json:"nombre"`
	SucursalID     *string `json:"sucursal_id"`
	Cantidad       int     `json:"cantidad"`
	CantidadMinima int     `json:"cantidad_minima"`
}

// ConciliacionResponse compares the stock row with the sum of its movements.
type ConciliacionResponse struct {
	ProductoID      string  `json:"producto_id"`
	SucursalID      *string `json:"sucursal_id"`
	Cantidad        int     `json:"cantidad"`
	SumaMovimientos int     `json:"suma_movimientos"`
	Diferencia      int     `json:"diferencia"`
	Consistente     bool    `json:"consistente"`
}
