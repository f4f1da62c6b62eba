package handler

import (
	"net/http"

	"despensa/internal/apierror"
	"despensa/internal/dto"
	"despensa/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type InventarioHandler struct{ svc service.InventarioService }

func NewInventarioHandler(svc service.InventarioService) *InventarioHandler {
	return &InventarioHandler{svc: svc}
}

// RegistrarAjuste godoc
// @Summary      Ajuste manual de stock
// @Description  Entrada por compra o corrección de auditoría. Siempre genera un movimiento.
// @Tags         inventario
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body body dto.AjusteStockRequest true "Ajuste"
// @Success      201  {object} dto.MovimientoStockResponse
// @Failure      409  {object} apierror.LineaError
// @Router       /v1/inventario/ajustes [post]
func (h *InventarioHandler) RegistrarAjuste(c *gin.Context) {
	var req dto.AjusteStockRequest
	if !bindAndValidate(c, &req) {
		return
	}
	a, ok := actor(c)
	if !ok {
		return
	}
	resp, err := h.svc.RegistrarAjuste(c.Request.Context(), a.UsuarioID, req)
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// ObtenerStock godoc
// @Summary      Stock actual
// @Tags         inventario
// @Produce      json
// @Security     BearerAuth
// @Param        producto_id query string true  "UUID del producto"
// @Param        sucursal_id query string false "UUID de sucursal (vacío = global)"
// @Success      200 {object} dto.StockResponse
// @Router       /v1/inventario/stock [get]
func (h *InventarioHandler) ObtenerStock(c *gin.Context) {
	var q dto.StockQuery
	if !bindQuery(c, &q) {
		return
	}
	resp, err := h.svc.ObtenerStock(c.Request.Context(), q)
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ListarMovimientos godoc
// @Summary      Historial de movimientos
// @Tags         inventario
// @Produce      json
// @Security     BearerAuth
// @Param        producto_id   query string false "UUID del producto"
// @Param        sucursal_id   query string false "UUID de sucursal"
// @Param        referencia_id query string false "UUID del documento (venta, compra)"
// @Param        tipo          query string false "entrada | salida"
// @Success      200 {object} dto.MovimientoListResponse
// @Router       /v1/inventario/movimientos [get]
func (h *InventarioHandler) ListarMovimientos(c *gin.Context) {
	var f dto.MovimientoFilter
	if !bindQuery(c, &f) {
		return
	}
	resp, err := h.svc.ListarMovimientos(c.Request.Context(), f)
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ObtenerAlertas godoc
// @Summary      Productos bajo el mínimo
// @Tags         inventario
// @Produce      json
// @Security     BearerAuth
// @Param        sucursal_id query string false "UUID de sucursal"
// @Success      200 {array} dto.AlertaStockResponse
// @Router       /v1/inventario/alertas [get]
func (h *InventarioHandler) ObtenerAlertas(c *gin.Context) {
	var sucursalID *uuid.UUID
	if raw := c.Query("sucursal_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, apierror.New("sucursal_id invalido"))
			return
		}
		sucursalID = &id
	}
	resp, err := h.svc.ObtenerAlertas(c.Request.Context(), sucursalID)
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Conciliar godoc
// @Summary      Conciliación de stock
// @Description  Compara la cantidad actual con la suma de movimientos firmados.
// @Tags         inventario
// @Produce      json
// @Security     BearerAuth
// @Param        producto_id query string true  "UUID del producto"
// @Param        sucursal_id query string false "UUID de sucursal"
// @Success      200 {object} dto.ConciliacionResponse
// @Router       /v1/inventario/conciliacion [get]
func (h *InventarioHandler) Conciliar(c *gin.Context) {
	var q dto.StockQuery
	if !bindQuery(c, &q) {
		return
	}
	resp, err := h.svc.Conciliar(c.Request.Context(), q)
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
