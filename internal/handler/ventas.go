package handler

import (
	"net/http"
	"path/filepath"

	"despensa/internal/dto"
	"despensa/internal/service"

	"github.com/gin-gonic/gin"
)

type VentasHandler struct{ svc service.VentaService }

func NewVentasHandler(svc service.VentaService) *VentasHandler { return &VentasHandler{svc: svc} }

// RegistrarVenta godoc
// @Summary      Registrar una nueva venta
// @Description  Aplica promociones vigentes, descuenta stock por línea y sucursal, y registra los movimientos en una única transacción. Si una línea falla no se escribe nada.
// @Tags         ventas
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body body dto.RegistrarVentaRequest true "Cabecera y líneas de la venta"
// @Success      201  {object} dto.VentaResponse
// @Failure      404  {object} apierror.LineaError
// @Failure      409  {object} apierror.LineaError
// @Failure      422  {object} apierror.ValidationError
// @Router       /v1/ventas [post]
func (h *VentasHandler) RegistrarVenta(c *gin.Context) {
	var req dto.RegistrarVentaRequest
	if !bindAndValidate(c, &req) {
		return
	}
	a, ok := actor(c)
	if !ok {
		return
	}

	resp, err := h.svc.RegistrarVenta(c.Request.Context(), a, req)
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// CambiarEstado godoc
// @Summary      Cambiar estado de una venta
// @Description  pendiente → completada | cancelada, completada → devuelta. Cancelar o devolver restaura el stock. Usuarios con puede_forzar_estado pueden saltear la máquina de estados.
// @Tags         ventas
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id   path     string                   true "UUID de la venta"
// @Param        body body     dto.CambiarEstadoRequest true "Estado destino y motivo"
// @Success      200  {object} dto.VentaResponse
// @Failure      404  {object} apierror.LineaError
// @Failure      409  {object} apierror.LineaError
// @Router       /v1/ventas/{id}/estado [patch]
func (h *VentasHandler) CambiarEstado(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	var req dto.CambiarEstadoRequest
	if !bindAndValidate(c, &req) {
		return
	}
	a, ok := actor(c)
	if !ok {
		return
	}

	resp, err := h.svc.CambiarEstado(c.Request.Context(), a, id, req)
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// DevolverProductos godoc
// @Summary      Devolución parcial
// @Description  Solo para ventas completadas. Restaura al stock las cantidades devueltas; no cambia el estado de la venta.
// @Tags         ventas
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id   path     string                true "UUID de la venta"
// @Param        body body     dto.DevolucionRequest true "Productos y cantidades"
// @Success      200  {object} dto.VentaResponse
// @Failure      409  {object} apierror.LineaError
// @Failure      422  {object} apierror.LineaError
// @Router       /v1/ventas/{id}/devoluciones [post]
func (h *VentasHandler) DevolverProductos(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	var req dto.DevolucionRequest
	if !bindAndValidate(c, &req) {
		return
	}
	a, ok := actor(c)
	if !ok {
		return
	}

	resp, err := h.svc.DevolverProductos(c.Request.Context(), a, id, req)
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// QuitarProductos godoc
// @Summary      Quitar productos de una venta
// @Description  Reduce o elimina líneas de una venta editable, restaura el stock y recalcula totales.
// @Tags         ventas
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id   path     string                     true "UUID de la venta"
// @Param        body body     dto.QuitarProductosRequest true "Productos y cantidades a quitar"
// @Success      200  {object} dto.QuitarProductosResponse
// @Failure      409  {object} apierror.LineaError
// @Router       /v1/ventas/{id}/quitar-productos [post]
func (h *VentasHandler) QuitarProductos(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	var req dto.QuitarProductosRequest
	if !bindAndValidate(c, &req) {
		return
	}
	a, ok := actor(c)
	if !ok {
		return
	}

	resp, err := h.svc.QuitarProductos(c.Request.Context(), a, id, req)
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ActualizarVenta godoc
// @Summary      Reemplazar las líneas de una venta
// @Description  Restaura el stock de todas las líneas actuales y descuenta el de las nuevas en la misma transacción.
// @Tags         ventas
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id   path     string                     true "UUID de la venta"
// @Param        body body     dto.ActualizarVentaRequest true "Nueva cabecera y líneas"
// @Success      200  {object} dto.ActualizarVentaResponse
// @Failure      409  {object} apierror.LineaError
// @Router       /v1/ventas/{id} [put]
func (h *VentasHandler) ActualizarVenta(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	var req dto.ActualizarVentaRequest
	if !bindAndValidate(c, &req) {
		return
	}
	a, ok := actor(c)
	if !ok {
		return
	}

	resp, err := h.svc.ActualizarVenta(c.Request.Context(), a, id, req)
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ObtenerVenta godoc
// @Summary      Obtener venta
// @Tags         ventas
// @Produce      json
// @Security     BearerAuth
// @Param        id  path     string true "UUID de la venta"
// @Success      200 {object} dto.VentaResponse
// @Failure      404 {object} apierror.LineaError
// @Router       /v1/ventas/{id} [get]
func (h *VentasHandler) ObtenerVenta(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	resp, err := h.svc.ObtenerVenta(c.Request.Context(), id)
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ListarVentas godoc
// @Summary      Listar ventas
// @Description  Retorna lista paginada de ventas filtrada por fecha, estado y sucursal.
// @Tags         ventas
// @Produce      json
// @Security     BearerAuth
// @Param        fecha       query string false "Fecha YYYY-MM-DD"
// @Param        estado      query string false "pendiente | completada | cancelada | devuelta | all"
// @Param        sucursal_id query string false "UUID de sucursal"
// @Param        page        query int    false "Página (default 1)"
// @Param        limit       query int    false "Registros por página (default 50)"
// @Success      200    {object} dto.VentaListResponse
// @Failure      400    {object} apierror.APIError
// @Router       /v1/ventas [get]
func (h *VentasHandler) ListarVentas(c *gin.Context) {
	var filter dto.VentaFilter
	if !bindQuery(c, &filter) {
		return
	}
	resp, err := h.svc.ListarVentas(c.Request.Context(), filter)
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// TicketPDF godoc
// @Summary      Ticket PDF de la venta
// @Tags         ventas
// @Produce      application/pdf
// @Security     BearerAuth
// @Param        id  path string true "UUID de la venta"
// @Success      200 {file} binary
// @Failure      404 {object} apierror.LineaError
// @Router       /v1/ventas/{id}/ticket [get]
func (h *VentasHandler) TicketPDF(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	path, err := h.svc.TicketPDF(c.Request.Context(), id)
	if err != nil {
		responderError(c, err)
		return
	}
	c.FileAttachment(path, filepath.Base(path))
}
