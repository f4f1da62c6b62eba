package handler

import (
	"net/http"

	"despensa/internal/dto"
	"despensa/internal/service"

	"github.com/gin-gonic/gin"
)

type PromocionesHandler struct{ svc service.PromocionService }

func NewPromocionesHandler(svc service.PromocionService) *PromocionesHandler {
	return &PromocionesHandler{svc: svc}
}

// Crear godoc
// @Summary      Crear promoción
// @Description  Tipos: porcentaje, monto_fijo, 2x1, nx1 (condiciones.n), nxm (condiciones.x / condiciones.y).
// @Tags         promociones
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body body dto.CrearPromocionRequest true "Promoción"
// @Success      201  {object} dto.PromocionResponse
// @Failure      422  {object} apierror.LineaError
// @Router       /v1/promociones [post]
func (h *PromocionesHandler) Crear(c *gin.Context) {
	var req dto.CrearPromocionRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Crear(c.Request.Context(), req)
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// Listar godoc
// @Summary      Listar promociones
// @Tags         promociones
// @Produce      json
// @Security     BearerAuth
// @Success      200 {array} dto.PromocionResponse
// @Router       /v1/promociones [get]
func (h *PromocionesHandler) Listar(c *gin.Context) {
	resp, err := h.svc.Listar(c.Request.Context())
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// CambiarActivo godoc
// @Summary      Activar o desactivar promoción
// @Tags         promociones
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id   path string                   true "UUID de la promoción"
// @Param        body body dto.CambiarActivoRequest true "Activo"
// @Success      200  {object} dto.PromocionResponse
// @Failure      404  {object} apierror.LineaError
// @Router       /v1/promociones/{id}/activo [patch]
func (h *PromocionesHandler) CambiarActivo(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	var req dto.CambiarActivoRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.CambiarActivo(c.Request.Context(), id, *req.Activo)
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Evaluar godoc
// @Summary      Previsualizar promociones de un carrito
// @Description  No descuenta stock ni persiste nada.
// @Tags         promociones
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body body dto.EvaluarCarritoRequest true "Carrito"
// @Success      200  {object} dto.EvaluarCarritoResponse
// @Router       /v1/promociones/evaluar [post]
func (h *PromocionesHandler) Evaluar(c *gin.Context) {
	var req dto.EvaluarCarritoRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Evaluar(c.Request.Context(), req)
	if err != nil {
		responderError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
