package handler

import (
	"errors"
	"net/http"

	"despensa/internal/apierror"
	"despensa/internal/dto"
	"despensa/internal/middleware"
	"despensa/internal/service"

	"github.com/gin-gonic/gin"
)

type AuthHandler struct{ svc service.AuthService }

func NewAuthHandler(svc service.AuthService) *AuthHandler { return &AuthHandler{svc: svc} }

// Login godoc
// @Summary Login de usuario
// @Description Devuelve un JWT con rol, sucursal y la capacidad puede_forzar_estado.
// @Tags auth
// @Accept json
// @Produce json
// @Param body body dto.LoginRequest true "Credenciales"
// @Success 200 {object} dto.LoginResponse
// @Failure 401 {object} apierror.APIError
// @Router /v1/auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if !bindAndValidate(c, &req) {
		return
	}

	resp, err := h.svc.Login(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, service.ErrCredencialesInvalidas) {
			c.JSON(http.StatusUnauthorized, apierror.New("Credenciales invalidas"))
			return
		}
		responderError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Me godoc
// @Summary Usuario autenticado
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.UsuarioResponse
// @Router /v1/auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, apierror.New("Autenticacion requerida"))
		return
	}
	c.JSON(http.StatusOK, dto.UsuarioResponse{
		ID:                claims.UserID,
		Username:          claims.Username,
		Rol:               claims.Rol,
		SucursalID:        claims.SucursalID,
		PuedeForzarEstado: claims.PuedeForzarEstado,
	})
}
