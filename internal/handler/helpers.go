package handler

import (
	"errors"
	"net/http"
	"reflect"

	"despensa/internal/apierror"
	"despensa/internal/middleware"
	"despensa/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var validate = validator.New()

func init() {
	// Register decimal.Decimal as a numeric type so that validator tags like
	// min=0, gt=0, required work without panicking ("Bad field type decimal.Decimal").
	validate.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if v, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := v.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
}

// bindAndValidate binds JSON body and runs go-playground/validator tags.
// Returns false and writes the error response if validation fails;
// the caller should return immediately without writing another response.
func bindAndValidate(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("JSON invalido: "+err.Error()))
		return false
	}
	return validar(c, req)
}

// bindQuery is bindAndValidate for query-string filters.
func bindQuery(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindQuery(req); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("Parametros invalidos: "+err.Error()))
		return false
	}
	return validar(c, req)
}

func validar(c *gin.Context, req interface{}) bool {
	if err := validate.Struct(req); err != nil {
		var ve validator.ValidationErrors
		if !errors.As(err, &ve) {
			c.JSON(http.StatusBadRequest, apierror.New(err.Error()))
			return false
		}
		fields := make(map[string]string)
		for _, fe := range ve {
			fields[fe.Namespace()] = fe.Tag()
		}
		c.JSON(http.StatusUnprocessableEntity, apierror.NewValidation(fields))
		return false
	}
	return true
}

func paramID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("ID invalido"))
		return uuid.Nil, false
	}
	return id, true
}

// actor builds the service principal from the JWT claims.
func actor(c *gin.Context) (service.Actor, bool) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, apierror.New("Autenticacion requerida"))
		return service.Actor{}, false
	}
	uid, err := uuid.Parse(claims.UserID)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, apierror.New("Token mal formado"))
		return service.Actor{}, false
	}
	a := service.Actor{UsuarioID: uid, Username: claims.Username, PuedeForzarEstado: claims.PuedeForzarEstado}
	if claims.SucursalID != nil && *claims.SucursalID != "" {
		if sid, err := uuid.Parse(*claims.SucursalID); err == nil {
			a.SucursalID = &sid
		}
	}
	return a, true
}

// ── domain error → HTTP ───────────────────────────────────────────────────────

var erroresHTTP = []struct {
	err    error
	status int
	codigo string
}{
	{service.ErrProductoNoEncontrado, http.StatusNotFound, "producto_no_encontrado"},
	{service.ErrVentaNoEncontrada, http.StatusNotFound, "venta_no_encontrada"},
	{service.ErrPromocionNoEncontrada, http.StatusNotFound, "promocion_no_encontrada"},
	{service.ErrStockInsuficiente, http.StatusConflict, "stock_insuficiente"},
	{service.ErrTransicionInvalida, http.StatusConflict, "transicion_invalida"},
	{service.ErrVentaNoEditable, http.StatusConflict, "venta_no_editable"},
	{service.ErrCodigoDuplicado, http.StatusConflict, "codigo_duplicado"},
	{service.ErrCantidadDevolucionInvalida, http.StatusUnprocessableEntity, "cantidad_devolucion_invalida"},
	{service.ErrProductoNoEnVenta, http.StatusUnprocessableEntity, "producto_no_en_venta"},
	{service.ErrDescuentoInvalido, http.StatusUnprocessableEntity, "descuento_invalido"},
	{service.ErrPromocionInvalida, http.StatusUnprocessableEntity, "promocion_invalida"},
	{service.ErrCredencialesInvalidas, http.StatusUnauthorized, "credenciales_invalidas"},
	{service.ErrTransaccionFallida, http.StatusInternalServerError, "transaccion_fallida"},
}

// responderError writes the envelope for err. Unknown errors are handed to
// middleware.ErrorHandler, which logs them and answers a generic 500.
func responderError(c *gin.Context, err error) {
	for _, e := range erroresHTTP {
		if !errors.Is(err, e.err) {
			continue
		}
		var de *service.DomainError
		if errors.As(err, &de) {
			var pid *string
			if de.ProductoID != nil {
				s := de.ProductoID.String()
				pid = &s
			}
			c.JSON(e.status, apierror.NewLinea(e.codigo, de.Error(), de.Linea, pid))
			return
		}
		c.JSON(e.status, apierror.NewLinea(e.codigo, err.Error(), 0, nil))
		return
	}
	_ = c.Error(err)
}
