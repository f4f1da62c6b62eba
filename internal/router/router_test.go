package router

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"despensa/internal/apierror"
	"despensa/internal/config"
	"despensa/internal/dto"
	"despensa/internal/infra"
	"despensa/internal/model"
	"despensa/internal/repository"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "test_jwt_secret_32_chars_minimum!"

type app struct {
	r        *gin.Engine
	sucursal uuid.UUID
	admin    string
	cajero   string
}

func newTestCfg(t *testing.T) *config.Config {
	return &config.Config{
		Env:                 "test",
		CORSOrigins:         "*",
		JWTSecret:           testSecret,
		JWTExpirationHours:  8,
		RolesForzarEstado:   "administrador",
		OperacionTimeout:    5 * time.Second,
		PoliticaPromociones: "acumulable",
		PromocionesCacheTTL: time.Minute,
		PDFStoragePath:      t.TempDir(),
		NombreComercio:      "Despensa Test",
	}
}

func newApp(t *testing.T) *app {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db, err := infra.NewDatabase("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	a := &app{r: New(newTestCfg(t), db, nil, nil), sucursal: uuid.New()}
	usuarios := repository.NewUsuarioRepository(db)
	seedUser(t, usuarios, "admin", "admin1234", "administrador", nil)
	seedUser(t, usuarios, "cajero1", "cajero1234", "cajero", &a.sucursal)
	a.admin = a.login(t, "admin", "admin1234")
	a.cajero = a.login(t, "cajero1", "cajero1234")
	return a
}

func seedUser(t *testing.T, repo repository.UsuarioRepository, username, password, rol string, sucursal *uuid.UUID) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	require.NoError(t, repo.Create(context.Background(), &model.Usuario{
		Username: username, Nombre: "Test " + username, PasswordHash: string(hash),
		Rol: rol, SucursalID: sucursal, Activo: true,
	}))
}

func (a *app) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.r.ServeHTTP(w, req)
	return w
}

func (a *app) login(t *testing.T, username, password string) string {
	t.Helper()
	w := a.do(t, http.MethodPost, "/v1/auth/login", "", dto.LoginRequest{Username: username, Password: password})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp dto.LoginResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.AccessToken
}

func (a *app) producto(t *testing.T, codigo string, stock int) string {
	t.Helper()
	suc := a.sucursal.String()
	w := a.do(t, http.MethodPost, "/v1/productos", a.admin, map[string]any{
		"codigo": codigo, "nombre": "Producto " + codigo,
		"precio_costo": "4", "precio_venta": "10",
		"stock_inicial": stock, "sucursal_id": suc,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var p dto.ProductoResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &p))
	return p.ID
}

func ventaBody(lineas ...map[string]any) map[string]any {
	return map[string]any{"venta": map[string]any{"metodo_pago": "efectivo"}, "lineas": lineas}
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

// ── Público ───────────────────────────────────────────────────────────────────

func TestHealth_SinRedis(t *testing.T) {
	a := newApp(t)
	w := a.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"ok":true,"db":"connected","redis":"disabled"}`, w.Body.String())
}

func TestLogin(t *testing.T) {
	a := newApp(t)

	w := a.do(t, http.MethodPost, "/v1/auth/login", "", dto.LoginRequest{Username: "admin", Password: "incorrecta"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = a.do(t, http.MethodPost, "/v1/auth/login", "", dto.LoginRequest{Username: "admin", Password: "12"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = a.do(t, http.MethodGet, "/v1/auth/me", a.admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	me := decode[dto.UsuarioResponse](t, w)
	assert.True(t, me.PuedeForzarEstado)

	me = decode[dto.UsuarioResponse](t, a.do(t, http.MethodGet, "/v1/auth/me", a.cajero, nil))
	assert.False(t, me.PuedeForzarEstado)
	require.NotNil(t, me.SucursalID)
	assert.Equal(t, a.sucursal.String(), *me.SucursalID)
}

// ── Ventas ────────────────────────────────────────────────────────────────────

func TestVenta_CicloCompleto(t *testing.T) {
	a := newApp(t)
	pid := a.producto(t, "P1", 10)

	w := a.do(t, http.MethodPost, "/v1/ventas", a.cajero, ventaBody(map[string]any{"producto_id": pid, "cantidad": 4}))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	v := decode[dto.VentaResponse](t, w)
	assert.Equal(t, "40.00", v.Total.StringFixed(2))
	require.NotNil(t, v.SucursalID)
	assert.Equal(t, a.sucursal.String(), *v.SucursalID)

	w = a.do(t, http.MethodGet, "/v1/ventas/"+v.ID, a.cajero, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	// the cashier role cannot change state
	w = a.do(t, http.MethodPatch, "/v1/ventas/"+v.ID+"/estado", a.cajero, dto.CambiarEstadoRequest{Estado: model.EstadoCancelada})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = a.do(t, http.MethodPatch, "/v1/ventas/"+v.ID+"/estado", a.admin, dto.CambiarEstadoRequest{Estado: model.EstadoCancelada})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// cancelada → cancelada
	w = a.do(t, http.MethodPatch, "/v1/ventas/"+v.ID+"/estado", a.admin, dto.CambiarEstadoRequest{Estado: model.EstadoCancelada})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "transicion_invalida", decode[apierror.LineaError](t, w).Codigo)

	w = a.do(t, http.MethodGet, "/v1/inventario/stock?producto_id="+pid+"&sucursal_id="+a.sucursal.String(), a.admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 10, decode[dto.StockResponse](t, w).Cantidad)

	w = a.do(t, http.MethodGet, "/v1/inventario/conciliacion?producto_id="+pid+"&sucursal_id="+a.sucursal.String(), a.admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decode[dto.ConciliacionResponse](t, w).Consistente)
}

func TestVenta_StockInsuficienteApuntaLaLinea(t *testing.T) {
	a := newApp(t)
	p1 := a.producto(t, "P1", 10)
	p2 := a.producto(t, "P2", 1)

	w := a.do(t, http.MethodPost, "/v1/ventas", a.cajero, ventaBody(
		map[string]any{"producto_id": p1, "cantidad": 1},
		map[string]any{"producto_id": p2, "cantidad": 3},
	))
	require.Equal(t, http.StatusConflict, w.Code)
	e := decode[apierror.LineaError](t, w)
	assert.Equal(t, "stock_insuficiente", e.Codigo)
	assert.Equal(t, 2, e.Linea)
	require.NotNil(t, e.ProductoID)
	assert.Equal(t, p2, *e.ProductoID)
}

func TestVenta_Validacion(t *testing.T) {
	a := newApp(t)
	p1 := a.producto(t, "P1", 10)

	w := a.do(t, http.MethodPost, "/v1/ventas", a.cajero, ventaBody(map[string]any{"producto_id": p1, "cantidad": 0}))
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	ve := decode[apierror.ValidationError](t, w)
	assert.Contains(t, ve.Fields, "RegistrarVentaRequest.Lineas[0].Cantidad")

	w = a.do(t, http.MethodPost, "/v1/ventas", a.cajero, ventaBody())
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestVenta_NoEncontrada(t *testing.T) {
	a := newApp(t)
	assert.Equal(t, http.StatusNotFound, a.do(t, http.MethodGet, "/v1/ventas/"+uuid.NewString(), a.cajero, nil).Code)
	assert.Equal(t, http.StatusBadRequest, a.do(t, http.MethodGet, "/v1/ventas/no-es-uuid", a.cajero, nil).Code)
	assert.Equal(t, http.StatusUnauthorized, a.do(t, http.MethodGet, "/v1/ventas", "", nil).Code)
}

func TestVenta_FiltrosInvalidos(t *testing.T) {
	a := newApp(t)

	w := a.do(t, http.MethodGet, "/v1/ventas?fecha=15-10-2026", a.cajero, nil)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code, w.Body.String())
	assert.Equal(t, "datetime", decode[apierror.ValidationError](t, w).Fields["VentaFilter.Fecha"])

	w = a.do(t, http.MethodGet, "/v1/ventas?estado=archivada", a.cajero, nil)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code, w.Body.String())
	assert.Equal(t, "oneof", decode[apierror.ValidationError](t, w).Fields["VentaFilter.Estado"])

	w = a.do(t, http.MethodGet, "/v1/ventas?fecha=2026-10-15&estado=all", a.cajero, nil)
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestVenta_Ticket(t *testing.T) {
	a := newApp(t)
	p1 := a.producto(t, "P1", 10)
	v := decode[dto.VentaResponse](t, a.do(t, http.MethodPost, "/v1/ventas", a.cajero, ventaBody(map[string]any{"producto_id": p1, "cantidad": 1})))

	w := a.do(t, http.MethodGet, "/v1/ventas/"+v.ID+"/ticket", a.cajero, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "ticket_"+v.Numero)
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF")))
}

func TestVenta_DevolucionYQuitar(t *testing.T) {
	a := newApp(t)
	p1 := a.producto(t, "P1", 10)
	body := ventaBody(map[string]any{"producto_id": p1, "cantidad": 3})
	body["venta"].(map[string]any)["estado"] = model.EstadoCompletada
	v := decode[dto.VentaResponse](t, a.do(t, http.MethodPost, "/v1/ventas", a.cajero, body))

	dev := dto.DevolucionRequest{Lineas: []dto.LineaDevolucionRequest{{ProductoID: p1, Cantidad: 5}}}
	w := a.do(t, http.MethodPost, "/v1/ventas/"+v.ID+"/devoluciones", a.admin, dev)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "cantidad_devolucion_invalida", decode[apierror.LineaError](t, w).Codigo)

	dev.Lineas[0].Cantidad = 1
	w = a.do(t, http.MethodPost, "/v1/ventas/"+v.ID+"/devoluciones", a.admin, dev)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = a.do(t, http.MethodPost, "/v1/ventas/"+v.ID+"/quitar-productos", a.admin,
		dto.QuitarProductosRequest{Lineas: []dto.LineaQuitarRequest{{ProductoID: p1, Cantidad: 1}}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	q := decode[dto.QuitarProductosResponse](t, w)
	assert.Equal(t, "10.00", q.ValorQuitado.StringFixed(2))
}

// ── Catálogo / promociones ────────────────────────────────────────────────────

func TestProducto_CodigoDuplicado(t *testing.T) {
	a := newApp(t)
	a.producto(t, "P1", 0)
	w := a.do(t, http.MethodPost, "/v1/productos", a.admin, map[string]any{
		"codigo": "P1", "nombre": "Otro", "precio_venta": "3",
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = a.do(t, http.MethodPost, "/v1/productos", a.cajero, map[string]any{
		"codigo": "P2", "nombre": "Otro", "precio_venta": "3",
	})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestPromociones_EvaluarCarrito(t *testing.T) {
	a := newApp(t)
	p1 := a.producto(t, "P1", 0)

	w := a.do(t, http.MethodPost, "/v1/promociones", a.admin, map[string]any{
		"nombre": "Dos por uno", "tipo": "2x1", "valor": "0",
		"fecha_inicio": time.Now().Add(-time.Hour), "fecha_fin": time.Now().Add(time.Hour),
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = a.do(t, http.MethodPost, "/v1/promociones", a.admin, map[string]any{
		"nombre": "Sin parametros", "tipo": "nxm", "valor": "0",
		"fecha_inicio": time.Now().Add(-time.Hour), "fecha_fin": time.Now().Add(time.Hour),
	})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = a.do(t, http.MethodPost, "/v1/promociones/evaluar", a.cajero, dto.EvaluarCarritoRequest{
		Lineas: []dto.LineaCarritoRequest{{ProductoID: p1, Cantidad: 4}},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	ev := decode[dto.EvaluarCarritoResponse](t, w)
	assert.Equal(t, "20.00", ev.Total.StringFixed(2))
}
