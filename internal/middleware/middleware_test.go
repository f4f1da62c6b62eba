package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test_jwt_secret_32_chars_minimum!"

func signToken(t *testing.T, rol string, dur time.Duration) string {
	t.Helper()
	claims := jwt.MapClaims{
		"user_id": "3f1c1f6e-8c0b-4a47-9d0e-9a9f3e1b2c3d", "username": "testuser", "rol": rol,
		"puede_forzar_estado": rol == "administrador",
		"exp":                 time.Now().Add(dur).Unix(), "iat": time.Now().Unix(),
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return s
}

func ginTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID(), ErrorHandler())
	auth := r.Group("", JWTAuth(testSecret))
	auth.GET("/protected", func(c *gin.Context) {
		claims := GetClaims(c)
		c.JSON(http.StatusOK, gin.H{"rol": claims.Rol, "forzar": claims.PuedeForzarEstado})
	})
	auth.GET("/admin", RequireRole("administrador"), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	r.GET("/falla", func(c *gin.Context) { _ = c.Error(errors.New("pg: connection reset")) })
	r.GET("/lenta", func(c *gin.Context) { _ = c.Error(context.DeadlineExceeded) })
	return r
}

func do(r http.Handler, method, path, token string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	r.ServeHTTP(w, req)
	return w
}

// ── JWTAuth / RequireRole ─────────────────────────────────────────────────────

func TestJWTAuth_SinToken(t *testing.T) {
	w := do(ginTestRouter(), http.MethodGet, "/protected", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestJWTAuth_TokenExpirado(t *testing.T) {
	w := do(ginTestRouter(), http.MethodGet, "/protected", signToken(t, "cajero", -time.Hour))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestJWTAuth_FirmaInvalida(t *testing.T) {
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"rol": "administrador", "exp": time.Now().Add(time.Hour).Unix()})
	s, err := tok.SignedString([]byte("otro_secreto"))
	require.NoError(t, err)
	w := do(ginTestRouter(), http.MethodGet, "/protected", s)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestJWTAuth_ClaimsEnContexto(t *testing.T) {
	w := do(ginTestRouter(), http.MethodGet, "/protected", signToken(t, "administrador", time.Hour))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"rol":"administrador","forzar":true}`, w.Body.String())
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))
}

func TestRequireRole(t *testing.T) {
	r := ginTestRouter()
	assert.Equal(t, http.StatusForbidden, do(r, http.MethodGet, "/admin", signToken(t, "cajero", time.Hour)).Code)
	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/admin", signToken(t, "administrador", time.Hour)).Code)
}

// ── ErrorHandler ──────────────────────────────────────────────────────────────

func TestErrorHandler_NoExponeDetalle(t *testing.T) {
	w := do(ginTestRouter(), http.MethodGet, "/falla", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "pg:")
}

func TestErrorHandler_Timeout(t *testing.T) {
	w := do(ginTestRouter(), http.MethodGet, "/lenta", "")
	assert.Equal(t, http.StatusGatewayTimeout, w.Code)
}

// ── RequestID / CORS ──────────────────────────────────────────────────────────

func TestRequestID_RespetaEncabezado(t *testing.T) {
	r := ginTestRouter()
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set(RequestIDHeader, "caja-7-000123")
	r.ServeHTTP(w, req)
	assert.Equal(t, "caja-7-000123", w.Header().Get(RequestIDHeader))
}

func TestCORS(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(CORS("https://caja.despensa.local"))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	preflight := func(origen string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodOptions, "/x", nil)
		req.Header.Set("Origin", origen)
		r.ServeHTTP(w, req)
		return w
	}

	w := preflight("https://caja.despensa.local")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://caja.despensa.local", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "PATCH")

	assert.Equal(t, http.StatusForbidden, preflight("https://otro.example").Code)
}

// ── RateLimiter ───────────────────────────────────────────────────────────────

func TestRateLimiter_MemoriaLocal(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RateLimiter(nil, 2, time.Minute))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/x", "").Code)
	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/x", "").Code)
	assert.Equal(t, http.StatusTooManyRequests, do(r, http.MethodGet, "/x", "").Code)
}
