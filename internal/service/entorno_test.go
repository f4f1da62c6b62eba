package service

import (
	"context"
	"testing"
	"time"

	"despensa/internal/dto"
	"despensa/internal/infra"
	"despensa/internal/promocion"
	"despensa/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// entorno wires the real services over a private in-memory SQLite database.
type entorno struct {
	db          *gorm.DB
	inventario  InventarioService
	productos   ProductoService
	promociones PromocionService
	ventas      VentaService
	sucursal    uuid.UUID
	cajero      Actor
	supervisor  Actor
}

func nuevoEntorno(t *testing.T, politica promocion.Politica) *entorno {
	t.Helper()
	db, err := infra.NewDatabase("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	productoRepo := repository.NewProductoRepository(db)
	stockRepo := repository.NewStockRepository(db)
	inventario := NewInventarioService(stockRepo, repository.NewMovimientoStockRepository(db), productoRepo, 5*time.Second)
	promociones := NewPromocionService(repository.NewPromocionRepository(db), productoRepo, nil, time.Minute, politica)

	sucursal := uuid.New()
	return &entorno{
		db:          db,
		inventario:  inventario,
		productos:   NewProductoService(productoRepo, stockRepo, inventario, 5*time.Second),
		promociones: promociones,
		ventas: NewVentaService(repository.NewVentaRepository(db), productoRepo, inventario, promociones, nil, VentaOpciones{
			Timeout:        5 * time.Second,
			PDFStoragePath: t.TempDir(),
			NombreComercio: "Despensa Test",
		}),
		sucursal:   sucursal,
		cajero:     Actor{UsuarioID: uuid.New(), Username: "cajero", SucursalID: &sucursal},
		supervisor: Actor{UsuarioID: uuid.New(), Username: "super", SucursalID: &sucursal, PuedeForzarEstado: true},
	}
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func strPtr(s string) *string { return &s }

// producto creates an active product with stock at the test branch.
func (e *entorno) producto(t *testing.T, codigo, precio string, stock, minimo int) uuid.UUID {
	t.Helper()
	p, err := e.productos.Crear(context.Background(), e.supervisor.UsuarioID, dto.CrearProductoRequest{
		Codigo:       codigo,
		Nombre:       "Producto " + codigo,
		PrecioCosto:  dec("1"),
		PrecioVenta:  dec(precio),
		StockInicial: stock,
		StockMinimo:  minimo,
		SucursalID:   strPtr(e.sucursal.String()),
	})
	require.NoError(t, err)
	return uuid.MustParse(p.ID)
}

func (e *entorno) promocion(t *testing.T, tipo, valor string, cond *dto.CondicionesRequest, productos ...uuid.UUID) {
	t.Helper()
	req := dto.CrearPromocionRequest{
		Nombre:      "Promo " + tipo,
		Tipo:        tipo,
		Valor:       dec(valor),
		FechaInicio: time.Now().Add(-time.Hour),
		FechaFin:    time.Now().Add(24 * time.Hour),
		Condiciones: cond,
	}
	for _, id := range productos {
		req.ProductoIDs = append(req.ProductoIDs, id.String())
	}
	_, err := e.promociones.Crear(context.Background(), req)
	require.NoError(t, err)
}

func (e *entorno) stock(t *testing.T, productoID uuid.UUID) int {
	t.Helper()
	n, err := e.inventario.CantidadActual(context.Background(), productoID, &e.sucursal)
	require.NoError(t, err)
	return n
}

// conciliado asserts the stock row equals the sum of its movements.
func (e *entorno) conciliado(t *testing.T, productoID uuid.UUID) {
	t.Helper()
	c, err := e.inventario.Conciliar(context.Background(), dto.StockQuery{ProductoID: productoID.String(), SucursalID: e.sucursal.String()})
	require.NoError(t, err)
	require.Truef(t, c.Consistente, "stock %d, movimientos %d", c.Cantidad, c.SumaMovimientos)
}

func (e *entorno) movimientos(t *testing.T, ventaID string) []dto.MovimientoStockResponse {
	t.Helper()
	res, err := e.inventario.ListarMovimientos(context.Background(), dto.MovimientoFilter{ReferenciaID: ventaID, Page: 1, Limit: 100})
	require.NoError(t, err)
	return res.Data
}

func linea(productoID uuid.UUID, cantidad int) dto.LineaVentaRequest {
	return dto.LineaVentaRequest{ProductoID: productoID.String(), Cantidad: cantidad}
}

func venta(estado string, lineas ...dto.LineaVentaRequest) dto.RegistrarVentaRequest {
	return dto.RegistrarVentaRequest{
		Venta:  dto.CabeceraVentaRequest{MetodoPago: "efectivo", Estado: estado},
		Lineas: lineas,
	}
}
