package promocion

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func compilar(t *testing.T, d Definicion) Promocion {
	t.Helper()
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	p, err := Compilar(d)
	require.NoError(t, err)
	return p
}

func linea(productoID uuid.UUID, cantidad int, precio string) Linea {
	return Linea{ProductoID: productoID, Cantidad: cantidad, PrecioUnitario: dec(precio)}
}

func TestAplicar_DosPorUno(t *testing.T) {
	pid := uuid.New()
	promo := compilar(t, Definicion{Nombre: "2x1 gaseosas", Tipo: "2x1"})

	out := NewEvaluador(Acumulable).Aplicar([]Linea{linea(pid, 4, "10")}, []Promocion{promo})

	require.Len(t, out, 1)
	assert.True(t, out[0].Descuento.Equal(dec("20")))
	assert.True(t, out[0].Subtotal.Equal(dec("20")))
	assert.Equal(t, 4, out[0].CantidadStock)
	assert.True(t, out[0].TienePromocion)
	require.Len(t, out[0].Aplicadas, 1)
	assert.Equal(t, 2, out[0].Aplicadas[0].UnidadesGratis)
	assert.Contains(t, out[0].Aplicadas[0].Mensaje, "2x1")
}

func TestAplicar_NxM_DescuentaUnidadesRegaladasDelStock(t *testing.T) {
	promo := compilar(t, Definicion{Nombre: "lleva 5", Tipo: "nxm", Condiciones: `{"x":5,"y":1}`})

	out := NewEvaluador(Acumulable).Aplicar([]Linea{linea(uuid.New(), 10, "3")}, []Promocion{promo})

	assert.Equal(t, 12, out[0].CantidadStock)
	assert.Equal(t, 2, out[0].Aplicadas[0].UnidadesGratis)
	assert.True(t, out[0].Descuento.Equal(dec("6")))
}

func TestAplicar_NPorUno_DefaultTres(t *testing.T) {
	promo := compilar(t, Definicion{Nombre: "3x1", Tipo: "nx1"})

	out := NewEvaluador(Acumulable).Aplicar([]Linea{linea(uuid.New(), 7, "2")}, []Promocion{promo})

	assert.True(t, out[0].Descuento.Equal(dec("4")))
	assert.Equal(t, 7, out[0].CantidadStock)
}

func TestAplicar_Porcentaje(t *testing.T) {
	promo := compilar(t, Definicion{Nombre: "10 off", Tipo: "porcentaje", Valor: dec("10")})

	out := NewEvaluador(Acumulable).Aplicar([]Linea{linea(uuid.New(), 3, "33.33")}, []Promocion{promo})

	// 99.99 * 10% = 9.999 → 10.00
	assert.True(t, out[0].Descuento.Equal(dec("10")))
	assert.True(t, out[0].Subtotal.Equal(dec("89.99")))
}

func TestAplicar_MontoFijoNoSuperaPrecio(t *testing.T) {
	promo := compilar(t, Definicion{Nombre: "menos 15", Tipo: "monto_fijo", Valor: dec("15")})

	out := NewEvaluador(Acumulable).Aplicar([]Linea{linea(uuid.New(), 2, "10")}, []Promocion{promo})

	assert.True(t, out[0].Descuento.Equal(dec("20")))
	assert.True(t, out[0].Subtotal.IsZero())
}

func TestAplicar_AlcancePorProducto(t *testing.T) {
	incluido, excluido := uuid.New(), uuid.New()
	promo := compilar(t, Definicion{Nombre: "2x1", Tipo: "2x1", Productos: []uuid.UUID{incluido}})

	out := NewEvaluador(Acumulable).Aplicar(
		[]Linea{linea(incluido, 2, "5"), linea(excluido, 2, "5")},
		[]Promocion{promo},
	)

	assert.True(t, out[0].TienePromocion)
	assert.False(t, out[1].TienePromocion)
	assert.True(t, out[1].Descuento.IsZero())
}

func TestAplicar_Condiciones(t *testing.T) {
	promo := compilar(t, Definicion{
		Nombre: "mayorista", Tipo: "porcentaje", Valor: dec("10"),
		Condiciones: `{"min_cantidad": 5, "min_monto": 100}`,
	})
	ev := NewEvaluador(Acumulable)

	pocas := ev.Aplicar([]Linea{linea(uuid.New(), 4, "50")}, []Promocion{promo})
	assert.False(t, pocas[0].TienePromocion, "min_cantidad no alcanzada")

	barato := ev.Aplicar([]Linea{linea(uuid.New(), 5, "10")}, []Promocion{promo})
	assert.False(t, barato[0].TienePromocion, "min_monto no alcanzado")

	ok := ev.Aplicar([]Linea{linea(uuid.New(), 5, "20")}, []Promocion{promo})
	assert.True(t, ok[0].TienePromocion)
}

func TestAplicar_LineaIncompletaSeOmite(t *testing.T) {
	promo := compilar(t, Definicion{Nombre: "2x1", Tipo: "2x1"})

	out := NewEvaluador(Acumulable).Aplicar(
		[]Linea{linea(uuid.New(), 0, "10"), linea(uuid.New(), 4, "0")},
		[]Promocion{promo},
	)

	assert.False(t, out[0].TienePromocion)
	assert.False(t, out[1].TienePromocion)
}

func TestAplicar_AcumulableTopeEnBruto(t *testing.T) {
	a := compilar(t, Definicion{Nombre: "a", Tipo: "porcentaje", Valor: dec("80"), Prioridad: 1})
	b := compilar(t, Definicion{Nombre: "b", Tipo: "porcentaje", Valor: dec("50"), Prioridad: 2})

	out := NewEvaluador(Acumulable).Aplicar([]Linea{linea(uuid.New(), 1, "100")}, []Promocion{b, a})

	assert.True(t, out[0].Descuento.Equal(dec("100")))
	assert.True(t, out[0].Subtotal.IsZero())
	require.Len(t, out[0].Aplicadas, 2)
	assert.Equal(t, "a", out[0].Aplicadas[0].Nombre)
	assert.True(t, out[0].Aplicadas[1].Descuento.Equal(dec("20")))
}

func TestAplicar_ExclusivaMayorDescuento(t *testing.T) {
	chico := compilar(t, Definicion{Nombre: "chico", Tipo: "porcentaje", Valor: dec("10")})
	grande := compilar(t, Definicion{Nombre: "grande", Tipo: "2x1"})

	out := NewEvaluador(ExclusivaMayorDescuento).Aplicar(
		[]Linea{linea(uuid.New(), 4, "10")},
		[]Promocion{chico, grande},
	)

	require.Len(t, out[0].Aplicadas, 1)
	assert.Equal(t, "grande", out[0].Aplicadas[0].Nombre)
	assert.True(t, out[0].Descuento.Equal(dec("20")))
}

func TestAplicar_Determinista(t *testing.T) {
	promos := []Promocion{
		compilar(t, Definicion{Nombre: "p1", Tipo: "porcentaje", Valor: dec("15")}),
		compilar(t, Definicion{Nombre: "p2", Tipo: "monto_fijo", Valor: dec("1")}),
		compilar(t, Definicion{Nombre: "p3", Tipo: "nxm", Condiciones: `{"x":3,"y":1}`}),
	}
	lineas := []Linea{linea(uuid.New(), 9, "7.5"), linea(uuid.New(), 2, "120")}
	ev := NewEvaluador(Acumulable)

	primera := ev.Aplicar(lineas, promos)
	invertidas := []Promocion{promos[2], promos[1], promos[0]}
	for i := 0; i < 5; i++ {
		assert.Equal(t, primera, ev.Aplicar(lineas, promos))
		assert.Equal(t, primera, ev.Aplicar(lineas, invertidas))
	}
	assert.False(t, lineas[0].TienePromocion, "la entrada no se modifica")
}

func TestCompilar_CondicionesMalformadas(t *testing.T) {
	p, err := Compilar(Definicion{ID: uuid.New(), Nombre: "x", Tipo: "2x1", Condiciones: `{min_cantidad: 3`})

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCondicionInvalida))
	assert.NotNil(t, p.Regla)
	assert.Zero(t, p.Condiciones.MinCantidad)
}

func TestCompilar_TipoDesconocido(t *testing.T) {
	_, err := Compilar(Definicion{ID: uuid.New(), Tipo: "3x2"})
	assert.True(t, errors.Is(err, ErrTipoDesconocido))
}

func TestCompilar_NxMSinParametros(t *testing.T) {
	_, err := Compilar(Definicion{ID: uuid.New(), Tipo: "nxm", Condiciones: `{"x":5}`})
	assert.True(t, errors.Is(err, ErrReglaInvalida))
}

func TestVigente(t *testing.T) {
	desde := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	hasta := time.Date(2026, 1, 31, 23, 59, 59, 0, time.UTC)

	assert.True(t, Vigente(true, desde, hasta, desde))
	assert.True(t, Vigente(true, desde, hasta, hasta))
	assert.False(t, Vigente(true, desde, hasta, hasta.Add(time.Second)))
	assert.False(t, Vigente(false, desde, hasta, desde.Add(time.Hour)))
}

func TestParsePolitica(t *testing.T) {
	p, err := ParsePolitica("")
	require.NoError(t, err)
	assert.Equal(t, Acumulable, p)

	_, err = ParsePolitica("la_primera")
	assert.Error(t, err)
}
