// Package promocion evaluates discount rules against a cart. Everything here
// is pure: no I/O, no logging, no shared state. Callers load and compile the
// stored promotions once and hand the result to an Evaluador.
package promocion

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Tipo is the stored discriminator of a rule.
type Tipo string

const (
	TipoPorcentaje Tipo = "porcentaje"
	TipoMontoFijo  Tipo = "monto_fijo"
	TipoDosPorUno  Tipo = "2x1"
	TipoNPorUno    Tipo = "nx1"
	TipoNxM        Tipo = "nxm"
)

const nPorUnoDefault = 3

var cien = decimal.NewFromInt(100)

// resultado is what a rule yields for one line.
type resultado struct {
	descuento decimal.Decimal
	gratis    int
	// extraStock units leave physical stock without being billed.
	extraStock int
	mensaje    string
}

func (r resultado) vacio() bool {
	return !r.descuento.IsPositive() && r.gratis == 0 && r.extraStock == 0
}

// Regla is the tagged variant of promotion rules.
type Regla interface {
	Tipo() Tipo
	calcular(nombre string, precio decimal.Decimal, cantidad int) resultado
}

// Porcentaje discounts Valor percent of the line's gross amount.
type Porcentaje struct{ Valor decimal.Decimal }

func (Porcentaje) Tipo() Tipo { return TipoPorcentaje }

func (r Porcentaje) calcular(nombre string, precio decimal.Decimal, cantidad int) resultado {
	bruto := precio.Mul(decimal.NewFromInt(int64(cantidad)))
	return resultado{
		descuento: bruto.Mul(r.Valor).Div(cien).Round(2),
		mensaje:   fmt.Sprintf("%s: %s%% de descuento", nombre, r.Valor.String()),
	}
}

// MontoFijo discounts Valor per unit, never more than the unit price.
type MontoFijo struct{ Valor decimal.Decimal }

func (MontoFijo) Tipo() Tipo { return TipoMontoFijo }

func (r MontoFijo) calcular(nombre string, precio decimal.Decimal, cantidad int) resultado {
	porUnidad := decimal.Min(r.Valor, precio)
	return resultado{
		descuento: porUnidad.Mul(decimal.NewFromInt(int64(cantidad))),
		mensaje:   fmt.Sprintf("%s: $%s menos por unidad", nombre, porUnidad.StringFixed(2)),
	}
}

// DosPorUno bills one of every two units.
type DosPorUno struct{}

func (DosPorUno) Tipo() Tipo { return TipoDosPorUno }

func (DosPorUno) calcular(nombre string, precio decimal.Decimal, cantidad int) resultado {
	return unidadesSinCargo(nombre, "2x1", precio, cantidad/2)
}

// NPorUno bills one of every N units.
type NPorUno struct{ N int }

func (NPorUno) Tipo() Tipo { return TipoNPorUno }

func (r NPorUno) calcular(nombre string, precio decimal.Decimal, cantidad int) resultado {
	n := r.N
	if n < 2 {
		n = nPorUnoDefault
	}
	return unidadesSinCargo(nombre, fmt.Sprintf("%dx1", n), precio, cantidad/n)
}

// LlevaXRegalaY gives Y extra units for every X units bought. The extra units
// are handed out on top of the billed quantity, so they also leave stock.
type LlevaXRegalaY struct{ X, Y int }

func (LlevaXRegalaY) Tipo() Tipo { return TipoNxM }

func (r LlevaXRegalaY) calcular(nombre string, precio decimal.Decimal, cantidad int) resultado {
	if r.X < 1 || r.Y < 1 {
		return resultado{}
	}
	gratis := (cantidad / r.X) * r.Y
	if gratis == 0 {
		return resultado{}
	}
	return resultado{
		descuento:  precio.Mul(decimal.NewFromInt(int64(gratis))),
		gratis:     gratis,
		extraStock: gratis,
		mensaje:    fmt.Sprintf("%s: llevando %d te regalamos %d (%d sin cargo)", nombre, r.X, r.Y, gratis),
	}
}

func unidadesSinCargo(nombre, etiqueta string, precio decimal.Decimal, gratis int) resultado {
	if gratis == 0 {
		return resultado{}
	}
	return resultado{
		descuento: precio.Mul(decimal.NewFromInt(int64(gratis))),
		gratis:    gratis,
		mensaje:   fmt.Sprintf("%s: %s, %d sin cargo", nombre, etiqueta, gratis),
	}
}
