package promocion

import (
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Politica decides how several applicable promotions combine on one line.
type Politica string

const (
	// Acumulable applies every matching promotion, in priority order.
	Acumulable Politica = "acumulable"
	// ExclusivaMayorDescuento applies only the matching promotion with the
	// largest discount.
	ExclusivaMayorDescuento Politica = "exclusiva_mayor_descuento"
)

// ParsePolitica validates a configured policy name.
func ParsePolitica(s string) (Politica, error) {
	switch Politica(s) {
	case Acumulable, ExclusivaMayorDescuento:
		return Politica(s), nil
	case "":
		return Acumulable, nil
	}
	return "", fmt.Errorf("politica de promociones desconocida: %q", s)
}

// Aplicada records one promotion applied to a line, for receipts and audit.
type Aplicada struct {
	PromocionID    uuid.UUID       `json:"promocion_id"`
	Nombre         string          `json:"nombre"`
	Descuento      decimal.Decimal `json:"descuento"`
	UnidadesGratis int             `json:"unidades_gratis"`
	Mensaje        string          `json:"mensaje"`
}

// Linea is one cart line as seen by the evaluator.
type Linea struct {
	ProductoID     uuid.UUID
	Cantidad       int
	PrecioUnitario decimal.Decimal
	Descuento      decimal.Decimal
	Subtotal       decimal.Decimal
	// CantidadStock is the quantity that must leave physical stock.
	CantidadStock  int
	TienePromocion bool
	Aplicadas      []Aplicada
}

func (l Linea) bruto() decimal.Decimal {
	return l.PrecioUnitario.Mul(decimal.NewFromInt(int64(l.Cantidad)))
}

func (l Linea) completa() bool {
	return l.Cantidad > 0 && l.PrecioUnitario.IsPositive()
}

// Evaluador applies compiled promotions to cart lines.
type Evaluador struct {
	politica Politica
}

func NewEvaluador(p Politica) *Evaluador {
	if p == "" {
		p = Acumulable
	}
	return &Evaluador{politica: p}
}

func (e *Evaluador) Politica() Politica { return e.politica }

// Aplicar returns annotated copies of lineas. The input slices are not
// modified, and the result depends only on the arguments.
func (e *Evaluador) Aplicar(lineas []Linea, promos []Promocion) []Linea {
	out := make([]Linea, len(lineas))
	for i, l := range lineas {
		l.Aplicadas = append([]Aplicada(nil), l.Aplicadas...)
		if l.CantidadStock < l.Cantidad {
			l.CantidadStock = l.Cantidad
		}
		l.Subtotal = l.bruto().Sub(l.Descuento)
		out[i] = l
	}

	ordenadas := ordenar(promos)
	switch e.politica {
	case ExclusivaMayorDescuento:
		for i := range out {
			aplicarMejor(&out[i], ordenadas)
		}
	default:
		for _, p := range ordenadas {
			for i := range out {
				if r, ok := evaluar(out[i], p); ok {
					acumular(&out[i], p, r)
				}
			}
		}
	}
	return out
}

func ordenar(promos []Promocion) []Promocion {
	ordenadas := append([]Promocion(nil), promos...)
	sort.SliceStable(ordenadas, func(i, j int) bool {
		if ordenadas[i].Prioridad != ordenadas[j].Prioridad {
			return ordenadas[i].Prioridad < ordenadas[j].Prioridad
		}
		return ordenadas[i].ID.String() < ordenadas[j].ID.String()
	})
	return ordenadas
}

// evaluar computes what p would add to l, capped so the accumulated discount
// never exceeds the gross amount.
func evaluar(l Linea, p Promocion) (resultado, bool) {
	if !l.completa() || p.Regla == nil || !p.aplicaA(l.ProductoID) {
		return resultado{}, false
	}
	if !p.Condiciones.cumple(l.PrecioUnitario, l.Cantidad) {
		return resultado{}, false
	}
	r := p.Regla.calcular(p.Nombre, l.PrecioUnitario, l.Cantidad)
	restante := decimal.Max(l.bruto().Sub(l.Descuento), decimal.Zero)
	r.descuento = decimal.Min(r.descuento, restante)
	if r.vacio() {
		return resultado{}, false
	}
	return r, true
}

func aplicarMejor(l *Linea, promos []Promocion) {
	var mejor resultado
	var elegida *Promocion
	for i := range promos {
		r, ok := evaluar(*l, promos[i])
		if !ok {
			continue
		}
		if elegida == nil || r.descuento.GreaterThan(mejor.descuento) {
			mejor, elegida = r, &promos[i]
		}
	}
	if elegida != nil {
		acumular(l, *elegida, mejor)
	}
}

func acumular(l *Linea, p Promocion, r resultado) {
	l.Descuento = l.Descuento.Add(r.descuento)
	l.Subtotal = l.bruto().Sub(l.Descuento)
	l.CantidadStock += r.extraStock
	l.TienePromocion = true
	l.Aplicadas = append(l.Aplicadas, Aplicada{
		PromocionID:    p.ID,
		Nombre:         p.Nombre,
		Descuento:      r.descuento,
		UnidadesGratis: r.gratis,
		Mensaje:        r.mensaje,
	})
}
