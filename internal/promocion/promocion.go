package promocion

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	// ErrCondicionInvalida means the stored conditions could not be decoded.
	// Compilar still returns a usable promotion, with no conditions.
	ErrCondicionInvalida = errors.New("condiciones de promocion invalidas")
	// ErrTipoDesconocido means the rule type is not one of the known variants.
	ErrTipoDesconocido = errors.New("tipo de promocion desconocido")
	// ErrReglaInvalida means the rule parameters make the rule unusable.
	ErrReglaInvalida = errors.New("parametros de promocion invalidos")
)

// Condiciones gate a promotion per line. Zero values always pass.
type Condiciones struct {
	MinCantidad int
	MinMonto    decimal.Decimal
}

func (c Condiciones) cumple(precio decimal.Decimal, cantidad int) bool {
	if cantidad < c.MinCantidad {
		return false
	}
	bruto := precio.Mul(decimal.NewFromInt(int64(cantidad)))
	return bruto.GreaterThanOrEqual(c.MinMonto)
}

// Promocion is a compiled, ready to evaluate promotion.
type Promocion struct {
	ID          uuid.UUID
	Nombre      string
	Prioridad   int
	Regla       Regla
	Condiciones Condiciones
	// Productos scopes the promotion; empty means every product.
	Productos map[uuid.UUID]struct{}
}

func (p Promocion) aplicaA(productoID uuid.UUID) bool {
	if len(p.Productos) == 0 {
		return true
	}
	_, ok := p.Productos[productoID]
	return ok
}

// Definicion is the stored shape of a promotion, as read from the database.
type Definicion struct {
	ID          uuid.UUID
	Nombre      string
	Tipo        string
	Valor       decimal.Decimal
	Prioridad   int
	Condiciones string
	Productos   []uuid.UUID
}

type parametros struct {
	MinCantidad *int             `json:"min_cantidad"`
	MinMonto    *decimal.Decimal `json:"min_monto"`
	N           *int             `json:"n"`
	X           *int             `json:"x"`
	Y           *int             `json:"y"`
}

// Compilar turns a stored definition into a typed Promocion.
//
// An error wrapping ErrCondicionInvalida is not fatal: the returned promotion
// is valid and simply has no conditions. ErrTipoDesconocido and
// ErrReglaInvalida return a zero Promocion that must be skipped.
func Compilar(d Definicion) (Promocion, error) {
	var params parametros
	var condErr error
	if raw := strings.TrimSpace(d.Condiciones); raw != "" && raw != "null" {
		if err := json.Unmarshal([]byte(raw), &params); err != nil {
			params = parametros{}
			condErr = fmt.Errorf("%w: promocion %s: %v", ErrCondicionInvalida, d.ID, err)
		}
	}

	regla, err := construirRegla(Tipo(d.Tipo), d.Valor, params)
	if err != nil {
		return Promocion{}, fmt.Errorf("promocion %s: %w", d.ID, err)
	}

	p := Promocion{
		ID:        d.ID,
		Nombre:    d.Nombre,
		Prioridad: d.Prioridad,
		Regla:     regla,
	}
	if params.MinCantidad != nil {
		p.Condiciones.MinCantidad = *params.MinCantidad
	}
	if params.MinMonto != nil {
		p.Condiciones.MinMonto = *params.MinMonto
	}
	if len(d.Productos) > 0 {
		p.Productos = make(map[uuid.UUID]struct{}, len(d.Productos))
		for _, id := range d.Productos {
			p.Productos[id] = struct{}{}
		}
	}
	return p, condErr
}

func construirRegla(tipo Tipo, valor decimal.Decimal, params parametros) (Regla, error) {
	switch tipo {
	case TipoPorcentaje:
		if valor.IsNegative() || valor.GreaterThan(cien) {
			return nil, fmt.Errorf("%w: porcentaje fuera de rango", ErrReglaInvalida)
		}
		return Porcentaje{Valor: valor}, nil
	case TipoMontoFijo:
		if valor.IsNegative() {
			return nil, fmt.Errorf("%w: monto negativo", ErrReglaInvalida)
		}
		return MontoFijo{Valor: valor}, nil
	case TipoDosPorUno:
		return DosPorUno{}, nil
	case TipoNPorUno:
		n := nPorUnoDefault
		if params.N != nil && *params.N >= 2 {
			n = *params.N
		}
		return NPorUno{N: n}, nil
	case TipoNxM:
		if params.X == nil || params.Y == nil || *params.X < 1 || *params.Y < 1 {
			return nil, fmt.Errorf("%w: nxm requiere x e y positivos", ErrReglaInvalida)
		}
		return LlevaXRegalaY{X: *params.X, Y: *params.Y}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrTipoDesconocido, tipo)
	}
}

// Vigente reports whether a promotion flagged activo covers the instant en.
// Both window bounds are inclusive.
func Vigente(activo bool, desde, hasta, en time.Time) bool {
	return activo && !en.Before(desde) && !en.After(hasta)
}
