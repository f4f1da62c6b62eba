package infra

import (
	"os"
	"testing"
	"time"

	"despensa/internal/model"
	"despensa/internal/promocion"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerarTicketPDF(t *testing.T) {
	dir := t.TempDir()
	v := &model.Venta{
		Numero:      "V-000042",
		Estado:      model.EstadoCompletada,
		MetodoPago:  "efectivo",
		Subtotal:    decimal.NewFromInt(40),
		Descuento:   decimal.NewFromInt(20),
		Total:       decimal.NewFromInt(20),
		MontoPagado: decimal.NewFromInt(20),
		CreatedAt:   time.Now(),
		Items: []model.VentaItem{{
			ProductoID:     uuid.New(),
			Cantidad:       4,
			PrecioUnitario: decimal.NewFromInt(10),
			Descuento:      decimal.NewFromInt(20),
			Subtotal:       decimal.NewFromInt(20),
			Producto:       &model.Producto{Nombre: "Yerba Mate 1kg"},
			PromocionesAplicadas: []promocion.Aplicada{
				{Nombre: "2x1", Mensaje: "2x1: 2 unidades gratis"},
			},
		}},
	}

	path, err := GenerarTicketPDF(v, "Despensa Don José", dir)
	require.NoError(t, err)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(500))
	assert.Contains(t, path, "ticket_V-000042.pdf")
}
