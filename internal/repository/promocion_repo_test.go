package repository_test

import (
	"context"
	"testing"
	"time"

	"despensa/internal/model"
	"despensa/internal/repository"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListNoVencidas_IncluyeLasQueEmpiezanDespues(t *testing.T) {
	repo := repository.NewPromocionRepository(nuevaDB(t))
	ctx := context.Background()
	ahora := time.Now()

	crear := func(nombre string, desde, hasta time.Time) *model.Promocion {
		p := &model.Promocion{Nombre: nombre, Tipo: "porcentaje", Valor: decimal.NewFromInt(5), FechaInicio: desde, FechaFin: hasta, Activo: true}
		require.NoError(t, repo.Create(ctx, p))
		return p
	}
	crear("en curso", ahora.Add(-time.Hour), ahora.Add(time.Hour))
	crear("futura", ahora.Add(30*time.Second), ahora.Add(time.Hour))
	crear("vencida", ahora.Add(-2*time.Hour), ahora.Add(-time.Hour))
	inactiva := crear("inactiva", ahora.Add(-time.Hour), ahora.Add(time.Hour))
	require.NoError(t, repo.SetActivo(ctx, inactiva.ID, false))

	promos, err := repo.ListNoVencidas(ctx, ahora)
	require.NoError(t, err)
	nombres := make([]string, 0, len(promos))
	for _, p := range promos {
		nombres = append(nombres, p.Nombre)
	}
	assert.ElementsMatch(t, []string{"en curso", "futura"}, nombres)
}
