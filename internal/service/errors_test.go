package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestDomainError_UnwrapYMensaje(t *testing.T) {
	pid := uuid.MustParse("11111111-1111-1111-1111-111111111111")
	err := errLinea(ErrStockInsuficiente, 2, pid, "disponible 3, requerido 5")

	assert.ErrorIs(t, err, ErrStockInsuficiente)
	assert.Contains(t, err.Error(), "línea 2")
	assert.Contains(t, err.Error(), pid.String())
	assert.Contains(t, err.Error(), "disponible 3")

	var de *DomainError
	assert.True(t, errors.As(fmt.Errorf("envuelto: %w", err), &de))
	assert.Equal(t, 2, de.Linea)
}

func TestFallaTx(t *testing.T) {
	ctx := context.Background()

	assert.NoError(t, fallaTx(ctx, "x", nil))
	assert.ErrorIs(t, fallaTx(ctx, "x", ErrVentaNoEncontrada), ErrVentaNoEncontrada)

	err := fallaTx(ctx, "x", errors.New("pq: connection reset"))
	assert.Equal(t, ErrTransaccionFallida, err)
	assert.NotContains(t, err.Error(), "connection reset")
}
