package worker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"despensa/internal/infra"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sinEspera(int) time.Duration { return 0 }

func TestWithRetry_ReintentaHastaExito(t *testing.T) {
	llamadas := 0
	err := withRetry(context.Background(), 3, sinEspera, func(attempt int) error {
		llamadas++
		if attempt < 2 {
			return errors.New("falla")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, llamadas)
}

func TestWithRetry_DevuelveUltimoError(t *testing.T) {
	ultimo := errors.New("ultimo")
	llamadas := 0
	err := withRetry(context.Background(), MaxIntentos, sinEspera, func(attempt int) error {
		llamadas++
		if attempt == MaxIntentos-1 {
			return ultimo
		}
		return errors.New("anterior")
	})
	assert.ErrorIs(t, err, ultimo)
	assert.Equal(t, MaxIntentos, llamadas)
}

func TestWithRetry_CancelacionCorta(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := withRetry(ctx, 3, func(int) time.Duration { return time.Hour }, func(int) error {
		return errors.New("falla")
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBackoff(t *testing.T) {
	assert.Equal(t, time.Second, backoff(1))
	assert.Equal(t, 2*time.Second, backoff(2))
	assert.Equal(t, 4*time.Second, backoff(3))
}

// ── AlertaStockWorker ─────────────────────────────────────────────────────────

type mailerFake struct {
	habilitado bool
	err        error
	enviados   []string
}

func (m *mailerFake) Habilitado() bool { return m.habilitado }

func (m *mailerFake) SendAlertaStock(producto, _ string, _, _ int) error {
	if m.err != nil {
		return m.err
	}
	m.enviados = append(m.enviados, producto)
	return nil
}

func payloadAlerta(t *testing.T) json.RawMessage {
	raw, err := json.Marshal(AlertaStockPayload{ProductoID: "p1", Producto: "Yerba 1kg", Cantidad: 2, CantidadMinima: 5})
	require.NoError(t, err)
	return raw
}

func TestAlertaStockWorker_Envia(t *testing.T) {
	m := &mailerFake{habilitado: true}
	w := &AlertaStockWorker{mailer: m, cb: infra.NewCircuitBreaker(infra.DefaultCBConfig())}

	require.NoError(t, w.Process(context.Background(), payloadAlerta(t)))
	assert.Equal(t, []string{"Yerba 1kg"}, m.enviados)
}

func TestAlertaStockWorker_SinSMTPNoReintenta(t *testing.T) {
	m := &mailerFake{habilitado: false}
	w := &AlertaStockWorker{mailer: m, cb: infra.NewCircuitBreaker(infra.DefaultCBConfig())}

	assert.NoError(t, w.Process(context.Background(), payloadAlerta(t)))
	assert.Empty(t, m.enviados)
}

func TestAlertaStockWorker_FallaAbreCircuito(t *testing.T) {
	m := &mailerFake{habilitado: true, err: errors.New("smtp caido")}
	cb := infra.NewCircuitBreaker(infra.CircuitBreakerConfig{FailureThreshold: 1, SuccessThreshold: 1, OpenTimeout: time.Hour})
	w := &AlertaStockWorker{mailer: m, cb: cb}

	assert.Error(t, w.Process(context.Background(), payloadAlerta(t)))
	assert.ErrorIs(t, w.Process(context.Background(), payloadAlerta(t)), infra.ErrCircuitOpen)
}

func TestAlertaStockWorker_PayloadInvalidoSeDescarta(t *testing.T) {
	m := &mailerFake{habilitado: true}
	w := &AlertaStockWorker{mailer: m, cb: infra.NewCircuitBreaker(infra.DefaultCBConfig())}

	assert.NoError(t, w.Process(context.Background(), json.RawMessage(`{`)))
	assert.Empty(t, m.enviados)
}
