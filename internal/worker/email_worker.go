package worker

// email_worker.go
// Processes low-stock alert jobs from QueueAlertasStock.
// Mails ALERTAS_EMAIL through the SMTP circuit breaker.

import (
	"context"
	"encoding/json"
	"errors"

	"despensa/internal/infra"

	"github.com/rs/zerolog/log"
)

type alertaMailer interface {
	Habilitado() bool
	SendAlertaStock(producto, sucursal string, cantidad, minimo int) error
}

// AlertaStockWorker sends one email per AlertaStockPayload.
type AlertaStockWorker struct {
	mailer alertaMailer
	cb     *infra.CircuitBreaker
}

// NewAlertaStockWorker creates an AlertaStockWorker with the provided SMTP mailer.
func NewAlertaStockWorker(mailer *infra.Mailer, cb *infra.CircuitBreaker) *AlertaStockWorker {
	return &AlertaStockWorker{mailer: mailer, cb: cb}
}

func (w *AlertaStockWorker) Process(_ context.Context, raw json.RawMessage) error {
	var payload AlertaStockPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		log.Error().Err(err).Msg("alerta_worker: invalid payload")
		return nil
	}
	if !w.mailer.Habilitado() {
		log.Warn().Str("producto_id", payload.ProductoID).Msg("alerta_worker: smtp not configured, skipping")
		return nil
	}

	sucursal := ""
	if payload.SucursalID != nil {
		sucursal = *payload.SucursalID
	}
	err := w.cb.Execute(func() error {
		return w.mailer.SendAlertaStock(payload.Producto, sucursal, payload.Cantidad, payload.CantidadMinima)
	})
	if err != nil {
		if errors.Is(err, infra.ErrCircuitOpen) {
			log.Warn().Str("producto_id", payload.ProductoID).Msg("alerta_worker: smtp circuit open")
		}
		return err
	}
	log.Info().Str("producto_id", payload.ProductoID).Int("cantidad", payload.Cantidad).Msg("alerta_worker: stock alert sent")
	return nil
}
