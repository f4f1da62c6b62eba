package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const (
	QueueAlertasStock = "jobs:alertas_stock"

	JobAlertaStock = "alerta_stock"

	// MaxIntentos is how many times a job runs before it goes to the DLQ.
	MaxIntentos = 3
)

// Job is the generic envelope for all async tasks.
type Job struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// AlertaStockPayload is enqueued after a sale commits and leaves a stock row
// under its configured minimum.
type AlertaStockPayload struct {
	ProductoID     string  `json:"producto_id"`
	Producto       string  `json:"producto"`
	SucursalID     *string `json:"sucursal_id,omitempty"`
	Cantidad       int     `json:"cantidad"`
	CantidadMinima int     `json:"cantidad_minima"`
}

// Procesador handles one job type. A returned error makes the pool retry.
type Procesador interface {
	Process(ctx context.Context, payload json.RawMessage) error
}

// Dispatcher enqueues async jobs into Redis lists.
// The worker pool dequeues them via BRPOP.
type Dispatcher struct {
	rdb *redis.Client
}

func NewDispatcher(rdb *redis.Client) *Dispatcher {
	return &Dispatcher{rdb: rdb}
}

// EnqueueAlertaStock pushes a low-stock notification job to Redis.
func (d *Dispatcher) EnqueueAlertaStock(ctx context.Context, payload AlertaStockPayload) error {
	return d.enqueue(ctx, QueueAlertasStock, JobAlertaStock, payload)
}

func (d *Dispatcher) enqueue(ctx context.Context, queue, jobType string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	job := Job{Type: jobType, Payload: data}
	encoded, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return d.rdb.LPush(ctx, queue, encoded).Err()
}

// Pool consumes the job queues with a fixed number of goroutines.
type Pool struct {
	rdb          *redis.Client
	procesadores map[string]Procesador
	espera       func(attempt int) time.Duration
}

func NewPool(rdb *redis.Client, procesadores map[string]Procesador) *Pool {
	return &Pool{rdb: rdb, procesadores: procesadores, espera: backoff}
}

// Start launches numWorkers goroutines consuming the queues and returns a
// function that blocks until all of them exit after ctx is cancelled.
// Each goroutine blocks on BRPOP, zero CPU when idle.
func (p *Pool) Start(ctx context.Context, numWorkers int) func() error {
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < numWorkers; i++ {
		id := i
		g.Go(func() error {
			p.runWorker(ctx, id)
			return nil
		})
	}
	log.Info().Msgf("worker pool started with %d workers", numWorkers)
	return g.Wait
}

func (p *Pool) runWorker(ctx context.Context, id int) {
	queues := []string{QueueAlertasStock}
	for {
		select {
		case <-ctx.Done():
			log.Info().Msgf("worker %d shutting down", id)
			return
		default:
			// Blocking pop, waits up to 5s then loops to check ctx
			result, err := p.rdb.BRPop(ctx, 5*time.Second, queues...).Result()
			if err != nil {
				if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
					log.Warn().Err(err).Int("worker", id).Msg("brpop failed")
					time.Sleep(time.Second)
				}
				continue
			}
			if len(result) < 2 {
				continue
			}
			p.processJob(ctx, result[0], result[1])
		}
	}
}

// processJob runs the job's processor with backoff. After MaxIntentos
// failures the job is parked in the dead letter queue.
func (p *Pool) processJob(ctx context.Context, queue, raw string) {
	var job Job
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		log.Error().Str("queue", queue).Err(err).Msg("failed to unmarshal job")
		SendToDLQ(ctx, p.rdb, queue, "", json.RawMessage(fmt.Sprintf("%q", raw)), "json inválido", 0)
		return
	}
	proc, ok := p.procesadores[job.Type]
	if !ok {
		log.Error().Str("type", job.Type).Str("queue", queue).Msg("no processor for job type")
		SendToDLQ(ctx, p.rdb, queue, job.Type, job.Payload, "tipo de job desconocido", 0)
		return
	}

	intentos := 0
	err := withRetry(ctx, MaxIntentos, p.espera, func(attempt int) error {
		intentos = attempt + 1
		err := proc.Process(ctx, job.Payload)
		if err != nil {
			log.Warn().Err(err).Str("type", job.Type).Int("attempt", intentos).Msg("job failed")
		}
		return err
	})
	if err != nil {
		SendToDLQ(ctx, p.rdb, queue, job.Type, job.Payload, err.Error(), intentos)
		return
	}
	log.Debug().Str("type", job.Type).Str("queue", queue).Msg("job processed")
}

// 1s, 2s … (exponential backoff)
func backoff(attempt int) time.Duration {
	return time.Duration(1<<uint(attempt-1)) * time.Second
}

// withRetry calls fn up to maxAttempts times, waiting espera(i) before retry i.
func withRetry(ctx context.Context, maxAttempts int, espera func(int) time.Duration, fn func(attempt int) error) error {
	var lastErr error
	for i := 0; i < maxAttempts; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(espera(i)):
			}
		}
		if err := fn(i); err != nil {
			lastErr = err
			continue
		}
		return nil
	}
	return lastErr
}
