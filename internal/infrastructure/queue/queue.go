// Package queue implementa la cola de trabajos de envío consumida por el pool
// de workers. El reintento es explícito: el trabajo lleva su número de intento
// y la cola calcula el backoff por sí misma, sin depender de la semántica de
// reintento de ningún runtime de colas.
package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/tu-usuario/facturacion-api/internal/application/billing"
	"github.com/tu-usuario/facturacion-api/internal/domain"
	"github.com/tu-usuario/facturacion-api/pkg/logger"
)

// Job trabajo en cola con su contabilidad de reintentos.
type Job struct {
	Payload    billing.SubmissionJob
	Attempt    int // reintentos ya consumidos (0 en el primer procesamiento)
	MaxRetries int
	LastError  string
}

// Handler procesa la carga útil de un trabajo. Un error que cumpla
// domain.IsRetryable dispara el re-encolado con backoff; cualquier otro error
// retiene el trabajo de inmediato.
type Handler func(ctx context.Context, job billing.SubmissionJob) error

// Config parámetros de la cola.
type Config struct {
	Size        int           // capacidad del buffer
	MaxRetries  int           // reintentos con backoff antes de retener
	BackoffBase time.Duration // primer backoff; se duplica por reintento
}

// Queue cola en memoria con dead-letter de trabajos agotados. Los trabajos
// exitosos se descartan; los fallidos se retienen para inspección manual.
type Queue struct {
	jobs    chan Job
	handler Handler
	cfg     Config
	log     *logger.Logger

	mu     sync.Mutex
	closed bool
	failed []Job

	wg      sync.WaitGroup
	timers  sync.WaitGroup
	stopped chan struct{}
}

// New construye la cola con el consumidor dado.
func New(cfg Config, handler Handler, log *logger.Logger) *Queue {
	if cfg.Size <= 0 {
		cfg.Size = 256
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = 5 * time.Second
	}
	return &Queue{
		jobs:    make(chan Job, cfg.Size),
		handler: handler,
		cfg:     cfg,
		log:     log,
		stopped: make(chan struct{}),
	}
}

// Enqueue encola un trabajo nuevo. Falla si la cola está llena o detenida.
func (q *Queue) Enqueue(ctx context.Context, payload billing.SubmissionJob) error {
	return q.push(ctx, Job{Payload: payload, MaxRetries: q.cfg.MaxRetries})
}

func (q *Queue) push(ctx context.Context, job Job) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	// El envío ocurre bajo el mutex para que Stop no cierre el canal entre el
	// chequeo de closed y el send.
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return fmt.Errorf("cola detenida")
	}
	select {
	case q.jobs <- job:
		return nil
	default:
		return fmt.Errorf("cola llena (%d trabajos)", q.cfg.Size)
	}
}

// Start lanza el pool de workers. Los workers terminan al llamar Stop.
func (q *Queue) Start(ctx context.Context, workers int) {
	if workers <= 0 {
		workers = 1
	}
	for i := 0; i < workers; i++ {
		q.wg.Add(1)
		go func(id int) {
			defer q.wg.Done()
			for job := range q.jobs {
				q.process(ctx, job)
			}
		}(i)
	}
}

// Stop detiene la cola: no admite más trabajos, cancela los reintentos
// programados (se retienen) y espera a que los workers drenen el buffer.
func (q *Queue) Stop() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	q.mu.Unlock()

	close(q.stopped)
	q.timers.Wait()
	close(q.jobs)
	q.wg.Wait()
}

// process ejecuta un trabajo y decide su destino: descarte, reintento o retención.
func (q *Queue) process(ctx context.Context, job Job) {
	err := q.handler(ctx, job.Payload)
	if err == nil {
		return // éxito: el trabajo se descarta
	}
	job.LastError = err.Error()

	if !domain.IsRetryable(err) {
		q.log.Error().Err(err).Str("documento", job.Payload.DocumentID).
			Msg("trabajo con falla no reintentable, retenido para inspección")
		q.retain(job)
		return
	}
	if job.Attempt >= job.MaxRetries {
		q.log.Error().Err(err).Str("documento", job.Payload.DocumentID).
			Int("reintentos", job.Attempt).Msg("reintentos agotados, trabajo retenido")
		q.retain(job)
		return
	}

	job.Attempt++
	backoff := q.cfg.BackoffBase << (job.Attempt - 1) // 5s, 10s, 20s...
	q.log.Warn().Err(err).Str("documento", job.Payload.DocumentID).
		Int("intento", job.Attempt).Dur("backoff", backoff).Msg("trabajo re-encolado con backoff")

	q.timers.Add(1)
	go func(j Job) {
		defer q.timers.Done()
		t := time.NewTimer(backoff)
		defer t.Stop()
		select {
		case <-t.C:
			if pErr := q.push(context.Background(), j); pErr != nil {
				q.retain(j)
			}
		case <-q.stopped:
			// Apagado en medio del backoff: el trabajo se retiene, no se pierde.
			q.retain(j)
		}
	}(job)
}

func (q *Queue) retain(job Job) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.failed = append(q.failed, job)
}

// Failed devuelve una copia de los trabajos retenidos tras agotar reintentos
// o fallar de forma no reintentable.
func (q *Queue) Failed() []Job {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]Job, len(q.failed))
	copy(out, q.failed)
	return out
}
