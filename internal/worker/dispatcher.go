package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

const (
	QueueComprovante = "jobs:comprovante"
	QueueEmail       = "jobs:email"

	JobComprovante = "comprovante"
	JobEmail       = "email"
)

// Job is the generic envelope for all async tasks.
type Job struct {
	Type       string          `json:"type"`
	Payload    json.RawMessage `json:"payload"`
	Tentativas int             `json:"tentativas"`
}

// Broker is the subset of the Redis client the queue needs.
type Broker interface {
	LPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
	BRPop(ctx context.Context, timeout time.Duration, keys ...string) *redis.StringSliceCmd
	LLen(ctx context.Context, key string) *redis.IntCmd
}

type ComprovantePayload struct {
	VendaID      uuid.UUID `json:"venda_id"`
	ClienteEmail *string   `json:"cliente_email,omitempty"`
}

type EmailPayload struct {
	VendaID uuid.UUID       `json:"venda_id"`
	Numero  int64           `json:"numero"`
	Total   decimal.Decimal `json:"total"`
	Para    string          `json:"para"`
	PDFPath string          `json:"pdf_path"`
}

// Dispatcher enqueues async jobs into Redis lists.
// The worker pool dequeues them via BRPOP.
type Dispatcher struct {
	rdb Broker
}

func NewDispatcher(rdb Broker) *Dispatcher {
	return &Dispatcher{rdb: rdb}
}

// EnqueueComprovante schedules receipt rendering for a completed sale.
func (d *Dispatcher) EnqueueComprovante(ctx context.Context, vendaID uuid.UUID, clienteEmail *string) error {
	return d.enqueue(ctx, QueueComprovante, JobComprovante, ComprovantePayload{VendaID: vendaID, ClienteEmail: clienteEmail})
}

func (d *Dispatcher) EnqueueEmail(ctx context.Context, p EmailPayload) error {
	return d.enqueue(ctx, QueueEmail, JobEmail, p)
}

func (d *Dispatcher) enqueue(ctx context.Context, queue, jobType string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return d.push(ctx, queue, Job{Type: jobType, Payload: data})
}

func (d *Dispatcher) push(ctx context.Context, queue string, job Job) error {
	encoded, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return d.rdb.LPush(ctx, queue, encoded).Err()
}
