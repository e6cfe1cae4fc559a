package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"
)

// DLQPrefix namespaces dead-letter lists: a job that exhausts its attempts
// on jobs:email lands in dlq:jobs:email.
const DLQPrefix = "dlq:"

// Filas lists every queue the pool consumes, in display order.
var Filas = []string{QueueComprovante, QueueEmail}

type DLQEntry struct {
	Fila       string          `json:"fila"`
	Tipo       string          `json:"tipo"`
	Payload    json.RawMessage `json:"payload"`
	Motivo     string          `json:"motivo"`
	FalhouEm   time.Time       `json:"falhou_em"`
	Tentativas int             `json:"tentativas"`
}

// EstadoFila is the backlog of one queue and of its dead-letter list.
type EstadoFila struct {
	Pendentes int64 `json:"pendentes"`
	DLQ       int64 `json:"dlq"`
}

// SendToDLQ parks a failed job. Errors are logged, never returned: the job
// has already been popped and there is nowhere else to put it.
func SendToDLQ(ctx context.Context, rdb Broker, queue string, job Job, reason string) {
	data, err := json.Marshal(DLQEntry{
		Fila:       queue,
		Tipo:       job.Type,
		Payload:    job.Payload,
		Motivo:     reason,
		FalhouEm:   time.Now().UTC(),
		Tentativas: job.Tentativas,
	})
	if err != nil {
		log.Error().Err(err).Str("queue", queue).Msg("dlq: falha ao serializar job")
		return
	}

	key := DLQPrefix + queue
	if err := rdb.LPush(ctx, key, data).Err(); err != nil {
		log.Error().Err(err).Str("dlq_key", key).RawJSON("job", data).Msg("dlq: job perdido")
		return
	}
	log.Warn().
		Str("queue", queue).
		Str("job_type", job.Type).
		Str("reason", reason).
		Int("tentativas", job.Tentativas).
		Msg("dlq: job movido para a fila morta")
}

func DLQLength(ctx context.Context, rdb Broker, queue string) (int64, error) {
	return rdb.LLen(ctx, DLQPrefix+queue).Result()
}

// EstadoFilas reports pending and dead-lettered jobs per queue.
func EstadoFilas(ctx context.Context, rdb Broker) (map[string]EstadoFila, error) {
	out := make(map[string]EstadoFila, len(Filas))
	for _, q := range Filas {
		pendentes, err := rdb.LLen(ctx, q).Result()
		if err != nil {
			return nil, err
		}
		mortos, err := DLQLength(ctx, rdb, q)
		if err != nil {
			return nil, err
		}
		out[q] = EstadoFila{Pendentes: pendentes, DLQ: mortos}
	}
	return out, nil
}
