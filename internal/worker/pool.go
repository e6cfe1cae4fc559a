package worker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const maxTentativas = 3

var jobsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "vlstore_jobs_total",
	Help: "Async jobs processed, by queue and result.",
}, []string{"queue", "result"})

// Handler processes one job payload. A returned error schedules a retry.
type Handler interface {
	Process(ctx context.Context, payload json.RawMessage) error
}

// Pool consumes every registered queue with a fixed number of goroutines.
type Pool struct {
	rdb      Broker
	handlers map[string]Handler
	queues   []string
	size     int
	timeout  time.Duration
}

func NewPool(rdb Broker, size int) *Pool {
	if size <= 0 {
		size = 1
	}
	return &Pool{rdb: rdb, handlers: map[string]Handler{}, size: size, timeout: 5 * time.Second}
}

// Register binds h to queue. Must be called before Run.
func (p *Pool) Register(queue string, h Handler) {
	if _, ok := p.handlers[queue]; !ok {
		p.queues = append(p.queues, queue)
	}
	p.handlers[queue] = h
}

// Run blocks until ctx is cancelled. Each goroutine blocks on BRPOP, so idle
// workers cost nothing.
func (p *Pool) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < p.size; i++ {
		id := i
		g.Go(func() error {
			p.loop(ctx, id)
			return nil
		})
	}
	log.Info().Int("workers", p.size).Strs("queues", p.queues).Msg("worker pool started")
	return g.Wait()
}

func (p *Pool) loop(ctx context.Context, id int) {
	for {
		if ctx.Err() != nil {
			log.Info().Int("worker", id).Msg("worker shutting down")
			return
		}
		result, err := p.rdb.BRPop(ctx, p.timeout, p.queues...).Result()
		if err != nil {
			if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
				log.Warn().Err(err).Int("worker", id).Msg("worker: brpop failed")
				time.Sleep(time.Second)
			}
			continue
		}
		if len(result) < 2 {
			continue
		}
		p.handle(ctx, result[0], result[1])
	}
}

func (p *Pool) handle(ctx context.Context, queue, raw string) {
	var job Job
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		log.Error().Str("queue", queue).Err(err).Msg("worker: invalid job envelope")
		quoted, _ := json.Marshal(raw)
		SendToDLQ(ctx, p.rdb, queue, Job{Payload: quoted}, "envelope inválido")
		jobsTotal.WithLabelValues(queue, "dlq").Inc()
		return
	}
	h, ok := p.handlers[queue]
	if !ok {
		SendToDLQ(ctx, p.rdb, queue, job, "nenhum handler registrado")
		jobsTotal.WithLabelValues(queue, "dlq").Inc()
		return
	}

	err := h.Process(ctx, job.Payload)
	if err == nil {
		jobsTotal.WithLabelValues(queue, "ok").Inc()
		return
	}

	job.Tentativas++
	logger := log.With().Str("queue", queue).Str("type", job.Type).Int("tentativa", job.Tentativas).Logger()
	if job.Tentativas >= maxTentativas {
		logger.Error().Err(err).Msg("worker: job failed permanently")
		SendToDLQ(ctx, p.rdb, queue, job, err.Error())
		jobsTotal.WithLabelValues(queue, "dlq").Inc()
		return
	}
	logger.Warn().Err(err).Msg("worker: job failed, requeueing")
	encoded, _ := json.Marshal(job)
	if perr := p.rdb.LPush(ctx, queue, encoded).Err(); perr != nil {
		logger.Error().Err(perr).Msg("worker: requeue failed")
	}
	jobsTotal.WithLabelValues(queue, "retry").Inc()
}
