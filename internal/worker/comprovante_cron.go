package worker

// comprovante_cron.go
// Background loop that re-enqueues receipt jobs for concluded sales whose PDF
// was never rendered (lost enqueue after commit, job dead-lettered, worker
// down). Each sale is retried at most once per marcaTTL.

import (
	"context"
	"fmt"
	"time"

	"vlstore/internal/model"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	reprocessarIntervalo = time.Minute
	reprocessarIdadeMin  = 2 * time.Minute
	reprocessarJanela    = 24 * time.Hour
	reprocessarLote      = 20
	marcaTTL             = 24 * time.Hour
)

// Pendentes lists sales still waiting for a receipt.
type Pendentes interface {
	ListSemComprovante(ctx context.Context, desde, ate time.Time, limit int) ([]model.Venda, error)
}

type comprovanteEnqueuer interface {
	EnqueueComprovante(ctx context.Context, vendaID uuid.UUID, clienteEmail *string) error
}

// Marcador is the subset of Redis used by the cron: the queue length and a
// SETNX guard per sale.
type Marcador interface {
	LLen(ctx context.Context, key string) *redis.IntCmd
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
}

type Reprocessador struct {
	vendas    Pendentes
	fila      comprovanteEnqueuer
	rdb       Marcador
	intervalo time.Duration
	now       func() time.Time
}

func NewReprocessador(vendas Pendentes, fila comprovanteEnqueuer, rdb Marcador) *Reprocessador {
	return &Reprocessador{
		vendas:    vendas,
		fila:      fila,
		rdb:       rdb,
		intervalo: reprocessarIntervalo,
		now:       time.Now,
	}
}

// Run ticks until ctx is cancelled.
func (r *Reprocessador) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.intervalo)
	defer ticker.Stop()

	log.Info().Msg("comprovante_cron: started")
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("comprovante_cron: shutting down")
			return nil
		case <-ticker.C:
			r.tick(ctx)
		}
	}
}

// tick re-enqueues one batch and returns how many jobs were pushed.
func (r *Reprocessador) tick(ctx context.Context) int {
	// A backlog means the pool is still catching up; pending sales may
	// already be queued.
	n, err := r.rdb.LLen(ctx, QueueComprovante).Result()
	if err != nil {
		log.Warn().Err(err).Msg("comprovante_cron: LLEN falhou")
		return 0
	}
	if n > 0 {
		return 0
	}

	agora := r.now()
	vendas, err := r.vendas.ListSemComprovante(ctx, agora.Add(-reprocessarJanela), agora.Add(-reprocessarIdadeMin), reprocessarLote)
	if err != nil {
		log.Error().Err(err).Msg("comprovante_cron: falha ao buscar vendas pendentes")
		return 0
	}

	enfileiradas := 0
	for i := range vendas {
		v := &vendas[i]
		ok, err := r.rdb.SetNX(ctx, fmt.Sprintf("comprovante:reprocessado:%s", v.ID), 1, marcaTTL).Result()
		if err != nil {
			log.Warn().Err(err).Str("venda_id", v.ID.String()).Msg("comprovante_cron: SETNX falhou")
			continue
		}
		if !ok {
			continue
		}
		if err := r.fila.EnqueueComprovante(ctx, v.ID, nil); err != nil {
			log.Error().Err(err).Str("venda_id", v.ID.String()).Msg("comprovante_cron: falha ao reenfileirar")
			continue
		}
		jobsTotal.WithLabelValues(QueueComprovante, "reprocessado").Inc()
		enfileiradas++
	}
	if enfileiradas > 0 {
		log.Info().Int("count", enfileiradas).Msg("comprovante_cron: comprovantes reenfileirados")
	}
	return enfileiradas
}
