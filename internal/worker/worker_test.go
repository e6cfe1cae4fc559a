package worker

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"vlstore/internal/infra"
	"vlstore/internal/model"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// fakeBroker keeps Redis lists in memory. LPush prepends and BRPop pops
// from the tail, as Redis does.
type fakeBroker struct {
	mu    sync.Mutex
	lists map[string][]string
	keys  map[string]bool
}

func newFakeBroker() *fakeBroker {
	return &fakeBroker{lists: map[string][]string{}, keys: map[string]bool{}}
}

func (b *fakeBroker) LPush(_ context.Context, key string, values ...interface{}) *redis.IntCmd {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, v := range values {
		var s string
		switch x := v.(type) {
		case []byte:
			s = string(x)
		case string:
			s = x
		}
		b.lists[key] = append([]string{s}, b.lists[key]...)
	}
	return redis.NewIntResult(int64(len(b.lists[key])), nil)
}

func (b *fakeBroker) BRPop(ctx context.Context, _ time.Duration, keys ...string) *redis.StringSliceCmd {
	b.mu.Lock()
	for _, k := range keys {
		l := b.lists[k]
		if len(l) > 0 {
			v := l[len(l)-1]
			b.lists[k] = l[:len(l)-1]
			b.mu.Unlock()
			return redis.NewStringSliceResult([]string{k, v}, nil)
		}
	}
	b.mu.Unlock()
	select {
	case <-ctx.Done():
		return redis.NewStringSliceResult(nil, ctx.Err())
	case <-time.After(5 * time.Millisecond):
		return redis.NewStringSliceResult(nil, redis.Nil)
	}
}

func (b *fakeBroker) LLen(_ context.Context, key string) *redis.IntCmd {
	b.mu.Lock()
	defer b.mu.Unlock()
	return redis.NewIntResult(int64(len(b.lists[key])), nil)
}

func (b *fakeBroker) SetNX(_ context.Context, key string, _ interface{}, _ time.Duration) *redis.BoolCmd {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.keys[key] {
		return redis.NewBoolResult(false, nil)
	}
	b.keys[key] = true
	return redis.NewBoolResult(true, nil)
}

func (b *fakeBroker) pop(t *testing.T, key string) Job {
	t.Helper()
	b.mu.Lock()
	defer b.mu.Unlock()
	l := b.lists[key]
	require.NotEmpty(t, l, "lista %s vazia", key)
	var j Job
	require.NoError(t, json.Unmarshal([]byte(l[len(l)-1]), &j))
	b.lists[key] = l[:len(l)-1]
	return j
}

type handlerFunc func(ctx context.Context, payload json.RawMessage) error

func (f handlerFunc) Process(ctx context.Context, payload json.RawMessage) error { return f(ctx, payload) }

func TestDispatcher_EnqueueComprovante(t *testing.T) {
	b := newFakeBroker()
	d := NewDispatcher(b)
	id := uuid.New()
	email := "cliente@example.com"

	require.NoError(t, d.EnqueueComprovante(context.Background(), id, &email))

	job := b.pop(t, QueueComprovante)
	assert.Equal(t, JobComprovante, job.Type)
	assert.Zero(t, job.Tentativas)
	var p ComprovantePayload
	require.NoError(t, json.Unmarshal(job.Payload, &p))
	assert.Equal(t, id, p.VendaID)
	require.NotNil(t, p.ClienteEmail)
	assert.Equal(t, email, *p.ClienteEmail)
}

func TestPool_HandleSuccess(t *testing.T) {
	b := newFakeBroker()
	pool := NewPool(b, 1)
	var recebido json.RawMessage
	pool.Register(QueueEmail, handlerFunc(func(_ context.Context, p json.RawMessage) error {
		recebido = p
		return nil
	}))
	antes := testutil.ToFloat64(jobsTotal.WithLabelValues(QueueEmail, "ok"))

	raw, _ := json.Marshal(Job{Type: JobEmail, Payload: json.RawMessage(`{"para":"a@b.com"}`)})
	pool.handle(context.Background(), QueueEmail, string(raw))

	assert.JSONEq(t, `{"para":"a@b.com"}`, string(recebido))
	assert.Equal(t, antes+1, testutil.ToFloat64(jobsTotal.WithLabelValues(QueueEmail, "ok")))
}

func TestPool_RetriesThenDLQ(t *testing.T) {
	b := newFakeBroker()
	pool := NewPool(b, 1)
	chamadas := 0
	pool.Register(QueueEmail, handlerFunc(func(context.Context, json.RawMessage) error {
		chamadas++
		return errors.New("smtp indisponível")
	}))
	ctx := context.Background()

	raw, _ := json.Marshal(Job{Type: JobEmail, Payload: json.RawMessage(`{}`)})
	pool.handle(ctx, QueueEmail, string(raw))

	for i := 1; i < maxTentativas; i++ {
		job := b.pop(t, QueueEmail)
		assert.Equal(t, i, job.Tentativas)
		encoded, _ := json.Marshal(job)
		pool.handle(ctx, QueueEmail, string(encoded))
	}

	assert.Equal(t, maxTentativas, chamadas)
	n, err := DLQLength(ctx, b, QueueEmail)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	b.mu.Lock()
	var entry DLQEntry
	require.NoError(t, json.Unmarshal([]byte(b.lists[DLQPrefix+QueueEmail][0]), &entry))
	b.mu.Unlock()
	assert.Equal(t, QueueEmail, entry.Fila)
	assert.Equal(t, maxTentativas, entry.Tentativas)
	assert.Equal(t, "smtp indisponível", entry.Motivo)
	assert.False(t, entry.FalhouEm.IsZero())
	assert.Empty(t, b.lists[QueueEmail])
}

func TestPool_InvalidEnvelopeGoesToDLQ(t *testing.T) {
	b := newFakeBroker()
	pool := NewPool(b, 1)
	pool.Register(QueueComprovante, handlerFunc(func(context.Context, json.RawMessage) error { return nil }))

	pool.handle(context.Background(), QueueComprovante, "not-json")

	n, _ := DLQLength(context.Background(), b, QueueComprovante)
	assert.Equal(t, int64(1), n)
}

func TestEstadoFilas(t *testing.T) {
	b := newFakeBroker()
	ctx := context.Background()
	d := NewDispatcher(b)
	require.NoError(t, d.EnqueueComprovante(ctx, uuid.New(), nil))
	require.NoError(t, d.EnqueueComprovante(ctx, uuid.New(), nil))
	SendToDLQ(ctx, b, QueueEmail, Job{Type: JobEmail, Payload: json.RawMessage(`{}`)}, "falhou")

	estado, err := EstadoFilas(ctx, b)
	require.NoError(t, err)
	assert.Equal(t, EstadoFila{Pendentes: 2}, estado[QueueComprovante])
	assert.Equal(t, EstadoFila{DLQ: 1}, estado[QueueEmail])
}

func TestPool_RunConsumesUntilCancelled(t *testing.T) {
	b := newFakeBroker()
	d := NewDispatcher(b)
	pool := NewPool(b, 2)

	var mu sync.Mutex
	vistos := map[uuid.UUID]bool{}
	pool.Register(QueueComprovante, handlerFunc(func(_ context.Context, raw json.RawMessage) error {
		var p ComprovantePayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return err
		}
		mu.Lock()
		vistos[p.VendaID] = true
		mu.Unlock()
		return nil
	}))

	ids := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
	for _, id := range ids {
		require.NoError(t, d.EnqueueComprovante(context.Background(), id, nil))
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- pool.Run(ctx) }()

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(vistos) == len(ids)
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("pool did not stop")
	}
}

// ── ComprovanteWorker ────────────────────────────────────────────────────────

type vendaStoreStub struct {
	vendas map[uuid.UUID]*model.Venda
}

func (s *vendaStoreStub) FindByID(_ context.Context, id uuid.UUID) (*model.Venda, error) {
	v, ok := s.vendas[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *v
	return &cp, nil
}

func (s *vendaStoreStub) SetComprovantePath(_ context.Context, id uuid.UUID, path string) error {
	s.vendas[id].ComprovantePath = &path
	return nil
}

type geradorFake struct {
	dir      string
	chamadas int
}

func (g *geradorFake) Gerar(v *model.Venda) (string, error) {
	g.chamadas++
	path := filepath.Join(g.dir, "venda.pdf")
	return path, os.WriteFile(path, []byte("%PDF-1.3"), 0o644)
}

type emailFila struct{ enviados []EmailPayload }

func (f *emailFila) EnqueueEmail(_ context.Context, p EmailPayload) error {
	f.enviados = append(f.enviados, p)
	return nil
}

func payload(t *testing.T, v any) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	return raw
}

func TestComprovanteWorker(t *testing.T) {
	email := "cliente@example.com"
	venda := &model.Venda{ID: uuid.New(), Numero: 7, Total: decimal.RequireFromString("70.00"), ClienteEmail: &email}
	semEmail := &model.Venda{ID: uuid.New(), Numero: 8}

	t.Run("gera PDF e agenda e-mail", func(t *testing.T) {
		store := &vendaStoreStub{vendas: map[uuid.UUID]*model.Venda{venda.ID: venda}}
		g := &geradorFake{dir: t.TempDir()}
		fila := &emailFila{}
		w := NewComprovanteWorker(store, g, fila)

		require.NoError(t, w.Process(context.Background(), payload(t, ComprovantePayload{VendaID: venda.ID})))

		require.NotNil(t, store.vendas[venda.ID].ComprovantePath)
		require.Len(t, fila.enviados, 1)
		assert.Equal(t, email, fila.enviados[0].Para)
		assert.Equal(t, int64(7), fila.enviados[0].Numero)
		assert.True(t, decimal.RequireFromString("70").Equal(fila.enviados[0].Total))
		assert.Equal(t, *store.vendas[venda.ID].ComprovantePath, fila.enviados[0].PDFPath)

		// retry reuses the rendered file
		require.NoError(t, w.Process(context.Background(), payload(t, ComprovantePayload{VendaID: venda.ID})))
		assert.Equal(t, 1, g.chamadas)
	})

	t.Run("sem e-mail não agenda envio", func(t *testing.T) {
		store := &vendaStoreStub{vendas: map[uuid.UUID]*model.Venda{semEmail.ID: semEmail}}
		fila := &emailFila{}
		w := NewComprovanteWorker(store, &geradorFake{dir: t.TempDir()}, fila)

		require.NoError(t, w.Process(context.Background(), payload(t, ComprovantePayload{VendaID: semEmail.ID})))
		assert.Empty(t, fila.enviados)
	})

	t.Run("venda inexistente falha", func(t *testing.T) {
		w := NewComprovanteWorker(&vendaStoreStub{vendas: map[uuid.UUID]*model.Venda{}}, &geradorFake{dir: t.TempDir()}, &emailFila{})
		err := w.Process(context.Background(), payload(t, ComprovantePayload{VendaID: uuid.New()}))
		assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	})

	t.Run("payload inválido", func(t *testing.T) {
		w := NewComprovanteWorker(&vendaStoreStub{}, &geradorFake{}, &emailFila{})
		assert.Error(t, w.Process(context.Background(), json.RawMessage(`{`)))
	})
}

// ── Reprocessador ────────────────────────────────────────────────────────────

type pendentesStub struct {
	vendas     []model.Venda
	desde, ate time.Time
	err        error
}

func (p *pendentesStub) ListSemComprovante(_ context.Context, desde, ate time.Time, _ int) ([]model.Venda, error) {
	p.desde, p.ate = desde, ate
	return p.vendas, p.err
}

func TestReprocessador_Tick(t *testing.T) {
	agora := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	pend := &pendentesStub{vendas: []model.Venda{{ID: uuid.New()}, {ID: uuid.New()}}}

	t.Run("reenfileira pendentes uma única vez", func(t *testing.T) {
		b := newFakeBroker()
		r := NewReprocessador(pend, NewDispatcher(b), b)
		r.now = func() time.Time { return agora }

		assert.Equal(t, 2, r.tick(context.Background()))
		assert.Equal(t, agora.Add(-reprocessarIdadeMin), pend.ate)
		assert.Equal(t, agora.Add(-reprocessarJanela), pend.desde)

		got := map[uuid.UUID]bool{}
		for i := 0; i < 2; i++ {
			job := b.pop(t, QueueComprovante)
			var p ComprovantePayload
			require.NoError(t, json.Unmarshal(job.Payload, &p))
			got[p.VendaID] = true
		}
		assert.True(t, got[pend.vendas[0].ID])
		assert.True(t, got[pend.vendas[1].ID])

		// already marked: nothing new on the next tick
		assert.Equal(t, 0, r.tick(context.Background()))
	})

	t.Run("fila com backlog é ignorada", func(t *testing.T) {
		b := newFakeBroker()
		d := NewDispatcher(b)
		require.NoError(t, d.EnqueueComprovante(context.Background(), uuid.New(), nil))
		r := NewReprocessador(pend, d, b)

		assert.Equal(t, 0, r.tick(context.Background()))
	})

	t.Run("erro do repositório", func(t *testing.T) {
		b := newFakeBroker()
		r := NewReprocessador(&pendentesStub{err: errors.New("db down")}, NewDispatcher(b), b)
		assert.Equal(t, 0, r.tick(context.Background()))
	})
}

// ── EmailWorker ──────────────────────────────────────────────────────────────

type mailerFake struct {
	err    error
	envios int
	para   string
}

func (m *mailerFake) EnviarComprovante(_ context.Context, c infra.Comprovante) error {
	m.envios++
	m.para = c.Para
	return m.err
}

func TestEmailWorker(t *testing.T) {
	p := payload(t, EmailPayload{VendaID: uuid.New(), Numero: 3, Para: "c@x.com", PDFPath: "/tmp/v.pdf"})

	t.Run("envia", func(t *testing.T) {
		m := &mailerFake{}
		w := NewEmailWorker(m, infra.NewCircuitBreaker(infra.DefaultCBConfig()), "VL Store")
		require.NoError(t, w.Process(context.Background(), p))
		assert.Equal(t, "c@x.com", m.para)
	})

	t.Run("breaker abre após falhas", func(t *testing.T) {
		m := &mailerFake{err: errors.New("conexão recusada")}
		cb := infra.NewCircuitBreaker(infra.CircuitBreakerConfig{FailureThreshold: 2, OpenTimeout: time.Hour})
		w := NewEmailWorker(m, cb, "VL Store")

		assert.Error(t, w.Process(context.Background(), p))
		assert.Error(t, w.Process(context.Background(), p))
		err := w.Process(context.Background(), p)
		assert.ErrorIs(t, err, infra.ErrCircuitOpen)
		assert.Equal(t, 2, m.envios)
	})

	t.Run("destinatário vazio é ignorado", func(t *testing.T) {
		m := &mailerFake{}
		w := NewEmailWorker(m, infra.NewCircuitBreaker(infra.DefaultCBConfig()), "VL Store")
		require.NoError(t, w.Process(context.Background(), payload(t, EmailPayload{Numero: 1})))
		assert.Zero(t, m.envios)
	})
}
