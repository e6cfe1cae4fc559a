package infra

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"
)

// CBState is the state of a CircuitBreaker. Closed lets calls through, Open
// fails them fast with ErrCircuitOpen and HalfOpen admits probes until
// SuccessThreshold consecutive successes close it again.
type CBState int

const (
	CBClosed CBState = iota
	CBOpen
	CBHalfOpen
)

func (s CBState) String() string {
	switch s {
	case CBClosed:
		return "closed"
	case CBOpen:
		return "open"
	case CBHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

var ErrCircuitOpen = errors.New("circuit breaker is open")

var cbStateGauge = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Name: "vlstore_circuit_breaker_state",
	Help: "Estado do circuit breaker: 0 closed, 1 open, 2 half-open.",
}, []string{"name"})

type CircuitBreakerConfig struct {
	Name             string        // label in logs and metrics
	FailureThreshold int           // consecutive failures that open the circuit
	SuccessThreshold int           // half-open successes that close it
	OpenTimeout      time.Duration // time spent open before probing
}

// DefaultCBConfig is tuned for the SMTP relay: a relay that rejects five
// sends in a row is left alone for a minute.
func DefaultCBConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Name:             "smtp",
		FailureThreshold: 5,
		SuccessThreshold: 2,
		OpenTimeout:      time.Minute,
	}
}

type CircuitBreaker struct {
	mu        sync.Mutex
	name      string
	state     CBState
	falhas    int
	sucessos  int
	abertoEm  time.Time
	maxFalhas int
	minOK     int
	espera    time.Duration
	now       func() time.Time
}

func NewCircuitBreaker(cfg CircuitBreakerConfig) *CircuitBreaker {
	def := DefaultCBConfig()
	if cfg.Name == "" {
		cfg.Name = def.Name
	}
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = def.FailureThreshold
	}
	if cfg.SuccessThreshold <= 0 {
		cfg.SuccessThreshold = def.SuccessThreshold
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = def.OpenTimeout
	}
	cb := &CircuitBreaker{
		name:      cfg.Name,
		maxFalhas: cfg.FailureThreshold,
		minOK:     cfg.SuccessThreshold,
		espera:    cfg.OpenTimeout,
		now:       time.Now,
	}
	cbStateGauge.WithLabelValues(cb.name).Set(float64(CBClosed))
	return cb
}

// State reports the current state. An open circuit whose timeout elapsed is
// reported (and moved to) half-open.
func (cb *CircuitBreaker) State() CBState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if cb.state == CBOpen && cb.now().Sub(cb.abertoEm) >= cb.espera {
		cb.transicao(CBHalfOpen)
	}
	return cb.state
}

// Execute runs fn unless the circuit is open. Cancellation is the caller's
// doing, so a cancelled ctx never counts against the dependency.
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if cb.State() == CBOpen {
		return ErrCircuitOpen
	}

	err := fn(ctx)
	if errors.Is(err, context.Canceled) {
		return err
	}

	cb.mu.Lock()
	defer cb.mu.Unlock()
	if err != nil {
		cb.falhou()
		return err
	}
	cb.funcionou()
	return nil
}

// falhou and funcionou run under cb.mu.
func (cb *CircuitBreaker) falhou() {
	cb.falhas++
	switch cb.state {
	case CBClosed:
		if cb.falhas >= cb.maxFalhas {
			cb.abrir()
		}
	case CBHalfOpen:
		cb.abrir()
	}
}

func (cb *CircuitBreaker) funcionou() {
	switch cb.state {
	case CBClosed:
		cb.falhas = 0
	case CBHalfOpen:
		cb.sucessos++
		if cb.sucessos >= cb.minOK {
			cb.transicao(CBClosed)
		}
	}
}

func (cb *CircuitBreaker) abrir() {
	cb.abertoEm = cb.now()
	cb.transicao(CBOpen)
}

func (cb *CircuitBreaker) transicao(s CBState) {
	if cb.state == s {
		return
	}
	log.Warn().Str("breaker", cb.name).Str("de", cb.state.String()).Str("para", s.String()).Msg("circuit breaker mudou de estado")
	cb.state = s
	cb.falhas = 0
	cb.sucessos = 0
	cbStateGauge.WithLabelValues(cb.name).Set(float64(s))
}
