package infra

import (
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// ── Circuit breaker ───────────────────────────────────────────────────────────
// Guards the alert mailer. After FailureThreshold consecutive failures the
// breaker opens and every call fails fast for OpenTimeout; then a single probe
// is let through (half-open) and SuccessThreshold probes in a row close it.

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
	}
	return "unknown"
}

// ErrCircuitOpen is returned without calling fn while the breaker is open,
// or while another half-open probe is still running.
var ErrCircuitOpen = errors.New("circuit breaker abierto")

type CircuitBreakerConfig struct {
	Nombre           string
	FailureThreshold int
	SuccessThreshold int
	OpenTimeout      time.Duration
}

// DefaultCBConfig is the SMTP breaker: 5 failures, 60s open, 2 probes to close.
func DefaultCBConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{Nombre: "smtp", FailureThreshold: 5, SuccessThreshold: 2, OpenTimeout: time.Minute}
}

type CircuitBreaker struct {
	cfg   CircuitBreakerConfig
	ahora func() time.Time

	mu        sync.Mutex
	estado    CBState
	fallos    int
	exitos    int
	abiertoEn time.Time
	sondeando bool
}

func NewCircuitBreaker(cfg CircuitBreakerConfig) *CircuitBreaker {
	def := DefaultCBConfig()
	if cfg.Nombre == "" {
		cfg.Nombre = def.Nombre
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
	return &CircuitBreaker{cfg: cfg, ahora: time.Now}
}

func (cb *CircuitBreaker) State() CBState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.vencerApertura()
	return cb.estado
}

// Execute runs fn unless the breaker is open and records its outcome.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	cb.mu.Lock()
	cb.vencerApertura()
	switch {
	case cb.estado == CBOpen:
		cb.mu.Unlock()
		return ErrCircuitOpen
	case cb.estado == CBHalfOpen && cb.sondeando:
		cb.mu.Unlock()
		return ErrCircuitOpen
	case cb.estado == CBHalfOpen:
		cb.sondeando = true
	}
	cb.mu.Unlock()

	err := fn()

	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.sondeando = false
	if err != nil {
		cb.registrarFallo()
		return err
	}
	cb.registrarExito()
	return nil
}

// vencerApertura moves open → half-open once OpenTimeout has elapsed.
// Caller holds mu.
func (cb *CircuitBreaker) vencerApertura() {
	if cb.estado == CBOpen && cb.ahora().Sub(cb.abiertoEn) >= cb.cfg.OpenTimeout {
		cb.cambiar(CBHalfOpen)
	}
}

func (cb *CircuitBreaker) registrarFallo() {
	cb.exitos = 0
	switch cb.estado {
	case CBClosed:
		cb.fallos++
		if cb.fallos >= cb.cfg.FailureThreshold {
			cb.cambiar(CBOpen)
		}
	case CBHalfOpen:
		cb.cambiar(CBOpen)
	}
}

func (cb *CircuitBreaker) registrarExito() {
	switch cb.estado {
	case CBClosed:
		cb.fallos = 0
	case CBHalfOpen:
		cb.exitos++
		if cb.exitos >= cb.cfg.SuccessThreshold {
			cb.cambiar(CBClosed)
		}
	}
}

func (cb *CircuitBreaker) cambiar(nuevo CBState) {
	anterior := cb.estado
	cb.estado = nuevo
	cb.fallos, cb.exitos = 0, 0
	if nuevo == CBOpen {
		cb.abiertoEn = cb.ahora()
	}
	ev := log.Info()
	if nuevo == CBOpen {
		ev = log.Warn()
	}
	ev.Str("breaker", cb.cfg.Nombre).
		Str("desde", anterior.String()).
		Str("hacia", nuevo.String()).
		Msg("circuit breaker cambió de estado")
}
