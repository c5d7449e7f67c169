package breaker

import (
	"errors"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// ErrOpen возвращается, когда вызов отклонён открытым breaker.
var ErrOpen = errors.New("circuit breaker is open")

// State — состояние circuit breaker.
type State int

const (
	// StateClosed — вызовы проходят, сбои считаются.
	StateClosed State = iota
	// StateOpen — вызовы отклоняются сразу, без обращения к зависимости.
	StateOpen
	// StateHalfOpen — пропускается один пробный вызов для проверки восстановления.
	StateHalfOpen
)

// String возвращает имя состояния для логов и метрик.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// Config задаёт политику переходов breaker.
type Config struct {
	// FailureThreshold — число сбоев в окне, после которого breaker открывается.
	FailureThreshold int
	// Window — скользящее окно подсчёта сбоев.
	Window time.Duration
	// Cooldown — пауза в Open перед пробным вызовом.
	Cooldown time.Duration
}

// DefaultConfig возвращает политику по умолчанию.
func DefaultConfig() Config {
	return Config{
		FailureThreshold: 5,
		Window:           30 * time.Second,
		Cooldown:         10 * time.Second,
	}
}

// Breaker — потокобезопасный circuit breaker для одного вида операции.
// Счётчики сбоев — общее мутирующее состояние; все обращения идут под mu.
type Breaker struct {
	name   string
	cfg    Config
	logger *log.Entry
	now    func() time.Time

	// onStateChange вызывается при каждом переходе (для метрик/health).
	onStateChange func(name string, state State)

	mu       sync.Mutex
	state    State
	failures []time.Time
	openedAt time.Time
	probing  bool
}

// New создаёт breaker c именем операции, которую он защищает.
func New(name string, cfg Config, logger *log.Entry) *Breaker {
	if logger == nil {
		logger = log.New().WithField("component", "circuit-breaker")
	}
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = DefaultConfig().FailureThreshold
	}
	if cfg.Window <= 0 {
		cfg.Window = DefaultConfig().Window
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = DefaultConfig().Cooldown
	}

	return &Breaker{
		name:   name,
		cfg:    cfg,
		logger: logger.WithField("breaker", name),
		now:    time.Now,
		state:  StateClosed,
	}
}

// OnStateChange регистрирует наблюдателя переходов состояния.
func (b *Breaker) OnStateChange(fn func(name string, state State)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onStateChange = fn
}

// Name возвращает имя защищаемой операции.
func (b *Breaker) Name() string {
	return b.name
}

// State возвращает текущее состояние с учётом истёкшего cooldown.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refreshLocked(b.now())
	return b.state
}

// Do выполняет fn под защитой breaker. isFailure отделяет сбои зависимости
// от бизнес-ошибок: последние проходят насквозь и не двигают счётчики.
// В состоянии Open возвращается ErrOpen без вызова fn.
func (b *Breaker) Do(fn func() error, isFailure func(error) bool) error {
	now := b.now()

	b.mu.Lock()
	b.refreshLocked(now)

	switch b.state {
	case StateOpen:
		b.mu.Unlock()
		return ErrOpen
	case StateHalfOpen:
		// В half-open пропускаем ровно один пробный вызов.
		if b.probing {
			b.mu.Unlock()
			return ErrOpen
		}
		b.probing = true
	}
	b.mu.Unlock()

	err := fn()

	failed := err != nil && (isFailure == nil || isFailure(err))

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == StateHalfOpen {
		b.probing = false
		if failed {
			b.transitionLocked(StateOpen, now)
			return err
		}
		b.failures = nil
		b.transitionLocked(StateClosed, now)
		return err
	}

	if failed {
		b.failures = append(b.failures, now)
		b.pruneLocked(now)
		if len(b.failures) >= b.cfg.FailureThreshold {
			b.transitionLocked(StateOpen, now)
		}
	}

	return err
}

// refreshLocked переводит Open → HalfOpen после cooldown. Вызывается под mu.
func (b *Breaker) refreshLocked(now time.Time) {
	if b.state == StateOpen && now.Sub(b.openedAt) >= b.cfg.Cooldown {
		b.transitionLocked(StateHalfOpen, now)
	}
}

// pruneLocked выбрасывает сбои, вышедшие за скользящее окно.
func (b *Breaker) pruneLocked(now time.Time) {
	cutoff := now.Add(-b.cfg.Window)
	kept := b.failures[:0]
	for _, ts := range b.failures {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	b.failures = kept
}

func (b *Breaker) transitionLocked(next State, now time.Time) {
	if b.state == next {
		return
	}
	prev := b.state
	b.state = next
	if next == StateOpen {
		b.openedAt = now
	}

	entry := b.logger.WithFields(log.Fields{
		"from": prev.String(),
		"to":   next.String(),
	})
	switch next {
	case StateOpen:
		entry.Warn("circuit breaker opened")
	default:
		entry.Info("circuit breaker state changed")
	}

	if b.onStateChange != nil {
		b.onStateChange(b.name, next)
	}
}
