package health

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/YASSINE-ABHIR/ecommerce-microservices-app/internal/service/breaker"
)

// Status — итоговое состояние компонента.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

// Check — результат одной проверки.
type Check struct {
	Name       string `json:"name"`
	Status     Status `json:"status"`
	Message    string `json:"message,omitempty"`
	DurationMs int64  `json:"duration_ms"`
}

// Response — агрегированный ответ /healthz.
type Response struct {
	Status        Status           `json:"status"`
	Timestamp     time.Time        `json:"timestamp"`
	Checks        map[string]Check `json:"checks,omitempty"`
	Version       string           `json:"version,omitempty"`
	UptimeSeconds int64            `json:"uptime_seconds"`
}

// Checker проверяет один компонент.
type Checker interface {
	Check() Check
}

// Handler агрегирует зарегистрированные проверки. Degraded не роняет
// readiness: открытый breaker — штатный режим деградации, а не отказ.
type Handler struct {
	mu        sync.RWMutex
	checkers  map[string]Checker
	version   string
	startTime time.Time
}

// NewHandler создаёт handler с версией сборки.
func NewHandler(version string) *Handler {
	return &Handler{
		checkers:  make(map[string]Checker),
		version:   version,
		startTime: time.Now(),
	}
}

// RegisterChecker добавляет проверку компонента.
func (h *Handler) RegisterChecker(name string, checker Checker) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checkers[name] = checker
}

func (h *Handler) snapshot() map[string]Checker {
	h.mu.RLock()
	defer h.mu.RUnlock()

	checkers := make(map[string]Checker, len(h.checkers))
	for name, checker := range h.checkers {
		checkers[name] = checker
	}
	return checkers
}

// ServeHTTP выполняет все проверки и отдаёт агрегированный статус.
func (h *Handler) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	checks := make(map[string]Check)
	overall := StatusHealthy

	for name, checker := range h.snapshot() {
		check := checker.Check()
		checks[name] = check

		switch check.Status {
		case StatusUnhealthy:
			overall = StatusUnhealthy
		case StatusDegraded:
			if overall == StatusHealthy {
				overall = StatusDegraded
			}
		}
	}

	code := http.StatusOK
	if overall == StatusUnhealthy {
		code = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(Response{
		Status:        overall,
		Timestamp:     time.Now(),
		Checks:        checks,
		Version:       h.version,
		UptimeSeconds: int64(time.Since(h.startTime).Seconds()),
	})
}

// LivenessHandler — liveness probe, всегда 200.
func LivenessHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// ReadinessHandler отвечает 503, только если какой-то компонент unhealthy.
func (h *Handler) ReadinessHandler(w http.ResponseWriter, _ *http.Request) {
	for _, checker := range h.snapshot() {
		if checker.Check().Status == StatusUnhealthy {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("not ready"))
			return
		}
	}

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// FuncChecker — проверка из функции: ошибка означает unhealthy.
type FuncChecker struct {
	name string
	fn   func() error
}

// NewFuncChecker создаёт проверку из функции.
func NewFuncChecker(name string, fn func() error) *FuncChecker {
	return &FuncChecker{name: name, fn: fn}
}

// Check выполняет функцию и переводит ошибку в статус.
func (c *FuncChecker) Check() Check {
	start := time.Now()
	err := c.fn()
	elapsed := time.Since(start)

	if err != nil {
		return Check{
			Name:       c.name,
			Status:     StatusUnhealthy,
			Message:    err.Error(),
			DurationMs: elapsed.Milliseconds(),
		}
	}
	return Check{Name: c.name, Status: StatusHealthy, DurationMs: elapsed.Milliseconds()}
}

// BreakerChecker докладывает degraded, если хотя бы один breaker склада
// не закрыт. Сервис при этом остаётся ready: заказы деградируют до
// fallback-ответов, но процесс жив.
type BreakerChecker struct {
	name   string
	states func() map[string]breaker.State
}

// NewBreakerChecker создаёт проверку поверх снимка состояний breaker'ов.
func NewBreakerChecker(name string, states func() map[string]breaker.State) *BreakerChecker {
	return &BreakerChecker{name: name, states: states}
}

// Check собирает не-закрытые breaker'ы в сообщение.
func (c *BreakerChecker) Check() Check {
	start := time.Now()

	var tripped []string
	for op, state := range c.states() {
		if state != breaker.StateClosed {
			tripped = append(tripped, fmt.Sprintf("%s=%s", op, state))
		}
	}
	elapsed := time.Since(start)

	if len(tripped) == 0 {
		return Check{Name: c.name, Status: StatusHealthy, DurationMs: elapsed.Milliseconds()}
	}

	sort.Strings(tripped)
	return Check{
		Name:       c.name,
		Status:     StatusDegraded,
		Message:    "circuit breakers tripped: " + strings.Join(tripped, ", "),
		DurationMs: elapsed.Milliseconds(),
	}
}
