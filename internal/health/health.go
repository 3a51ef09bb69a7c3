// Package health отдаёт HTTP-пробы сервиса витрины: /healthz, /livez, /readyz.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"sync"
	"time"
)

// Status представляет статус компонента
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusUnhealthy Status = "unhealthy"
	StatusDegraded  Status = "degraded"
)

// DefaultCheckTimeout ограничивает одну проверку компонента.
const DefaultCheckTimeout = 2 * time.Second

// Check представляет проверку здоровья компонента
type Check struct {
	Name       string `json:"name"`
	Status     Status `json:"status"`
	Message    string `json:"message,omitempty"`
	DurationMs int64  `json:"duration_ms"`
}

// Response представляет ответ health check
type Response struct {
	Status        Status           `json:"status"`
	Timestamp     time.Time        `json:"timestamp"`
	Checks        map[string]Check `json:"checks,omitempty"`
	Version       string           `json:"version,omitempty"`
	UptimeSeconds int64            `json:"uptime_seconds"`
}

// Checker проверяет один компонент: хранилище сессий, брокер событий.
type Checker interface {
	Check(ctx context.Context) Check
}

// Handler обрабатывает health check запросы
type Handler struct {
	mu        sync.RWMutex
	checkers  map[string]Checker
	version   string
	startTime time.Time
	timeout   time.Duration
}

// NewHandler создаёт новый health handler
func NewHandler(version string) *Handler {
	return &Handler{
		checkers:  make(map[string]Checker),
		version:   version,
		startTime: time.Now(),
		timeout:   DefaultCheckTimeout,
	}
}

// RegisterChecker регистрирует проверку компонента
func (h *Handler) RegisterChecker(name string, checker Checker) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checkers[name] = checker
}

// Run выполняет все проверки и сводит их в общий статус.
func (h *Handler) Run(ctx context.Context) Response {
	checks := h.runChecks(ctx)

	overall := StatusHealthy
	for _, check := range checks {
		switch check.Status {
		case StatusUnhealthy:
			overall = StatusUnhealthy
		case StatusDegraded:
			if overall == StatusHealthy {
				overall = StatusDegraded
			}
		}
	}

	return Response{
		Status:        overall,
		Timestamp:     time.Now().UTC(),
		Checks:        checks,
		Version:       h.version,
		UptimeSeconds: int64(time.Since(h.startTime).Seconds()),
	}
}

// ServeHTTP отдаёт полный JSON-отчёт; 503 только для unhealthy.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	response := h.Run(r.Context())

	statusCode := http.StatusOK
	if response.Status == StatusUnhealthy {
		statusCode = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(response)
}

// LivenessHandler простой liveness probe (всегда возвращает 200)
func LivenessHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// ReadinessHandler: degraded компонент (например, брокер) не снимает готовность.
func (h *Handler) ReadinessHandler(w http.ResponseWriter, r *http.Request) {
	for _, check := range h.runChecks(r.Context()) {
		if check.Status == StatusUnhealthy {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("not ready"))
			return
		}
	}

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func (h *Handler) runChecks(ctx context.Context) map[string]Check {
	h.mu.RLock()
	names := make([]string, 0, len(h.checkers))
	checkers := make(map[string]Checker, len(h.checkers))
	for name, checker := range h.checkers {
		names = append(names, name)
		checkers[name] = checker
	}
	h.mu.RUnlock()
	sort.Strings(names)

	checks := make(map[string]Check, len(names))
	for _, name := range names {
		checkCtx, cancel := context.WithTimeout(ctx, h.timeout)
		checks[name] = checkers[name].Check(checkCtx)
		cancel()
	}
	return checks
}

// FuncChecker - проверка на основе функции.
type FuncChecker struct {
	name     string
	checkFn  func(ctx context.Context) error
	critical bool
}

// NewChecker создаёт критичную проверку: ошибка делает сервис unhealthy.
func NewChecker(name string, checkFn func(ctx context.Context) error) *FuncChecker {
	return &FuncChecker{name: name, checkFn: checkFn, critical: true}
}

// NewOptionalChecker создаёт некритичную проверку: ошибка даёт degraded.
func NewOptionalChecker(name string, checkFn func(ctx context.Context) error) *FuncChecker {
	return &FuncChecker{name: name, checkFn: checkFn}
}

// Pinger - то, что умеет PingContext (например, *sql.DB).
type Pinger interface {
	PingContext(ctx context.Context) error
}

// NewPingChecker проверяет доступность базы.
func NewPingChecker(name string, pinger Pinger) *FuncChecker {
	return NewChecker(name, pinger.PingContext)
}

// Check выполняет проверку
func (c *FuncChecker) Check(ctx context.Context) Check {
	start := time.Now()
	err := c.checkFn(ctx)
	duration := time.Since(start)

	if err == nil {
		return Check{Name: c.name, Status: StatusHealthy, DurationMs: duration.Milliseconds()}
	}

	status := StatusDegraded
	if c.critical {
		status = StatusUnhealthy
	}
	return Check{
		Name:       c.name,
		Status:     status,
		Message:    err.Error(),
		DurationMs: duration.Milliseconds(),
	}
}
