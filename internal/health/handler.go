package health

import (
	"context"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/eleven-am/formpulse/internal/analytics"
	"github.com/eleven-am/formpulse/internal/live"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

type ComponentStatus struct {
	Status    Status `json:"status"`
	LatencyMs int64  `json:"latency_ms"`
	Error     string `json:"error,omitempty"`
}

type RuntimeStats struct {
	Goroutines    int    `json:"goroutines"`
	MemoryAllocMB uint64 `json:"memory_alloc_mb"`
	MemorySysMB   uint64 `json:"memory_sys_mb"`
	NumGC         uint32 `json:"num_gc"`
}

type RequestStats struct {
	TotalRequests     uint64 `json:"total_requests"`
	ActiveConnections int64  `json:"active_connections"`
}

type Stats struct {
	Live     live.Stats           `json:"live"`
	Queue    analytics.QueueStats `json:"queue"`
	Requests RequestStats         `json:"requests"`
	Runtime  RuntimeStats         `json:"runtime"`
}

type HealthResponse struct {
	Status        Status                     `json:"status"`
	Timestamp     time.Time                  `json:"timestamp"`
	Version       string                     `json:"version"`
	UptimeSeconds int64                      `json:"uptime_seconds"`
	Components    map[string]ComponentStatus `json:"components"`
}

type Handler struct {
	db        *gorm.DB
	redis     *redis.Client
	hub       *live.Hub
	analytics *analytics.Service
	version   string
	startTime time.Time

	totalRequests     uint64
	activeConnections int64
}

func NewHandler(db *gorm.DB, redisClient *redis.Client, hub *live.Hub, svc *analytics.Service, version string) *Handler {
	return &Handler{
		db:        db,
		redis:     redisClient,
		hub:       hub,
		analytics: svc,
		version:   version,
		startTime: time.Now(),
	}
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.Health)
	e.GET("/healthz/stats", h.Stats)
}

func (h *Handler) IncrementRequests() {
	atomic.AddUint64(&h.totalRequests, 1)
}

func (h *Handler) IncrementConnections() {
	atomic.AddInt64(&h.activeConnections, 1)
}

func (h *Handler) DecrementConnections() {
	atomic.AddInt64(&h.activeConnections, -1)
}

func (h *Handler) Health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	components := map[string]ComponentStatus{
		"database": h.checkDatabase(ctx),
		"redis":    h.checkRedis(ctx),
	}

	overall := StatusHealthy
	for _, comp := range components {
		if comp.Status == StatusUnhealthy {
			overall = StatusDegraded
		}
	}
	code := http.StatusOK
	if overall != StatusHealthy {
		code = http.StatusServiceUnavailable
	}

	return c.JSON(code, HealthResponse{
		Status:        overall,
		Timestamp:     time.Now().UTC(),
		Version:       h.version,
		UptimeSeconds: int64(time.Since(h.startTime).Seconds()),
		Components:    components,
	})
}

func (h *Handler) Stats(c echo.Context) error {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	return c.JSON(http.StatusOK, Stats{
		Live:  h.hub.Stats(),
		Queue: h.analytics.QueueStats(),
		Requests: RequestStats{
			TotalRequests:     atomic.LoadUint64(&h.totalRequests),
			ActiveConnections: atomic.LoadInt64(&h.activeConnections),
		},
		Runtime: RuntimeStats{
			Goroutines:    runtime.NumGoroutine(),
			MemoryAllocMB: mem.Alloc / 1024 / 1024,
			MemorySysMB:   mem.Sys / 1024 / 1024,
			NumGC:         mem.NumGC,
		},
	})
}

func (h *Handler) checkDatabase(ctx context.Context) ComponentStatus {
	start := time.Now()
	sqlDB, err := h.db.DB()
	if err == nil {
		err = sqlDB.PingContext(ctx)
	}
	return componentStatus(start, err)
}

func (h *Handler) checkRedis(ctx context.Context) ComponentStatus {
	if h.redis == nil {
		return ComponentStatus{Status: StatusDegraded, Error: "not configured"}
	}
	start := time.Now()
	err := h.redis.Ping(ctx).Err()
	return componentStatus(start, err)
}

func componentStatus(start time.Time, err error) ComponentStatus {
	status := ComponentStatus{
		Status:    StatusHealthy,
		LatencyMs: time.Since(start).Milliseconds(),
	}
	if err != nil {
		status.Status = StatusUnhealthy
		status.Error = err.Error()
	}
	return status
}
