package health

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"vstocks/internal/httputil"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Handler struct {
	pool      *pgxpool.Pool
	startedAt time.Time
}

func NewHandler(pool *pgxpool.Pool, startedAt time.Time) *Handler {
	start := startedAt.UTC()
	if start.IsZero() {
		start = time.Now().UTC()
	}
	return &Handler{pool: pool, startedAt: start}
}

type healthResponse struct {
	Status     string        `json:"status"`
	Timestamp  string        `json:"timestamp"`
	UptimeSec  int64         `json:"uptime_sec"`
	Goroutines int           `json:"goroutines"`
	GoVersion  string        `json:"go_version"`
	Database   databaseStats `json:"database"`
}

type databaseStats struct {
	Reachable bool   `json:"reachable"`
	PingMs    int64  `json:"ping_ms"`
	Conns     int32  `json:"conns"`
	IdleConns int32  `json:"idle_conns"`
	Error     string `json:"error,omitempty"`
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	now := time.Now().UTC()
	resp := healthResponse{
		Status:     "ok",
		Timestamp:  now.Format(time.RFC3339),
		UptimeSec:  int64(now.Sub(h.startedAt).Seconds()),
		Goroutines: runtime.NumGoroutine(),
		GoVersion:  runtime.Version(),
		Database:   h.collectDB(r.Context()),
	}
	status := http.StatusOK
	if !resp.Database.Reachable {
		resp.Status = "degraded"
		status = http.StatusServiceUnavailable
	}
	httputil.WriteJSON(w, status, resp)
}

func (h *Handler) collectDB(ctx context.Context) databaseStats {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	started := time.Now()
	err := h.pool.Ping(ctx)
	stats := h.pool.Stat()
	out := databaseStats{
		Reachable: err == nil,
		PingMs:    time.Since(started).Milliseconds(),
		Conns:     stats.TotalConns(),
		IdleConns: stats.IdleConns(),
	}
	if err != nil {
		out.Error = err.Error()
	}
	return out
}
