package health

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"retrocede/internal/httputil"
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

type liveResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	UptimeSec int64  `json:"uptime_sec"`
}

type readyResponse struct {
	Status   string        `json:"status"`
	Database databaseState `json:"database"`
}

type databaseState struct {
	Reachable bool   `json:"reachable"`
	PingMs    int64  `json:"ping_ms"`
	Error     string `json:"error,omitempty"`
}

func (h *Handler) uptime(now time.Time) time.Duration {
	uptime := now.Sub(h.startedAt)
	if uptime < 0 {
		return 0
	}
	return uptime
}

// Live does not check database reachability.
func (h *Handler) Live(w http.ResponseWriter, r *http.Request) {
	now := time.Now().UTC()
	httputil.WriteJSON(w, http.StatusOK, liveResponse{
		Status:    "ok",
		Timestamp: now.Format(time.RFC3339),
		UptimeSec: int64(h.uptime(now).Seconds()),
	})
}

// Ready checks the database and returns 503 when it is not reachable.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	db := databaseState{}
	if h.pool != nil {
		ctx, cancel := context.WithTimeout(r.Context(), time.Second)
		start := time.Now()
		err := h.pool.Ping(ctx)
		cancel()
		db.PingMs = time.Since(start).Milliseconds()
		if err != nil {
			db.Error = err.Error()
		} else {
			db.Reachable = true
		}
	} else {
		db.Error = "pool is not configured"
	}

	status := "ok"
	httpStatus := http.StatusOK
	if !db.Reachable {
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable
	}
	httputil.WriteJSON(w, httpStatus, readyResponse{Status: status, Database: db})
}
