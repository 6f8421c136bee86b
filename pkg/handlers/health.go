package handlers

import (
	"context"
	"net/http"
	"time"
)

// Health reports that the process is serving requests.
func Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// CheckResult is the outcome of one readiness probe.
type CheckResult struct {
	Status    string `json:"status"`
	LatencyMs int64  `json:"latency_ms"`
	Error     string `json:"error,omitempty"`
}

type pinger func(ctx context.Context) error

func check(ctx context.Context, ping pinger) CheckResult {
	start := time.Now()
	err := ping(ctx)
	res := CheckResult{Status: "up", LatencyMs: time.Since(start).Milliseconds()}
	if err != nil {
		res.Status = "down"
		res.Error = err.Error()
	}
	return res
}

// Ready pings the feedback database and the session store. It answers 503
// when either is unreachable.
func (app *Application) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	dbResult := make(chan CheckResult, 1)
	storeResult := make(chan CheckResult, 1)
	go func() { dbResult <- check(ctx, app.DB.Ping) }()
	go func() { storeResult <- check(ctx, app.Sessions.Store.Ping) }()
	dbCheck, storeCheck := <-dbResult, <-storeResult

	status, code := "ready", http.StatusOK
	if dbCheck.Status != "up" || storeCheck.Status != "up" {
		status, code = "not_ready", http.StatusServiceUnavailable
	}
	respondJSON(w, code, map[string]any{
		"status":    status,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"checks": map[string]CheckResult{
			"database":      dbCheck,
			"session_store": storeCheck,
		},
	})
}
