package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// Pinger is anything the health check can probe (the Postgres pool).
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Health answers {"status":"ok"}; with a pinger it also reports the
// database and answers 503 when it is down.
func Health(db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body := map[string]string{"status": "ok"}
		code := http.StatusOK
		if db != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := db.PingContext(ctx); err != nil {
				body["status"], body["db"] = "degraded", err.Error()
				code = http.StatusServiceUnavailable
			} else {
				body["db"] = "ok"
			}
		}
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(body)
	}
}
