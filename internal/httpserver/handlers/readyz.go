package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/MrSnakeDoc/smartmarks/internal/httpserver/deps"
	"github.com/MrSnakeDoc/smartmarks/internal/logger"
)

const pingTimeout = 2 * time.Second

type readyzResponse struct {
	Ready bool   `json:"ready"`
	Error string `json:"error,omitempty"`
}

// Readyz reports ready once both Redis and SQLite answer.
func Readyz(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-store")

		ctx, cancel := context.WithTimeout(r.Context(), pingTimeout)
		defer cancel()

		resp := readyzResponse{Ready: true}
		status := http.StatusOK
		if err := d.Backend.PingRedis(ctx); err != nil {
			resp = readyzResponse{Ready: false, Error: "redis unavailable"}
			status = http.StatusServiceUnavailable
			d.Logger.Warn("readiness check failed", logger.String("component", "redis"), logger.Error(err))
		} else if err := d.Backend.PingStorage(ctx); err != nil {
			resp = readyzResponse{Ready: false, Error: "storage unavailable"}
			status = http.StatusServiceUnavailable
			d.Logger.Warn("readiness check failed", logger.String("component", "storage"), logger.Error(err))
		}

		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(resp)
	}
}
