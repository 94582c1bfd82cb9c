package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/MrSnakeDoc/smartmarks/internal/httpserver/deps"
)

type componentStatus struct {
	OK        bool   `json:"ok"`
	ViewsOpen *int   `json:"views_open,omitempty"`
	LastSweep string `json:"last_sweep,omitempty"`
	Impact    string `json:"impact,omitempty"`
	Error     string `json:"error,omitempty"`
}

type infraResponse struct {
	Mode       string                     `json:"mode"`
	Components map[string]componentStatus `json:"components"`
}

func Infra(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-store")

		viewsOpen := d.Views.Count()
		lastSweep := d.Views.GetLastSweep()
		lastSweepStr := "never"
		if !lastSweep.IsZero() {
			lastSweepStr = lastSweep.Format("2006-01-02 15:04:05")
		}

		components := map[string]componentStatus{
			"redis":   check(r.Context(), d.Backend.PingRedis, "sign-in-and-realtime-disabled"),
			"storage": check(r.Context(), d.Backend.PingStorage, "bookmarks-unavailable"),
			"views": {
				OK:        true,
				ViewsOpen: &viewsOpen,
				LastSweep: lastSweepStr,
			},
		}

		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(infraResponse{
			Mode:       determineMode(components),
			Components: components,
		})
	}
}

func determineMode(components map[string]componentStatus) string {
	if storage, ok := components["storage"]; ok && !storage.OK {
		return "critical"
	}
	if redis, ok := components["redis"]; ok && !redis.OK {
		return "degraded"
	}
	return "operational"
}

func check(parent context.Context, ping func(context.Context) error, impact string) componentStatus {
	ctx, cancel := context.WithTimeout(parent, pingTimeout)
	defer cancel()

	if err := ping(ctx); err != nil {
		return componentStatus{OK: false, Impact: impact, Error: err.Error()}
	}
	return componentStatus{OK: true}
}
