package handlers

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/MrSnakeDoc/smartmarks/internal/guard"
	"github.com/MrSnakeDoc/smartmarks/internal/httpserver/deps"
	"github.com/MrSnakeDoc/smartmarks/internal/logger"
	"github.com/MrSnakeDoc/smartmarks/internal/session"
	"github.com/MrSnakeDoc/smartmarks/internal/web"
)

const defaultHeartbeat = 25 * time.Second

// Events streams the view to its tab as server-sent events:
//
//	bookmarks  the list fragment, on connect and after every change
//	signedout  the session ended elsewhere; data is where to go
//
// The stream also follows the session's auth transitions, so signing out
// in another tab ends it, and re-checks the session on every heartbeat.
// A stream that ends because the user changed closes its view.
func Events(d deps.Deps) http.HandlerFunc {
	heartbeat := d.StreamHeartbeat
	if heartbeat <= 0 {
		heartbeat = defaultHeartbeat
	}

	return func(w http.ResponseWriter, r *http.Request) {
		v, ok := viewFor(d, w, r)
		if !ok {
			return
		}
		p := session.FromContext(r.Context())
		log := d.Logger.With(logger.String("view_id", v.ID()))

		rc := http.NewResponseController(w)
		// The server write timeout would cut the stream.
		if err := rc.SetWriteDeadline(time.Time{}); err != nil {
			log.Debug("cannot clear write deadline", logger.Error(err))
		}

		signedOut := make(chan string, 1)
		stopListening := p.Listen(func(s session.State) {
			if path, ok := guard.Check(s); ok {
				select {
				case signedOut <- path:
				default:
				}
			}
		})
		defer stopListening()
		if err := p.Subscribe(r.Context()); err != nil {
			log.Warn("stream without auth updates", logger.Error(err))
		}

		// sessionGone reports a session that ended without an auth event,
		// such as one expired by its TTL.
		sessionGone := func() bool {
			s, err := d.Backend.GetSession(r.Context(), p.Token())
			if err != nil {
				log.Debug("session check failed", logger.Error(err))
				return false
			}
			return s == nil
		}

		detach := v.Attach()
		defer detach()

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("X-Accel-Buffering", "no")
		w.WriteHeader(http.StatusOK)

		send := func(event, data string) bool {
			if err := writeEvent(w, event, data); err != nil {
				return false
			}
			return rc.Flush() == nil
		}
		snapshot := func() bool {
			html, err := d.Renderer.ListString(web.ListData{ViewID: v.ID(), Items: v.Items()})
			if err != nil {
				log.Error("failed to render list", logger.Error(err))
				return true
			}
			return send("bookmarks", html)
		}

		if !snapshot() {
			return
		}

		ticker := time.NewTicker(heartbeat)
		defer ticker.Stop()

		for {
			select {
			case <-r.Context().Done():
				return
			case <-v.Done():
				// Closed by a sign-out elsewhere, or swept.
				if sessionGone() {
					send("signedout", guard.LoginPath)
				}
				return
			case path := <-signedOut:
				send("signedout", path)
				d.Views.Remove(v.ID())
				return
			case <-v.Changed():
				if !snapshot() {
					return
				}
			case <-ticker.C:
				if sessionGone() {
					send("signedout", guard.LoginPath)
					d.Views.Remove(v.ID())
					return
				}
				if _, err := io.WriteString(w, ": ping\n\n"); err != nil {
					return
				}
				if rc.Flush() != nil {
					return
				}
			}
		}
	}
}

// writeEvent writes one SSE frame. Multi-line data becomes one data: line
// per line.
func writeEvent(w io.Writer, event, data string) error {
	var b strings.Builder
	fmt.Fprintf(&b, "event: %s\n", event)
	for _, line := range strings.Split(data, "\n") {
		b.WriteString("data: ")
		b.WriteString(line)
		b.WriteByte('\n')
	}
	b.WriteByte('\n')
	_, err := io.WriteString(w, b.String())
	return err
}
