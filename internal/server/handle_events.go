package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/playperu/scoreboard/internal/assets"
	"github.com/playperu/scoreboard/internal/roster"
	"github.com/playperu/scoreboard/internal/scoreboard"
	"github.com/playperu/scoreboard/internal/view"
)

// startFeeds follows the live state, asset and roster collections and
// publishes every new snapshot on the broker. The returned func stops them.
func (h *handlers) startFeeds(ctx context.Context) (stop func()) {
	var stops []func()

	if h.state != nil {
		var resolver view.Resolver
		if h.assets != nil {
			resolver = view.NewCatalog(h.assets, "/api/assets")
		}
		c := view.NewController(h.state, h.notifier,
			view.RenderFunc(func(v view.View) { h.broker.Publish(topicView, v) }),
			resolver, nil, h.logger)
		c.Start(ctx)
		stops = append(stops, c.Close)
	}
	if h.assets != nil {
		stops = append(stops, h.assets.Observe(assets.Filter{}, func(list []scoreboard.Asset, err error) {
			if err != nil {
				h.logger.Warn("observing assets", "error", err)
				return
			}
			h.broker.Publish(topicAssets, list)
		}))
	}
	if h.roster != nil {
		stops = append(stops, h.roster.Observe(roster.SearchQuery{}, func(list []scoreboard.RosterEntry, err error) {
			if err != nil {
				h.logger.Warn("observing roster", "error", err)
				return
			}
			h.broker.Publish(topicRoster, list)
		}))
	}

	return func() {
		for _, s := range stops {
			s()
		}
	}
}

// handleEvents streams the snapshots of topic as Server-Sent Events, starting
// with the latest one.
func (h *handlers) handleEvents(topic string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)
		if !ok {
			writeError(w, http.StatusInternalServerError, "streaming not supported")
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("X-Accel-Buffering", "no")

		ch, latest := h.broker.Subscribe(topic)
		defer h.broker.Unsubscribe(topic, ch)

		if latest != nil {
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", topic, latest)
		}
		flusher.Flush()

		ping := time.NewTicker(30 * time.Second)
		defer ping.Stop()

		for {
			select {
			case <-r.Context().Done():
				return
			case data := <-ch:
				fmt.Fprintf(w, "event: %s\ndata: %s\n\n", topic, data)
				flusher.Flush()
			case <-ping.C:
				fmt.Fprintf(w, ": ping\n\n")
				flusher.Flush()
			}
		}
	}
}
