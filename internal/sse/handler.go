package sse

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/debemdeboas/the-press/internal/config"
	"github.com/rs/zerolog"
)

// Serve streams topic's events to w until the request ends. A message of the
// form "name:data" is sent as event name with that data; any other message is
// both the event name and the data.
func (s *SSEClients) Serve(w http.ResponseWriter, r *http.Request, topic string) {
	l := zerolog.Ctx(r.Context()).With().Str("topic", topic).Logger()

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set(config.HCType, "text/event-stream")
	w.Header().Set(config.HCacheControl, "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Del("X-Content-Type-Options")

	fmt.Fprint(w, "event: connected\ndata: SSE connection established\n\n")
	flusher.Flush()

	client := NewClient(topic)
	s.Add(client)
	l.Debug().Msg("SSE client connected")

	defer func() {
		s.Delete(client)
		l.Debug().Msg("SSE client disconnected")
	}()

	done := r.Context().Done()
	for {
		select {
		case msg, ok := <-client.Msg:
			if !ok {
				return
			}
			fmt.Fprint(w, formatEvent(msg))
			flusher.Flush()
		case <-done:
			return
		}
	}
}

func formatEvent(msg string) string {
	name, data, found := strings.Cut(msg, ":")
	if !found {
		data = msg
	}
	return fmt.Sprintf("event: %s\ndata: %s\n\n", name, data)
}
