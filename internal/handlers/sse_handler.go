package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/slymn80/timetables/internal/sse"
	"github.com/slymn80/timetables/pkg/response"
)

const heartbeatInterval = 30 * time.Second

// SSEHandler streams a timetable's generation log lines and final status to
// any watcher connected while a generation run is in flight.
type SSEHandler struct {
	connManager *sse.ConnectionManager
}

// NewSSEHandler wires an SSEHandler over the shared connection manager.
func NewSSEHandler(connManager *sse.ConnectionManager) *SSEHandler {
	return &SSEHandler{connManager: connManager}
}

// WatchGeneration handles GET /api/v1/schools/{schoolId}/timetables/{timetableId}/events.
func (h *SSEHandler) WatchGeneration(w http.ResponseWriter, r *http.Request) {
	timetableID, err := uuid.Parse(chi.URLParam(r, "timetableId"))
	if err != nil {
		response.BadRequest(w, response.ErrCodeInvalidInput, "Invalid timetable ID")
		return
	}

	ctx := r.Context()
	flusher, ok := w.(http.Flusher)
	if !ok {
		log.Error().Msg("SSE: ResponseWriter does not support Flusher interface")
		response.InternalError(w, "Streaming not supported")
		return
	}

	// The server's global WriteTimeout exists for ordinary request/response
	// handlers; a watch connection can legitimately sit open for the whole
	// generation run, so it must opt out of that deadline individually.
	if err := http.NewResponseController(w).SetWriteDeadline(time.Time{}); err != nil {
		log.Debug().Err(err).Msg("SSE: could not clear write deadline")
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	eventChan := sse.CreateEventChannel()
	h.connManager.AddConnection(timetableID, eventChan)
	defer func() {
		h.connManager.RemoveConnection(timetableID, eventChan)
		log.Debug().Str("timetable_id", timetableID.String()).Msg("SSE: connection closed")
	}()

	log.Debug().Str("timetable_id", timetableID.String()).Msg("SSE: connection established")

	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case event, ok := <-eventChan:
			if !ok {
				return
			}
			if err := h.writeEvent(w, flusher, event); err != nil {
				log.Error().Err(err).Str("timetable_id", timetableID.String()).Str("event_type", event.Type).Msg("SSE: failed to write event")
				return
			}
			if event.Type == "status" || event.Type == "error" {
				return
			}

		case <-ticker.C:
			if err := h.writeHeartbeat(w, flusher); err != nil {
				log.Debug().Err(err).Str("timetable_id", timetableID.String()).Msg("SSE: heartbeat failed, closing connection")
				return
			}

		case <-ctx.Done():
			log.Debug().Str("timetable_id", timetableID.String()).Msg("SSE: context cancelled")
			return
		}
	}
}

func (h *SSEHandler) writeEvent(w http.ResponseWriter, flusher http.Flusher, event sse.Event) error {
	dataBytes, err := json.Marshal(event.Data)
	if err != nil {
		return fmt.Errorf("marshal event data: %w", err)
	}

	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, string(dataBytes)); err != nil {
		return fmt.Errorf("write event: %w", err)
	}

	flusher.Flush()
	return nil
}

func (h *SSEHandler) writeHeartbeat(w http.ResponseWriter, flusher http.Flusher) error {
	if _, err := fmt.Fprint(w, ": heartbeat\n\n"); err != nil {
		return err
	}
	flusher.Flush()
	return nil
}
