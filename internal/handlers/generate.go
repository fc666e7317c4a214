package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/slymn80/timetables/internal/engine"
	"github.com/slymn80/timetables/internal/sse"
	"github.com/slymn80/timetables/pkg/concurrent"
	"github.com/slymn80/timetables/pkg/metrics"
	"github.com/slymn80/timetables/pkg/response"
)

// GenerateHandler triggers and streams timetable generation runs.
type GenerateHandler struct {
	driver      *engine.Driver
	connManager *sse.ConnectionManager
}

// NewGenerateHandler wires a GenerateHandler over the driver and the SSE
// connection manager used to stream its log lines.
func NewGenerateHandler(driver *engine.Driver, connManager *sse.ConnectionManager) *GenerateHandler {
	return &GenerateHandler{driver: driver, connManager: connManager}
}

// TriggerGenerate handles POST /api/v1/schools/{schoolId}/timetables/{timetableId}/generate.
// The algorithm is chosen by an optional "algorithm" query parameter
// ("heuristic" or "cpsat"), defaulting to the heuristic strategy. The run
// happens in the background; progress is available over SSE on Watch.
func (h *GenerateHandler) TriggerGenerate(w http.ResponseWriter, r *http.Request) {
	schoolID, err := uuid.Parse(chi.URLParam(r, "schoolId"))
	if err != nil {
		response.BadRequest(w, response.ErrCodeInvalidInput, "Invalid school ID")
		return
	}
	timetableID, err := uuid.Parse(chi.URLParam(r, "timetableId"))
	if err != nil {
		response.BadRequest(w, response.ErrCodeInvalidInput, "Invalid timetable ID")
		return
	}

	algo := engine.AlgorithmHeuristic
	if q := r.URL.Query().Get("algorithm"); q == string(engine.AlgorithmCPSAT) {
		algo = engine.AlgorithmCPSAT
	}

	// The request's own context is cancelled as soon as TriggerGenerate
	// returns, but the generation itself keeps running in the background far
	// past that point (up to the CP-SAT strategy's full time budget), so it
	// must not inherit the request's cancellation.
	ctx := context.WithoutCancel(r.Context())
	metrics.ActiveGenerations.Inc()

	concurrent.SafeGo(func() {
		defer metrics.ActiveGenerations.Dec()

		outcome, err := h.driver.Generate(ctx, schoolID, timetableID, algo)
		if err != nil {
			if errors.Is(err, engine.ErrGenerationInProgress) {
				metrics.GenerationLockContentionTotal.Inc()
				h.connManager.SendToTimetable(timetableID, sse.Event{Type: "error", Data: "generation already in progress"})
				return
			}
			log.Error().Err(err).Str("timetable_id", timetableID.String()).Msg("generation failed")
			h.connManager.SendToTimetable(timetableID, sse.Event{Type: "error", Data: err.Error()})
			return
		}

		metrics.GenerationsTotal.WithLabelValues(string(algo), string(outcome.Status)).Inc()
		metrics.GenerationDuration.WithLabelValues(string(algo)).Observe(outcome.GenerationDurationSec)
		metrics.GenerationShortageHours.WithLabelValues(string(algo)).Observe(float64(outcome.HardConstraintViolations))

		for _, line := range outcome.Logs {
			h.connManager.SendToTimetable(timetableID, sse.Event{Type: "log", Data: line})
		}
		h.connManager.SendToTimetable(timetableID, sse.Event{Type: "status", Data: outcome})
	})

	response.Success(w, http.StatusAccepted, map[string]interface{}{
		"timetable_id": timetableID,
		"algorithm":    algo,
		"status":       "generating",
	})
}
