package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/sebastiankruger/truck-telemetry-simulator/internal/config"
	"github.com/sebastiankruger/truck-telemetry-simulator/internal/core"
	"github.com/sebastiankruger/truck-telemetry-simulator/internal/faults"
	"github.com/sebastiankruger/truck-telemetry-simulator/internal/features"
	"github.com/sebastiankruger/truck-telemetry-simulator/internal/generator"
	"github.com/sebastiankruger/truck-telemetry-simulator/internal/replay"
	"github.com/sebastiankruger/truck-telemetry-simulator/internal/stream"
)

const writeWait = 10 * time.Second

// Handler handles REST and websocket requests of the demo server
type Handler struct {
	name     string
	source   *generator.DaySource
	runtime  *config.RuntimeConfig
	runner   *replay.Runner
	upgrader websocket.Upgrader
}

// NewHandler creates an API handler. runner may be nil when the replay is off.
func NewHandler(name string, source *generator.DaySource, runtime *config.RuntimeConfig, runner *replay.Runner) *Handler {
	return &Handler{
		name:    name,
		source:  source,
		runtime: runtime,
		runner:  runner,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

// HandleHealth handles GET /api/health
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Service:   h.name,
	})
}

// HandleSummary handles GET /api/summary
func (h *Handler) HandleSummary(w http.ResponseWriter, r *http.Request) {
	kinds := faults.Kinds()
	ids := make([]string, len(kinds))
	for i, k := range kinds {
		ids[i] = k.String()
	}
	modes := make([]string, 0, core.NumModes)
	for _, m := range core.Modes() {
		modes = append(modes, m.String())
	}

	h.writeJSON(w, SummaryResponse{
		FleetSize:      h.source.FleetSize(),
		SimulationDays: h.source.Days(),
		WindowsPerDay:  core.WindowsPerDay,
		FailureModes:   len(kinds),
		FaultModeIDs:   ids,
		OperatingModes: modes,
		FeatureCount:   features.NumFeatures,
		OutputColumns:  len(features.AllColumns()),
	})
}

// HandleTruck handles GET /api/trucks/{id}
func (h *Handler) HandleTruck(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid truck id")
		return
	}
	truck, nFaults, err := h.source.Truck(id)
	if err != nil {
		h.writeError(w, http.StatusNotFound, err.Error())
		return
	}
	h.writeJSON(w, TruckResponse{
		TruckID:    truck.ID,
		EngineType: truck.EngineType.String(),
		Split:      string(truck.Split),
		Seed:       truck.Seed,
		Faults:     nFaults,
	})
}

// HandleTruckDay handles GET /api/trucks/{id}/days/{day}
func (h *Handler) HandleTruckDay(w http.ResponseWriter, r *http.Request) {
	id, day, ok := h.truckDayVars(w, r)
	if !ok {
		return
	}

	rec, err := h.source.Day(r.Context(), id, day)
	if err != nil {
		h.writeSourceError(w, err)
		return
	}

	resp := DayResponse{
		TruckID:    rec.TruckID,
		EngineType: rec.EngineType.String(),
		DayIndex:   rec.DayIndex,
		Summary:    stream.Summarize(rec),
		Columns:    features.Columns(),
		Windows:    make([]WindowRow, len(rec.Features)),
	}
	for i := range rec.Features {
		resp.Windows[i] = WindowRow{
			Window:   i,
			Features: rec.Features[i][:],
			Label:    rec.Labels[i],
		}
	}
	h.writeJSON(w, resp)
}

// HandleStream handles the websocket /api/stream/{id}/{day}. Every window is
// sent as one JSON message; ?interval=250ms paces the messages.
func (h *Handler) HandleStream(w http.ResponseWriter, r *http.Request) {
	id, day, ok := h.truckDayVars(w, r)
	if !ok {
		return
	}
	var pace time.Duration
	if v := r.URL.Query().Get("interval"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d < 0 {
			h.writeError(w, http.StatusBadRequest, "invalid interval")
			return
		}
		pace = d
	}

	rec, err := h.source.Day(r.Context(), id, day)
	if err != nil {
		h.writeSourceError(w, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("Websocket upgrade failed")
		return
	}
	defer conn.Close()
	closed := drain(conn)

	log.Info().Int("truck_id", id).Int("day", day).Msg("Streaming truck-day")

	for i := range rec.Features {
		if pace > 0 && i > 0 {
			select {
			case <-closed:
				return
			case <-r.Context().Done():
				return
			case <-time.After(pace):
			}
		}
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(stream.NewWindowEvent(rec, i)); err != nil {
			log.Debug().Err(err).Int("truck_id", id).Msg("Stream client gone")
			return
		}
	}
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "end of day"))
}

// HandleReplayLive handles the websocket /api/replay/live that follows the
// running replay
func (h *Handler) HandleReplayLive(w http.ResponseWriter, r *http.Request) {
	if h.runner == nil {
		h.writeError(w, http.StatusServiceUnavailable, "replay is not running")
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("Websocket upgrade failed")
		return
	}
	defer conn.Close()
	closed := drain(conn)

	events, unsubscribe := h.runner.Subscribe()
	defer unsubscribe()

	for {
		select {
		case <-closed:
			return
		case <-r.Context().Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
		}
	}
}

// HandleReplayGet handles GET /api/replay
func (h *Handler) HandleReplayGet(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, h.replayState())
}

// HandleReplayUpdate handles PUT /api/replay
func (h *Handler) HandleReplayUpdate(w http.ResponseWriter, r *http.Request) {
	var req ReplayUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid JSON: "+err.Error())
		return
	}

	if req.Speed != nil {
		if err := h.runtime.SetSpeed(*req.Speed); err != nil {
			h.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	if req.TruckID != nil || req.DayIndex != nil {
		truck, day := h.runtime.GetTruckDay()
		if req.TruckID != nil {
			truck = *req.TruckID
		}
		if req.DayIndex != nil {
			day = *req.DayIndex
		}
		if err := h.runtime.SetTruckDay(truck, day); err != nil {
			h.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	snap := h.runtime.Snapshot()
	log.Info().
		Float64("speed", snap.Speed).
		Int("truck_id", snap.TruckID).
		Int("day", snap.DayIndex).
		Msg("Replay configuration updated")

	h.writeJSON(w, h.replayState())
}

func (h *Handler) replayState() ReplayResponse {
	snap := h.runtime.Snapshot()
	resp := ReplayResponse{
		Speed:    snap.Speed,
		TruckID:  snap.TruckID,
		DayIndex: snap.DayIndex,
		Interval: snap.Interval.String(),
	}
	if h.runner != nil {
		if ev, ok := h.runner.Current(); ok {
			resp.Current = &ev
		}
	}
	return resp
}

func (h *Handler) truckDayVars(w http.ResponseWriter, r *http.Request) (int, int, bool) {
	vars := mux.Vars(r)
	id, err := strconv.Atoi(vars["id"])
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid truck id")
		return 0, 0, false
	}
	day, err := strconv.Atoi(vars["day"])
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid day")
		return 0, 0, false
	}
	return id, day, true
}

func (h *Handler) writeSourceError(w http.ResponseWriter, err error) {
	if errors.Is(err, generator.ErrUnknownTruck) || errors.Is(err, generator.ErrDayOutOfRange) {
		h.writeError(w, http.StatusNotFound, err.Error())
		return
	}
	log.Error().Err(err).Msg("Loading truck-day failed")
	h.writeError(w, http.StatusInternalServerError, "failed to load truck-day")
}

// drain reads and discards client frames so control messages are handled;
// the returned channel closes when the client goes away
func drain(conn *websocket.Conn) <-chan struct{} {
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()
	return closed
}

func (h *Handler) writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{Error: msg})
}
