package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/edgepulse/edgepulse/internal/config"
	"github.com/edgepulse/edgepulse/internal/envelope"
	"github.com/edgepulse/edgepulse/internal/pipeline"
	"github.com/edgepulse/edgepulse/internal/store"
)

const (
	defaultDeviceLimit     = 100
	defaultTimeseriesLimit = 200
	maxIngestBody          = 1 << 20 // 1 MiB
)

// Handler serves all /api/v1/* routes plus /healthz.
type Handler struct {
	store store.Store
	pipe  *pipeline.Pipeline
	r     chi.Router
}

// New registers all routes and returns the handler. When auth mode is
// "apikey", every /api/v1 route requires the configured header; /healthz
// stays open for probes.
func New(st store.Store, pipe *pipeline.Pipeline, auth config.AuthConfig) http.Handler {
	h := &Handler{store: st, pipe: pipe, r: chi.NewRouter()}

	h.r.Use(middleware.Recoverer)
	h.r.Get("/healthz", h.healthz)

	h.r.Route("/api/v1", func(r chi.Router) {
		if auth.Mode == "apikey" {
			r.Use(requireAPIKey(auth.EffectiveHeader(), auth.Key()))
		}
		r.Post("/ingest", h.ingest)
		r.Get("/devices", h.listDevices)
		r.Get("/devices/{key}", h.getDevice)
		r.Get("/devices/{key}/timeseries", h.timeseries)
	})

	return h.r
}

// healthz answers GET /healthz with liveness plus store reachability.
func (h *Handler) healthz(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Ping(r.Context()); err != nil {
		jsonErr(w, http.StatusServiceUnavailable, "store unreachable")
		return
	}
	jsonResp(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ingest handles POST /api/v1/ingest: one message through the pipeline.
// Bad messages are client errors carrying the taxonomy detail; a duplicate
// redelivery is a success.
func (h *Handler) ingest(w http.ResponseWriter, r *http.Request) {
	var raw map[string]any
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxIngestBody))
	if err := dec.Decode(&raw); err != nil {
		jsonErr(w, http.StatusBadRequest, "request body is not a JSON object")
		return
	}

	res, err := h.pipe.Ingest(r.Context(), raw)
	if err != nil {
		var ve *envelope.ValidationError
		switch {
		case errors.Is(err, envelope.ErrMissingIdentity):
			jsonErr(w, http.StatusBadRequest, err.Error())
		case errors.As(err, &ve):
			jsonErr(w, http.StatusBadRequest, ve.Error())
		default:
			jsonErr(w, http.StatusInternalServerError, "ingest failed")
		}
		return
	}

	status := "ingested"
	if res.Outcome == store.DuplicateIgnored {
		status = "duplicate"
	}
	jsonResp(w, http.StatusOK, IngestResponse{
		Status:    status,
		DeviceKey: res.Record.DeviceKey,
		Health:    res.Record.Health,
		Reason:    res.Record.Reason,
	})
}

// listDevices returns GET /api/v1/devices: each device's latest state.
func (h *Handler) listDevices(w http.ResponseWriter, r *http.Request) {
	limit := queryLimit(r, defaultDeviceLimit)
	out, err := BuildDeviceList(r.Context(), h.store, limit)
	if err != nil {
		jsonErr(w, http.StatusInternalServerError, "query failed")
		return
	}
	jsonResp(w, http.StatusOK, out)
}

// getDevice returns GET /api/v1/devices/{key}: the latest record with its
// raw payload and history depth.
func (h *Handler) getDevice(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")

	latest, err := h.store.History(r.Context(), key, 1)
	if err != nil {
		jsonErr(w, http.StatusInternalServerError, "query failed")
		return
	}
	if len(latest) == 0 {
		jsonErr(w, http.StatusNotFound, "no data for device")
		return
	}

	count, err := h.store.Count(r.Context(), key)
	if err != nil {
		jsonErr(w, http.StatusInternalServerError, "query failed")
		return
	}

	jsonResp(w, http.StatusOK, DeviceResponse{
		Latest:       toRecordResponse(&latest[0]),
		RawPayload:   latest[0].Payload,
		HistoryCount: count,
	})
}

// timeseries returns GET /api/v1/devices/{key}/timeseries?metric=&limit=:
// one metric projected over the device's history, newest first.
func (h *Handler) timeseries(w http.ResponseWriter, r *http.Request) {
	metric := r.URL.Query().Get("metric")
	if metric == "" {
		jsonErr(w, http.StatusBadRequest, "missing metric parameter")
		return
	}

	key := chi.URLParam(r, "key")
	limit := queryLimit(r, defaultTimeseriesLimit)
	points, err := h.store.Timeseries(r.Context(), key, metric, limit)
	if err != nil {
		jsonErr(w, http.StatusInternalServerError, "query failed")
		return
	}

	out := make([]PointResponse, 0, len(points))
	for _, p := range points {
		out = append(out, PointResponse{T: p.T.UTC().Format(time.RFC3339), V: p.V})
	}
	jsonResp(w, http.StatusOK, out)
}

// BuildDeviceList projects the store's latest-per-device rows into device
// summaries. Shared with the WebSocket hub's broadcast.
func BuildDeviceList(ctx context.Context, st store.Store, limit int) ([]DeviceSummary, error) {
	latest, err := st.LatestPerDevice(ctx, limit)
	if err != nil {
		return nil, err
	}
	out := make([]DeviceSummary, 0, len(latest))
	for _, r := range latest {
		out = append(out, DeviceSummary{
			DeviceKey: r.DeviceKey,
			Gateway:   r.Gateway,
			Health:    r.Health,
			Reason:    r.Reason,
			LastSeen:  r.EffectiveTime().UTC().Format(time.RFC3339),
		})
	}
	return out, nil
}

// --- helpers ----------------------------------------------------------------

func toRecordResponse(r *store.Record) RecordResponse {
	resp := RecordResponse{
		ID:         r.ID,
		DeviceKey:  r.DeviceKey,
		Topic:      r.Topic,
		ReceivedAt: r.ReceivedAt.UTC().Format(time.RFC3339),
		Health:     r.Health,
		Reason:     r.Reason,
		Features:   r.Features,
	}
	if r.EventTime != nil {
		s := r.EventTime.UTC().Format(time.RFC3339)
		resp.EventTime = &s
	}
	return resp
}

func queryLimit(r *http.Request, def int) int {
	if s := r.URL.Query().Get("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return def
}

func jsonResp(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func jsonErr(w http.ResponseWriter, code int, msg string) {
	jsonResp(w, code, errorResponse{Error: msg})
}
