package api

import (
	"context"
	"encoding/json"
	"net/http"

	"nuvex/core"
	"nuvex/metrics"

	"github.com/go-playground/validator/v10"
)

// maxOffenseBody bounds the ingestion request size.
const maxOffenseBody = 1 << 20

// ingestRequest is the offense submission payload. An offense without an
// identifier is rejected here; only the CLI path assigns one during triage.
type ingestRequest struct {
	OffenseID      string       `json:"offense_id" validate:"required"`
	Description    string       `json:"description" validate:"required"`
	SourceIPs      []string     `json:"source_ips" validate:"required,min=1"`
	DestinationIPs []string     `json:"destination_ips"`
	LogSources     []string     `json:"log_sources"`
	EventCount     int          `json:"event_count" validate:"gte=0"`
	Magnitude      float64      `json:"magnitude" validate:"gte=0,lte=10"`
	Username       string       `json:"username"`
	StartTime      string       `json:"start_time"`
	Events         []core.Event `json:"events"`
	// Async queues the offense instead of triaging inline.
	Async bool `json:"async"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type acceptedResponse struct {
	OffenseID string `json:"offense_id"`
	Status    string `json:"status"`
}

func (r *ingestRequest) toOffense() *core.Offense {
	return &core.Offense{
		ID:             r.OffenseID,
		Description:    r.Description,
		SourceIPs:      r.SourceIPs,
		DestinationIPs: r.DestinationIPs,
		LogSources:     r.LogSources,
		EventCount:     r.EventCount,
		Magnitude:      r.Magnitude,
		Username:       r.Username,
		StartTime:      r.StartTime,
		Events:         r.Events,
	}
}

func (a *API) ingestOffense(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxOffenseBody)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		metrics.OffensesRejected.Inc()
		a.writeError(w, http.StatusBadRequest, "invalid JSON payload: "+err.Error())
		return
	}

	validate := validator.New()
	if err := validate.Struct(req); err != nil {
		metrics.OffensesRejected.Inc()
		a.logger.Warnw("Rejected offense submission", "error", err)
		a.writeError(w, http.StatusBadRequest, "validation failed: "+err.Error())
		return
	}

	offense := req.toOffense()

	if req.Async {
		a.ingestAsync(w, offense)
		return
	}

	analysis := a.triager.Triage(r.Context(), offense)
	a.writeJSON(w, http.StatusOK, analysis)
}

// ingestAsync queues the offense on the worker pool and replies immediately.
func (a *API) ingestAsync(w http.ResponseWriter, offense *core.Offense) {
	if a.pool == nil {
		a.writeError(w, http.StatusServiceUnavailable, "async ingestion is not enabled")
		return
	}

	err := a.pool.Submit(func() {
		a.triager.Triage(context.Background(), offense)
	})
	if err != nil {
		a.logger.Warnw("Failed to queue offense", "offense_id", offense.ID, "error", err)
		a.writeError(w, http.StatusServiceUnavailable, "triage queue is full, retry later")
		return
	}

	a.writeJSON(w, http.StatusAccepted, acceptedResponse{OffenseID: offense.ID, Status: "queued"})
}

func (a *API) healthCheck(w http.ResponseWriter, _ *http.Request) {
	a.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *API) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		a.logger.Errorw("Failed to encode response", "error", err)
	}
}

func (a *API) writeError(w http.ResponseWriter, status int, message string) {
	a.writeJSON(w, status, errorResponse{Error: message})
}
