package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"servermon/internal/monitor"
	"servermon/internal/shared"

	"github.com/go-chi/chi/v5"
)

type API struct {
	Service      *monitor.Service
	Logger       *slog.Logger
	MaxBodyBytes int64
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, shared.ErrorResponse{Error: msg})
}

// writeServiceError maps monitor error kinds to status codes. The message of
// an internal failure is fixed.
func writeServiceError(w http.ResponseWriter, err error) {
	var ve *monitor.ValidationError
	switch {
	case errors.As(err, &ve):
		writeError(w, http.StatusBadRequest, ve.Error())
	case errors.Is(err, monitor.ErrNotFound):
		writeError(w, http.StatusNotFound, "Not Found")
	case errors.Is(err, monitor.ErrTimeout):
		writeError(w, http.StatusGatewayTimeout, "Request Timeout")
	default:
		writeError(w, http.StatusInternalServerError, "Internal Server Error")
	}
}

// decodeReport reads a POST /agent body. Unknown fields are ignored.
func (a *API) decodeReport(w http.ResponseWriter, r *http.Request) (monitor.Report, error) {
	body := r.Body
	if a.MaxBodyBytes > 0 {
		body = http.MaxBytesReader(w, r.Body, a.MaxBodyBytes)
	}
	defer body.Close()

	var in shared.AgentReport
	if err := json.NewDecoder(body).Decode(&in); err != nil {
		var tooBig *http.MaxBytesError
		var typeErr *json.UnmarshalTypeError
		switch {
		case errors.As(err, &tooBig):
			return monitor.Report{}, &monitor.ValidationError{Reason: fmt.Sprintf("body exceeds %d bytes", tooBig.Limit)}
		case errors.As(err, &typeErr) && typeErr.Field != "":
			return monitor.Report{}, &monitor.ValidationError{Field: typeErr.Field, Reason: fmt.Sprintf("must be %s, got %s", typeErr.Type, typeErr.Value)}
		default:
			return monitor.Report{}, &monitor.ValidationError{Reason: "body must be a JSON object"}
		}
	}
	return toReport(in)
}

// Ingest handles POST /agent.
func (a *API) Ingest(w http.ResponseWriter, r *http.Request) {
	rep, err := a.decodeReport(w, r)
	if err != nil {
		a.Logger.DebugContext(r.Context(), "bad report body", "error", err)
		writeServiceError(w, err)
		return
	}
	if _, err := a.Service.Ingest(r.Context(), rep); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, shared.MessageResponse{Message: "Data received"})
}

// GetAgent handles GET /agent/{id}. Ids that are not integers cannot match a
// row and are reported as not found.
func (a *API) GetAgent(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusNotFound, "Not Found")
		return
	}
	snap, err := a.Service.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, recordView(snap))
}

// ListServers handles GET /servers.
func (a *API) ListServers(w http.ResponseWriter, r *http.Request) {
	rows, err := a.Service.List(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, serversView(rows))
}

// Health handles GET /healthz.
func (a *API) Health(w http.ResponseWriter, r *http.Request) {
	if err := a.Service.Ping(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, shared.HealthResponse{Status: "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, shared.HealthResponse{Status: "ok"})
}
