package health

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"
)

// Response is the JSON body served by the health endpoints.
type Response struct {
	Status    string                   `json:"status"`
	Timestamp string                   `json:"timestamp"`
	Checks    map[string]CheckResponse `json:"checks,omitempty"`
}

// CheckResponse is the JSON form of a single Result.
type CheckResponse struct {
	Status     string         `json:"status"`
	Message    string         `json:"message,omitempty"`
	DurationMS float64        `json:"duration_ms"`
	Details    map[string]any `json:"details,omitempty"`
	Error      string         `json:"error,omitempty"`
}

func toCheckResponse(r Result) CheckResponse {
	out := CheckResponse{
		Status:     r.Status.String(),
		Message:    r.Message,
		DurationMS: float64(r.Duration) / float64(time.Millisecond),
		Details:    r.Details,
	}
	if r.Error != nil {
		out.Error = r.Error.Error()
	}
	return out
}

// HTTPStatus maps a Status to a response code: degraded still serves.
func HTTPStatus(s Status) int {
	if s == StatusUnhealthy {
		return http.StatusServiceUnavailable
	}
	return http.StatusOK
}

// LivenessHandler reports that the process is serving. It runs no checks.
func LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, Response{
			Status:    StatusHealthy.String(),
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		})
	}
}

// Handler runs every check and serves the combined report.
func Handler(agg *Aggregator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report := agg.CheckAll(r.Context())
		resp := Response{
			Status:    report.Status.String(),
			Timestamp: report.Checked.UTC().Format(time.RFC3339),
			Checks:    make(map[string]CheckResponse, len(report.Results)),
		}
		for name, result := range report.Results {
			resp.Checks[name] = toCheckResponse(result)
		}
		writeJSON(w, HTTPStatus(report.Status), resp)
	}
}

// SingleCheckHandler serves one checker named by the {name} path value.
func SingleCheckHandler(agg *Aggregator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result, err := agg.Check(r.Context(), r.PathValue("name"))
		if errors.Is(err, ErrCheckerNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, HTTPStatus(result.Status), toCheckResponse(result))
	}
}

// RegisterHandlers mounts /livez, /healthz and /healthz/{name} on mux.
func RegisterHandlers(mux *http.ServeMux, agg *Aggregator) {
	mux.HandleFunc("GET /livez", LivenessHandler())
	mux.HandleFunc("GET /healthz", Handler(agg))
	mux.HandleFunc("GET /healthz/{name}", SingleCheckHandler(agg))
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
