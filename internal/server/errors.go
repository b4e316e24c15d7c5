package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/embld/contentcore/mutation"
	"github.com/embld/contentcore/observe"
	"github.com/embld/contentcore/resources"
	"github.com/embld/contentcore/store"
)

var (
	errBadBody      = errors.New("server: request body must be a JSON object")
	errStoreFailure = errors.New("the content store could not complete the request")
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error     string `json:"error"`
	Kind      string `json:"kind"`
	RequestID string `json:"request_id,omitempty"`
}

// statusFor maps an error to its response code and kind.
func statusFor(err error) (int, string) {
	switch kind := mutation.KindOf(err); kind {
	case mutation.KindUnauthenticated:
		return http.StatusUnauthorized, kind.String()
	case mutation.KindForbidden:
		return http.StatusForbidden, kind.String()
	case mutation.KindNotFound:
		return http.StatusNotFound, kind.String()
	case mutation.KindInvalid:
		return http.StatusBadRequest, kind.String()
	case mutation.KindConflict:
		return http.StatusConflict, kind.String()
	case mutation.KindStoreError:
		return http.StatusBadGateway, kind.String()
	}
	switch {
	case errors.Is(err, resources.ErrNotFound):
		return http.StatusNotFound, mutation.KindNotFound.String()
	case errors.Is(err, errBadBody), errors.Is(err, resources.ErrMissingResource):
		return http.StatusBadRequest, mutation.KindInvalid.String()
	default:
		return http.StatusBadGateway, mutation.KindStoreError.String()
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code, kind := statusFor(err)
	msg := err.Error()
	if code >= http.StatusInternalServerError {
		s.logger.Error(r.Context(), "request failed",
			observe.F("request_id", RequestID(r.Context())),
			observe.F("path", r.URL.Path),
			observe.Err(err),
			observe.F("detail", store.Detail(err)),
		)
		msg = errStoreFailure.Error()
	}
	writeJSON(w, code, errorBody{
		Error:     msg,
		Kind:      kind,
		RequestID: RequestID(r.Context()),
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
