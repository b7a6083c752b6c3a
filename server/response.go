package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	apperrors "github.com/jrsteele09/go-video-server/internal/errors"
)

var errPanic = errors.New("handler panic")

// apiResponse is the envelope of every JSON response.
type apiResponse struct {
	StatusCode int         `json:"statusCode"`
	Data       interface{} `json:"data"`
	Message    string      `json:"message"`
	Success    bool        `json:"success"`
}

// emptyData serializes as {} for responses that carry no payload.
type emptyData struct{}

func writeJSON(w http.ResponseWriter, status int, body apiResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Err(err).Msg("failed to encode response")
	}
}

func writeSuccess(w http.ResponseWriter, status int, data interface{}, message string) {
	if data == nil {
		data = emptyData{}
	}
	writeJSON(w, status, apiResponse{StatusCode: status, Data: data, Message: message, Success: status < http.StatusBadRequest})
}

// writeError maps err to its status and client-safe message. Internal causes
// are logged and never reach the client.
func writeError(w http.ResponseWriter, err error) {
	status := apperrors.StatusCode(err)
	if status >= http.StatusInternalServerError {
		log.Err(err).Msg("request failed")
	}
	writeJSON(w, status, apiResponse{StatusCode: status, Data: nil, Message: apperrors.Message(err), Success: false})
}
