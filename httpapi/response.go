package httpapi

import (
	"encoding/json"
	"net/http"

	greenauth "github.com/verdantio/greenauth"
)

type errorBody struct {
	Message     string `json:"message"`
	Description string `json:"description"`
}

type envelope struct {
	Code  int        `json:"code"`
	Data  any        `json:"data,omitempty"`
	Error *errorBody `json:"error,omitempty"`
}

func writeSuccess(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{Code: status, Data: data})
}

func writeError(w http.ResponseWriter, err error) {
	tagged := greenauth.EnvelopeOf(err)
	if tagged == nil {
		tagged = &greenauth.Error{
			Kind:        greenauth.KindInternal,
			Message:     "Unknown error",
			Description: "An unexpected error occurred",
		}
	}

	status := tagged.Kind.HTTPStatus()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{
		Code: status,
		Error: &errorBody{
			Message:     tagged.Message,
			Description: tagged.Description,
		},
	})
}
