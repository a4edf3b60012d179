package xhttp

import (
	"net/http"

	go_json "github.com/goccy/go-json"
)

// WriteJSON renders data with the given status. Encoding errors after the
// header is sent cannot be reported to the client and are dropped.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	SetHeaderContentTypeApplicationJSON(w)
	w.WriteHeader(status)
	_ = go_json.NewEncoder(w).Encode(data)
}

func WriteOK(w http.ResponseWriter, data any) {
	WriteJSON(w, http.StatusOK, data)
}
