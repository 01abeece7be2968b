package http

import (
	"encoding/json"
	"net/http"

	"github.com/campusforge/registrar/internal/result"
)

// writeError renders a workflow failure as {"error","kind"} with the status
// the kind maps to. Unclassified errors are opaque 500s.
func writeError(w http.ResponseWriter, err error) {
	kind := result.KindOf(err)
	status := http.StatusInternalServerError
	msg := err.Error()
	switch kind {
	case result.KindValidation:
		status = http.StatusBadRequest
	case result.KindState:
		status = http.StatusConflict
	case result.KindForbidden:
		status = http.StatusForbidden
	case result.KindNotFound:
		status = http.StatusNotFound
	case result.KindConflict:
		status = http.StatusConflict
	default:
		msg = "internal error"
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg, "kind": string(kind)})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
