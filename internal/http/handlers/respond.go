package handlers

import (
	"encoding/json"
	"net/http"
)

// fieldError is a single validation failure tied to a submitted field.
type fieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type validationResponse struct {
	Errors []fieldError `json:"errors"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeValidationErrors(w http.ResponseWriter, errs []fieldError) {
	writeJSON(w, http.StatusUnprocessableEntity, validationResponse{Errors: errs})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// redirect answers a precondition failure with a 303 so the client lands
// back on a safe page rather than a half-built step.
func redirect(w http.ResponseWriter, location string) {
	w.Header().Set("Location", location)
	w.WriteHeader(http.StatusSeeOther)
}

func decodeBody(r *http.Request, v any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
