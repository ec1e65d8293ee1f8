package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/coffeeshop/coffeeshop/internal/handler/dto"
)

// writeError writes the uniform failure envelope.
func writeError(w http.ResponseWriter, body dto.ErrorResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(body.Error)
	_ = json.NewEncoder(w).Encode(body)
}
