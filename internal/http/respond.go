// internal/http/respond.go
package httpserver

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// JSON writes data as a JSON body with the given status. The status line
// is already out when encoding runs, so a marshal failure can only be
// logged, not reported to the client.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("response encode failed", "err", err)
	}
}
