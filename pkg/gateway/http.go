package gateway

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/bridgecore/coordinator/internal/metrics"
	"github.com/bridgecore/coordinator/pkg/errs"
)

// handlerFunc is an HTTP handler that returns an error for the router to
// translate into a response, instead of writing one itself on failure.
type handlerFunc func(w http.ResponseWriter, r *http.Request) error

// handleError adapts a handlerFunc to http.HandlerFunc, writing the
// returned error as a JSON body with the status code its category maps
// to (§7).
func handleError(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := h(w, r); err != nil {
			writeError(w, err)
		}
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, err error) {
	var svcErr *errs.ServiceError
	status := http.StatusInternalServerError
	message := "internal server error"
	category := errs.CategoryGeneral

	if errors.As(err, &svcErr) {
		status = svcErr.StatusCode()
		message = svcErr.Error()
		category = svcErr.Category
	}

	metrics.ErrorsTotal.WithLabelValues("gateway", category.String()).Inc()

	writeJSON(w, status, errorResponse{Error: message})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return errs.Registry(err, "invalid JSON body")
	}
	return nil
}

// hexString renders b as a "0x"-prefixed lowercase hex string, the wire
// encoding used for signatures and raw public keys (§6).
func hexString(b []byte) string {
	return "0x" + hex.EncodeToString(b)
}

// decodeHex parses a "0x"-prefixed or bare hex string.
func decodeHex(s string) ([]byte, error) {
	return hex.DecodeString(strings.TrimPrefix(s, "0x"))
}
