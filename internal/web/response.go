package web

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/justestif/moodmix/internal/apperr"
)

const maxBodyBytes = 1 << 20

var notFoundRoute = apperr.NotFound("route not found")

type errorBody struct {
	Error *apperr.Error `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, data any, logger *slog.Logger) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("failed to encode response", "error", err)
	}
}

// writeError renders err as {"error": {...}}. Errors without a code become
// a 500 with a generic message and are logged.
func writeError(w http.ResponseWriter, r *http.Request, err error, logger *slog.Logger) {
	var appErr *apperr.Error
	if !errors.As(err, &appErr) {
		logger.Error("unhandled error",
			"error", err,
			"path", r.URL.Path,
			"request_id", middleware.GetReqID(r.Context()),
		)
		appErr = apperr.Internal("internal server error")
	} else if appErr.Code == apperr.CodeInternal || appErr.Code == apperr.CodeUnavailable {
		logger.Error("request failed",
			"error", err,
			"code", appErr.Code,
			"path", r.URL.Path,
			"request_id", middleware.GetReqID(r.Context()),
		)
	}

	writeJSON(w, appErr.HTTPStatus(), errorBody{Error: appErr}, logger)
}

// decodeJSON reads a single JSON object from the request body into dst.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return apperr.Validation("request body is empty")
		}
		return apperr.Validationf("invalid JSON body: %v", err)
	}
	return nil
}
