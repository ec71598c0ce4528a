package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/cliptube/backend/internal/auth"
	"github.com/cliptube/backend/internal/logging"
	"github.com/cliptube/backend/internal/repositories"
)

// envelope is the uniform response body for every API endpoint, success or
// failure. Success mirrors whether the status code is below 400.
type envelope struct {
	StatusCode int    `json:"statusCode"`
	Data       any    `json:"data"`
	Message    string `json:"message"`
	Success    bool   `json:"success"`
}

func respond(ctx context.Context, w http.ResponseWriter, status int, data any, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	body := envelope{
		StatusCode: status,
		Data:       data,
		Message:    message,
		Success:    status < http.StatusBadRequest,
	}

	if err := json.NewEncoder(w).Encode(body); err != nil {
		logging.FromContext(ctx).Error("encode response body", "status", status, "error", err)
		return
	}

	logger := logging.FromContext(ctx)
	switch {
	case status >= http.StatusInternalServerError:
		logger.Error("request failed", "status", status, "message", message)
	case status >= http.StatusBadRequest:
		logger.Warn("request returned client error", "status", status, "message", message)
	}
}

// respondError maps domain sentinel errors onto HTTP statuses. Anything
// unrecognized is a dependency failure and reports 500 without leaking the
// underlying error text.
func respondError(ctx context.Context, w http.ResponseWriter, err error, message string) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, repositories.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, repositories.ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, repositories.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, auth.ErrTokenInvalid), errors.Is(err, auth.ErrTokenMismatch):
		status = http.StatusUnauthorized
	}

	if status == http.StatusInternalServerError {
		logging.FromContext(ctx).Error("request dependency failed", "error", err)
		message = "internal server error"
	}

	respond(ctx, w, status, nil, message)
}

func badRequest(ctx context.Context, w http.ResponseWriter, message string) {
	respond(ctx, w, http.StatusBadRequest, nil, message)
}
