// Package respond writes JSON API responses and maps errors to statuses.
package respond

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"batchledger/frontend/shared/validate"
	"batchledger/infrastructure/errs"
)

type ErrorBody struct {
	Op      string   `json:"op,omitempty"`
	Kind    string   `json:"kind"`
	Message string   `json:"message"`
	Details []string `json:"details,omitempty"`
}

type errorEnvelope struct {
	Error ErrorBody `json:"error"`
}

func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode json response failed", slog.Any("err", err))
	}
}

// Error writes err with the status of its kind. Internal failures are logged
// and their message is not exposed.
func Error(w http.ResponseWriter, r *http.Request, err error) {
	kind := errs.KindOf(err)
	body := ErrorBody{Op: errs.Op(err), Kind: kind.String(), Message: errs.Message(err)}
	if kind == errs.Other {
		slog.Error("request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Any("err", err),
		)
		body.Message = "internal error"
	}
	JSON(w, kind.HTTPStatus(), errorEnvelope{Error: body})
}

// Status writes an error body without an *errs.Error behind it.
func Status(w http.ResponseWriter, status int, kind, message string, details ...string) {
	JSON(w, status, errorEnvelope{Error: ErrorBody{Kind: kind, Message: message, Details: details}})
}

// Invalid writes a 400 for a request body that failed decoding or validation.
func Invalid(w http.ResponseWriter, err error) {
	var verr *validate.Error
	if errors.As(err, &verr) {
		Status(w, http.StatusBadRequest, errs.InvalidInput.String(), "validation failed", verr.Messages...)
		return
	}
	Status(w, http.StatusBadRequest, errs.InvalidInput.String(), "invalid request body")
}
