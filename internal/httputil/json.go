// Package httputil holds the JSON request/response helpers shared by the
// handlers and the middleware.
package httputil

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/BaGreal2/yamdb-server/internal/apperror"
)

type logKey struct{}

// WithLogEntry attaches a request-scoped log entry to ctx.
func WithLogEntry(ctx context.Context, entry *logrus.Entry) context.Context {
	return context.WithValue(ctx, logKey{}, entry)
}

// LogEntry returns the request-scoped log entry, or one on the standard
// logger when none was attached.
func LogEntry(ctx context.Context) *logrus.Entry {
	if entry, ok := ctx.Value(logKey{}).(*logrus.Entry); ok {
		return entry
	}
	return logrus.NewEntry(logrus.StandardLogger())
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logrus.WithError(err).Error("encode response")
	}
}

// WriteError renders err. Field errors become {field: [messages]}, every
// other kind becomes {"detail": message}.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	appErr := apperror.As(err)
	status := appErr.HTTPStatus()

	switch appErr.Kind {
	case apperror.KindValidation, apperror.KindConflict:
		WriteJSON(w, status, appErr.FieldMessages())
	case apperror.KindPermission:
		WriteJSON(w, status, map[string]string{"detail": appErr.Message, "level": appErr.Level})
	case apperror.KindInternal:
		LogEntry(r.Context()).WithError(err).Error("request failed")
		WriteJSON(w, status, map[string]string{"detail": appErr.Message})
	default:
		WriteJSON(w, status, map[string]string{"detail": appErr.Message})
	}
}

// MaxBodyBytes caps the request bodies DecodeJSON will read.
const MaxBodyBytes = 1 << 20

// DecodeJSON reads a JSON body of at most MaxBodyBytes into v. Malformed or
// oversized bodies are reported as a validation error on "non_field_errors".
func DecodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, MaxBodyBytes))
	if err := dec.Decode(v); err != nil {
		msg := "invalid JSON body"
		var typeErr *json.UnmarshalTypeError
		var sizeErr *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF):
			msg = "request body is empty"
		case errors.As(err, &sizeErr):
			msg = fmt.Sprintf("request body exceeds %d bytes", sizeErr.Limit)
		case errors.As(err, &typeErr) && typeErr.Field != "":
			return apperror.Validation(apperror.FieldError{
				Field:   typeErr.Field,
				Code:    apperror.CodeInvalid,
				Message: fmt.Sprintf("expected %s", typeErr.Type),
			})
		}
		return apperror.Validation(apperror.FieldError{
			Field: "non_field_errors", Code: apperror.CodeInvalid, Message: msg,
		})
	}
	return nil
}
