package httputil

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	dErrors "treasury/pkg/domain-errors"
)

// MaxBodyBytes caps request bodies accepted by DecodeAndPrepare.
const MaxBodyBytes = 1 << 20

// Normalizable requests trim or canonicalize their fields after decoding.
type Normalizable interface {
	Normalize()
}

// Validatable requests check their own invariants after decoding.
type Validatable interface {
	Validate() error
}

// DecodeAndPrepare decodes the JSON body into a T, then normalizes and
// validates it when T supports those steps. On failure it writes the error
// response and returns false.
func DecodeAndPrepare[T any](w http.ResponseWriter, r *http.Request, logger *slog.Logger, ctx context.Context, requestID string) (*T, bool) {
	var req T
	body := http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		msg := "invalid request body"
		if errors.Is(err, io.EOF) {
			msg = "request body is required"
		}
		logger.WarnContext(ctx, "failed to decode request",
			"request_id", requestID,
			"error", err,
		)
		WriteError(w, dErrors.New(dErrors.CodeBadRequest, msg))
		return nil, false
	}

	if n, ok := any(&req).(Normalizable); ok {
		n.Normalize()
	}
	if v, ok := any(&req).(Validatable); ok {
		if err := v.Validate(); err != nil {
			logger.WarnContext(ctx, "invalid request",
				"request_id", requestID,
				"error", err,
			)
			WriteError(w, err)
			return nil, false
		}
	}
	return &req, true
}
