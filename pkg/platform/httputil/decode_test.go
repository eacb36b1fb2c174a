package httputil

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "treasury/pkg/domain-errors"
)

type sampleRequest struct {
	Name string `json:"name"`
}

func (r *sampleRequest) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
}

func (r *sampleRequest) Validate() error {
	if r.Name == "" {
		return dErrors.Validation("name", "is required", r.Name)
	}
	return nil
}

func decode(t *testing.T, body string) (*sampleRequest, bool, *httptest.ResponseRecorder) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(body))
	req, ok := DecodeAndPrepare[sampleRequest](w, r, logger, context.Background(), "req-1")
	return req, ok, w
}

func TestDecodeAndPrepare(t *testing.T) {
	t.Run("normalizes valid body", func(t *testing.T) {
		req, ok, _ := decode(t, `{"name":"  alice "}`)
		require.True(t, ok)
		assert.Equal(t, "alice", req.Name)
	})

	t.Run("empty body", func(t *testing.T) {
		_, ok, w := decode(t, "")
		require.False(t, ok)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "request body is required")
	})

	t.Run("malformed body", func(t *testing.T) {
		_, ok, w := decode(t, `{"name":`)
		require.False(t, ok)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "invalid request body")
	})

	t.Run("validation failure", func(t *testing.T) {
		_, ok, w := decode(t, `{"name":"   "}`)
		require.False(t, ok)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), `"field":"name"`)
	})
}
