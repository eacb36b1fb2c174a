package request

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"treasury/pkg/requestcontext"
)

func TestID(t *testing.T) {
	t.Run("generates an id when absent", func(t *testing.T) {
		var seen string
		h := ID(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
			seen = requestcontext.RequestID(r.Context())
		}))
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

		_, err := uuid.Parse(seen)
		require.NoError(t, err)
		assert.Equal(t, seen, rr.Header().Get(HeaderRequestID))
	})

	t.Run("propagates inbound id", func(t *testing.T) {
		var seen string
		h := ID(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
			seen = requestcontext.RequestID(r.Context())
		}))
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(HeaderRequestID, "abc-123")
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)

		assert.Equal(t, "abc-123", seen)
		assert.Equal(t, "abc-123", rr.Header().Get(HeaderRequestID))
	})
}

func TestTime(t *testing.T) {
	var first, second time.Time
	h := Time(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		first = requestcontext.Now(r.Context())
		time.Sleep(time.Millisecond)
		second = requestcontext.Now(r.Context())
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, first, second)
}

func TestClientIPFromRequest(t *testing.T) {
	tests := map[string]struct {
		headers    map[string]string
		remoteAddr string
		want       string
	}{
		"forwarded chain":  {map[string]string{"X-Forwarded-For": "1.2.3.4, 10.0.0.1"}, "", "1.2.3.4"},
		"forwarded single": {map[string]string{"X-Forwarded-For": " 1.2.3.4 "}, "", "1.2.3.4"},
		"real ip":          {map[string]string{"X-Real-IP": "5.6.7.8"}, "", "5.6.7.8"},
		"remote ipv4":      {nil, "127.0.0.1:5555", "127.0.0.1"},
		"remote ipv6":      {nil, "[::1]:5555", "::1"},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, ClientIPFromRequest(req))
		})
	}
}
