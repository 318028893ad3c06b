package httpgin

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func newMiddlewareRouter(mw ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(mw...)
	r.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(requestIDKey))
	})
	return r
}

func TestRequestIDMiddleware(t *testing.T) {
	r := newMiddlewareRouter(RequestIDMiddleware())

	tests := []struct {
		name   string
		header string
		keep   bool
	}{
		{"client id kept", "req-42", true},
		{"missing id minted", "", false},
		{"oversized id replaced", strings.Repeat("x", maxRequestIDLen+1), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/ping", nil)
			if tt.header != "" {
				req.Header.Set(requestIDHeader, tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			got := w.Header().Get(requestIDHeader)
			assert.Equal(t, got, w.Body.String())
			if tt.keep {
				assert.Equal(t, tt.header, got)
			} else {
				assert.Len(t, got, 36)
			}
		})
	}
}

func TestCORS(t *testing.T) {
	preflight := func(r *gin.Engine, origin string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodOptions, "/ping", nil)
		req.Header.Set("Origin", origin)
		req.Header.Set("Access-Control-Request-Method", http.MethodGet)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	t.Run("configured origins", func(t *testing.T) {
		r := newMiddlewareRouter(CORS([]string{"https://tickets.example"}))

		w := preflight(r, "https://tickets.example")
		assert.Equal(t, "https://tickets.example", w.Header().Get("Access-Control-Allow-Origin"))

		w = preflight(r, "https://evil.example")
		assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("empty list allows any origin", func(t *testing.T) {
		r := newMiddlewareRouter(CORS(nil))

		w := preflight(r, "https://anything.example")
		assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	})
}
