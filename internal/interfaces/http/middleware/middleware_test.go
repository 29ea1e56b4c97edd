package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func allowlistRouter(entries []string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(SourceAllowlist(entries))
	r.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, "pong")
	})
	return r
}

func getFrom(r *gin.Engine, remoteAddr string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.RemoteAddr = remoteAddr
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestSourceAllowlist(t *testing.T) {
	t.Run("empty allowlist admits everyone", func(t *testing.T) {
		w := getFrom(allowlistRouter(nil), "203.0.113.7:40000")
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("exact IP match admitted", func(t *testing.T) {
		w := getFrom(allowlistRouter([]string{"196.201.214.200"}), "196.201.214.200:40000")
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("CIDR match admitted", func(t *testing.T) {
		w := getFrom(allowlistRouter([]string{"196.201.214.0/24"}), "196.201.214.133:40000")
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("unlisted peer rejected", func(t *testing.T) {
		w := getFrom(allowlistRouter([]string{"196.201.214.0/24"}), "203.0.113.7:40000")
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Contains(t, w.Body.String(), "FORBIDDEN")
	})

	t.Run("unparseable entries are ignored", func(t *testing.T) {
		w := getFrom(allowlistRouter([]string{"not-an-ip", "196.201.214.200"}), "196.201.214.200:40000")
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestBodyLimit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(BodyLimit(16))
	r.POST("/echo", func(c *gin.Context) {
		body, err := c.GetRawData()
		if err != nil {
			c.String(http.StatusRequestEntityTooLarge, "too large")
			return
		}
		c.String(http.StatusOK, string(body))
	})

	t.Run("small body passes", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/echo", strings.NewReader("hello"))
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "hello", w.Body.String())
	})

	t.Run("oversized declared length rejected up front", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/echo", strings.NewReader(strings.Repeat("x", 64)))
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
		assert.Contains(t, w.Body.String(), "REQUEST_TOO_LARGE")
	})

	t.Run("oversized streaming body stopped by reader", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/echo", strings.NewReader(strings.Repeat("x", 64)))
		req.ContentLength = -1
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	})
}
