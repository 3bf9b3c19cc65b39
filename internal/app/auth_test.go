package app

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func guarded(mw gin.HandlerFunc) *gin.Engine {
	router := gin.New()
	router.GET("/guarded", mw, func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	return router
}

func TestMetricsAuthMiddleware(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		enabled bool
		setAuth bool
		user    string
		pass    string
		want    int
	}{
		{"disabled passes without credentials", false, false, "", "", http.StatusOK},
		{"valid credentials", true, true, "prometheus", "secret123", http.StatusOK},
		{"wrong username", true, true, "scraper", "secret123", http.StatusUnauthorized},
		{"wrong password", true, true, "prometheus", "nope", http.StatusUnauthorized},
		{"no header", true, false, "", "", http.StatusUnauthorized},
	}

	router := func(enabled bool) *gin.Engine {
		return guarded(metricsAuthMiddleware(enabled, "prometheus", "secret123"))
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			req := httptest.NewRequest(http.MethodGet, "/guarded", nil)
			if tt.setAuth {
				req.SetBasicAuth(tt.user, tt.pass)
			}
			w := httptest.NewRecorder()
			router(tt.enabled).ServeHTTP(w, req)

			assert.Equal(t, tt.want, w.Code)
			if tt.want == http.StatusUnauthorized {
				assert.Equal(t, `Basic realm="metrics"`, w.Header().Get("WWW-Authenticate"))
			}
		})
	}
}

func TestBearerAuthMiddleware(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		token  string
		header string
		want   int
	}{
		{"no token configured", "", "", http.StatusOK},
		{"matching token", "tok", "Bearer tok", http.StatusOK},
		{"surrounding space", "tok", "Bearer  tok ", http.StatusOK},
		{"wrong token", "tok", "Bearer other", http.StatusUnauthorized},
		{"basic scheme", "tok", "Basic dG9rOg==", http.StatusUnauthorized},
		{"missing header", "tok", "", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			req := httptest.NewRequest(http.MethodGet, "/guarded", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			guarded(bearerAuthMiddleware(tt.token)).ServeHTTP(w, req)

			assert.Equal(t, tt.want, w.Code)
		})
	}
}
