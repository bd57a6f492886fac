package integration

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/welldanyogia/webrana-infinimail-backend/internal/access"
	"github.com/welldanyogia/webrana-infinimail-backend/internal/api/middleware"
)

func TestSecurityMiddlewareIntegration(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	t.Run("full security middleware chain", func(t *testing.T) {
		os.Setenv("ALLOWED_ORIGINS", "https://example.com")
		defer os.Unsetenv("ALLOWED_ORIGINS")

		controller := access.New(nil, true, "test-secret")
		token, err := controller.IssueToken("admin@example.com")
		if err != nil {
			t.Fatalf("failed to issue token: %v", err)
		}

		e := echo.New()
		e.Use(middleware.Recover())
		e.Use(middleware.SecureHeaders())
		e.Use(middleware.SecureCORS())
		e.Use(middleware.RateLimiter(logger))
		e.Use(middleware.BearerAuth(controller, logger))

		e.GET("/api/test", func(c echo.Context) error {
			return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
		})

		req := httptest.NewRequest(http.MethodGet, "/api/test", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Origin", "https://example.com")
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		c.SetPath("/api/test")
		e.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("expected status 200, got %d", rec.Code)
		}
		if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
			t.Error("X-Content-Type-Options header missing")
		}
		if rec.Header().Get("X-Frame-Options") != "DENY" {
			t.Error("X-Frame-Options header missing")
		}
	})

	t.Run("auth failure returns 401", func(t *testing.T) {
		controller := access.New(nil, true, "test-secret")

		e := echo.New()
		e.Use(middleware.BearerAuth(controller, logger))
		e.GET("/api/test", func(c echo.Context) error {
			return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
		})

		req := httptest.NewRequest(http.MethodGet, "/api/test", nil)
		req.Header.Set("Authorization", "Bearer wrong-token")
		rec := httptest.NewRecorder()

		e.ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Errorf("expected status 401, got %d", rec.Code)
		}
	})

	t.Run("CORS allows valid origin", func(t *testing.T) {
		os.Setenv("ALLOWED_ORIGINS", "https://allowed.com")
		defer os.Unsetenv("ALLOWED_ORIGINS")

		e := echo.New()
		e.Use(middleware.SecureCORS())
		e.GET("/test", func(c echo.Context) error {
			return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
		})

		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set("Origin", "https://allowed.com")
		rec := httptest.NewRecorder()

		e.ServeHTTP(rec, req)

		if rec.Header().Get("Access-Control-Allow-Origin") != "https://allowed.com" {
			t.Errorf("CORS should allow valid origin, got: %s", rec.Header().Get("Access-Control-Allow-Origin"))
		}
	})

	t.Run("rate limiter returns 429 when exceeded", func(t *testing.T) {
		e := echo.New()
		e.Use(middleware.RateLimiterWithConfig(0.1, 1, logger))
		e.GET("/test", func(c echo.Context) error {
			return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
		})

		req1 := httptest.NewRequest(http.MethodGet, "/test", nil)
		req1.RemoteAddr = "192.168.1.100:12345"
		rec1 := httptest.NewRecorder()
		e.ServeHTTP(rec1, req1)

		if rec1.Code != http.StatusOK {
			t.Errorf("first request should succeed, got %d", rec1.Code)
		}

		for i := 0; i < 10; i++ {
			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			req.RemoteAddr = "192.168.1.100:12345"
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)

			if rec.Code == http.StatusTooManyRequests {
				if rec.Header().Get("Retry-After") == "" {
					t.Error("Retry-After header should be present")
				}
				return
			}
		}

		t.Error("rate limiter should have returned 429")
	})
}

func TestSecurityHeadersIntegration(t *testing.T) {
	e := echo.New()
	e.Use(middleware.SecureHeaders())

	e.GET("/test", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	rec := httptest.NewRecorder()

	e.ServeHTTP(rec, req)

	headers := map[string]string{
		"X-Content-Type-Options": "nosniff",
		"X-Frame-Options":        "DENY",
		"X-XSS-Protection":       "1; mode=block",
		"Referrer-Policy":        "strict-origin-when-cross-origin",
		"Permissions-Policy":     "geolocation=(), microphone=(), camera=()",
	}

	for header, expected := range headers {
		if rec.Header().Get(header) != expected {
			t.Errorf("expected %s: %s, got: %s", header, expected, rec.Header().Get(header))
		}
	}

	if rec.Header().Get("Content-Security-Policy") == "" {
		t.Error("Content-Security-Policy header should be present")
	}
}

func TestHealthEndpointBypassesAuth(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	controller := access.New(nil, true, "test-secret")

	e := echo.New()
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "healthy"})
	})

	api := e.Group("/api")
	api.Use(middleware.BearerAuth(controller, logger))
	api.GET("/protected", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("health endpoint should not require auth, got %d", rec.Code)
	}

	req2 := httptest.NewRequest(http.MethodGet, "/api/protected", nil)
	rec2 := httptest.NewRecorder()
	e.ServeHTTP(rec2, req2)

	if rec2.Code != http.StatusUnauthorized {
		t.Errorf("protected endpoint should require auth, got %d", rec2.Code)
	}
}

func TestCORSPreflightHandling(t *testing.T) {
	os.Setenv("ALLOWED_ORIGINS", "https://example.com")
	defer os.Unsetenv("ALLOWED_ORIGINS")

	e := echo.New()
	e.Use(middleware.SecureCORS())

	e.POST("/api/data", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	req := httptest.NewRequest(http.MethodOptions, "/api/data", nil)
	req.Header.Set("Origin", "https://example.com")
	req.Header.Set("Access-Control-Request-Method", "POST")
	req.Header.Set("Access-Control-Request-Headers", "Content-Type, Authorization")
	rec := httptest.NewRecorder()

	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent && rec.Code != http.StatusOK {
		t.Errorf("preflight should return 204 or 200, got %d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "https://example.com" {
		t.Errorf("Access-Control-Allow-Origin should be set for valid origin, got: %s", rec.Header().Get("Access-Control-Allow-Origin"))
	}
}
