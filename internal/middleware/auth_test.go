package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/platinumchess/backend/internal/config"
)

func authRouter(cfg *config.Config) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/guarded", AdminAuth(cfg), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"admin": c.GetString("admin_user")})
	})
	return router
}

func TestAdminAuthAcceptsIssuedToken(t *testing.T) {
	cfg := &config.Config{JWTSecret: "test-secret", SessionTimeoutMin: 30}
	router := authRouter(cfg)

	token, err := IssueAdminToken(cfg, "ops")
	if err != nil {
		t.Fatalf("IssueAdminToken: %v", err)
	}

	req := httptest.NewRequest("GET", "/guarded", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	if body := w.Body.String(); body != `{"admin":"ops"}` {
		t.Errorf("unexpected body %s", body)
	}
}

func TestAdminAuthRejectsMissingAndBadTokens(t *testing.T) {
	cfg := &config.Config{JWTSecret: "test-secret", SessionTimeoutMin: 30}
	router := authRouter(cfg)

	cases := map[string]string{
		"no header":    "",
		"not bearer":   "Basic abc",
		"garbage":      "Bearer not.a.jwt",
		"wrong secret": "Bearer " + mustToken(t, &config.Config{JWTSecret: "other", SessionTimeoutMin: 30}),
	}
	for name, header := range cases {
		req := httptest.NewRequest("GET", "/guarded", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		if w.Code != http.StatusUnauthorized {
			t.Errorf("%s: status = %d, want 401", name, w.Code)
		}
	}
}

func TestAdminAuthRejectsExpiredToken(t *testing.T) {
	cfg := &config.Config{JWTSecret: "test-secret", SessionTimeoutMin: 0}
	router := authRouter(cfg)

	token := mustToken(t, cfg)
	time.Sleep(10 * time.Millisecond)

	req := httptest.NewRequest("GET", "/guarded", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("expired token accepted, status = %d", w.Code)
	}
}

func mustToken(t *testing.T, cfg *config.Config) string {
	t.Helper()
	token, err := IssueAdminToken(cfg, "ops")
	if err != nil {
		t.Fatalf("IssueAdminToken: %v", err)
	}
	return token
}
