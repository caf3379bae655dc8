package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/qlzhou/go-urge-backend/internal/config"
	"github.com/qlzhou/go-urge-backend/internal/repo"
)

func newTestEngine(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:urgertr_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}

	cfg := config.Config{
		APIBasePath: "/api/v1",
		RateRPS:     1000,
		RateBurst:   1000,
		Urge: config.UrgeConfig{
			MaxPerDay:     2,
			Window:        24 * time.Hour,
			CacheMaxItems: 100,
			LimitTTL:      30 * time.Second,
			CountTTL:      2 * time.Minute,
			StatsTTL:      5 * time.Minute,
			SweepInterval: time.Minute,
		},
	}

	caches := NewCaches(cfg.Urge)
	t.Cleanup(caches.Stop)

	r := gin.New()
	RegisterRoutes(r, db, caches, cfg, time.Now())
	return r
}

func TestRouter_UrgeRoundTrip(t *testing.T) {
	r := newTestEngine(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/urge/t1", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("POST urge = %d, body = %s", w.Code, w.Body.String())
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/urge/t1", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("GET urge = %d", w.Code)
	}
	var env struct {
		Success bool `json:"success"`
		Data    struct {
			UrgeCount int64 `json:"urgeCount"`
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if !env.Success || env.Data.UrgeCount != 1 {
		t.Fatalf("unexpected body: %s", w.Body.String())
	}
}

func TestRouter_NoRouteAndNoMethodEnvelopes(t *testing.T) {
	r := newTestEngine(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nope", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("unknown route = %d, want 404", w.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if body["success"] != false || body["code"] != "NOT_FOUND" {
		t.Fatalf("unexpected 404 body: %v", body)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPut, "/api/v1/urge/t1", nil))
	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("bad method = %d, want 405", w.Code)
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if body["code"] != "METHOD_NOT_ALLOWED" {
		t.Fatalf("unexpected 405 body: %v", body)
	}
}

func TestRouter_OpsEndpoints(t *testing.T) {
	r := newTestEngine(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("GET /health = %d", w.Code)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("GET /metrics = %d", w.Code)
	}
}

func TestRouter_RequestIDAndSecurityHeaders(t *testing.T) {
	r := newTestEngine(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/urge/t1", nil)
	// Must differ from the request host, or cors treats it as same-origin
	// and skips the headers entirely.
	req.Header.Set("Origin", "https://other.example")
	r.ServeHTTP(w, req)

	if w.Header().Get("X-Request-ID") == "" {
		t.Errorf("missing X-Request-ID header")
	}
	if w.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Errorf("missing nosniff header")
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Access-Control-Allow-Origin = %q, want * for cross-origin request", got)
	}
}

func TestGroupWithPrefix(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	if g := groupWithPrefix(r, ""); g.BasePath() != "/" {
		t.Errorf("empty prefix base = %q", g.BasePath())
	}
	if g := groupWithPrefix(r, "/"); g.BasePath() != "/" {
		t.Errorf("root prefix base = %q", g.BasePath())
	}
	if g := groupWithPrefix(r, "/api/v1"); g.BasePath() != "/api/v1" {
		t.Errorf("api prefix base = %q", g.BasePath())
	}
}
