package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/qlzhou/go-urge-backend/internal/cache"
	"github.com/qlzhou/go-urge-backend/internal/repo"
	"github.com/qlzhou/go-urge-backend/internal/services"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:urgeapi_%s?mode=memory&cache=shared", uuid.NewString())

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func newTestService(t *testing.T) *services.UrgeService {
	t.Helper()
	return &services.UrgeService{
		DB:        newTestDB(t),
		Limits:    cache.New[repo.LimitStatus](100, time.Minute),
		Counts:    cache.New[int64](100, time.Minute),
		Stats:     cache.New[repo.UrgeStats](100, time.Minute),
		MaxPerDay: 2,
		Window:    24 * time.Hour,
		LimitTTL:  30 * time.Second,
		CountTTL:  2 * time.Minute,
		StatsTTL:  5 * time.Minute,
	}
}

func newTestRouter(t *testing.T) (*gin.Engine, *Handlers) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	h := New(newTestService(t), okPinger{}, time.Now())

	r := gin.New()
	r.POST("/api/v1/urge/:tutorialId", h.PostUrge)
	r.GET("/api/v1/urge/:tutorialId", h.GetUrge)
	r.GET("/health", h.Health)
	return r, h
}

func do(r *gin.Engine, method, path string, mutate func(*http.Request)) (*httptest.ResponseRecorder, Envelope) {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, nil)
	if mutate != nil {
		mutate(req)
	}
	r.ServeHTTP(w, req)

	var env Envelope
	_ = json.Unmarshal(w.Body.Bytes(), &env)
	return w, env
}

func dataField(t *testing.T, env Envelope, key string) any {
	t.Helper()
	m, ok := env.Data.(map[string]any)
	if !ok {
		t.Fatalf("data is not an object: %#v", env.Data)
	}
	return m[key]
}

func TestPostUrge_SuccessEnvelope(t *testing.T) {
	r, _ := newTestRouter(t)

	w, env := do(r, http.MethodPost, "/api/v1/urge/t1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if !env.Success || env.Error != "" || env.Code != "" {
		t.Fatalf("unexpected envelope: %+v", env)
	}
	if got := dataField(t, env, "urgeCount"); got != float64(1) {
		t.Errorf("urgeCount = %v, want 1", got)
	}
	if got := dataField(t, env, "remainingUrges"); got != float64(1) {
		t.Errorf("remainingUrges = %v, want 1", got)
	}
	if msg, _ := dataField(t, env, "message").(string); msg == "" {
		t.Errorf("message must be non-empty")
	}
}

func TestPostUrge_DailyLimitGives429(t *testing.T) {
	r, _ := newTestRouter(t)

	for i := 0; i < 2; i++ {
		if w, _ := do(r, http.MethodPost, "/api/v1/urge/t1", nil); w.Code != http.StatusOK {
			t.Fatalf("urge %d: status %d", i+1, w.Code)
		}
	}

	w, env := do(r, http.MethodPost, "/api/v1/urge/t1", nil)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", w.Code)
	}
	if env.Success || env.Code != CodeRateLimitExceeded {
		t.Fatalf("unexpected envelope: %+v", env)
	}

	// The denial must not have advanced the counter
	_, getEnv := do(r, http.MethodGet, "/api/v1/urge/t1", nil)
	if got := dataField(t, getEnv, "urgeCount"); got != float64(2) {
		t.Errorf("urgeCount after denial = %v, want 2", got)
	}
}

func TestPostUrge_InvalidTutorialID(t *testing.T) {
	r, _ := newTestRouter(t)

	long := strings.Repeat("x", 101)
	w, env := do(r, http.MethodPost, "/api/v1/urge/"+long, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if env.Success || env.Code != CodeValidationError {
		t.Fatalf("unexpected envelope: %+v", env)
	}
}

func TestPostUrge_QuotaIsPerClientAddress(t *testing.T) {
	r, _ := newTestRouter(t)

	urgeAs := func(ip string) int {
		w, _ := do(r, http.MethodPost, "/api/v1/urge/t1", func(req *http.Request) {
			req.Header.Set("X-Forwarded-For", ip+", 10.0.0.1")
		})
		return w.Code
	}

	if urgeAs("203.0.113.1") != http.StatusOK || urgeAs("203.0.113.1") != http.StatusOK {
		t.Fatalf("first client should get both urges")
	}
	if got := urgeAs("203.0.113.1"); got != http.StatusTooManyRequests {
		t.Fatalf("first client third urge = %d, want 429", got)
	}
	// Another address has its own quota against the same tutorial
	if got := urgeAs("203.0.113.2"); got != http.StatusOK {
		t.Fatalf("second client first urge = %d, want 200", got)
	}
}

func TestPostUrge_LocalizedMessage(t *testing.T) {
	r, _ := newTestRouter(t)

	_, env := do(r, http.MethodPost, "/api/v1/urge/t1", func(req *http.Request) {
		req.Header.Set("Accept-Language", "zh-CN,zh;q=0.9")
	})
	msg, _ := dataField(t, env, "message").(string)
	if !strings.Contains(msg, "催更") {
		t.Fatalf("message = %q, want Chinese variant", msg)
	}
}

func TestGetUrge_CountOnlyByDefault(t *testing.T) {
	r, _ := newTestRouter(t)
	do(r, http.MethodPost, "/api/v1/urge/t1", nil)

	w, env := do(r, http.MethodGet, "/api/v1/urge/t1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if got := dataField(t, env, "urgeCount"); got != float64(1) {
		t.Errorf("urgeCount = %v, want 1", got)
	}
	if m := env.Data.(map[string]any); m["totalUrges"] != nil {
		t.Errorf("stats fields must be omitted without includeStats")
	}
}

func TestGetUrge_IncludeStats(t *testing.T) {
	r, _ := newTestRouter(t)
	do(r, http.MethodPost, "/api/v1/urge/t1", nil)

	_, env := do(r, http.MethodGet, "/api/v1/urge/t1?includeStats=true", nil)
	if got := dataField(t, env, "totalUrges"); got != float64(1) {
		t.Errorf("totalUrges = %v, want 1", got)
	}
	if got := dataField(t, env, "todayUrges"); got != float64(1) {
		t.Errorf("todayUrges = %v, want 1", got)
	}
	if got := dataField(t, env, "uniqueClients"); got != float64(1) {
		t.Errorf("uniqueClients = %v, want 1", got)
	}
}

func TestGetUrge_AbsentTutorialIsZero(t *testing.T) {
	r, _ := newTestRouter(t)

	w, env := do(r, http.MethodGet, "/api/v1/urge/never-seen", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if got := dataField(t, env, "urgeCount"); got != float64(0) {
		t.Errorf("urgeCount = %v, want 0", got)
	}
}
