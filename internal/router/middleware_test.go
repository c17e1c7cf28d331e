package router

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stockyourlot/internal/authz"
	"github.com/stockyourlot/internal/config"
	"github.com/stockyourlot/internal/constants"
	"github.com/stockyourlot/internal/metrics"
	"github.com/stockyourlot/internal/models"
	"github.com/stockyourlot/internal/repository"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestCORSPolicyAllowOrigin(t *testing.T) {
	cases := []struct {
		name   string
		cfg    config.CORSConfig
		origin string
		want   string
	}{
		{name: "wildcard", cfg: config.CORSConfig{AllowedOrigins: []string{"*"}}, origin: "https://example.com", want: "*"},
		{name: "wildcard_credentials", cfg: config.CORSConfig{AllowedOrigins: []string{"*"}, AllowCredentials: true}, origin: "https://example.com", want: "https://example.com"},
		{name: "default_is_wildcard", cfg: config.CORSConfig{}, origin: "https://example.com", want: "*"},
		{name: "allow_list", cfg: config.CORSConfig{AllowedOrigins: []string{"https://a.example.com", "https://b.example.com"}}, origin: "https://A.example.com", want: "https://A.example.com"},
		{name: "unmatched", cfg: config.CORSConfig{AllowedOrigins: []string{"https://a.example.com"}}, origin: "https://x.example.com", want: ""},
		{name: "no_origin", cfg: config.CORSConfig{AllowedOrigins: []string{"https://a.example.com"}}, origin: "", want: ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, newCORSPolicy(tc.cfg).allowOrigin(tc.origin))
		})
	}
}

func TestCORSMiddlewarePreflight(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(CORSMiddleware(config.CORSConfig{AllowedOrigins: []string{"https://lot.example.com"}, MaxAge: 600}))
	r.POST("/api/v1/purchases", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/purchases", nil)
	req.Header.Set("Origin", "https://lot.example.com")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://lot.example.com", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "600", w.Header().Get("Access-Control-Max-Age"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), "Authorization")
}

func TestBearerToken(t *testing.T) {
	token, ok := bearerToken("bearer abc.def")
	assert.True(t, ok)
	assert.Equal(t, "abc.def", token)

	for _, header := range []string{"Bearer", "Bearer   ", "Token abc", "abc"} {
		_, ok := bearerToken(header)
		assert.False(t, ok, header)
	}
}

func TestRequestIDMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(RequestIDMiddleware())
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"request_id": getRequestID(c)})
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(requestIDHeader, "req-123")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status want 200 got %d", w.Code)
	}
	if w.Header().Get(requestIDHeader) != "req-123" {
		t.Fatalf("response request id want req-123 got %s", w.Header().Get(requestIDHeader))
	}
	var resp map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response failed: %v", err)
	}
	if resp["request_id"] != "req-123" {
		t.Fatalf("context request id want req-123 got %s", resp["request_id"])
	}

	w2 := httptest.NewRecorder()
	req2 := httptest.NewRequest(http.MethodGet, "/ping", nil)
	r.ServeHTTP(w2, req2)
	generated := w2.Header().Get(requestIDHeader)
	if generated == "" {
		t.Fatalf("generated request id should not be empty")
	}
	if resp := strings.TrimSpace(generated); resp == "" {
		t.Fatalf("generated request id should not be blank")
	}
}

const testJWTSecret = "router-test-secret-0123456789abcdef"

type envelope struct {
	StatusCode int             `json:"status_code"`
	Msg        string          `json:"msg"`
	Data       json.RawMessage `json:"data"`
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var resp envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func setupRouterTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{DisableForeignKeyConstraintWhenMigrating: true})
	require.NoError(t, err)
	require.NoError(t, models.Migrate(db))
	return db
}

func createTestUser(t *testing.T, db *gorm.DB, username, status string) *models.User {
	t.Helper()
	user := &models.User{Username: username, Status: status}
	require.NoError(t, db.Create(user).Error)
	return user
}

func issueTestToken(t *testing.T, user *models.User, roles ...string) string {
	t.Helper()
	token, err := authz.IssueAccessToken(testJWTSecret, "", user.ID, user.Username, roles, time.Hour)
	require.NoError(t, err)
	return token
}

func newAuthEngine(repo repository.SubjectRepository, extra ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handlers := append([]gin.HandlerFunc{JWTAuthMiddleware(config.JWTConfig{SecretKey: testJWTSecret}, repo)}, extra...)
	handlers = append(handlers, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status_code": 0,
			"user_id":     c.GetUint(userIDContextKey),
			"username":    c.GetString(usernameContextKey),
			"roles":       c.GetStringSlice(rolesContextKey),
		})
	})
	r.GET("/api/v1/purchases", handlers...)
	r.GET("/api/v1/admin/incentive-rules", handlers...)
	return r
}

func TestJWTAuthMiddlewareMissingSecret(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(JWTAuthMiddleware(config.JWTConfig{}, nil))
	r.GET("/admin/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin/ping", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 401, decodeEnvelope(t, w).StatusCode)
}

func TestJWTAuthMiddlewareRejectsBadHeaders(t *testing.T) {
	db := setupRouterTestDB(t)
	r := newAuthEngine(repository.NewSubjectRepository(db))

	cases := []struct {
		name   string
		header string
	}{
		{name: "missing", header: ""},
		{name: "scheme", header: "Token abc"},
		{name: "garbage", header: "Bearer not-a-jwt"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/api/v1/purchases", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			r.ServeHTTP(w, req)
			assert.Equal(t, 401, decodeEnvelope(t, w).StatusCode)
		})
	}
}

func TestJWTAuthMiddlewareSetsIdentity(t *testing.T) {
	db := setupRouterTestDB(t)
	user := createTestUser(t, db, "buyer.one", constants.UserStatusActive)
	r := newAuthEngine(repository.NewSubjectRepository(db))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/purchases", nil)
	req.Header.Set("Authorization", "Bearer "+issueTestToken(t, user, "buyer"))
	r.ServeHTTP(w, req)

	var resp struct {
		StatusCode int      `json:"status_code"`
		UserID     uint     `json:"user_id"`
		Username   string   `json:"username"`
		Roles      []string `json:"roles"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 0, resp.StatusCode)
	assert.Equal(t, user.ID, resp.UserID)
	assert.Equal(t, "buyer.one", resp.Username)
	assert.Equal(t, []string{"buyer"}, resp.Roles)
}

func TestJWTAuthMiddlewareDisabledUser(t *testing.T) {
	db := setupRouterTestDB(t)
	user := createTestUser(t, db, "buyer.gone", "disabled")
	r := newAuthEngine(repository.NewSubjectRepository(db))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/purchases", nil)
	req.Header.Set("Authorization", "Bearer "+issueTestToken(t, user, "buyer"))
	r.ServeHTTP(w, req)

	assert.Equal(t, 401, decodeEnvelope(t, w).StatusCode)
}

func TestJWTAuthMiddlewareUnknownUser(t *testing.T) {
	db := setupRouterTestDB(t)
	r := newAuthEngine(repository.NewSubjectRepository(db))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/purchases", nil)
	req.Header.Set("Authorization", "Bearer "+issueTestToken(t, &models.User{ID: 999, Username: "ghost"}))
	r.ServeHTTP(w, req)

	assert.Equal(t, 401, decodeEnvelope(t, w).StatusCode)
}

func TestRBACMiddlewareRoles(t *testing.T) {
	db := setupRouterTestDB(t)
	authzService, err := authz.NewService(db)
	require.NoError(t, err)
	require.NoError(t, authzService.BootstrapBuiltinRoles())

	buyer := createTestUser(t, db, "buyer.rbac", constants.UserStatusActive)
	manager := createTestUser(t, db, "manager.rbac", constants.UserStatusActive)
	r := newAuthEngine(repository.NewSubjectRepository(db), RBACMiddleware(authzService))

	call := func(user *models.User, path string, roles ...string) int {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.Header.Set("Authorization", "Bearer "+issueTestToken(t, user, roles...))
		r.ServeHTTP(w, req)
		return decodeEnvelope(t, w).StatusCode
	}

	assert.Equal(t, 0, call(buyer, "/api/v1/purchases", "buyer"))
	assert.Equal(t, 403, call(buyer, "/api/v1/admin/incentive-rules", "buyer"))
	assert.Equal(t, 0, call(manager, "/api/v1/admin/incentive-rules", "incentive_manager"))
	assert.Equal(t, 403, call(manager, "/api/v1/admin/incentive-rules"))

	require.NoError(t, authzService.GrantRolePolicy("viewer", "/admin/incentive-rules", "GET"))
	ok, err := authzService.Enforcer().AddGroupingPolicy(authz.SubjectForUser(manager.ID), "role:viewer")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 0, call(manager, "/api/v1/admin/incentive-rules"))
}

func TestRBACMiddlewareWithoutService(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/x", func(c *gin.Context) { c.Set(userIDContextKey, uint(1)) }, RBACMiddleware(nil), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status_code": 0})
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Equal(t, 401, decodeEnvelope(t, w).StatusCode)
}

func TestMetricsMiddlewareAggregatesByRoute(t *testing.T) {
	gin.SetMode(gin.TestMode)
	registry := metrics.NewRegistry()

	r := gin.New()
	r.Use(MetricsMiddleware(registry.HTTP))
	r.GET("/api/v1/purchases/:id", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"id": c.Param("id")})
	})

	for _, path := range []string{"/api/v1/purchases/1", "/api/v1/purchases/2", "/missing"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	}

	count, err := testutil.GatherAndCount(registry.Gatherer(), "stockyourlot_http_requests_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	rec := httptest.NewRecorder()
	registry.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	assert.Contains(t, body, `route="/api/v1/purchases/:id"`)
	assert.Contains(t, body, `route="unmatched"`)
}
