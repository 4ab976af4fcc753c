package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lesson-scheduler-api/internal/models"
	"github.com/noah-isme/lesson-scheduler-api/internal/service"
)

func newTestRouter(tokens TokenValidator, roles ...models.UserRole) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	handlers := []gin.HandlerFunc{JWT(tokens)}
	if len(roles) > 0 {
		handlers = append(handlers, RequireRoles(roles...))
	}
	handlers = append(handlers, func(c *gin.Context) {
		claims := c.MustGet(ContextUserKey).(*models.JWTClaims)
		c.String(http.StatusOK, claims.UserID)
	})
	router.GET("/protected", handlers...)
	return router
}

func TestJWTMiddleware(t *testing.T) {
	tokens := service.NewTokenService(service.TokenConfig{Secret: "secret"})
	token, _, err := tokens.IssueToken(models.JWTClaims{UserID: "u1", Role: models.RoleTeacher, TeacherID: "recT1"}, time.Hour)
	require.NoError(t, err)
	router := newTestRouter(tokens)

	cases := map[string]struct {
		header string
		status int
	}{
		"missing header": {"", http.StatusUnauthorized},
		"wrong scheme":   {"Basic abc", http.StatusUnauthorized},
		"bad token":      {"Bearer nope", http.StatusUnauthorized},
		"valid":          {"Bearer " + token, http.StatusOK},
	}
	for name, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		if tc.header != "" {
			req.Header.Set("Authorization", tc.header)
		}
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, tc.status, rec.Code, name)
	}
}

func TestRequireRoles(t *testing.T) {
	tokens := service.NewTokenService(service.TokenConfig{Secret: "secret"})
	teacherToken, _, err := tokens.IssueToken(models.JWTClaims{UserID: "u1", Role: models.RoleTeacher, TeacherID: "recT1"}, time.Hour)
	require.NoError(t, err)
	adminToken, _, err := tokens.IssueToken(models.JWTClaims{UserID: "admin", Role: models.RoleAdmin}, time.Hour)
	require.NoError(t, err)
	router := newTestRouter(tokens, models.RoleAdmin)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+teacherToken)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+adminToken)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "admin", rec.Body.String())
}

func TestMetricsMiddlewareRecordsRequests(t *testing.T) {
	gin.SetMode(gin.TestMode)
	metrics := service.NewMetricsService()
	router := gin.New()
	router.Use(Metrics(metrics))
	router.GET("/lessons/:id", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/lessons/recL1", nil))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/wp-login.php", nil))
	assert.EqualValues(t, 2, metrics.Snapshot().RequestsTotal)

	exposition := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(exposition, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := exposition.Body.String()
	assert.Contains(t, body, `path="/lessons/:id"`)
	assert.Contains(t, body, `path="unmatched"`)
	assert.NotContains(t, body, "recL1")
}
