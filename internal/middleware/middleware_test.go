package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"storefront/internal/config"
	"storefront/internal/domain/model"

	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

type mwOKResponse struct {
	UserID int64  `json:"user_id"`
	Role   string `json:"role"`
}

type mockUserRepo struct{ mock.Mock }

func (m *mockUserRepo) Create(ctx context.Context, user *model.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	args := m.Called(ctx, email)
	u, _ := args.Get(0).(*model.User)
	return u, args.Error(1)
}

func (m *mockUserRepo) FindByID(ctx context.Context, id int64) (*model.User, error) {
	args := m.Called(ctx, id)
	u, _ := args.Get(0).(*model.User)
	return u, args.Error(1)
}

func (m *mockUserRepo) TouchLastLogin(ctx context.Context, userID int64, at time.Time) error {
	return m.Called(ctx, userID, at).Error(0)
}

func mustMakeJWT(t *testing.T, secret string, sub int64, role string, exp time.Time) string {
	t.Helper()
	claims := jwt.MapClaims{"sub": sub, "role": role, "exp": exp.Unix()}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func newProtectedEcho(mw ...echo.MiddlewareFunc) *echo.Echo {
	e := echo.New()
	g := e.Group("", mw...)
	g.GET("/me", func(c echo.Context) error {
		return c.JSON(http.StatusOK, mwOKResponse{
			UserID: c.Get(CtxUserIDKey).(int64),
			Role:   c.Get(CtxUserRoleKey).(string),
		})
	})
	return e
}

func doGet(e *echo.Echo, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestAuthJWT_OK(t *testing.T) {
	e := newProtectedEcho(AuthJWT(config.Config{JWTSecret: testSecret}))

	rec := doGet(e, mustMakeJWT(t, testSecret, 7, "USER", time.Now().Add(time.Minute)))
	require.Equal(t, http.StatusOK, rec.Code)

	var body mwOKResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, int64(7), body.UserID)
	assert.Equal(t, "USER", body.Role)
}

func TestAuthJWT_Rejects(t *testing.T) {
	e := newProtectedEcho(AuthJWT(config.Config{JWTSecret: testSecret}))

	cases := map[string]string{
		"missing":      "",
		"wrong secret": mustMakeJWT(t, "other", 7, "USER", time.Now().Add(time.Minute)),
		"expired":      mustMakeJWT(t, testSecret, 7, "USER", time.Now().Add(-time.Minute)),
		"no role":      mustMakeJWT(t, testSecret, 7, "", time.Now().Add(time.Minute)),
		"unknown role": mustMakeJWT(t, testSecret, 7, "ROOT", time.Now().Add(time.Minute)),
	}
	for name, token := range cases {
		rec := doGet(e, token)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, name)
		assert.Contains(t, rec.Body.String(), `"detail"`, name)
	}
}

func TestAdminRoleGuard(t *testing.T) {
	e := newProtectedEcho(AuthJWT(config.Config{JWTSecret: testSecret}), AdminRoleGuard())

	rec := doGet(e, mustMakeJWT(t, testSecret, 7, "USER", time.Now().Add(time.Minute)))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = doGet(e, mustMakeJWT(t, testSecret, 1, "ADMIN", time.Now().Add(time.Minute)))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestActiveUserGuard(t *testing.T) {
	users := new(mockUserRepo)
	users.On("FindByID", mock.Anything, int64(7)).Return(&model.User{ID: 7, IsActive: true}, nil)
	users.On("FindByID", mock.Anything, int64(8)).Return(&model.User{ID: 8, IsActive: false}, nil)
	users.On("FindByID", mock.Anything, int64(9)).Return(nil, nil)
	e := newProtectedEcho(AuthJWT(config.Config{JWTSecret: testSecret}), ActiveUserGuard(users))

	exp := time.Now().Add(time.Minute)
	assert.Equal(t, http.StatusOK, doGet(e, mustMakeJWT(t, testSecret, 7, "USER", exp)).Code)
	assert.Equal(t, http.StatusForbidden, doGet(e, mustMakeJWT(t, testSecret, 8, "USER", exp)).Code)
	assert.Equal(t, http.StatusUnauthorized, doGet(e, mustMakeJWT(t, testSecret, 9, "USER", exp)).Code)
}

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewJSONHandler(&buf, nil))
	e := echo.New()
	e.Use(RequestLogger(log))
	e.GET("/ping", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) })

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))

	require.Equal(t, http.StatusNoContent, rec.Code)
	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "/ping", line["uri"])
	assert.Equal(t, float64(http.StatusNoContent), line["status"])
}
