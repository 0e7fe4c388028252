package router

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/oksasatya/auth-api/config"
	"github.com/oksasatya/auth-api/internal/application"
	"github.com/oksasatya/auth-api/internal/domain/entity"
	"github.com/oksasatya/auth-api/internal/infrastructure/memory"
	"github.com/oksasatya/auth-api/internal/interface/middleware"
	"github.com/oksasatya/auth-api/pkg/helpers"
	"github.com/oksasatya/auth-api/pkg/validation"
)

func init() {
	gin.SetMode(gin.TestMode)
	validation.Init()
}

type mailbox struct {
	mu   sync.Mutex
	urls []string
}

func (m *mailbox) SendPasswordReset(_ context.Context, _ *entity.User, resetURL string, _ time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.urls = append(m.urls, resetURL)
	return nil
}

func (m *mailbox) SendWelcome(context.Context, *entity.User) error { return nil }

func (m *mailbox) lastToken(t *testing.T) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	require.NotEmpty(t, m.urls)
	u := m.urls[len(m.urls)-1]
	return u[strings.LastIndex(u, "/")+1:]
}

type memPhotos struct{}

func (memPhotos) Upload(_ context.Context, objectPath, _ string, r io.Reader) (string, error) {
	_, _ = io.Copy(io.Discard, r)
	return "https://storage.example.com/" + objectPath, nil
}

type downStore struct{ *memory.UserRepository }

func (downStore) Ping(context.Context) error { return errors.New("connection refused") }

type testApp struct {
	engine *gin.Engine
	repo   *memory.UserRepository
	jwt    *helpers.JWTManager
	mail   *mailbox
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	app := &testApp{
		repo: memory.NewUserRepository(),
		jwt:  helpers.NewJWTManager("access-secret", "refresh-secret", 15*time.Minute, 24*time.Hour),
		mail: &mailbox{},
	}
	app.engine = NewEngine(Deps{
		Config:   &config.Config{Env: "test", RateLimitMax: 100, RateLimitWindow: time.Hour},
		Logger:   helpers.NewDiscardLogger(),
		Users:    app.repo,
		JWT:      app.jwt,
		Hasher:   helpers.NewPasswordHasher(bcrypt.MinCost, 0),
		Notifier: app.mail,
		Photos:   memPhotos{},
	})
	return app
}

type reply struct {
	Code    int
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Meta    json.RawMessage `json:"meta"`
	Error   struct {
		Kind string `json:"kind"`
	} `json:"error"`
	Cookies map[string]*http.Cookie
}

func (a *testApp) do(t *testing.T, method, path string, body any, token string, cookies ...*http.Cookie) reply {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	return a.send(t, req, token, cookies...)
}

func (a *testApp) send(t *testing.T, req *http.Request, token string, cookies ...*http.Cookie) reply {
	t.Helper()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	a.engine.ServeHTTP(w, req)

	r := reply{Code: w.Code, Cookies: map[string]*http.Cookie{}}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &r), w.Body.String())
	for _, c := range w.Result().Cookies() {
		r.Cookies[c.Name] = c
	}
	return r
}

type authData struct {
	Token string `json:"token"`
	User  struct {
		ID       string `json:"id"`
		Email    string `json:"email"`
		Role     string `json:"role"`
		Password string `json:"password"`
	} `json:"user"`
}

func (r reply) auth(t *testing.T) authData {
	t.Helper()
	var d authData
	require.NoError(t, json.Unmarshal(r.Data, &d))
	return d
}

func signupBody(email string) map[string]string {
	return map[string]string{"name": "Alice", "email": email, "password": "pass1234", "passwordConfirm": "pass1234"}
}

func TestSignupAndLogin(t *testing.T) {
	app := newTestApp(t)

	r := app.do(t, http.MethodPost, "/api/auth/signup", signupBody("alice@example.com"), "")
	require.Equal(t, http.StatusCreated, r.Code, r.Message)
	d := r.auth(t)
	assert.NotEmpty(t, d.Token)
	assert.Equal(t, "user", d.User.Role)
	assert.Empty(t, d.User.Password)
	assert.NotContains(t, string(r.Data), "password")
	require.Contains(t, r.Cookies, helpers.AccessCookie)
	assert.True(t, r.Cookies[helpers.AccessCookie].HttpOnly)
	assert.Equal(t, "/api/auth/refresh-token", r.Cookies[helpers.RefreshCookie].Path)

	r = app.do(t, http.MethodPost, "/api/auth/signup", signupBody("alice@example.com"), "")
	assert.Equal(t, http.StatusBadRequest, r.Code)
	assert.Equal(t, application.MsgDuplicateEmail, r.Message)

	r = app.do(t, http.MethodPost, "/api/auth/login", map[string]string{"email": "alice@example.com", "password": "wrong-one"}, "")
	assert.Equal(t, http.StatusUnauthorized, r.Code)
	assert.Equal(t, "Incorrect email or password", r.Message)

	r = app.do(t, http.MethodPost, "/api/auth/login", map[string]string{"email": "alice@example.com"}, "")
	assert.Equal(t, http.StatusBadRequest, r.Code)
	assert.Equal(t, application.MsgMissingCredentials, r.Message)

	r = app.do(t, http.MethodPost, "/api/auth/login", map[string]string{"email": "alice@example.com", "password": "pass1234"}, "")
	require.Equal(t, http.StatusOK, r.Code)
	token := r.auth(t).Token

	r = app.do(t, http.MethodGet, "/api/users/me", nil, token)
	require.Equal(t, http.StatusOK, r.Code)
	assert.Contains(t, string(r.Data), "alice@example.com")
}

func TestSignupValidation(t *testing.T) {
	app := newTestApp(t)

	body := signupBody("not-an-email")
	body["password"] = "short"
	r := app.do(t, http.MethodPost, "/api/auth/signup", body, "")
	assert.Equal(t, http.StatusBadRequest, r.Code)
	assert.Equal(t, "ValidationError", r.Error.Kind)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/signup", strings.NewReader("{"))
	req.Header.Set("Content-Type", "application/json")
	r = app.send(t, req, "")
	assert.Equal(t, http.StatusBadRequest, r.Code)
}

func TestRefreshAndLogout(t *testing.T) {
	app := newTestApp(t)
	r := app.do(t, http.MethodPost, "/api/auth/signup", signupBody("alice@example.com"), "")
	require.Equal(t, http.StatusCreated, r.Code)
	refresh := r.Cookies[helpers.RefreshCookie]
	access := r.Cookies[helpers.AccessCookie]

	r = app.do(t, http.MethodPost, "/api/auth/refresh-token", nil, "", refresh)
	require.Equal(t, http.StatusOK, r.Code, r.Message)
	assert.NotEmpty(t, r.auth(t).Token)

	r = app.do(t, http.MethodPost, "/api/auth/refresh-token", nil, "", &http.Cookie{Name: helpers.RefreshCookie, Value: access.Value})
	assert.Equal(t, http.StatusUnauthorized, r.Code)

	r = app.do(t, http.MethodPost, "/api/auth/refresh-token", nil, "")
	assert.Equal(t, http.StatusUnauthorized, r.Code)
	assert.Equal(t, application.MsgNotLoggedIn, r.Message)

	// a refresh token is not an access token
	r = app.do(t, http.MethodGet, "/api/users/me", nil, refresh.Value)
	assert.Equal(t, http.StatusUnauthorized, r.Code)

	r = app.do(t, http.MethodPost, "/api/auth/logout", nil, "")
	require.Equal(t, http.StatusOK, r.Code)
	assert.Equal(t, helpers.LoggedOutValue, r.Cookies[helpers.AccessCookie].Value)

	r = app.do(t, http.MethodGet, "/api/users/me", nil, "", &http.Cookie{Name: helpers.AccessCookie, Value: helpers.LoggedOutValue})
	assert.Equal(t, http.StatusUnauthorized, r.Code)
}

func TestExpiredRefreshToken(t *testing.T) {
	app := newTestApp(t)
	r := app.do(t, http.MethodPost, "/api/auth/signup", signupBody("alice@example.com"), "")
	require.Equal(t, http.StatusCreated, r.Code)
	refresh := r.Cookies[helpers.RefreshCookie]

	app.jwt.Now = func() time.Time { return time.Now().Add(25 * time.Hour) }
	r = app.do(t, http.MethodPost, "/api/auth/refresh-token", nil, "", refresh)
	assert.Equal(t, http.StatusUnauthorized, r.Code)
}

func TestForgotAndResetPassword(t *testing.T) {
	app := newTestApp(t)
	require.Equal(t, http.StatusCreated, app.do(t, http.MethodPost, "/api/auth/signup", signupBody("alice@example.com"), "").Code)

	r := app.do(t, http.MethodPost, "/api/auth/forgotPassword", map[string]string{"email": "nobody@example.com"}, "")
	assert.Equal(t, http.StatusNotFound, r.Code)

	r = app.do(t, http.MethodPost, "/api/auth/forgotPassword", map[string]string{"email": "alice@example.com"}, "")
	require.Equal(t, http.StatusOK, r.Code)
	assert.Equal(t, "Token sent to email!", r.Message)
	assert.True(t, strings.HasPrefix(app.mail.urls[0], "http://example.com/api/auth/resetPassword/"))
	token := app.mail.lastToken(t)

	reset := map[string]string{"password": "newpass123", "passwordConfirm": "newpass123"}
	r = app.do(t, http.MethodPatch, "/api/auth/resetPassword/"+token, reset, "")
	require.Equal(t, http.StatusOK, r.Code, r.Message)
	assert.NotEmpty(t, r.auth(t).Token)

	r = app.do(t, http.MethodPatch, "/api/auth/resetPassword/"+token, reset, "")
	assert.Equal(t, http.StatusBadRequest, r.Code)
	assert.Equal(t, application.MsgTokenInvalidExpired, r.Message)

	r = app.do(t, http.MethodPost, "/api/auth/login", map[string]string{"email": "alice@example.com", "password": "newpass123"}, "")
	assert.Equal(t, http.StatusOK, r.Code)
}

func TestUpdatePassword(t *testing.T) {
	app := newTestApp(t)
	r := app.do(t, http.MethodPost, "/api/auth/signup", signupBody("alice@example.com"), "")
	require.Equal(t, http.StatusCreated, r.Code)
	token := r.auth(t).Token

	body := map[string]string{"passwordCurrent": "pass1234", "password": "newpass123", "passwordConfirm": "newpass123"}
	r = app.do(t, http.MethodPatch, "/api/auth/updatePassword", body, "")
	assert.Equal(t, http.StatusUnauthorized, r.Code)

	wrong := map[string]string{"passwordCurrent": "nope-nope", "password": "newpass123", "passwordConfirm": "newpass123"}
	r = app.do(t, http.MethodPatch, "/api/auth/updatePassword", wrong, token)
	assert.Equal(t, http.StatusUnauthorized, r.Code)
	assert.Equal(t, application.MsgWrongCurrentPassword, r.Message)

	r = app.do(t, http.MethodPatch, "/api/auth/updatePassword", body, token)
	require.Equal(t, http.StatusOK, r.Code, r.Message)
	assert.NotEmpty(t, r.auth(t).Token)
}

func TestUploadPhoto(t *testing.T) {
	app := newTestApp(t)
	r := app.do(t, http.MethodPost, "/api/auth/signup", signupBody("alice@example.com"), "")
	require.Equal(t, http.StatusCreated, r.Code)
	token := r.auth(t).Token

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="photo"; filename="me.png"`)
	h.Set("Content-Type", "image/png")
	part, err := mw.CreatePart(h)
	require.NoError(t, err)
	_, _ = part.Write([]byte("\x89PNG fake"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPatch, "/api/users/me/photo", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	r = app.send(t, req, token)
	require.Equal(t, http.StatusOK, r.Code, r.Message)
	assert.Contains(t, string(r.Data), "https://storage.example.com/photos/")

	req = httptest.NewRequest(http.MethodPatch, "/api/users/me/photo", strings.NewReader(""))
	req.Header.Set("Content-Type", "application/json")
	r = app.send(t, req, token)
	assert.Equal(t, http.StatusBadRequest, r.Code)
}

func TestSearchIsAdminOnly(t *testing.T) {
	app := newTestApp(t)
	r := app.do(t, http.MethodPost, "/api/auth/signup", signupBody("alice@example.com"), "")
	require.Equal(t, http.StatusCreated, r.Code)
	userToken := r.auth(t).Token

	r = app.do(t, http.MethodGet, "/api/users/search?q=alice", nil, userToken)
	assert.Equal(t, http.StatusForbidden, r.Code)
	assert.Equal(t, middleware.MsgNoPermission, r.Message)

	admin := &entity.User{Name: "Root", Email: "root@example.com", Role: entity.RoleAdmin, Password: "x", Active: true}
	require.NoError(t, app.repo.Create(context.Background(), admin))
	adminToken, _, err := app.jwt.GenerateAccessToken(admin.ID)
	require.NoError(t, err)

	r = app.do(t, http.MethodGet, "/api/users/search?q=alice", nil, adminToken)
	require.Equal(t, http.StatusOK, r.Code)
	assert.JSONEq(t, `{"count":0}`, string(r.Meta))
}

func TestHealthAndNotFound(t *testing.T) {
	app := newTestApp(t)
	assert.Equal(t, http.StatusOK, app.do(t, http.MethodGet, "/api/health", nil, "").Code)

	r := app.do(t, http.MethodGet, "/api/tours", nil, "")
	assert.Equal(t, http.StatusNotFound, r.Code)
	assert.Equal(t, "Can't find /api/tours on this server!", r.Message)

	down := NewEngine(Deps{
		Config: &config.Config{Env: "test"},
		Logger: helpers.NewDiscardLogger(),
		Users:  downStore{memory.NewUserRepository()},
		JWT:    app.jwt,
		Hasher: helpers.NewPasswordHasher(bcrypt.MinCost, 0),
	})
	w := httptest.NewRecorder()
	down.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
