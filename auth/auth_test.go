package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"mahlzeit/globals"
	"mahlzeit/middleware"
	"mahlzeit/models"
)

type memUsers struct {
	mu    sync.Mutex
	users map[string]*models.User
}

func newMemUsers() *memUsers {
	return &memUsers{users: map[string]*models.User{}}
}

func (m *memUsers) Create(_ context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Email == u.Email {
			return ErrEmailTaken
		}
	}
	u.ID = primitive.NewObjectID()
	cp := *u
	m.users[u.ID.Hex()] = &cp
	return nil
}

func (m *memUsers) ByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrUserNotFound
}

func (m *memUsers) ByID(_ context.Context, id string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memUsers) Update(_ context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *u
	m.users[u.ID.Hex()] = &cp
	return nil
}

func newRouter(t *testing.T) (*httprouter.Router, *Tokens) {
	t.Helper()
	tokens := NewTokens("test-secret", 72*time.Hour, nil)
	h := NewHandlers(newMemUsers(), tokens)
	mw := middleware.New(tokens)

	router := httprouter.New()
	router.POST("/register", h.Register)
	router.POST("/login", h.Login)
	router.POST("/logout", mw.Authenticate(h.Logout))
	router.GET("/me", mw.Authenticate(h.Me))
	router.PUT("/me", mw.Authenticate(h.UpdateAccount))
	return router, tokens
}

func do(t *testing.T, router http.Handler, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func register(t *testing.T, router http.Handler, email, pw string) sessionResponse {
	t.Helper()
	rec := do(t, router, http.MethodPost, "/register", "", map[string]string{
		"email": email, "password": pw, "displayName": "Anna",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var out sessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestRegisterLoginMe(t *testing.T) {
	router, _ := newRouter(t)

	sess := register(t, router, "Anna@Example.com", "geheim1")
	assert.NotEmpty(t, sess.Token)
	assert.Equal(t, "anna@example.com", sess.User.Email)

	rec := do(t, router, http.MethodPost, "/login", "", map[string]string{
		"email": "anna@example.com", "password": "geheim1",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "passwordHash")

	rec = do(t, router, http.MethodGet, "/me", sess.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"displayName":"Anna"`)
}

func TestRegisterValidation(t *testing.T) {
	router, _ := newRouter(t)

	rec := do(t, router, http.MethodPost, "/register", "", map[string]string{"email": "a@b.de", "password": "12345"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, router, http.MethodPost, "/register", "", map[string]string{"email": "nope", "password": "123456"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	register(t, router, "a@b.de", "123456")
	rec = do(t, router, http.MethodPost, "/register", "", map[string]string{"email": "a@b.de", "password": "123456"})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestLoginWrongPassword(t *testing.T) {
	router, _ := newRouter(t)
	register(t, router, "a@b.de", "123456")

	rec := do(t, router, http.MethodPost, "/login", "", map[string]string{"email": "a@b.de", "password": "falsch"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, router, http.MethodPost, "/login", "", map[string]string{"email": "x@b.de", "password": "123456"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMeRequiresToken(t *testing.T) {
	router, _ := newRouter(t)
	rec := do(t, router, http.MethodGet, "/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, router, http.MethodGet, "/me", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestTokenExpiry(t *testing.T) {
	tokens := NewTokens("test-secret", time.Hour, nil)
	base := time.Date(2024, 3, 4, 12, 0, 0, 0, time.UTC)
	tokens.now = func() time.Time { return base }

	u := &models.User{ID: primitive.NewObjectID(), DisplayName: "Anna"}
	raw, exp, err := tokens.Issue(u)
	require.NoError(t, err)
	assert.Equal(t, base.Add(time.Hour), exp)

	id, err := tokens.Verify(context.Background(), raw)
	require.NoError(t, err)
	assert.Equal(t, u.ID.Hex(), id.UserID)
	assert.Equal(t, "Anna", id.DisplayName)
	assert.NotEmpty(t, id.TokenID)

	tokens.now = func() time.Time { return base.Add(2 * time.Hour) }
	_, err = tokens.Verify(context.Background(), raw)
	assert.Error(t, err)
}

func TestTokenWrongSecret(t *testing.T) {
	u := &models.User{ID: primitive.NewObjectID()}
	raw, _, err := NewTokens("one", time.Hour, nil).Issue(u)
	require.NoError(t, err)

	_, err = NewTokens("two", time.Hour, nil).Verify(context.Background(), raw)
	assert.Error(t, err)
}

func TestUpdateAccount(t *testing.T) {
	router, _ := newRouter(t)
	sess := register(t, router, "a@b.de", "123456")

	rec := do(t, router, http.MethodPut, "/me", sess.Token, map[string]string{"displayName": "Berta"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"displayName":"Berta"`)

	rec = do(t, router, http.MethodPut, "/me", sess.Token, map[string]string{"newPassword": "neuespw"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(t, router, http.MethodPut, "/me", sess.Token, map[string]string{
		"currentPassword": "123456", "newPassword": "neuespw",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, router, http.MethodPost, "/login", "", map[string]string{"email": "a@b.de", "password": "neuespw"})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestLogout(t *testing.T) {
	router, _ := newRouter(t)
	sess := register(t, router, "a@b.de", "123456")

	rec := do(t, router, http.MethodPost, "/logout", sess.Token, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestLogoutReadsTokenIDFromContext(t *testing.T) {
	h := NewHandlers(newMemUsers(), NewTokens("test-secret", time.Hour, nil))

	// a bearer header alone is not enough; Authenticate must have run
	req := httptest.NewRequest(http.MethodPost, "/logout", nil)
	req.Header.Set("Authorization", "Bearer whatever")
	rec := httptest.NewRecorder()
	h.Logout(rec, req, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	ctx := context.WithValue(context.Background(), globals.UserIDKey, "u1")
	ctx = context.WithValue(ctx, globals.TokenIDKey, "tok-1")
	rec = httptest.NewRecorder()
	h.Logout(rec, httptest.NewRequest(http.MethodPost, "/logout", nil).WithContext(ctx), nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}
