package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reviewhub/internal/httpapi"
	"reviewhub/internal/testutil"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	if err := httpapi.RegisterValidators(); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

var testTokens = TokenService{Secret: []byte("test-secret"), Issuer: "test", Duration: time.Hour}

type captureMailer struct {
	to   string
	code string
	fail bool
}

func (m *captureMailer) SendConfirmationCode(_ context.Context, to, _, code string) error {
	if m.fail {
		return errors.New("smtp down")
	}
	m.to = to
	m.code = code
	return nil
}

func newAuthRig(t *testing.T) (*gin.Engine, *Repo, *captureMailer) {
	t.Helper()

	repo := NewRepo(testutil.OpenDB(t))
	mail := &captureMailer{}

	r := gin.New()
	NewHandler(repo, testTokens, mail, time.Hour).RegisterRoutes(r.Group("/api/v1/auth"))
	return r, repo, mail
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func fields(t *testing.T, w *httptest.ResponseRecorder) map[string]string {
	t.Helper()

	var body struct {
		Fields map[string]string `json:"fields"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body.Fields
}

func TestSignupCreatesInactiveUser(t *testing.T) {
	r, repo, mail := newAuthRig(t)

	w := doJSON(t, r, http.MethodPost, "/api/v1/auth/signup", gin.H{
		"username": "alice",
		"email":    "alice@example.com",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	assert.Equal(t, "alice@example.com", mail.to)
	assert.Len(t, mail.code, 32)

	u, err := repo.GetByUsername(context.Background(), "alice")
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.False(t, u.Active)
}

func TestSignupRejectsReservedUsername(t *testing.T) {
	r, _, _ := newAuthRig(t)

	w := doJSON(t, r, http.MethodPost, "/api/v1/auth/signup", gin.H{
		"username": "me",
		"email":    "me@example.com",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, fields(t, w), "username")
}

func TestSignupRejectsInvalidPayload(t *testing.T) {
	r, _, _ := newAuthRig(t)

	w := doJSON(t, r, http.MethodPost, "/api/v1/auth/signup", gin.H{
		"username": "bad name!",
		"email":    "not-an-email",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)

	f := fields(t, w)
	assert.Contains(t, f, "username")
	assert.Contains(t, f, "email")
}

func TestSignupReportsCrossFieldConflicts(t *testing.T) {
	r, _, _ := newAuthRig(t)

	w := doJSON(t, r, http.MethodPost, "/api/v1/auth/signup", gin.H{
		"username": "alice", "email": "alice@example.com",
	})
	require.Equal(t, http.StatusOK, w.Code)

	// username taken, different email
	w = doJSON(t, r, http.MethodPost, "/api/v1/auth/signup", gin.H{
		"username": "alice", "email": "other@example.com",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, fields(t, w), "username")

	// email taken, different username
	w = doJSON(t, r, http.MethodPost, "/api/v1/auth/signup", gin.H{
		"username": "bob", "email": "alice@example.com",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, fields(t, w), "email")
}

func TestSignupResendsCodeForSameIdentity(t *testing.T) {
	r, repo, mail := newAuthRig(t)

	w := doJSON(t, r, http.MethodPost, "/api/v1/auth/signup", gin.H{
		"username": "alice", "email": "alice@example.com",
	})
	require.Equal(t, http.StatusOK, w.Code)
	first := mail.code

	w = doJSON(t, r, http.MethodPost, "/api/v1/auth/signup", gin.H{
		"username": "alice", "email": "alice@example.com",
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEqual(t, first, mail.code)

	u, err := repo.GetByUsername(context.Background(), "alice")
	require.NoError(t, err)
	assert.False(t, u.Active)
}

func TestSignupMailerFailure(t *testing.T) {
	r, _, mail := newAuthRig(t)
	mail.fail = true

	w := doJSON(t, r, http.MethodPost, "/api/v1/auth/signup", gin.H{
		"username": "alice", "email": "alice@example.com",
	})
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestTokenUnknownUser(t *testing.T) {
	r, _, _ := newAuthRig(t)

	w := doJSON(t, r, http.MethodPost, "/api/v1/auth/token", gin.H{
		"username": "ghost", "confirmation_code": "0123456789abcdef",
	})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestTokenExchange(t *testing.T) {
	r, repo, mail := newAuthRig(t)
	ctx := context.Background()

	w := doJSON(t, r, http.MethodPost, "/api/v1/auth/signup", gin.H{
		"username": "alice", "email": "alice@example.com",
	})
	require.Equal(t, http.StatusOK, w.Code)

	// wrong code
	w = doJSON(t, r, http.MethodPost, "/api/v1/auth/token", gin.H{
		"username": "alice", "confirmation_code": "ffffffffffffffffffffffffffffffff",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, fields(t, w), "confirmation_code")

	// right code
	w = doJSON(t, r, http.MethodPost, "/api/v1/auth/token", gin.H{
		"username": "alice", "confirmation_code": mail.code,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	claims, err := testTokens.Parse(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Username)

	u, err := repo.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, u.Active)

	// codes are single-use
	w = doJSON(t, r, http.MethodPost, "/api/v1/auth/token", gin.H{
		"username": "alice", "confirmation_code": mail.code,
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, fields(t, w), "confirmation_code")
}

func TestTokenExpiredCode(t *testing.T) {
	r, repo, _ := newAuthRig(t)
	ctx := context.Background()

	w := doJSON(t, r, http.MethodPost, "/api/v1/auth/signup", gin.H{
		"username": "alice", "email": "alice@example.com",
	})
	require.Equal(t, http.StatusOK, w.Code)

	u, err := repo.GetByUsername(ctx, "alice")
	require.NoError(t, err)

	code, hash, err := NewConfirmationCode()
	require.NoError(t, err)
	require.NoError(t, repo.SetConfirmation(ctx, u.ID, hash, time.Now().Add(-2*time.Hour)))

	w = doJSON(t, r, http.MethodPost, "/api/v1/auth/token", gin.H{
		"username": "alice", "confirmation_code": code,
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, fields(t, w)["confirmation_code"], "expired")
}

func TestRequireAuthMiddleware(t *testing.T) {
	repo := NewRepo(testutil.OpenDB(t))
	u := testutil.SeedUser(t, repo.DB, "alice", "user")

	r := gin.New()
	r.GET("/protected", RequireAuth(testTokens, repo), func(c *gin.Context) {
		claims := MustGetClaims(c)
		c.JSON(http.StatusOK, gin.H{"username": claims.Username, "role": claims.Role})
	})

	// no header
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/protected", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// garbage token
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer nope")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// valid token
	token, _, err := testTokens.Sign(u)
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	// role changes apply without a new token
	_, err = repo.DB.Exec(`UPDATE users SET role = 'moderator' WHERE id = ?`, u.ID)
	require.NoError(t, err)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "moderator")

	// deactivated account stops working immediately
	_, err = repo.DB.Exec(`UPDATE users SET is_active = 0 WHERE id = ?`, u.ID)
	require.NoError(t, err)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireRolePredicate(t *testing.T) {
	repo := NewRepo(testutil.OpenDB(t))
	admin := testutil.SeedUser(t, repo.DB, "root", "admin")
	plain := testutil.SeedUser(t, repo.DB, "alice", "user")

	r := gin.New()
	r.GET("/admin", RequireAuth(testTokens, repo), Require(CanManageUsers), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	adminToken, _, err := testTokens.Sign(admin)
	require.NoError(t, err)
	plainToken, _, err := testTokens.Sign(plain)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+adminToken)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+plainToken)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}
