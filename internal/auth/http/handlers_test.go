package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/copperlane/gatehouse/internal/auth/mail"
	"github.com/copperlane/gatehouse/internal/auth/service"
	"github.com/copperlane/gatehouse/internal/auth/store/drivers/sqlite"
	"github.com/copperlane/gatehouse/pkg/idx"
	"github.com/copperlane/gatehouse/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

type fakeMailer struct {
	messages []mail.Message
}

func (m *fakeMailer) Send(_ context.Context, msg mail.Message) (mail.Result, error) {
	m.messages = append(m.messages, msg)
	return mail.Result{ID: idx.New().String()}, nil
}

var codeRe = regexp.MustCompile(`code=([0-9a-f]{25})`)

func (m *fakeMailer) lastCode(t *testing.T) string {
	t.Helper()
	require.NotEmpty(t, m.messages)
	match := codeRe.FindStringSubmatch(m.messages[len(m.messages)-1].Text)
	require.Len(t, match, 2)
	return match[1]
}

func newTestRouter(t *testing.T) (*Router, *fakeMailer) {
	t.Helper()

	dsn := "file:" + filepath.Join(t.TempDir(), "test.db")
	st, err := sqlite.NewStore(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	mailer := &fakeMailer{}
	accessCodec := &jwtx.Codec{
		Secret:   []byte("access-secret-for-tests-32-bytes!"),
		Issuer:   "gatehouse-test",
		Audience: jwtx.DefaultAudience,
		TTL:      15 * time.Minute,
	}
	refreshCodec := &jwtx.Codec{
		Secret:   []byte("refresh-secret-for-tests-32-bytes"),
		Issuer:   "gatehouse-test",
		Audience: jwtx.DefaultAudience,
		TTL:      30 * 24 * time.Hour,
	}

	svc := &service.AuthService{
		Store:        st,
		Mailer:       mailer,
		AccessCodec:  accessCodec,
		RefreshCodec: refreshCodec,
		AppOrigin:    "https://app.example",
		SessionTTL:   30 * 24 * time.Hour,
	}

	router := NewRouter(
		accessCodec,
		15*time.Minute,
		30*24*time.Hour,
		"test",
		st,
		nil,
		slog.New(slog.DiscardHandler),
	)
	router.AuthService = svc
	router.ApplyRoutes()

	return router, mailer
}

func doJSON(t *testing.T, router *Router, method, path, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	var rd *strings.Reader
	if body == "" {
		rd = strings.NewReader("{}")
	} else {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func registerAlice(t *testing.T, router *Router) {
	t.Helper()
	rec := doJSON(t, router, http.MethodPost, "/api/v1/auth/register",
		`{"username":"alice","password":"hunter2!","email":"alice@example.com"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

// loginAlice returns the access and refresh cookies from a fresh login.
func loginAlice(t *testing.T, router *Router) (*http.Cookie, *http.Cookie) {
	t.Helper()
	rec := doJSON(t, router, http.MethodPost, "/api/v1/auth/login",
		`{"email":"alice@example.com","password":"hunter2!"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var access, refresh *http.Cookie
	for _, c := range rec.Result().Cookies() {
		switch c.Name {
		case accessCookieName:
			access = c
		case refreshCookieName:
			refresh = c
		}
	}
	require.NotNil(t, access)
	require.NotNil(t, refresh)
	return access, refresh
}

func TestRegisterEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/auth/register",
		`{"username":"alice","password":"hunter2!","email":"alice@example.com"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var body struct {
		Message string `json:"message"`
		Data    struct {
			Username        string `json:"username"`
			Email           string `json:"email"`
			IsEmailVerified bool   `json:"isEmailVerified"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "alice", body.Data.Username)
	require.False(t, body.Data.IsEmailVerified)

	// The password hash must never appear in the payload
	require.NotContains(t, rec.Body.String(), "argon2id")

	t.Run("duplicate email conflicts", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodPost, "/api/v1/auth/register",
			`{"username":"alice2","password":"hunter2!","email":"alice@example.com"}`)
		require.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("missing fields rejected", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodPost, "/api/v1/auth/register",
			`{"username":"bob"}`)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestLoginEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)
	registerAlice(t, router)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/auth/login",
		`{"email":"alice@example.com","password":"hunter2!"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		MFARequired bool `json:"mfaRequired"`
		User        struct {
			Email string `json:"email"`
		} `json:"user"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.False(t, body.MFARequired)
	require.Equal(t, "alice@example.com", body.User.Email)

	cookies := rec.Result().Cookies()
	byName := map[string]*http.Cookie{}
	for _, c := range cookies {
		byName[c.Name] = c
	}
	require.Contains(t, byName, accessCookieName)
	require.Contains(t, byName, refreshCookieName)
	require.Equal(t, "/", byName[accessCookieName].Path)
	require.Equal(t, RefreshPath, byName[refreshCookieName].Path,
		"refresh cookie must be scoped to the refresh endpoint")
	require.True(t, byName[accessCookieName].HttpOnly)
	require.True(t, byName[refreshCookieName].HttpOnly)

	t.Run("wrong password", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodPost, "/api/v1/auth/login",
			`{"email":"alice@example.com","password":"wrong"}`)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestRefreshEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)
	registerAlice(t, router)
	_, refresh := loginAlice(t, router)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/auth/refresh-token", "", refresh)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var gotAccess bool
	for _, c := range rec.Result().Cookies() {
		if c.Name == accessCookieName && c.Value != "" {
			gotAccess = true
		}
	}
	require.True(t, gotAccess, "refresh must set a fresh access cookie")

	t.Run("missing cookie", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodPost, "/api/v1/auth/refresh-token", "")
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("garbage cookie", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodPost, "/api/v1/auth/refresh-token", "",
			&http.Cookie{Name: refreshCookieName, Value: "garbage"})
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestLogoutEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)
	registerAlice(t, router)
	access, refresh := loginAlice(t, router)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/auth/logout", "", access)
	require.Equal(t, http.StatusOK, rec.Code)

	cleared := 0
	for _, c := range rec.Result().Cookies() {
		if c.MaxAge < 0 {
			cleared++
		}
	}
	require.Equal(t, 2, cleared, "both auth cookies should be expired")

	t.Run("session is gone", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodPost, "/api/v1/auth/refresh-token", "", refresh)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("logout without token", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodPost, "/api/v1/auth/logout", "")
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestVerifyEmailEndpoint(t *testing.T) {
	router, mailer := newTestRouter(t)
	registerAlice(t, router)
	code := mailer.lastCode(t)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/auth/verify-email",
		`{"code":"`+code+`"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	t.Run("second use fails", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodPost, "/api/v1/auth/verify-email",
			`{"code":"`+code+`"}`)
		require.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("empty code rejected", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodPost, "/api/v1/auth/verify-email", `{"code":""}`)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestPasswordResetFlow(t *testing.T) {
	router, mailer := newTestRouter(t)
	registerAlice(t, router)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/auth/forgot-password",
		`{"email":"alice@example.com"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	code := mailer.lastCode(t)

	rec = doJSON(t, router, http.MethodPost, "/api/v1/auth/reset-password",
		`{"password":"n3w-p4ssword!","verificationCode":"`+code+`"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	cleared := 0
	for _, c := range rec.Result().Cookies() {
		if c.MaxAge < 0 {
			cleared++
		}
	}
	require.Equal(t, 2, cleared, "reset must clear auth cookies")

	t.Run("new password works", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodPost, "/api/v1/auth/login",
			`{"email":"alice@example.com","password":"n3w-p4ssword!"}`)
		require.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("unknown email", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodPost, "/api/v1/auth/forgot-password",
			`{"email":"nobody@example.com"}`)
		require.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestSessionEndpoints(t *testing.T) {
	router, _ := newTestRouter(t)
	registerAlice(t, router)
	access, _ := loginAlice(t, router)
	loginAlice(t, router) // second session

	rec := doJSON(t, router, http.MethodGet, "/api/v1/sessions", "", access)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body struct {
		Sessions []struct {
			ID        string `json:"id"`
			IsCurrent bool   `json:"isCurrent"`
		} `json:"sessions"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Sessions, 2)

	var current, other string
	for _, s := range body.Sessions {
		if s.IsCurrent {
			current = s.ID
		} else {
			other = s.ID
		}
	}
	require.NotEmpty(t, current, "exactly one session should be marked current")
	require.NotEmpty(t, other)

	t.Run("revoke another session", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodDelete, "/api/v1/sessions/"+other, "", access)
		require.Equal(t, http.StatusOK, rec.Code)

		rec = doJSON(t, router, http.MethodGet, "/api/v1/sessions", "", access)
		require.Equal(t, http.StatusOK, rec.Code)
		require.NotContains(t, rec.Body.String(), other)
	})

	t.Run("unknown session id", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodDelete,
			"/api/v1/sessions/"+idx.New().String(), "", access)
		require.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("requires auth", func(t *testing.T) {
		rec := doJSON(t, router, http.MethodGet, "/api/v1/sessions", "")
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestHealthEndpoints(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/livez", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"status":"ok"`)

	req = httptest.NewRequest(http.MethodGet, "/readyz", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestLoginRateLimited(t *testing.T) {
	router, _ := newTestRouter(t)
	registerAlice(t, router)

	// The strict profile allows a burst of 5 per IP
	for i := range 5 {
		rec := doJSON(t, router, http.MethodPost, "/api/v1/auth/login",
			`{"email":"alice@example.com","password":"wrong"}`)
		require.Equal(t, http.StatusUnauthorized, rec.Code, "attempt %d", i+1)
	}

	rec := doJSON(t, router, http.MethodPost, "/api/v1/auth/login",
		`{"email":"alice@example.com","password":"wrong"}`)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.NotEmpty(t, rec.Header().Get("Retry-After"))
}
