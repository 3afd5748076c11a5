package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/voluntree/voluntree/internal/auth/service"
	"github.com/voluntree/voluntree/internal/auth/store/drivers/sqlite"
	"github.com/voluntree/voluntree/pkg/cryptox"
	"github.com/voluntree/voluntree/pkg/jwtx"
)

func TestMain(m *testing.M) {
	// Registration hashes passwords, which needs a pepper file.
	path := filepath.Join(os.TempDir(), "auth-http-test-pepper")
	os.Remove(path)
	cryptox.SetPepperPath(path)

	code := m.Run()
	os.Remove(path)
	os.Exit(code)
}

type captureDispatcher struct {
	mu       sync.Mutex
	lastCode string
}

func (d *captureDispatcher) Send(ctx context.Context, address, code string, ttl time.Duration) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.lastCode = code
	return nil
}

func (d *captureDispatcher) LastCode() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lastCode
}

type testEnv struct {
	server *httptest.Server
	client *http.Client
	disp   *captureDispatcher
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	st, err := sqlite.NewStore(filepath.Join(t.TempDir(), "auth_test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	signer, err := jwtx.NewHS256([]byte("0123456789abcdef0123456789abcdef"), "voluntree-auth")
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	disp := &captureDispatcher{}
	hashKey := []byte("fedcba9876543210fedcba9876543210")

	router := NewRouter(signer, "test", st, st.Challenges(), CookieCodec{}, logger)
	router.Credentials = &service.CredentialsService{Store: st}
	router.Challenges = &service.ChallengeService{
		Challenges: st.Challenges(),
		Dispatcher: disp,
		Logger:     logger,
		HashKey:    hashKey,
		Cooldown:   time.Millisecond,
	}
	router.Sessions = &service.SessionService{
		Store:   st,
		Signer:  signer,
		Logger:  logger,
		HashKey: hashKey,
		Issuer:  "voluntree-auth",
	}
	router.ApplyRoutes()

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)

	return &testEnv{
		server: server,
		client: &http.Client{Jar: jar},
		disp:   disp,
	}
}

func (e *testEnv) postJSON(t *testing.T, path string, body any) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(body))

	resp, err := e.client.Post(e.server.URL+path, "application/json", &buf)
	require.NoError(t, err)
	return resp
}

func (e *testEnv) get(t *testing.T, path string) *http.Response {
	t.Helper()

	resp, err := e.client.Get(e.server.URL + path)
	require.NoError(t, err)
	return resp
}

func (e *testEnv) register(t *testing.T, email string) {
	t.Helper()

	resp := e.postJSON(t, "/v1/auth/register", map[string]string{
		"email":    email,
		"name":     "Test Volunteer",
		"password": "correct horse battery staple",
	})
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)
}

// signIn runs register + login + verify-otp, leaving token cookies in
// the client jar.
func (e *testEnv) signIn(t *testing.T, email string) {
	t.Helper()

	e.register(t, email)

	resp := e.postJSON(t, "/v1/auth/login", map[string]string{
		"email":    email,
		"password": "correct horse battery staple",
	})
	defer resp.Body.Close()
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	resp = e.postJSON(t, "/v1/auth/verify-otp", map[string]string{
		"email": email,
		"code":  e.disp.LastCode(),
	})
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func decodeError(t *testing.T, resp *http.Response) ErrorResponse {
	t.Helper()

	var body ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

func TestLoginFlow_EndToEnd(t *testing.T) {
	env := newTestEnv(t)

	env.register(t, "maria@example.org")

	resp := env.postJSON(t, "/v1/auth/login", map[string]string{
		"email":    "maria@example.org",
		"password": "correct horse battery staple",
	})
	defer resp.Body.Close()
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	code := env.disp.LastCode()
	require.NotEmpty(t, code, "login dispatches a code")

	resp = env.postJSON(t, "/v1/auth/verify-otp", map[string]string{
		"email": "maria@example.org",
		"code":  code,
	})
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var profile map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&profile))
	assert.Equal(t, "maria@example.org", profile["email"])

	cookieNames := map[string]bool{}
	for _, c := range resp.Cookies() {
		cookieNames[c.Name] = true
		assert.True(t, c.HttpOnly, "cookie %s must be HttpOnly", c.Name)
		assert.Greater(t, c.MaxAge, 0, "cookie %s carries a lifetime", c.Name)
	}
	assert.True(t, cookieNames[AccessCookieName])
	assert.True(t, cookieNames[RefreshCookieName])

	resp = env.get(t, "/v1/auth/me")
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode, "access cookie authenticates /me")
}

func TestLogin_EnumerationSafe(t *testing.T) {
	env := newTestEnv(t)

	env.register(t, "maria@example.org")

	wrongPassword := env.postJSON(t, "/v1/auth/login", map[string]string{
		"email":    "maria@example.org",
		"password": "not the password",
	})
	defer wrongPassword.Body.Close()

	unknownEmail := env.postJSON(t, "/v1/auth/login", map[string]string{
		"email":    "nobody@example.org",
		"password": "not the password",
	})
	defer unknownEmail.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, wrongPassword.StatusCode)
	assert.Equal(t, http.StatusUnauthorized, unknownEmail.StatusCode)
	assert.Equal(t, decodeError(t, wrongPassword), decodeError(t, unknownEmail),
		"the two failures must be indistinguishable")
}

func TestVerifyOTP_WrongCodeReportsRemaining(t *testing.T) {
	env := newTestEnv(t)

	env.register(t, "maria@example.org")
	resp := env.postJSON(t, "/v1/auth/login", map[string]string{
		"email":    "maria@example.org",
		"password": "correct horse battery staple",
	})
	resp.Body.Close()

	wrong := "000000"
	if wrong == env.disp.LastCode() {
		wrong = "000001"
	}

	resp = env.postJSON(t, "/v1/auth/verify-otp", map[string]string{
		"email": "maria@example.org",
		"code":  wrong,
	})
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	body := decodeError(t, resp)
	assert.Equal(t, "invalid_code", body.Error)
	require.NotNil(t, body.AttemptsRemaining)
	assert.Equal(t, service.DefaultMaxAttempts-1, *body.AttemptsRemaining)
}

func TestRefresh_RotatesAndRejectsReplay(t *testing.T) {
	env := newTestEnv(t)
	env.signIn(t, "maria@example.org")

	base, err := url.Parse(env.server.URL)
	require.NoError(t, err)

	var oldRefresh string
	for _, c := range env.client.Jar.Cookies(mustJoin(t, base, "/v1/auth/")) {
		if c.Name == RefreshCookieName {
			oldRefresh = c.Value
		}
	}
	require.NotEmpty(t, oldRefresh)

	resp := env.postJSON(t, "/v1/auth/refresh-access-token", nil)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var newRefresh string
	for _, c := range resp.Cookies() {
		if c.Name == RefreshCookieName {
			newRefresh = c.Value
		}
	}
	require.NotEmpty(t, newRefresh)
	assert.NotEqual(t, oldRefresh, newRefresh, "rotation replaces the refresh token")

	// Replay the consumed token directly, bypassing the jar.
	req, err := http.NewRequest(http.MethodPost, env.server.URL+"/v1/auth/refresh-access-token", nil)
	require.NoError(t, err)
	req.AddCookie(&http.Cookie{Name: RefreshCookieName, Value: oldRefresh})

	replay, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer replay.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, replay.StatusCode)
	assert.Equal(t, "session_invalid", decodeError(t, replay).Error)

	for _, c := range replay.Cookies() {
		assert.LessOrEqual(t, c.MaxAge, 0, "replay response clears cookie %s", c.Name)
	}
}

func TestRefresh_NoCookie(t *testing.T) {
	env := newTestEnv(t)

	resp := env.postJSON(t, "/v1/auth/refresh-access-token", nil)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "session_invalid", decodeError(t, resp).Error)
}

func TestLogout_ClearsCookiesAndKillsSession(t *testing.T) {
	env := newTestEnv(t)
	env.signIn(t, "maria@example.org")

	resp := env.postJSON(t, "/v1/auth/logout", nil)
	defer resp.Body.Close()
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	for _, c := range resp.Cookies() {
		assert.LessOrEqual(t, c.MaxAge, 0, "logout clears cookie %s", c.Name)
	}

	// Logging out again without a session is fine.
	again := env.postJSON(t, "/v1/auth/logout", nil)
	defer again.Body.Close()
	assert.Equal(t, http.StatusNoContent, again.StatusCode)

	refresh := env.postJSON(t, "/v1/auth/refresh-access-token", nil)
	defer refresh.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, refresh.StatusCode)
}

func TestSessions_ListAndLogoutAll(t *testing.T) {
	env := newTestEnv(t)
	env.signIn(t, "maria@example.org")

	resp := env.get(t, "/v1/auth/sessions")
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Sessions []struct {
			ID      string `json:"id"`
			Current bool   `json:"current"`
		} `json:"sessions"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Len(t, body.Sessions, 1)
	assert.True(t, body.Sessions[0].Current)

	out := env.postJSON(t, "/v1/auth/logout-all", nil)
	defer out.Body.Close()
	require.Equal(t, http.StatusNoContent, out.StatusCode)

	refresh := env.postJSON(t, "/v1/auth/refresh-access-token", nil)
	defer refresh.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, refresh.StatusCode)
}

func TestMe_RequiresToken(t *testing.T) {
	env := newTestEnv(t)

	resp := env.get(t, "/v1/auth/me")
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	env := newTestEnv(t)

	env.register(t, "maria@example.org")

	resp := env.postJSON(t, "/v1/auth/register", map[string]string{
		"email":    "maria@example.org",
		"name":     "Maria Again",
		"password": "correct horse battery staple",
	})
	defer resp.Body.Close()

	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "email_taken", decodeError(t, resp).Error)
}

func TestHealthEndpoints(t *testing.T) {
	env := newTestEnv(t)

	live := env.get(t, "/livez")
	defer live.Body.Close()
	assert.Equal(t, http.StatusOK, live.StatusCode)

	ready := env.get(t, "/readyz")
	defer ready.Body.Close()
	assert.Equal(t, http.StatusOK, ready.StatusCode)
}

func mustJoin(t *testing.T, base *url.URL, path string) *url.URL {
	t.Helper()

	u, err := base.Parse(path)
	require.NoError(t, err)
	return u
}
