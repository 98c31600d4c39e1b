package http

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/roomchat/internal/auth"
	"github.com/vovakirdan/roomchat/internal/chat"
	"github.com/vovakirdan/roomchat/internal/cipher"
	"github.com/vovakirdan/roomchat/internal/config"
	"github.com/vovakirdan/roomchat/internal/store"
	"github.com/vovakirdan/roomchat/internal/store/sqlite"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var testJWTConfig = auth.JWTConfig{
	Secret:   []byte("test-secret"),
	Issuer:   "test",
	Audience: "test",
	TTL:      24 * time.Hour,
}

type testEnv struct {
	handler http.Handler
	auth    *auth.Service
	chat    *chat.Service
	store   *sqlite.SQLiteStore
}

// newTestEnv builds the full router on an in-memory store. mutate may
// adjust the configuration before the router is built.
func newTestEnv(t *testing.T, mutate func(*config.Config)) *testEnv {
	t.Helper()

	st, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	sealer, err := cipher.New(bytes.Repeat([]byte{7}, cipher.KeySize))
	if err != nil {
		t.Fatalf("failed to create cipher: %v", err)
	}

	disabledLogger := zerolog.New(nil)
	jwtCfg := testJWTConfig
	authService := auth.NewService(st, &jwtCfg)
	chatService := chat.NewService(st, sealer, &disabledLogger)

	cfg := config.Default()
	cfg.Addr = ":0"
	cfg.ReadHeaderTimeout = time.Second
	cfg.MessageRateLimit = 0
	if mutate != nil {
		mutate(&cfg)
	}

	server := NewServer(authService, chatService, &cfg, &disabledLogger)
	return &testEnv{handler: server.Handler, auth: authService, chat: chatService, store: st}
}

// registerUser creates an account that joined the default room and
// returns it with a session token.
func (e *testEnv) registerUser(t *testing.T, username string) (*store.User, string) {
	t.Helper()

	ctx := context.Background()
	user, err := e.auth.Register(ctx, auth.RegisterInput{
		Username: username,
		Email:    username + "@example.com",
		Password: "password123",
		Confirm:  "password123",
	})
	if err != nil {
		t.Fatalf("failed to register %s: %v", username, err)
	}
	if _, err := e.chat.EnsureDefaultRoom(ctx, user.ID); err != nil {
		t.Fatalf("failed to join default room: %v", err)
	}
	token, err := e.auth.IssueToken(user)
	if err != nil {
		t.Fatalf("failed to issue token: %v", err)
	}
	return user, token
}

type requestOption func(*http.Request)

func withBearer(token string) requestOption {
	return func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) }
}

func withSession(token string) requestOption {
	return func(r *http.Request) { r.AddCookie(&http.Cookie{Name: SessionCookieName, Value: token}) }
}

func withCookie(c *http.Cookie) requestOption {
	return func(r *http.Request) { r.AddCookie(&http.Cookie{Name: c.Name, Value: c.Value}) }
}

func (e *testEnv) do(method, target string, body io.Reader, contentType string, opts ...requestOption) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for _, opt := range opts {
		opt(req)
	}
	resp := httptest.NewRecorder()
	e.handler.ServeHTTP(resp, req)
	return resp
}

func (e *testEnv) get(target string, opts ...requestOption) *httptest.ResponseRecorder {
	return e.do(http.MethodGet, target, nil, "", opts...)
}

func (e *testEnv) postJSON(target, body string, opts ...requestOption) *httptest.ResponseRecorder {
	return e.do(http.MethodPost, target, strings.NewReader(body), "application/json", opts...)
}

func (e *testEnv) postForm(target string, form url.Values, opts ...requestOption) *httptest.ResponseRecorder {
	return e.do(http.MethodPost, target, strings.NewReader(form.Encode()), "application/x-www-form-urlencoded", opts...)
}

// responseCookie returns the last value of the named cookie set by resp,
// or nil.
func responseCookie(resp *httptest.ResponseRecorder, name string) *http.Cookie {
	var found *http.Cookie
	for _, c := range resp.Result().Cookies() {
		if c.Name == name {
			found = c
		}
	}
	return found
}

// flashMessages decodes the flash cookie set by resp.
func flashMessages(t *testing.T, resp *httptest.ResponseRecorder) []Flash {
	t.Helper()
	c := responseCookie(resp, flashCookieName)
	if c == nil {
		return nil
	}
	return decodeFlashes(c.Value)
}

func expectRedirect(t *testing.T, resp *httptest.ResponseRecorder, location string) {
	t.Helper()
	if resp.Code != http.StatusFound {
		t.Fatalf("expected status 302, got %d: %s", resp.Code, resp.Body.String())
	}
	if got := resp.Header().Get("Location"); got != location {
		t.Fatalf("expected redirect to %q, got %q", location, got)
	}
}
