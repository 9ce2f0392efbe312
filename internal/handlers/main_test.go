package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/go-authgate/passport-local/internal/auth"
	"github.com/go-authgate/passport-local/internal/cache"
	"github.com/go-authgate/passport-local/internal/config"
	"github.com/go-authgate/passport-local/internal/metrics"
	"github.com/go-authgate/passport-local/internal/middleware"
	"github.com/go-authgate/passport-local/internal/models"
	"github.com/go-authgate/passport-local/internal/services"
	"github.com/go-authgate/passport-local/internal/store"
	"github.com/go-authgate/passport-local/internal/token"
	"github.com/go-authgate/passport-local/local"
	"github.com/go-authgate/passport-local/passport"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const testBaseURL = "http://localhost:8080"

type testApp struct {
	router  *gin.Engine
	store   *store.Store
	metrics *metrics.Metrics
	tokens  *token.LocalTokenProvider
}

func init() {
	gin.SetMode(gin.TestMode)
}

// newTestApp wires the handlers the way the server does, minus CSRF and
// rate limiting which have their own tests.
func newTestApp(t *testing.T) *testApp {
	t.Helper()

	db, err := store.New("sqlite", ":memory:", zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	svc := services.NewUserService(
		db,
		auth.NewLocalAuthProvider(db),
		config.AuthModeLocal,
		cache.NewMemoryCache[models.User](),
		time.Minute,
		zap.NewNop(),
	)
	tokens, err := token.NewLocalTokenProvider("test-secret", testBaseURL, time.Hour)
	require.NoError(t, err)
	m := metrics.NewWithRegistry(prometheus.NewRegistry())

	p := passport.New(
		passport.WithSerializer(svc.SerializeUser),
		passport.WithDeserializer(svc.DeserializeUser),
		passport.WithRecorder(m),
	)
	p.Use(local.Must(local.New(svc.LoginVerify())))
	p.UseAs(StrategySignup, local.Must(local.NewWithRequest(
		svc.SignupVerify(),
		local.WithName(StrategySignup),
		local.WithUsernameField("email"),
	)))

	authHandler := NewAuthHandler(p, m, AuthOptions{
		BaseURL:       testBaseURL,
		UsernameField: "username",
		PasswordField: "password",
		SignupEnabled: true,
	}, nil)
	accountHandler := NewAccountHandler(svc, nil)
	apiHandler := NewAPIHandler(p, svc, tokens, m, "")

	r := gin.New()
	r.Use(sessions.Sessions("test_session", cookie.NewStore([]byte("test-session-secret"))))
	r.Use(p.Session())

	r.GET("/login", authHandler.LoginPage)
	r.POST("/login", authHandler.Login())
	r.GET("/signup", authHandler.SignupPage)
	r.POST("/signup", authHandler.Signup(), authHandler.SignupComplete)
	r.GET("/logout", authHandler.Logout)
	r.GET("/account", middleware.RequireAuth(), accountHandler.Account)

	admin := r.Group("/admin", middleware.RequireAuth(), middleware.RequireAdmin())
	admin.GET("/users", accountHandler.ListUsers)
	admin.POST("/users/:id/role", accountHandler.SetRole)

	api := r.Group("/api")
	api.POST("/login", apiHandler.Authenticate(), apiHandler.IssueToken)
	api.GET("/me", apiHandler.Me)

	return &testApp{router: r, store: db, metrics: m, tokens: tokens}
}

func (a *testApp) createUser(t *testing.T, username, password, role string) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	u := &models.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: string(hash),
		Role:         role,
		AuthSource:   models.AuthSourceLocal,
	}
	require.NoError(t, a.store.CreateUser(context.Background(), u))
	return u
}

// browser replays the session cookie between requests.
type browser struct {
	t       *testing.T
	app     *testApp
	cookies map[string]*http.Cookie
}

func (a *testApp) browser(t *testing.T) *browser {
	return &browser{t: t, app: a, cookies: map[string]*http.Cookie{}}
}

func (b *browser) do(req *http.Request) *httptest.ResponseRecorder {
	b.t.Helper()
	for _, c := range b.cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	b.app.router.ServeHTTP(w, req)
	for _, c := range w.Result().Cookies() {
		b.cookies[c.Name] = c
	}
	return w
}

func (b *browser) get(path string) *httptest.ResponseRecorder {
	return b.do(httptest.NewRequest(http.MethodGet, path, nil))
}

func (b *browser) postForm(path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return b.do(req)
}

// login signs the browser in and fails the test otherwise.
func (b *browser) login(username, password string) {
	b.t.Helper()
	w := b.postForm("/login", url.Values{"username": {username}, "password": {password}})
	require.Equal(b.t, http.StatusFound, w.Code)
	require.Equal(b.t, defaultLandingPath, w.Header().Get("Location"))
}
