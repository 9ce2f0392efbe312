package templates

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-authgate/passport-local/internal/models"
	"github.com/go-authgate/passport-local/internal/store"

	"github.com/a-h/templ"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func render(t *testing.T, c templ.Component) string {
	t.Helper()
	var b strings.Builder
	require.NoError(t, c.Render(context.Background(), &b))
	return b.String()
}

func TestLoginPage(t *testing.T) {
	html := render(t, LoginPage(LoginPageProps{
		BaseProps:     BaseProps{CSRFToken: "tok"},
		Errors:        []string{"Incorrect <username>"},
		Redirect:      "/account?tab=1",
		UsernameField: "user[name]",
		PasswordField: "user[pass]",
		SignupEnabled: true,
	}))

	assert.Contains(t, html, `name="user[name]"`)
	assert.Contains(t, html, `name="user[pass]"`)
	assert.Contains(t, html, `name="csrf_token" value="tok"`)
	assert.Contains(t, html, `Incorrect &lt;username&gt;`)
	assert.Contains(t, html, `action="/login?redirect=%2Faccount%3Ftab%3D1"`)
	assert.Contains(t, html, `href="/signup"`)
	assert.NotContains(t, html, "<nav>")
}

func TestAccountPage(t *testing.T) {
	html := render(t, AccountPage(AccountPageProps{
		NavbarProps: NavbarProps{Username: "jack", IsAdmin: true, ActiveLink: "account"},
		User: &models.User{
			Username:   "jack",
			FullName:   "Jack <b>",
			Email:      "jack@example.com",
			Role:       models.RoleAdmin,
			AuthSource: models.AuthSourceLocal,
			CreatedAt:  time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
		},
	}))

	assert.Contains(t, html, "<h1>Jack &lt;b&gt;</h1>")
	assert.Contains(t, html, "2024-05-01")
	assert.Contains(t, html, `<a href="/account" class="active">Account</a>`)
	assert.Contains(t, html, `href="/admin/users"`)
}

func TestUsersPage(t *testing.T) {
	html := render(t, UsersPage(UsersPageProps{
		BaseProps:   BaseProps{CSRFToken: "tok"},
		NavbarProps: NavbarProps{Username: "admin", IsAdmin: true, ActiveLink: "users"},
		Users: []models.User{
			{ID: "1", Username: "admin", Role: models.RoleAdmin},
			{ID: "2", Username: "bob", Role: models.RoleUser},
		},
		Pagination: store.CalculatePagination(45, 2, 20),
		Search:     "b",
		PageSize:   20,
	}))

	assert.Contains(t, html, `action="/admin/users/2/role"`)
	assert.NotContains(t, html, `action="/admin/users/1/role"`, "admins cannot demote themselves")
	assert.Contains(t, html, "Page 2 of 3 (45 users)")
	assert.Contains(t, html, `href="/admin/users?page=1&amp;page_size=20&amp;search=b"`)
	assert.Contains(t, html, `href="/admin/users?page=3&amp;page_size=20&amp;search=b"`)
}

func TestPagination_SinglePage(t *testing.T) {
	html := render(t, Pagination(PaginationProps{Pagination: store.CalculatePagination(3, 1, 20)}))
	assert.Empty(t, html)
}

func TestRenderError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	RenderError(c, http.StatusForbidden, "Admin access required")

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.True(t, c.IsAborted())
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, w.Body.String(), "<h1>Forbidden</h1>")
	assert.Contains(t, w.Body.String(), "Admin access required")
}
