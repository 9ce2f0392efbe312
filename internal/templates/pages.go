package templates

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strconv"

	"github.com/a-h/templ"
)

// page accumulates HTML output and remembers the first write error.
type page struct {
	w   io.Writer
	err error
}

func (p *page) raw(s string) {
	if p.err == nil {
		_, p.err = io.WriteString(p.w, s)
	}
}

func (p *page) text(s string) {
	p.raw(templ.EscapeString(s))
}

func (p *page) component(ctx context.Context, c templ.Component) {
	if p.err == nil && c != nil {
		p.err = c.Render(ctx, p.w)
	}
}

func (p *page) csrf(token string) {
	if token == "" {
		return
	}
	p.raw(`<input type="hidden" name="csrf_token" value="`)
	p.text(token)
	p.raw(`">`)
}

func (p *page) messages(class string, msgs []string) {
	for _, m := range msgs {
		p.raw(`<div class="` + class + `">`)
		p.text(m)
		p.raw(`</div>`)
	}
}

// Layout wraps body in the shared document chrome.
func Layout(title string, nav *NavbarProps, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		p := &page{w: w}
		p.raw(`<!DOCTYPE html><html lang="en"><head><meta charset="utf-8">`)
		p.raw(`<meta name="viewport" content="width=device-width, initial-scale=1"><title>`)
		p.text(title)
		p.raw(`</title></head><body>`)
		if nav != nil {
			p.component(ctx, Navbar(*nav))
		}
		p.raw(`<main>`)
		p.component(ctx, body)
		p.raw(`</main></body></html>`)
		return p.err
	})
}

// Navbar renders the top navigation for signed-in users.
func Navbar(props NavbarProps) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		p := &page{w: w}
		link := func(href, name, label string) {
			p.raw(`<a href="` + href + `"`)
			if props.ActiveLink == name {
				p.raw(` class="active"`)
			}
			p.raw(`>` + label + `</a>`)
		}
		p.raw(`<nav>`)
		link("/account", "account", "Account")
		if props.IsAdmin {
			link("/admin/users", "users", "Users")
		}
		p.raw(`<span class="user">`)
		p.text(props.Username)
		p.raw(`</span><a href="/logout">Log out</a></nav>`)
		return p.err
	})
}

// ErrorPage renders a full error page.
func ErrorPage(props ErrorPageProps) templ.Component {
	body := templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		p := &page{w: w}
		p.raw(`<h1>`)
		p.text(props.Error)
		p.raw(`</h1>`)
		if props.Message != "" {
			p.raw(`<p>`)
			p.text(props.Message)
			p.raw(`</p>`)
		}
		p.raw(`<p><a href="/">Back</a></p>`)
		return p.err
	})
	return Layout("Error", nil, body)
}

// LoginPage renders the username/password form.
func LoginPage(props LoginPageProps) templ.Component {
	body := templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		p := &page{w: w}
		p.raw(`<h1>Sign in</h1>`)
		p.messages("error", props.Errors)
		p.messages("notice", props.Notices)

		action := "/login"
		if props.Redirect != "" {
			action += "?redirect=" + url.QueryEscape(props.Redirect)
		}
		p.raw(`<form method="post" action="`)
		p.text(action)
		p.raw(`">`)
		p.csrf(props.CSRFToken)
		p.raw(`<label>Username <input type="text" name="`)
		p.text(props.UsernameField)
		p.raw(`" autocomplete="username" required></label>`)
		p.raw(`<label>Password <input type="password" name="`)
		p.text(props.PasswordField)
		p.raw(`" autocomplete="current-password" required></label>`)
		p.raw(`<button type="submit">Sign in</button></form>`)
		if props.SignupEnabled {
			p.raw(`<p>No account? <a href="/signup">Sign up</a></p>`)
		}
		return p.err
	})
	return Layout("Sign in", nil, body)
}

// SignupPage renders the registration form.
func SignupPage(props SignupPageProps) templ.Component {
	body := templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		p := &page{w: w}
		p.raw(`<h1>Sign up</h1>`)
		p.messages("error", props.Errors)
		p.raw(`<form method="post" action="/signup">`)
		p.csrf(props.CSRFToken)
		p.raw(`<label>Email <input type="email" name="email" autocomplete="email" required></label>`)
		p.raw(`<label>Username <input type="text" name="username" autocomplete="username"></label>`)
		p.raw(`<label>Full name <input type="text" name="full_name" autocomplete="name"></label>`)
		p.raw(`<label>Password <input type="password" name="password" autocomplete="new-password" required></label>`)
		p.raw(`<button type="submit">Create account</button></form>`)
		p.raw(`<p>Already registered? <a href="/login">Sign in</a></p>`)
		return p.err
	})
	return Layout("Sign up", nil, body)
}

// AccountPage renders the signed-in user's profile.
func AccountPage(props AccountPageProps) templ.Component {
	body := templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		p := &page{w: w}
		p.messages("notice", props.Notices)
		p.raw(`<h1>`)
		p.text(props.User.DisplayName())
		p.raw(`</h1><dl>`)
		row := func(k, v string) {
			p.raw(`<dt>` + k + `</dt><dd>`)
			p.text(v)
			p.raw(`</dd>`)
		}
		row("Username", props.User.Username)
		row("Email", props.User.Email)
		row("Role", props.User.Role)
		row("Source", props.User.AuthSource)
		row("Member since", props.User.CreatedAt.Format("2006-01-02"))
		p.raw(`</dl>`)
		return p.err
	})
	return Layout("Account", &props.NavbarProps, body)
}

// UsersPage renders the admin user listing.
func UsersPage(props UsersPageProps) templ.Component {
	body := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		p := &page{w: w}
		p.raw(`<h1>Users</h1><form method="get" action="/admin/users">`)
		p.raw(`<input type="search" name="search" value="`)
		p.text(props.Search)
		p.raw(`"><button type="submit">Search</button></form>`)

		p.raw(`<table><thead><tr><th>Username</th><th>Email</th><th>Role</th><th>Source</th><th></th></tr></thead><tbody>`)
		for _, u := range props.Users {
			p.raw(`<tr><td>`)
			p.text(u.Username)
			p.raw(`</td><td>`)
			p.text(u.Email)
			p.raw(`</td><td>`)
			p.text(u.Role)
			p.raw(`</td><td>`)
			p.text(u.AuthSource)
			p.raw(`</td><td>`)
			if u.Username != props.Username {
				next := "admin"
				if u.IsAdmin() {
					next = "user"
				}
				p.raw(`<form method="post" action="/admin/users/`)
				p.text(url.PathEscape(u.ID))
				p.raw(`/role">`)
				p.csrf(props.CSRFToken)
				p.raw(`<input type="hidden" name="role" value="` + next + `">`)
				p.raw(`<button type="submit">Make ` + next + `</button></form>`)
			}
			p.raw(`</td></tr>`)
		}
		p.raw(`</tbody></table>`)

		query := map[string]string{"page_size": strconv.Itoa(props.PageSize)}
		if props.Search != "" {
			query["search"] = props.Search
		}
		p.component(ctx, Pagination(PaginationProps{
			Pagination:  props.Pagination,
			BaseURL:     "/admin/users",
			QueryParams: query,
		}))
		return p.err
	})
	return Layout("Users", &props.NavbarProps, body)
}

// Pagination renders previous/next links for a listing.
func Pagination(props PaginationProps) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		pg := props.Pagination
		if pg.TotalPages <= 1 {
			return nil
		}
		p := &page{w: w}
		href := func(n int) string {
			q := url.Values{}
			for k, v := range props.QueryParams {
				q.Set(k, v)
			}
			q.Set("page", strconv.Itoa(n))
			return props.BaseURL + "?" + q.Encode()
		}

		p.raw(`<nav class="pagination">`)
		if pg.HasPrev {
			p.raw(`<a rel="prev" href="`)
			p.text(href(pg.PrevPage))
			p.raw(`">Previous</a>`)
		}
		p.raw(`<span>`)
		p.text(fmt.Sprintf("Page %d of %d (%d users)", pg.CurrentPage, pg.TotalPages, pg.Total))
		p.raw(`</span>`)
		if pg.HasNext {
			p.raw(`<a rel="next" href="`)
			p.text(href(pg.NextPage))
			p.raw(`">Next</a>`)
		}
		p.raw(`</nav>`)
		return p.err
	})
}
