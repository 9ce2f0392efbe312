package params

import (
	"encoding/json"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePath(t *testing.T) {
	tests := []struct {
		field string
		want  Path
	}{
		{field: "username", want: Path{"username"}},
		{field: "user[username]", want: Path{"user", "username"}},
		{field: "user[name][first]", want: Path{"user", "name", "first"}},
		{field: "", want: Path{""}},
	}

	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			assert.Equal(t, tt.want, ParsePath(tt.field))
		})
	}
}

func TestPathString(t *testing.T) {
	assert.Equal(t, "user[name][first]", Path{"user", "name", "first"}.String())
	assert.Equal(t, "username", Path{"username"}.String())
	assert.Equal(t, "", Path{}.String())
}

func TestLookup(t *testing.T) {
	body := Map{
		"username": "johndoe",
		"user": map[string]any{
			"username": "janedoe",
			"password": "secret",
			"name":     map[string]any{"first": "Jane"},
		},
		"shallow": "value",
		"empty":   nil,
		"list":    []any{"a", "b"},
	}

	tests := []struct {
		name   string
		fields []string
		want   any
		found  bool
	}{
		{name: "plain field", fields: []string{"username"}, want: "johndoe", found: true},
		{name: "bracket chain", fields: []string{"user[username]"}, want: "janedoe", found: true},
		{name: "deep chain", fields: []string{"user[name][first]"}, want: "Jane", found: true},
		{name: "early scalar termination", fields: []string{"shallow[deeper][deepest]"}, want: "value", found: true},
		{name: "missing field", fields: []string{"nope"}, found: false},
		{name: "nil value aborts path", fields: []string{"empty"}, found: false},
		{name: "chain ending on composite", fields: []string{"user[name]"}, found: false},
		{name: "array index", fields: []string{"list[1]"}, want: "b", found: true},
		{name: "fallback to second path", fields: []string{"nope", "user[password]"}, want: "secret", found: true},
		{name: "first resolvable path wins", fields: []string{"user[username]", "username"}, want: "janedoe", found: true},
		{name: "no paths", fields: nil, found: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Lookup(body, tt.fields...)
			assert.Equal(t, tt.found, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLookup_NilRoot(t *testing.T) {
	got, ok := Lookup(nil, "username")
	assert.False(t, ok)
	assert.Nil(t, got)
}

func TestLookup_BodyThenQuery(t *testing.T) {
	var body Map
	query := Map{"username": "johndoe"}

	v, ok := Lookup(body, "username")
	if !ok {
		v, ok = Lookup(query, "username")
	}
	assert.True(t, ok)
	assert.Equal(t, "johndoe", v)
}

func TestLookup_ScalarKinds(t *testing.T) {
	body := Map{"pin": 1234, "flag": true, "num": json.Number("42")}

	v, ok := Lookup(body, "pin")
	assert.True(t, ok)
	assert.Equal(t, 1234, v)

	v, ok = Lookup(body, "flag")
	assert.True(t, ok)
	assert.Equal(t, true, v)

	v, ok = Lookup(body, "num")
	assert.True(t, ok)
	assert.Equal(t, json.Number("42"), v)
}

func TestIsComposite(t *testing.T) {
	type point struct{ X int }

	assert.True(t, IsComposite(Map{}))
	assert.True(t, IsComposite(map[string]any{"object": 1}))
	assert.True(t, IsComposite(map[string]string{}))
	assert.True(t, IsComposite([]any{"a"}))
	assert.True(t, IsComposite([]string{"a"}))
	assert.True(t, IsComposite(map[string]int{"a": 1}))
	assert.True(t, IsComposite(point{}))
	assert.True(t, IsComposite(&point{}))

	assert.False(t, IsComposite(nil))
	assert.False(t, IsComposite("secret"))
	assert.False(t, IsComposite(42))
	assert.False(t, IsComposite(false))
	assert.False(t, IsComposite(json.Number("1")))
}

func TestFromValues(t *testing.T) {
	values := url.Values{
		"username":       {"johndoe"},
		"user[username]": {"janedoe"},
		"user[password]": {"secret"},
		"name[a][b]":     {"deep"},
		"tags[]":         {"x", "y"},
		"password":       {"one", "two"},
	}

	m := FromValues(values)

	assert.Equal(t, "johndoe", m["username"])
	assert.Equal(t, Map{"username": "janedoe", "password": "secret"}, m["user"])
	assert.Equal(t, Map{"a": Map{"b": "deep"}}, m["name"])
	assert.Equal(t, []any{"x", "y"}, m["tags"])
	assert.Equal(t, []any{"one", "two"}, m["password"])

	v, ok := Lookup(m, "user[username]")
	assert.True(t, ok)
	assert.Equal(t, "janedoe", v)

	_, ok = Lookup(m, "password")
	assert.False(t, ok, "repeated fields are composite and never resolve")
}

func TestFromValues_Nil(t *testing.T) {
	assert.Nil(t, FromValues(nil))
}

func TestFromValues_ScalarOwnsKey(t *testing.T) {
	m := FromValues(url.Values{
		"user":           {"plain"},
		"user[username]": {"nested"},
	})
	assert.Equal(t, "plain", m["user"])
}

func TestFromJSON(t *testing.T) {
	m, err := FromJSON(strings.NewReader(`{"user":{"username":"johndoe","password":"secret"},"pin":1234}`))
	require.NoError(t, err)

	v, ok := Lookup(m, "user[username]")
	assert.True(t, ok)
	assert.Equal(t, "johndoe", v)

	v, ok = Lookup(m, "pin")
	assert.True(t, ok)
	assert.Equal(t, json.Number("1234"), v)
}

func TestFromJSON_Empty(t *testing.T) {
	m, err := FromJSON(strings.NewReader(""))
	require.NoError(t, err)
	assert.Nil(t, m)
}

func TestFromJSON_Invalid(t *testing.T) {
	_, err := FromJSON(strings.NewReader(`["not","an","object"]`))
	assert.ErrorIs(t, err, ErrInvalidBody)

	_, err = FromJSON(strings.NewReader(`{broken`))
	assert.ErrorIs(t, err, ErrInvalidBody)
}
