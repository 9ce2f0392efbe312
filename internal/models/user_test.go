package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUser_Roles(t *testing.T) {
	assert.True(t, (&User{Role: RoleAdmin}).IsAdmin())
	assert.False(t, (&User{Role: RoleUser}).IsAdmin())
	assert.False(t, (&User{}).IsAdmin())
}

func TestUser_IsExternal(t *testing.T) {
	tests := []struct {
		source string
		want   bool
	}{
		{source: "", want: false},
		{source: AuthSourceLocal, want: false},
		{source: AuthSourceHTTPAPI, want: true},
		{source: AuthSourceFile, want: true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, (&User{AuthSource: tt.source}).IsExternal(), tt.source)
	}
}

func TestUser_DisplayName(t *testing.T) {
	assert.Equal(t, "bob", (&User{Username: "bob"}).DisplayName())
	assert.Equal(t, "Bob Smith", (&User{Username: "bob", FullName: "Bob Smith"}).DisplayName())
}
