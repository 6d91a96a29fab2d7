package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGivenName(t *testing.T) {
	cases := []struct {
		firstName string
		want      string
	}{
		{"Ada", "Ada"},
		{"Ada Maria", "Ada"},
		{"  Ada Maria  ", "Ada"},
		{"", ""},
	}
	for _, tc := range cases {
		u := &User{FirstName: tc.firstName}
		assert.Equal(t, tc.want, u.GivenName())
	}
}

func TestUserJSONHidesPasswordHash(t *testing.T) {
	data, err := json.Marshal(&User{ID: "u1", Email: "ada@example.com", PasswordHash: "secret-hash"})
	require.NoError(t, err)
	assert.NotContains(t, string(data), "secret-hash")
	assert.NotContains(t, string(data), "password")
}
