package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/dmitrijs2005/gatekeeper/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntity_Stamp(t *testing.T) {
	var e Entity
	t0 := time.Date(2024, 1, 2, 3, 4, 5, 600, time.UTC)

	e.Stamp(t0)
	assert.Equal(t, "2024-01-02T03:04:05", e.CreatedAt.String())
	assert.Equal(t, e.CreatedAt, e.UpdatedAt)

	e.Stamp(t0.Add(time.Minute))
	assert.Equal(t, "2024-01-02T03:04:05", e.CreatedAt.String())
	assert.Equal(t, "2024-01-02T03:05:05", e.UpdatedAt.String())

	// a clock running backwards must not break UpdatedAt >= CreatedAt
	e.Stamp(t0.Add(-time.Hour))
	assert.False(t, e.UpdatedAt.Before(e.CreatedAt.Time))
}

func TestUser_Password(t *testing.T) {
	passwords := []string{"toto1234!", "p:a:ss", "ünïcødé", " "}
	for _, p := range passwords {
		u := &User{Email: "bob@hbtn.io"}
		u.SetPassword(p)

		assert.NotEqual(t, p, u.PasswordHash)
		assert.True(t, u.IsValidPassword(p), p)
		assert.False(t, u.IsValidPassword(p+"x"), p)
		assert.False(t, u.IsValidPassword(""), p)
	}
}

func TestUser_PasswordCleared(t *testing.T) {
	u := &User{}
	u.SetPassword("secret")
	u.SetPassword("")

	assert.Empty(t, u.PasswordHash)
	assert.False(t, u.IsValidPassword("secret"))
	assert.False(t, u.IsValidPassword(""))
}

func TestUser_DisplayName(t *testing.T) {
	tests := []struct {
		user User
		want string
	}{
		{User{}, ""},
		{User{Email: "bob@hbtn.io"}, "bob@hbtn.io"},
		{User{Email: "bob@hbtn.io", FirstName: "Bob"}, "Bob"},
		{User{Email: "bob@hbtn.io", LastName: "Dylan"}, "Dylan"},
		{User{Email: "bob@hbtn.io", FirstName: "Bob", LastName: "Dylan"}, "Bob Dylan"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.user.DisplayName())
	}
}

func TestUser_Validate(t *testing.T) {
	assert.ErrorIs(t, (&User{}).Validate(), common.ErrorValidation)
	assert.ErrorIs(t, (&User{Email: "  "}).Validate(), common.ErrorValidation)
	assert.NoError(t, (&User{Email: "a@b.c"}).Validate())
}

func TestUser_JSONLayout(t *testing.T) {
	u := User{Email: "bob@hbtn.io", FirstName: "Bob"}
	u.ID = "u-1"
	u.Stamp(time.Date(2017, 9, 28, 21, 5, 54, 0, time.UTC))

	b, err := json.Marshal(u)
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(b, &fields))
	assert.Equal(t, "u-1", fields["id"])
	assert.Equal(t, "2017-09-28T21:05:54", fields["created_at"])
	assert.Equal(t, "bob@hbtn.io", fields["email"])
	assert.NotContains(t, fields, "last_name")
}

func TestPredicates(t *testing.T) {
	u := &User{Email: "a@b.c", ResetToken: "tok"}
	assert.True(t, UserByEmail("a@b.c")(u))
	assert.False(t, UserByEmail("A@b.c")(u))
	assert.True(t, UserByResetToken("tok")(u))
	assert.False(t, UserByResetToken("")(&User{}))

	s := &UserSession{SessionID: "s-1"}
	assert.True(t, SessionByID("s-1")(s))
	assert.False(t, SessionByID("s-2")(s))
}

func TestEntity_SetCreated(t *testing.T) {
	var e Entity
	created := time.Date(2020, 5, 6, 7, 8, 9, 999, time.Local)
	e.SetCreated(created)
	e.Stamp(created.Add(time.Hour))

	assert.True(t, e.Created().Equal(created.Truncate(time.Second)))
	assert.Equal(t, time.UTC, e.Created().Location())
}
