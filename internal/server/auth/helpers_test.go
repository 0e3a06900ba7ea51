package auth

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dmitrijs2005/gatekeeper/internal/common"
	"github.com/dmitrijs2005/gatekeeper/internal/server/models"
	"github.com/dmitrijs2005/gatekeeper/internal/server/store"
	"github.com/stretchr/testify/require"
)

type userTable = store.Store[models.User, *models.User]

func newUserTable(t *testing.T) *userTable {
	t.Helper()
	return store.New[models.User](models.KindUser, nil)
}

func addUser(t *testing.T, users *userTable, email, password string) models.User {
	t.Helper()
	u := &models.User{Email: email}
	u.SetPassword(password)
	_, err := users.Add(context.Background(), u)
	require.NoError(t, err)
	return *u
}

func basicHeader(plain string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(plain))
}

func httpReq(header, cookieName, cookie string) Request {
	r := httptest.NewRequest(http.MethodGet, "/api/v1/users/me", nil)
	if header != "" {
		r.Header.Set(common.AuthorizationHeaderName, header)
	}
	if cookie != "" {
		r.AddCookie(&http.Cookie{Name: cookieName, Value: cookie})
	}
	return HTTPRequest{R: r}
}
