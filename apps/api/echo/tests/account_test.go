package tests

import (
	"context"
	"net/http"
	"testing"

	"github.com/trezcool/shule/core/user"
)

func Test_accountApi_auth(t *testing.T) {
	usr := signup(t, "student", "auth@test.cd")

	// bad credentials
	req, rec := newRequest(http.MethodPost, "/v1/accounts/login", map[string]string{
		"email": usr.Email, "password": "nope",
	})
	do(t, req, rec, http.StatusBadRequest)

	// login
	var login struct {
		Token string `json:"token"`
	}
	req, rec = newRequest(http.MethodPost, "/v1/accounts/login", map[string]string{
		"email": usr.Email, "password": "S3cr3t!pwd",
	})
	do(t, req, rec, http.StatusOK, &login)
	if login.Token == "" {
		t.Fatal("login returned no token")
	}

	// auth required
	req, rec = newRequest(http.MethodGet, "/v1/accounts/me")
	do(t, req, rec, http.StatusUnauthorized)

	var me user.User
	req, rec = newAuthRequest(http.MethodGet, "/v1/accounts/me", login.Token)
	do(t, req, rec, http.StatusOK, &me)
	if me.ID != usr.ID {
		t.Errorf("me.ID = %s, want %s", me.ID, usr.ID)
	}

	// refreshing a fresh token works
	req, rec = newAuthRequest(http.MethodPost, "/v1/accounts/token-refresh", login.Token)
	do(t, req, rec, http.StatusOK, &login)

	// is_active is managed by admins only
	req, rec = newAuthRequest(http.MethodPut, "/v1/accounts/me", login.Token, map[string]interface{}{
		"first_name": "New", "is_active": false,
	})
	do(t, req, rec, http.StatusForbidden)

	req, rec = newAuthRequest(http.MethodPut, "/v1/accounts/me", login.Token, map[string]interface{}{
		"first_name": "Renamed",
	})
	do(t, req, rec, http.StatusOK, &me)
	if me.FirstName != "Renamed" {
		t.Errorf("me.FirstName = %s, want Renamed", me.FirstName)
	}

	// a deactivated account cannot log in
	if _, err := usrSvc.Deactivate(context.Background(), usr.ID); err != nil {
		t.Fatalf("Deactivate() failed: %v", err)
	}
	req, rec = newRequest(http.MethodPost, "/v1/accounts/login", map[string]string{
		"email": usr.Email, "password": "S3cr3t!pwd",
	})
	do(t, req, rec, http.StatusForbidden)
}

func Test_accountApi_passwordReset(t *testing.T) {
	usr := signup(t, "guardian", "reset@test.cd")

	// the response never leaks account existence
	req, rec := newRequest(http.MethodPost, "/v1/accounts/password-reset", map[string]string{"email": usr.Email})
	do(t, req, rec, http.StatusOK)
	req, rec = newRequest(http.MethodPost, "/v1/accounts/password-reset", map[string]string{"email": "ghost@test.cd"})
	do(t, req, rec, http.StatusOK)

	// missing fields fail validation
	req, rec = newRequest(http.MethodPost, "/v1/accounts/password-reset-confirm", map[string]string{"uid": "x"})
	do(t, req, rec, http.StatusBadRequest)
}
