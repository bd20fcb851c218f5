package auth

import (
	"errors"
	"net/http"
	"testing"
	"time"
)

const testSecret = "test-secret"

func requestWithToken(t *testing.T, token string) *http.Request {
	t.Helper()
	r, err := http.NewRequest(http.MethodGet, "/v1/state/alice", nil)
	if err != nil {
		t.Fatal(err)
	}
	if token != "" {
		r.Header.Set("Authorization", "Bearer "+token)
	}
	return r
}

func TestAnonymousTrustsCaller(t *testing.T) {
	id, err := Anonymous{}.Authenticate(requestWithToken(t, ""))
	if err != nil || id != nil {
		t.Fatalf("anonymous = (%v, %v), want (nil, nil)", id, err)
	}
	if got := EffectiveUserID("alice", nil); got != "alice" {
		t.Fatalf("effective id = %q, want requested id", got)
	}
}

func TestValidTokenYieldsIdentity(t *testing.T) {
	token, err := IssueToken(testSecret, "user-7", "contoso", "", time.Hour)
	if err != nil {
		t.Fatal(err)
	}

	a := NewJWTAuthorizer(testSecret, "")
	id, err := a.Authenticate(requestWithToken(t, token))
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if id.Subject != "user-7" || id.Tenant != "contoso" {
		t.Fatalf("identity = %+v", id)
	}
	if got := EffectiveUserID("someone-else", id); got != "contoso:user-7" {
		t.Fatalf("effective id = %q, token identity must win", got)
	}
}

func TestTenantlessTokenPrefix(t *testing.T) {
	token, err := IssueToken(testSecret, "user-7", "", "", time.Hour)
	if err != nil {
		t.Fatal(err)
	}

	id, err := NewJWTAuthorizer(testSecret, "").Authenticate(requestWithToken(t, token))
	if err != nil {
		t.Fatal(err)
	}
	if got := EffectiveUserID("x", id); got != "auth:user-7" {
		t.Fatalf("effective id = %q, want auth prefix", got)
	}
}

func TestMissingTokenUnauthorized(t *testing.T) {
	_, err := NewJWTAuthorizer(testSecret, "").Authenticate(requestWithToken(t, ""))
	var unauth *Unauthorized
	if !errors.As(err, &unauth) {
		t.Fatalf("err = %v, want Unauthorized", err)
	}
}

func TestWrongSecretUnauthorized(t *testing.T) {
	token, err := IssueToken("other-secret", "user-7", "", "", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	_, err = NewJWTAuthorizer(testSecret, "").Authenticate(requestWithToken(t, token))
	var unauth *Unauthorized
	if !errors.As(err, &unauth) {
		t.Fatalf("err = %v, want Unauthorized", err)
	}
}

func TestExpiredTokenUnauthorized(t *testing.T) {
	token, err := IssueToken(testSecret, "user-7", "", "", -time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	_, err = NewJWTAuthorizer(testSecret, "").Authenticate(requestWithToken(t, token))
	var unauth *Unauthorized
	if !errors.As(err, &unauth) {
		t.Fatalf("err = %v, want Unauthorized", err)
	}
}

func TestAudienceMismatchForbidden(t *testing.T) {
	token, err := IssueToken(testSecret, "user-7", "", "api://other", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	_, err = NewJWTAuthorizer(testSecret, "api://cloudtutor").Authenticate(requestWithToken(t, token))
	var forbidden *Forbidden
	if !errors.As(err, &forbidden) {
		t.Fatalf("err = %v, want Forbidden", err)
	}
}

func TestEmptySubjectRejected(t *testing.T) {
	token, err := IssueToken(testSecret, "", "", "", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	_, err = NewJWTAuthorizer(testSecret, "").Authenticate(requestWithToken(t, token))
	var unauth *Unauthorized
	if !errors.As(err, &unauth) {
		t.Fatalf("err = %v, want Unauthorized", err)
	}
}

func TestRateLimitKey(t *testing.T) {
	cases := []struct {
		id   *Identity
		addr string
		want string
	}{
		{&Identity{Subject: "user-7"}, "10.0.0.1:4123", "user:user-7"},
		{nil, "10.0.0.1:4123", "ip:10.0.0.1"},
		{nil, "10.0.0.1", "ip:10.0.0.1"},
		{nil, "", "ip:unknown"},
	}
	for _, tc := range cases {
		if got := RateLimitKey(tc.id, tc.addr); got != tc.want {
			t.Errorf("RateLimitKey(%+v, %q) = %q, want %q", tc.id, tc.addr, got, tc.want)
		}
	}
}
