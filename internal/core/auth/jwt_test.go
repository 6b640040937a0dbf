package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"greenhome/internal/core/config"
)

func testJWTer() *JWTer {
	return NewJWTer(config.LocalAuth{Secret: "0123456789abcdef0123", Issuer: "greenhome-test", TTLMin: 5})
}

func TestIssueAndVerify(t *testing.T) {
	j := testJWTer()
	tok, err := j.Issue("uid-1", " Alice@Example.com ")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	id, err := j.Verify(context.Background(), tok)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if id.Email != "alice@example.com" || id.Subject != "uid-1" {
		t.Fatalf("identity = %+v", id)
	}
}

func TestVerifyRejects(t *testing.T) {
	j := testJWTer()
	other := &JWTer{Secret: []byte("another-secret-0000000"), Issuer: j.Issuer, TTL: time.Minute}
	wrongIssuer := &JWTer{Secret: j.Secret, Issuer: "someone-else", TTL: time.Minute}
	expired := &JWTer{Secret: j.Secret, Issuer: j.Issuer, TTL: -10 * time.Minute}

	mk := func(t *testing.T, iss *JWTer, email string) string {
		t.Helper()
		tok, err := iss.Issue("uid-1", email)
		if err != nil {
			t.Fatalf("Issue: %v", err)
		}
		return tok
	}
	noneTok, _ := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		Email:            "a@b.c",
		RegisteredClaims: jwt.RegisteredClaims{Issuer: j.Issuer, Subject: "uid-1"},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "not-a-jwt"},
		{"wrong secret", mk(t, other, "a@b.c")},
		{"wrong issuer", mk(t, wrongIssuer, "a@b.c")},
		{"expired", mk(t, expired, "a@b.c")},
		{"no email", mk(t, j, "")},
		{"alg none", noneTok},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := j.Verify(context.Background(), tt.token)
			if !errors.Is(err, ErrInvalidToken) {
				t.Fatalf("err = %v, want ErrInvalidToken", err)
			}
		})
	}
}

func TestNewSelectsProvider(t *testing.T) {
	v, err := New(config.Auth{Provider: "local", Local: config.LocalAuth{Secret: "0123456789abcdef"}})
	if err != nil {
		t.Fatalf("New(local): %v", err)
	}
	if _, ok := v.(*JWTer); !ok {
		t.Fatalf("New(local) = %T", v)
	}
	v, err = New(config.Auth{Provider: "firebase", Firebase: config.Firebase{ProjectID: "p"}})
	if err != nil {
		t.Fatalf("New(firebase): %v", err)
	}
	if _, ok := v.(*FirebaseVerifier); !ok {
		t.Fatalf("New(firebase) = %T", v)
	}
	if _, err := New(config.Auth{Provider: "ldap"}); err == nil {
		t.Fatal("New(ldap) should fail")
	}
}
