package auth

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/json"
	"encoding/pem"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testProject = "greenhome-test"

type certServer struct {
	srv   *httptest.Server
	key   *rsa.PrivateKey
	hits  atomic.Int32
	kid   string
	certs map[string]string
}

func newCertServer(t *testing.T) *certServer {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "securetoken.system.gserviceaccount.com"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(24 * time.Hour),
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	if err != nil {
		t.Fatalf("create cert: %v", err)
	}
	cs := &certServer{key: key, kid: "kid-1"}
	cs.certs = map[string]string{
		cs.kid: string(pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})),
	}
	cs.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cs.hits.Add(1)
		w.Header().Set("Cache-Control", "public, max-age=3600, must-revalidate")
		_ = json.NewEncoder(w).Encode(cs.certs)
	}))
	t.Cleanup(cs.srv.Close)
	return cs
}

func (cs *certServer) sign(t *testing.T, kid string, mutate func(*firebaseClaims)) string {
	t.Helper()
	now := time.Now()
	c := &firebaseClaims{
		Email:    "Owner@Example.com",
		AuthTime: now.Add(-time.Minute).Unix(),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "https://securetoken.google.com/" + testProject,
			Audience:  jwt.ClaimStrings{testProject},
			Subject:   "firebase-uid-1",
			IssuedAt:  jwt.NewNumericDate(now.Add(-time.Minute)),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
	}
	if mutate != nil {
		mutate(c)
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, c)
	tok.Header["kid"] = kid
	s, err := tok.SignedString(cs.key)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return s
}

func TestFirebaseVerify(t *testing.T) {
	cs := newCertServer(t)
	v := NewFirebaseVerifier(testProject, cs.srv.URL, cs.srv.Client())

	id, err := v.Verify(context.Background(), cs.sign(t, cs.kid, nil))
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if id.Email != "owner@example.com" || id.Subject != "firebase-uid-1" {
		t.Fatalf("identity = %+v", id)
	}

	// 命中缓存，不再请求证书
	if _, err := v.Verify(context.Background(), cs.sign(t, cs.kid, nil)); err != nil {
		t.Fatalf("second Verify: %v", err)
	}
	if got := cs.hits.Load(); got != 1 {
		t.Fatalf("cert fetches = %d, want 1", got)
	}
}

func TestFirebaseVerifyRejects(t *testing.T) {
	cs := newCertServer(t)
	v := NewFirebaseVerifier(testProject, cs.srv.URL, cs.srv.Client())

	tests := []struct {
		name   string
		kid    string
		mutate func(*firebaseClaims)
	}{
		{"wrong audience", cs.kid, func(c *firebaseClaims) { c.Audience = jwt.ClaimStrings{"other-project"} }},
		{"wrong issuer", cs.kid, func(c *firebaseClaims) { c.Issuer = "https://evil.example" }},
		{"expired", cs.kid, func(c *firebaseClaims) { c.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Hour)) }},
		{"empty subject", cs.kid, func(c *firebaseClaims) { c.Subject = "" }},
		{"no email", cs.kid, func(c *firebaseClaims) { c.Email = "" }},
		{"future auth_time", cs.kid, func(c *firebaseClaims) { c.AuthTime = time.Now().Add(time.Hour).Unix() }},
		{"unknown kid", "kid-unknown", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.Verify(context.Background(), cs.sign(t, tt.kid, tt.mutate))
			if !errors.Is(err, ErrInvalidToken) {
				t.Fatalf("err = %v, want ErrInvalidToken", err)
			}
		})
	}
}

func TestFirebaseUnknownKidThrottlesRefetch(t *testing.T) {
	cs := newCertServer(t)
	v := NewFirebaseVerifier(testProject, cs.srv.URL, cs.srv.Client())

	for i := 0; i < 5; i++ {
		if _, err := v.Verify(context.Background(), cs.sign(t, "kid-forged", nil)); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("err = %v, want ErrInvalidToken", err)
		}
	}
	if got := cs.hits.Load(); got != 1 {
		t.Fatalf("cert fetches = %d, want 1", got)
	}

	// 间隔过后新 kid 可以再拉一次（证书轮换）
	v.fetchedAt.Store(time.Now().Add(-2 * minCertRefresh).UnixNano())
	if _, err := v.Verify(context.Background(), cs.sign(t, "kid-forged", nil)); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("err = %v, want ErrInvalidToken", err)
	}
	if got := cs.hits.Load(); got != 2 {
		t.Fatalf("cert fetches after interval = %d, want 2", got)
	}
	if _, err := v.Verify(context.Background(), cs.sign(t, cs.kid, nil)); err != nil {
		t.Fatalf("known kid: %v", err)
	}
	if got := cs.hits.Load(); got != 2 {
		t.Fatalf("known kid refetched: %d", got)
	}
}

func TestFirebaseRejectsHMAC(t *testing.T) {
	cs := newCertServer(t)
	v := NewFirebaseVerifier(testProject, cs.srv.URL, cs.srv.Client())
	tok, err := testJWTer().Issue("uid", "a@b.c")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := v.Verify(context.Background(), tok); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("err = %v, want ErrInvalidToken", err)
	}
}

func TestFirebaseConcurrentVerify(t *testing.T) {
	cs := newCertServer(t)
	v := NewFirebaseVerifier(testProject, cs.srv.URL, cs.srv.Client())
	tok := cs.sign(t, cs.kid, nil)

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := v.Verify(context.Background(), tok); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("Verify: %v", err)
	}
	if cs.hits.Load() == 0 {
		t.Fatal("certs never fetched")
	}
}

func TestMaxAge(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
	}{
		{"public, max-age=19204, must-revalidate, no-transform", 19204 * time.Second},
		{"MAX-AGE=60", time.Minute},
		{"no-cache", defaultCertTTL},
		{"max-age=abc", defaultCertTTL},
		{"", defaultCertTTL},
	}
	for _, tt := range tests {
		if got := maxAge(tt.in); got != tt.want {
			t.Errorf("maxAge(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
