package auth

import (
	"context"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jellydator/ttlcache/v3"
	"golang.org/x/sync/singleflight"
)

const (
	GoogleCertsURL    = "https://www.googleapis.com/robot/v1/metadata/x509/securetoken@system.gserviceaccount.com"
	firebaseIssuerFmt = "https://securetoken.google.com/%s"
	defaultCertTTL    = time.Hour
	// 未知 kid 触发的重新拉取最短间隔
	minCertRefresh = time.Minute
)

type firebaseClaims struct {
	Email    string `json:"email"`
	AuthTime int64  `json:"auth_time"`
	jwt.RegisteredClaims
}

// FirebaseVerifier 校验 Firebase ID Token（RS256）。
// 公钥证书按 Cache-Control max-age 缓存，并发刷新用 singleflight 合并，
// 未知 kid 最多每 minRefresh 触发一次拉取。
type FirebaseVerifier struct {
	projectID  string
	issuer     string
	certsURL   string
	client     *http.Client
	keys       *ttlcache.Cache[string, *rsa.PublicKey]
	sf         singleflight.Group
	minRefresh time.Duration
	fetchedAt  atomic.Int64 // 上次成功拉取的 UnixNano
}

func NewFirebaseVerifier(projectID, certsURL string, client *http.Client) *FirebaseVerifier {
	if certsURL == "" {
		certsURL = GoogleCertsURL
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &FirebaseVerifier{
		projectID: projectID,
		issuer:    fmt.Sprintf(firebaseIssuerFmt, projectID),
		certsURL:  certsURL,
		client:    client,
		keys: ttlcache.New[string, *rsa.PublicKey](
			ttlcache.WithDisableTouchOnHit[string, *rsa.PublicKey](),
		),
		minRefresh: minCertRefresh,
	}
}

func (v *FirebaseVerifier) Verify(ctx context.Context, token string) (Identity, error) {
	claims := &firebaseClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, errors.New("missing kid header")
		}
		return v.key(ctx, kid)
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithAudience(v.projectID),
		jwt.WithIssuer(v.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithLeeway(30*time.Second),
	)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" || len(claims.Subject) > 128 {
		return Identity{}, fmt.Errorf("%w: bad subject", ErrInvalidToken)
	}
	if claims.AuthTime > 0 && time.Unix(claims.AuthTime, 0).After(time.Now().Add(30*time.Second)) {
		return Identity{}, fmt.Errorf("%w: auth_time in the future", ErrInvalidToken)
	}
	if claims.Email == "" {
		return Identity{}, fmt.Errorf("%w: token has no email", ErrInvalidToken)
	}
	return Identity{Email: strings.ToLower(claims.Email), Subject: claims.Subject}, nil
}

func (v *FirebaseVerifier) key(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	if it := v.keys.Get(kid); it != nil {
		return it.Value(), nil
	}
	// 刚拉过仍未命中，多半是伪造的 kid，不再打到证书端点
	if last := v.fetchedAt.Load(); last != 0 && time.Since(time.Unix(0, last)) < v.minRefresh {
		return nil, fmt.Errorf("unknown signing key %q", kid)
	}
	// 未命中：可能是证书轮换，拉一次最新列表
	if _, err, _ := v.sf.Do("certs", func() (interface{}, error) {
		return nil, v.refresh(ctx)
	}); err != nil {
		return nil, err
	}
	if it := v.keys.Get(kid); it != nil {
		return it.Value(), nil
	}
	return nil, fmt.Errorf("unknown signing key %q", kid)
}

func (v *FirebaseVerifier) refresh(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.certsURL, nil)
	if err != nil {
		return err
	}
	resp, err := v.client.Do(req)
	if err != nil {
		return fmt.Errorf("fetch signing certs: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetch signing certs: status %d", resp.StatusCode)
	}

	var certs map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&certs); err != nil {
		return fmt.Errorf("decode signing certs: %w", err)
	}
	ttl := maxAge(resp.Header.Get("Cache-Control"))
	for kid, raw := range certs {
		key, err := parseCertKey(raw)
		if err != nil {
			return fmt.Errorf("cert %s: %w", kid, err)
		}
		v.keys.Set(kid, key, ttl)
	}
	v.fetchedAt.Store(time.Now().UnixNano())
	return nil
}

func parseCertKey(raw string) (*rsa.PublicKey, error) {
	block, _ := pem.Decode([]byte(raw))
	if block == nil {
		return nil, errors.New("no PEM block")
	}
	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return nil, err
	}
	key, ok := cert.PublicKey.(*rsa.PublicKey)
	if !ok {
		return nil, errors.New("certificate key is not RSA")
	}
	return key, nil
}

// maxAge 解析 "public, max-age=19204, must-revalidate"
func maxAge(cacheControl string) time.Duration {
	for _, part := range strings.Split(cacheControl, ",") {
		k, val, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok || !strings.EqualFold(k, "max-age") {
			continue
		}
		if sec, err := strconv.Atoi(val); err == nil && sec > 0 {
			return time.Duration(sec) * time.Second
		}
	}
	return defaultCertTTL
}
