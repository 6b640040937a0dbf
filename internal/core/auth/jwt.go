package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"greenhome/internal/core/config"
)

type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// JWTer 本地 HS256 令牌，用于开发环境、运维 CLI 和测试
type JWTer struct {
	Secret []byte
	Issuer string
	TTL    time.Duration
}

func NewJWTer(c config.LocalAuth) *JWTer {
	ttl := time.Duration(c.TTLMin) * time.Minute
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &JWTer{Secret: []byte(c.Secret), Issuer: c.Issuer, TTL: ttl}
}

func (j *JWTer) Issue(subject, email string) (string, error) {
	now := time.Now()
	claims := Claims{
		Email: strings.ToLower(strings.TrimSpace(email)),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    j.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(j.TTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(j.Secret)
}

func (j *JWTer) Parse(tokenStr string) (*Claims, error) {
	t, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected alg %v", token.Header["alg"])
		}
		return j.Secret, nil
	},
		jwt.WithIssuer(j.Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(60*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	c, ok := t.Claims.(*Claims)
	if !ok || !t.Valid {
		return nil, ErrInvalidToken
	}
	return c, nil
}

func (j *JWTer) Verify(_ context.Context, token string) (Identity, error) {
	c, err := j.Parse(token)
	if err != nil {
		return Identity{}, err
	}
	if c.Email == "" || c.Subject == "" {
		return Identity{}, fmt.Errorf("%w: missing email or subject", ErrInvalidToken)
	}
	return Identity{Email: c.Email, Subject: c.Subject}, nil
}
