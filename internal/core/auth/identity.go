package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"greenhome/internal/core/config"
)

// Identity 凭证校验通过后的身份；是否已注册由 Account Directory 另行判断
type Identity struct {
	Email   string
	Subject string
}

type Verifier interface {
	Verify(ctx context.Context, token string) (Identity, error)
}

var ErrInvalidToken = errors.New("invalid token")

// New 按配置构造校验器
func New(c config.Auth) (Verifier, error) {
	switch c.Provider {
	case "firebase":
		return NewFirebaseVerifier(c.Firebase.ProjectID, c.Firebase.CertsURL, &http.Client{Timeout: 10 * time.Second}), nil
	case "local":
		return NewJWTer(c.Local), nil
	default:
		return nil, fmt.Errorf("unsupported auth provider %q", c.Provider)
	}
}
