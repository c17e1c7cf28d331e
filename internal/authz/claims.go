package authz

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrTokenInvalid 令牌无效或已过期
	ErrTokenInvalid = errors.New("access token invalid")
	// ErrSecretMissing 未配置签名密钥
	ErrSecretMissing = errors.New("jwt secret missing")
)

// AccessClaims 访问令牌声明（由外部认证服务签发，本服务只校验）
type AccessClaims struct {
	UserID   uint     `json:"user_id"`
	Username string   `json:"username"`
	Roles    []string `json:"roles"`
	jwt.RegisteredClaims
}

// ParseAccessToken 校验 HS256 令牌并返回声明，issuer 为空时不校验签发方
func ParseAccessToken(raw, secret, issuer string) (*AccessClaims, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, ErrSecretMissing
	}
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}
	claims := &AccessClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, opts...)
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	if claims.UserID == 0 {
		if id, convErr := strconv.ParseUint(claims.Subject, 10, 64); convErr == nil {
			claims.UserID = uint(id)
		}
	}
	if claims.UserID == 0 {
		return nil, fmt.Errorf("%w: missing user id", ErrTokenInvalid)
	}
	return claims, nil
}

// IssueAccessToken 签发访问令牌（供种子数据与测试使用）
func IssueAccessToken(secret, issuer string, userID uint, username string, roles []string, ttl time.Duration) (string, error) {
	if strings.TrimSpace(secret) == "" {
		return "", ErrSecretMissing
	}
	now := time.Now()
	claims := AccessClaims{
		UserID:   userID,
		Username: username,
		Roles:    roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(userID), 10),
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}
