package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/asistros/pkg/config"
	apperrors "github.com/asistros/pkg/errors"
	"github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"
)

// InvalidReason 令牌无效原因，仅供内部校验接口使用
type InvalidReason string

const (
	ReasonNone             InvalidReason = ""
	ReasonMalformed        InvalidReason = "malformed"
	ReasonExpired          InvalidReason = "expired"
	ReasonSignatureInvalid InvalidReason = "signature-invalid"
)

var errWrongKind = errors.New("token kind mismatch")

// TokenVerifier 网关过滤器所需的最小能力
type TokenVerifier interface {
	Verify(token string) (*SessionClaims, error)
	IsExpired(token string) bool
}

// TokenCodec 令牌编解码器，HMAC 对称签名
type TokenCodec struct {
	secret     []byte
	issuer     string
	method     *jwt.SigningMethodHMAC
	sessionTTL time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// CodecOption 编解码器选项
type CodecOption func(*TokenCodec)

// WithClock 指定时钟
func WithClock(now func() time.Time) CodecOption {
	return func(c *TokenCodec) {
		c.now = now
	}
}

// NewTokenCodec 创建令牌编解码器
func NewTokenCodec(cfg *config.JWTConfig, opts ...CodecOption) (*TokenCodec, error) {
	if cfg.Secret == "" {
		return nil, errors.New("jwt secret is empty")
	}
	method, err := hmacMethod(cfg.Algorithm)
	if err != nil {
		return nil, err
	}
	c := &TokenCodec{
		secret:     []byte(cfg.Secret),
		issuer:     cfg.Issuer,
		method:     method,
		sessionTTL: cfg.SessionTTL(),
		refreshTTL: cfg.RefreshTTL(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func hmacMethod(alg string) (*jwt.SigningMethodHMAC, error) {
	switch alg {
	case "", "HS512":
		return jwt.SigningMethodHS512, nil
	case "HS384":
		return jwt.SigningMethodHS384, nil
	case "HS256":
		return jwt.SigningMethodHS256, nil
	default:
		return nil, fmt.Errorf("unsupported jwt algorithm: %s", alg)
	}
}

// SessionTTL 会话令牌有效期
func (c *TokenCodec) SessionTTL() time.Duration {
	return c.sessionTTL
}

// registered 构造标准声明
func (c *TokenCodec) registered(subject string, ttl time.Duration) jwt.RegisteredClaims {
	now := c.now()
	return jwt.RegisteredClaims{
		ID:        ulid.Make().String(),
		Issuer:    c.issuer,
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
}

// IssueSession 签发会话令牌
func (c *TokenCodec) IssueSession(subject SessionSubject) (string, *SessionClaims, error) {
	claims := &SessionClaims{
		UserID:            subject.UserID,
		EmployeeID:        subject.EmployeeID,
		FullName:          subject.FullName,
		Email:             subject.Email,
		Roles:             cloneStrings(subject.Roles),
		Permissions:       cloneStrings(subject.Permissions),
		CanViewAllClients: subject.CanViewAllClients,
		EmployeeStatus:    subject.EmployeeStatus,
		Kind:              KindSession,
		RegisteredClaims:  c.registered(subject.LoginName, c.sessionTTL),
	}
	token, err := jwt.NewWithClaims(c.method, claims).SignedString(c.secret)
	if err != nil {
		return "", nil, fmt.Errorf("sign session token: %w", err)
	}
	return token, claims, nil
}

// IssueRefresh 签发刷新令牌
func (c *TokenCodec) IssueRefresh(userID int64, loginName string) (string, error) {
	claims := &RefreshClaims{
		UserID:           userID,
		Kind:             KindRefresh,
		RegisteredClaims: c.registered(loginName, c.refreshTTL),
	}
	token, err := jwt.NewWithClaims(c.method, claims).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sign refresh token: %w", err)
	}
	return token, nil
}

// parser 构造解析器，validate=false 时只校验签名与结构
func (c *TokenCodec) parser(validate bool) *jwt.Parser {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{c.method.Alg()}),
		jwt.WithTimeFunc(c.now),
	}
	if validate {
		opts = append(opts, jwt.WithExpirationRequired(), jwt.WithIssuedAt())
		if c.issuer != "" {
			opts = append(opts, jwt.WithIssuer(c.issuer))
		}
	} else {
		opts = append(opts, jwt.WithoutClaimsValidation())
	}
	return jwt.NewParser(opts...)
}

func (c *TokenCodec) keyFunc(*jwt.Token) (interface{}, error) {
	return c.secret, nil
}

// parseSession 解析并完整校验会话令牌
func (c *TokenCodec) parseSession(tokenString string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	if _, err := c.parser(true).ParseWithClaims(tokenString, claims, c.keyFunc); err != nil {
		return nil, err
	}
	if claims.Kind != KindSession {
		return nil, errWrongKind
	}
	return claims, nil
}

// Verify 校验会话令牌
// 签名、结构、过期等任何失败都返回同一个错误，不向调用方暴露原因
func (c *TokenCodec) Verify(tokenString string) (*SessionClaims, error) {
	claims, err := c.parseSession(tokenString)
	if err != nil {
		return nil, apperrors.ErrTokenInvalid
	}
	return claims, nil
}

// VerifyRefresh 校验刷新令牌，会话令牌在此处无效
func (c *TokenCodec) VerifyRefresh(tokenString string) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	if _, err := c.parser(true).ParseWithClaims(tokenString, claims, c.keyFunc); err != nil {
		return nil, apperrors.ErrTokenInvalid
	}
	if claims.Kind != KindRefresh {
		return nil, apperrors.ErrTokenInvalid
	}
	return claims, nil
}

// Inspect 校验会话令牌并给出无效原因
func (c *TokenCodec) Inspect(tokenString string) (*SessionClaims, InvalidReason) {
	claims, err := c.parseSession(tokenString)
	if err == nil {
		return claims, ReasonNone
	}
	switch {
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return nil, ReasonSignatureInvalid
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, ReasonExpired
	default:
		return nil, ReasonMalformed
	}
}

// IsExpired 令牌是否已过期，签名无效或无法解析的令牌按过期处理
func (c *TokenCodec) IsExpired(tokenString string) bool {
	claims := &jwt.RegisteredClaims{}
	if _, err := c.parser(false).ParseWithClaims(tokenString, claims, c.keyFunc); err != nil {
		return true
	}
	if claims.ExpiresAt == nil {
		return true
	}
	return !c.now().Before(claims.ExpiresAt.Time)
}

// IsRefreshKind 是否为签名有效的刷新令牌，不检查有效期
func (c *TokenCodec) IsRefreshKind(tokenString string) bool {
	claims := &RefreshClaims{}
	if _, err := c.parser(false).ParseWithClaims(tokenString, claims, c.keyFunc); err != nil {
		return false
	}
	return claims.Kind == KindRefresh
}
