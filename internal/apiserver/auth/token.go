package auth

import (
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionTTL 会话有效期，固定 7 天
const SessionTTL = 7 * 24 * time.Hour

// Claims 会话令牌声明
type Claims struct {
	UserID int64  `json:"userId"`
	Email  string `json:"email"`
	Name   string `json:"name,omitempty"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// Codec 会话令牌签发与校验（HS256）
//
// 页面闸门和 API 处理器共用同一个 Codec。
type Codec struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewCodec 创建令牌编解码器
func NewCodec(secret string) *Codec {
	return &Codec{
		secret: []byte(secret),
		ttl:    SessionTTL,
		now:    time.Now,
	}
}

// SetClock 替换时钟（测试用）
func (c *Codec) SetClock(now func() time.Time) {
	c.now = now
}

// Issue 签发令牌，iat/exp/sub 由 Codec 填写
func (c *Codec) Issue(claims Claims) (string, error) {
	now := c.now()
	claims.RegisteredClaims = jwt.RegisteredClaims{
		Subject:   strconv.FormatInt(claims.UserID, 10),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return signed, nil
}

// Verify 校验签名和有效期，失败统一返回 (nil, false)
func (c *Codec) Verify(tokenString string) (*Claims, bool) {
	if tokenString == "" {
		return nil, false
	}
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return c.secret, nil
	},
		jwt.WithTimeFunc(c.now),
		jwt.WithExpirationRequired(),
		jwt.WithStrictDecoding(),
	)
	if err != nil {
		return nil, false
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UserID <= 0 {
		return nil, false
	}
	return claims, true
}
