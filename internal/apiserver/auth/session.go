package auth

import (
	"context"
	"net/http"
)

// CookieName 会话 cookie 名称
const CookieName = "auth_token"

type contextKey string

const ctxKeyClaims contextKey = "session_claims"

// ============================================================================
// Cookie
// ============================================================================

// SetSessionCookie 写入会话 cookie（HttpOnly、SameSite=Strict、7 天）
func SetSessionCookie(w http.ResponseWriter, token string, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(SessionTTL.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
	})
}

// ClearSessionCookie 让浏览器立即删除会话 cookie
func ClearSessionCookie(w http.ResponseWriter, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
	})
}

// sessionToken 读取 cookie 中的令牌，空值视为不存在
func sessionToken(r *http.Request) string {
	c, err := r.Cookie(CookieName)
	if err != nil {
		return ""
	}
	return c.Value
}

// ClaimsFromRequest 从请求 cookie 中取出并校验会话
func (c *Codec) ClaimsFromRequest(r *http.Request) (*Claims, bool) {
	return c.Verify(sessionToken(r))
}

// ============================================================================
// Context 辅助函数
// ============================================================================

// WithClaims 将会话声明注入 context
func WithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, ctxKeyClaims, claims)
}

// ClaimsFrom 从 context 获取会话声明
func ClaimsFrom(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(ctxKeyClaims).(*Claims)
	return claims, ok && claims != nil
}
