package auth

import (
	"net"
	"net/http"
	"strings"

	"github.com/Danin2/Manajemen-Tugas/pkg/logging"
)

// RequireSession API 路由认证中间件
//
// 会话有效时把声明和用户 ID 写入 context；否则交给 unauthorized 写出
// 调用方约定格式的 401 响应。
func RequireSession(codec *Codec, unauthorized http.HandlerFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := codec.ClaimsFromRequest(r)
			if !ok {
				unauthorized(w, r)
				return
			}
			ctx := WithClaims(r.Context(), claims)
			ctx = logging.ContextWithUserID(ctx, claims.UserID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ClientIP 客户端地址，优先取 X-Forwarded-For 第一个地址
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
