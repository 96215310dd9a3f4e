package auth

import (
	"net/http"
	"strings"

	"github.com/Danin2/Manajemen-Tugas/internal/config"
	"github.com/Danin2/Manajemen-Tugas/pkg/logging"
)

// 闸门不处理的路径前缀（静态资源与自带认证的接口）
var gateBypassPrefixes = []string{
	"/_next",
	"/api",
	"/metrics",
	"/health",
}

// 登录/注册页
var authPages = map[string]bool{
	"/login":    true,
	"/register": true,
}

type gateAction int

const (
	gateAllow gateAction = iota
	gateToHome
	gateToLogin
)

// Gate 页面访问闸门
//
// presence 模式只看 auth_token cookie 是否存在；verify 模式额外校验签名和有效期，
// 无效令牌按未登录处理并清除 cookie。闸门内部出错时放行。
type Gate struct {
	codec  *Codec
	mode   string
	secure bool
	logger *logging.Logger
}

// NewGate 创建访问闸门，mode 为空时使用 presence
func NewGate(codec *Codec, mode string, secure bool, logger *logging.Logger) *Gate {
	if mode == "" {
		mode = config.GateModePresence
	}
	return &Gate{codec: codec, mode: mode, secure: secure, logger: logger}
}

// Wrap 在页面处理器前执行闸门
func (g *Gate) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		action, clear := g.evaluate(r)
		if clear {
			ClearSessionCookie(w, g.secure)
		}
		switch action {
		case gateToHome:
			http.Redirect(w, r, "/", http.StatusTemporaryRedirect)
		case gateToLogin:
			http.Redirect(w, r, "/login", http.StatusTemporaryRedirect)
		default:
			next.ServeHTTP(w, r)
		}
	})
}

// evaluate 计算闸门动作，panic 时放行
func (g *Gate) evaluate(r *http.Request) (action gateAction, clear bool) {
	defer func() {
		if rec := recover(); rec != nil {
			g.logger.Error("Gate failed, allowing request", "path", r.URL.Path, "panic", rec)
			action, clear = gateAllow, false
		}
	}()
	return g.decide(r)
}

func (g *Gate) decide(r *http.Request) (gateAction, bool) {
	path := r.URL.Path
	if bypassGate(path) {
		return gateAllow, false
	}

	token := sessionToken(r)
	loggedIn := token != ""
	clear := false
	if loggedIn && g.mode == config.GateModeVerify {
		if _, ok := g.codec.Verify(token); !ok {
			loggedIn, clear = false, true
		}
	}

	isAuthPage := authPages[path]
	switch {
	case loggedIn && isAuthPage:
		return gateToHome, clear
	case !loggedIn && !isAuthPage:
		return gateToLogin, clear
	}
	return gateAllow, clear
}

func bypassGate(path string) bool {
	if path == "/favicon.ico" || strings.Contains(path, ".") {
		return true
	}
	for _, prefix := range gateBypassPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}
