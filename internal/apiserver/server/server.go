// Package server 路由配置与核心基础设施
//
// 组合各领域包的路由：
//   - auth: 注册、登录、登出、当前用户、修改密码
//   - task / schedule / profile: 按会话用户隔离的资源接口
//   - GET /health、GET /metrics
//
// 其余路径交给页面处理器，页面前面是访问闸门。
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/Danin2/Manajemen-Tugas/internal/apiserver/auth"
	"github.com/Danin2/Manajemen-Tugas/internal/apiserver/profile"
	"github.com/Danin2/Manajemen-Tugas/internal/apiserver/schedule"
	"github.com/Danin2/Manajemen-Tugas/internal/apiserver/task"
	"github.com/Danin2/Manajemen-Tugas/internal/shared/cache"
	objstore "github.com/Danin2/Manajemen-Tugas/internal/shared/minio"
	"github.com/Danin2/Manajemen-Tugas/internal/shared/storage"
	"github.com/Danin2/Manajemen-Tugas/pkg/logging"
)

// healthTimeout /health 数据库探活超时
const healthTimeout = 2 * time.Second

// Deps Handler 依赖
type Deps struct {
	Store    storage.PersistentStore
	Attempts cache.LoginAttemptCache // 可为 nil（不限制登录失败）
	Avatars  objstore.AvatarStore    // 可为 nil（头像上传返回 503）
	Codec    *auth.Codec

	Auth     auth.Options
	GateMode string

	Logger *logging.Logger
}

// Handler API 处理器入口
type Handler struct {
	deps    Deps
	logger  *logging.Logger
	metrics *Metrics
}

// NewHandler 创建 Handler 实例
func NewHandler(deps Deps) *Handler {
	logger := deps.Logger
	if logger == nil {
		logger = logging.Default("apiserver")
	}
	deps.Logger = logger
	return &Handler{
		deps:    deps,
		logger:  logger,
		metrics: NewMetrics("tugas"),
	}
}

// Router 返回配置好的 HTTP 路由
//
// pages 为页面处理器（静态导出或开发代理），为 nil 时非 API 路径返回 404。
// 中间件顺序：请求 ID → 访问日志 → 指标 → 路由。
func (h *Handler) Router(pages http.Handler) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", h.Health)
	mux.Handle("GET /metrics", h.metrics.Handler())

	auth.NewHandler(h.deps.Store, h.deps.Codec, h.deps.Attempts, h.deps.Auth, h.logger.Named("auth")).
		RegisterRoutes(mux)
	task.NewHandler(h.deps.Store, h.deps.Codec, h.logger.Named("task")).RegisterRoutes(mux)
	schedule.NewHandler(h.deps.Store, h.deps.Codec, h.logger.Named("schedule")).RegisterRoutes(mux)
	profile.NewHandler(h.deps.Store, h.deps.Avatars, h.deps.Codec, h.logger.Named("profile")).RegisterRoutes(mux)

	// 未注册的接口不落到页面处理器
	mux.HandleFunc("/api/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Not found"})
	})

	if pages == nil {
		pages = http.NotFoundHandler()
	}
	gate := auth.NewGate(h.deps.Codec, h.deps.GateMode, h.deps.Auth.SecureCookie, h.logger.Named("gate"))
	mux.Handle("/", gate.Wrap(pages))

	var handler http.Handler = mux
	handler = h.metrics.MetricsMiddleware(handler)
	handler = AccessLogMiddleware(h.logger.Named("http"))(handler)
	handler = RequestIDMiddleware(handler)
	return handler
}

// Health 健康检查接口
//
// 路由: GET /health
//
// 数据库可达时返回 {"status":"ok"}，否则 503。
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	if err := h.deps.Store.Ping(ctx); err != nil {
		h.metrics.SetDBUp(false)
		h.logger.WithContext(r.Context()).WithError(err).Warn("Health check: database unreachable")
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	h.metrics.SetDBUp(true)
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
