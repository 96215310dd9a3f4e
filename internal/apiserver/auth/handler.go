package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Danin2/Manajemen-Tugas/internal/shared/cache"
	"github.com/Danin2/Manajemen-Tugas/internal/shared/model"
	"github.com/Danin2/Manajemen-Tugas/internal/shared/storage"
	"github.com/Danin2/Manajemen-Tugas/pkg/logging"
)

// Options 认证处理器配置
type Options struct {
	SecureCookie     bool          // 生产环境为 true
	MaxLoginAttempts int           // 窗口内允许的失败次数，0 表示不限制
	LockoutWindow    time.Duration // 失败计数窗口
}

// Handler 认证 HTTP 处理器
type Handler struct {
	store    storage.UserStore
	codec    *Codec
	attempts cache.LoginAttemptCache
	opts     Options
	logger   *logging.Logger
}

// NewHandler 创建认证处理器，attempts 为 nil 时不限制登录失败次数
func NewHandler(store storage.UserStore, codec *Codec, attempts cache.LoginAttemptCache, opts Options, logger *logging.Logger) *Handler {
	return &Handler{
		store:    store,
		codec:    codec,
		attempts: attempts,
		opts:     opts,
		logger:   logger,
	}
}

// RegisterRoutes 注册认证相关路由
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/auth/register", h.Register)
	mux.HandleFunc("POST /api/auth/login", h.Login)
	mux.HandleFunc("POST /api/auth/logout", h.Logout)
	mux.HandleFunc("GET /api/auth/me", h.Me)

	requireSession := RequireSession(h.codec, func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
	})
	mux.Handle("PUT /api/change-password", requireSession(http.HandlerFunc(h.ChangePassword)))
}

// ============================================================================
// 请求/响应类型
// ============================================================================

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type changePasswordRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

// sessionUser 登录响应中的用户信息（与令牌声明一致）
type sessionUser struct {
	UserID int64  `json:"userId"`
	Email  string `json:"email"`
	Name   string `json:"name"`
	Role   string `json:"role"`
}

type loginResponse struct {
	Message string      `json:"message"`
	User    sessionUser `json:"user"`
}

type meUser struct {
	ID        int64   `json:"id"`
	Email     string  `json:"email"`
	Role      string  `json:"role"`
	Name      string  `json:"name"`
	AvatarURL *string `json:"avatarUrl"`
	Bio       *string `json:"bio"`
}

// ============================================================================
// Handlers
// ============================================================================

// Register 用户注册
// POST /api/auth/register
//
// 注册成功不签发会话，客户端需要再调用登录。
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)

	if req.Name == "" || req.Email == "" || req.Password == "" {
		writeMessage(w, http.StatusBadRequest, "Missing required fields")
		return
	}
	if utf8.RuneCountInString(req.Password) < MinPasswordLength {
		writeMessage(w, http.StatusBadRequest, "Password must be at least 6 characters")
		return
	}
	if len(req.Password) > MaxPasswordBytes {
		writeMessage(w, http.StatusBadRequest, "Password must be at most 72 bytes")
		return
	}
	if !isValidEmail(req.Email) {
		writeMessage(w, http.StatusBadRequest, "Invalid email format")
		return
	}

	log := h.logger.WithContext(r.Context())

	existing, err := h.store.GetUserByEmail(r.Context(), req.Email)
	if err != nil {
		log.WithError(err).Error("Register: lookup by email failed")
		writeMessage(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if existing != nil {
		writeMessage(w, http.StatusConflict, "User already exists")
		return
	}

	hash, err := HashPassword(req.Password)
	if err != nil {
		log.WithError(err).Error("Register: hash password failed")
		writeMessage(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	avatar := placeholderAvatar(req.Name)
	user := &model.User{
		Email:        req.Email,
		PasswordHash: hash,
		Role:         model.UserRoleUser,
	}
	profile := &model.Profile{
		Name:      req.Name,
		AvatarURL: &avatar,
	}
	if err := h.store.CreateUser(r.Context(), user, profile); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			writeMessage(w, http.StatusConflict, "User already exists")
			return
		}
		log.WithError(err).Error("Register: create user failed")
		writeMessage(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	log.Info("User registered", "user_id", user.ID)
	writeMessage(w, http.StatusCreated, "User created successfully")
}

// Login 用户登录
// POST /api/auth/login
//
// 未知邮箱、密码错误和失败次数超限返回同一个 401。
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || req.Password == "" {
		writeMessage(w, http.StatusBadRequest, "Email and password are required")
		return
	}

	log := h.logger.WithContext(r.Context())

	if h.lockedOut(r, req.Email) {
		log.Warn("Login rejected: too many failed attempts")
		writeMessage(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	user, err := h.store.GetUserByEmail(r.Context(), req.Email)
	if err != nil {
		log.WithError(err).Error("Login: lookup by email failed")
		writeMessage(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if user == nil || !CheckPassword(req.Password, user.PasswordHash) {
		h.recordFailure(r, req.Email)
		writeMessage(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	h.resetFailures(r, req.Email)

	claims := Claims{
		UserID: user.ID,
		Email:  user.Email,
		Name:   user.DisplayName(""),
		Role:   string(user.Role),
	}
	token, err := h.codec.Issue(claims)
	if err != nil {
		log.WithError(err).Error("Login: issue token failed")
		writeMessage(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	SetSessionCookie(w, token, h.opts.SecureCookie)
	log.Info("User logged in", "user_id", user.ID)
	writeJSON(w, http.StatusOK, loginResponse{
		Message: "Login successful",
		User: sessionUser{
			UserID: claims.UserID,
			Email:  claims.Email,
			Name:   claims.Name,
			Role:   claims.Role,
		},
	})
}

// Logout 清除会话 cookie，总是成功
// POST /api/auth/logout
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	ClearSessionCookie(w, h.opts.SecureCookie)
	writeMessage(w, http.StatusOK, "Logout successful")
}

// Me 当前会话对应的用户信息，每次重新读取资料
// GET /api/auth/me
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.codec.ClaimsFromRequest(r)
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	user, err := h.store.GetUserByID(r.Context(), claims.UserID)
	if err != nil {
		h.logger.WithContext(r.Context()).WithError(err).Error("Me: lookup by id failed", "user_id", claims.UserID)
		writeMessage(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if user == nil {
		writeMessage(w, http.StatusNotFound, "User not found")
		return
	}

	fallback := claims.Name
	if fallback == "" {
		fallback = "User"
	}
	resp := meUser{
		ID:    user.ID,
		Email: user.Email,
		Role:  string(user.Role),
		Name:  user.DisplayName(fallback),
	}
	if user.Profile != nil {
		resp.AvatarURL = user.Profile.AvatarURL
		resp.Bio = user.Profile.Bio
	}
	writeJSON(w, http.StatusOK, map[string]meUser{"user": resp})
}

// ChangePassword 修改密码（需要会话）
// PUT /api/change-password
func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	claims, ok := ClaimsFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req changePasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.OldPassword == "" || req.NewPassword == "" {
		writeError(w, http.StatusBadRequest, "Password lama dan password baru wajib diisi")
		return
	}
	if utf8.RuneCountInString(req.NewPassword) < MinPasswordLength {
		writeError(w, http.StatusBadRequest, "Password baru minimal 6 karakter")
		return
	}
	if len(req.NewPassword) > MaxPasswordBytes {
		writeError(w, http.StatusBadRequest, "Password baru maksimal 72 byte")
		return
	}

	log := h.logger.WithContext(r.Context())

	user, err := h.store.GetUserByID(r.Context(), claims.UserID)
	if err != nil {
		log.WithError(err).Error("ChangePassword: lookup by id failed")
		writeError(w, http.StatusInternalServerError, "Gagal ganti password")
		return
	}
	if user == nil {
		writeError(w, http.StatusNotFound, "User tidak ditemukan")
		return
	}
	if !CheckPassword(req.OldPassword, user.PasswordHash) {
		writeError(w, http.StatusUnauthorized, "Password lama salah")
		return
	}

	hash, err := HashPassword(req.NewPassword)
	if err != nil {
		log.WithError(err).Error("ChangePassword: hash password failed")
		writeError(w, http.StatusInternalServerError, "Gagal ganti password")
		return
	}
	if err := h.store.UpdateUserPassword(r.Context(), user.ID, hash); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "User tidak ditemukan")
			return
		}
		log.WithError(err).Error("ChangePassword: update failed")
		writeError(w, http.StatusInternalServerError, "Gagal ganti password")
		return
	}

	log.Info("Password changed")
	writeMessage(w, http.StatusOK, "Password berhasil diganti")
}

// ============================================================================
// 登录失败计数（计数器故障时放行）
// ============================================================================

func (h *Handler) throttleEnabled() bool {
	return h.attempts != nil && h.opts.MaxLoginAttempts > 0
}

// attemptKey 失败计数按邮箱和客户端地址隔离，其他地址的失败不会锁住本人登录
func attemptKey(r *http.Request, email string) string {
	return strings.ToLower(email) + "|" + ClientIP(r)
}

func (h *Handler) lockedOut(r *http.Request, email string) bool {
	if !h.throttleEnabled() {
		return false
	}
	n, err := h.attempts.FailedLogins(r.Context(), attemptKey(r, email))
	if err != nil {
		h.logger.WithContext(r.Context()).WithError(err).Warn("Login throttle unavailable")
		return false
	}
	return n >= h.opts.MaxLoginAttempts
}

func (h *Handler) recordFailure(r *http.Request, email string) {
	if !h.throttleEnabled() {
		return
	}
	n, err := h.attempts.RecordFailedLogin(r.Context(), attemptKey(r, email), h.opts.LockoutWindow)
	if err != nil {
		h.logger.WithContext(r.Context()).WithError(err).Warn("Login throttle unavailable")
		return
	}
	if n == h.opts.MaxLoginAttempts {
		h.logger.WithContext(r.Context()).Warn("Login locked",
			"client_ip", ClientIP(r), "window", h.opts.LockoutWindow.String())
	}
}

func (h *Handler) resetFailures(r *http.Request, email string) {
	if !h.throttleEnabled() {
		return
	}
	if err := h.attempts.ResetFailedLogins(r.Context(), attemptKey(r, email)); err != nil {
		h.logger.WithContext(r.Context()).WithError(err).Warn("Login throttle reset failed")
	}
}

// ============================================================================
// 工具函数
// ============================================================================

// maxBodyBytes 认证请求体上限
const maxBodyBytes = 1 << 20

func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(dst)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeMessage 认证接口使用 {message}
func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}

// writeError 改密接口使用 {error}
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

func isValidEmail(email string) bool {
	return emailRegex.MatchString(email)
}

// placeholderAvatar 按名字生成固定的默认头像地址
func placeholderAvatar(name string) string {
	seed := strings.ReplaceAll(url.QueryEscape(name), "+", "%20")
	return "https://api.dicebear.com/7.x/notionists/svg?seed=" + seed
}
