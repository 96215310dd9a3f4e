// Package profile 个人资料与头像 - HTTP 处理
package profile

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/Danin2/Manajemen-Tugas/internal/apiserver/auth"
	objstore "github.com/Danin2/Manajemen-Tugas/internal/shared/minio"
	"github.com/Danin2/Manajemen-Tugas/internal/shared/storage"
	"github.com/Danin2/Manajemen-Tugas/pkg/logging"
)

// MaxAvatarBytes 头像大小上限
const MaxAvatarBytes = 2 << 20

// 允许的头像类型（按内容嗅探，不信任客户端声明）
var avatarTypes = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/webp": true,
	"image/gif":  true,
}

// Handler 个人资料 HTTP 处理器
type Handler struct {
	store   storage.UserStore
	avatars objstore.AvatarStore // 未配置对象存储时为 nil
	codec   *auth.Codec
	logger  *logging.Logger
}

// NewHandler 创建个人资料处理器
func NewHandler(store storage.UserStore, avatars objstore.AvatarStore, codec *auth.Codec, logger *logging.Logger) *Handler {
	return &Handler{store: store, avatars: avatars, codec: codec, logger: logger}
}

// RegisterRoutes 注册个人资料路由，全部需要会话
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	protect := auth.RequireSession(h.codec, func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
	})
	mux.Handle("GET /api/profile", protect(http.HandlerFunc(h.Get)))
	mux.Handle("PUT /api/profile", protect(http.HandlerFunc(h.Update)))
	mux.Handle("POST /api/profile/avatar", protect(http.HandlerFunc(h.UploadAvatar)))
	mux.Handle("GET /api/profile/avatar/{userId}", protect(http.HandlerFunc(h.GetAvatar)))
}

// optionalString 区分字段缺失、null 与字符串值
type optionalString struct {
	Set   bool
	Value *string
}

func (o *optionalString) UnmarshalJSON(b []byte) error {
	o.Set = true
	if string(b) == "null" {
		o.Value = nil
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s = strings.TrimSpace(s); s == "" {
		o.Value = nil
		return nil
	}
	o.Value = &s
	return nil
}

type updateRequest struct {
	Name      string         `json:"name"`
	Bio       optionalString `json:"bio"`
	AvatarURL optionalString `json:"avatarUrl"`
}

// Get 当前用户资料
// GET /api/profile
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	claims, _ := auth.ClaimsFrom(r.Context())

	profile, err := h.store.GetProfile(r.Context(), claims.UserID)
	if err != nil {
		h.logger.WithContext(r.Context()).WithError(err).Error("Get profile failed")
		writeError(w, http.StatusInternalServerError, "Gagal mengambil profil")
		return
	}
	if profile == nil {
		writeError(w, http.StatusNotFound, "Profil tidak ditemukan")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"profile": profile})
}

// Update 更新名字、简介和头像地址；缺失的 bio/avatarUrl 保持不变
// PUT /api/profile
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	claims, _ := auth.ClaimsFrom(r.Context())
	log := h.logger.WithContext(r.Context())

	var req updateRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Data tidak valid")
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		writeError(w, http.StatusBadRequest, "Nama wajib diisi")
		return
	}

	profile, err := h.store.GetProfile(r.Context(), claims.UserID)
	if err != nil {
		log.WithError(err).Error("Update profile: lookup failed")
		writeError(w, http.StatusInternalServerError, "Gagal update profil")
		return
	}
	if profile == nil {
		writeError(w, http.StatusNotFound, "Profil tidak ditemukan")
		return
	}

	profile.Name = name
	if req.Bio.Set {
		profile.Bio = req.Bio.Value
	}
	if req.AvatarURL.Set {
		profile.AvatarURL = req.AvatarURL.Value
	}
	if err := h.store.UpdateProfile(r.Context(), profile); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Profil tidak ditemukan")
			return
		}
		log.WithError(err).Error("Update profile failed")
		writeError(w, http.StatusInternalServerError, "Gagal update profil")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Profil berhasil diperbarui",
		"profile": profile,
	})
}

// UploadAvatar 上传头像（multipart 字段 avatar）
// POST /api/profile/avatar
func (h *Handler) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	if h.avatars == nil {
		writeError(w, http.StatusServiceUnavailable, "Penyimpanan avatar tidak tersedia")
		return
	}
	claims, _ := auth.ClaimsFrom(r.Context())
	log := h.logger.WithContext(r.Context())

	// 额外的 64KiB 留给 multipart 头部
	r.Body = http.MaxBytesReader(w, r.Body, MaxAvatarBytes+64<<10)
	file, header, err := r.FormFile("avatar")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "Ukuran avatar maksimal 2MB")
			return
		}
		writeError(w, http.StatusBadRequest, "File avatar wajib diunggah")
		return
	}
	defer file.Close()

	if header.Size > MaxAvatarBytes {
		writeError(w, http.StatusRequestEntityTooLarge, "Ukuran avatar maksimal 2MB")
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "File avatar wajib diunggah")
		return
	}
	contentType := http.DetectContentType(data)
	if !avatarTypes[contentType] {
		writeError(w, http.StatusBadRequest, "Format avatar tidak didukung")
		return
	}

	if err := h.avatars.PutAvatar(r.Context(), claims.UserID, bytes.NewReader(data), int64(len(data)), contentType); err != nil {
		log.WithError(err).Error("Upload avatar failed")
		writeError(w, http.StatusInternalServerError, "Gagal mengunggah avatar")
		return
	}

	avatarURL := avatarPath(claims.UserID)
	if err := h.store.UpdateAvatarURL(r.Context(), claims.UserID, avatarURL); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Profil tidak ditemukan")
			return
		}
		log.WithError(err).Error("Save avatar url failed")
		writeError(w, http.StatusInternalServerError, "Gagal mengunggah avatar")
		return
	}

	log.Info("Avatar uploaded", "bytes", len(data), "content_type", contentType)
	writeJSON(w, http.StatusOK, map[string]string{
		"message":   "Avatar berhasil diunggah",
		"avatarUrl": avatarURL,
	})
}

// GetAvatar 读取头像，只能读取自己的头像
// GET /api/profile/avatar/{userId}
func (h *Handler) GetAvatar(w http.ResponseWriter, r *http.Request) {
	claims, _ := auth.ClaimsFrom(r.Context())
	if h.avatars == nil {
		writeError(w, http.StatusServiceUnavailable, "Penyimpanan avatar tidak tersedia")
		return
	}
	userID, err := strconv.ParseInt(r.PathValue("userId"), 10, 64)
	if err != nil || userID <= 0 {
		writeError(w, http.StatusBadRequest, "ID diperlukan")
		return
	}
	// 他人的头像与不存在同样处理
	if userID != claims.UserID {
		writeError(w, http.StatusNotFound, "Avatar tidak ditemukan")
		return
	}

	obj, err := h.avatars.OpenAvatar(r.Context(), userID)
	if err != nil {
		if errors.Is(err, objstore.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Avatar tidak ditemukan")
			return
		}
		h.logger.WithContext(r.Context()).WithError(err).Error("Read avatar failed", "avatar_user_id", userID)
		writeError(w, http.StatusInternalServerError, "Gagal mengambil avatar")
		return
	}
	defer obj.Body.Close()

	w.Header().Set("Content-Type", obj.ContentType)
	if obj.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(obj.Size, 10))
	}
	w.Header().Set("Cache-Control", "private, no-cache")
	w.WriteHeader(http.StatusOK)
	io.Copy(w, obj.Body)
}

func avatarPath(userID int64) string {
	return fmt.Sprintf("/api/profile/avatar/%d", userID)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError 资料接口使用 {error}
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
