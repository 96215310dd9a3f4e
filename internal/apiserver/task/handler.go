// Package task 任务领域 - HTTP 处理
package task

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/Danin2/Manajemen-Tugas/internal/apiserver/auth"
	"github.com/Danin2/Manajemen-Tugas/internal/shared/model"
	"github.com/Danin2/Manajemen-Tugas/internal/shared/storage"
	"github.com/Danin2/Manajemen-Tugas/pkg/logging"
)

// Handler 任务领域 HTTP 处理器
type Handler struct {
	store  storage.TaskStore
	codec  *auth.Codec
	logger *logging.Logger
}

// NewHandler 创建任务处理器
func NewHandler(store storage.TaskStore, codec *auth.Codec, logger *logging.Logger) *Handler {
	return &Handler{store: store, codec: codec, logger: logger}
}

// RegisterRoutes 注册任务相关路由，全部需要会话
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	protect := auth.RequireSession(h.codec, func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
	})
	mux.Handle("GET /api/tasks", protect(http.HandlerFunc(h.List)))
	mux.Handle("GET /api/tasks/stats", protect(http.HandlerFunc(h.Stats)))
	mux.Handle("GET /api/tasks/{id}", protect(http.HandlerFunc(h.Get)))
	mux.Handle("POST /api/tasks", protect(http.HandlerFunc(h.Create)))
	mux.Handle("PUT /api/tasks", protect(http.HandlerFunc(h.Update)))
	mux.Handle("DELETE /api/tasks", protect(http.HandlerFunc(h.Delete)))
}

// ============================================================================
// 请求/响应类型
// ============================================================================

type createRequest struct {
	Title       string           `json:"title"`
	Subject     string           `json:"subject"`
	Deadline    optionalDeadline `json:"deadline"`
	Priority    string           `json:"priority"`
	IsCompleted bool             `json:"isCompleted"`
}

// updateRequest 部分更新，缺失字段保持不变
type updateRequest struct {
	ID          flexID           `json:"id"`
	Title       *string          `json:"title"`
	Subject     *string          `json:"subject"`
	Deadline    optionalDeadline `json:"deadline"`
	Priority    *string          `json:"priority"`
	IsCompleted *bool            `json:"isCompleted"`
}

// taskView 对外的任务表示，ID 为字符串
type taskView struct {
	ID          string             `json:"id"`
	Title       string             `json:"title"`
	Subject     string             `json:"subject"`
	Deadline    *time.Time         `json:"deadline"`
	Priority    model.TaskPriority `json:"priority"`
	IsCompleted bool               `json:"isCompleted"`
	CreatedAt   time.Time          `json:"createdAt"`
	UpdatedAt   time.Time          `json:"updatedAt"`
}

func toView(t *model.Task) taskView {
	return taskView{
		ID:          formatID(t.ID),
		Title:       t.Title,
		Subject:     t.Subject,
		Deadline:    t.Deadline,
		Priority:    t.Priority,
		IsCompleted: t.Completed,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

// ============================================================================
// HTTP 处理函数
// ============================================================================

// List 当前用户的任务，最新的在前
// GET /api/tasks
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	claims, _ := auth.ClaimsFrom(r.Context())

	tasks, err := h.store.ListTasks(r.Context(), claims.UserID)
	if err != nil {
		h.logger.WithContext(r.Context()).WithError(err).Error("List tasks failed")
		writeError(w, http.StatusInternalServerError, "Gagal mengambil tugas")
		return
	}
	views := make([]taskView, 0, len(tasks))
	for _, t := range tasks {
		views = append(views, toView(t))
	}
	writeData(w, http.StatusOK, views)
}

// Get 任务详情
// GET /api/tasks/{id}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	claims, _ := auth.ClaimsFrom(r.Context())
	id, ok := parseID(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusBadRequest, "ID diperlukan")
		return
	}

	task, err := h.store.GetTask(r.Context(), claims.UserID, id)
	if err != nil {
		h.logger.WithContext(r.Context()).WithError(err).Error("Get task failed", "task_id", id)
		writeError(w, http.StatusInternalServerError, "Gagal mengambil tugas")
		return
	}
	if task == nil {
		writeError(w, http.StatusNotFound, "Tugas tidak ditemukan")
		return
	}
	writeData(w, http.StatusOK, toView(task))
}

// Stats 完成情况统计
// GET /api/tasks/stats
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	claims, _ := auth.ClaimsFrom(r.Context())

	stats, err := h.store.GetTaskStats(r.Context(), claims.UserID)
	if err != nil {
		h.logger.WithContext(r.Context()).WithError(err).Error("Task stats failed")
		writeError(w, http.StatusInternalServerError, "Gagal mengambil statistik")
		return
	}
	writeData(w, http.StatusOK, stats)
}

// Create 创建任务
// POST /api/tasks
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	claims, _ := auth.ClaimsFrom(r.Context())

	var req createRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeBodyError(w, err)
		return
	}
	req.Title = strings.TrimSpace(req.Title)
	req.Subject = strings.TrimSpace(req.Subject)
	if req.Title == "" || req.Subject == "" {
		writeError(w, http.StatusBadRequest, "Judul dan mata pelajaran wajib diisi")
		return
	}

	priority := model.TaskPriorityMedium
	if req.Priority != "" {
		priority = model.TaskPriority(req.Priority)
		if !priority.Valid() {
			writeError(w, http.StatusBadRequest, "Prioritas tidak valid")
			return
		}
	}

	task := &model.Task{
		UserID:    claims.UserID,
		Title:     req.Title,
		Subject:   req.Subject,
		Deadline:  req.Deadline.Value,
		Priority:  priority,
		Completed: req.IsCompleted,
	}
	if err := h.store.CreateTask(r.Context(), task); err != nil {
		h.logger.WithContext(r.Context()).WithError(err).Error("Create task failed")
		writeError(w, http.StatusInternalServerError, "Gagal membuat tugas")
		return
	}
	writeData(w, http.StatusCreated, toView(task))
}

// Update 部分更新任务，ID 在请求体中
// PUT /api/tasks
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	claims, _ := auth.ClaimsFrom(r.Context())
	log := h.logger.WithContext(r.Context())

	var req updateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeBodyError(w, err)
		return
	}
	id, ok := parseID(string(req.ID))
	if !ok {
		writeError(w, http.StatusBadRequest, "ID diperlukan")
		return
	}

	task, err := h.store.GetTask(r.Context(), claims.UserID, id)
	if err != nil {
		log.WithError(err).Error("Update task: lookup failed", "task_id", id)
		writeError(w, http.StatusInternalServerError, "Gagal mengupdate tugas")
		return
	}
	if task == nil {
		writeError(w, http.StatusNotFound, "Tugas tidak ditemukan")
		return
	}

	if req.Title != nil {
		task.Title = strings.TrimSpace(*req.Title)
	}
	if req.Subject != nil {
		task.Subject = strings.TrimSpace(*req.Subject)
	}
	if task.Title == "" || task.Subject == "" {
		writeError(w, http.StatusBadRequest, "Judul dan mata pelajaran wajib diisi")
		return
	}
	if req.Deadline.Set {
		task.Deadline = req.Deadline.Value
	}
	if req.Priority != nil {
		p := model.TaskPriority(*req.Priority)
		if !p.Valid() {
			writeError(w, http.StatusBadRequest, "Prioritas tidak valid")
			return
		}
		task.Priority = p
	}
	if req.IsCompleted != nil {
		task.Completed = *req.IsCompleted
	}

	if err := h.store.UpdateTask(r.Context(), task); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Tugas tidak ditemukan")
			return
		}
		log.WithError(err).Error("Update task failed", "task_id", id)
		writeError(w, http.StatusInternalServerError, "Gagal mengupdate tugas")
		return
	}
	writeData(w, http.StatusOK, toView(task))
}

// Delete 删除任务，ID 在查询参数中
// DELETE /api/tasks?id=
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	claims, _ := auth.ClaimsFrom(r.Context())
	id, ok := parseID(r.URL.Query().Get("id"))
	if !ok {
		writeError(w, http.StatusBadRequest, "ID diperlukan")
		return
	}

	if err := h.store.DeleteTask(r.Context(), claims.UserID, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Tugas tidak ditemukan")
			return
		}
		h.logger.WithContext(r.Context()).WithError(err).Error("Delete task failed", "task_id", id)
		writeError(w, http.StatusInternalServerError, "Gagal menghapus tugas")
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Message: "Task deleted"})
}

func writeBodyError(w http.ResponseWriter, err error) {
	if errors.Is(err, errInvalidDeadline) {
		writeError(w, http.StatusBadRequest, "Format deadline tidak valid")
		return
	}
	writeError(w, http.StatusBadRequest, "Data tidak valid")
}
