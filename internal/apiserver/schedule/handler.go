// Package schedule 课程表 - HTTP 处理
package schedule

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/Danin2/Manajemen-Tugas/internal/apiserver/auth"
	"github.com/Danin2/Manajemen-Tugas/internal/shared/model"
	"github.com/Danin2/Manajemen-Tugas/internal/shared/storage"
	"github.com/Danin2/Manajemen-Tugas/pkg/logging"
)

// Handler 课程表 HTTP 处理器
type Handler struct {
	store  storage.ScheduleStore
	codec  *auth.Codec
	logger *logging.Logger
}

// NewHandler 创建课程表处理器
func NewHandler(store storage.ScheduleStore, codec *auth.Codec, logger *logging.Logger) *Handler {
	return &Handler{store: store, codec: codec, logger: logger}
}

// RegisterRoutes 注册课程表路由，全部需要会话
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	protect := auth.RequireSession(h.codec, func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
	})
	mux.Handle("GET /api/schedules", protect(http.HandlerFunc(h.List)))
	mux.Handle("POST /api/schedules", protect(http.HandlerFunc(h.Create)))
	mux.Handle("PUT /api/schedules", protect(http.HandlerFunc(h.Update)))
	mux.Handle("DELETE /api/schedules", protect(http.HandlerFunc(h.Delete)))
}

type scheduleRequest struct {
	ID        flexID  `json:"id"`
	Day       string  `json:"day"`
	Subject   string  `json:"subject"`
	StartTime string  `json:"startTime"`
	EndTime   string  `json:"endTime"`
	Room      *string `json:"room"`
}

type scheduleView struct {
	ID        string        `json:"id"`
	Day       model.Weekday `json:"day"`
	Subject   string        `json:"subject"`
	StartTime string        `json:"startTime"`
	EndTime   string        `json:"endTime"`
	Room      *string       `json:"room"`
}

func toView(s *model.Schedule) scheduleView {
	return scheduleView{
		ID:        strconv.FormatInt(s.ID, 10),
		Day:       s.Day,
		Subject:   s.Subject,
		StartTime: s.StartTime,
		EndTime:   s.EndTime,
		Room:      s.Room,
	}
}

// toModel 校验请求并转换为模型，失败时返回面向用户的错误信息
func (req *scheduleRequest) toModel(userID int64) (*model.Schedule, string) {
	day := model.Weekday(strings.TrimSpace(req.Day))
	subject := strings.TrimSpace(req.Subject)
	if day == "" || subject == "" || req.StartTime == "" || req.EndTime == "" {
		return nil, "Hari, mata pelajaran, dan jam wajib diisi"
	}
	if !day.Valid() {
		return nil, "Hari tidak valid"
	}
	start, ok1 := model.ParseClock(strings.TrimSpace(req.StartTime))
	end, ok2 := model.ParseClock(strings.TrimSpace(req.EndTime))
	if !ok1 || !ok2 {
		return nil, "Format jam harus HH:MM"
	}
	if start >= end {
		return nil, "Jam selesai harus setelah jam mulai"
	}

	var room *string
	if req.Room != nil {
		if r := strings.TrimSpace(*req.Room); r != "" {
			room = &r
		}
	}
	return &model.Schedule{
		UserID:    userID,
		Day:       day,
		Subject:   subject,
		StartTime: model.FormatClock(start),
		EndTime:   model.FormatClock(end),
		Room:      room,
	}, ""
}

// List 当前用户的课程表，按星期和开始时间排序
// GET /api/schedules
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	claims, _ := auth.ClaimsFrom(r.Context())

	schedules, err := h.store.ListSchedules(r.Context(), claims.UserID)
	if err != nil {
		h.logger.WithContext(r.Context()).WithError(err).Error("List schedules failed")
		writeError(w, http.StatusInternalServerError, "Gagal mengambil jadwal")
		return
	}
	views := make([]scheduleView, 0, len(schedules))
	for _, s := range schedules {
		views = append(views, toView(s))
	}
	writeData(w, http.StatusOK, views)
}

// Create 新增课程
// POST /api/schedules
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	claims, _ := auth.ClaimsFrom(r.Context())

	var req scheduleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Data tidak valid")
		return
	}
	sc, msg := req.toModel(claims.UserID)
	if msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	if err := h.store.CreateSchedule(r.Context(), sc); err != nil {
		h.logger.WithContext(r.Context()).WithError(err).Error("Create schedule failed")
		writeError(w, http.StatusInternalServerError, "Gagal membuat jadwal")
		return
	}
	writeData(w, http.StatusCreated, toView(sc))
}

// Update 整体替换课程，ID 在请求体中
// PUT /api/schedules
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	claims, _ := auth.ClaimsFrom(r.Context())

	var req scheduleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Data tidak valid")
		return
	}
	id, ok := parseID(string(req.ID))
	if !ok {
		writeError(w, http.StatusBadRequest, "ID diperlukan")
		return
	}
	sc, msg := req.toModel(claims.UserID)
	if msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}
	sc.ID = id

	log := h.logger.WithContext(r.Context())
	existing, err := h.store.GetSchedule(r.Context(), claims.UserID, id)
	if err != nil {
		log.WithError(err).Error("Get schedule failed", "schedule_id", id)
		writeError(w, http.StatusInternalServerError, "Gagal mengupdate jadwal")
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "Jadwal tidak ditemukan")
		return
	}

	if err := h.store.UpdateSchedule(r.Context(), sc); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Jadwal tidak ditemukan")
			return
		}
		log.WithError(err).Error("Update schedule failed", "schedule_id", id)
		writeError(w, http.StatusInternalServerError, "Gagal mengupdate jadwal")
		return
	}
	writeData(w, http.StatusOK, toView(sc))
}

// Delete 删除课程，ID 在查询参数中
// DELETE /api/schedules?id=
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	claims, _ := auth.ClaimsFrom(r.Context())
	id, ok := parseID(r.URL.Query().Get("id"))
	if !ok {
		writeError(w, http.StatusBadRequest, "ID diperlukan")
		return
	}

	if err := h.store.DeleteSchedule(r.Context(), claims.UserID, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Jadwal tidak ditemukan")
			return
		}
		h.logger.WithContext(r.Context()).WithError(err).Error("Delete schedule failed", "schedule_id", id)
		writeError(w, http.StatusInternalServerError, "Gagal menghapus jadwal")
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Message: "Schedule deleted"})
}
