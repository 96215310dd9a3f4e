package profile

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Danin2/Manajemen-Tugas/internal/apiserver/auth"
	objstore "github.com/Danin2/Manajemen-Tugas/internal/shared/minio"
	"github.com/Danin2/Manajemen-Tugas/internal/shared/model"
	"github.com/Danin2/Manajemen-Tugas/internal/shared/storage"
	"github.com/Danin2/Manajemen-Tugas/internal/shared/storage/dbutil"
	"github.com/Danin2/Manajemen-Tugas/pkg/logging"
)

// memAvatars 进程内头像存储
type memAvatars struct {
	mu      sync.Mutex
	objects map[int64][]byte
	types   map[int64]string
	failPut bool
}

func newMemAvatars() *memAvatars {
	return &memAvatars{objects: map[int64][]byte{}, types: map[int64]string{}}
}

func (m *memAvatars) PutAvatar(ctx context.Context, userID int64, r io.Reader, size int64, contentType string) error {
	if m.failPut {
		return errors.New("minio unavailable")
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[userID] = data
	m.types[userID] = contentType
	return nil
}

func (m *memAvatars) OpenAvatar(ctx context.Context, userID int64) (*objstore.Object, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[userID]
	if !ok {
		return nil, objstore.ErrNotFound
	}
	return &objstore.Object{
		Body:        io.NopCloser(bytes.NewReader(data)),
		ContentType: m.types[userID],
		Size:        int64(len(data)),
	}, nil
}

type testEnv struct {
	mux   *http.ServeMux
	codec *auth.Codec
	store storage.PersistentStore
}

func newTestEnv(t *testing.T, avatars objstore.AvatarStore) *testEnv {
	t.Helper()
	store, err := storage.Open(context.Background(), dbutil.DriverSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	codec := auth.NewCodec("profile-test-secret")
	mux := http.NewServeMux()
	NewHandler(store, avatars, codec, logging.Discard()).RegisterRoutes(mux)
	return &testEnv{mux: mux, codec: codec, store: store}
}

func (e *testEnv) newUser(t *testing.T, email, name string) (int64, string) {
	t.Helper()
	u := &model.User{Email: email, PasswordHash: "x", Role: model.UserRoleUser}
	require.NoError(t, e.store.CreateUser(context.Background(), u, &model.Profile{Name: name}))
	token, err := e.codec.Issue(auth.Claims{UserID: u.ID, Email: email, Name: name, Role: "user"})
	require.NoError(t, err)
	return u.ID, token
}

func (e *testEnv) serve(r *http.Request, token string) *httptest.ResponseRecorder {
	if token != "" {
		r.AddCookie(&http.Cookie{Name: auth.CookieName, Value: token})
	}
	rec := httptest.NewRecorder()
	e.mux.ServeHTTP(rec, r)
	return rec
}

func (e *testEnv) putJSON(t *testing.T, body string, token string) *httptest.ResponseRecorder {
	t.Helper()
	return e.serve(httptest.NewRequest(http.MethodPut, "/api/profile", bytes.NewBufferString(body)), token)
}

func uploadRequest(t *testing.T, field string, data []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, "avatar.bin")
	require.NoError(t, err)
	_, err = fw.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	r := httptest.NewRequest(http.MethodPost, "/api/profile/avatar", &buf)
	r.Header.Set("Content-Type", mw.FormDataContentType())
	return r
}

func pngBytes(n int) []byte {
	b := make([]byte, n)
	copy(b, "\x89PNG\r\n\x1a\n")
	return b
}

func jsonField(t *testing.T, rec *httptest.ResponseRecorder, key string) interface{} {
	t.Helper()
	m := map[string]interface{}{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &m))
	return m[key]
}

func TestProfile_RequireSession(t *testing.T) {
	env := newTestEnv(t, nil)
	rec := env.serve(httptest.NewRequest(http.MethodGet, "/api/profile", nil), "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Unauthorized", jsonField(t, rec, "error"))
}

func TestProfile_GetAndUpdate(t *testing.T) {
	env := newTestEnv(t, nil)
	id, token := env.newUser(t, "a@sekolah.id", "Ani")

	rec := env.serve(httptest.NewRequest(http.MethodGet, "/api/profile", nil), token)
	require.Equal(t, http.StatusOK, rec.Code)
	var got struct {
		Profile model.Profile `json:"profile"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, id, got.Profile.UserID)
	assert.Equal(t, "Ani", got.Profile.Name)

	rec = env.putJSON(t, `{"name": "  ", "bio": "x"}`, token)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Nama wajib diisi", jsonField(t, rec, "error"))

	rec = env.putJSON(t, `{"name": "Ani W", "bio": "Kelas X", "avatarUrl": "https://img.example/a.png"}`, token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Profil berhasil diperbarui", jsonField(t, rec, "message"))

	p, err := env.store.GetProfile(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "Ani W", p.Name)
	require.NotNil(t, p.Bio)
	assert.Equal(t, "Kelas X", *p.Bio)
	require.NotNil(t, p.AvatarURL)

	// 缺失字段不变，null 清空
	rec = env.putJSON(t, `{"name": "Ani", "bio": null}`, token)
	require.Equal(t, http.StatusOK, rec.Code)
	p, err = env.store.GetProfile(context.Background(), id)
	require.NoError(t, err)
	assert.Nil(t, p.Bio)
	require.NotNil(t, p.AvatarURL)
	assert.Equal(t, "https://img.example/a.png", *p.AvatarURL)
}

func TestAvatar_Unavailable(t *testing.T) {
	env := newTestEnv(t, nil)
	_, token := env.newUser(t, "a@sekolah.id", "Ani")

	rec := env.serve(uploadRequest(t, "avatar", pngBytes(64)), token)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = env.serve(httptest.NewRequest(http.MethodGet, "/api/profile/avatar/1", nil), token)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestAvatar_UploadAndDownload(t *testing.T) {
	avatars := newMemAvatars()
	env := newTestEnv(t, avatars)
	id, token := env.newUser(t, "a@sekolah.id", "Ani")
	_, other := env.newUser(t, "b@sekolah.id", "Budi")

	rec := env.serve(httptest.NewRequest(http.MethodGet, "/api/profile/avatar/1", nil), token)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	img := pngBytes(1024)
	rec = env.serve(uploadRequest(t, "avatar", img), token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "/api/profile/avatar/1", jsonField(t, rec, "avatarUrl"))
	assert.Equal(t, "image/png", avatars.types[id])

	p, err := env.store.GetProfile(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, p.AvatarURL)
	assert.Equal(t, "/api/profile/avatar/1", *p.AvatarURL)

	rec = env.serve(httptest.NewRequest(http.MethodGet, "/api/profile/avatar/1", nil), token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.Equal(t, img, rec.Body.Bytes())

	// 其他用户读不到，也无法判断头像是否存在
	rec = env.serve(httptest.NewRequest(http.MethodGet, "/api/profile/avatar/1", nil), other)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Avatar tidak ditemukan", jsonField(t, rec, "error"))
	rec = env.serve(httptest.NewRequest(http.MethodGet, "/api/profile/avatar/2", nil), token)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.serve(httptest.NewRequest(http.MethodGet, "/api/profile/avatar/abc", nil), token)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAvatar_Rejects(t *testing.T) {
	avatars := newMemAvatars()
	env := newTestEnv(t, avatars)
	_, token := env.newUser(t, "a@sekolah.id", "Ani")

	rec := env.serve(uploadRequest(t, "avatar", []byte("plain text, not an image")), token)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Format avatar tidak didukung", jsonField(t, rec, "error"))

	rec = env.serve(uploadRequest(t, "photo", pngBytes(64)), token)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "File avatar wajib diunggah", jsonField(t, rec, "error"))

	rec = env.serve(uploadRequest(t, "avatar", pngBytes(MaxAvatarBytes+1)), token)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)

	avatars.failPut = true
	rec = env.serve(uploadRequest(t, "avatar", pngBytes(64)), token)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Gagal mengunggah avatar", jsonField(t, rec, "error"))
}
