package objstore

import (
	"errors"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Danin2/Manajemen-Tugas/internal/config"
	"github.com/Danin2/Manajemen-Tugas/pkg/logging"
)

func TestNewClient_Validation(t *testing.T) {
	_, err := NewClient(config.MinIOConfig{}, logging.Discard())
	assert.Error(t, err)

	_, err = NewClient(config.MinIOConfig{Endpoint: "localhost:9000"}, logging.Discard())
	assert.Error(t, err)

	c, err := NewClient(config.MinIOConfig{Endpoint: "localhost:9000", AccessKey: "k", SecretKey: "s"}, logging.Discard())
	require.NoError(t, err)
	assert.Equal(t, DefaultBucket, c.Bucket())

	c, err = NewClient(config.MinIOConfig{Endpoint: "localhost:9000", AccessKey: "k", SecretKey: "s", Bucket: "avatars"}, logging.Discard())
	require.NoError(t, err)
	assert.Equal(t, "avatars", c.Bucket())
}

func TestAvatarKey(t *testing.T) {
	assert.Equal(t, "avatars/7", AvatarKey(7))
	assert.Equal(t, "avatars/1234567890123", AvatarKey(1234567890123))
}

func TestIsNoSuchKey(t *testing.T) {
	assert.True(t, isNoSuchKey(minio.ErrorResponse{Code: "NoSuchKey"}))
	assert.True(t, isNoSuchKey(minio.ErrorResponse{Code: "NoSuchBucket"}))
	assert.False(t, isNoSuchKey(minio.ErrorResponse{Code: "AccessDenied"}))
	assert.False(t, isNoSuchKey(errors.New("dial tcp: refused")))
}
