// Package objstore 封装 MinIO 对象存储客户端（用户头像）
package objstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/Danin2/Manajemen-Tugas/internal/config"
	"github.com/Danin2/Manajemen-Tugas/pkg/logging"
)

// ErrNotFound 对象不存在
var ErrNotFound = errors.New("object not found")

// AvatarStore 头像存取接口
type AvatarStore interface {
	PutAvatar(ctx context.Context, userID int64, r io.Reader, size int64, contentType string) error
	OpenAvatar(ctx context.Context, userID int64) (*Object, error)
}

// Object 读取到的对象，调用方负责关闭 Body
type Object struct {
	Body        io.ReadCloser
	ContentType string
	Size        int64
	ModTime     time.Time
}

// Client MinIO 客户端封装
type Client struct {
	mc     *minio.Client
	bucket string
	logger *logging.Logger
}

var _ AvatarStore = (*Client)(nil)

// DefaultBucket 未配置 bucket 时使用
const DefaultBucket = "manajemen-tugas"

// NewClient 创建 MinIO 客户端
func NewClient(cfg config.MinIOConfig, logger *logging.Logger) (*Client, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("minio endpoint is required")
	}
	if cfg.AccessKey == "" || cfg.SecretKey == "" {
		return nil, fmt.Errorf("minio access_key and secret_key are required")
	}

	mc, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	bucket := cfg.Bucket
	if bucket == "" {
		bucket = DefaultBucket
	}
	return &Client{mc: mc, bucket: bucket, logger: logger}, nil
}

// Bucket 返回使用的 bucket 名称
func (c *Client) Bucket() string {
	return c.bucket
}

// EnsureBucket 确保 bucket 存在
func (c *Client) EnsureBucket(ctx context.Context) error {
	exists, err := c.mc.BucketExists(ctx, c.bucket)
	if err != nil {
		return fmt.Errorf("check bucket: %w", err)
	}
	if !exists {
		if err := c.mc.MakeBucket(ctx, c.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("create bucket: %w", err)
		}
		c.logger.Info("Bucket created", "bucket", c.bucket)
	}
	return nil
}

// AvatarKey 头像对象 key，每个用户只保留一张
func AvatarKey(userID int64) string {
	return "avatars/" + strconv.FormatInt(userID, 10)
}

// PutAvatar 上传头像（覆盖旧头像）
func (c *Client) PutAvatar(ctx context.Context, userID int64, r io.Reader, size int64, contentType string) error {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	key := AvatarKey(userID)
	_, err := c.mc.PutObject(ctx, c.bucket, key, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("upload %s: %w", key, err)
	}
	return nil
}

// OpenAvatar 读取头像，不存在时返回 ErrNotFound
func (c *Client) OpenAvatar(ctx context.Context, userID int64) (*Object, error) {
	key := AvatarKey(userID)
	obj, err := c.mc.GetObject(ctx, c.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", key, err)
	}
	// GetObject 不会立即返回错误，需要 Stat 确认对象存在
	info, err := obj.Stat()
	if err != nil {
		obj.Close()
		if isNoSuchKey(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("stat %s: %w", key, err)
	}
	return &Object{
		Body:        obj,
		ContentType: info.ContentType,
		Size:        info.Size,
		ModTime:     info.LastModified,
	}, nil
}

func isNoSuchKey(err error) bool {
	code := minio.ToErrorResponse(err).Code
	return code == "NoSuchKey" || code == "NoSuchBucket"
}
