// internal/services/storage_service.go
package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/marketua/marketplace-backend/internal/config"
)

const (
	MaxImageSize = 10 * 1024 * 1024 // 10MB
	imagesFolder = "adverts"
)

var allowedImageExtensions = []string{".jpg", ".jpeg", ".png", ".gif", ".webp"}

// Upload is a single file received from a client.
type Upload struct {
	Filename string
	Size     int64
	Reader   io.Reader
}

// StorageService keeps image files either in S3 or under the local media root.
// Keys are relative paths such as "adverts/12/photo.png".
type StorageService struct {
	s3Client  *s3.S3
	bucket    string
	publicURL string
	mediaRoot string
	mediaURL  string
}

func NewStorageService(cfg *config.Config) (*StorageService, error) {
	s := &StorageService{
		bucket:    cfg.AWS.S3Bucket,
		mediaRoot: cfg.Media.Root,
		mediaURL:  strings.TrimRight(cfg.Media.URL, "/"),
	}

	if cfg.AWS.AccessKeyID == "" {
		// Local filesystem storage
		if err := os.MkdirAll(s.mediaRoot, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create media root: %w", err)
		}
		return s, nil
	}

	sess, err := session.NewSession(&aws.Config{
		Region: aws.String(cfg.AWS.Region),
		Credentials: credentials.NewStaticCredentials(
			cfg.AWS.AccessKeyID,
			cfg.AWS.SecretAccessKey,
			"",
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}

	s.s3Client = s3.New(sess)
	if cfg.AWS.CloudFrontURL != "" {
		s.publicURL = strings.TrimRight(cfg.AWS.CloudFrontURL, "/")
	} else {
		s.publicURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.AWS.S3Bucket, cfg.AWS.Region)
	}
	return s, nil
}

// NewLocalStorageService stores files under root and serves them from urlPrefix.
func NewLocalStorageService(root, urlPrefix string) (*StorageService, error) {
	cfg := &config.Config{Media: config.MediaConfig{Root: root, URL: urlPrefix}}
	return NewStorageService(cfg)
}

// CheckImage validates the name and size of an upload before anything is stored.
func CheckImage(filename string, size int64) error {
	if size > MaxImageSize {
		return fmt.Errorf("file size %d bytes exceeds maximum allowed size %d bytes", size, MaxImageSize)
	}
	ext := strings.ToLower(filepath.Ext(filename))
	for _, allowed := range allowedImageExtensions {
		if ext == allowed {
			return nil
		}
	}
	return fmt.Errorf("file type %q is not allowed", ext)
}

// ImageKey returns the storage key for an image of the given advert.
func ImageKey(advertID uint, filename string) string {
	return path.Join(imagesFolder, fmt.Sprint(advertID), sanitizeFilename(filename))
}

func sanitizeFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.Map(func(r rune) rune {
		switch {
		case r == ' ':
			return '_'
		case r < 0x20 || r == '/' || r == ':':
			return -1
		}
		return r
	}, name)
	if name == "" || name == "." {
		name = "image"
	}
	return name
}

// Save stores the upload under key with a random suffix so concurrent uploads
// of the same name never share a key. It returns the key actually used.
func (s *StorageService) Save(ctx context.Context, key string, upload Upload) (string, error) {
	data, err := io.ReadAll(upload.Reader)
	if err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}

	key = uniqueKey(key)
	if s.s3Client != nil {
		return key, s.uploadToS3(ctx, key, data)
	}
	return key, s.writeLocal(key, data)
}

func uniqueKey(key string) string {
	ext := path.Ext(key)
	return fmt.Sprintf("%s_%s%s", strings.TrimSuffix(key, ext), strings.ReplaceAll(uuid.NewString(), "-", ""), ext)
}

func (s *StorageService) uploadToS3(ctx context.Context, key string, data []byte) error {
	_, err := s.s3Client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentType:   aws.String(http.DetectContentType(data)),
		ContentLength: aws.Int64(int64(len(data))),
		ACL:           aws.String("public-read"),
	})
	if err != nil {
		return fmt.Errorf("failed to upload to S3: %w", err)
	}
	return nil
}

func (s *StorageService) writeLocal(key string, data []byte) error {
	full := s.localPath(key)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	// O_EXCL keeps an existing file from being overwritten.
	f, err := os.OpenFile(full, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("failed to write file: %w", err)
	}
	return f.Close()
}

func (s *StorageService) localPath(key string) string {
	return filepath.Join(s.mediaRoot, filepath.FromSlash(key))
}

// Delete removes the file at key. Missing files are not an error.
func (s *StorageService) Delete(ctx context.Context, key string) error {
	if s.s3Client == nil {
		if err := os.Remove(s.localPath(key)); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to delete file: %w", err)
		}
		return nil
	}

	_, err := s.s3Client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete file from S3: %w", err)
	}
	return nil
}

// DeleteAll removes every key, logging failures. It is used after the rows
// referencing the files are already gone.
func (s *StorageService) DeleteAll(ctx context.Context, keys []string) {
	for _, key := range keys {
		if err := s.Delete(ctx, key); err != nil {
			logrus.WithError(err).WithField("key", key).Warn("Failed to delete stored file")
		}
	}
}

// URL returns the public address of key.
func (s *StorageService) URL(key string) string {
	if s.s3Client != nil {
		return s.publicURL + "/" + key
	}
	return s.mediaURL + "/" + key
}

// LocalRoot is the directory served as media, empty when files live in S3.
func (s *StorageService) LocalRoot() string {
	if s.s3Client != nil {
		return ""
	}
	return s.mediaRoot
}
