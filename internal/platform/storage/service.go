package storage

import (
	"errors"
	"mime/multipart"
	"path/filepath"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/storage/s3/v2"
	"github.com/google/uuid"

	"fintrack/internal/config"
	"fintrack/pkg/utils"
)

var ErrNotFound = errors.New("object not found")

var allowedExtensions = []string{"jpg", "jpeg", "png", "pdf"}

// ReceiptStore keeps transaction receipts in any fiber storage backend.
type ReceiptStore struct {
	storage fiber.Storage
}

func NewReceiptStore(storage fiber.Storage) *ReceiptStore {
	return &ReceiptStore{storage: storage}
}

// NewS3 returns the S3 backend, or nil when no bucket is configured.
func NewS3(cfg *config.Config) fiber.Storage {
	if cfg.S3Bucket == "" {
		return nil
	}
	return s3.New(s3.Config{
		Bucket:   cfg.S3Bucket,
		Endpoint: cfg.S3Endpoint,
		Region:   cfg.S3Region,
		Reset:    false,
		Credentials: s3.Credentials{
			AccessKey:       cfg.S3AccessKey,
			SecretAccessKey: cfg.S3SecretKey,
		},
	})
}

// Extension returns the lower case extension of filename without the dot.
func Extension(filename string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
}

func (s *ReceiptStore) IsFileExtensionAllowed(filename string) bool {
	ext := Extension(filename)
	for _, allowed := range allowedExtensions {
		if ext == allowed {
			return true
		}
	}
	return false
}

// GenerateKeyName returns a fresh object key under the user's prefix.
func (s *ReceiptStore) GenerateKeyName(userID uuid.UUID, filename string) string {
	return "receipts/" + userID.String() + "/" + strings.ToLower(utils.GenerateRandomString(16)) + "." + Extension(filename)
}

func (s *ReceiptStore) SaveFile(c *fiber.Ctx, file *multipart.FileHeader, key string) error {
	return c.SaveFileToStorage(file, key, s.storage)
}

func (s *ReceiptStore) Get(key string) ([]byte, error) {
	data, err := s.storage.Get(key)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, ErrNotFound
	}
	return data, nil
}

func (s *ReceiptStore) Delete(key string) error {
	return s.storage.Delete(key)
}
