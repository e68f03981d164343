// AngelaMos | 2026
// service.go

package upload

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/carterperez-dev/copystudio/internal/core"
)

const keyTokenBytes = 8

type Service struct {
	store  ObjectStore
	repo   Repository
	now    func() time.Time
	logger *slog.Logger
}

func NewService(store ObjectStore, repo Repository) *Service {
	return &Service{
		store:  store,
		repo:   repo,
		now:    time.Now,
		logger: slog.Default(),
	}
}

// ValidateUpload rejects a declared upload before any storage call is made.
func ValidateUpload(contentType string, size int64) error {
	if size < 1 || size > MaxUploadBytes {
		return fmt.Errorf("size must be between 1 and %d bytes: %w", MaxUploadBytes, ErrInvalidUpload)
	}
	if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(contentType)), "image/") {
		return fmt.Errorf("content type must be an image: %w", ErrInvalidUpload)
	}
	return nil
}

// RequestUploadSlot names the object server-side so the caller's filename
// never reaches the storage path except for a sanitised extension.
func (s *Service) RequestUploadSlot(
	ctx context.Context,
	userID, filename, contentType string,
	size int64,
) (*Slot, error) {
	if userID == "" {
		return nil, fmt.Errorf("request upload slot: %w", core.ErrUnauthorized)
	}
	if err := ValidateUpload(contentType, size); err != nil {
		return nil, err
	}

	token, err := core.GenerateSecureToken(keyTokenBytes)
	if err != nil {
		return nil, fmt.Errorf("request upload slot: %w", err)
	}

	key := fmt.Sprintf("%s/%d-%s.%s",
		userID,
		s.now().UnixMilli(),
		token,
		sanitizeExtension(filename),
	)

	signed, err := s.store.SignedUploadURL(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("request upload slot: %w", err)
	}

	return &Slot{
		UploadURL: signed,
		FileKey:   key,
		PublicURL: s.store.PublicURL(key),
	}, nil
}

// FinalizeUpload records metadata for an object the caller claims to have
// written. Object existence is not verified.
func (s *Service) FinalizeUpload(
	ctx context.Context,
	userID, fileKey, contentType string,
	size int64,
) (*Upload, string, error) {
	if userID == "" {
		return nil, "", fmt.Errorf("finalize upload: %w", core.ErrUnauthorized)
	}
	if !OwnsKey(userID, fileKey) {
		return nil, "", fmt.Errorf("finalize upload: key outside caller prefix: %w", core.ErrForbidden)
	}
	if err := ValidateUpload(contentType, size); err != nil {
		return nil, "", err
	}

	u := &Upload{
		UserID:      userID,
		FileKey:     fileKey,
		ContentType: contentType,
		SizeBytes:   size,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, "", err
	}

	s.logger.Info("screenshot upload recorded",
		"user_id", userID,
		"file_key", fileKey,
		"size_bytes", size,
	)

	return u, s.store.PublicURL(fileKey), nil
}

// OwnsKey reports whether key lives directly under the user's prefix.
func OwnsKey(userID, key string) bool {
	if userID == "" || strings.Contains(key, "..") {
		return false
	}
	rest, ok := strings.CutPrefix(key, userID+"/")
	return ok && rest != "" && !strings.Contains(rest, "/")
}

func sanitizeExtension(filename string) string {
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(filename), "."))
	if ext == "" || len(ext) > 5 {
		return DefaultExtension
	}
	for _, r := range ext {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return DefaultExtension
		}
	}
	return ext
}
