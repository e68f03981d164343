// AngelaMos | 2026
// storage.go

package upload

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/carterperez-dev/copystudio/internal/config"
	"github.com/carterperez-dev/copystudio/internal/core"
)

const maxStorageResponse = 64 * 1024

// ObjectStore issues write-once upload locations and derives public read URLs.
type ObjectStore interface {
	SignedUploadURL(ctx context.Context, key string) (string, error)
	PublicURL(key string) string
}

// SupabaseStore talks to the Supabase Storage REST API with the service key.
type SupabaseStore struct {
	baseURL    string
	serviceKey string
	bucket     string
	client     *http.Client
}

func NewSupabaseStore(cfg config.StorageConfig) *SupabaseStore {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &SupabaseStore{
		baseURL:    strings.TrimRight(cfg.URL, "/") + "/storage/v1",
		serviceKey: cfg.ServiceKey,
		bucket:     cfg.Bucket,
		client:     &http.Client{Timeout: timeout},
	}
}

func (s *SupabaseStore) SignedUploadURL(ctx context.Context, key string) (string, error) {
	endpoint := fmt.Sprintf("%s/object/upload/sign/%s/%s", s.baseURL, s.bucket, escapeKey(key))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader([]byte("{}")))
	if err != nil {
		return "", fmt.Errorf("build sign request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.serviceKey)
	req.Header.Set("apikey", s.serviceKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("sign upload url: %w: %w", core.ErrStorage, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxStorageResponse))
	if err != nil {
		return "", fmt.Errorf("read sign response: %w: %w", core.ErrStorage, err)
	}

	if resp.StatusCode != http.StatusOK {
		msg := gjson.GetBytes(body, "message").String()
		if msg == "" {
			msg = gjson.GetBytes(body, "error").String()
		}
		return "", fmt.Errorf("sign upload url: status %d %s: %w", resp.StatusCode, msg, core.ErrStorage)
	}

	signed := gjson.GetBytes(body, "url").String()
	if signed == "" {
		return "", fmt.Errorf("sign upload url: empty url: %w", core.ErrStorage)
	}

	return s.baseURL + signed, nil
}

func (s *SupabaseStore) PublicURL(key string) string {
	return fmt.Sprintf("%s/object/public/%s/%s", s.baseURL, s.bucket, escapeKey(key))
}

func escapeKey(key string) string {
	parts := strings.Split(key, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}
