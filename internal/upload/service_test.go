// AngelaMos | 2026
// service_test.go

package upload

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/copystudio/internal/core"
)

type fakeStore struct {
	signErr error
	signed  []string
}

func (f *fakeStore) SignedUploadURL(_ context.Context, key string) (string, error) {
	if f.signErr != nil {
		return "", f.signErr
	}
	f.signed = append(f.signed, key)
	return "https://storage.test/sign/" + key + "?token=abc", nil
}

func (f *fakeStore) PublicURL(key string) string {
	return "https://storage.test/public/" + key
}

type fakeRepo struct {
	created []*Upload
	err     error
}

func (f *fakeRepo) Create(_ context.Context, u *Upload) error {
	if f.err != nil {
		return f.err
	}
	u.ID = fmt.Sprintf("upload-%d", len(f.created)+1)
	f.created = append(f.created, u)
	return nil
}

func newTestService() (*Service, *fakeStore, *fakeRepo) {
	store := &fakeStore{}
	repo := &fakeRepo{}
	svc := NewService(store, repo)
	svc.now = func() time.Time { return time.UnixMilli(1700000000000) }
	return svc, store, repo
}

func TestValidateUpload(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		size        int64
		wantErr     bool
	}{
		{"png", "image/png", 1024, false},
		{"upper case", "IMAGE/JPEG", 1024, false},
		{"exact limit", "image/webp", MaxUploadBytes, false},
		{"too large", "image/png", MaxUploadBytes + 1, true},
		{"empty", "image/png", 0, true},
		{"pdf", "application/pdf", 1024, true},
		{"blank type", "", 1024, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateUpload(tt.contentType, tt.size)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, IsInvalidUpload(err))
				assert.ErrorIs(t, err, core.ErrInvalidInput)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestRequestUploadSlot_DerivesKeyServerSide(t *testing.T) {
	svc, store, _ := newTestService()

	slot, err := svc.RequestUploadSlot(context.Background(), "user-1", "../../etc/passwd.JPG", "image/jpeg", 2048)
	require.NoError(t, err)

	assert.Regexp(t, regexp.MustCompile(`^user-1/1700000000000-[A-Za-z0-9_-]{11}\.jpg$`), slot.FileKey)
	assert.Equal(t, []string{slot.FileKey}, store.signed)
	assert.Equal(t, "https://storage.test/public/"+slot.FileKey, slot.PublicURL)
	assert.Contains(t, slot.UploadURL, slot.FileKey)
}

func TestRequestUploadSlot_RejectsBeforeNetwork(t *testing.T) {
	svc, store, _ := newTestService()

	_, err := svc.RequestUploadSlot(context.Background(), "user-1", "big.png", "image/png", MaxUploadBytes+1)
	require.Error(t, err)
	assert.True(t, IsInvalidUpload(err))
	assert.Empty(t, store.signed)
}

func TestRequestUploadSlot_StoreFailure(t *testing.T) {
	svc, store, _ := newTestService()
	store.signErr = fmt.Errorf("sign: %w", core.ErrStorage)

	_, err := svc.RequestUploadSlot(context.Background(), "user-1", "a.png", "image/png", 10)
	assert.ErrorIs(t, err, core.ErrStorage)
}

func TestRequestUploadSlot_RequiresUser(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.RequestUploadSlot(context.Background(), "", "a.png", "image/png", 10)
	assert.ErrorIs(t, err, core.ErrUnauthorized)
}

func TestFinalizeUpload(t *testing.T) {
	svc, _, repo := newTestService()

	u, publicURL, err := svc.FinalizeUpload(context.Background(), "user-1", "user-1/1700000000000-abc.png", "image/png", 2048)
	require.NoError(t, err)
	require.Len(t, repo.created, 1)
	assert.Equal(t, "user-1", u.UserID)
	assert.Equal(t, "https://storage.test/public/user-1/1700000000000-abc.png", publicURL)
}

func TestFinalizeUpload_RejectsForeignKey(t *testing.T) {
	svc, _, repo := newTestService()

	for _, key := range []string{
		"user-2/1700000000000-abc.png",
		"user-1/../user-2/x.png",
		"user-1/nested/x.png",
		"user-10/x.png",
	} {
		_, _, err := svc.FinalizeUpload(context.Background(), "user-1", key, "image/png", 2048)
		assert.ErrorIs(t, err, core.ErrForbidden, key)
	}
	assert.Empty(t, repo.created)
}

func TestFinalizeUpload_RepositoryError(t *testing.T) {
	svc, _, repo := newTestService()
	repo.err = errors.New("connection reset")

	_, _, err := svc.FinalizeUpload(context.Background(), "user-1", "user-1/x.png", "image/png", 10)
	assert.Error(t, err)
}

func TestSanitizeExtension(t *testing.T) {
	assert.Equal(t, "png", sanitizeExtension("noext"))
	assert.Equal(t, "webp", sanitizeExtension("shot.WEBP"))
	assert.Equal(t, "png", sanitizeExtension("shot.p?g"))
	assert.Equal(t, "png", sanitizeExtension("shot.toolongext"))
}
