package media

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/cybersathi/internal/intake"
)

type mockS3Client struct {
	bucket, key, contentType string
	body                     []byte
	err                      error
}

func (m *mockS3Client) PutObject(_ context.Context, input *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.bucket, m.key = *input.Bucket, *input.Key
	if input.ContentType != nil {
		m.contentType = *input.ContentType
	}
	m.body, _ = io.ReadAll(input.Body)
	return &s3.PutObjectOutput{}, nil
}

type stubFetcher struct {
	data []byte
	mime string
	err  error
}

func (f *stubFetcher) Fetch(ctx context.Context, id string) ([]byte, string, error) {
	return f.data, f.mime, f.err
}

func TestLocalStore_Save(t *testing.T) {
	dir := t.TempDir()
	store := NewLocalStore(dir)

	path, err := store.Save(context.Background(), "complaints/2026/10/15/m1.jpg", []byte("img"), "image/jpeg")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "complaints", "2026", "10", "15", "m1.jpg"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "img", string(data))
}

func TestS3Store_Save(t *testing.T) {
	client := &mockS3Client{}
	store := NewS3Store(client, "cybersathi-evidence")

	uri, err := store.Save(context.Background(), "complaints/m1.pdf", []byte("%PDF"), "application/pdf")
	require.NoError(t, err)
	assert.Equal(t, "s3://cybersathi-evidence/complaints/m1.pdf", uri)
	assert.Equal(t, "cybersathi-evidence", client.bucket)
	assert.Equal(t, "application/pdf", client.contentType)
	assert.Equal(t, "%PDF", string(client.body))

	client.err = errors.New("access denied")
	_, err = store.Save(context.Background(), "k", nil, "")
	assert.ErrorContains(t, err, "media: s3 put k")
}

func TestDownloader_Download(t *testing.T) {
	client := &mockS3Client{}
	d := NewDownloader(&stubFetcher{data: []byte("jpeg"), mime: "image/jpeg"}, NewS3Store(client, "b"), nil)
	d.now = func() time.Time { return time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC) }

	loc, err := d.Download(context.Background(), intake.MediaRef{ID: "MEDIA_1"})
	require.NoError(t, err)
	assert.Equal(t, "s3://b/complaints/2026/10/15/MEDIA_1.jpg", loc)
}

func TestDownloader_FallsBackToRefMime(t *testing.T) {
	dir := t.TempDir()
	d := NewDownloader(&stubFetcher{data: []byte("%PDF")}, NewLocalStore(dir), nil)
	d.now = func() time.Time { return time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC) }

	loc, err := d.Download(context.Background(), intake.MediaRef{ID: "../../etc/passwd", MimeType: "application/pdf"})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "complaints", "2026", "01", "02", "etcpasswd.pdf"), loc)
}

func TestDownloader_Errors(t *testing.T) {
	d := NewDownloader(&stubFetcher{err: errors.New("graph 404")}, NewLocalStore(t.TempDir()), nil)
	_, err := d.Download(context.Background(), intake.MediaRef{ID: "m1"})
	assert.ErrorContains(t, err, "graph 404")

	_, err = d.Download(context.Background(), intake.MediaRef{ID: "///"})
	assert.Error(t, err)
}

func TestExtensionFor(t *testing.T) {
	assert.Equal(t, ".jpg", extensionFor("image/jpeg"))
	assert.Equal(t, ".png", extensionFor("image/png; charset=binary"))
	assert.Equal(t, ".bin", extensionFor("application/x-unknown-thing"))
	assert.Equal(t, ".bin", extensionFor(""))
}
