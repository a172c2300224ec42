package media

import (
	"context"
	"fmt"
	"mime"
	"path"
	"strings"
	"time"

	"github.com/wolfman30/cybersathi/internal/intake"
	"github.com/wolfman30/cybersathi/pkg/logging"
)

// Fetcher retrieves the raw bytes of a provider media id.
type Fetcher interface {
	Fetch(ctx context.Context, mediaID string) ([]byte, string, error)
}

var knownExtensions = map[string]string{
	"image/jpeg":      ".jpg",
	"image/png":       ".png",
	"image/webp":      ".webp",
	"application/pdf": ".pdf",
}

// Downloader fetches attachments and hands them to a Store. It satisfies
// intake.MediaDownloader.
type Downloader struct {
	fetcher Fetcher
	store   Store
	logger  *logging.Logger
	now     func() time.Time
}

// NewDownloader wires a downloader.
func NewDownloader(fetcher Fetcher, store Store, logger *logging.Logger) *Downloader {
	if fetcher == nil {
		panic("media: fetcher required")
	}
	if store == nil {
		panic("media: store required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Downloader{fetcher: fetcher, store: store, logger: logger.Component("media"), now: time.Now}
}

var _ intake.MediaDownloader = (*Downloader)(nil)

// Download fetches ref and stores it under complaints/YYYY/MM/DD/<id><ext>.
func (d *Downloader) Download(ctx context.Context, ref intake.MediaRef) (string, error) {
	id := sanitize(ref.ID)
	if id == "" {
		return "", fmt.Errorf("media: empty media id")
	}
	data, contentType, err := d.fetcher.Fetch(ctx, ref.ID)
	if err != nil {
		return "", fmt.Errorf("media: fetch %s: %w", ref.ID, err)
	}
	if contentType == "" {
		contentType = ref.MimeType
	}
	key := path.Join("complaints", d.now().UTC().Format("2006/01/02"), id+extensionFor(contentType))
	location, err := d.store.Save(ctx, key, data, contentType)
	if err != nil {
		return "", err
	}
	d.logger.Info("media stored", "media_id", ref.ID, "location", location, "bytes", len(data))
	return location, nil
}

func extensionFor(contentType string) string {
	base := strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0])
	if ext, ok := knownExtensions[base]; ok {
		return ext
	}
	if exts, err := mime.ExtensionsByType(base); err == nil && len(exts) > 0 {
		return exts[0]
	}
	return ".bin"
}

func sanitize(id string) string {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			return r
		default:
			return -1
		}
	}, id)
	return strings.Trim(cleaned, ".")
}
