package capture

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
	_ "golang.org/x/image/webp"
)

// MinImageBytes is the default floor below which a download is rejected.
const MinImageBytes = 10 * 1024

// maxImageBytes is the size ceiling; larger payloads are rejected. The
// check runs after the whole body has been read into memory.
const maxImageBytes = 25 * 1024 * 1024

// ImageRequest is one image queued for download.
type ImageRequest struct {
	ImageURL string
	PostURL  string
	Platform string
	Title    string
}

// LocalImage is the per-download record.
type LocalImage struct {
	ImageURL      string    `json:"image_url"`
	PostURL       string    `json:"post_url,omitempty"`
	Platform      string    `json:"platform,omitempty"`
	Title         string    `json:"title,omitempty"`
	LocalPath     string    `json:"local_path"`
	FileSizeBytes int64     `json:"file_size_bytes"`
	ContentType   string    `json:"content_type"`
	DownloadedAt  time.Time `json:"downloaded_at"`
}

// DownloaderConfig holds image-download configuration.
type DownloaderConfig struct {
	// ImagesRoot is the base directory; files land under
	// {ImagesRoot}/{sessionID}/.
	ImagesRoot string

	// MinBytes rejects thumbnails and tracking pixels. Default: MinImageBytes.
	MinBytes int64

	// Delay between downloads. Default: 500ms.
	Delay time.Duration

	HTTP   *resty.Client
	Logger zerolog.Logger
}

// ImageDownloader saves viral images to disk with size and MIME checks.
type ImageDownloader struct {
	config DownloaderConfig
	http   *resty.Client
	logger zerolog.Logger
}

// NewImageDownloader creates an ImageDownloader.
func NewImageDownloader(cfg DownloaderConfig) *ImageDownloader {
	if cfg.MinBytes <= 0 {
		cfg.MinBytes = MinImageBytes
	}
	if cfg.Delay <= 0 {
		cfg.Delay = 500 * time.Millisecond
	}
	httpc := cfg.HTTP
	if httpc == nil {
		httpc = resty.New().SetTimeout(20 * time.Second)
	}
	return &ImageDownloader{
		config: cfg,
		http:   httpc,
		logger: cfg.Logger.With().Str("component", "capture.images").Logger(),
	}
}

var imageURLRe = regexp.MustCompile(`(?i)(\.(jpe?g|png|gif|webp)(\?.*)?$|/media/|/thumbnail|img\.youtube\.com|cdninstagram|fbcdn)`)

// looksLikeImageURL is the cheap pre-flight check before any request.
func looksLikeImageURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return false
	}
	return imageURLRe.MatchString(raw)
}

// Download fetches every image sequentially with the configured
// inter-download delay. Failures are logged and skipped.
func (d *ImageDownloader) Download(ctx context.Context, images []ImageRequest, sessionID string) []LocalImage {
	if len(images) == 0 {
		return nil
	}
	dir := filepath.Join(d.config.ImagesRoot, sessionID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		d.logger.Error().Err(err).Str("dir", dir).Msg("cannot create images directory")
		return nil
	}

	var out []LocalImage
	for i, req := range images {
		if i > 0 {
			select {
			case <-ctx.Done():
				return out
			case <-time.After(d.config.Delay):
			}
		}
		img, err := d.downloadOne(ctx, req, dir, i+1)
		if err != nil {
			d.logger.Warn().Str("url", req.ImageURL).Err(err).Msg("image download failed, skipping")
			continue
		}
		out = append(out, *img)
	}
	return out
}

func (d *ImageDownloader) downloadOne(ctx context.Context, req ImageRequest, dir string, index int) (*LocalImage, error) {
	if !looksLikeImageURL(req.ImageURL) {
		return nil, fmt.Errorf("not an image URL: %s", req.ImageURL)
	}

	resp, err := d.http.R().
		SetContext(ctx).
		SetHeader("User-Agent", desktopUserAgent).
		Get(req.ImageURL)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("status %d", resp.StatusCode())
	}

	body := resp.Body()
	if int64(len(body)) < d.config.MinBytes {
		return nil, fmt.Errorf("too small: %d bytes", len(body))
	}
	if int64(len(body)) > maxImageBytes {
		return nil, fmt.Errorf("too large: %d bytes", len(body))
	}

	contentType := resp.Header().Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		return nil, fmt.Errorf("not an image: %s", contentType)
	}
	// Content-Type can lie; a decode check settles it.
	if _, _, err := image.DecodeConfig(bytes.NewReader(body)); err != nil {
		return nil, fmt.Errorf("payload does not decode as image: %w", err)
	}

	name := fmt.Sprintf("%03d_%s%s", index, SafeFilename(req.Title), extensionFor(req.ImageURL))
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, body, 0644); err != nil {
		return nil, fmt.Errorf("failed to save image: %w", err)
	}

	return &LocalImage{
		ImageURL:      req.ImageURL,
		PostURL:       req.PostURL,
		Platform:      req.Platform,
		Title:         req.Title,
		LocalPath:     path,
		FileSizeBytes: int64(len(body)),
		ContentType:   contentType,
		DownloadedAt:  time.Now().UTC(),
	}, nil
}

var unsafeFilenameRe = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

// SafeFilename flattens a title into a filesystem-safe slug.
func SafeFilename(title string) string {
	s := unsafeFilenameRe.ReplaceAllString(title, "_")
	s = strings.Trim(s, "_")
	if len(s) > 50 {
		s = s[:50]
	}
	if s == "" {
		s = "image"
	}
	return strings.ToLower(s)
}

func extensionFor(rawURL string) string {
	path := rawURL
	if u, err := url.Parse(rawURL); err == nil {
		path = u.Path
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return ".png"
	case ".gif":
		return ".gif"
	case ".webp":
		return ".webp"
	case ".jpg", ".jpeg":
		return ".jpg"
	default:
		return ".jpg"
	}
}
