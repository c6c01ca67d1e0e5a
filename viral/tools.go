package viral

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/zaircost/garimpo/provider"
)

// Image is the visual-evidence record built for one viral post.
type Image struct {
	ImageURL            string    `json:"image_url"`
	PostURL             string    `json:"post_url"`
	Platform            string    `json:"platform"`
	Title               string    `json:"title"`
	Description         string    `json:"description,omitempty"`
	EngagementScore     float64   `json:"engagement_score"`
	Views               int64     `json:"views_estimate"`
	Likes               int64     `json:"likes_estimate"`
	Comments            int64     `json:"comments_estimate"`
	Shares              int64     `json:"shares_estimate"`
	Author              string    `json:"author,omitempty"`
	AuthorFollowers     int64     `json:"author_followers,omitempty"`
	PostedAt            time.Time `json:"posted_at,omitzero"`
	Hashtags            []string  `json:"hashtags,omitempty"`
	ImageLocalPath      string    `json:"image_local_path,omitempty"`
	ScreenshotLocalPath string    `json:"screenshot_local_path,omitempty"`
	QualityScore        float64   `json:"quality_score"`
	Indicators          []string  `json:"viral_indicators,omitempty"`
	IsEstimate          bool      `json:"is_estimate,omitempty"`
}

// extractionTools are the per-platform download services tried in order.
// The first 2xx JSON answer carrying an image URL wins.
var extractionTools = map[string][]string{
	"instagram": {
		"https://sssinstagram.com/api/download",
		"https://instasave.website/api/download",
		"https://downloadgram.org/api/download",
	},
	"facebook": {
		"https://hitube.io/api/facebook",
		"https://fbdown.net/api/download",
	},
	"tiktok": {
		"https://tiktok.coderobo.org/api/download",
		"https://tikdown.org/api/download",
	},
	"linkedin": {
		"https://linkedindownloader.io/api/download",
	},
}

// Platform URL shapes accepted by discovery.
var platformURLPatterns = map[string][]*regexp.Regexp{
	"instagram": {
		regexp.MustCompile(`instagram\.com/p/`),
		regexp.MustCompile(`instagram\.com/reel/`),
		regexp.MustCompile(`instagram\.com/tv/`),
		regexp.MustCompile(`instagram\.com/stories/`),
	},
	"facebook": {
		regexp.MustCompile(`facebook\.com/[^/]+/posts/`),
		regexp.MustCompile(`facebook\.com/[^/]+/videos/`),
		regexp.MustCompile(`facebook\.com/photo`),
		regexp.MustCompile(`fb\.watch/`),
	},
	"youtube": {
		regexp.MustCompile(`youtube\.com/watch\?v=`),
		regexp.MustCompile(`youtube\.com/shorts/`),
		regexp.MustCompile(`youtu\.be/`),
	},
	"tiktok": {
		regexp.MustCompile(`tiktok\.com/@[^/]+/video/`),
	},
	"linkedin": {
		regexp.MustCompile(`linkedin\.com/posts/`),
	},
}

var instagramPostIDRe = regexp.MustCompile(`instagram\.com/(?:p|reel|tv)/([A-Za-z0-9_-]+)`)

// IsPlatformURL reports whether a URL looks like a content post of the
// given platform.
func IsPlatformURL(platform, rawURL string) bool {
	for _, re := range platformURLPatterns[platform] {
		if re.MatchString(rawURL) {
			return true
		}
	}
	return false
}

// DetectPlatform identifies the platform from a URL.
func DetectPlatform(rawURL string) string {
	lower := strings.ToLower(rawURL)
	switch {
	case strings.Contains(lower, "youtube.com"), strings.Contains(lower, "youtu.be"):
		return "youtube"
	case strings.Contains(lower, "instagram.com"):
		return "instagram"
	case strings.Contains(lower, "facebook.com"), strings.Contains(lower, "fb.watch"):
		return "facebook"
	case strings.Contains(lower, "tiktok.com"):
		return "tiktok"
	case strings.Contains(lower, "linkedin.com"):
		return "linkedin"
	case strings.Contains(lower, "twitter.com"), strings.Contains(lower, "x.com"):
		return "twitter"
	default:
		return ""
	}
}

// ToolClient calls the small third-party extraction services.
type ToolClient struct {
	http             *resty.Client
	disableFallbacks bool
	logger           zerolog.Logger

	// tools is overridable in tests.
	tools map[string][]string
}

// ToolClientConfig holds ToolClient configuration.
type ToolClientConfig struct {
	HTTP *resty.Client

	// DisableFallbacks suppresses estimated placeholder records; failed
	// extractions yield nothing instead.
	DisableFallbacks bool

	Logger zerolog.Logger
}

// NewToolClient creates the extraction-tool client.
func NewToolClient(cfg ToolClientConfig) *ToolClient {
	httpc := cfg.HTTP
	if httpc == nil {
		httpc = resty.New().SetTimeout(15 * time.Second)
	}
	return &ToolClient{
		http:             httpc,
		disableFallbacks: cfg.DisableFallbacks,
		logger:           cfg.Logger.With().Str("component", "viral.tools").Logger(),
		tools:            extractionTools,
	}
}

type toolResponse struct {
	ImageURL  string `json:"image_url"`
	Thumbnail string `json:"thumbnail"`
	Title     string `json:"title"`
	Caption   string `json:"caption"`
	Author    string `json:"author"`
	Views     int64  `json:"views"`
	Likes     int64  `json:"likes"`
	Comments  int64  `json:"comments"`
	Shares    int64  `json:"shares"`
}

// ExtractPost builds a viral-image record for a post URL by walking the
// platform's tool chain. YouTube is deterministic (thumbnail ladder).
// When every tool fails, a conservative estimated record is produced
// unless fallbacks are disabled.
func (t *ToolClient) ExtractPost(ctx context.Context, postURL, platform, query string) (*Image, bool) {
	if platform == "youtube" {
		return t.extractYouTube(postURL, query)
	}

	for _, tool := range t.tools[platform] {
		img, err := t.tryTool(ctx, tool, postURL, platform)
		if err != nil {
			t.logger.Debug().Str("tool", tool).Str("url", postURL).Err(err).Msg("extraction tool failed")
			continue
		}
		return img, true
	}

	if t.disableFallbacks {
		return nil, false
	}
	return t.fallback(postURL, platform, query), true
}

func (t *ToolClient) tryTool(ctx context.Context, tool, postURL, platform string) (*Image, error) {
	resp, err := t.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]string{"url": postURL}).
		Post(tool)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		return nil, fmt.Errorf("status %d", resp.StatusCode())
	}

	var out toolResponse
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return nil, err
	}
	imageURL := out.ImageURL
	if imageURL == "" {
		imageURL = out.Thumbnail
	}
	if imageURL == "" {
		return nil, fmt.Errorf("no image url in response")
	}

	title := out.Title
	if title == "" {
		title = out.Caption
	}
	metrics := Metrics{
		Platform: platform,
		Views:    out.Views,
		Likes:    out.Likes,
		Comments: out.Comments,
		Shares:   out.Shares,
	}
	return &Image{
		ImageURL:        imageURL,
		PostURL:         postURL,
		Platform:        platform,
		Title:           title,
		Description:     out.Caption,
		EngagementScore: Score(metrics),
		Views:           out.Views,
		Likes:           out.Likes,
		Comments:        out.Comments,
		Shares:          out.Shares,
		Author:          out.Author,
		Hashtags:        Hashtags(out.Caption),
		Indicators:      Indicators(out.Caption),
	}, nil
}

func (t *ToolClient) extractYouTube(postURL, query string) (*Image, bool) {
	thumbs := provider.ThumbnailURLs(postURL)
	if len(thumbs) == 0 {
		return nil, false
	}
	return &Image{
		ImageURL: thumbs[0],
		PostURL:  postURL,
		Platform: "youtube",
		Title:    fmt.Sprintf("Vídeo sobre %s", query),
	}, true
}

// fallback builds the conservative estimated record so downstream
// consumers still have a placeholder.
func (t *ToolClient) fallback(postURL, platform, query string) *Image {
	img := &Image{
		PostURL:    postURL,
		Platform:   platform,
		Title:      fmt.Sprintf("Post sobre %s", query),
		Likes:      500,
		Comments:   50,
		Shares:     25,
		IsEstimate: true,
	}
	if platform == "instagram" {
		if m := instagramPostIDRe.FindStringSubmatch(postURL); len(m) == 2 {
			img.ImageURL = fmt.Sprintf("https://www.instagram.com/p/%s/media/?size=l", m[1])
		}
	}
	img.EngagementScore = Score(Metrics{
		Platform: platform,
		Likes:    img.Likes,
		Comments: img.Comments,
		Shares:   img.Shares,
	})
	return img
}
