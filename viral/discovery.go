package viral

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/zaircost/garimpo/provider"
)

// DefaultPlatforms is the platform set searched when the caller does not
// narrow it.
var DefaultPlatforms = []string{"instagram", "facebook", "youtube", "tiktok", "linkedin"}

var platformHosts = map[string]string{
	"instagram": "instagram.com",
	"facebook":  "facebook.com",
	"youtube":   "youtube.com",
	"tiktok":    "tiktok.com",
	"linkedin":  "linkedin.com",
}

// FindResult is the outcome of one discovery pass.
type FindResult struct {
	Posts  []Post  `json:"posts"`
	Images []Image `json:"images"`

	// Failures maps platform to the reason it contributed nothing.
	Failures map[string]string `json:"failures,omitempty"`
}

// DiscoveryConfig holds discovery configuration.
type DiscoveryConfig struct {
	Registry *provider.Registry
	Tools    *ToolClient

	// MaxImagesPerPlatform caps extraction per platform. Default: 5.
	MaxImagesPerPlatform int

	Logger zerolog.Logger
}

// Discovery finds viral posts per platform: provider search for candidate
// post URLs, tool-chain extraction, then scoring and indicator tagging.
type Discovery struct {
	registry       *provider.Registry
	tools          *ToolClient
	maxPerPlatform int
	logger         zerolog.Logger
}

// NewDiscovery creates a Discovery.
func NewDiscovery(cfg DiscoveryConfig) *Discovery {
	max := cfg.MaxImagesPerPlatform
	if max <= 0 {
		max = 5
	}
	return &Discovery{
		registry:       cfg.Registry,
		tools:          cfg.Tools,
		maxPerPlatform: max,
		logger:         cfg.Logger.With().Str("component", "viral.discovery").Logger(),
	}
}

// Find runs the per-platform discovery concurrently and merges results.
func (d *Discovery) Find(ctx context.Context, query string, platforms []string) *FindResult {
	if len(platforms) == 0 {
		platforms = DefaultPlatforms
	}

	result := &FindResult{Failures: make(map[string]string)}
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, platform := range platforms {
		wg.Add(1)
		go func(platform string) {
			defer wg.Done()
			posts, images, err := d.findPlatform(ctx, query, platform)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Failures[platform] = err.Error()
				return
			}
			result.Posts = append(result.Posts, posts...)
			result.Images = append(result.Images, images...)
		}(platform)
	}
	wg.Wait()

	result.Posts = ScoreAll(result.Posts)
	return result
}

func (d *Discovery) findPlatform(ctx context.Context, query, platform string) ([]Post, []Image, error) {
	urls := d.searchPostURLs(ctx, query, platform)
	if len(urls) == 0 {
		return nil, nil, fmt.Errorf("empty_response")
	}

	var posts []Post
	var images []Image
	for _, postURL := range urls {
		if len(images) >= d.maxPerPlatform {
			break
		}
		img, ok := d.tools.ExtractPost(ctx, postURL, platform, query)
		if !ok {
			continue
		}
		images = append(images, *img)
		posts = append(posts, Post{
			Platform:    platform,
			URL:         postURL,
			Title:       img.Title,
			Description: img.Description,
			Author:      img.Author,
			Metrics: Metrics{
				Platform: platform,
				Views:    img.Views,
				Likes:    img.Likes,
				Comments: img.Comments,
				Shares:   img.Shares,
			},
			Hashtags:   img.Hashtags,
			IsEstimate: img.IsEstimate,
			Indicators: img.Indicators,
		})
	}
	if len(posts) == 0 {
		return nil, nil, fmt.Errorf("no extractable posts")
	}
	return posts, images, nil
}

// searchPostURLs collects candidate post URLs for a platform. YouTube
// goes through its own provider; other platforms use site-scoped queries
// on the web providers in priority order.
func (d *Discovery) searchPostURLs(ctx context.Context, query, platform string) []string {
	var urls []string
	seen := make(map[string]struct{})
	push := func(raw string) {
		if !IsPlatformURL(platform, raw) {
			return
		}
		if _, dup := seen[raw]; dup {
			return
		}
		seen[raw] = struct{}{}
		urls = append(urls, raw)
	}

	if platform == "youtube" {
		for _, s := range d.registry.ByKind(provider.KindVideo) {
			resp := s.Search(ctx, query, provider.Limits{MaxResults: d.maxPerPlatform * 2})
			if !resp.OK() {
				continue
			}
			for _, r := range resp.Results {
				push(r.URL)
			}
		}
		return urls
	}

	host := platformHosts[platform]
	siteQuery := fmt.Sprintf("site:%s %s -login -signup", host, query)
	for _, s := range d.registry.ByKind(provider.KindWeb) {
		resp := s.Search(ctx, siteQuery, provider.Limits{MaxResults: d.maxPerPlatform * 3})
		if !resp.OK() {
			continue
		}
		for _, r := range resp.Results {
			push(r.URL)
		}
		if len(urls) >= d.maxPerPlatform*2 {
			break
		}
	}
	return urls
}
