package provider

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	json "github.com/goccy/go-json"
)

var (
	youtubeSearchEndpoint = "https://www.googleapis.com/youtube/v3/search"
	youtubeVideosEndpoint = "https://www.googleapis.com/youtube/v3/videos"
)

// YouTube searches videos and enriches them with per-video statistics via
// a second batched call.
type YouTube struct {
	base
}

// NewYouTube creates the YouTube client.
func NewYouTube(deps Deps) *YouTube {
	return &YouTube{base: newBase("YOUTUBE", KindVideo, false, deps)}
}

type youtubeSearchResponse struct {
	Items []struct {
		ID struct {
			VideoID string `json:"videoId"`
		} `json:"id"`
		Snippet struct {
			Title        string `json:"title"`
			Description  string `json:"description"`
			ChannelTitle string `json:"channelTitle"`
			PublishedAt  string `json:"publishedAt"`
		} `json:"snippet"`
	} `json:"items"`
}

type youtubeVideosResponse struct {
	Items []struct {
		ID         string `json:"id"`
		Statistics struct {
			ViewCount    string `json:"viewCount"`
			LikeCount    string `json:"likeCount"`
			CommentCount string `json:"commentCount"`
		} `json:"statistics"`
	} `json:"items"`
}

// Search implements Searcher.
func (y *YouTube) Search(ctx context.Context, query string, limits Limits) Response {
	max := limits.MaxResults
	if max <= 0 || max > 25 {
		max = 25
	}

	resp, err := y.call(ctx, func(secret string) (*restyResponse, error) {
		return y.http.R().
			SetContext(ctx).
			SetQueryParams(map[string]string{
				"part":              "snippet,id",
				"q":                 query,
				"key":               secret,
				"maxResults":        strconv.Itoa(max),
				"order":             "viewCount",
				"type":              "video",
				"regionCode":        "BR",
				"relevanceLanguage": "pt",
				"publishedAfter":    time.Now().AddDate(-1, 0, 0).Format("2006-01-02T15:04:05Z"),
			}).
			Get(youtubeSearchEndpoint)
	})
	if err != nil {
		return y.softFail(err)
	}

	var search youtubeSearchResponse
	if err := json.Unmarshal(resp.Body(), &search); err != nil {
		return y.softFail(err)
	}

	ids := make([]string, 0, len(search.Items))
	for _, item := range search.Items {
		if item.ID.VideoID != "" {
			ids = append(ids, item.ID.VideoID)
		}
	}
	stats := y.fetchStats(ctx, ids)

	results := make([]SearchResult, 0, len(search.Items))
	for _, item := range search.Items {
		id := item.ID.VideoID
		if id == "" {
			continue
		}
		s := stats[id]
		results = append(results, SearchResult{
			Title:       item.Snippet.Title,
			URL:         "https://www.youtube.com/watch?v=" + id,
			Snippet:     item.Snippet.Description,
			Source:      y.name,
			Relevance:   0.85,
			PublishedAt: parseDate(item.Snippet.PublishedAt),
			Social: &SocialStats{
				Platform: "youtube",
				Views:    s.views,
				Likes:    s.likes,
				Comments: s.comments,
				Author:   item.Snippet.ChannelTitle,
			},
		})
	}
	return Success(y.name, results)
}

type videoStats struct {
	views, likes, comments int64
}

// fetchStats batches one statistics call for all video ids. Statistics are
// best-effort: a failed batch leaves zeros.
func (y *YouTube) fetchStats(ctx context.Context, ids []string) map[string]videoStats {
	out := make(map[string]videoStats, len(ids))
	if len(ids) == 0 {
		return out
	}

	resp, err := y.call(ctx, func(secret string) (*restyResponse, error) {
		return y.http.R().
			SetContext(ctx).
			SetQueryParams(map[string]string{
				"part": "statistics",
				"id":   strings.Join(ids, ","),
				"key":  secret,
			}).
			Get(youtubeVideosEndpoint)
	})
	if err != nil {
		y.logger.Warn().Err(err).Msg("video statistics unavailable")
		return out
	}

	var videos youtubeVideosResponse
	if err := json.Unmarshal(resp.Body(), &videos); err != nil {
		return out
	}
	for _, item := range videos.Items {
		out[item.ID] = videoStats{
			views:    parseCount(item.Statistics.ViewCount),
			likes:    parseCount(item.Statistics.LikeCount),
			comments: parseCount(item.Statistics.CommentCount),
		}
	}
	return out
}

// parseCount parses provider counters defensively; non-numeric input is 0.
func parseCount(s string) int64 {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0
	}
	return n
}

var youtubeIDRe = regexp.MustCompile(`(?:youtube\.com/(?:watch\?v=|shorts/)|youtu\.be/)([A-Za-z0-9_-]{6,})`)

// VideoID pulls the video id out of a YouTube URL.
func VideoID(rawURL string) (string, bool) {
	m := youtubeIDRe.FindStringSubmatch(rawURL)
	if len(m) != 2 {
		return "", false
	}
	return m[1], true
}

// ThumbnailURLs derives the thumbnail ladder for a video URL, highest
// resolution first.
func ThumbnailURLs(rawURL string) []string {
	id, ok := VideoID(rawURL)
	if !ok {
		return nil
	}
	variants := []string{"maxresdefault", "hqdefault", "mqdefault", "default"}
	out := make([]string, 0, len(variants))
	for _, v := range variants {
		out = append(out, fmt.Sprintf("https://img.youtube.com/vi/%s/%s.jpg", id, v))
	}
	return out
}
