package provider

import (
	"context"

	json "github.com/goccy/go-json"
)

const defaultSupadataEndpoint = "https://server.smithery.ai/@supadata-ai/mcp/mcp"

// Supadata is the multi-platform social aggregator client.
type Supadata struct {
	base
	endpoint string
}

// NewSupadata creates the client. endpoint overrides the default service
// URL when non-empty.
func NewSupadata(endpoint string, deps Deps) *Supadata {
	if endpoint == "" {
		endpoint = defaultSupadataEndpoint
	}
	return &Supadata{base: newBase("SUPADATA", KindSocial, false, deps), endpoint: endpoint}
}

type supadataRequest struct {
	Method string `json:"method"`
	Params struct {
		Query          string   `json:"query"`
		Platforms      []string `json:"platforms"`
		Limit          int      `json:"limit"`
		SortBy         string   `json:"sort_by"`
		IncludeMetrics bool     `json:"include_metrics"`
	} `json:"params"`
}

type supadataResponse struct {
	Result struct {
		Posts []struct {
			Caption     string `json:"caption"`
			URL         string `json:"url"`
			Platform    string `json:"platform"`
			Likes       int64  `json:"likes"`
			Comments    int64  `json:"comments"`
			Shares      int64  `json:"shares"`
			Author      string `json:"author"`
			Followers   int64  `json:"author_followers"`
			PublishedAt string `json:"published_at"`
		} `json:"posts"`
	} `json:"result"`
}

// Search implements Searcher.
func (s *Supadata) Search(ctx context.Context, query string, limits Limits) Response {
	limit := limits.MaxResults
	if limit <= 0 {
		limit = 50
	}
	body := supadataRequest{Method: "social_search"}
	body.Params.Query = query
	body.Params.Platforms = []string{"instagram", "facebook", "tiktok"}
	body.Params.Limit = limit
	body.Params.SortBy = "engagement"
	body.Params.IncludeMetrics = true

	resp, err := s.call(ctx, func(secret string) (*restyResponse, error) {
		return s.http.R().
			SetContext(ctx).
			SetHeader("Authorization", "Bearer "+secret).
			SetHeader("Content-Type", "application/json").
			SetBody(body).
			Post(s.endpoint)
	})
	if err != nil {
		return s.softFail(err)
	}

	var out supadataResponse
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return s.softFail(err)
	}

	results := make([]SearchResult, 0, len(out.Result.Posts))
	for _, post := range out.Result.Posts {
		if post.URL == "" {
			continue
		}
		title := post.Caption
		if len(title) > 100 {
			title = title[:100]
		}
		platform := post.Platform
		if platform == "" {
			platform = "social"
		}
		results = append(results, SearchResult{
			Title:       title,
			URL:         post.URL,
			Snippet:     post.Caption,
			Source:      s.name,
			Relevance:   0.8,
			PublishedAt: parseDate(post.PublishedAt),
			Social: &SocialStats{
				Platform:        platform,
				Likes:           post.Likes,
				Comments:        post.Comments,
				Shares:          post.Shares,
				Author:          post.Author,
				AuthorFollowers: post.Followers,
			},
		})
	}
	return Success(s.name, results)
}
