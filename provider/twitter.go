package provider

import (
	"context"
	"strconv"

	json "github.com/goccy/go-json"
)

var twitterSearchEndpoint = "https://api.twitter.com/2/tweets/search/recent"

// Twitter is the microblog recent-search client with public_metrics
// expansion.
type Twitter struct {
	base
}

// NewTwitter creates the client. The provider name is X, matching the
// credential prefix.
func NewTwitter(deps Deps) *Twitter {
	return &Twitter{base: newBase("X", KindSocial, false, deps)}
}

type twitterResponse struct {
	Data []struct {
		ID            string `json:"id"`
		Text          string `json:"text"`
		AuthorID      string `json:"author_id"`
		CreatedAt     string `json:"created_at"`
		PublicMetrics struct {
			RetweetCount int64 `json:"retweet_count"`
			LikeCount    int64 `json:"like_count"`
			ReplyCount   int64 `json:"reply_count"`
			QuoteCount   int64 `json:"quote_count"`
		} `json:"public_metrics"`
	} `json:"data"`
	Includes struct {
		Users []struct {
			ID            string `json:"id"`
			Username      string `json:"username"`
			PublicMetrics struct {
				FollowersCount int64 `json:"followers_count"`
			} `json:"public_metrics"`
		} `json:"users"`
	} `json:"includes"`
}

// Search implements Searcher.
func (t *Twitter) Search(ctx context.Context, query string, limits Limits) Response {
	max := limits.MaxResults
	if max <= 0 || max > 100 {
		max = 50
	}

	resp, err := t.call(ctx, func(secret string) (*restyResponse, error) {
		return t.http.R().
			SetContext(ctx).
			SetHeader("Authorization", "Bearer "+secret).
			SetQueryParams(map[string]string{
				"query":        query + " lang:pt -is:retweet",
				"max_results":  strconv.Itoa(max),
				"tweet.fields": "public_metrics,created_at,author_id,entities",
				"user.fields":  "username,verified,public_metrics",
				"expansions":   "author_id",
			}).
			Get(twitterSearchEndpoint)
	})
	if err != nil {
		return t.softFail(err)
	}

	var out twitterResponse
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return t.softFail(err)
	}

	users := make(map[string]struct {
		username  string
		followers int64
	}, len(out.Includes.Users))
	for _, u := range out.Includes.Users {
		users[u.ID] = struct {
			username  string
			followers int64
		}{u.Username, u.PublicMetrics.FollowersCount}
	}

	results := make([]SearchResult, 0, len(out.Data))
	for _, tweet := range out.Data {
		if tweet.ID == "" {
			continue
		}
		title := tweet.Text
		if len(title) > 100 {
			title = title[:100]
		}
		author := users[tweet.AuthorID]
		results = append(results, SearchResult{
			Title:       title,
			URL:         "https://twitter.com/i/status/" + tweet.ID,
			Snippet:     tweet.Text,
			Source:      t.name,
			Relevance:   0.75,
			PublishedAt: parseDate(tweet.CreatedAt),
			Social: &SocialStats{
				Platform:        "twitter",
				Retweets:        tweet.PublicMetrics.RetweetCount,
				Likes:           tweet.PublicMetrics.LikeCount,
				Replies:         tweet.PublicMetrics.ReplyCount,
				Quotes:          tweet.PublicMetrics.QuoteCount,
				Author:          author.username,
				AuthorFollowers: author.followers,
			},
		})
	}
	return Success(t.name, results)
}
