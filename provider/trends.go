package provider

import (
	"context"

	json "github.com/goccy/go-json"
)

// Trends is the topical-trends MCP client used for query expansion.
type Trends struct {
	base
	endpoint string
}

// NewTrends creates the client.
func NewTrends(endpoint string, deps Deps) *Trends {
	return &Trends{base: newBase("TRENDS", KindTrends, false, deps), endpoint: endpoint}
}

type trendsRequest struct {
	Method string `json:"method"`
	Params struct {
		Query  string `json:"query"`
		Region string `json:"region"`
		Limit  int    `json:"limit"`
	} `json:"params"`
}

type trendsResponse struct {
	Result struct {
		Trends []struct {
			Topic  string  `json:"topic"`
			URL    string  `json:"url"`
			Volume int64   `json:"volume"`
			Growth float64 `json:"growth"`
		} `json:"trends"`
	} `json:"result"`
}

// Search implements Searcher. Trend topics come back as results whose
// title is the topic; URL may be empty for pure topics.
func (t *Trends) Search(ctx context.Context, query string, limits Limits) Response {
	if t.endpoint == "" {
		return SoftFail(t.name, "endpoint not configured")
	}
	limit := limits.MaxResults
	if limit <= 0 {
		limit = 20
	}
	body := trendsRequest{Method: "trends_search"}
	body.Params.Query = query
	body.Params.Region = "BR"
	body.Params.Limit = limit

	resp, err := t.call(ctx, func(secret string) (*restyResponse, error) {
		return t.http.R().
			SetContext(ctx).
			SetHeader("Authorization", "Bearer "+secret).
			SetHeader("Content-Type", "application/json").
			SetBody(body).
			Post(t.endpoint)
	})
	if err != nil {
		return t.softFail(err)
	}

	var out trendsResponse
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return t.softFail(err)
	}

	results := make([]SearchResult, 0, len(out.Result.Trends))
	for _, trend := range out.Result.Trends {
		if trend.Topic == "" {
			continue
		}
		relevance := 0.6
		if trend.Growth > 0 {
			relevance = 0.6 + min(trend.Growth/100, 0.4)
		}
		results = append(results, SearchResult{
			Title:     trend.Topic,
			URL:       trend.URL,
			Source:    t.name,
			Relevance: relevance,
		})
	}
	return Success(t.name, results)
}
