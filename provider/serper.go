package provider

import (
	"context"

	json "github.com/goccy/go-json"
)

var serperEndpoint = "https://google.serper.dev/search"

// Serper is the meta-search aggregator client.
type Serper struct {
	base
}

// NewSerper creates the Serper client.
func NewSerper(deps Deps) *Serper {
	return &Serper{base: newBase("SERPER", KindWeb, false, deps)}
}

type serperRequest struct {
	Q           string `json:"q"`
	GL          string `json:"gl"`
	HL          string `json:"hl"`
	Num         int    `json:"num"`
	Autocorrect bool   `json:"autocorrect"`
}

type serperResponse struct {
	Organic []struct {
		Title    string `json:"title"`
		Link     string `json:"link"`
		Snippet  string `json:"snippet"`
		Date     string `json:"date"`
		Position int    `json:"position"`
	} `json:"organic"`
}

// Search implements Searcher.
func (s *Serper) Search(ctx context.Context, query string, limits Limits) Response {
	num := limits.MaxResults
	if num <= 0 {
		num = 15
	}

	resp, err := s.call(ctx, func(secret string) (*restyResponse, error) {
		return s.http.R().
			SetContext(ctx).
			SetHeader("X-API-KEY", secret).
			SetHeader("Content-Type", "application/json").
			SetBody(serperRequest{Q: query, GL: "br", HL: "pt", Num: num, Autocorrect: true}).
			Post(serperEndpoint)
	})
	if err != nil {
		return s.softFail(err)
	}

	var out serperResponse
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return s.softFail(err)
	}

	results := make([]SearchResult, 0, len(out.Organic))
	for _, item := range out.Organic {
		if item.Link == "" {
			continue
		}
		results = append(results, SearchResult{
			Title:       item.Title,
			URL:         item.Link,
			Snippet:     item.Snippet,
			Source:      s.name,
			Relevance:   0.85,
			PublishedAt: parseDate(item.Date),
		})
	}
	return Success(s.name, results)
}
