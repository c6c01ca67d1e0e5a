package provider

import (
	"context"
	"time"

	json "github.com/goccy/go-json"

	"github.com/zaircost/garimpo/urlfilter"
)

var exaEndpoint = "https://api.exa.ai/search"

// Exa is the neural-search client. Requests pin a preferred-domain filter
// and a trailing publication window.
type Exa struct {
	base
}

// NewExa creates the Exa client.
func NewExa(deps Deps) *Exa {
	return &Exa{base: newBase("EXA", KindWeb, false, deps)}
}

type exaRequest struct {
	Query              string   `json:"query"`
	NumResults         int      `json:"numResults"`
	UseAutoprompt      bool     `json:"useAutoprompt"`
	Type               string   `json:"type"`
	IncludeDomains     []string `json:"includeDomains,omitempty"`
	StartPublishedDate string   `json:"startPublishedDate,omitempty"`
}

type exaResponse struct {
	Results []struct {
		Title         string  `json:"title"`
		URL           string  `json:"url"`
		Text          string  `json:"text"`
		Score         float64 `json:"score"`
		PublishedDate string  `json:"publishedDate"`
	} `json:"results"`
}

// Search implements Searcher.
func (e *Exa) Search(ctx context.Context, query string, limits Limits) Response {
	num := limits.MaxResults
	if num <= 0 {
		num = 15
	}
	body := exaRequest{
		Query:              query,
		NumResults:         num,
		UseAutoprompt:      true,
		Type:               "neural",
		IncludeDomains:     urlfilter.PreferredDomains(),
		StartPublishedDate: time.Now().AddDate(-1, 0, 0).Format("2006-01-02"),
	}

	resp, err := e.call(ctx, func(secret string) (*restyResponse, error) {
		return e.http.R().
			SetContext(ctx).
			SetHeader("x-api-key", secret).
			SetHeader("Content-Type", "application/json").
			SetBody(body).
			Post(exaEndpoint)
	})
	if err != nil {
		return e.softFail(err)
	}

	var out exaResponse
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return e.softFail(err)
	}

	results := make([]SearchResult, 0, len(out.Results))
	for _, item := range out.Results {
		if item.URL == "" {
			continue
		}
		relevance := item.Score
		if relevance <= 0 {
			relevance = 0.8
		}
		snippet := item.Text
		if len(snippet) > 300 {
			snippet = snippet[:300]
		}
		results = append(results, SearchResult{
			Title:       item.Title,
			URL:         item.URL,
			Snippet:     snippet,
			Source:      e.name,
			Relevance:   relevance,
			PublishedAt: parseDate(item.PublishedDate),
		})
	}
	return Success(e.name, results)
}

// parseDate tolerates the date formats providers actually send.
func parseDate(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05Z", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
