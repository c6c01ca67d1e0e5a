package provider

import (
	"context"
	"net/url"

	json "github.com/goccy/go-json"
)

var firecrawlEndpoint = "https://api.firecrawl.dev/v0/scrape"

// Firecrawl scrapes a Google result page through the Firecrawl service and
// mines result links out of the returned markdown.
type Firecrawl struct {
	base
}

// NewFirecrawl creates the Firecrawl client.
func NewFirecrawl(deps Deps) *Firecrawl {
	return &Firecrawl{base: newBase("FIRECRAWL", KindWeb, false, deps)}
}

type firecrawlRequest struct {
	URL             string   `json:"url"`
	Formats         []string `json:"formats"`
	OnlyMainContent bool     `json:"onlyMainContent"`
	IncludeTags     []string `json:"includeTags"`
	ExcludeTags     []string `json:"excludeTags"`
	WaitFor         int      `json:"waitFor"`
}

type firecrawlResponse struct {
	Data struct {
		Markdown string `json:"markdown"`
	} `json:"data"`
}

// Search implements Searcher.
func (f *Firecrawl) Search(ctx context.Context, query string, limits Limits) Response {
	max := limits.MaxResults
	if max <= 0 {
		max = 15
	}
	serp := "https://www.google.com/search?q=" + url.QueryEscape(query) + "&hl=pt-BR&gl=BR"

	resp, err := f.call(ctx, func(secret string) (*restyResponse, error) {
		return f.http.R().
			SetContext(ctx).
			SetHeader("Authorization", "Bearer "+secret).
			SetHeader("Content-Type", "application/json").
			SetBody(firecrawlRequest{
				URL:             serp,
				Formats:         []string{"markdown", "html"},
				OnlyMainContent: true,
				IncludeTags:     []string{"p", "h1", "h2", "h3", "article"},
				ExcludeTags:     []string{"nav", "footer", "aside", "script"},
				WaitFor:         3000,
			}).
			Post(firecrawlEndpoint)
	})
	if err != nil {
		return f.softFail(err)
	}

	var out firecrawlResponse
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return f.softFail(err)
	}

	results := MineResultsFromText(out.Data.Markdown, f.name)
	if len(results) > max {
		results = results[:max]
	}
	if len(results) == 0 {
		return SoftFail(f.name, "empty_response")
	}
	return Success(f.name, results)
}
