package provider

import (
	"context"
	"strconv"

	json "github.com/goccy/go-json"
)

var googleCSEEndpoint = "https://www.googleapis.com/customsearch/v1"

// GoogleCSE is the custom web-search client, pinned to Brazilian
// Portuguese and a trailing 12-month window.
type GoogleCSE struct {
	base
	cseID string
}

// NewGoogleCSE creates the client. cseID is the custom search engine id.
func NewGoogleCSE(cseID string, deps Deps) *GoogleCSE {
	return &GoogleCSE{base: newBase("GOOGLE", KindWeb, false, deps), cseID: cseID}
}

type googleCSEResponse struct {
	Items []struct {
		Title   string `json:"title"`
		Link    string `json:"link"`
		Snippet string `json:"snippet"`
		Pagemap struct {
			Metatags []map[string]string `json:"metatags"`
		} `json:"pagemap"`
	} `json:"items"`
}

// Search implements Searcher.
func (g *GoogleCSE) Search(ctx context.Context, query string, limits Limits) Response {
	if g.cseID == "" {
		return g.softFail(ErrNoCredentials)
	}
	num := limits.MaxResults
	if num <= 0 || num > 10 {
		num = 10
	}

	resp, err := g.call(ctx, func(secret string) (*restyResponse, error) {
		return g.http.R().
			SetContext(ctx).
			SetQueryParams(map[string]string{
				"key":          secret,
				"cx":           g.cseID,
				"q":            query,
				"num":          strconv.Itoa(num),
				"lr":           "lang_pt",
				"gl":           "br",
				"safe":         "off",
				"dateRestrict": "m12",
			}).
			Get(googleCSEEndpoint)
	})
	if err != nil {
		return g.softFail(err)
	}

	var out googleCSEResponse
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return g.softFail(err)
	}

	results := make([]SearchResult, 0, len(out.Items))
	for _, item := range out.Items {
		if item.Link == "" {
			continue
		}
		published := ""
		if len(item.Pagemap.Metatags) > 0 {
			published = item.Pagemap.Metatags[0]["article:published_time"]
		}
		results = append(results, SearchResult{
			Title:       item.Title,
			URL:         item.Link,
			Snippet:     item.Snippet,
			Source:      g.name,
			Relevance:   0.9,
			PublishedAt: parseDate(published),
		})
	}
	return Success(g.name, results)
}
