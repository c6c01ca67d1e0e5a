package provider

import (
	"context"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// HTMLScrape searches by parsing well-known search-engine result pages
// directly. It is keyless; tracker redirects around outbound links are
// resolved back to the target.
type HTMLScrape struct {
	base
}

// NewHTMLScrape creates the HTML-scrape client.
func NewHTMLScrape(deps Deps) *HTMLScrape {
	return &HTMLScrape{base: newBase("HTML_SCRAPE", KindWeb, true, deps)}
}

// Search implements Searcher. Bing is tried first; DuckDuckGo's HTML
// endpoint fills in when Bing yields nothing.
func (h *HTMLScrape) Search(ctx context.Context, query string, limits Limits) Response {
	max := limits.MaxResults
	if max <= 0 {
		max = 10
	}

	results := h.searchBing(ctx, query, max)
	if len(results) == 0 {
		results = h.searchDuckDuckGo(ctx, query, max)
	}
	if len(results) == 0 {
		return SoftFail(h.name, "empty_response")
	}
	return Success(h.name, results)
}

func (h *HTMLScrape) searchBing(ctx context.Context, query string, max int) []SearchResult {
	endpoint := "https://www.bing.com/search?q=" + url.QueryEscape(query) + "&cc=br&setlang=pt-BR"
	doc, err := h.fetchDoc(ctx, endpoint)
	if err != nil {
		h.logger.Debug().Err(err).Msg("bing scrape failed")
		return nil
	}

	var results []SearchResult
	doc.Find("li.b_algo").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		link := sel.Find("h2 a").First()
		href, _ := link.Attr("href")
		title := strings.TrimSpace(link.Text())
		snippet := strings.TrimSpace(sel.Find("p").First().Text())
		if href == "" || title == "" {
			return true
		}
		results = append(results, SearchResult{
			Title:     title,
			URL:       ResolveRedirect(href),
			Snippet:   snippet,
			Source:    h.name,
			Relevance: 0.7,
		})
		return len(results) < max
	})
	return results
}

func (h *HTMLScrape) searchDuckDuckGo(ctx context.Context, query string, max int) []SearchResult {
	endpoint := "https://html.duckduckgo.com/html/?q=" + url.QueryEscape(query)
	doc, err := h.fetchDoc(ctx, endpoint)
	if err != nil {
		h.logger.Debug().Err(err).Msg("duckduckgo scrape failed")
		return nil
	}

	var results []SearchResult
	doc.Find("div.result").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		link := sel.Find("a.result__a").First()
		href, _ := link.Attr("href")
		title := strings.TrimSpace(link.Text())
		snippet := strings.TrimSpace(sel.Find("a.result__snippet").First().Text())
		if href == "" || title == "" {
			return true
		}
		results = append(results, SearchResult{
			Title:     title,
			URL:       ResolveRedirect(href),
			Snippet:   snippet,
			Source:    h.name,
			Relevance: 0.7,
		})
		return len(results) < max
	})
	return results
}

func (h *HTMLScrape) fetchDoc(ctx context.Context, endpoint string) (*goquery.Document, error) {
	resp, err := h.call(ctx, func(string) (*restyResponse, error) {
		return h.http.R().
			SetContext(ctx).
			SetHeader("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36").
			SetHeader("Accept-Language", "pt-BR,pt;q=0.9").
			Get(endpoint)
	})
	if err != nil {
		return nil, err
	}
	return goquery.NewDocumentFromReader(strings.NewReader(resp.String()))
}
