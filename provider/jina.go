package provider

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

var jinaReaderBase = "https://r.jina.ai/"

// Jina is the reader/extractor client. It serves two roles: cleaning a
// single URL for the extraction pipeline, and acting as a search proxy by
// reading search-engine result pages.
type Jina struct {
	base
}

// NewJina creates the Jina client.
func NewJina(deps Deps) *Jina {
	return &Jina{base: newBase("JINA", KindWeb, false, deps)}
}

// Read returns the cleaned textual content of one URL.
func (j *Jina) Read(ctx context.Context, target string) (string, error) {
	resp, err := j.call(ctx, func(secret string) (*restyResponse, error) {
		return j.http.R().
			SetContext(ctx).
			SetHeader("Authorization", "Bearer "+secret).
			SetHeader("Accept", "text/plain").
			Get(jinaReaderBase + target)
	})
	if err != nil {
		return "", err
	}
	body := resp.String()
	if strings.TrimSpace(body) == "" {
		return "", fmt.Errorf("jina: empty body for %s", target)
	}
	return body, nil
}

// Search implements Searcher by reading SERP pages through the reader and
// mining result links out of the cleaned text.
func (j *Jina) Search(ctx context.Context, query string, limits Limits) Response {
	max := limits.MaxResults
	if max <= 0 {
		max = 20
	}
	serps := []string{
		"https://www.google.com/search?q=" + url.QueryEscape(query) + "&hl=pt-BR",
		"https://www.bing.com/search?q=" + url.QueryEscape(query) + "&cc=br",
	}

	var results []SearchResult
	seen := make(map[string]struct{})
	var lastErr error
	for _, serp := range serps {
		content, err := j.Read(ctx, serp)
		if err != nil {
			lastErr = err
			continue
		}
		for _, r := range MineResultsFromText(content, j.name) {
			if _, dup := seen[r.URL]; dup {
				continue
			}
			seen[r.URL] = struct{}{}
			results = append(results, r)
			if len(results) >= max {
				break
			}
		}
		if len(results) >= max {
			break
		}
	}
	if len(results) == 0 {
		return j.softFail(lastErr)
	}
	return Success(j.name, results)
}

var (
	markdownLinkRe = regexp.MustCompile(`\[([^\]\n]{4,120})\]\((https?://[^\s)]+)\)`)
	bareURLRe      = regexp.MustCompile(`https?://[^\s<>"')\]]+`)
)

// MineResultsFromText pulls result links out of reader/scrape output.
// Markdown links keep their anchor text as title; bare URLs fall back to
// the host as title. Search-engine self-links are dropped.
func MineResultsFromText(content, source string) []SearchResult {
	var out []SearchResult
	seen := make(map[string]struct{})

	push := func(title, raw string) {
		raw = ResolveRedirect(strings.TrimRight(raw, ".,;"))
		u, err := url.Parse(raw)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			return
		}
		host := strings.ToLower(u.Hostname())
		if isSearchEngineHost(host) {
			return
		}
		if _, dup := seen[raw]; dup {
			return
		}
		seen[raw] = struct{}{}
		if strings.TrimSpace(title) == "" {
			title = host
		}
		out = append(out, SearchResult{
			Title:     strings.TrimSpace(title),
			URL:       raw,
			Source:    source,
			Relevance: 0.7,
		})
	}

	for _, m := range markdownLinkRe.FindAllStringSubmatch(content, -1) {
		push(m[1], m[2])
	}
	if len(out) < 5 {
		for _, raw := range bareURLRe.FindAllString(content, -1) {
			push("", raw)
		}
	}
	return out
}

func isSearchEngineHost(host string) bool {
	for _, engine := range []string{"google.", "bing.", "duckduckgo.", "yahoo.", "jina.ai", "gstatic.", "googleusercontent."} {
		if strings.Contains(host, engine) {
			return true
		}
	}
	return false
}
