package research

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"

	"github.com/zaircost/garimpo/extract"
	"github.com/zaircost/garimpo/provider"
	"github.com/zaircost/garimpo/urlfilter"
)

// Context is the business framing that steers scoring and query synthesis.
type Context struct {
	Segment  string `json:"segment,omitempty"`
	Product  string `json:"product,omitempty"`
	Audience string `json:"audience,omitempty"`
}

// Terms returns the non-empty context terms.
func (c Context) Terms() []string {
	var out []string
	for _, t := range []string{c.Segment, c.Product, c.Audience} {
		if strings.TrimSpace(t) != "" {
			out = append(out, t)
		}
	}
	return out
}

// Page is one extracted, quality-approved source.
type Page struct {
	URL         string    `json:"url"`
	Title       string    `json:"title"`
	Content     string    `json:"content"`
	Quality     int       `json:"quality_score"`
	Insights    []string  `json:"insights,omitempty"`
	Preferred   bool      `json:"is_preferred_source"`
	WordCount   int       `json:"word_count"`
	Method      string    `json:"extraction_method"`
	Source      string    `json:"source_provider"`
	Level       int       `json:"level"`
	ExtractedAt time.Time `json:"extracted_at"`
}

// SourceDetail is the compact per-source entry carried in the artifact.
type SourceDetail struct {
	URL       string `json:"url"`
	Title     string `json:"title"`
	Quality   int    `json:"quality_score"`
	Source    string `json:"source_provider"`
	Preferred bool   `json:"is_preferred_source"`
}

// Report is the researcher's aggregate output. A run never errors: when
// level 1 comes back empty the report is flagged as an emergency record.
type Report struct {
	Query           string            `json:"query"`
	Results         []provider.SearchResult `json:"results"`
	Pages           []Page            `json:"pages"`
	TopInsights     []string          `json:"top_insights,omitempty"`
	Trends          []string          `json:"trends,omitempty"`
	Opportunities   []string          `json:"opportunities,omitempty"`
	Sources         []SourceDetail    `json:"sources"`
	EnginesUsed     []string          `json:"engines_used,omitempty"`
	Failures        map[string]string `json:"failures,omitempty"`
	EmergencyMode   bool              `json:"emergency_mode,omitempty"`
	EmergencyReason string            `json:"emergency_reason,omitempty"`
}

// TextGenerator produces text for a prompt; used to refine level-3
// queries. Optional.
type TextGenerator func(ctx context.Context, prompt string, maxTokens int) (string, error)

// Config holds researcher configuration.
type Config struct {
	Registry  *provider.Registry
	Filter    *urlfilter.Filter
	Extractor *extract.Extractor
	Session   *extract.Session

	// Generate refines related queries; nil disables the AI step and the
	// vocabulary synthesis runs alone.
	Generate TextGenerator

	// MaxPages caps level-1 extraction across all engines. Default: 20.
	MaxPages int

	// DepthLevels is 1, 2 or 3. Default: 3.
	DepthLevels int

	// MinQuality is the acceptance threshold. Default: extract.MinQualityScore.
	MinQuality int

	Logger zerolog.Logger
}

// Researcher runs the three-level dig.
type Researcher struct {
	config Config
	logger zerolog.Logger
}

// New creates a Researcher.
func New(cfg Config) *Researcher {
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = 20
	}
	if cfg.DepthLevels < 1 || cfg.DepthLevels > 3 {
		cfg.DepthLevels = 3
	}
	if cfg.MinQuality <= 0 {
		cfg.MinQuality = extract.MinQualityScore
	}
	return &Researcher{
		config: cfg,
		logger: cfg.Logger.With().Str("component", "research").Logger(),
	}
}

// Run executes the dig and aggregates the report.
func (r *Researcher) Run(ctx context.Context, query string, rctx Context) *Report {
	report := &Report{Query: query, Failures: make(map[string]string)}
	terms := rctx.Terms()

	// Level 1: multi-engine fan-out.
	level1 := r.level1(ctx, query, terms, report)
	if len(level1) == 0 {
		report.EmergencyMode = true
		report.EmergencyReason = fmt.Sprintf(
			"nenhuma página aprovada para %q: todos os provedores retornaram vazio ou abaixo do corte de qualidade", query)
		r.logger.Warn().Str("query", query).Msg("emergency research record emitted")
		return report
	}

	pages := level1
	if r.config.DepthLevels >= 2 {
		pages = append(pages, r.level2(ctx, level1, terms)...)
	}
	if r.config.DepthLevels >= 3 {
		pages = append(pages, r.level3(ctx, level1, rctx, terms)...)
	}

	r.aggregate(report, pages, terms)
	return report
}

func (r *Researcher) level1(ctx context.Context, query string, terms []string, report *Report) []Page {
	engines := r.config.Registry.ByKind(provider.KindWeb)
	if len(engines) == 0 {
		report.Failures["web"] = "no providers registered"
		return nil
	}
	perEngine := r.config.MaxPages / len(engines)
	if perEngine < 1 {
		perEngine = 1
	}

	var mu sync.Mutex
	var wg sync.WaitGroup
	var pages []Page

	for _, engine := range engines {
		wg.Add(1)
		go func(engine provider.Searcher) {
			defer wg.Done()
			resp := engine.Search(ctx, query, provider.Limits{MaxResults: perEngine})

			// The relevance filter runs before anything is recorded, so
			// blocked URLs never reach the artifact.
			var kept []provider.SearchResult
			for _, result := range resp.Results {
				if r.config.Filter.IsRelevant(result.URL, result.Title, result.Snippet) {
					kept = append(kept, result)
				}
			}

			mu.Lock()
			if resp.OK() && len(resp.Results) > 0 {
				report.EnginesUsed = append(report.EnginesUsed, engine.Name())
				report.Results = append(report.Results, kept...)
			} else {
				reason := resp.Reason
				if reason == "" {
					reason = "empty_response"
				}
				report.Failures[engine.Name()] = reason
			}
			mu.Unlock()

			for _, result := range kept {
				page, ok := r.processResult(ctx, result, terms, 1)
				if !ok {
					continue
				}
				mu.Lock()
				pages = append(pages, page)
				mu.Unlock()
			}
		}(engine)
	}
	wg.Wait()
	sort.Strings(report.EnginesUsed)
	report.Results = DedupeResults(report.Results, r.config.Registry.Priority)
	return dedupePages(pages)
}

// DedupeResults removes duplicate URLs from a result pool. When two
// results share a URL the higher relevance wins; ties keep the result
// from the higher-priority provider, then the first seen.
func DedupeResults(results []provider.SearchResult, priority func(string) int) []provider.SearchResult {
	byURL := make(map[string]int, len(results))
	out := make([]provider.SearchResult, 0, len(results))
	for _, r := range results {
		if r.URL == "" {
			continue
		}
		idx, dup := byURL[r.URL]
		if !dup {
			byURL[r.URL] = len(out)
			out = append(out, r)
			continue
		}
		kept := out[idx]
		replace := r.Relevance > kept.Relevance
		if r.Relevance == kept.Relevance && priority != nil {
			replace = priority(r.Source) < priority(kept.Source)
		}
		if replace {
			out[idx] = r
		}
	}
	return out
}

// processResult runs the filter → extract → score pipeline for one result.
func (r *Researcher) processResult(ctx context.Context, result provider.SearchResult, terms []string, level int) (Page, bool) {
	if !r.config.Filter.IsRelevant(result.URL, result.Title, result.Snippet) {
		return Page{}, false
	}
	extraction, err := r.config.Extractor.Extract(ctx, result.URL)
	if err != nil {
		return Page{}, false
	}
	quality := extract.ScoreQuality(extraction.Content, result.URL, terms)
	if quality < r.config.MinQuality {
		return Page{}, false
	}

	title := extraction.Title
	if title == "" {
		title = result.Title
	}
	return Page{
		URL:         result.URL,
		Title:       title,
		Content:     extraction.Content,
		Quality:     quality,
		Insights:    MineInsights(extraction.Content, terms, 5),
		Preferred:   urlfilter.IsPreferred(result.URL),
		WordCount:   extraction.WordCount,
		Method:      extraction.Method,
		Source:      result.Source,
		Level:       level,
		ExtractedAt: time.Now().UTC(),
	}, true
}

// level2 expands internal links of the top level-1 pages.
func (r *Researcher) level2(ctx context.Context, level1 []Page, terms []string) []Page {
	top := topByQuality(level1, 5)

	var pages []Page
	for _, parent := range top {
		links := r.internalLinks(ctx, parent.URL, 3)
		for _, link := range links {
			page, ok := r.processResult(ctx, provider.SearchResult{
				URL:    link,
				Title:  "",
				Source: parent.Source,
			}, terms, 2)
			if !ok {
				continue
			}
			pages = append(pages, page)
		}
	}
	return pages
}

var binaryExtensions = map[string]struct{}{
	".pdf": {}, ".jpg": {}, ".jpeg": {}, ".png": {}, ".gif": {},
	".mp4": {}, ".zip": {}, ".doc": {}, ".docx": {}, ".xls": {}, ".xlsx": {},
}

// internalLinks enumerates same-host anchors of a page, excluding self
// links, fragments and binary targets.
func (r *Researcher) internalLinks(ctx context.Context, pageURL string, max int) []string {
	html, err := r.config.Session.Get(ctx, pageURL)
	if err != nil {
		return nil
	}
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}

	var links []string
	seen := map[string]struct{}{pageURL: {}}
	doc.Find("a[href]").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		href, _ := sel.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(href, "javascript:") {
			return true
		}
		resolved, err := base.Parse(href)
		if err != nil {
			return true
		}
		resolved.Fragment = ""
		if resolved.Hostname() != base.Hostname() {
			return true
		}
		if _, binary := binaryExtensions[strings.ToLower(path.Ext(resolved.Path))]; binary {
			return true
		}
		link := resolved.String()
		if _, dup := seen[link]; dup {
			return true
		}
		seen[link] = struct{}{}
		links = append(links, link)
		return len(links) < max
	})
	return links
}

// level3 synthesizes related queries from the level-1 vocabulary and runs
// the top ones through the primary web provider.
func (r *Researcher) level3(ctx context.Context, level1 []Page, rctx Context, terms []string) []Page {
	contents := make([]string, len(level1))
	for i, p := range level1 {
		contents[i] = p.Content
	}
	queries := r.relatedQueries(ctx, contents, rctx)
	if len(queries) == 0 {
		return nil
	}
	if len(queries) > 3 {
		queries = queries[:3]
	}

	engines := r.config.Registry.ByKind(provider.KindWeb)
	if len(engines) == 0 {
		return nil
	}
	primary := engines[0]

	var pages []Page
	for _, q := range queries {
		resp := primary.Search(ctx, q, provider.Limits{MaxResults: 5})
		if !resp.OK() {
			continue
		}
		for _, result := range resp.Results {
			page, ok := r.processResult(ctx, result, terms, 3)
			if !ok {
				continue
			}
			pages = append(pages, page)
		}
	}
	return pages
}

// relatedQueries combines the corpus vocabulary with the context slots,
// optionally letting the generator refine the list.
func (r *Researcher) relatedQueries(ctx context.Context, contents []string, rctx Context) []string {
	vocabulary := BuildVocabulary(contents, 3)
	if len(vocabulary) > 5 {
		vocabulary = vocabulary[:5]
	}

	var queries []string
	seen := make(map[string]struct{})
	push := func(q string) {
		q = strings.TrimSpace(q)
		if q == "" || len(queries) >= 8 {
			return
		}
		if _, dup := seen[q]; dup {
			return
		}
		seen[q] = struct{}{}
		queries = append(queries, q)
	}

	for _, term := range vocabulary {
		if rctx.Segment != "" {
			push(fmt.Sprintf("%s %s oportunidades", term, rctx.Segment))
		}
		if rctx.Product != "" {
			push(fmt.Sprintf("%s %s mercado brasileiro", term, rctx.Product))
		}
		push(fmt.Sprintf("%s tendências Brasil", term))
	}

	if r.config.Generate != nil && len(vocabulary) > 0 {
		prompt := fmt.Sprintf(
			"Com base nos termos [%s] e no segmento %q, liste 3 consultas de busca curtas em português para aprofundar uma pesquisa de mercado. Uma por linha, sem numeração.",
			strings.Join(vocabulary, ", "), rctx.Segment)
		if text, err := r.config.Generate(ctx, prompt, 200); err == nil {
			for _, line := range strings.Split(text, "\n") {
				line = strings.Trim(line, "-•* \t")
				if len(line) > 8 && len(line) < 120 {
					push(line)
				}
			}
		} else {
			r.logger.Debug().Err(err).Msg("query generation unavailable, using vocabulary queries")
		}
	}
	return queries
}

// aggregate deduplicates, ranks and mines the collective output.
func (r *Researcher) aggregate(report *Report, pages []Page, terms []string) {
	pages = dedupePages(pages)
	sort.SliceStable(pages, func(i, j int) bool {
		return pages[i].Quality > pages[j].Quality
	})
	report.Pages = pages

	var corpus strings.Builder
	for _, p := range pages {
		corpus.WriteString(p.Content)
		corpus.WriteString("\n")
		report.Sources = append(report.Sources, SourceDetail{
			URL:       p.URL,
			Title:     p.Title,
			Quality:   p.Quality,
			Source:    p.Source,
			Preferred: p.Preferred,
		})
	}
	text := corpus.String()
	report.TopInsights = MineInsights(text, terms, 20)
	report.Trends = MineTrends(text, 10)
	report.Opportunities = MineOpportunities(text, 10)
}

func dedupePages(pages []Page) []Page {
	seen := make(map[string]struct{}, len(pages))
	out := pages[:0:0]
	for _, p := range pages {
		if _, dup := seen[p.URL]; dup {
			continue
		}
		seen[p.URL] = struct{}{}
		out = append(out, p)
	}
	return out
}

func topByQuality(pages []Page, n int) []Page {
	sorted := append([]Page(nil), pages...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Quality > sorted[j].Quality
	})
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}
