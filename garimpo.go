package garimpo

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	json "github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/zaircost/garimpo/artifact"
	"github.com/zaircost/garimpo/capture"
	"github.com/zaircost/garimpo/extract"
	"github.com/zaircost/garimpo/keypool"
	"github.com/zaircost/garimpo/provider"
	"github.com/zaircost/garimpo/report"
	"github.com/zaircost/garimpo/research"
	"github.com/zaircost/garimpo/study"
	"github.com/zaircost/garimpo/telemetry"
	"github.com/zaircost/garimpo/urlfilter"
	"github.com/zaircost/garimpo/viral"
)

// Orchestrator coordinates one collection run end to end: web fan-out,
// social fan-out, viral identification, visual capture and persistence.
type Orchestrator struct {
	config   Config
	logger   zerolog.Logger
	pool     *keypool.Pool
	registry *provider.Registry
	metrics  *telemetry.Metrics
	promReg  *prometheus.Registry

	researcher    *research.Researcher
	discovery     *viral.Discovery
	screenshotter *capture.Screenshotter
	downloader    *capture.ImageDownloader
	studyEngine   *study.Engine

	now func() time.Time
}

// New wires an orchestrator from configuration and the environment.
// Credentials are discovered once at startup; providers without any key
// are simply not registered and the run records them as skipped.
func New(cfg Config, logger zerolog.Logger) (*Orchestrator, error) {
	cfg.applyDefaults()

	pool := keypool.New(keypool.Config{Cooldown: cfg.KeyCooldown(), Logger: logger})
	pool.LoadEnv(Providers)

	promReg := prometheus.NewRegistry()
	metrics := telemetry.New(promReg)

	httpc := resty.New().SetTimeout(30 * time.Second)
	deps := provider.Deps{
		Pool:     pool,
		HTTP:     httpc,
		Recorder: metrics,
		Logger:   logger,
	}

	registry := provider.NewRegistry()
	// Priority follows the historical provider order; lower runs first in
	// level-3 research and in tie-breaking.
	if pool.Has("FIRECRAWL") {
		registry.Register(provider.NewFirecrawl(deps), 1)
	}
	var jina *provider.Jina
	if pool.Has("JINA") {
		jina = provider.NewJina(deps)
		registry.Register(jina, 2)
	}
	if pool.Has("GOOGLE") && cfg.GoogleCSEID != "" {
		registry.Register(provider.NewGoogleCSE(cfg.GoogleCSEID, deps), 3)
	}
	if pool.Has("EXA") {
		registry.Register(provider.NewExa(deps), 4)
	}
	if pool.Has("SERPER") {
		registry.Register(provider.NewSerper(deps), 5)
	}
	registry.Register(provider.NewHTMLScrape(deps), 6)
	if pool.Has("YOUTUBE") {
		registry.Register(provider.NewYouTube(deps), 7)
	}
	if pool.Has("SUPADATA") {
		registry.Register(provider.NewSupadata(cfg.SupadataAPIURL, deps), 8)
	}
	if pool.Has("X") {
		registry.Register(provider.NewTwitter(deps), 9)
	}
	if cfg.EnableTrends && pool.Has("TRENDS") && cfg.TrendsAPIURL != "" {
		registry.Register(provider.NewTrends(cfg.TrendsAPIURL, deps), 10)
	}

	session := extract.NewSession(extract.SessionConfig{Logger: logger})
	var reader extract.ReaderFunc
	if jina != nil {
		reader = jina.Read
	}
	extractor := extract.New(extract.Config{
		Reader:  reader,
		Session: session,
		Logger:  logger,
	})

	var generate study.Generator
	var studyEngine *study.Engine
	if cfg.GeminiAPIKey != "" {
		var err error
		generate, err = study.GeminiGenerator(context.Background(), cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize generator: %w", err)
		}
		studyEngine = study.New(study.Config{
			Generate:    generate,
			TotalBudget: cfg.StudyBudget(),
			Logger:      logger,
		})
	}

	researcher := research.New(research.Config{
		Registry:    registry,
		Filter:      urlfilter.New(),
		Extractor:   extractor,
		Session:     session,
		Generate:    research.TextGenerator(generate),
		MaxPages:    cfg.MaxPages,
		DepthLevels: cfg.DepthLevels,
		MinQuality:  cfg.MinQualityScore,
		Logger:      logger,
	})

	tools := viral.NewToolClient(viral.ToolClientConfig{
		HTTP:             resty.New().SetTimeout(15 * time.Second),
		DisableFallbacks: cfg.DisableFallbacks,
		Logger:           logger,
	})
	discovery := viral.NewDiscovery(viral.DiscoveryConfig{
		Registry:             registry,
		Tools:                tools,
		MaxImagesPerPlatform: cfg.MaxImagesPerPlatform,
		Logger:               logger,
	})

	screenshotter := capture.NewScreenshotter(capture.ScreenshotterConfig{
		SessionsRoot:  cfg.SessionsRoot,
		AnnotateBadge: true,
		Logger:        logger,
	})
	downloader := capture.NewImageDownloader(capture.DownloaderConfig{
		ImagesRoot: cfg.ImagesRoot,
		MinBytes:   cfg.MinImageBytes,
		Logger:     logger,
	})

	return &Orchestrator{
		config:        cfg,
		logger:        logger.With().Str("component", "orchestrator").Logger(),
		pool:          pool,
		registry:      registry,
		metrics:       metrics,
		promReg:       promReg,
		researcher:    researcher,
		discovery:     discovery,
		screenshotter: screenshotter,
		downloader:    downloader,
		studyEngine:   studyEngine,
		now:           time.Now,
	}, nil
}

// MetricsRegistry exposes the Prometheus registry for scraping.
func (o *Orchestrator) MetricsRegistry() *prometheus.Registry { return o.promReg }

// KeyStats exposes the credential pool counters.
func (o *Orchestrator) KeyStats() map[string]keypool.ProviderKeyStats { return o.pool.Stats() }

// Collect runs one collection end to end. A blank query or an unsafe
// session id is rejected up front with ErrEmptyQuery or
// ErrInvalidSessionID and a nil artifact. Past that check an artifact is
// always returned; the error is then non-nil only on hard failure (storage
// unwritable), and the returned artifact is the emergency record.
func (o *Orchestrator) Collect(ctx context.Context, query string, rctx Context, sessionID string) (*MassiveData, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}
	if !validSessionID(sessionID) {
		return nil, ErrInvalidSessionID
	}

	ctx, cancel := context.WithTimeout(ctx, o.config.RunBudget())
	defer cancel()

	start := o.now().UTC()
	data := &MassiveData{
		SessionID:         sessionID,
		Query:             query,
		Context:           rctx,
		CollectionStarted: start,
	}

	sessionDir := filepath.Join(o.config.SessionsRoot, sessionID)
	for _, dir := range []string{filepath.Join(sessionDir, "files"), filepath.Join(sessionDir, "modules")} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			data.EmergencyMode = true
			data.EmergencyReason = fmt.Sprintf("diretório de sessão indisponível: %v", err)
			return data, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
		}
	}

	enhanced := EnhanceQuery(query, start)
	o.logger.Info().Str("session", sessionID).Str("query", enhanced).Msg("collection started")

	// Phases A/B/C overlap: web research, trends and the social fan-out
	// run concurrently; each failure stays inside its own section.
	var wg sync.WaitGroup
	var researchReport *research.Report
	var trendsResp provider.Response
	var findResult *viral.FindResult
	var mu sync.Mutex
	socialResps := make([]provider.Response, 0, 4)

	wg.Add(1)
	go func() {
		defer wg.Done()
		researchReport = o.researcher.Run(ctx, enhanced, rctx)
	}()

	if trends, ok := o.registry.Get("TRENDS"); ok {
		wg.Add(1)
		go func() {
			defer wg.Done()
			trendsResp = trends.Search(ctx, query, provider.Limits{MaxResults: 20})
		}()
	}

	for _, social := range o.registry.ByKind(provider.KindSocial) {
		wg.Add(1)
		go func(s provider.Searcher) {
			defer wg.Done()
			resp := s.Search(ctx, enhanced, provider.Limits{MaxResults: 50})
			mu.Lock()
			socialResps = append(socialResps, resp)
			mu.Unlock()
		}(social)
	}
	for _, video := range o.registry.ByKind(provider.KindVideo) {
		wg.Add(1)
		go func(s provider.Searcher) {
			defer wg.Done()
			resp := s.Search(ctx, enhanced, provider.Limits{MaxResults: 25})
			mu.Lock()
			socialResps = append(socialResps, resp)
			mu.Unlock()
		}(video)
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		findResult = o.discovery.Find(ctx, query, nil)
	}()

	wg.Wait()
	sort.SliceStable(socialResps, func(i, j int) bool {
		return o.registry.Priority(socialResps[i].Provider) < o.registry.Priority(socialResps[j].Provider)
	})

	o.assembleSections(data, researchReport, trendsResp, socialResps, findResult)

	// Phase D: viral identification over everything social.
	allPosts := collectPosts(socialResps, findResult)
	top := viral.Identify(allPosts)
	if len(top) > 10 {
		top = top[:10]
	}
	o.assembleViral(data, top, findResult)

	// Phase E: visual capture, sequential and failure-tolerant.
	if o.config.EnableScreenshots {
		o.captureScreenshots(ctx, data, top)
	}
	if o.config.EnableImageDownloads && findResult != nil {
		o.downloadImages(ctx, data, findResult)
	}

	// Optional deep study before persistence.
	if o.config.EnableDeepStudy && o.studyEngine != nil {
		data.ExpertKnowledge = o.studyEngine.Run(ctx, data)
	}

	// Phase F: stats and persistence.
	data.CollectionEnded = o.now().UTC()
	o.computeStats(data)
	if err := o.persist(data, sessionDir); err != nil {
		data.EmergencyMode = true
		data.EmergencyReason = fmt.Sprintf("falha ao gravar artefatos: %v", err)
		return data, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	o.logger.Info().
		Str("session", sessionID).
		Int("sources", data.Statistics.TotalSources).
		Int("screenshots", data.Statistics.ScreenshotCount).
		Float64("seconds", data.Statistics.CollectionTime).
		Msg("collection finished")
	return data, nil
}

func (o *Orchestrator) assembleSections(data *MassiveData, researchReport *research.Report, trendsResp provider.Response, socialResps []provider.Response, findResult *viral.FindResult) {
	// Web section.
	if researchReport != nil {
		data.Research = researchReport
		data.ExtractedContent = researchReport.Pages
		data.WebSearchData = artifact.WebSection{
			Success: !researchReport.EmergencyMode,
			Results: researchReport.Results,
		}
		if researchReport.EmergencyMode {
			data.WebSearchData.Error = researchReport.EmergencyReason
		}
		for _, name := range sortedKeys(researchReport.Failures) {
			data.Errors = append(data.Errors, artifact.SourceError{Source: name, Message: researchReport.Failures[name]})
		}
	}

	// Trends section.
	if trendsResp.Provider != "" {
		data.TrendsData = artifact.TrendsSection{
			Success: trendsResp.OK(),
			Error:   trendsResp.Reason,
			Topics:  trendsResp.Results,
		}
		if !trendsResp.OK() {
			data.Errors = append(data.Errors, artifact.SourceError{Source: trendsResp.Provider, Message: trendsResp.Reason})
		}
	}

	// Social section: normalize everything into per-platform buckets.
	platforms := make(map[string]artifact.PlatformBucket)
	anySocial := false
	for _, resp := range socialResps {
		if !resp.OK() {
			data.Errors = append(data.Errors, artifact.SourceError{Source: resp.Provider, Message: resp.Reason})
			continue
		}
		anySocial = anySocial || len(resp.Results) > 0
		for _, result := range resp.Results {
			post, ok := postFromResult(result)
			if !ok {
				continue
			}
			bucket := platforms[post.Platform]
			bucket.Posts = append(bucket.Posts, post)
			platforms[post.Platform] = bucket
		}
	}
	if findResult != nil {
		for _, post := range findResult.Posts {
			bucket := platforms[post.Platform]
			bucket.Posts = append(bucket.Posts, post)
			platforms[post.Platform] = bucket
		}
		anySocial = anySocial || len(findResult.Posts) > 0
		for _, platform := range sortedKeys(findResult.Failures) {
			data.Errors = append(data.Errors, artifact.SourceError{
				Source:  "discovery:" + platform,
				Message: findResult.Failures[platform],
			})
		}
	}
	for platform, bucket := range platforms {
		bucket.Posts = viral.ScoreAll(dedupePosts(bucket.Posts))
		sort.SliceStable(bucket.Posts, func(i, j int) bool {
			return bucket.Posts[i].ViralScore > bucket.Posts[j].ViralScore
		})
		platforms[platform] = bucket
	}
	data.SocialMediaData = artifact.SocialSection{
		Success:   anySocial,
		Platforms: platforms,
	}
	if !anySocial {
		data.SocialMediaData.Error = "nenhuma plataforma social retornou resultados"
	}
}

func (o *Orchestrator) assembleViral(data *MassiveData, top []viral.Post, findResult *viral.FindResult) {
	section := artifact.ViralSection{
		Success:    len(top) > 0,
		Posts:      top,
		TotalFound: len(top),
	}
	if findResult != nil {
		section.Images = findResult.Images
	}
	if len(top) > 0 {
		var sum float64
		for _, p := range top {
			sum += p.ViralScore
		}
		section.AvgEngagement = sum / float64(len(top))
	} else {
		section.Error = "nenhum conteúdo atingiu o score mínimo de captura"
	}
	data.ViralContent = section
}

// captureScreenshots captures the general top URLs and the viral posts.
func (o *Orchestrator) captureScreenshots(ctx context.Context, data *MassiveData, top []viral.Post) {
	general := o.generalTargets(data, 8)
	shots := o.screenshotter.Capture(ctx, general, data.SessionID, "", "colheita")

	var viralTargets []capture.Target
	for _, p := range top {
		if p.ViralScore < o.config.MinViralScoreForCapture {
			continue
		}
		viralTargets = append(viralTargets, capture.Target{
			URL:           p.URL,
			Title:         p.Title,
			Platform:      p.Platform,
			ViralScore:    p.ViralScore,
			ViralCategory: string(p.ViralCategory),
			Metrics: map[string]int64{
				"views":    p.Metrics.Views,
				"likes":    p.Metrics.Likes,
				"comments": p.Metrics.Comments,
				"shares":   p.Metrics.Shares,
			},
		})
	}
	viralShots := o.screenshotter.Capture(ctx, viralTargets, data.SessionID, "viral_screenshots", "viral_content")

	data.ScreenshotsCaptured = append(shots, viralShots...)

	// Link viral screenshots back into the image records.
	byURL := make(map[string]string, len(viralShots))
	for _, shot := range viralShots {
		byURL[shot.SourceURL] = shot.RelativePath
	}
	for i := range data.ViralContent.Images {
		if rel, ok := byURL[data.ViralContent.Images[i].PostURL]; ok {
			data.ViralContent.Images[i].ScreenshotLocalPath = rel
		}
	}
}

// generalTargets ranks capture candidates: viral score descending, then
// page quality descending.
func (o *Orchestrator) generalTargets(data *MassiveData, max int) []capture.Target {
	var targets []capture.Target
	seen := make(map[string]struct{})
	push := func(t capture.Target) {
		if len(targets) >= max {
			return
		}
		if _, dup := seen[t.URL]; dup || t.URL == "" {
			return
		}
		seen[t.URL] = struct{}{}
		targets = append(targets, t)
	}

	for _, p := range data.ViralContent.Posts {
		push(capture.Target{
			URL:           p.URL,
			Title:         p.Title,
			Platform:      p.Platform,
			ViralScore:    p.ViralScore,
			ViralCategory: string(p.ViralCategory),
		})
	}
	for _, page := range data.ExtractedContent {
		push(capture.Target{URL: page.URL, Title: page.Title})
	}
	return targets
}

func (o *Orchestrator) downloadImages(ctx context.Context, data *MassiveData, findResult *viral.FindResult) {
	var requests []capture.ImageRequest
	for _, img := range findResult.Images {
		if img.ImageURL == "" {
			continue
		}
		requests = append(requests, capture.ImageRequest{
			ImageURL: img.ImageURL,
			PostURL:  img.PostURL,
			Platform: img.Platform,
			Title:    img.Title,
		})
	}
	downloaded := o.downloader.Download(ctx, requests, data.SessionID)
	data.DownloadedImages = downloaded

	byImageURL := make(map[string]string, len(downloaded))
	for _, img := range downloaded {
		byImageURL[img.ImageURL] = img.LocalPath
	}
	for i := range data.ViralContent.Images {
		if local, ok := byImageURL[data.ViralContent.Images[i].ImageURL]; ok {
			data.ViralContent.Images[i].ImageLocalPath = local
		}
	}
}

func (o *Orchestrator) computeStats(data *MassiveData) {
	stats := artifact.Stats{
		SourcesByType: make(map[string]int),
		APICalls:      make(map[string]int),
		APIRotations:  make(map[string]int),
		SuccessRate:   make(map[string]float64),
	}

	webCount := len(data.WebSearchData.Results)
	youtubeCount := 0
	socialCount := 0
	for platform, bucket := range data.SocialMediaData.Platforms {
		if platform == "youtube" {
			youtubeCount += len(bucket.Posts)
		} else {
			socialCount += len(bucket.Posts)
		}
	}
	trendsCount := len(data.TrendsData.Topics)

	stats.SourcesByType["web"] = webCount
	stats.SourcesByType["social"] = socialCount
	stats.SourcesByType["youtube"] = youtubeCount
	stats.SourcesByType["trends"] = trendsCount
	stats.TotalSources = webCount + socialCount + youtubeCount + trendsCount

	unique := make(map[string]struct{})
	for _, r := range data.WebSearchData.Results {
		unique[r.URL] = struct{}{}
	}
	for _, bucket := range data.SocialMediaData.Platforms {
		for _, p := range bucket.Posts {
			unique[p.URL] = struct{}{}
		}
	}
	for _, page := range data.ExtractedContent {
		unique[page.URL] = struct{}{}
		stats.TotalContentLength += len(page.Content)
	}
	stats.UniqueURLs = len(unique)

	for name, s := range o.metrics.Snapshot() {
		stats.APICalls[name] = s.Calls
		stats.SuccessRate[name] = s.SuccessRate()
	}
	for name, s := range o.pool.Stats() {
		stats.APIRotations[name] = s.Rotations
	}

	stats.ScreenshotCount = len(data.ScreenshotsCaptured)
	stats.CollectionTime = data.CollectionEnded.Sub(data.CollectionStarted).Seconds()
	data.Statistics = stats
}

// persist writes the JSON artifact, the Markdown report and the
// incorporation report under the session directory.
func (o *Orchestrator) persist(data *MassiveData, sessionDir string) error {
	payload, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode artifact: %w", err)
	}
	if err := os.WriteFile(filepath.Join(sessionDir, "massive_data.json"), payload, 0644); err != nil {
		return fmt.Errorf("failed to write massive_data.json: %w", err)
	}
	if err := os.WriteFile(filepath.Join(sessionDir, "relatorio_coleta.md"), report.Markdown(data), 0644); err != nil {
		return fmt.Errorf("failed to write relatorio_coleta.md: %w", err)
	}
	incorporation := report.Incorporation(data)
	if err := os.WriteFile(filepath.Join(sessionDir, "incorporation_report.txt"), []byte(incorporation), 0644); err != nil {
		return fmt.Errorf("failed to write incorporation_report.txt: %w", err)
	}
	return nil
}

// postFromResult normalizes a provider result carrying social stats into
// a Post. Results without stats are not social posts.
func postFromResult(r provider.SearchResult) (viral.Post, bool) {
	if r.Social == nil {
		return viral.Post{}, false
	}
	return viral.Post{
		Platform:        r.Social.Platform,
		URL:             r.URL,
		Title:           r.Title,
		Description:     r.Snippet,
		Author:          r.Social.Author,
		AuthorFollowers: r.Social.AuthorFollowers,
		Metrics: viral.Metrics{
			Platform: r.Social.Platform,
			Views:    r.Social.Views,
			Likes:    r.Social.Likes,
			Comments: r.Social.Comments,
			Shares:   r.Social.Shares,
			Retweets: r.Social.Retweets,
			Replies:  r.Social.Replies,
			Quotes:   r.Social.Quotes,
		},
		Hashtags:   viral.Hashtags(r.Snippet),
		Mentions:   viral.Mentions(r.Snippet),
		PostedAt:   r.PublishedAt,
		Indicators: viral.Indicators(r.Snippet),
	}, true
}

func collectPosts(socialResps []provider.Response, findResult *viral.FindResult) []viral.Post {
	var posts []viral.Post
	for _, resp := range socialResps {
		if !resp.OK() {
			continue
		}
		for _, result := range resp.Results {
			if post, ok := postFromResult(result); ok {
				posts = append(posts, post)
			}
		}
	}
	if findResult != nil {
		posts = append(posts, findResult.Posts...)
	}
	return dedupePosts(posts)
}

func dedupePosts(posts []viral.Post) []viral.Post {
	seen := make(map[string]struct{}, len(posts))
	out := posts[:0:0]
	for _, p := range posts {
		if p.URL == "" {
			continue
		}
		if _, dup := seen[p.URL]; dup {
			continue
		}
		seen[p.URL] = struct{}{}
		out = append(out, p)
	}
	return out
}

func sortedKeys[M ~map[string]V, V any](m M) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
