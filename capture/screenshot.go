// Package capture produces the visual evidence of a collection run:
// page screenshots through a headless browser and image downloads.
package capture

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/rs/zerolog"
)

// Viewport defines browser viewport dimensions.
type Viewport struct {
	Width  int
	Height int
}

// DesktopViewport is the default capture viewport.
var DesktopViewport = Viewport{Width: 1920, Height: 1080}

// MobileViewport is used for mobile-variant captures.
var MobileViewport = Viewport{Width: 375, Height: 812}

const desktopUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36"

// cleanupJS hides cookie banners, popups and modal overlays before the
// shot is taken. Containers are matched by class/id substrings.
const cleanupJS = `() => {
	const needles = ['cookie', 'consent', 'gdpr', 'popup', 'modal', 'overlay',
		'newsletter', 'banner', 'lgpd', 'subscribe', 'paywall'];
	const nodes = document.querySelectorAll('div, section, aside');
	for (const node of nodes) {
		const key = ((node.className || '') + ' ' + (node.id || '')).toLowerCase();
		if (needles.some(n => key.includes(n))) {
			node.style.display = 'none';
		}
	}
	document.body.style.overflow = 'auto';
}`

// Target is one URL queued for capture, with the viral attribution that
// ends up in the record.
type Target struct {
	URL           string
	Title         string
	Platform      string
	ViralScore    float64
	ViralCategory string
	Metrics       map[string]int64
}

// Screenshot is the per-capture record. RelativePath is session-scoped so
// the artifact stays relocatable; AbsolutePath only serves the current run.
type Screenshot struct {
	RelativePath   string           `json:"relative_path"`
	AbsolutePath   string           `json:"-"`
	SourceURL      string           `json:"source_url"`
	FinalURL       string           `json:"final_url"`
	Title          string           `json:"title,omitempty"`
	Platform       string           `json:"platform,omitempty"`
	ViralScore     float64          `json:"viral_score,omitempty"`
	ViralCategory  string           `json:"viral_category,omitempty"`
	CapturedAt     time.Time        `json:"captured_at"`
	FileSizeBytes  int64            `json:"file_size_bytes"`
	ContentMetrics map[string]int64 `json:"content_metrics,omitempty"`
}

// ScreenshotterConfig holds capture configuration.
type ScreenshotterConfig struct {
	// SessionsRoot is the base directory for session output.
	SessionsRoot string

	// Viewport for captures. Default: DesktopViewport.
	Viewport Viewport

	// PerURLTimeout bounds one navigation+capture. Default: 30s.
	PerURLTimeout time.Duration

	// RenderWait is the fixed settle window after load. Default: 3s.
	RenderWait time.Duration

	// AnnotateBadge draws the viral-score badge on viral captures.
	AnnotateBadge bool

	Logger zerolog.Logger
}

// Screenshotter owns the headless browser for the duration of one capture
// batch. The browser driver is not thread-safe, so captures run
// sequentially on a single session.
type Screenshotter struct {
	config ScreenshotterConfig
	logger zerolog.Logger

	// launch is swappable in tests.
	launch func() (*rod.Browser, func(), error)
}

// NewScreenshotter creates a Screenshotter.
func NewScreenshotter(cfg ScreenshotterConfig) *Screenshotter {
	if cfg.Viewport.Width == 0 || cfg.Viewport.Height == 0 {
		cfg.Viewport = DesktopViewport
	}
	if cfg.PerURLTimeout <= 0 {
		cfg.PerURLTimeout = 30 * time.Second
	}
	if cfg.RenderWait <= 0 {
		cfg.RenderWait = 3 * time.Second
	}
	s := &Screenshotter{
		config: cfg,
		logger: cfg.Logger.With().Str("component", "capture").Logger(),
	}
	s.launch = s.launchHeadless
	return s
}

func (s *Screenshotter) launchHeadless() (*rod.Browser, func(), error) {
	u, err := launcher.New().
		Headless(true).
		Set("disable-gpu").
		Set("no-sandbox").
		Launch()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to launch browser: %w", err)
	}
	browser := rod.New().ControlURL(u)
	if err := browser.Connect(); err != nil {
		return nil, nil, fmt.Errorf("failed to connect browser: %w", err)
	}
	return browser, func() { _ = browser.Close() }, nil
}

// Capture navigates every target sequentially and saves PNG files under
// {sessionsRoot}/{sessionID}/files/{subdir}. Individual failures are
// logged and skipped; they never fail the batch.
func (s *Screenshotter) Capture(ctx context.Context, targets []Target, sessionID, subdir, prefix string) []Screenshot {
	if len(targets) == 0 {
		return nil
	}

	dir := filepath.Join(s.config.SessionsRoot, sessionID, "files")
	if subdir != "" {
		dir = filepath.Join(dir, subdir)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		s.logger.Error().Err(err).Str("dir", dir).Msg("cannot create screenshot directory")
		return nil
	}

	browser, closeBrowser, err := s.launch()
	if err != nil {
		s.logger.Error().Err(err).Msg("browser unavailable, skipping screenshots")
		return nil
	}
	defer closeBrowser()

	var shots []Screenshot
	for i, target := range targets {
		select {
		case <-ctx.Done():
			s.logger.Warn().Msg("capture cancelled, returning partial batch")
			return shots
		default:
		}

		name := fmt.Sprintf("%s_%02d.png", prefix, i+1)
		absPath := filepath.Join(dir, name)
		shot, err := s.captureOne(browser, target, absPath)
		if err != nil {
			s.logger.Warn().Str("url", target.URL).Err(err).Msg("capture failed, skipping")
			continue
		}
		rel := filepath.Join("files", subdir, name)
		if subdir == "" {
			rel = filepath.Join("files", name)
		}
		shot.RelativePath = rel
		shots = append(shots, *shot)
	}
	return shots
}

func (s *Screenshotter) captureOne(browser *rod.Browser, target Target, absPath string) (*Screenshot, error) {
	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, fmt.Errorf("failed to create page: %w", err)
	}
	defer page.Close()

	page = page.Timeout(s.config.PerURLTimeout)

	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             s.config.Viewport.Width,
		Height:            s.config.Viewport.Height,
		DeviceScaleFactor: 1.0,
		Mobile:            false,
	}); err != nil {
		return nil, fmt.Errorf("failed to set viewport: %w", err)
	}
	if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: desktopUserAgent}); err != nil {
		return nil, fmt.Errorf("failed to set user agent: %w", err)
	}

	if err := page.Navigate(target.URL); err != nil {
		return nil, fmt.Errorf("failed to navigate: %w", err)
	}
	if _, err := page.Element("body"); err != nil {
		return nil, fmt.Errorf("body never appeared: %w", err)
	}

	// Fixed render window, then popup cleanup and a scroll pass to
	// trigger lazy loads.
	time.Sleep(s.config.RenderWait)
	if _, err := page.Eval(cleanupJS); err != nil {
		s.logger.Debug().Err(err).Msg("cleanup script failed")
	}
	_, _ = page.Eval(`() => window.scrollTo(0, document.body.scrollHeight / 2)`)
	time.Sleep(time.Second)
	_, _ = page.Eval(`() => window.scrollTo(0, 0)`)
	time.Sleep(500 * time.Millisecond)

	data, err := page.Screenshot(false, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to take screenshot: %w", err)
	}

	if s.config.AnnotateBadge && target.ViralScore > 0 {
		if annotated, err := AnnotateBadge(data, target.ViralScore, target.ViralCategory); err == nil {
			data = annotated
		}
	}

	if err := os.WriteFile(absPath, data, 0644); err != nil {
		return nil, fmt.Errorf("failed to save screenshot: %w", err)
	}
	info, err := os.Stat(absPath)
	if err != nil || info.Size() == 0 {
		return nil, fmt.Errorf("screenshot file missing or empty: %s", absPath)
	}

	finalURL := target.URL
	if pageInfo, err := page.Info(); err == nil && pageInfo.URL != "" {
		finalURL = pageInfo.URL
	}

	return &Screenshot{
		AbsolutePath:   absPath,
		SourceURL:      target.URL,
		FinalURL:       finalURL,
		Title:          target.Title,
		Platform:       target.Platform,
		ViralScore:     target.ViralScore,
		ViralCategory:  target.ViralCategory,
		CapturedAt:     time.Now().UTC(),
		FileSizeBytes:  info.Size(),
		ContentMetrics: target.Metrics,
	}, nil
}
