package extract

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Extraction is the successful output of one URL.
type Extraction struct {
	URL       string
	Title     string
	Content   string
	Method    string
	WordCount int
}

// Common errors returned by the extractor.
var (
	// ErrTooShort marks a strategy whose text falls below MinContentChars.
	// Extract does not wrap it; it shows up in the message of
	// ErrAllStrategiesFailed.
	ErrTooShort = errors.New("extract: content below minimum length")

	// ErrAllStrategiesFailed is returned when no strategy produced at least
	// MinContentChars characters, whether it errored or came up short.
	ErrAllStrategiesFailed = errors.New("extract: all strategies failed")
)

const (
	// MinContentChars is the acceptance floor for extracted text.
	MinContentChars = 300

	// maxContentChars bounds reader output; longer text is cut with an
	// explicit truncation marker.
	maxContentChars = 15000

	truncationMarker = "\n\n[... conteúdo truncado ...]"
)

// ReaderFunc fetches cleaned text for a URL through an external reader
// service. Optional; when nil the reader strategy is skipped.
type ReaderFunc func(ctx context.Context, url string) (string, error)

// Config holds extractor configuration.
type Config struct {
	// Reader is the reader-service strategy backend (optional).
	Reader ReaderFunc

	// Session is the shared fetch session. Required.
	Session *Session

	Logger zerolog.Logger
}

// Extractor tries a fixed chain of strategies against a single URL and
// returns the first result with at least MinContentChars characters.
type Extractor struct {
	reader  ReaderFunc
	session *Session
	logger  zerolog.Logger
}

type strategy struct {
	name string
	run  func(ctx context.Context, url string) (text, title string, err error)
}

// New creates an extractor.
func New(cfg Config) *Extractor {
	return &Extractor{
		reader:  cfg.Reader,
		session: cfg.Session,
		logger:  cfg.Logger.With().Str("component", "extractor").Logger(),
	}
}

// Extract runs the strategy chain. Order: reader service, readability,
// structured HTML. The TLS-tolerant retry lives inside the session.
func (e *Extractor) Extract(ctx context.Context, url string) (Extraction, error) {
	start := time.Now()
	var errs []error

	for _, s := range e.strategies() {
		text, title, err := s.run(ctx, url)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.name, err))
			continue
		}
		text = normalizeWhitespace(text)
		if len(text) < MinContentChars {
			errs = append(errs, fmt.Errorf("%s: %w (%d chars)", s.name, ErrTooShort, len(text)))
			continue
		}
		if len(text) > maxContentChars {
			text = text[:maxContentChars] + truncationMarker
		}

		e.logger.Debug().
			Str("url", url).
			Str("method", s.name).
			Int("chars", len(text)).
			Dur("took", time.Since(start)).
			Msg("extraction succeeded")

		return Extraction{
			URL:       url,
			Title:     title,
			Content:   text,
			Method:    s.name,
			WordCount: len(strings.Fields(text)),
		}, nil
	}

	return Extraction{}, fmt.Errorf("%w: %s", ErrAllStrategiesFailed, errors.Join(errs...))
}

func (e *Extractor) strategies() []strategy {
	var out []strategy
	if e.reader != nil {
		out = append(out, strategy{name: "reader_service", run: e.runReader})
	}
	out = append(out,
		strategy{name: "readability", run: e.runReadability},
		strategy{name: "structured_html", run: e.runStructured},
	)
	return out
}

func (e *Extractor) runReader(ctx context.Context, url string) (string, string, error) {
	text, err := e.reader(ctx, url)
	if err != nil {
		return "", "", err
	}
	return text, titleFromReaderText(text), nil
}

func (e *Extractor) runReadability(ctx context.Context, url string) (string, string, error) {
	html, err := e.session.Get(ctx, url)
	if err != nil {
		return "", "", err
	}
	return readabilityExtract(html)
}

func (e *Extractor) runStructured(ctx context.Context, url string) (string, string, error) {
	html, err := e.session.Get(ctx, url)
	if err != nil {
		return "", "", err
	}
	return structuredExtract(html)
}

// titleFromReaderText picks the first non-empty line as a title; reader
// services usually lead with one.
func titleFromReaderText(text string) string {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(strings.TrimPrefix(line, "Title:"))
		if line != "" {
			if len(line) > 200 {
				line = line[:200]
			}
			return line
		}
	}
	return ""
}

func normalizeWhitespace(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	blank := 0
	for _, line := range lines {
		line = strings.TrimRight(line, " \t")
		if strings.TrimSpace(line) == "" {
			blank++
			if blank > 1 {
				continue
			}
		} else {
			blank = 0
		}
		out = append(out, line)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}
