// Package extract turns URLs into clean article text and scores its quality.
package extract

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
	"golang.org/x/net/html/charset"
)

// userAgents is the rotating pool applied to outbound fetches.
var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/125.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:127.0) Gecko/20100101 Firefox/127.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10.15; rv:126.0) Gecko/20100101 Firefox/126.0",
}

// SessionConfig holds the shared HTTP session configuration.
type SessionConfig struct {
	// Timeout per fetch. Default: 30s.
	Timeout time.Duration

	// RetryCount on 429/5xx. Default: 3, exponential backoff, 1s base.
	RetryCount int

	Logger zerolog.Logger
}

// Session is the HTTP fetch layer shared by all extraction strategies.
// It rotates User-Agents and retries tolerantly; on certificate errors a
// single retry with verification disabled is attempted (never for
// authenticated requests, which do not go through this session).
type Session struct {
	client   *resty.Client
	insecure *resty.Client
	uaCursor atomic.Uint64
	logger   zerolog.Logger
}

// NewSession creates the shared fetch session.
func NewSession(cfg SessionConfig) *Session {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.RetryCount <= 0 {
		cfg.RetryCount = 3
	}

	build := func(insecureSkipVerify bool) *resty.Client {
		c := resty.New().
			SetTimeout(cfg.Timeout).
			SetRetryCount(cfg.RetryCount).
			SetRetryWaitTime(time.Second).
			SetRetryMaxWaitTime(10 * time.Second).
			AddRetryCondition(func(r *resty.Response, err error) bool {
				if err != nil {
					return false
				}
				return r.StatusCode() == 429 || r.StatusCode() >= 500
			})
		if insecureSkipVerify {
			c.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
		}
		return c
	}

	return &Session{
		client:   build(false),
		insecure: build(true),
		logger:   cfg.Logger.With().Str("component", "extract.session").Logger(),
	}
}

func (s *Session) nextUserAgent() string {
	n := s.uaCursor.Add(1)
	return userAgents[int(n)%len(userAgents)]
}

// Get fetches a URL and returns its body as a string.
func (s *Session) Get(ctx context.Context, url string) (string, error) {
	ua := s.nextUserAgent()
	resp, err := s.client.R().
		SetContext(ctx).
		SetHeader("User-Agent", ua).
		SetHeader("Accept-Language", "pt-BR,pt;q=0.9,en;q=0.6").
		Get(url)
	if err != nil {
		if isCertError(err) {
			s.logger.Warn().Str("url", url).Msg("certificate error, retrying without verification")
			return s.getInsecure(ctx, url, ua)
		}
		return "", err
	}
	if resp.StatusCode() >= 400 {
		return "", fmt.Errorf("fetch %s: status %d", url, resp.StatusCode())
	}
	return decodeBody(resp.Body(), resp.Header().Get("Content-Type")), nil
}

func (s *Session) getInsecure(ctx context.Context, url, ua string) (string, error) {
	resp, err := s.insecure.R().
		SetContext(ctx).
		SetHeader("User-Agent", ua).
		Get(url)
	if err != nil {
		return "", err
	}
	if resp.StatusCode() >= 400 {
		return "", fmt.Errorf("fetch %s: status %d", url, resp.StatusCode())
	}
	return decodeBody(resp.Body(), resp.Header().Get("Content-Type")), nil
}

// decodeBody converts legacy charsets (ISO-8859-1 is still common on
// Brazilian sites) to UTF-8. Undetectable input passes through as is.
func decodeBody(body []byte, contentType string) string {
	reader, err := charset.NewReader(bytes.NewReader(body), contentType)
	if err != nil {
		return string(body)
	}
	decoded, err := io.ReadAll(reader)
	if err != nil {
		return string(body)
	}
	return string(decoded)
}

func isCertError(err error) bool {
	var unknownAuthority x509.UnknownAuthorityError
	var hostname x509.HostnameError
	var invalid x509.CertificateInvalidError
	if errors.As(err, &unknownAuthority) || errors.As(err, &hostname) || errors.As(err, &invalid) {
		return true
	}
	var certErr *tls.CertificateVerificationError
	if errors.As(err, &certErr) {
		return true
	}
	return strings.Contains(err.Error(), "x509:")
}
