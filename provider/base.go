package provider

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/zaircost/garimpo/keypool"
)

// restyResponse keeps client files free of a direct resty import.
type restyResponse = resty.Response

// Recorder receives telemetry events from provider clients.
type Recorder interface {
	RecordCall(provider string, ok bool, took time.Duration)
	RecordRotation(provider string)
}

// NopRecorder discards telemetry.
type NopRecorder struct{}

func (NopRecorder) RecordCall(string, bool, time.Duration) {}
func (NopRecorder) RecordRotation(string)                  {}

// Common errors surfaced as soft failures.
var (
	ErrNoCredentials = errors.New("provider: no usable credentials")
	ErrBreakerOpen   = errors.New("provider: circuit breaker open")
)

// Deps bundles what every client needs.
type Deps struct {
	Pool     *keypool.Pool
	HTTP     *resty.Client
	Recorder Recorder
	Logger   zerolog.Logger

	// InterCallDelay is the client-side per-provider delay between
	// dispatches. Default: 500ms.
	InterCallDelay time.Duration
}

// base carries the shared plumbing embedded by each client.
type base struct {
	name     string
	kind     Kind
	keyless  bool
	pool     *keypool.Pool
	http     *resty.Client
	limiter  *rate.Limiter
	breaker  *gobreaker.CircuitBreaker[*resty.Response]
	recorder Recorder
	logger   zerolog.Logger
}

func newBase(name string, kind Kind, keyless bool, deps Deps) base {
	delay := deps.InterCallDelay
	if delay <= 0 {
		delay = 500 * time.Millisecond
	}
	rec := deps.Recorder
	if rec == nil {
		rec = NopRecorder{}
	}
	settings := gobreaker.Settings{
		Name:    name,
		Timeout: time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	}
	return base{
		name:     name,
		kind:     kind,
		keyless:  keyless,
		pool:     deps.Pool,
		http:     deps.HTTP,
		limiter:  rate.NewLimiter(rate.Every(delay), 1),
		breaker:  gobreaker.NewCircuitBreaker[*resty.Response](settings),
		recorder: rec,
		logger:   deps.Logger.With().Str("provider", name).Logger(),
	}
}

func (b *base) Name() string { return b.name }
func (b *base) Kind() Kind   { return b.kind }

// call dispatches one request through the limiter, breaker and key
// rotation. attempt receives the credential secret ("" for keyless
// providers). Non-2xx handling follows the shared contract:
// 400/401/403 mark the key AUTH; 429 marks RATE_LIMIT and retries on the
// next key after a short backoff; 5xx/network marks SERVER_ERROR/NETWORK
// and retries once on a different key.
func (b *base) call(ctx context.Context, attempt func(secret string) (*resty.Response, error)) (*resty.Response, error) {
	if err := b.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	const maxAttempts = 2
	var lastErr error
	for try := 0; try < maxAttempts; try++ {
		var key keypool.Key
		if !b.keyless {
			var ok bool
			key, ok = b.pool.Next(b.name)
			if !ok {
				if lastErr != nil {
					return nil, lastErr
				}
				return nil, ErrNoCredentials
			}
			b.recorder.RecordRotation(b.name)
		}

		start := time.Now()
		resp, err := b.breaker.Execute(func() (*resty.Response, error) {
			return attempt(key.Secret)
		})
		took := time.Since(start)

		switch {
		case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
			b.recorder.RecordCall(b.name, false, took)
			return nil, ErrBreakerOpen

		case err != nil:
			b.recorder.RecordCall(b.name, false, took)
			if !b.keyless {
				b.pool.MarkFailed(key, keypool.FailNetwork)
			}
			lastErr = err
			continue
		}

		status := resp.StatusCode()
		switch {
		case status >= 200 && status < 300:
			b.recorder.RecordCall(b.name, true, took)
			return resp, nil

		case status == 429:
			b.recorder.RecordCall(b.name, false, took)
			if !b.keyless {
				b.pool.MarkFailed(key, keypool.FailRateLimit)
			}
			lastErr = fmt.Errorf("%s: rate limited", b.name)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Second):
			}
			continue

		case status == 400 || status == 401 || status == 403:
			b.recorder.RecordCall(b.name, false, took)
			if !b.keyless {
				b.pool.MarkFailed(key, keypool.FailAuth)
			}
			lastErr = fmt.Errorf("%s: status %d", b.name, status)
			continue

		default:
			b.recorder.RecordCall(b.name, false, took)
			if !b.keyless {
				b.pool.MarkFailed(key, keypool.FailServer)
			}
			lastErr = fmt.Errorf("%s: status %d", b.name, status)
			continue
		}
	}
	return nil, lastErr
}

// softFail wraps an error into the uniform soft-failure response.
func (b *base) softFail(err error) Response {
	reason := "empty_response"
	if err != nil {
		reason = err.Error()
	}
	b.logger.Warn().Str("reason", reason).Msg("provider unavailable")
	return SoftFail(b.name, reason)
}
