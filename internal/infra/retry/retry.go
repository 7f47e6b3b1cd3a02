package retry

// Bounded retry for upstream market-data calls
// Delay between attempts is full jitter over an exponential ceiling, or the
// server's Retry-After when it sends one on 429/503
// What counts as transient is decided per client through Options.Retryable

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Classifier reports whether err is worth another attempt
type Classifier func(err error) bool

type Options struct {
	MaxRetries int // retries after the first attempt
	BaseDelay  time.Duration
	MaxDelay   time.Duration

	Retryable Classifier // nil means IsRetryable
	// OnRetry is called before sleeping; attempt is the 1-based attempt that failed
	OnRetry func(attempt int, delay time.Duration, err error)
}

// Attempts total number of calls Do will make at most
func (o Options) Attempts() int {
	if o.MaxRetries < 0 {
		return 1
	}
	return 1 + o.MaxRetries
}

// HTTPError non-2xx upstream response
type HTTPError struct {
	StatusCode int
	Body       []byte
	RetryAfter time.Duration
}

const maxErrorBody = 256

func (e *HTTPError) Error() string {
	if e == nil {
		return "http error: <nil>"
	}
	text := http.StatusText(e.StatusCode)
	if len(e.Body) == 0 {
		return fmt.Sprintf("http %d %s", e.StatusCode, text)
	}
	body := e.Body
	if len(body) > maxErrorBody {
		body = body[:maxErrorBody]
	}
	return fmt.Sprintf("http %d %s: %s", e.StatusCode, text, strings.TrimSpace(string(body)))
}

// Throttled upstream asked us to slow down
func (e *HTTPError) Throttled() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode == http.StatusServiceUnavailable
}

func transientStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

// IsRetryable 429/500/502/503/504 and network timeouts
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var he *HTTPError
	if errors.As(err, &he) {
		return transientStatus(he.StatusCode)
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// ParseRetryAfter accepts delta-seconds or an HTTP date; anything else is 0
func ParseRetryAfter(v string) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil {
		if secs <= 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	at, err := http.ParseTime(v)
	if err != nil {
		return 0
	}
	return max(time.Until(at), 0)
}

// FullJitterSleep random delay in [0, min(base*2^attempt, max)]
func FullJitterSleep(attempt int, baseDelay, maxDelay time.Duration) time.Duration {
	if baseDelay <= 0 {
		return 0
	}
	ceiling := baseDelay << max(attempt, 0)
	if maxDelay > 0 && (ceiling > maxDelay || ceiling <= 0) {
		ceiling = maxDelay
	}
	if ceiling <= 0 {
		return 0
	}
	return time.Duration(rand.Int63n(int64(ceiling) + 1))
}

func (o Options) delay(attempt int, err error) time.Duration {
	var he *HTTPError
	if errors.As(err, &he) && he.Throttled() && he.RetryAfter > 0 {
		if o.MaxDelay > 0 && he.RetryAfter > o.MaxDelay {
			return o.MaxDelay
		}
		return he.RetryAfter
	}
	return FullJitterSleep(attempt, o.BaseDelay, o.MaxDelay)
}

// Do calls fn until it succeeds, returns a non-retryable error, attempts run
// out or ctx is done. The last error from fn is returned as is.
func Do(ctx context.Context, opts Options, fn func() error) error {
	if opts.BaseDelay <= 0 {
		opts.BaseDelay = 400 * time.Millisecond
	}
	retryable := opts.Retryable
	if retryable == nil {
		retryable = IsRetryable
	}

	total := opts.Attempts()
	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := fn()
		if err == nil {
			return nil
		}
		if attempt == total-1 || !retryable(err) {
			return err
		}

		wait := opts.delay(attempt, err)
		if opts.OnRetry != nil {
			opts.OnRetry(attempt+1, wait, err)
		}

		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
}
