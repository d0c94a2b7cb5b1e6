package client

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"
)

// Outcome is a classified attempt result: exactly one kind, plus the
// Retry-After hint when the server supplied one on a 429.
type Outcome struct {
	Kind       ErrorKind
	RetryAfter time.Duration
}

// Classify maps a raw transport outcome (response and/or transport error)
// into exactly one ErrorKind. It is a pure function: the retry policy never
// inspects raw transport details directly, only the result of this mapping.
//
// A nil kind result (empty string) means the attempt succeeded at the
// transport level; body-shape failures are classified separately as
// KindMalformedResponse at the decode boundary.
func Classify(resp *http.Response, err error) Outcome {
	if err != nil {
		switch {
		case errors.Is(err, context.Canceled):
			return Outcome{Kind: KindCancelled}
		case errors.Is(err, context.DeadlineExceeded):
			return Outcome{Kind: KindTimeout}
		}

		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return Outcome{Kind: KindTimeout}
		}

		// Refused, reset, DNS failure: no usable response was obtained.
		return Outcome{Kind: KindConnectionFailure}
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return Outcome{
			Kind:       KindRateLimited,
			RetryAfter: parseRetryAfter(resp.Header),
		}
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return Outcome{Kind: KindClientError}
	case resp.StatusCode >= 500:
		return Outcome{Kind: KindServerError}
	default:
		return Outcome{}
	}
}

// parseRetryAfter extracts the Retry-After hint from response headers.
// Supports both delta-seconds and HTTP-date forms. Returns 0 when the header
// is absent or unparseable.
func parseRetryAfter(headers http.Header) time.Duration {
	value := headers.Get("Retry-After")
	if value == "" {
		return 0
	}

	if seconds, err := strconv.Atoi(value); err == nil {
		if seconds < 0 {
			return 0
		}
		return time.Duration(seconds) * time.Second
	}

	if at, err := http.ParseTime(value); err == nil {
		wait := time.Until(at)
		if wait < 0 {
			return 0
		}
		return wait
	}

	return 0
}
