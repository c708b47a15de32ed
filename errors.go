package folio

import (
	"errors"
	"fmt"
	"strconv"
	"time"
)

// ErrNoCollections is returned by NewFederation when no collections were
// requested or none could be initialized. There is nothing to retry, so this
// is the only error the retrieval layer raises instead of folding into a
// QueryResult.
var ErrNoCollections = errors.New("no usable collections")

// ErrBackend describes a failure from a collection's index or its providers.
type ErrBackend struct {
	Collection string
	Message    string
}

func (e *ErrBackend) Error() string {
	return fmt.Sprintf("%s: %s", e.Collection, e.Message)
}

// ErrHTTP is a non-2xx response from a provider API. RetryAfter is parsed
// from the Retry-After header when present (429/503 responses).
type ErrHTTP struct {
	Status     int
	Body       string
	RetryAfter time.Duration
}

func (e *ErrHTTP) Error() string {
	return fmt.Sprintf("http %d: %s", e.Status, e.Body)
}

// ParseRetryAfter parses a Retry-After header value (delta-seconds or
// HTTP-date). Returns 0 if the value is empty or unparseable.
func ParseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := time.Parse(time.RFC1123, v); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}
