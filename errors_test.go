package folio

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
)

func TestErrBackend(t *testing.T) {
	err := &ErrBackend{Collection: "docs", Message: "index corrupt"}
	if got := err.Error(); got != "docs: index corrupt" {
		t.Errorf("Error() = %q", got)
	}

	wrapped := fmt.Errorf("query: %w", err)
	var be *ErrBackend
	if !errors.As(wrapped, &be) || be.Collection != "docs" {
		t.Errorf("errors.As failed on %v", wrapped)
	}
}

func TestErrHTTP(t *testing.T) {
	err := &ErrHTTP{Status: 429, Body: "rate limited"}
	if !strings.Contains(err.Error(), "429") {
		t.Errorf("Error() = %q", err.Error())
	}

	if !isTransient(err) {
		t.Error("429 should be transient")
	}
	if !isTransient(&ErrHTTP{Status: 503}) {
		t.Error("503 should be transient")
	}
	if isTransient(&ErrHTTP{Status: 500}) {
		t.Error("500 should not be transient")
	}
	if isTransient(errors.New("plain")) {
		t.Error("non-HTTP errors are never transient")
	}
}

func TestParseRetryAfter(t *testing.T) {
	if got := ParseRetryAfter("30"); got != 30*time.Second {
		t.Errorf("delta-seconds = %v", got)
	}
	if got := ParseRetryAfter(""); got != 0 {
		t.Errorf("empty = %v", got)
	}
	if got := ParseRetryAfter("garbage"); got != 0 {
		t.Errorf("garbage = %v", got)
	}
	if got := ParseRetryAfter("-5"); got != 0 {
		t.Errorf("negative = %v", got)
	}

	future := time.Now().Add(2 * time.Minute).UTC().Format(time.RFC1123)
	if got := ParseRetryAfter(future); got <= 0 || got > 2*time.Minute {
		t.Errorf("http-date = %v", got)
	}

	past := time.Now().Add(-time.Hour).UTC().Format(time.RFC1123)
	if got := ParseRetryAfter(past); got != 0 {
		t.Errorf("past date = %v", got)
	}
}
