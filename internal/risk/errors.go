package risk

import (
	"context"
	"errors"
	"strings"
)

// FailureKind labels a generator failure for logs.
type FailureKind string

const (
	FailTimeout   FailureKind = "timeout"
	FailAuth      FailureKind = "auth_error"
	FailRateLimit FailureKind = "rate_limit"
	FailServer    FailureKind = "server_error"
	FailBlocked   FailureKind = "blocked"
	FailEmpty     FailureKind = "empty"
	FailUnknown   FailureKind = "unknown"
)

// ClassifyFailure inspects a generator error.
func ClassifyFailure(err error) FailureKind {
	if errors.Is(err, context.DeadlineExceeded) {
		return FailTimeout
	}
	raw := err.Error()
	switch {
	case containsAny(raw, "deadline exceeded", "timeout"):
		return FailTimeout
	case containsAny(raw, "401", "403", "unauthorized", "api key"):
		return FailAuth
	case containsAny(raw, "429", "rate limit", "resource_exhausted", "quota"):
		return FailRateLimit
	case containsAny(raw, "500", "502", "503", "504", "unavailable", "internal"):
		return FailServer
	case containsAny(raw, "safety", "blocked"):
		return FailBlocked
	case containsAny(raw, "no candidates", "no choices"):
		return FailEmpty
	default:
		return FailUnknown
	}
}

func containsAny(s string, patterns ...string) bool {
	lower := strings.ToLower(s)
	for _, p := range patterns {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}
