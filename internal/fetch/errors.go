package fetch

import (
	"errors"
	"fmt"
	"strings"

	"StockPulse/internal/domain/models"
	"StockPulse/internal/source"
)

// TransientError and PermanentError live with the adapter contract in
// internal/source, where the producers are; aliased here so the retry
// layer and its callers share one vocabulary.
type (
	TransientError = source.TransientError
	PermanentError = source.PermanentError
)

// Permanentf builds a PermanentError from a format string.
func Permanentf(format string, a ...interface{}) error {
	return source.Permanentf(format, a...)
}

// Attempt records the outcome of one source attempt for diagnostics.
type Attempt struct {
	Source string `json:"source"`
	Reason string `json:"reason"`
}

// ExhaustedError is the orchestrator's terminal failure: every
// candidate source was tried and none produced a valid series.
type ExhaustedError struct {
	Identifier models.SecurityIdentifier
	Attempts   []Attempt
}

func (e *ExhaustedError) Error() string {
	parts := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		parts = append(parts, a.Source+": "+a.Reason)
	}
	return fmt.Sprintf("all sources exhausted for %s [%s]", e.Identifier, strings.Join(parts, "; "))
}

// truncateReason keeps diagnostics compact; upstream error text can be
// pages of HTML.
func truncateReason(s string) string {
	const max = 100
	if len(s) <= max {
		return s
	}
	return s[:max]
}

// isRateLimited matches HTTP 429 style failures.
func isRateLimited(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "429") || strings.Contains(msg, "too many requests")
}

// isDisconnect matches connection-reset / remote-disconnect failures,
// which usually indicate an IP-level block needing a longer cooldown.
func isDisconnect(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "broken pipe") ||
		strings.Contains(msg, "remote disconnected") ||
		strings.Contains(msg, "unexpected eof")
}

// isPermanent reports whether retrying is pointless.
func isPermanent(err error) bool {
	var pe *PermanentError
	return errors.As(err, &pe)
}
