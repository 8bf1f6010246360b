package llm

import (
	"errors"
	"fmt"
)

// ErrNotConfigured is returned when no API key is set for the chosen provider.
var ErrNotConfigured = errors.New("AI provider is not configured")

// ErrProviderUnavailable indicates the provider is down, unreachable or
// rejected the request.
type ErrProviderUnavailable struct {
	Err error
}

func (e *ErrProviderUnavailable) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("AI provider unavailable: %v", e.Err)
	}
	return "AI provider unavailable"
}

func (e *ErrProviderUnavailable) Unwrap() error { return e.Err }

// ErrRateLimit indicates the provider returned 429.
type ErrRateLimit struct {
	Err error
}

func (e *ErrRateLimit) Error() string {
	return fmt.Sprintf("rate limited: %v", e.Err)
}

func (e *ErrRateLimit) Unwrap() error { return e.Err }

// ErrInvalidResponse indicates the provider returned nothing usable.
type ErrInvalidResponse struct {
	Raw string
	Err error
}

func (e *ErrInvalidResponse) Error() string {
	return fmt.Sprintf("invalid AI response: %v", e.Err)
}

func (e *ErrInvalidResponse) Unwrap() error { return e.Err }

// ErrBlocked indicates the provider's safety filter refused the content.
type ErrBlocked struct {
	Reason string
}

func (e *ErrBlocked) Error() string {
	if e.Reason != "" {
		return "content blocked by AI safety filter: " + e.Reason
	}
	return "content blocked by AI safety filter"
}
