package connect

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownAttempt is returned for ids and tokens that match no live attempt.
	ErrUnknownAttempt = errors.New("connect: unknown or finished attempt")
	// ErrForeignOrigin rejects messages not posted by the application origin.
	ErrForeignOrigin = errors.New("connect: message origin rejected")
	// ErrStaleMessage rejects messages for attempts no longer awaiting a result.
	ErrStaleMessage = errors.New("connect: attempt is not awaiting a result")
	// ErrInvalidMessage rejects messages with an unknown type.
	ErrInvalidMessage = errors.New("connect: malformed message")
	// ErrClosed is returned once the coordinator shut down.
	ErrClosed = errors.New("connect: coordinator closed")
)

// PopupBlockedError reports that the provider window could not be opened.
// The attempt stays idle and nothing is registered.
type PopupBlockedError struct {
	Provider string
}

func (e *PopupBlockedError) Error() string {
	return fmt.Sprintf("connect: popup for %s was blocked", e.Provider)
}

// OAuthProviderError carries the provider's error message.
type OAuthProviderError struct {
	Provider string
	Message  string
}

func (e *OAuthProviderError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("connect: %s authorization failed", e.Provider)
	}
	return fmt.Sprintf("connect: %s authorization failed: %s", e.Provider, e.Message)
}

// CancelledError reports a cancelled attempt and which channel cancelled it.
type CancelledError struct {
	Reason CancelReason
}

func (e *CancelledError) Error() string {
	return fmt.Sprintf("connect: attempt cancelled (%s)", e.Reason)
}
