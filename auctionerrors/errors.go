package auctionerrors

import (
	"errors"
	"fmt"

	"auctioneer/models"
)

// Lookup errors
var (
	ErrAuctionNotFound = errors.New("auction not found")
)

// Validation and authorization errors
var (
	ErrValidation = errors.New("validation failed")
	ErrForbidden  = errors.New("forbidden")
)

// Bid admission errors
var (
	ErrAuctionNotLive       = errors.New("auction not live")
	ErrBidTooLow            = errors.New("bid amount too low")
	ErrInsufficientFunds    = errors.New("insufficient funds")
	ErrConcurrencyExhausted = errors.New("concurrency retries exhausted")
)

// Lifecycle errors
var (
	ErrVersionConflict   = errors.New("version conflict")
	ErrInvalidTransition = errors.New("invalid state transition")
	ErrTransitionNotDue  = errors.New("transition not due yet")
)

// BidRejection reports a terminal, recorded rejection of a bid attempt
type BidRejection struct {
	Reason     models.RejectReason
	MinimumBid int64 // set for too-low rejections
	Detail     string
}

func (e *BidRejection) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("bid rejected (%s): %s", e.Reason, e.Detail)
	}
	return fmt.Sprintf("bid rejected (%s)", e.Reason)
}

// Unwrap maps the rejection reason to its sentinel so callers can use errors.Is
func (e *BidRejection) Unwrap() error {
	switch e.Reason {
	case models.RejectReasonNotLive:
		return ErrAuctionNotLive
	case models.RejectReasonTooLow:
		return ErrBidTooLow
	case models.RejectReasonInsufficientFunds:
		return ErrInsufficientFunds
	default:
		return nil
	}
}

// NewValidationError wraps ErrValidation with a message
func NewValidationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// IsRetryable reports whether the error is a transient conflict the caller may retry
func IsRetryable(err error) bool {
	return errors.Is(err, ErrVersionConflict) || errors.Is(err, ErrConcurrencyExhausted)
}
