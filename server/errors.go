package server

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"auctioneer/auctionerrors"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// retryAfterSeconds is advertised when bid admission gives up under contention
const retryAfterSeconds = 1

var errUnauthenticated = errors.New("unauthenticated")

// MapErrorToHTTP maps domain/service errors to HTTP status code and message
func MapErrorToHTTP(err error) (int, string) {
	var rejection *auctionerrors.BidRejection
	if errors.As(err, &rejection) && rejection.MinimumBid > 0 {
		return http.StatusConflict, fmt.Sprintf("bid amount too low, minimum is %s", formatAmount(rejection.MinimumBid))
	}

	switch {
	case errors.Is(err, errUnauthenticated):
		return http.StatusUnauthorized, "authentication required"
	case errors.Is(err, auctionerrors.ErrValidation):
		return http.StatusBadRequest, "invalid request"
	case errors.Is(err, auctionerrors.ErrAuctionNotFound):
		return http.StatusNotFound, "auction not found"
	case errors.Is(err, auctionerrors.ErrForbidden):
		return http.StatusForbidden, "not allowed"
	case errors.Is(err, auctionerrors.ErrBidTooLow):
		return http.StatusConflict, "bid amount too low"
	case errors.Is(err, auctionerrors.ErrAuctionNotLive):
		return http.StatusConflict, "auction is not accepting bids"
	case errors.Is(err, auctionerrors.ErrInvalidTransition):
		return http.StatusConflict, "invalid auction state for this operation"
	case errors.Is(err, auctionerrors.ErrTransitionNotDue):
		return http.StatusConflict, "transition is not due yet"
	case errors.Is(err, auctionerrors.ErrVersionConflict):
		return http.StatusConflict, "auction changed concurrently, retry"
	case errors.Is(err, auctionerrors.ErrInsufficientFunds):
		return http.StatusPaymentRequired, "insufficient funds"
	case errors.Is(err, auctionerrors.ErrConcurrencyExhausted):
		return http.StatusServiceUnavailable, "auction is busy, retry shortly"
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

// respondError writes the mapped error and logs it at a level matching the status
func respondError(c *gin.Context, handlerName string, err error, fields log.Fields) {
	status, message := MapErrorToHTTP(err)
	if status == http.StatusServiceUnavailable {
		c.Header("Retry-After", strconv.Itoa(retryAfterSeconds))
	}
	JSONError(c, status, fmt.Errorf("%s: %w", message, err), message)

	if fields == nil {
		fields = log.Fields{}
	}
	fields["handler"] = handlerName
	fields["status"] = status
	fields["error"] = err.Error()

	entry := log.WithFields(fields)
	switch {
	case status >= http.StatusInternalServerError && status != http.StatusServiceUnavailable:
		entry.Error(handlerName + ": request failed")
	case status == http.StatusServiceUnavailable:
		entry.Warn(handlerName + ": request failed")
	default:
		entry.Info(handlerName + ": request rejected")
	}
}

// HandleBindError sends a standardized JSON error for binding failures
func HandleBindError(c *gin.Context, handlerName string, err error) {
	wrappedErr := fmt.Errorf("invalid request payload: %w", err)
	JSONError(c, http.StatusBadRequest, wrappedErr, "invalid request payload")
	log.WithField("error", err.Error()).Warn(handlerName + ": binding error")
}
