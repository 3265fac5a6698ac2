package server

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"auctioneer/application"
	"auctioneer/auctionerrors"
	"auctioneer/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// AuctionAPI is the auction surface the handlers depend on
type AuctionAPI interface {
	Create(ctx context.Context, req *models.CreateAuctionRequest) (*models.Auction, error)
	Get(ctx context.Context, auctionID uuid.UUID) (*models.Auction, error)
	Cancel(ctx context.Context, auctionID uuid.UUID, requesterID, reason string) (*models.Auction, error)
	ListEvents(ctx context.Context, auctionID uuid.UUID, afterSeq int64, limit int) ([]*models.AuctionEvent, error)
}

// BiddingAPI is the bidding surface the handlers depend on
type BiddingAPI interface {
	PlaceBid(ctx context.Context, req *models.PlaceBidRequest) (*models.BidResult, error)
	ListBids(ctx context.Context, auctionID uuid.UUID) ([]*application.BidView, error)
}

// BalanceAPI is the ledger surface the handlers depend on
type BalanceAPI interface {
	GetBalance(ctx context.Context, userID string) (*models.Balance, error)
	History(ctx context.Context, userID string, limit int) ([]*models.BalanceHistory, error)
}

// SweepTrigger runs an immediate lifecycle sweep
type SweepTrigger interface {
	TriggerSweep(ctx context.Context) (application.SweepResult, error)
}

// Handlers serves the HTTP API
type Handlers struct {
	auctions  AuctionAPI
	bidding   BiddingAPI
	balances  BalanceAPI
	scheduler SweepTrigger
}

// NewHandlers creates the HTTP handlers
func NewHandlers(auctions AuctionAPI, bidding BiddingAPI, balances BalanceAPI, scheduler SweepTrigger) *Handlers {
	return &Handlers{
		auctions:  auctions,
		bidding:   bidding,
		balances:  balances,
		scheduler: scheduler,
	}
}

func auctionIDParam(c *gin.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("auction_id"))
	if err != nil {
		return uuid.Nil, auctionerrors.NewValidationError("auction_id must be a UUID")
	}
	return id, nil
}

// CreateAuctionHandler handles POST /auctions
func (h *Handlers) CreateAuctionHandler(c *gin.Context) {
	var req CreateAuctionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleBindError(c, "CreateAuctionHandler", err)
		return
	}

	startPrice, err := parseAmount("start_price", req.StartPrice)
	if err != nil {
		respondError(c, "CreateAuctionHandler", err, nil)
		return
	}
	increment, err := parseAmount("min_increment", req.MinIncrement)
	if err != nil {
		respondError(c, "CreateAuctionHandler", err, nil)
		return
	}

	auction, err := h.auctions.Create(c.Request.Context(), &models.CreateAuctionRequest{
		SellerID:     callerID(c),
		Title:        req.Title,
		StartPrice:   startPrice,
		MinIncrement: increment,
		StartTime:    req.StartTime,
		EndTime:      req.EndTime,
	})
	if err != nil {
		respondError(c, "CreateAuctionHandler", err, log.Fields{"sellerID": callerID(c)})
		return
	}

	JSONResponse(c, http.StatusCreated, toAuctionResponse(auction), "auction created successfully")
}

// GetAuctionHandler handles GET /auctions/:auction_id
func (h *Handlers) GetAuctionHandler(c *gin.Context) {
	auctionID, err := auctionIDParam(c)
	if err != nil {
		respondError(c, "GetAuctionHandler", err, nil)
		return
	}

	auction, err := h.auctions.Get(c.Request.Context(), auctionID)
	if err != nil {
		respondError(c, "GetAuctionHandler", err, log.Fields{"auctionID": auctionID})
		return
	}

	JSONResponse(c, http.StatusOK, toAuctionResponse(auction), "auction retrieved successfully")
}

// CancelAuctionHandler handles POST /auctions/:auction_id/cancel
func (h *Handlers) CancelAuctionHandler(c *gin.Context) {
	auctionID, err := auctionIDParam(c)
	if err != nil {
		respondError(c, "CancelAuctionHandler", err, nil)
		return
	}

	var req CancelAuctionRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			HandleBindError(c, "CancelAuctionHandler", err)
			return
		}
	}

	auction, err := h.auctions.Cancel(c.Request.Context(), auctionID, callerID(c), req.Reason)
	if err != nil {
		respondError(c, "CancelAuctionHandler", err, log.Fields{"auctionID": auctionID, "requesterID": callerID(c)})
		return
	}

	JSONResponse(c, http.StatusOK, toAuctionResponse(auction), "auction cancelled successfully")
}

// PlaceBidHandler handles POST /auctions/:auction_id/bids
func (h *Handlers) PlaceBidHandler(c *gin.Context) {
	auctionID, err := auctionIDParam(c)
	if err != nil {
		respondError(c, "PlaceBidHandler", err, nil)
		return
	}

	var req PlaceBidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleBindError(c, "PlaceBidHandler", err)
		return
	}
	amount, err := parseAmount("amount", req.Amount)
	if err != nil {
		respondError(c, "PlaceBidHandler", err, nil)
		return
	}

	fields := log.Fields{"auctionID": auctionID, "bidderID": callerID(c), "amount": amount}
	result, err := h.bidding.PlaceBid(c.Request.Context(), &models.PlaceBidRequest{
		AuctionID: auctionID,
		BidderID:  callerID(c),
		Amount:    amount,
	})
	if err != nil {
		respondError(c, "PlaceBidHandler", err, fields)
		return
	}

	JSONResponse(c, http.StatusCreated, PlaceBidResponse{
		Bid:      toBidResponse(result.Bid, models.BidOutcomeAccepted),
		NewPrice: formatAmount(result.NewPrice),
		Version:  result.Version,
		Attempts: result.Attempts,
	}, "bid accepted")
}

// ListBidsHandler handles GET /auctions/:auction_id/bids
func (h *Handlers) ListBidsHandler(c *gin.Context) {
	auctionID, err := auctionIDParam(c)
	if err != nil {
		respondError(c, "ListBidsHandler", err, nil)
		return
	}

	bids, err := h.bidding.ListBids(c.Request.Context(), auctionID)
	if err != nil {
		respondError(c, "ListBidsHandler", err, log.Fields{"auctionID": auctionID})
		return
	}

	JSONResponse(c, http.StatusOK, toBidViews(bids), "bids retrieved successfully")
}

// ListEventsHandler handles GET /auctions/:auction_id/events
func (h *Handlers) ListEventsHandler(c *gin.Context) {
	auctionID, err := auctionIDParam(c)
	if err != nil {
		respondError(c, "ListEventsHandler", err, nil)
		return
	}

	afterSeq, err := queryInt(c, "after_seq")
	if err != nil {
		respondError(c, "ListEventsHandler", err, nil)
		return
	}
	limit, err := queryInt(c, "limit")
	if err != nil {
		respondError(c, "ListEventsHandler", err, nil)
		return
	}

	events, err := h.auctions.ListEvents(c.Request.Context(), auctionID, afterSeq, int(limit))
	if err != nil {
		respondError(c, "ListEventsHandler", err, log.Fields{"auctionID": auctionID})
		return
	}

	JSONResponse(c, http.StatusOK, toEventResponses(events), "events retrieved successfully")
}

// GetOwnBalanceHandler handles GET /balance
func (h *Handlers) GetOwnBalanceHandler(c *gin.Context) {
	h.respondBalance(c, callerID(c))
}

// GetUserBalanceHandler handles GET /users/:user_id/balance.
// Callers may read their own balance; operators may read any.
func (h *Handlers) GetUserBalanceHandler(c *gin.Context) {
	userID := c.Param("user_id")
	if userID != callerID(c) && !isAdmin(c) {
		respondError(c, "GetUserBalanceHandler",
			fmt.Errorf("%w: cannot read another user's balance", auctionerrors.ErrForbidden),
			log.Fields{"userID": userID, "callerID": callerID(c)})
		return
	}
	h.respondBalance(c, userID)
}

func (h *Handlers) respondBalance(c *gin.Context, userID string) {
	balance, err := h.balances.GetBalance(c.Request.Context(), userID)
	if err != nil {
		respondError(c, "GetBalanceHandler", err, log.Fields{"userID": userID})
		return
	}

	JSONResponse(c, http.StatusOK, toBalanceResponse(balance), "balance retrieved successfully")
}

// BalanceHistoryHandler handles GET /balance/history
func (h *Handlers) BalanceHistoryHandler(c *gin.Context) {
	limit, err := queryInt(c, "limit")
	if err != nil {
		respondError(c, "BalanceHistoryHandler", err, nil)
		return
	}

	history, err := h.balances.History(c.Request.Context(), callerID(c), int(limit))
	if err != nil {
		respondError(c, "BalanceHistoryHandler", err, log.Fields{"userID": callerID(c)})
		return
	}

	JSONResponse(c, http.StatusOK, toBalanceHistoryResponse(history), "balance history retrieved successfully")
}

// TriggerSweepHandler handles POST /scheduler/sweep
func (h *Handlers) TriggerSweepHandler(c *gin.Context) {
	result, err := h.scheduler.TriggerSweep(c.Request.Context())
	if err != nil {
		respondError(c, "TriggerSweepHandler", err, nil)
		return
	}

	JSONResponse(c, http.StatusOK, result, "sweep completed")
}

func queryInt(c *gin.Context, name string) (int64, error) {
	raw := c.Query(name)
	if raw == "" {
		return 0, nil
	}
	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || value < 0 {
		return 0, auctionerrors.NewValidationError("%s must be a non-negative integer", name)
	}
	return value, nil
}
