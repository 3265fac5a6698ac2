package server

import (
	"encoding/json"
	"time"

	"auctioneer/application"
	"auctioneer/auctionerrors"
	"auctioneer/models"

	"github.com/shopspring/decimal"
)

// amountExponent is the number of fractional digits of the currency; stored
// amounts are minor units
const amountExponent = 2

var maxAmount = decimal.NewFromInt(1 << 53)

// parseAmount converts a decimal major-unit amount into minor units
func parseAmount(field string, amount decimal.Decimal) (int64, error) {
	if !amount.IsPositive() {
		return 0, auctionerrors.NewValidationError("%s must be positive", field)
	}
	minor := amount.Shift(amountExponent)
	if !minor.IsInteger() {
		return 0, auctionerrors.NewValidationError("%s must have at most %d decimal places", field, amountExponent)
	}
	if minor.GreaterThan(maxAmount) {
		return 0, auctionerrors.NewValidationError("%s is out of range", field)
	}
	return minor.IntPart(), nil
}

// formatAmount renders minor units as a fixed-point decimal string
func formatAmount(minor int64) string {
	return decimal.New(minor, -amountExponent).StringFixed(amountExponent)
}

// Request DTOs
type CreateAuctionRequest struct {
	Title        string          `json:"title"`
	StartPrice   decimal.Decimal `json:"start_price"`
	MinIncrement decimal.Decimal `json:"min_increment"`
	StartTime    time.Time       `json:"start_time"`
	EndTime      time.Time       `json:"end_time"`
}

type PlaceBidRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

type CancelAuctionRequest struct {
	Reason string `json:"reason"`
}

// Response DTOs
type AuctionResponse struct {
	ID              string  `json:"id"`
	SellerID        string  `json:"seller_id"`
	Title           string  `json:"title"`
	Status          string  `json:"status"`
	StartPrice      string  `json:"start_price"`
	CurrentPrice    string  `json:"current_price"`
	MinIncrement    string  `json:"min_increment"`
	MinimumNextBid  string  `json:"minimum_next_bid"`
	CurrentWinnerID *string `json:"current_winner_id"`
	BidCount        int64   `json:"bid_count"`
	Version         int64   `json:"version"`
	StartTime       string  `json:"start_time"`
	EndTime         string  `json:"end_time"`
	CancelReason    *string `json:"cancel_reason,omitempty"`
}

type BidResponse struct {
	ID           string  `json:"id"`
	AuctionID    string  `json:"auction_id"`
	BidderID     string  `json:"bidder_id"`
	Amount       string  `json:"amount"`
	Outcome      string  `json:"outcome"`
	RejectReason *string `json:"reject_reason,omitempty"`
	PlacedAt     string  `json:"placed_at"`
}

type PlaceBidResponse struct {
	Bid      BidResponse `json:"bid"`
	NewPrice string      `json:"new_price"`
	Version  int64       `json:"version"`
	Attempts int         `json:"attempts"`
}

type BalanceResponse struct {
	UserID    string `json:"user_id"`
	Available string `json:"available"`
	Blocked   string `json:"blocked"`
	Total     string `json:"total"`
}

type BalanceHistoryResponse struct {
	TransactionType string         `json:"transaction_type"`
	AuctionID       *string        `json:"auction_id,omitempty"`
	ChangeAmount    string         `json:"change_amount"`
	AvailableAfter  string         `json:"available_after"`
	BlockedAfter    string         `json:"blocked_after"`
	Metadata        map[string]any `json:"metadata,omitempty"`
	CreatedAt       string         `json:"created_at"`
}

type EventResponse struct {
	Seq       int64           `json:"seq"`
	EventType string          `json:"event_type"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt string          `json:"created_at"`
}

func toAuctionResponse(a *models.Auction) AuctionResponse {
	return AuctionResponse{
		ID:              a.ID.String(),
		SellerID:        a.SellerID,
		Title:           a.Title,
		Status:          string(a.Status),
		StartPrice:      formatAmount(a.StartPrice),
		CurrentPrice:    formatAmount(a.CurrentPrice),
		MinIncrement:    formatAmount(a.MinIncrement),
		MinimumNextBid:  formatAmount(a.MinimumNextBid()),
		CurrentWinnerID: a.CurrentWinnerID,
		BidCount:        a.BidCount,
		Version:         a.Version,
		StartTime:       a.StartTime.UTC().Format(time.RFC3339),
		EndTime:         a.EndTime.UTC().Format(time.RFC3339),
		CancelReason:    a.CancelReason,
	}
}

func toBidResponse(b *models.Bid, outcome models.BidOutcome) BidResponse {
	resp := BidResponse{
		ID:        b.ID.String(),
		AuctionID: b.AuctionID.String(),
		BidderID:  b.BidderID,
		Amount:    formatAmount(b.Amount),
		Outcome:   string(outcome),
		PlacedAt:  b.PlacedAt.UTC().Format(time.RFC3339Nano),
	}
	if b.RejectReason != nil {
		reason := string(*b.RejectReason)
		resp.RejectReason = &reason
	}
	return resp
}

func toBidViews(views []*application.BidView) []BidResponse {
	out := make([]BidResponse, 0, len(views))
	for _, v := range views {
		out = append(out, toBidResponse(v.Bid, v.EffectiveOutcome))
	}
	return out
}

func toBalanceResponse(b *models.Balance) BalanceResponse {
	return BalanceResponse{
		UserID:    b.UserID,
		Available: formatAmount(b.Available),
		Blocked:   formatAmount(b.Blocked),
		Total:     formatAmount(b.Total()),
	}
}

func toBalanceHistoryResponse(entries []*models.BalanceHistory) []BalanceHistoryResponse {
	out := make([]BalanceHistoryResponse, 0, len(entries))
	for _, h := range entries {
		resp := BalanceHistoryResponse{
			TransactionType: string(h.TransactionType),
			ChangeAmount:    formatAmount(h.ChangeAmount),
			AvailableAfter:  formatAmount(h.AvailableAfter),
			BlockedAfter:    formatAmount(h.BlockedAfter),
			Metadata:        h.TransactionMetadata,
			CreatedAt:       h.CreatedAt.UTC().Format(time.RFC3339Nano),
		}
		if h.AuctionID != nil {
			id := h.AuctionID.String()
			resp.AuctionID = &id
		}
		out = append(out, resp)
	}
	return out
}

func toEventResponses(events []*models.AuctionEvent) []EventResponse {
	out := make([]EventResponse, 0, len(events))
	for _, e := range events {
		out = append(out, EventResponse{
			Seq:       e.Seq,
			EventType: e.EventType,
			Payload:   e.Payload,
			CreatedAt: e.CreatedAt.UTC().Format(time.RFC3339Nano),
		})
	}
	return out
}
