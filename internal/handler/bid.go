package handler

import (
    "context"
    "errors"
    "net/http"
    "strings"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/shopspring/decimal"

    "github.com/weeklymint/nft-auction/internal/engine"
    "github.com/weeklymint/nft-auction/internal/publisher"
    "github.com/weeklymint/nft-auction/internal/queue"
    "github.com/weeklymint/nft-auction/internal/repository"
)

// BidHandler accepts bid submissions and maps arbiter outcomes onto HTTP
// responses.  The submission instant is taken server-side the moment the
// request is handled; clients do not get to claim an earlier timestamp.
type BidHandler struct {
    Arbiter  *engine.Arbiter
    Auctions *repository.AuctionRepo
    Events   publisher.Events
}

func NewBidHandler(a *engine.Arbiter, auctions *repository.AuctionRepo) *BidHandler {
    return &BidHandler{Arbiter: a, Auctions: auctions}
}

type placeBidReq struct {
    Amount string `json:"amount"`
}

type placeBidResp struct {
    Accepted   bool       `json:"accepted"`
    Reason     string     `json:"reason,omitempty"`
    BidID      string     `json:"bid_id,omitempty"`
    CurrentBid string     `json:"current_bid,omitempty"`
    AcceptedAt *time.Time `json:"accepted_at,omitempty"`
}

// PlaceBid handles POST /v1/auctions/:id/bids.  Status mapping:
//   accepted             -> 201 Created
//   auction_not_open     -> 409 Conflict
//   bid_too_low          -> 409 Conflict
//   contention_exhausted -> 429 Too Many Requests (back off and resubmit)
//   store_unavailable    -> 503 Service Unavailable
func (h *BidHandler) PlaceBid(c echo.Context) error {
    auctionID, err := parseID(c)
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid auction id"})
    }
    bidderID, ok := getUserID(c)
    if !ok {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }

    var req placeBidReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    amount, err := decimal.NewFromString(strings.TrimSpace(req.Amount))
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid amount"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
    defer cancel()

    out, err := h.Arbiter.PlaceBid(ctx, auctionID, bidderID, amount, time.Now().UTC())
    if err != nil {
        if errors.Is(err, repository.ErrAuctionNotFound) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "auction not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "bid failed"})
    }

    if !out.Accepted {
        status := http.StatusConflict
        switch out.Reason {
        case engine.ReasonContentionExhausted:
            status = http.StatusTooManyRequests
        case engine.ReasonStoreUnavailable:
            status = http.StatusServiceUnavailable
        }
        return c.JSON(status, placeBidResp{Accepted: false, Reason: out.Reason})
    }

    h.notifyAccepted(ctx, auctionID, bidderID, out)

    acceptedAt := out.AcceptedAt
    return c.JSON(http.StatusCreated, placeBidResp{
        Accepted:   true,
        BidID:      out.BidID,
        CurrentBid: out.NewCurrentBid.String(),
        AcceptedAt: &acceptedAt,
    })
}

// notifyAccepted publishes a bid.accepted event.  Best effort: the bid is
// already committed, so a broker hiccup only costs the notification.
func (h *BidHandler) notifyAccepted(ctx context.Context, auctionID, bidderID uint64, out engine.Outcome) {
    lotID := ""
    if a, err := h.Auctions.GetByID(ctx, auctionID); err == nil {
        lotID = a.LotID
    }
    _ = h.Events.BidAccepted(ctx, queue.BidAcceptedEvent{
        BidID:      out.BidID,
        AuctionID:  auctionID,
        LotID:      lotID,
        BidderID:   bidderID,
        Amount:     out.NewCurrentBid.String(),
        AcceptedAt: out.AcceptedAt.Format(time.RFC3339Nano),
    })
}
