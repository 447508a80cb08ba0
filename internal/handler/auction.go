package handler

import (
    "context"
    "errors"
    "net/http"
    "strconv"
    "strings"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/shopspring/decimal"

    "github.com/weeklymint/nft-auction/internal/config"
    "github.com/weeklymint/nft-auction/internal/lifecycle"
    "github.com/weeklymint/nft-auction/internal/model"
    "github.com/weeklymint/nft-auction/internal/repository"
    "github.com/weeklymint/nft-auction/internal/schedule"
)

// AuctionHandler serves the auction read endpoints and the operator
// endpoints for creating and cancelling auctions.  Reads reconcile the
// auction's status lazily so a client polling between sweeps still sees
// the state implied by the clock, not the last persisted one.
type AuctionHandler struct {
    Auction  config.AuctionConfig
    Auctions *repository.AuctionRepo
    Bids     *repository.BidRepo
    Life     *lifecycle.Manager
}

func NewAuctionHandler(ac config.AuctionConfig, a *repository.AuctionRepo, b *repository.BidRepo, m *lifecycle.Manager) *AuctionHandler {
    return &AuctionHandler{Auction: ac, Auctions: a, Bids: b, Life: m}
}

// ----- DTOs -----

type auctionResp struct {
    ID              uint64    `json:"id"`
    LotID           string    `json:"lot_id"`
    Status          string    `json:"status"`
    StartPrice      string    `json:"start_price"`
    MinIncrement    string    `json:"min_increment"`
    WindowStart     time.Time `json:"window_start"`
    WindowEnd       time.Time `json:"window_end"`
    CurrentBid      *string   `json:"current_bid"`
    CurrentBidderID *uint64   `json:"current_bidder_id"`
    MinAcceptable   string    `json:"min_acceptable"`
    Version         uint64    `json:"version"`
}

type scheduleResp struct {
    AuctionID       uint64    `json:"auction_id"`
    Status          string    `json:"status"`
    Active          bool      `json:"active"`
    WindowStart     time.Time `json:"window_start"`
    WindowEnd       time.Time `json:"window_end"`
    CurrentBid      *string   `json:"current_bid"`
    CurrentBidderID *uint64   `json:"current_bidder_id"`
    NextWindowStart time.Time `json:"next_window_start"`
}

type bidResp struct {
    ID         string     `json:"id"`
    AuctionID  uint64     `json:"auction_id"`
    BidderID   uint64     `json:"bidder_id"`
    Amount     string     `json:"amount"`
    Outcome    string     `json:"outcome"`
    Reason     string     `json:"reason,omitempty"`
    AcceptedAt *time.Time `json:"accepted_at,omitempty"`
    CreatedAt  time.Time  `json:"created_at"`
}

type createAuctionReq struct {
    LotID        string `json:"lot_id"`
    StartPrice   string `json:"start_price"`
    MinIncrement string `json:"min_increment"` // optional, defaults to the configured increment
    WindowStart  string `json:"window_start"`  // optional RFC3339; defaults to the next weekly window
}

func toAuctionResp(a *model.Auction) auctionResp {
    resp := auctionResp{
        ID:              a.ID,
        LotID:           a.LotID,
        Status:          a.Status,
        StartPrice:      a.StartPrice.String(),
        MinIncrement:    a.MinIncrement.String(),
        WindowStart:     a.WindowStart,
        WindowEnd:       a.WindowEnd,
        CurrentBidderID: a.CurrentBidderID,
        MinAcceptable:   a.MinimumAcceptable().String(),
        Version:         a.Version,
    }
    if a.CurrentBid != nil {
        s := a.CurrentBid.String()
        resp.CurrentBid = &s
    }
    return resp
}

// GetCurrent returns the auction whose window is live or next to open,
// along with the opening instant of the next weekly window.
func (h *AuctionHandler) GetCurrent(c echo.Context) error {
    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    now := time.Now()
    a, err := h.Auctions.FindUpcoming(ctx, now.UTC())
    if err != nil {
        if errors.Is(err, repository.ErrAuctionNotFound) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "no current auction"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
    }
    if a, err = h.Life.Reconcile(ctx, a); err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "reconcile failed"})
    }

    s := schedule.Compute(now, h.Auction.Rule)
    return c.JSON(http.StatusOK, echo.Map{
        "auction":           toAuctionResp(a),
        "next_window_start": s.NextWindowStart,
    })
}

// GetByID returns one auction, reconciled to the clock.
func (h *AuctionHandler) GetByID(c echo.Context) error {
    id, err := parseID(c)
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid auction id"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    a, err := h.Auctions.GetByID(ctx, id)
    if err != nil {
        if errors.Is(err, repository.ErrAuctionNotFound) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "auction not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
    }
    if a, err = h.Life.Reconcile(ctx, a); err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "reconcile failed"})
    }
    return c.JSON(http.StatusOK, toAuctionResp(a))
}

// GetSchedule answers "is bidding open right now, at what price, and when
// is the next window" for an auction.  The reconciled row supplies status,
// window and standing bid; the weekly rule supplies next_window_start.
func (h *AuctionHandler) GetSchedule(c echo.Context) error {
    id, err := parseID(c)
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid auction id"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    a, err := h.Auctions.GetByID(ctx, id)
    if err != nil {
        if errors.Is(err, repository.ErrAuctionNotFound) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "auction not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
    }
    if a, err = h.Life.Reconcile(ctx, a); err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "reconcile failed"})
    }

    now := time.Now()
    next := schedule.Compute(now, h.Auction.Rule).NextWindowStart
    return c.JSON(http.StatusOK, toScheduleResp(a, next, now))
}

// toScheduleResp answers "is bidding open on this lot right now" from the
// auction row itself.  The row's window is authoritative even when the lot
// was scheduled off the recurring slot; only next_window_start comes from
// the weekly rule.  A rejected bidder re-reads this payload, so it carries
// the standing bid and bidder.
func toScheduleResp(a *model.Auction, nextWindowStart time.Time, now time.Time) scheduleResp {
    resp := scheduleResp{
        AuctionID:       a.ID,
        Status:          a.Status,
        Active:          a.Status == model.AuctionActive && a.WindowContains(now),
        WindowStart:     a.WindowStart,
        WindowEnd:       a.WindowEnd,
        CurrentBidderID: a.CurrentBidderID,
        NextWindowStart: nextWindowStart,
    }
    if a.CurrentBid != nil {
        s := a.CurrentBid.String()
        resp.CurrentBid = &s
    }
    return resp
}

// ListBids returns the bid audit trail of an auction, newest first.  The
// limit query parameter caps the page size.
func (h *AuctionHandler) ListBids(c echo.Context) error {
    id, err := parseID(c)
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid auction id"})
    }
    limit := 0
    if q := strings.TrimSpace(c.QueryParam("limit")); q != "" {
        if n, err := strconv.Atoi(q); err == nil && n > 0 {
            limit = n
        }
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    if _, err := h.Auctions.GetByID(ctx, id); err != nil {
        if errors.Is(err, repository.ErrAuctionNotFound) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "auction not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
    }

    bids, err := h.Bids.ListByAuction(ctx, id, limit)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
    }
    out := make([]bidResp, 0, len(bids))
    for _, b := range bids {
        out = append(out, bidResp{
            ID:         b.ID,
            AuctionID:  b.AuctionID,
            BidderID:   b.BidderID,
            Amount:     b.Amount.String(),
            Outcome:    b.Outcome,
            Reason:     b.Reason,
            AcceptedAt: b.AcceptedAt,
            CreatedAt:  b.CreatedAt,
        })
    }
    return c.JSON(http.StatusOK, echo.Map{"bids": out})
}

// Create schedules a new auction.  Operator only.  The window defaults to
// the next weekly slot from the configured rule; an explicit window_start
// (for a rescheduled drop) still gets the rule's duration.
func (h *AuctionHandler) Create(c echo.Context) error {
    var req createAuctionReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    req.LotID = strings.TrimSpace(req.LotID)
    if req.LotID == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "lot_id required"})
    }
    startPrice, err := decimal.NewFromString(strings.TrimSpace(req.StartPrice))
    if err != nil || startPrice.Sign() <= 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid start_price"})
    }
    inc := h.Auction.MinIncrement
    if s := strings.TrimSpace(req.MinIncrement); s != "" {
        if inc, err = decimal.NewFromString(s); err != nil || inc.Sign() <= 0 {
            return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid min_increment"})
        }
    }

    now := time.Now()
    var windowStart time.Time
    if s := strings.TrimSpace(req.WindowStart); s != "" {
        if windowStart, err = time.Parse(time.RFC3339, s); err != nil || !windowStart.After(now) {
            return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid window_start"})
        }
    } else {
        // Default into the next window that has not opened yet.
        windowStart = schedule.Compute(now, h.Auction.Rule).NextWindowStart
    }
    windowEnd := windowStart.Add(h.Auction.Rule.Duration)

    a := &model.Auction{
        LotID:        req.LotID,
        StartPrice:   startPrice,
        MinIncrement: inc,
        WindowStart:  windowStart.UTC(),
        WindowEnd:    windowEnd.UTC(),
        Status:       model.AuctionScheduled,
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    if err := h.Auctions.Create(ctx, a); err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create auction failed"})
    }
    return c.JSON(http.StatusCreated, toAuctionResp(a))
}

// Cancel withdraws a lot.  Operator only.  Cancelling an auction that has
// already ended is refused; cancelling one already cancelled is a no-op.
func (h *AuctionHandler) Cancel(c echo.Context) error {
    id, err := parseID(c)
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid auction id"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    a, err := h.Life.Cancel(ctx, id)
    if err != nil {
        switch {
        case errors.Is(err, repository.ErrAuctionNotFound):
            return c.JSON(http.StatusNotFound, echo.Map{"error": "auction not found"})
        case errors.Is(err, lifecycle.ErrAlreadyEnded):
            return c.JSON(http.StatusConflict, echo.Map{"error": "auction already ended"})
        default:
            return c.JSON(http.StatusInternalServerError, echo.Map{"error": "cancel failed"})
        }
    }
    return c.JSON(http.StatusOK, toAuctionResp(a))
}

// parseID reads the :id path parameter.
func parseID(c echo.Context) (uint64, error) {
    return strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
}
