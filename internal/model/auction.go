package model

import (
    "time"

    "github.com/shopspring/decimal"
)

// Auction status values stored in auctions.status.  Transitions are
// one-directional: SCHEDULED -> ACTIVE -> ENDED, with CANCELLED reachable
// from SCHEDULED or ACTIVE only.  ENDED and CANCELLED are terminal.
const (
    AuctionScheduled = "SCHEDULED"
    AuctionActive    = "ACTIVE"
    AuctionEnded     = "ENDED"
    AuctionCancelled = "CANCELLED"
)

// Auction represents a single weekly timed auction for one lot as stored
// in the `auctions` table.  The lot itself (artwork, metadata, media) is
// owned by the catalog service; only the opaque LotID is kept here.
//
// Fields:
//  ID              – primary key identifier, assigned at creation.
//  LotID           – opaque reference to the item being sold.
//  StartPrice      – minimum first bid; immutable once scheduled.
//  MinIncrement    – smallest amount a new bid must exceed the current
//                    bid by to be accepted.
//  WindowStart     – instant the bidding window opens (inclusive).
//  WindowEnd       – instant the bidding window closes (exclusive).
//  Status          – one of the Auction* constants above.
//  CurrentBid      – highest accepted bid so far; nil until the first
//                    valid bid lands, non-decreasing afterwards.
//  CurrentBidderID – user holding the current bid; set with CurrentBid.
//  Version         – optimistic-concurrency counter.  Every committed
//                    write to this row increments it; writers must pass
//                    the version they read for the write to succeed.
//  CreatedAt       – creation timestamp.
//  UpdatedAt       – last modification timestamp.
type Auction struct {
    ID              uint64           // auctions.id
    LotID           string           // auctions.lot_id
    StartPrice      decimal.Decimal  // auctions.start_price
    MinIncrement    decimal.Decimal  // auctions.min_increment
    WindowStart     time.Time        // auctions.window_start
    WindowEnd       time.Time        // auctions.window_end
    Status          string           // auctions.status
    CurrentBid      *decimal.Decimal // auctions.current_bid (nullable)
    CurrentBidderID *uint64          // auctions.current_bidder_id (nullable)
    Version         uint64           // auctions.version
    CreatedAt       time.Time        // auctions.created_at
    UpdatedAt       time.Time        // auctions.updated_at
}

// MinimumAcceptable returns the smallest amount the next bid must reach:
// the start price when no bid has landed yet, otherwise the current bid
// plus the minimum increment (never below the start price).
func (a *Auction) MinimumAcceptable() decimal.Decimal {
    if a.CurrentBid == nil {
        return a.StartPrice
    }
    min := a.CurrentBid.Add(a.MinIncrement)
    if min.LessThan(a.StartPrice) {
        return a.StartPrice
    }
    return min
}

// WindowContains reports whether t falls inside the auction's bidding
// window.  The start is inclusive and the end is exclusive, so a bid at
// exactly WindowEnd is outside the window.
func (a *Auction) WindowContains(t time.Time) bool {
    return !t.Before(a.WindowStart) && t.Before(a.WindowEnd)
}
