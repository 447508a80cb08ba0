package model

import (
    "time"

    "github.com/shopspring/decimal"
)

// Bid outcome values stored in bids.outcome.
const (
    BidAccepted = "ACCEPTED"
    BidRejected = "REJECTED"
)

// Bid is the audit record of a single bid attempt as stored in the `bids`
// table.  Every attempt is recorded, including rejected ones, so the full
// bidding history of an auction can be reconstructed.  Only the row whose
// amount equals the auction's CurrentBid is the standing highest bid; the
// auction's Version counter, not AcceptedAt, orders accepted bids.
//
// Fields:
//  ID         – opaque identifier (UUID), assigned by the arbiter.
//  AuctionID  – auction this bid was submitted against.
//  BidderID   – user who submitted the bid.
//  Amount     – offered price.
//  Outcome    – ACCEPTED or REJECTED.
//  Reason     – rejection reason code; empty for accepted bids.
//  AcceptedAt – commit instant for accepted bids, nil otherwise.  This is
//               the moment the conditional update succeeded, not the
//               moment the bid was submitted.
//  CreatedAt  – insertion timestamp.
type Bid struct {
    ID         string          // bids.id
    AuctionID  uint64          // bids.auction_id
    BidderID   uint64          // bids.bidder_id
    Amount     decimal.Decimal // bids.amount
    Outcome    string          // bids.outcome
    Reason     string          // bids.reason (empty when accepted)
    AcceptedAt *time.Time      // bids.accepted_at (nullable)
    CreatedAt  time.Time       // bids.created_at
}
