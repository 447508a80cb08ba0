// Package queue defines message payloads exchanged over the message broker.
package queue

import "encoding/json"

// Event type discriminators carried in Envelope.Type.
const (
    TypeBidAccepted  = "bid.accepted"
    TypeAuctionEnded = "auction.ended"
)

// Envelope wraps every message on the auction.events queue so consumers
// can dispatch on Type before unmarshalling the payload.
type Envelope struct {
    Type    string          `json:"type"`
    Payload json.RawMessage `json:"payload"`
}

// BidAcceptedEvent is published whenever a bid commits as the new highest
// bid.  It carries enough information for downstream consumers to notify
// outbid users or feed analytics without querying the primary database.
// Amounts travel as decimal strings to avoid float rounding on the wire.
type BidAcceptedEvent struct {
    BidID      string `json:"bid_id"`
    AuctionID  uint64 `json:"auction_id"`
    LotID      string `json:"lot_id"`
    BidderID   uint64 `json:"bidder_id"`
    Amount     string `json:"amount"`
    AcceptedAt string `json:"accepted_at"`
}

// AuctionEndedEvent is published when the lifecycle manager commits the
// ACTIVE -> ENDED transition.  FinalPrice and WinnerID are null when the
// auction closed without a single accepted bid; settlement skips those.
type AuctionEndedEvent struct {
    AuctionID  uint64  `json:"auction_id"`
    LotID      string  `json:"lot_id"`
    FinalPrice *string `json:"final_price"`
    WinnerID   *uint64 `json:"winner_id"`
    WindowEnd  string  `json:"window_end"`
    EndedAt    string  `json:"ended_at"`
}
