// Package engine implements the bid arbiter: the single mutating entry
// point of the auction core.  It validates a bid against the auction's
// state and window, then commits it through the store's conditional-update
// primitive.  Correctness under concurrent callers rests entirely on that
// compare-and-swap; the arbiter itself holds no locks and keeps no state,
// so any number of request handlers or replicas may run it at once.
package engine

import (
    "context"
    "errors"
    "log"
    "time"

    "github.com/google/uuid"
    "github.com/shopspring/decimal"

    "github.com/weeklymint/nft-auction/internal/model"
    "github.com/weeklymint/nft-auction/internal/repository"
)

// Rejection reason codes returned to callers.  Every rejection is an
// expected, modeled outcome; only infrastructure trouble surfaces as
// ReasonStoreUnavailable.
const (
    // ReasonAuctionNotOpen – the auction is not ACTIVE, or the bid was
    // submitted outside the [windowStart, windowEnd) interval.  The caller
    // should re-check the schedule and possibly retry in the next window.
    ReasonAuctionNotOpen = "auction_not_open"
    // ReasonBidTooLow – the amount does not reach
    // max(startPrice, currentBid + minIncrement).  Recoverable immediately
    // with a higher amount.
    ReasonBidTooLow = "bid_too_low"
    // ReasonContentionExhausted – the bounded retry budget ran out under
    // heavy concurrent contention on the same lot.  The caller should back
    // off and resubmit.
    ReasonContentionExhausted = "contention_exhausted"
    // ReasonStoreUnavailable – the underlying persistence failed.  A
    // transient infrastructure failure, distinct from the three domain
    // rejections above.
    ReasonStoreUnavailable = "store_unavailable"
)

// AuctionStore is the slice of the persistence layer the arbiter depends
// on.  *repository.AuctionRepo satisfies it; tests use an in-memory fake
// with the same compare-and-swap semantics.
type AuctionStore interface {
    GetByID(ctx context.Context, id uint64) (*model.Auction, error)
    TryUpdateBid(ctx context.Context, id uint64, expectedVersion uint64, amount decimal.Decimal, bidderID uint64) (uint64, error)
}

// BidLog records every bid attempt for audit.  *repository.BidRepo
// satisfies it.
type BidLog interface {
    Create(ctx context.Context, bid *model.Bid) error
}

// Outcome is the typed result of a bid attempt.  Rejections carry a
// Reason; accepted bids carry the commit instant and the price the
// auction now stands at.
type Outcome struct {
    Accepted      bool
    Reason        string          // one of the Reason* constants; empty when accepted
    BidID         string          // audit identifier of this attempt
    NewCurrentBid decimal.Decimal // standing price after acceptance
    AcceptedAt    time.Time       // commit instant, not submission instant
}

// Arbiter accepts competing bids and serializes them through the store's
// conditional update.  It is safe for concurrent use.
type Arbiter struct {
    store       AuctionStore
    audit       BidLog
    retryBudget int
    now         func() time.Time
}

// NewArbiter constructs an Arbiter.  retryBudget bounds how many times a
// bid is re-validated after losing a version race before it is rejected
// with contention_exhausted; values below 1 are raised to 1.
func NewArbiter(store AuctionStore, audit BidLog, retryBudget int) *Arbiter {
    if retryBudget < 1 {
        retryBudget = 1
    }
    return &Arbiter{store: store, audit: audit, retryBudget: retryBudget, now: time.Now}
}

// PlaceBid validates and commits one bid.  submittedAt is checked against
// the auction's window (start inclusive, end exclusive); the returned
// AcceptedAt is the instant the conditional update committed.
//
// The loop is the optimistic-concurrency protocol: read the auction,
// validate status, window and amount against what was read, then attempt
// the conditional update with the version that was read.  Losing the
// update means another bid (or a lifecycle transition) committed first, so
// the state is re-read and re-validated – the bid may now be too low, or
// the window may have just closed.  The loop never sleeps; contention
// windows on a single lot are short.
//
// Only an unknown auction is reported as an error; everything else,
// including store failures, is a typed Outcome.  Every attempt is recorded
// in the audit log, rejections included.
func (a *Arbiter) PlaceBid(ctx context.Context, auctionID, bidderID uint64, amount decimal.Decimal, submittedAt time.Time) (Outcome, error) {
    if amount.Sign() <= 0 {
        return a.reject(ctx, auctionID, bidderID, amount, ReasonBidTooLow), nil
    }

    for attempt := 0; attempt < a.retryBudget; attempt++ {
        auction, err := a.store.GetByID(ctx, auctionID)
        if err != nil {
            if errors.Is(err, repository.ErrAuctionNotFound) {
                return Outcome{}, err
            }
            return a.reject(ctx, auctionID, bidderID, amount, ReasonStoreUnavailable), nil
        }

        if auction.Status != model.AuctionActive || !auction.WindowContains(submittedAt) {
            return a.reject(ctx, auctionID, bidderID, amount, ReasonAuctionNotOpen), nil
        }
        if amount.LessThan(auction.MinimumAcceptable()) {
            return a.reject(ctx, auctionID, bidderID, amount, ReasonBidTooLow), nil
        }

        _, err = a.store.TryUpdateBid(ctx, auctionID, auction.Version, amount, bidderID)
        if err != nil {
            if errors.Is(err, repository.ErrVersionConflict) {
                continue // somebody committed first; re-read and re-validate
            }
            return a.reject(ctx, auctionID, bidderID, amount, ReasonStoreUnavailable), nil
        }

        acceptedAt := a.now().UTC()
        out := Outcome{
            Accepted:      true,
            BidID:         uuid.NewString(),
            NewCurrentBid: amount,
            AcceptedAt:    acceptedAt,
        }
        a.record(ctx, &model.Bid{
            ID:         out.BidID,
            AuctionID:  auctionID,
            BidderID:   bidderID,
            Amount:     amount,
            Outcome:    model.BidAccepted,
            AcceptedAt: &acceptedAt,
        })
        return out, nil
    }

    return a.reject(ctx, auctionID, bidderID, amount, ReasonContentionExhausted), nil
}

// reject records the failed attempt and builds the rejection outcome.
func (a *Arbiter) reject(ctx context.Context, auctionID, bidderID uint64, amount decimal.Decimal, reason string) Outcome {
    id := uuid.NewString()
    a.record(ctx, &model.Bid{
        ID:        id,
        AuctionID: auctionID,
        BidderID:  bidderID,
        Amount:    amount,
        Outcome:   model.BidRejected,
        Reason:    reason,
    })
    return Outcome{Accepted: false, Reason: reason, BidID: id}
}

// record appends to the audit log.  Audit failures never change the
// outcome of a bid; they are logged and the committed result stands.
func (a *Arbiter) record(ctx context.Context, b *model.Bid) {
    if err := a.audit.Create(ctx, b); err != nil {
        log.Printf("bid audit: recording attempt %s on auction %d failed: %v", b.ID, b.AuctionID, err)
    }
}
