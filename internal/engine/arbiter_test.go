package engine

import (
    "context"
    "errors"
    "sync"
    "testing"
    "time"

    "github.com/peterldowns/testy/assert"
    "github.com/peterldowns/testy/check"
    "github.com/shopspring/decimal"

    "github.com/weeklymint/nft-auction/internal/model"
    "github.com/weeklymint/nft-auction/internal/repository"
)

// fakeStore is an in-memory auction store with the same compare-and-swap
// contract as the MySQL repository: an update only lands when the caller
// presents the version it read, and every committed write bumps the
// version.  It additionally records the order of committed amounts so
// tests can assert monotonicity.
type fakeStore struct {
    mu      sync.Mutex
    auction model.Auction
    commits []decimal.Decimal
    getErr  error
    updErr  error
}

func (f *fakeStore) GetByID(ctx context.Context, id uint64) (*model.Auction, error) {
    f.mu.Lock()
    defer f.mu.Unlock()
    if f.getErr != nil {
        return nil, f.getErr
    }
    if id != f.auction.ID {
        return nil, repository.ErrAuctionNotFound
    }
    cp := f.auction
    if f.auction.CurrentBid != nil {
        b := *f.auction.CurrentBid
        cp.CurrentBid = &b
    }
    if f.auction.CurrentBidderID != nil {
        u := *f.auction.CurrentBidderID
        cp.CurrentBidderID = &u
    }
    return &cp, nil
}

func (f *fakeStore) TryUpdateBid(ctx context.Context, id uint64, expectedVersion uint64, amount decimal.Decimal, bidderID uint64) (uint64, error) {
    f.mu.Lock()
    defer f.mu.Unlock()
    if f.updErr != nil {
        return 0, f.updErr
    }
    if id != f.auction.ID || f.auction.Version != expectedVersion {
        return 0, repository.ErrVersionConflict
    }
    f.auction.CurrentBid = &amount
    f.auction.CurrentBidderID = &bidderID
    f.auction.Version++
    f.commits = append(f.commits, amount)
    return f.auction.Version, nil
}

// fakeLog captures audit writes.
type fakeLog struct {
    mu   sync.Mutex
    bids []*model.Bid
}

func (l *fakeLog) Create(ctx context.Context, b *model.Bid) error {
    l.mu.Lock()
    defer l.mu.Unlock()
    l.bids = append(l.bids, b)
    return nil
}

func (l *fakeLog) byOutcome(outcome string) []*model.Bid {
    l.mu.Lock()
    defer l.mu.Unlock()
    out := make([]*model.Bid, 0, len(l.bids))
    for _, b := range l.bids {
        if b.Outcome == outcome {
            out = append(out, b)
        }
    }
    return out
}

func dec(s string) decimal.Decimal {
    d, err := decimal.NewFromString(s)
    if err != nil {
        panic(err)
    }
    return d
}

// activeAuction returns a store holding one ACTIVE auction whose window
// covers mid, with startPrice 0.1 and minIncrement 0.1.
func activeAuction(mid time.Time) *fakeStore {
    return &fakeStore{auction: model.Auction{
        ID:           7,
        LotID:        "lot-7",
        StartPrice:   dec("0.1"),
        MinIncrement: dec("0.1"),
        WindowStart:  mid.Add(-time.Hour),
        WindowEnd:    mid.Add(time.Hour),
        Status:       model.AuctionActive,
        Version:      1,
    }}
}

func TestPlaceBid_FirstBidMustReachStartPrice(t *testing.T) {
    now := time.Now().UTC()
    store := activeAuction(now)
    audit := &fakeLog{}
    arb := NewArbiter(store, audit, 3)

    out, err := arb.PlaceBid(context.Background(), 7, 42, dec("0.05"), now)
    assert.Nil(t, err)
    check.False(t, out.Accepted)
    check.Equal(t, ReasonBidTooLow, out.Reason)

    out, err = arb.PlaceBid(context.Background(), 7, 42, dec("0.1"), now)
    assert.Nil(t, err)
    check.True(t, out.Accepted)
    check.True(t, out.NewCurrentBid.Equal(dec("0.1")))
}

func TestPlaceBid_MinimumIncrement(t *testing.T) {
    now := time.Now().UTC()
    store := activeAuction(now)
    cur := dec("1.0")
    bidder := uint64(9)
    store.auction.CurrentBid = &cur
    store.auction.CurrentBidderID = &bidder
    audit := &fakeLog{}
    arb := NewArbiter(store, audit, 3)

    // 1.05 < 1.0 + 0.1, rejected.
    out, err := arb.PlaceBid(context.Background(), 7, 42, dec("1.05"), now)
    assert.Nil(t, err)
    check.False(t, out.Accepted)
    check.Equal(t, ReasonBidTooLow, out.Reason)

    // 1.1 == 1.0 + 0.1, accepted.
    out, err = arb.PlaceBid(context.Background(), 7, 42, dec("1.1"), now)
    assert.Nil(t, err)
    check.True(t, out.Accepted)
    check.True(t, out.NewCurrentBid.Equal(dec("1.1")))

    // Both attempts were audited, the rejection with its reason code.
    rejected := audit.byOutcome(model.BidRejected)
    assert.Equal(t, 1, len(rejected))
    check.Equal(t, ReasonBidTooLow, rejected[0].Reason)
    accepted := audit.byOutcome(model.BidAccepted)
    assert.Equal(t, 1, len(accepted))
    check.NotNil(t, accepted[0].AcceptedAt)
}

func TestPlaceBid_NonPositiveAmount(t *testing.T) {
    now := time.Now().UTC()
    arb := NewArbiter(activeAuction(now), &fakeLog{}, 3)

    out, err := arb.PlaceBid(context.Background(), 7, 42, dec("0"), now)
    assert.Nil(t, err)
    check.False(t, out.Accepted)
    check.Equal(t, ReasonBidTooLow, out.Reason)
}

func TestPlaceBid_StatusGuards(t *testing.T) {
    now := time.Now().UTC()
    for _, status := range []string{model.AuctionScheduled, model.AuctionEnded, model.AuctionCancelled} {
        store := activeAuction(now)
        store.auction.Status = status
        arb := NewArbiter(store, &fakeLog{}, 3)

        out, err := arb.PlaceBid(context.Background(), 7, 42, dec("5"), now)
        assert.Nil(t, err)
        check.False(t, out.Accepted)
        check.Equal(t, ReasonAuctionNotOpen, out.Reason)
    }
}

func TestPlaceBid_WindowBoundaries(t *testing.T) {
    now := time.Now().UTC()
    store := activeAuction(now)
    end := store.auction.WindowEnd
    arb := NewArbiter(store, &fakeLog{}, 3)

    // One nanosecond before the window closes: accepted.
    out, err := arb.PlaceBid(context.Background(), 7, 42, dec("5"), end.Add(-time.Nanosecond))
    assert.Nil(t, err)
    check.True(t, out.Accepted)

    // Exactly at windowEnd: the end is exclusive, rejected.
    out, err = arb.PlaceBid(context.Background(), 7, 43, dec("6"), end)
    assert.Nil(t, err)
    check.False(t, out.Accepted)
    check.Equal(t, ReasonAuctionNotOpen, out.Reason)

    // Before windowStart: rejected as well.
    out, err = arb.PlaceBid(context.Background(), 7, 43, dec("6"), store.auction.WindowStart.Add(-time.Nanosecond))
    assert.Nil(t, err)
    check.Equal(t, ReasonAuctionNotOpen, out.Reason)

    // Exactly at windowStart: the start is inclusive, accepted.
    out, err = arb.PlaceBid(context.Background(), 7, 43, dec("6"), store.auction.WindowStart)
    assert.Nil(t, err)
    check.True(t, out.Accepted)
}

func TestPlaceBid_UnknownAuction(t *testing.T) {
    now := time.Now().UTC()
    arb := NewArbiter(activeAuction(now), &fakeLog{}, 3)

    _, err := arb.PlaceBid(context.Background(), 999, 42, dec("5"), now)
    check.True(t, errors.Is(err, repository.ErrAuctionNotFound))
}

func TestPlaceBid_StoreUnavailable(t *testing.T) {
    now := time.Now().UTC()
    store := activeAuction(now)
    store.getErr = errors.New("connection refused")
    audit := &fakeLog{}
    arb := NewArbiter(store, audit, 3)

    out, err := arb.PlaceBid(context.Background(), 7, 42, dec("5"), now)
    assert.Nil(t, err)
    check.False(t, out.Accepted)
    check.Equal(t, ReasonStoreUnavailable, out.Reason)
}

// conflictStore always loses the conditional update, simulating contention
// heavier than the retry budget.
type conflictStore struct{ fakeStore }

func (c *conflictStore) TryUpdateBid(ctx context.Context, id uint64, expectedVersion uint64, amount decimal.Decimal, bidderID uint64) (uint64, error) {
    return 0, repository.ErrVersionConflict
}

func TestPlaceBid_ContentionExhausted(t *testing.T) {
    now := time.Now().UTC()
    store := &conflictStore{}
    store.auction = activeAuction(now).auction
    audit := &fakeLog{}
    arb := NewArbiter(store, audit, 4)

    out, err := arb.PlaceBid(context.Background(), 7, 42, dec("5"), now)
    assert.Nil(t, err)
    check.False(t, out.Accepted)
    check.Equal(t, ReasonContentionExhausted, out.Reason)

    rejected := audit.byOutcome(model.BidRejected)
    assert.Equal(t, 1, len(rejected))
    check.Equal(t, ReasonContentionExhausted, rejected[0].Reason)
}

// closingStore loses the bidder's first conditional update to a lifecycle
// close: the ACTIVE -> ENDED transition commits (and bumps the version)
// between the bidder's read and write, exactly as TryUpdateStatus would.
type closingStore struct{ fakeStore }

func (s *closingStore) TryUpdateBid(ctx context.Context, id uint64, expectedVersion uint64, amount decimal.Decimal, bidderID uint64) (uint64, error) {
    s.mu.Lock()
    if s.auction.Status == model.AuctionActive {
        s.auction.Status = model.AuctionEnded
        s.auction.Version++
        s.mu.Unlock()
        return 0, repository.ErrVersionConflict
    }
    s.mu.Unlock()
    return s.fakeStore.TryUpdateBid(ctx, id, expectedVersion, amount, bidderID)
}

// A bid racing the close must lose the conditional update and, on re-read,
// be rejected with auction_not_open rather than landing on an ended lot.
func TestPlaceBid_RaceWithCloseRejectsNotOpen(t *testing.T) {
    now := time.Now().UTC()
    store := &closingStore{}
    store.auction = activeAuction(now).auction
    audit := &fakeLog{}
    arb := NewArbiter(store, audit, 4)

    out, err := arb.PlaceBid(context.Background(), 7, 42, dec("5"), now)
    assert.Nil(t, err)
    check.False(t, out.Accepted)
    check.Equal(t, ReasonAuctionNotOpen, out.Reason)

    // The lot stays ENDED with no bid attached.
    check.Equal(t, model.AuctionEnded, store.auction.Status)
    check.Nil(t, store.auction.CurrentBid)

    rejected := audit.byOutcome(model.BidRejected)
    assert.Equal(t, 1, len(rejected))
    check.Equal(t, ReasonAuctionNotOpen, rejected[0].Reason)
    check.Equal(t, 0, len(audit.byOutcome(model.BidAccepted)))
}

// TestPlaceBid_ConcurrentRace drives 64 concurrent bidders with distinct
// amounts at one lot and verifies the no-lost-update guarantees: the
// committed sequence is strictly increasing, every commit consumed exactly
// one version, and the final price is the maximum amount submitted.
func TestPlaceBid_ConcurrentRace(t *testing.T) {
    now := time.Now().UTC()
    store := activeAuction(now)
    audit := &fakeLog{}
    // Budget above the bidder count: a conflict always means someone else
    // committed, so no bidder can exhaust it in this test.
    arb := NewArbiter(store, audit, 80)

    const bidders = 64
    var wg sync.WaitGroup
    outcomes := make([]Outcome, bidders)
    for i := 0; i < bidders; i++ {
        wg.Add(1)
        go func(i int) {
            defer wg.Done()
            amount := dec("10").Add(decimal.NewFromInt(int64(i))) // 10, 11, ... 73
            out, err := arb.PlaceBid(context.Background(), 7, uint64(100+i), amount, now)
            if err != nil {
                t.Errorf("bidder %d: unexpected error: %v", i, err)
                return
            }
            outcomes[i] = out
        }(i)
    }
    wg.Wait()

    // The committed sequence is strictly increasing.
    for i := 1; i < len(store.commits); i++ {
        if !store.commits[i].GreaterThan(store.commits[i-1]) {
            t.Fatalf("commit %d (%s) not greater than previous (%s)",
                i, store.commits[i], store.commits[i-1])
        }
    }

    // Exactly one version was consumed per committed bid.
    check.Equal(t, uint64(len(store.commits)), store.auction.Version-1)

    // The highest submitted amount always beats the standing price, so it
    // must be the final one.
    assert.NotNil(t, store.auction.CurrentBid)
    check.True(t, store.auction.CurrentBid.Equal(dec("73")))

    // The outcome split matches the audit log and the commit count.
    acceptedCount := 0
    for _, out := range outcomes {
        if out.Accepted {
            acceptedCount++
        } else {
            check.Equal(t, ReasonBidTooLow, out.Reason)
        }
    }
    check.Equal(t, len(store.commits), acceptedCount)
    check.Equal(t, acceptedCount, len(audit.byOutcome(model.BidAccepted)))
    check.Equal(t, bidders-acceptedCount, len(audit.byOutcome(model.BidRejected)))
}

func TestPlaceBid_RejectionAuditCarriesAmount(t *testing.T) {
    now := time.Now().UTC()
    store := activeAuction(now)
    store.auction.Status = model.AuctionEnded
    audit := &fakeLog{}
    arb := NewArbiter(store, audit, 3)

    _, err := arb.PlaceBid(context.Background(), 7, 42, dec("2.5"), now)
    assert.Nil(t, err)

    rejected := audit.byOutcome(model.BidRejected)
    assert.Equal(t, 1, len(rejected))
    check.True(t, rejected[0].Amount.Equal(dec("2.5")))
    check.Equal(t, uint64(42), rejected[0].BidderID)
    check.Equal(t, uint64(7), rejected[0].AuctionID)
    check.Nil(t, rejected[0].AcceptedAt)
}
