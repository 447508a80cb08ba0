package handler

import (
    "testing"
    "time"

    "github.com/peterldowns/testy/assert"
    "github.com/peterldowns/testy/check"
    "github.com/shopspring/decimal"

    "github.com/weeklymint/nft-auction/internal/model"
)

func dec(t *testing.T, s string) decimal.Decimal {
    t.Helper()
    d, err := decimal.NewFromString(s)
    assert.Nil(t, err)
    return d
}

// The schedule payload must be authoritative for the lot's own window even
// when that window was scheduled off the recurring weekly slot: an ACTIVE
// auction reports active=true with its row's window and standing bid, no
// matter what the rule says about now.
func TestScheduleRespUsesAuctionWindowNotRule(t *testing.T) {
    now := time.Now().UTC()
    bid := dec(t, "2.5")
    bidder := uint64(9)
    a := &model.Auction{
        ID:              11,
        LotID:           "lot-11",
        StartPrice:      dec(t, "1"),
        MinIncrement:    dec(t, "0.1"),
        WindowStart:     now.Add(-30 * time.Minute),
        WindowEnd:       now.Add(30 * time.Minute),
        Status:          model.AuctionActive,
        CurrentBid:      &bid,
        CurrentBidderID: &bidder,
        Version:         4,
    }
    next := now.Add(7 * 24 * time.Hour)

    resp := toScheduleResp(a, next, now)

    check.True(t, resp.Active)
    check.Equal(t, model.AuctionActive, resp.Status)
    check.Equal(t, a.WindowStart, resp.WindowStart)
    check.Equal(t, a.WindowEnd, resp.WindowEnd)
    assert.NotNil(t, resp.CurrentBid)
    check.Equal(t, "2.5", *resp.CurrentBid)
    assert.NotNil(t, resp.CurrentBidderID)
    check.Equal(t, bidder, *resp.CurrentBidderID)
    check.Equal(t, next, resp.NextWindowStart)
}

// The window end is exclusive: at exactly window_end the lot no longer
// reports active even while the row is still ACTIVE.
func TestScheduleRespInactiveAtWindowEnd(t *testing.T) {
    now := time.Now().UTC()
    a := &model.Auction{
        ID:           12,
        StartPrice:   dec(t, "1"),
        MinIncrement: dec(t, "0.1"),
        WindowStart:  now.Add(-2 * time.Hour),
        WindowEnd:    now,
        Status:       model.AuctionActive,
        Version:      1,
    }

    resp := toScheduleResp(a, now.Add(24*time.Hour), now)

    check.False(t, resp.Active)
    check.Equal(t, model.AuctionActive, resp.Status)
    check.Nil(t, resp.CurrentBid)
    check.Nil(t, resp.CurrentBidderID)
}

// An ENDED auction stays inactive inside what used to be its window and
// keeps reporting the frozen winning bid.
func TestScheduleRespEndedKeepsWinner(t *testing.T) {
    now := time.Now().UTC()
    bid := dec(t, "7.3")
    bidder := uint64(21)
    a := &model.Auction{
        ID:              13,
        StartPrice:      dec(t, "1"),
        MinIncrement:    dec(t, "0.1"),
        WindowStart:     now.Add(-time.Hour),
        WindowEnd:       now.Add(time.Hour),
        Status:          model.AuctionEnded,
        CurrentBid:      &bid,
        CurrentBidderID: &bidder,
        Version:         6,
    }

    resp := toScheduleResp(a, now.Add(24*time.Hour), now)

    check.False(t, resp.Active)
    check.Equal(t, model.AuctionEnded, resp.Status)
    assert.NotNil(t, resp.CurrentBid)
    check.Equal(t, "7.3", *resp.CurrentBid)
    assert.NotNil(t, resp.CurrentBidderID)
    check.Equal(t, bidder, *resp.CurrentBidderID)
}
