package repository

import (
    "context"
    "database/sql"

    "github.com/shopspring/decimal"

    "github.com/weeklymint/nft-auction/internal/model"
)

// BidRepo provides data access to the `bids` audit table.  Every bid
// attempt is inserted here – accepted and rejected alike – so operators
// can reconstruct the full bidding history of an auction.  The table is
// append-only; the authoritative current price lives on the auction row.
type BidRepo struct {
    db *sql.DB
}

// NewBidRepo returns a new BidRepo bound to the given database.
func NewBidRepo(db *sql.DB) *BidRepo { return &BidRepo{db: db} }

// Create inserts one bid attempt.  Reason is stored as NULL for accepted
// bids; AcceptedAt is NULL for rejected ones.
func (r *BidRepo) Create(ctx context.Context, b *model.Bid) error {
    const q = `INSERT INTO bids (id, auction_id, bidder_id, amount, outcome, reason, accepted_at)
               VALUES (?, ?, ?, ?, ?, ?, ?)`
    var reason sql.NullString
    if b.Reason != "" {
        reason = sql.NullString{String: b.Reason, Valid: true}
    }
    var acceptedAt sql.NullTime
    if b.AcceptedAt != nil {
        acceptedAt = sql.NullTime{Time: b.AcceptedAt.UTC(), Valid: true}
    }
    _, err := r.db.ExecContext(ctx, q,
        b.ID, b.AuctionID, b.BidderID, b.Amount.String(), b.Outcome, reason, acceptedAt)
    return err
}

// ListByAuction returns the most recent bid attempts for an auction,
// newest first, capped at limit rows.  A non-positive limit defaults to
// 100.  When no bids exist an empty slice is returned.
func (r *BidRepo) ListByAuction(ctx context.Context, auctionID uint64, limit int) ([]*model.Bid, error) {
    if limit <= 0 {
        limit = 100
    }
    const q = `SELECT id, auction_id, bidder_id, amount, outcome, reason, accepted_at, created_at
               FROM bids
               WHERE auction_id = ?
               ORDER BY created_at DESC, id DESC
               LIMIT ?`
    rows, err := r.db.QueryContext(ctx, q, auctionID, limit)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    bids := make([]*model.Bid, 0)
    for rows.Next() {
        var (
            b          model.Bid
            amount     string
            reason     sql.NullString
            acceptedAt sql.NullTime
        )
        if err := rows.Scan(&b.ID, &b.AuctionID, &b.BidderID, &amount,
            &b.Outcome, &reason, &acceptedAt, &b.CreatedAt); err != nil {
            return nil, err
        }
        if b.Amount, err = decimal.NewFromString(amount); err != nil {
            return nil, err
        }
        if reason.Valid {
            b.Reason = reason.String
        }
        if acceptedAt.Valid {
            t := acceptedAt.Time
            b.AcceptedAt = &t
        }
        bids = append(bids, &b)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    return bids, nil
}
