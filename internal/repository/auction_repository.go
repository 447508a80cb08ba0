package repository

import (
    "context"
    "database/sql"
    "time"

    "github.com/shopspring/decimal"

    "github.com/weeklymint/nft-auction/internal/model"
)

// AuctionRepo provides data access to the `auctions` table.  The row's
// `version` column carries the optimistic-concurrency counter: every
// committed write increments it, and the TryUpdate* methods only touch the
// row when the caller-supplied version still matches.  That single
// compare-and-swap at the database is what serializes concurrent bids and
// lifecycle transitions; no in-process locking is used anywhere.
// All timestamps are stored and compared in UTC.
type AuctionRepo struct {
    db *sql.DB
}

// NewAuctionRepo returns a new AuctionRepo bound to the given database.
func NewAuctionRepo(db *sql.DB) *AuctionRepo { return &AuctionRepo{db: db} }

// DB exposes the underlying handle for callers that need to open
// transactions spanning multiple repositories.
func (r *AuctionRepo) DB() *sql.DB { return r.db }

const auctionColumns = `id, lot_id, start_price, min_increment, window_start, window_end,
       status, current_bid, current_bidder_id, version, created_at, updated_at`

// scanAuction reads one auctions row into a model.Auction.  Decimal
// columns travel as strings so no precision is lost between MySQL's
// DECIMAL and shopspring's arbitrary-precision representation.
func scanAuction(row interface{ Scan(...interface{}) error }) (*model.Auction, error) {
    var (
        a          model.Auction
        startPrice string
        minInc     string
        curBid     sql.NullString
        curBidder  sql.NullInt64
    )
    err := row.Scan(
        &a.ID, &a.LotID, &startPrice, &minInc, &a.WindowStart, &a.WindowEnd,
        &a.Status, &curBid, &curBidder, &a.Version, &a.CreatedAt, &a.UpdatedAt,
    )
    if err != nil {
        return nil, err
    }
    if a.StartPrice, err = decimal.NewFromString(startPrice); err != nil {
        return nil, err
    }
    if a.MinIncrement, err = decimal.NewFromString(minInc); err != nil {
        return nil, err
    }
    if curBid.Valid {
        bid, err := decimal.NewFromString(curBid.String)
        if err != nil {
            return nil, err
        }
        a.CurrentBid = &bid
    }
    if curBidder.Valid {
        bidder := uint64(curBidder.Int64)
        a.CurrentBidderID = &bidder
    }
    return &a, nil
}

// Create inserts a new auction in SCHEDULED state with version 1 and
// populates the generated ID on the passed model.  StartPrice,
// MinIncrement and the window must already be validated by the caller.
func (r *AuctionRepo) Create(ctx context.Context, a *model.Auction) error {
    const q = `INSERT INTO auctions
               (lot_id, start_price, min_increment, window_start, window_end, status, version)
               VALUES (?, ?, ?, ?, ?, ?, 1)`
    res, err := r.db.ExecContext(ctx, q,
        a.LotID, a.StartPrice.String(), a.MinIncrement.String(),
        a.WindowStart.UTC(), a.WindowEnd.UTC(), model.AuctionScheduled)
    if err != nil {
        return err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return err
    }
    a.ID = uint64(id)
    a.Status = model.AuctionScheduled
    a.Version = 1
    return nil
}

// GetByID fetches a single auction.  It returns ErrAuctionNotFound when
// no row exists.
func (r *AuctionRepo) GetByID(ctx context.Context, id uint64) (*model.Auction, error) {
    const q = `SELECT ` + auctionColumns + ` FROM auctions WHERE id = ?`
    a, err := scanAuction(r.db.QueryRowContext(ctx, q, id))
    if err == sql.ErrNoRows {
        return nil, ErrAuctionNotFound
    }
    return a, err
}

// FindUpcoming returns the auction UI clients should be watching: the one
// whose window covers `now` if it exists, otherwise the next auction whose
// window has not yet closed.  Returns ErrAuctionNotFound when nothing is
// scheduled.
func (r *AuctionRepo) FindUpcoming(ctx context.Context, now time.Time) (*model.Auction, error) {
    const q = `SELECT ` + auctionColumns + ` FROM auctions
               WHERE status IN (?, ?) AND window_end > ?
               ORDER BY window_start ASC
               LIMIT 1`
    a, err := scanAuction(r.db.QueryRowContext(ctx, q,
        model.AuctionScheduled, model.AuctionActive, now.UTC()))
    if err == sql.ErrNoRows {
        return nil, ErrAuctionNotFound
    }
    return a, err
}

// ListDueForActivation returns SCHEDULED auctions whose window has opened
// by `now`.  The lifecycle sweep activates each one with TryUpdateStatus.
func (r *AuctionRepo) ListDueForActivation(ctx context.Context, now time.Time) ([]*model.Auction, error) {
    const q = `SELECT ` + auctionColumns + ` FROM auctions
               WHERE status = ? AND window_start <= ?
               ORDER BY window_start ASC`
    return r.listAuctions(ctx, q, model.AuctionScheduled, now.UTC())
}

// ListDueForEnd returns ACTIVE auctions whose window has closed by `now`.
func (r *AuctionRepo) ListDueForEnd(ctx context.Context, now time.Time) ([]*model.Auction, error) {
    const q = `SELECT ` + auctionColumns + ` FROM auctions
               WHERE status = ? AND window_end <= ?
               ORDER BY window_end ASC`
    return r.listAuctions(ctx, q, model.AuctionActive, now.UTC())
}

func (r *AuctionRepo) listAuctions(ctx context.Context, q string, args ...interface{}) ([]*model.Auction, error) {
    rows, err := r.db.QueryContext(ctx, q, args...)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    auctions := make([]*model.Auction, 0)
    for rows.Next() {
        a, err := scanAuction(rows)
        if err != nil {
            return nil, err
        }
        auctions = append(auctions, a)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    return auctions, nil
}

// TryUpdateBid atomically installs a new highest bid.  The UPDATE only
// matches when the stored version equals expectedVersion, and it bumps the
// version in the same statement, so at most one concurrent writer can win
// per version.  On success the new version is returned; when the row was
// not touched (someone else committed first, or the auction left ACTIVE
// and its version moved on) ErrVersionConflict is returned so the caller
// can re-read and re-validate.
func (r *AuctionRepo) TryUpdateBid(ctx context.Context, id uint64, expectedVersion uint64, amount decimal.Decimal, bidderID uint64) (uint64, error) {
    const q = `UPDATE auctions
               SET current_bid = ?, current_bidder_id = ?, version = version + 1,
                   updated_at = UTC_TIMESTAMP()
               WHERE id = ? AND version = ?`
    res, err := r.db.ExecContext(ctx, q, amount.String(), bidderID, id, expectedVersion)
    if err != nil {
        return 0, err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return 0, err
    }
    if n == 0 {
        return 0, ErrVersionConflict
    }
    return expectedVersion + 1, nil
}

// TryUpdateStatus atomically moves the auction to a new status using the
// same conditional-update mechanism as TryUpdateBid.  Bumping the version
// here is what guarantees a bid racing with the ACTIVE -> ENDED transition
// loses its own conditional update.
func (r *AuctionRepo) TryUpdateStatus(ctx context.Context, id uint64, expectedVersion uint64, status string) (uint64, error) {
    const q = `UPDATE auctions
               SET status = ?, version = version + 1, updated_at = UTC_TIMESTAMP()
               WHERE id = ? AND version = ?`
    res, err := r.db.ExecContext(ctx, q, status, id, expectedVersion)
    if err != nil {
        return 0, err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return 0, err
    }
    if n == 0 {
        return 0, ErrVersionConflict
    }
    return expectedVersion + 1, nil
}
