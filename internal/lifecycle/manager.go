// Package lifecycle owns the auction state machine.  It is the only
// component allowed to move an auction out of ACTIVE: a periodic sweep
// (and a lazy reconcile performed inline on reads) flips SCHEDULED
// auctions to ACTIVE when their window opens and ACTIVE auctions to ENDED
// when it closes.  Transitions go through the same conditional-update
// primitive as bids, so two sweeps racing each other commit exactly one
// transition; the loser observes the already-updated row and no-ops.
// A sweep that fails simply re-evaluates next time: the machine is
// idempotent and convergent and never needs compensating actions.
package lifecycle

import (
    "context"
    "errors"
    "log"
    "time"

    "github.com/weeklymint/nft-auction/internal/model"
    "github.com/weeklymint/nft-auction/internal/repository"
)

// ErrAlreadyEnded is returned by Cancel when the auction has already
// ended; a finished sale cannot be voided through this path.
var ErrAlreadyEnded = errors.New("auction already ended")

// Store is the slice of the persistence layer the manager depends on.
// *repository.AuctionRepo satisfies it.
type Store interface {
    GetByID(ctx context.Context, id uint64) (*model.Auction, error)
    ListDueForActivation(ctx context.Context, now time.Time) ([]*model.Auction, error)
    ListDueForEnd(ctx context.Context, now time.Time) ([]*model.Auction, error)
    TryUpdateStatus(ctx context.Context, id uint64, expectedVersion uint64, status string) (uint64, error)
}

// EventSink receives lifecycle notifications for external collaborators
// (settlement, notification).  Publishing is best effort: a failed publish
// never rolls back a committed transition.
type EventSink interface {
    AuctionEnded(ctx context.Context, a *model.Auction) error
}

// Manager drives auction state transitions.  It is stateless and safe for
// concurrent use; correctness rests on the store's conditional updates.
type Manager struct {
    store  Store
    events EventSink // may be nil
    now    func() time.Time
}

// NewManager constructs a Manager.  events may be nil when no collaborator
// listens for lifecycle notifications (tests, offline tooling).
func NewManager(store Store, events EventSink) *Manager {
    return &Manager{store: store, events: events, now: time.Now}
}

// reconcileAttempts bounds how many conditional-update races a single
// reconcile or cancel call absorbs before giving up and leaving the row
// for the next sweep.
const reconcileAttempts = 3

// Reconcile applies any transitions the clock makes due for one auction
// and returns its up-to-date state.  Called inline on reads so clients
// polling the schedule never observe a stale SCHEDULED auction whose
// window already opened.  Losing a version race means another sweep did
// the work; the row is re-read and reconciliation continues from there.
func (m *Manager) Reconcile(ctx context.Context, a *model.Auction) (*model.Auction, error) {
    now := m.now().UTC()
    for attempt := 0; attempt < reconcileAttempts; attempt++ {
        next, ok := nextTransition(a, now)
        if !ok {
            return a, nil
        }
        newVersion, err := m.store.TryUpdateStatus(ctx, a.ID, a.Version, next)
        if err == nil {
            prev := a.Status
            a.Status = next
            a.Version = newVersion
            if next == model.AuctionEnded {
                m.notifyEnded(ctx, a)
            }
            log.Printf("lifecycle: auction %d %s -> %s", a.ID, prev, next)
            continue
        }
        if !errors.Is(err, repository.ErrVersionConflict) {
            return a, err
        }
        fresh, err := m.store.GetByID(ctx, a.ID)
        if err != nil {
            return a, err
        }
        a = fresh
    }
    return a, nil
}

// nextTransition returns the single transition due for the auction at
// `now`, if any.  A SCHEDULED auction whose window has entirely passed is
// still activated first and ended by the following iteration, keeping the
// machine on its one-directional path.
func nextTransition(a *model.Auction, now time.Time) (string, bool) {
    switch a.Status {
    case model.AuctionScheduled:
        if !now.Before(a.WindowStart) {
            return model.AuctionActive, true
        }
    case model.AuctionActive:
        if !now.Before(a.WindowEnd) {
            return model.AuctionEnded, true
        }
    }
    return "", false
}

// Sweep runs one pass of the periodic lifecycle job: activate every
// SCHEDULED auction whose window opened, then end every ACTIVE auction
// whose window closed.  Activation runs first so an auction whose whole
// window passed between sweeps converges to ENDED within a single pass.
// Returns how many auctions were activated and ended.
func (m *Manager) Sweep(ctx context.Context) (activated, ended int, err error) {
    now := m.now().UTC()

    due, err := m.store.ListDueForActivation(ctx, now)
    if err != nil {
        return 0, 0, err
    }
    for _, a := range due {
        if _, err := m.store.TryUpdateStatus(ctx, a.ID, a.Version, model.AuctionActive); err != nil {
            if errors.Is(err, repository.ErrVersionConflict) {
                continue // another sweep got there first
            }
            return activated, ended, err
        }
        activated++
    }

    closing, err := m.store.ListDueForEnd(ctx, now)
    if err != nil {
        return activated, 0, err
    }
    for _, a := range closing {
        newVersion, err := m.store.TryUpdateStatus(ctx, a.ID, a.Version, model.AuctionEnded)
        if err != nil {
            if errors.Is(err, repository.ErrVersionConflict) {
                continue
            }
            return activated, ended, err
        }
        ended++
        a.Status = model.AuctionEnded
        a.Version = newVersion
        m.notifyEnded(ctx, a)
    }
    return activated, ended, nil
}

// Cancel voids an auction on explicit operator action.  Allowed from
// SCHEDULED and ACTIVE; cancelling an already-cancelled auction is a
// no-op so the operation is idempotent.  The current bid is retained for
// audit but carries no winner.
func (m *Manager) Cancel(ctx context.Context, auctionID uint64) (*model.Auction, error) {
    for attempt := 0; attempt < reconcileAttempts; attempt++ {
        a, err := m.store.GetByID(ctx, auctionID)
        if err != nil {
            return nil, err
        }
        switch a.Status {
        case model.AuctionCancelled:
            return a, nil
        case model.AuctionEnded:
            return nil, ErrAlreadyEnded
        }
        newVersion, err := m.store.TryUpdateStatus(ctx, auctionID, a.Version, model.AuctionCancelled)
        if err == nil {
            a.Status = model.AuctionCancelled
            a.Version = newVersion
            log.Printf("lifecycle: auction %d cancelled by operator", a.ID)
            return a, nil
        }
        if !errors.Is(err, repository.ErrVersionConflict) {
            return nil, err
        }
        // A bid or sweep committed between our read and write; re-read.
    }
    return nil, repository.ErrVersionConflict
}

// Run executes Sweep on a fixed interval until the context is cancelled.
// Intended to be started once from main as a background goroutine; extra
// replicas running their own sweepers are harmless because every
// transition is a conditional update.
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
    ticker := time.NewTicker(interval)
    defer ticker.Stop()
    for {
        select {
        case <-ctx.Done():
            return
        case <-ticker.C:
            activated, ended, err := m.Sweep(ctx)
            if err != nil {
                log.Printf("lifecycle: sweep failed: %v", err)
                continue
            }
            if activated > 0 || ended > 0 {
                log.Printf("lifecycle: sweep activated=%d ended=%d", activated, ended)
            }
        }
    }
}

func (m *Manager) notifyEnded(ctx context.Context, a *model.Auction) {
    if m.events == nil {
        return
    }
    if err := m.events.AuctionEnded(ctx, a); err != nil {
        log.Printf("lifecycle: publishing end of auction %d failed: %v", a.ID, err)
    }
}
