package service

import (
	"context"
	"log"
	"time"
)

/* =========================================================
   Expiry Sweeper

   Purges stale non-terminal state the gateway will never
   call back for: pending intents past the timeout (their
   bills are reset to unpaid) and legacy pending ledger
   rows. A swept order's late callback then finds no intent
   and dies as an idempotent no-op.
========================================================= */

const DefaultSweepTimeout = 30 * time.Minute

type Sweeper struct {
	Uow     UnitOfWork
	Timeout time.Duration
}

func NewSweeper(uow UnitOfWork, timeout time.Duration) *Sweeper {
	if timeout <= 0 {
		timeout = DefaultSweepTimeout
	}
	return &Sweeper{Uow: uow, Timeout: timeout}
}

type SweepReport struct {
	IntentsRemoved    int   `json:"intents_removed"`
	LedgerRowsRemoved int64 `json:"ledger_rows_removed"`
}

func (sw *Sweeper) SweepExpired(ctx context.Context) (SweepReport, error) {
	cutoff := time.Now().Add(-sw.Timeout)
	var report SweepReport

	err := sw.Uow.InTx(ctx, func(s Stores) error {
		stale, err := s.Intents.ListOlderThan(ctx, cutoff)
		if err != nil {
			return err
		}
		for _, it := range stale {
			if err := s.Intents.DeleteByOrderID(ctx, it.PendingIntentOrderID); err != nil {
				return err
			}
			if err := s.Bills.ResetByOrderID(ctx, it.PendingIntentOrderID); err != nil {
				return err
			}
		}
		report.IntentsRemoved = len(stale)

		n, err := s.Ledger.DeleteStalePending(ctx, cutoff)
		if err != nil {
			return err
		}
		report.LedgerRowsRemoved = n
		return nil
	})
	if err != nil {
		return report, err
	}

	if report.IntentsRemoved > 0 || report.LedgerRowsRemoved > 0 {
		log.Printf("[SWEEPER] removed %d stale intents, %d stale ledger rows", report.IntentsRemoved, report.LedgerRowsRemoved)
	}
	return report, nil
}

// StartExpirySweeper runs the sweep on a fixed interval until the
// context is cancelled. The cleanup endpoint triggers the same sweep
// on demand.
func StartExpirySweeper(ctx context.Context, sw *Sweeper, every time.Duration) {
	if every <= 0 {
		every = 10 * time.Minute
	}
	go func() {
		ticker := time.NewTicker(every)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := sw.SweepExpired(ctx); err != nil {
					log.Printf("[SWEEPER] sweep failed: %v", err)
				}
			}
		}
	}()
}
