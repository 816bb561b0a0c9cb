package gacha

import (
	"context"
	stderrors "errors"
	"sync"
	"time"

	"github.com/garagemint/garagemint/internal/app/system"
	"github.com/garagemint/garagemint/internal/domain/car"
	"github.com/garagemint/garagemint/internal/logging"
	"github.com/garagemint/garagemint/internal/metrics"
	"github.com/garagemint/garagemint/internal/storage"
)

// PendingSettlement is a confirmed mint whose local settlement write failed
// and must be retried.
type PendingSettlement struct {
	UserID   string
	Cost     int64
	Car      car.Car
	Attempts int
	NextTry  time.Time
}

// SettlementRetrier re-drives settlements that failed after the mint was
// confirmed. Entries live in memory only; anything still pending at shutdown
// is logged with its tx hash so an operator can reconcile by hand.
type SettlementRetrier struct {
	settler  storage.Settler
	interval time.Duration
	maxTries int
	log      *logging.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
	pending map[string]*PendingSettlement
}

var _ system.Service = (*SettlementRetrier)(nil)

func NewSettlementRetrier(settler storage.Settler, log *logging.Logger) *SettlementRetrier {
	if log == nil {
		log = logging.NewDefault("settlement-retrier")
	}
	return &SettlementRetrier{
		settler:  settler,
		interval: 15 * time.Second,
		maxTries: 8,
		log:      log,
		pending:  make(map[string]*PendingSettlement),
	}
}

func (r *SettlementRetrier) Name() string { return "settlement-retrier" }

// Enqueue schedules a failed settlement for retry. Keyed by token id, so
// re-enqueueing the same draw is idempotent.
func (r *SettlementRetrier) Enqueue(p PendingSettlement) {
	r.mu.Lock()
	if _, ok := r.pending[p.Car.TokenID]; !ok {
		p.NextTry = time.Now().Add(r.interval)
		r.pending[p.Car.TokenID] = &p
	}
	queued := len(r.pending)
	r.mu.Unlock()

	metrics.SetSettlementRetryQueue(queued)
	r.log.WithFields(map[string]interface{}{
		"token_id": p.Car.TokenID,
		"tx_hash":  p.Car.MintTxHash,
		"queued":   queued,
	}).Warn("settlement queued for retry")
}

// QueueDepth reports the number of pending settlements.
func (r *SettlementRetrier) QueueDepth() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}

func (r *SettlementRetrier) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return nil
	}
	runCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.running = true

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()
		for {
			select {
			case <-runCtx.Done():
				return
			case <-ticker.C:
				r.tick(runCtx)
			}
		}
	}()

	r.log.Info("settlement retrier started")
	return nil
}

func (r *SettlementRetrier) Stop(ctx context.Context) error {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return nil
	}
	cancel := r.cancel
	r.running = false
	r.cancel = nil
	r.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		r.wg.Wait()
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	r.mu.Lock()
	for _, p := range r.pending {
		r.log.WithFields(map[string]interface{}{
			"token_id": p.Car.TokenID,
			"tx_hash":  p.Car.MintTxHash,
			"user_id":  p.UserID,
		}).Error("settlement still pending at shutdown; manual reconciliation required")
	}
	r.mu.Unlock()

	return nil
}

func (r *SettlementRetrier) tick(ctx context.Context) {
	now := time.Now()

	r.mu.Lock()
	due := make([]*PendingSettlement, 0, len(r.pending))
	for _, p := range r.pending {
		if now.After(p.NextTry) {
			due = append(due, p)
		}
	}
	r.mu.Unlock()

	for _, p := range due {
		r.attempt(ctx, p)
	}

	r.mu.Lock()
	queued := len(r.pending)
	r.mu.Unlock()
	metrics.SetSettlementRetryQueue(queued)
}

func (r *SettlementRetrier) attempt(ctx context.Context, p *PendingSettlement) {
	log := r.log.WithFields(map[string]interface{}{
		"token_id": p.Car.TokenID,
		"tx_hash":  p.Car.MintTxHash,
		"user_id":  p.UserID,
	})

	_, err := r.settler.SettleDraw(ctx, p.UserID, p.Cost, p.Car)
	switch {
	case err == nil:
		log.Info("settlement recovered on retry")
		r.remove(p.Car.TokenID)
		return

	case stderrors.Is(err, storage.ErrDuplicateToken):
		// The original settlement landed after all; nothing left to do.
		log.Info("settlement already recorded; dropping retry")
		r.remove(p.Car.TokenID)
		return

	case stderrors.Is(err, storage.ErrInsufficientFunds), stderrors.Is(err, storage.ErrNotFound):
		// Retrying cannot change the outcome.
		log.WithError(err).Error("settlement unrecoverable; manual reconciliation required")
		r.remove(p.Car.TokenID)
		return
	}

	r.mu.Lock()
	p.Attempts++
	if p.Attempts >= r.maxTries {
		delete(r.pending, p.Car.TokenID)
		r.mu.Unlock()
		log.WithError(err).Error("settlement retries exhausted; manual reconciliation required")
		return
	}
	backoff := r.interval * time.Duration(1<<uint(p.Attempts))
	if backoff > 10*time.Minute {
		backoff = 10 * time.Minute
	}
	p.NextTry = time.Now().Add(backoff)
	r.mu.Unlock()

	log.WithError(err).Warnf("settlement retry %d failed", p.Attempts)
}

func (r *SettlementRetrier) remove(tokenID string) {
	r.mu.Lock()
	delete(r.pending, tokenID)
	r.mu.Unlock()
}
