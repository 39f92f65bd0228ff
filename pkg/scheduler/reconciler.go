package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/motortrade/salesd/pkg/metrics"
	"github.com/motortrade/salesd/pkg/model"
)

// Repository is the slice of the sale store the sweeps operate on.
type Repository interface {
	ListPending(ctx context.Context, limit int) ([]model.Sale, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status model.SaleStatus, approvedAt *time.Time) error
	ListApprovedUnnotified(ctx context.Context, limit, maxAttempts int) ([]model.Sale, error)
	IncrementWebhookAttempts(ctx context.Context, id uuid.UUID) error
	MarkWebhookNotified(ctx context.Context, id uuid.UUID) error
}

// Notifier delivers one approved-sale notification per call.
type Notifier interface {
	NotifyApprovedSale(ctx context.Context, sale *model.Sale) bool
}

// ApprovalPolicy gates the pending-resolution sweep. The reference system
// promoted every pending sale without a payment-confirmation signal; that
// behavior ships as AutoApprovePolicy but is not safe for production, where
// resolution should come through the payment callback instead.
type ApprovalPolicy interface {
	ShouldApprove(ctx context.Context, sale *model.Sale) bool
}

// AutoApprovePolicy approves every pending sale unconditionally. Demo/test
// shortcut; enable only via scheduler.auto_approve.
type AutoApprovePolicy struct{}

func (AutoApprovePolicy) ShouldApprove(context.Context, *model.Sale) bool { return true }

// ManualApprovalPolicy leaves pending sales untouched; they resolve only
// through the payment-provider callback.
type ManualApprovalPolicy struct{}

func (ManualApprovalPolicy) ShouldApprove(context.Context, *model.Sale) bool { return false }

type Options struct {
	PendingBatch  int
	WebhookBatch  int
	MaxAttempts   int
	DeliveryDelay time.Duration
}

// Reconciler owns the periodic sweep loop: pending-sale resolution followed
// by webhook delivery. All state lives on the struct, so independent
// instances never interfere.
type Reconciler struct {
	repo     Repository
	notifier Notifier
	policy   ApprovalPolicy
	logger   *zap.Logger
	opts     Options

	mu      sync.Mutex // guards running/stop/done
	sweepMu sync.Mutex // serializes sweeps across ticker and RunOnce
	running bool
	stop    chan struct{}
	done    chan struct{}
}

func NewReconciler(repo Repository, notifier Notifier, policy ApprovalPolicy, logger *zap.Logger, opts Options) *Reconciler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if policy == nil {
		policy = ManualApprovalPolicy{}
	}
	if opts.PendingBatch <= 0 {
		opts.PendingBatch = 20
	}
	if opts.WebhookBatch <= 0 {
		opts.WebhookBatch = 50
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 5
	}

	return &Reconciler{
		repo:     repo,
		notifier: notifier,
		policy:   policy,
		logger:   logger,
		opts:     opts,
	}
}

// Start launches the sweep loop. It is a no-op when the loop is already
// running. One sweep runs immediately, outside the timer.
func (r *Reconciler) Start(intervalSeconds int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		r.logger.Info("reconciler already running")
		return
	}

	if intervalSeconds <= 0 {
		intervalSeconds = 10
	}

	r.stop = make(chan struct{})
	r.done = make(chan struct{})
	r.running = true

	r.logger.Info("reconciler starting", zap.Int("interval_seconds", intervalSeconds))
	go r.loop(time.Duration(intervalSeconds)*time.Second, r.stop, r.done)
}

// Stop prevents further ticks and waits for any in-flight sweep to finish.
// It is a no-op when the loop is not running.
func (r *Reconciler) Stop() {
	r.mu.Lock()
	if !r.running {
		r.logger.Info("reconciler not running")
		r.mu.Unlock()
		return
	}
	close(r.stop)
	r.running = false
	done := r.done
	r.mu.Unlock()

	<-done
	r.logger.Info("reconciler stopped")
}

func (r *Reconciler) IsActive() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// RunOnce executes both sweeps synchronously and propagates their errors.
func (r *Reconciler) RunOnce(ctx context.Context) error {
	return r.sweep(ctx)
}

func (r *Reconciler) loop(interval time.Duration, stop, done chan struct{}) {
	defer close(done)

	r.sweepLogged(context.Background())

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			r.sweepLogged(context.Background())
		}
	}
}

func (r *Reconciler) sweepLogged(ctx context.Context) {
	if err := r.sweep(ctx); err != nil {
		r.logger.Error("reconciliation sweep failed", zap.Error(err))
	}
}

// sweep runs the two phases back to back. A failure in the pending phase does
// not stop the webhook phase; both errors are reported together.
func (r *Reconciler) sweep(ctx context.Context) error {
	r.sweepMu.Lock()
	defer r.sweepMu.Unlock()

	pendingErr := r.resolvePending(ctx)
	webhookErr := r.deliverWebhooks(ctx)

	return errors.Join(pendingErr, webhookErr)
}

func (r *Reconciler) resolvePending(ctx context.Context) error {
	start := time.Now()
	defer func() {
		metrics.SweepDuration.WithLabelValues("pending").Observe(time.Since(start).Seconds())
	}()

	pending, err := r.repo.ListPending(ctx, r.opts.PendingBatch)
	if err != nil {
		return fmt.Errorf("failed to list pending sales: %w", err)
	}

	for i := range pending {
		sale := &pending[i]
		if !r.policy.ShouldApprove(ctx, sale) {
			continue
		}

		now := time.Now()
		if err := r.repo.UpdateStatus(ctx, sale.ID, model.SaleApproved, &now); err != nil {
			r.logger.Error("failed to approve pending sale",
				zap.String("sale_id", sale.ID.String()), zap.Error(err))
			continue
		}

		metrics.PendingApprovals.Inc()
		r.logger.Info("pending sale approved", zap.String("sale_id", sale.ID.String()))
	}

	return nil
}

func (r *Reconciler) deliverWebhooks(ctx context.Context) error {
	start := time.Now()
	defer func() {
		metrics.SweepDuration.WithLabelValues("webhook").Observe(time.Since(start).Seconds())
	}()

	eligible, err := r.repo.ListApprovedUnnotified(ctx, r.opts.WebhookBatch, r.opts.MaxAttempts)
	if err != nil {
		return fmt.Errorf("failed to list sales awaiting webhook: %w", err)
	}

	for i := range eligible {
		sale := &eligible[i]

		if i > 0 && r.opts.DeliveryDelay > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(r.opts.DeliveryDelay):
			}
		}

		// Counting the attempt before delivering means a crash mid-delivery
		// still burns one unit of the retry budget.
		if err := r.repo.IncrementWebhookAttempts(ctx, sale.ID); err != nil {
			r.logger.Error("failed to increment webhook attempts",
				zap.String("sale_id", sale.ID.String()), zap.Error(err))
			continue
		}

		if r.notifier.NotifyApprovedSale(ctx, sale) {
			if err := r.repo.MarkWebhookNotified(ctx, sale.ID); err != nil {
				r.logger.Error("failed to mark sale notified",
					zap.String("sale_id", sale.ID.String()), zap.Error(err))
			}
			continue
		}

		r.logger.Warn("webhook delivery failed",
			zap.String("sale_id", sale.ID.String()),
			zap.Int("attempt", sale.WebhookAttempts+1),
			zap.Int("max_attempts", r.opts.MaxAttempts),
		)
	}

	return nil
}
