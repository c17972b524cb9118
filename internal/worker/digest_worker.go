// Package worker reacts to snapshot-changed events by recomputing and logging
// a digest of the user's current pay period.
package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	"fintrack/internal/engine"
	"fintrack/internal/ledger"
	applog "fintrack/internal/log"
	"fintrack/internal/storage"
)

// Repository is what the worker reads: documents and the users owning them.
type Repository interface {
	storage.SnapshotRepository
	storage.UserLister
}

// Digest summarises one user's current period.
type Digest struct {
	UserID      string
	Period      core.Period
	Currency    string
	Totals      core.Totals
	Available   decimal.Decimal
	DailyBudget decimal.Decimal
	Days        core.Days
	// Upcoming holds the recurring items whose next occurrence falls inside the period.
	Upcoming    []core.Occurrence
	OpenDebts   int
	Outstanding decimal.Decimal
	Dropped     int
}

// DigestWorker builds digests for users whose snapshot changed.
type DigestWorker struct {
	repo   Repository
	now    func() time.Time
	logger *applog.Logger
}

func NewDigestWorker(repo Repository, now func() time.Time, logger *applog.Logger) *DigestWorker {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = applog.FromContext(context.Background())
	}
	return &DigestWorker{
		repo:   repo,
		now:    now,
		logger: logger.WithComponent(applog.ComponentWorker),
	}
}

// HandleSnapshotChanged is the amqp.Handler of the worker. A returned error
// makes the broker redeliver the message, so only storage failures are returned.
func (w *DigestWorker) HandleSnapshotChanged(ctx context.Context, msg *amqp.SnapshotChangedMessage) error {
	w.logger.InfoContext(ctx, "Processing snapshot changed message",
		applog.FieldUserID, msg.UserID,
		applog.FieldReason, msg.Reason,
		"timestamp", msg.Timestamp)

	if msg.Reason == amqp.ReasonReset {
		w.logger.InfoContext(ctx, "Ledger reset", applog.FieldUserID, msg.UserID)
		return nil
	}

	d, found, err := w.Digest(ctx, msg.UserID)
	switch {
	case errors.Is(err, ledger.ErrMalformedSnapshot):
		w.logger.WarnContext(ctx, "Skipping unreadable snapshot",
			applog.FieldUserID, msg.UserID, applog.FieldError, err)
		return nil
	case err != nil:
		return err
	case !found:
		w.logger.InfoContext(ctx, "No snapshot stored", applog.FieldUserID, msg.UserID)
		return nil
	}
	w.logDigest(ctx, d)
	return nil
}

// Digest loads the user's snapshot and summarises its current period.
// found is false when nothing is stored for the user.
func (w *DigestWorker) Digest(ctx context.Context, userID string) (Digest, bool, error) {
	data, ok, err := w.repo.GetSnapshot(ctx, userID)
	if err != nil {
		return Digest{}, false, fmt.Errorf("get snapshot of %s: %w", userID, err)
	}
	if !ok {
		return Digest{}, false, nil
	}
	snap, report, err := ledger.ParseSnapshot(data)
	if err != nil {
		return Digest{}, false, err
	}

	now := w.now()
	p := engine.CurrentPeriod(snap.Settings, now)
	dash := engine.BuildDashboard(snap, p, now)

	d := Digest{
		UserID:      userID,
		Period:      p,
		Currency:    dash.Currency,
		Totals:      dash.Totals,
		Available:   dash.Available,
		DailyBudget: dash.DailyBudget,
		Days:        dash.Days,
		Outstanding: decimal.Zero,
	}
	for _, n := range report.Dropped {
		d.Dropped += n
	}
	for _, occ := range engine.UpcomingOccurrences(snap.Recurring, now) {
		if occ.Ok && p.Contains(occ.Next) {
			d.Upcoming = append(d.Upcoming, occ)
		}
	}
	for _, debt := range snap.Debts {
		if debt.IsClosed() {
			continue
		}
		d.OpenDebts++
		d.Outstanding = d.Outstanding.Add(debt.Outstanding())
	}
	return d, true, nil
}

// StartupCheck digests every stored user once, to cover events missed while
// the worker was down. Per-user failures are logged and counted.
func (w *DigestWorker) StartupCheck(ctx context.Context) error {
	users, err := w.repo.ListUsers(ctx)
	if err != nil {
		return fmt.Errorf("list users for startup check: %w", err)
	}
	if len(users) == 0 {
		w.logger.InfoContext(ctx, "No stored ledgers found on startup")
		return nil
	}

	successCount, errorCount := 0, 0
	for _, user := range users {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		d, found, err := w.Digest(ctx, user)
		if err != nil {
			w.logger.ErrorContext(ctx, "Failed to digest ledger during startup",
				applog.FieldUserID, user, applog.FieldError, err)
			errorCount++
			continue
		}
		if found {
			w.logDigest(ctx, d)
		}
		successCount++
	}

	w.logger.InfoContext(ctx, "Startup check completed",
		"total", len(users),
		"digested", successCount,
		"errors", errorCount)
	return nil
}

func (w *DigestWorker) logDigest(ctx context.Context, d Digest) {
	w.logger.InfoContext(ctx, "Period digest",
		applog.FieldUserID, d.UserID,
		applog.FieldPeriod, d.Period.String(),
		"income", d.Totals.Income.StringFixed(core.AmountPlaces),
		"expense", d.Totals.Expense.StringFixed(core.AmountPlaces),
		"available", d.Available.StringFixed(core.AmountPlaces),
		"daily_budget", d.DailyBudget.StringFixed(core.AmountPlaces),
		"days_remaining", d.Days.Remaining,
		"open_debts", d.OpenDebts,
		"outstanding", d.Outstanding.StringFixed(core.AmountPlaces),
		"currency", d.Currency)

	for _, occ := range d.Upcoming {
		w.logger.InfoContext(ctx, "Upcoming recurring entry",
			applog.FieldUserID, d.UserID,
			applog.FieldEntityID, occ.Recurring.ID,
			applog.FieldCategory, occ.Recurring.Category,
			applog.FieldAmount, occ.Recurring.Amount.StringFixed(core.AmountPlaces),
			"type", occ.Recurring.Type,
			"next", occ.Next.String())
	}
	if d.Dropped > 0 {
		w.logger.WarnContext(ctx, "Snapshot had invalid entries",
			applog.FieldUserID, d.UserID, "dropped", d.Dropped)
	}
}
