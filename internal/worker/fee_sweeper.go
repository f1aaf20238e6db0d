package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/projevo/escrow-service/internal/application"
	"github.com/projevo/escrow-service/internal/domain"
)

// FeeSweeper moves retained service fees from the escrow account to the
// platform account. Settlement pays the vendor their share immediately; the
// fee stays parked in escrow until this worker writes the fee entry. The
// fee entry's kind doubles as the "already swept" marker.
type FeeSweeper struct {
	ledger    application.LedgerRepository
	tx        application.TxRunner
	interval  time.Duration
	batchSize int
	logger    *slog.Logger
}

func NewFeeSweeper(
	ledger application.LedgerRepository,
	tx application.TxRunner,
	interval time.Duration,
	batchSize int,
	logger *slog.Logger,
) *FeeSweeper {
	return &FeeSweeper{
		ledger:    ledger,
		tx:        tx,
		interval:  interval,
		batchSize: batchSize,
		logger:    logger,
	}
}

func (f *FeeSweeper) Start(ctx context.Context) {
	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	f.logger.Info("starting fee sweeper", "interval", f.interval, "batch_size", f.batchSize)

	for {
		select {
		case <-ctx.Done():
			f.logger.Info("stopping fee sweeper")
			return
		case <-ticker.C:
			f.RunOnce(ctx)
		}
	}
}

// RunOnce sweeps one batch of settled payments.
func (f *FeeSweeper) RunOnce(ctx context.Context) {
	settled, err := f.ledger.ListUnsweptSettled(ctx, f.batchSize)
	if err != nil {
		f.logger.Error("failed to list unswept settled payments", "error", err)
		return
	}

	if len(settled) == 0 {
		return
	}

	f.logger.Info("sweeping service fees", "count", len(settled))

	for _, p := range settled {
		entry := domain.FeeSweepEntry(p, time.Now().UTC())
		entry.ID = uuid.New().String()

		err := f.tx.WithinTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
			return f.ledger.Append(ctx, tx, entry)
		})
		if err != nil {
			f.logger.Error("fee sweep failed", "payment_id", p.ID, "error", err)
			continue
		}

		f.logger.Info("swept service fee",
			"payment_id", p.ID,
			"amount", entry.Amount.Format(),
		)
	}
}
