package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/crucial707/itam/internal/ledger"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Reconciler is satisfied by *ledger.Service.
type Reconciler interface {
	Reconcile(ctx context.Context, repair bool) (*ledger.Report, error)
}

// passTimeout bounds one reconcile pass.
const passTimeout = time.Minute

// Start runs r.Reconcile on the cron expression expr until the returned
// cron is stopped. A pass still running when the next one is due is skipped.
func Start(expr string, r Reconciler, repair bool, log *zap.Logger) (*cron.Cron, error) {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))

	_, err := c.AddFunc(expr, func() {
		ctx, cancel := context.WithTimeout(context.Background(), passTimeout)
		defer cancel()

		rep, err := r.Reconcile(ctx, repair)
		if err != nil {
			log.Error("scheduler: reconcile pass failed", zap.Error(err))
			return
		}
		log.Info("scheduler: reconcile pass",
			zap.Int("assets", rep.Assets),
			zap.Int("violations", len(rep.Violations)),
			zap.Int("repaired", rep.Repaired),
			zap.Bool("repair", repair))
	})
	if err != nil {
		return nil, fmt.Errorf("scheduler: invalid cron expression %q: %w", expr, err)
	}

	c.Start()
	log.Info("scheduler: reconcile scheduled", zap.String("cron", expr), zap.Bool("repair", repair))
	return c, nil
}
