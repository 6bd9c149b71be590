package riverjobs

import (
	"context"
	"errors"
	"time"

	"github.com/riverqueue/river"
	"go.uber.org/zap"
)

type SweepNoncesArgs struct{}

func (SweepNoncesArgs) Kind() string { return "walletauth_sweep_nonces" }

func (SweepNoncesArgs) InsertOpts() river.InsertOpts {
	return river.InsertOpts{
		Queue: river.QueueDefault,
		UniqueOpts: river.UniqueOpts{
			ByArgs:   true,
			ByPeriod: time.Minute,
			ByQueue:  true,
		},
	}
}

// NonceSweeper deletes expired nonces. *core.Service implements it.
type NonceSweeper interface {
	SweepExpiredNonces(ctx context.Context) (int64, error)
}

// SweepNoncesWorker removes expired nonces from the store. Consumption already
// rejects expired nonces, so the sweep only reclaims space.
type SweepNoncesWorker struct {
	river.WorkerDefaults[SweepNoncesArgs]
	svc    NonceSweeper
	logger *zap.Logger
}

func NewSweepNoncesWorker(svc NonceSweeper, logger *zap.Logger) *SweepNoncesWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SweepNoncesWorker{svc: svc, logger: logger}
}

func (w *SweepNoncesWorker) Timeout(*river.Job[SweepNoncesArgs]) time.Duration {
	return time.Minute
}

func (w *SweepNoncesWorker) Work(ctx context.Context, job *river.Job[SweepNoncesArgs]) error {
	if w == nil || w.svc == nil {
		return errors.New("walletauth sweep: service not configured")
	}
	n, err := w.svc.SweepExpiredNonces(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		w.logger.Info("swept expired nonces", zap.Int64("count", n))
	}
	return nil
}
