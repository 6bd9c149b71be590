// Package sweeper runs the expired-nonce sweep on a cron schedule inside the
// process, for deployments without a River queue.
package sweeper

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const defaultTimeout = 30 * time.Second

// NonceSweeper deletes expired nonces. *core.Service implements it.
type NonceSweeper interface {
	SweepExpiredNonces(ctx context.Context) (int64, error)
}

type Sweeper struct {
	cron    *cron.Cron
	svc     NonceSweeper
	logger  *zap.Logger
	timeout time.Duration
}

// New schedules svc.SweepExpiredNonces on schedule, a five-field cron expression
// or a descriptor such as "@every 5m". Call Start to begin.
func New(svc NonceSweeper, schedule string, logger *zap.Logger) (*Sweeper, error) {
	if svc == nil {
		return nil, fmt.Errorf("sweeper: service is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	cl := cronLogger{l: logger.Sugar()}
	s := &Sweeper{
		svc:     svc,
		logger:  logger,
		timeout: defaultTimeout,
		cron: cron.New(
			cron.WithParser(cron.NewParser(cron.Minute|cron.Hour|cron.Dom|cron.Month|cron.Dow|cron.Descriptor)),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
			cron.WithLogger(cl),
		),
	}
	if _, err := s.cron.AddFunc(schedule, s.run); err != nil {
		return nil, fmt.Errorf("sweeper: invalid schedule %q: %w", schedule, err)
	}
	return s, nil
}

func (s *Sweeper) Start() { s.cron.Start() }

// Stop halts the schedule and waits for a running sweep, or for ctx.
func (s *Sweeper) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunOnce sweeps immediately.
func (s *Sweeper) RunOnce(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.svc.SweepExpiredNonces(ctx)
}

func (s *Sweeper) run() {
	n, err := s.RunOnce(context.Background())
	if err != nil {
		s.logger.Warn("nonce sweep failed", zap.Error(err))
		return
	}
	if n > 0 {
		s.logger.Info("swept expired nonces", zap.Int64("count", n))
	}
}

// cronLogger routes cron's own logging to zap.
type cronLogger struct {
	l *zap.SugaredLogger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debugw(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Errorw(msg, append(keysAndValues, "error", err)...)
}
