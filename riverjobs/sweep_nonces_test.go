package riverjobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/riverqueue/river"
	"github.com/stretchr/testify/require"
)

type fakeSweeper struct {
	calls int
	n     int64
	err   error
}

func (f *fakeSweeper) SweepExpiredNonces(context.Context) (int64, error) {
	f.calls++
	return f.n, f.err
}

func TestSweepNoncesWorker(t *testing.T) {
	f := &fakeSweeper{n: 3}
	w := NewSweepNoncesWorker(f, nil)
	require.NoError(t, w.Work(context.Background(), &river.Job[SweepNoncesArgs]{}))
	require.Equal(t, 1, f.calls)

	f.err = errors.New("db down")
	require.ErrorContains(t, w.Work(context.Background(), &river.Job[SweepNoncesArgs]{}), "db down")

	var nilWorker *SweepNoncesWorker
	require.Error(t, nilWorker.Work(context.Background(), &river.Job[SweepNoncesArgs]{}))
}

func TestSweepNoncesArgs(t *testing.T) {
	args := SweepNoncesArgs{}
	require.Equal(t, "walletauth_sweep_nonces", args.Kind())
	opts := args.InsertOpts()
	require.Equal(t, river.QueueDefault, opts.Queue)
	require.True(t, opts.UniqueOpts.ByArgs)
	require.Equal(t, time.Minute, NewSweepNoncesWorker(&fakeSweeper{}, nil).Timeout(nil))
}

func TestParseSchedule(t *testing.T) {
	s, err := parseSchedule("*/10 * * * *")
	require.NoError(t, err)
	from := time.Date(2026, 1, 1, 0, 3, 0, 0, time.UTC)
	require.Equal(t, time.Date(2026, 1, 1, 0, 10, 0, 0, time.UTC), s.Next(from))

	_, err = parseSchedule("every minute")
	require.ErrorContains(t, err, "invalid cron schedule")
}
