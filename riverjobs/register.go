package riverjobs

import (
	"fmt"

	"github.com/riverqueue/river"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// RegisterSweepNoncesWorker registers the nonce sweep worker into a River workers registry.
func RegisterSweepNoncesWorker(ws *river.Workers, svc NonceSweeper, logger *zap.Logger) {
	river.AddWorker(ws, NewSweepNoncesWorker(svc, logger))
}

// AddSweepNoncesPeriodicJob adds a periodic job that enqueues the sweep on a cron schedule.
//
// Example cron: "*/10 * * * *" (every ten minutes).
func AddSweepNoncesPeriodicJob[T any](client *river.Client[T], cronSpec string, runOnStart bool) error {
	schedule, err := parseSchedule(cronSpec)
	if err != nil {
		return err
	}
	args := SweepNoncesArgs{}
	opts := args.InsertOpts()
	_ = client.PeriodicJobs().Add(
		river.NewPeriodicJob(
			schedule,
			func() (river.JobArgs, *river.InsertOpts) { return args, &opts },
			&river.PeriodicJobOpts{RunOnStart: runOnStart},
		),
	)
	return nil
}

func parseSchedule(cronSpec string) (cron.Schedule, error) {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	schedule, err := parser.Parse(cronSpec)
	if err != nil {
		return nil, fmt.Errorf("invalid cron schedule '%s': %w", cronSpec, err)
	}
	return schedule, nil
}
