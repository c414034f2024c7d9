package main

import (
	"context"
	"errors"
	"time"

	"pollbot/internal/poll"
	"pollbot/internal/scheduler"
	"pollbot/pkg/logx"

	"github.com/spf13/cobra"
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run as a daemon, posting polls at their scheduled times",
	Long: `Schedule registers every definition in the polls file that carries a
schedule field and waits. An RFC3339 timestamp fires once; anything else
is treated as a cron spec and fires repeatedly.

The polls file is watched for changes: on edit, pending entries are
cancelled and the fresh definitions are registered in their place.
SIGINT/SIGTERM cancels everything and exits cleanly.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := newRuntime()
		if err != nil {
			return err
		}
		defer rt.close()

		lib, err := rt.library()
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		sched := scheduler.New(rt.composer(), rt.client, rt.log.With(logx.String("comp", "scheduler")))
		defer sched.CancelAll()

		register := func(defs []poll.Definition) {
			sched.CancelAll()
			n := registerAll(ctx, sched, defs, rt.log)
			if n == 0 {
				rt.log.Warn("no definitions carry a schedule, waiting for polls file changes")
			}
		}
		register(lib.Definitions())

		go func() {
			if err := lib.Watch(ctx, register); err != nil {
				rt.log.Warn("polls file watch unavailable", logx.Err(err))
			}
		}()

		<-ctx.Done()
		rt.log.Info("shutting down")
		return nil
	},
}

// registerAll schedules every definition with a schedule field and returns
// how many were accepted. A definition that fails to register is logged
// and skipped; one bad entry must not take the daemon down.
func registerAll(ctx context.Context, sched *scheduler.Service, defs []poll.Definition, log logx.Logger) int {
	n := 0
	for _, def := range defs {
		if def.Schedule == "" {
			continue
		}
		var err error
		if at, perr := time.Parse(time.RFC3339, def.Schedule); perr == nil {
			_, err = sched.ScheduleAt(ctx, def, at)
		} else {
			_, err = sched.ScheduleCron(ctx, def, def.Schedule)
		}
		if err != nil {
			if errors.Is(err, scheduler.ErrInvalidSchedule) {
				log.Warn("skipping definition with invalid schedule",
					logx.String("title", def.Title),
					logx.String("schedule", def.Schedule),
					logx.Err(err))
				continue
			}
			log.Error("scheduling failed",
				logx.String("title", def.Title),
				logx.Err(err))
			continue
		}
		n++
	}
	log.Info("schedules registered", logx.Int("count", n))
	return n
}
