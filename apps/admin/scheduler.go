package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
)

const clearSessionsSchedule = "0 0 3 * * *"

// newScheduler registers the periodic jobs; schedules have a seconds field.
func (cli *commandLine) newScheduler(ctx context.Context) (*cron.Cron, error) {
	conf := cli.c.Conf
	logger := cron.VerbosePrintfLogger(log.New(cli.out, "CRON : ", log.LstdFlags))
	if !conf.Debug {
		logger = cron.PrintfLogger(log.New(cli.out, "CRON : ", log.LstdFlags))
	}
	sched := cron.New(
		cron.WithSeconds(),
		cron.WithLocation(conf.Location),
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)

	jobs := []struct {
		name string
		spec string
		run  func(context.Context) error
	}{
		{name: "backup", spec: conf.Backup.Schedule, run: func(ctx context.Context) error { return cli.backup(ctx, "", "") }},
		{name: "clearssolinks", spec: conf.SSOLinks.Schedule, run: cli.clearSSOLinks},
		{name: "clearsessions", spec: clearSessionsSchedule, run: cli.clearSessions},
	}
	for _, job := range jobs {
		job := job
		_, err := sched.AddFunc(job.spec, func() {
			if err := job.run(ctx); err != nil {
				cli.c.Logger.Error("running "+job.name, err)
			}
		})
		if err != nil {
			return nil, errors.Wrapf(err, "scheduling %s (%q)", job.name, job.spec)
		}
	}
	return sched, nil
}

func (cli *commandLine) scheduler(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	sched, err := cli.newScheduler(ctx)
	if err != nil {
		return err
	}
	sched.Start()
	cli.c.Logger.Info("scheduler started")

	<-ctx.Done()
	<-sched.Stop().Done()
	cli.c.Logger.Info("scheduler stopped")
	return nil
}
