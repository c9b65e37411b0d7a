package main

import (
	"context"
	"fmt"

	"github.com/FARHATREKAYA/quran-app/services/scheduler"
)

func (cli *commandLine) sweep() error {
	res, err := scheduler.RunOnce(context.Background(), cli.jobs)
	fmt.Fprintf(cli.out, "missed: %d, notified: %d, reminders: %d\n", res.Missed, res.Notified, res.Reminders)
	return err
}
