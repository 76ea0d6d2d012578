package main

import (
	"fmt"

	"github.com/urfave/cli/v2"
)

func cleanupCommand() *cli.Command {
	return &cli.Command{
		Name:  "cleanup",
		Usage: "Delete old price records and reclaim space",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "days",
				Usage: "Keep records of the last N days",
				Value: 90,
			},
		},
		Action: cleanupAction,
	}
}

func cleanupAction(c *cli.Context) error {
	logger := newLogger(c)
	storage, err := openStorage(c, logger)
	if err != nil {
		return err
	}
	defer storage.Close()

	deleted, err := storage.DeleteOldRecords(c.Context, c.Int("days"))
	if err != nil {
		return err
	}
	if err := storage.Vacuum(c.Context); err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "Deleted %d records older than %d days\n", deleted, c.Int("days"))
	return nil
}
