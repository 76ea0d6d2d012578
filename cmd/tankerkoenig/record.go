package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/rubiojr/tankerkoenig/internal/pricedb"
	"github.com/rubiojr/tankerkoenig/pkg/api"
	"github.com/urfave/cli/v2"
)

func recordCommand() *cli.Command {
	return &cli.Command{
		Name:      "record",
		Usage:     "Store current prices in the database",
		ArgsUsage: "[STATION_ID...]",
		Description: "Records the prices of the given stations, or of every stored station. " +
			"With --location or --lat/--lng the stations around that point are discovered first.",
		Flags: append([]cli.Flag{
			&cli.DurationFlag{
				Name:  "interval",
				Usage: "Keep recording at this interval until interrupted",
			},
		}, locationFlags...),
		Action: recordAction,
	}
}

func recordAction(c *cli.Context) error {
	logger := newLogger(c)

	client, err := newClient(c, logger)
	if err != nil {
		return err
	}
	storage, err := openStorage(c, logger)
	if err != nil {
		return err
	}
	defer storage.Close()

	rec := pricedb.NewRecorder(storage, client, logger)

	if c.IsSet("location") || c.IsSet("lat") {
		lat, lng, err := resolveLocation(c, logger)
		if err != nil {
			return err
		}
		req, err := api.NewStationListRequest(lat, lng, api.WithRadius(c.Float64("radius")))
		if err != nil {
			return err
		}
		n, err := rec.Discover(c.Context, req)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.App.Writer, "Discovered %d stations\n", n)
	}

	ids := c.Args().Slice()
	if interval := c.Duration("interval"); interval > 0 {
		ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		if err := rec.Run(ctx, interval, ids...); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	}

	n, err := rec.Record(c.Context, ids...)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "Recorded prices of %d stations\n", n)
	return nil
}
