package main

import (
	"errors"
	"fmt"

	"github.com/rubiojr/tankerkoenig/pkg/api"
	"github.com/urfave/cli/v2"
)

func detailCommand() *cli.Command {
	return &cli.Command{
		Name:      "detail",
		Usage:     "Show a station including its opening times",
		ArgsUsage: "STATION_ID",
		Action:    detailAction,
	}
}

func detailAction(c *cli.Context) error {
	if c.NArg() != 1 {
		return errors.New("exactly one station id is required")
	}
	logger := newLogger(c)

	req, err := api.NewStationDetailRequest(c.Args().First())
	if err != nil {
		return err
	}
	client, err := newClient(c, logger)
	if err != nil {
		return err
	}

	res, err := client.StationDetail(c.Context, req)
	if err != nil {
		return err
	}
	if err := checkEnvelope(res.Envelope); err != nil {
		return err
	}
	if res.Station == nil {
		return fmt.Errorf("station %s not found", c.Args().First())
	}

	printStation(c.App.Writer, 1, *res.Station)
	printOpeningTimes(c.App.Writer, *res.Station)
	return nil
}
