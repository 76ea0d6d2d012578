package main

import (
	"errors"
	"fmt"

	"github.com/rubiojr/tankerkoenig/pkg/api"
	"github.com/urfave/cli/v2"
)

func pricesCommand() *cli.Command {
	return &cli.Command{
		Name:      "prices",
		Usage:     "Show the current prices of up to 10 stations",
		ArgsUsage: "STATION_ID...",
		Action:    pricesAction,
	}
}

func pricesAction(c *cli.Context) error {
	if c.NArg() == 0 {
		return errors.New("at least one station id is required")
	}
	logger := newLogger(c)

	req, err := api.NewPricesRequest(c.Args().Slice()...)
	if err != nil {
		return err
	}
	client, err := newClient(c, logger)
	if err != nil {
		return err
	}

	res, err := client.Prices(c.Context, req)
	if err != nil {
		return err
	}
	if err := checkEnvelope(res.Envelope); err != nil {
		return err
	}

	for _, id := range req.IDs() {
		p, ok := res.GasPrice(id)
		if !ok {
			fmt.Fprintf(c.App.Writer, "%s: no data\n\n", id)
			continue
		}
		fmt.Fprintf(c.App.Writer, "%s (%s)\n", id, p.Status)
		printPrices(c.App.Writer, p)
		fmt.Fprintln(c.App.Writer)
	}
	return nil
}
