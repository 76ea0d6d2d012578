package main

import (
	"fmt"

	"github.com/rubiojr/tankerkoenig/internal/pricedb"
	"github.com/rubiojr/tankerkoenig/pkg/api"
	"github.com/urfave/cli/v2"
)

func listCommand() *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List stations around a location",
		Flags: append([]cli.Flag{
			&cli.StringFlag{
				Name:  "fuel",
				Usage: "Fuel type: e5, e10, diesel or all",
				Value: api.FuelAll.QueryParam(),
			},
			&cli.StringFlag{
				Name:  "sort",
				Usage: "Sort by price or dist (price requires a single fuel type)",
				Value: api.SortByDistance.QueryParam(),
			},
			&cli.BoolFlag{
				Name:  "save",
				Usage: "Store the stations in the database",
			},
		}, locationFlags...),
		Action: listAction,
	}
}

func listAction(c *cli.Context) error {
	logger := newLogger(c)

	fuel, ok := api.ParseFuelType(c.String("fuel"))
	if !ok {
		return fmt.Errorf("unknown fuel type %q", c.String("fuel"))
	}
	sorting, ok := api.ParseSorting(c.String("sort"))
	if !ok {
		return fmt.Errorf("unknown sorting %q", c.String("sort"))
	}
	lat, lng, err := resolveLocation(c, logger)
	if err != nil {
		return err
	}

	req, err := api.NewStationListRequest(lat, lng,
		api.WithRadius(c.Float64("radius")),
		api.WithFuelType(fuel),
		api.WithSorting(sorting),
	)
	if err != nil {
		return err
	}

	client, err := newClient(c, logger)
	if err != nil {
		return err
	}

	if c.Bool("save") {
		storage, err := openStorage(c, logger)
		if err != nil {
			return err
		}
		defer storage.Close()

		n, err := pricedb.NewRecorder(storage, client, logger).Discover(c.Context, req)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.App.Writer, "Stored %d stations in %s\n", n, c.String("db"))
		return nil
	}

	res, err := client.StationList(c.Context, req)
	if err != nil {
		return err
	}
	if err := checkEnvelope(res.Envelope); err != nil {
		return err
	}

	for i, st := range res.Stations {
		printStation(c.App.Writer, i+1, st)
	}
	fmt.Fprintf(c.App.Writer, "Found %d stations within %g km radius\n", len(res.Stations), c.Float64("radius"))
	return nil
}

func checkEnvelope(e api.Envelope) error {
	if e.OK {
		return nil
	}
	if e.Message != nil {
		return fmt.Errorf("API returned an error: %s", *e.Message)
	}
	return fmt.Errorf("API returned an error")
}
