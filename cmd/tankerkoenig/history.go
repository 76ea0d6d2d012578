package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/rubiojr/tankerkoenig/pkg/api"
	"github.com/urfave/cli/v2"
)

func historyCommand() *cli.Command {
	return &cli.Command{
		Name:      "history",
		Usage:     "Show the recorded prices of a station",
		ArgsUsage: "STATION_ID",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "days",
				Usage: "Number of days to show",
				Value: 7,
			},
		},
		Action: historyAction,
	}
}

func historyAction(c *cli.Context) error {
	if c.NArg() != 1 {
		return errors.New("exactly one station id is required")
	}
	id := c.Args().First()
	logger := newLogger(c)

	storage, err := openStorage(c, logger)
	if err != nil {
		return err
	}
	defer storage.Close()

	since := time.Now().AddDate(0, 0, -c.Int("days"))
	history, err := storage.History(c.Context, id, since)
	if err != nil {
		return err
	}
	if len(history) == 0 {
		fmt.Fprintf(c.App.Writer, "No prices recorded for %s since %s\n", id, since.Format("2006-01-02"))
		return nil
	}

	if st, err := storage.Station(c.Context, id); err == nil {
		fmt.Fprintf(c.App.Writer, "%s, %s %s\n", st.Name, st.Street, placeName(st.Place))
	}
	fmt.Fprintf(c.App.Writer, "%-20s %-10s %-10s %-10s %s\n", "Time", "E5", "E10", "Diesel", "Status")
	for _, rec := range history {
		fmt.Fprintf(c.App.Writer, "%-20s %-10s %-10s %-10s %s\n",
			rec.RecordedAt.Local().Format("2006-01-02 15:04"),
			cell(rec.GasPrices, api.E5), cell(rec.GasPrices, api.E10), cell(rec.GasPrices, api.Diesel),
			rec.Status,
		)
	}
	return nil
}

func cell(p api.GasPrices, t api.GasType) string {
	v, ok := p.Price(t)
	if !ok {
		return "-"
	}
	return fmt.Sprintf("%.3f", v)
}
