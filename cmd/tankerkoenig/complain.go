package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rubiojr/tankerkoenig/pkg/api"
	"github.com/urfave/cli/v2"
)

func complainCommand() *cli.Command {
	names := make([]string, 0, len(api.CorrectionTypes))
	for _, t := range api.CorrectionTypes {
		names = append(names, t.QueryParam())
	}

	return &cli.Command{
		Name:      "complain",
		Usage:     "Report wrong station data",
		ArgsUsage: "STATION_ID",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "type",
				Usage:    "Correction type: " + strings.Join(names, ", "),
				Required: true,
			},
			&cli.StringFlag{
				Name:  "value",
				Usage: "Corrected value, not needed for status corrections",
			},
		},
		Action: complainAction,
	}
}

func complainAction(c *cli.Context) error {
	if c.NArg() != 1 {
		return errors.New("exactly one station id is required")
	}
	logger := newLogger(c)

	kind, ok := api.ParseCorrectionType(c.String("type"))
	if !ok {
		return fmt.Errorf("unknown correction type %q", c.String("type"))
	}
	req, err := api.NewCorrectionRequest(c.Args().First(), kind, c.String("value"))
	if err != nil {
		return err
	}
	client, err := newClient(c, logger)
	if err != nil {
		return err
	}

	res, err := client.Correction(c.Context, req)
	if err != nil {
		return err
	}
	if err := checkEnvelope(res.Envelope); err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, "Correction submitted")
	return nil
}
