package main

import (
	"fmt"

	"github.com/rubiojr/tankerkoenig/internal/geo"
	"github.com/rubiojr/tankerkoenig/pkg/api"
	"github.com/urfave/cli/v2"
)

func nearbyCommand() *cli.Command {
	return &cli.Command{
		Name:   "nearby",
		Usage:  "List stored stations near a location with their last recorded prices",
		Flags:  locationFlags,
		Action: nearbyAction,
	}
}

func nearbyAction(c *cli.Context) error {
	logger := newLogger(c)

	lat, lng, err := resolveLocation(c, logger)
	if err != nil {
		return err
	}
	storage, err := openStorage(c, logger)
	if err != nil {
		return err
	}
	defer storage.Close()

	radius := c.Float64("radius")
	fmt.Fprintf(c.App.Writer, "Filtering stations within %g km radius...\n", radius)

	nearby, err := storage.NearbyStations(c.Context, lat, lng, geo.KmToMeters(radius))
	if err != nil {
		return fmt.Errorf("error fetching nearby stations: %w", err)
	}

	for i, st := range nearby {
		fmt.Fprintf(c.App.Writer, "%d. %s (%s %s)\n", i+1, st.Name, st.Street, st.HouseNumber)
		fmt.Fprintf(c.App.Writer, "   Place: %s\n", placeName(st.Place))
		fmt.Fprintf(c.App.Writer, "   Distance: %.2f km\n", st.Distance/1000)
		if st.Latest != nil {
			fmt.Fprintf(c.App.Writer, "   Recorded: %s\n", st.Latest.RecordedAt.Local().Format("2006-01-02 15:04"))
			for _, t := range api.GasTypes {
				v, ok := st.Latest.Price(t)
				fmt.Fprintf(c.App.Writer, "   %s: %s\n", t, formatPrice(v, ok))
			}
		}
		fmt.Fprintf(c.App.Writer, "   Coordinates: %.6f, %.6f\n\n", st.Lat, st.Lng)
	}

	fmt.Fprintf(c.App.Writer, "Found %d stations within %g km radius\n", len(nearby), radius)
	return nil
}
