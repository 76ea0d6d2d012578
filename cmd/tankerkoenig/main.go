package main

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/rubiojr/tankerkoenig/internal/config"
	"github.com/rubiojr/tankerkoenig/internal/geo"
	"github.com/rubiojr/tankerkoenig/internal/pricedb"
	"github.com/rubiojr/tankerkoenig/pkg/api"
	"github.com/urfave/cli/v2"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := newApp(cfg).Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newApp(cfg *config.Config) *cli.App {
	return &cli.App{
		Name:  "tankerkoenig",
		Usage: "Query German fuel prices and keep a local price history",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "api-key",
				Usage: "Tankerkönig API key",
				Value: cfg.APIKey,
			},
			&cli.BoolFlag{
				Name:  "demo",
				Usage: "Use the public demo key (fake data)",
			},
			&cli.StringFlag{
				Name:  "base-url",
				Usage: "API base URL",
				Value: cfg.BaseURL,
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "HTTP timeout",
				Value: cfg.Timeout,
			},
			&cli.StringFlag{
				Name:  "db",
				Usage: "Database file",
				Value: cfg.DBPath,
			},
			&cli.BoolFlag{
				Name:  "strict",
				Usage: "Fail on opening times that cannot be parsed",
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "Enable debug logging",
			},
		},
		Metadata: map[string]any{"config": cfg},
		Commands: []*cli.Command{
			listCommand(),
			detailCommand(),
			pricesCommand(),
			complainCommand(),
			recordCommand(),
			historyCommand(),
			nearbyCommand(),
			cleanupCommand(),
			serveCommand(),
		},
	}
}

func appConfig(c *cli.Context) *config.Config {
	return c.App.Metadata["config"].(*config.Config)
}

func newLogger(c *cli.Context) *slog.Logger {
	level := appConfig(c).SlogLevel()
	if c.Bool("verbose") {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(c.App.ErrWriter, &slog.HandlerOptions{Level: level}))
}

func apiKey(c *cli.Context) (string, error) {
	if c.Bool("demo") {
		return api.DemoAPIKey, nil
	}
	if key := c.String("api-key"); key != "" {
		return key, nil
	}
	return "", fmt.Errorf("%w: set %s, %s_FILE, --api-key or use --demo", api.ErrMissingAPIKey, config.EnvAPIKey, config.EnvAPIKey)
}

func newClient(c *cli.Context, logger *slog.Logger) (*api.Client, error) {
	key, err := apiKey(c)
	if err != nil {
		return nil, err
	}

	var decoderOpts []api.DecoderOption
	decoderOpts = append(decoderOpts, api.WithDecoderLogger(logger))
	if c.Bool("strict") {
		decoderOpts = append(decoderOpts, api.WithStrictOpeningTimes())
	}

	return api.NewClient(key,
		api.WithBaseURL(c.String("base-url")),
		api.WithHTTPClient(newHTTPClient(c.Duration("timeout"))),
		api.WithDecoder(api.NewDecoder(decoderOpts...)),
		api.WithLogger(logger),
	)
}

func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = api.DefaultTimeout
	}
	return &http.Client{Timeout: timeout}
}

func openStorage(c *cli.Context, logger *slog.Logger) (*pricedb.Storage, error) {
	storage, err := pricedb.NewStorage(c.Context, c.String("db"), logger)
	if err != nil {
		return nil, fmt.Errorf("error initializing storage: %w", err)
	}
	return storage, nil
}

var locationFlags = []cli.Flag{
	&cli.StringFlag{
		Name:  "location",
		Usage: "Place name to search around",
	},
	&cli.Float64Flag{
		Name:  "lat",
		Usage: "Latitude of the location",
	},
	&cli.Float64Flag{
		Name:  "lng",
		Usage: "Longitude of the location",
	},
	&cli.Float64Flag{
		Name:    "radius",
		Aliases: []string{"r"},
		Usage:   "Search radius in kilometers",
		Value:   api.DefaultRadius,
	},
}

// resolveLocation reads --location, geocoding it, or --lat and --lng.
func resolveLocation(c *cli.Context, logger *slog.Logger) (lat, lng float64, err error) {
	if loc := c.String("location"); loc != "" {
		p, err := geo.NewGeocoder(geo.DefaultServer, logger).Locate(loc)
		if err != nil {
			return 0, 0, err
		}
		fmt.Fprintln(c.App.Writer, "Location found:", p.Name)
		return p.Lat, p.Lng, nil
	}

	if !c.IsSet("lat") || !c.IsSet("lng") {
		return 0, 0, errors.New("location or latitude and longitude are required")
	}
	return c.Float64("lat"), c.Float64("lng"), nil
}
