package pricedb

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/rubiojr/tankerkoenig/pkg/api"
)

// Fetcher is the part of api.Client the Recorder needs.
type Fetcher interface {
	StationList(ctx context.Context, r api.StationListRequest) (*api.StationListResult, error)
	Prices(ctx context.Context, r api.PricesRequest) (*api.PricesResult, error)
}

// Recorder fetches data from the API and stores it.
type Recorder struct {
	storage *Storage
	client  Fetcher
	log     *slog.Logger
}

func NewRecorder(storage *Storage, client Fetcher, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Recorder{storage: storage, client: client, log: logger}
}

// Discover stores the stations found around a point, including the price
// snapshot list results carry. It returns the number of stations found.
func (r *Recorder) Discover(ctx context.Context, req api.StationListRequest) (int, error) {
	res, err := r.client.StationList(ctx, req)
	if err != nil {
		return 0, err
	}
	if !res.OK {
		return 0, apiFailure(res.Envelope)
	}

	if err := r.storage.SaveStations(ctx, res.Stations); err != nil {
		return 0, err
	}
	r.log.Info("Discovered stations", "count", len(res.Stations))
	return len(res.Stations), nil
}

// Record fetches the current prices of ids, or of every stored station when
// ids is empty, in batches of api.MaxPriceIDs and stores one snapshot per
// station. It returns the number of snapshots stored.
func (r *Recorder) Record(ctx context.Context, ids ...string) (int, error) {
	if len(ids) == 0 {
		var err error
		if ids, err = r.storage.StationIDs(ctx); err != nil {
			return 0, err
		}
	}
	if len(ids) == 0 {
		return 0, fmt.Errorf("nothing to record: %w", ErrNoData)
	}

	recorded := 0
	for start := 0; start < len(ids); start += api.MaxPriceIDs {
		end := min(start+api.MaxPriceIDs, len(ids))

		req, err := api.NewPricesRequest(ids[start:end]...)
		if err != nil {
			return recorded, err
		}
		res, err := r.client.Prices(ctx, req)
		if err != nil {
			return recorded, err
		}
		if !res.OK {
			return recorded, apiFailure(res.Envelope)
		}

		if err := r.storage.SavePrices(ctx, r.storage.now(), res.Prices); err != nil {
			return recorded, err
		}
		recorded += len(res.Prices)
		r.log.Debug("Recorded prices", "batch", req.IDs(), "count", len(res.Prices))
	}
	return recorded, nil
}

// Run records prices immediately and then once per interval until ctx is
// cancelled. Failed rounds are logged and do not stop the loop.
func (r *Recorder) Run(ctx context.Context, interval time.Duration, ids ...string) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if n, err := r.Record(ctx, ids...); err != nil {
			if errors.Is(err, context.Canceled) {
				return ctx.Err()
			}
			r.log.Error("Error recording prices", "error", err)
		} else {
			r.log.Info("Price update completed successfully", "count", n)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func apiFailure(e api.Envelope) error {
	msg := "unknown error"
	if e.Message != nil {
		msg = *e.Message
	}
	return fmt.Errorf("API returned non-OK result: %s", msg)
}
