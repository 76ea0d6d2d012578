package pricedb

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/rubiojr/tankerkoenig/pkg/api"
)

func newTestStorage(t *testing.T) *Storage {
	t.Helper()
	s, err := NewStorage(context.Background(), filepath.Join(t.TempDir(), "test.db"), nil)
	if err != nil {
		t.Fatalf("NewStorage() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func setNow(s *Storage, t time.Time) {
	s.now = func() time.Time { return t }
}

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

func station(id string, lat, lng float64, prices map[api.GasType]float64) api.Station {
	st := api.Station{
		ID:   id,
		Name: strPtr("Station " + id),
		Location: api.Location{
			Lat:     lat,
			Lng:     lng,
			Street:  "Hauptstraße",
			ZipCode: intPtr(1234),
			City:    "Berlin",
		},
	}
	if len(prices) > 0 {
		st.GasPrices = &api.GasPrices{Prices: prices}
	}
	return st
}

func TestStorage_SaveStations(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)
	now := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	setNow(s, now)

	stations := []api.Station{
		station("a", 52.52, 13.40, map[api.GasType]float64{api.E5: 1.789, api.Diesel: 1.659}),
		station("b", 52.53, 13.41, nil),
		{},
	}
	if err := s.SaveStations(ctx, stations); err != nil {
		t.Fatalf("SaveStations() failed: %v", err)
	}

	st, err := s.Station(ctx, "a")
	if err != nil {
		t.Fatalf("Station() failed: %v", err)
	}
	if st.Name != "Station a" || st.PostCode != 1234 || st.Place != "Berlin" || st.Brand != "" {
		t.Errorf("unexpected station %+v", st)
	}
	if !st.UpdatedAt.Equal(now) {
		t.Errorf("UpdatedAt = %v, expected %v", st.UpdatedAt, now)
	}

	ids, err := s.StationIDs(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 2 || ids[0] != "a" || ids[1] != "b" {
		t.Errorf("StationIDs() = %v", ids)
	}

	latest, err := s.LatestPrices(ctx, "a")
	if err != nil {
		t.Fatalf("LatestPrices() failed: %v", err)
	}
	if p, ok := latest.Price(api.E5); !ok || p != 1.789 {
		t.Errorf("E5 = %v, %t", p, ok)
	}
	if latest.HasPrice(api.E10) {
		t.Error("E10 should be absent")
	}

	if _, err := s.LatestPrices(ctx, "b"); !errors.Is(err, ErrNoData) {
		t.Errorf("expected ErrNoData for a station without prices, got %v", err)
	}
	if _, err := s.Station(ctx, "missing"); !errors.Is(err, ErrNoData) {
		t.Errorf("expected ErrNoData for an unknown station, got %v", err)
	}

	// Updating replaces the master data.
	renamed := station("a", 52.52, 13.40, nil)
	renamed.Name = strPtr("Renamed")
	if err := s.SaveStations(ctx, []api.Station{renamed}); err != nil {
		t.Fatal(err)
	}
	if st, _ := s.Station(ctx, "a"); st.Name != "Renamed" {
		t.Errorf("Name = %q after update", st.Name)
	}
}

func TestStorage_PriceHistory(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)

	t0 := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	snapshots := []struct {
		at time.Time
		e5 float64
	}{
		{t0, 1.799},
		{t0.Add(time.Hour), 1.779},
		{t0.Add(2 * time.Hour), 1.819},
	}
	for _, snap := range snapshots {
		prices := map[string]api.GasPrices{
			"a": {Prices: map[api.GasType]float64{api.E5: snap.e5}, Status: api.StatusOpen},
		}
		if err := s.SavePrices(ctx, snap.at, prices); err != nil {
			t.Fatalf("SavePrices() failed: %v", err)
		}
		latest, err := s.LatestPrices(ctx, "a")
		if err != nil {
			t.Fatal(err)
		}
		if p, _ := latest.Price(api.E5); p != snap.e5 {
			t.Errorf("LatestPrices() E5 = %v after saving %v", p, snap.e5)
		}
	}

	history, err := s.History(ctx, "a", t0.Add(30*time.Minute))
	if err != nil {
		t.Fatalf("History() failed: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 records, got %d", len(history))
	}
	if !history[0].RecordedAt.Equal(t0.Add(time.Hour)) || history[1].Status != api.StatusOpen {
		t.Errorf("unexpected history %+v", history)
	}

	all, err := s.History(ctx, "a", time.Time{})
	if err != nil || len(all) != 3 {
		t.Errorf("History(zero) = %d records, %v", len(all), err)
	}
}

func TestStorage_NearbyStations(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)

	stations := []api.Station{
		station("far", 52.60, 13.40, nil),
		station("near", 52.521, 13.401, map[api.GasType]float64{api.E10: 1.699}),
		station("here", 52.520, 13.400, nil),
	}
	if err := s.SaveStations(ctx, stations); err != nil {
		t.Fatal(err)
	}

	nearby, err := s.NearbyStations(ctx, 52.520, 13.400, 2000)
	if err != nil {
		t.Fatalf("NearbyStations() failed: %v", err)
	}
	if len(nearby) != 2 {
		t.Fatalf("expected 2 stations, got %d", len(nearby))
	}
	if nearby[0].ID != "here" || nearby[1].ID != "near" {
		t.Errorf("unexpected order %s, %s", nearby[0].ID, nearby[1].ID)
	}
	if nearby[0].Distance > 1 || nearby[1].Distance < 100 || nearby[1].Distance > 200 {
		t.Errorf("unexpected distances %v, %v", nearby[0].Distance, nearby[1].Distance)
	}
	if nearby[0].Latest != nil || nearby[1].Latest == nil {
		t.Error("latest prices not attached as expected")
	}

	// A second search at the same rounded point counts towards the same log.
	if _, err := s.NearbyStations(ctx, 52.5201, 13.4001, 5000); err != nil {
		t.Fatal(err)
	}
	logs, err := s.LocationLogs(ctx, 10)
	if err != nil {
		t.Fatalf("LocationLogs() failed: %v", err)
	}
	if len(logs) != 1 || logs[0].SearchCount != 2 || logs[0].Distance != 5000 {
		t.Errorf("unexpected location logs %+v", logs)
	}
}

func TestStorage_DeleteOldRecords(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)
	now := time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)
	setNow(s, now)

	for _, days := range []int{40, 35, 10, 1} {
		prices := map[string]api.GasPrices{"a": {Prices: map[api.GasType]float64{api.Diesel: 1.6}}}
		if err := s.SavePrices(ctx, now.AddDate(0, 0, -days), prices); err != nil {
			t.Fatal(err)
		}
	}

	deleted, err := s.DeleteOldRecords(ctx, 30)
	if err != nil {
		t.Fatalf("DeleteOldRecords() failed: %v", err)
	}
	if deleted != 2 {
		t.Errorf("deleted %d records, expected 2", deleted)
	}

	history, err := s.History(ctx, "a", time.Time{})
	if err != nil || len(history) != 2 {
		t.Errorf("History() = %d records, %v", len(history), err)
	}

	if err := s.Vacuum(ctx); err != nil {
		t.Errorf("Vacuum() failed: %v", err)
	}
}

func TestStorage_CachedResultsAreCopies(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)

	if err := s.SaveStations(ctx, []api.Station{
		station("a", 52.520, 13.400, map[api.GasType]float64{api.E5: 1.789}),
		station("b", 52.521, 13.401, nil),
	}); err != nil {
		t.Fatal(err)
	}

	first, err := s.LatestPrices(ctx, "a")
	if err != nil {
		t.Fatal(err)
	}
	first.Prices[api.E5] = 0
	delete(first.Prices, api.E5)

	again, err := s.LatestPrices(ctx, "a")
	if err != nil {
		t.Fatal(err)
	}
	if p, ok := again.Price(api.E5); !ok || p != 1.789 {
		t.Errorf("cached E5 = %v, %t after caller mutation", p, ok)
	}

	nearby, err := s.NearbyStations(ctx, 52.520, 13.400, 1000)
	if err != nil || len(nearby) != 2 {
		t.Fatalf("NearbyStations() = %d, %v", len(nearby), err)
	}
	nearby[0].Name = "changed"
	nearby[0].Latest.Prices[api.E5] = 0
	nearby[1] = NearbyStation{}

	nearby, err = s.NearbyStations(ctx, 52.520, 13.400, 1000)
	if err != nil || len(nearby) != 2 {
		t.Fatalf("NearbyStations() = %d, %v", len(nearby), err)
	}
	if nearby[0].Name != "Station a" || nearby[1].ID != "b" {
		t.Errorf("cached stations changed: %+v", nearby)
	}
	if p, _ := nearby[0].Latest.Price(api.E5); p != 1.789 {
		t.Errorf("cached latest E5 = %v after caller mutation", p)
	}
}

func TestStorage_Pragmas(t *testing.T) {
	s := newTestStorage(t)

	var mode string
	if err := s.db.QueryRow("PRAGMA journal_mode").Scan(&mode); err != nil || mode != "wal" {
		t.Errorf("journal_mode = %q, %v", mode, err)
	}
	var vacuum int
	if err := s.db.QueryRow("PRAGMA auto_vacuum").Scan(&vacuum); err != nil || vacuum != 2 {
		t.Errorf("auto_vacuum = %d, %v, expected 2 (incremental)", vacuum, err)
	}
}

func TestReduceLocationPrecision(t *testing.T) {
	lat, lng := reduceLocationPrecision(52.52437, 13.41053, 2)
	if lat != 52.52 || lng != 13.41 {
		t.Errorf("reduceLocationPrecision() = %v, %v", lat, lng)
	}
}
