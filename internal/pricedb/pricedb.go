package pricedb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"math"
	"slices"
	"sort"
	"strconv"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
	"github.com/patrickmn/go-cache"
	"github.com/rubiojr/tankerkoenig/pkg/api"
	"github.com/tkrajina/gpxgo/gpx"
)

const (
	decimalBase        = 10
	deleteRecordsPause = 50
	deleteBatchSize    = 1000
	timeLayout         = "2006-01-02T15:04:05Z"
)

const (
	defaultCacheExpirationMinutes      = 10
	defaultCacheCleanupMinutes         = 30
	defaultReducePrecisionDecimalPlace = 2
	defaultCacheSize                   = -1024 * 1024 // negative value for pages
	defaultPageSize                    = 4096
)

var ErrNoData = errors.New("no data available")

type Storage struct {
	db    *sql.DB
	cache *cache.Cache
	log   *slog.Logger
	now   func() time.Time
}

// StationRecord is the stored master data of a station.
type StationRecord struct {
	ID          string
	Name        string
	Brand       string
	Street      string
	HouseNumber string
	PostCode    int
	Place       string
	State       string
	Lat         float64
	Lng         float64
	UpdatedAt   time.Time
}

// PriceRecord is one price snapshot of a station.
type PriceRecord struct {
	StationID  string
	RecordedAt time.Time
	api.GasPrices
}

// NearbyStation is a stored station with its distance in meters to the
// search point and its most recent snapshot, if any.
type NearbyStation struct {
	StationRecord
	Distance float64
	Latest   *PriceRecord
}

func NewStorage(ctx context.Context, dbPath string, logger *slog.Logger) (*Storage, error) {
	db, err := sql.Open("sqlite3", "file:"+dbPath)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	if err := configureSQLitePragmas(ctx, db, defaultCacheSize); err != nil {
		db.Close()
		return nil, err
	}

	if err := createTables(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("error creating tables: %w", err)
	}

	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Storage{
		db:    db,
		cache: cache.New(defaultCacheExpirationMinutes*time.Minute, defaultCacheCleanupMinutes*time.Minute),
		log:   logger,
		now:   time.Now,
	}, nil
}

func createTables(ctx context.Context, db *sql.DB) error {
	createTableSQL := `
	CREATE TABLE IF NOT EXISTS stations (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		brand TEXT NOT NULL DEFAULT '',
		street TEXT NOT NULL DEFAULT '',
		house_number TEXT NOT NULL DEFAULT '',
		post_code INTEGER NOT NULL DEFAULT 0,
		place TEXT NOT NULL DEFAULT '',
		state TEXT NOT NULL DEFAULT '',
		lat REAL NOT NULL,
		lng REAL NOT NULL,
		updated_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_stations_lat_lng ON stations(lat, lng);

	CREATE TABLE IF NOT EXISTS price_history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		station_id TEXT NOT NULL,
		recorded_at TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT '',
		e5 REAL,
		e10 REAL,
		diesel REAL,
		UNIQUE(station_id, recorded_at)
	);
	CREATE INDEX IF NOT EXISTS idx_price_history_station ON price_history(station_id, recorded_at);
	CREATE INDEX IF NOT EXISTS idx_price_history_recorded_at ON price_history(recorded_at);

	CREATE TABLE IF NOT EXISTS location_logs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		latitude REAL NOT NULL,
		longitude REAL NOT NULL,
		distance REAL NOT NULL,
		search_count INTEGER NOT NULL DEFAULT 1,
		last_search TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_location_logs_coordinates ON location_logs (latitude, longitude);
	`

	if _, err := db.ExecContext(ctx, createTableSQL); err != nil {
		return fmt.Errorf("error creating table: %w", err)
	}
	return nil
}

// configureSQLitePragmas must run before createTables: page_size and
// auto_vacuum only take effect on an empty database.
func configureSQLitePragmas(ctx context.Context, db *sql.DB, cacheSize int) error {
	pragmas := []struct{ name, value string }{
		{"busy_timeout", "10000"},
		{"page_size", strconv.Itoa(defaultPageSize)},
		{"auto_vacuum", "INCREMENTAL"},
		{"journal_mode", "WAL"},
		{"synchronous", "NORMAL"},
		{"cache_size", strconv.Itoa(cacheSize)},
		{"temp_store", "FILE"},
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, fmt.Sprintf("PRAGMA %s = %s;", p.name, p.value)); err != nil {
			return fmt.Errorf("error setting %s: %w", p.name, err)
		}
	}
	return nil
}

func (s *Storage) Close() error {
	if s.cache != nil {
		s.cache.Flush()
	}
	return s.db.Close()
}

func (s *Storage) rollback(tx *sql.Tx) {
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		s.log.Warn("rollback error", "error", err)
	}
}

// SaveStations upserts the master data of the given stations. Stations that
// carry prices, as list results do, also get a price snapshot.
func (s *Storage) SaveStations(ctx context.Context, stations []api.Station) error {
	now := s.now().UTC().Truncate(time.Second)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("error starting transaction: %w", err)
	}
	defer s.rollback(tx)

	upsert, err := tx.PrepareContext(ctx, `
		INSERT INTO stations (id, name, brand, street, house_number, post_code, place, state, lat, lng, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name, brand = excluded.brand, street = excluded.street,
			house_number = excluded.house_number, post_code = excluded.post_code,
			place = excluded.place, state = excluded.state, lat = excluded.lat,
			lng = excluded.lng, updated_at = excluded.updated_at
	`)
	if err != nil {
		return fmt.Errorf("error preparing statement: %w", err)
	}
	defer upsert.Close()

	var snapshots int
	for i := range stations {
		st := &stations[i]
		if st.ID == "" {
			continue
		}
		loc := st.Location
		var state string
		if loc.State != nil {
			state = string(*loc.State)
		}
		_, err := upsert.ExecContext(ctx,
			st.ID, str(st.Name), str(st.Brand), loc.Street, str(loc.HouseNumber),
			intOrZero(loc.ZipCode), loc.City, state, loc.Lat, loc.Lng, now.Format(timeLayout),
		)
		if err != nil {
			return fmt.Errorf("error saving station %s: %w", st.ID, err)
		}

		if st.GasPrices != nil {
			if err := insertPrices(ctx, tx, st.ID, now, *st.GasPrices); err != nil {
				return err
			}
			snapshots++
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("error committing transaction: %w", err)
	}

	s.cache.Flush()
	s.log.Debug("Saved stations", "count", len(stations), "snapshots", snapshots)
	return nil
}

// SavePrices stores one snapshot per station taken at the given time.
func (s *Storage) SavePrices(ctx context.Context, at time.Time, prices map[string]api.GasPrices) error {
	at = at.UTC().Truncate(time.Second)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("error starting transaction: %w", err)
	}
	defer s.rollback(tx)

	for id, p := range prices {
		if err := insertPrices(ctx, tx, id, at, p); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("error committing transaction: %w", err)
	}

	s.cache.Flush()
	return nil
}

func insertPrices(ctx context.Context, tx *sql.Tx, id string, at time.Time, p api.GasPrices) error {
	_, err := tx.ExecContext(ctx, `
		INSERT OR REPLACE INTO price_history (station_id, recorded_at, status, e5, e10, diesel)
		VALUES (?, ?, ?, ?, ?, ?)
	`, id, at.Format(timeLayout), string(p.Status), priceOrNull(p, api.E5), priceOrNull(p, api.E10), priceOrNull(p, api.Diesel))
	if err != nil {
		return fmt.Errorf("error inserting prices for %s: %w", id, err)
	}
	return nil
}

// LatestPrices returns the most recent snapshot of a station. ErrNoData is
// returned when none was recorded.
func (s *Storage) LatestPrices(ctx context.Context, id string) (*PriceRecord, error) {
	cacheKey := "latest_" + id
	if cached, found := s.cache.Get(cacheKey); found {
		s.log.Debug("Using cached data", "key", cacheKey)
		return cached.(*PriceRecord).clone(), nil
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT station_id, recorded_at, status, e5, e10, diesel
		FROM price_history WHERE station_id = ?
		ORDER BY recorded_at DESC LIMIT 1
	`, id)
	rec, err := scanPriceRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", id, ErrNoData)
		}
		return nil, fmt.Errorf("error querying database: %w", err)
	}

	s.cache.Set(cacheKey, rec, cache.DefaultExpiration)
	return rec.clone(), nil
}

// History returns the snapshots of a station recorded at or after since,
// oldest first.
func (s *Storage) History(ctx context.Context, id string, since time.Time) ([]PriceRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT station_id, recorded_at, status, e5, e10, diesel
		FROM price_history WHERE station_id = ? AND recorded_at >= ?
		ORDER BY recorded_at ASC
	`, id, since.UTC().Format(timeLayout))
	if err != nil {
		return nil, fmt.Errorf("error querying history: %w", err)
	}
	defer rows.Close()

	var history []PriceRecord
	for rows.Next() {
		rec, err := scanPriceRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning history: %w", err)
		}
		history = append(history, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row error: %w", err)
	}
	return history, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPriceRecord(row scanner) (*PriceRecord, error) {
	var (
		rec        PriceRecord
		recordedAt string
		status     string
		e5, e10, d sql.NullFloat64
	)
	if err := row.Scan(&rec.StationID, &recordedAt, &status, &e5, &e10, &d); err != nil {
		return nil, err
	}

	t, err := time.Parse(timeLayout, recordedAt)
	if err != nil {
		return nil, fmt.Errorf("error parsing time %s: %w", recordedAt, err)
	}
	rec.RecordedAt = t
	rec.Status = api.PriceStatus(status)
	rec.Prices = make(map[api.GasType]float64, 3)
	for gt, v := range map[api.GasType]sql.NullFloat64{api.E5: e5, api.E10: e10, api.Diesel: d} {
		if v.Valid {
			rec.Prices[gt] = v.Float64
		}
	}
	return &rec, nil
}

// Station returns the stored master data of a station.
func (s *Storage) Station(ctx context.Context, id string) (*StationRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, brand, street, house_number, post_code, place, state, lat, lng, updated_at
		FROM stations WHERE id = ?
	`, id)
	st, err := scanStation(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("station %s: %w", id, ErrNoData)
		}
		return nil, fmt.Errorf("error querying station: %w", err)
	}
	return st, nil
}

// StationIDs returns the ids of all stored stations.
func (s *Storage) StationIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id FROM stations ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("error querying station ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("error scanning station id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row error: %w", err)
	}
	return ids, nil
}

func scanStation(row scanner) (*StationRecord, error) {
	var st StationRecord
	var updatedAt string
	err := row.Scan(&st.ID, &st.Name, &st.Brand, &st.Street, &st.HouseNumber, &st.PostCode,
		&st.Place, &st.State, &st.Lat, &st.Lng, &updatedAt)
	if err != nil {
		return nil, err
	}
	if st.UpdatedAt, err = time.Parse(timeLayout, updatedAt); err != nil {
		return nil, fmt.Errorf("error parsing time %s: %w", updatedAt, err)
	}
	return &st, nil
}

// NearbyStations returns the stored stations within distance meters of the
// given point, closest first. The search location is logged.
func (s *Storage) NearbyStations(ctx context.Context, lat, lng, distance float64) ([]NearbyStation, error) {
	cacheKey := fmt.Sprintf("nearby_%f_%f_%f", lat, lng, distance)

	if err := s.LogSearchLocation(ctx, lat, lng, distance); err != nil {
		s.log.Error("Failed to log search location", "error", err)
	}

	if cached, found := s.cache.Get(cacheKey); found {
		s.log.Debug("Using cached data", "key", cacheKey)
		return cloneNearby(cached.([]NearbyStation)), nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, brand, street, house_number, post_code, place, state, lat, lng, updated_at
		FROM stations
	`)
	if err != nil {
		return nil, fmt.Errorf("error querying stations: %w", err)
	}

	var nearby []NearbyStation
	for rows.Next() {
		st, err := scanStation(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("error scanning station: %w", err)
		}
		d := gpx.Distance2D(lat, lng, st.Lat, st.Lng, true)
		if d <= distance {
			nearby = append(nearby, NearbyStation{StationRecord: *st, Distance: d})
		}
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return nil, fmt.Errorf("row error: %w", err)
	}

	sort.Slice(nearby, func(i, j int) bool {
		return nearby[i].Distance < nearby[j].Distance
	})

	for i := range nearby {
		latest, err := s.LatestPrices(ctx, nearby[i].ID)
		if err != nil && !errors.Is(err, ErrNoData) {
			return nil, err
		}
		nearby[i].Latest = latest
	}

	s.cache.Set(cacheKey, nearby, cache.DefaultExpiration)
	return cloneNearby(nearby), nil
}

// clone copies r, including its price map, so cached records stay untouched.
func (r *PriceRecord) clone() *PriceRecord {
	if r == nil {
		return nil
	}
	c := *r
	c.Prices = maps.Clone(r.Prices)
	return &c
}

func cloneNearby(in []NearbyStation) []NearbyStation {
	out := slices.Clone(in)
	for i := range out {
		out[i].Latest = out[i].Latest.clone()
	}
	return out
}

func reduceLocationPrecision(lat, lng float64, decimalPlaces int) (roundedLat, roundedLng float64) {
	factor := math.Pow(decimalBase, float64(decimalPlaces))
	roundedLat = math.Round(lat*factor) / factor
	roundedLng = math.Round(lng*factor) / factor
	return
}

// LogSearchLocation counts a search at the given point. Points are rounded
// to two decimals so nearby searches share a row.
func (s *Storage) LogSearchLocation(ctx context.Context, latitude, longitude, distance float64) error {
	var id int64

	lat, lng := reduceLocationPrecision(latitude, longitude, defaultReducePrecisionDecimalPlace)
	now := s.now().UTC().Format(timeLayout)
	err := s.db.QueryRowContext(ctx, `
		SELECT id FROM location_logs WHERE latitude = ? AND longitude = ? LIMIT 1
	`, lat, lng).Scan(&id)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		_, err = s.db.ExecContext(ctx, `
			INSERT INTO location_logs (latitude, longitude, distance, last_search)
			VALUES (?, ?, ?, ?)
		`, lat, lng, distance, now)
		if err != nil {
			return fmt.Errorf("error logging search location: %w", err)
		}
	case err != nil:
		return fmt.Errorf("error checking for existing location: %w", err)
	default:
		_, err = s.db.ExecContext(ctx, `
			UPDATE location_logs
			SET search_count = search_count + 1, last_search = ?, distance = ?
			WHERE id = ?
		`, now, distance, id)
		if err != nil {
			return fmt.Errorf("error updating search location: %w", err)
		}
	}
	return nil
}

// LocationLog represents a row in the location_logs table
type LocationLog struct {
	Latitude    float64   `json:"lat"`
	Longitude   float64   `json:"lng"`
	Distance    float64   `json:"distance"`
	SearchCount int64     `json:"count"`
	LastSearch  time.Time `json:"last_search"`
}

// LocationLogs returns the most searched locations first. A limit of 0
// returns all of them.
func (s *Storage) LocationLogs(ctx context.Context, limit int) ([]LocationLog, error) {
	query := `SELECT latitude, longitude, distance, search_count, last_search
			  FROM location_logs
			  ORDER BY search_count DESC, last_search DESC `
	if limit > 0 {
		query += fmt.Sprintf("LIMIT %d", limit)
	}

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error retrieving location logs: %w", err)
	}
	defer rows.Close()

	var logs []LocationLog
	for rows.Next() {
		var entry LocationLog
		var lastSearch string
		if err := rows.Scan(&entry.Latitude, &entry.Longitude, &entry.Distance, &entry.SearchCount, &lastSearch); err != nil {
			return nil, fmt.Errorf("error scanning location log: %w", err)
		}
		if entry.LastSearch, err = time.Parse(timeLayout, lastSearch); err != nil {
			return nil, fmt.Errorf("error parsing time %s: %w", lastSearch, err)
		}
		logs = append(logs, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during rows iteration: %w", err)
	}
	return logs, nil
}

// DeleteOldRecords removes price snapshots older than daysOld days and
// returns how many were deleted.
func (s *Storage) DeleteOldRecords(ctx context.Context, daysOld int) (int, error) {
	cutoff := s.now().UTC().AddDate(0, 0, -daysOld).Format(timeLayout)
	s.log.Info("Starting cleanup of old records", "cutoff", cutoff)

	deleted := 0
	for {
		res, err := s.db.ExecContext(ctx, `
			DELETE FROM price_history WHERE ROWID IN (
				SELECT ROWID FROM price_history WHERE recorded_at < ? ORDER BY ROWID LIMIT ?
			)
		`, cutoff, deleteBatchSize)
		if err != nil {
			return deleted, fmt.Errorf("error deleting price_history records: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return deleted, fmt.Errorf("error counting deleted records: %w", err)
		}
		deleted += int(n)
		if n < deleteBatchSize {
			break
		}

		s.log.Debug("Deleted price_history records", "count", deleted)
		select {
		case <-ctx.Done():
			return deleted, ctx.Err()
		case <-time.After(deleteRecordsPause * time.Millisecond):
		}
	}

	s.cache.Flush()
	s.log.Info("Completed price_history cleanup", "deleted_count", deleted)
	return deleted, nil
}

func (s *Storage) Vacuum(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "PRAGMA incremental_vacuum(1000)"); err != nil {
		return fmt.Errorf("error performing incremental vacuum: %w", err)
	}
	return nil
}

func str(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func intOrZero(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}

func priceOrNull(p api.GasPrices, t api.GasType) any {
	if v, ok := p.Price(t); ok {
		return v
	}
	return nil
}
