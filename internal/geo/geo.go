// Package geo resolves place names to coordinates and measures distances.
package geo

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/muesli/gominatim"
	"github.com/patrickmn/go-cache"
	"github.com/tkrajina/gpxgo/gpx"
)

const (
	DefaultServer = "https://nominatim.openstreetmap.org/"

	metersPerKm = 1000.0
)

var ErrNotFound = errors.New("no results found")

// Place is a geocoded location.
type Place struct {
	Name string
	Lat  float64
	Lng  float64
}

// Geocoder looks up places through Nominatim and caches the answers.
type Geocoder struct {
	cache  *cache.Cache
	log    *slog.Logger
	search func(q string) ([]gominatim.SearchResult, error)
}

func NewGeocoder(server string, logger *slog.Logger) *Geocoder {
	if server == "" {
		server = DefaultServer
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	gominatim.SetServer(server)

	return &Geocoder{
		cache: cache.New(30*time.Minute, 90*time.Minute),
		log:   logger,
		search: func(q string) ([]gominatim.SearchResult, error) {
			qry := gominatim.SearchQuery{Q: q}
			return qry.Get()
		},
	}
}

// Locate returns the best match for query.
func (g *Geocoder) Locate(query string) (Place, error) {
	key := strings.ToLower(strings.TrimSpace(query))
	if key == "" {
		return Place{}, errors.New("empty location")
	}
	if cached, ok := g.cache.Get(key); ok {
		g.log.Debug("Using cached location", "query", query)
		return cached.(Place), nil
	}

	results, err := g.search(query)
	if err != nil {
		return Place{}, fmt.Errorf("geocoding error: %w", err)
	}
	if len(results) == 0 {
		return Place{}, fmt.Errorf("%w for location: %s", ErrNotFound, query)
	}

	p, err := toPlace(results[0])
	if err != nil {
		return Place{}, err
	}
	g.cache.Set(key, p, cache.DefaultExpiration)
	return p, nil
}

func toPlace(result gominatim.SearchResult) (Place, error) {
	lat, err := strconv.ParseFloat(result.Lat, 64)
	if err != nil {
		return Place{}, fmt.Errorf("error parsing latitude: %w", err)
	}
	lng, err := strconv.ParseFloat(result.Lon, 64)
	if err != nil {
		return Place{}, fmt.Errorf("error parsing longitude: %w", err)
	}
	return Place{Name: result.DisplayName, Lat: lat, Lng: lng}, nil
}

// Distance returns the great-circle distance between two points in meters.
func Distance(lat1, lng1, lat2, lng2 float64) float64 {
	return gpx.Distance2D(lat1, lng1, lat2, lng2, true)
}

// DistanceKm is Distance in kilometers.
func DistanceKm(lat1, lng1, lat2, lng2 float64) float64 {
	return Distance(lat1, lng1, lat2, lng2) / metersPerKm
}

// KmToMeters converts a radius given in kilometers.
func KmToMeters(km float64) float64 {
	return km * metersPerKm
}
