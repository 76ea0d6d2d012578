package api

import (
	"net/http"
	"strings"
)

const (
	endpointList      = "list.php"
	endpointDetail    = "detail.php"
	endpointPrices    = "prices.php"
	endpointComplaint = "complaint.php"

	DefaultRadius = 5.0
	MinRadius     = 1.0
	MaxRadius     = 25.0
	MaxPriceIDs   = 10
)

// request is what the Client needs to know to send any request.
type request interface {
	endpoint() string
	method() string
	params() params
	validate() error
}

// FuelType selects which prices a list request returns.
type FuelType struct {
	param string
}

var (
	FuelE5     = FuelType{"e5"}
	FuelE10    = FuelType{"e10"}
	FuelDiesel = FuelType{"diesel"}
	FuelAll    = FuelType{"all"}
)

func (f FuelType) QueryParam() string { return f.param }

// ParseFuelType maps a wire string back to a FuelType.
func ParseFuelType(s string) (FuelType, bool) {
	for _, f := range []FuelType{FuelE5, FuelE10, FuelDiesel, FuelAll} {
		if strings.EqualFold(f.param, s) {
			return f, true
		}
	}
	return FuelType{}, false
}

// Sorting selects the order of list results.
type Sorting struct {
	param string
}

var (
	SortByPrice    = Sorting{"price"}
	SortByDistance = Sorting{"dist"}
)

func (s Sorting) QueryParam() string { return s.param }

// ParseSorting maps "price", "dist" or "distance" to a Sorting.
func ParseSorting(s string) (Sorting, bool) {
	switch strings.ToLower(s) {
	case "price":
		return SortByPrice, true
	case "dist", "distance":
		return SortByDistance, true
	default:
		return Sorting{}, false
	}
}

// StationListRequest searches stations around a coordinate.
type StationListRequest struct {
	lat, lng  float64
	hasCoords bool
	radius    float64
	fuel      FuelType
	sorting   Sorting
}

// ListOption configures a StationListRequest.
type ListOption func(*StationListRequest)

// WithRadius sets the search radius in km.
func WithRadius(km float64) ListOption {
	return func(r *StationListRequest) { r.radius = km }
}

func WithFuelType(f FuelType) ListOption {
	return func(r *StationListRequest) { r.fuel = f }
}

func WithSorting(s Sorting) ListOption {
	return func(r *StationListRequest) { r.sorting = s }
}

// NewStationListRequest builds a validated list request. Defaults: radius 5
// km, all fuel types, sorted by distance.
func NewStationListRequest(lat, lng float64, opts ...ListOption) (StationListRequest, error) {
	r := StationListRequest{
		lat:       lat,
		lng:       lng,
		hasCoords: true,
		radius:    DefaultRadius,
		fuel:      FuelAll,
		sorting:   SortByDistance,
	}
	for _, opt := range opts {
		opt(&r)
	}
	if err := r.validate(); err != nil {
		return StationListRequest{}, err
	}
	return r, nil
}

func (r StationListRequest) endpoint() string { return endpointList }
func (r StationListRequest) method() string   { return http.MethodGet }

func (r StationListRequest) validate() error {
	if !r.hasCoords {
		return invalid("coordinates", "latitude and longitude must be set")
	}
	if err := validateRange(r.lat, -90, 90, "latitude"); err != nil {
		return err
	}
	if err := validateRange(r.lng, -180, 180, "longitude"); err != nil {
		return err
	}
	if err := validateRange(r.radius, MinRadius, MaxRadius, "radius"); err != nil {
		return err
	}
	if r.fuel.param == "" {
		return invalid("fuel type", "must be set")
	}
	if r.sorting.param == "" {
		return invalid("sorting", "must be set")
	}
	return nil
}

func (r StationListRequest) params() params {
	sorting := r.sorting
	// The API rejects price sorting when every fuel type is requested.
	if r.fuel == FuelAll {
		sorting = SortByDistance
	}
	return params{}.
		add("lat", r.lat).
		add("lng", r.lng).
		add("rad", r.radius).
		add("type", r.fuel).
		add("sort", sorting)
}

// StationDetailRequest fetches a single station including opening times.
type StationDetailRequest struct {
	id string
}

func NewStationDetailRequest(id string) (StationDetailRequest, error) {
	r := StationDetailRequest{id: id}
	if err := r.validate(); err != nil {
		return StationDetailRequest{}, err
	}
	return r, nil
}

func (r StationDetailRequest) endpoint() string { return endpointDetail }
func (r StationDetailRequest) method() string   { return http.MethodGet }
func (r StationDetailRequest) validate() error  { return validateNotEmpty(r.id, "id") }
func (r StationDetailRequest) params() params   { return params{}.add("id", r.id) }

// PricesRequest fetches current prices for up to MaxPriceIDs stations.
type PricesRequest struct {
	ids []string
}

// NewPricesRequest drops empty ids and collapses duplicates, keeping the
// first occurrence order, before checking the count.
func NewPricesRequest(ids ...string) (PricesRequest, error) {
	r := PricesRequest{ids: uniqueIDs(ids)}
	if err := r.validate(); err != nil {
		return PricesRequest{}, err
	}
	return r, nil
}

// IDs returns the station ids that will be requested.
func (r PricesRequest) IDs() []string {
	return append([]string(nil), r.ids...)
}

func (r PricesRequest) endpoint() string { return endpointPrices }
func (r PricesRequest) method() string   { return http.MethodGet }

func (r PricesRequest) validate() error {
	return validateCount(len(r.ids), 1, MaxPriceIDs, "ids")
}

func (r PricesRequest) params() params {
	return params{}.add("ids", strings.Join(r.ids, ","))
}

func uniqueIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

type valueFormat int

const (
	formatNone valueFormat = iota
	formatText
	formatPrice
	formatPostCode
	formatLocation
)

// CorrectionType is the kind of correction proposed for a station. Each type
// carries its wire name and the format its correction value must have.
type CorrectionType struct {
	param  string
	format valueFormat
}

var (
	WrongStationName        = CorrectionType{"wrongPetrolStationName", formatText}
	WrongStatusOpen         = CorrectionType{"wrongStatusOpen", formatNone}
	WrongStatusClosed       = CorrectionType{"wrongStatusClosed", formatNone}
	WrongPriceE5            = CorrectionType{"wrongPriceE5", formatPrice}
	WrongPriceE10           = CorrectionType{"wrongPriceE10", formatPrice}
	WrongPriceDiesel        = CorrectionType{"wrongPriceDiesel", formatPrice}
	WrongStationBrand       = CorrectionType{"wrongPetrolStationBrand", formatText}
	WrongStationStreet      = CorrectionType{"wrongPetrolStationStreet", formatText}
	WrongStationHouseNumber = CorrectionType{"wrongPetrolStationHouseNumber", formatText}
	WrongStationPostcode    = CorrectionType{"wrongPetrolStationPostcode", formatPostCode}
	WrongStationPlace       = CorrectionType{"wrongPetrolStationPlace", formatText}
	WrongStationLocation    = CorrectionType{"wrongPetrolStationLocation", formatLocation}
)

// CorrectionTypes lists every known CorrectionType.
var CorrectionTypes = []CorrectionType{
	WrongStationName, WrongStatusOpen, WrongStatusClosed,
	WrongPriceE5, WrongPriceE10, WrongPriceDiesel,
	WrongStationBrand, WrongStationStreet, WrongStationHouseNumber,
	WrongStationPostcode, WrongStationPlace, WrongStationLocation,
}

func (c CorrectionType) QueryParam() string { return c.param }
func (c CorrectionType) String() string     { return c.param }

// RequiresValue reports whether a correction value must accompany the type.
// Only status corrections do without one.
func (c CorrectionType) RequiresValue() bool {
	return c.format != formatNone
}

// ParseCorrectionType maps a wire name such as "wrongPriceE5" to its type.
func ParseCorrectionType(s string) (CorrectionType, bool) {
	for _, c := range CorrectionTypes {
		if strings.EqualFold(c.param, s) {
			return c, true
		}
	}
	return CorrectionType{}, false
}

// CorrectionRequest proposes a correction of a station's published data.
type CorrectionRequest struct {
	id    string
	kind  CorrectionType
	value string
}

// NewCorrectionRequest builds a validated correction. value is ignored for
// types that do not require one.
func NewCorrectionRequest(stationID string, kind CorrectionType, value string) (CorrectionRequest, error) {
	r := CorrectionRequest{id: stationID, kind: kind}
	if kind.RequiresValue() {
		r.value = value
	}
	if err := r.validate(); err != nil {
		return CorrectionRequest{}, err
	}
	return r, nil
}

func (r CorrectionRequest) endpoint() string { return endpointComplaint }
func (r CorrectionRequest) method() string   { return http.MethodPost }

func (r CorrectionRequest) validate() error {
	if r.kind.param == "" {
		return invalid("type", "must be set")
	}
	if err := validateNotEmpty(r.id, "station id"); err != nil {
		return err
	}
	if !r.kind.RequiresValue() {
		return nil
	}
	if err := validateNotEmpty(r.value, "correction value"); err != nil {
		return err
	}

	switch r.kind.format {
	case formatPrice:
		return validateFloat(r.value, "correction value")
	case formatPostCode:
		return validatePostCode(r.value, "correction value")
	case formatLocation:
		return validateLocation(r.value, "correction value")
	}
	return nil
}

func (r CorrectionRequest) params() params {
	p := params{}.
		add("id", r.id).
		add("type", r.kind)
	if r.kind.RequiresValue() {
		p.add("correction", r.value)
	}
	return p
}
