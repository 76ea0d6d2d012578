package api

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
)

var errEmptyResponse = errors.New("empty response body")

// Decoder turns raw response bodies into typed results. A zero Decoder is not
// usable; build one with NewDecoder.
type Decoder struct {
	log    *slog.Logger
	strict bool
}

// DecoderOption configures a Decoder.
type DecoderOption func(*Decoder)

// WithStrictOpeningTimes makes opening-hours texts that cannot be parsed fail
// the whole response with a *ParseError. By default such entries are kept
// with their raw text and no days.
func WithStrictOpeningTimes() DecoderOption {
	return func(d *Decoder) {
		d.strict = true
	}
}

// WithDecoderLogger sets the logger used to report degraded fields.
func WithDecoderLogger(logger *slog.Logger) DecoderOption {
	return func(d *Decoder) {
		d.log = logger
	}
}

func NewDecoder(opts ...DecoderOption) *Decoder {
	d := &Decoder{log: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// DecodeStationList decodes a list.php response.
func (d *Decoder) DecodeStationList(body []byte) (*StationListResult, error) {
	n, err := parseBody(body)
	if err != nil {
		return nil, err
	}

	res := &StationListResult{Envelope: decodeEnvelope(n)}
	if !res.OK {
		return res, nil
	}

	items := getArray(n, "stations")
	res.Stations = make([]Station, 0, len(items))
	for i, item := range items {
		sn, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("station %d is not an object", i)
		}
		st, err := d.station(node(sn))
		if err != nil {
			return nil, err
		}
		res.Stations = append(res.Stations, st)
	}
	return res, nil
}

// DecodeStationDetail decodes a detail.php response.
func (d *Decoder) DecodeStationDetail(body []byte) (*StationDetailResult, error) {
	n, err := parseBody(body)
	if err != nil {
		return nil, err
	}

	res := &StationDetailResult{Envelope: decodeEnvelope(n)}
	if !res.OK {
		return res, nil
	}

	sn := getObject(n, "station")
	if sn == nil {
		return res, nil
	}
	st, err := d.station(sn)
	if err != nil {
		return nil, err
	}
	res.Station = &st
	return res, nil
}

// DecodePrices decodes a prices.php response.
func (d *Decoder) DecodePrices(body []byte) (*PricesResult, error) {
	n, err := parseBody(body)
	if err != nil {
		return nil, err
	}

	res := &PricesResult{Envelope: decodeEnvelope(n)}
	if !res.OK {
		return res, nil
	}

	pn := getObject(n, "prices")
	res.Prices = make(map[string]GasPrices, len(pn))
	ids := make([]string, 0, len(pn))
	for id := range pn {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		prices := getObject(pn, id)
		if prices == nil {
			d.log.Debug("Skipping prices entry that is not an object", "id", id)
			continue
		}
		res.Prices[id] = gasPrices(prices)
	}
	return res, nil
}

// DecodeCorrection decodes a complaint.php response.
func (d *Decoder) DecodeCorrection(body []byte) (*CorrectionResult, error) {
	n, err := parseBody(body)
	if err != nil {
		return nil, err
	}
	return &CorrectionResult{Envelope: decodeEnvelope(n)}, nil
}

func parseBody(body []byte) (node, error) {
	n, err := decodeNode(body)
	if err != nil {
		return nil, fmt.Errorf("error unmarshaling JSON: %w", err)
	}
	if n == nil {
		return nil, errEmptyResponse
	}
	return n, nil
}

func decodeEnvelope(n node) Envelope {
	return Envelope{
		Status:  parseResponseStatus(getString(n, "status")),
		Message: getString(n, "message"),
		License: getString(n, "license"),
		Data:    getString(n, "data"),
		OK:      getBool(n, "ok", false),
	}
}

func (d *Decoder) station(n node) (Station, error) {
	st := Station{
		Name:     nonEmpty(getString(n, "name")),
		Brand:    getString(n, "brand"),
		Open:     getBool(n, "isOpen", false),
		WholeDay: getOptionalBool(n, "wholeDay"),
		Price:    getFloat(n, "price", nil),
		Location: location(n),
	}
	if id := getString(n, "id"); id != nil {
		st.ID = *id
	}

	if prices := gasPrices(n); prices.HasPrices() {
		st.GasPrices = &prices
	}

	for _, item := range getArray(n, "openingTimes") {
		on, ok := item.(map[string]any)
		if !ok {
			continue
		}
		ot, err := d.openingTime(node(on))
		if err != nil {
			return Station{}, fmt.Errorf("station %s: %w", st.ID, err)
		}
		st.OpeningTimes = append(st.OpeningTimes, ot)
	}

	for _, item := range getArray(n, "overrides") {
		if s, ok := item.(string); ok {
			st.OverridingOpeningTimes = append(st.OverridingOpeningTimes, s)
		}
	}

	return st, nil
}

// location reads the location fields, which the API sends inline with the
// station.
func location(n node) Location {
	loc := Location{
		Distance:    getFloat(n, "dist", nil),
		HouseNumber: nonEmpty(getString(n, "houseNumber")),
		ZipCode:     getInt(n, "postCode"),
		State:       parseState(getString(n, "state")),
	}
	if lat := getFloat(n, "lat", nil); lat != nil {
		loc.Lat = *lat
	}
	if lng := getFloat(n, "lng", nil); lng != nil {
		loc.Lng = *lng
	}
	if street := getString(n, "street"); street != nil {
		loc.Street = *street
	}
	if place := getString(n, "place"); place != nil {
		loc.City = *place
	}
	return loc
}

func gasPrices(n node) GasPrices {
	g := GasPrices{
		Prices: make(map[GasType]float64, len(GasTypes)),
		Status: parsePriceStatus(getString(n, "status")),
	}
	for _, t := range GasTypes {
		if p := getFloat(n, t.key(), nil); p != nil {
			g.Prices[t] = *p
		}
	}
	return g
}

// openingTime is the single place deciding what happens to opening-hours
// text that cannot be parsed.
func (d *Decoder) openingTime(n node) (OpeningTime, error) {
	ot := OpeningTime{}
	if s := getString(n, "text"); s != nil {
		ot.Text = *s
	}
	if s := getString(n, "start"); s != nil {
		ot.Start = *s
	}
	if s := getString(n, "end"); s != nil {
		ot.End = *s
	}

	data, err := parseDays(ot.Text)
	if err != nil {
		if d.strict {
			return OpeningTime{}, err
		}
		d.log.Debug("Unparseable opening times, keeping raw text", "text", ot.Text)
		return ot, nil
	}

	ot.Parsed = true
	ot.Days = data.days
	ot.IncludesHolidays = data.holidays
	return ot, nil
}
