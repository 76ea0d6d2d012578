package api

import (
	"fmt"
	"strings"
	"time"
)

// Station is a single fuel station as reported by the API. Optional values
// are nil when the response did not carry them.
type Station struct {
	ID    string
	Name  *string
	Brand *string
	Open  bool
	// Price is only set by list requests for a single fuel type.
	Price *float64
	// GasPrices is only set when at least one fuel type has a price.
	GasPrices              *GasPrices
	Location               Location
	OpeningTimes           []OpeningTime
	OverridingOpeningTimes []string
	WholeDay               *bool
}

// Equal reports whether both values describe the same station.
func (s Station) Equal(o Station) bool {
	return s.ID == o.ID
}

// IsWholeDay reports whether the station is open around the clock.
func (s Station) IsWholeDay() bool {
	return s.WholeDay != nil && *s.WholeDay
}

// DisplayName prefers the station name and falls back to brand and id.
func (s Station) DisplayName() string {
	if s.Name != nil {
		return *s.Name
	}
	if s.Brand != nil && *s.Brand != "" {
		return *s.Brand
	}
	return s.ID
}

// Location of a station.
type Location struct {
	Lat float64
	Lng float64
	// Distance in km from the search point, set for list results only.
	Distance *float64
	Street   string
	// HouseNumber is frequently embedded in Street instead.
	HouseNumber *string
	ZipCode     *int
	City        string
	State       *State
}

// Address renders the location the way it would be written on a letter.
func (l Location) Address() string {
	street := l.Street
	if l.HouseNumber != nil {
		street = strings.TrimSpace(street + " " + *l.HouseNumber)
	}

	place := l.City
	if l.ZipCode != nil {
		place = strings.TrimSpace(fmt.Sprintf("%05d %s", *l.ZipCode, l.City))
	}

	switch {
	case street == "":
		return place
	case place == "":
		return street
	default:
		return street + ", " + place
	}
}

// State is a German federal state code. The API rarely populates it.
type State string

const (
	StateBadenWuerttemberg     State = "deBW"
	StateBayern                State = "deBY"
	StateBerlin                State = "deBE"
	StateBrandenburg           State = "deBB"
	StateBremen                State = "deHB"
	StateHamburg               State = "deHH"
	StateHessen                State = "deHE"
	StateMecklenburgVorpommern State = "deMV"
	StateNiedersachsen         State = "deNI"
	StateNordrheinWestfalen    State = "deNW"
	StateRheinlandPfalz        State = "deRP"
	StateSaarland              State = "deSL"
	StateSachsen               State = "deSN"
	StateSachsenAnhalt         State = "deST"
	StateSchleswigHolstein     State = "deSH"
	StateThueringen            State = "deTH"
)

var knownStates = map[State]struct{}{
	StateBadenWuerttemberg: {}, StateBayern: {}, StateBerlin: {}, StateBrandenburg: {},
	StateBremen: {}, StateHamburg: {}, StateHessen: {}, StateMecklenburgVorpommern: {},
	StateNiedersachsen: {}, StateNordrheinWestfalen: {}, StateRheinlandPfalz: {},
	StateSaarland: {}, StateSachsen: {}, StateSachsenAnhalt: {}, StateSchleswigHolstein: {},
	StateThueringen: {},
}

func parseState(s *string) *State {
	if s == nil {
		return nil
	}
	st := State(*s)
	if _, ok := knownStates[st]; !ok {
		return nil
	}
	return &st
}

// GasType is one of the fuel categories priced by the API.
type GasType int

const (
	Diesel GasType = iota
	E5
	E10
)

// GasTypes lists every GasType in wire order.
var GasTypes = []GasType{Diesel, E5, E10}

var gasTypeKeys = [...]string{Diesel: "diesel", E5: "e5", E10: "e10"}

func (t GasType) String() string {
	switch t {
	case Diesel:
		return "Diesel"
	case E5:
		return "E5"
	case E10:
		return "E10"
	default:
		return fmt.Sprintf("GasType(%d)", int(t))
	}
}

// key is the JSON field holding the price of this type.
func (t GasType) key() string {
	return gasTypeKeys[t]
}

// PriceStatus is the per-station status reported by prices.php.
type PriceStatus string

const (
	StatusOpen     PriceStatus = "open"
	StatusClosed   PriceStatus = "closed"
	StatusNotFound PriceStatus = "not found"
)

func parsePriceStatus(s *string) PriceStatus {
	if s == nil {
		return ""
	}
	switch st := PriceStatus(*s); st {
	case StatusOpen, StatusClosed, StatusNotFound:
		return st
	default:
		return ""
	}
}

// GasPrices holds the prices of a station. A type without a price is absent
// from Prices, which is distinct from a price of 0.
type GasPrices struct {
	Prices map[GasType]float64
	// Status is empty unless the response came from prices.php.
	Status PriceStatus
}

// Price returns the price for t and whether it was reported.
func (g GasPrices) Price(t GasType) (float64, bool) {
	p, ok := g.Prices[t]
	return p, ok
}

// HasPrice reports whether t was reported.
func (g GasPrices) HasPrice(t GasType) bool {
	_, ok := g.Prices[t]
	return ok
}

// HasPrices reports whether any fuel type has a price.
func (g GasPrices) HasPrices() bool {
	return len(g.Prices) > 0
}

// OpeningTime is one entry of a station's regular opening hours.
type OpeningTime struct {
	// Text is the unmodified source text, kept for diagnostics.
	Text string
	// Parsed is false when Text could not be interpreted. Days and
	// IncludesHolidays are then meaningless.
	Parsed bool
	// Days may be empty on a parsed entry, e.g. "Feiertag".
	Days  Days
	Start string
	End   string
	// IncludesHolidays is set when the hours also apply on public holidays.
	IncludesHolidays bool
}

// HasDays reports whether the entry applies to at least one weekday.
func (o OpeningTime) HasDays() bool {
	return o.Parsed && !o.Days.Empty()
}

// Days is an ordered set of weekdays, iterated Monday first.
type Days uint8

// AllDays holds Monday through Sunday.
const AllDays Days = 1<<7 - 1

// weekOrder is the Monday-first iteration order.
var weekOrder = [...]time.Weekday{
	time.Monday, time.Tuesday, time.Wednesday, time.Thursday,
	time.Friday, time.Saturday, time.Sunday,
}

// NewDays builds a set from the given weekdays. Duplicates collapse.
func NewDays(days ...time.Weekday) Days {
	var d Days
	for _, wd := range days {
		d = d.With(wd)
	}
	return d
}

func dayBit(wd time.Weekday) Days {
	// Monday is bit 0, Sunday bit 6.
	return 1 << ((int(wd) + 6) % 7)
}

// With returns d plus wd.
func (d Days) With(wd time.Weekday) Days {
	return d | dayBit(wd)
}

// Without returns d minus wd.
func (d Days) Without(wd time.Weekday) Days {
	return d &^ dayBit(wd)
}

// Contains reports whether wd is a member.
func (d Days) Contains(wd time.Weekday) bool {
	return d&dayBit(wd) != 0
}

// Empty reports whether d has no members.
func (d Days) Empty() bool {
	return d == 0
}

// Len returns the number of members.
func (d Days) Len() int {
	n := 0
	for _, wd := range weekOrder {
		if d.Contains(wd) {
			n++
		}
	}
	return n
}

// Weekdays returns the members Monday first.
func (d Days) Weekdays() []time.Weekday {
	out := make([]time.Weekday, 0, d.Len())
	for _, wd := range weekOrder {
		if d.Contains(wd) {
			out = append(out, wd)
		}
	}
	return out
}

func (d Days) String() string {
	names := make([]string, 0, 7)
	for _, wd := range d.Weekdays() {
		names = append(names, wd.String()[:3])
	}
	return "[" + strings.Join(names, " ") + "]"
}
