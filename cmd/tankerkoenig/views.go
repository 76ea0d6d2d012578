package main

import (
	"time"

	"github.com/rubiojr/tankerkoenig/pkg/api"
)

// JSON shapes served by the serve command. They mirror the upstream field
// names where there is one.

type envelopeView struct {
	OK      bool    `json:"ok"`
	Status  string  `json:"status,omitempty"`
	Message *string `json:"message,omitempty"`
	License *string `json:"license,omitempty"`
	Data    *string `json:"data,omitempty"`
}

func newEnvelopeView(e api.Envelope) envelopeView {
	v := envelopeView{OK: e.OK, Message: e.Message, License: e.License, Data: e.Data}
	if e.Status != nil {
		v.Status = string(*e.Status)
	}
	return v
}

type listResponse struct {
	envelopeView
	Stations []stationView `json:"stations,omitempty"`
}

type detailResponse struct {
	envelopeView
	Station *stationView `json:"station,omitempty"`
}

type pricesResponse struct {
	envelopeView
	Prices map[string]pricesView `json:"prices,omitempty"`
}

type pricesView struct {
	Status string   `json:"status,omitempty"`
	E5     *float64 `json:"e5"`
	E10    *float64 `json:"e10"`
	Diesel *float64 `json:"diesel"`
}

func newPricesView(p api.GasPrices) pricesView {
	get := func(t api.GasType) *float64 {
		if v, ok := p.Price(t); ok {
			return &v
		}
		return nil
	}
	return pricesView{Status: string(p.Status), E5: get(api.E5), E10: get(api.E10), Diesel: get(api.Diesel)}
}

type openingTimeView struct {
	Text     string   `json:"text"`
	Days     []string `json:"days"`
	Holidays bool     `json:"holidays"`
	Start    string   `json:"start"`
	End      string   `json:"end"`
}

type stationView struct {
	ID           string            `json:"id"`
	Name         *string           `json:"name"`
	Brand        *string           `json:"brand"`
	IsOpen       bool              `json:"isOpen"`
	Price        *float64          `json:"price,omitempty"`
	Prices       *pricesView       `json:"prices,omitempty"`
	Address      string            `json:"address"`
	Lat          float64           `json:"lat"`
	Lng          float64           `json:"lng"`
	Dist         *float64          `json:"dist,omitempty"`
	State        *api.State        `json:"state,omitempty"`
	OpeningTimes []openingTimeView `json:"openingTimes,omitempty"`
	Overrides    []string          `json:"overrides,omitempty"`
	WholeDay     *bool             `json:"wholeDay,omitempty"`
}

func newStationView(st api.Station) stationView {
	v := stationView{
		ID:        st.ID,
		Name:      st.Name,
		Brand:     st.Brand,
		IsOpen:    st.Open,
		Price:     st.Price,
		Address:   address(st.Location),
		Lat:       st.Location.Lat,
		Lng:       st.Location.Lng,
		Dist:      st.Location.Distance,
		State:     st.Location.State,
		Overrides: st.OverridingOpeningTimes,
		WholeDay:  st.WholeDay,
	}
	if st.GasPrices != nil {
		p := newPricesView(*st.GasPrices)
		v.Prices = &p
	}
	for _, ot := range st.OpeningTimes {
		otv := openingTimeView{Text: ot.Text, Holidays: ot.IncludesHolidays, Start: ot.Start, End: ot.End}
		if ot.Parsed {
			otv.Days = []string{}
			for _, d := range ot.Days.Weekdays() {
				otv.Days = append(otv.Days, d.String())
			}
		}
		v.OpeningTimes = append(v.OpeningTimes, otv)
	}
	return v
}

type historyView struct {
	RecordedAt time.Time `json:"recordedAt"`
	pricesView
}

type nearbyView struct {
	ID       string       `json:"id"`
	Name     string       `json:"name"`
	Brand    string       `json:"brand"`
	Street   string       `json:"street"`
	Place    string       `json:"place"`
	Lat      float64      `json:"lat"`
	Lng      float64      `json:"lng"`
	Distance float64      `json:"dist"`
	Latest   *historyView `json:"latest,omitempty"`
}
