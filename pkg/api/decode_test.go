package api

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func readFixture(t *testing.T, name string) []byte {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", name))
	if err != nil {
		t.Fatalf("failed to read fixture %s: %v", name, err)
	}
	return data
}

func assertSuccessEnvelope(t *testing.T, e Envelope) {
	t.Helper()
	if !e.OK {
		t.Error("expected OK to be true")
	}
	if e.Message != nil {
		t.Errorf("expected no message, got %q", *e.Message)
	}
	if e.License == nil || *e.License != "CC BY 4.0 -  https://creativecommons.tankerkoenig.de" {
		t.Errorf("unexpected license %v", deref(e.License))
	}
	if e.Data == nil || *e.Data != "MTS-K" {
		t.Errorf("unexpected data %v", deref(e.Data))
	}
}

func assertFailedEnvelope(t *testing.T, e Envelope) {
	t.Helper()
	if e.OK {
		t.Error("expected OK to be false")
	}
	if e.Status == nil || *e.Status != ResponseError {
		t.Errorf("expected status error, got %v", deref(e.Status))
	}
	if e.Message == nil || *e.Message != "Error Message" {
		t.Errorf("expected message 'Error Message', got %v", deref(e.Message))
	}
	if e.License != nil || e.Data != nil {
		t.Error("expected license and data to be absent")
	}
}

func TestDecoder_StationDetail(t *testing.T) {
	res, err := NewDecoder().DecodeStationDetail(readFixture(t, "detail.json"))
	if err != nil {
		t.Fatalf("DecodeStationDetail() failed: %v", err)
	}

	assertSuccessEnvelope(t, res.Envelope)
	if res.Status == nil || *res.Status != ResponseOK {
		t.Errorf("expected status ok, got %v", deref(res.Status))
	}

	st := res.Station
	if st == nil {
		t.Fatal("expected a station")
	}
	if st.ID != "51d4b660-a095-1aa0-e100-80009459e03a" {
		t.Errorf("unexpected id %q", st.ID)
	}
	if st.Name == nil || *st.Name != "JET BERLIN HERZBERGSTR. 27" {
		t.Errorf("unexpected name %v", deref(st.Name))
	}
	if st.Brand == nil || *st.Brand != "JET" {
		t.Errorf("unexpected brand %v", deref(st.Brand))
	}
	if !st.Open {
		t.Error("expected station to be open")
	}
	if st.WholeDay == nil || !*st.WholeDay {
		t.Error("expected wholeDay to be present and true")
	}
	if st.Price != nil {
		t.Errorf("expected no aggregate price, got %v", *st.Price)
	}

	if st.GasPrices == nil {
		t.Fatal("expected gas prices")
	}
	if st.GasPrices.Status != "" {
		t.Errorf("expected no price status, got %q", st.GasPrices.Status)
	}
	for _, gt := range GasTypes {
		p, ok := st.GasPrices.Price(gt)
		if !ok || p != 1.009 {
			t.Errorf("price %v = %v (%t), expected 1.009", gt, p, ok)
		}
	}

	loc := st.Location
	if loc.Street != "HERZBERGSTR. 27" || loc.City != "BERLIN" {
		t.Errorf("unexpected address %q, %q", loc.Street, loc.City)
	}
	if loc.ZipCode == nil || *loc.ZipCode != 10365 {
		t.Errorf("unexpected zip code %v", deref(loc.ZipCode))
	}
	if loc.HouseNumber != nil {
		t.Errorf("expected empty house number to be absent, got %q", *loc.HouseNumber)
	}
	if loc.Distance != nil {
		t.Error("expected no distance on detail results")
	}
	if loc.Lat != 52.5262 || loc.Lng != 13.4886 {
		t.Errorf("unexpected coordinates %v,%v", loc.Lat, loc.Lng)
	}
	if loc.State == nil || *loc.State != StateHessen {
		t.Errorf("unexpected state %v", deref(loc.State))
	}

	expected := []OpeningTime{
		{Text: "Mo-Di", Days: NewDays(time.Monday, time.Tuesday), Start: "05:00:00", End: "23:00:00"},
		{Text: "Mi, Do", Days: NewDays(time.Wednesday, time.Thursday), Start: "05:00:00", End: "23:00:00"},
		{Text: "Fr", Days: NewDays(time.Friday), Start: "05:00:00", End: "23:00:00"},
		{Text: "Sa-So", Days: NewDays(time.Saturday, time.Sunday), Start: "06:00:00", End: "23:00:00"},
	}
	if len(st.OpeningTimes) != len(expected) {
		t.Fatalf("expected %d opening times, got %d", len(expected), len(st.OpeningTimes))
	}
	for i := range expected {
		if st.OpeningTimes[i] != expected[i] {
			t.Errorf("opening time %d = %+v, expected %+v", i, st.OpeningTimes[i], expected[i])
		}
	}

	if len(st.OverridingOpeningTimes) != 2 {
		t.Fatalf("expected 2 overrides, got %d", len(st.OverridingOpeningTimes))
	}
	if st.OverridingOpeningTimes[0] != "13.01.2016, 08:00:00 - 13.01.2016, 19:00:00: geöffnet" {
		t.Errorf("unexpected override %q", st.OverridingOpeningTimes[0])
	}
}

func TestDecoder_StationDetailWholeDayWeekend(t *testing.T) {
	body := `{"ok": true, "status": "ok", "station": {
		"id": "x", "isOpen": true, "wholeDay": true, "lat": 1, "lng": 2,
		"openingTimes": [{"text": "Sa-So", "start": "00:00:00", "end": "23:59:00"}]
	}}`

	res, err := NewDecoder().DecodeStationDetail([]byte(body))
	if err != nil {
		t.Fatalf("DecodeStationDetail() failed: %v", err)
	}
	st := res.Station
	if !st.Open || !st.IsWholeDay() {
		t.Errorf("expected open whole-day station, got %+v", st)
	}
	if len(st.OpeningTimes) != 1 {
		t.Fatalf("expected one opening time, got %d", len(st.OpeningTimes))
	}
	if got := st.OpeningTimes[0].Days; got != NewDays(time.Saturday, time.Sunday) {
		t.Errorf("expected weekend days, got %v", got)
	}
	if st.GasPrices != nil {
		t.Error("expected no gas prices")
	}
	if st.OverridingOpeningTimes != nil {
		t.Error("expected no overrides")
	}
}

func TestDecoder_FaultyDayLenient(t *testing.T) {
	res, err := NewDecoder().DecodeStationDetail(readFixture(t, "detail_faulty_day.json"))
	if err != nil {
		t.Fatalf("DecodeStationDetail() failed: %v", err)
	}

	st := res.Station
	if len(st.OpeningTimes) != 2 {
		t.Fatalf("expected 2 opening times, got %d", len(st.OpeningTimes))
	}
	if !st.OpeningTimes[0].HasDays() {
		t.Error("expected the valid entry to keep its days")
	}
	faulty := st.OpeningTimes[1]
	if faulty.Parsed || faulty.HasDays() || faulty.IncludesHolidays {
		t.Errorf("expected faulty entry without day data, got %+v", faulty)
	}
	if faulty.Text != "Foo-Di" || faulty.Start != "05:00:00" {
		t.Errorf("expected raw text and times to be kept, got %+v", faulty)
	}

	if st.GasPrices != nil {
		t.Error("an all-null price map must not be attached")
	}
	if st.OverridingOpeningTimes != nil {
		t.Error("an empty overrides array must not be attached")
	}
	if st.WholeDay == nil || *st.WholeDay {
		t.Error("expected wholeDay to be present and false")
	}
	if st.Location.State != nil {
		t.Error("expected null state to be absent")
	}
}

func TestDecoder_HolidayOnlyIsParsed(t *testing.T) {
	body := []byte(`{"ok": true, "status": "ok", "station": {
		"id": "x", "lat": 52.5, "lng": 13.4,
		"openingTimes": [
			{"text": "Feiertag", "start": "08:00:00", "end": "20:00:00"},
			{"text": "Werktags", "start": "06:00:00", "end": "22:00:00"}
		]
	}}`)
	res, err := NewDecoder().DecodeStationDetail(body)
	if err != nil {
		t.Fatalf("DecodeStationDetail() failed: %v", err)
	}

	ots := res.Station.OpeningTimes
	if len(ots) != 2 {
		t.Fatalf("expected 2 opening times, got %d", len(ots))
	}
	holiday, unknown := ots[0], ots[1]
	if !holiday.Parsed || !holiday.Days.Empty() || !holiday.IncludesHolidays {
		t.Errorf("expected a parsed holiday-only entry, got %+v", holiday)
	}
	if holiday.HasDays() {
		t.Error("a holiday-only entry applies to no weekday")
	}
	if unknown.Parsed || unknown.IncludesHolidays {
		t.Errorf("expected an unparsed entry, got %+v", unknown)
	}
}

func TestDecoder_FaultyDayStrict(t *testing.T) {
	_, err := NewDecoder(WithStrictOpeningTimes()).DecodeStationDetail(readFixture(t, "detail_faulty_day.json"))
	var perr *ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("expected *ParseError, got %v", err)
	}
	if perr.Text != "Foo-Di" {
		t.Errorf("unexpected ParseError text %q", perr.Text)
	}
}

func TestDecoder_StationListOnePrice(t *testing.T) {
	res, err := NewDecoder().DecodeStationList(readFixture(t, "list_one_price.json"))
	if err != nil {
		t.Fatalf("DecodeStationList() failed: %v", err)
	}
	assertSuccessEnvelope(t, res.Envelope)

	if len(res.Stations) != 2 {
		t.Fatalf("expected 2 stations, got %d", len(res.Stations))
	}

	first := res.Stations[0]
	if first.Price == nil || *first.Price != 1.009 {
		t.Errorf("unexpected price %v", deref(first.Price))
	}
	if first.GasPrices != nil {
		t.Error("single price list results should not carry gas prices")
	}
	if first.OpeningTimes != nil || first.OverridingOpeningTimes != nil || first.WholeDay != nil {
		t.Error("list results should not carry opening times")
	}
	if first.Location.Distance == nil || *first.Location.Distance != 3.5 {
		t.Errorf("unexpected distance %v", deref(first.Location.Distance))
	}
	if first.Location.State != nil {
		t.Error("expected no state")
	}

	second := res.Stations[1]
	if second.Brand != nil {
		t.Errorf("expected null brand to be absent, got %q", *second.Brand)
	}
	if second.Location.HouseNumber == nil || *second.Location.HouseNumber != "25" {
		t.Errorf("unexpected house number %v", deref(second.Location.HouseNumber))
	}
	if second.Location.ZipCode == nil || *second.Location.ZipCode != 10407 {
		t.Errorf("unexpected zip code %v", deref(second.Location.ZipCode))
	}
	if second.Location.Lat != 52.533901 || second.Location.Lng != 13.4451 {
		t.Errorf("unexpected coordinates %v,%v", second.Location.Lat, second.Location.Lng)
	}
}

func TestDecoder_StationListAllPrices(t *testing.T) {
	res, err := NewDecoder().DecodeStationList(readFixture(t, "list_all_prices.json"))
	if err != nil {
		t.Fatalf("DecodeStationList() failed: %v", err)
	}
	if len(res.Stations) != 3 {
		t.Fatalf("expected 3 stations, got %d", len(res.Stations))
	}

	first := res.Stations[0].GasPrices
	if first == nil {
		t.Fatal("expected gas prices on the first station")
	}
	if first.HasPrice(Diesel) {
		t.Error("expected no diesel price")
	}
	if p, ok := first.Price(E5); !ok || p != 1.289 {
		t.Errorf("E5 = %v (%t)", p, ok)
	}
	if p, ok := first.Price(E10); !ok || p != 1.269 {
		t.Errorf("E10 = %v (%t)", p, ok)
	}

	second := res.Stations[1]
	if second.Open {
		t.Error("expected second station to be closed")
	}
	if second.GasPrices.HasPrice(E10) {
		t.Error("expected missing E10 key to be absent")
	}
	if p, _ := second.GasPrices.Price(Diesel); p != 1.029 {
		t.Errorf("Diesel = %v", p)
	}

	third := res.Stations[2]
	if third.GasPrices != nil {
		t.Error("all-null prices must collapse to absent gas prices")
	}
	if third.Name != nil {
		t.Error("empty name must be absent")
	}
	if third.DisplayName() != "TOTAL" {
		t.Errorf("DisplayName() = %q", third.DisplayName())
	}
	if third.Location.HouseNumber != nil {
		t.Error("null house number must be absent")
	}
}

func TestDecoder_StationListEmpty(t *testing.T) {
	body := `{"ok": true, "license": "CC BY 4.0 -  https://creativecommons.tankerkoenig.de", "data": "MTS-K", "status": "ok", "stations": []}`

	res, err := NewDecoder().DecodeStationList([]byte(body))
	if err != nil {
		t.Fatalf("DecodeStationList() failed: %v", err)
	}
	assertSuccessEnvelope(t, res.Envelope)
	if res.Stations == nil {
		t.Error("an empty result must be an empty, non-nil list")
	}
	if len(res.Stations) != 0 {
		t.Errorf("expected no stations, got %d", len(res.Stations))
	}
}

func TestDecoder_Prices(t *testing.T) {
	res, err := NewDecoder().DecodePrices(readFixture(t, "prices.json"))
	if err != nil {
		t.Fatalf("DecodePrices() failed: %v", err)
	}
	assertSuccessEnvelope(t, res.Envelope)
	if res.Status != nil {
		t.Error("prices responses carry no status")
	}

	if len(res.Prices) != 3 {
		t.Fatalf("expected 3 price sets, got %d", len(res.Prices))
	}
	if _, ok := res.GasPrice("not_existing"); ok {
		t.Error("unexpected price set for unknown id")
	}

	first, ok := res.GasPrice("1723edea-8e01-4de3-8c5e-ca227a49e2c3")
	if !ok {
		t.Fatal("expected first price set")
	}
	if first.Status != StatusOpen {
		t.Errorf("unexpected status %q", first.Status)
	}
	for _, gt := range GasTypes {
		if p, ok := first.Price(gt); !ok || p != 1.234 {
			t.Errorf("%v = %v (%t)", gt, p, ok)
		}
	}

	second := res.Prices["51d4b660-a095-1aa0-e100-80009459e03a"]
	if second.Status != StatusClosed {
		t.Errorf("unexpected status %q", second.Status)
	}
	if second.HasPrice(Diesel) {
		t.Error("a false price must be treated as absent")
	}

	third := res.Prices["c9dc3f9b-e10a-47b4-a3fe-451b2cb1daad"]
	if third.Status != StatusNotFound {
		t.Errorf("unexpected status %q", third.Status)
	}
	if third.HasPrices() {
		t.Error("expected no prices for an unknown station")
	}
}

func TestDecoder_ErrorEnvelope(t *testing.T) {
	body := readFixture(t, "fail_response.json")
	d := NewDecoder()

	list, err := d.DecodeStationList(body)
	if err != nil {
		t.Fatalf("DecodeStationList() failed: %v", err)
	}
	assertFailedEnvelope(t, list.Envelope)
	if list.Stations != nil {
		t.Error("failed list result must have a nil payload")
	}

	detail, err := d.DecodeStationDetail(body)
	if err != nil {
		t.Fatalf("DecodeStationDetail() failed: %v", err)
	}
	assertFailedEnvelope(t, detail.Envelope)
	if detail.Station != nil {
		t.Error("failed detail result must have a nil payload")
	}

	prices, err := d.DecodePrices(body)
	if err != nil {
		t.Fatalf("DecodePrices() failed: %v", err)
	}
	assertFailedEnvelope(t, prices.Envelope)
	if prices.Prices != nil {
		t.Error("failed prices result must have a nil payload")
	}

	correction, err := d.DecodeCorrection(body)
	if err != nil {
		t.Fatalf("DecodeCorrection() failed: %v", err)
	}
	assertFailedEnvelope(t, correction.Envelope)
}

func TestDecoder_ErrorEnvelopeIgnoresPayload(t *testing.T) {
	body := `{"ok": false, "status": "error", "message": "apikey nicht angegeben", "stations": [{"id": "a"}]}`

	res, err := NewDecoder().DecodeStationList([]byte(body))
	if err != nil {
		t.Fatalf("DecodeStationList() failed: %v", err)
	}
	if res.Stations != nil {
		t.Error("payload must stay absent when ok is false")
	}
}

func TestDecoder_Correction(t *testing.T) {
	res, err := NewDecoder().DecodeCorrection([]byte(`{"ok": true, "status": "ok"}`))
	if err != nil {
		t.Fatalf("DecodeCorrection() failed: %v", err)
	}
	if !res.OK || res.Status == nil || *res.Status != ResponseOK || res.Message != nil {
		t.Errorf("unexpected envelope %+v", res.Envelope)
	}
}

func TestDecoder_InvalidBodies(t *testing.T) {
	d := NewDecoder()
	for _, body := range []string{"", "null", "not json", "[1, 2]"} {
		if _, err := d.DecodeStationList([]byte(body)); err == nil {
			t.Errorf("DecodeStationList(%q) expected error", body)
		}
	}
}

func TestStation_EqualByID(t *testing.T) {
	a := Station{ID: "1", Name: ptr("A")}
	b := Station{ID: "1", Open: true}
	c := Station{ID: "2", Name: ptr("A")}

	if !a.Equal(b) {
		t.Error("stations with the same id must be equal")
	}
	if a.Equal(c) {
		t.Error("stations with different ids must differ")
	}
}

func TestLocation_Address(t *testing.T) {
	tests := []struct {
		loc      Location
		expected string
	}{
		{Location{Street: "Kniprodestr.", HouseNumber: ptr("25"), ZipCode: ptr(10407), City: "Berlin"}, "Kniprodestr. 25, 10407 Berlin"},
		{Location{Street: "HERZBERGSTR. 27", City: "BERLIN"}, "HERZBERGSTR. 27, BERLIN"},
		{Location{City: "Berlin"}, "Berlin"},
		{Location{ZipCode: ptr(1067), City: "Dresden"}, "01067 Dresden"},
		{Location{}, ""},
	}

	for _, test := range tests {
		if got := test.loc.Address(); got != test.expected {
			t.Errorf("Address() = %q, expected %q", got, test.expected)
		}
	}
}
