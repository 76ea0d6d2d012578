package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/rubiojr/tankerkoenig/pkg/api"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// placeName turns the upper case place names the API often returns into
// "Frankfurt Am Main" style.
func placeName(s string) string {
	if s == "" {
		return s
	}
	return cases.Title(language.German).String(strings.ToLower(s))
}

func address(l api.Location) string {
	l.City = placeName(l.City)
	return l.Address()
}

func formatPrice(p float64, ok bool) string {
	if !ok {
		return "-"
	}
	return fmt.Sprintf("%.3f €", p)
}

func printStation(w io.Writer, i int, st api.Station) {
	brand := ""
	if st.Brand != nil && *st.Brand != "" {
		brand = " [" + *st.Brand + "]"
	}
	fmt.Fprintf(w, "%d. %s%s\n", i, st.DisplayName(), brand)
	fmt.Fprintf(w, "   Address: %s\n", address(st.Location))
	if st.Location.Distance != nil {
		fmt.Fprintf(w, "   Distance: %.2f km\n", *st.Location.Distance)
	}
	status := "closed"
	if st.Open {
		status = "open"
	}
	fmt.Fprintf(w, "   Status: %s\n", status)
	if st.Price != nil {
		fmt.Fprintf(w, "   Price: %s\n", formatPrice(*st.Price, true))
	}
	if st.GasPrices != nil {
		printPrices(w, *st.GasPrices)
	}
	fmt.Fprintf(w, "   ID: %s\n\n", st.ID)
}

func printPrices(w io.Writer, p api.GasPrices) {
	for _, t := range api.GasTypes {
		v, ok := p.Price(t)
		fmt.Fprintf(w, "   %s: %s\n", t, formatPrice(v, ok))
	}
}

func printOpeningTimes(w io.Writer, st api.Station) {
	if st.IsWholeDay() {
		fmt.Fprintln(w, "   Opening times: 24h")
	}
	for _, ot := range st.OpeningTimes {
		days := ot.Text
		if ot.HasDays() {
			days = ot.Days.String()
		} else if ot.Parsed {
			days = "Holidays"
		}
		holidays := ""
		if ot.IncludesHolidays {
			holidays = " (incl. holidays)"
		}
		fmt.Fprintf(w, "   %s %s-%s%s\n", days, ot.Start, ot.End, holidays)
	}
	for _, o := range st.OverridingOpeningTimes {
		fmt.Fprintf(w, "   Override: %s\n", o)
	}
}
