package api

import (
	"strings"
	"time"
)

const (
	rangeSeparator = "-"
	listSeparator  = ","

	// holidayOrdinal follows Sunday in the lookup table.
	holidayOrdinal = 8
)

// Fixed phrases that are matched before any day parsing happens.
const (
	phraseDaily                    = "täglich"
	phraseDailyExceptHoliday       = "täglich ausser Feiertag"
	phraseDailyExceptSundayHoliday = "täglich ausser Sonn- und Feiertagen"
)

var dayOrdinals = map[string]int{
	"Montag": 1, "Mo": 1,
	"Dienstag": 2, "Di": 2,
	"Mittwoch": 3, "Mi": 3,
	"Donnerstag": 4, "Do": 4,
	"Freitag": 5, "Fr": 5,
	"Samstag": 6, "Sa": 6,
	"Sonntag": 7, "So": 7,
	"Feiertag": holidayOrdinal,
}

// dayData is what an opening-hours text describes.
type dayData struct {
	days     Days
	holidays bool
}

// parseDays interprets a German weekday descriptor such as "Mo-Fr",
// "Sa, So" or "täglich". It either understands the whole text or returns a
// *ParseError; a partially understood text never yields days. Empty text
// yields no days and no error.
func parseDays(text string) (dayData, error) {
	switch text {
	case "":
		return dayData{}, nil
	case phraseDailyExceptHoliday:
		return dayData{days: AllDays}, nil
	case phraseDaily:
		return dayData{days: AllDays, holidays: true}, nil
	case phraseDailyExceptSundayHoliday:
		return dayData{days: AllDays.Without(time.Sunday)}, nil
	}

	var ordinals []int
	var ok bool
	switch {
	case strings.Contains(text, rangeSeparator):
		ordinals, ok = parseDayRange(text)
	case strings.Contains(text, listSeparator):
		ordinals, ok = parseDayList(text)
	default:
		var o int
		o, ok = dayOrdinal(text)
		ordinals = []int{o}
	}
	if !ok {
		return dayData{}, &ParseError{Text: text, Context: "opening times"}
	}

	var d dayData
	for _, o := range ordinals {
		if o == holidayOrdinal {
			d.holidays = true
			continue
		}
		d.days = d.days.With(weekOrder[o-1])
	}
	return d, nil
}

func parseDayRange(text string) ([]int, bool) {
	from, to, _ := strings.Cut(text, rangeSeparator)
	fromOrd, ok := dayOrdinal(from)
	if !ok {
		return nil, false
	}
	toOrd, ok := dayOrdinal(to)
	if !ok || fromOrd > toOrd {
		return nil, false
	}

	ordinals := make([]int, 0, toOrd-fromOrd+1)
	for o := fromOrd; o <= toOrd; o++ {
		ordinals = append(ordinals, o)
	}
	return ordinals, true
}

func parseDayList(text string) ([]int, bool) {
	parts := strings.Split(text, listSeparator)
	ordinals := make([]int, 0, len(parts))
	for _, p := range parts {
		o, ok := dayOrdinal(p)
		if !ok {
			return nil, false
		}
		ordinals = append(ordinals, o)
	}
	return ordinals, true
}

func dayOrdinal(name string) (int, bool) {
	o, ok := dayOrdinals[strings.TrimSpace(name)]
	return o, ok
}
