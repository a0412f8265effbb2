package transform

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// CanonicalLayout is the YYYYMMDD form used for date ranges and view dates.
const CanonicalLayout = "20060102"

var ErrUnparsableDate = errors.New("couldn't parse date")

// Field patterns for the directives a DateFormat may use. Alternatives are
// tried in order and month and day may be one or two digits wide, so
// "2020111" read as %Y%m%d is 2020-11-01.
var directives = map[byte]string{
	'Y': `(?P<Y>\d\d\d\d)`,
	'y': `(?P<y>\d\d)`,
	'm': `(?P<m>1[0-2]|0[1-9]|[1-9])`,
	'd': `(?P<d>3[01]|[12]\d|0[1-9]|[1-9]| [1-9])`,
}

// DateFormat pairs a human readable pattern with a %Y/%y/%m/%d format.
type DateFormat struct {
	Pattern string
	Format  string
	re      *regexp.Regexp
}

func newDateFormat(pattern, format string) DateFormat {
	var sb strings.Builder
	sb.WriteString("^")
	for i := 0; i < len(format); i++ {
		if format[i] == '%' && i+1 < len(format) {
			if expr, ok := directives[format[i+1]]; ok {
				sb.WriteString(expr)
				i++
				continue
			}
		}
		sb.WriteString(regexp.QuoteMeta(format[i : i+1]))
	}
	return DateFormat{Pattern: pattern, Format: format, re: regexp.MustCompile(sb.String())}
}

// DateFormats are tried in order and the first format that yields a valid date
// wins. Inputs that fit several patterns are not disambiguated: "01-02-2020" is
// MM-DD-YYYY because that pattern comes first. The day-first patterns with a
// separator take a two-digit year.
var DateFormats = []DateFormat{
	newDateFormat("YYYY-MM-DD", "%Y-%m-%d"),
	newDateFormat("YYYY/MM/DD", "%Y/%m/%d"),
	newDateFormat("YYYY.MM.DD", "%Y.%m.%d"),
	newDateFormat("YYYYMMDD", "%Y%m%d"),
	newDateFormat("MM-DD-YYYY", "%m-%d-%Y"),
	newDateFormat("MM/DD/YYYY", "%m/%d/%Y"),
	newDateFormat("MM.DD.YYYY", "%m.%d.%Y"),
	newDateFormat("MMDDYYYY", "%m%d%Y"),
	newDateFormat("DD-MM-YY", "%d-%m-%y"),
	newDateFormat("DD/MM/YY", "%d/%m/%y"),
	newDateFormat("DD.MM.YY", "%d.%m.%y"),
	newDateFormat("DDMMYYYY", "%d%m%Y"),
}

// parse matches date against the format. The first match must consume the
// whole input; a shorter first match is a failure, not a cue to try a
// different split. Years before 1 and impossible days are rejected.
func (f DateFormat) parse(date string) (time.Time, bool) {
	m := f.re.FindStringSubmatch(date)
	if m == nil || len(m[0]) != len(date) {
		return time.Time{}, false
	}

	var year, month, day int
	for i, name := range f.re.SubexpNames() {
		if name == "" {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(m[i]))
		if err != nil {
			return time.Time{}, false
		}
		switch name {
		case "Y":
			year = n
		case "y":
			if n <= 68 {
				year = 2000 + n
			} else {
				year = 1900 + n
			}
		case "m":
			month = n
		case "d":
			day = n
		}
	}

	if year < 1 {
		return time.Time{}, false
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Year() != year || int(t.Month()) != month || t.Day() != day {
		return time.Time{}, false
	}
	return t, true
}

// NormalizeDate converts a date in any of DateFormats to YYYYMMDD.
func NormalizeDate(date string) (string, error) {
	for _, format := range DateFormats {
		if t, ok := format.parse(date); ok {
			return t.Format(CanonicalLayout), nil
		}
	}
	return "", fmt.Errorf("%w %q, please use -h for accepted formats", ErrUnparsableDate, date)
}

// ISODate renders a canonical date as YYYY-MM-DD. Input that is not eight
// characters long is returned unchanged.
func ISODate(canonical string) string {
	if len(canonical) != 8 {
		return canonical
	}
	return canonical[:4] + "-" + canonical[4:6] + "-" + canonical[6:]
}

// DateRange is an inclusive range of canonical dates. Start <= End is assumed.
type DateRange struct {
	Start string
	End   string
}

// IsEmpty reports whether there is nothing to fetch for the range.
func (r DateRange) IsEmpty() bool {
	return r.Start == r.End
}

// ResolveDateRange normalizes the given endpoints. An empty start defaults to
// lookbackDays before now and an empty end defaults to now.
func ResolveDateRange(start, end string, now time.Time, lookbackDays int) (DateRange, error) {
	var r DateRange
	var err error

	if start == "" {
		r.Start = now.AddDate(0, 0, -lookbackDays).Format(CanonicalLayout)
	} else if r.Start, err = NormalizeDate(start); err != nil {
		return DateRange{}, err
	}

	if end == "" {
		r.End = now.Format(CanonicalLayout)
	} else if r.End, err = NormalizeDate(end); err != nil {
		return DateRange{}, err
	}

	return r, nil
}
