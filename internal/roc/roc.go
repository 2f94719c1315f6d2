// Package roc converts between Gregorian dates and Republic-of-China era
// (民國) date strings of the form YYY.MM.DD.
package roc

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/tartampluch/go-svcrecords/internal/config"
)

var (
	ymdPattern = regexp.MustCompile(`\d{4}-\d{2}-\d{2}`)
	rocPattern = regexp.MustCompile(`^\s*(\d{1,3})[./-](\d{1,2})[./-](\d{1,2})\s*$`)
)

// Date is a proleptic Gregorian calendar day.
// Values built by AddMonths or ParseYmd are always valid; RocToAdDate may
// produce out-of-range fields, which Valid reports.
type Date struct {
	Year  int
	Month int
	Day   int
}

// NewDate builds a Date without validation.
func NewDate(year, month, day int) Date {
	return Date{Year: year, Month: month, Day: day}
}

// FromTime takes the calendar day of t in its own location.
func FromTime(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: int(m), Day: d}
}

// Valid reports whether the day exists in the Gregorian calendar.
func (d Date) Valid() bool {
	if d.Month < 1 || d.Month > 12 || d.Day < 1 {
		return false
	}
	return d.Day <= DaysIn(d.Year, d.Month)
}

// Time returns midnight of d in loc.
func (d Date) Time(loc *time.Location) time.Time {
	return time.Date(d.Year, time.Month(d.Month), d.Day, 0, 0, 0, 0, loc)
}

// Compare returns -1, 0 or +1 ordering d against o chronologically.
func (d Date) Compare(o Date) int {
	switch {
	case d.Year != o.Year:
		return cmpInt(d.Year, o.Year)
	case d.Month != o.Month:
		return cmpInt(d.Month, o.Month)
	default:
		return cmpInt(d.Day, o.Day)
	}
}

// ISO renders YYYY-MM-DD, or "" for an invalid date.
func (d Date) ISO() string {
	if !d.Valid() {
		return ""
	}
	return d.Time(time.UTC).Format(config.DateFormatISO)
}

// Roc renders the canonical ROC string, or "" for an invalid date.
// Years before 1912 are not rejected: they render as "000" or with a minus sign.
func (d Date) Roc() string {
	if !d.Valid() {
		return ""
	}
	return fmt.Sprintf(config.FormatRoc, d.Year-config.RocYearOffset, d.Month, d.Day)
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

// DateToRoc renders an optional date; an absent date yields "".
func DateToRoc(d Date, ok bool) string {
	if !ok {
		return ""
	}
	return d.Roc()
}

// DaysIn returns the number of days in the given month.
func DaysIn(year, month int) int {
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// AddMonths moves d by n months, clamping the day to the end of the target month.
// Jan 31 + 1 month is the last day of February.
func AddMonths(d Date, n int) Date {
	total := d.Year*12 + (d.Month - 1) + n
	year := floorDiv(total, 12)
	month := total - year*12 + 1
	day := d.Day
	if last := DaysIn(year, month); day > last {
		day = last
	}
	return Date{Year: year, Month: month, Day: day}
}

// AddOneYear is AddMonths(d, 12).
func AddOneYear(d Date) Date {
	return AddMonths(d, 12)
}

// IsYmd reports whether the trimmed text contains a YYYY-MM-DD shaped substring.
// It is a loose pre-check, not strict ISO validation.
func IsYmd(text string) bool {
	return ymdPattern.MatchString(strings.TrimSpace(text))
}

// ParseYmd parses the first YYYY-MM-DD substring of text.
// It returns false when there is none or when it is not a real date (Feb 30).
func ParseYmd(text string) (Date, bool) {
	match := ymdPattern.FindString(strings.TrimSpace(text))
	if match == "" {
		return Date{}, false
	}
	t, err := time.Parse(config.DateFormatISO, match)
	if err != nil {
		return Date{}, false
	}
	return FromTime(t), true
}

// NormalizeRocStr re-renders a lenient ROC string ("113/3/5", " 99-12-1 ") in
// canonical zero padded form. Month and day ranges are not checked.
// It returns "" when the text does not match.
func NormalizeRocStr(text string) string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return ""
	}
	m := rocPattern.FindStringSubmatch(trimmed)
	if m == nil {
		return ""
	}
	// The pattern guarantees 1-3 ASCII digits per group.
	year, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	day, _ := strconv.Atoi(m[3])
	return fmt.Sprintf(config.FormatRoc, year, month, day)
}

// RocToAdDate converts a ROC string to its Gregorian date.
// The result is not range checked: "113.13.40" yields a Date for which Valid is false.
func RocToAdDate(text string) (Date, bool) {
	normalized := NormalizeRocStr(text)
	if normalized == "" {
		return Date{}, false
	}
	parts := strings.Split(normalized, config.RocSeparator)
	if len(parts) != 3 {
		return Date{}, false
	}
	var nums [3]int
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return Date{}, false
		}
		nums[i] = n
	}
	return Date{Year: nums[0] + config.RocYearOffset, Month: nums[1], Day: nums[2]}, true
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
