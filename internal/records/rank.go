package records

import (
	"sort"
	"strings"
	"time"

	"github.com/tartampluch/go-svcrecords/internal/catalog"
	"github.com/tartampluch/go-svcrecords/internal/config"
	"github.com/tartampluch/go-svcrecords/internal/roc"
)

// Ranked pairs a record with its parsed sort keys.
type Ranked struct {
	Record Record

	// Date is the Gregorian service date; only meaningful when HasDate.
	Date    roc.Date
	HasDate bool

	// CreatedAt is the submission time; only meaningful when HasCreated.
	CreatedAt  time.Time
	HasCreated bool
}

// WaterStatus is the replacement state of a water-equipment record.
type WaterStatus int

const (
	StatusNone WaterStatus = iota
	StatusNotReplaced
	StatusReplaced
)

// NewRanked parses the sort keys of rec. Unparseable or out-of-range dates are absent.
func NewRanked(rec Record) Ranked {
	r := Ranked{Record: rec}
	if d, ok := roc.RocToAdDate(rec.Str(config.FieldServiceDateROC)); ok && d.Valid() {
		r.Date, r.HasDate = d, true
	}
	if t, ok := ParseCreatedAt(rec.Str(config.FieldCreatedAt)); ok {
		r.CreatedAt, r.HasCreated = t, true
	}
	return r
}

// ParseCreatedAt parses the store's "YYYY-MM-DD HH:MM:SS" timestamp.
func ParseCreatedAt(s string) (time.Time, bool) {
	t, err := time.Parse(config.DateTimeFormatStore, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// NormalizeAndSort ranks records newest first: by service date descending with
// undated records last, then by created_at descending with missing timestamps
// last. Full ties keep their input order.
func NormalizeAndSort(recs []Record) []Ranked {
	ranked := make([]Ranked, 0, len(recs))
	for _, rec := range recs {
		ranked = append(ranked, NewRanked(rec))
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return newer(ranked[i], ranked[j])
	})
	return ranked
}

// Rank is FromRows followed by NormalizeAndSort.
func Rank(rows []any) []Ranked {
	return NormalizeAndSort(FromRows(rows))
}

func newer(a, b Ranked) bool {
	if a.HasDate != b.HasDate {
		return a.HasDate
	}
	if a.HasDate {
		if c := a.Date.Compare(b.Date); c != 0 {
			return c > 0
		}
	}
	if a.HasCreated != b.HasCreated {
		return a.HasCreated
	}
	return a.HasCreated && a.CreatedAt.After(b.CreatedAt)
}

// ClassifyWaterStatus labels the water-equipment records of a newest-first
// sequence. The first one is the unit currently installed; every older one
// has been superseded. Records without the water item are not in the map.
func ClassifyWaterStatus(sorted []Ranked) map[int]WaterStatus {
	out := make(map[int]WaterStatus)
	seen := false
	for i, r := range sorted {
		if !r.Record.HasItem(catalog.WaterItemName) {
			continue
		}
		if seen {
			out[i] = StatusReplaced
			continue
		}
		out[i] = StatusNotReplaced
		seen = true
	}
	return out
}

// LatestByCreated returns the most recently submitted record. Records without
// a valid created_at only win while no dated record has been seen.
func LatestByCreated(recs []Record) (Record, bool) {
	var (
		latest    Record
		latestAt  time.Time
		haveValid bool
	)
	for _, rec := range recs {
		t, ok := ParseCreatedAt(rec.Str(config.FieldCreatedAt))
		switch {
		case !haveValid && ok:
			latest, latestAt, haveValid = rec, t, true
		case !haveValid:
			latest = rec
		case ok && t.After(latestAt):
			latest, latestAt = rec, t
		}
	}
	return latest, latest != nil
}
