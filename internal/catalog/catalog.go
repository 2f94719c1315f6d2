// Package catalog holds the fixed service vocabulary (items, purposes,
// replacement cycles) and the follow-up dates derived from it.
package catalog

import (
	"fmt"

	"github.com/tartampluch/go-svcrecords/internal/config"
	"github.com/tartampluch/go-svcrecords/internal/roc"
)

// Item is a maintenance or construction item.
type Item int

const (
	ItemWater Item = iota + 1
	ItemGas
	ItemCabinet
	ItemRenovation
	ItemOther
)

var itemNames = map[Item]string{
	ItemWater:      "淨水設備",
	ItemGas:        "瓦斯爐具器具",
	ItemCabinet:    "系統櫃廚具",
	ItemRenovation: "水電及室內裝修工程",
	ItemOther:      "其他（自行輸入）",
}

// Items lists every item in display order.
var Items = []Item{ItemWater, ItemGas, ItemCabinet, ItemRenovation, ItemOther}

// WaterItemName is the stored label of the water-purification item.
var WaterItemName = itemNames[ItemWater]

func (i Item) String() string { return itemNames[i] }

// ParseItem resolves a stored item label.
func ParseItem(name string) (Item, error) {
	for _, it := range Items {
		if itemNames[it] == name {
			return it, nil
		}
	}
	return 0, fmt.Errorf("%s: %q", config.ErrUnknownItem, name)
}

// Purpose is why the visit happened.
type Purpose int

const (
	PurposeInstall Purpose = iota + 1
	PurposePurchase
)

var purposeNames = map[Purpose]string{
	PurposeInstall:  "安裝",
	PurposePurchase: "購買",
}

// Purposes lists every purpose in display order.
var Purposes = []Purpose{PurposeInstall, PurposePurchase}

func (p Purpose) String() string { return purposeNames[p] }

// ParsePurpose resolves a stored purpose label.
func ParsePurpose(name string) (Purpose, error) {
	for _, p := range Purposes {
		if purposeNames[p] == name {
			return p, nil
		}
	}
	return 0, fmt.Errorf("%s: %q", config.ErrUnknownPurpose, name)
}

// Cycle is the water filter replacement interval.
type Cycle int

const (
	CycleNone Cycle = iota
	CycleHalfYear
	CycleOneYear
	CycleOneAndHalfYear
	CycleTwoYears
)

var cycleTable = map[Cycle]struct {
	name   string
	months int
}{
	CycleHalfYear:       {"半年", 6},
	CycleOneYear:        {"一年", 12},
	CycleOneAndHalfYear: {"一年半", 18},
	CycleTwoYears:       {"兩年", 24},
}

// Cycles lists the selectable cycles in display order.
var Cycles = []Cycle{CycleHalfYear, CycleOneYear, CycleOneAndHalfYear, CycleTwoYears}

func (c Cycle) String() string { return cycleTable[c].name }

// Months returns the cycle length, 0 for CycleNone.
func (c Cycle) Months() int { return cycleTable[c].months }

// ParseCycle resolves a cycle label. Unknown labels yield CycleNone and an error.
func ParseCycle(name string) (Cycle, error) {
	for _, c := range Cycles {
		if cycleTable[c].name == name {
			return c, nil
		}
	}
	return CycleNone, fmt.Errorf("%s: %q", config.ErrUnknownCycle, name)
}

// Followups are the derived ROC dates stored with a record. Empty means not applicable.
type Followups struct {
	NextReplace string
	WarrantyEnd string
}

// DeriveFollowups computes the follow-up dates for a service on date.
// The water item with a known cycle schedules the next replacement; the gas
// item carries a one-year warranty.
func DeriveFollowups(date roc.Date, items []Item, cycle Cycle) Followups {
	var f Followups
	if !date.Valid() {
		return f
	}
	if Contains(items, ItemWater) {
		if months := cycle.Months(); months > 0 {
			f.NextReplace = roc.AddMonths(date, months).Roc()
		}
	}
	if Contains(items, ItemGas) {
		f.WarrantyEnd = roc.AddOneYear(date).Roc()
	}
	return f
}

// Contains reports whether items includes it.
func Contains(items []Item, it Item) bool {
	for _, x := range items {
		if x == it {
			return true
		}
	}
	return false
}

// Names renders items as their stored labels.
func Names(items []Item) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.String())
	}
	return out
}

// PurposeNames renders purposes as their stored labels.
func PurposeNames(purposes []Purpose) []string {
	out := make([]string, 0, len(purposes))
	for _, p := range purposes {
		out = append(out, p.String())
	}
	return out
}
