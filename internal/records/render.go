package records

import (
	"strings"

	"github.com/tartampluch/go-svcrecords/internal/catalog"
	"github.com/tartampluch/go-svcrecords/internal/config"
	"github.com/tartampluch/go-svcrecords/internal/roc"
)

// Column positions of a DisplayRow.
const (
	ColDate = iota
	ColName
	ColPhone
	ColAddress
	ColPurposes
	ColItems
	ColWaterStatus
	ColFollowup
	ColNotes

	ColumnCount
)

// DisplayRow is one rendered table line.
type DisplayRow [ColumnCount]string

// Labels are the user-visible words baked into rendered cells.
type Labels struct {
	NotReplaced    string
	Replaced       string
	ReplacePrefix  string
	WarrantyPrefix string
	WaterItem      string
}

// DefaultLabels returns the Traditional Chinese labels the remote store uses.
func DefaultLabels() Labels {
	return Labels{
		NotReplaced:    "未更換",
		Replaced:       "已更換",
		ReplacePrefix:  "更換：",
		WarrantyPrefix: "保固：",
		WaterItem:      catalog.WaterItemName,
	}
}

// Status renders a water status; StatusNone is "".
func (l Labels) Status(s WaterStatus) string {
	switch s {
	case StatusNotReplaced:
		return l.NotReplaced
	case StatusReplaced:
		return l.Replaced
	default:
		return ""
	}
}

// FollowupText renders the stored follow-up dates of rec. The water-only view
// shows the next replacement alone.
func (l Labels) FollowupText(rec Record, onlyWater bool) string {
	next := strings.TrimSpace(rec.Str(config.FieldNextReplaceROC))
	end := strings.TrimSpace(rec.Str(config.FieldWarrantyEndROC))

	if onlyWater {
		if next == "" {
			return ""
		}
		return l.ReplacePrefix + next
	}

	switch {
	case next != "" && end != "":
		return l.ReplacePrefix + next + config.ListJoinSeparator + l.WarrantyPrefix + end
	case next != "":
		return l.ReplacePrefix + next
	case end != "":
		return l.WarrantyPrefix + end
	default:
		return ""
	}
}

// Render filters and renders a newest-first sequence. With onlyWater, records
// without the water item are dropped, but water status is still computed over
// the full sequence.
func (l Labels) Render(sorted []Ranked, onlyWater bool) []DisplayRow {
	statuses := ClassifyWaterStatus(sorted)
	rows := make([]DisplayRow, 0, len(sorted))

	for i, r := range sorted {
		rec := r.Record
		items := rec.List(config.FieldItems)

		if onlyWater && !contains(items, catalog.WaterItemName) {
			continue
		}

		itemsDisplay := JoinList(items)
		if onlyWater {
			itemsDisplay = l.WaterItem
		}

		var row DisplayRow
		row[ColDate] = roc.NormalizeRocStr(rec.Str(config.FieldServiceDateROC))
		row[ColName] = rec.Str(config.FieldCustomerName)
		row[ColPhone] = rec.Str(config.FieldPhone)
		row[ColAddress] = rec.Str(config.FieldAddress)
		row[ColPurposes] = JoinList(rec.List(config.FieldPurposes))
		row[ColItems] = itemsDisplay
		row[ColWaterStatus] = l.Status(statuses[i])
		row[ColFollowup] = l.FollowupText(rec, onlyWater)
		row[ColNotes] = rec.Str(config.FieldNotes)
		rows = append(rows, row)
	}
	return rows
}

// BuildFollowupText is FollowupText with the default labels.
func BuildFollowupText(rec Record, onlyWater bool) string {
	return DefaultLabels().FollowupText(rec, onlyWater)
}

// FilterAndRender is Render with the default labels.
func FilterAndRender(sorted []Ranked, onlyWater bool) []DisplayRow {
	return DefaultLabels().Render(sorted, onlyWater)
}

// Latest returns the first rendered row.
func Latest(rows []DisplayRow) (DisplayRow, bool) {
	if len(rows) == 0 {
		return DisplayRow{}, false
	}
	return rows[0], true
}

func contains(values []string, want string) bool {
	for _, v := range values {
		if v == want {
			return true
		}
	}
	return false
}
