package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/emersion/go-ical"
	"github.com/google/uuid"
	"github.com/tartampluch/go-svcrecords/internal/config"
	"github.com/tartampluch/go-svcrecords/internal/records"
	"github.com/tartampluch/go-svcrecords/internal/roc"
)

// uidSpace scopes the UUIDv5 event identifiers to this application.
var uidSpace = uuid.NewSHA1(uuid.NameSpaceURL, []byte(config.UIDNamespace))

// FeedGenerator turns the records of tracked customers into an iCalendar feed
// of upcoming follow-ups.
type FeedGenerator struct {
	Source RecordSource
	Clock  Clock

	// FormatSummary lets the caller inject localized event titles.
	FormatSummary func(kind, name string) string
}

type feedStats struct {
	phones, rows, events int
}

// Generate builds the feed for phones. It returns the ICS bytes and the number of events.
func (g *FeedGenerator) Generate(ctx context.Context, phones []string) ([]byte, int, error) {
	start := time.Now()
	log := slog.With(config.LogKeyComponent, config.CompEngine)
	log.InfoContext(ctx, config.MsgSyncStarted, config.LogKeyCount, len(phones))

	if g.Source == nil {
		return nil, 0, errors.New(config.ErrSourceMissing)
	}
	clock := g.Clock
	if clock == nil {
		clock = RealClock{}
	}

	cal := ical.NewCalendar()
	cal.Props.SetText(config.PropVersion, config.ICalVersion)
	cal.Props.SetText(config.PropProdid, config.ICalProdid)
	cal.Props.SetText(config.PropXWRCalName, config.ICalCalName)
	cal.Props.SetText(config.PropCalScale, config.ICalScale)
	cal.Props.SetText(config.PropMethod, config.ICalMethod)

	refreshProp := ical.NewProp(config.PropRefresh)
	refreshProp.SetDuration(config.DefaultICalRefresh)
	cal.Props.Set(refreshProp)

	// Follow-up dates are local calendar days; only the stamp is UTC.
	now := clock.Now()
	dtStampProp := ical.NewProp(config.PropDTStamp)
	dtStampProp.SetDateTime(now.UTC())

	var stats feedStats
	for _, phone := range phones {
		if err := ctx.Err(); err != nil {
			return nil, 0, err
		}
		phone = strings.TrimSpace(phone)
		if phone == "" {
			continue
		}

		rows, err := g.Source.Rows(ctx, phone)
		if err != nil {
			if ctx.Err() != nil {
				return nil, 0, ctx.Err()
			}
			return nil, 0, fmt.Errorf("%s: %w", config.ErrFetchRaw, err)
		}
		stats.phones++
		stats.rows += len(rows)

		for _, e := range g.eventsFor(phone, records.Rank(rows), now.Location()) {
			e.Props.Set(dtStampProp)
			cal.Children = append(cal.Children, e.Component)
		}
	}
	stats.events = len(cal.Children)

	if stats.events == 0 {
		g.logSuccess(stats, start)
		return []byte(config.StubVCalendar), 0, nil
	}

	var buf bytes.Buffer
	if err := ical.NewEncoder(&buf).Encode(cal); err != nil {
		return nil, 0, fmt.Errorf("%s: %w", config.ErrICalEncode, err)
	}
	g.logSuccess(stats, start)
	return buf.Bytes(), stats.events, nil
}

// eventsFor emits the next replacement of the unit currently installed and
// every warranty end of one customer.
func (g *FeedGenerator) eventsFor(phone string, sorted []records.Ranked, loc *time.Location) []*ical.Event {
	statuses := records.ClassifyWaterStatus(sorted)

	var events []*ical.Event
	for i, r := range sorted {
		name := r.Record.Str(config.FieldCustomerName)
		if name == "" {
			name = config.FallbackName
		}

		if statuses[i] == records.StatusNotReplaced {
			if e := g.newEvent(phone, config.EventKindReplace, name, r, config.FieldNextReplaceROC, loc); e != nil {
				events = append(events, e)
			}
		}
		if e := g.newEvent(phone, config.EventKindWarranty, name, r, config.FieldWarrantyEndROC, loc); e != nil {
			events = append(events, e)
		}
	}
	return events
}

// newEvent builds an all-day event on the ROC date held in field, or nil when
// the field is empty or not a real date.
func (g *FeedGenerator) newEvent(phone, kind, name string, r records.Ranked, field string, loc *time.Location) *ical.Event {
	date, ok := roc.RocToAdDate(r.Record.Str(field))
	if !ok || !date.Valid() {
		return nil
	}

	// The UID survives refreshes as long as the record itself is unchanged.
	key := strings.Join([]string{phone, kind, date.ISO(), r.Record.Str(config.FieldCreatedAt)}, "|")
	event := ical.NewEvent()
	event.Props.SetText(config.PropUID, uuid.NewSHA1(uidSpace, []byte(key)).String())

	summary := fmt.Sprintf("%s: %s", kind, name)
	if g.FormatSummary != nil {
		summary = g.FormatSummary(kind, name)
	}
	event.Props.SetText(config.PropSummary, summary)

	desc := phone
	if addr := r.Record.Str(config.FieldAddress); addr != "" {
		desc += "\n" + addr
	}
	event.Props.SetText(config.PropDescription, desc)

	dtStartProp := ical.NewProp(config.PropDTStart)
	dtStartProp.SetDate(date.Time(loc))
	event.Props.Set(dtStartProp)
	return event
}

func (g *FeedGenerator) logSuccess(stats feedStats, start time.Time) {
	slog.Info(config.MsgFeedSuccess,
		config.LogKeyComponent, config.CompEngine,
		slog.Group(config.LogKeyStats,
			slog.Int(config.LogKeyCount, stats.phones),
			slog.Int(config.LogKeyTotal, stats.rows),
			slog.Int(config.LogKeyEvents, stats.events),
		),
		config.LogKeyDuration, time.Since(start).Milliseconds(),
	)
}
